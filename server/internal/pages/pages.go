package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"

	"github.com/cueboard/cueboard/server/internal/library"
	"github.com/cueboard/cueboard/server/internal/registry"
	"github.com/cueboard/cueboard/server/internal/selection"
)

//go:embed templates/*.html
var templateFS embed.FS

// StaticPrefix is where library files are served.
const StaticPrefix = "/static/"

// Pages renders the home, manager and display pages and serves library
// files under StaticPrefix.
type Pages struct {
	ctrl *selection.Controller
	reg  *registry.Registry
	lib  *library.Library
	tmpl *template.Template
	md   goldmark.Markdown
}

// pageData is shared by all templates.
type pageData struct {
	Resource       string
	Files          []string
	Background     string // URL, empty for none
	JournalVisible bool

	// Display page: exactly one of ImageURL or Content is set.
	ImageURL string
	Content  template.HTML
}

// New parses the embedded templates.
func New(ctrl *selection.Controller, reg *registry.Registry, lib *library.Library) (*Pages, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("pages: parse templates: %w", err)
	}
	return &Pages{ctrl: ctrl, reg: reg, lib: lib, tmpl: tmpl, md: newMarkdownRenderer()}, nil
}

// Register adds the page routes and the static file server to r.
func (p *Pages) Register(r *mux.Router) {
	r.HandleFunc("/", p.home).Methods(http.MethodGet)
	r.HandleFunc("/manager", p.manager).Methods(http.MethodGet)
	r.HandleFunc("/display/{token}", p.display).Methods(http.MethodGet)
	r.PathPrefix(StaticPrefix).Handler(http.StripPrefix(StaticPrefix, http.FileServer(p.lib)))
}

func (p *Pages) home(w http.ResponseWriter, r *http.Request) {
	p.render(w, "home", p.baseData())
}

func (p *Pages) manager(w http.ResponseWriter, r *http.Request) {
	data := p.baseData()
	data.Files = p.lib.Files()
	p.render(w, "manager", data)
}

// display renders the current resource if token is the live display token
// and redirects to the home page otherwise.
func (p *Pages) display(w http.ResponseWriter, r *http.Request) {
	resource, ok := p.ctrl.Lookup(mux.Vars(r)["token"])
	if !ok {
		http.Redirect(w, r, selection.HomeURL, http.StatusTemporaryRedirect)
		return
	}

	data := p.baseData()
	data.Resource = resource
	switch strings.ToLower(path.Ext(resource)) {
	case ".html", ".htm":
		// Library content is trusted operator material.
		data.Content = template.HTML(p.lib.Content(resource))
	case ".md", ".markdown":
		data.Content = p.markdown(resource)
	default:
		data.ImageURL = StaticURL(resource)
	}
	p.render(w, "display", data)
}

// --- helpers ----------------------------------------------------------------

func (p *Pages) baseData() pageData {
	st := p.reg.Snapshot()
	data := pageData{Resource: st.Resource, JournalVisible: st.JournalVisible}
	if st.Background != "" {
		data.Background = StaticURL(st.Background)
	}
	return data
}

func (p *Pages) render(w http.ResponseWriter, name string, data pageData) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("pages: template execution failed", "page", name, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes()) //nolint:errcheck
}

// StaticURL returns the URL serving the library file id.
func StaticURL(id string) string {
	parts := strings.Split(id, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return StaticPrefix + strings.Join(parts, "/")
}
