package pages_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/cueboard/cueboard/server/internal/library"
	"github.com/cueboard/cueboard/server/internal/pages"
	"github.com/cueboard/cueboard/server/internal/registry"
	"github.com/cueboard/cueboard/server/internal/selection"
)

// --- helpers ----------------------------------------------------------------

type fixture struct {
	dir    string
	router *mux.Router
	ctrl   *selection.Controller
	reg    *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"demo.png":            "PNGDATA",
		"my cue.jpg":          "JPG",
		"Intro/map.html":      "<div id=\"map\">Treasure map</div>",
		"Notes/clue.md":       "# The Clue\n\nLook **under** the desk.\n",
		"Backgrounds/sky.jpg": "SKY",
		".hidden.png":         "secret",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	lib, err := library.New(dir, nil)
	if err != nil {
		t.Fatalf("library.New: %v", err)
	}

	reg := registry.New()
	ctrl := selection.New(reg, lib)
	p, err := pages.New(ctrl, reg, lib)
	if err != nil {
		t.Fatalf("pages.New: %v", err)
	}
	r := mux.NewRouter()
	p.Register(r)
	return &fixture{dir: dir, router: r, ctrl: ctrl, reg: reg}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func body(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	b, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

// selectFile selects id and returns the display path.
func selectFile(t *testing.T, f *fixture, id string) string {
	t.Helper()
	conf, err := f.ctrl.SelectResource(id)
	if err != nil {
		t.Fatalf("SelectResource(%q): %v", id, err)
	}
	return conf.DisplayURL
}

// --- tests ------------------------------------------------------------------

func TestHome(t *testing.T) {
	f := newFixture(t)
	rr := get(t, f.router, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q", ct)
	}
	if b := body(t, rr); !strings.Contains(b, `cueboardConnect("viewer")`) {
		t.Error("home page does not connect as viewer")
	}
}

func TestManager_ListsFilesAndNone(t *testing.T) {
	f := newFixture(t)
	b := body(t, get(t, f.router, "/manager"))

	for _, want := range []string{
		`data-file="demo.png"`,
		`data-file="Intro/map.html"`,
		`data-file="Notes/clue.md"`,
		`>None</button>`,
		`cueboardConnect("manager"`,
	} {
		if !strings.Contains(b, want) {
			t.Errorf("manager page missing %s", want)
		}
	}
	if strings.Contains(b, ".hidden.png") {
		t.Error("manager page lists a hidden file")
	}
}

func TestManager_MarksActiveFile(t *testing.T) {
	f := newFixture(t)
	selectFile(t, f, "demo.png")
	b := body(t, get(t, f.router, "/manager"))
	if !strings.Contains(b, `class="file-button active" data-file="demo.png"`) {
		t.Error("selected file is not marked active")
	}
}

func TestDisplay_Image(t *testing.T) {
	f := newFixture(t)
	url := selectFile(t, f, "my cue.jpg")

	rr := get(t, f.router, url)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if b := body(t, rr); !strings.Contains(b, `<img src="/static/my%20cue.jpg"`) {
		t.Errorf("display page has no image tag for the file:\n%s", b)
	}
}

func TestDisplay_HTMLInline(t *testing.T) {
	f := newFixture(t)
	url := selectFile(t, f, "Intro/map.html")

	b := body(t, get(t, f.router, url))
	if !strings.Contains(b, `<div id="map">Treasure map</div>`) {
		t.Errorf("HTML content not embedded verbatim:\n%s", b)
	}
}

func TestDisplay_Markdown(t *testing.T) {
	f := newFixture(t)
	url := selectFile(t, f, "Notes/clue.md")

	b := body(t, get(t, f.router, url))
	if !strings.Contains(b, `<h1 id="the-clue">The Clue</h1>`) {
		t.Errorf("markdown heading not rendered:\n%s", b)
	}
	if !strings.Contains(b, "<strong>under</strong>") {
		t.Error("markdown emphasis not rendered")
	}
}

func TestDisplay_UnreadableHTMLRendersEmpty(t *testing.T) {
	f := newFixture(t)
	url := selectFile(t, f, "Intro/map.html")

	// The selection stays live while the file disappears underneath it.
	if err := os.Remove(filepath.Join(f.dir, "Intro", "map.html")); err != nil {
		t.Fatal(err)
	}

	rr := get(t, f.router, url)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if strings.Contains(body(t, rr), "Treasure map") {
		t.Error("removed file content still rendered")
	}
}

func TestDisplay_StaleTokenRedirectsHome(t *testing.T) {
	f := newFixture(t)
	old := selectFile(t, f, "demo.png")
	selectFile(t, f, "my cue.jpg")

	for _, target := range []string{old, "/display/not-a-token"} {
		rr := get(t, f.router, target)
		if rr.Code != http.StatusTemporaryRedirect {
			t.Errorf("GET %s: status %d, want 307", target, rr.Code)
			continue
		}
		if loc := rr.Header().Get("Location"); loc != "/" {
			t.Errorf("GET %s: Location %q, want /", target, loc)
		}
	}
}

func TestDisplay_NoSelectionRedirectsHome(t *testing.T) {
	f := newFixture(t)
	rr := get(t, f.router, "/display/anything")
	if rr.Code != http.StatusTemporaryRedirect {
		t.Errorf("status: got %d, want 307", rr.Code)
	}
}

func TestBackgroundRenderedOnLoad(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.SetBackground("Backgrounds/sky.jpg"); err != nil {
		t.Fatal(err)
	}
	b := body(t, get(t, f.router, "/"))
	if !strings.Contains(b, "/static/Backgrounds/sky.jpg") {
		t.Errorf("home page does not carry the background:\n%s", b)
	}
}

func TestStatic(t *testing.T) {
	f := newFixture(t)

	rr := get(t, f.router, "/static/demo.png")
	if rr.Code != http.StatusOK || body(t, rr) != "PNGDATA" {
		t.Errorf("GET /static/demo.png: status %d", rr.Code)
	}
	for _, target := range []string{"/static/.hidden.png", "/static/missing.png", "/static/Intro/"} {
		if rr := get(t, f.router, target); rr.Code != http.StatusNotFound {
			t.Errorf("GET %s: status %d, want 404", target, rr.Code)
		}
	}
}

func TestStaticURL(t *testing.T) {
	cases := map[string]string{
		"demo.png":         "/static/demo.png",
		"my cue.jpg":       "/static/my%20cue.jpg",
		"Intro/map #1.png": "/static/Intro/map%20%231.png",
	}
	for in, want := range cases {
		if got := pages.StaticURL(in); got != want {
			t.Errorf("StaticURL(%q): got %q, want %q", in, got, want)
		}
	}
}
