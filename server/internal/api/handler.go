package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cueboard/cueboard/server/internal/library"
	"github.com/cueboard/cueboard/server/internal/registry"
	"github.com/cueboard/cueboard/server/internal/selection"
)

// Handler serves the operator endpoints and the read-only /api/v1 views.
type Handler struct {
	ctrl   *selection.Controller
	reg    *registry.Registry
	lib    *library.Library
	router *mux.Router
}

// New creates a Handler and registers its routes on a private router.
func New(ctrl *selection.Controller, reg *registry.Registry, lib *library.Library) *Handler {
	h := &Handler{ctrl: ctrl, reg: reg, lib: lib, router: mux.NewRouter()}
	h.Register(h.router)
	return h
}

// Register adds all API routes to r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/select", h.selectFile).Methods(http.MethodGet)
	r.HandleFunc("/background", h.background).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/journal/toggle", h.toggleJournal).Methods(http.MethodGet, http.MethodPost)

	// Full paths, not a subrouter, so every wrong method gets 405.
	r.HandleFunc("/api/v1/state", h.state).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/files", h.files).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tree", h.tree).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/clients", h.clients).Methods(http.MethodGet)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- operator endpoints -----------------------------------------------------

// selectFile handles GET /select?file=<id>. A missing file parameter is the
// same as file=undefined and clears the display.
func (h *Handler) selectFile(w http.ResponseWriter, r *http.Request) {
	id := selection.ClearSentinel
	if q := r.URL.Query(); q.Has("file") {
		id = q.Get("file")
	}

	conf, err := h.ctrl.SelectResource(id)
	if err != nil {
		writeSelectionErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, MessageResponse{Message: conf.Message})
}

// background handles /background?path=<id>. An empty or missing path clears
// the background.
func (h *Handler) background(w http.ResponseWriter, r *http.Request) {
	conf, err := h.ctrl.SetBackground(r.URL.Query().Get("path"))
	if err != nil {
		writeSelectionErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, MessageResponse{Message: conf.Message})
}

// toggleJournal handles /journal/toggle and returns the new flag value.
func (h *Handler) toggleJournal(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, JournalResponse{Visible: h.ctrl.ToggleJournalVisibility()})
}

// --- /api/v1 ----------------------------------------------------------------

// state returns GET /api/v1/state, the shared selection state. Unset fields
// are null.
func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	st := h.reg.Snapshot()
	jsonResp(w, http.StatusOK, StateResponse{
		Resource:       nullable(st.Resource),
		DisplayURL:     nullable(st.DisplayURL),
		Background:     nullable(st.Background),
		JournalVisible: st.JournalVisible,
	})
}

// files returns GET /api/v1/files, the flat list of selectable files.
func (h *Handler) files(w http.ResponseWriter, r *http.Request) {
	files := h.lib.Files()
	if files == nil {
		files = []string{}
	}
	jsonResp(w, http.StatusOK, files)
}

// tree returns GET /api/v1/tree, the files nested by directory.
func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.lib.Tree())
}

// clients returns GET /api/v1/clients, live connection counts by role.
func (h *Handler) clients(w http.ResponseWriter, r *http.Request) {
	counts := h.reg.Counts()
	jsonResp(w, http.StatusOK, ClientsResponse{
		Total:    h.reg.Count(),
		Viewers:  counts[registry.RoleViewer],
		Managers: counts[registry.RoleManager],
	})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeSelectionErr maps controller errors to responses. Unknown identifiers
// are 404 with the decoded identifier in the message.
func writeSelectionErr(w http.ResponseWriter, err error) {
	var nf *selection.NotFoundError
	if errors.As(err, &nf) {
		jsonResp(w, http.StatusNotFound, MessageResponse{Message: nf.Error()})
		return
	}
	slog.Error("api: request failed", "err", err)
	jsonResp(w, http.StatusInternalServerError, MessageResponse{Message: "internal error"})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
