// Package webui exposes the admin HTTP API: pipeline configuration CRUD
// against the sandboxed config store, lock management, a fully-defaulted
// template, and run status.
//
// Routes:
//
//	GET    /api/configs                  → list document names
//	GET    /api/template                 → defaulted document skeleton
//	GET    /api/config/{name}            → stored document
//	PUT    /api/config/{name}            → replace schema (validated first)
//	POST   /api/config/{name}/lock       → pin document against saves
//	DELETE /api/config/{name}/lock       → unpin
//	GET    /api/status                   → last run + recent history
//
// Validation failures return 422 with the lint issues as the body, a locked
// document returns 423, and sandbox violations return 400.
package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sheetpipe/internal/config"
	"sheetpipe/internal/configstore"
	"sheetpipe/internal/history"
	"sheetpipe/internal/logging"
)

// Config controls server startup.
type Config struct {
	Addr string
}

// Server wraps the chi router and its dependencies.
type Server struct {
	cfg   Config
	store *configstore.Store
	hist  history.Repository
	r     chi.Router

	mu   sync.RWMutex
	last *history.Run
}

// New constructs a Server with routes installed.
func New(cfg Config, store *configstore.Store, hist history.Repository) *Server {
	if hist == nil {
		hist = history.Nop{}
	}
	s := &Server{cfg: cfg, store: store, hist: hist}
	s.routes()
	return s
}

// SetLastRun records the most recent batch for the status endpoint.
func (s *Server) SetLastRun(run history.Run) {
	s.mu.Lock()
	s.last = &run
	s.mu.Unlock()
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/api/configs", s.handleList)
	r.Get("/api/template", s.handleTemplate)
	r.Get("/api/config/{name}", s.handleGet)
	r.Put("/api/config/{name}", s.handlePut)
	r.Post("/api/config/{name}/lock", s.handleLock)
	r.Delete("/api/config/{name}/lock", s.handleUnlock)
	r.Get("/api/status", s.handleStatus)

	s.r = r
}

// requestLogger logs each request with its chi request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": names})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configstore.Template())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, err := s.store.LoadDocument(name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handlePut accepts a bare pipeline schema as the request body, defaults
// and lints it, and saves it as the next document version.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var p config.Pipeline
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p.ApplyDefaults()

	if issues := config.Validate(p); config.HasErrors(issues) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"issues": issues})
		return
	}
	if err := s.store.Save(name, p); err != nil {
		writeStoreError(w, err)
		return
	}
	doc, err := s.store.LoadDocument(name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Lock(chi.URLParam(r, "name")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Unlock(chi.URLParam(r, "name")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	recent, err := s.hist.Recent(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"lastRun": last,
		"recent":  recent,
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, configstore.ErrLocked):
		writeError(w, http.StatusLocked, err)
	case errors.Is(err, configstore.ErrOutsideRoot), errors.Is(err, configstore.ErrNotJSON):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusNotFound, err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
