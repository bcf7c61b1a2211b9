package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/pbaille/chebi/internal/domain"
	"github.com/pbaille/chebi/internal/logger"
	"github.com/pbaille/chebi/internal/propstore"
	"github.com/pbaille/chebi/internal/store"
)

// Server exposes the local stores and the sync history over HTTP, read-only
type Server struct {
	history *store.Store
	props   *propstore.Store
	version *propstore.VersionFile
	addr    string
}

// New creates a new API server
func New(history *store.Store, props *propstore.Store, version *propstore.VersionFile, addr string) *Server {
	return &Server{history: history, props: props, version: version, addr: addr}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Sync state
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("GET /runs", s.listRuns)
	mux.HandleFunc("GET /runs/{id}", s.getRun)

	// Entities
	mux.HandleFunc("GET /entities/{id}", s.getEntity)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the response for GET /status
type StatusResponse struct {
	LocalVersion domain.VersionTag `json:"local_version"`
	LastSynced   *domain.SyncRun   `json:"last_synced,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	local, err := s.version.Read()
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := StatusResponse{LocalVersion: local}
	last, err := s.history.LastSynced()
	switch {
	case err == nil:
		resp.LastSynced = last
	case !errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.history.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []domain.SyncRun{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"limit": limit,
	})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.history.GetRun(r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// EntityResponse is the response for GET /entities/{id}
type EntityResponse struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	Superterms []string          `json:"superterms,omitempty"`
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	id := domain.EntityID(r.PathValue("id")).LocalID()

	resp := EntityResponse{ID: id, Properties: make(map[string]string)}
	for _, kind := range domain.AllKinds {
		v, ok, err := s.props.Lookup(kind, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			continue
		}
		if kind == domain.Superterms {
			resp.Superterms = propstore.DecodeList(v)
			continue
		}
		resp.Properties[string(kind)] = v
	}

	if len(resp.Properties) == 0 && resp.Superterms == nil {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
