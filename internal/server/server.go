// Package server exposes the latest snapshot over a small read-only
// HTTP API for the dashboard frontend. It serves the already-written
// latest.json; it never triggers a snapshot run.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-health/internal/snapshot"
)

// Server serves snapshot data from the output directory.
type Server struct {
	dataDir string
	port    int
}

// New creates a snapshot API server reading from dataDir.
func New(dataDir string, port int) *Server {
	return &Server{dataDir: dataDir, port: port}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/latest", s.handleLatest)
	r.Get("/api/summary", s.handleSummary)
	return r
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	zap.L().Info("snapshot api listening", zap.Int("port", s.port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server: shutdown")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	}
}

func (s *Server) latestPath() string {
	return filepath.Join(s.dataDir, "latest.json")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	path := s.latestPath()
	if _, err := os.Stat(path); err != nil {
		http.Error(w, `{"error":"no snapshot available"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	content, err := os.ReadFile(s.latestPath())
	if err != nil {
		http.Error(w, `{"error":"no snapshot available"}`, http.StatusNotFound)
		return
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		zap.L().Error("server: corrupt latest.json", zap.Error(err))
		http.Error(w, `{"error":"snapshot unreadable"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	resp := struct {
		Meta    snapshot.Meta    `json:"meta"`
		Summary snapshot.Summary `json:"summary"`
	}{Meta: snap.Meta, Summary: snap.Summary}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zap.L().Error("server: write summary", zap.Error(err))
	}
}
