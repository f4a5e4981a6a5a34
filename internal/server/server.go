// Package server exposes the search engine over HTTP.
//
// The API is read-only: each request to /v1/search drives a fresh loader
// over the configured sources for a bounded number of pages and returns
// the merged results as JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/pkgscout/pkgscout/pkg/feed"
)

const (
	// maxPagesPerRequest bounds how many pages one HTTP request may load.
	maxPagesPerRequest = 10

	// searchTimeout bounds the total time spent loading pages per request.
	searchTimeout = 30 * time.Second

	shutdownGrace = 5 * time.Second
)

// SourceInfo describes one configured source for the /v1/sources endpoint.
type SourceInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Disabled bool   `json:"disabled"`
}

// Server serves the search API over a composite feed.
type Server struct {
	feed    feed.Feed
	sources []SourceInfo
	logger  *log.Logger
}

// New creates a server over f. sources is reported verbatim by /v1/sources.
func New(f feed.Feed, sources []SourceInfo, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{feed: f, sources: sources, logger: logger}
}

// Handler builds the chi router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/sources", s.handleSources)
	r.Get("/v1/search", s.handleSearch)

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": s.sources})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
