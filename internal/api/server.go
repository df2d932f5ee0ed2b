// Package api serves the dataset to the dashboard frontend as JSON. It
// is a read-only consumer of the store: every handler works from a
// snapshot and nothing here mutates ingestion state.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blongworth/locness-dash/internal/dataset"
	"github.com/blongworth/locness-dash/internal/log"
)

// Server is the HTTP API server.
type Server struct {
	httpServer      *http.Server
	store           *dataset.Store
	defaultResample time.Duration
}

// NewServer creates the API server. defaultResample is used when a data
// request does not specify its own resample interval.
func NewServer(addr string, store *dataset.Store, defaultResample time.Duration) *Server {
	server := &Server{
		store:           store,
		defaultResample: defaultResample,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /api/fields", server.getFieldsHandler)
	mux.HandleFunc("GET /api/data", server.getDataHandler)
	mux.HandleFunc("GET /api/data/latest", server.getLatestHandler)
	mux.HandleFunc("GET /api/data/new", server.getNewDataHandler)
	mux.HandleFunc("GET /api/status", server.getStatusHandler)

	server.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return server
}

// Start starts the API server and blocks until it shuts down.
func (s *Server) Start() error {
	log.Logger.Infof("Starting API server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop(ctx context.Context) error {
	log.Logger.Info("Shutting down API server")

	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status": "ok", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}
