package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/paceline/paceline/pkg/log"
)

// Server exposes the worker's operational endpoints over HTTP:
// /metrics (Prometheus), /healthz, and /status
type Server struct {
	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates the ops endpoint server
func NewServer() *Server {
	mux := http.NewServeMux()
	s := &Server{mux: mux}

	// Register endpoints
	mux.HandleFunc("/healthz", HealthzHandler())
	mux.HandleFunc("/status", StatusHandler())
	mux.Handle("/metrics", Handler())

	return s
}

// Start serves the ops endpoints on addr until Stop is called. It blocks;
// callers run it on its own goroutine.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Logger.Info().
		Str("component", "metrics").
		Str("addr", addr).
		Msg("Ops endpoint listening")

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the ops endpoint down, letting in-flight scrapes finish
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (s *Server) GetHandler() http.Handler {
	return s.mux
}
