// Package web provides the HTTP server that exposes a data store over the
// PostgREST-compatible table API used by the rest package.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evcraddock/pool-route/internal/logging"
	"github.com/evcraddock/pool-route/internal/rest"
	"github.com/evcraddock/pool-route/internal/store"
)

// Config controls server behavior.
type Config struct {
	// APIKey is required on every /rest/v1/ request. Empty disables auth.
	APIKey string
}

// Server serves the table API over a store.
type Server struct {
	store    store.Store
	cfg      Config
	mux      *http.ServeMux
	handler  http.Handler
	registry *prometheus.Registry
	metrics  *metrics
}

// NewServer creates a server over st.
func NewServer(st store.Store, cfg Config) *Server {
	s := &Server{
		store:    st,
		cfg:      cfg,
		mux:      http.NewServeMux(),
		registry: prometheus.NewRegistry(),
	}
	s.metrics = newMetrics(s.registry)

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.mux.HandleFunc(rest.BasePath, s.handleTables)

	var h http.Handler = s.mux
	h = requireAPIKey(cfg.APIKey, newRateLimiter(), h)
	h = s.metrics.instrument(h)
	h = logging.RequestLogger(h)
	s.handler = h

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server and shuts it down when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting data store server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("shutting down data store server")
		return srv.Shutdown(shutdownCtx)
	}
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(store.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			writeJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
