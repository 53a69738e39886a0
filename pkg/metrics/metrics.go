// Package metrics manages the Prometheus registry and the metrics HTTP
// endpoint.
//
// Metrics are opt-in: consumers hold small interfaces defined next to
// them (pkg/catalog.Metrics, pkg/api.HTTPMetrics) and treat nil as
// "disabled" for zero overhead. The Prometheus implementations live in
// pkg/metrics/prometheus and are constructed only when InitRegistry has
// been called.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/vaultfs/internal/logger"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide metrics registry with the
// standard Go and process collectors. Calling it twice is a no-op.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the metrics registry, or nil when disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns the scrape handler for the registry.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Server serves /metrics on its own listener, separate from the API.
type Server struct {
	srv *http.Server
}

// NewServer builds a metrics server bound to addr (e.g. ":9090").
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Info("metrics server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
