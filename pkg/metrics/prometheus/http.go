package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/vaultfs/pkg/api"
	"github.com/marmos91/vaultfs/pkg/metrics"
)

// httpMetrics is the Prometheus implementation of api.HTTPMetrics.
type httpMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates a new Prometheus-backed api.HTTPMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewHTTPMetrics() api.HTTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &httpMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultfs_http_requests_total",
				Help: "Total number of API requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "vaultfs_http_request_duration_seconds",
				Help: "Duration of API requests in seconds",
				Buckets: []float64{
					.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
				},
			},
			[]string{"method", "route"},
		),
	}
}

func (m *httpMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
