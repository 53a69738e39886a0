package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HTTPMetrics receives one observation per completed API request. The
// route is the matched chi pattern (e.g. "/api/v1/assets/{id}") so label
// cardinality stays bounded. A nil HTTPMetrics disables instrumentation.
type HTTPMetrics interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
}

// httpMetricsMiddleware observes every request on m. The route pattern is
// read after the handler ran because chi resolves it during routing.
func httpMetricsMiddleware(m HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}
