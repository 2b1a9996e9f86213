package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"admission/internal/platform/metrics"
)

// Latency observes handler duration keyed by the matched chi route pattern.
func Latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			m.ObserveLatency(route, time.Since(start).Seconds())
		})
	}
}
