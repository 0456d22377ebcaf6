package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPRecorder is implemented by metrics.Collector.
type HTTPRecorder interface {
	RequestStarted()
	RequestDone()
	ObserveRequest(method, path string, status int, d time.Duration)
}

// Metrics records HTTP RED metrics labelled by chi route pattern.
func Metrics(rec HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec.RequestStarted()
			defer rec.RequestDone()

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			// unmatched paths share one label to keep cardinality bounded
			path := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			rec.ObserveRequest(r.Method, path, sw.Status(), time.Since(start))
		})
	}
}
