package interceptors

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mentorhub/backend/internal/metrics"
)

// Metrics returns middleware that records request latency by chi route pattern and status code.
// Unmatched routes are recorded as "unmatched" to keep label cardinality bounded.
func Metrics(rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = r.Method + " " + p
				}
			}
			rec.RecordHTTPRequest(route, statusOf(ww), time.Since(start))
		})
	}
}

// statusOf returns the written status, treating a handler that never wrote as 200.
func statusOf(ww middleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
