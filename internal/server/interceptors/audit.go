package interceptors

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mentorhub/backend/internal/audit"
)

// ClientIP stores the request's client IP in the context so audit events written deeper in the
// stack can record it.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(audit.WithClientIP(r.Context(), audit.ClientIP(r))))
	})
}

// Audit returns middleware that records one audit event per request after the handler runs.
// Action and resource come from the matched chi route; the metadata carries the target path
// parameter and the response status. Only requests with an authenticated caller are recorded.
func Audit(logger audit.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			userID, ok := GetUserID(r.Context())
			if !ok {
				return
			}
			rctx := chi.RouteContext(r.Context())
			if rctx == nil {
				return
			}
			ar := audit.ParseRoute(r.Method, rctx.RoutePattern())
			meta := "status=" + strconv.Itoa(statusOf(ww))
			if target := rctx.URLParam("id"); target != "" {
				meta = "target=" + target + " " + meta
			}
			logger.LogEvent(r.Context(), userID, ar.Action, ar.Resource, meta)
		})
	}
}
