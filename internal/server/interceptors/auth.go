package interceptors

import (
	"errors"
	"net/http"
	"strings"

	"mentorhub/backend/internal/platform/httpx"
	"mentorhub/backend/internal/security"
)

const bearerPrefix = "bearer "

// AccessParser verifies access tokens.
type AccessParser interface {
	ParseAccess(token string) (*security.AccessClaims, error)
}

// Authenticate returns middleware that validates the Bearer access token and sets the caller's
// identity in the request context. Requests without a valid token are rejected with 401.
// Access tokens are self-contained: no session lookup happens here.
func Authenticate(tokens AccessParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				unauthorized(w, "missing or invalid authorization")
				return
			}
			claims, err := tokens.ParseAccess(token)
			if err != nil {
				msg := "missing or invalid authorization"
				if errors.Is(err, security.ErrTokenExpired) {
					msg = "access token expired"
				}
				unauthorized(w, msg)
				return
			}
			ctx := WithIdentity(r.Context(), Identity{
				UserID:   claims.Subject,
				Username: claims.Username,
				Roles:    claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="mentorhub"`)
	httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, msg)
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
