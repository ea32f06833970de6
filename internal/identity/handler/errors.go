package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"mentorhub/backend/internal/identity/service"
	"mentorhub/backend/internal/platform/httpx"
)

// WriteServiceError maps an AuthService error to an HTTP status by its category and writes the
// uniform error body. Service failures are logged; their detail is not returned to the client.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusServiceUnavailable {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		msg = "service temporarily unavailable"
	}
	httpx.WriteError(w, status, code, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, httpx.CodeInvalidInput
	case errors.Is(err, service.ErrAuthenticationFailed):
		return http.StatusUnauthorized, httpx.CodeUnauthenticated
	case errors.Is(err, service.ErrUnprocessable):
		return http.StatusUnprocessableEntity, httpx.CodeUnprocessable
	default:
		return http.StatusServiceUnavailable, httpx.CodeServiceFailure
	}
}
