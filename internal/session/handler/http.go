// Package handler exposes session listing and revocation over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identityhandler "mentorhub/backend/internal/identity/handler"
	"mentorhub/backend/internal/platform/httpx"
	"mentorhub/backend/internal/server/interceptors"
	"mentorhub/backend/internal/session/domain"
)

// SessionService is the subset of the auth service used for session management.
type SessionService interface {
	ListSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	RevokeAllSessions(ctx context.Context, userID string) (int, error)
}

// Handler serves the caller's own sessions and the administrative revoke-all.
type Handler struct {
	service SessionService
}

// NewHandler returns a session Handler.
func NewHandler(svc SessionService) *Handler {
	return &Handler{service: svc}
}

// SessionResponse is the wire form of a session. Token hashes are never exposed.
type SessionResponse struct {
	ID            string     `json:"id"`
	IssuedAt      time.Time  `json:"issuedAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	LastRotatedAt *time.Time `json:"lastRotatedAt,omitempty"`
}

type revokedResponse struct {
	Revoked int `json:"revoked"`
}

// ListOwn returns the caller's active sessions, newest first.
// GET /user/sessions
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := interceptors.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, "authentication required")
		return
	}
	list, err := h.service.ListSessions(r.Context(), userID)
	if err != nil {
		identityhandler.WriteServiceError(w, r, err)
		return
	}
	out := make([]SessionResponse, len(list))
	for i, s := range list {
		out[i] = SessionResponse{ID: s.ID, IssuedAt: s.IssuedAt, ExpiresAt: s.ExpiresAt, LastRotatedAt: s.LastRotatedAt}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// RevokeOwn revokes one of the caller's sessions.
// DELETE /user/sessions/{id}
func (h *Handler) RevokeOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := interceptors.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, "authentication required")
		return
	}
	if err := h.service.RevokeSession(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		identityhandler.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeAllForUser revokes every open session of the target user.
// DELETE /admin/users/{id}/sessions
func (h *Handler) RevokeAllForUser(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.RevokeAllSessions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		identityhandler.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, revokedResponse{Revoked: n})
}
