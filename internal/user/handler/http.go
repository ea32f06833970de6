// Package handler exposes user administration over HTTP.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	identityhandler "mentorhub/backend/internal/identity/handler"
	"mentorhub/backend/internal/identity/service"
	"mentorhub/backend/internal/platform/httpx"
)

// UserService is the subset of the auth service used for user administration.
type UserService interface {
	Me(ctx context.Context, userID string) (*service.Profile, error)
	AssignRole(ctx context.Context, userID, role string) error
}

// Handler serves administrative user lookups and role grants.
type Handler struct {
	service UserService
}

// NewHandler returns a user Handler.
func NewHandler(svc UserService) *Handler {
	return &Handler{service: svc}
}

// GetUser returns a user's profile and roles.
// GET /admin/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidInput, "user id required")
		return
	}
	profile, err := h.service.Me(r.Context(), userID)
	if err != nil {
		identityhandler.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identityhandler.NewMeResponse(profile))
}

// AssignRole grants a role. Granting a role the user already holds succeeds.
// PUT /admin/users/{id}/roles/{role}
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	role := strings.TrimSpace(chi.URLParam(r, "role"))
	if userID == "" || role == "" {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidInput, "user id and role required")
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, role); err != nil {
		identityhandler.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
