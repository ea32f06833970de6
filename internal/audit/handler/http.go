// Package handler exposes the audit trail over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	auditrepo "mentorhub/backend/internal/audit/repository"
	"mentorhub/backend/internal/platform/httpx"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Handler lists audit entries.
type Handler struct {
	repo auditrepo.Repository
}

// NewHandler returns an audit Handler.
func NewHandler(repo auditrepo.Repository) *Handler {
	return &Handler{repo: repo}
}

// EntryResponse is the wire form of an audit entry.
type EntryResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListByUser returns the newest audit entries for a user. ?limit= caps the page (default 50, max 100).
// GET /admin/users/{id}/audit
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidInput, "limit must be a positive integer")
			return
		}
		limit = min(n, maxPageSize)
	}
	list, err := h.repo.ListByUser(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list audit logs")
		httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodeServiceFailure, "failed to list audit logs")
		return
	}
	out := make([]EntryResponse, len(list))
	for i, e := range list {
		out[i] = EntryResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    e.Action,
			Resource:  e.Resource,
			IP:        e.IP,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
