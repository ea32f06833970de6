// Package handler exposes the authentication flows over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"mentorhub/backend/internal/identity/service"
	"mentorhub/backend/internal/platform/httpx"
	"mentorhub/backend/internal/server/interceptors"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "RefreshToken"

// AuthService is the subset of service.AuthService the HTTP handlers call.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Profile, error)
	Login(ctx context.Context, username, password string) (*service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*service.Profile, error)
}

// CookieConfig controls the attributes of the refresh cookie.
type CookieConfig struct {
	// Secure should only be false for local plain-HTTP development.
	Secure bool
	Domain string
}

// AuthHandler serves register, login, token refresh, logout and me.
type AuthHandler struct {
	service AuthService
	cookie  CookieConfig
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(svc AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie}
}

type registerRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// MeResponse is the public view of a user.
type MeResponse struct {
	ID       string   `json:"id"`
	UserName string   `json:"userName"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Surname  string   `json:"surname"`
	Roles    []string `json:"roles"`
}

// NewMeResponse converts a profile into its wire form.
func NewMeResponse(p *service.Profile) MeResponse {
	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}
	return MeResponse{ID: p.ID, UserName: p.Username, Email: p.Email, Name: p.Name, Surname: p.Surname, Roles: roles}
}

// Register creates an account with the default role.
// POST /user/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidInput, "invalid user data")
		return
	}
	profile, err := h.service.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, NewMeResponse(profile))
}

// Login verifies credentials, opens a session and sets the refresh cookie.
// POST /user/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidInput, "invalid user data")
		return
	}
	pair, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	h.setRefreshCookie(w, pair)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, ExpiresAt: pair.AccessExpiresAt})
}

// AccessToken rotates the refresh cookie and returns a new access token.
// POST /user/accessToken
//
// A failed refresh leaves the cookie alone: the caller may be the losing tab of a refresh race
// and clearing the cookie would discard the winner's rotated token.
func (h *AuthHandler) AccessToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, "refresh token not found")
		return
	}
	pair, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	h.setRefreshCookie(w, pair)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, ExpiresAt: pair.AccessExpiresAt})
}

// Logout revokes the session named by the refresh cookie and clears the cookie in every outcome.
// POST /user/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var err error
	if cookie, cerr := r.Cookie(RefreshCookieName); cerr == nil && cookie.Value != "" {
		err = h.service.Logout(r.Context(), cookie.Value)
	}
	h.clearRefreshCookie(w)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Me returns the caller's profile.
// GET /user/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := interceptors.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, "authentication required")
		return
	}
	profile, err := h.service.Me(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, NewMeResponse(profile))
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, pair *service.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.sameSite(),
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.sameSite(),
	})
}

// sameSite returns None for cross-site use. Browsers drop SameSite=None cookies without Secure,
// so insecure development cookies fall back to Lax.
func (h *AuthHandler) sameSite() http.SameSite {
	if h.cookie.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
