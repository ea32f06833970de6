// Package server assembles the HTTP API: middleware chain, route table and role gates.
package server

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mentorhub/backend/internal/audit"
	audithandler "mentorhub/backend/internal/audit/handler"
	auditrepo "mentorhub/backend/internal/audit/repository"
	healthhandler "mentorhub/backend/internal/health/handler"
	identityhandler "mentorhub/backend/internal/identity/handler"
	identityservice "mentorhub/backend/internal/identity/service"
	"mentorhub/backend/internal/logger"
	"mentorhub/backend/internal/metrics"
	"mentorhub/backend/internal/platform/httpx"
	"mentorhub/backend/internal/platform/rbac"
	"mentorhub/backend/internal/server/interceptors"
	sessionhandler "mentorhub/backend/internal/session/handler"
	userhandler "mentorhub/backend/internal/user/handler"
)

// Deps holds the dependencies of NewRouter.
type Deps struct {
	Auth   *identityservice.AuthService
	Tokens interceptors.AccessParser
	Gate   *rbac.Gate

	// AuditRepo backs the admin audit listing.
	AuditRepo auditrepo.Repository
	// AuditLogger records admin operations. Defaults to audit.Nop.
	AuditLogger audit.AuditLogger

	// Metrics records request latency. Defaults to metrics.Nop.
	Metrics metrics.Recorder
	// MetricsHandler serves /metrics. If nil, the route is not mounted.
	MetricsHandler http.Handler
	// Health serves /healthz and /readyz. If nil, an empty checker is used.
	Health *healthhandler.Checker
	// LoginLimiter throttles POST /user/login per client IP. If nil, login is not throttled.
	LoginLimiter *interceptors.RateLimiter

	// TrustedProxies are the peers allowed to set the client IP through forwarding headers.
	// The client IP keys login throttling and audit entries.
	TrustedProxies []netip.Prefix

	CORSOrigins []string
	Cookie      identityhandler.CookieConfig
	Logger      zerolog.Logger
}

// NewRouter returns the HTTP handler for the whole API.
//
// Middleware order:
//
//	otelhttp → RequestID → TrustedRealIP → Requests (logger) → Recoverer → Metrics → ClientIP → CORS
//
// Authenticated groups add Authenticate, and admin routes add Audit and a role gate per route.
func NewRouter(deps Deps) http.Handler {
	if deps.AuditLogger == nil {
		deps.AuditLogger = audit.Nop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Health == nil {
		deps.Health = healthhandler.NewChecker()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(interceptors.TrustedRealIP(deps.TrustedProxies))
	r.Use(logger.Requests(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(interceptors.Metrics(deps.Metrics))
	r.Use(interceptors.ClientIP)
	r.Use(newCORS(deps.CORSOrigins).Handler)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, httpx.CodeMethodNotAllowed, "method not allowed")
	})

	authHandler := identityhandler.NewAuthHandler(deps.Auth, deps.Cookie)
	sessionHandler := sessionhandler.NewHandler(deps.Auth)
	userHandler := userhandler.NewHandler(deps.Auth)
	auditHandler := audithandler.NewHandler(deps.AuditRepo)
	authenticate := interceptors.Authenticate(deps.Tokens)
	gate := deps.Gate

	r.Get("/healthz", deps.Health.Liveness)
	r.Get("/readyz", deps.Health.Readiness)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/user", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		if deps.LoginLimiter != nil {
			r.With(deps.LoginLimiter.Middleware).Post("/login", authHandler.Login)
		} else {
			r.Post("/login", authHandler.Login)
		}
		r.Post("/accessToken", authHandler.AccessToken)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", authHandler.Me)
			r.With(gate.Require(rbac.OpSessionListOwn)).Get("/sessions", sessionHandler.ListOwn)
			r.With(gate.Require(rbac.OpSessionRevokeOwn)).Delete("/sessions/{id}", sessionHandler.RevokeOwn)
		})
	})

	r.Route("/admin/users/{id}", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(interceptors.Audit(deps.AuditLogger))
		r.With(gate.Require(rbac.OpUserRead)).Get("/", userHandler.GetUser)
		r.With(gate.Require(rbac.OpUserAssignRole)).Put("/roles/{role}", userHandler.AssignRole)
		r.With(gate.Require(rbac.OpSessionRevokeAll)).Delete("/sessions", sessionHandler.RevokeAllForUser)
		r.With(gate.Require(rbac.OpAuditRead)).Get("/audit", auditHandler.ListByUser)
	})

	return otelhttp.NewHandler(r, "mentorhub.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// newCORS allows credentialed requests from the configured origins so the refresh cookie
// flows cross-site.
func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
