package audit

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mentorhub/backend/internal/audit/domain"
	auditrepo "mentorhub/backend/internal/audit/repository"
)

// Actions recorded by the auth flows.
const (
	ActionRegister        = "register"
	ActionLoginSuccess    = "login_success"
	ActionLoginFailure    = "login_failure"
	ActionRefreshSuccess  = "refresh_success"
	ActionRefreshFailure  = "refresh_failure"
	ActionLogout          = "logout"
	ActionSessionRevoked  = "session_revoked"
	ActionSessionsRevoked = "sessions_revoked"
	ActionRoleAssigned    = "role_assigned"
)

// Resources.
const (
	ResourceUser    = "user"
	ResourceSession = "session"
)

// AuditLogger writes a single audit event with explicit action/resource. Used by auth and session code paths.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, string, string, string) {}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
	log  zerolog.Logger
	now  func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo. The client IP is taken from the context (see WithClientIP).
func NewLogger(repo auditrepo.Repository, log zerolog.Logger) *Logger {
	return &Logger{repo: repo, log: log, now: time.Now}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ClientIPFromContext(ctx),
		Metadata:  metadata,
		CreatedAt: l.now().UTC(),
	}
	// The event outlives a cancelled request.
	if err := l.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		l.log.Error().Err(err).Str("action", action).Str("resource", resource).Msg("audit: failed to log event")
	}
}

type clientIPKey struct{}

// WithClientIP stores the caller's IP for later audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext returns the IP stored by WithClientIP, or "unknown".
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// ClientIP returns the host part of r.RemoteAddr. Forwarding headers are not read here; the
// server rewrites RemoteAddr from them only for requests arriving through a trusted proxy.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
