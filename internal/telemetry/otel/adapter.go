package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"mentorhub/backend/internal/audit"
)

const auditScope = "mentorhub.audit"

// recordEmitter is the part of otellog.Logger used here.
type recordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// AuditLogger forwards every audit event to next and mirrors it as an OTel log record.
type AuditLogger struct {
	next    audit.AuditLogger
	emitter recordEmitter
	now     func() time.Time
}

// NewAuditLogger returns next unchanged when provider is nil.
func NewAuditLogger(provider *sdklog.LoggerProvider, next audit.AuditLogger) audit.AuditLogger {
	if provider == nil {
		return next
	}
	return newAuditLogger(provider.Logger(auditScope), next)
}

func newAuditLogger(emitter recordEmitter, next audit.AuditLogger) *AuditLogger {
	if next == nil {
		next = audit.Nop{}
	}
	return &AuditLogger{next: next, emitter: emitter, now: time.Now}
}

// LogEvent implements audit.AuditLogger.
func (a *AuditLogger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	a.next.LogEvent(ctx, userID, action, resource, metadata)

	var rec otellog.Record
	rec.SetTimestamp(a.now().UTC())
	rec.SetEventName("audit." + action)
	rec.SetSeverity(severityOf(action))
	rec.SetBody(otellog.StringValue(action + " " + resource))
	rec.AddAttributes(
		otellog.String("action", action),
		otellog.String("resource", resource),
		otellog.String("client_ip", audit.ClientIPFromContext(ctx)),
	)
	if userID != "" {
		rec.AddAttributes(otellog.String("user_id", userID))
	}
	if metadata != "" {
		rec.AddAttributes(otellog.String("metadata", metadata))
	}
	a.emitter.Emit(ctx, rec)
}

func severityOf(action string) otellog.Severity {
	switch action {
	case audit.ActionLoginFailure, audit.ActionRefreshFailure:
		return otellog.SeverityWarn
	default:
		return otellog.SeverityInfo
	}
}
