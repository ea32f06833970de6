package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"mentorhub/backend/internal/audit"
)

type recordedEvent struct {
	userID, action, clientIP string
	ctxErr                   error
}

type recordingLogger struct {
	mu      sync.Mutex
	events  []recordedEvent
	release chan struct{}
}

func (r *recordingLogger) LogEvent(ctx context.Context, userID, action, _, _ string) {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userID: userID, action: action, clientIP: audit.ClientIPFromContext(ctx), ctxErr: ctx.Err()})
}

func (r *recordingLogger) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func TestAsyncAuditLogger_DeliversInOrder(t *testing.T) {
	next := &recordingLogger{}
	a := NewAsyncAuditLogger(next, 8, zerolog.Nop())

	for _, action := range []string{audit.ActionLoginSuccess, audit.ActionRefreshSuccess, audit.ActionLogout} {
		a.LogEvent(context.Background(), "u1", action, audit.ResourceSession, "")
	}
	require.NoError(t, a.Close(context.Background()))

	events := next.snapshot()
	require.Len(t, events, 3)
	require.Equal(t, audit.ActionLoginSuccess, events[0].action)
	require.Equal(t, audit.ActionLogout, events[2].action)
	require.Zero(t, a.Dropped())
}

func TestAsyncAuditLogger_OutlivesRequestContext(t *testing.T) {
	next := &recordingLogger{}
	a := NewAsyncAuditLogger(next, 8, zerolog.Nop())

	ctx, cancel := context.WithCancel(audit.WithClientIP(context.Background(), "203.0.113.7"))
	a.LogEvent(ctx, "u1", audit.ActionLoginFailure, audit.ResourceUser, "")
	cancel()
	require.NoError(t, a.Close(context.Background()))

	events := next.snapshot()
	require.Len(t, events, 1)
	require.Equal(t, "203.0.113.7", events[0].clientIP)
	require.NoError(t, events[0].ctxErr)
}

func TestAsyncAuditLogger_DropsWhenFull(t *testing.T) {
	next := &recordingLogger{release: make(chan struct{})}
	a := NewAsyncAuditLogger(next, 1, zerolog.Nop())

	// The worker blocks on the first event; the second fills the queue.
	a.LogEvent(context.Background(), "u1", "a1", "", "")
	require.Eventually(t, func() bool { return len(a.queue) == 0 }, time.Second, time.Millisecond)
	a.LogEvent(context.Background(), "u1", "a2", "", "")
	a.LogEvent(context.Background(), "u1", "a3", "", "")
	require.EqualValues(t, 1, a.Dropped())

	close(next.release)
	require.NoError(t, a.Close(context.Background()))
	require.Len(t, next.snapshot(), 2)
}

func TestAsyncAuditLogger_CloseIsIdempotent(t *testing.T) {
	a := NewAsyncAuditLogger(&recordingLogger{}, 0, zerolog.Nop())
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))

	a.LogEvent(context.Background(), "u1", "late", "", "")
	require.EqualValues(t, 1, a.Dropped())
}

func TestAsyncAuditLogger_CloseHonoursDeadline(t *testing.T) {
	next := &recordingLogger{release: make(chan struct{})}
	a := NewAsyncAuditLogger(next, 4, zerolog.Nop())
	a.LogEvent(context.Background(), "u1", "stuck", "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, a.Close(ctx), context.DeadlineExceeded)
	close(next.release)
}
