// Package telemetry delivers audit events off the request path.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mentorhub/backend/internal/audit"
)

// emitTimeout bounds the delivery of a single event.
const emitTimeout = 5 * time.Second

// DefaultQueueSize is the number of events buffered before LogEvent starts dropping.
const DefaultQueueSize = 1024

type event struct {
	ctx      context.Context
	userID   string
	action   string
	resource string
	metadata string
}

// AsyncAuditLogger queues audit events and hands them to next from a single worker goroutine.
// LogEvent never blocks: when the queue is full the event is dropped and counted.
type AsyncAuditLogger struct {
	next  audit.AuditLogger
	log   zerolog.Logger
	queue chan event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	dropped atomic.Int64
}

// NewAsyncAuditLogger starts the worker. A size <= 0 uses DefaultQueueSize.
func NewAsyncAuditLogger(next audit.AuditLogger, size int, log zerolog.Logger) *AsyncAuditLogger {
	if size <= 0 {
		size = DefaultQueueSize
	}
	a := &AsyncAuditLogger{
		next:  next,
		log:   log,
		queue: make(chan event, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// LogEvent implements audit.AuditLogger. Context values (client IP, request logger) are kept; cancellation is not.
func (a *AsyncAuditLogger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.drop(action, "closed")
		return
	}
	select {
	case a.queue <- event{ctx: context.WithoutCancel(ctx), userID: userID, action: action, resource: resource, metadata: metadata}:
	default:
		a.drop(action, "queue full")
	}
}

// Dropped returns how many events were discarded.
func (a *AsyncAuditLogger) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (a *AsyncAuditLogger) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *AsyncAuditLogger) run() {
	defer close(a.done)
	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(ev.ctx, emitTimeout)
		a.next.LogEvent(ctx, ev.userID, ev.action, ev.resource, ev.metadata)
		cancel()
	}
}

func (a *AsyncAuditLogger) drop(action, reason string) {
	n := a.dropped.Add(1)
	a.log.Warn().Str("action", action).Str("reason", reason).Int64("dropped_total", n).Msg("audit event dropped")
}
