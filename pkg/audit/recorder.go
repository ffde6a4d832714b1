// Package audit provides fire-and-forget recording of security events.
package audit

import (
	"log/slog"
	"sync"
)

// Event names recorded by the auth core
const (
	LoginSucceeded       = "login.succeeded"
	LoginFailed          = "login.failed"
	LoginLockedOut       = "login.locked_out"
	LoginAttemptInactive = "login.attempt_inactive"
	LoginAttemptLocked   = "login.attempt_locked"
	TokenRefreshed       = "token.refreshed"
	ResetRequested       = "password.reset_requested"
	PasswordChanged      = "password.changed"
	UserCreated          = "user.created"
	UserUnlocked         = "user.unlocked"
	UserActiveChanged    = "user.active_changed"
	RefreshTokensRevoked = "user.refresh_tokens_revoked"
)

// Recorder accepts a named event plus payload for audit logging.
// Implementations must never block the caller and have no failure channel.
type Recorder interface {
	Record(event string, payload map[string]any)
}

// SlogRecorder writes audit events to slog through a bounded queue drained
// by a dedicated goroutine, so a slow sink cannot stall a login request.
type SlogRecorder struct {
	queue chan entry
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

type entry struct {
	event   string
	payload map[string]any
}

// NewSlogRecorder creates a recorder with the given queue capacity and
// starts its drain goroutine
func NewSlogRecorder(capacity int) *SlogRecorder {
	if capacity <= 0 {
		capacity = 256
	}
	r := &SlogRecorder{
		queue: make(chan entry, capacity),
		done:  make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues an event. When the queue is full the event is dropped and
// the drop itself is logged. Recording after Close drops the event instead
// of sending on the closed queue.
func (r *SlogRecorder) Record(event string, payload map[string]any) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		slog.Warn("Audit recorder closed, dropping event", "event", event)
		return
	}
	select {
	case r.queue <- entry{event: event, payload: payload}:
	default:
		slog.Warn("Audit queue full, dropping event", "event", event)
	}
}

// Close stops the drain goroutine after flushing queued events. Close is
// idempotent.
func (r *SlogRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *SlogRecorder) drain() {
	defer close(r.done)
	for e := range r.queue {
		attrs := make([]any, 0, len(e.payload)*2+2)
		attrs = append(attrs, "event", e.event)
		for k, v := range e.payload {
			attrs = append(attrs, k, v)
		}
		slog.Info("audit", attrs...)
	}
}

// NoopRecorder discards all events
type NoopRecorder struct{}

// Record discards the event
func (NoopRecorder) Record(event string, payload map[string]any) {}
