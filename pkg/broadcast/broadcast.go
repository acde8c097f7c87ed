// Package broadcast pushes session snapshots to a display client, suppressing
// snapshots identical to the last one delivered.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/courseflow/internal/logging"
	"github.com/aretw0/courseflow/pkg/domain"
)

// Sink delivers a snapshot to whatever is listening for a session.
type Sink interface {
	Send(ctx context.Context, sessionID string, snapshot domain.StateSnapshot) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, sessionID string, snapshot domain.StateSnapshot) error

func (f SinkFunc) Send(ctx context.Context, sessionID string, snapshot domain.StateSnapshot) error {
	return f(ctx, sessionID, snapshot)
}

// Broadcaster tracks the last snapshot delivered for one session.
type Broadcaster struct {
	sessionID string
	sink      Sink
	logger    *slog.Logger
	hooks     domain.LifecycleHooks

	mu   sync.Mutex
	last *domain.StateSnapshot
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		b.logger = logger
	}
}

// WithLifecycleHooks registers the OnBroadcast hook.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Broadcaster) {
		b.hooks = hooks
	}
}

// New creates a Broadcaster for sessionID.
func New(sessionID string, sink Sink, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		sessionID: sessionID,
		sink:      sink,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Send delivers the snapshot of state unless it equals the last delivered one.
// It reports whether a message was sent. A failed send keeps the previous baseline,
// so the same snapshot is retried on the next call.
func (b *Broadcaster) Send(ctx context.Context, state *domain.SessionState) (bool, error) {
	snapshot := state.Snapshot()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.last != nil && b.last.Equal(snapshot) {
		b.report(ctx, domain.OutcomeSuppressed)
		return false, nil
	}

	if err := b.sink.Send(ctx, b.sessionID, snapshot); err != nil {
		b.report(ctx, domain.OutcomeFailed)
		return false, err
	}

	b.last = &snapshot
	b.report(ctx, domain.OutcomeSent)
	b.logger.Debug("state update sent",
		"session_id", b.sessionID,
		"node", snapshot.CurrentNode,
		"progress", snapshot.Progress,
	)
	return true, nil
}

// SendStateUpdate is Send with failures logged rather than returned.
// It satisfies flow.Notifier.
func (b *Broadcaster) SendStateUpdate(ctx context.Context, state *domain.SessionState) {
	if _, err := b.Send(ctx, state); err != nil {
		b.logger.Warn("state update failed", "session_id", b.sessionID, "err", err)
	}
}

// Reset forgets the baseline so the next Send always delivers.
func (b *Broadcaster) Reset() {
	b.mu.Lock()
	b.last = nil
	b.mu.Unlock()
}

// Last returns the last delivered snapshot, if any.
func (b *Broadcaster) Last() (domain.StateSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return domain.StateSnapshot{}, false
	}
	return *b.last, true
}

func (b *Broadcaster) report(ctx context.Context, outcome domain.TransitionOutcome) {
	if b.hooks.OnBroadcast == nil {
		return
	}
	b.hooks.OnBroadcast(ctx, &domain.BroadcastEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventBroadcast,
			SessionID: b.sessionID,
		},
		Outcome: outcome,
	})
}
