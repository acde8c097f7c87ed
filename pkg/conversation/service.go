// Package conversation drives sessions through the dialogue flow. It owns the
// per-session broadcasters and commits every transition to the state store before
// the display hears about it.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/courseflow/internal/logging"
	"github.com/aretw0/courseflow/pkg/broadcast"
	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/flow"
	"github.com/aretw0/courseflow/pkg/session"
)

// Service is the entry point used by every transport.
type Service struct {
	flow     *flow.Flow
	sessions *session.Manager
	sink     broadcast.Sink
	logger   *slog.Logger
	hooks    domain.LifecycleHooks

	onSessionsChanged func(active int)

	mu           sync.Mutex
	broadcasters map[string]*broadcast.Broadcaster
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLifecycleHooks forwards broadcast events to hooks.
// Flow events are configured on the Flow itself.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithSessionGauge reports the number of started sessions after every change.
func WithSessionGauge(fn func(active int)) Option {
	return func(s *Service) {
		s.onSessionsChanged = fn
	}
}

// New creates a Service. sink receives every state broadcast.
func New(f *flow.Flow, sessions *session.Manager, sink broadcast.Sink, opts ...Option) *Service {
	s := &Service{
		flow:         f,
		sessions:     sessions,
		sink:         sink,
		logger:       logging.NewNop(),
		broadcasters: make(map[string]*broadcast.Broadcaster),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Flow returns the dialogue flow.
func (s *Service) Flow() *flow.Flow { return s.flow }

func (s *Service) broadcaster(sessionID string) *broadcast.Broadcaster {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.broadcasters[sessionID]
	if !ok {
		b = broadcast.New(sessionID, s.sink,
			broadcast.WithLogger(s.logger),
			broadcast.WithLifecycleHooks(s.hooks),
		)
		s.broadcasters[sessionID] = b
		s.sessionsChanged(len(s.broadcasters))
	}
	return b
}

func (s *Service) forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.broadcasters[sessionID]; ok {
		delete(s.broadcasters, sessionID)
		s.sessionsChanged(len(s.broadcasters))
	}
}

func (s *Service) sessionsChanged(n int) {
	if s.onSessionsChanged != nil {
		s.onSessionsChanged(n)
	}
}

// ActiveSessions returns the number of sessions started in this process.
func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.broadcasters)
}

// Start resets sessionID to an empty state at the initial node and returns that node.
// Starting an existing session discards its progress.
func (s *Service) Start(ctx context.Context, sessionID string) (domain.DialogueNode, error) {
	if sessionID == "" {
		return domain.DialogueNode{}, errors.New("session id is required")
	}

	state, err := s.sessions.Reset(ctx, sessionID, s.flow.NewSessionState, func(context.Context, *domain.SessionState) {
		s.broadcaster(sessionID).Reset()
	})
	if err != nil {
		return domain.DialogueNode{}, err
	}
	node := s.flow.Activate(ctx, state)

	s.logger.Info("session started", "session_id", sessionID, "topics", s.flow.Catalog().Len())
	return node, nil
}

// Resume returns the active node of sessionID, creating the session when it does
// not exist. Unlike Start, stored progress is kept.
func (s *Service) Resume(ctx context.Context, sessionID string) (domain.DialogueNode, bool, error) {
	if sessionID == "" {
		return domain.DialogueNode{}, false, errors.New("session id is required")
	}

	created := false
	state, err := s.sessions.LoadOrStart(ctx, sessionID, func(id string) *domain.SessionState {
		created = true
		return s.flow.NewSessionState(id)
	})
	if err != nil {
		return domain.DialogueNode{}, false, err
	}
	s.broadcaster(sessionID)
	if created {
		s.logger.Info("session started", "session_id", sessionID, "topics", s.flow.Catalog().Len())
	}
	return s.flow.Activate(ctx, state), !created, nil
}

// Invoke dispatches a function call for sessionID and returns the node to activate.
//
// The transition is saved before any state update reaches the display. A rejected
// call returns the still-active node together with the error, so the caller can
// re-prompt. Calls on a terminated session return the exit node and
// domain.ErrSessionTerminated.
func (s *Service) Invoke(ctx context.Context, sessionID string, call domain.FunctionCall) (domain.DialogueNode, error) {
	var (
		node     domain.DialogueNode
		dispatch error
		pending  pendingNotifier
	)
	apply := func(ctx context.Context, state *domain.SessionState) (bool, error) {
		res, err := s.flow.Dispatch(ctx, state, call, &pending)
		node = res.Node
		if err != nil {
			dispatch = err
			return false, nil
		}
		return true, nil
	}
	committed := func(ctx context.Context, state *domain.SessionState) {
		if pending.requested {
			s.broadcaster(sessionID).SendStateUpdate(ctx, state)
		}
	}
	if err := s.sessions.Update(ctx, sessionID, apply, committed); err != nil {
		return domain.DialogueNode{}, err
	}
	return node, dispatch
}

// TurnComplete re-broadcasts the state after an assistant turn or function result.
// Unchanged state is suppressed.
func (s *Service) TurnComplete(ctx context.Context, sessionID string) error {
	return s.push(ctx, sessionID)
}

// ClientReady pushes the current state to a display that just connected.
func (s *Service) ClientReady(ctx context.Context, sessionID string) error {
	s.logger.Info("display client ready", "session_id", sessionID)
	return s.push(ctx, sessionID)
}

func (s *Service) push(ctx context.Context, sessionID string) error {
	return s.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := s.sessions.Store().Load(ctx, sessionID)
		if err != nil {
			return err
		}
		_, err = s.broadcaster(sessionID).Send(ctx, state)
		return err
	})
}

// End removes sessionID and its broadcaster.
func (s *Service) End(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.forget(sessionID)
	s.logger.Info("session ended", "session_id", sessionID)
	return nil
}

// State returns a copy of the session state.
func (s *Service) State(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return s.sessions.Load(ctx, sessionID)
}

// Snapshot returns the display projection of the session state.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (domain.StateSnapshot, error) {
	state, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return domain.StateSnapshot{}, err
	}
	return state.Snapshot(), nil
}

// ActiveNode rebuilds the node currently active for the session.
func (s *Service) ActiveNode(ctx context.Context, sessionID string) (domain.DialogueNode, error) {
	state, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return domain.DialogueNode{}, err
	}
	return s.flow.BuildNode(state), nil
}

// List returns the IDs of all stored sessions.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.sessions.List(ctx)
}

// pendingNotifier defers a handler's broadcast until the transition is saved.
type pendingNotifier struct {
	requested bool
}

func (p *pendingNotifier) SendStateUpdate(context.Context, *domain.SessionState) {
	p.requested = true
}
