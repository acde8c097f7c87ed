package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/courseflow/internal/logging"
	"github.com/aretw0/courseflow/pkg/catalog"
	"github.com/aretw0/courseflow/pkg/content"
	"github.com/aretw0/courseflow/pkg/domain"
)

// Notifier receives state-change notifications from transition handlers.
type Notifier interface {
	SendStateUpdate(ctx context.Context, state *domain.SessionState)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, state *domain.SessionState)

func (f NotifierFunc) SendStateUpdate(ctx context.Context, state *domain.SessionState) {
	f(ctx, state)
}

var discard = NotifierFunc(func(context.Context, *domain.SessionState) {})

// Flow builds nodes and dispatches intents for one content configuration.
type Flow struct {
	content *content.Content
	catalog *catalog.Catalog
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the structured logger used by handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(f *Flow) {
		f.hooks = hooks
	}
}

// New creates a Flow. Invalid content, such as missing reference text, is an error
// here so it surfaces before any session starts.
func New(c *content.Content, opts ...Option) (*Flow, error) {
	if c == nil {
		return nil, fmt.Errorf("content is required: %w", domain.ErrMissingReference)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	cat, err := c.Catalog()
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	f := &Flow{
		content: c,
		catalog: cat,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Catalog returns the topic catalog.
func (f *Flow) Catalog() *catalog.Catalog { return f.catalog }

// Content returns the reference content.
func (f *Flow) Content() *content.Content { return f.content }

// NewSessionState creates an empty session positioned at the initial node.
func (f *Flow) NewSessionState(sessionID string) *domain.SessionState {
	return f.catalog.NewSessionState(sessionID)
}
