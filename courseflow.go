package courseflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/courseflow/internal/logging"
	"github.com/aretw0/courseflow/pkg/adapters/memory"
	"github.com/aretw0/courseflow/pkg/broadcast"
	"github.com/aretw0/courseflow/pkg/content"
	"github.com/aretw0/courseflow/pkg/conversation"
	"github.com/aretw0/courseflow/pkg/domain"
	"github.com/aretw0/courseflow/pkg/flow"
	"github.com/aretw0/courseflow/pkg/observability"
	"github.com/aretw0/courseflow/pkg/ports"
	"github.com/aretw0/courseflow/pkg/session"
)

// Version is overridden at build time with -ldflags "-X github.com/aretw0/courseflow.Version=...".
var Version = "dev"

// App is an assembled course assistant: content, flow, session store and the
// conversation service that transports drive.
type App struct {
	Content  *content.Content
	Flow     *flow.Flow
	Sessions *session.Manager
	Service  *conversation.Service
	// Metrics is nil unless WithRegisterer was given.
	Metrics *observability.Metrics

	logger *slog.Logger
}

type options struct {
	content    *content.Content
	store      ports.StateStore
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	sink       broadcast.Sink
	registerer prometheus.Registerer
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	debug      bool
}

// Option configures New.
type Option func(*options)

// WithContent replaces the embedded course content.
func WithContent(c *content.Content) Option {
	return func(o *options) {
		o.content = c
	}
}

// WithStore sets the session store (default: in-memory).
func WithStore(store ports.StateStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithLocker serializes sessions across processes.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(o *options) {
		o.locker = locker
		o.lockTTL = ttl
	}
}

// WithSink sets where state broadcasts go (default: dropped).
func WithSink(sink broadcast.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithRegisterer enables Prometheus metrics registered with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// WithLogger sets the structured logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDebug logs every lifecycle event.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// New assembles an App. Content is validated first, so missing reference text
// fails here rather than on the first questions node.
func New(opts ...Option) (*App, error) {
	o := &options{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.content == nil {
		o.content = content.Default()
	}
	if o.store == nil {
		o.store = memory.NewStore()
	}
	if o.sink == nil {
		o.sink = broadcast.SinkFunc(func(context.Context, string, domain.StateSnapshot) error { return nil })
	}

	app := &App{
		Content: o.content,
		logger:  o.logger.With("service", o.content.ServiceName()),
	}

	hooks := []domain.LifecycleHooks{o.hooks}
	if o.registerer != nil {
		app.Metrics = observability.NewMetrics(o.registerer)
		hooks = append(hooks, app.Metrics.Hooks())
	}
	if o.debug {
		hooks = append(hooks, observability.LogHooks(app.logger))
	}
	combined := observability.Combine(hooks...)

	f, err := flow.New(o.content,
		flow.WithLogger(app.logger),
		flow.WithLifecycleHooks(combined),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	app.Flow = f

	sessionOpts := []session.Option{session.WithLogger(app.logger)}
	if o.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(o.locker))
		if o.lockTTL > 0 {
			sessionOpts = append(sessionOpts, session.WithLockTTL(o.lockTTL))
		}
	}
	app.Sessions = session.NewManager(o.store, sessionOpts...)

	svcOpts := []conversation.Option{
		conversation.WithLogger(app.logger),
		conversation.WithLifecycleHooks(combined),
	}
	if app.Metrics != nil {
		gauge := app.Metrics.ActiveSessions
		svcOpts = append(svcOpts, conversation.WithSessionGauge(func(n int) { gauge.Set(float64(n)) }))
	}
	app.Service = conversation.New(f, app.Sessions, o.sink, svcOpts...)

	return app, nil
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }
