package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/courseflow"
	"github.com/aretw0/courseflow/internal/config"
	"github.com/aretw0/courseflow/internal/logging"
	"github.com/aretw0/courseflow/pkg/adapters/file"
	"github.com/aretw0/courseflow/pkg/adapters/memory"
	"github.com/aretw0/courseflow/pkg/adapters/redis"
	"github.com/aretw0/courseflow/pkg/broadcast"
	"github.com/aretw0/courseflow/pkg/content"
	"github.com/aretw0/courseflow/pkg/persistence/middleware"
	"github.com/aretw0/courseflow/pkg/ports"
)

// NewLogger builds the stderr logger described by cfg.
func NewLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(level, format), nil
}

// Backend is an opened session store plus the locker that goes with it.
type Backend struct {
	Store  ports.StateStore
	Locker ports.DistributedLocker
	closer io.Closer
}

// Close releases connections held by the backend.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// OpenBackend opens the store selected by cfg.Store.Backend. The redis backend is
// pinged, and comes with a distributed locker on the same client.
func OpenBackend(ctx context.Context, cfg config.Config) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		return &Backend{Store: memory.NewStore()}, nil
	case config.BackendFile:
		return &Backend{Store: file.New(cfg.Store.Dir)}, nil
	case config.BackendRedis:
		r := cfg.Store.Redis
		store := redis.New(r.Addr, r.Password, r.DB,
			redis.WithPrefix(r.Prefix),
			redis.WithTTL(cfg.Store.TTL),
		)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis %s: %w", r.Addr, err)
		}
		return &Backend{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), r.Prefix),
			closer: store,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// AppOptions tunes NewApp beyond the config file.
type AppOptions struct {
	Sink       broadcast.Sink
	Registerer prometheus.Registerer
	Debug      bool
}

// NewApp assembles the application described by cfg. The returned backend must be
// closed by the caller.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts AppOptions) (*courseflow.App, *Backend, error) {
	c, err := content.Load(cfg.ContentPath)
	if err != nil {
		return nil, nil, err
	}

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var mws []middleware.Middleware
	if opts.Debug {
		mws = append(mws, middleware.NewLoggingMiddleware(logger.With("component", "store")))
	}
	if opts.Registerer != nil {
		mws = append(mws, middleware.NewMetricsMiddleware(middleware.NewStoreMetrics(opts.Registerer)))
	}

	appOpts := []courseflow.Option{
		courseflow.WithContent(c),
		courseflow.WithStore(middleware.Chain(backend.Store, mws...)),
		courseflow.WithLogger(logger),
		courseflow.WithDebug(opts.Debug),
	}
	if backend.Locker != nil {
		appOpts = append(appOpts, courseflow.WithLocker(backend.Locker, cfg.Store.LockTTL))
	}
	if opts.Sink != nil {
		appOpts = append(appOpts, courseflow.WithSink(opts.Sink))
	}
	if opts.Registerer != nil {
		appOpts = append(appOpts, courseflow.WithRegisterer(opts.Registerer))
	}

	app, err := courseflow.New(appOpts...)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return app, backend, nil
}
