package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/courseflow"
	"github.com/aretw0/courseflow/internal/cli"
	httpAdapter "github.com/aretw0/courseflow/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the conversation API over HTTP. Display clients subscribe with server-sent
events on /sessions/{id}/events or connect a pipeline over /ws. Prometheus metrics are
served on /metrics, or on metrics_addr when it is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfigAndLogger(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}
		debug, _ := cmd.Flags().GetBool("debug")

		ctx, stop := cli.ShutdownContext(cmd.Context())
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		streams := httpAdapter.NewStreamManager(
			httpAdapter.WithBuffer(cfg.Display.Buffer),
			httpAdapter.WithStreamLogger(logger),
		)
		app, backend, err := cli.NewApp(ctx, cfg, logger, cli.AppOptions{
			Sink:       streams,
			Registerer: reg,
			Debug:      debug,
		})
		if err != nil {
			return err
		}
		defer backend.Close()

		metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		serverOpts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithVersion(courseflow.Version),
		}
		if cfg.MetricsAddr == "" {
			serverOpts = append(serverOpts, httpAdapter.WithMetricsHandler(metrics))
		}
		api := httpAdapter.NewServer(app.Service, streams, serverOpts...)

		servers := []*http.Server{{
			Addr:              cfg.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}}
		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics)
			servers = append(servers, &http.Server{
				Addr:              cfg.MetricsAddr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			})
		}

		logger.Info("starting courseflow server",
			"addr", cfg.Addr,
			"metrics_addr", cfg.MetricsAddr,
			"store", cfg.Store.Backend,
			"service", app.Content.ServiceName(),
		)
		if err := runServers(ctx, logger, servers...); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("courseflow server stopped gracefully", "signal", cli.ShutdownSignal(ctx))
		return nil
	},
}

// runServers serves until ctx is cancelled or one server fails, then shuts all down.
func runServers(ctx context.Context, logger *slog.Logger, servers ...*http.Server) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "addr", srv.Addr, "err", err)
				errs = append(errs, srv.Close())
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides config addr)")
	serveCmd.Flags().Bool("debug", false, "Log every lifecycle event")
}
