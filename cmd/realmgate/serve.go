// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/realmgate/internal/config"
	"github.com/holomush/realmgate/internal/httpapi"
	"github.com/holomush/realmgate/internal/observability"
	"github.com/holomush/realmgate/internal/store"
	"github.com/holomush/realmgate/internal/tables"
	"github.com/holomush/realmgate/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve authentication and authorization decisions over HTTP",
		Long: `Start the decision API and the metrics/health endpoint.

Tables are loaded at startup and reloaded on change: the postgres source
listens for notifications on realm_tables_changed, and any source can be
polled with --poll-interval.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, logger, tables.MetricsOptions()...)
	if err != nil {
		return err
	}
	defer a.close()

	if err := startReloads(ctx, cfg, a, logger); err != nil {
		return err
	}
	defer a.cache.Wait()
	defer cancel()

	errChan := make(chan error, 1)

	var obsServer *observability.Server
	var apiMetrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, a.ready)
		tables.RegisterMetrics(obsServer.Registry())
		apiMetrics = obsServer.Metrics()
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, errChan, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	apiServer := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewHandler(a.authn, a.authz,
		httpapi.WithMetrics(apiMetrics),
		httpapi.WithLogger(logger)))
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer)
		return err
	}
	go monitorServerErrors(ctx, cancel, errChan, apiErrChan, "decision-api")
	logger.Info("decision API started",
		"addr", apiServer.Addr(),
		"realm", cfg.Realm.Name,
		"role", cfg.Realm.Role,
		"source", a.source.Name())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case runErr = <-errChan:
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping decision API", err)
	}
	stopObservability(obsServer)

	logger.Info("realmgate stopped")
	return runErr
}

// startReloads wires the configured reload triggers into the cache.
func startReloads(ctx context.Context, cfg *config.Config, a *app, logger *slog.Logger) error {
	if cfg.Tables.Source == config.SourcePostgres {
		listener := store.NewPgListener(cfg.Database.URL, store.WithListenerLogger(logger))
		if err := a.cache.StartWithListener(ctx, listener); err != nil {
			return err
		}
		logger.Info("listening for table changes", "channel", store.NotifyChannel)
	}
	if cfg.Tables.PollInterval > 0 {
		if err := a.cache.StartPolling(ctx, cfg.Tables.PollInterval); err != nil {
			return err
		}
		logger.Info("polling tables", "interval", cfg.Tables.PollInterval)
	}
	return nil
}

func stopObservability(s *observability.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		errutil.LogError(slog.Default(), "error stopping observability server", err)
	}
}

// monitorServerErrors forwards the first server error to errOut and cancels
// ctx so the serve loop shuts down.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errOut chan<- error, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogError(slog.Default().With("server", name), "server error", err)
			select {
			case errOut <- err:
			default:
			}
			cancel()
		}
	case <-ctx.Done():
	}
}
