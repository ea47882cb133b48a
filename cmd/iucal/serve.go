// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iucalendar/iucalendar/internal/auth"
	"github.com/iucalendar/iucalendar/internal/calendar"
	"github.com/iucalendar/iucalendar/internal/config"
	"github.com/iucalendar/iucalendar/internal/httpapi"
	"github.com/iucalendar/iucalendar/internal/logging"
	"github.com/iucalendar/iucalendar/internal/observability"
	"github.com/iucalendar/iucalendar/internal/store"
	"github.com/iucalendar/iucalendar/internal/telemetry"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the calendar API server",
		Long: `Start the HTTP API. With the postgres driver, pending migrations are
applied first unless database.auto_migrate is false.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

func (d *ServeDeps) setDefaults(logger *slog.Logger) {
	if d.BackendFactory == nil {
		d.BackendFactory = openBackend
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (AutoMigrator, error) {
			return store.NewMigrator(url)
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			srv := observability.NewServer(addr, ready)
			srv.SetLogger(logger.With("component", "observability"))
			return srv
		}
	}
	if d.TelemetrySetup == nil {
		d.TelemetrySetup = telemetry.Setup
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
}

// runServeWithDeps runs the API until ctx is cancelled, a signal arrives, or
// a server fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	logger, err := logging.Setup(logging.Options{
		Service: "iucal",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "set up logging").Wrap(err)
	}
	slog.SetDefault(logger)
	deps.setDefaults(logger)

	shutdownTelemetry, err := deps.TelemetrySetup(ctx, telemetry.Options{
		ServiceName:    "iucal",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("error flushing traces", "error", err)
		}
	}()

	if cfg.Database.Driver == config.DriverPostgres && cfg.Database.AutoMigrate {
		if err := runAutoMigration(logger, deps.MigratorFactory, cfg.Database.URL); err != nil {
			return err
		}
	}

	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Database.Driver).Wrap(err)
	}
	defer backend.Close()
	logger.Info("storage ready", "driver", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, backend.Ready)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
		metrics = obsServer.Metrics()
	}

	api, err := buildAPI(cfg, backend, logger, metrics)
	if err != nil {
		stopObservability(logger, obsServer, cfg)
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(logger, obsServer, cfg)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpSrv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	cmd.Println("iucal API listening on " + listener.Addr().String())
	logger.Info("api server ready",
		"addr", listener.Addr().String(),
		"base_path", cfg.HTTP.BasePath)

	var serveErr error
	select {
	case serveErr = <-errChan:
		logger.Error("api server error", "error", serveErr)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	stopObservability(logger, obsServer, cfg)

	logger.Info("shutdown complete")
	if serveErr != nil {
		return oops.Code("SERVE_FAILED").Wrap(serveErr)
	}
	return nil
}

// buildAPI assembles the auth and calendar services over backend.
func buildAPI(cfg *config.Config, backend *Backend, logger *slog.Logger, metrics *observability.Metrics) (*httpapi.Server, error) {
	hasher, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time:      cfg.Hasher.Time,
		MemoryKiB: cfg.Hasher.MemoryKiB,
		Threads:   cfg.Hasher.Threads,
	})
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("key", "hasher").Wrap(err)
	}
	sessions, err := auth.NewSessionStore(backend.Sessions, auth.WithSessionLogger(logger))
	if err != nil {
		return nil, err
	}
	authSvc, err := auth.NewAuthServiceWithLogger(backend.Users, sessions, hasher, logger)
	if err != nil {
		return nil, err
	}
	events, err := calendar.NewService(backend.Events, calendar.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return httpapi.NewServer(authSvc, events, httpapi.Config{
		BasePath:       cfg.HTTP.BasePath,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		CookieName:     cfg.HTTP.CookieName,
		CookieSecure:   cfg.HTTP.CookieSecure,
	}, httpapi.WithLogger(logger), httpapi.WithMetrics(metrics))
}

func stopObservability(logger *slog.Logger, obsServer ObservabilityServer, cfg *config.Config) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error is received, the channel is closed, or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

// runAutoMigration applies pending migrations. The migrator is always closed.
func runAutoMigration(logger *slog.Logger, factory func(string) (AutoMigrator, error), databaseURL string) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	logger.Info("applying database migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
	}
	return nil
}
