// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package main

import (
	"context"
	"net"

	"github.com/iucalendar/iucalendar/internal/config"
	"github.com/iucalendar/iucalendar/internal/observability"
	"github.com/iucalendar/iucalendar/internal/telemetry"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendFactory opens the configured storage driver.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// TelemetrySetup installs trace export.
	// Default: telemetry.Setup
	TelemetrySetup func(ctx context.Context, opts telemetry.Options) (telemetry.ShutdownFunc, error)

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

// AutoMigrator is the subset of store.Migrator used at start-up.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
