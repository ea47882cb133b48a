// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/iucalendar/iucalendar/internal/auth"
	authpg "github.com/iucalendar/iucalendar/internal/auth/postgres"
	"github.com/iucalendar/iucalendar/internal/calendar"
	calpg "github.com/iucalendar/iucalendar/internal/calendar/postgres"
	"github.com/iucalendar/iucalendar/internal/config"
	"github.com/iucalendar/iucalendar/internal/observability"
	"github.com/iucalendar/iucalendar/internal/store"
	"github.com/iucalendar/iucalendar/internal/store/memory"
)

// readinessTimeout bounds each readiness ping.
const readinessTimeout = 2 * time.Second

// Backend holds the repositories for one storage driver.
type Backend struct {
	Users    auth.UserRepository
	Sessions auth.SessionRepository
	Events   calendar.EventRepository
	// Ready reports whether the storage can serve requests.
	Ready observability.ReadinessChecker
	// Close releases the storage connections.
	Close func()
}

// openBackend opens the storage driver named by cfg.
func openBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return memoryBackend(memory.New()), nil
	case config.DriverPostgres:
		poolCfg := store.DefaultPoolConfig(cfg.Database.URL)
		poolCfg.MaxConns = cfg.Database.MaxConns
		pool, err := store.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Users:    authpg.NewUserRepository(pool),
			Sessions: authpg.NewSessionRepository(pool),
			Events:   calpg.NewEventRepository(pool),
			Ready:    store.ReadinessCheck(pool, readinessTimeout),
			Close:    pool.Close,
		}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "database.driver").
			Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func memoryBackend(s *memory.Store) *Backend {
	return &Backend{
		Users:    s.Users(),
		Sessions: s.Sessions(),
		Events:   s.Events(),
		Ready:    func(context.Context) error { return nil },
		Close:    func() {},
	}
}
