// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iucalendar/iucalendar/internal/auth"
	"github.com/iucalendar/iucalendar/internal/config"
)

// sessionsDeps contains injectable dependencies for the sessions commands.
type sessionsDeps struct {
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)
	Now            func() time.Time
}

// NewSessionsCmd creates the sessions subcommand.
func NewSessionsCmd() *cobra.Command {
	return newSessionsCmd(&sessionsDeps{})
}

func newSessionsCmd(deps *sessionsDeps) *cobra.Command {
	if deps.BackendFactory == nil {
		deps.BackendFactory = openBackend
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions from storage",
		Long: `Delete every session whose 24 hour lifetime has passed. Expired sessions
are already rejected on use; pruning only reclaims their storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			n, err := runSessionsPrune(cmd.Context(), cfg, deps)
			if err != nil {
				return err
			}
			cmd.Printf("Pruned %d expired sessions\n", n)
			return nil
		},
	})
	return cmd
}

func runSessionsPrune(ctx context.Context, cfg *config.Config, deps *sessionsDeps) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return 0, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Database.Driver).Wrap(err)
	}
	defer backend.Close()

	sessions, err := auth.NewSessionStore(backend.Sessions, auth.WithClock(deps.Now))
	if err != nil {
		return 0, err
	}
	return sessions.Prune(ctx)
}
