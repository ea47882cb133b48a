// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iucalendar/iucalendar/internal/auth"
	"github.com/iucalendar/iucalendar/internal/config"
	"github.com/iucalendar/iucalendar/internal/store/memory"
	"github.com/iucalendar/iucalendar/pkg/errutil"
)

// seedSessions stores one user with a session issued at each of createdAt.
func seedSessions(t *testing.T, s *memory.Store, createdAt ...time.Time) {
	t.Helper()
	ctx := context.Background()
	user, err := auth.NewUser("Ada", "ada@example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, s.Users().Create(ctx, user))

	for _, at := range createdAt {
		sessions, err := auth.NewSessionStore(s.Sessions(), auth.WithClock(func() time.Time { return at }))
		require.NoError(t, err)
		_, _, err = sessions.Create(ctx, user.ID, auth.ClientInfo{})
		require.NoError(t, err)
	}
}

func TestSessionsPrune(t *testing.T) {
	isolateEnv(t)
	t.Setenv("IUCAL_DATABASE__DRIVER", "memory")

	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	store := memory.New()
	seedSessions(t, store,
		now.Add(-48*time.Hour),
		now.Add(-auth.SessionTTL),
		now.Add(-time.Hour),
	)

	cmd := newSessionsCmd(&sessionsDeps{
		BackendFactory: func(context.Context, *config.Config) (*Backend, error) {
			return memoryBackend(store), nil
		},
		Now: func() time.Time { return now },
	})
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"prune"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Pruned 2 expired sessions\n", out.String())

	// A second run finds nothing left to remove.
	out.Reset()
	cmd.SetArgs([]string{"prune"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Pruned 0 expired sessions\n", out.String())
}

func TestSessionsPrune_BackendFailure(t *testing.T) {
	deps := &sessionsDeps{
		BackendFactory: func(context.Context, *config.Config) (*Backend, error) {
			return nil, errors.New("connection refused")
		},
		Now: time.Now,
	}

	_, err := runSessionsPrune(context.Background(), testConfig(), deps)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}

func TestSessionsPrune_InvalidConfig(t *testing.T) {
	isolateEnv(t)
	t.Setenv("IUCAL_DATABASE__DRIVER", "postgres")

	called := false
	cmd := newSessionsCmd(&sessionsDeps{
		BackendFactory: func(context.Context, *config.Config) (*Backend, error) {
			called = true
			return nil, errors.New("unreachable")
		},
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"prune"})

	err := cmd.Execute()
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.False(t, called)
}
