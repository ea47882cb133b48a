// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iucalendar/iucalendar/internal/config"
)

// isolateEnv hides the caller's config file, .env, and IUCAL_ variables.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
	configFile = ""
	t.Cleanup(func() { configFile = "" })
}

// testConfig returns a memory-backed config that listens on a random port.
func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Addr:              "127.0.0.1:0",
			BasePath:          "/api",
			AllowedOrigins:    []string{"http://localhost:3000"},
			CookieName:        "iucal_session",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Hasher:   config.HasherConfig{Time: 1, MemoryKiB: 64, Threads: 1},
		Log:      config.LogConfig{Format: "json", Level: "error"},
	}
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "sessions", "status"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{
			name:     "separate value",
			args:     []string{"--config", "/path/to/config.yaml", "--help"},
			wantFlag: "/path/to/config.yaml",
		},
		{
			name:     "equals",
			args:     []string{"--config=/etc/iucal.yaml", "--help"},
			wantFlag: "/etc/iucal.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile = ""
			t.Cleanup(func() { configFile = "" })

			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestRootCommand_OverrideFlags(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"addr", "base-path", "database-driver", "database-url", "log-format", "log-level", "metrics-addr", "otlp-endpoint"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestRootCommand_InvalidConfigFails(t *testing.T) {
	isolateEnv(t)

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"serve", "--database-driver", "sqlite"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver")
}
