// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/iucalendar/iucalendar/pkg/errutil"
)

// isolate points every implicit source at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("DATABASE_URL", "")
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
	return dir
}

func writeYAML(t *testing.T, path string, doc map[string]any) {
	t.Helper()
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func memoryOpts(dir string) LoadOptions {
	return LoadOptions{DotEnvFile: filepath.Join(dir, "missing.env")}
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)
	t.Setenv("IUCAL_DATABASE__DRIVER", "memory")

	cfg, err := Load(memoryOpts(dir))
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTP.Addr)
	assert.Equal(t, "/api", cfg.HTTP.BasePath)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "iucal_session", cfg.HTTP.CookieName)
	assert.False(t, cfg.HTTP.CookieSecure)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadHeaderTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, HasherConfig{Time: 1, MemoryKiB: 65536, Threads: 4}, cfg.Hasher)
	assert.Equal(t, LogConfig{Format: "json", Level: "info"}, cfg.Log)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
}

func TestLoad_PostgresRequiresURL(t *testing.T) {
	dir := isolate(t)

	_, err := Load(memoryOpts(dir))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "database.url")
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/iucal")

	cfg, err := Load(memoryOpts(dir))
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost:5432/iucal", cfg.Database.URL)
}

func TestLoad_PrefixedURLBeatsFallback(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DATABASE_URL", "postgres://fallback/db")
	t.Setenv("IUCAL_DATABASE__URL", "postgres://primary/db")

	cfg, err := Load(memoryOpts(dir))
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary/db", cfg.Database.URL)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeYAML(t, path, map[string]any{
		"http": map[string]any{
			"addr":                ":8080",
			"allowed_origins":     []string{"https://cal.example.edu", "http://localhost:5173"},
			"cookie_secure":       true,
			"read_header_timeout": "5s",
		},
		"database": map[string]any{"driver": "memory"},
		"hasher":   map[string]any{"time": 2, "memory_kib": 1024, "threads": 1},
	})

	opts := memoryOpts(dir)
	opts.ConfigFile = path
	cfg, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://cal.example.edu", "http://localhost:5173"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.HTTP.CookieSecure)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadHeaderTimeout)
	assert.Equal(t, HasherConfig{Time: 2, MemoryKiB: 1024, Threads: 1}, cfg.Hasher)
	assert.Equal(t, "/api", cfg.HTTP.BasePath, "unset keys keep defaults")
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	dir := isolate(t)
	opts := memoryOpts(dir)
	opts.ConfigFile = filepath.Join(dir, "nope.yaml")

	_, err := Load(opts)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "layer", "file")
}

func TestLoad_XDGFile(t *testing.T) {
	dir := isolate(t)
	writeYAML(t, filepath.Join(dir, "iucal", "config.yaml"), map[string]any{
		"database": map[string]any{"driver": "memory"},
		"log":      map[string]any{"format": "text"},
	})

	cfg, err := Load(memoryOpts(dir))
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeYAML(t, filepath.Join(dir, "iucal", "config.yaml"), map[string]any{
		"http":     map[string]any{"addr": ":8080"},
		"database": map[string]any{"driver": "memory"},
	})
	t.Setenv("IUCAL_HTTP__ADDR", ":9090")
	t.Setenv("IUCAL_HTTP__ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("IUCAL_DATABASE__AUTO_MIGRATE", "false")

	cfg, err := Load(memoryOpts(dir))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("IUCAL_DATABASE__DRIVER=memory\nIUCAL_LOG__LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("IUCAL_DATABASE__DRIVER")
		_ = os.Unsetenv("IUCAL_LOG__LEVEL")
	})

	cfg, err := Load(LoadOptions{DotEnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("IUCAL_LOG__LEVEL=debug\n"), 0o600))
	t.Setenv("IUCAL_DATABASE__DRIVER", "memory")
	t.Setenv("IUCAL_LOG__LEVEL", "warn")

	cfg, err := Load(LoadOptions{DotEnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	dir := isolate(t)
	t.Setenv("IUCAL_HTTP__ADDR", ":9090")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", ":7070", "--database-driver", "memory"}))

	opts := memoryOpts(dir)
	opts.Flags = fs
	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level, "unchanged flags do not clobber defaults")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			HTTP:     HTTPConfig{Addr: ":5000", BasePath: "/api", CookieName: "iucal_session"},
			Database: DatabaseConfig{Driver: DriverMemory, MaxConns: 10},
			Hasher:   HasherConfig{Time: 1, MemoryKiB: 1024, Threads: 1},
			Log:      LogConfig{Format: "json", Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"empty addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"relative base path", func(c *Config) { c.HTTP.BasePath = "api" }, "http.base_path"},
		{"empty cookie name", func(c *Config) { c.HTTP.CookieName = "" }, "http.cookie_name"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }, "database.driver"},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.url"},
		{"zero max conns", func(c *Config) { c.Database.MaxConns = 0 }, "database.max_conns"},
		{"zero hasher time", func(c *Config) { c.Hasher.Time = 0 }, "hasher"},
		{"zero hasher threads", func(c *Config) { c.Hasher.Threads = 0 }, "hasher"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
	cfg.HTTP.BasePath = ""
	require.NoError(t, cfg.Validate(), "empty base path serves at the root")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{URL: "postgres://iucal:s3cret@db:5432/iucal"}}
	red := cfg.Redacted()
	assert.NotContains(t, red.Database.URL, "s3cret")
	assert.Contains(t, red.Database.URL, "iucal:xxxxx@db:5432")
	assert.Contains(t, cfg.Database.URL, "s3cret", "original untouched")
}

func TestLoad_SkipValidate(t *testing.T) {
	dir := isolate(t)
	opts := memoryOpts(dir)
	opts.SkipValidate = true

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
}
