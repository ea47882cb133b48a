// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

// Package config loads iucal configuration from defaults, a YAML file,
// a .env file, the environment, and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/iucalendar/iucalendar/internal/logging"
	"github.com/iucalendar/iucalendar/internal/xdg"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "IUCAL_"

// Config is the full iucal configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Database  DatabaseConfig  `koanf:"database"`
	Hasher    HasherConfig    `koanf:"hasher"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	BasePath          string        `koanf:"base_path"`
	AllowedOrigins    []string      `koanf:"allowed_origins"`
	CookieName        string        `koanf:"cookie_name"`
	CookieSecure      bool          `koanf:"cookie_secure"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig selects and configures the storage driver.
type DatabaseConfig struct {
	Driver      string `koanf:"driver"`
	URL         string `koanf:"url"`
	MaxConns    int32  `koanf:"max_conns"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// HasherConfig is the argon2id work factor.
type HasherConfig struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// TelemetryConfig configures OTLP trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	Insecure     bool   `koanf:"insecure"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                ":5000",
		"http.base_path":           "/api",
		"http.allowed_origins":     []string{"http://localhost:3000"},
		"http.cookie_name":         "iucal_session",
		"http.cookie_secure":       false,
		"http.read_header_timeout": 10 * time.Second,
		"http.shutdown_timeout":    10 * time.Second,
		"database.driver":          DriverPostgres,
		"database.url":             "",
		"database.max_conns":       10,
		"database.auto_migrate":    true,
		"hasher.time":              1,
		"hasher.memory_kib":        64 * 1024,
		"hasher.threads":           4,
		"log.format":               "json",
		"log.level":                "info",
		"metrics.addr":             "127.0.0.1:9100",
		"telemetry.otlp_endpoint":  "",
		"telemetry.insecure":       false,
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":            "http.addr",
	"base-path":       "http.base_path",
	"database-driver": "database.driver",
	"database-url":    "database.url",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"metrics-addr":    "metrics.addr",
	"otlp-endpoint":   "telemetry.otlp_endpoint",
}

// RegisterFlags adds the config override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", "", "API listen address (http.addr)")
	fs.String("base-path", "", "route prefix (http.base_path)")
	fs.String("database-driver", "", "storage driver: postgres or memory (database.driver)")
	fs.String("database-url", "", "PostgreSQL URL (database.url)")
	fs.String("log-format", "", "log format: json or text (log.format)")
	fs.String("log-level", "", "log level: debug, info, warn, error (log.level)")
	fs.String("metrics-addr", "", "metrics/health listen address, empty disables (metrics.addr)")
	fs.String("otlp-endpoint", "", "OTLP/gRPC trace endpoint (telemetry.otlp_endpoint)")
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file; it must exist. When empty the
	// XDG default file is used if present.
	ConfigFile string
	// DotEnvFile is loaded into the process environment. Default ".env".
	// A missing file is ignored.
	DotEnvFile string
	// Flags, when set, overrides keys with explicitly changed flags.
	Flags *pflag.FlagSet
	// SkipValidate returns the merged values without Validate, for commands
	// that read only a few keys.
	SkipValidate bool
}

// Load builds a validated Config.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("layer", "defaults").Wrap(err)
	}

	path := opts.ConfigFile
	if path == "" {
		path = xdg.FindConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("layer", "file").With("path", path).Wrap(err)
		}
	}

	dotenv := opts.DotEnvFile
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Code("CONFIG_INVALID").With("layer", "dotenv").With("path", dotenv).Wrap(err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("layer", "env").Wrap(err)
	}

	if k.String("database.url") == "" {
		if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
			if err := k.Set("database.url", dbURL); err != nil {
				return nil, oops.Code("CONFIG_INVALID").With("layer", "env").Wrap(err)
			}
		}
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagKey), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("layer", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("layer", "unmarshal").Wrap(err)
	}
	if opts.SkipValidate {
		return &cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns IUCAL_HTTP__BASE_PATH into http.base_path.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// flagKey maps a flag to its config key. Unmapped flags are skipped.
func flagKey(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok {
		return "", nil
	}
	return key, f.Value.String()
}

// Validate checks the configuration for values that would fail at start-up.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	if c.HTTP.BasePath != "" && !strings.HasPrefix(c.HTTP.BasePath, "/") {
		return invalid("http.base_path", "http.base_path must start with '/', got %q", c.HTTP.BasePath)
	}
	if c.HTTP.CookieName == "" {
		return invalid("http.cookie_name", "http.cookie_name is required")
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database.url (or DATABASE_URL) is required for the postgres driver")
		}
	default:
		return invalid("database.driver", "database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if c.Database.MaxConns <= 0 {
		return invalid("database.max_conns", "database.max_conns must be positive")
	}
	if c.Hasher.Time == 0 || c.Hasher.MemoryKiB == 0 || c.Hasher.Threads == 0 {
		return invalid("hasher", "hasher time, memory_kib, and threads must be positive")
	}
	if !logging.ValidFormat(c.Log.Format) {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	return nil
}

// Redacted returns a copy safe to print, with the database password masked.
func (c Config) Redacted() Config {
	if c.Database.URL != "" {
		c.Database.URL = redactURL(c.Database.URL)
	}
	return c
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable]"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
