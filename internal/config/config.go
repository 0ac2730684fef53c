// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads realmgate configuration from defaults, an optional
// YAML file and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/realmgate/internal/audit"
	"github.com/holomush/realmgate/internal/logging"
)

// Table sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// DatabaseURLEnv is consulted when database.url is not configured.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the complete realmgate configuration.
type Config struct {
	Realm    RealmConfig    `koanf:"realm"`
	Tables   TablesConfig   `koanf:"tables"`
	Database DatabaseConfig `koanf:"database"`
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Audit    AuditConfig    `koanf:"audit"`
}

// RealmConfig describes the realm sessions are admitted to.
type RealmConfig struct {
	Name         string         `koanf:"name"`
	Role         string         `koanf:"role"`
	RequiredRole string         `koanf:"required_role"`
	Extra        map[string]any `koanf:"extra"`
}

// TablesConfig selects where credentials and permissions come from.
type TablesConfig struct {
	Source         string        `koanf:"source"`
	Path           string        `koanf:"path"`
	ValidateSchema bool          `koanf:"validate_schema"`
	Staleness      time.Duration `koanf:"staleness"`
	PollInterval   time.Duration `koanf:"poll_interval"`
}

// DatabaseConfig holds the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// HTTPConfig holds the decision API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// AuditConfig configures decision audit logging.
type AuditConfig struct {
	Mode string `koanf:"mode"`
}

// defaults are applied before any file or flag.
var defaults = map[string]any{
	"realm.name":             "realm1",
	"realm.role":             "dynamic_user",
	"realm.required_role":    "",
	"tables.source":          SourceFile,
	"tables.path":            "tables.yaml",
	"tables.validate_schema": true,
	"tables.staleness":       "0s",
	"tables.poll_interval":   "0s",
	"database.url":           "",
	"http.addr":              "127.0.0.1:8080",
	"metrics.addr":           "127.0.0.1:9100",
	"log.format":             "json",
	"log.level":              "info",
	"audit.mode":             string(audit.ModeDenials),
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"realm":           "realm.name",
	"role":            "realm.role",
	"required-role":   "realm.required_role",
	"tables-source":   "tables.source",
	"tables":          "tables.path",
	"validate-schema": "tables.validate_schema",
	"staleness":       "tables.staleness",
	"poll-interval":   "tables.poll_interval",
	"database-url":    "database.url",
	"http-addr":       "http.addr",
	"metrics-addr":    "metrics.addr",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"audit":           "audit.mode",
}

// FlagKey returns the configuration key bound to a flag name.
func FlagKey(flag string) (string, bool) {
	key, ok := flagKeys[flag]
	return key, ok
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the changed flags in fs (fs may be nil).
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.In("config").Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.In("config").Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.In("config").Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.In("config").Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(DatabaseURLEnv)
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return oops.In("config").Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if strings.TrimSpace(c.Realm.Name) == "" {
		return invalid("realm.name", "realm name is required")
	}
	if strings.TrimSpace(c.Realm.Role) == "" {
		return invalid("realm.role", "realm role is required")
	}

	switch c.Tables.Source {
	case SourceFile:
		if c.Tables.Path == "" {
			return invalid("tables.path", "tables path is required for the file source")
		}
	case SourcePostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database URL is required for the postgres source (or set %s)", DatabaseURLEnv)
		}
	default:
		return invalid("tables.source", "unknown tables source %q (want %s or %s)", c.Tables.Source, SourceFile, SourcePostgres)
	}

	if c.Tables.Staleness < 0 {
		return invalid("tables.staleness", "staleness must not be negative")
	}
	if c.Tables.PollInterval < 0 {
		return invalid("tables.poll_interval", "poll interval must not be negative")
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http address is required")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", "unknown log format %q (want json or text)", c.Log.Format)
	}
	// Reported with our own code; wrapping would surface the inner one.
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "%v", err)
	}
	if _, err := audit.ParseMode(c.Audit.Mode); err != nil {
		return invalid("audit.mode", "%v", err)
	}
	return nil
}
