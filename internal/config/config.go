// Package config loads relcore settings from a TOML file and the
// environment. Values are resolved in order: built-in defaults, the file,
// RELCORE_* variables. Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"relcore/internal/core"
	"relcore/internal/db"
	"relcore/internal/dialect"
	"relcore/internal/engine"
	"relcore/internal/logging"
)

// Environment variables read by ApplyEnv.
const (
	EnvPath        = "RELCORE_DB"
	EnvDialect     = "RELCORE_DIALECT"
	EnvPlaceholder = "RELCORE_PLACEHOLDER"
	EnvForeignKeys = "RELCORE_FOREIGN_KEYS"
	EnvBusyTimeout = "RELCORE_BUSY_TIMEOUT"
)

// Config is the full relcore configuration.
type Config struct {
	Database Database `toml:"database"`
	Log      Log      `toml:"log"`
}

// Database maps [database].
type Database struct {
	Path string `toml:"path"`
	// Dialect defaults to sqlite.
	Dialect string `toml:"dialect"`
	// Placeholder is one of "?", "?N", "$N", ":N". Empty keeps the dialect default.
	Placeholder string        `toml:"placeholder"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	ForeignKeys bool          `toml:"foreign_keys"`
	JournalMode string        `toml:"journal_mode"`
}

// Log maps [log].
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration: sqlite, WAL journal, enforced
// foreign keys, a 5s busy timeout, info-level text logs.
func Default() *Config {
	opts := engine.DefaultOptions("")
	return &Config{
		Database: Database{
			Dialect:     string(dialect.SQLite),
			BusyTimeout: opts.BusyTimeout,
			ForeignKeys: opts.ForeignKeys,
			JournalMode: opts.JournalMode,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads the file at path over the defaults and applies the
// environment. A missing file is an error only when mustExist is set.
func Load(path string, mustExist bool) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !mustExist:
		case err != nil:
			return nil, fmt.Errorf("config: %w", err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				return nil, fmt.Errorf("config: %s: unknown keys %v", path, undecoded)
			}
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from RELCORE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPath); ok {
		c.Database.Path = v
	}
	if v, ok := lookup(EnvDialect); ok {
		c.Database.Dialect = v
	}
	if v, ok := lookup(EnvPlaceholder); ok {
		c.Database.Placeholder = v
	}
	if v, ok := lookup(EnvForeignKeys); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvForeignKeys, err)
		}
		c.Database.ForeignKeys = b
	}
	if v, ok := lookup(EnvBusyTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvBusyTimeout, err)
		}
		c.Database.BusyTimeout = d
	}
	if v, ok := lookup(logging.EnvLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(logging.EnvFormat); ok {
		c.Log.Format = v
	}
	return nil
}

// Validate checks the enumerated fields. An empty database path is allowed
// here; opening the database rejects it.
func (c *Config) Validate() error {
	if !core.IsValidDialect(c.Database.Dialect) {
		return fmt.Errorf("config: unsupported dialect %q; supported: %v", c.Database.Dialect, core.SupportedDialects())
	}
	if c.Database.Placeholder != "" {
		if _, err := dialect.ParsePlaceholder(c.Database.Placeholder); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("config: busy_timeout must not be negative, got %s", c.Database.BusyTimeout)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Logger builds the stderr logger described by [log].
func (c *Config) Logger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Log.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, level, format), nil
}

// DBOptions converts [database] into options for db.Open.
func (c *Config) DBOptions(logger *slog.Logger) (db.Options, error) {
	opts := db.Options{
		Options: engine.Options{
			Path:        c.Database.Path,
			BusyTimeout: c.Database.BusyTimeout,
			ForeignKeys: c.Database.ForeignKeys,
			JournalMode: c.Database.JournalMode,
		},
		Dialect: dialect.Type(strings.ToLower(c.Database.Dialect)),
		Logger:  logger,
	}
	if c.Database.Placeholder != "" {
		p, err := dialect.ParsePlaceholder(c.Database.Placeholder)
		if err != nil {
			return db.Options{}, fmt.Errorf("config: %w", err)
		}
		opts.Placeholder = p
	}
	return opts, nil
}
