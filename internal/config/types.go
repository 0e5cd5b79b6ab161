// Package config provides the configuration shared by the CLI, the LSP
// server and the HTTP server.
//
// Values are layered with koanf, lowest precedence first: built-in
// defaults, the sqlsense.yaml project file, SQLSENSE_ environment variables
// and finally command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlsense/internal/completion"
	"github.com/leapstack-labs/sqlsense/internal/diagnostic"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
)

// ConnectionConfig is the database connection. DSN, when set, overrides
// the individual parts.
type ConnectionConfig struct {
	core.ConnectionConfig `koanf:",squash"`

	DSN string `koanf:"dsn"`
}

// SchemaConfig controls how the schema cache is filled and persisted.
type SchemaConfig struct {
	FetchConcurrency int           `koanf:"fetch_concurrency"`
	FetchTimeout     time.Duration `koanf:"fetch_timeout"`

	// SnapshotPath is the SQLite file holding warm-start snapshots. Empty
	// disables snapshots.
	SnapshotPath string `koanf:"snapshot_path"`

	// Fixture is a YAML schema used when no connection is configured.
	Fixture string `koanf:"fixture"`

	Watch WatchConfig `koanf:"watch"`
}

// WatchConfig lists directories whose DDL files trigger a refresh.
type WatchConfig struct {
	Dirs     []string      `koanf:"dirs"`
	Debounce time.Duration `koanf:"debounce"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// Config is the complete configuration.
type Config struct {
	Connection  ConnectionConfig   `koanf:"connection"`
	Dialect     string             `koanf:"dialect"`
	Completion  completion.Options `koanf:"completion"`
	Diagnostics diagnostic.Options `koanf:"diagnostics"`
	Schema      SchemaConfig       `koanf:"schema"`
	HTTP        HTTPConfig         `koanf:"http"`
	LogLevel    string             `koanf:"log_level"`
	Output      string             `koanf:"output"`

	// ProjectRoot anchors relative paths. It is the directory of the config
	// file, or the working directory when none was found.
	ProjectRoot string `koanf:"-"`
}

// Output formats.
const (
	OutputAuto     = "auto"
	OutputText     = "text"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
)

var outputFormats = []string{OutputAuto, OutputText, OutputMarkdown, OutputJSON}

// OutputFormats returns the accepted output formats.
func OutputFormats() []string {
	return slices.Clone(outputFormats)
}

// Connected reports whether a database connection is configured.
func (c *Config) Connected() bool {
	return c.Connection.Driver != ""
}

// Validate checks values that decoding alone cannot.
func (c *Config) Validate() error {
	if d := c.Connection.Driver; d != "" && !adapter.IsRegistered(strings.ToLower(d)) {
		return &adapter.UnknownAdapterError{Driver: d, Available: adapter.ListAdapters()}
	}
	if c.Dialect != "" {
		if _, ok := dialect.Get(c.Dialect); !ok {
			return fmt.Errorf("unknown dialect %q (available: %s)", c.Dialect, strings.Join(dialect.List(), ", "))
		}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Output != "" && !slices.Contains(outputFormats, c.Output) {
		return fmt.Errorf("unknown output format %q (available: %s)", c.Output, strings.Join(outputFormats, ", "))
	}
	if c.Completion.MaxItems < 0 {
		return fmt.Errorf("completion.max_items must not be negative")
	}
	if c.Schema.FetchConcurrency < 0 {
		return fmt.Errorf("schema.fetch_concurrency must not be negative")
	}
	return nil
}

// ParseLogLevel maps a level name to a slog level. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: use debug, info, warn or error", s)
	}
	return level, nil
}
