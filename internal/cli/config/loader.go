// Package config loads the CLI configuration and carries the per-command
// logger through the command context.
package config

import (
	"context"
	"io"
	"log/slog"

	intconfig "github.com/leapstack-labs/sqlsense/internal/config"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// FlagKeys maps the CLI flags that override configuration to their config
// keys. Other flags are command options and never reach the config.
var FlagKeys = map[string]string{
	"output":         "output",
	"log-level":      "log_level",
	"driver":         "connection.driver",
	"dsn":            "connection.dsn",
	"dialect":        "dialect",
	"schema-fixture": "schema.fixture",
	"snapshots":      "schema.snapshot_path",
	"addr":           "http.addr",
	"watch":          "schema.watch.dirs",
	"max-items":      "completion.max_items",
}

// Package-level state for the loaded configuration.
var (
	configFileUsed string
	currentConfig  *intconfig.Config
)

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*intconfig.Config, error) {
	cfg, used, err := intconfig.Load(intconfig.LoadOptions{
		File:     cfgFile,
		Flags:    configFlags(flags),
		FlagKeys: FlagKeys,
	})
	if err != nil {
		return nil, err
	}
	configFileUsed = used
	currentConfig = cfg
	return cfg, nil
}

// configFlags narrows flags to those listed in FlagKeys.
func configFlags(flags *pflag.FlagSet) *pflag.FlagSet {
	if flags == nil {
		return nil
	}
	out := pflag.NewFlagSet("config", pflag.ContinueOnError)
	flags.VisitAll(func(f *pflag.Flag) {
		if _, ok := FlagKeys[f.Name]; ok {
			out.AddFlag(f)
		}
	})
	return out
}

// ResetConfig clears the loaded configuration. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the loaded configuration, or the defaults when
// nothing was loaded yet.
func GetCurrentConfig() *intconfig.Config {
	if currentConfig == nil {
		return intconfig.Default()
	}
	return currentConfig
}

// NewLogger creates a text logger at the configured level. Logs go to w,
// normally stderr, so they never mix with command output or LSP traffic.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := intconfig.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() any {
	return loggerKey{}
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.New(slog.DiscardHandler)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
