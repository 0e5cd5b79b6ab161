package config

import (
	"github.com/leapstack-labs/sqlsense/internal/completion"
	"github.com/leapstack-labs/sqlsense/internal/diagnostic"
	"github.com/leapstack-labs/sqlsense/internal/httpapi"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/internal/watch"
)

// Default configuration values.
const (
	DefaultSnapshotPath = ".sqlsense/snapshots.db"
	DefaultLogLevel     = "info"
	DefaultOutput       = OutputAuto
)

// Defaults returns the lowest configuration layer as flat koanf keys.
func Defaults() map[string]any {
	co := completion.DefaultOptions()
	do := diagnostic.DefaultOptions()
	return map[string]any{
		"completion.max_items":          co.MaxItems,
		"completion.fuzzy_min_length":   co.FuzzyMinLength,
		"completion.cache_ttl":          co.CacheTTL,
		"completion.cache_size":         co.CacheSize,
		"diagnostics.best_practices":    do.BestPractices,
		"diagnostics.schema_validation": do.SchemaValidation,
		"diagnostics.tree_sitter":       do.TreeSitter,
		"schema.fetch_concurrency":      schema.DefaultConcurrency,
		"schema.snapshot_path":          DefaultSnapshotPath,
		"schema.watch.debounce":         watch.DefaultDebounce,
		"http.addr":                     httpapi.DefaultAddr,
		"log_level":                     DefaultLogLevel,
		"output":                        DefaultOutput,
	}
}

// Default returns the configuration with only the defaults applied.
func Default() *Config {
	return &Config{
		Completion:  completion.DefaultOptions(),
		Diagnostics: diagnostic.DefaultOptions(),
		Schema: SchemaConfig{
			FetchConcurrency: schema.DefaultConcurrency,
			SnapshotPath:     DefaultSnapshotPath,
			Watch:            WatchConfig{Debounce: watch.DefaultDebounce},
		},
		HTTP:     HTTPConfig{Addr: httpapi.DefaultAddr},
		LogLevel: DefaultLogLevel,
		Output:   DefaultOutput,
	}
}
