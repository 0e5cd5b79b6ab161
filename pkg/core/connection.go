package core

import (
	"database/sql"
	"strings"
)

// ConnectionConfig holds configuration for connecting to a database.
type ConnectionConfig struct {
	// Driver identifies the adapter and the dialect (postgres, sqlite, duckdb, ...).
	Driver string `koanf:"driver"`

	// File-based databases (DuckDB, SQLite)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g. DuckDB settings)
	Params map[string]any `koanf:"params"`
}

// Key identifies the database a connection points at, for snapshot storage.
func (c ConnectionConfig) Key() string {
	parts := []string{strings.ToLower(c.Driver)}
	if c.Path != "" {
		parts = append(parts, c.Path)
	}
	if c.Host != "" {
		parts = append(parts, c.Host)
	}
	if c.Database != "" {
		parts = append(parts, c.Database)
	}
	if c.Schema != "" {
		parts = append(parts, c.Schema)
	}
	return strings.Join(parts, "|")
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
