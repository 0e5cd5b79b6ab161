// Package sqlite provides a SQLite database adapter for sqlsense.
//
// The adapter registers under "sqlite" and the libSQL-compatible aliases
// "libsql" and "turso", which open local files through the same driver.
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/sqlsense/pkg/adapter"
)

func init() {
	for _, name := range []string{"sqlite", "libsql", "turso"} {
		adapter.Register(name, func(l *slog.Logger) adapter.Adapter { return New(l) })
	}
}
