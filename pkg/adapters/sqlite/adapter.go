package sqlite

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DriverID returns the identifier used to select the SQL dialect.
func (a *Adapter) DriverID() string {
	return "sqlite"
}

// Connect opens the database file, or an in-memory database when no path is set.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("opening sqlite database", slog.String("path", path))
	if err := a.Open(ctx, "sqlite", path, cfg); err != nil {
		return err
	}
	// Each pooled connection to ":memory:" would see its own database.
	if path == ":memory:" {
		a.DB.SetMaxOpenConns(1)
	}
	return nil
}

// SchemaService returns the catalog reader for SQLite.
func (a *Adapter) SchemaService() adapter.SchemaService {
	return NewSchemaService(a.Logger)
}

var _ adapter.Adapter = (*Adapter)(nil)
