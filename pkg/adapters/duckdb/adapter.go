package duckdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	pgdialect "github.com/leapstack-labs/sqlsense/pkg/dialects/postgres"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DriverID returns "duckdb"; DuckDB speaks the PostgreSQL dialect.
func (a *Adapter) DriverID() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if err := a.Open(ctx, "duckdb", path, cfg); err != nil {
		return err
	}

	for _, stmt := range params.setupStatements() {
		if _, err := a.Execute(ctx, stmt); err != nil {
			_ = a.Close()
			a.DB = nil
			return fmt.Errorf("duckdb setup %q: %w", stmt, err)
		}
	}
	return nil
}

// SchemaService reads the catalog through information_schema, which
// DuckDB exposes with PostgreSQL-compatible shape.
func (a *Adapter) SchemaService() adapter.SchemaService {
	schema := a.Cfg.Schema
	if schema == "" {
		schema = "main"
	}
	return adapter.NewInformationSchemaService(pgdialect.Postgres, schema, a.Logger)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
