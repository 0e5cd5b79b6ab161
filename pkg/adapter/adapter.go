// Package adapter defines the collaborator contracts the engine consumes:
// a Connection that runs SQL and a SchemaService that reads catalog metadata.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves by driver name.
package adapter

import (
	"context"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/core"
)

// Type aliases for the shared core types.
type (
	// Config is an alias for core.ConnectionConfig.
	Config = core.ConnectionConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Connection is the capability to run SQL against a live database.
// Timeouts are the responsibility of the implementation and the ctx passed in.
type Connection interface {
	// Execute runs a statement that doesn't return rows and reports rows affected.
	Execute(ctx context.Context, query string, args ...any) (int64, error)

	// Query runs a statement that returns rows. Callers must close the rows.
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
}

// SchemaService reads schema metadata through a Connection.
type SchemaService interface {
	// LoadDatabaseSchema lists tables, views, routines, indexes and triggers.
	LoadDatabaseSchema(ctx context.Context, conn Connection, id uuid.UUID) (*core.DatabaseSchema, error)

	// GetTableDetails fetches the columns and foreign keys of one table.
	GetTableDetails(ctx context.Context, conn Connection, id uuid.UUID, table, schema string) (*core.TableDetails, error)
}

// Adapter is a connectable database backend.
type Adapter interface {
	Connection

	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// DriverID returns the identifier used to derive the SQL dialect.
	DriverID() string

	// SchemaService returns the catalog reader matching this backend.
	SchemaService() SchemaService
}
