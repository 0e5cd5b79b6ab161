package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	pgdialect "github.com/leapstack-labs/sqlsense/pkg/dialects/postgres"
)

// indexColumns extracts the column list from a pg_indexes.indexdef value,
// e.g. "CREATE UNIQUE INDEX users_email_key ON public.users USING btree (email)".
var indexColumns = regexp.MustCompile(`\(([^()]*)\)\s*$`)

// SchemaService reads PostgreSQL metadata. The standard information_schema
// views cover tables, columns and keys; pg_indexes and the triggers view add
// what the standard leaves out.
type SchemaService struct {
	*adapter.InformationSchemaService
}

// NewSchemaService creates a service for schema ("public" when empty).
func NewSchemaService(schema string, logger *slog.Logger) *SchemaService {
	return &SchemaService{
		InformationSchemaService: adapter.NewInformationSchemaService(pgdialect.Postgres, schema, logger),
	}
}

// LoadDatabaseSchema lists objects, then adds indexes and triggers.
// Failures of the supplementary queries are logged, not returned.
func (s *SchemaService) LoadDatabaseSchema(ctx context.Context, conn adapter.Connection, id uuid.UUID) (*core.DatabaseSchema, error) {
	result, err := s.InformationSchemaService.LoadDatabaseSchema(ctx, conn, id)
	if err != nil {
		return nil, err
	}

	indexes, err := s.loadIndexes(ctx, conn)
	if err != nil {
		s.Logger.Warn("failed to load indexes", "connection", id, "error", err)
	}
	result.TableIndexes = indexes

	triggers, err := s.loadTriggers(ctx, conn)
	if err != nil {
		s.Logger.Warn("failed to load triggers", "connection", id, "error", err)
	}
	result.Triggers = triggers

	return result, nil
}

func (s *SchemaService) loadIndexes(ctx context.Context, conn adapter.Connection) ([]core.IndexInfo, error) {
	rows, err := conn.Query(ctx, `
		SELECT indexname, tablename, indexdef
		FROM pg_indexes
		WHERE schemaname = $1
		ORDER BY tablename, indexname
	`, s.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.IndexInfo
	for rows.Next() {
		var idx core.IndexInfo
		var def string
		if err := rows.Scan(&idx.Name, &idx.Table, &def); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		idx.Unique = strings.Contains(strings.ToUpper(def), "UNIQUE INDEX")
		idx.Primary = strings.HasSuffix(idx.Name, "_pkey")
		if m := indexColumns.FindStringSubmatch(def); m != nil {
			for _, c := range strings.Split(m[1], ",") {
				idx.Columns = append(idx.Columns, strings.Trim(strings.TrimSpace(c), `"`))
			}
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

func (s *SchemaService) loadTriggers(ctx context.Context, conn adapter.Connection) ([]core.TriggerInfo, error) {
	rows, err := conn.Query(ctx, `
		SELECT trigger_name, event_object_table, action_timing, event_manipulation, action_statement
		FROM information_schema.triggers
		WHERE trigger_schema = $1
		ORDER BY trigger_name
	`, s.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// One row per (trigger, event); fold the events together.
	var out []core.TriggerInfo
	index := make(map[string]int)
	for rows.Next() {
		var tr core.TriggerInfo
		if err := rows.Scan(&tr.Name, &tr.Table, &tr.Timing, &tr.Event, &tr.Definition); err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		if i, ok := index[tr.Name]; ok {
			out[i].Event += " OR " + tr.Event
			continue
		}
		index[tr.Name] = len(out)
		out = append(out, tr)
	}
	return out, rows.Err()
}
