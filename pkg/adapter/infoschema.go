package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
)

// InformationSchemaService reads metadata through the ANSI information_schema views.
// PostgreSQL and DuckDB both serve it; adapters embed it and add what their
// catalogs expose beyond the standard.
type InformationSchemaService struct {
	Dialect *dialect.Dialect
	Schema  string // schema to list; the dialect default when empty
	Logger  *slog.Logger
}

// NewInformationSchemaService creates a service for d restricted to schema.
func NewInformationSchemaService(d *dialect.Dialect, schema string, logger *slog.Logger) *InformationSchemaService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if schema == "" {
		schema = d.DefaultSchema
	}
	return &InformationSchemaService{Dialect: d, Schema: schema, Logger: logger}
}

// LoadDatabaseSchema lists tables and views, plus routines where the catalog has them.
func (s *InformationSchemaService) LoadDatabaseSchema(ctx context.Context, conn Connection, id uuid.UUID) (*core.DatabaseSchema, error) {
	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = %s
		ORDER BY table_name
	`, s.Dialect.FormatPlaceholder(1))

	rows, err := conn.Query(ctx, query, s.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := &core.DatabaseSchema{}
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		if strings.EqualFold(tableType, "VIEW") {
			result.Views = append(result.Views, core.ViewInfo{Name: name, Schema: s.Schema})
			continue
		}
		result.Tables = append(result.Tables, core.TableInfo{Name: name, Schema: s.Schema})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	if len(result.Views) > 0 {
		if err := s.loadViewDefinitions(ctx, conn, result); err != nil {
			s.Logger.Warn("view definitions unavailable", "connection", id, "error", err)
		}
	}

	routines, err := s.loadRoutines(ctx, conn)
	if err != nil {
		// Not every engine exposes information_schema.routines.
		s.Logger.Debug("routines unavailable", "connection", id, "error", err)
	}
	for _, r := range routines {
		if r.kind == "PROCEDURE" {
			result.Procedures = append(result.Procedures, r.RoutineInfo)
		} else {
			result.Functions = append(result.Functions, r.RoutineInfo)
		}
	}

	return result, nil
}

func (s *InformationSchemaService) loadViewDefinitions(ctx context.Context, conn Connection, result *core.DatabaseSchema) error {
	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT table_name, view_definition
		FROM information_schema.views
		WHERE table_schema = %s
	`, s.Dialect.FormatPlaceholder(1))

	rows, err := conn.Query(ctx, query, s.Schema)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	defs := make(map[string]string)
	for rows.Next() {
		var name string
		var def sql.NullString
		if err := rows.Scan(&name, &def); err != nil {
			return err
		}
		defs[name] = def.String
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range result.Views {
		result.Views[i].Definition = defs[result.Views[i].Name]
	}
	return nil
}

type routineRow struct {
	core.RoutineInfo
	kind string
}

func (s *InformationSchemaService) loadRoutines(ctx context.Context, conn Connection) ([]routineRow, error) {
	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT routine_name, routine_type, data_type, routine_definition
		FROM information_schema.routines
		WHERE routine_schema = %s
		ORDER BY routine_name
	`, s.Dialect.FormatPlaceholder(1))

	rows, err := conn.Query(ctx, query, s.Schema)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []routineRow
	for rows.Next() {
		var r routineRow
		var ret, def sql.NullString
		if err := rows.Scan(&r.Name, &r.kind, &ret, &def); err != nil {
			return nil, err
		}
		r.Schema = s.Schema
		r.ReturnType = ret.String
		r.Definition = def.String
		r.kind = strings.ToUpper(r.kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTableDetails reads columns, primary key membership and foreign keys.
func (s *InformationSchemaService) GetTableDetails(ctx context.Context, conn Connection, _ uuid.UUID, table, schema string) (*core.TableDetails, error) {
	if schema == "" {
		schema = s.Schema
	}

	columns, err := s.loadColumns(ctx, conn, table, schema)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	fks, err := s.loadForeignKeys(ctx, conn, table, schema)
	if err != nil {
		return nil, err
	}

	return &core.TableDetails{Columns: columns, ForeignKeys: fks}, nil
}

func (s *InformationSchemaService) loadColumns(ctx context.Context, conn Connection, table, schema string) ([]core.ColumnInfo, error) {
	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			c.ordinal_position,
			CASE WHEN pk.column_name IS NULL THEN 0 ELSE 1 END AS is_pk
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = %[1]s AND tc.table_name = %[2]s
		) pk ON pk.column_name = c.column_name
		WHERE c.table_schema = %[1]s AND c.table_name = %[2]s
		ORDER BY c.ordinal_position
	`, s.Dialect.FormatPlaceholder(1), s.Dialect.FormatPlaceholder(2))

	args := []any{schema, table}
	if s.Dialect.Placeholder == dialect.PlaceholderQuestion {
		// Positional ? placeholders are consumed in order, so repeat the pair.
		args = []any{schema, table, schema, table}
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.ColumnInfo
	for rows.Next() {
		var col core.ColumnInfo
		var nullable string
		var def sql.NullString
		var isPK int
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def, &col.Position, &isPK); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		col.DefaultValue = def.String
		col.PrimaryKey = isPK == 1
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

func (s *InformationSchemaService) loadForeignKeys(ctx context.Context, conn Connection, table, schema string) ([]core.ForeignKey, error) {
	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			rc.constraint_name,
			kcu.column_name,
			ref.table_name,
			ref.column_name
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = rc.constraint_name
			AND kcu.constraint_schema = rc.constraint_schema
		JOIN information_schema.key_column_usage ref
			ON ref.constraint_name = rc.unique_constraint_name
			AND ref.constraint_schema = rc.unique_constraint_schema
			AND ref.ordinal_position = kcu.position_in_unique_constraint
		WHERE kcu.table_schema = %s AND kcu.table_name = %s
		ORDER BY rc.constraint_name, kcu.ordinal_position
	`, s.Dialect.FormatPlaceholder(1), s.Dialect.FormatPlaceholder(2))

	rows, err := conn.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectForeignKeys(rows, table)
}

// collectForeignKeys groups (constraint, column, ref table, ref column) rows
// into one ForeignKey per constraint, preserving row order.
func collectForeignKeys(rows *Rows, table string) ([]core.ForeignKey, error) {
	var fks []core.ForeignKey
	index := make(map[string]int)
	for rows.Next() {
		var name, col, refTable, refCol string
		if err := rows.Scan(&name, &col, &refTable, &refCol); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		i, ok := index[name]
		if !ok {
			i = len(fks)
			index[name] = i
			fks = append(fks, core.ForeignKey{Name: name, Table: table, RefTable: refTable})
		}
		fks[i].Columns = append(fks[i].Columns, col)
		fks[i].RefColumns = append(fks[i].RefColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return fks, nil
}
