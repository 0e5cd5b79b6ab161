package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/core"
)

var (
	triggerTiming = regexp.MustCompile(`(?i)\b(BEFORE|AFTER|INSTEAD\s+OF)\s+(INSERT|UPDATE|DELETE)\b`)
	triggerEvent  = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE)\s+ON\b`)
	indexColumns  = regexp.MustCompile(`\(([^()]*)\)\s*(?:WHERE\b.*)?$`)
)

// SchemaService reads SQLite metadata from sqlite_master and the table pragmas.
type SchemaService struct {
	Logger *slog.Logger
}

// NewSchemaService creates a SQLite schema service.
func NewSchemaService(logger *slog.Logger) *SchemaService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SchemaService{Logger: logger}
}

// LoadDatabaseSchema lists tables, views, indexes and triggers.
// SQLite has no stored routines.
func (s *SchemaService) LoadDatabaseSchema(ctx context.Context, conn adapter.Connection, id uuid.UUID) (*core.DatabaseSchema, error) {
	rows, err := conn.Query(ctx, `
		SELECT type, name, tbl_name, COALESCE(sql, '')
		FROM sqlite_master
		WHERE name NOT LIKE 'sqlite_%'
		ORDER BY type, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read sqlite_master: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := &core.DatabaseSchema{}
	for rows.Next() {
		var kind, name, table, def string
		if err := rows.Scan(&kind, &name, &table, &def); err != nil {
			return nil, fmt.Errorf("failed to scan sqlite_master row: %w", err)
		}
		switch kind {
		case "table":
			result.Tables = append(result.Tables, core.TableInfo{Name: name, Schema: "main"})
		case "view":
			result.Views = append(result.Views, core.ViewInfo{Name: name, Schema: "main", Definition: def})
		case "index":
			result.TableIndexes = append(result.TableIndexes, parseIndex(name, table, def))
		case "trigger":
			result.Triggers = append(result.Triggers, parseTrigger(name, table, def))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sqlite_master: %w", err)
	}

	s.Logger.Debug("loaded sqlite schema",
		"connection", id,
		"tables", len(result.Tables),
		"views", len(result.Views))
	return result, nil
}

func parseIndex(name, table, def string) core.IndexInfo {
	idx := core.IndexInfo{
		Name:   name,
		Table:  table,
		Unique: strings.Contains(strings.ToUpper(def), "UNIQUE INDEX"),
	}
	if m := indexColumns.FindStringSubmatch(def); m != nil {
		for _, c := range strings.Split(m[1], ",") {
			c = strings.TrimSpace(c)
			// Drop ordering and collation suffixes.
			if f := strings.Fields(c); len(f) > 0 {
				c = f[0]
			}
			idx.Columns = append(idx.Columns, strings.Trim(c, "\"`[]"))
		}
	}
	return idx
}

func parseTrigger(name, table, def string) core.TriggerInfo {
	tr := core.TriggerInfo{Name: name, Table: table, Definition: def}
	if m := triggerTiming.FindStringSubmatch(def); m != nil {
		tr.Timing = strings.ToUpper(strings.Join(strings.Fields(m[1]), " "))
		tr.Event = strings.ToUpper(m[2])
	} else if m := triggerEvent.FindStringSubmatch(def); m != nil {
		// BEFORE is SQLite's default timing.
		tr.Timing = "BEFORE"
		tr.Event = strings.ToUpper(m[1])
	}
	return tr
}

// GetTableDetails returns columns from pragma_table_info and foreign keys
// from pragma_foreign_key_list.
func (s *SchemaService) GetTableDetails(ctx context.Context, conn adapter.Connection, _ uuid.UUID, table, _ string) (*core.TableDetails, error) {
	rows, err := conn.Query(ctx, `
		SELECT cid, name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	details := &core.TableDetails{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			col              core.ColumnInfo
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &col.DataType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Position = cid + 1
		col.PrimaryKey = pk > 0
		// SQLite allows NULL in non-integer primary keys unless declared NOT NULL.
		col.Nullable = notNull == 0 && !col.PrimaryKey
		col.DefaultValue = dflt.String
		details.Columns = append(details.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	if len(details.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	fks, err := s.loadForeignKeys(ctx, conn, table)
	if err != nil {
		return nil, err
	}
	details.ForeignKeys = fks
	return details, nil
}

func (s *SchemaService) loadForeignKeys(ctx context.Context, conn adapter.Connection, table string) ([]core.ForeignKey, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, "table", "from", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.ForeignKey
	byID := make(map[int]int)
	for rows.Next() {
		var (
			id       int
			refTable string
			from     string
			to       sql.NullString
		)
		if err := rows.Scan(&id, &refTable, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		i, ok := byID[id]
		if !ok {
			i = len(out)
			byID[id] = i
			out = append(out, core.ForeignKey{
				Name:     fmt.Sprintf("fk_%s_%d", table, id),
				Table:    table,
				RefTable: refTable,
			})
		}
		out[i].Columns = append(out[i].Columns, from)
		// A NULL target means the parent's primary key.
		out[i].RefColumns = append(out[i].RefColumns, to.String)
	}
	return out, rows.Err()
}
