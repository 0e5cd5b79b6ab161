// Package schema holds the local mirror of remote database metadata.
//
// A Cache is immutable once built. The Store publishes one Cache at a time
// through an atomic pointer; readers never observe a partially built cache.
package schema

import (
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/core"
)

// Cache is one version of the schema mirror. All lookups are case-insensitive.
// The zero value is not usable; use Empty or a Builder.
type Cache struct {
	tables     map[string]core.TableInfo
	views      map[string]core.ViewInfo
	columns    map[string][]core.ColumnInfo
	procedures map[string]core.RoutineInfo
	functions  map[string]core.RoutineInfo
	triggers   map[string]core.TriggerInfo
	indexes    map[string]core.IndexInfo
	fks        map[string][]core.ForeignKey
	reverseFKs map[string][]core.ForeignKey

	tableKeys []string
	viewKeys  []string

	source uuid.UUID
}

// Empty returns a cache with no objects.
func Empty() *Cache {
	return NewBuilder().Build()
}

func key(name string) string { return strings.ToLower(name) }

// Source returns the connection the cache was fetched from, or uuid.Nil for
// fixtures and hand-built caches.
func (c *Cache) Source() uuid.UUID {
	return c.source
}

// IsEmpty reports whether the cache holds no tables and no views.
func (c *Cache) IsEmpty() bool {
	return len(c.tables) == 0 && len(c.views) == 0
}

// Tables returns all tables ordered by name.
func (c *Cache) Tables() []core.TableInfo {
	out := make([]core.TableInfo, 0, len(c.tableKeys))
	for _, k := range c.tableKeys {
		out = append(out, c.tables[k])
	}
	return out
}

// TableNames returns the names of all tables ordered by name.
func (c *Cache) TableNames() []string {
	out := make([]string, 0, len(c.tableKeys))
	for _, k := range c.tableKeys {
		out = append(out, c.tables[k].Name)
	}
	return out
}

// Table looks up a table by name.
func (c *Cache) Table(name string) (core.TableInfo, bool) {
	t, ok := c.tables[key(name)]
	return t, ok
}

// Views returns all views ordered by name.
func (c *Cache) Views() []core.ViewInfo {
	out := make([]core.ViewInfo, 0, len(c.viewKeys))
	for _, k := range c.viewKeys {
		out = append(out, c.views[k])
	}
	return out
}

// View looks up a view by name.
func (c *Cache) View(name string) (core.ViewInfo, bool) {
	v, ok := c.views[key(name)]
	return v, ok
}

// HasRelation reports whether name is a cached table or view.
func (c *Cache) HasRelation(name string) bool {
	_, t := c.tables[key(name)]
	_, v := c.views[key(name)]
	return t || v
}

// Columns returns the ordered columns of a table, or nil when no detail is cached.
func (c *Cache) Columns(table string) []core.ColumnInfo {
	return c.columns[key(table)]
}

// Column finds a column of table by name.
func (c *Cache) Column(table, column string) (core.ColumnInfo, bool) {
	for _, col := range c.columns[key(table)] {
		if strings.EqualFold(col.Name, column) {
			return col, true
		}
	}
	return core.ColumnInfo{}, false
}

// FindColumn returns the first table, in name order, that has column.
func (c *Cache) FindColumn(column string) (string, core.ColumnInfo, bool) {
	for _, k := range c.tableKeys {
		if col, ok := c.Column(k, column); ok {
			return c.tables[k].Name, col, true
		}
	}
	return "", core.ColumnInfo{}, false
}

// HasDetails reports whether column detail was fetched for table.
func (c *Cache) HasDetails(table string) bool {
	_, ok := c.columns[key(table)]
	return ok
}

// ForeignKeys returns the outgoing foreign keys of table.
func (c *Cache) ForeignKeys(table string) []core.ForeignKey {
	return c.fks[key(table)]
}

// ReferencedBy returns the foreign keys of other tables that point at table.
func (c *Cache) ReferencedBy(table string) []core.ForeignKey {
	return c.reverseFKs[key(table)]
}

// Procedures returns all procedures ordered by name.
func (c *Cache) Procedures() []core.RoutineInfo { return sortedValues(c.procedures) }

// Procedure looks up a procedure by name.
func (c *Cache) Procedure(name string) (core.RoutineInfo, bool) {
	r, ok := c.procedures[key(name)]
	return r, ok
}

// Functions returns all user-defined functions ordered by name.
func (c *Cache) Functions() []core.RoutineInfo { return sortedValues(c.functions) }

// Function looks up a user-defined function by name.
func (c *Cache) Function(name string) (core.RoutineInfo, bool) {
	r, ok := c.functions[key(name)]
	return r, ok
}

// Triggers returns all triggers ordered by name.
func (c *Cache) Triggers() []core.TriggerInfo { return sortedValues(c.triggers) }

// Trigger looks up a trigger by name.
func (c *Cache) Trigger(name string) (core.TriggerInfo, bool) {
	t, ok := c.triggers[key(name)]
	return t, ok
}

// Indexes returns all indexes ordered by name.
func (c *Cache) Indexes() []core.IndexInfo { return sortedValues(c.indexes) }

// Index looks up an index by name.
func (c *Cache) Index(name string) (core.IndexInfo, bool) {
	i, ok := c.indexes[key(name)]
	return i, ok
}

// IndexesOn returns the indexes defined on table.
func (c *Cache) IndexesOn(table string) []core.IndexInfo {
	var out []core.IndexInfo
	for _, idx := range c.Indexes() {
		if strings.EqualFold(idx.Table, table) {
			out = append(out, idx)
		}
	}
	return out
}

// Stats summarises the cache for logging.
type Stats struct {
	Tables   int `json:"tables"`
	Views    int `json:"views"`
	Columns  int `json:"columns"`
	Routines int `json:"routines"`
	Triggers int `json:"triggers"`
	Indexes  int `json:"indexes"`
}

// Stats counts the cached objects.
func (c *Cache) Stats() Stats {
	s := Stats{
		Tables:   len(c.tables),
		Views:    len(c.views),
		Routines: len(c.procedures) + len(c.functions),
		Triggers: len(c.triggers),
		Indexes:  len(c.indexes),
	}
	for _, cols := range c.columns {
		s.Columns += len(cols)
	}
	return s
}

func sortedValues[V any](m map[string]V) []V {
	out := make([]V, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[k])
	}
	return out
}
