package schema

import (
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/core"
)

// Builder assembles a Cache. It is not safe for concurrent use and must not
// be used after Build.
type Builder struct {
	c *Cache
}

// NewBuilder starts an empty cache.
func NewBuilder() *Builder {
	return &Builder{c: &Cache{
		tables:     make(map[string]core.TableInfo),
		views:      make(map[string]core.ViewInfo),
		columns:    make(map[string][]core.ColumnInfo),
		procedures: make(map[string]core.RoutineInfo),
		functions:  make(map[string]core.RoutineInfo),
		triggers:   make(map[string]core.TriggerInfo),
		indexes:    make(map[string]core.IndexInfo),
		fks:        make(map[string][]core.ForeignKey),
		reverseFKs: make(map[string][]core.ForeignKey),
	}}
}

// from copies every entry of c into a new builder.
func from(c *Cache) *Builder {
	return &Builder{c: &Cache{
		tables:     maps.Clone(c.tables),
		views:      maps.Clone(c.views),
		columns:    maps.Clone(c.columns),
		procedures: maps.Clone(c.procedures),
		functions:  maps.Clone(c.functions),
		triggers:   maps.Clone(c.triggers),
		indexes:    maps.Clone(c.indexes),
		fks:        maps.Clone(c.fks),
		reverseFKs: maps.Clone(c.reverseFKs),
		source:     c.source,
	}}
}

// Source records the connection the cache describes.
func (b *Builder) Source(id uuid.UUID) *Builder {
	b.c.source = id
	return b
}

// AddTable records a table, replacing any entry of the same name.
func (b *Builder) AddTable(t core.TableInfo) *Builder {
	b.c.tables[key(t.Name)] = t
	return b
}

// AddView records a view.
func (b *Builder) AddView(v core.ViewInfo) *Builder {
	b.c.views[key(v.Name)] = v
	return b
}

// SetDetails records the columns and outgoing foreign keys of table.
func (b *Builder) SetDetails(table string, d core.TableDetails) *Builder {
	cols := d.Columns
	if cols == nil {
		cols = []core.ColumnInfo{}
	}
	b.c.columns[key(table)] = cols
	if len(d.ForeignKeys) > 0 {
		fks := make([]core.ForeignKey, len(d.ForeignKeys))
		for i, fk := range d.ForeignKeys {
			if fk.Table == "" {
				fk.Table = table
			}
			fks[i] = fk
		}
		b.c.fks[key(table)] = fks
	}
	return b
}

// AddProcedure records a stored procedure.
func (b *Builder) AddProcedure(r core.RoutineInfo) *Builder {
	b.c.procedures[key(r.Name)] = r
	return b
}

// AddFunction records a user-defined function.
func (b *Builder) AddFunction(r core.RoutineInfo) *Builder {
	b.c.functions[key(r.Name)] = r
	return b
}

// AddTrigger records a trigger.
func (b *Builder) AddTrigger(t core.TriggerInfo) *Builder {
	b.c.triggers[key(t.Name)] = t
	return b
}

// AddIndex records an index.
func (b *Builder) AddIndex(i core.IndexInfo) *Builder {
	b.c.indexes[key(i.Name)] = i
	return b
}

// AddSchema records every object listed in ds.
func (b *Builder) AddSchema(ds *core.DatabaseSchema) *Builder {
	for _, t := range ds.Tables {
		b.AddTable(t)
	}
	for _, v := range ds.Views {
		b.AddView(v)
	}
	for _, r := range ds.Procedures {
		b.AddProcedure(r)
	}
	for _, r := range ds.Functions {
		b.AddFunction(r)
	}
	for _, t := range ds.Triggers {
		b.AddTrigger(t)
	}
	for _, i := range ds.TableIndexes {
		b.AddIndex(i)
	}
	return b
}

// Build derives the reverse foreign key index and returns the finished cache.
func (b *Builder) Build() *Cache {
	c := b.c
	b.c = nil

	c.reverseFKs = make(map[string][]core.ForeignKey)
	for _, k := range slices.Sorted(maps.Keys(c.fks)) {
		for _, fk := range c.fks[k] {
			ref := key(fk.RefTable)
			c.reverseFKs[ref] = append(c.reverseFKs[ref], fk)
		}
	}
	c.tableKeys = slices.Sorted(maps.Keys(c.tables))
	c.viewKeys = slices.Sorted(maps.Keys(c.views))
	return c
}
