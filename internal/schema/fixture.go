package schema

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"gopkg.in/yaml.v3"
)

// FixtureTable is a table together with its detail, as written in a fixture file.
type FixtureTable struct {
	core.TableInfo `yaml:",inline"`
	Columns        []core.ColumnInfo `yaml:"columns,omitempty" json:"columns,omitempty"`
	ForeignKeys    []core.ForeignKey `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
}

// Fixture is the YAML form of a schema, used for offline work and for
// dumping a live cache.
//
//	tables:
//	  - name: orders
//	    columns:
//	      - {name: id, type: integer, primary_key: true}
//	      - {name: customer_id, type: integer}
//	    foreign_keys:
//	      - {columns: [customer_id], ref_table: customers, ref_columns: [id]}
type Fixture struct {
	Tables     []FixtureTable     `yaml:"tables" json:"tables"`
	Views      []core.ViewInfo    `yaml:"views,omitempty" json:"views,omitempty"`
	Functions  []core.RoutineInfo `yaml:"functions,omitempty" json:"functions,omitempty"`
	Procedures []core.RoutineInfo `yaml:"procedures,omitempty" json:"procedures,omitempty"`
	Triggers   []core.TriggerInfo `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	Indexes    []core.IndexInfo   `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

// ReadFixture decodes a fixture from r.
func ReadFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse schema fixture: %w", err)
	}
	for i, t := range f.Tables {
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("schema fixture: table %d has no name", i+1)
		}
	}
	return &f, nil
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	fh, err := os.Open(path) //nolint:gosec // path comes from user config
	if err != nil {
		return nil, fmt.Errorf("failed to open schema fixture: %w", err)
	}
	defer func() { _ = fh.Close() }()
	return ReadFixture(fh)
}

// Cache builds a cache holding every object in the fixture.
func (f *Fixture) Cache() *Cache {
	b := NewBuilder().AddSchema(f.databaseSchema())
	for _, t := range f.Tables {
		if t.Columns != nil || t.ForeignKeys != nil {
			b.SetDetails(t.Name, core.TableDetails{Columns: t.Columns, ForeignKeys: t.ForeignKeys})
		}
	}
	return b.Build()
}

func (f *Fixture) databaseSchema() *core.DatabaseSchema {
	ds := &core.DatabaseSchema{
		Views:        f.Views,
		Functions:    f.Functions,
		Procedures:   f.Procedures,
		Triggers:     f.Triggers,
		TableIndexes: f.Indexes,
	}
	for _, t := range f.Tables {
		ds.Tables = append(ds.Tables, t.TableInfo)
	}
	return ds
}

// Encode writes f as YAML.
func (f *Fixture) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return enc.Close()
}

// Fixture converts the cache back into its YAML form.
func (c *Cache) Fixture() *Fixture {
	f := &Fixture{
		Views:      c.Views(),
		Functions:  c.Functions(),
		Procedures: c.Procedures(),
		Triggers:   c.Triggers(),
		Indexes:    c.Indexes(),
	}
	for _, t := range c.Tables() {
		f.Tables = append(f.Tables, FixtureTable{
			TableInfo:   t,
			Columns:     c.Columns(t.Name),
			ForeignKeys: c.ForeignKeys(t.Name),
		})
	}
	return f
}

// FixtureService serves a fixture through the adapter.SchemaService
// interface so offline sessions refresh the same way live ones do.
// The connection argument is ignored.
type FixtureService struct {
	Fixture *Fixture
}

// LoadDatabaseSchema returns the fixture's object listing.
func (s FixtureService) LoadDatabaseSchema(_ context.Context, _ adapter.Connection, _ uuid.UUID) (*core.DatabaseSchema, error) {
	return s.Fixture.databaseSchema(), nil
}

// GetTableDetails returns the fixture's columns and foreign keys for table.
func (s FixtureService) GetTableDetails(_ context.Context, _ adapter.Connection, _ uuid.UUID, table, _ string) (*core.TableDetails, error) {
	for _, t := range s.Fixture.Tables {
		if strings.EqualFold(t.Name, table) {
			return &core.TableDetails{Columns: t.Columns, ForeignKeys: t.ForeignKeys}, nil
		}
	}
	return nil, fmt.Errorf("table %s not found", table)
}

var _ adapter.SchemaService = FixtureService{}
