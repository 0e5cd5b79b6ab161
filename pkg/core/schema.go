package core

import "strings"

// ObjectKind classifies a schema object.
type ObjectKind string

// Schema object kinds.
const (
	KindTable     ObjectKind = "table"
	KindView      ObjectKind = "view"
	KindColumn    ObjectKind = "column"
	KindFunction  ObjectKind = "function"
	KindProcedure ObjectKind = "procedure"
	KindTrigger   ObjectKind = "trigger"
	KindIndex     ObjectKind = "index"
)

// TableInfo describes a base table.
type TableInfo struct {
	Name     string `yaml:"name" json:"name"`
	Schema   string `yaml:"schema,omitempty" json:"schema,omitempty"`
	Comment  string `yaml:"comment,omitempty" json:"comment,omitempty"`
	RowCount int64  `yaml:"row_count,omitempty" json:"row_count,omitempty"`
}

// QualifiedName returns schema.name, or name when no schema is known.
func (t TableInfo) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// ViewInfo describes a view and its defining query.
type ViewInfo struct {
	Name       string `yaml:"name" json:"name"`
	Schema     string `yaml:"schema,omitempty" json:"schema,omitempty"`
	Definition string `yaml:"definition,omitempty" json:"definition,omitempty"`
	Comment    string `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// ColumnInfo describes a table or view column.
type ColumnInfo struct {
	Name         string `yaml:"name" json:"name"`
	DataType     string `yaml:"type" json:"type"`
	Nullable     bool   `yaml:"nullable" json:"nullable"`
	PrimaryKey   bool   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	DefaultValue string `yaml:"default,omitempty" json:"default,omitempty"`
	Comment      string `yaml:"comment,omitempty" json:"comment,omitempty"`
	Position     int    `yaml:"position,omitempty" json:"position,omitempty"`
}

// ForeignKey is a foreign key constraint from Table(Columns) to RefTable(RefColumns).
type ForeignKey struct {
	Name       string   `yaml:"name,omitempty" json:"name,omitempty"`
	Table      string   `yaml:"table" json:"table"`
	Columns    []string `yaml:"columns" json:"columns"`
	RefTable   string   `yaml:"ref_table" json:"ref_table"`
	RefColumns []string `yaml:"ref_columns" json:"ref_columns"`
}

// String renders the key as "cols → ref(refcols)".
func (fk ForeignKey) String() string {
	return strings.Join(fk.Columns, ", ") + " → " + fk.RefTable + "(" + strings.Join(fk.RefColumns, ", ") + ")"
}

// IndexInfo describes an index.
type IndexInfo struct {
	Name    string   `yaml:"name" json:"name"`
	Table   string   `yaml:"table" json:"table"`
	Columns []string `yaml:"columns" json:"columns"`
	Unique  bool     `yaml:"unique,omitempty" json:"unique,omitempty"`
	Primary bool     `yaml:"primary,omitempty" json:"primary,omitempty"`
}

// TriggerInfo describes a trigger.
type TriggerInfo struct {
	Name       string `yaml:"name" json:"name"`
	Table      string `yaml:"table" json:"table"`
	Timing     string `yaml:"timing,omitempty" json:"timing,omitempty"` // BEFORE, AFTER, INSTEAD OF
	Event      string `yaml:"event,omitempty" json:"event,omitempty"`   // INSERT, UPDATE, DELETE
	Definition string `yaml:"definition,omitempty" json:"definition,omitempty"`
}

// ParamMode is the direction of a routine parameter.
type ParamMode string

// Routine parameter modes.
const (
	ParamIn    ParamMode = "IN"
	ParamOut   ParamMode = "OUT"
	ParamInOut ParamMode = "INOUT"
)

// RoutineParam is one parameter of a stored function or procedure.
type RoutineParam struct {
	Name     string    `yaml:"name" json:"name"`
	DataType string    `yaml:"type" json:"type"`
	Mode     ParamMode `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// RoutineInfo describes a user-defined function or stored procedure.
type RoutineInfo struct {
	Name       string         `yaml:"name" json:"name"`
	Schema     string         `yaml:"schema,omitempty" json:"schema,omitempty"`
	ReturnType string         `yaml:"returns,omitempty" json:"returns,omitempty"`
	Params     []RoutineParam `yaml:"params,omitempty" json:"params,omitempty"`
	Language   string         `yaml:"language,omitempty" json:"language,omitempty"`
	Aggregate  bool           `yaml:"aggregate,omitempty" json:"aggregate,omitempty"`
	Definition string         `yaml:"definition,omitempty" json:"definition,omitempty"`
}

// DatabaseSchema is the result of listing a database's objects.
// Column and key details are fetched per table separately.
type DatabaseSchema struct {
	Tables       []TableInfo   `yaml:"tables" json:"tables"`
	Views        []ViewInfo    `yaml:"views,omitempty" json:"views,omitempty"`
	Triggers     []TriggerInfo `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	Functions    []RoutineInfo `yaml:"functions,omitempty" json:"functions,omitempty"`
	Procedures   []RoutineInfo `yaml:"procedures,omitempty" json:"procedures,omitempty"`
	TableIndexes []IndexInfo   `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

// TableDetails holds the per-table detail fetched after listing.
type TableDetails struct {
	Columns     []ColumnInfo `yaml:"columns" json:"columns"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
}
