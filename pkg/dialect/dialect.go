// Package dialect provides SQL dialect descriptors: keyword sets, data types,
// the function catalog with scalar/aggregate classification, and signature
// metadata used by completion, hover, and signature help.
//
// Concrete dialects are registered from pkg/dialects/*/ packages. Lookups by
// driver identifier go through For, which never fails.
package dialect

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the dialect families the engine distinguishes.
type Kind int

const (
	// Generic is used when the driver is unknown. It accepts every keyword.
	Generic Kind = iota
	// SQLite covers SQLite and its forks (libSQL, Turso).
	SQLite
	// MySQL covers MySQL and MariaDB.
	MySQL
	// PostgreSQL covers PostgreSQL and wire-compatible engines.
	PostgreSQL
	// SQLServer covers Microsoft SQL Server.
	SQLServer
	// KeyValueStore covers command-oriented stores such as Redis.
	KeyValueStore
)

// String returns the lowercase registry name of the kind.
func (k Kind) String() string {
	switch k {
	case Generic:
		return "generic"
	case SQLite:
		return "sqlite"
	case MySQL:
		return "mysql"
	case PostgreSQL:
		return "postgres"
	case SQLServer:
		return "sqlserver"
	case KeyValueStore:
		return "keyvalue"
	default:
		return "unknown"
	}
}

// PlaceholderStyle defines how query parameters are written.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for every parameter.
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, ...
	PlaceholderDollar
	// PlaceholderAtP uses @p1, @p2, ...
	PlaceholderAtP
)

// Param describes one function parameter.
type Param struct {
	Name        string
	Type        string
	Optional    bool
	Description string
}

// Signature is one overload of a function.
type Signature struct {
	Label  string // e.g. "SUBSTR(string, start [, length])"
	Params []Param
}

// Function is an entry of the dialect function catalog.
type Function struct {
	Name        string
	Aggregate   bool
	Description string
	ReturnType  string
	Signatures  []Signature
}

// Category returns a human-readable classification.
func (f *Function) Category() string {
	if f.Aggregate {
		return "Aggregate Function"
	}
	return "Function"
}

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	DisplayName string
	Kind        Kind

	// Database-specific settings
	DefaultSchema string
	Placeholder   PlaceholderStyle
	IdentQuote    string
	Strings       StringSyntax

	keywords     []string
	keywordSet   map[string]struct{}
	dataTypes    []string
	functions    map[string]*Function
	funcOrder    []string
	keywordDocs  map[string]string
	statementKws []string
	fromKws      []string
	crossKws     []string
	sqlGrammar   bool
}

// Keywords returns the dialect's keyword list in declaration order.
func (d *Dialect) Keywords() []string {
	return d.keywords
}

// IsKeyword reports whether word is a keyword of this dialect (case-insensitive).
func (d *Dialect) IsKeyword(word string) bool {
	_, ok := d.keywordSet[strings.ToUpper(word)]
	return ok
}

// DataTypes returns the dialect's data type names.
func (d *Dialect) DataTypes() []string {
	return d.dataTypes
}

// Functions returns every catalog function sorted by name.
func (d *Dialect) Functions() []*Function {
	out := make([]*Function, 0, len(d.funcOrder))
	for _, name := range d.funcOrder {
		out = append(out, d.functions[name])
	}
	return out
}

// ScalarFunctions returns the non-aggregate functions sorted by name.
func (d *Dialect) ScalarFunctions() []*Function {
	var out []*Function
	for _, name := range d.funcOrder {
		if f := d.functions[name]; !f.Aggregate {
			out = append(out, f)
		}
	}
	return out
}

// AggregateFunctions returns the aggregate functions sorted by name.
func (d *Dialect) AggregateFunctions() []*Function {
	var out []*Function
	for _, name := range d.funcOrder {
		if f := d.functions[name]; f.Aggregate {
			out = append(out, f)
		}
	}
	return out
}

// Function looks up a function by name (case-insensitive).
func (d *Dialect) Function(name string) (*Function, bool) {
	f, ok := d.functions[strings.ToUpper(name)]
	return f, ok
}

// IsAggregate reports whether name is a known aggregate function.
func (d *Dialect) IsAggregate(name string) bool {
	f, ok := d.Function(name)
	return ok && f.Aggregate
}

// KeywordDoc returns the static documentation for a keyword.
func (d *Dialect) KeywordDoc(word string) (string, bool) {
	doc, ok := d.keywordDocs[strings.ToUpper(word)]
	return doc, ok
}

// StatementKeywords returns the dialect-specific keywords that may start a statement
// in addition to the standard ones.
func (d *Dialect) StatementKeywords() []string {
	return d.statementKws
}

// FromKeywords returns keywords legal immediately inside a FROM clause.
func (d *Dialect) FromKeywords() []string {
	return d.fromKws
}

// CrossDialectKeywords returns keywords borrowed from other dialects.
// Only the generic dialect carries any.
func (d *Dialect) CrossDialectKeywords() []string {
	return d.crossKws
}

// HasSQLGrammar reports whether text in this dialect can be parsed as SQL.
func (d *Dialect) HasSQLGrammar() bool {
	return d.sqlGrammar
}

// FormatPlaceholder returns the placeholder for the given 1-based parameter index.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	case PlaceholderAtP:
		return "@p" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// QuoteIdentifier wraps name in the dialect's identifier quotes.
func (d *Dialect) QuoteIdentifier(name string) string {
	q := d.IdentQuote
	if q == "" {
		q = `"`
	}
	end := q
	if q == "[" {
		end = "]"
	}
	return q + strings.ReplaceAll(name, end, end+end) + end
}

// StringSyntax lists the string literal forms a dialect accepts besides
// '...' with doubled quotes.
type StringSyntax struct {
	// DollarQuoted allows $$...$$ and $tag$...$tag$ bodies.
	DollarQuoted bool
	// EscapePrefix allows E'...' literals, in which a backslash escapes.
	EscapePrefix bool
	// Backslash makes a backslash escape the next byte in every '...' literal.
	Backslash bool
}

// --- Builder ---

// Builder assembles an immutable Dialect.
type Builder struct {
	d *Dialect
}

// NewDialect starts a builder for a dialect with the given registry name and kind.
func NewDialect(name string, kind Kind) *Builder {
	return &Builder{d: &Dialect{
		Name:        name,
		DisplayName: name,
		Kind:        kind,
		keywordSet:  make(map[string]struct{}),
		functions:   make(map[string]*Function),
		keywordDocs: make(map[string]string),
		sqlGrammar:  true,
	}}
}

// Extend copies keywords, types, functions and docs from base.
// Later builder calls add to or override the inherited entries.
func (b *Builder) Extend(base *Dialect) *Builder {
	b.Keywords(base.keywords...)
	b.DataTypes(base.dataTypes...)
	for _, name := range base.funcOrder {
		f := *base.functions[name]
		b.d.functions[name] = &f
	}
	for k, v := range base.keywordDocs {
		b.d.keywordDocs[k] = v
	}
	b.d.fromKws = append(b.d.fromKws, base.fromKws...)
	if b.d.DefaultSchema == "" {
		b.d.DefaultSchema = base.DefaultSchema
	}
	return b
}

// DisplayName sets the human-facing name.
func (b *Builder) DisplayName(name string) *Builder {
	b.d.DisplayName = name
	return b
}

// Keywords appends keywords, ignoring duplicates.
func (b *Builder) Keywords(kws ...string) *Builder {
	for _, kw := range kws {
		up := strings.ToUpper(kw)
		if _, ok := b.d.keywordSet[up]; ok {
			continue
		}
		b.d.keywordSet[up] = struct{}{}
		b.d.keywords = append(b.d.keywords, up)
	}
	return b
}

// DataTypes appends data type names, ignoring duplicates.
func (b *Builder) DataTypes(types ...string) *Builder {
	seen := make(map[string]struct{}, len(b.d.dataTypes))
	for _, t := range b.d.dataTypes {
		seen[t] = struct{}{}
	}
	for _, t := range types {
		up := strings.ToUpper(t)
		if _, ok := seen[up]; ok {
			continue
		}
		seen[up] = struct{}{}
		b.d.dataTypes = append(b.d.dataTypes, up)
	}
	return b
}

// Functions adds or replaces catalog entries.
func (b *Builder) Functions(fns ...Function) *Builder {
	for i := range fns {
		f := fns[i]
		f.Name = strings.ToUpper(f.Name)
		for j := range f.Signatures {
			if f.Signatures[j].Label == "" {
				f.Signatures[j].Label = formatLabel(f.Name, f.Signatures[j].Params)
			}
		}
		b.d.functions[f.Name] = &f
	}
	return b
}

// KeywordDocs adds static keyword documentation.
func (b *Builder) KeywordDocs(docs map[string]string) *Builder {
	for k, v := range docs {
		b.d.keywordDocs[strings.ToUpper(k)] = v
	}
	return b
}

// StatementKeywords sets the dialect-specific statement starters.
func (b *Builder) StatementKeywords(kws ...string) *Builder {
	b.d.statementKws = append(b.d.statementKws, kws...)
	return b.Keywords(kws...)
}

// FromKeywords sets the keywords offered inside a FROM clause.
func (b *Builder) FromKeywords(kws ...string) *Builder {
	b.d.fromKws = append(b.d.fromKws, kws...)
	return b
}

// CrossDialectKeywords sets keywords borrowed from other dialects.
func (b *Builder) CrossDialectKeywords(kws ...string) *Builder {
	b.d.crossKws = append(b.d.crossKws, kws...)
	return b
}

// DefaultSchema sets the schema assumed for unqualified names.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.d.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets the parameter placeholder style.
func (b *Builder) PlaceholderStyle(style PlaceholderStyle) *Builder {
	b.d.Placeholder = style
	return b
}

// IdentQuote sets the opening identifier quote character.
func (b *Builder) IdentQuote(q string) *Builder {
	b.d.IdentQuote = q
	return b
}

// StringSyntax sets the accepted string literal forms.
func (b *Builder) StringSyntax(ss StringSyntax) *Builder {
	b.d.Strings = ss
	return b
}

// WithoutSQLGrammar marks the dialect as command-oriented (no SQL parsing).
func (b *Builder) WithoutSQLGrammar() *Builder {
	b.d.sqlGrammar = false
	return b
}

// Build finalizes the dialect.
func (b *Builder) Build() *Dialect {
	d := b.d
	d.funcOrder = make([]string, 0, len(d.functions))
	for name := range d.functions {
		d.funcOrder = append(d.funcOrder, name)
	}
	sort.Strings(d.funcOrder)
	return d
}

func formatLabel(name string, params []Param) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	optional := 0
	for i, p := range params {
		if p.Optional {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte('[')
			optional++
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
	}
	sb.WriteString(strings.Repeat("]", optional))
	sb.WriteByte(')')
	return sb.String()
}

// Fn is shorthand for declaring a scalar function with a single signature.
func Fn(name, description, returnType string, params ...Param) Function {
	return Function{
		Name:        name,
		Description: description,
		ReturnType:  returnType,
		Signatures:  []Signature{{Params: params}},
	}
}

// Agg is shorthand for declaring an aggregate function with a single signature.
func Agg(name, description, returnType string, params ...Param) Function {
	f := Fn(name, description, returnType, params...)
	f.Aggregate = true
	return f
}

// P declares a required parameter.
func P(name, typ string) Param {
	return Param{Name: name, Type: typ}
}

// Opt declares an optional parameter.
func Opt(name, typ string) Param {
	return Param{Name: name, Type: typ, Optional: true}
}

// String implements fmt.Stringer for debugging output.
func (d *Dialect) String() string {
	return fmt.Sprintf("%s (%s)", d.DisplayName, d.Kind)
}
