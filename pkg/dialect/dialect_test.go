package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Generic, "generic"},
		{SQLite, "sqlite"},
		{MySQL, "mysql"},
		{PostgreSQL, "postgres"},
		{SQLServer, "sqlserver"},
		{KeyValueStore, "keyvalue"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		driver string
		want   Kind
	}{
		{"sqlite", SQLite},
		{"SQLite3", SQLite},
		{"libsql", SQLite},
		{"mysql", MySQL},
		{"MariaDB", MySQL},
		{"postgres", PostgreSQL},
		{"postgresql", PostgreSQL},
		{"pgx", PostgreSQL},
		{"duckdb", PostgreSQL},
		{"sqlserver", SQLServer},
		{"mssql", SQLServer},
		{"redis", KeyValueStore},
		{"clickhouse", Generic},
		{"", Generic},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			assert.Equal(t, tt.want, KindFor(tt.driver))
		})
	}
}

func TestForIsTotal(t *testing.T) {
	// Nothing registers a key-value dialect in this package's tests,
	// so the lookup must still produce a usable dialect.
	d := ForKind(KeyValueStore)
	require.NotNil(t, d)
	assert.NotEmpty(t, d.Keywords())
}

func TestFunctionClassification(t *testing.T) {
	d := NewDialect("test", Generic).
		Functions(
			Agg("count", "Counts rows.", "INTEGER", P("expr", "any")),
			Fn("upper", "Upper case.", "TEXT", P("s", "text")),
		).
		Build()

	assert.True(t, d.IsAggregate("COUNT"))
	assert.True(t, d.IsAggregate("count"))
	assert.False(t, d.IsAggregate("UPPER"))
	assert.False(t, d.IsAggregate("missing"))

	require.Len(t, d.ScalarFunctions(), 1)
	assert.Equal(t, "UPPER", d.ScalarFunctions()[0].Name)
	require.Len(t, d.AggregateFunctions(), 1)
	assert.Equal(t, "COUNT", d.AggregateFunctions()[0].Name)

	f, ok := d.Function("Upper")
	require.True(t, ok)
	assert.Equal(t, "Function", f.Category())
}

func TestSignatureLabel(t *testing.T) {
	tests := []struct {
		name   string
		fn     Function
		expect string
	}{
		{"no params", Fn("now", "", ""), "NOW()"},
		{"required", Fn("upper", "", "", P("string", "text")), "UPPER(string)"},
		{"optional tail", Fn("substr", "", "", P("string", "text"), P("start", "int"), Opt("length", "int")), "SUBSTR(string, start [, length])"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDialect("test", Generic).Functions(tt.fn).Build()
			f, ok := d.Function(tt.fn.Name)
			require.True(t, ok)
			assert.Equal(t, tt.expect, f.Signatures[0].Label)
		})
	}
}

func TestBuilderDeduplicatesKeywords(t *testing.T) {
	d := NewDialect("test", Generic).
		Keywords("select", "SELECT", "from").
		StatementKeywords("PRAGMA").
		Build()

	assert.Equal(t, []string{"SELECT", "FROM", "PRAGMA"}, d.Keywords())
	assert.True(t, d.IsKeyword("pragma"))
	assert.Equal(t, []string{"PRAGMA"}, d.StatementKeywords())
}

func TestExtendCopiesCatalog(t *testing.T) {
	base := NewDialect("base", Generic).
		Keywords("SELECT").
		Functions(Fn("upper", "", "TEXT", P("s", "text"))).
		KeywordDocs(map[string]string{"SELECT": "doc"}).
		DefaultSchema("main").
		Build()

	child := NewDialect("child", SQLite).
		Extend(base).
		Keywords("PRAGMA").
		Build()

	assert.True(t, child.IsKeyword("SELECT"))
	assert.True(t, child.IsKeyword("PRAGMA"))
	assert.False(t, base.IsKeyword("PRAGMA"))
	_, ok := child.Function("UPPER")
	assert.True(t, ok)
	doc, ok := child.KeywordDoc("select")
	assert.True(t, ok)
	assert.Equal(t, "doc", doc)
	assert.Equal(t, "main", child.DefaultSchema)
}

func TestFormatPlaceholder(t *testing.T) {
	tests := []struct {
		style PlaceholderStyle
		want  string
	}{
		{PlaceholderQuestion, "?"},
		{PlaceholderDollar, "$2"},
		{PlaceholderAtP, "@p2"},
	}

	for _, tt := range tests {
		d := NewDialect("test", Generic).PlaceholderStyle(tt.style).Build()
		assert.Equal(t, tt.want, d.FormatPlaceholder(2))
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"order"`, NewDialect("a", Generic).Build().QuoteIdentifier("order"))
	assert.Equal(t, "`order`", NewDialect("b", MySQL).IdentQuote("`").Build().QuoteIdentifier("order"))
	assert.Equal(t, "[order]", NewDialect("c", SQLServer).IdentQuote("[").Build().QuoteIdentifier("order"))
}
