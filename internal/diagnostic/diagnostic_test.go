package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/internal/testutil"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/leapstack-labs/sqlsense/pkg/dialects/keyvalue"
	"github.com/leapstack-labs/sqlsense/pkg/dialects/mysql"
	"github.com/leapstack-labs/sqlsense/pkg/dialects/postgres"
	"github.com/leapstack-labs/sqlsense/pkg/dialects/sqlite"
)

var shop = schema.NewBuilder().
	AddTable(core.TableInfo{Name: "customers"}).
	AddTable(core.TableInfo{Name: "orders"}).
	AddView(core.ViewInfo{Name: "order_totals"}).
	SetDetails("customers", core.TableDetails{Columns: []core.ColumnInfo{
		{Name: "id", DataType: "INTEGER", PrimaryKey: true},
		{Name: "name", DataType: "TEXT", Nullable: true},
		{Name: "email", DataType: "TEXT", Nullable: true},
	}}).
	SetDetails("orders", core.TableDetails{Columns: []core.ColumnInfo{
		{Name: "id", DataType: "INTEGER", PrimaryKey: true},
		{Name: "customer_id", DataType: "INTEGER"},
		{Name: "total", DataType: "NUMERIC", Nullable: true},
	}}).
	Build()

func check(t *testing.T, opts Options, text string, d *dialect.Dialect) []Diagnostic {
	t.Helper()
	return NewChecker(opts, testutil.NewTestLogger(t)).Check(text, shop, d)
}

func codes(diags []Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func only(diags []Diagnostic, code string) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func TestCheck_CleanQuery(t *testing.T) {
	text := "SELECT o.id, c.name FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.total > 10"
	assert.Empty(t, check(t, DefaultOptions(), text, nil))
}

func TestCheck_DialectStringSyntax(t *testing.T) {
	tests := []struct {
		name string
		d    *dialect.Dialect
		text string
	}{
		{"postgres tagged dollar quote", postgres.Postgres, "SELECT $tag$ don't $tag$"},
		{"postgres dollar quote with odd quotes", postgres.Postgres, "SELECT $$ it's $$ FROM customers"},
		{"postgres escape string", postgres.Postgres, `SELECT E'a\'b' FROM customers`},
		{"mysql backslash escape", mysql.MySQL, `SELECT 'it\'s' FROM customers`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, check(t, DefaultOptions(), tt.text, tt.d))
		})
	}

	t.Run("other dialects keep standard strings", func(t *testing.T) {
		diags := check(t, DefaultOptions(), `SELECT 'it\'s' FROM customers`, sqlite.SQLite)
		assert.Contains(t, codes(diags), "SQL001")
	})
}

func TestCheck_Lexical(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		code    string
		message string
		start   int
		end     int
	}{
		{"unterminated string", "SELECT 'abc FROM orders", "SQL001", "Unterminated string literal", 7, 23},
		{"unterminated identifier", `SELECT "abc FROM orders`, "SQL002", "Unterminated quoted identifier", 7, 23},
		{"unterminated comment", "SELECT 1 /* note", "SQL003", "Unterminated block comment", 9, 11},
		{"unclosed paren", "SELECT (1 + 2 FROM orders", "SQL004", "Unclosed parenthesis", 7, 8},
		{"stray paren", "SELECT 1)", "SQL004", "Unmatched closing parenthesis", 8, 9},
		{"missing table", "SELECT id FROM WHERE id = 1", "SQL005", "Expected table name after FROM", 10, 14},
		{"trailing comma", "SELECT id, FROM orders", "SQL006", "Trailing comma before FROM", 9, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := check(t, DefaultOptions(), tt.text, nil)
			require.Len(t, diags, 1, "got %v", codes(diags))
			d := diags[0]
			assert.Equal(t, tt.code, d.Code)
			assert.Equal(t, GroupSyntax, d.Source)
			assert.Equal(t, core.SeverityError, d.Severity)
			assert.Equal(t, tt.message, d.Message)
			assert.Equal(t, tt.start, d.Range.Start.Offset)
			assert.Equal(t, tt.end, d.Range.End.Offset)
		})
	}
}

func TestCheck_LineColumnRanges(t *testing.T) {
	diags := check(t, DefaultOptions(), "SELECT id\nFROM orders\nWHERE (", nil)
	require.Len(t, diags, 1)
	r := diags[0].Range
	assert.Equal(t, 3, r.Start.Line)
	assert.Equal(t, 7, r.Start.Column)
	assert.Equal(t, 3, r.End.Line)
	assert.Equal(t, 8, r.End.Column)
}

func TestCheck_SQLiteGrammar(t *testing.T) {
	t.Run("incomplete statement", func(t *testing.T) {
		diags := only(check(t, DefaultOptions(), "SELECT id FROM orders WHERE", sqlite.SQLite), "SQL010")
		require.Len(t, diags, 1)
		assert.Equal(t, GroupSQLite, diags[0].Source)
		assert.Equal(t, core.SeverityError, diags[0].Severity)
		assert.Contains(t, diags[0].Message, "SQL syntax error")
	})

	t.Run("valid statement", func(t *testing.T) {
		assert.Empty(t, check(t, DefaultOptions(), "SELECT id FROM orders WHERE id = 1", sqlite.SQLite))
	})

	t.Run("second statement is offset", func(t *testing.T) {
		text := "SELECT id FROM orders;\nSELECT id FROM orders WHERE"
		diags := only(check(t, DefaultOptions(), text, sqlite.SQLite), "SQL010")
		require.Len(t, diags, 1)
		assert.Equal(t, 2, diags[0].Range.Start.Line)
	})

	t.Run("pragma is left alone", func(t *testing.T) {
		assert.Empty(t, check(t, DefaultOptions(), "PRAGMA table_info(orders)", sqlite.SQLite))
	})

	t.Run("other dialects skip the grammar", func(t *testing.T) {
		assert.Empty(t, only(check(t, DefaultOptions(), "SELECT id FROM orders WHERE", nil), "SQL010"))
	})

	t.Run("lexical errors are not repeated", func(t *testing.T) {
		diags := check(t, DefaultOptions(), "SELECT 'abc FROM orders", sqlite.SQLite)
		assert.Equal(t, []string{"SQL001"}, codes(diags))
	})
}

func TestCheck_KeyValueShortCircuits(t *testing.T) {
	assert.Nil(t, check(t, DefaultOptions(), "SET 'unterminated (", keyvalue.KeyValue))
	assert.Nil(t, check(t, DefaultOptions(), "DELETE FROM", keyvalue.KeyValue))
}

func TestCheck_Schema(t *testing.T) {
	t.Run("unknown table with suggestion", func(t *testing.T) {
		diags := check(t, DefaultOptions(), "SELECT id FROM ordrs", nil)
		require.Len(t, diags, 1)
		d := diags[0]
		assert.Equal(t, "SQL020", d.Code)
		assert.Equal(t, GroupSchema, d.Source)
		assert.Equal(t, core.SeverityWarning, d.Severity)
		assert.Equal(t, "Table 'ordrs' does not exist in schema; did you mean 'orders'?", d.Message)
		assert.Equal(t, 15, d.Range.Start.Offset)
		assert.Equal(t, 20, d.Range.End.Offset)
	})

	t.Run("unknown joined table", func(t *testing.T) {
		diags := check(t, DefaultOptions(), "SELECT o.id FROM orders o JOIN custmers c ON c.id = o.customer_id", nil)
		require.Equal(t, []string{"SQL020"}, codes(diags))
		assert.Contains(t, diags[0].Message, "did you mean 'customers'?")
	})

	t.Run("unknown qualified column", func(t *testing.T) {
		diags := check(t, DefaultOptions(), "SELECT o.totl FROM orders o", nil)
		require.Len(t, diags, 1)
		d := diags[0]
		assert.Equal(t, "SQL021", d.Code)
		assert.Equal(t, "Column 'totl' does not exist in table 'orders'; did you mean 'total'?", d.Message)
		assert.Equal(t, 9, d.Range.Start.Offset)
		assert.Equal(t, 13, d.Range.End.Offset)
	})

	quiet := []struct {
		name string
		text string
	}{
		{"view", "SELECT id FROM order_totals"},
		{"cte", "WITH x AS (SELECT id FROM orders) SELECT id FROM x"},
		{"cte column", "WITH x AS (SELECT id FROM orders) SELECT x.anything FROM x"},
		{"unknown schema", "SELECT id FROM pg_catalog.pg_tables"},
		{"table function", "SELECT id FROM generate_series(1, 3)"},
		{"ddl", "CREATE TABLE fresh (id INTEGER)"},
		{"derived table", "SELECT t.whatever FROM (SELECT id FROM orders) t"},
		{"function call", "SELECT o.id FROM orders o WHERE pg_catalog.lower(o.id) = 'x'"},
	}
	for _, tt := range quiet {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, check(t, DefaultOptions(), tt.text, nil))
		})
	}

	t.Run("empty cache skips schema rules", func(t *testing.T) {
		diags := NewChecker(DefaultOptions(), nil).Check("SELECT x.y FROM nope x", schema.Empty(), nil)
		assert.Empty(t, diags)
	})
}

func TestCheck_Practices(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		code    string
		message string
		start   int
		end     int
	}{
		{"select star", "SELECT * FROM orders", "SQL030",
			"Consider specifying explicit column names instead of SELECT *", 0, 8},
		{"update without where", "UPDATE orders SET total = 0", "SQL031",
			"UPDATE without WHERE clause will affect all rows", 0, 6},
		{"delete without where", "DELETE FROM orders", "SQL031",
			"DELETE without WHERE clause will affect all rows", 0, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := check(t, DefaultOptions(), tt.text, nil)
			require.Len(t, diags, 1, "got %v", codes(diags))
			d := diags[0]
			assert.Equal(t, tt.code, d.Code)
			assert.Equal(t, GroupBestPractices, d.Source)
			assert.Equal(t, tt.message, d.Message)
			assert.Equal(t, tt.start, d.Range.Start.Offset)
			assert.Equal(t, tt.end, d.Range.End.Offset)
		})
	}

	t.Run("severities", func(t *testing.T) {
		star := check(t, DefaultOptions(), "SELECT * FROM orders", nil)
		require.Len(t, star, 1)
		assert.Equal(t, core.SeverityInfo, star[0].Severity)

		del := check(t, DefaultOptions(), "DELETE FROM orders", nil)
		require.Len(t, del, 1)
		assert.Equal(t, core.SeverityWarning, del[0].Severity)
	})

	quiet := []struct {
		name string
		text string
	}{
		{"exists subquery", "SELECT id FROM orders WHERE EXISTS (SELECT * FROM customers)"},
		{"count star", "SELECT COUNT(*) FROM orders"},
		{"filtered delete", "DELETE FROM orders WHERE id = 1"},
		{"upsert", "INSERT INTO orders (id) VALUES (1) ON CONFLICT (id) DO UPDATE SET total = 0"},
		{"locking read", "SELECT id FROM orders FOR UPDATE"},
		{"trigger body", "CREATE TRIGGER t AFTER UPDATE ON orders BEGIN DELETE FROM customers; END"},
	}
	for _, tt := range quiet {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, only(check(t, DefaultOptions(), tt.text, nil), "SQL030"))
			assert.Empty(t, only(check(t, DefaultOptions(), tt.text, nil), "SQL031"))
		})
	}
}

func TestCheck_InjectionPattern(t *testing.T) {
	text := "SELECT id FROM customers WHERE name = ''; DROP TABLE customers; --"
	diags := only(check(t, DefaultOptions(), text, nil), "SQL032")
	require.Len(t, diags, 1)
	assert.Equal(t, GroupSecurity, diags[0].Source)
	assert.Equal(t, core.SeverityError, diags[0].Severity)
	assert.Equal(t, "Potential SQL injection pattern detected", diags[0].Message)
	assert.Equal(t, 42, diags[0].Range.Start.Offset)
	assert.Equal(t, 46, diags[0].Range.End.Offset)
}

func TestCheck_Options(t *testing.T) {
	t.Run("best practices off", func(t *testing.T) {
		opts := DefaultOptions()
		opts.BestPractices = false
		assert.Empty(t, check(t, opts, "SELECT * FROM orders", nil))
	})

	t.Run("schema validation off", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SchemaValidation = false
		assert.Empty(t, check(t, opts, "SELECT id FROM ordrs", nil))
	})

	t.Run("disabled rule", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Disabled = []string{"SQL030"}
		assert.Empty(t, check(t, opts, "SELECT * FROM orders", nil))
	})

	t.Run("severity override", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Severity = map[string]core.Severity{"SQL030": core.SeverityHint}
		diags := check(t, opts, "SELECT * FROM orders", nil)
		require.Len(t, diags, 1)
		assert.Equal(t, core.SeverityHint, diags[0].Severity)
	})

	t.Run("tree-sitter gated", func(t *testing.T) {
		text := "SELECT id FROM orders WHERE ((("
		assert.Empty(t, only(check(t, DefaultOptions(), text, nil), "SQL011"))

		opts := DefaultOptions()
		opts.TreeSitter = true
		diags := only(check(t, opts, text, nil), "SQL011")
		require.NotEmpty(t, diags)
		assert.Equal(t, GroupTreeSitter, diags[0].Source)
	})
}

func TestCheck_SortedByPosition(t *testing.T) {
	diags := check(t, DefaultOptions(), "SELECT * FROM ordrs WHERE (", nil)
	require.Equal(t, []string{"SQL030", "SQL020", "SQL004"}, codes(diags))
	for i := 1; i < len(diags); i++ {
		assert.LessOrEqual(t, diags[i-1].Range.Start.Offset, diags[i].Range.Start.Offset)
	}
}

func TestRules_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Rules() {
		assert.False(t, seen[r.ID], "duplicate rule %s", r.ID)
		seen[r.ID] = true
		assert.NotEmpty(t, r.Group)
		assert.NotNil(t, r.Check)
	}
}

func TestSuggest(t *testing.T) {
	names := []string{"customers", "orders", "order_totals"}
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ordrs", "orders", true},
		{"ordars", "orders", true},
		{"xy", "", false},
		{"zzzzzz", "", false},
	}
	for _, tt := range tests {
		got, ok := suggest(tt.in, names)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
