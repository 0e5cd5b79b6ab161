package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cursor splits input at the | marker and returns the text and offset.
func cursor(t *testing.T, input string) (string, int) {
	t.Helper()
	i := strings.Index(input, "|")
	require.GreaterOrEqual(t, i, 0, "missing | cursor marker")
	return input[:i] + input[i+1:], i
}

func names(refs []TableRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Alias != "" {
			out = append(out, r.Name+" "+r.Alias)
			continue
		}
		out = append(out, r.Name)
	}
	return out
}

func TestPrimary_Kinds(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Kind
		tables []string
	}{
		{"select no from", "SELECT |", SelectList, []string{}},
		{"select with from later", "SELECT | FROM users u", SelectList, []string{"users u"}},
		{"select partial word", "SELECT na| FROM users", SelectList, []string{"users"}},
		{"from", "SELECT * FROM |", FromClause, nil},
		{"from partial", "SELECT * FROM us|", FromClause, nil},
		{"from after table", "SELECT * FROM users |", FromClause, nil},
		{"from after alias", "SELECT * FROM users u |", General, nil},
		{"from after AS", "SELECT * FROM users AS |", General, nil},
		{"from comma", "SELECT * FROM users u, |", FromClause, nil},
		{"join", "SELECT * FROM orders o JOIN |", JoinClause, []string{"orders o"}},
		{"left join", "SELECT * FROM orders o LEFT OUTER JOIN |", JoinClause, []string{"orders o"}},
		{"join done", "SELECT * FROM orders o JOIN customers c |", General, nil},
		{"on", "SELECT * FROM orders o JOIN customers c ON |", ConditionClause, []string{"orders o", "customers c"}},
		{"where", "SELECT * FROM users WHERE |", ConditionClause, []string{"users"}},
		{"where and", "SELECT * FROM users WHERE id = 1 AND |", ConditionClause, []string{"users"}},
		{"having", "SELECT count(*) FROM users GROUP BY name HAVING |", ConditionClause, []string{"users"}},
		{"group by", "SELECT * FROM users GROUP BY |", SelectList, []string{"users"}},
		{"order by", "SELECT * FROM users ORDER BY |", SelectList, []string{"users"}},
		{"update target", "UPDATE |", FromClause, nil},
		{"update set", "UPDATE users SET |", ConditionClause, []string{"users"}},
		{"insert into", "INSERT INTO |", FromClause, nil},
		{"insert column list", "INSERT INTO users (|", SelectList, []string{"users"}},
		{"insert without into", "INSERT |", General, nil},
		{"delete from", "DELETE FROM |", FromClause, nil},
		{"drop table", "DROP TABLE |", FromClause, nil},
		{"create keyword", "CREATE |", General, nil},
		{"create table columns", "CREATE TABLE t (|", General, nil},
		{"create index on", "CREATE INDEX idx ON |", FromClause, nil},
		{"empty", "|", General, nil},
		{"keyword being typed", "sel|", General, nil},
		{"limit", "SELECT * FROM users LIMIT |", General, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, off := cursor(t, tt.input)
			ctx := Primary(text, off)
			assert.Equal(t, tt.want, ctx.Kind, "kind %s", ctx.Kind)
			if tt.tables != nil {
				assert.Equal(t, tt.tables, names(ctx.Tables))
			}
		})
	}
}

func TestPrimary_AliasScoping(t *testing.T) {
	text, off := cursor(t, "SELECT * FROM orders o JOIN customers c ON o.customer_id = c.id WHERE c.|")
	ctx := Primary(text, off)

	require.Equal(t, AfterDot, ctx.Kind)
	assert.Equal(t, "c", ctx.Identifier)
	require.NotNil(t, ctx.Target)
	assert.Equal(t, "customers", ctx.Target.Name)
	assert.Equal(t, []string{"orders o", "customers c"}, names(ctx.Tables))
}

func TestPrimary_AfterDotPartialWord(t *testing.T) {
	text, off := cursor(t, "SELECT o.tot| FROM orders o")
	ctx := Primary(text, off)
	require.Equal(t, AfterDot, ctx.Kind)
	assert.Equal(t, "o", ctx.Identifier)
	require.NotNil(t, ctx.Target)
	assert.Equal(t, "orders", ctx.Target.Name)
}

func TestPrimary_AfterDotQuoted(t *testing.T) {
	text, off := cursor(t, `SELECT "Order Items".| FROM "Order Items"`)
	ctx := Primary(text, off)
	require.Equal(t, AfterDot, ctx.Kind)
	assert.Equal(t, "Order Items", ctx.Identifier)
	require.NotNil(t, ctx.Target)
	assert.Equal(t, "Order Items", ctx.Target.Name)
}

func TestPrimary_AfterDotUnknown(t *testing.T) {
	text, off := cursor(t, "SELECT x.| FROM orders o")
	ctx := Primary(text, off)
	require.Equal(t, AfterDot, ctx.Kind)
	assert.Equal(t, "x", ctx.Identifier)
	assert.Nil(t, ctx.Target)
}

func TestPrimary_NestedScopes(t *testing.T) {
	t.Run("inner alias shadows outer", func(t *testing.T) {
		text, off := cursor(t, "SELECT * FROM users c WHERE EXISTS (SELECT 1 FROM customers c WHERE c.|)")
		ctx := Primary(text, off)
		require.NotNil(t, ctx.Target)
		assert.Equal(t, "customers", ctx.Target.Name)
		assert.Equal(t, []string{"customers c"}, names(ctx.Tables))
	})

	t.Run("outer alias visible from subquery", func(t *testing.T) {
		text, off := cursor(t, "SELECT * FROM users u WHERE EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.|)")
		ctx := Primary(text, off)
		require.NotNil(t, ctx.Target)
		assert.Equal(t, "users", ctx.Target.Name)
	})

	t.Run("outer query after subquery", func(t *testing.T) {
		text, off := cursor(t, "SELECT * FROM users u WHERE u.id IN (SELECT user_id FROM orders o) AND |")
		ctx := Primary(text, off)
		assert.Equal(t, ConditionClause, ctx.Kind)
		assert.Equal(t, []string{"users u"}, names(ctx.Tables))
	})

	t.Run("subquery condition sees only its tables", func(t *testing.T) {
		text, off := cursor(t, "SELECT * FROM users u WHERE u.id IN (SELECT user_id FROM orders o WHERE |)")
		ctx := Primary(text, off)
		assert.Equal(t, ConditionClause, ctx.Kind)
		assert.Equal(t, []string{"orders o"}, names(ctx.Tables))
	})
}

func TestPrimary_Subquery(t *testing.T) {
	text, off := cursor(t, "SELECT * FROM orders o WHERE o.customer_id IN (SELECT |")
	ctx := Primary(text, off)
	assert.Equal(t, Subquery, ctx.Kind)
	assert.Equal(t, []string{"orders o"}, names(ctx.Tables))

	// A subquery with its own FROM is an ordinary select list.
	text, off = cursor(t, "SELECT * FROM orders o WHERE o.customer_id IN (SELECT | FROM customers)")
	ctx = Primary(text, off)
	assert.Equal(t, SelectList, ctx.Kind)
	assert.Equal(t, []string{"customers"}, names(ctx.Tables))
}

func TestPrimary_CTE(t *testing.T) {
	t.Run("body start", func(t *testing.T) {
		text, off := cursor(t, "WITH recent AS (|")
		ctx := Primary(text, off)
		assert.Equal(t, CommonTableExpression, ctx.Kind)
		assert.Equal(t, "recent", ctx.CTEName)
	})

	t.Run("between definitions and query", func(t *testing.T) {
		text, off := cursor(t, "WITH recent AS (SELECT 1), big AS (SELECT 2) |")
		ctx := Primary(text, off)
		assert.Equal(t, CommonTableExpression, ctx.Kind)
		assert.Equal(t, "big", ctx.CTEName)
	})

	t.Run("names visible", func(t *testing.T) {
		text, off := cursor(t, "WITH recent AS (SELECT id FROM orders) SELECT * FROM |")
		ctx := Primary(text, off)
		assert.Equal(t, FromClause, ctx.Kind)
		assert.Equal(t, []string{"recent"}, ctx.CTEs)
	})

	t.Run("cte columns", func(t *testing.T) {
		text, off := cursor(t, "WITH recent AS (SELECT id, total AS amount, count(*) n FROM orders) SELECT r.| FROM recent r")
		ctx := Primary(text, off)
		require.Equal(t, AfterDot, ctx.Kind)
		require.NotNil(t, ctx.Target)
		assert.True(t, ctx.Target.CTE)
		assert.Equal(t, []string{"id", "amount", "n"}, ctx.Target.Columns)
	})

	t.Run("declared cte columns", func(t *testing.T) {
		text, off := cursor(t, "WITH recent(a, b) AS (SELECT id, total FROM orders) SELECT recent.| FROM recent")
		ctx := Primary(text, off)
		require.NotNil(t, ctx.Target)
		assert.Equal(t, []string{"a", "b"}, ctx.Target.Columns)
	})

	t.Run("cte star", func(t *testing.T) {
		text, off := cursor(t, "WITH x AS (SELECT * FROM orders) SELECT x.| FROM x")
		ctx := Primary(text, off)
		require.NotNil(t, ctx.Target)
		assert.Empty(t, ctx.Target.Columns)
		assert.Equal(t, []string{"orders"}, names(ctx.Target.Sources))
	})
}

func TestPrimary_DerivedTable(t *testing.T) {
	text, off := cursor(t, "SELECT d.| FROM (SELECT id, o.total AS amount FROM orders o) d")
	ctx := Primary(text, off)
	require.Equal(t, AfterDot, ctx.Kind)
	require.NotNil(t, ctx.Target)
	assert.True(t, ctx.Target.Derived)
	assert.Equal(t, "d", ctx.Target.Identifier())
	assert.Equal(t, []string{"id", "amount"}, ctx.Target.Columns)
}

func TestPrimary_SchemaQualifiedTable(t *testing.T) {
	text, off := cursor(t, "SELECT * FROM public.|")
	ctx := Primary(text, off)
	assert.Equal(t, FromClause, ctx.Kind)
	assert.Equal(t, "public", ctx.Schema)

	text, off = cursor(t, "SELECT * FROM a JOIN sales.ord|")
	ctx = Primary(text, off)
	assert.Equal(t, JoinClause, ctx.Kind)
	assert.Equal(t, "sales", ctx.Schema)
	assert.Equal(t, []string{"a"}, names(ctx.Tables))
}

func TestPrimary_InsideLiteral(t *testing.T) {
	for _, input := range []string{
		"SELECT 'FROM |",
		"SELECT 'a |' FROM t",
		"SELECT 1 -- from |",
		"SELECT /* where | */ 1",
	} {
		t.Run(input, func(t *testing.T) {
			text, off := cursor(t, input)
			ctx := Analyze(text, off)
			assert.True(t, ctx.InLiteral)
			assert.Equal(t, General, ctx.Kind)
			assert.False(t, ctx.Fallback)
		})
	}

	text, off := cursor(t, "SELECT 'a' |")
	assert.False(t, Primary(text, off).InLiteral)
}

func TestPrimary_MultipleStatements(t *testing.T) {
	text, off := cursor(t, "SELECT * FROM users u; SELECT * FROM orders o WHERE |")
	ctx := Primary(text, off)
	assert.Equal(t, ConditionClause, ctx.Kind)
	assert.Equal(t, []string{"orders o"}, names(ctx.Tables))
}

func TestFallback(t *testing.T) {
	tests := []struct {
		before string
		want   Kind
	}{
		{"SELECT ", SelectList},
		{"SELECT a, ", SelectList},
		{"SELECT * FROM ", FromClause},
		{"SELECT * FROM users ", FromClause},
		{"SELECT * FROM users u ", General},
		{"SELECT * FROM a, ", FromClause},
		{"SELECT * FROM a JOIN ", JoinClause},
		{"SELECT * FROM a WHERE ", ConditionClause},
		{"SELECT * FROM a WHERE x IN (1, ", ConditionClause},
		{"SELECT * FROM a WHERE x = 1 OR ", ConditionClause},
		{"UPDATE t SET ", ConditionClause},
		{"INSERT INTO ", FromClause},
		{"sel", General},
		{"", General},
		{"u.", AfterDot},
	}
	for _, tt := range tests {
		t.Run(tt.before, func(t *testing.T) {
			ctx := Fallback(tt.before)
			assert.Equal(t, tt.want, ctx.Kind)
			assert.True(t, ctx.Fallback)
			assert.Empty(t, ctx.Tables)
		})
	}

	assert.Equal(t, "u", Fallback("SELECT u.").Identifier)
}

func TestInformative(t *testing.T) {
	tests := []struct {
		name   string
		ctx    Context
		before string
		want   bool
	}{
		{"specific kind", Context{Kind: FromClause}, "SELECT * FROM ", true},
		{"general short", Context{Kind: General}, "sel", false},
		{"general empty", Context{Kind: General}, "", false},
		{"general with keyword", Context{Kind: General}, "SELECT * FROM users u ", false},
		{"general long without keyword", Context{Kind: General}, "EXPLAIN QUERY PLAN x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Informative(tt.ctx, tt.before))
		})
	}
}

func TestAnalyze_GatesFallback(t *testing.T) {
	text, off := cursor(t, "SELECT * FROM users u |")
	ctx := Analyze(text, off)
	assert.Equal(t, General, ctx.Kind)
	assert.True(t, ctx.Fallback)

	text, off = cursor(t, "SELECT * FROM users WHERE |")
	ctx = Analyze(text, off)
	assert.Equal(t, ConditionClause, ctx.Kind)
	assert.False(t, ctx.Fallback)
	assert.Equal(t, []string{"users"}, names(ctx.Tables))
}

func TestAnalyze_Pure(t *testing.T) {
	text, off := cursor(t, "SELECT * FROM orders o JOIN customers c ON o.customer_id = c.id WHERE c.|")
	first := Analyze(text, off)
	for range 5 {
		assert.Equal(t, first, Analyze(text, off))
	}
}

func TestAnalyze_OffsetClamped(t *testing.T) {
	assert.NotPanics(t, func() {
		Analyze("SELECT", -5)
		Analyze("SELECT", 500)
	})
}

func TestAliasMap(t *testing.T) {
	m := AliasMap([]TableRef{
		{Name: "orders", Alias: "o"},
		{Name: "Customers"},
		{Alias: "d", Derived: true},
	})
	assert.Equal(t, map[string]string{"o": "orders", "orders": "orders", "customers": "Customers"}, m)
}

func TestResolveBySubstring(t *testing.T) {
	tables := []string{"orders", "customers"}

	got, ok := ResolveBySubstring("select * from customers AS cu where cu.", "cu", tables)
	require.True(t, ok)
	assert.Equal(t, "customers", got)

	got, ok = ResolveBySubstring("SELECT * FROM Orders o", "o", tables)
	require.True(t, ok)
	assert.Equal(t, "orders", got)

	_, ok = ResolveBySubstring("SELECT * FROM t x", "x", tables)
	assert.False(t, ok)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "after-dot", AfterDot.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.True(t, JoinClause.TableNamePosition())
	assert.False(t, AfterDot.TableNamePosition())
}

type fakeCatalog []string

func (c fakeCatalog) HasRelation(name string) bool {
	for _, n := range c {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func (c fakeCatalog) TableNames() []string { return c }

func TestResolve(t *testing.T) {
	cat := fakeCatalog{"orders", "customers", "order_totals"}

	t.Run("scoped target", func(t *testing.T) {
		text, off := cursor(t, "SELECT c.| FROM customers c")
		ref, ok := Resolve(Analyze(text, off), text, "c", cat)
		require.True(t, ok)
		assert.Equal(t, "customers", ref.Name)
	})

	t.Run("alias of scope tables", func(t *testing.T) {
		ctx := Context{Tables: []TableRef{{Name: "orders", Alias: "o"}}}
		ref, ok := Resolve(ctx, "", "O", cat)
		require.True(t, ok)
		assert.Equal(t, TableRef{Name: "orders", Alias: "o"}, ref)
	})

	t.Run("cached relation", func(t *testing.T) {
		ref, ok := Resolve(Context{}, "", "order_totals", cat)
		require.True(t, ok)
		assert.Equal(t, "order_totals", ref.Name)
	})

	t.Run("text search last", func(t *testing.T) {
		ref, ok := Resolve(Context{}, "delete orders x where x.", "x", cat)
		require.True(t, ok)
		assert.Equal(t, "orders", ref.Name)
	})

	t.Run("unknown", func(t *testing.T) {
		_, ok := Resolve(Context{}, "SELECT z.", "z", cat)
		assert.False(t, ok)
	})
}
