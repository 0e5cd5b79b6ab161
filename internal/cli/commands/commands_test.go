package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/internal/cli/config"
	clitestutil "github.com/leapstack-labs/sqlsense/internal/cli/testutil"
	"github.com/leapstack-labs/sqlsense/internal/completion"
	intconfig "github.com/leapstack-labs/sqlsense/internal/config"
	"github.com/leapstack-labs/sqlsense/internal/diagnostic"
	"github.com/leapstack-labs/sqlsense/internal/engine"
	"github.com/leapstack-labs/sqlsense/internal/refactor"
	"github.com/leapstack-labs/sqlsense/internal/testutil"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/token"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/sqlsense/pkg/adapters/sqlite"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd     *cobra.Command
		use     string
		aliases []string
		flags   []string
	}{
		{NewCompleteCommand(), "complete [sql]", nil, []string{"file", "offset", "line", "col", "auto", "limit"}},
		{NewHoverCommand(), "hover [sql]", nil, []string{"file", "offset", "line", "col"}},
		{NewDefinitionCommand(), "definition [sql]", []string{"def"}, []string{"offset"}},
		{NewReferencesCommand(), "references [sql]", []string{"refs"}, []string{"offset"}},
		{NewRenameCommand(), "rename <new-name> [sql]", nil, []string{"offset", "diff"}},
		{NewSignatureCommand(), "signature [sql]", nil, []string{"offset"}},
		{NewValidateCommand(), "validate [file...]", []string{"lint"}, []string{"expr", "severity", "fail-on"}},
		{NewSchemaCommand(), "schema", nil, nil},
		{NewREPLCommand(), "repl", nil, nil},
		{NewDialectsCommand(), "dialects", nil, nil},
		{NewDoctorCommand(), "doctor", nil, nil},
		{NewLSPCommand("test"), "lsp", nil, nil},
		{NewServeCommand("test"), "serve", nil, []string{"addr", "watch"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.Equal(t, tt.aliases, tt.cmd.Aliases)
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestSchemaSubcommands(t *testing.T) {
	cmd := NewSchemaCommand()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"show", "dump", "snapshots"}, names)
}

func TestApplyEdits(t *testing.T) {
	text := "SELECT c.id FROM customers c WHERE c.id > 1"
	span := func(start, end int) token.Span {
		return token.Span{Start: token.Position{Offset: start}, End: token.Position{Offset: end}}
	}
	edits := []refactor.TextEdit{
		{Span: span(7, 8), NewText: "cust"},
		{Span: span(27, 28), NewText: "cust"},
		{Span: span(35, 36), NewText: "cust"},
	}

	got := ApplyEdits(text, edits)
	assert.Equal(t, "SELECT cust.id FROM customers cust WHERE cust.id > 1", got)
	assert.Equal(t, text, ApplyEdits(text, nil))
}

func TestSourceOptions_Cursor(t *testing.T) {
	text := "SELECT id\nFROM orders\n"

	tests := []struct {
		name string
		opts SourceOptions
		want int
	}{
		{"default is end without trailing newline", SourceOptions{Offset: -1}, len(text) - 1},
		{"explicit offset", SourceOptions{Offset: 3}, 3},
		{"offset clamped", SourceOptions{Offset: 500}, len(text)},
		{"line and column", SourceOptions{Offset: -1, Line: 2, Character: 6}, 15},
		{"line start", SourceOptions{Offset: -1, Line: 1, Character: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.cursor(text))
		})
	}
}

func TestSourceOptions_Read(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("SELECT 1 FROM stdin_table"))

	opts := &SourceOptions{}
	text, err := opts.read(cmd, []string{"SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)

	text, err = opts.read(cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM stdin_table", text)

	path := filepath.Join(t.TempDir(), "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 2"), 0o600))
	opts.File = path
	text, err = opts.read(cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", text)

	opts.File = filepath.Join(t.TempDir(), "missing.sql")
	_, err = opts.read(cmd, nil)
	assert.Error(t, err)
}

func TestCurrentWord(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"SEL", "SEL"},
		{"SELECT * FROM ord", "ord"},
		{"SELECT o.", ""},
		{"SELECT o.cust", "cust"},
		{"SELECT ünï", "ünï"},
		{"SELECT (col_1", "col_1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, currentWord(tt.in), tt.in)
	}
}

func TestSuffixes(t *testing.T) {
	got := suffixes([]string{"orders", "order_items", "customers", "Ord"}, "ord")
	assert.Equal(t, [][]rune{[]rune("ers "), []rune("er_items "), []rune(" ")}, got)

	assert.Len(t, suffixes(dotCommands, ".ta"), 1)
	assert.Empty(t, suffixes([]string{"a"}, "abc"))
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT 1", true},
		{"with x as (select 1) select * from x", true},
		{"PRAGMA table_info(orders)", true},
		{"INSERT INTO orders VALUES (1)", false},
		{"CREATE TABLE t (id int)", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, returnsRows(tt.sql), tt.sql)
	}
}

func TestRenderCompletions(t *testing.T) {
	items := []completion.Item{
		{Label: "orders", Kind: completion.KindTable, Detail: "table"},
		{Label: "order_total", Kind: completion.KindFunction, Detail: "numeric"},
	}

	t.Run("markdown", func(t *testing.T) {
		tr := clitestutil.NewTestRendererMarkdown()
		require.NoError(t, renderCompletions(tr.Renderer, items, false))
		out := tr.Output()
		assert.Contains(t, out, "orders")
		assert.Contains(t, out, "function")
		clitestutil.AssertNoANSI(t, out)
	})

	t.Run("json", func(t *testing.T) {
		tr := clitestutil.NewTestRendererJSON()
		require.NoError(t, renderCompletions(tr.Renderer, nil, true))
		assert.JSONEq(t, `{"loading": true, "items": []}`, tr.Output())
	})

	t.Run("empty", func(t *testing.T) {
		tr := clitestutil.NewTestRendererText()
		require.NoError(t, renderCompletions(tr.Renderer, nil, false))
		assert.Contains(t, tr.Output(), "No completions")
	})
}

func TestRenderValidate(t *testing.T) {
	out := ValidateOutput{
		Summary: ValidateSummary{Files: 1, Warnings: 1},
		Files: []ValidateFileResult{{
			Path: "report.sql",
			Diagnostics: []diagnostic.Diagnostic{{
				Code:     "SQL020",
				Severity: core.SeverityWarning,
				Message:  `Unknown table "missing"`,
				Range: token.Span{
					Start: token.Position{Line: 1, Column: 15, Offset: 14},
					End:   token.Position{Line: 1, Column: 22, Offset: 21},
				},
			}},
		}},
	}

	tr := clitestutil.NewTestRendererMarkdown()
	renderValidate(tr.Renderer, out)
	md := tr.Output()
	assert.Contains(t, md, "### report.sql")
	assert.Contains(t, md, "SQL020")
	assert.Contains(t, md, "1:15")
	clitestutil.AssertValidMarkdown(t, md)

	tr = clitestutil.NewTestRendererText()
	renderValidate(tr.Renderer, ValidateOutput{Summary: ValidateSummary{Files: 1}})
	assert.Contains(t, tr.Output(), "No problems found")
}

func TestValidateSummary_Count(t *testing.T) {
	var s ValidateSummary
	for _, sev := range []core.Severity{core.SeverityError, core.SeverityWarning, core.SeverityWarning, core.SeverityHint} {
		s.count(sev)
	}
	assert.Equal(t, ValidateSummary{Errors: 1, Warnings: 2, Hints: 1}, s)
	assert.Equal(t, 4, s.total())
}

func TestListDialects(t *testing.T) {
	list := listDialects("postgres")
	require.NotEmpty(t, list)

	var active []string
	for _, d := range list {
		if d.Active {
			active = append(active, d.Name)
		}
	}
	assert.Equal(t, []string{"postgres"}, active)

	assert.Equal(t, "postgres", activeDialect("postgres", "sqlite"))
	assert.Equal(t, "sqlite", activeDialect("", "sqlite"))
	assert.Equal(t, "postgres", activeDialect("", "duckdb"))
}

func TestHealthScore(t *testing.T) {
	assert.Equal(t, 100, healthScore(nil))
	assert.Equal(t, 60, healthScore([]HealthCheck{
		{Status: statusPass}, {Status: statusWarn}, {Status: statusError},
	}))
	assert.Equal(t, 0, healthScore([]HealthCheck{
		{Status: statusError}, {Status: statusError}, {Status: statusError}, {Status: statusError},
	}))
}

func TestRenderDoctor(t *testing.T) {
	out := &DoctorOutput{
		Summary: DoctorSummary{Dialect: "sqlite", Driver: "sqlite", Tables: 3},
		HealthChecks: sortChecks([]HealthCheck{
			{ID: "SCH01", Name: "Schema loaded", Group: "schema", Status: statusPass},
			{ID: "CON01", Name: "Connection", Group: "connection", Status: statusWarn, Detail: "offline"},
		}),
		Score: 90,
	}
	assert.Equal(t, "CON01", out.HealthChecks[0].ID)

	tr := clitestutil.NewTestRendererMarkdown()
	require.NoError(t, renderDoctor(tr.Renderer, out))
	md := tr.Output()
	assert.Contains(t, md, "# sqlsense Health Report")
	assert.Contains(t, md, "90/100")
	clitestutil.AssertValidMarkdown(t, md)

	tr = clitestutil.NewTestRendererText()
	require.NoError(t, renderDoctor(tr.Renderer, out))
	assert.Contains(t, tr.Output(), "Connection")
}

// newREPLSession connects an in-memory SQLite database to a fresh engine.
func newREPLSession(t *testing.T) (*replSession, *clitestutil.TestRenderer) {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)

	eng, err := engine.New(engine.Config{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	conn := core.ConnectionConfig{Driver: "sqlite", Path: ":memory:"}
	a, err := adapter.NewAdapter(conn, logger)
	require.NoError(t, err)
	require.NoError(t, a.Connect(ctx, conn))
	t.Cleanup(func() { _ = a.Close() })

	res := <-eng.SetConnection(uuid.New(), a, a.SchemaService(), a.DriverID())
	require.NoError(t, res.Err)

	tr := clitestutil.NewTestRendererMarkdown()
	cc := &CommandContext{
		Cfg:      intconfig.Default(),
		Logger:   logger,
		Engine:   eng,
		Renderer: tr.Renderer,
		adapter:  a,
	}
	return &replSession{cc: cc, r: tr.Renderer}, tr
}

func TestREPL_DDLRefreshesSchema(t *testing.T) {
	s, tr := newREPLSession(t)
	ctx := context.Background()

	s.eval(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, label TEXT);")
	assert.Contains(t, tr.Output(), "(schema refreshed)")
	assert.True(t, s.cc.Engine.Schema().HasRelation("widgets"))

	tr.Reset()
	s.eval(ctx, "INSERT INTO widgets (label) VALUES ('a'), ('b');")
	assert.Contains(t, tr.Output(), "(2 rows affected)")

	tr.Reset()
	s.eval(ctx, "SELECT label FROM widgets ORDER BY id;")
	out := tr.Output()
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "(2 rows)")

	got, n := s.Do([]rune("SELECT * FROM wid"), len("SELECT * FROM wid"))
	assert.Equal(t, 3, n)
	assert.Contains(t, got, []rune("gets "))
}

func TestREPL_ErrorsBlockExecution(t *testing.T) {
	s, tr := newREPLSession(t)

	s.eval(context.Background(), "SELECT id FROM WHERE;")
	assert.Contains(t, tr.Output(), "SQL005")
	assert.NotContains(t, tr.Output(), "rows")
}

func TestREPL_Offline(t *testing.T) {
	eng, err := engine.New(engine.Config{})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	tr := clitestutil.NewTestRendererMarkdown()
	s := &replSession{cc: &CommandContext{Cfg: intconfig.Default(), Engine: eng, Renderer: tr.Renderer}, r: tr.Renderer}
	s.eval(context.Background(), "SELECT 1;")
	assert.Contains(t, tr.Output(), "(not executed: no connection)")
}

func TestREPL_DotCommands(t *testing.T) {
	s, tr := newREPLSession(t)
	s.eval(context.Background(), "CREATE TABLE widgets (id INTEGER PRIMARY KEY);")
	tr.Reset()

	assert.False(t, s.dot(".tables"))
	assert.Contains(t, tr.Output(), "widgets")

	tr.Reset()
	assert.False(t, s.dot(".schema widgets"))
	assert.Contains(t, tr.Output(), "id")

	tr.Reset()
	assert.False(t, s.dot(".refresh"))
	assert.Contains(t, tr.Output(), "Schema refreshed: 1 tables")

	tr.Reset()
	assert.False(t, s.dot(".dialect"))
	assert.Contains(t, tr.Output(), "SQLite")

	tr.Reset()
	assert.False(t, s.dot(".bogus"))
	assert.Contains(t, tr.ErrorOutput(), "unknown command")

	assert.True(t, s.dot(".quit"))
	assert.True(t, s.dot(".EXIT"))

	var help strings.Builder
	printREPLHelp(&help)
	assert.Contains(t, help.String(), ".schema [name]")
}

func TestRenderRows_JSON(t *testing.T) {
	s, _ := newREPLSession(t)
	ctx := context.Background()
	_, err := s.cc.adapter.Execute(ctx, "CREATE TABLE t (id INTEGER, name TEXT)")
	require.NoError(t, err)
	_, err = s.cc.adapter.Execute(ctx, "INSERT INTO t VALUES (1, NULL)")
	require.NoError(t, err)

	rows, err := s.cc.adapter.Query(ctx, "SELECT id, name FROM t")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	tr := clitestutil.NewTestRendererJSON()
	require.NoError(t, renderRows(tr.Renderer, rows.Rows))
	assert.JSONEq(t, `[{"id": 1, "name": null}]`, tr.Output())
	assert.Equal(t, "NULL", formatValue(nil))
}

func TestConnectionID(t *testing.T) {
	a := intconfig.ConnectionConfig{ConnectionConfig: core.ConnectionConfig{Driver: "sqlite", Path: "/tmp/a.db"}}
	b := intconfig.ConnectionConfig{ConnectionConfig: core.ConnectionConfig{Driver: "sqlite", Path: "/tmp/b.db"}}
	assert.Equal(t, ConnectionID(a), ConnectionID(a))
	assert.NotEqual(t, ConnectionID(a), ConnectionID(b))
}

func TestNewCommandContext_Fixture(t *testing.T) {
	t.Cleanup(config.ResetConfig)
	dir := clitestutil.SetupTestProject(t)
	_, err := config.LoadConfig(filepath.Join(dir, "sqlsense.yaml"), nil)
	require.NoError(t, err)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cc, cleanup, err := NewCommandContext(cmd)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, cc.WaitSchema(context.Background()))
	assert.Equal(t, "postgres", cc.Engine.Dialect().Name)
	assert.True(t, cc.Engine.Schema().HasRelation("orders"))
	assert.Equal(t, uuid.Nil, cc.ConnID)
	assert.Nil(t, cc.Snapshots, "offline contexts keep no snapshots")
}
