package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/sqlsense/internal/cli/output"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/parser"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "sqlsense> "
	replContPrompt = "     ...> "
)

var dotCommands = []string{".help", ".tables", ".schema", ".refresh", ".dialect", ".clear", ".quit", ".exit"}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive SQL shell with schema-aware completion",
		Long: `Start an interactive shell. Tab completes keywords, tables, columns and
functions using the completion engine. Each statement is validated before
it runs; with a connection configured it is executed and DDL refreshes the
schema.`,
		Example: `  sqlsense repl --dsn app.db`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}
}

// replSession holds the state of one shell.
type replSession struct {
	cc      *CommandContext
	r       *output.Renderer
	pending strings.Builder // statement text before the current line
}

func runREPL(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s := &replSession{cc: cc, r: cc.Renderer}

	historyFile := ""
	if p := cc.Cfg.Schema.SnapshotPath; p != "" {
		historyFile = filepath.Join(filepath.Dir(p), "repl_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    s,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	mode := "offline"
	if cc.adapter != nil {
		mode = cc.Cfg.Connection.Driver
	}
	s.r.Printf("sqlsense REPL (%s, dialect %s)\n", mode, cc.Engine.Dialect().Name)
	s.r.Println("Type .help for commands, .quit to exit")
	s.r.Println()

	ctx := cmd.Context()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.pending.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if s.pending.Len() == 0 && strings.HasPrefix(trimmed, ".") {
			if quit := s.dot(trimmed); quit {
				break
			}
			continue
		}

		s.pending.WriteString(line)
		s.pending.WriteString("\n")
		if !strings.HasSuffix(trimmed, ";") {
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		sql := s.pending.String()
		s.pending.Reset()
		s.eval(ctx, sql)
		s.r.Println()
	}
	return nil
}

// Do implements readline.AutoCompleter with engine completions. It returns
// the remainder of each candidate that extends the word being typed.
func (s *replSession) Do(line []rune, pos int) ([][]rune, int) {
	before := string(line[:pos])
	word := currentWord(before)

	if s.pending.Len() == 0 && strings.HasPrefix(strings.TrimSpace(before), ".") {
		return suffixes(dotCommands, strings.TrimSpace(before)), len([]rune(strings.TrimSpace(before)))
	}

	text := s.pending.String() + before
	items := s.cc.Engine.GetCompletions(text, len(text), true)
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	return suffixes(labels, word), len([]rune(word))
}

func currentWord(s string) string {
	i := strings.LastIndexFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	if i < 0 {
		return s
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[i+size:]
}

func suffixes(candidates []string, word string) [][]rune {
	var out [][]rune
	lw := strings.ToLower(word)
	for _, c := range candidates {
		if len(c) < len(word) || strings.ToLower(c[:len(word)]) != lw {
			continue
		}
		out = append(out, []rune(c[len(word):]+" "))
	}
	return out
}

// eval validates sql and, when connected, runs it.
func (s *replSession) eval(ctx context.Context, sql string) {
	blocked := false
	for _, d := range s.cc.Engine.ValidateSQL(sql) {
		if d.Severity == core.SeverityHint {
			continue
		}
		if d.Severity == core.SeverityError {
			blocked = true
		}
		s.r.Printf("%s  %s  %s\n", severityStyle(s.r, d.Severity), s.r.Styles().Bold.Render(d.Code), d.Message)
	}
	if blocked {
		return
	}
	if s.cc.adapter == nil {
		s.r.Println(s.r.Styles().Muted.Render("(not executed: no connection)"))
		return
	}

	if err := s.execute(ctx, sql); err != nil {
		s.r.Error(err.Error())
		return
	}
	if ch := s.cc.Engine.NotifyExecuted(sql); ch != nil {
		res := <-ch
		switch {
		case res.Err != nil:
			s.r.Warning("schema refresh failed: " + res.Err.Error())
		case res.Applied:
			s.r.Println(s.r.Styles().Muted.Render("(schema refreshed)"))
		}
	}
}

func (s *replSession) execute(ctx context.Context, sql string) error {
	query := strings.TrimSuffix(strings.TrimSpace(sql), ";")
	if returnsRows(query) {
		rows, err := s.cc.adapter.Query(ctx, query)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		return renderRows(s.r, rows.Rows)
	}
	n, err := s.cc.adapter.Execute(ctx, query)
	if err != nil {
		return err
	}
	s.r.Printf("(%d rows affected)\n", n)
	return nil
}

func returnsRows(sql string) bool {
	sts := parser.Parse(sql).Statements
	if len(sts) == 0 {
		return false
	}
	switch sts[len(sts)-1].FirstKeyword() {
	case "SELECT", "WITH", "VALUES", "SHOW", "PRAGMA", "EXPLAIN", "DESCRIBE", "TABLE":
		return true
	}
	return false
}

// dot handles a dot-command and reports whether the shell should exit.
func (s *replSession) dot(line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.r.Out())

	case ".tables":
		names := s.cc.Engine.Schema().TableNames()
		if len(names) == 0 {
			s.r.Println(s.r.Styles().Muted.Render("(no tables)"))
		}
		for _, n := range names {
			s.r.Println(n)
		}

	case ".schema":
		if len(parts) < 2 {
			_ = showSchema(s.r, s.cc.Engine.Schema())
			break
		}
		if err := showTable(s.r, s.cc.Engine.Schema(), parts[1]); err != nil {
			s.r.Error(err.Error())
		}

	case ".refresh":
		res := <-s.cc.Engine.Refresh()
		if res.Err != nil {
			s.r.Error(res.Err.Error())
			break
		}
		st := s.cc.Engine.Schema().Stats()
		s.r.Success(fmt.Sprintf("Schema refreshed: %d tables, %d views", st.Tables, st.Views))

	case ".dialect":
		s.r.Println(s.cc.Engine.Dialect().DisplayName)

	case ".clear":
		s.r.Printf("\033[H\033[2J")

	default:
		s.r.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", parts[0]))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List tables
  .schema [name]  Show the schema, or the columns of a table
  .refresh        Refetch the schema
  .dialect        Show the active dialect
  .clear          Clear the screen
  .quit / .exit   Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Tab completes keywords, tables, columns and functions
  - DDL refreshes the schema automatically`
	_, _ = fmt.Fprintln(w, help)
}
