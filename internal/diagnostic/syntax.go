package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	rsql "github.com/rqlite/sql"
	sitter "github.com/smacker/go-tree-sitter"
	tssql "github.com/smacker/go-tree-sitter/sql"

	"github.com/leapstack-labs/sqlsense/internal/analyzer"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/leapstack-labs/sqlsense/pkg/parser"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// sqliteChecked lists the statements the SQLite grammar is trusted with.
// Everything else (PRAGMA, ATTACH, VACUUM, ...) is left alone.
var sqliteChecked = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"WITH": true, "CREATE": true, "DROP": true, "ALTER": true,
	"REPLACE": true, "VALUES": true,
}

// SQLiteSyntax parses each statement with a SQLite grammar.
var SQLiteSyntax = &Rule{
	ID:          "SQL010",
	Name:        "syntax.sqlite",
	Group:       GroupSQLite,
	Description: "Statement does not parse under the SQLite grammar.",
	Severity:    core.SeverityError,
	Check:       checkSQLite,
}

func checkSQLite(in *Input) []Finding {
	if in.Dialect.Kind != dialect.SQLite {
		return nil
	}
	var out []Finding
	for _, st := range in.Script.Statements {
		if !sqliteChecked[st.FirstKeyword()] || lexicallyBroken(st) || isVirtualTable(st) {
			continue
		}
		off, msg, ok := parseSQLite(st.Text(in.Text))
		if !ok {
			continue
		}
		off += st.Start
		end := analyzer.WordEnd(in.Text, off)
		out = append(out, Finding{Start: off, End: end, Message: msg})
	}
	return out
}

// parseSQLite returns the offset and message of the first parse error in
// src, or false when every statement parses.
func parseSQLite(src string) (int, string, bool) {
	p := rsql.NewParser(strings.NewReader(src))
	for {
		_, err := p.ParseStatement()
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return 0, "", false
		}
		var perr *rsql.Error
		if errors.As(err, &perr) {
			return perr.Pos.Offset, "SQL syntax error: " + perr.Msg, true
		}
		return leadingSpace(src), "SQL syntax error: " + err.Error(), true
	}
}

func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t\r\n"))
}

// lexicallyBroken reports whether the lexical rules already cover st.
func lexicallyBroken(st *parser.Statement) bool {
	depth := 0
	for _, t := range st.Tokens {
		if t.Unterminated {
			return true
		}
		switch t.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth < 0 {
				return true
			}
		}
	}
	return depth != 0
}

func isVirtualTable(st *parser.Statement) bool {
	return len(st.Tokens) > 1 && st.Tokens[0].Type == token.CREATE &&
		strings.EqualFold(st.Tokens[1].Literal, "virtual")
}

// TreeSitterSyntax reports ERROR and MISSING nodes of a tree-sitter parse.
var TreeSitterSyntax = &Rule{
	ID:          "SQL011",
	Name:        "syntax.tree_sitter",
	Group:       GroupTreeSitter,
	Description: "Text the generic SQL grammar cannot place.",
	Severity:    core.SeverityError,
	Check:       checkTreeSitter,
}

func checkTreeSitter(in *Input) []Finding {
	if strings.TrimSpace(in.Text) == "" {
		return nil
	}
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(tssql.GetLanguage())

	src := []byte(in.Text)
	tree, err := p.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	var out []Finding
	collectErrors(root, in.Text, &out)
	return out
}

func collectErrors(n *sitter.Node, text string, out *[]Finding) {
	start, end := int(n.StartByte()), int(n.EndByte())
	switch {
	case n.IsMissing():
		*out = append(*out, Finding{Start: start, End: end, Message: fmt.Sprintf("Missing %s", n.Type())})
		return
	case n.Type() == "ERROR":
		*out = append(*out, Finding{Start: start, End: end, Message: fmt.Sprintf("Syntax error near: '%s'", preview(text[start:end]))})
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectErrors(n.Child(i), text, out)
	}
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 30 {
		return s[:30] + "..."
	}
	return s
}
