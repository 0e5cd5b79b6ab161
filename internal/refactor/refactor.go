// Package refactor implements go-to-definition, find-references and rename
// over a SQL buffer, plus signature help for function calls.
//
// None of the operations fail. Unknown targets, keywords and invalid new
// names produce a nil result so the caller can ignore the request.
package refactor

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/sqlsense/internal/analyzer"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/leapstack-labs/sqlsense/pkg/parser"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// ObjectRef names a schema object. Table is set for columns.
type ObjectRef struct {
	Kind  core.ObjectKind `json:"kind"`
	Name  string          `json:"name"`
	Table string          `json:"table,omitempty"`
}

// Location is either a span of the buffer or a schema object that lives in
// the database.
type Location struct {
	Span   *token.Span `json:"span,omitempty"`
	Object *ObjectRef  `json:"object,omitempty"`
}

// TextEdit replaces Span with NewText.
type TextEdit struct {
	Span    token.Span `json:"span"`
	NewText string     `json:"new_text"`
}

func spanLoc(text string, start, end int) *Location {
	s := token.SpanAt(text, start, end)
	return &Location{Span: &s}
}

func objectLoc(kind core.ObjectKind, name, table string) *Location {
	return &Location{Object: &ObjectRef{Kind: kind, Name: name, Table: table}}
}

func defaults(sc *schema.Cache, d *dialect.Dialect) (*schema.Cache, *dialect.Dialect) {
	if sc == nil {
		sc = schema.Empty()
	}
	if d == nil {
		d = dialect.ForKind(dialect.Generic)
	}
	return sc, d
}

// isKeyword reports whether word is reserved by the dialect or drives the
// parser.
func isKeyword(word string, d *dialect.Dialect) bool {
	return d.IsKeyword(word) || token.LookupIdent(word) != token.IDENT
}

// target returns the identifier under offset. Keywords are not targets
// unless quoted.
func target(text string, offset int, d *dialect.Dialect) (word string, start, end int, ok bool) {
	word, start, end = analyzer.WordAt(text, offset)
	if word == "" {
		return "", 0, 0, false
	}
	quoted := start < len(text) && strings.ContainsRune("\"`[", rune(text[start]))
	if !quoted && isKeyword(word, d) {
		return "", 0, 0, false
	}
	return word, start, end, true
}

// Definition resolves the identifier at offset. In-buffer definitions (CTE
// names and table aliases) come back as spans; tables, views, columns and
// routines as schema objects.
func Definition(text string, offset int, sc *schema.Cache, d *dialect.Dialect) *Location {
	sc, d = defaults(sc, d)
	word, start, end, ok := target(text, offset, d)
	if !ok {
		return nil
	}
	script := parser.Parse(text)
	st := script.StatementAt(start)
	if st == nil {
		return nil
	}
	scope := st.Root.ScopeAt(start)

	if ctx := analyzer.Analyze(text, end); ctx.Kind == analyzer.AfterDot {
		if ref, ok := analyzer.Resolve(ctx, text, ctx.Identifier, sc); ok {
			return columnDefinition(text, ref, word, scope, sc)
		}
		return nil
	}

	if cte, ok := scope.FindCTE(word); ok {
		return spanLoc(text, cte.NameStart, cte.NameEnd)
	}
	if ref, ok := scope.ResolveOuter(word); ok && strings.EqualFold(ref.Alias, word) {
		if tok, ok := aliasToken(st, ref); ok {
			return spanLoc(text, tok.Pos.Offset, tok.End)
		}
	}

	if t, ok := sc.Table(word); ok {
		return objectLoc(core.KindTable, t.Name, "")
	}
	if v, ok := sc.View(word); ok {
		return objectLoc(core.KindView, v.Name, "")
	}
	for s := scope; s != nil; s = s.Parent {
		for _, ref := range s.Tables {
			if ref.Name == "" || ref.CTE {
				continue
			}
			if c, ok := sc.Column(ref.Name, word); ok {
				return objectLoc(core.KindColumn, c.Name, ref.Name)
			}
		}
	}
	if table, c, ok := sc.FindColumn(word); ok {
		return objectLoc(core.KindColumn, c.Name, table)
	}
	if r, ok := sc.Function(word); ok {
		return objectLoc(core.KindFunction, r.Name, "")
	}
	if r, ok := sc.Procedure(word); ok {
		return objectLoc(core.KindProcedure, r.Name, "")
	}
	if tr, ok := sc.Trigger(word); ok {
		return objectLoc(core.KindTrigger, tr.Name, tr.Table)
	}
	if idx, ok := sc.Index(word); ok {
		return objectLoc(core.KindIndex, idx.Name, idx.Table)
	}
	return nil
}

// columnDefinition locates column word of the relation ref names. Columns
// of a CTE point at the CTE's name.
func columnDefinition(text string, ref analyzer.TableRef, word string, scope *parser.Scope, sc *schema.Cache) *Location {
	switch {
	case ref.Derived:
		return nil
	case ref.CTE:
		if cte, ok := scope.FindCTE(ref.Name); ok {
			return spanLoc(text, cte.NameStart, cte.NameEnd)
		}
		return nil
	}
	if c, ok := sc.Column(ref.Name, word); ok {
		return objectLoc(core.KindColumn, c.Name, ref.Name)
	}
	return nil
}

// aliasToken finds the token that declares ref's alias. The alias is always
// the last token of the reference.
func aliasToken(st *parser.Statement, ref parser.TableRef) (token.Token, bool) {
	for _, t := range st.Tokens {
		if t.End == ref.End && strings.EqualFold(t.Literal, ref.Alias) {
			return t, true
		}
	}
	return token.Token{}, false
}

// References returns every occurrence of the identifier at offset, in
// buffer order, followed by the cached objects that hold it: each table
// with a column of that name and, for a table, each view whose definition
// uses it. Views without a known definition are listed for any table.
// Strings and comments are not searched.
func References(text string, offset int, sc *schema.Cache, d *dialect.Dialect) []Location {
	sc, d = defaults(sc, d)
	word, _, _, ok := target(text, offset, d)
	if !ok {
		return nil
	}
	out := occurrences(text, word)
	seen := map[ObjectRef]bool{}
	add := func(kind core.ObjectKind, name string) {
		ref := ObjectRef{Kind: kind, Name: name}
		if seen[ref] {
			return
		}
		seen[ref] = true
		out = append(out, *objectLoc(kind, name, ""))
	}
	for _, t := range sc.Tables() {
		if _, ok := sc.Column(t.Name, word); ok {
			add(core.KindTable, t.Name)
		}
	}
	if _, ok := sc.Table(word); ok {
		for _, v := range sc.Views() {
			if v.Definition == "" || len(occurrences(v.Definition, word)) > 0 {
				add(core.KindView, v.Name)
			}
		}
	}
	return out
}

func occurrences(text, word string) []Location {
	var out []Location
	for _, t := range parser.Tokenize(text) {
		if t.Type == token.IDENT && strings.EqualFold(t.Literal, word) {
			out = append(out, *spanLoc(text, t.Pos.Offset, t.End))
		}
	}
	return out
}

// Rename returns the edits that rename every occurrence of the identifier at
// offset to newName. It returns nil when newName is not a valid unquoted
// identifier, is a keyword, or equals the current name.
func Rename(text string, offset int, newName string, d *dialect.Dialect) []TextEdit {
	_, d = defaults(nil, d)
	if !ValidIdentifier(newName, d) {
		return nil
	}
	word, _, _, ok := target(text, offset, d)
	if !ok || strings.EqualFold(word, newName) {
		return nil
	}
	refs := occurrences(text, word)
	if len(refs) == 0 {
		return nil
	}
	edits := make([]TextEdit, len(refs))
	for i, r := range refs {
		edits[i] = TextEdit{Span: *r.Span, NewText: newName}
	}
	return edits
}

// ValidIdentifier reports whether name can be written unquoted: a letter or
// underscore followed by letters, digits and underscores, and not a keyword.
func ValidIdentifier(name string, d *dialect.Dialect) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	_, d = defaults(nil, d)
	return !isKeyword(name, d)
}
