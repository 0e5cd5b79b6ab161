package diagnostic

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlsense/internal/fuzzy"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/parser"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// UnknownTable reports FROM and JOIN references to relations the cache does
// not know.
var UnknownTable = &Rule{
	ID:          "SQL020",
	Name:        "schema.unknown_table",
	Group:       GroupSchema,
	Description: "Table or view is not in the cached schema.",
	Severity:    core.SeverityWarning,
	Check:       checkUnknownTables,
}

// UnknownColumn reports qualified column references that the referenced
// table does not have.
var UnknownColumn = &Rule{
	ID:          "SQL021",
	Name:        "schema.unknown_column",
	Group:       GroupSchema,
	Description: "Column is not part of the table it is qualified with.",
	Severity:    core.SeverityWarning,
	Check:       checkUnknownColumns,
}

func isDDL(st *parser.Statement) bool {
	switch st.FirstKeyword() {
	case "CREATE", "ALTER", "DROP", "TRUNCATE", "COMMENT":
		return true
	}
	return false
}

func checkUnknownTables(in *Input) []Finding {
	if in.Schema.IsEmpty() {
		return nil
	}
	names := relationNames(in)
	var out []Finding
	for _, st := range in.Script.Statements {
		if isDDL(st) {
			continue
		}
		st.Root.Walk(func(sc *parser.Scope) {
			for _, t := range sc.Tables {
				if t.Name == "" || t.CTE || t.Derived != nil {
					continue
				}
				if k := sc.ClauseAt(t.Start).Kind; k != parser.ClauseFrom && k != parser.ClauseJoin {
					continue
				}
				name, ok := lastNamePart(st.Tokens, t.Start)
				if !ok || in.Schema.HasRelation(t.Name) {
					continue
				}
				if t.Schema != "" && !knownSchema(in, t.Schema) {
					continue
				}
				if !name.Quoted && in.Dialect.IsKeyword(t.Name) {
					continue
				}
				msg := fmt.Sprintf("Table '%s' does not exist in schema", t.Name)
				if s, ok := suggest(t.Name, names); ok {
					msg += fmt.Sprintf("; did you mean '%s'?", s)
				}
				out = append(out, Finding{Start: name.Pos.Offset, End: name.End, Message: msg})
			}
		})
	}
	return out
}

// lastNamePart returns the final identifier of the dotted name starting at
// offset. It reports false for table-valued function calls.
func lastNamePart(toks []token.Token, offset int) (token.Token, bool) {
	i := 0
	for i < len(toks) && toks[i].Pos.Offset != offset {
		i++
	}
	if i == len(toks) {
		return token.Token{}, false
	}
	for i+2 < len(toks) && toks[i+1].Type == token.DOT && toks[i+2].IsWord() {
		i += 2
	}
	if i+1 < len(toks) && toks[i+1].Type == token.LPAREN {
		return token.Token{}, false
	}
	return toks[i], true
}

func knownSchema(in *Input, name string) bool {
	for _, t := range in.Schema.Tables() {
		if strings.EqualFold(t.Schema, name) {
			return true
		}
	}
	for _, v := range in.Schema.Views() {
		if strings.EqualFold(v.Schema, name) {
			return true
		}
	}
	return false
}

func relationNames(in *Input) []string {
	names := in.Schema.TableNames()
	for _, v := range in.Schema.Views() {
		names = append(names, v.Name)
	}
	return names
}

func checkUnknownColumns(in *Input) []Finding {
	if in.Schema.IsEmpty() {
		return nil
	}
	var out []Finding
	for _, st := range in.Script.Statements {
		if isDDL(st) {
			continue
		}
		toks := st.Tokens
		for i := 0; i+2 < len(toks); i++ {
			qual, dot, col := toks[i], toks[i+1], toks[i+2]
			if qual.Type != token.IDENT || dot.Type != token.DOT || col.Type != token.IDENT {
				continue
			}
			if i > 0 && toks[i-1].Type == token.DOT {
				continue
			}
			if i+3 < len(toks) && (toks[i+3].Type == token.DOT || toks[i+3].Type == token.LPAREN) {
				continue
			}
			if inTableRef(st.Root, qual.Pos.Offset) {
				continue
			}
			ref, ok := st.Root.ScopeAt(qual.Pos.Offset).ResolveOuter(qual.Literal)
			if !ok || ref.Name == "" || ref.CTE || ref.Derived != nil || !in.Schema.HasDetails(ref.Name) {
				continue
			}
			if _, ok := in.Schema.Column(ref.Name, col.Literal); ok {
				continue
			}
			msg := fmt.Sprintf("Column '%s' does not exist in table '%s'", col.Literal, ref.Name)
			if s, ok := suggest(col.Literal, columnNames(in, ref.Name)); ok {
				msg += fmt.Sprintf("; did you mean '%s'?", s)
			}
			out = append(out, Finding{Start: col.Pos.Offset, End: col.End, Message: msg})
		}
	}
	return out
}

func inTableRef(root *parser.Scope, offset int) bool {
	found := false
	root.Walk(func(sc *parser.Scope) {
		for _, t := range sc.Tables {
			if t.Derived == nil && offset >= t.Start && offset < t.End {
				found = true
			}
		}
	})
	return found
}

func columnNames(in *Input, table string) []string {
	cols := in.Schema.Columns(table)
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// suggest picks the closest candidate to name: the best fuzzy match for
// names of three or more characters, otherwise the nearest candidate within
// two edits.
func suggest(name string, candidates []string) (string, bool) {
	if len(name) >= 3 {
		if ranked := fuzzy.Rank(name, candidates, func(s string) string { return s }); len(ranked) > 0 {
			return ranked[0], true
		}
	}
	best, bestDist := "", 3
	lower := strings.ToLower(name)
	for _, c := range candidates {
		if d := levenshtein(lower, strings.ToLower(c)); d > 0 && d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}

// levenshtein calculates the edit distance between two strings.
func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}
	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}
