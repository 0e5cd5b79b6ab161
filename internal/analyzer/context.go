// Package analyzer classifies the cursor position inside partially typed SQL.
//
// Classification is a pure function of the buffer text and a byte offset.
// The primary strategy parses the statement at the cursor into scopes and
// reads the clause around the cursor; a backward keyword scan takes over when
// the primary result is not informative.
package analyzer

import (
	"strings"

	"github.com/leapstack-labs/sqlsense/pkg/parser"
)

// Kind is the tag of a Context.
type Kind int

// Context kinds.
const (
	General Kind = iota
	SelectList
	FromClause
	JoinClause
	ConditionClause
	AfterDot
	CommonTableExpression
	Subquery
)

var kindNames = [...]string{
	General:               "general",
	SelectList:            "select-list",
	FromClause:            "from-clause",
	JoinClause:            "join-clause",
	ConditionClause:       "condition-clause",
	AfterDot:              "after-dot",
	CommonTableExpression: "cte",
	Subquery:              "subquery",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// TableNamePosition reports whether the kind expects a table name.
func (k Kind) TableNamePosition() bool {
	return k == FromClause || k == JoinClause
}

// TableRef is a table visible at the cursor, with its optional alias.
type TableRef struct {
	Name   string
	Schema string
	Alias  string

	// CTE is set when Name refers to a common table expression.
	CTE bool
	// Derived is set for a parenthesised subquery in FROM. Name is empty.
	Derived bool
	// Columns are the output columns of a CTE or derived table, when the
	// select list names them.
	Columns []string
	// Sources are the tables a CTE or derived table selects * from.
	Sources []TableRef
}

// Identifier returns the name other clauses use to qualify columns.
func (r TableRef) Identifier() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Name
}

// Matches reports whether ident refers to r by alias or by name.
func (r TableRef) Matches(ident string) bool {
	if r.Alias != "" && strings.EqualFold(r.Alias, ident) {
		return true
	}
	return r.Name != "" && strings.EqualFold(r.Name, ident)
}

// Context is the classification of one cursor position. Exactly one Kind is
// active; the fields that apply depend on it:
//
//	SelectList             Tables are the scope's available tables
//	FromClause             Schema qualifies the name being typed, if any
//	JoinClause             Tables are the tables joined so far
//	ConditionClause        Tables are the scope's available tables
//	AfterDot               Identifier, Target and Tables
//	CommonTableExpression  CTEName
//	Subquery               Tables are the enclosing scopes' tables
type Context struct {
	Kind Kind

	Tables     []TableRef
	Identifier string
	// Target is the reference Identifier resolves to in the cursor's scope
	// or an enclosing one. Nil when the scope has no matching reference.
	Target  *TableRef
	Schema  string
	CTEName string

	// CTEs are the names of the common table expressions visible at the cursor.
	CTEs []string
	// Clause is the clause of the innermost scope that holds the cursor.
	Clause parser.ClauseKind
	// InLiteral is set when the cursor is inside a string literal or a
	// comment. Kind is General then.
	InLiteral bool
	// Fallback is set when the backward keyword scan produced the result.
	Fallback bool
}

// HasTables reports whether any table reference is known.
func (c Context) HasTables() bool {
	return len(c.Tables) > 0
}

// Analyze classifies the position offset in text. The primary result is
// returned when it is informative; otherwise the backward scan decides.
func Analyze(text string, offset int) Context {
	offset = clamp(offset, len(text))
	ctx := Primary(text, offset)
	before := text[:offset]
	if ctx.InLiteral || Informative(ctx, before) {
		return ctx
	}
	fb := Fallback(before)
	fb.CTEs = ctx.CTEs
	fb.Clause = ctx.Clause
	return fb
}

// statementWords are the words whose presence makes a General result
// suspicious enough to retry with the backward scan.
var statementWords = []string{"select", "from", "where", "insert", "update", "delete"}

// Informative reports whether ctx can be used as is. A General result is
// uninformative when the text before the cursor contains a statement
// keyword, or when it is so short that a keyword may still be mid-typing.
func Informative(ctx Context, before string) bool {
	if ctx.Kind != General {
		return true
	}
	if len(strings.TrimSpace(before)) < 10 {
		return false
	}
	lower := strings.ToLower(before)
	for _, w := range statementWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	return true
}

func clamp(offset, n int) int {
	if offset < 0 {
		return 0
	}
	if offset > n {
		return n
	}
	return offset
}
