package parser

import (
	"strings"

	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// ClauseKind identifies the clause a cursor position falls into.
type ClauseKind int

// Clause kinds.
const (
	ClauseNone ClauseKind = iota
	ClauseWith
	ClauseSelect
	ClauseFrom
	ClauseJoin
	ClauseOn // ON or USING after a join
	ClauseWhere
	ClauseGroupBy
	ClauseHaving
	ClauseOrderBy
	ClauseLimit // LIMIT or OFFSET
	ClauseSetOp // UNION, EXCEPT, INTERSECT
	ClauseInsert
	ClauseValues
	ClauseUpdate
	ClauseSet
	ClauseDelete
	ClauseDDL // CREATE, ALTER, DROP, TRUNCATE ... TABLE
	ClauseReturning
)

var clauseNames = map[ClauseKind]string{
	ClauseNone:      "none",
	ClauseWith:      "with",
	ClauseSelect:    "select",
	ClauseFrom:      "from",
	ClauseJoin:      "join",
	ClauseOn:        "on",
	ClauseWhere:     "where",
	ClauseGroupBy:   "group by",
	ClauseHaving:    "having",
	ClauseOrderBy:   "order by",
	ClauseLimit:     "limit",
	ClauseSetOp:     "set operation",
	ClauseInsert:    "insert",
	ClauseValues:    "values",
	ClauseUpdate:    "update",
	ClauseSet:       "set",
	ClauseDelete:    "delete",
	ClauseDDL:       "ddl",
	ClauseReturning: "returning",
}

func (k ClauseKind) String() string {
	if s, ok := clauseNames[k]; ok {
		return s
	}
	return "unknown"
}

// TakesTable reports whether the clause names tables directly.
func (k ClauseKind) TakesTable() bool {
	switch k {
	case ClauseFrom, ClauseJoin, ClauseInsert, ClauseUpdate, ClauseDDL:
		return true
	}
	return false
}

// Clause is a byte range of a scope introduced by a clause keyword.
type Clause struct {
	Kind       ClauseKind
	Start      int // offset of the first keyword
	KeywordEnd int // offset just past the introducing keyword(s)
	End        int // offset where the next clause starts, or the scope end
}

// ScopeKind tells how a scope was opened.
type ScopeKind int

// Scope kinds.
const (
	ScopeStatement ScopeKind = iota
	ScopeSubquery
	ScopeCTEBody
	ScopeCompound // the right-hand operand of UNION, EXCEPT or INTERSECT
)

// TableRef is a table named in a FROM, JOIN, INTO, UPDATE or DDL position.
type TableRef struct {
	Name   string
	Schema string
	Alias  string
	Start  int
	End    int

	// CTE is set when Name resolves to a CTE visible from the scope.
	CTE bool
	// Derived holds the subquery of a derived table; Name is empty then.
	Derived *Scope
}

// Identifier returns the name other clauses use to qualify columns.
func (r TableRef) Identifier() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Name
}

// Matches reports whether ident refers to this table, by alias or name.
func (r TableRef) Matches(ident string) bool {
	if r.Alias != "" && strings.EqualFold(r.Alias, ident) {
		return true
	}
	return r.Name != "" && strings.EqualFold(r.Name, ident)
}

// CTE is one named entry of a WITH list.
type CTE struct {
	Name      string
	Columns   []string
	NameStart int
	NameEnd   int
	Body      *Scope // nil while the body has not been started
}

// Scope is one SELECT level: a statement, a parenthesised subquery, a CTE
// body or a set-operation operand. Table references belong to exactly one
// scope.
type Scope struct {
	Kind     ScopeKind
	Start    int // first byte inside the scope
	End      int // offset of the closing paren, or the statement end
	Parent   *Scope
	Children []*Scope

	Tables  []TableRef
	CTEs    []CTE
	Clauses []Clause

	// Opener is the token type before the opening paren of a subquery
	// (IN, EXISTS, FROM, AS, ...), or EOF when there is none.
	Opener token.TokenType
	// Closed is false when the input ended before the closing paren.
	Closed bool
}

// Contains reports whether offset lies inside the scope.
func (s *Scope) Contains(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

// ScopeAt returns the innermost scope containing offset, starting at s.
func (s *Scope) ScopeAt(offset int) *Scope {
	for _, c := range s.Children {
		if c.Contains(offset) {
			return c.ScopeAt(offset)
		}
	}
	return s
}

// ClauseAt returns the clause whose keyword ends at or before offset and
// which is the last such clause of the scope. The zero Clause is returned
// when the cursor precedes every clause.
func (s *Scope) ClauseAt(offset int) Clause {
	var found Clause
	for _, c := range s.Clauses {
		if c.KeywordEnd <= offset {
			found = c
		}
	}
	return found
}

// HasClause reports whether the scope has a clause of kind k.
func (s *Scope) HasClause(k ClauseKind) bool {
	for _, c := range s.Clauses {
		if c.Kind == k {
			return true
		}
	}
	return false
}

// TablesBefore returns the table references that end before offset.
func (s *Scope) TablesBefore(offset int) []TableRef {
	var out []TableRef
	for _, t := range s.Tables {
		if t.End <= offset {
			out = append(out, t)
		}
	}
	return out
}

// Resolve finds the table reference that ident names in this scope.
func (s *Scope) Resolve(ident string) (TableRef, bool) {
	// Aliases shadow bare table names.
	for _, t := range s.Tables {
		if t.Alias != "" && strings.EqualFold(t.Alias, ident) {
			return t, true
		}
	}
	for _, t := range s.Tables {
		if t.Name != "" && strings.EqualFold(t.Name, ident) {
			return t, true
		}
	}
	return TableRef{}, false
}

// ResolveOuter resolves ident in this scope, then in each enclosing scope.
func (s *Scope) ResolveOuter(ident string) (TableRef, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if t, ok := sc.Resolve(ident); ok {
			return t, true
		}
	}
	return TableRef{}, false
}

// VisibleCTEs returns the CTEs defined in this scope and its ancestors,
// innermost first.
func (s *Scope) VisibleCTEs() []CTE {
	var out []CTE
	for sc := s; sc != nil; sc = sc.Parent {
		out = append(out, sc.CTEs...)
	}
	return out
}

// FindCTE returns the visible CTE called name.
func (s *Scope) FindCTE(name string) (CTE, bool) {
	for _, c := range s.VisibleCTEs() {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return CTE{}, false
}

// Walk calls fn for s and every descendant scope, parents first.
func (s *Scope) Walk(fn func(*Scope)) {
	fn(s)
	for _, c := range s.Children {
		c.Walk(fn)
	}
}
