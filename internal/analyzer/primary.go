package analyzer

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlsense/pkg/parser"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// maxDerivedDepth bounds how deep CTE and derived table outputs are followed.
const maxDerivedDepth = 4

// clauseWords never count as table names or aliases in the FROM tie-break.
var clauseWords = map[string]bool{
	"select": true, "from": true, "into": true, "update": true, "table": true,
	"join": true, "left": true, "right": true, "inner": true, "outer": true,
	"cross": true, "full": true, "where": true, "and": true, "or": true,
	"not": true, "on": true, "having": true, "group": true, "order": true,
	"limit": true, "offset": true, "union": true, "except": true,
	"intersect": true, "set": true, "values": true, "with": true, "as": true,
}

// subqueryOpeners are the tokens before a parenthesised subquery whose
// select list may reference the enclosing query.
var subqueryOpeners = map[token.TokenType]bool{
	token.IN: true, token.EXISTS: true, token.ANY: true, token.ALL: true, token.SOME: true,
}

type analysis struct {
	text   string
	offset int
	script *parser.Script
	scope  *parser.Scope
}

// Primary classifies offset using the scope tree of the statement at the
// cursor. It returns General when the clause gives no answer.
func Primary(text string, offset int) Context {
	offset = clamp(offset, len(text))
	script := parser.Parse(text)
	scope := script.ScopeAt(offset)
	if scope == nil {
		return Context{}
	}
	a := &analysis{text: text, offset: offset, script: script, scope: scope}
	return a.classify()
}

func (a *analysis) classify() Context {
	sc := a.scope
	wordStart := WordStart(a.text, a.offset)
	cl := sc.ClauseAt(wordStart)

	ctx := Context{Clause: cl.Kind, CTEs: cteNames(sc)}

	if a.insideLiteral(wordStart) {
		ctx.InLiteral = true
		return ctx
	}

	if wordStart > 0 && a.text[wordStart-1] == '.' {
		if ident, identStart := identBeforeDot(a.text, wordStart-1); ident != "" {
			return a.afterDot(ctx, ident, identStart)
		}
	}

	switch cl.Kind {
	case parser.ClauseNone:
		if sc.Kind == parser.ScopeCTEBody {
			ctx.Kind = CommonTableExpression
			ctx.CTEName = a.cteOf(sc)
		}
	case parser.ClauseWith:
		ctx.Kind = CommonTableExpression
		for _, c := range sc.CTEs {
			if c.NameStart < a.offset {
				ctx.CTEName = c.Name
			}
		}
	case parser.ClauseSelect:
		if sc.Kind == parser.ScopeSubquery && subqueryOpeners[sc.Opener] && len(sc.Tables) == 0 {
			ctx.Kind = Subquery
			for p := sc.Parent; p != nil; p = p.Parent {
				ctx.Tables = append(ctx.Tables, a.refs(p, p.Tables)...)
			}
			return ctx
		}
		ctx.Kind = SelectList
		ctx.Tables = a.refs(sc, sc.Tables)
	case parser.ClauseGroupBy, parser.ClauseOrderBy, parser.ClauseReturning:
		ctx.Kind = SelectList
		ctx.Tables = a.refs(sc, sc.Tables)
	case parser.ClauseOn, parser.ClauseWhere, parser.ClauseHaving, parser.ClauseSet:
		ctx.Kind = ConditionClause
		ctx.Tables = a.refs(sc, sc.Tables)
	case parser.ClauseFrom, parser.ClauseJoin, parser.ClauseUpdate, parser.ClauseInsert, parser.ClauseDDL:
		slot := a.tableSlot(cl, a.offset)
		switch {
		case slot.columnList:
			ctx.Kind = SelectList
			ctx.Tables = a.refs(sc, startingBefore(sc.Tables, a.offset))
		case slot.open():
			ctx.Kind = FromClause
			if cl.Kind == parser.ClauseJoin {
				ctx.Kind = JoinClause
				ctx.Tables = a.refs(sc, sc.TablesBefore(cl.Start))
			}
		}
	}
	return ctx
}

// afterDot handles "ident." and "ident.partial". A dot that qualifies a
// table name being typed in a table position is a schema qualifier.
func (a *analysis) afterDot(ctx Context, ident string, identStart int) Context {
	sc := a.scope
	if cl := sc.ClauseAt(identStart); cl.Kind.TakesTable() {
		if slot := a.tableSlot(cl, identStart); slot.open() && !slot.columnList {
			ctx.Kind = FromClause
			if cl.Kind == parser.ClauseJoin {
				ctx.Kind = JoinClause
				ctx.Tables = a.refs(sc, sc.TablesBefore(cl.Start))
			}
			ctx.Schema = ident
			return ctx
		}
	}

	ctx.Kind = AfterDot
	ctx.Identifier = ident
	ctx.Tables = a.refs(sc, sc.Tables)
	// The current scope shadows enclosing ones.
	for s := sc; s != nil; s = s.Parent {
		if r, ok := s.Resolve(ident); ok {
			ref := a.ref(s, r, 0)
			ctx.Target = &ref
			break
		}
	}
	return ctx
}

// insideLiteral reports whether offset falls inside a string literal or a
// comment, where no completion applies.
func (a *analysis) insideLiteral(offset int) bool {
	for _, c := range a.script.Comments {
		start, end := c.Span.Start.Offset, c.Span.End.Offset
		if offset <= start {
			continue
		}
		if offset < end || c.Unterminated || c.IsLineComment() && offset == end {
			return true
		}
	}
	for _, t := range a.script.Tokens {
		if t.Pos.Offset >= offset {
			break
		}
		if t.Type == token.STRING && (offset < t.End || t.Unterminated) {
			return true
		}
	}
	return false
}

type slotState struct {
	anchored   bool // a table anchor (FROM, JOIN, INTO, TABLE, comma) was seen
	words      int  // non-clause words since the last anchor, the partial word included
	afterAs    bool // the last word before the cursor is AS
	inParens   bool // the cursor is inside parentheses opened in the clause
	columnList bool // the cursor is inside the column list after INSERT INTO t
}

// open reports whether a table name is expected: an anchor was seen and at
// most one word follows it. Two or more words mean the table was already
// given and the user moved on.
func (s slotState) open() bool {
	return s.anchored && !s.afterAs && !s.inParens && s.words <= 1
}

// tableSlot scans the clause from its keyword up to end and applies the
// table-name tie-break.
func (a *analysis) tableSlot(cl parser.Clause, end int) slotState {
	var s slotState
	switch cl.Kind {
	case parser.ClauseFrom, parser.ClauseJoin, parser.ClauseUpdate:
		s.anchored = true
	case parser.ClauseInsert:
		s.anchored = strings.EqualFold(a.text[max(cl.KeywordEnd-4, 0):cl.KeywordEnd], "into")
	}

	depth := 0
	var prev token.Token
	for _, t := range tokensBetween(a.script.Tokens, cl.KeywordEnd, end) {
		switch {
		case t.Type == token.LPAREN:
			depth++
		case t.Type == token.RPAREN:
			if depth > 0 {
				depth--
			}
			if depth == 0 && s.anchored {
				// A derived table counts as one word.
				s.words++
			}
		case depth > 0:
		case t.Type == token.COMMA && cl.Kind == parser.ClauseFrom,
			t.Type == token.INTO,
			t.Type == token.TABLE,
			t.Type == token.ON && cl.Kind == parser.ClauseDDL:
			s.anchored, s.words = true, 0
		case t.IsWord() && !clauseWords[strings.ToLower(t.Literal)] && prev.Type != token.DOT:
			s.words++
		}
		prev = t
	}
	s.afterAs = prev.Type == token.AS && depth == 0
	s.inParens = depth > 0
	if cl.Kind == parser.ClauseInsert && depth > 0 && s.anchored {
		s.columnList = true
	}
	return s
}

func startingBefore(tables []parser.TableRef, offset int) []parser.TableRef {
	var out []parser.TableRef
	for _, t := range tables {
		if t.Start < offset {
			out = append(out, t)
		}
	}
	return out
}

// tokensBetween returns the non-EOF tokens that start in [start, end).
func tokensBetween(toks []token.Token, start, end int) []token.Token {
	i := sort.Search(len(toks), func(i int) bool { return toks[i].Pos.Offset >= start })
	j := i
	for j < len(toks) && toks[j].Type != token.EOF && toks[j].Pos.Offset < end {
		j++
	}
	return toks[i:j]
}

func cteNames(sc *parser.Scope) []string {
	var out []string
	for _, c := range sc.VisibleCTEs() {
		out = append(out, c.Name)
	}
	return out
}

// cteOf returns the name of the CTE whose body is sc.
func (a *analysis) cteOf(sc *parser.Scope) string {
	if sc.Parent == nil {
		return ""
	}
	for _, c := range sc.Parent.CTEs {
		if c.Body == sc {
			return c.Name
		}
	}
	return ""
}

func (a *analysis) refs(sc *parser.Scope, tables []parser.TableRef) []TableRef {
	if len(tables) == 0 {
		return nil
	}
	out := make([]TableRef, 0, len(tables))
	for _, t := range tables {
		out = append(out, a.ref(sc, t, 0))
	}
	return out
}

func (a *analysis) ref(sc *parser.Scope, t parser.TableRef, depth int) TableRef {
	out := TableRef{Name: t.Name, Schema: t.Schema, Alias: t.Alias, CTE: t.CTE}
	if depth >= maxDerivedDepth {
		return out
	}
	switch {
	case t.Derived != nil:
		out.Derived = true
		out.Columns, out.Sources = a.outputs(t.Derived, depth+1)
	case t.CTE:
		cte, ok := sc.FindCTE(t.Name)
		if !ok {
			break
		}
		if len(cte.Columns) > 0 {
			out.Columns = cte.Columns
		} else if cte.Body != nil {
			out.Columns, out.Sources = a.outputs(cte.Body, depth+1)
		}
	}
	return out
}

// outputs reads the select list of sc: the named output columns, and the
// scope's tables when the list contains a star.
func (a *analysis) outputs(sc *parser.Scope, depth int) (cols []string, sources []TableRef) {
	for _, cl := range sc.Clauses {
		if cl.Kind != parser.ClauseSelect {
			continue
		}
		star := false
		for _, item := range splitItems(tokensBetween(a.script.Tokens, cl.KeywordEnd, cl.End)) {
			name, isStar := itemName(item)
			switch {
			case isStar:
				star = true
			case name != "":
				cols = append(cols, name)
			}
		}
		if star {
			for _, t := range sc.Tables {
				sources = append(sources, a.ref(sc, t, depth))
			}
		}
		return cols, sources
	}
	return nil, nil
}

// splitItems splits a select list at depth-0 commas.
func splitItems(toks []token.Token) [][]token.Token {
	var items [][]token.Token
	depth, start := 0, 0
	for i, t := range toks {
		switch t.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.COMMA:
			if depth == 0 {
				items = append(items, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(items, toks[start:])
}

// itemName returns the output name of one select item.
func itemName(item []token.Token) (string, bool) {
	for len(item) > 0 && (item[0].Type == token.DISTINCT || item[0].Type == token.ALL) {
		item = item[1:]
	}
	n := len(item)
	if n == 0 {
		return "", false
	}
	last := item[n-1]
	if last.Type == token.STAR {
		return "", n == 1 || item[n-2].Type == token.DOT
	}
	if last.Type != token.IDENT {
		return "", false
	}
	if n == 1 {
		return last.Literal, false
	}
	switch item[n-2].Type {
	case token.AS, token.DOT, token.IDENT, token.NUMBER, token.STRING, token.RPAREN:
		return last.Literal, false
	}
	return "", false
}
