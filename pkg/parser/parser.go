package parser

import (
	"strings"

	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// Script is a parsed buffer: its tokens and the statements they form.
type Script struct {
	Text       string
	Tokens     []token.Token // including the final EOF
	Comments   []*token.Comment
	Statements []*Statement
}

// Statement is one semicolon-separated statement.
type Statement struct {
	Start  int // offset just past the previous semicolon, or 0
	End    int // offset of the terminating semicolon, or the text end
	Tokens []token.Token
	Root   *Scope
}

// Text returns the statement's source.
func (st *Statement) Text(src string) string {
	return src[st.Start:st.End]
}

// FirstKeyword returns the upper-cased first word of the statement.
func (st *Statement) FirstKeyword() string {
	for _, t := range st.Tokens {
		if t.IsWord() {
			return t.Upper()
		}
		if t.Type != token.LPAREN {
			break
		}
	}
	return ""
}

// Parse tokenizes text and builds a scope tree for each statement.
// It accepts any input.
func Parse(text string) *Script {
	return ParseWith(text, Options{})
}

// ParseWith is Parse with dialect-specific string forms enabled.
func ParseWith(text string, opts Options) *Script {
	toks, comments := TokenizeWith(text, opts)
	s := &Script{Text: text, Tokens: toks, Comments: comments}

	start, from, depth := 0, 0, 0
	for i, t := range toks {
		switch t.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			if depth > 0 {
				depth--
			}
		case token.SEMICOLON, token.EOF:
			if t.Type == token.SEMICOLON && depth > 0 {
				continue
			}
			st := &Statement{Start: start, End: t.Pos.Offset, Tokens: toks[from:i]}
			if t.Type == token.EOF {
				st.End = len(text)
			}
			st.Root = parseStatement(st)
			s.Statements = append(s.Statements, st)
			start, from, depth = t.End, i+1, 0
		}
	}
	return s
}

// StatementAt returns the statement containing offset. An offset just past
// a semicolon belongs to the following statement.
func (s *Script) StatementAt(offset int) *Statement {
	for _, st := range s.Statements {
		if offset >= st.Start && offset <= st.End {
			return st
		}
	}
	if n := len(s.Statements); n > 0 {
		return s.Statements[n-1]
	}
	return nil
}

// ScopeAt returns the innermost scope containing offset.
func (s *Script) ScopeAt(offset int) *Scope {
	st := s.StatementAt(offset)
	if st == nil {
		return nil
	}
	return st.Root.ScopeAt(offset)
}

// notAlias lists words that may follow a table name without being its alias.
var notAlias = map[string]bool{
	"for": true, "window": true, "qualify": true, "fetch": true, "tablesample": true,
	"pivot": true, "unpivot": true, "go": true, "natural": true, "do": true,
	"if": true, "default": true, "add": true, "rename": true, "column": true,
	"owner": true, "cascade": true, "restrict": true, "conflict": true,
}

type scopeParser struct {
	toks []token.Token
	i    int
	end  int // statement end offset
}

func parseStatement(st *Statement) *Scope {
	root := &Scope{Kind: ScopeStatement, Start: st.Start, End: st.End, Opener: token.EOF, Closed: true}
	p := &scopeParser{toks: st.Tokens, end: st.End}
	p.parseScope(root, false)
	markCTEs(root)
	return root
}

func (p *scopeParser) peek(n int) token.Token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return token.Token{Type: token.EOF, Pos: token.Position{Offset: p.end}, End: p.end}
}

func (p *scopeParser) prevType() token.TokenType {
	if p.i > 0 {
		return p.toks[p.i-1].Type
	}
	return token.EOF
}

// parseScope consumes tokens into sc. A nested scope returns after
// consuming its closing paren.
func (p *scopeParser) parseScope(sc *Scope, nested bool) {
	depth := 0
	expectTable := false

	defer func() {
		if n := len(sc.Clauses); n > 0 {
			sc.Clauses[n-1].End = sc.End
		}
	}()

	for p.i < len(p.toks) {
		tok := p.toks[p.i]

		if tok.Type == token.LPAREN {
			next := p.peek(1).Type
			if next == token.SELECT || next == token.WITH || (next == token.VALUES && expectTable) {
				child := &Scope{Kind: ScopeSubquery, Start: tok.End, Parent: sc, Opener: p.prevType(), End: p.end}
				sc.Children = append(sc.Children, child)
				p.i++
				p.parseScope(child, true)
				if expectTable && depth == 0 {
					ref := TableRef{Start: tok.Pos.Offset, End: p.lastEnd(), Derived: child}
					ref.Alias = p.parseAlias(&ref)
					sc.Tables = append(sc.Tables, ref)
					expectTable = false
				}
				continue
			}
			depth++
			p.i++
			continue
		}

		if tok.Type == token.RPAREN {
			p.i++
			if depth > 0 {
				depth--
				continue
			}
			if nested {
				sc.End = tok.Pos.Offset
				sc.Closed = true
				return
			}
			continue
		}

		if depth > 0 {
			p.i++
			continue
		}

		if expectTable {
			if tok.Type == token.LATERAL || strings.EqualFold(tok.Literal, "only") && p.peek(1).Type == token.IDENT {
				p.i++
				continue
			}
			if tok.Type == token.IDENT {
				sc.Tables = append(sc.Tables, p.parseTableRef())
				expectTable = false
				continue
			}
		}

		switch tok.Type {
		case token.WITH:
			p.parseWith(sc)
			continue
		case token.SELECT:
			sc.addClause(ClauseSelect, tok, tok.End)
			expectTable = false
		case token.FROM:
			sc.addClause(ClauseFrom, tok, tok.End)
			expectTable = true
		case token.JOIN:
			sc.addClause(ClauseJoin, tok, tok.End)
			expectTable = true
		case token.LEFT, token.RIGHT, token.INNER, token.OUTER, token.CROSS, token.FULL, token.NATURAL:
			if j := p.joinAhead(); j > 0 {
				sc.addClause(ClauseJoin, tok, p.toks[p.i+j].End)
				p.i += j + 1
				expectTable = true
				continue
			}
		case token.ON, token.USING:
			switch sc.lastClause() {
			case ClauseJoin:
				sc.addClause(ClauseOn, tok, tok.End)
				expectTable = false
			case ClauseDDL:
				// CREATE INDEX name ON table
				expectTable = true
			}
		case token.WHERE:
			sc.addClause(ClauseWhere, tok, tok.End)
			expectTable = false
		case token.GROUP, token.ORDER:
			if p.peek(1).Type == token.BY {
				kind := ClauseGroupBy
				if tok.Type == token.ORDER {
					kind = ClauseOrderBy
				}
				sc.addClause(kind, tok, p.peek(1).End)
				p.i += 2
				expectTable = false
				continue
			}
		case token.HAVING:
			sc.addClause(ClauseHaving, tok, tok.End)
		case token.LIMIT, token.OFFSET:
			sc.addClause(ClauseLimit, tok, tok.End)
		case token.UNION, token.EXCEPT, token.INTERSECT:
			kwEnd := tok.End
			if n := p.peek(1).Type; n == token.ALL || n == token.DISTINCT {
				kwEnd = p.peek(1).End
				p.i++
			}
			sc.addClause(ClauseSetOp, tok, kwEnd)
			p.i++
			child := &Scope{Kind: ScopeCompound, Start: kwEnd, Parent: sc, Opener: tok.Type, End: p.end}
			sc.Children = append(sc.Children, child)
			p.parseScope(child, nested)
			sc.End = child.End
			sc.Closed = child.Closed
			return
		case token.INSERT:
			sc.addClause(ClauseInsert, tok, tok.End)
			if p.peek(1).Type == token.INTO {
				sc.Clauses[len(sc.Clauses)-1].KeywordEnd = p.peek(1).End
				p.i++
			}
			expectTable = true
		case token.INTO:
			sc.addClause(ClauseInsert, tok, tok.End)
			expectTable = true
		case token.VALUES:
			sc.addClause(ClauseValues, tok, tok.End)
			expectTable = false
		case token.UPDATE:
			// ON CONFLICT ... DO UPDATE SET stays in the insert statement.
			if !sc.HasClause(ClauseInsert) {
				sc.addClause(ClauseUpdate, tok, tok.End)
				expectTable = true
			}
		case token.SET:
			if last := sc.lastClause(); last == ClauseUpdate || last == ClauseInsert || last == ClauseValues {
				sc.addClause(ClauseSet, tok, tok.End)
				expectTable = false
			}
		case token.DELETE:
			sc.addClause(ClauseDelete, tok, tok.End)
		case token.CREATE, token.ALTER, token.DROP:
			sc.addClause(ClauseDDL, tok, tok.End)
		case token.TABLE:
			if sc.lastClause() != ClauseDDL {
				sc.addClause(ClauseDDL, tok, tok.End)
			}
			expectTable = true
			p.i++
			p.skipIfExists()
			continue
		case token.RETURNING:
			sc.addClause(ClauseReturning, tok, tok.End)
		case token.COMMA:
			if sc.lastClause() == ClauseFrom {
				expectTable = true
			}
		}
		p.i++
	}

	sc.End = p.end
}

// joinAhead returns how many tokens ahead JOIN follows a run of join
// modifiers, or 0 when the run is not followed by JOIN.
func (p *scopeParser) joinAhead() int {
	for j := 1; p.i+j < len(p.toks); j++ {
		switch p.toks[p.i+j].Type {
		case token.JOIN:
			return j
		case token.LEFT, token.RIGHT, token.INNER, token.OUTER, token.CROSS, token.FULL, token.NATURAL:
			continue
		default:
			return 0
		}
	}
	return 0
}

// skipIfExists steps over IF [NOT] EXISTS after TABLE.
func (p *scopeParser) skipIfExists() {
	if strings.EqualFold(p.peek(0).Literal, "if") {
		p.i++
		if p.peek(0).Type == token.NOT {
			p.i++
		}
		if p.peek(0).Type == token.EXISTS {
			p.i++
		}
	}
}

func (p *scopeParser) lastEnd() int {
	if p.i > 0 && p.i <= len(p.toks) {
		return p.toks[p.i-1].End
	}
	return p.end
}

// parseTableRef reads name[.name[.name]] [(args)] [[AS] alias].
func (p *scopeParser) parseTableRef() TableRef {
	first := p.toks[p.i]
	parts := []string{first.Literal}
	ref := TableRef{Start: first.Pos.Offset, End: first.End}
	p.i++

	for p.peek(0).Type == token.DOT && p.peek(1).IsWord() {
		parts = append(parts, p.peek(1).Literal)
		ref.End = p.peek(1).End
		p.i += 2
	}

	ref.Name = parts[len(parts)-1]
	if len(parts) > 1 {
		ref.Schema = parts[len(parts)-2]
	}

	// Table-valued function arguments.
	if p.peek(0).Type == token.LPAREN && p.peek(1).Type != token.SELECT {
		depth := 0
		for p.i < len(p.toks) {
			switch p.toks[p.i].Type {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
			}
			ref.End = p.toks[p.i].End
			p.i++
			if depth == 0 {
				break
			}
		}
	}

	ref.Alias = p.parseAlias(&ref)
	return ref
}

// parseAlias consumes an optional [AS] alias and extends ref's end.
func (p *scopeParser) parseAlias(ref *TableRef) string {
	t := p.peek(0)
	if t.Type == token.AS {
		if a := p.peek(1); a.Type == token.IDENT {
			p.i += 2
			ref.End = a.End
			return a.Literal
		}
		p.i++
		return ""
	}
	if t.Type == token.IDENT && (t.Quoted || !notAlias[strings.ToLower(t.Literal)]) {
		p.i++
		ref.End = t.End
		return t.Literal
	}
	return ""
}

// parseWith reads WITH [RECURSIVE] name [(cols)] AS [[NOT] MATERIALIZED] (body), ...
func (p *scopeParser) parseWith(sc *Scope) {
	with := p.toks[p.i]
	sc.addClause(ClauseWith, with, with.End)
	p.i++
	if p.peek(0).Type == token.RECURSIVE {
		sc.Clauses[len(sc.Clauses)-1].KeywordEnd = p.peek(0).End
		p.i++
	}

	for p.i < len(p.toks) {
		name := p.peek(0)
		if !name.IsWord() || name.Type == token.SELECT {
			return
		}
		cte := CTE{Name: name.Literal, NameStart: name.Pos.Offset, NameEnd: name.End}
		p.i++

		if p.peek(0).Type == token.LPAREN && p.peek(1).Type != token.SELECT {
			p.i++
			for p.i < len(p.toks) && p.peek(0).Type != token.RPAREN {
				if t := p.peek(0); t.IsWord() {
					cte.Columns = append(cte.Columns, t.Literal)
				}
				p.i++
			}
			p.i++ // )
		}

		if p.peek(0).Type != token.AS {
			sc.CTEs = append(sc.CTEs, cte)
			return
		}
		p.i++
		for p.peek(0).Type == token.NOT || strings.EqualFold(p.peek(0).Literal, "materialized") {
			p.i++
		}

		sc.CTEs = append(sc.CTEs, cte)
		if open := p.peek(0); open.Type == token.LPAREN {
			body := &Scope{Kind: ScopeCTEBody, Start: open.End, Parent: sc, Opener: token.AS, End: p.end}
			sc.Children = append(sc.Children, body)
			sc.CTEs[len(sc.CTEs)-1].Body = body
			p.i++
			p.parseScope(body, true)
		}

		if p.peek(0).Type != token.COMMA {
			return
		}
		p.i++
	}
}

func (s *Scope) addClause(kind ClauseKind, kw token.Token, kwEnd int) {
	if n := len(s.Clauses); n > 0 {
		s.Clauses[n-1].End = kw.Pos.Offset
	}
	s.Clauses = append(s.Clauses, Clause{Kind: kind, Start: kw.Pos.Offset, KeywordEnd: kwEnd})
}

func (s *Scope) lastClause() ClauseKind {
	if n := len(s.Clauses); n > 0 {
		return s.Clauses[n-1].Kind
	}
	return ClauseNone
}

// markCTEs flags unqualified table references that name a visible CTE.
func markCTEs(root *Scope) {
	root.Walk(func(sc *Scope) {
		for i, t := range sc.Tables {
			if t.Name == "" || t.Schema != "" {
				continue
			}
			if _, ok := sc.FindCTE(t.Name); ok {
				sc.Tables[i].CTE = true
			}
		}
	})
}
