package completion

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/leapstack-labs/sqlsense/internal/analyzer"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
)

// Fixed keyword sets offered per context.
var (
	selectKeywords    = []string{"DISTINCT", "AS", "FROM", "CASE", "CAST"}
	joinKeywords      = []string{"ON", "USING"}
	conditionKeywords = []string{"AND", "OR", "NOT", "IN", "LIKE", "BETWEEN", "IS", "NULL", "EXISTS", "CASE", "WHEN", "THEN", "ELSE", "END"}
	cteKeywords       = []string{"SELECT", "FROM", "WHERE", "AS"}
	statementStarters = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH", "CREATE", "DROP"}
)

// followKeywords are offered in General context after the last clause
// anchor word seen in the statement.
var followKeywords = map[string][]string{
	"with":   {"RECURSIVE", "AS", "SELECT"},
	"select": {"DISTINCT", "AS", "FROM", "CASE", "CAST"},
	"from":   {"JOIN", "LEFT", "INNER", "WHERE", "GROUP", "ORDER", "UNION", "LIMIT"},
	"join":   {"ON", "USING", "JOIN", "LEFT", "INNER", "WHERE"},
	"where":  {"AND", "OR", "IN", "LIKE", "BETWEEN", "EXISTS", "NOT", "GROUP", "ORDER"},
	"and":    {"AND", "OR", "IN", "LIKE", "BETWEEN", "EXISTS", "NOT"},
	"or":     {"AND", "OR", "IN", "LIKE", "BETWEEN", "EXISTS", "NOT"},
	"having": {"AND", "OR", "ORDER", "LIMIT"},
	"group":  {"HAVING", "ORDER", "LIMIT"},
	"order":  {"ASC", "DESC", "LIMIT", "OFFSET"},
	"limit":  {"OFFSET"},
}

// collector gathers the candidates for one request.
type collector struct {
	req   Request
	ctx   analyzer.Context
	word  string
	items []candidate
}

func (c *collector) add(it Item, t tier, dedupe string) {
	if it.InsertText == "" && it.Kind != KindText {
		it.InsertText = it.Label
	}
	c.items = append(c.items, candidate{Item: it, tier: t, dedupe: dedupe})
}

// gather fills c.items for the analyzed context.
func (c *collector) gather() {
	switch c.ctx.Kind {
	case analyzer.SelectList:
		for _, ref := range c.ctx.Tables {
			c.refColumns(ref)
		}
		c.functions(false)
		c.keywords(selectKeywords, tierContextKeyword)

	case analyzer.FromClause:
		c.tables(c.ctx.Schema)
		c.views(c.ctx.Schema)
		c.ctes()
		c.keywords(c.req.Dialect.FromKeywords(), tierContextKeyword)
		if c.word != "" {
			c.prefixedKeywords()
		}

	case analyzer.JoinClause:
		c.linkedTables()
		c.tables(c.ctx.Schema)
		c.views(c.ctx.Schema)
		c.ctes()
		c.keywords(joinKeywords, tierContextKeyword)

	case analyzer.ConditionClause:
		if c.ctx.HasTables() {
			for _, ref := range c.ctx.Tables {
				c.refColumns(ref)
			}
		} else {
			for _, t := range c.req.Schema.Tables() {
				c.tableColumns(t.Name)
			}
		}
		c.functions(true)
		c.keywords(conditionKeywords, tierContextKeyword)
		if c.word == "" {
			c.add(Item{
				Label:      "=",
				Kind:       KindSnippet,
				Detail:     "equals",
				InsertText: "= ",
			}, tierOperator, "op:=")
		}

	case analyzer.AfterDot:
		c.afterDot()

	case analyzer.CommonTableExpression:
		c.keywords(cteKeywords, tierContextKeyword)

	case analyzer.Subquery:
		for _, ref := range c.ctx.Tables {
			c.refColumns(ref)
		}

	default:
		c.general()
	}
}

// afterDot offers the columns of the one table the identifier resolves to.
func (c *collector) afterDot() {
	if ref, ok := analyzer.Resolve(c.ctx, c.req.Text, c.ctx.Identifier, c.req.Schema); ok {
		c.refColumns(ref)
	}
}

func (c *collector) refColumns(ref analyzer.TableRef) {
	if !ref.CTE && !ref.Derived {
		c.tableColumns(ref.Name)
		return
	}
	owner := ref.Identifier()
	for _, col := range ref.Columns {
		c.add(Item{
			Label:  col,
			Kind:   KindColumn,
			Detail: owner + "." + col,
		}, tierColumn, "col:"+strings.ToLower(owner+"."+col))
	}
	for _, src := range ref.Sources {
		c.refColumns(src)
	}
}

func (c *collector) tableColumns(table string) {
	for _, col := range c.req.Schema.Columns(table) {
		c.add(Item{
			Label:         col.Name,
			Kind:          KindColumn,
			Detail:        columnDetail(table, col),
			Documentation: col.Comment,
		}, tierColumn, "col:"+strings.ToLower(table+"."+col.Name))
	}
}

func columnDetail(table string, col core.ColumnInfo) string {
	null := "NULL"
	if !col.Nullable {
		null = "NOT NULL"
	}
	typ := col.DataType
	if typ == "" {
		typ = "unknown"
	}
	return fmt.Sprintf("%s.%s: %s (%s)", table, col.Name, typ, null)
}

// inSchema reports whether an object in objSchema is offered for a name
// qualified by want. Objects without a schema are always offered.
func inSchema(want, objSchema string) bool {
	return want == "" || objSchema == "" || strings.EqualFold(want, objSchema)
}

func (c *collector) tables(qualifier string) {
	for _, t := range c.req.Schema.Tables() {
		if !inSchema(qualifier, t.Schema) {
			continue
		}
		c.add(tableItem(t, ""), tierTable, "table:"+strings.ToLower(t.Name))
	}
}

func tableItem(t core.TableInfo, link string) Item {
	detail := "table"
	if t.Schema != "" {
		detail = "table in " + t.Schema
	}
	if link != "" {
		detail += ", linked by " + link
	}
	return Item{
		Label:         t.Name,
		Kind:          KindTable,
		Detail:        detail,
		Documentation: t.Comment,
	}
}

func (c *collector) views(qualifier string) {
	for _, v := range c.req.Schema.Views() {
		if !inSchema(qualifier, v.Schema) {
			continue
		}
		c.add(Item{
			Label:         v.Name,
			Kind:          KindView,
			Detail:        "view",
			Documentation: v.Comment,
		}, tierView, "view:"+strings.ToLower(v.Name))
	}
}

func (c *collector) ctes() {
	for _, name := range c.ctx.CTEs {
		c.add(Item{Label: name, Kind: KindCTE, Detail: "common table expression"}, tierCTE, "cte:"+strings.ToLower(name))
	}
}

// linkedTables boosts tables joined to an existing one by a foreign key in
// either direction.
func (c *collector) linkedTables() {
	sc := c.req.Schema
	for _, ref := range c.ctx.Tables {
		if ref.CTE || ref.Derived {
			continue
		}
		for _, fk := range sc.ForeignKeys(ref.Name) {
			if t, ok := sc.Table(fk.RefTable); ok {
				c.add(tableItem(t, fk.Table+"."+fk.String()), tierLinkedTable, "table:"+strings.ToLower(t.Name))
			}
		}
		for _, fk := range sc.ReferencedBy(ref.Name) {
			if t, ok := sc.Table(fk.Table); ok {
				c.add(tableItem(t, fk.Table+"."+fk.String()), tierLinkedTable, "table:"+strings.ToLower(t.Name))
			}
		}
	}
}

// functions offers user-defined functions ahead of the dialect catalog.
// Aggregates are left out when scalarOnly is set.
func (c *collector) functions(scalarOnly bool) {
	for _, r := range c.req.Schema.Functions() {
		if scalarOnly && r.Aggregate {
			continue
		}
		c.add(Item{
			Label:         r.Name,
			Kind:          KindFunction,
			Detail:        routineSignature(r),
			InsertText:    r.Name + "()",
			Documentation: r.Definition,
		}, tierUserFunction, "fn:"+strings.ToLower(r.Name))
	}

	fns := c.req.Dialect.Functions()
	if scalarOnly {
		fns = c.req.Dialect.ScalarFunctions()
	}
	for _, f := range fns {
		detail := f.Name + "()"
		if len(f.Signatures) > 0 {
			detail = f.Signatures[0].Label
		}
		if f.ReturnType != "" {
			detail += " → " + f.ReturnType
		}
		c.add(Item{
			Label:         f.Name,
			Kind:          KindFunction,
			Detail:        detail,
			InsertText:    f.Name + "()",
			Documentation: f.Description,
		}, tierFunction, "fn:"+strings.ToLower(f.Name))
	}
}

func routineSignature(r core.RoutineInfo) string {
	params := make([]string, len(r.Params))
	for i, p := range r.Params {
		params[i] = strings.TrimSpace(p.Name + " " + p.DataType)
	}
	sig := r.Name + "(" + strings.Join(params, ", ") + ")"
	if r.ReturnType != "" {
		sig += " → " + r.ReturnType
	}
	return sig
}

// keywordOK reports whether kw may be offered under the active dialect. The
// generic dialect accepts every keyword.
func (c *collector) keywordOK(kw string) bool {
	d := c.req.Dialect
	return d.Kind == dialect.Generic || d.IsKeyword(kw)
}

func (c *collector) keywords(kws []string, t tier) {
	for _, kw := range kws {
		if !c.keywordOK(kw) {
			continue
		}
		c.keyword(kw, t)
	}
}

func (c *collector) keyword(kw string, t tier) {
	it := Item{Label: kw, Kind: KindKeyword, Detail: "keyword"}
	if doc, ok := c.req.Dialect.KeywordDoc(kw); ok {
		it.Documentation = doc
	}
	c.add(it, t, "kw:"+strings.ToUpper(kw))
}

// prefixedKeywords offers the dialect keywords that start with the typed word.
func (c *collector) prefixedKeywords() {
	w := strings.ToUpper(c.word)
	for _, kw := range c.req.Dialect.Keywords() {
		if strings.HasPrefix(kw, w) {
			c.keyword(kw, tierDialectKeyword)
		}
	}
}

// general offers the keywords that can follow the statement typed so far,
// then the whole dialect vocabulary.
func (c *collector) general() {
	d := c.req.Dialect
	stmt := statementBefore(c.req.Text, c.req.Offset)

	anchor, hasWith := lastAnchor(stmt)
	switch {
	case anchor != "":
		c.keywords(followKeywords[anchor], tierContextKeyword)
	case hasWith:
		c.keywords(followKeywords["with"], tierContextKeyword)
	default:
		c.keywords(statementStarters, tierContextKeyword)
		c.keywords(d.StatementKeywords(), tierContextKeyword)
	}

	for _, kw := range d.Keywords() {
		c.keyword(kw, tierDialectKeyword)
	}
	for _, dt := range d.DataTypes() {
		c.add(Item{Label: dt, Kind: KindDataType, Detail: "data type"}, tierDialectKeyword, "type:"+dt)
	}
	if d.Kind == dialect.Generic {
		for _, kw := range d.CrossDialectKeywords() {
			c.keyword(kw, tierCrossDialect)
		}
	}
	if len([]rune(c.word)) >= 2 {
		c.tables("")
	}
}

// statementKeywords is the short-query fallback set.
func (c *collector) statementKeywords() {
	c.keywords(statementStarters, tierContextKeyword)
	c.keywords(c.req.Dialect.StatementKeywords(), tierContextKeyword)
}

// statementBefore returns the text of the statement the cursor is in, up to
// the cursor.
func statementBefore(text string, offset int) string {
	before := text[:offset]
	if i := strings.LastIndexByte(before, ';'); i >= 0 {
		before = before[i+1:]
	}
	return before
}

// lastAnchor returns the last clause anchor word of stmt, lowercased, and
// whether the statement contains WITH.
func lastAnchor(stmt string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(stmt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	hasWith := false
	last := ""
	for i, w := range words {
		if w == "with" {
			hasWith = true
			continue
		}
		// The word being typed is not an anchor yet.
		if i == len(words)-1 && !endsOutsideWord(stmt) {
			break
		}
		if _, ok := followKeywords[w]; ok {
			last = w
		}
	}
	return last, hasWith
}

func endsOutsideWord(s string) bool {
	if s == "" {
		return false
	}
	r := rune(s[len(s)-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}
