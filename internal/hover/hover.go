// Package hover renders Markdown documentation for the token under the cursor.
package hover

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlsense/internal/analyzer"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
)

// Hover is the documentation for one token. Start and End are the byte
// range of the token.
type Hover struct {
	Markdown string          `json:"markdown"`
	Kind     core.ObjectKind `json:"kind,omitempty"`
	Start    int             `json:"start"`
	End      int             `json:"end"`
}

// Provide returns the hover for the token at offset, or nil when the token
// is unknown. Lookups run in a fixed order: keyword and function docs, a
// column qualified by the identifier before the dot, table, unqualified
// column, view, procedure, user function, index and trigger.
func Provide(text string, offset int, sc *schema.Cache, d *dialect.Dialect) *Hover {
	if sc == nil {
		sc = schema.Empty()
	}
	if d == nil {
		d = dialect.ForKind(dialect.Generic)
	}
	word, start, end := analyzer.WordAt(text, offset)
	if word == "" {
		return nil
	}
	quoted := start < len(text) && strings.ContainsRune("\"`[", rune(text[start]))

	h := lookup(text, word, end, quoted, sc, d)
	if h == nil {
		return nil
	}
	h.Start, h.End = start, end
	return h
}

func lookup(text, word string, end int, quoted bool, sc *schema.Cache, d *dialect.Dialect) *Hover {
	ctx := analyzer.Analyze(text, end)

	if !quoted && ctx.Kind != analyzer.AfterDot {
		if f, ok := d.Function(word); ok {
			return &Hover{Markdown: renderBuiltin(f), Kind: core.KindFunction}
		}
		if doc, ok := d.KeywordDoc(word); ok {
			return &Hover{Markdown: fmt.Sprintf("**%s** (keyword)\n\n%s", strings.ToUpper(word), doc)}
		}
	}

	if ctx.Kind == analyzer.AfterDot {
		if ref, ok := analyzer.Resolve(ctx, text, ctx.Identifier, sc); ok {
			if h := columnOf(ref, word, sc); h != nil {
				return h
			}
		}
	}

	if t, ok := sc.Table(word); ok {
		return &Hover{Markdown: renderTable(t, sc), Kind: core.KindTable}
	}

	for _, ref := range ctx.Tables {
		if h := columnOf(ref, word, sc); h != nil {
			return h
		}
	}
	if table, c, ok := sc.FindColumn(word); ok {
		return &Hover{Markdown: renderColumn(table, c, sc), Kind: core.KindColumn}
	}

	if v, ok := sc.View(word); ok {
		return &Hover{Markdown: renderView(v, sc), Kind: core.KindView}
	}
	if r, ok := sc.Procedure(word); ok {
		return &Hover{Markdown: renderRoutine("Procedure", r), Kind: core.KindProcedure}
	}
	if r, ok := sc.Function(word); ok {
		return &Hover{Markdown: renderRoutine("Function", r), Kind: core.KindFunction}
	}
	if idx, ok := sc.Index(word); ok {
		return &Hover{Markdown: renderIndex(idx), Kind: core.KindIndex}
	}
	if tr, ok := sc.Trigger(word); ok {
		return &Hover{Markdown: renderTrigger(tr), Kind: core.KindTrigger}
	}
	return nil
}

// columnOf renders column name of the relation ref names, if it has one.
func columnOf(ref analyzer.TableRef, name string, sc *schema.Cache) *Hover {
	if ref.CTE || ref.Derived {
		for _, c := range ref.Columns {
			if strings.EqualFold(c, name) {
				kind := "derived table"
				if ref.CTE {
					kind = "common table expression"
				}
				return &Hover{
					Markdown: fmt.Sprintf("**%s.%s**\n\nOutput column of %s `%s`.", ref.Identifier(), c, kind, ref.Identifier()),
					Kind:     core.KindColumn,
				}
			}
		}
		for _, src := range ref.Sources {
			if h := columnOf(src, name, sc); h != nil {
				return h
			}
		}
		return nil
	}
	if c, ok := sc.Column(ref.Name, name); ok {
		return &Hover{Markdown: renderColumn(ref.Name, c, sc), Kind: core.KindColumn}
	}
	return nil
}

func renderBuiltin(f *dialect.Function) string {
	var b strings.Builder
	b.WriteString("```sql\n")
	for _, sig := range f.Signatures {
		b.WriteString(sig.Label)
		if f.ReturnType != "" {
			b.WriteString(" → " + f.ReturnType)
		}
		b.WriteByte('\n')
	}
	b.WriteString("```\n\n")
	b.WriteString(f.Description)
	fmt.Fprintf(&b, "\n\n*%s*", f.Category())
	return b.String()
}

func renderTable(t core.TableInfo, sc *schema.Cache) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (table)", t.QualifiedName())
	if t.Comment != "" {
		b.WriteString("\n\n" + t.Comment)
	}
	if t.RowCount > 0 {
		fmt.Fprintf(&b, "\n\n~%s rows", strconv.FormatInt(t.RowCount, 10))
	}

	fks := sc.ForeignKeys(t.Name)
	if cols := sc.Columns(t.Name); len(cols) > 0 {
		b.WriteString("\n\n| Column | Type | Flags |\n|---|---|---|\n")
		for _, c := range cols {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", c.Name, c.DataType, strings.Join(columnFlags(c, fks), " "))
		}
	}
	if len(fks) > 0 {
		b.WriteString("\n**Foreign keys**\n")
		for _, fk := range fks {
			b.WriteString("- " + fk.String() + "\n")
		}
	}
	if refs := sc.ReferencedBy(t.Name); len(refs) > 0 {
		b.WriteString("\n**Referenced by**\n")
		for _, fk := range refs {
			fmt.Fprintf(&b, "- %s(%s)\n", fk.Table, strings.Join(fk.Columns, ", "))
		}
	}
	if idx := sc.IndexesOn(t.Name); len(idx) > 0 {
		b.WriteString("\n**Indexes**\n")
		for _, i := range idx {
			b.WriteString("- " + indexLine(i) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func columnFlags(c core.ColumnInfo, fks []core.ForeignKey) []string {
	var flags []string
	if c.PrimaryKey {
		flags = append(flags, "PK")
	}
	for _, fk := range fks {
		for i, fc := range fk.Columns {
			if strings.EqualFold(fc, c.Name) && i < len(fk.RefColumns) {
				flags = append(flags, "FK → "+fk.RefTable+"."+fk.RefColumns[i])
			}
		}
	}
	if !c.Nullable {
		flags = append(flags, "NOT NULL")
	}
	return flags
}

func renderColumn(table string, c core.ColumnInfo, sc *schema.Cache) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s.%s**: `%s`", table, c.Name, orUnknown(c.DataType))

	flags := columnFlags(c, sc.ForeignKeys(table))
	if c.Nullable {
		flags = append(flags, "NULL")
	}
	b.WriteString("\n\n" + strings.Join(flags, " · "))
	if c.DefaultValue != "" {
		fmt.Fprintf(&b, "\n\nDefault: `%s`", c.DefaultValue)
	}
	if c.Comment != "" {
		b.WriteString("\n\n" + c.Comment)
	}
	return b.String()
}

func renderView(v core.ViewInfo, sc *schema.Cache) string {
	var b strings.Builder
	name := v.Name
	if v.Schema != "" {
		name = v.Schema + "." + v.Name
	}
	fmt.Fprintf(&b, "**%s** (view)", name)
	if v.Comment != "" {
		b.WriteString("\n\n" + v.Comment)
	}
	if cols := sc.Columns(v.Name); len(cols) > 0 {
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		b.WriteString("\n\nColumns: " + strings.Join(names, ", "))
	}
	if v.Definition != "" {
		b.WriteString("\n\n```sql\n" + strings.TrimSpace(v.Definition) + "\n```")
	}
	return b.String()
}

func renderRoutine(kind string, r core.RoutineInfo) string {
	var b strings.Builder
	if r.Aggregate {
		kind = "Aggregate " + strings.ToLower(kind)
	}
	fmt.Fprintf(&b, "**%s** (%s)\n\n```sql\n%s(", r.Name, strings.ToLower(kind), r.Name)
	for i, p := range r.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Mode != "" && p.Mode != core.ParamIn {
			b.WriteString(string(p.Mode) + " ")
		}
		b.WriteString(strings.TrimSpace(p.Name + " " + p.DataType))
	}
	b.WriteByte(')')
	if r.ReturnType != "" {
		b.WriteString(" → " + r.ReturnType)
	}
	b.WriteString("\n```")
	if r.Language != "" {
		b.WriteString("\n\nLanguage: " + r.Language)
	}
	return b.String()
}

func indexLine(i core.IndexInfo) string {
	var kind string
	switch {
	case i.Primary:
		kind = "primary key "
	case i.Unique:
		kind = "unique "
	}
	return fmt.Sprintf("%s: %son (%s)", i.Name, kind, strings.Join(i.Columns, ", "))
}

func renderIndex(i core.IndexInfo) string {
	kind := "index"
	if i.Unique {
		kind = "unique index"
	}
	return fmt.Sprintf("**%s** (%s)\n\nOn `%s` (%s)", i.Name, kind, i.Table, strings.Join(i.Columns, ", "))
}

func renderTrigger(t core.TriggerInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (trigger)\n\n", t.Name)
	when := strings.TrimSpace(t.Timing + " " + t.Event)
	if when != "" {
		fmt.Fprintf(&b, "%s on `%s`", when, t.Table)
	} else {
		fmt.Fprintf(&b, "On `%s`", t.Table)
	}
	if t.Definition != "" {
		b.WriteString("\n\n```sql\n" + strings.TrimSpace(t.Definition) + "\n```")
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
