package analyzer

import "strings"

// AliasMap maps each alias and each bare table name of tables, lowercased,
// to the canonical table name. Derived tables have no canonical name and are
// left out.
func AliasMap(tables []TableRef) map[string]string {
	m := make(map[string]string, len(tables)*2)
	for _, t := range tables {
		if t.Name == "" {
			continue
		}
		if t.Alias != "" {
			m[strings.ToLower(t.Alias)] = t.Name
		}
		if _, taken := m[strings.ToLower(t.Name)]; !taken {
			m[strings.ToLower(t.Name)] = t.Name
		}
	}
	return m
}

// ResolveBySubstring is the last-resort alias resolver for when no scoped
// table reference is available. It searches the lowercased text for
// "<table> <alias>" or "<table> as <alias>" for each known table and returns
// the first table that matches.
//
// It can mis-resolve when an alias is a substring of an unrelated name, so
// callers try the scoped resolver first.
func ResolveBySubstring(text, alias string, tables []string) (string, bool) {
	lower := strings.ToLower(text)
	a := strings.ToLower(alias)
	for _, t := range tables {
		tl := strings.ToLower(t)
		if strings.Contains(lower, tl+" "+a) || strings.Contains(lower, tl+" as "+a) {
			return t, true
		}
	}
	return "", false
}

// Catalog is the view of the schema cache the resolver needs.
type Catalog interface {
	// HasRelation reports whether name is a cached table or view.
	HasRelation(name string) bool
	TableNames() []string
}

// Resolve maps ident, a qualifier typed in text, to the reference it names.
// The scoped target of ctx wins, then the aliases of ctx.Tables, then a
// cached relation of that name, and only then the text search.
func Resolve(ctx Context, text, ident string, cat Catalog) (TableRef, bool) {
	if ctx.Target != nil && ctx.Target.Matches(ident) {
		return *ctx.Target, true
	}
	if name, ok := AliasMap(ctx.Tables)[strings.ToLower(ident)]; ok {
		for _, t := range ctx.Tables {
			if t.Matches(ident) {
				return t, true
			}
		}
		return TableRef{Name: name}, true
	}
	if cat.HasRelation(ident) {
		return TableRef{Name: ident}, true
	}
	if name, ok := ResolveBySubstring(text, ident, cat.TableNames()); ok {
		return TableRef{Name: name, Alias: ident}, true
	}
	return TableRef{}, false
}
