// Package completion produces ranked completion items for a cursor position.
//
// Candidates are gathered per analyzer context, ordered by tier, re-ranked
// by the fuzzy matcher once a fragment is typed, deduplicated and capped.
package completion

import "fmt"

// ItemKind classifies a completion item.
type ItemKind int

// Item kinds.
const (
	KindKeyword ItemKind = iota
	KindTable
	KindView
	KindColumn
	KindFunction
	KindCTE
	KindDataType
	KindSnippet
	// KindText marks a non-actionable informational item.
	KindText
)

var itemKindNames = [...]string{
	KindKeyword:  "keyword",
	KindTable:    "table",
	KindView:     "view",
	KindColumn:   "column",
	KindFunction: "function",
	KindCTE:      "cte",
	KindDataType: "type",
	KindSnippet:  "snippet",
	KindText:     "text",
}

func (k ItemKind) String() string {
	if int(k) < len(itemKindNames) {
		return itemKindNames[k]
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k ItemKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name written by MarshalText.
func (k *ItemKind) UnmarshalText(b []byte) error {
	for i, name := range itemKindNames {
		if name == string(b) {
			*k = ItemKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown completion item kind %q", b)
}

// Item is one completion candidate. The replace range is a byte range of the
// document that starts at the partially typed word and ends at the cursor.
type Item struct {
	Label         string   `json:"label"`
	Kind          ItemKind `json:"kind"`
	Detail        string   `json:"detail,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	InsertText    string   `json:"insert_text"`
	FilterText    string   `json:"filter_text,omitempty"`
	SortText      string   `json:"sort_text"`
	ReplaceStart  int      `json:"replace_start"`
	ReplaceEnd    int      `json:"replace_end"`
}

// filterKey is the text the fuzzy matcher sees.
func (it Item) filterKey() string {
	if it.FilterText != "" {
		return it.FilterText
	}
	return it.Label
}

// Ranking tiers, best first.
type tier int

const (
	tierCTE tier = iota
	tierLinkedTable
	tierTable
	tierView
	tierColumn
	tierUserFunction
	tierFunction
	tierContextKeyword
	tierDialectKeyword
	tierCrossDialect
	tierOperator
)

// candidate is an item before ranking.
type candidate struct {
	Item
	tier tier
	// dedupe is the identity used to drop repeated candidates.
	dedupe string
}
