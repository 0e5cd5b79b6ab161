package analyzer

import (
	"strings"

	"github.com/leapstack-labs/sqlsense/pkg/parser"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// Fallback classifies the text before the cursor with a backward scan for
// the nearest clause keyword. It knows nothing about tables.
func Fallback(before string) Context {
	if strings.HasSuffix(before, ".") {
		if ident, _ := identBeforeDot(before, len(before)-1); ident != "" {
			return Context{Kind: AfterDot, Identifier: ident, Fallback: true}
		}
	}

	var words []token.Token
	for _, t := range parser.Tokenize(before) {
		if t.IsWord() || t.Type == token.COMMA || t.Type == token.NUMBER || t.Type == token.STRING {
			words = append(words, t)
		}
	}

	for i := len(words) - 1; i >= 0; i-- {
		if words[i].Type == token.COMMA {
			return Context{Kind: afterComma(words[:i]), Fallback: true}
		}
		switch strings.ToLower(words[i].Literal) {
		case "from", "into", "update", "table":
			kind := FromClause
			if nonClauseWords(words[i+1:]) > 1 {
				kind = General
			}
			return Context{Kind: kind, Fallback: true}
		case "join":
			return Context{Kind: JoinClause, Fallback: true}
		case "select":
			return Context{Kind: SelectList, Fallback: true}
		case "where", "and", "or", "on", "having", "set":
			return Context{Kind: ConditionClause, Fallback: true}
		}
	}
	return Context{Kind: General, Fallback: true}
}

// afterComma decides what a comma continues by looking further back for
// the keyword that governs the list.
func afterComma(words []token.Token) Kind {
	for i := len(words) - 1; i >= 0; i-- {
		if words[i].Type == token.COMMA {
			continue
		}
		switch strings.ToLower(words[i].Literal) {
		case "from":
			return FromClause
		case "where", "and", "or", "on", "having", "set":
			return ConditionClause
		case "select", "by", "into", "values", "join", "update", "table":
			return SelectList
		}
	}
	return SelectList
}

func nonClauseWords(words []token.Token) int {
	n := 0
	for _, w := range words {
		if w.Type != token.COMMA && !clauseWords[strings.ToLower(w.Literal)] {
			n++
		}
	}
	return n
}
