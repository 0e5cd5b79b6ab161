package diagnostic

import (
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// UnterminatedString reports a string literal that runs to the end of input.
var UnterminatedString = &Rule{
	ID:          "SQL001",
	Name:        "syntax.unterminated_string",
	Group:       GroupSyntax,
	Description: "String literal is missing its closing quote.",
	Severity:    core.SeverityError,
	Check: func(in *Input) []Finding {
		return unterminated(in, func(t token.Token) bool { return t.Type == token.STRING },
			"Unterminated string literal")
	},
}

// UnterminatedIdentifier reports a quoted identifier that runs to the end of input.
var UnterminatedIdentifier = &Rule{
	ID:          "SQL002",
	Name:        "syntax.unterminated_identifier",
	Group:       GroupSyntax,
	Description: "Quoted identifier is missing its closing quote.",
	Severity:    core.SeverityError,
	Check: func(in *Input) []Finding {
		return unterminated(in, func(t token.Token) bool { return t.Type == token.IDENT && t.Quoted },
			"Unterminated quoted identifier")
	},
}

// UnterminatedComment reports a block comment without its closing */.
var UnterminatedComment = &Rule{
	ID:          "SQL003",
	Name:        "syntax.unterminated_comment",
	Group:       GroupSyntax,
	Description: "Block comment is missing its closing */.",
	Severity:    core.SeverityError,
	Check: func(in *Input) []Finding {
		var out []Finding
		for _, c := range in.Script.Comments {
			if c.IsBlockComment() && c.Unterminated {
				out = append(out, Finding{
					Start:   c.Span.Start.Offset,
					End:     c.Span.Start.Offset + 2,
					Message: "Unterminated block comment",
				})
			}
		}
		return out
	},
}

func unterminated(in *Input, match func(token.Token) bool, msg string) []Finding {
	var out []Finding
	for _, t := range in.Script.Tokens {
		if t.Unterminated && match(t) {
			out = append(out, Finding{Start: t.Pos.Offset, End: t.End, Message: msg})
		}
	}
	return out
}

// UnbalancedParens reports parentheses without a partner.
var UnbalancedParens = &Rule{
	ID:          "SQL004",
	Name:        "syntax.unbalanced_parens",
	Group:       GroupSyntax,
	Description: "Every opening parenthesis needs a closing one and vice versa.",
	Severity:    core.SeverityError,
	Check:       checkParens,
}

func checkParens(in *Input) []Finding {
	var out []Finding
	var open []token.Token
	for _, t := range in.Script.Tokens {
		switch t.Type {
		case token.LPAREN:
			open = append(open, t)
		case token.RPAREN:
			if len(open) == 0 {
				out = append(out, Finding{Start: t.Pos.Offset, End: t.End, Message: "Unmatched closing parenthesis"})
				continue
			}
			open = open[:len(open)-1]
		}
	}
	for _, t := range open {
		out = append(out, Finding{Start: t.Pos.Offset, End: t.End, Message: "Unclosed parenthesis"})
	}
	return out
}

// tableTerminators are tokens that cannot start a table reference.
var tableTerminators = map[token.TokenType]bool{
	token.EOF: true, token.SEMICOLON: true, token.RPAREN: true, token.COMMA: true,
	token.WHERE: true, token.GROUP: true, token.ORDER: true, token.LIMIT: true,
	token.OFFSET: true, token.HAVING: true, token.JOIN: true, token.INNER: true,
	token.LEFT: true, token.RIGHT: true, token.FULL: true, token.CROSS: true,
	token.NATURAL: true, token.UNION: true, token.EXCEPT: true, token.INTERSECT: true,
	token.ON: true, token.USING: true, token.RETURNING: true, token.SET: true,
}

// MissingTable reports FROM with nothing to read from.
var MissingTable = &Rule{
	ID:          "SQL005",
	Name:        "syntax.missing_table",
	Group:       GroupSyntax,
	Description: "FROM must be followed by a table name or subquery.",
	Severity:    core.SeverityError,
	Check: func(in *Input) []Finding {
		var out []Finding
		toks := in.Script.Tokens
		for i, t := range toks {
			if t.Type != token.FROM || i+1 >= len(toks) {
				continue
			}
			if tableTerminators[toks[i+1].Type] {
				out = append(out, Finding{Start: t.Pos.Offset, End: t.End, Message: "Expected table name after FROM"})
			}
		}
		return out
	},
}

// TrailingComma reports a select list that ends in a comma.
var TrailingComma = &Rule{
	ID:          "SQL006",
	Name:        "syntax.trailing_comma",
	Group:       GroupSyntax,
	Description: "The last select item must not be followed by a comma.",
	Severity:    core.SeverityError,
	Check: func(in *Input) []Finding {
		var out []Finding
		toks := in.Script.Tokens
		for i := 0; i+1 < len(toks); i++ {
			if toks[i].Type == token.COMMA && toks[i+1].Type == token.FROM {
				out = append(out, Finding{Start: toks[i].Pos.Offset, End: toks[i].End, Message: "Trailing comma before FROM"})
			}
		}
		return out
	},
}
