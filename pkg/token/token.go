// Package token defines the token types produced by the permissive SQL lexer.
//
// Keywords that drive clause and scope detection have their own types so the
// parser can switch on them. Every other word lexes as IDENT; whether it is a
// keyword of the active dialect is the caller's question.
package token

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier, quoted or not
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'
	PARAM  // ?, $1, :name, @p1

	// Punctuation
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	STAR      // *
	EQ        // =
	OPERATOR  // any other operator: + - / % || <> != < > <= >= ::

	keywordStart

	// Clause keywords (alphabetical)
	ALL
	ALTER
	AND
	ANY
	AS
	BY
	CASE
	CREATE
	CROSS
	DELETE
	DISTINCT
	DROP
	ELSE
	END
	EXCEPT
	EXISTS
	FROM
	FULL
	GROUP
	HAVING
	IN
	INNER
	INSERT
	INTERSECT
	INTO
	JOIN
	LATERAL
	LEFT
	LIMIT
	NATURAL
	NOT
	OFFSET
	ON
	OR
	ORDER
	OUTER
	RECURSIVE
	RETURNING
	RIGHT
	SELECT
	SET
	SOME
	TABLE
	THEN
	UNION
	UPDATE
	USING
	VALUES
	WHEN
	WHERE
	WITH

	keywordEnd
)

// IsKeyword reports whether t is one of the clause keywords.
func (t TokenType) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	if t.IsKeyword() {
		for kw, kt := range keywords {
			if kt == t {
				return strings.ToUpper(kw)
			}
		}
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps non-keyword token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",
	PARAM:  "PARAM",

	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	STAR:      "*",
	EQ:        "=",
	OPERATOR:  "OPERATOR",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"all":       ALL,
	"alter":     ALTER,
	"and":       AND,
	"any":       ANY,
	"as":        AS,
	"by":        BY,
	"case":      CASE,
	"create":    CREATE,
	"cross":     CROSS,
	"delete":    DELETE,
	"distinct":  DISTINCT,
	"drop":      DROP,
	"else":      ELSE,
	"end":       END,
	"except":    EXCEPT,
	"exists":    EXISTS,
	"from":      FROM,
	"full":      FULL,
	"group":     GROUP,
	"having":    HAVING,
	"in":        IN,
	"inner":     INNER,
	"insert":    INSERT,
	"intersect": INTERSECT,
	"into":      INTO,
	"join":      JOIN,
	"lateral":   LATERAL,
	"left":      LEFT,
	"limit":     LIMIT,
	"natural":   NATURAL,
	"not":       NOT,
	"offset":    OFFSET,
	"on":        ON,
	"or":        OR,
	"order":     ORDER,
	"outer":     OUTER,
	"recursive": RECURSIVE,
	"returning": RETURNING,
	"right":     RIGHT,
	"select":    SELECT,
	"set":       SET,
	"some":      SOME,
	"table":     TABLE,
	"then":      THEN,
	"union":     UNION,
	"update":    UPDATE,
	"using":     USING,
	"values":    VALUES,
	"when":      WHEN,
	"where":     WHERE,
	"with":      WITH,
}

// LookupIdent returns the keyword type for a word, or IDENT.
// The lookup is case-insensitive.
func LookupIdent(word string) TokenType {
	if tok, ok := keywords[strings.ToLower(word)]; ok {
		return tok
	}
	return IDENT
}

// Token is a single lexical token.
type Token struct {
	Type    TokenType
	Literal string   // identifier value without quotes, or the raw text
	Pos     Position // start of the token
	End     int      // byte offset just past the token

	// Quoted is set for "ident", `ident` and [ident] identifiers.
	Quoted bool
	// Unterminated is set when a string or quoted identifier reached end of input.
	Unterminated bool
}

// Is reports whether the token has type t.
func (t Token) Is(tt TokenType) bool { return t.Type == tt }

// IsWord reports whether the token is an identifier or a keyword.
func (t Token) IsWord() bool {
	return t.Type == IDENT || t.Type.IsKeyword()
}

// Upper returns the literal in upper case.
func (t Token) Upper() string { return strings.ToUpper(t.Literal) }

// Span returns the byte range of the token.
func (t Token) Span() (int, int) { return t.Pos.Offset, t.End }
