// Package parser provides a permissive SQL lexer and scope parser.
//
// The parser never fails. It recovers table references, aliases, CTEs,
// clause boundaries and nested subquery scopes from incomplete SQL so that
// editor features can reason about the text around a cursor.
package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// Lexer tokenizes SQL input. It never stops early: unknown bytes become
// ILLEGAL tokens and unterminated literals are flagged, not rejected.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	opts Options

	// Comments collected during lexing
	Comments []*token.Comment
}

// Options enables string literal forms that only some dialects accept.
// The zero value lexes standard SQL strings.
type Options struct {
	// DollarQuotes lexes $$...$$ and $tag$...$tag$ as strings.
	DollarQuotes bool
	// EscapeStrings lexes E'...' as a string in which a backslash escapes.
	EscapeStrings bool
	// BackslashEscapes lets a backslash escape the next byte in '...'.
	BackslashEscapes bool
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return NewLexerWith(input, Options{})
}

// NewLexerWith creates a Lexer that accepts the string forms in opts.
func NewLexerWith(input string, opts Options) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
		opts:  opts,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.pos < len(l.input) && l.readPos > 0 && l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	tok := token.Token{Pos: pos}

	if l.atEOF() {
		tok.Type = token.EOF
		tok.End = len(l.input)
		return tok
	}

	switch l.ch {
	case '.':
		l.single(&tok, token.DOT)
	case ',':
		l.single(&tok, token.COMMA)
	case ';':
		l.single(&tok, token.SEMICOLON)
	case '(':
		l.single(&tok, token.LPAREN)
	case ')':
		l.single(&tok, token.RPAREN)
	case ']':
		l.single(&tok, token.RBRACKET)
	case '*':
		l.single(&tok, token.STAR)
	case '=':
		l.single(&tok, token.EQ)
	case '[':
		// [name] is a SQL Server quoted identifier; [1] is a subscript.
		if isLetter(l.peekChar()) || l.peekChar() == '_' {
			l.readQuoted(&tok, ']', false)
		} else {
			l.single(&tok, token.LBRACKET)
		}
	case '\'':
		l.readString(&tok, l.opts.BackslashEscapes)
	case '"':
		l.readQuoted(&tok, '"', false)
	case '`':
		l.readQuoted(&tok, '`', false)
	case '?':
		l.single(&tok, token.PARAM)
		for isDigit(l.ch) {
			l.readChar()
		}
		tok.Literal = l.input[pos.Offset:l.pos]
		tok.End = l.pos
	case '$':
		if tag := l.dollarTag(); tag != "" {
			l.readDollarQuoted(&tok, tag)
		} else if isDigit(l.peekChar()) {
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
			tok.Type = token.PARAM
			tok.Literal = l.input[pos.Offset:l.pos]
			tok.End = l.pos
		} else {
			l.single(&tok, token.ILLEGAL)
		}
	case '@':
		if isLetter(l.peekChar()) || l.peekChar() == '_' || l.peekChar() == '@' {
			l.readChar()
			l.readChar()
			l.readWordTail()
			tok.Type = token.PARAM
			tok.Literal = l.input[pos.Offset:l.pos]
			tok.End = l.pos
		} else {
			l.single(&tok, token.ILLEGAL)
		}
	case ':':
		switch {
		case l.peekChar() == ':':
			l.readChar()
			l.readChar()
			tok.Type = token.OPERATOR
			tok.Literal = "::"
			tok.End = l.pos
		case isLetter(l.peekChar()) || l.peekChar() == '_':
			l.readChar()
			l.readWordTail()
			tok.Type = token.PARAM
			tok.Literal = l.input[pos.Offset:l.pos]
			tok.End = l.pos
		default:
			l.single(&tok, token.OPERATOR)
		}
	case '+', '-', '/', '%', '^', '~', '&':
		l.single(&tok, token.OPERATOR)
	case '<', '>', '!', '|':
		l.readOperator(&tok)
	default:
		switch {
		case l.opts.EscapeStrings && (l.ch == 'E' || l.ch == 'e') && l.peekChar() == '\'':
			l.readChar() // skip the prefix; the token still starts at it
			l.readString(&tok, true)
		case isLetter(l.ch) || l.ch == '_':
			l.readWordTail()
			tok.Literal = l.input[pos.Offset:l.pos]
			tok.Type = token.LookupIdent(tok.Literal)
			tok.End = l.pos
		case isDigit(l.ch):
			tok.Type = token.NUMBER
			tok.Literal = l.readNumber()
			tok.End = l.pos
		default:
			// Consume a whole UTF-8 sequence so positions stay on rune boundaries.
			_, size := utf8.DecodeRuneInString(l.input[l.pos:])
			for range size {
				l.readChar()
			}
			tok.Type = token.ILLEGAL
			tok.Literal = l.input[pos.Offset:l.pos]
			tok.End = l.pos
		}
	}

	return tok
}

func (l *Lexer) single(tok *token.Token, t token.TokenType) {
	tok.Type = t
	tok.Literal = string(l.ch)
	l.readChar()
	tok.End = l.pos
}

func (l *Lexer) readOperator(tok *token.Token) {
	start := l.pos
	first := l.ch
	l.readChar()
	switch {
	case first == '<' && (l.ch == '=' || l.ch == '>'),
		first == '>' && l.ch == '=',
		first == '!' && l.ch == '=',
		first == '|' && l.ch == '|':
		l.readChar()
	}
	tok.Type = token.OPERATOR
	tok.Literal = l.input[start:l.pos]
	tok.End = l.pos
}

// skipWhitespaceAndComments skips whitespace and collects comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		// Skip whitespace
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		// Collect line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			l.collectLineComment()
			continue
		}

		// Collect block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			l.collectBlockComment()
			continue
		}

		break
	}
}

// collectLineComment collects a line comment.
func (l *Lexer) collectLineComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	// Consume until end of line
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.LineComment,
		Text: l.input[startOffset:l.pos],
		Span: token.Span{Start: startPos, End: l.currentPos()},
	})
}

// collectBlockComment collects a block comment.
func (l *Lexer) collectBlockComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	l.readChar() // skip '/'
	l.readChar() // skip '*'

	terminated := false
	for !l.atEOF() {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // skip '*'
			l.readChar() // skip '/'
			terminated = true
			break
		}
		l.readChar()
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind:         token.BlockComment,
		Text:         l.input[startOffset:l.pos],
		Span:         token.Span{Start: startPos, End: l.currentPos()},
		Unterminated: !terminated,
	})
}

// readString reads a '...' literal.
func (l *Lexer) readString(tok *token.Token, backslash bool) {
	l.readQuoted(tok, '\'', backslash)
	tok.Type = token.STRING
	tok.Quoted = false
}

// readQuoted reads a literal delimited by the current char and closer.
// A doubled closer is an escaped closer: 'it''s' -> it's. With backslash
// set, a backslash also escapes the byte after it: 'it\'s' -> it's
func (l *Lexer) readQuoted(tok *token.Token, closer byte, backslash bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	terminated := false
	for !l.atEOF() {
		if backslash && l.ch == '\\' {
			l.readChar()
			if l.atEOF() {
				break
			}
			result.WriteByte(l.ch)
			l.readChar()
			continue
		}
		if l.ch == closer {
			if l.peekChar() == closer {
				result.WriteByte(closer)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			terminated = true
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}

	tok.Type = token.IDENT
	tok.Literal = result.String()
	tok.Quoted = true
	tok.Unterminated = !terminated
	tok.End = l.pos
}

// dollarTag returns the opening delimiter of a dollar-quoted string at the
// current position ("$$" or "$tag$"), or "" when there is none.
func (l *Lexer) dollarTag() string {
	if !l.opts.DollarQuotes {
		return ""
	}
	rest := l.input[l.pos+1:]
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case c == '$':
			return l.input[l.pos : l.pos+i+2]
		case c == '_' || isLetter(c) || i > 0 && isDigit(c):
		default:
			return ""
		}
	}
	return ""
}

// readDollarQuoted reads a string delimited by tag on both sides. The body
// is taken verbatim; quotes inside it need no escaping.
func (l *Lexer) readDollarQuoted(tok *token.Token, tag string) {
	bodyStart := l.pos + len(tag)
	end := len(l.input)
	terminated := false
	if i := strings.Index(l.input[bodyStart:], tag); i >= 0 {
		end = bodyStart + i + len(tag)
		terminated = true
	}
	for l.pos < end {
		l.readChar()
	}

	tok.Type = token.STRING
	if terminated {
		tok.Literal = l.input[bodyStart : end-len(tag)]
	} else {
		tok.Literal = l.input[min(bodyStart, end):end]
	}
	tok.Unterminated = !terminated
	tok.End = l.pos
}

// readWordTail consumes identifier characters from the current position.
func (l *Lexer) readWordTail() {
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	// Read integer part
	for isDigit(l.ch) {
		l.readChar()
	}

	// Read decimal part
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Read exponent part (e.g., 1e10, 1E-5)
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar() // skip sign
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true if ch is a letter or starts a multi-byte rune.
func isLetter(ch byte) bool {
	return ch >= utf8.RuneSelf || unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) []token.Token {
	tokens, _ := TokenizeWithComments(input)
	return tokens
}

// TokenizeWithComments returns all tokens and the comments between them.
func TokenizeWithComments(input string) ([]token.Token, []*token.Comment) {
	return TokenizeWith(input, Options{})
}

// TokenizeWith is TokenizeWithComments for a dialect's string forms.
func TokenizeWith(input string, opts Options) ([]token.Token, []*token.Comment) {
	l := NewLexerWith(input, opts)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens, l.Comments
}
