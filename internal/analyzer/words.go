package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// isWordRune reports whether r can be part of an unquoted identifier.
func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// WordStart returns the offset where the identifier ending at offset starts.
func WordStart(text string, offset int) int {
	offset = clamp(offset, len(text))
	i := offset
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		if !isWordRune(r) {
			break
		}
		i -= size
	}
	return i
}

// WordEnd returns the offset where the identifier starting before offset ends.
func WordEnd(text string, offset int) int {
	offset = clamp(offset, len(text))
	i := offset
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) {
			break
		}
		i += size
	}
	return i
}

// CurrentWord returns the partially typed identifier that ends at offset.
func CurrentWord(text string, offset int) string {
	offset = clamp(offset, len(text))
	return text[WordStart(text, offset):offset]
}

// ReplaceRange returns the byte range a completion replaces: from the start
// of the identifier being typed up to the cursor, never beyond it.
func ReplaceRange(text string, offset int) (start, end int) {
	offset = clamp(offset, len(text))
	return WordStart(text, offset), offset
}

// WordAt returns the whole identifier under offset and its range. Quoted
// identifiers are returned without their quotes.
func WordAt(text string, offset int) (word string, start, end int) {
	offset = clamp(offset, len(text))
	if s, e, ok := quotedAt(text, offset); ok {
		return text[s+1 : e-1], s, e
	}
	start, end = WordStart(text, offset), WordEnd(text, offset)
	return text[start:end], start, end
}

// quotedAt finds a double-quoted, backquoted or bracketed identifier on the
// line around offset.
func quotedAt(text string, offset int) (int, int, bool) {
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	lineEnd := len(text)
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		lineEnd = offset + i
	}
	line := text[lineStart:lineEnd]
	for i := 0; i < len(line); i++ {
		open := line[i]
		var closer byte
		switch open {
		case '"', '`':
			closer = open
		case '[':
			closer = ']'
		case '\'':
			// Skip string literals so quotes inside them are not paired.
			j := strings.IndexByte(line[i+1:], '\'')
			if j < 0 {
				return 0, 0, false
			}
			i += j + 1
			continue
		default:
			continue
		}
		j := strings.IndexByte(line[i+1:], closer)
		if j < 0 {
			return 0, 0, false
		}
		s, e := lineStart+i, lineStart+i+j+2
		if offset > s && offset < e {
			return s, e, true
		}
		i += j + 1
	}
	return 0, 0, false
}

// identBeforeDot returns the identifier that ends just before the dot at
// dot, handling quoted identifiers.
func identBeforeDot(text string, dot int) (ident string, start int) {
	if dot <= 0 {
		return "", dot
	}
	switch last := text[dot-1]; last {
	case '"', '`', ']':
		open := last
		if last == ']' {
			open = '['
		}
		i := strings.LastIndexByte(text[:dot-1], open)
		if i < 0 {
			return "", dot
		}
		return text[i+1 : dot-1], i
	}
	start = WordStart(text, dot)
	ident = text[start:dot]
	if ident == "" {
		return "", dot
	}
	if r, _ := utf8.DecodeRuneInString(ident); unicode.IsDigit(r) {
		return "", dot
	}
	return ident, start
}
