package token

import "strings"

// Position represents a location in the source code.
type Position struct {
	Line   int `json:"line"`   // 1-based line number
	Column int `json:"column"` // 1-based column number, counted in bytes
	Offset int `json:"offset"` // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Span represents a range in source code.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// IsValid returns true if both start and end positions are valid.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid()
}

// SpanAt converts a byte range of src to a Span.
func SpanAt(src string, start, end int) Span {
	return Span{Start: PositionAt(src, start), End: PositionAt(src, end)}
}

// PositionAt converts a byte offset in src to a Position. Offsets past the
// end clamp to the end of src.
func PositionAt(src string, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Position{Line: line, Column: col, Offset: offset}
}

// OffsetAt converts a 0-based line and 0-based byte column into an offset.
// Out of range values clamp to the nearest valid offset.
func OffsetAt(src string, line, col int) int {
	off := 0
	for l := 0; l < line && off < len(src); l++ {
		i := strings.IndexByte(src[off:], '\n')
		if i < 0 {
			return len(src)
		}
		off += i + 1
	}
	end := strings.IndexByte(src[off:], '\n')
	if end < 0 {
		end = len(src) - off
	}
	if col > end {
		col = end
	}
	if col < 0 {
		col = 0
	}
	return off + col
}
