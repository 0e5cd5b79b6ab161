package lsp

import (
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// Document is an open text document.
type Document struct {
	URI     string
	Content string
	Version int
	Lines   []int // byte offsets of line starts
}

// DocumentStore holds the open documents.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[string]*Document)}
}

// Open adds or replaces a document.
func (s *DocumentStore) Open(uri, content string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[uri] = newDocument(uri, content, version)
}

// Update replaces the content of an open document. Stale versions are
// ignored. It reports whether the document changed.
func (s *DocumentStore) Update(uri, content string, version int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[uri]
	if !ok || (version != 0 && version < doc.Version) {
		return false
	}
	s.documents[uri] = newDocument(uri, content, version)
	return true
}

// Close forgets a document.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, uri)
}

// Get returns a snapshot of the document, or nil. Documents are replaced on
// update, never mutated, so the result is safe to read without locking.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents[uri]
}

// List returns the open URIs in sorted order.
func (s *DocumentStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]string, 0, len(s.documents))
	for uri := range s.documents {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

func newDocument(uri, content string, version int) *Document {
	return &Document{URI: uri, Content: content, Version: version, Lines: computeLineOffsets(content)}
}

func computeLineOffsets(content string) []int {
	offsets := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// PositionToOffset converts a Position to a byte offset. Characters past
// the end of a line clamp to the line end.
func (d *Document) PositionToOffset(pos Position) int {
	if d == nil || len(d.Lines) == 0 {
		return 0
	}
	line := int(pos.Line)
	if line >= len(d.Lines) {
		return len(d.Content)
	}
	lineEnd := len(d.Content)
	if line+1 < len(d.Lines) {
		lineEnd = d.Lines[line+1] - 1
	}
	return min(d.Lines[line]+int(pos.Character), lineEnd)
}

// OffsetToPosition converts a byte offset to a Position.
func (d *Document) OffsetToPosition(offset int) Position {
	if d == nil || len(d.Lines) == 0 {
		return Position{}
	}
	offset = max(0, min(offset, len(d.Content)))
	line := sort.Search(len(d.Lines), func(i int) bool { return d.Lines[i] > offset }) - 1
	return Position{
		Line:      uint32(line),                   //nolint:gosec // G115: line is never negative
		Character: uint32(offset - d.Lines[line]), //nolint:gosec // G115: offset is past the line start
	}
}

// SpanToRange converts an engine span to an LSP range.
func SpanToRange(s token.Span) Range {
	return Range{Start: tokenPosition(s.Start), End: tokenPosition(s.End)}
}

func tokenPosition(p token.Position) Position {
	return Position{
		Line:      uint32(max(0, p.Line-1)),   //nolint:gosec // G115: line is always non-negative
		Character: uint32(max(0, p.Column-1)), //nolint:gosec // G115: column is always non-negative
	}
}

// URIToPath converts a file:// URI to a file system path.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return strings.TrimPrefix(uri, "file://")
	}
	return u.Path
}

// PathToURI converts a file system path to a file:// URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}
