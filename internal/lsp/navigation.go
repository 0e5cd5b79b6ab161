package lsp

import (
	"strings"

	"github.com/leapstack-labs/sqlsense/internal/refactor"
)

func (s *Server) handleHover(msg *JSONRPCMessage) error {
	var params TextDocumentPositionParams
	if err := s.decode(msg, &params); err != nil {
		return err
	}
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}
	h := s.engine.GetHover(doc.Content, doc.PositionToOffset(params.Position))
	if h == nil {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}
	s.sendResponse(msg.ID, &Hover{
		Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: h.Markdown},
		Range:    &Range{Start: doc.OffsetToPosition(h.Start), End: doc.OffsetToPosition(h.End)},
	}, nil)
	return nil
}

// handleDefinition answers with a location in the same document. Schema
// objects live in the database and have no location, so they answer null.
func (s *Server) handleDefinition(msg *JSONRPCMessage) error {
	var params TextDocumentPositionParams
	if err := s.decode(msg, &params); err != nil {
		return err
	}
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}
	loc := s.engine.GetDefinition(doc.Content, doc.PositionToOffset(params.Position))
	if loc == nil || loc.Span == nil {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}
	s.sendResponse(msg.ID, &Location{URI: doc.URI, Range: SpanToRange(*loc.Span)}, nil)
	return nil
}

func (s *Server) handleReferences(msg *JSONRPCMessage) error {
	var params ReferenceParams
	if err := s.decode(msg, &params); err != nil {
		return err
	}
	out := []Location{}
	if doc := s.document(params.TextDocument.URI); doc != nil {
		for _, ref := range s.engine.GetReferences(doc.Content, doc.PositionToOffset(params.Position)) {
			if ref.Span != nil {
				out = append(out, Location{URI: doc.URI, Range: SpanToRange(*ref.Span)})
			}
		}
	}
	s.sendResponse(msg.ID, out, nil)
	return nil
}

// handlePrepareRename answers with the range of the identifier, or null
// when there is nothing to rename.
func (s *Server) handlePrepareRename(msg *JSONRPCMessage) error {
	var params TextDocumentPositionParams
	if err := s.decode(msg, &params); err != nil {
		return err
	}
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}
	offset := doc.PositionToOffset(params.Position)
	for _, ref := range s.engine.GetReferences(doc.Content, offset) {
		if ref.Span != nil && ref.Span.Start.Offset <= offset && offset <= ref.Span.End.Offset {
			r := SpanToRange(*ref.Span)
			s.sendResponse(msg.ID, &r, nil)
			return nil
		}
	}
	s.sendResponse(msg.ID, nil, nil)
	return nil
}

func (s *Server) handleRename(msg *JSONRPCMessage) error {
	var params RenameParams
	if err := s.decode(msg, &params); err != nil {
		return err
	}
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}
	edits := s.engine.Rename(doc.Content, doc.PositionToOffset(params.Position), params.NewName)
	if edits == nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{
			Code:    codeInvalidParams,
			Message: "cannot rename to " + params.NewName,
		})
		return nil
	}
	s.sendResponse(msg.ID, &WorkspaceEdit{
		Changes: map[string][]TextEdit{doc.URI: toTextEdits(edits)},
	}, nil)
	return nil
}

func toTextEdits(edits []refactor.TextEdit) []TextEdit {
	out := make([]TextEdit, len(edits))
	for i, e := range edits {
		out[i] = TextEdit{Range: SpanToRange(e.Span), NewText: e.NewText}
	}
	return out
}

func (s *Server) handleSignatureHelp(msg *JSONRPCMessage) error {
	var params TextDocumentPositionParams
	if err := s.decode(msg, &params); err != nil {
		return err
	}
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}
	h := s.engine.GetSignatureHelp(doc.Content, doc.PositionToOffset(params.Position))
	if h == nil {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}
	s.sendResponse(msg.ID, toSignatureHelp(h), nil)
	return nil
}

func toSignatureHelp(h *refactor.SignatureHelp) *SignatureHelp {
	out := &SignatureHelp{
		ActiveSignature: uint32(h.ActiveSignature), //nolint:gosec // G115: never negative
		ActiveParameter: uint32(h.ActiveParameter), //nolint:gosec // G115: never negative
	}
	for _, sig := range h.Signatures {
		info := SignatureInformation{Label: sig.Label, Documentation: plain(sig.Documentation)}
		for _, p := range sig.Parameters {
			// Clients highlight the parameter label inside the signature
			// label, which only carries the names.
			name, _, _ := strings.Cut(p.Label, ":")
			doc := p.Label
			if p.Documentation != "" {
				doc += " (" + p.Documentation + ")"
			}
			info.Parameters = append(info.Parameters, ParameterInformation{
				Label:         strings.TrimSpace(name),
				Documentation: plain(doc),
			})
		}
		out.Signatures = append(out.Signatures, info)
	}
	return out
}

func plain(s string) *MarkupContent {
	if s == "" {
		return nil
	}
	return &MarkupContent{Kind: MarkupKindPlainText, Value: s}
}
