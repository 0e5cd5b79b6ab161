package lsp

import (
	"github.com/leapstack-labs/sqlsense/internal/completion"
)

func (s *Server) handleCompletion(msg *JSONRPCMessage) error {
	var params CompletionParams
	if err := s.decode(msg, &params); err != nil {
		return err
	}
	s.sendResponse(msg.ID, s.getCompletions(params), nil)
	return nil
}

// getCompletions runs the engine at the cursor. Requests triggered by typing
// a trigger character are automatic; everything else counts as manual.
func (s *Server) getCompletions(params CompletionParams) *CompletionList {
	list := &CompletionList{Items: []CompletionItem{}}
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return list
	}
	manual := params.Context == nil || params.Context.TriggerKind != CompletionTriggerCharacter
	offset := doc.PositionToOffset(params.Position)

	for _, it := range s.engine.GetCompletions(doc.Content, offset, manual) {
		list.Items = append(list.Items, toCompletionItem(doc, it))
	}
	// Placeholders and short fragments are re-requested as the user types.
	list.IsIncomplete = s.engine.Loading() || len(list.Items) == 0
	return list
}

func toCompletionItem(doc *Document, it completion.Item) CompletionItem {
	out := CompletionItem{
		Label:      it.Label,
		Kind:       completionKind(it.Kind),
		Detail:     it.Detail,
		SortText:   it.SortText,
		FilterText: it.FilterText,
	}
	if it.Documentation != "" {
		out.Documentation = &MarkupContent{Kind: MarkupKindMarkdown, Value: it.Documentation}
	}
	if it.Kind != completion.KindText {
		text := it.InsertText
		if text == "" {
			text = it.Label
		}
		out.TextEdit = &TextEdit{
			Range: Range{
				Start: doc.OffsetToPosition(it.ReplaceStart),
				End:   doc.OffsetToPosition(it.ReplaceEnd),
			},
			NewText: text,
		}
	}
	return out
}

func completionKind(k completion.ItemKind) CompletionItemKind {
	switch k {
	case completion.KindKeyword:
		return CompletionItemKindKeyword
	case completion.KindTable:
		return CompletionItemKindClass
	case completion.KindView:
		return CompletionItemKindInterface
	case completion.KindColumn:
		return CompletionItemKindField
	case completion.KindFunction:
		return CompletionItemKindFunction
	case completion.KindCTE:
		return CompletionItemKindReference
	case completion.KindDataType:
		return CompletionItemKindTypeParameter
	case completion.KindSnippet:
		return CompletionItemKindSnippet
	default:
		return CompletionItemKindText
	}
}
