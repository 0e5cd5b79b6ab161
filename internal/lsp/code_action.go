package lsp

import (
	"regexp"
	"slices"
)

// suggestion extracts the replacement from schema diagnostics such as
// "Table 'ordrs' does not exist in schema; did you mean 'orders'?".
var suggestion = regexp.MustCompile(`did you mean '([^']+)'\?`)

// handleCodeAction handles the textDocument/codeAction request.
func (s *Server) handleCodeAction(msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := s.decode(msg, &params); err != nil {
		return err
	}
	s.sendResponse(msg.ID, s.getCodeActions(params), nil)
	return nil
}

// getCodeActions offers a quick fix for every diagnostic that carries a
// spelling suggestion.
func (s *Server) getCodeActions(params CodeActionParams) []CodeAction {
	actions := []CodeAction{}
	if len(params.Context.Only) > 0 && !slices.Contains(params.Context.Only, CodeActionKindQuickFix) {
		return actions
	}
	uri := params.TextDocument.URI
	for _, diag := range params.Context.Diagnostics {
		m := suggestion.FindStringSubmatch(diag.Message)
		if m == nil {
			continue
		}
		actions = append(actions, CodeAction{
			Title:       "Change to '" + m[1] + "'",
			Kind:        CodeActionKindQuickFix,
			Diagnostics: []Diagnostic{diag},
			IsPreferred: true,
			Edit: &WorkspaceEdit{
				Changes: map[string][]TextEdit{uri: {{Range: diag.Range, NewText: m[1]}}},
			},
		})
	}
	return actions
}
