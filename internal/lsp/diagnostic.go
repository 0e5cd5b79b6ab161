package lsp

import (
	"github.com/leapstack-labs/sqlsense/internal/diagnostic"
	"github.com/leapstack-labs/sqlsense/pkg/core"
)

// publishDiagnostics validates the document and publishes the result.
func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}
	diags := s.engine.ValidateSQL(doc.Content)
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = toDiagnostic(d)
	}
	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: out,
	})
}

func toDiagnostic(d diagnostic.Diagnostic) Diagnostic {
	return Diagnostic{
		Range:    SpanToRange(d.Range),
		Severity: toLSPSeverity(d.Severity),
		Code:     d.Code,
		Source:   d.Source,
		Message:  d.Message,
	}
}

func toLSPSeverity(s core.Severity) DiagnosticSeverity {
	switch s {
	case core.SeverityError:
		return DiagnosticSeverityError
	case core.SeverityWarning:
		return DiagnosticSeverityWarning
	case core.SeverityInfo:
		return DiagnosticSeverityInformation
	default:
		return DiagnosticSeverityHint
	}
}
