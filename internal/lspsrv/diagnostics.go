package lspsrv

import (
	"errors"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"bx/internal/ast"
	"bx/internal/compileerr"
	"bx/internal/diag"
	"bx/internal/pipeline"
)

// diagnosticsFor converts whatever error pipeline.Compile returned into LSP
// diagnostics: either the front end's positioned CompilerErrors, or a
// *compileerr.Error surfaced from deep in the middle end (e.g. a phi-source
// bug would indicate a pipeline defect, not a source error, but is still
// worth surfacing rather than dropping silently).
func diagnosticsFor(err error) []protocol.Diagnostic {
	if err == nil {
		return []protocol.Diagnostic{}
	}

	var checkErrs *pipeline.CheckErrors
	if errors.As(err, &checkErrs) {
		out := make([]protocol.Diagnostic, 0, len(checkErrs.Errors))
		for _, e := range checkErrs.Errors {
			out = append(out, diagnosticFromCompilerError(e))
		}
		return out
	}

	var ce *compileerr.Error
	if errors.As(err, &ce) {
		return []protocol.Diagnostic{diagnosticFromPosition(ce.Position, ce.Error())}
	}

	return []protocol.Diagnostic{diagnosticFromPosition(ast.Position{Line: 1, Column: 1}, err.Error())}
}

func diagnosticFromCompilerError(e diag.CompilerError) protocol.Diagnostic {
	length := uint32(e.Length)
	if length == 0 {
		length = 1
	}
	line := uint32(0)
	if e.Position.Line > 0 {
		line = uint32(e.Position.Line - 1)
	}
	col := uint32(0)
	if e.Position.Column > 0 {
		col = uint32(e.Position.Column - 1)
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + length},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("bx"),
		Message:  e.Code + ": " + e.Message,
	}
}

func diagnosticFromPosition(pos ast.Position, message string) protocol.Diagnostic {
	line := uint32(0)
	if pos.Line > 0 {
		line = uint32(pos.Line - 1)
	}
	col := uint32(0)
	if pos.Column > 0 {
		col = uint32(pos.Column - 1)
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("bx"),
		Message:  message,
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }
func ptrString(s string) *string                                            { return &s }
