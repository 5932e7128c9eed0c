package diag

import "bx/internal/ast"

// Error codes for the BX front end. Ranges mirror the teacher's convention
// of grouping by phase, scaled down to what BX's much smaller front end
// actually raises.
//
// B0001-B0099: lexer/scanner errors
// B0100-B0199: parser errors
// B0200-B0299: name resolution errors
// B0300-B0399: type errors
const (
	CodeUnexpectedChar   = "B0001"
	CodeUnterminatedTok  = "B0002"
	CodeUnexpectedToken  = "B0100"
	CodeExpectedToken    = "B0101"
	CodeUndefinedName    = "B0200"
	CodeDuplicateName    = "B0201"
	CodeTypeMismatch     = "B0300"
	CodeInvalidOperation = "B0301"
	CodeVoidInExpression = "B0302"
)

// New builds a positioned error.
func New(code, message string, pos ast.Position) CompilerError {
	return CompilerError{Level: Error, Code: code, Message: message, Position: pos, Length: 1}
}
