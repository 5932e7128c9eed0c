package syntax

import (
	"fmt"

	"github.com/alecthomas/participle/v2"

	"bx/internal/ast"
	"bx/internal/diag"
)

var parser = participle.MustBuild[Program](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

// Parse turns BX source text into an ast.Program. Parse errors are reported
// as diag.CompilerError so the driver can print them the same way name and
// type errors are printed; a non-nil error return always carries at least
// one entry in the returned slice.
func Parse(filename, source string) (*ast.Program, []diag.CompilerError) {
	raw, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, []diag.CompilerError{parseError(filename, err)}
	}
	prog, errs := Convert(filename, raw)
	if len(errs) > 0 {
		return nil, errs
	}
	return prog, nil
}

// parseError adapts a participle.Error into the front end's own positioned
// error shape instead of letting participle's bare error type leak past
// this package.
func parseError(filename string, err error) diag.CompilerError {
	pe, ok := err.(participle.Error)
	if !ok {
		return diag.New(diag.CodeUnexpectedToken, err.Error(), ast.Position{Filename: filename, Line: 1, Column: 1})
	}
	pos := pe.Position()
	return diag.New(diag.CodeUnexpectedToken, fmt.Sprintf("syntax error: %s", pe.Message()),
		ast.Position{Filename: pos.Filename, Line: pos.Line, Column: pos.Column})
}
