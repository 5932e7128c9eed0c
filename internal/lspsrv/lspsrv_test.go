package lspsrv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx/internal/ast"
	"bx/internal/diag"
	"bx/internal/pipeline"
)

func TestDiagnosticsForNilIsEmpty(t *testing.T) {
	assert.Empty(t, diagnosticsFor(nil))
}

func TestDiagnosticsForCheckErrors(t *testing.T) {
	err := &pipeline.CheckErrors{Errors: []diag.CompilerError{
		diag.New(diag.CodeUndefinedName, "undefined name \"y\"", ast.Position{Filename: "t.bx", Line: 2, Column: 3}),
	}}
	out := diagnosticsFor(err)
	require.Len(t, out, 1)
	assert.EqualValues(t, 1, out[0].Range.Start.Line) // 1-based line 2 -> 0-based 1
}

func TestDiagnosticsForPlainErrorFallsBack(t *testing.T) {
	out := diagnosticsFor(errors.New("boom"))
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Message, "boom")
}

func TestURIToPathRoundTrips(t *testing.T) {
	path, err := uriToPath("file:///tmp/foo.bx")
	require.NoError(t, err)
	assert.Contains(t, path, "foo.bx")
}
