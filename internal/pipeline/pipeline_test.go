package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx/internal/ir"
)

func TestCompileStraightLineProgram(t *testing.T) {
	res, err := Compile("t.bx", `def main() { var x = 0:int; x = x + 1; print(x); }`)
	require.NoError(t, err)
	require.Len(t, res.Procedures, 1)
	assert.Contains(t, ir.Print(res.Procedures[0].Proc), "print")
}

func TestCompileReportsCheckErrors(t *testing.T) {
	_, err := Compile("t.bx", `def main() { print(y); }`)
	require.Error(t, err)
	ce, ok := err.(*CheckErrors)
	require.True(t, ok)
	assert.NotEmpty(t, ce.Errors)
}

func TestCompileMultipleProceduresConcurrently(t *testing.T) {
	src := `def add(a:int, b:int):int { return a + b; }
	def sub(a:int, b:int):int { return a - b; }
	def main() { var x = add(1,2):int; var y = sub(3,1):int; print(x); print(y); }`
	res, err := Compile("t.bx", src)
	require.NoError(t, err)
	require.Len(t, res.Procedures, 3)
	for _, p := range res.Procedures {
		assert.Contains(t, ir.Print(p.Proc), "ret")
	}
}

func TestCompileIfElseProducesMergeCopies(t *testing.T) {
	src := `def main() { var x = 0:int; if (x < 3) { x = 1; } else { x = 2; } print(x); }`
	res, err := Compile("t.bx", src)
	require.NoError(t, err)
	require.Len(t, res.Procedures, 1)
	out := ir.Print(res.Procedures[0].Proc)
	assert.Contains(t, out, "copy")
}
