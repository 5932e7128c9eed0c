package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx/internal/syntax"
)

func checkSource(t *testing.T, src string) ([]string, error) {
	t.Helper()
	prog, perrs := syntax.Parse("t.bx", src)
	require.Empty(t, perrs)
	errs := Check(prog)
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return msgs, nil
}

func TestWellTypedProgramHasNoErrors(t *testing.T) {
	msgs, _ := checkSource(t, `def main() { var x = 0:int; if (x < 3) { x = 1; } else { x = 2; } print(x); }`)
	assert.Empty(t, msgs)
}

func TestElseBranchIsCheckedIndependently(t *testing.T) {
	// a type error that only exists in the else branch must still be caught —
	// regression guard for the reference checker's double-check-the-then-
	// branch bug, which this checker does not reproduce.
	msgs, _ := checkSource(t, `def main() { var x = 0:int; if (x < 3) { x = 1; } else { x = true; } print(x); }`)
	require.NotEmpty(t, msgs)
}

func TestUndefinedNameIsReported(t *testing.T) {
	msgs, _ := checkSource(t, `def main() { print(y); }`)
	require.NotEmpty(t, msgs)
}

func TestBreakOutsideLoopIsReported(t *testing.T) {
	msgs, _ := checkSource(t, `def main() { break; }`)
	require.NotEmpty(t, msgs)
}

func TestCallArgCountMismatch(t *testing.T) {
	msgs, _ := checkSource(t, `def add(a:int, b:int):int { return a + b; }
	def main() { print(add(1)); }`)
	require.NotEmpty(t, msgs)
}

func TestCallArgTypeMismatch(t *testing.T) {
	msgs, _ := checkSource(t, `def f(a:int):int { return a; }
	def main() { print(f(true)); }`)
	require.NotEmpty(t, msgs)
}

func TestIfConditionMustBeBool(t *testing.T) {
	msgs, _ := checkSource(t, `def main() { if (1) { print(1); } }`)
	require.NotEmpty(t, msgs)
}

func TestReturnTypeMismatch(t *testing.T) {
	msgs, _ := checkSource(t, `def f():int { return true; }
	def main() { print(f()); }`)
	require.NotEmpty(t, msgs)
}
