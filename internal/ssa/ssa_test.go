package ssa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx/internal/ast"
	"bx/internal/cfg"
	"bx/internal/ir"
	"bx/internal/liveness"
	"bx/internal/lower"
)

var pos = ast.Position{Filename: "t.bx", Line: 1, Column: 1}

func buildSSA(t *testing.T, fn *ast.Function) *Func {
	t.Helper()
	proc, err := lower.Lower(fn, map[string]ir.Global{})
	require.NoError(t, err)
	g := cfg.Build(proc)
	cfg.Optimize(g)
	live := liveness.Compute(g)
	f, err := Build(g, live, proc.Params)
	require.NoError(t, err)
	return f
}

// def main() { var x = 0:int; if (1 < 2) { x = x + 1; } else { x = x + 2; } print(x); }
func ifElseFn() *ast.Function {
	body := []ast.Stmt{
		&ast.Decl{Position: pos, Name: "x", Ty: ast.TypeInt, Init: ast.NewIntLit(pos, 0)},
		&ast.If{
			Position: pos,
			Cond:     ast.NewBinaryExpr(pos, ast.OpLt, ast.NewIntLit(pos, 1), ast.NewIntLit(pos, 2)),
			Then: &ast.Block{Position: pos, Stmts: []ast.Stmt{
				&ast.Assign{Position: pos, Target: "x", Value: ast.NewBinaryExpr(pos, ast.OpAdd, ast.NewVarExpr(pos, "x"), ast.NewIntLit(pos, 1))},
			}},
			Else: &ast.Block{Position: pos, Stmts: []ast.Stmt{
				&ast.Assign{Position: pos, Target: "x", Value: ast.NewBinaryExpr(pos, ast.OpAdd, ast.NewVarExpr(pos, "x"), ast.NewIntLit(pos, 2))},
			}},
		},
		&ast.Print{Position: pos, Arg: ast.NewVarExpr(pos, "x")},
	}
	return &ast.Function{Position: pos, Name: "main", ReturnType: ast.TypeVoid, Body: &ast.Block{Position: pos, Stmts: body}}
}

func TestBuildProducesMergePhi(t *testing.T) {
	f := buildSSA(t, ifElseFn())

	var totalPhis int
	var mergeWithTwoPreds bool
	for _, l := range f.Order {
		block := f.Blocks[l]
		totalPhis += len(block.Phis)
		if len(block.Phis) > 0 && len(block.Preds) == 2 {
			mergeWithTwoPreds = true
		}
	}
	assert.Greater(t, totalPhis, 0, "the merge block after if/else should get a phi for x")
	assert.True(t, mergeWithTwoPreds, "the phi block must actually have both the then- and else-arm as predecessors, not just one surviving arm")
}

func TestOptimizeThenDeconstructRoundTrips(t *testing.T) {
	f := buildSSA(t, ifElseFn())
	Optimize(f)
	proc := Deconstruct(f)

	out := ir.Print(proc)
	assert.Contains(t, out, "print")
	assert.Contains(t, out, "ret")

	// both the then-arm (x+1) and else-arm (x+2) computations must survive
	// deconstruction: if the false edge were dropped during CFG
	// construction, the else arm's "add ..., 2" would never appear.
	assert.Contains(t, out, "add")
	assert.Equal(t, 2, strings.Count(out, "add"), "both if/else arms must each contribute one add")

	// every jump target must resolve to a label actually present
	labels := map[ir.Label]bool{}
	for _, item := range proc.Body {
		if item.IsLbl {
			labels[item.Label] = true
		}
	}
	for _, item := range proc.Body {
		if item.IsLbl {
			continue
		}
		for _, target := range item.Op.JumpTargets() {
			assert.True(t, labels[target], "jump target %s must exist as a label", target)
		}
	}
}

// def main(a: int) { var i = 0:int; while (i < a) { i = i + 1; } print(i); }
func loopFn() *ast.Function {
	body := []ast.Stmt{
		&ast.Decl{Position: pos, Name: "i", Ty: ast.TypeInt, Init: ast.NewIntLit(pos, 0)},
		&ast.While{
			Position: pos,
			Cond:     ast.NewBinaryExpr(pos, ast.OpLt, ast.NewVarExpr(pos, "i"), ast.NewVarExpr(pos, "a")),
			Body: &ast.Block{Position: pos, Stmts: []ast.Stmt{
				&ast.Assign{Position: pos, Target: "i", Value: ast.NewBinaryExpr(pos, ast.OpAdd, ast.NewVarExpr(pos, "i"), ast.NewIntLit(pos, 1))},
			}},
		},
		&ast.Print{Position: pos, Arg: ast.NewVarExpr(pos, "i")},
	}
	return &ast.Function{
		Position: pos, Name: "main", ReturnType: ast.TypeVoid,
		Params: []ast.Param{{Name: "a", Ty: ast.TypeInt}},
		Body:   &ast.Block{Position: pos, Stmts: body},
	}
}

func TestLoopPhiSurvivesOptimizeAndDeconstruct(t *testing.T) {
	f := buildSSA(t, loopFn())
	Optimize(f)
	proc := Deconstruct(f)

	// the parameter's TAC identity must be preserved through deconstruction
	found := false
	for _, p := range proc.Params {
		if p.IsNamed() && p.Name() == "a" {
			found = true
		}
	}
	assert.True(t, found, "parameter a must keep its string identity")

	out := ir.Print(proc)
	assert.Contains(t, out, "ret")

	// the loop-head phi for i (entry value vs. back-edge value) must become
	// parallel copies on its incoming edges
	assert.Contains(t, out, "copy", "the loop-head phi for i must be deconstructed into copies")

	// the loop-exit block (holding the post-loop print) must survive: if
	// the jmp to the exit label were dropped during CFG construction, the
	// exit block would be unreachable and print would never appear.
	assert.Contains(t, out, "print")
}
