package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx/internal/ast"
	"bx/internal/compileerr"
	"bx/internal/ir"
)

var pos = ast.Position{Filename: "t.bx", Line: 1, Column: 1}

func fn(body ...ast.Stmt) *ast.Function {
	return &ast.Function{
		Position:   pos,
		Name:       "main",
		ReturnType: ast.TypeVoid,
		Body:       &ast.Block{Position: pos, Stmts: body},
	}
}

func TestLowerDeclAssignPrint(t *testing.T) {
	f := fn(
		&ast.Decl{Position: pos, Name: "x", Ty: ast.TypeInt, Init: ast.NewIntLit(pos, 0)},
		&ast.Assign{Position: pos, Target: "x", Value: ast.NewBinaryExpr(pos, ast.OpAdd, ast.NewVarExpr(pos, "x"), ast.NewIntLit(pos, 1))},
		&ast.Print{Position: pos, Arg: ast.NewVarExpr(pos, "x")},
	)
	proc, err := Lower(f, map[string]ir.Global{})
	require.NoError(t, err)

	out := ir.Print(proc)
	assert.Contains(t, out, "const 0")
	assert.Contains(t, out, "= add %x")
	assert.Contains(t, out, "print %x")
	assert.Contains(t, out, "ret")
}

func TestLowerIfElse(t *testing.T) {
	f := fn(
		&ast.If{
			Position: pos,
			Cond:     ast.NewBinaryExpr(pos, ast.OpLt, ast.NewIntLit(pos, 1), ast.NewIntLit(pos, 2)),
			Then:     &ast.Block{Position: pos, Stmts: []ast.Stmt{&ast.Print{Position: pos, Arg: ast.NewIntLit(pos, 1)}}},
			Else:     &ast.Block{Position: pos, Stmts: []ast.Stmt{&ast.Print{Position: pos, Arg: ast.NewIntLit(pos, 0)}}},
		},
	)
	proc, err := Lower(f, map[string]ir.Global{})
	require.NoError(t, err)

	var jl, jmp, labels int
	for _, item := range proc.Body {
		if item.IsLbl {
			labels++
			continue
		}
		switch item.Op.Opcode {
		case ir.OpJl:
			jl++
		case ir.OpJmp:
			jmp++
		}
	}
	assert.Equal(t, 1, jl, "relational < lowers to a single jl")
	assert.GreaterOrEqual(t, jmp, 2, "else branch needs a skip-over jmp plus the jl's fallthrough jmp")
	assert.GreaterOrEqual(t, labels, 3)
}

func TestLowerWhileBreakContinue(t *testing.T) {
	f := fn(
		&ast.While{
			Position: pos,
			Cond:     ast.NewBoolLit(pos, true),
			Body: &ast.Block{Position: pos, Stmts: []ast.Stmt{
				&ast.If{
					Position: pos,
					Cond:     ast.NewBoolLit(pos, true),
					Then:     &ast.Block{Position: pos, Stmts: []ast.Stmt{&ast.Break{Position: pos}}},
				},
				&ast.Continue{Position: pos},
			}},
		},
	)
	proc, err := Lower(f, map[string]ir.Global{})
	require.NoError(t, err)
	assert.NotEmpty(t, proc.Body)
}

func TestBreakOutsideLoopIsFatal(t *testing.T) {
	f := fn(&ast.Break{Position: pos})
	_, err := Lower(f, map[string]ir.Global{})
	require.Error(t, err)
	cerr, ok := err.(*compileerr.Error)
	require.True(t, ok)
	assert.Equal(t, compileerr.KindLoopMisplaced, cerr.Kind)
}

func TestUnboundNameIsFatal(t *testing.T) {
	f := fn(&ast.ExprStmt{Position: pos, Expr: ast.NewVarExpr(pos, "nope")})
	_, err := Lower(f, map[string]ir.Global{})
	require.Error(t, err)
	cerr, ok := err.(*compileerr.Error)
	require.True(t, ok)
	assert.Equal(t, compileerr.KindUnboundName, cerr.Kind)
}

func TestLowerCall(t *testing.T) {
	f := fn(&ast.ExprStmt{Position: pos, Expr: ast.NewCallExpr(pos, "helper", []ast.Expr{ast.NewIntLit(pos, 1), ast.NewIntLit(pos, 2)})})
	proc, err := Lower(f, map[string]ir.Global{})
	require.NoError(t, err)

	var params, calls int
	for _, item := range proc.Body {
		if item.IsLbl {
			continue
		}
		switch item.Op.Opcode {
		case ir.OpParam:
			params++
		case ir.OpCall:
			calls++
			require.Equal(t, int64(3), item.Op.Args[1].Imm(), "argc is arg count + 1")
		}
	}
	assert.Equal(t, 2, params)
	assert.Equal(t, 1, calls)
}

func TestLowerGlobalReadWrite(t *testing.T) {
	globals := map[string]ir.Global{"counter": {Name: "counter"}}
	f := fn(&ast.Assign{Position: pos, Target: "counter", Value: ast.NewBinaryExpr(pos, ast.OpAdd, ast.NewVarExpr(pos, "counter"), ast.NewIntLit(pos, 1))})
	proc, err := Lower(f, globals)
	require.NoError(t, err)

	out := ir.Print(proc)
	assert.Contains(t, out, "@counter")
}

func TestLowerShortCircuitAnd(t *testing.T) {
	f := fn(&ast.Decl{
		Position: pos,
		Name:     "ok",
		Ty:       ast.TypeBool,
		Init: ast.NewBinaryExpr(pos, ast.OpAnd,
			ast.NewBoolLit(pos, true),
			ast.NewBoolLit(pos, false)),
	})
	proc, err := Lower(f, map[string]ir.Global{})
	require.NoError(t, err)
	assert.NotEmpty(t, proc.Body)
}
