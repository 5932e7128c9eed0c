package lower

import (
	"bx/internal/ast"
	"bx/internal/ir"
)

// relJumpOp maps a relational operator to the opcode that tests the sign of
// `left - right` against zero (spec.md §4.1's sub-then-test idiom).
var relJumpOp = map[ast.BinOp]ir.Opcode{
	ast.OpEq:  ir.OpJz,
	ast.OpNeq: ir.OpJnz,
	ast.OpLt:  ir.OpJl,
	ast.OpLe:  ir.OpJle,
	ast.OpGt:  ir.OpJnle,
	ast.OpGe:  ir.OpJnl,
}

var arithOp = map[ast.BinOp]ir.Opcode{
	ast.OpAdd:    ir.OpAdd,
	ast.OpSub:    ir.OpSub,
	ast.OpMul:    ir.OpMul,
	ast.OpDiv:    ir.OpDiv,
	ast.OpMod:    ir.OpMod,
	ast.OpBitAnd: ir.OpAnd,
	ast.OpBitOr:  ir.OpOr,
	ast.OpBitXor: ir.OpXor,
	ast.OpLShift: ir.OpLShift,
	ast.OpRShift: ir.OpRShift,
}

// lowerExpr munches e down to a single temp holding its value. Relational
// and short-circuit boolean operators never appear here directly: they
// round-trip through branchLower and a materialize sequence, matching
// spec.md §4.1's split between value-producing and branch-producing
// lowering.
func (l *Lowerer) lowerExpr(e ast.Expr) (ir.Temp, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		t := l.freshTemp()
		l.emit(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(ex.Value)}, ir.TempResult(t)))
		return t, nil

	case *ast.BoolLit:
		t := l.freshTemp()
		v := int64(0)
		if ex.Value {
			v = 1
		}
		l.emit(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(v)}, ir.TempResult(t)))
		return t, nil

	case *ast.VarExpr:
		tmp, isGlobal, err := l.lookup(ex.Name, ex.Pos())
		if err != nil {
			return ir.Temp{}, err
		}
		if !isGlobal {
			return tmp, nil
		}
		t := l.freshTemp()
		l.emit(ir.NewOp(ir.OpCopy, []ir.Arg{ir.GlobalArg(l.globals[ex.Name])}, ir.TempResult(t)))
		return t, nil

	case *ast.UnaryExpr:
		return l.lowerUnary(ex)

	case *ast.BinaryExpr:
		return l.lowerBinary(ex)

	case *ast.CallExpr:
		return l.lowerCall(ex)
	}
	panic("lower: unreachable expression kind")
}

func (l *Lowerer) lowerUnary(ex *ast.UnaryExpr) (ir.Temp, error) {
	if ex.Op == ast.OpBoolNot {
		return l.materializeBranch(ex)
	}
	arg, err := l.lowerExpr(ex.Arg)
	if err != nil {
		return ir.Temp{}, err
	}
	t := l.freshTemp()
	opcode := ir.OpNeg
	if ex.Op == ast.OpBitNot {
		opcode = ir.OpNot
	}
	l.emit(ir.NewOp(opcode, []ir.Arg{ir.TempArg(arg)}, ir.TempResult(t)))
	return t, nil
}

func (l *Lowerer) lowerBinary(ex *ast.BinaryExpr) (ir.Temp, error) {
	if ast.RelOps[ex.Op] || ast.ShortCircuitOps[ex.Op] {
		return l.materializeBranch(ex)
	}
	left, err := l.lowerExpr(ex.Left)
	if err != nil {
		return ir.Temp{}, err
	}
	right, err := l.lowerExpr(ex.Right)
	if err != nil {
		return ir.Temp{}, err
	}
	t := l.freshTemp()
	l.emit(ir.NewOp(arithOp[ex.Op], []ir.Arg{ir.TempArg(left), ir.TempArg(right)}, ir.TempResult(t)))
	return t, nil
}

func (l *Lowerer) lowerCall(ex *ast.CallExpr) (ir.Temp, error) {
	for i, argExpr := range ex.Args {
		argTemp, err := l.lowerExpr(argExpr)
		if err != nil {
			return ir.Temp{}, err
		}
		l.emit(ir.NewOp(ir.OpParam, []ir.Arg{ir.ImmArg(int64(i + 1)), ir.TempArg(argTemp)}, ir.NoResult()))
	}
	result := l.freshTemp()
	argc := int64(len(ex.Args) + 1)
	l.emit(ir.NewOp(ir.OpCall, []ir.Arg{ir.GlobalArg(ir.Global{Name: ex.Target}), ir.ImmArg(argc)}, ir.TempResult(result)))
	return result, nil
}

// materializeBranch evaluates a boolean-valued expression by running it
// through branchLower and folding the two outcomes back into one temp, for
// contexts that need the value itself (e.g. `var ok = a < b;`) rather than
// a control transfer.
func (l *Lowerer) materializeBranch(e ast.Expr) (ir.Temp, error) {
	tLabel := l.freshLabel()
	fLabel := l.freshLabel()
	end := l.freshLabel()

	if err := l.branchLower(e, tLabel, fLabel); err != nil {
		return ir.Temp{}, err
	}

	result := l.freshTemp()
	l.mark(tLabel)
	l.emit(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(1)}, ir.TempResult(result)))
	l.emit(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(end)}, ir.NoResult()))
	l.mark(fLabel)
	l.emit(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(0)}, ir.TempResult(result)))
	l.mark(end)
	return result, nil
}

// branchLower lowers e for its control-flow effect alone: control reaches
// tLabel when e is true, fLabel when e is false. This is the maximal-munch
// entry point for conditions (spec.md §4.1): relational comparisons and
// short-circuit `&&`/`||` are recognized and compiled directly into jumps
// instead of first materializing a boolean value.
func (l *Lowerer) branchLower(e ast.Expr, tLabel, fLabel ir.Label) error {
	switch ex := e.(type) {
	case *ast.UnaryExpr:
		if ex.Op == ast.OpBoolNot {
			return l.branchLower(ex.Arg, fLabel, tLabel)
		}

	case *ast.BinaryExpr:
		switch ex.Op {
		case ast.OpAnd:
			mid := l.freshLabel()
			if err := l.branchLower(ex.Left, mid, fLabel); err != nil {
				return err
			}
			l.mark(mid)
			return l.branchLower(ex.Right, tLabel, fLabel)

		case ast.OpOr:
			mid := l.freshLabel()
			if err := l.branchLower(ex.Left, tLabel, mid); err != nil {
				return err
			}
			l.mark(mid)
			return l.branchLower(ex.Right, tLabel, fLabel)
		}

		if ast.RelOps[ex.Op] {
			left, err := l.lowerExpr(ex.Left)
			if err != nil {
				return err
			}
			right, err := l.lowerExpr(ex.Right)
			if err != nil {
				return err
			}
			diff := l.freshTemp()
			l.emit(ir.NewOp(ir.OpSub, []ir.Arg{ir.TempArg(left), ir.TempArg(right)}, ir.TempResult(diff)))
			l.emit(ir.NewOp(relJumpOp[ex.Op], []ir.Arg{ir.TempArg(diff), ir.LabelArg(tLabel)}, ir.NoResult()))
			l.emit(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(fLabel)}, ir.NoResult()))
			return nil
		}
	}

	// Default: the expression is not one of the recognized branch shapes
	// (e.g. a plain bool variable or call result); materialize it and test
	// against zero.
	t, err := l.lowerExpr(e)
	if err != nil {
		return err
	}
	l.emit(ir.NewOp(ir.OpJnz, []ir.Arg{ir.TempArg(t), ir.LabelArg(tLabel)}, ir.NoResult()))
	l.emit(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(fLabel)}, ir.NoResult()))
	return nil
}
