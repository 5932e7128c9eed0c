package lower

import (
	"bx/internal/ast"
	"bx/internal/compileerr"
	"bx/internal/ir"
)

func (l *Lowerer) lowerStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Decl:
		return l.lowerDecl(st)
	case *ast.Assign:
		return l.lowerAssign(st)
	case *ast.ExprStmt:
		_, err := l.lowerExpr(st.Expr)
		return err
	case *ast.If:
		return l.lowerIf(st)
	case *ast.While:
		return l.lowerWhile(st)
	case *ast.Break:
		return l.lowerBreak(st)
	case *ast.Continue:
		return l.lowerContinue(st)
	case *ast.Print:
		return l.lowerPrint(st)
	case *ast.Return:
		return l.lowerReturn(st)
	}
	panic("lower: unreachable statement kind")
}

func (l *Lowerer) lowerDecl(st *ast.Decl) error {
	value, err := l.lowerExpr(st.Init)
	if err != nil {
		return err
	}
	dest := l.bind(st.Name)
	l.emit(ir.NewOp(ir.OpCopy, []ir.Arg{ir.TempArg(value)}, ir.TempResult(dest)))
	return nil
}

func (l *Lowerer) lowerAssign(st *ast.Assign) error {
	value, err := l.lowerExpr(st.Value)
	if err != nil {
		return err
	}
	dest, isGlobal, err := l.lookup(st.Target, st.Position)
	if err != nil {
		return err
	}
	if isGlobal {
		l.emit(ir.NewOp(ir.OpCopy, []ir.Arg{ir.TempArg(value)}, ir.GlobalResult(l.globals[st.Target])))
		return nil
	}
	l.emit(ir.NewOp(ir.OpCopy, []ir.Arg{ir.TempArg(value)}, ir.TempResult(dest)))
	return nil
}

func (l *Lowerer) lowerIf(st *ast.If) error {
	then := l.freshLabel()
	end := l.freshLabel()

	var els ir.Label
	if st.Else != nil {
		els = l.freshLabel()
	} else {
		els = end
	}

	if err := l.branchLower(st.Cond, then, els); err != nil {
		return err
	}

	l.mark(then)
	if err := l.lowerBlock(st.Then); err != nil {
		return err
	}
	if st.Else != nil {
		l.emit(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(end)}, ir.NoResult()))
		l.mark(els)
		if err := l.lowerBlock(st.Else); err != nil {
			return err
		}
	}
	l.mark(end)
	return nil
}

func (l *Lowerer) lowerWhile(st *ast.While) error {
	head := l.freshLabel()
	body := l.freshLabel()
	end := l.freshLabel()

	l.mark(head)
	if err := l.branchLower(st.Cond, body, end); err != nil {
		return err
	}

	l.mark(body)
	l.loops = append(l.loops, loopFrame{head: head, exit: end})
	err := l.lowerBlock(st.Body)
	l.loops = l.loops[:len(l.loops)-1]
	if err != nil {
		return err
	}
	l.emit(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(head)}, ir.NoResult()))
	l.mark(end)
	return nil
}

func (l *Lowerer) lowerBreak(st *ast.Break) error {
	if len(l.loops) == 0 {
		return compileerr.LoopMisplaced("break", st.Position)
	}
	exit := l.loops[len(l.loops)-1].exit
	l.emit(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(exit)}, ir.NoResult()))
	return nil
}

func (l *Lowerer) lowerContinue(st *ast.Continue) error {
	if len(l.loops) == 0 {
		return compileerr.LoopMisplaced("continue", st.Position)
	}
	head := l.loops[len(l.loops)-1].head
	l.emit(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(head)}, ir.NoResult()))
	return nil
}

func (l *Lowerer) lowerPrint(st *ast.Print) error {
	value, err := l.lowerExpr(st.Arg)
	if err != nil {
		return err
	}
	l.emit(ir.NewOp(ir.OpPrint, []ir.Arg{ir.TempArg(value)}, ir.NoResult()))
	return nil
}

func (l *Lowerer) lowerReturn(st *ast.Return) error {
	if st.Value == nil {
		l.emit(ir.NewOp(ir.OpRet, nil, ir.NoResult()))
		return nil
	}
	value, err := l.lowerExpr(st.Value)
	if err != nil {
		return err
	}
	l.emit(ir.NewOp(ir.OpRet, []ir.Arg{ir.TempArg(value)}, ir.NoResult()))
	return nil
}
