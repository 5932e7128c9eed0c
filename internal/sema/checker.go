package sema

import (
	"fmt"

	"bx/internal/ast"
	"bx/internal/diag"
)

// Check resolves every name in prog and checks int/bool typing, returning
// one diag.CompilerError per problem found (an empty slice means prog is
// well-formed and safe to hand to internal/lower). Unlike the reference
// checker's StatementIf.type_check, which re-runs the then-branch a second
// time alongside the else branch instead of checking the else branch on
// its own, each branch here is checked exactly once.
func Check(prog *ast.Program) []diag.CompilerError {
	c := &checker{funcs: map[string]*ast.Function{}}
	for _, g := range prog.Globals {
		c.globals = append(c.globals, g)
	}
	for _, fn := range prog.Functions {
		if _, dup := c.funcs[fn.Name]; dup {
			c.fail(diag.CodeDuplicateName, fmt.Sprintf("function %q redeclared", fn.Name), fn.Position)
			continue
		}
		c.funcs[fn.Name] = fn
	}

	root := newScope(nil)
	seenGlobal := map[string]bool{}
	for _, g := range prog.Globals {
		if seenGlobal[g.Name] {
			c.fail(diag.CodeDuplicateName, fmt.Sprintf("global %q redeclared", g.Name), g.Position)
			continue
		}
		seenGlobal[g.Name] = true
		root.define(g.Name, g.Ty, true)
	}

	for _, fn := range prog.Functions {
		c.checkFunction(fn, root)
	}
	return c.errs
}

type checker struct {
	errs    []diag.CompilerError
	funcs   map[string]*ast.Function
	globals []*ast.GlobalVar
	loop    int
	retType ast.Type
}

func (c *checker) fail(code, msg string, pos ast.Position) {
	c.errs = append(c.errs, diag.New(code, msg, pos))
}

func (c *checker) checkFunction(fn *ast.Function, root *scope) {
	fnScope := newScope(root)
	seen := map[string]bool{}
	for _, p := range fn.Params {
		if seen[p.Name] {
			c.fail(diag.CodeDuplicateName, fmt.Sprintf("parameter %q redeclared", p.Name), fn.Position)
			continue
		}
		seen[p.Name] = true
		fnScope.define(p.Name, p.Ty, false)
	}
	prevRet := c.retType
	c.retType = fn.ReturnType
	c.checkBlock(fn.Body, fnScope)
	c.retType = prevRet
}

func (c *checker) checkBlock(b *ast.Block, parent *scope) {
	s := newScope(parent)
	for _, stmt := range b.Stmts {
		c.checkStmt(stmt, s)
	}
}

func (c *checker) checkStmt(stmt ast.Stmt, s *scope) {
	switch st := stmt.(type) {
	case *ast.Decl:
		initTy := c.checkExpr(st.Init, s)
		if initTy != "" && initTy != st.Ty {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("cannot initialize %q of type %s with %s", st.Name, st.Ty, initTy), st.Position)
		}
		s.define(st.Name, st.Ty, false)

	case *ast.Assign:
		sym, ok := s.lookup(st.Target)
		if !ok {
			c.fail(diag.CodeUndefinedName, fmt.Sprintf("assignment to undeclared name %q", st.Target), st.Position)
			c.checkExpr(st.Value, s)
			return
		}
		valTy := c.checkExpr(st.Value, s)
		if valTy != "" && valTy != sym.ty {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("cannot assign %s to %q of type %s", valTy, st.Target, sym.ty), st.Position)
		}

	case *ast.ExprStmt:
		c.checkExpr(st.Expr, s)

	case *ast.If:
		condTy := c.checkExpr(st.Cond, s)
		if condTy != "" && condTy != ast.TypeBool {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("if condition must be bool, got %s", condTy), st.Position)
		}
		c.checkBlock(st.Then, s)
		if st.Else != nil {
			c.checkBlock(st.Else, s)
		}

	case *ast.While:
		condTy := c.checkExpr(st.Cond, s)
		if condTy != "" && condTy != ast.TypeBool {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("while condition must be bool, got %s", condTy), st.Position)
		}
		c.loop++
		c.checkBlock(st.Body, s)
		c.loop--

	case *ast.Break:
		if c.loop == 0 {
			c.fail(diag.CodeInvalidOperation, "break outside of any loop", st.Position)
		}

	case *ast.Continue:
		if c.loop == 0 {
			c.fail(diag.CodeInvalidOperation, "continue outside of any loop", st.Position)
		}

	case *ast.Print:
		argTy := c.checkExpr(st.Arg, s)
		if argTy == ast.TypeVoid {
			c.fail(diag.CodeVoidInExpression, "cannot print a void value", st.Position)
		}

	case *ast.Return:
		var valTy ast.Type
		if st.Value != nil {
			valTy = c.checkExpr(st.Value, s)
		}
		switch {
		case st.Value == nil && c.retType != ast.TypeVoid:
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("missing return value, function returns %s", c.retType), st.Position)
		case st.Value != nil && c.retType == ast.TypeVoid:
			c.fail(diag.CodeTypeMismatch, "unexpected return value in void function", st.Position)
		case valTy != "" && st.Value != nil && valTy != c.retType:
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("return type mismatch: expected %s, got %s", c.retType, valTy), st.Position)
		}
	}
}

// checkExpr returns the type of e, or "" if a prior error already made the
// type unknowable (so callers should not pile on a second diagnostic).
func (c *checker) checkExpr(e ast.Expr, s *scope) ast.Type {
	switch ex := e.(type) {
	case *ast.IntLit:
		return ast.TypeInt
	case *ast.BoolLit:
		return ast.TypeBool
	case *ast.VarExpr:
		sym, ok := s.lookup(ex.Name)
		if !ok {
			c.fail(diag.CodeUndefinedName, fmt.Sprintf("undefined name %q", ex.Name), ex.Pos())
			return ""
		}
		return sym.ty
	case *ast.UnaryExpr:
		argTy := c.checkExpr(ex.Arg, s)
		want := ast.TypeInt
		if ex.Op == ast.OpBoolNot {
			want = ast.TypeBool
		}
		if argTy != "" && argTy != want {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("operator %s expects %s, got %s", ex.Op, want, argTy), ex.Pos())
			return ""
		}
		return want
	case *ast.BinaryExpr:
		return c.checkBinary(ex, s)
	case *ast.CallExpr:
		return c.checkCall(ex, s)
	default:
		return ""
	}
}

func (c *checker) checkBinary(ex *ast.BinaryExpr, s *scope) ast.Type {
	lt := c.checkExpr(ex.Left, s)
	rt := c.checkExpr(ex.Right, s)
	switch {
	case ast.ShortCircuitOps[ex.Op]:
		if lt != "" && lt != ast.TypeBool {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("%s expects bool operands, got %s", ex.Op, lt), ex.Pos())
		}
		if rt != "" && rt != ast.TypeBool {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("%s expects bool operands, got %s", ex.Op, rt), ex.Pos())
		}
		return ast.TypeBool
	case ast.RelOps[ex.Op]:
		if lt != "" && lt != ast.TypeInt {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("%s expects int operands, got %s", ex.Op, lt), ex.Pos())
		}
		if rt != "" && rt != ast.TypeInt {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("%s expects int operands, got %s", ex.Op, rt), ex.Pos())
		}
		return ast.TypeBool
	default:
		if lt != "" && lt != ast.TypeInt {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("%s expects int operands, got %s", ex.Op, lt), ex.Pos())
		}
		if rt != "" && rt != ast.TypeInt {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("%s expects int operands, got %s", ex.Op, rt), ex.Pos())
		}
		return ast.TypeInt
	}
}

func (c *checker) checkCall(ex *ast.CallExpr, s *scope) ast.Type {
	fn, ok := c.funcs[ex.Target]
	if !ok {
		c.fail(diag.CodeUndefinedName, fmt.Sprintf("call to undefined function %q", ex.Target), ex.Pos())
		for _, a := range ex.Args {
			c.checkExpr(a, s)
		}
		return ""
	}
	if len(ex.Args) != len(fn.Params) {
		c.fail(diag.CodeInvalidOperation, fmt.Sprintf("%q expects %d argument(s), got %d", ex.Target, len(fn.Params), len(ex.Args)), ex.Pos())
	}
	for i, a := range ex.Args {
		argTy := c.checkExpr(a, s)
		if i < len(fn.Params) && argTy != "" && argTy != fn.Params[i].Ty {
			c.fail(diag.CodeTypeMismatch, fmt.Sprintf("argument %d of %q: expected %s, got %s", i+1, ex.Target, fn.Params[i].Ty, argTy), a.Pos())
		}
	}
	return fn.ReturnType
}
