package syntax

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"

	"bx/internal/ast"
	"bx/internal/diag"
)

// Convert walks a parsed Program and builds the internal/ast tree the rest
// of the pipeline consumes. It is the one place grammar-level concerns
// (operator strings, precedence-ladder nesting, literal text) turn into
// the closed ast.BinOp/ast.UnaryOp vocabulary lower.Lower expects.
func Convert(filename string, prog *Program) (*ast.Program, []diag.CompilerError) {
	c := &converter{filename: filename}
	out := &ast.Program{}
	for _, item := range prog.Items {
		switch {
		case item.Global != nil:
			out.Globals = append(out.Globals, c.global(item.Global))
		case item.Func != nil:
			out.Functions = append(out.Functions, c.function(item.Func))
		}
	}
	return out, c.errs
}

type converter struct {
	filename string
	errs     []diag.CompilerError
}

func (c *converter) pos(p lexer.Position) ast.Position {
	return ast.Position{Filename: c.filename, Line: p.Line, Column: p.Column}
}

func (c *converter) fail(code, msg string, p lexer.Position) {
	c.errs = append(c.errs, diag.New(code, msg, c.pos(p)))
}

func (c *converter) typ(s string) ast.Type {
	switch s {
	case "bool":
		return ast.TypeBool
	default:
		return ast.TypeInt
	}
}

func (c *converter) global(g *GlobalDecl) *ast.GlobalVar {
	n, err := strconv.ParseInt(g.Value.Text, 10, 64)
	if err != nil {
		c.fail(diag.CodeUnexpectedToken, fmt.Sprintf("invalid integer literal %q", g.Value.Text), g.Value.Pos)
	}
	if g.Value.Neg {
		n = -n
	}
	return &ast.GlobalVar{Position: c.pos(g.Pos), Name: g.Name, Ty: c.typ(g.Type), Init: n}
}

func (c *converter) function(f *FuncDecl) *ast.Function {
	fn := &ast.Function{Position: c.pos(f.Pos), Name: f.Name, ReturnType: ast.TypeVoid}
	for _, p := range f.Params {
		fn.Params = append(fn.Params, ast.Param{Name: p.Name, Ty: c.typ(p.Type)})
	}
	if f.Return != nil {
		fn.ReturnType = c.typ(*f.Return)
	}
	fn.Body = c.block(f.Body)
	return fn
}

func (c *converter) block(b *Block) *ast.Block {
	blk := &ast.Block{Position: c.pos(b.Pos)}
	for _, s := range b.Stmts {
		blk.Stmts = append(blk.Stmts, c.stmt(s))
	}
	return blk
}

func (c *converter) stmt(s *Stmt) ast.Stmt {
	switch {
	case s.VarDecl != nil:
		v := s.VarDecl
		return &ast.Decl{Position: c.pos(v.Pos), Name: v.Name, Ty: c.typ(v.Type), Init: c.expr(v.Init)}
	case s.Assign != nil:
		a := s.Assign
		return &ast.Assign{Position: c.pos(a.Pos), Target: a.Target, Value: c.expr(a.Value)}
	case s.If != nil:
		i := s.If
		var elseBlk *ast.Block
		if i.Else != nil {
			elseBlk = c.block(i.Else)
		}
		return &ast.If{Position: c.pos(i.Pos), Cond: c.expr(i.Cond), Then: c.block(i.Then), Else: elseBlk}
	case s.While != nil:
		w := s.While
		return &ast.While{Position: c.pos(w.Pos), Cond: c.expr(w.Cond), Body: c.block(w.Body)}
	case s.Break != nil:
		return &ast.Break{Position: c.pos(s.Break.Pos)}
	case s.Continue != nil:
		return &ast.Continue{Position: c.pos(s.Continue.Pos)}
	case s.Print != nil:
		return &ast.Print{Position: c.pos(s.Print.Pos), Arg: c.expr(s.Print.Arg)}
	case s.Return != nil:
		r := s.Return
		var v ast.Expr
		if r.Value != nil {
			v = c.expr(r.Value)
		}
		return &ast.Return{Position: c.pos(r.Pos), Value: v}
	case s.ExprStmt != nil:
		call := s.ExprStmt.Call
		return &ast.ExprStmt{Position: c.pos(call.Pos), Expr: c.call(call)}
	default:
		c.fail(diag.CodeUnexpectedToken, "empty statement", s.Pos)
		return &ast.ExprStmt{Position: c.pos(s.Pos), Expr: ast.NewIntLit(c.pos(s.Pos), 0)}
	}
}

// expr descends the precedence ladder, folding each level's trailing
// operator/operand pairs into a left-associative chain of ast.BinaryExpr.
func (c *converter) expr(e *Expr) ast.Expr {
	return c.orExpr(e.Or)
}

func (c *converter) orExpr(e *OrExpr) ast.Expr {
	left := c.andExpr(e.Left)
	for _, tail := range e.Rest {
		left = ast.NewBinaryExpr(c.pos(e.Pos), ast.OpOr, left, c.andExpr(tail.Right))
	}
	return left
}

func (c *converter) andExpr(e *AndExpr) ast.Expr {
	left := c.bitOrExpr(e.Left)
	for _, tail := range e.Rest {
		left = ast.NewBinaryExpr(c.pos(e.Pos), ast.OpAnd, left, c.bitOrExpr(tail.Right))
	}
	return left
}

func (c *converter) bitOrExpr(e *BitOrExpr) ast.Expr {
	left := c.bitXorExpr(e.Left)
	for _, tail := range e.Rest {
		left = ast.NewBinaryExpr(c.pos(e.Pos), ast.OpBitOr, left, c.bitXorExpr(tail.Right))
	}
	return left
}

func (c *converter) bitXorExpr(e *BitXorExpr) ast.Expr {
	left := c.bitAndExpr(e.Left)
	for _, tail := range e.Rest {
		left = ast.NewBinaryExpr(c.pos(e.Pos), ast.OpBitXor, left, c.bitAndExpr(tail.Right))
	}
	return left
}

func (c *converter) bitAndExpr(e *BitAndExpr) ast.Expr {
	left := c.eqExpr(e.Left)
	for _, tail := range e.Rest {
		left = ast.NewBinaryExpr(c.pos(e.Pos), ast.OpBitAnd, left, c.eqExpr(tail.Right))
	}
	return left
}

func (c *converter) eqExpr(e *EqExpr) ast.Expr {
	left := c.relExpr(e.Left)
	for _, tail := range e.Rest {
		op := ast.OpEq
		if tail.Op == "!=" {
			op = ast.OpNeq
		}
		left = ast.NewBinaryExpr(c.pos(e.Pos), op, left, c.relExpr(tail.Right))
	}
	return left
}

func (c *converter) relExpr(e *RelExpr) ast.Expr {
	left := c.shiftExpr(e.Left)
	for _, tail := range e.Rest {
		var op ast.BinOp
		switch tail.Op {
		case "<=":
			op = ast.OpLe
		case ">=":
			op = ast.OpGe
		case "<":
			op = ast.OpLt
		default:
			op = ast.OpGt
		}
		left = ast.NewBinaryExpr(c.pos(e.Pos), op, left, c.shiftExpr(tail.Right))
	}
	return left
}

func (c *converter) shiftExpr(e *ShiftExpr) ast.Expr {
	left := c.addExpr(e.Left)
	for _, tail := range e.Rest {
		op := ast.OpLShift
		if tail.Op == ">>" {
			op = ast.OpRShift
		}
		left = ast.NewBinaryExpr(c.pos(e.Pos), op, left, c.addExpr(tail.Right))
	}
	return left
}

func (c *converter) addExpr(e *AddExpr) ast.Expr {
	left := c.mulExpr(e.Left)
	for _, tail := range e.Rest {
		op := ast.OpAdd
		if tail.Op == "-" {
			op = ast.OpSub
		}
		left = ast.NewBinaryExpr(c.pos(e.Pos), op, left, c.mulExpr(tail.Right))
	}
	return left
}

func (c *converter) mulExpr(e *MulExpr) ast.Expr {
	left := c.unaryExpr(e.Left)
	for _, tail := range e.Rest {
		var op ast.BinOp
		switch tail.Op {
		case "*":
			op = ast.OpMul
		case "/":
			op = ast.OpDiv
		default:
			op = ast.OpMod
		}
		left = ast.NewBinaryExpr(c.pos(e.Pos), op, left, c.unaryExpr(tail.Right))
	}
	return left
}

func (c *converter) unaryExpr(e *UnaryExpr) ast.Expr {
	operand := c.primary(e.Operand)
	if e.Op == nil {
		return operand
	}
	var op ast.UnaryOp
	switch *e.Op {
	case "-":
		op = ast.OpNeg
	case "~":
		op = ast.OpBitNot
	default:
		op = ast.OpBoolNot
	}
	return ast.NewUnaryExpr(c.pos(e.Pos), op, operand)
}

func (c *converter) primary(p *PrimaryExpr) ast.Expr {
	switch {
	case p.Int != nil:
		n, err := strconv.ParseInt(*p.Int, 10, 64)
		if err != nil {
			c.fail(diag.CodeUnexpectedToken, fmt.Sprintf("invalid integer literal %q", *p.Int), p.Pos)
		}
		return ast.NewIntLit(c.pos(p.Pos), n)
	case p.Bool != nil:
		return ast.NewBoolLit(c.pos(p.Pos), *p.Bool == "true")
	case p.Call != nil:
		return c.call(p.Call)
	case p.Ident != nil:
		return ast.NewVarExpr(c.pos(p.Pos), *p.Ident)
	case p.Paren != nil:
		return c.expr(p.Paren)
	default:
		c.fail(diag.CodeUnexpectedToken, "empty expression", p.Pos)
		return ast.NewIntLit(c.pos(p.Pos), 0)
	}
}

func (c *converter) call(call *CallExpr) *ast.CallExpr {
	args := make([]ast.Expr, len(call.Args))
	for i, a := range call.Args {
		args[i] = c.expr(a)
	}
	return ast.NewCallExpr(c.pos(call.Pos), call.Target, args)
}
