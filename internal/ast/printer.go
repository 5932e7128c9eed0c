package ast

import (
	"fmt"
	"strings"
)

// String renders a program back to a BX-like surface form for debugging.
// It is not required to round-trip exactly.
func (p *Program) String() string {
	var b strings.Builder
	for _, g := range p.Globals {
		fmt.Fprintf(&b, "var %s: %s = %d;\n", g.Name, g.Ty, g.Init)
	}
	for _, fn := range p.Functions {
		b.WriteString(fn.String())
		b.WriteString("\n")
	}
	return b.String()
}

func (f *Function) String() string {
	var b strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.Ty)
	}
	fmt.Fprintf(&b, "def %s(%s)", f.Name, strings.Join(params, ", "))
	if f.ReturnType != "" && f.ReturnType != TypeVoid {
		fmt.Fprintf(&b, ": %s", f.ReturnType)
	}
	b.WriteString(" ")
	b.WriteString(f.Body.String())
	return b.String()
}

func (blk *Block) String() string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, s := range blk.Stmts {
		fmt.Fprintf(&b, "  %s\n", stmtString(s))
	}
	b.WriteString("}")
	return b.String()
}

func stmtString(s Stmt) string {
	switch n := s.(type) {
	case *Decl:
		return fmt.Sprintf("var %s: %s = %s;", n.Name, n.Ty, exprString(n.Init))
	case *Assign:
		return fmt.Sprintf("%s = %s;", n.Target, exprString(n.Value))
	case *ExprStmt:
		return exprString(n.Expr) + ";"
	case *If:
		if n.Else != nil {
			return fmt.Sprintf("if (%s) %s else %s", exprString(n.Cond), n.Then.String(), n.Else.String())
		}
		return fmt.Sprintf("if (%s) %s", exprString(n.Cond), n.Then.String())
	case *While:
		return fmt.Sprintf("while (%s) %s", exprString(n.Cond), n.Body.String())
	case *Break:
		return "break;"
	case *Continue:
		return "continue;"
	case *Print:
		return fmt.Sprintf("print(%s);", exprString(n.Arg))
	case *Return:
		if n.Value == nil {
			return "return;"
		}
		return fmt.Sprintf("return %s;", exprString(n.Value))
	default:
		return fmt.Sprintf("<unknown stmt %T>", s)
	}
}

func exprString(e Expr) string {
	switch n := e.(type) {
	case *IntLit:
		return fmt.Sprintf("%d", n.Value)
	case *BoolLit:
		return fmt.Sprintf("%t", n.Value)
	case *VarExpr:
		return n.Name
	case *UnaryExpr:
		return fmt.Sprintf("(%s %s)", n.Op, exprString(n.Arg))
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", exprString(n.Left), n.Op, exprString(n.Right))
	case *CallExpr:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = exprString(a)
		}
		return fmt.Sprintf("%s(%s)", n.Target, strings.Join(args, ", "))
	default:
		return fmt.Sprintf("<unknown expr %T>", e)
	}
}
