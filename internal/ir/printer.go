package ir

import (
	"strconv"
	"strings"
)

// Print renders a procedure's linear TAC listing, one item per line, in the
// pretty form spec.md's end-to-end scenarios use (`t = opcode args`).
func Print(proc *Proc) string {
	var b strings.Builder
	for _, item := range proc.Body {
		if item.IsLbl {
			b.WriteString(item.Label.String())
			b.WriteString(":\n")
			continue
		}
		b.WriteString("\t")
		b.WriteString(item.Op.String())
		b.WriteString("\n")
	}
	return b.String()
}

// PrintProgram renders every procedure in a program, each preceded by its
// `proc name(params):` header.
func PrintProgram(prog *Program) string {
	var b strings.Builder
	for _, g := range prog.Globals {
		b.WriteString(g.Global.String())
		b.WriteString(" = ")
		b.WriteString(strconv.FormatInt(g.Init, 10))
		b.WriteString("\n")
	}
	for _, proc := range prog.Procs {
		params := make([]string, len(proc.Params))
		for i, p := range proc.Params {
			params[i] = p.String()
		}
		b.WriteString("proc ")
		b.WriteString(proc.Name)
		b.WriteString("(")
		b.WriteString(strings.Join(params, ", "))
		b.WriteString("):\n")
		b.WriteString(Print(proc))
	}
	return b.String()
}

