// Package lower implements the AST-to-TAC lowering pass (spec.md §4.1): a
// top-down "maximal munch" code generator that emits a linear, label-and-op
// listing faithfully implementing the source program's semantics.
//
// Grounded on the teacher's scope-stacked, fresh-counter Builder
// (internal/ir/builder.go in the kanso compiler) and on the reference
// Python Lowerer (original_source/lib/tac.py), generalized from EVM/
// contract semantics to BX's plain imperative statements and expressions.
package lower

import (
	"fmt"

	"bx/internal/ast"
	"bx/internal/compileerr"
	"bx/internal/ir"
)

// loopFrame records the head/exit labels break/continue resolve against.
type loopFrame struct {
	head ir.Label
	exit ir.Label
}

// Lowerer lowers a single function. Its counters are owned per-procedure:
// never reuse a Lowerer across two functions (spec.md §9 Design Notes).
type Lowerer struct {
	fnName string

	tempCounter  int
	labelCounter int

	scopes []map[string]ir.Temp
	loops  []loopFrame

	globals map[string]ir.Global

	body []ir.Item
}

// New creates a Lowerer for function fn, with its parameters pre-bound in
// the outermost scope (spec.md §4.1: "entry parameters, which are
// pre-bound").
func New(fn *ast.Function, globals map[string]ir.Global) *Lowerer {
	l := &Lowerer{
		fnName:  fn.Name,
		scopes:  []map[string]ir.Temp{{}},
		globals: globals,
	}
	for _, p := range fn.Params {
		l.scopes[0][p.Name] = ir.NewNamedTemp(p.Name)
	}
	return l
}

// Params returns the procedure's entry parameter temps, in declared order.
func (l *Lowerer) Params(fn *ast.Function) []ir.Temp {
	params := make([]ir.Temp, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = ir.NewNamedTemp(p.Name)
	}
	return params
}

func (l *Lowerer) pushScope() { l.scopes = append(l.scopes, map[string]ir.Temp{}) }
func (l *Lowerer) popScope()  { l.scopes = l.scopes[:len(l.scopes)-1] }

func (l *Lowerer) bind(name string) ir.Temp {
	t := ir.NewNamedTemp(name)
	l.scopes[len(l.scopes)-1][name] = t
	return t
}

// lookup resolves a name to a Temp (local/param) or a Global, innermost
// scope first, falling back to the global map (spec.md §4.1 Scope
// discipline). A name found in neither is a fatal UnboundName.
func (l *Lowerer) lookup(name string, pos ast.Position) (ir.Temp, bool, *compileerr.Error) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if t, ok := l.scopes[i][name]; ok {
			return t, false, nil
		}
	}
	if _, ok := l.globals[name]; ok {
		return ir.Temp{}, true, nil
	}
	return ir.Temp{}, false, compileerr.UnboundName(name, pos)
}

func (l *Lowerer) freshTemp() ir.Temp {
	t := ir.NewTemp(l.tempCounter)
	l.tempCounter++
	return t
}

func (l *Lowerer) freshLabel() ir.Label {
	lbl := ir.Label{Name: fmt.Sprintf("%s.%d", l.fnName, l.labelCounter)}
	l.labelCounter++
	return lbl
}

func (l *Lowerer) emit(op *ir.Op) { l.body = append(l.body, ir.OpItem(op)) }
func (l *Lowerer) mark(lbl ir.Label) { l.body = append(l.body, ir.LabelItem(lbl)) }

// Lower runs the full pass over fn's body and returns the resulting linear
// TAC procedure.
func Lower(fn *ast.Function, globals map[string]ir.Global) (*ir.Proc, error) {
	l := New(fn, globals)
	entry := l.freshLabel()
	l.mark(entry)

	if err := l.lowerBlock(fn.Body); err != nil {
		return nil, err
	}

	// Guarantee every path ends in a ret, even for an empty/void body
	// (spec.md §8 boundary: "Empty function body -> procedure emits one
	// block with only ret").
	if !endsInTerminator(l.body) {
		l.emit(ir.NewOp(ir.OpRet, nil, ir.NoResult()))
	}

	return &ir.Proc{
		Name:   fn.Name,
		Params: l.Params(fn),
		Body:   l.body,
	}, nil
}

func endsInTerminator(body []ir.Item) bool {
	if len(body) == 0 {
		return false
	}
	last := body[len(body)-1]
	return !last.IsLbl && last.Op.IsJmp()
}

// BuildGlobals maps every module-level variable to its TAC Global handle,
// for use by every function's Lowerer.
func BuildGlobals(prog *ast.Program) map[string]ir.Global {
	globals := make(map[string]ir.Global, len(prog.Globals))
	for _, g := range prog.Globals {
		globals[g.Name] = ir.Global{Name: g.Name}
	}
	return globals
}

// LowerProgram lowers every function in prog and collects the module's
// global declarations into a single ir.Program.
func LowerProgram(prog *ast.Program) (*ir.Program, error) {
	globals := BuildGlobals(prog)

	out := &ir.Program{}
	for _, g := range prog.Globals {
		out.Globals = append(out.Globals, ir.GlobalDecl{Global: globals[g.Name], Init: g.Init})
	}
	for _, fn := range prog.Functions {
		proc, err := Lower(fn, globals)
		if err != nil {
			return nil, err
		}
		out.Procs = append(out.Procs, proc)
	}
	return out, nil
}

func (l *Lowerer) lowerBlock(b *ast.Block) error {
	l.pushScope()
	defer l.popScope()
	for _, s := range b.Stmts {
		if err := l.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}
