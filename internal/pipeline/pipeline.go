// Package pipeline orchestrates one compilation: front-end parsing and
// checking, then per-procedure lowering, CFG construction, liveness,
// SSA construction/optimization/deconstruction, and a final liveness
// recompute for the register-allocator/assembler collaborators
// (spec.md §5, §6). Grounded on the teacher's compilation-unit driver in
// main.go, generalized from its single-threaded parse-then-analyze flow
// to the goroutine-per-procedure fan-out spec.md §5 explicitly permits,
// since no lowering state is shared across procedures.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	deadlock "github.com/sasha-s/go-deadlock"

	"bx/internal/ast"
	"bx/internal/cfg"
	"bx/internal/diag"
	"bx/internal/ir"
	"bx/internal/liveness"
	"bx/internal/lower"
	"bx/internal/sema"
	"bx/internal/ssa"
	"bx/internal/syntax"
)

// Procedure is one compiled function: its final, deconstructed TAC and the
// liveness recomputed against that final listing, ready for the register-
// allocator/assembler collaborators (spec.md §6).
type Procedure struct {
	Proc     *ir.Proc
	Liveness *liveness.Result
}

// Result is the output of compiling one BX source file.
type Result struct {
	Globals    []ir.GlobalDecl
	Procedures []*Procedure
}

// CheckErrors wraps the diagnostics sema.Check produced; returned instead
// of a bare slice so callers can type-assert it out of a wrapped error
// chain via errors.As.
type CheckErrors struct {
	Errors []diag.CompilerError
}

func (e *CheckErrors) Error() string {
	return fmt.Sprintf("%d error(s) found during checking", len(e.Errors))
}

// Compile parses, checks, and compiles source into the deconstructed TAC
// form every procedure must reach before assembly emission.
func Compile(filename, source string) (*Result, error) {
	prog, perrs := syntax.Parse(filename, source)
	if len(perrs) > 0 {
		return nil, &CheckErrors{Errors: perrs}
	}
	if errs := sema.Check(prog); len(errs) > 0 {
		return nil, &CheckErrors{Errors: errs}
	}
	return CompileChecked(prog)
}

// CompileChecked runs the middle/back end over an already-checked program,
// compiling every procedure concurrently: each function's Lowerer owns its
// own counters (spec.md §9, "never process two procedures in one counter
// context"), so nothing but the read-only globals map is shared.
func CompileChecked(prog *ast.Program) (*Result, error) {
	globals := lower.BuildGlobals(prog)

	out := &Result{}
	for _, g := range prog.Globals {
		out.Globals = append(out.Globals, ir.GlobalDecl{Global: globals[g.Name], Init: g.Init})
	}

	procs := make([]*Procedure, len(prog.Functions))
	errs := make([]error, len(prog.Functions))

	var mu deadlock.Mutex
	var wg sync.WaitGroup
	wg.Add(len(prog.Functions))
	for i, fn := range prog.Functions {
		i, fn := i, fn
		go func() {
			defer wg.Done()
			proc, err := compileOne(fn, globals)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[i] = errors.Wrapf(err, "compiling %q", fn.Name)
				return
			}
			procs[i] = proc
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	out.Procedures = procs
	return out, nil
}

// compileOne runs the full TAC -> CFG -> SSA -> deconstruction chain for a
// single function (spec.md §4.1-4.5).
func compileOne(fn *ast.Function, globals map[string]ir.Global) (*Procedure, error) {
	tac, err := lower.Lower(fn, globals)
	if err != nil {
		return nil, err
	}

	g := cfg.Build(tac)
	cfg.Optimize(g)

	live := liveness.Compute(g)

	f, err := ssa.Build(g, live, tac.Params)
	if err != nil {
		return nil, err
	}
	ssa.Optimize(f)
	final := ssa.Deconstruct(f)

	// liveness must be recomputed against the deconstructed listing: SSA
	// deconstruction's parallel copies change which temps are live where
	// (spec.md §6, "must be recomputed ... after SSA deconstruction").
	finalGraph := cfg.Build(final)
	finalLive := liveness.Compute(finalGraph)

	return &Procedure{Proc: final, Liveness: finalLive}, nil
}
