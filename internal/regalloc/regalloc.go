// Package regalloc defines the contract shape a register allocator needs
// from the deconstructed TAC (spec.md §6), without implementing one: the
// interference graph and graph-colouring allocator itself are an explicit
// Non-goal (spec.md §1, "Out of scope"). Only the interfaces a real
// allocator would consume are defined here.
package regalloc

import "bx/internal/ir"

// PrecoloredPrefix marks a dummy temp that models a fixed calling-
// convention register (e.g. "%%rax", "%%rdi"); allocators must treat any
// ir.Temp whose name starts with this prefix as pinned, not assignable.
const PrecoloredPrefix = "%%"

// IsPrecolored reports whether t is a calling-convention-pinned dummy
// temp rather than a real allocation candidate.
func IsPrecolored(t ir.Temp) bool {
	return t.IsNamed() && len(t.Name()) >= len(PrecoloredPrefix) && t.Name()[:len(PrecoloredPrefix)] == PrecoloredPrefix
}

// LivenessProvider is the contract an allocator needs from the liveness
// collaborator: per-op live_in/live_out, already recomputed against the
// deconstructed listing (spec.md §6, "must be recomputed... after SSA
// deconstruction").
type LivenessProvider interface {
	LiveIn(op *ir.Op) map[ir.Temp]bool
	LiveOut(op *ir.Op) map[ir.Temp]bool
}

// InterferenceGraph is the shape a graph-colouring allocator would build
// and consume; BX does not construct one, but any future allocator slots
// in against this interface without touching the rest of the pipeline.
type InterferenceGraph interface {
	Neighbors(t ir.Temp) []ir.Temp
	Temps() []ir.Temp
}

// Allocation is the result a register allocator hands back to the
// assembler collaborator: a concrete location (register name or stack
// slot) per temp.
type Allocation struct {
	Registers map[ir.Temp]string
	Spills    map[ir.Temp]int // stack slot index, for temps that didn't fit in registers
}

// Allocator is the interface an assembler-facing driver would call; no
// implementation ships here.
type Allocator interface {
	Allocate(proc *ir.Proc, live LivenessProvider) (*Allocation, error)
}
