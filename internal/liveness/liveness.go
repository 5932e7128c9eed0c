// Package liveness computes backward liveness over a procedure's control-
// flow graph. spec.md treats this as an external collaborator contract
// (§6: "Liveness") reached only through `live_in(block)`; this package is
// that collaborator's concrete implementation, needed here because SSA
// construction's phony-insertion step (internal/ssa) is contractually
// dependent on a real `live_in` per block, not just an interface shape.
//
// Grounded on the standard Kildall-style worklist dataflow fixpoint; BX's
// closed, small Opcode set keeps use/def extraction a direct switch rather
// than needing a generic instruction-info table.
package liveness

import (
	"bx/internal/cfg"
	"bx/internal/ir"
)

// Result holds the per-block live-in/live-out temp sets.
type Result struct {
	In  map[ir.Label]map[ir.Temp]bool
	Out map[ir.Label]map[ir.Temp]bool
}

// LiveIn returns the live-in set for a block, defaulting to empty if the
// block is unknown.
func (r *Result) LiveIn(l ir.Label) map[ir.Temp]bool {
	if s, ok := r.In[l]; ok {
		return s
	}
	return map[ir.Temp]bool{}
}

// uses returns the temps an op reads.
func uses(op *ir.Op) []ir.Temp {
	var out []ir.Temp
	for _, a := range op.Args {
		if a.IsTemp() {
			out = append(out, a.Temp())
		}
	}
	return out
}

// def returns the temp an op writes, if its result is a temp (not a
// global: globals are not part of liveness tracking, spec.md §3).
func def(op *ir.Op) (ir.Temp, bool) {
	if op.Result.IsPresent() && !op.Result.IsGlobal() {
		return op.Result.Temp(), true
	}
	return ir.Temp{}, false
}

func union(dst, src map[ir.Temp]bool) bool {
	changed := false
	for t := range src {
		if !dst[t] {
			dst[t] = true
			changed = true
		}
	}
	return changed
}

func clone(m map[ir.Temp]bool) map[ir.Temp]bool {
	out := make(map[ir.Temp]bool, len(m))
	for t := range m {
		out[t] = true
	}
	return out
}

// Compute runs backward dataflow to a fixpoint over g, then stamps each
// op's own LiveIn/LiveOut fields by walking each block backward once more
// with the converged boundary sets (spec.md's liveness carryover applies
// to per-op sets, not just per-block ones).
func Compute(g *cfg.Graph) *Result {
	r := &Result{In: map[ir.Label]map[ir.Temp]bool{}, Out: map[ir.Label]map[ir.Temp]bool{}}
	for _, l := range g.Order {
		r.In[l] = map[ir.Temp]bool{}
		r.Out[l] = map[ir.Temp]bool{}
	}

	for {
		changed := false
		// Reverse order of first encounter approximates postorder, which
		// suits a backward analysis; the loop iterates to a fixpoint regardless.
		for i := len(g.Order) - 1; i >= 0; i-- {
			l := g.Order[i]
			b := g.Blocks[l]

			out := map[ir.Temp]bool{}
			for _, s := range b.Succs {
				union(out, r.In[s])
			}
			if union(r.Out[l], out) {
				changed = true
			}

			in := blockLiveIn(b, r.Out[l])
			if union(r.In[l], in) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, l := range g.Order {
		b := g.Blocks[l]
		stampOps(b, r.Out[l])
	}

	return r
}

// blockLiveIn runs the backward use/def recurrence within a single block
// starting from its live-out set, without mutating op state.
func blockLiveIn(b *cfg.Block, liveOut map[ir.Temp]bool) map[ir.Temp]bool {
	live := clone(liveOut)
	for i := len(b.Ops) - 1; i >= 0; i-- {
		op := b.Ops[i]
		if d, ok := def(op); ok {
			delete(live, d)
		}
		for _, u := range uses(op) {
			live[u] = true
		}
	}
	return live
}

// stampOps walks a block backward from its converged live-out set, writing
// each op's own LiveIn/LiveOut.
func stampOps(b *cfg.Block, liveOut map[ir.Temp]bool) {
	live := clone(liveOut)
	for i := len(b.Ops) - 1; i >= 0; i-- {
		op := b.Ops[i]
		op.LiveOut = clone(live)
		if d, ok := def(op); ok {
			delete(live, d)
		}
		for _, u := range uses(op) {
			live[u] = true
		}
		op.LiveIn = clone(live)
	}
}
