package ssa

import "bx/internal/ir"

// Optimize runs copy propagation, phi rename simplification, and null-
// choice elimination to a fixpoint (spec.md §4.4). Each pass strictly
// shrinks the phi+copy count whenever it fires, so the loop terminates.
func Optimize(f *Func) {
	for {
		changed := propagateCopies(f)
		changed = simplifyPhis(f) || changed
		changed = eliminateNullChoices(f) || changed
		if !changed {
			return
		}
	}
}

// renameEverywhere substitutes every occurrence of from with to: in every
// block's phi defined/sources and every op's args/result.
func renameEverywhere(f *Func, from, to Temp) {
	if from == to {
		return
	}
	rename := func(t Temp) Temp {
		if t == from {
			return to
		}
		return t
	}
	for _, l := range f.Order {
		b := f.Blocks[l]
		for _, phi := range b.Phis {
			phi.Defined = rename(phi.Defined)
			for p, s := range phi.Sources {
				phi.Sources[p] = rename(s)
			}
		}
		for _, op := range b.Ops {
			for i, a := range op.Args {
				if a.IsTemp() {
					op.Args[i] = TempArg(rename(a.Temp()))
				}
			}
			if op.Result.IsPresent() && !op.Result.IsGlobal() {
				op.Result = TempResult(rename(op.Result.Temp()))
			}
		}
	}
}

// propagateCopies finds every `t2 = copy t1` (t1 not a global) within each
// block, renames t2 to t1 everywhere in the procedure, and drops the copy.
func propagateCopies(f *Func) bool {
	changed := false
	for _, l := range f.Order {
		b := f.Blocks[l]
		var kept []*Op
		for _, op := range b.Ops {
			if op.Opcode == ir.OpCopy && op.Result.IsPresent() && !op.Result.IsGlobal() &&
				len(op.Args) == 1 && op.Args[0].IsTemp() {
				renameEverywhere(f, op.Result.Temp(), op.Args[0].Temp())
				changed = true
				continue
			}
			kept = append(kept, op)
		}
		b.Ops = kept
	}
	return changed
}

// simplifyPhis collapses any phi whose non-self-referencing sources are all
// the same SSA temp, renaming its defined id to that temp and removing it.
func simplifyPhis(f *Func) bool {
	changed := false
	for _, l := range f.Order {
		b := f.Blocks[l]
		var kept []*Phi
		for _, phi := range b.Phis {
			distinct := map[Temp]bool{}
			for _, src := range phi.Sources {
				if src == phi.Defined {
					continue
				}
				distinct[src] = true
			}
			if len(distinct) == 1 {
				var only Temp
				for t := range distinct {
					only = t
				}
				renameEverywhere(f, phi.Defined, only)
				changed = true
				continue
			}
			kept = append(kept, phi)
		}
		b.Phis = kept
	}
	return changed
}

// eliminateNullChoices drops any phi whose every source is a self-
// reference to its own defined id — a join that never receives an
// outside value.
func eliminateNullChoices(f *Func) bool {
	changed := false
	for _, l := range f.Order {
		b := f.Blocks[l]
		var kept []*Phi
		for _, phi := range b.Phis {
			allSelf := true
			for _, src := range phi.Sources {
				if src != phi.Defined {
					allSelf = false
					break
				}
			}
			if allSelf && len(phi.Sources) > 0 {
				changed = true
				continue
			}
			kept = append(kept, phi)
		}
		b.Phis = kept
	}
	return changed
}
