package cfg

import "bx/internal/ir"

// Optimize runs the four block-level cleanups to a fixpoint (spec.md
// §4.2): unreachable-block elimination, jump threading, conditional-to-
// unconditional collapse, and single-pred/single-succ coalescing. Each
// pass strictly reduces block count or jump count when it fires, so the
// whole loop terminates.
func Optimize(g *Graph) {
	for {
		changed := false
		changed = removeUnreachable(g) || changed
		changed = threadJumps(g) || changed
		changed = collapseConditionals(g) || changed
		changed = coalesceChains(g) || changed
		if !changed {
			return
		}
	}
}

func reachable(g *Graph) map[ir.Label]bool {
	seen := map[ir.Label]bool{g.Entry: true}
	stack := []ir.Label{g.Entry}
	for len(stack) > 0 {
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b, ok := g.Blocks[l]
		if !ok {
			continue
		}
		for _, s := range b.Succs {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

func removeUnreachable(g *Graph) bool {
	live := reachable(g)
	changed := false
	var order []ir.Label
	for _, l := range g.Order {
		if live[l] {
			order = append(order, l)
			continue
		}
		delete(g.Blocks, l)
		changed = true
	}
	g.Order = order
	if !changed {
		return false
	}
	for _, l := range g.Order {
		b := g.Blocks[l]
		var preds []ir.Label
		for _, p := range b.Preds {
			if live[p] {
				preds = append(preds, p)
			}
		}
		b.Preds = preds
	}
	return true
}

// rewriteTarget replaces every occurrence of old with next in b's
// terminator args and fallthrough pointer. A block's terminator can be a
// `jcc`/`jmp` pair, so both ops (not just the last) must be checked.
func rewriteTarget(b *Block, old, next ir.Label) {
	if len(b.Ops) == 0 {
		return
	}
	cond, uncond := terminatorOps(b.Ops)
	for _, op := range [2]*ir.Op{cond, uncond} {
		if op == nil {
			continue
		}
		for i, a := range op.Args {
			if a.IsLabel() && a.Label() == old {
				op.Args[i] = ir.LabelArg(next)
			}
		}
	}
	for i, s := range b.Succs {
		if s == old {
			b.Succs[i] = next
		}
	}
	if b.Fallthrough != nil && *b.Fallthrough == old {
		f := next
		b.Fallthrough = &f
	}
}

// threadJumps collapses any block whose entire body is a single
// unconditional jmp L' by redirecting every edge that targets it
// straight to L' and deleting it.
func threadJumps(g *Graph) bool {
	changed := false
	for _, l := range append([]ir.Label(nil), g.Order...) {
		b, ok := g.Blocks[l]
		if !ok || l == g.Entry {
			continue
		}
		if len(b.Ops) != 1 || b.Ops[0].Opcode != ir.OpJmp {
			continue
		}
		target := b.Ops[0].Args[0].Label()
		if target == l {
			continue // self-loop jmp; nothing to thread
		}
		for _, p := range b.Preds {
			pred, ok := g.Blocks[p]
			if !ok {
				continue
			}
			rewriteTarget(pred, l, target)
		}
		tgt := g.Blocks[target]
		if tgt != nil {
			var preds []ir.Label
			seen := map[ir.Label]bool{}
			for _, p := range tgt.Preds {
				if p == l {
					continue
				}
				if !seen[p] {
					preds = append(preds, p)
					seen[p] = true
				}
			}
			for _, p := range b.Preds {
				if p != l && !seen[p] {
					preds = append(preds, p)
					seen[p] = true
				}
			}
			tgt.Preds = preds
		}
		delete(g.Blocks, l)
		removeFromOrder(g, l)
		changed = true
	}
	return changed
}

func removeFromOrder(g *Graph, l ir.Label) {
	var order []ir.Label
	for _, o := range g.Order {
		if o != l {
			order = append(order, o)
		}
	}
	g.Order = order
}

// collapseConditionals replaces a `jcc .Ltrue` / `jmp .Lfalse` pair whose
// two targets are the same label with a single plain jmp — the condition
// can no longer change which block runs next, so testing it is pointless.
func collapseConditionals(g *Graph) bool {
	changed := false
	for _, l := range g.Order {
		b := g.Blocks[l]
		cond, uncond := terminatorOps(b.Ops)
		if cond == nil || uncond == nil || uncond.Opcode != ir.OpJmp {
			continue
		}
		trueTarget := cond.JumpTargets()[0]
		falseTarget := uncond.JumpTargets()[0]
		if trueTarget != falseTarget {
			continue
		}
		newOp := ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(trueTarget)}, ir.NoResult())
		b.Ops = append(b.Ops[:len(b.Ops)-2], newOp)
		b.Succs = []ir.Label{trueTarget}
		f := trueTarget
		b.Fallthrough = &f
		changed = true
	}
	return changed
}

// coalesceChains merges B into A whenever A's only successor is B and B's
// only predecessor is A.
func coalesceChains(g *Graph) bool {
	changed := false
	for _, l := range append([]ir.Label(nil), g.Order...) {
		a, ok := g.Blocks[l]
		if !ok || len(a.Succs) != 1 {
			continue
		}
		bLabel := a.Succs[0]
		if bLabel == l {
			continue
		}
		b, ok := g.Blocks[bLabel]
		if !ok || len(b.Preds) != 1 || b.Preds[0] != l {
			continue
		}

		// a.Succs has exactly one entry here, so its whole terminator tail
		// (a lone jmp, or in principle a jcc/jmp pair both targeting b) is
		// dead weight once b's ops are spliced in directly after it.
		cond, uncond := terminatorOps(a.Ops)
		trim := 0
		if cond != nil {
			trim++
		}
		if uncond != nil {
			trim++
		}
		a.Ops = append(a.Ops[:len(a.Ops)-trim], b.Ops...)
		a.Succs = b.Succs
		a.Fallthrough = b.Fallthrough

		for _, s := range b.Succs {
			succ, ok := g.Blocks[s]
			if !ok {
				continue
			}
			for i, p := range succ.Preds {
				if p == bLabel {
					succ.Preds[i] = l
				}
			}
		}

		delete(g.Blocks, bLabel)
		removeFromOrder(g, bLabel)
		changed = true
	}
	return changed
}
