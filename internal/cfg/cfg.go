// Package cfg partitions a procedure's linear TAC listing into basic
// blocks and runs the peephole optimizer that cleans up the control-flow
// skeleton before SSA construction (spec.md §4.2).
//
// Grounded on the teacher's pass-pipeline idiom in
// internal/ir/optimizations.go: a fixed list of passes run repeatedly over a
// mutable graph until a fixpoint, generalized here from EVM basic-block
// peepholes to BX's TAC block/edge model. Here the passes are plain
// functions that Optimize calls in turn; there is no `Pass` interface.
package cfg

import (
	"bx/internal/ir"
)

// Block is one maximal straight-line run of ops, closed by either a
// label-forced split or a terminator.
type Block struct {
	Label       ir.Label
	Ops         []*ir.Op
	Preds       []ir.Label
	Succs       []ir.Label
	Fallthrough *ir.Label
	Synthetic   bool // true once this block's terminator was synthesized, not authored
}

// Graph is a procedure's control-flow graph: a label-indexed block map plus
// the block order blocks were first encountered in (used as the initial
// processing order for SSA versioning, per spec.md §4.3).
type Graph struct {
	Entry  ir.Label
	Blocks map[ir.Label]*Block
	Order  []ir.Label
}

func (g *Graph) block(l ir.Label) *Block {
	b, ok := g.Blocks[l]
	if !ok {
		b = &Block{Label: l}
		g.Blocks[l] = b
		g.Order = append(g.Order, l)
	}
	return b
}

// Build partitions proc's linear TAC into basic blocks and computes
// predecessor/successor/fallthrough edges (spec.md §4.2 "Partitioning"
// and "Edges").
func Build(proc *ir.Proc) *Graph {
	raw := splitRaw(proc.Body)
	g := &Graph{Blocks: map[ir.Label]*Block{}}
	if len(raw) == 0 {
		return g
	}
	g.Entry = raw[0].label

	for i, rb := range raw {
		b := g.block(rb.label)
		b.Ops = rb.ops

		if len(b.Ops) == 0 || !b.Ops[len(b.Ops)-1].IsJmp() {
			// Synthesize the implicit fallthrough jmp (spec.md §4.2).
			if i+1 < len(raw) {
				next := raw[i+1].label
				b.Ops = append(b.Ops, ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(next)}, ir.NoResult()))
				b.Synthetic = true
			}
		}
	}

	for i, rb := range raw {
		b := g.Blocks[rb.label]
		if len(b.Ops) == 0 {
			continue
		}
		cond, uncond := terminatorOps(b.Ops)

		if cond != nil {
			// The conditional's true target is always a successor, whether
			// or not an explicit false-branch jmp follows it.
			b.Succs = append(b.Succs, cond.JumpTargets()...)
		}

		switch {
		case uncond != nil:
			targets := uncond.JumpTargets()
			b.Succs = append(b.Succs, targets...)
			if uncond.Opcode == ir.OpJmp && len(targets) == 1 {
				if i+1 < len(raw) && targets[0] == raw[i+1].label {
					t := targets[0]
					b.Fallthrough = &t
				}
			}
		case cond != nil:
			// A bare conditional with no explicit false-branch jmp has an
			// implicit fallthrough successor: the next block in the
			// original listing.
			if i+1 < len(raw) {
				next := raw[i+1].label
				b.Succs = append(b.Succs, next)
				b.Fallthrough = &next
			}
		}
	}

	for _, l := range g.Order {
		b := g.Blocks[l]
		for _, s := range b.Succs {
			succ := g.block(s)
			succ.Preds = append(succ.Preds, l)
		}
	}

	return g
}

// terminatorOps returns the conditional and unconditional jump at the tail
// of a block's ops, either of which may be nil: a block authored by
// branchLower ends in a `jcc`/`jmp` pair (cond, uncond both set); a
// straight-line block's synthesized or authored `jmp`/`ret` has only
// uncond set; a bare conditional with no explicit false-branch jmp (the
// lowerer never emits one, but a hand-built listing can) has only cond
// set. Build gives such a block the next block as fallthrough successor,
// and no optimizer pass rewrites it into a pair.
func terminatorOps(ops []*ir.Op) (cond, uncond *ir.Op) {
	n := len(ops)
	if n == 0 {
		return nil, nil
	}
	last := ops[n-1]
	if !last.IsJmp() {
		return nil, nil
	}
	if ir.UncondOps[last.Opcode] {
		if n >= 2 && ir.CondJmpOps[ops[n-2].Opcode] {
			return ops[n-2], last
		}
		return nil, last
	}
	return last, nil
}

type rawBlock struct {
	label ir.Label
	ops   []*ir.Op
}

// splitRaw groups a linear listing into label-delimited runs, closing a
// run at whichever comes first: a new label or an unconditional
// terminator. A conditional jump does NOT close the block by itself:
// branchLower always emits a conditional immediately followed by an
// unconditional jmp to the false target (`jcc .Ltrue` then `jmp
// .Lfalse`), and that pair must stay in the same block so both targets
// reach Build's successor computation — closing on the conditional
// alone would strand the jmp that follows it as dead code preceding the
// next label, silently dropping the false edge.
func splitRaw(body []ir.Item) []rawBlock {
	var blocks []rawBlock
	var cur *rawBlock

	for _, item := range body {
		if item.IsLbl {
			if cur != nil {
				blocks = append(blocks, *cur)
			}
			cur = &rawBlock{label: item.Label}
			continue
		}
		if cur == nil {
			// Dead code preceding any label; no valid entry, skip defensively.
			continue
		}
		cur.ops = append(cur.ops, item.Op)
		if ir.UncondOps[item.Op.Opcode] {
			blocks = append(blocks, *cur)
			cur = nil
		}
	}
	if cur != nil {
		blocks = append(blocks, *cur)
	}
	return blocks
}
