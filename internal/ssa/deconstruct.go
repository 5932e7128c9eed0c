package ssa

import (
	"sort"

	"bx/internal/ir"
)

// ssaTransfer is one (destination, source) parallel-copy obligation a
// block's phis impose on one predecessor edge, still in SSA-temp form.
type ssaTransfer struct {
	dest Temp
	src  Temp
}

// transfer is the same obligation after both sides have been mapped down
// to concrete TAC temps, ready for sequentialize.
type transfer struct {
	dest ir.Temp
	src  ir.Temp
}

// Deconstruct lowers f back to a linear ir.Proc: it places one parallel
// copy per predecessor edge for every phi, sequentializes each edge's
// copies with cycle breakup, remaps every SSA temp to a fresh (or, for
// parameters, stable) concrete Temp, serializes blocks depth-first
// favoring fallthrough, and cleans up the redundant jumps and dead labels
// that remapping and serialization leave behind (spec.md §4.5).
//
// Placement here follows spec.md literally: transfers land at the end of
// each predecessor's op list, before its terminator. No edge is split: when
// a predecessor has two successors (a critical edge into a phi block), its
// copies run whichever successor control then takes. Lowered code does
// contain such edges; for example an `if` without `else` branches from its
// condition block straight to the join label that the then-arm also
// reaches.
func Deconstruct(f *Func) *ir.Proc {
	mapper := newTempMapper(f.Params)

	transfersByPred := collectTransfers(f)
	for pred, ts := range transfersByPred {
		b := f.Blocks[pred]
		mapped := make([]transfer, len(ts))
		for i, t := range ts {
			mapped[i] = transfer{dest: mapper.mapTemp(t.dest), src: mapper.mapTemp(t.src)}
		}
		b.pendingCopies = sequentialize(mapped, mapper.fresh)
	}

	visited := map[ir.Label]bool{}
	var items []ir.Item
	var order func(l ir.Label)
	order = func(l ir.Label) {
		if visited[l] {
			return
		}
		visited[l] = true
		b := f.Blocks[l]
		items = append(items, ir.LabelItem(l))
		items = append(items, serializeBlock(b, mapper)...)
		if b.Fallthrough != nil {
			order(*b.Fallthrough)
		}
		for _, s := range b.Succs {
			order(s)
		}
	}
	order(f.Entry)

	items = cleanup(items)

	params := make([]ir.Temp, len(f.Params))
	for i, p := range f.Params {
		params[i] = p
	}
	return &ir.Proc{Name: f.Name, Params: params, Body: items}
}

// collectTransfers walks every block's phis and groups the resulting
// per-edge transfers by predecessor label.
func collectTransfers(f *Func) map[ir.Label][]ssaTransfer {
	out := map[ir.Label][]ssaTransfer{}
	for _, l := range f.Order {
		b := f.Blocks[l]
		if len(b.Phis) == 0 {
			continue
		}
		preds := append([]ir.Label(nil), b.Preds...)
		sort.Slice(preds, func(i, j int) bool { return preds[i].Name < preds[j].Name })
		for _, p := range preds {
			for _, phi := range b.Phis {
				src, ok := phi.Sources[p]
				if !ok {
					continue
				}
				out[p] = append(out[p], ssaTransfer{dest: phi.Defined, src: src})
			}
		}
	}
	return out
}

// tempMapper implements the memoized SSA temp -> TAC temp mapping: a
// parameter's version 0 keeps its original string identity (the calling
// convention depends on it); every other SSA temp gets a fresh integer id
// from a per-procedure counter (spec.md §4.5).
type tempMapper struct {
	isParam map[ir.Temp]bool
	seen    map[Temp]ir.Temp
	counter int
}

func newTempMapper(params []ir.Temp) *tempMapper {
	m := &tempMapper{isParam: map[ir.Temp]bool{}, seen: map[Temp]ir.Temp{}}
	for _, p := range params {
		m.isParam[p] = true
	}
	return m
}

func (m *tempMapper) fresh() ir.Temp {
	t := ir.NewTemp(m.counter)
	m.counter++
	return t
}

func (m *tempMapper) mapTemp(t Temp) ir.Temp {
	if mapped, ok := m.seen[t]; ok {
		return mapped
	}
	var mapped ir.Temp
	if t.Version == 0 && m.isParam[t.Base] {
		mapped = t.Base
	} else {
		mapped = m.fresh()
	}
	m.seen[t] = mapped
	return mapped
}

func (m *tempMapper) mapArg(a Arg) ir.Arg {
	switch {
	case a.IsTemp():
		return ir.TempArg(m.mapTemp(a.Temp()))
	case a.IsLabel():
		return ir.LabelArg(a.Label())
	case a.IsGlobal():
		return ir.GlobalArg(a.Global())
	default:
		return ir.ImmArg(a.Imm())
	}
}

func (m *tempMapper) mapResult(r Result) ir.Result {
	if !r.IsPresent() {
		return ir.NoResult()
	}
	if r.IsGlobal() {
		return ir.GlobalResult(r.Global())
	}
	return ir.TempResult(m.mapTemp(r.Temp()))
}

func (m *tempMapper) mapLiveSet(s map[Temp]bool) map[ir.Temp]bool {
	if s == nil {
		return nil
	}
	out := make(map[ir.Temp]bool, len(s))
	for t := range s {
		out[m.mapTemp(t)] = true
	}
	return out
}

// serializeBlock converts a block's ops through the mapper, inserting its
// resolved parallel-copy sequence before the terminator.
func serializeBlock(b *Block, mapper *tempMapper) []ir.Item {
	termStart := terminatorStart(b.Ops)

	var items []ir.Item
	for _, op := range b.Ops[:termStart] {
		items = append(items, ir.OpItem(mapOp(op, mapper)))
	}
	for _, copyOp := range b.pendingCopies {
		items = append(items, ir.OpItem(copyOp))
	}
	for _, op := range b.Ops[termStart:] {
		items = append(items, ir.OpItem(mapOp(op, mapper)))
	}
	return items
}

func mapOp(op *Op, mapper *tempMapper) *ir.Op {
	out := &ir.Op{Opcode: op.Opcode}
	for _, a := range op.Args {
		out.Args = append(out.Args, mapper.mapArg(a))
	}
	out.Result = mapper.mapResult(op.Result)
	out.LiveIn = mapper.mapLiveSet(op.LiveIn)
	out.LiveOut = mapper.mapLiveSet(op.LiveOut)
	return out
}

// terminatorStart returns the index where a block's terminator sequence
// begins: at most one conditional jump immediately followed by at most
// one unconditional jump (spec.md §3 invariant 2).
func terminatorStart(ops []*Op) int {
	n := len(ops)
	if n == 0 {
		return 0
	}
	last := ops[n-1]
	if !ir.IsJmp(last.Opcode) {
		return n
	}
	if n >= 2 && ir.CondJmpOps[ops[n-2].Opcode] && (last.Opcode == ir.OpJmp || last.Opcode == ir.OpRet) {
		return n - 2
	}
	return n - 1
}

// sequentialize turns a set of parallel-copy obligations into an ordered
// list of plain `copy` ops, breaking any cycle by stashing one
// destination's pre-cycle value in a fresh dummy temp first (spec.md
// §4.5's unconventional, cycle-safe destruction — the reference
// implementation's resolve_phis has no equivalent).
//
// A move is safe to emit once its destination is not needed as anyone
// else's source anymore. When every remaining move is blocked on some
// other remaining move (a pure cycle), pick one destination, snapshot its
// current value into a dummy temp before anything overwrites it, and
// redirect whichever move needed that original value to read the dummy
// instead — which frees the cycle to drain normally.
func sequentialize(transfers []transfer, fresh func() ir.Temp) []*ir.Op {
	type move struct{ dest, src ir.Temp }
	var pending []move
	for _, t := range transfers {
		if t.dest == t.src {
			continue
		}
		pending = append(pending, move{t.dest, t.src})
	}

	var ops []*ir.Op
	for len(pending) > 0 {
		srcUsed := map[ir.Temp]bool{}
		for _, m := range pending {
			srcUsed[m.src] = true
		}

		var remaining []move
		progressed := false
		for _, m := range pending {
			if srcUsed[m.dest] {
				remaining = append(remaining, m)
				continue
			}
			ops = append(ops, ir.NewOp(ir.OpCopy, []ir.Arg{ir.TempArg(m.src)}, ir.TempResult(m.dest)))
			progressed = true
		}
		pending = remaining
		if progressed {
			continue
		}

		d0 := pending[0].dest
		dummy := fresh()
		ops = append(ops, ir.NewOp(ir.OpCopy, []ir.Arg{ir.TempArg(d0)}, ir.TempResult(dummy)))
		for i := range pending {
			if pending[i].src == d0 {
				pending[i].src = dummy
			}
		}
	}
	return ops
}

// cleanup drops a `jmp L` immediately followed by `L:`, then removes any
// label no remaining jump references (the entry label is always kept).
func cleanup(items []ir.Item) []ir.Item {
	if len(items) == 0 {
		return items
	}
	entry := items[0].Label

	var pruned []ir.Item
	for i := 0; i < len(items); i++ {
		if !items[i].IsLbl && items[i].Op.Opcode == ir.OpJmp && i+1 < len(items) && items[i+1].IsLbl {
			if items[i].Op.Args[0].Label() == items[i+1].Label {
				continue
			}
		}
		pruned = append(pruned, items[i])
	}

	referenced := map[ir.Label]bool{entry: true}
	for _, item := range pruned {
		if item.IsLbl {
			continue
		}
		for _, l := range item.Op.JumpTargets() {
			referenced[l] = true
		}
	}

	var out []ir.Item
	for _, item := range pruned {
		if item.IsLbl && !referenced[item.Label] {
			continue
		}
		out = append(out, item)
	}
	return out
}
