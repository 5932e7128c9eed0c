package ssa

import (
	"sort"

	"bx/internal/cfg"
	"bx/internal/compileerr"
	"bx/internal/ir"
	"bx/internal/liveness"
)

// Build runs SSA construction over g: phony insertion at every non-entry
// block's live-in temps, a single versioning pass threaded across the
// whole procedure in CFG-order, and phi resolution from predecessor
// version snapshots (spec.md §4.3).
//
// This implementation fuses "insert a phony op, then let the versioning
// pass assign it a fresh version" into one step — allocJoinVersion below —
// rather than materializing a literal ir.OpPhony in an intermediate
// listing. The observable result is identical: every block's live-in temp
// gets exactly one phi, each phi's sources come from predecessor
// versions_out, exactly as spec.md §4.3 describes.
func Build(g *cfg.Graph, live *liveness.Result, params []ir.Temp) (*Func, error) {
	f := &Func{
		Entry:  g.Entry,
		Params: params,
		Blocks: make(map[ir.Label]*Block, len(g.Order)),
		Order:  append([]ir.Label(nil), g.Order...),
	}

	currentVersion := map[ir.Temp]Temp{}
	nextVer := map[ir.Temp]uint32{}
	alloc := func(base ir.Temp) Temp {
		v := nextVer[base]
		nextVer[base] = v + 1
		t := Temp{Base: base, Version: v}
		currentVersion[base] = t
		return t
	}

	// Parameters are seeded at version 0 directly; the initial block gets
	// no phis for them (spec.md §4.3).
	for _, p := range params {
		alloc(p)
	}

	for _, l := range f.Order {
		cb := g.Blocks[l]
		sb := &Block{Label: l, Preds: cb.Preds, Succs: cb.Succs, Fallthrough: cb.Fallthrough}
		f.Blocks[l] = sb

		isEntry := l == g.Entry
		var joinTemps []ir.Temp
		phonyVersion := map[ir.Temp]Temp{}
		if !isEntry {
			joinTemps = sortedTemps(live.LiveIn(l))
			for _, t := range joinTemps {
				phonyVersion[t] = alloc(t)
			}
		}

		for _, op := range cb.Ops {
			sop := &Op{Opcode: op.Opcode}
			for _, a := range op.Args {
				sop.Args = append(sop.Args, rewriteArg(a, currentVersion))
			}
			if op.Result.IsPresent() {
				if op.Result.IsGlobal() {
					sop.Result = GlobalResult(op.Result.Global())
				} else {
					sop.Result = TempResult(alloc(op.Result.Temp()))
				}
			}
			sb.Ops = append(sb.Ops, sop)
		}

		for _, t := range joinTemps {
			sb.Phis = append(sb.Phis, &Phi{Defined: phonyVersion[t]})
		}

		sb.VersionsOut = make(map[ir.Temp]Temp, len(currentVersion))
		for base, v := range currentVersion {
			sb.VersionsOut[base] = v
		}
	}

	for _, l := range f.Order {
		sb := f.Blocks[l]
		for _, phi := range sb.Phis {
			phi.Sources = make(map[ir.Label]Temp, len(sb.Preds))
			for _, p := range sb.Preds {
				pb, ok := f.Blocks[p]
				if !ok {
					continue
				}
				v, ok := pb.VersionsOut[phi.Defined.Base]
				if !ok {
					return nil, compileerr.PhiSourceMissing(l.Name, p.Name, phi.Defined.Base.String())
				}
				phi.Sources[p] = v
			}
		}
	}

	return f, nil
}

func rewriteArg(a ir.Arg, cur map[ir.Temp]Temp) Arg {
	switch {
	case a.IsTemp():
		t := a.Temp()
		v, ok := cur[t]
		if !ok {
			v = Temp{Base: t, Version: 0}
		}
		return TempArg(v)
	case a.IsLabel():
		return LabelArg(a.Label())
	case a.IsGlobal():
		return GlobalArg(a.Global())
	default:
		return ImmArg(a.Imm())
	}
}

func sortedTemps(set map[ir.Temp]bool) []ir.Temp {
	out := make([]ir.Temp, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
