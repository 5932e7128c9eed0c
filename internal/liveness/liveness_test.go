package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx/internal/cfg"
	"bx/internal/ir"
)

func TestLiveAcrossLoopBackedge(t *testing.T) {
	// head: jz %x, end; body: %x = sub %x, 1; jmp head; end: ret
	x := ir.NewTemp(0)
	one := ir.NewTemp(1)
	body := []ir.Item{
		ir.LabelItem(ir.Label{Name: "head"}),
		ir.OpItem(ir.NewOp(ir.OpJz, []ir.Arg{ir.TempArg(x), ir.LabelArg(ir.Label{Name: "end"})}, ir.NoResult())),
		ir.LabelItem(ir.Label{Name: "body"}),
		ir.OpItem(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(1)}, ir.TempResult(one))),
		ir.OpItem(ir.NewOp(ir.OpSub, []ir.Arg{ir.TempArg(x), ir.TempArg(one)}, ir.TempResult(x))),
		ir.OpItem(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(ir.Label{Name: "head"})}, ir.NoResult())),
		ir.LabelItem(ir.Label{Name: "end"}),
		ir.OpItem(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
	}
	proc := &ir.Proc{Name: "f", Body: body}
	g := cfg.Build(proc)
	r := Compute(g)

	assert.True(t, r.LiveIn(ir.Label{Name: "head"})[x], "x must be live into head across the back-edge")
	assert.True(t, r.LiveIn(ir.Label{Name: "body"})[x])
}

func TestDeadAfterLastUse(t *testing.T) {
	t0 := ir.NewTemp(0)
	body := []ir.Item{
		ir.LabelItem(ir.Label{Name: "f.0"}),
		ir.OpItem(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(1)}, ir.TempResult(t0))),
		ir.OpItem(ir.NewOp(ir.OpPrint, []ir.Arg{ir.TempArg(t0)}, ir.NoResult())),
		ir.OpItem(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
	}
	proc := &ir.Proc{Name: "f", Body: body}
	g := cfg.Build(proc)
	Compute(g)

	b := g.Blocks[ir.Label{Name: "f.0"}]
	retOp := b.Ops[len(b.Ops)-1]
	require.NotNil(t, retOp.LiveIn)
	assert.False(t, retOp.LiveIn[t0], "t0 is dead once print has consumed it")
}
