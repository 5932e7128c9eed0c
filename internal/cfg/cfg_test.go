package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx/internal/ir"
)

func item(op *ir.Op) ir.Item { return ir.OpItem(op) }
func lbl(name string) ir.Item { return ir.LabelItem(ir.Label{Name: name}) }

func TestBuildSimpleStraightLine(t *testing.T) {
	proc := &ir.Proc{Name: "f", Body: []ir.Item{
		lbl("f.0"),
		item(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(1)}, ir.TempResult(ir.NewTemp(0)))),
		item(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
	}}
	g := Build(proc)
	require.Len(t, g.Blocks, 1)
	b := g.Blocks[ir.Label{Name: "f.0"}]
	assert.Empty(t, b.Succs)
}

func TestBuildSynthesizesFallthrough(t *testing.T) {
	proc := &ir.Proc{Name: "f", Body: []ir.Item{
		lbl("a"),
		item(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(1)}, ir.TempResult(ir.NewTemp(0)))),
		lbl("b"),
		item(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
	}}
	g := Build(proc)
	a := g.Blocks[ir.Label{Name: "a"}]
	require.Len(t, a.Succs, 1)
	assert.Equal(t, ir.Label{Name: "b"}, a.Succs[0])
	require.NotNil(t, a.Fallthrough)
	assert.Equal(t, ir.Label{Name: "b"}, *a.Fallthrough)

	b := g.Blocks[ir.Label{Name: "b"}]
	assert.Equal(t, []ir.Label{{Name: "a"}}, b.Preds)
}

func TestOptimizeRemovesUnreachable(t *testing.T) {
	proc := &ir.Proc{Name: "f", Body: []ir.Item{
		lbl("a"),
		item(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
		lbl("dead"),
		item(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
	}}
	g := Build(proc)
	require.Len(t, g.Blocks, 2)
	Optimize(g)
	assert.Len(t, g.Blocks, 1)
	_, ok := g.Blocks[ir.Label{Name: "dead"}]
	assert.False(t, ok)
}

func TestOptimizeThreadsJumps(t *testing.T) {
	proc := &ir.Proc{Name: "f", Body: []ir.Item{
		lbl("a"),
		item(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(ir.Label{Name: "mid"})}, ir.NoResult())),
		lbl("mid"),
		item(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(ir.Label{Name: "end"})}, ir.NoResult())),
		lbl("end"),
		item(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
	}}
	g := Build(proc)
	Optimize(g)
	_, midAlive := g.Blocks[ir.Label{Name: "mid"}]
	assert.False(t, midAlive)
	a := g.Blocks[ir.Label{Name: "a"}]
	// after threading + coalescing the whole procedure collapses to one block
	assert.Empty(t, a.Succs)
}

// TestBuildKeepsBothBranchesOfConditional guards against a regression
// where splitRaw closed a block on any jump, including a conditional —
// that stranded the jmp to the false target as dead code preceding the
// next label, dropping the false edge and its block entirely.
func TestBuildKeepsBothBranchesOfConditional(t *testing.T) {
	entry, t1 := ir.NewTemp(0), ir.NewTemp(1)
	proc := &ir.Proc{Name: "f", Body: []ir.Item{
		lbl("entry"),
		item(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(1)}, ir.TempResult(entry))),
		item(ir.NewOp(ir.OpJl, []ir.Arg{ir.TempArg(entry), ir.LabelArg(ir.Label{Name: "true"})}, ir.NoResult())),
		item(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(ir.Label{Name: "false"})}, ir.NoResult())),
		lbl("true"),
		item(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(2)}, ir.TempResult(t1))),
		item(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(ir.Label{Name: "join"})}, ir.NoResult())),
		lbl("false"),
		item(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(3)}, ir.TempResult(t1))),
		item(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(ir.Label{Name: "join"})}, ir.NoResult())),
		lbl("join"),
		item(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
	}}

	g := Build(proc)
	entryB := g.Blocks[ir.Label{Name: "entry"}]
	require.Len(t, entryB.Ops, 3, "the jcc/jmp terminator pair must stay in the entry block")
	assert.ElementsMatch(t, []ir.Label{{Name: "true"}, {Name: "false"}}, entryB.Succs)

	falseB, ok := g.Blocks[ir.Label{Name: "false"}]
	require.True(t, ok, "the false-branch block must exist")
	assert.Equal(t, []ir.Label{{Name: "entry"}}, falseB.Preds)

	join := g.Blocks[ir.Label{Name: "join"}]
	require.Len(t, join.Preds, 2, "join must have both the true- and false-arm predecessors")

	Optimize(g)
	joinAfter := g.Blocks[ir.Label{Name: "join"}]
	require.NotNil(t, joinAfter, "join must survive unreachable-block elimination")
	assert.Len(t, joinAfter.Preds, 2)
}

// TestOptimizeWhileLoopExitSurvives guards the same bug for `while`: the
// exit block (holding whatever runs after the loop) must stay reachable.
func TestOptimizeWhileLoopExitSurvives(t *testing.T) {
	cond := ir.NewTemp(0)
	proc := &ir.Proc{Name: "f", Body: []ir.Item{
		lbl("head"),
		item(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(1)}, ir.TempResult(cond))),
		item(ir.NewOp(ir.OpJnz, []ir.Arg{ir.TempArg(cond), ir.LabelArg(ir.Label{Name: "body"})}, ir.NoResult())),
		item(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(ir.Label{Name: "exit"})}, ir.NoResult())),
		lbl("body"),
		item(ir.NewOp(ir.OpJmp, []ir.Arg{ir.LabelArg(ir.Label{Name: "head"})}, ir.NoResult())),
		lbl("exit"),
		item(ir.NewOp(ir.OpPrint, []ir.Arg{ir.TempArg(cond)}, ir.NoResult())),
		item(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
	}}

	g := Build(proc)
	Optimize(g)
	exit, ok := g.Blocks[ir.Label{Name: "exit"}]
	require.True(t, ok, "the loop-exit block must survive optimization")
	assert.NotEmpty(t, exit.Ops)
}

func TestOptimizeCoalescesChain(t *testing.T) {
	proc := &ir.Proc{Name: "f", Body: []ir.Item{
		lbl("a"),
		item(ir.NewOp(ir.OpConst, []ir.Arg{ir.ImmArg(1)}, ir.TempResult(ir.NewTemp(0)))),
		lbl("b"),
		item(ir.NewOp(ir.OpRet, nil, ir.NoResult())),
	}}
	g := Build(proc)
	Optimize(g)
	require.Len(t, g.Blocks, 1)
	a := g.Blocks[ir.Label{Name: "a"}]
	require.Len(t, a.Ops, 2)
	assert.Equal(t, ir.OpConst, a.Ops[0].Opcode)
	assert.Equal(t, ir.OpRet, a.Ops[1].Opcode)
}
