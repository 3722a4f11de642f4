package structuring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decomp/internal/cond"
	"decomp/internal/ir"
	"decomp/internal/region"
	"decomp/internal/structured"
)

func testStructurer() *Structurer {
	head := ir.NewBlock(0x1000, 0)
	return &Structurer{region: region.New(head)}
}

func atomCond(name string) cond.Condition {
	return &cond.Atom{Expr: &ir.Register{Name: name, Bits: 64}}
}

func callBlock(addr uint64, target string) *ir.Block {
	return ir.NewBlock(addr, 0, &ir.Call{Addr: addr, Target: target})
}

func TestMergeConsecutiveConditionalBreaks(t *testing.T) {
	a := atomCond("a")
	b := atomCond("b")
	seq := structured.NewSequence(0x1000,
		callBlock(0x1000, "f"),
		&structured.ConditionalBreakNode{Address: 0x1010, Condition: a, Target: 0x2000},
		&structured.ConditionalBreakNode{Address: 0x1020, Condition: b, Target: 0x2000},
	)

	testStructurer().simplify(seq)

	require.Len(t, seq.Nodes, 2, "the two conditional breaks should fuse")
	merged, ok := seq.Nodes[1].(*structured.ConditionalBreakNode)
	require.True(t, ok)
	assert.Equal(t, uint64(0x2000), merged.Target)
	assert.True(t, merged.Condition.Likes(cond.Simplify(cond.NewOr(atomCond("a"), atomCond("b")))),
		"conditions should combine with Or, got %s", merged.Condition)
}

func TestConditionalBreaksToDifferentTargetsStaySeparate(t *testing.T) {
	seq := structured.NewSequence(0x1000,
		&structured.ConditionalBreakNode{Address: 0x1010, Condition: atomCond("a"), Target: 0x2000},
		&structured.ConditionalBreakNode{Address: 0x1020, Condition: atomCond("b"), Target: 0x3000},
	)

	testStructurer().simplify(seq)
	assert.Len(t, seq.Nodes, 2)
}

func TestMergeNestedOneSidedConditions(t *testing.T) {
	inner := &structured.ConditionNode{
		Address:   0x1010,
		Condition: atomCond("b"),
		TrueNode:  callBlock(0x1020, "s"),
	}
	seq := structured.NewSequence(0x1000, &structured.ConditionNode{
		Address:   0x1000,
		Condition: atomCond("a"),
		TrueNode:  inner,
	})

	testStructurer().simplify(seq)

	require.Len(t, seq.Nodes, 1)
	merged, ok := seq.Nodes[0].(*structured.ConditionNode)
	require.True(t, ok)
	assert.True(t, merged.Condition.Likes(cond.Simplify(cond.NewAnd(atomCond("a"), atomCond("b")))),
		"conditions should combine with And, got %s", merged.Condition)
	assert.Equal(t, uint64(0x1020), merged.TrueNode.Addr())
	assert.Nil(t, merged.FalseNode)
}

func TestConditionOfConditionalBreakMerges(t *testing.T) {
	seq := structured.NewSequence(0x1000, &structured.ConditionNode{
		Address:   0x1000,
		Condition: atomCond("a"),
		TrueNode: &structured.ConditionalBreakNode{
			Address:   0x1010,
			Condition: atomCond("b"),
			Target:    0x2000,
		},
	})

	testStructurer().simplify(seq)

	require.Len(t, seq.Nodes, 1)
	merged, ok := seq.Nodes[0].(*structured.ConditionalBreakNode)
	require.True(t, ok, "if (a) { if (b) break; } should become one conditional break, got %T", seq.Nodes[0])
	assert.Equal(t, uint64(0x2000), merged.Target)
}

func TestRemoveJumpToNextSibling(t *testing.T) {
	first := ir.NewBlock(0x1000, 0,
		&ir.Call{Addr: 0x1000, Target: "f"},
		&ir.Jump{Addr: 0x1004, Target: &ir.Const{Value: 0x1100, Bits: 64}},
	)
	seq := structured.NewSequence(0x1000, first, callBlock(0x1100, "g"))

	testStructurer().simplify(seq)

	assert.Len(t, first.Statements, 1, "the redundant fallthrough goto should be gone")
}

func TestConditionalJumpWithEqualTargetsBecomesUnconditional(t *testing.T) {
	block := ir.NewBlock(0x1000, 0, &ir.ConditionalJump{
		Addr:        0x1000,
		Condition:   &ir.Register{Name: "rax", Bits: 64},
		TrueTarget:  &ir.Const{Value: 0x1100, Bits: 64},
		FalseTarget: &ir.Const{Value: 0x1100, Bits: 64},
	})
	seq := structured.NewSequence(0x1000, block, callBlock(0x1100, "g"))

	testStructurer().simplify(seq)

	// degenerate conditional collapses, then the goto to the next sibling falls away
	assert.Empty(t, block.Statements)
}

func TestEmptyNodesArePruned(t *testing.T) {
	seq := structured.NewSequence(0x1000,
		ir.NewBlock(0x1000, 0),
		callBlock(0x1100, "f"),
		structured.NewSequence(0x1200),
	)

	testStructurer().simplify(seq)

	require.Len(t, seq.Nodes, 1)
	assert.Equal(t, uint64(0x1100), seq.Nodes[0].Addr())
}

func TestConditionWithOnlyFalseBranchNegates(t *testing.T) {
	seq := structured.NewSequence(0x1000, &structured.ConditionNode{
		Address:   0x1000,
		Condition: atomCond("a"),
		FalseNode: callBlock(0x1100, "f"),
	})

	testStructurer().simplify(seq)

	require.Len(t, seq.Nodes, 1)
	condNode, ok := seq.Nodes[0].(*structured.ConditionNode)
	require.True(t, ok)
	assert.NotNil(t, condNode.TrueNode)
	assert.Nil(t, condNode.FalseNode)
	assert.True(t, condNode.Condition.Likes(cond.Simplify(cond.Negate(atomCond("a")))))
}

func TestCascadeFromElseChain(t *testing.T) {
	ladder := &structured.ConditionNode{
		Address:   0x1000,
		Condition: atomCond("a"),
		TrueNode:  callBlock(0x1010, "fa"),
		FalseNode: &structured.ConditionNode{
			Address:   0x1020,
			Condition: atomCond("b"),
			TrueNode:  callBlock(0x1030, "fb"),
			FalseNode: callBlock(0x1040, "fc"),
		},
	}
	seq := structured.NewSequence(0x1000, ladder)

	testStructurer().simplify(seq)

	require.Len(t, seq.Nodes, 1)
	cascade, ok := seq.Nodes[0].(*structured.CascadingConditionNode)
	require.True(t, ok, "a three-armed chain should become a cascade, got %T", seq.Nodes[0])
	assert.Len(t, cascade.ConditionAndNodes, 2)
	assert.NotNil(t, cascade.ElseNode)
}

func TestSimplifyIsIdempotentOnTrees(t *testing.T) {
	build := func() *structured.SequenceNode {
		return structured.NewSequence(0x1000,
			callBlock(0x1000, "f"),
			&structured.ConditionalBreakNode{Address: 0x1010, Condition: atomCond("a"), Target: 0x2000},
			&structured.ConditionalBreakNode{Address: 0x1020, Condition: atomCond("b"), Target: 0x2000},
		)
	}

	once := build()
	testStructurer().simplify(once)
	rendered := once.String()

	testStructurer().simplify(once)
	assert.Equal(t, rendered, once.String(), "a second run must be a no-op")
}
