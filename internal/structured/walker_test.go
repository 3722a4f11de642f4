package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"decomp/internal/cond"
	"decomp/internal/ir"
)

func TestWalkerVisitsAllVariants(t *testing.T) {
	tree := NewSequence(0x1000,
		assignBlock(0x1000),
		&ConditionNode{
			Address:   0x1100,
			Condition: cond.True(),
			TrueNode:  assignBlock(0x1110),
			FalseNode: &BreakNode{Address: 0x1120, Target: 0x2000},
		},
		&LoopNode{
			Address:   0x1200,
			Sort:      LoopWhile,
			Condition: cond.True(),
			Body: NewSequence(0x1210,
				&ContinueNode{Address: 0x1210, Target: 0x1200},
			),
		},
	)

	var blocks, breaks, continues, conditions, loops int
	walker := &Walker{
		BlockFunc:    func(n *ir.Block, ctx WalkContext) { blocks++ },
		BreakFunc:    func(n *BreakNode, ctx WalkContext) { breaks++ },
		ContinueFunc: func(n *ContinueNode, ctx WalkContext) { continues++ },
		ConditionFunc: func(n *ConditionNode, ctx WalkContext) {
			conditions++
			(&Walker{BlockFunc: func(n *ir.Block, ctx WalkContext) { blocks++ }, BreakFunc: func(n *BreakNode, ctx WalkContext) { breaks++ }}).WalkCondition(n, ctx)
		},
		LoopFunc: func(n *LoopNode, ctx WalkContext) {
			loops++
			(&Walker{ContinueFunc: func(n *ContinueNode, ctx WalkContext) { continues++ }}).WalkLoop(n, ctx)
		},
	}
	walker.Walk(tree)

	assert.Equal(t, 2, blocks)
	assert.Equal(t, 1, breaks)
	assert.Equal(t, 1, continues)
	assert.Equal(t, 1, conditions)
	assert.Equal(t, 1, loops)
}

func TestWalkerSurvivesSplicing(t *testing.T) {
	seq := NewSequence(0x1000,
		ir.NewBlock(0x1000, 0, jumpTo(0x1000, 0x9000)),
		assignBlock(0x1100),
		ir.NewBlock(0x1200, 0, jumpTo(0x1200, 0x9000)),
	)

	// splice a break behind every block ending with a jump, while walking
	walker := &Walker{}
	walker.BlockFunc = func(b *ir.Block, ctx WalkContext) {
		if _, ok := EndsWithJump(b); !ok {
			return
		}
		b.RemoveLastStatement()
		InsertNode(ctx.Parent, InsertAfter, &BreakNode{Address: b.Address, Target: 0x9000}, ctx.Index, ctx.Label)
	}
	walker.Walk(seq)

	assert.Len(t, seq.Nodes, 5)
	assert.IsType(t, &BreakNode{}, seq.Nodes[1])
	assert.IsType(t, &BreakNode{}, seq.Nodes[4])
}

func TestInsertNodePromotesBranchSlot(t *testing.T) {
	block := assignBlock(0x1100)
	condNode := &ConditionNode{Address: 0x1000, Condition: cond.True(), TrueNode: block}

	InsertNode(condNode, InsertAfter, &BreakNode{Address: 0x1104, Target: 0x2000}, 0, LabelTrue)

	seq, ok := condNode.TrueNode.(*SequenceNode)
	assert.True(t, ok, "branch slot should be promoted to a sequence")
	assert.Len(t, seq.Nodes, 2)
	assert.Same(t, block, seq.Nodes[0])
}

func TestInsertNodeRejectsStructuredInMulti(t *testing.T) {
	multi := &MultiNode{Address: 0x1000, Nodes: []Node{assignBlock(0x1000)}}

	InsertNode(multi, InsertAfter, assignBlock(0x1004), 0, "")
	assert.Len(t, multi.Nodes, 2, "plain blocks may still be spliced")

	assert.Panics(t, func() {
		InsertNode(multi, InsertAfter, &BreakNode{Address: 0x1008, Target: 0x2000}, 1, "")
	}, "structured control flow inside a MultiNode is a contract violation")
}

func TestReplaceNodeInParent(t *testing.T) {
	old := assignBlock(0x1100)
	seq := NewSequence(0x1000, assignBlock(0x1000), old)
	replacement := &BreakNode{Address: 0x1100, Target: 0x2000}

	ReplaceNodeInParent(seq, old, replacement)
	assert.Same(t, replacement, seq.Nodes[1])

	condNode := &ConditionNode{Address: 0x1200, Condition: cond.True(), TrueNode: old}
	ReplaceNodeInParent(condNode, old, replacement)
	assert.Same(t, replacement, condNode.TrueNode)
}

func TestRemoveNodeClearsSlots(t *testing.T) {
	child := assignBlock(0x1100)
	condNode := &ConditionNode{Address: 0x1000, Condition: cond.True(), TrueNode: child}

	assert.True(t, RemoveNode(condNode, child))
	assert.Nil(t, condNode.TrueNode)
	assert.False(t, RemoveNode(condNode, child), "second removal finds nothing")
}

func TestCopyNodeIsDeep(t *testing.T) {
	block := assignBlock(0x1000)
	original := NewSequence(0x1000,
		block,
		&ConditionNode{Address: 0x1100, Condition: cond.True(), TrueNode: &ContinueNode{Address: 0x1110, Target: 0x1000}},
	)

	clone := CopyNode(original).(*SequenceNode)
	cloneBlock := clone.Nodes[0].(*ir.Block)
	cloneBlock.Statements = nil

	assert.Len(t, block.Statements, 1, "mutating the clone must not touch the original")
	assert.NotEqual(t, original.String(), clone.String())
}
