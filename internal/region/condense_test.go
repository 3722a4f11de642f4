package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decomp/internal/digraph"
	"decomp/internal/ir"
	"decomp/internal/structured"
)

func block(addr uint64) *ir.Block {
	return ir.NewBlock(addr, 0, &ir.Call{Addr: addr, Target: "f"})
}

func TestCondenseChainsMergesLinearRuns(t *testing.T) {
	a := block(0x1000)
	b := block(0x1100)
	c := block(0x1200)

	r := New(a)
	r.Graph.AddNode(b)
	r.Graph.AddNode(c)
	r.Graph.AddEdge(a, b)
	r.Graph.AddEdge(b, c)

	CondenseChains(r)

	assert.Equal(t, 1, r.Graph.Len(), "a linear chain should collapse into one node")
	merged, ok := r.Head.(*structured.MultiNode)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), merged.Addr())
	assert.Len(t, merged.Nodes, 3)
}

func TestCondenseChainsKeepsBranches(t *testing.T) {
	head := ir.NewBlock(0x1000, 0, &ir.ConditionalJump{
		Addr:        0x1000,
		Condition:   &ir.Register{Name: "rax", Bits: 64},
		TrueTarget:  &ir.Const{Value: 0x1100, Bits: 64},
		FalseTarget: &ir.Const{Value: 0x1200, Bits: 64},
	})
	left := block(0x1100)
	right := block(0x1200)
	tail := block(0x1300)

	r := New(head)
	for _, n := range []structured.Node{left, right, tail} {
		r.Graph.AddNode(n)
	}
	r.Graph.AddEdge(head, left)
	r.Graph.AddEdge(head, right)
	r.Graph.AddEdge(left, tail)
	r.Graph.AddEdge(right, tail)

	CondenseChains(r)

	assert.Equal(t, 4, r.Graph.Len(), "a diamond has no mergeable chain")
	assert.Same(t, head, r.Head)
}

func TestCondenseChainsKeepsConditionalTails(t *testing.T) {
	// head's false branch falls through to b, but the true branch leaves the
	// graph; merging would bury the exit where it can no longer be rewritten
	head := ir.NewBlock(0x1000, 0,
		&ir.Call{Addr: 0x1000, Target: "f"},
		&ir.ConditionalJump{
			Addr:        0x1004,
			Condition:   &ir.Register{Name: "rax", Bits: 64},
			TrueTarget:  &ir.Const{Value: 0x2000, Bits: 64},
			FalseTarget: &ir.Const{Value: 0x1100, Bits: 64},
		})
	b := block(0x1100)

	r := New(head)
	r.Graph.AddNode(b)
	r.Graph.AddEdge(head, b)

	CondenseChains(r)

	assert.Equal(t, 2, r.Graph.Len(), "a node with a branching tail must not be merged")
	assert.Same(t, head, r.Head)
}

func TestCondenseChainsKeepsIndirectTails(t *testing.T) {
	head := ir.NewBlock(0x1000, 0, &ir.Jump{
		Addr:   0x1000,
		Target: &ir.Register{Name: "rdx", Bits: 64},
	})
	b := block(0x1100)

	r := New(head)
	r.Graph.AddNode(b)
	r.Graph.AddEdge(head, b)

	CondenseChains(r)

	assert.Equal(t, 2, r.Graph.Len(), "an indirect jump must stay a node tail for switch detection")
}

func TestNodeAddrsIncludesChainInteriors(t *testing.T) {
	a := ir.NewBlock(0x1000, 0,
		&ir.Call{Addr: 0x1000, Target: "f"},
		&ir.Jump{Addr: 0x1004, Target: &ir.Const{Value: 0x1100, Bits: 64}},
	)
	b := block(0x1100)

	r := New(a)
	r.Graph.AddNode(b)
	r.Graph.AddEdge(a, b)

	CondenseChains(r)
	require.Equal(t, 1, r.Graph.Len())

	addrs := r.NodeAddrs()
	assert.True(t, addrs[0x1000])
	assert.True(t, addrs[0x1100], "addresses buried inside a merged chain stay in-region")
}

func TestCondenseChainsUpdatesBackEdges(t *testing.T) {
	a := block(0x1000)
	b := block(0x1100)

	r := New(a)
	r.Graph.AddNode(b)
	r.Graph.AddEdge(a, b)
	r.Graph.AddEdge(b, a)
	r.BackEdges = []digraph.Edge[structured.Node]{{From: b, To: a}}

	CondenseChains(r)

	require.Equal(t, 1, r.Graph.Len())
	merged := r.Head
	assert.True(t, r.Graph.HasEdge(merged, merged), "the two-node cycle becomes a self loop")
	require.Len(t, r.BackEdges, 1)
	assert.Same(t, merged, r.BackEdges[0].From)
	assert.Same(t, merged, r.BackEdges[0].To)
}

func TestJumpTableForChecksTrailingBlock(t *testing.T) {
	a := block(0x1000)
	b := block(0x1100)
	merged := &structured.MultiNode{Address: 0x1000, Nodes: []structured.Node{a, b}}

	r := New(merged)
	jt := NewJumpTable(0x1100, &ir.Register{Name: "rdx", Bits: 64})
	r.JumpTables[0x1100] = jt

	assert.Same(t, jt, r.JumpTableFor(merged), "a table keyed by the trailing block should be found")
	assert.Nil(t, r.JumpTableFor(block(0x1200)))
}

func TestNodeByAddrDegradesToNil(t *testing.T) {
	r := New(block(0x1000))
	assert.Nil(t, r.NodeByAddr(0x9999))
	assert.NotNil(t, r.NodeByAddr(0x1000))
}
