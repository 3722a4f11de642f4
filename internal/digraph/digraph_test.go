package digraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAndRemove(t *testing.T) {
	g := New[string]()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("a", "b") // duplicate edge is a no-op

	assert.Equal(t, 3, g.Len())
	assert.True(t, g.HasEdge("a", "b"))
	assert.Equal(t, []string{"b"}, g.Successors("a"))
	assert.Equal(t, []string{"a"}, g.Predecessors("b"))
	assert.Equal(t, 1, g.OutDegree("a"))

	g.RemoveNode("b")
	assert.False(t, g.HasNode("b"))
	assert.False(t, g.HasEdge("a", "b"))
	assert.Equal(t, 0, g.OutDegree("a"))
	assert.Equal(t, 0, g.InDegree("c"))
}

func TestTopologicalOrderDeterministic(t *testing.T) {
	build := func() *Graph[string] {
		g := New[string]()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		g.AddNode("d")
		g.AddEdge("a", "b")
		g.AddEdge("a", "c")
		g.AddEdge("b", "d")
		g.AddEdge("c", "d")
		return g
	}

	first, ok := build().TopologicalOrder()
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c", "d"}, first, "ready nodes should come out in insertion order")

	for i := 0; i < 10; i++ {
		again, ok := build().TopologicalOrder()
		assert.True(t, ok)
		assert.Equal(t, first, again, "identical graphs must order identically")
	}
}

func TestTopologicalOrderCycle(t *testing.T) {
	g := New[int]()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(3, 1)

	_, ok := g.TopologicalOrder()
	assert.False(t, ok, "cyclic graph has no topological order")
	assert.False(t, g.IsDAG())
}

func TestFindCycle(t *testing.T) {
	g := New[int]()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(3, 2)
	g.AddEdge(3, 4)

	cycle, ok := g.FindCycle()
	assert.True(t, ok)
	assert.Len(t, cycle, 2)
	assert.Equal(t, Edge[int]{From: 2, To: 3}, cycle[0])
	assert.Equal(t, Edge[int]{From: 3, To: 2}, cycle[1])

	g.RemoveEdge(3, 2)
	_, ok = g.FindCycle()
	assert.False(t, ok, "graph should be acyclic after breaking the cycle")
}

func TestReplaceNodes(t *testing.T) {
	g := New[string]()
	g.AddEdge("pre", "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", "post")

	b := "b"
	g.ReplaceNodes("a", &b, "merged", false)

	assert.False(t, g.HasNode("a"))
	assert.False(t, g.HasNode("b"))
	assert.True(t, g.HasEdge("pre", "merged"))
	assert.True(t, g.HasEdge("merged", "post"))
}

func TestReplaceNodesSelfLoop(t *testing.T) {
	g := New[string]()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a") // two-node cycle

	b := "b"
	g.ReplaceNodes("a", &b, "merged", true)

	assert.True(t, g.HasEdge("merged", "merged"), "two-node cycle should collapse into a self loop")
}

func TestCopyIsIndependent(t *testing.T) {
	g := New[int]()
	g.AddEdge(1, 2)

	clone := g.Copy()
	clone.AddEdge(2, 3)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 3, clone.Len())
	assert.False(t, g.HasNode(3))
}

func TestChainFrom(t *testing.T) {
	g := New[int]()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(3, 1) // cycle back to start must terminate the chain

	chain := g.ChainFrom(1)
	assert.Equal(t, []int{1, 2, 3}, chain)
}
