// Package digraph provides the small directed-graph support the structuring
// core needs: deterministic iteration, topological ordering, cycle finding,
// and node replacement that preserves edges.
package digraph

// Edge is a directed edge.
type Edge[N comparable] struct {
	From N
	To   N
}

// Graph is a directed graph over comparable node values. Iteration order is
// insertion order, so analyses over the graph are deterministic.
type Graph[N comparable] struct {
	nodes   []N
	present map[N]bool
	succs   map[N][]N
	preds   map[N][]N
}

// New creates an empty graph.
func New[N comparable]() *Graph[N] {
	return &Graph[N]{
		present: make(map[N]bool),
		succs:   make(map[N][]N),
		preds:   make(map[N][]N),
	}
}

// Len is the number of nodes.
func (g *Graph[N]) Len() int { return len(g.nodes) }

// AddNode inserts a node; inserting twice is a no-op.
func (g *Graph[N]) AddNode(n N) {
	if g.present[n] {
		return
	}
	g.present[n] = true
	g.nodes = append(g.nodes, n)
}

// AddEdge inserts an edge, adding missing endpoints. Duplicate edges are
// ignored.
func (g *Graph[N]) AddEdge(from, to N) {
	g.AddNode(from)
	g.AddNode(to)
	if g.HasEdge(from, to) {
		return
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

// HasNode reports whether n is in the graph.
func (g *Graph[N]) HasNode(n N) bool { return g.present[n] }

// HasEdge reports whether the edge from→to exists.
func (g *Graph[N]) HasEdge(from, to N) bool {
	for _, s := range g.succs[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RemoveEdge deletes the edge from→to if present.
func (g *Graph[N]) RemoveEdge(from, to N) {
	g.succs[from] = removeFirst(g.succs[from], to)
	g.preds[to] = removeFirst(g.preds[to], from)
}

// RemoveNode deletes a node and all edges touching it.
func (g *Graph[N]) RemoveNode(n N) {
	if !g.present[n] {
		return
	}
	for _, s := range append([]N(nil), g.succs[n]...) {
		g.RemoveEdge(n, s)
	}
	for _, p := range append([]N(nil), g.preds[n]...) {
		g.RemoveEdge(p, n)
	}
	delete(g.present, n)
	delete(g.succs, n)
	delete(g.preds, n)
	g.nodes = removeFirst(g.nodes, n)
}

// Nodes returns the nodes in insertion order.
func (g *Graph[N]) Nodes() []N {
	return append([]N(nil), g.nodes...)
}

// Edges returns all edges, grouped by source in insertion order.
func (g *Graph[N]) Edges() []Edge[N] {
	var edges []Edge[N]
	for _, n := range g.nodes {
		for _, s := range g.succs[n] {
			edges = append(edges, Edge[N]{From: n, To: s})
		}
	}
	return edges
}

// Successors returns the out-neighbors of n in edge-insertion order.
func (g *Graph[N]) Successors(n N) []N {
	return append([]N(nil), g.succs[n]...)
}

// Predecessors returns the in-neighbors of n in edge-insertion order.
func (g *Graph[N]) Predecessors(n N) []N {
	return append([]N(nil), g.preds[n]...)
}

// OutDegree is the number of out-edges of n.
func (g *Graph[N]) OutDegree(n N) int { return len(g.succs[n]) }

// InDegree is the number of in-edges of n.
func (g *Graph[N]) InDegree(n N) int { return len(g.preds[n]) }

// Copy returns an independent clone of the graph.
func (g *Graph[N]) Copy() *Graph[N] {
	clone := New[N]()
	for _, n := range g.nodes {
		clone.AddNode(n)
	}
	for _, e := range g.Edges() {
		clone.AddEdge(e.From, e.To)
	}
	return clone
}

func removeFirst[N comparable](slice []N, v N) []N {
	for i, x := range slice {
		if x == v {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}
