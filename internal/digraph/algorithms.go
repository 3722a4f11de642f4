package digraph

// IsDAG reports whether the graph contains no directed cycle.
func (g *Graph[N]) IsDAG() bool {
	_, ok := g.TopologicalOrder()
	return ok
}

// TopologicalOrder returns the nodes in a topological order using Kahn's
// algorithm, favoring insertion order among ready nodes so the result is
// deterministic. ok is false when the graph contains a cycle.
func (g *Graph[N]) TopologicalOrder() (order []N, ok bool) {
	indeg := make(map[N]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = g.InDegree(n)
	}

	var ready []N
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}

	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, s := range g.succs[n] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, false
	}
	return order, true
}

// FindCycle returns the edges of one directed cycle, or ok=false when the
// graph is acyclic. The search is deterministic: it follows insertion order.
func (g *Graph[N]) FindCycle() (cycle []Edge[N], ok bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[N]int, len(g.nodes))
	parent := make(map[N]N)

	var found []Edge[N]

	var visit func(n N) bool
	visit = func(n N) bool {
		color[n] = gray
		for _, s := range g.succs[n] {
			switch color[s] {
			case white:
				parent[s] = n
				if visit(s) {
					return true
				}
			case gray:
				// back edge closes the cycle s → … → n → s
				found = append(found, Edge[N]{From: n, To: s})
				for cur := n; cur != s; cur = parent[cur] {
					found = append(found, Edge[N]{From: parent[cur], To: cur})
				}
				// reverse into traversal order
				for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
					found[i], found[j] = found[j], found[i]
				}
				return true
			}
		}
		color[n] = black
		return false
	}

	for _, n := range g.nodes {
		if color[n] == white && visit(n) {
			return found, true
		}
	}
	return nil, false
}

// ChainFrom follows the unique-successor chain starting at n, stopping when a
// node has no out-edge or revisits a seen node. The start node is included.
func (g *Graph[N]) ChainFrom(n N) []N {
	var chain []N
	seen := make(map[N]bool)
	for cur := n; ; {
		if seen[cur] {
			break
		}
		seen[cur] = true
		chain = append(chain, cur)
		succs := g.succs[cur]
		if len(succs) == 0 {
			break
		}
		cur = succs[0]
	}
	return chain
}

// ReplaceNodes collapses old0 (and optionally old1) into replacement,
// preserving all in- and out-edges to the rest of the graph. When old0 and
// old1 form a two-node cycle and selfLoop is set, the cycle is reattached as
// a self loop on the replacement node.
func (g *Graph[N]) ReplaceNodes(old0 N, old1 *N, replacement N, selfLoop bool) {
	inEdges := g.edgesInto(old0)
	outEdges := g.edgesOutOf(old0)
	if old1 != nil {
		outEdges = append(outEdges, g.edgesOutOf(*old1)...)
	}

	g.RemoveNode(old0)
	if old1 != nil {
		g.RemoveNode(*old1)
	}
	g.AddNode(replacement)

	for _, e := range inEdges {
		if e.From != old0 && (old1 == nil || e.From != *old1) {
			g.AddEdge(e.From, replacement)
		} else if old1 != nil && e.From == *old1 && e.To == old0 && selfLoop {
			g.AddEdge(replacement, replacement)
		}
	}
	for _, e := range outEdges {
		if e.To != old0 && (old1 == nil || e.To != *old1) {
			g.AddEdge(replacement, e.To)
		} else if old1 != nil && e.From == *old1 && e.To == old0 && selfLoop {
			g.AddEdge(replacement, replacement)
		}
	}
}

func (g *Graph[N]) edgesInto(n N) []Edge[N] {
	var edges []Edge[N]
	for _, p := range g.preds[n] {
		edges = append(edges, Edge[N]{From: p, To: n})
	}
	return edges
}

func (g *Graph[N]) edgesOutOf(n N) []Edge[N] {
	var edges []Edge[N]
	for _, s := range g.succs[n] {
		edges = append(edges, Edge[N]{From: n, To: s})
	}
	return edges
}
