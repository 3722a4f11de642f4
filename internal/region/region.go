// Package region models the single-entry portions of the control-flow graph
// handed to the structurer, one at a time, innermost first. Regions are
// consumed, not owned: the structurer reads the graph and back-edge
// bookkeeping and produces one structured node per region.
package region

import (
	"decomp/internal/digraph"
	"decomp/internal/ir"
	"decomp/internal/structured"
)

// JumpTable is the resolved description of an indirect multi-way branch,
// recovered by an upstream jump-table analysis and attached to the node that
// ends with the indirect jump.
type JumpTable struct {
	Addr        uint64
	SwitchExpr  ir.Expr
	Cases       map[int64]uint64 // case key → target address
	DefaultAddr uint64           // ir.NoAddr when the table has no default
}

// NewJumpTable creates an empty table for the node at addr.
func NewJumpTable(addr uint64, switchExpr ir.Expr) *JumpTable {
	return &JumpTable{
		Addr:        addr,
		SwitchExpr:  switchExpr,
		Cases:       make(map[int64]uint64),
		DefaultAddr: ir.NoAddr,
	}
}

// Region is one single-entry subgraph scheduled for structuring. Nodes are
// raw blocks, multi-nodes, or already-structured child regions (opaque
// structured nodes, structured bottom-up before this region).
type Region struct {
	Head  structured.Node
	Graph *digraph.Graph[structured.Node]
	// BackEdges closes the cycles of a cyclic region.
	BackEdges []digraph.Edge[structured.Node]
	// SuccessorAddrs are the addresses control may leave the region to;
	// jumps there become breaks during loop structuring.
	SuccessorAddrs []uint64
	// JumpTables maps node addresses to resolved jump-table metadata.
	JumpTables map[uint64]*JumpTable
}

// New creates an empty region rooted at head.
func New(head structured.Node) *Region {
	g := digraph.New[structured.Node]()
	g.AddNode(head)
	return &Region{
		Head:       head,
		Graph:      g,
		JumpTables: make(map[uint64]*JumpTable),
	}
}

// HasCycle reports whether the region's graph contains a directed cycle.
func (r *Region) HasCycle() bool {
	return !r.Graph.IsDAG()
}

// NodeAddrs returns the set of node starting addresses inside the region,
// including the addresses of blocks buried inside merged chains: a jump to a
// chain-interior address is still an in-region jump.
func (r *Region) NodeAddrs() map[uint64]bool {
	addrs := make(map[uint64]bool, r.Graph.Len())
	for _, n := range r.Graph.Nodes() {
		addNodeAddrs(n, addrs)
	}
	return addrs
}

func addNodeAddrs(n structured.Node, addrs map[uint64]bool) {
	addrs[n.Addr()] = true
	switch node := n.(type) {
	case *structured.MultiNode:
		for _, child := range node.Nodes {
			addNodeAddrs(child, addrs)
		}
	case *structured.SequenceNode:
		for _, child := range node.Nodes {
			addNodeAddrs(child, addrs)
		}
	}
}

// NodeByAddr finds the region node starting at addr. Returns nil when no
// such node exists (it may have been merged away); callers degrade rather
// than fail.
func (r *Region) NodeByAddr(addr uint64) structured.Node {
	for _, n := range r.Graph.Nodes() {
		if n.Addr() == addr {
			return n
		}
	}
	return nil
}

// IsSuccessorAddr reports whether addr lies outside the region, in its
// declared successor set.
func (r *Region) IsSuccessorAddr(addr uint64) bool {
	for _, a := range r.SuccessorAddrs {
		if a == addr {
			return true
		}
	}
	return false
}

// IsBackEdge reports whether from→to is one of the region's declared back
// edges.
func (r *Region) IsBackEdge(from, to structured.Node) bool {
	for _, e := range r.BackEdges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// JumpTableFor looks up jump-table metadata for a node. For merged nodes the
// table may be keyed by the address of the trailing block rather than the
// node's own address.
func (r *Region) JumpTableFor(n structured.Node) *JumpTable {
	if jt, ok := r.JumpTables[n.Addr()]; ok {
		return jt
	}
	if mn, ok := n.(*structured.MultiNode); ok && len(mn.Nodes) > 0 {
		return r.JumpTableFor(mn.Nodes[len(mn.Nodes)-1])
	}
	if seq, ok := n.(*structured.SequenceNode); ok && len(seq.Nodes) > 0 {
		return r.JumpTableFor(seq.Nodes[len(seq.Nodes)-1])
	}
	return nil
}
