package region

import (
	"decomp/internal/ir"
	"decomp/internal/structured"
)

// CondenseChains merges linear chains of blocks — a single-successor node
// followed by a single-predecessor node — into MultiNodes, shrinking the
// graph before structuring proper. Only raw blocks and multi-nodes are
// merged; already-structured child regions stay opaque. Self loops created
// by collapsing a two-node cycle are reattached to the merged node.
func CondenseChains(r *Region) {
	for {
		from, to, ok := findMergeableEdge(r)
		if !ok {
			return
		}

		merged := mergeIntoMultiNode(from, to)
		old1 := to
		r.Graph.ReplaceNodes(from, &old1, merged, true)

		if r.Head == from || r.Head == to {
			r.Head = merged
		}
		for i := range r.BackEdges {
			if r.BackEdges[i].From == from || r.BackEdges[i].From == to {
				r.BackEdges[i].From = merged
			}
			if r.BackEdges[i].To == from || r.BackEdges[i].To == to {
				r.BackEdges[i].To = merged
			}
		}
	}
}

func findMergeableEdge(r *Region) (from, to structured.Node, ok bool) {
	for _, n := range r.Graph.Nodes() {
		if !isPlainNode(n) {
			continue
		}
		if r.Graph.OutDegree(n) != 1 {
			continue
		}
		if hasBranchingTail(n) {
			continue
		}
		succ := r.Graph.Successors(n)[0]
		if succ == n || !isPlainNode(succ) {
			continue
		}
		if r.Graph.InDegree(succ) != 1 {
			continue
		}
		if succ == r.Head {
			// the head must stay the entry node of the region
			continue
		}
		return n, succ, true
	}
	return nil, nil, false
}

// hasBranchingTail reports whether the node's trailing statement transfers
// control somewhere besides the chain successor: a conditional jump whose
// other branch leaves the graph, or an indirect jump. Merging such a node
// would bury the branch mid-chain where exit rewriting cannot see it.
func hasBranchingTail(n structured.Node) bool {
	stmt, ok := structured.EndsWithJump(n)
	if !ok {
		return false
	}
	switch s := stmt.(type) {
	case *ir.ConditionalJump:
		return true
	case *ir.Jump:
		_, isConst := ir.ConstTarget(s.Target)
		return !isConst
	}
	return false
}

// isPlainNode reports whether n may live inside a MultiNode: only blocks and
// other multi-nodes qualify, never structured control flow.
func isPlainNode(n structured.Node) bool {
	switch n.(type) {
	case *ir.Block, *structured.MultiNode:
		return true
	}
	return false
}

func mergeIntoMultiNode(from, to structured.Node) *structured.MultiNode {
	merged := &structured.MultiNode{Address: from.Addr()}
	merged.Nodes = append(merged.Nodes, flattenPlain(from)...)
	merged.Nodes = append(merged.Nodes, flattenPlain(to)...)
	return merged
}

func flattenPlain(n structured.Node) []structured.Node {
	if mn, ok := n.(*structured.MultiNode); ok {
		var flat []structured.Node
		for _, child := range mn.Nodes {
			flat = append(flat, flattenPlain(child)...)
		}
		return flat
	}
	return []structured.Node{n}
}
