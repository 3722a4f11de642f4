package structuring

import (
	"decomp/internal/cond"
	"decomp/internal/ir"
	"decomp/internal/structured"
)

// unwrapSingle unwraps a sequence or multi-node holding exactly one child.
func unwrapSingle(n structured.Node) (structured.Node, bool) {
	switch node := n.(type) {
	case *structured.SequenceNode:
		if len(node.Nodes) == 1 {
			return node.Nodes[0], true
		}
	case *structured.MultiNode:
		if len(node.Nodes) == 1 {
			return node.Nodes[0], true
		}
	}
	return nil, false
}

// conditionalBreakTo builds a conditional break out of a conditional jump
// when exactly one branch targets the break address. The guard is the taken
// branch's condition, negated when the exit sits on the false branch.
func conditionalBreakTo(cj *ir.ConditionalJump, target uint64) (structured.Node, bool) {
	tt, tok := constTargetOf(cj.TrueTarget)
	ft, fok := constTargetOf(cj.FalseTarget)
	switch {
	case tok && tt == target && (!fok || ft != target):
		return &structured.ConditionalBreakNode{
			Address:   cj.Addr,
			Condition: cond.Simplify(cond.FromExpr(cj.Condition)),
			Target:    target,
		}, true
	case fok && ft == target && (!tok || tt != target):
		return &structured.ConditionalBreakNode{
			Address:   cj.Addr,
			Condition: cond.Simplify(cond.Negate(cond.FromExpr(cj.Condition))),
			Target:    target,
		}, true
	case tok && fok && tt == target && ft == target:
		return &structured.BreakNode{Address: cj.Addr, Target: target}, true
	}
	return nil, false
}
