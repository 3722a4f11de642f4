package structured

import (
	"fmt"

	"decomp/internal/ir"
)

// CopyNode deep-copies a structured node. Addresses are preserved; children
// are fresh and independently mutable. The engine relies on this when a tail
// node must be duplicated into multiple switch-case branches.
func CopyNode(n Node) Node {
	switch node := n.(type) {
	case *ir.Block:
		return node.Copy()
	case *SequenceNode:
		return &SequenceNode{Address: node.Address, Nodes: copyChildren(node.Nodes)}
	case *MultiNode:
		return &MultiNode{Address: node.Address, Idx: node.Idx, Nodes: copyChildren(node.Nodes)}
	case *ConditionNode:
		clone := &ConditionNode{Address: node.Address}
		if node.Condition != nil {
			clone.Condition = node.Condition.Copy()
		}
		if node.TrueNode != nil {
			clone.TrueNode = CopyNode(node.TrueNode)
		}
		if node.FalseNode != nil {
			clone.FalseNode = CopyNode(node.FalseNode)
		}
		return clone
	case *CascadingConditionNode:
		clone := &CascadingConditionNode{Address: node.Address}
		for _, cn := range node.ConditionAndNodes {
			clone.ConditionAndNodes = append(clone.ConditionAndNodes, ConditionAndNode{
				Condition: cn.Condition.Copy(),
				Node:      CopyNode(cn.Node),
			})
		}
		if node.ElseNode != nil {
			clone.ElseNode = CopyNode(node.ElseNode)
		}
		return clone
	case *LoopNode:
		clone := &LoopNode{
			Address:      node.Address,
			Sort:         node.Sort,
			ContinueAddr: node.ContinueAddr,
		}
		if node.Condition != nil {
			clone.Condition = node.Condition.Copy()
		}
		if node.Body != nil {
			clone.Body = CopyNode(node.Body)
		}
		return clone
	case *SwitchCaseNode:
		clone := &SwitchCaseNode{
			Address:       node.Address,
			SwitchEndAddr: node.SwitchEndAddr,
		}
		if node.SwitchExpr != nil {
			clone.SwitchExpr = node.SwitchExpr.Copy()
		}
		for _, c := range node.Cases {
			keys := make([]int64, len(c.Keys))
			copy(keys, c.Keys)
			clone.Cases = append(clone.Cases, &SwitchCase{Keys: keys, Body: CopyNode(c.Body)})
		}
		if node.DefaultNode != nil {
			clone.DefaultNode = CopyNode(node.DefaultNode)
		}
		return clone
	case *BreakNode:
		clone := *node
		return &clone
	case *ConditionalBreakNode:
		return &ConditionalBreakNode{
			Address:   node.Address,
			Condition: node.Condition.Copy(),
			Target:    node.Target,
		}
	case *ContinueNode:
		clone := *node
		return &clone
	case *IncompleteSwitchCaseNode:
		clone := &IncompleteSwitchCaseNode{Address: node.Address}
		if node.Head != nil {
			clone.Head = CopyNode(node.Head)
		}
		clone.Cases = copyChildren(node.Cases)
		return clone
	}
	panic(fmt.Sprintf("structured: CopyNode: unsupported node type %T", n))
}

func copyChildren(nodes []Node) []Node {
	clones := make([]Node, len(nodes))
	for i, n := range nodes {
		clones[i] = CopyNode(n)
	}
	return clones
}
