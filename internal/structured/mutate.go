package structured

import (
	"fmt"

	"decomp/internal/ir"
)

// InsertPos selects which side of an index InsertNode splices at.
type InsertPos int

const (
	// InsertBefore splices the new node in front of the child at the index.
	InsertBefore InsertPos = iota
	// InsertAfter splices the new node behind the child at the index.
	InsertAfter
)

// Walker labels naming semantically distinct child slots, so a handler can
// tell which branch it is mutating without inspecting the parent type.
const (
	LabelTrue    = "true"
	LabelFalse   = "false"
	LabelBody    = "body"
	LabelCase    = "case"
	LabelDefault = "default"
	LabelCond    = "cond"
	LabelElse    = "else"
	LabelHead    = "head"
)

// InsertNode splices a node into parent next to the child at index. For
// branch parents (Condition, SwitchCase) the label selects the slot and the
// slot is promoted to a SequenceNode first, so rewrite passes can always
// splice siblings. Unsupported parent types are a programming error and
// panic.
func InsertNode(parent Node, pos InsertPos, node Node, index int, label string) {
	switch p := parent.(type) {
	case *SequenceNode:
		p.Nodes = spliceNodes(p.Nodes, pos, node, index)
	case *MultiNode:
		// a MultiNode holds only blocks and multi-nodes; callers must convert
		// it to a sequence before splicing structured control flow next to it
		switch node.(type) {
		case *ir.Block, *MultiNode:
			p.Nodes = spliceNodes(p.Nodes, pos, node, index)
		default:
			panic(fmt.Sprintf("structured: InsertNode: %T cannot live inside a MultiNode", node))
		}
	case *ConditionNode:
		switch label {
		case LabelTrue:
			p.TrueNode = insertIntoSlot(p.TrueNode, pos, node)
		case LabelFalse:
			p.FalseNode = insertIntoSlot(p.FalseNode, pos, node)
		default:
			panic(fmt.Sprintf("structured: InsertNode: unsupported condition label %q", label))
		}
	case *CascadingConditionNode:
		switch label {
		case LabelCond:
			p.ConditionAndNodes[index].Node = insertIntoSlot(p.ConditionAndNodes[index].Node, pos, node)
		case LabelElse:
			p.ElseNode = insertIntoSlot(p.ElseNode, pos, node)
		default:
			panic(fmt.Sprintf("structured: InsertNode: unsupported cascading label %q", label))
		}
	case *LoopNode:
		p.Body = insertIntoSlot(p.Body, pos, node)
	case *SwitchCaseNode:
		switch label {
		case LabelCase:
			p.Cases[index].Body = insertIntoSlot(p.Cases[index].Body, pos, node)
		case LabelDefault:
			p.DefaultNode = insertIntoSlot(p.DefaultNode, pos, node)
		default:
			panic(fmt.Sprintf("structured: InsertNode: unsupported switch label %q", label))
		}
	default:
		panic(fmt.Sprintf("structured: InsertNode: unsupported parent type %T", parent))
	}
}

func spliceNodes(nodes []Node, pos InsertPos, node Node, index int) []Node {
	at := index
	if pos == InsertAfter {
		at = index + 1
	}
	if at < 0 {
		at = 0
	}
	if at > len(nodes) {
		at = len(nodes)
	}
	nodes = append(nodes, nil)
	copy(nodes[at+1:], nodes[at:])
	nodes[at] = node
	return nodes
}

// insertIntoSlot promotes a single-node slot to a sequence and places the new
// node on the requested side of the existing content.
func insertIntoSlot(slot Node, pos InsertPos, node Node) Node {
	if slot == nil {
		return node
	}
	seq, ok := slot.(*SequenceNode)
	if !ok {
		seq = NewSequence(slot.Addr(), slot)
	}
	if pos == InsertBefore {
		seq.Nodes = append([]Node{node}, seq.Nodes...)
	} else {
		seq.Nodes = append(seq.Nodes, node)
	}
	return seq
}

// RemoveNode removes a direct or slot-level child by identity. Branch slots
// are cleared to nil; sequence slots have the child spliced out. Reports
// whether anything was removed.
func RemoveNode(parent Node, child Node) bool {
	switch p := parent.(type) {
	case *SequenceNode:
		return p.RemoveNode(child)
	case *MultiNode:
		for i, n := range p.Nodes {
			if n == child {
				p.Nodes = append(p.Nodes[:i], p.Nodes[i+1:]...)
				return true
			}
		}
		return false
	case *ConditionNode:
		if p.TrueNode == child {
			p.TrueNode = nil
			return true
		}
		if p.FalseNode == child {
			p.FalseNode = nil
			return true
		}
		if seq, ok := p.TrueNode.(*SequenceNode); ok && seq.RemoveNode(child) {
			return true
		}
		if seq, ok := p.FalseNode.(*SequenceNode); ok && seq.RemoveNode(child) {
			return true
		}
		return false
	case *CascadingConditionNode:
		for i := range p.ConditionAndNodes {
			if p.ConditionAndNodes[i].Node == child {
				p.ConditionAndNodes[i].Node = nil
				return true
			}
			if seq, ok := p.ConditionAndNodes[i].Node.(*SequenceNode); ok && seq.RemoveNode(child) {
				return true
			}
		}
		if p.ElseNode == child {
			p.ElseNode = nil
			return true
		}
		return false
	case *LoopNode:
		if p.Body == child {
			p.Body = nil
			return true
		}
		if seq, ok := p.Body.(*SequenceNode); ok {
			return seq.RemoveNode(child)
		}
		return false
	case *SwitchCaseNode:
		for _, c := range p.Cases {
			if c.Body == child {
				c.Body = nil
				return true
			}
			if seq, ok := c.Body.(*SequenceNode); ok && seq.RemoveNode(child) {
				return true
			}
		}
		if p.DefaultNode == child {
			p.DefaultNode = nil
			return true
		}
		if seq, ok := p.DefaultNode.(*SequenceNode); ok {
			return seq.RemoveNode(child)
		}
		return false
	}
	return false
}

// ReplaceNodeInParent swaps old for new inside parent, wherever it sits:
// index-based for sequences, slot-based for conditions, pair-based for
// cascading conditions. An unsupported parent type indicates a bug in an
// upstream pass and panics.
func ReplaceNodeInParent(parent Node, old Node, replacement Node) {
	switch p := parent.(type) {
	case *SequenceNode:
		for i := range p.Nodes {
			if p.Nodes[i] == old {
				p.Nodes[i] = replacement
				return
			}
		}
	case *MultiNode:
		for i := range p.Nodes {
			if p.Nodes[i] == old {
				p.Nodes[i] = replacement
				return
			}
		}
	case *ConditionNode:
		if p.TrueNode == old {
			p.TrueNode = replacement
			return
		}
		if p.FalseNode == old {
			p.FalseNode = replacement
			return
		}
	case *CascadingConditionNode:
		for i := range p.ConditionAndNodes {
			if p.ConditionAndNodes[i].Node == old {
				p.ConditionAndNodes[i].Node = replacement
				return
			}
		}
		if p.ElseNode == old {
			p.ElseNode = replacement
			return
		}
	case *LoopNode:
		if p.Body == old {
			p.Body = replacement
			return
		}
	case *SwitchCaseNode:
		for _, c := range p.Cases {
			if c.Body == old {
				c.Body = replacement
				return
			}
		}
		if p.DefaultNode == old {
			p.DefaultNode = replacement
			return
		}
	default:
		panic(fmt.Sprintf("structured: ReplaceNodeInParent: unsupported parent type %T", parent))
	}
}
