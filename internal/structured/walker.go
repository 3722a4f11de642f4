package structured

import "decomp/internal/ir"

// WalkContext carries the parent-relative position of the node being visited.
// Index is the node's slot in its parent's child list (or the case index for
// switch cases); Label names the semantic slot.
type WalkContext struct {
	Parent Node
	Index  int
	Label  string
}

// Walker traverses a structured-node tree, dispatching on the node variant.
// Unset handlers default to recursing into the variant's children in natural
// order. Handlers may mutate the tree while walking — splice siblings,
// replace or delete children; sibling lists are re-read on every step so a
// handler shrinking or growing them mid-iteration is safe. Newly spliced
// nodes are not implicitly revisited.
type Walker struct {
	BlockFunc               func(n *ir.Block, ctx WalkContext)
	MultiNodeFunc           func(n *MultiNode, ctx WalkContext)
	SequenceFunc            func(n *SequenceNode, ctx WalkContext)
	ConditionFunc           func(n *ConditionNode, ctx WalkContext)
	CascadingConditionFunc  func(n *CascadingConditionNode, ctx WalkContext)
	LoopFunc                func(n *LoopNode, ctx WalkContext)
	SwitchCaseFunc          func(n *SwitchCaseNode, ctx WalkContext)
	BreakFunc               func(n *BreakNode, ctx WalkContext)
	ConditionalBreakFunc    func(n *ConditionalBreakNode, ctx WalkContext)
	ContinueFunc            func(n *ContinueNode, ctx WalkContext)
	IncompleteSwitchFunc    func(n *IncompleteSwitchCaseNode, ctx WalkContext)
}

// Walk visits root and its descendants.
func (w *Walker) Walk(root Node) {
	w.Handle(root, WalkContext{Index: -1})
}

// Handle dispatches one node to its handler, or to the default recursion when
// no handler is set. Handlers that want the default behavior for their own
// children call the corresponding Walk* method.
func (w *Walker) Handle(n Node, ctx WalkContext) {
	if n == nil {
		return
	}
	switch node := n.(type) {
	case *ir.Block:
		if w.BlockFunc != nil {
			w.BlockFunc(node, ctx)
		}
	case *MultiNode:
		if w.MultiNodeFunc != nil {
			w.MultiNodeFunc(node, ctx)
			return
		}
		w.WalkMultiNode(node, ctx)
	case *SequenceNode:
		if w.SequenceFunc != nil {
			w.SequenceFunc(node, ctx)
			return
		}
		w.WalkSequence(node, ctx)
	case *ConditionNode:
		if w.ConditionFunc != nil {
			w.ConditionFunc(node, ctx)
			return
		}
		w.WalkCondition(node, ctx)
	case *CascadingConditionNode:
		if w.CascadingConditionFunc != nil {
			w.CascadingConditionFunc(node, ctx)
			return
		}
		w.WalkCascadingCondition(node, ctx)
	case *LoopNode:
		if w.LoopFunc != nil {
			w.LoopFunc(node, ctx)
			return
		}
		w.WalkLoop(node, ctx)
	case *SwitchCaseNode:
		if w.SwitchCaseFunc != nil {
			w.SwitchCaseFunc(node, ctx)
			return
		}
		w.WalkSwitchCase(node, ctx)
	case *BreakNode:
		if w.BreakFunc != nil {
			w.BreakFunc(node, ctx)
		}
	case *ConditionalBreakNode:
		if w.ConditionalBreakFunc != nil {
			w.ConditionalBreakFunc(node, ctx)
		}
	case *ContinueNode:
		if w.ContinueFunc != nil {
			w.ContinueFunc(node, ctx)
		}
	case *IncompleteSwitchCaseNode:
		if w.IncompleteSwitchFunc != nil {
			w.IncompleteSwitchFunc(node, ctx)
			return
		}
		w.WalkIncompleteSwitchCase(node, ctx)
	}
}

// WalkSequence is the default recursion into a sequence's children. The
// length is re-read each step so handlers may splice siblings.
func (w *Walker) WalkSequence(n *SequenceNode, ctx WalkContext) {
	for i := 0; i < len(n.Nodes); i++ {
		w.Handle(n.Nodes[i], WalkContext{Parent: n, Index: i})
	}
}

// WalkMultiNode is the default recursion into a multi-node's children.
func (w *Walker) WalkMultiNode(n *MultiNode, ctx WalkContext) {
	for i := 0; i < len(n.Nodes); i++ {
		w.Handle(n.Nodes[i], WalkContext{Parent: n, Index: i})
	}
}

// WalkCondition is the default recursion into both branches of a condition.
func (w *Walker) WalkCondition(n *ConditionNode, ctx WalkContext) {
	if n.TrueNode != nil {
		w.Handle(n.TrueNode, WalkContext{Parent: n, Index: 0, Label: LabelTrue})
	}
	if n.FalseNode != nil {
		w.Handle(n.FalseNode, WalkContext{Parent: n, Index: 0, Label: LabelFalse})
	}
}

// WalkCascadingCondition is the default recursion into an if/elif ladder.
func (w *Walker) WalkCascadingCondition(n *CascadingConditionNode, ctx WalkContext) {
	for i := 0; i < len(n.ConditionAndNodes); i++ {
		if n.ConditionAndNodes[i].Node != nil {
			w.Handle(n.ConditionAndNodes[i].Node, WalkContext{Parent: n, Index: i, Label: LabelCond})
		}
	}
	if n.ElseNode != nil {
		w.Handle(n.ElseNode, WalkContext{Parent: n, Index: 0, Label: LabelElse})
	}
}

// WalkLoop is the default recursion into a loop body.
func (w *Walker) WalkLoop(n *LoopNode, ctx WalkContext) {
	if n.Body != nil {
		w.Handle(n.Body, WalkContext{Parent: n, Index: 0, Label: LabelBody})
	}
}

// WalkSwitchCase is the default recursion into case bodies and the default
// node.
func (w *Walker) WalkSwitchCase(n *SwitchCaseNode, ctx WalkContext) {
	for i := 0; i < len(n.Cases); i++ {
		if n.Cases[i].Body != nil {
			w.Handle(n.Cases[i].Body, WalkContext{Parent: n, Index: i, Label: LabelCase})
		}
	}
	if n.DefaultNode != nil {
		w.Handle(n.DefaultNode, WalkContext{Parent: n, Index: 0, Label: LabelDefault})
	}
}

// WalkIncompleteSwitchCase is the default recursion into an unfinalized
// switch head and its collected cases.
func (w *Walker) WalkIncompleteSwitchCase(n *IncompleteSwitchCaseNode, ctx WalkContext) {
	if n.Head != nil {
		w.Handle(n.Head, WalkContext{Parent: n, Index: 0, Label: LabelHead})
	}
	for i := 0; i < len(n.Cases); i++ {
		w.Handle(n.Cases[i], WalkContext{Parent: n, Index: i, Label: LabelCase})
	}
}
