package structuring

import (
	"decomp/internal/cond"
	"decomp/internal/ir"
	"decomp/internal/structured"
)

// maxSimplifyRounds bounds the fixpoint loop. The passes individually
// terminate, but the bound keeps an unforeseen ping-pong between two passes
// from hanging a worker.
const maxSimplifyRounds = 64

// simplify runs the structural cleanup passes to a fixpoint. Each pass
// reports whether it changed the tree; a full round with no change ends the
// loop.
func (s *Structurer) simplify(root structured.Node) {
	for round := 0; round < maxSimplifyRounds; round++ {
		changed := false
		if removeEmptyNodes(root) {
			changed = true
		}
		if removeRedundantJumps(root) {
			changed = true
		}
		if flattenNestedSequences(root) {
			changed = true
		}
		if mergeConditionalBreaks(root) {
			changed = true
		}
		if mergeNestedConditions(root) {
			changed = true
		}
		if mergeAdjacentConditions(root) {
			changed = true
		}
		if buildCascades(root) {
			changed = true
		}
		if !changed {
			return
		}
	}
	log.Warningf("simplification of region %#x did not converge", s.region.Head.Addr())
}

// removeEmptyNodes drops blocks without statements, sequences and multi-nodes
// without children, and conditions without branches. A condition left with
// only a false branch gets its condition negated so the branch becomes the
// true one.
func removeEmptyNodes(root structured.Node) bool {
	changed := false
	walker := &structured.Walker{}
	walker.SequenceFunc = func(n *structured.SequenceNode, ctx structured.WalkContext) {
		walker.WalkSequence(n, ctx)
		if pruneChildList(&n.Nodes) {
			changed = true
		}
	}
	walker.MultiNodeFunc = func(n *structured.MultiNode, ctx structured.WalkContext) {
		walker.WalkMultiNode(n, ctx)
		if pruneChildList(&n.Nodes) {
			changed = true
		}
	}
	walker.ConditionFunc = func(n *structured.ConditionNode, ctx structured.WalkContext) {
		walker.WalkCondition(n, ctx)
		if n.TrueNode != nil && isEmptyNode(n.TrueNode) {
			n.TrueNode = nil
			changed = true
		}
		if n.FalseNode != nil && isEmptyNode(n.FalseNode) {
			n.FalseNode = nil
			changed = true
		}
		if n.TrueNode == nil && n.FalseNode != nil {
			n.Condition = cond.Simplify(cond.Negate(n.Condition))
			n.TrueNode = n.FalseNode
			n.FalseNode = nil
			changed = true
		}
	}
	walker.Walk(root)
	return changed
}

func pruneChildList(nodes *[]structured.Node) bool {
	kept := (*nodes)[:0]
	changed := false
	for _, child := range *nodes {
		if isEmptyNode(child) {
			changed = true
			continue
		}
		kept = append(kept, child)
	}
	*nodes = kept
	return changed
}

// isEmptyNode reports whether n contributes neither statements nor structure.
func isEmptyNode(n structured.Node) bool {
	switch node := n.(type) {
	case *ir.Block:
		return len(node.Statements) == 0
	case *structured.SequenceNode:
		for _, child := range node.Nodes {
			if !isEmptyNode(child) {
				return false
			}
		}
		return true
	case *structured.MultiNode:
		for _, child := range node.Nodes {
			if !isEmptyNode(child) {
				return false
			}
		}
		return true
	case *structured.ConditionNode:
		trueEmpty := node.TrueNode == nil || isEmptyNode(node.TrueNode)
		falseEmpty := node.FalseNode == nil || isEmptyNode(node.FalseNode)
		return trueEmpty && falseEmpty
	}
	return false
}

// removeRedundantJumps cleans up degenerate jumps: a conditional jump whose
// branches agree becomes unconditional, and a trailing goto straight into the
// next sibling disappears. Running to a fixpoint is safe because every change
// strictly removes a jump or a branch.
func removeRedundantJumps(root structured.Node) bool {
	changed := false
	walker := &structured.Walker{}
	walker.BlockFunc = func(b *ir.Block, ctx structured.WalkContext) {
		stmt, ok := b.LastStatement()
		if !ok {
			return
		}
		if cj, isCond := stmt.(*ir.ConditionalJump); isCond {
			tt, tok := constTargetOf(cj.TrueTarget)
			ft, fok := constTargetOf(cj.FalseTarget)
			if tok && fok && tt == ft {
				b.RemoveLastStatement()
				b.Statements = append(b.Statements, &ir.Jump{Addr: cj.Addr, Target: &ir.Const{Value: tt, Bits: 64}})
				changed = true
				return
			}
			// a branch into the next sibling is plain fallthrough; keep only
			// the other target, negating when the true branch was redundant
			if next, ok := nextSibling(ctx); ok && tok && fok {
				if tt == next.Addr() {
					b.RemoveLastStatement()
					b.Statements = append(b.Statements, &ir.ConditionalJump{
						Addr:       cj.Addr,
						Condition:  ir.Negate(cj.Condition),
						TrueTarget: cj.FalseTarget,
					})
					changed = true
					return
				}
				if ft == next.Addr() {
					b.RemoveLastStatement()
					b.Statements = append(b.Statements, &ir.ConditionalJump{
						Addr:       cj.Addr,
						Condition:  cj.Condition,
						TrueTarget: cj.TrueTarget,
					})
					changed = true
					return
				}
			}
		}
		if jump, isJump := stmt.(*ir.Jump); isJump {
			target, ok := constTargetOf(jump.Target)
			if !ok {
				return
			}
			if next, ok := nextSibling(ctx); ok && next.Addr() == target {
				b.RemoveLastStatement()
				changed = true
			}
		}
	}
	walker.Walk(root)
	return changed
}

func nextSibling(ctx structured.WalkContext) (structured.Node, bool) {
	switch p := ctx.Parent.(type) {
	case *structured.SequenceNode:
		if ctx.Index+1 < len(p.Nodes) {
			return p.Nodes[ctx.Index+1], true
		}
	case *structured.MultiNode:
		if ctx.Index+1 < len(p.Nodes) {
			return p.Nodes[ctx.Index+1], true
		}
	}
	return nil, false
}

// flattenNestedSequences splices sequences nested directly inside sequences
// and unwraps single-child sequences sitting in branch slots.
func flattenNestedSequences(root structured.Node) bool {
	changed := false
	walker := &structured.Walker{}
	walker.SequenceFunc = func(n *structured.SequenceNode, ctx structured.WalkContext) {
		for i := 0; i < len(n.Nodes); i++ {
			if inner, ok := n.Nodes[i].(*structured.SequenceNode); ok {
				spliced := make([]structured.Node, 0, len(n.Nodes)+len(inner.Nodes)-1)
				spliced = append(spliced, n.Nodes[:i]...)
				spliced = append(spliced, inner.Nodes...)
				spliced = append(spliced, n.Nodes[i+1:]...)
				n.Nodes = spliced
				changed = true
				i--
			}
		}
		walker.WalkSequence(n, ctx)
	}
	walker.ConditionFunc = func(n *structured.ConditionNode, ctx structured.WalkContext) {
		if unwrapped, ok := unwrapSingle(n.TrueNode); ok {
			n.TrueNode = unwrapped
			changed = true
		}
		if unwrapped, ok := unwrapSingle(n.FalseNode); ok {
			n.FalseNode = unwrapped
			changed = true
		}
		walker.WalkCondition(n, ctx)
	}
	walker.LoopFunc = func(n *structured.LoopNode, ctx structured.WalkContext) {
		walker.WalkLoop(n, ctx)
	}
	walker.Walk(root)
	return changed
}

// mergeConditionalBreaks rewrites `if (c) break;` conditions into dedicated
// conditional-break nodes and fuses neighbouring conditional breaks to the
// same target into one with the disjoined condition.
func mergeConditionalBreaks(root structured.Node) bool {
	changed := false
	walker := &structured.Walker{}
	walker.ConditionFunc = func(n *structured.ConditionNode, ctx structured.WalkContext) {
		walker.WalkCondition(n, ctx)
		if ctx.Parent == nil || n.FalseNode != nil {
			return
		}
		body := n.TrueNode
		if unwrapped, ok := unwrapSingle(body); ok {
			body = unwrapped
		}
		switch inner := body.(type) {
		case *structured.BreakNode:
			merged := &structured.ConditionalBreakNode{
				Address:   n.Address,
				Condition: n.Condition,
				Target:    inner.Target,
			}
			structured.ReplaceNodeInParent(ctx.Parent, n, merged)
			changed = true
		case *structured.ConditionalBreakNode:
			merged := &structured.ConditionalBreakNode{
				Address:   n.Address,
				Condition: cond.Simplify(cond.NewAnd(n.Condition, inner.Condition)),
				Target:    inner.Target,
			}
			structured.ReplaceNodeInParent(ctx.Parent, n, merged)
			changed = true
		}
	}
	walker.Walk(root)

	fuse := &structured.Walker{}
	fuse.SequenceFunc = func(n *structured.SequenceNode, ctx structured.WalkContext) {
		for i := 0; i+1 < len(n.Nodes); i++ {
			first, ok1 := n.Nodes[i].(*structured.ConditionalBreakNode)
			second, ok2 := n.Nodes[i+1].(*structured.ConditionalBreakNode)
			if !ok1 || !ok2 || first.Target != second.Target {
				continue
			}
			first.Condition = cond.Simplify(cond.NewOr(first.Condition, second.Condition))
			n.Nodes = append(n.Nodes[:i+1], n.Nodes[i+2:]...)
			changed = true
			i--
		}
		fuse.WalkSequence(n, ctx)
	}
	fuse.Walk(root)
	return changed
}

// mergeNestedConditions fuses an if holding nothing but another else-less if
// into a single conjunction-guarded if.
func mergeNestedConditions(root structured.Node) bool {
	changed := false
	walker := &structured.Walker{}
	walker.ConditionFunc = func(n *structured.ConditionNode, ctx structured.WalkContext) {
		walker.WalkCondition(n, ctx)
		if n.FalseNode != nil {
			return
		}
		body := n.TrueNode
		if unwrapped, ok := unwrapSingle(body); ok {
			body = unwrapped
		}
		inner, ok := body.(*structured.ConditionNode)
		if !ok || inner.FalseNode != nil {
			return
		}
		n.Condition = cond.Simplify(cond.NewAnd(n.Condition, inner.Condition))
		n.TrueNode = inner.TrueNode
		changed = true
	}
	walker.Walk(root)
	return changed
}

// mergeAdjacentConditions pairs neighbouring else-less ifs in a sequence.
// Complementary guards become one if/else; a second guard that conjoins the
// negation of the first becomes its else-if branch.
func mergeAdjacentConditions(root structured.Node) bool {
	changed := false
	walker := &structured.Walker{}
	walker.SequenceFunc = func(n *structured.SequenceNode, ctx structured.WalkContext) {
		for i := 0; i+1 < len(n.Nodes); i++ {
			first, ok1 := n.Nodes[i].(*structured.ConditionNode)
			second, ok2 := n.Nodes[i+1].(*structured.ConditionNode)
			if !ok1 || !ok2 || first.FalseNode != nil || second.FalseNode != nil {
				continue
			}
			negated := cond.Simplify(cond.Negate(first.Condition))
			if second.Condition.Likes(negated) {
				first.FalseNode = second.TrueNode
				n.Nodes = append(n.Nodes[:i+1], n.Nodes[i+2:]...)
				changed = true
				i--
				continue
			}
			if rest, ok := stripConjunct(second.Condition, negated); ok {
				first.FalseNode = &structured.ConditionNode{
					Address:   second.Address,
					Condition: rest,
					TrueNode:  second.TrueNode,
				}
				n.Nodes = append(n.Nodes[:i+1], n.Nodes[i+2:]...)
				changed = true
				i--
			}
		}
		walker.WalkSequence(n, ctx)
	}
	walker.Walk(root)
	return changed
}

// stripConjunct removes one conjunct structurally equal to drop from c.
// Reports ok=false when c is not a conjunction containing drop.
func stripConjunct(c cond.Condition, drop cond.Condition) (cond.Condition, bool) {
	conj, ok := c.(*cond.And)
	if !ok {
		return nil, false
	}
	for i, op := range conj.Operands {
		if op.Likes(drop) {
			rest := make([]cond.Condition, 0, len(conj.Operands)-1)
			rest = append(rest, conj.Operands[:i]...)
			rest = append(rest, conj.Operands[i+1:]...)
			return cond.Simplify(cond.NewAnd(rest...)), true
		}
	}
	return nil, false
}

// buildCascades flattens if/else chains whose else branch is itself a lone if
// into a single cascading condition, the if/elif/else ladder of the output.
func buildCascades(root structured.Node) bool {
	changed := false
	walker := &structured.Walker{}
	walker.ConditionFunc = func(n *structured.ConditionNode, ctx structured.WalkContext) {
		walker.WalkCondition(n, ctx)
		if ctx.Parent == nil || n.FalseNode == nil {
			return
		}
		elseBranch := n.FalseNode
		if unwrapped, ok := unwrapSingle(elseBranch); ok {
			elseBranch = unwrapped
		}
		switch tail := elseBranch.(type) {
		case *structured.ConditionNode:
			// a two-armed chain stays a plain if/else; ladders start at three
			if tail.FalseNode == nil {
				return
			}
			cascade := &structured.CascadingConditionNode{
				Address: n.Address,
				ConditionAndNodes: []structured.ConditionAndNode{
					{Condition: n.Condition, Node: n.TrueNode},
					{Condition: tail.Condition, Node: tail.TrueNode},
				},
				ElseNode: tail.FalseNode,
			}
			structured.ReplaceNodeInParent(ctx.Parent, n, cascade)
			changed = true
		case *structured.CascadingConditionNode:
			cascade := &structured.CascadingConditionNode{
				Address: n.Address,
				ConditionAndNodes: append(
					[]structured.ConditionAndNode{{Condition: n.Condition, Node: n.TrueNode}},
					tail.ConditionAndNodes...,
				),
				ElseNode: tail.ElseNode,
			}
			structured.ReplaceNodeInParent(ctx.Parent, n, cascade)
			changed = true
		}
	}
	walker.Walk(root)
	return changed
}
