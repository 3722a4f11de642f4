package structuring

import (
	"decomp/internal/cond"
	"decomp/internal/ir"
	"decomp/internal/region"
	"decomp/internal/structured"
)

// structureAcyclic converts an acyclic region into a sequence of nodes, each
// guarded by its reaching condition. Every in-region jump is consumed by the
// guards; conditional exits to addresses outside the region become explicit
// guarded gotos unless the caller wants them left raw (loop bodies leave
// their exit jumps in place for break/continue rewriting).
func (s *Structurer) structureAcyclic(r *region.Region) (structured.Node, error) {
	return s.structureAcyclicInner(r, nil)
}

// exitAddrs lists the addresses whose jumps must survive this phase: loop
// successor targets and the loop continue address.
func (s *Structurer) structureAcyclicInner(r *region.Region, exitAddrs map[uint64]bool) (structured.Node, error) {
	if err := s.rewriteSwitches(r); err != nil {
		return nil, err
	}

	order, ok := r.Graph.TopologicalOrder()
	if !ok {
		return nil, s.errorf("cycle found while structuring an acyclic region")
	}

	nodeAddrs := r.NodeAddrs()
	reaching := s.reachingConditions(r, order, nodeAddrs, exitAddrs)

	seq := structured.NewSequence(r.Head.Addr())
	for _, n := range order {
		wrapped := virtualizeExits(multiToSequence(n), nodeAddrs, exitAddrs)
		if rc, ok := reaching[n]; ok && !cond.IsTrue(rc) {
			wrapped = &structured.ConditionNode{
				Address:   n.Addr(),
				Condition: rc,
				TrueNode:  wrapped,
			}
		}
		seq.AddNode(wrapped)
	}

	removeConsumedJumps(seq, nodeAddrs, exitAddrs)
	return seq, nil
}

// reachingConditions computes, for every node, the condition under which
// control reaches it from the region head: the disjunction over predecessors
// of the predecessor's own reaching condition conjoined with the edge
// condition. Simplification keeps the guards small and deterministic.
func (s *Structurer) reachingConditions(
	r *region.Region,
	order []structured.Node,
	nodeAddrs map[uint64]bool,
	exitAddrs map[uint64]bool,
) map[structured.Node]cond.Condition {
	reaching := make(map[structured.Node]cond.Condition, len(order))
	reaching[r.Head] = cond.True()

	for _, n := range order {
		if n == r.Head {
			continue
		}
		var parts []cond.Condition
		for _, p := range r.Graph.Predecessors(n) {
			pc, ok := reaching[p]
			if !ok {
				pc = cond.True()
			}
			ec := edgeCondition(p, n, r.Head.Addr(), nodeAddrs, exitAddrs)
			parts = append(parts, cond.Simplify(cond.NewAnd(pc, ec)))
		}
		if len(parts) == 0 {
			reaching[n] = cond.True()
			continue
		}
		reaching[n] = cond.Simplify(cond.NewOr(parts...))
	}
	return reaching
}

// edgeCondition derives the branch condition guarding the edge from→to from
// the terminal statement of from. An edge whose sibling branch diverges out
// of the region (a future break, continue, or goto) is unconditional: once
// the diverging branch is rewritten, falling through is the only way on.
func edgeCondition(
	from, to structured.Node,
	headAddr uint64,
	nodeAddrs map[uint64]bool,
	exitAddrs map[uint64]bool,
) cond.Condition {
	stmt, ok := structured.EndsWithJump(from)
	if !ok {
		return cond.True()
	}
	cj, ok := stmt.(*ir.ConditionalJump)
	if !ok {
		return cond.True()
	}

	diverges := func(target ir.Expr) bool {
		if target == nil {
			return true
		}
		addr, ok := ir.ConstTarget(target)
		if !ok {
			return false
		}
		return !nodeAddrs[addr] || addr == headAddr || exitAddrs[addr]
	}

	if t, ok := constTargetOf(cj.TrueTarget); ok && t == to.Addr() {
		if diverges(cj.FalseTarget) {
			return cond.True()
		}
		return cond.FromExpr(cj.Condition)
	}
	if t, ok := constTargetOf(cj.FalseTarget); ok && t == to.Addr() {
		if diverges(cj.TrueTarget) {
			return cond.True()
		}
		return cond.Negate(cond.FromExpr(cj.Condition))
	}
	return cond.True()
}

func constTargetOf(e ir.Expr) (uint64, bool) {
	if e == nil {
		return 0, false
	}
	return ir.ConstTarget(e)
}

// multiToSequence converts a merged multi-node into a plain sequence. The
// MultiNode form only matters while the region graph is being condensed and
// sequenced; the rewrite passes that follow splice structured nodes between
// blocks, which a MultiNode must never contain.
func multiToSequence(n structured.Node) structured.Node {
	switch node := n.(type) {
	case *structured.MultiNode:
		seq := structured.NewSequence(node.Address)
		for _, child := range node.Nodes {
			seq.AddNode(multiToSequence(child))
		}
		return seq
	case *structured.SequenceNode:
		for i, child := range node.Nodes {
			node.Nodes[i] = multiToSequence(child)
		}
	}
	return n
}

// virtualizeExits turns conditional exits to out-of-region addresses into
// explicit guarded goto blocks appended behind the node, so that the original
// conditional jump can be consumed like any other. Jumps to exitAddrs are
// left untouched; the loop structurer rewrites those itself.
func virtualizeExits(n structured.Node, nodeAddrs map[uint64]bool, exitAddrs map[uint64]bool) structured.Node {
	stmt, ok := structured.EndsWithJump(n)
	if !ok {
		return n
	}
	cj, ok := stmt.(*ir.ConditionalJump)
	if !ok {
		return n
	}

	outside := func(target ir.Expr) (uint64, bool) {
		addr, ok := constTargetOf(target)
		if !ok {
			return 0, false
		}
		if nodeAddrs[addr] || exitAddrs[addr] {
			return 0, false
		}
		return addr, true
	}

	trueOut, trueOutside := outside(cj.TrueTarget)
	falseOut, falseOutside := outside(cj.FalseTarget)

	switch {
	case trueOutside && falseOutside:
		// both branches leave the region: the condition no longer matters,
		// keep the false branch as the reached one
		gotoBlock := ir.NewBlock(cj.Addr, 0, &ir.Jump{Addr: cj.Addr, Target: &ir.Const{Value: falseOut, Bits: 64}})
		return structured.NewSequence(n.Addr(), n, gotoBlock)
	case trueOutside:
		return appendGuardedGoto(n, cond.FromExpr(cj.Condition), cj.Addr, trueOut)
	case falseOutside:
		return appendGuardedGoto(n, cond.Negate(cond.FromExpr(cj.Condition)), cj.Addr, falseOut)
	}
	return n
}

func appendGuardedGoto(n structured.Node, guard cond.Condition, insAddr uint64, target uint64) structured.Node {
	gotoBlock := ir.NewBlock(insAddr, 0, &ir.Jump{Addr: insAddr, Target: &ir.Const{Value: target, Bits: 64}})
	guardNode := &structured.ConditionNode{
		Address:   insAddr,
		Condition: cond.Simplify(guard),
		TrueNode:  gotoBlock,
	}
	return structured.NewSequence(n.Addr(), n, guardNode)
}

// removeConsumedJumps strips the control-transfer statements whose flow is
// now captured by guards and sequencing: every conditional jump without an
// exit-address target, and every unconditional jump into the region. Jumps
// to exit addresses stay for the loop structurer; jumps to unknown addresses
// stay as residual gotos for the code generator.
func removeConsumedJumps(seq *structured.SequenceNode, nodeAddrs map[uint64]bool, exitAddrs map[uint64]bool) {
	keepsExit := func(stmt ir.Statement) bool {
		for _, t := range ir.ExtractJumpTargets(stmt) {
			if exitAddrs[t] {
				return true
			}
		}
		return false
	}

	walker := &structured.Walker{
		BlockFunc: func(b *ir.Block, ctx structured.WalkContext) {
			kept := b.Statements[:0]
			for _, stmt := range b.Statements {
				switch st := stmt.(type) {
				case *ir.ConditionalJump:
					if keepsExit(st) {
						kept = append(kept, stmt)
					}
				case *ir.Jump:
					t, isConst := ir.ConstTarget(st.Target)
					if !isConst || (!nodeAddrs[t] && !exitAddrs[t]) || exitAddrs[t] {
						kept = append(kept, stmt)
					}
				default:
					kept = append(kept, stmt)
				}
			}
			b.Statements = kept
		},
	}
	walker.Walk(seq)
}
