package structuring

import (
	"decomp/internal/cond"
	"decomp/internal/digraph"
	"decomp/internal/ir"
	"decomp/internal/region"
	"decomp/internal/structured"
)

// structureCyclic structures a region with a cycle into a LoopNode. The body
// is the region without its back edges, structured like any acyclic region;
// jumps to the region's successors become breaks and jumps back to the head
// become continues. Classification picks the loop shape from where the exit
// test sits.
func (s *Structurer) structureCyclic() (structured.Node, error) {
	r := s.region
	headAddr := r.Head.Addr()

	backEdges := r.BackEdges
	if len(backEdges) == 0 {
		for _, e := range r.Graph.Edges() {
			if e.To == r.Head {
				backEdges = append(backEdges, e)
			}
		}
	}
	if len(backEdges) == 0 {
		return nil, s.errorf("cyclic region has no back edge to its head")
	}

	bodyRegion := &region.Region{
		Head:           r.Head,
		Graph:          r.Graph.Copy(),
		SuccessorAddrs: r.SuccessorAddrs,
		JumpTables:     r.JumpTables,
	}
	for _, e := range backEdges {
		bodyRegion.Graph.RemoveEdge(e.From, e.To)
	}

	sort, loopCond, headBreak := s.classifyLoop(r, backEdges)

	exitAddrs := make(map[uint64]bool, len(r.SuccessorAddrs)+1)
	for _, a := range r.SuccessorAddrs {
		exitAddrs[a] = true
	}
	exitAddrs[headAddr] = true

	body, err := s.structureAcyclicInner(bodyRegion, exitAddrs)
	if err != nil {
		return nil, err
	}
	if headBreak != nil {
		seq := body.(*structured.SequenceNode)
		seq.Nodes = append([]structured.Node{headBreak}, seq.Nodes...)
	}

	if err := s.rewriteConditionalJumpsToBreaks(body); err != nil {
		return nil, err
	}
	s.rewriteJumpsToContinues(body, headAddr)
	removeTrailingContinues(body, headAddr)

	if err := s.checkNoLooseConditionalJumps(body); err != nil {
		return nil, err
	}

	log.Debugf("structured loop at %#x as %s", headAddr, sort)
	return &structured.LoopNode{
		Address:      headAddr,
		Sort:         sort,
		Condition:    loopCond,
		Body:         body,
		ContinueAddr: headAddr,
	}, nil
}

// classifyLoop decides the loop shape, extracts the loop condition and strips
// the classifying jump from its block so it is not structured twice.
//
// A head whose trailing conditional jump splits into a stay branch and an
// exit branch gives a while loop, a self loop included: the condition moves
// to the top. A head that opens with the exit test before real work keeps the
// test inside the body as a conditional break (head-controlled, the
// duplicated-header pattern). A non-head latch testing before the back edge
// gives a do-while. Everything else is an endless loop broken out of
// explicitly.
func (s *Structurer) classifyLoop(
	r *region.Region,
	backEdges []digraph.Edge[structured.Node],
) (structured.LoopSort, cond.Condition, *structured.ConditionalBreakNode) {
	headAddr := r.Head.Addr()
	nodeAddrs := r.NodeAddrs()

	exits := func(addr uint64) bool {
		return !nodeAddrs[addr] || r.IsSuccessorAddr(addr)
	}

	if stmt, ok := structured.EndsWithJump(r.Head); ok {
		if cj, isCond := stmt.(*ir.ConditionalJump); isCond {
			if stay, hasStay := stayCondition(cj, exits); hasStay {
				structured.RemoveLastStatement(r.Head)
				return structured.LoopWhile, stay, nil
			}
		}
	}

	if cj, ok := openingExitTest(r.Head, exits); ok {
		if headBreak, built := s.headBreakNode(cj, exits); built {
			removeStatement(r.Head, cj)
			return structured.LoopHeadControlled, cond.True(), headBreak
		}
	}

	if len(backEdges) == 1 && backEdges[0].From != r.Head {
		latch := backEdges[0].From
		if stmt, ok := structured.EndsWithJump(latch); ok {
			if cj, isCond := stmt.(*ir.ConditionalJump); isCond {
				if stay, ok := doWhileCondition(cj, headAddr, exits); ok {
					structured.RemoveLastStatement(latch)
					return structured.LoopDoWhile, stay, nil
				}
			}
		}
	}

	return structured.LoopWhile, cond.True(), nil
}

// openingExitTest finds a conditional jump sitting at the top of the head,
// before any real work. Such a test was left inline by entry-block
// duplication and must not be hoisted into the loop condition.
func openingExitTest(n structured.Node, exits func(uint64) bool) (*ir.ConditionalJump, bool) {
	block := firstBlock(n)
	if block == nil {
		return nil, false
	}
	for _, stmt := range block.Statements {
		if _, isLabel := stmt.(*ir.Label); isLabel {
			continue
		}
		cj, ok := stmt.(*ir.ConditionalJump)
		if !ok {
			return nil, false
		}
		tt, tok := constTargetOf(cj.TrueTarget)
		ft, fok := constTargetOf(cj.FalseTarget)
		if tok && fok && (exits(tt) != exits(ft)) {
			return cj, true
		}
		return nil, false
	}
	return nil, false
}

// headBreakNode turns the inline head test into the conditional break that
// will open the loop body.
func (s *Structurer) headBreakNode(cj *ir.ConditionalJump, exits func(uint64) bool) (*structured.ConditionalBreakNode, bool) {
	tt, tok := constTargetOf(cj.TrueTarget)
	ft, fok := constTargetOf(cj.FalseTarget)
	switch {
	case tok && exits(tt):
		return &structured.ConditionalBreakNode{
			Address:   cj.Addr,
			Condition: cond.Simplify(cond.FromExpr(cj.Condition)),
			Target:    tt,
		}, true
	case fok && exits(ft):
		return &structured.ConditionalBreakNode{
			Address:   cj.Addr,
			Condition: cond.Simplify(cond.Negate(cond.FromExpr(cj.Condition))),
			Target:    ft,
		}, true
	}
	return nil, false
}

func firstBlock(n structured.Node) *ir.Block {
	switch node := n.(type) {
	case *ir.Block:
		return node
	case *structured.MultiNode:
		if len(node.Nodes) > 0 {
			return firstBlock(node.Nodes[0])
		}
	case *structured.SequenceNode:
		if len(node.Nodes) > 0 {
			return firstBlock(node.Nodes[0])
		}
	}
	return nil
}

func removeStatement(n structured.Node, target ir.Statement) {
	block := firstBlock(n)
	if block == nil {
		return
	}
	for i, stmt := range block.Statements {
		if stmt == target {
			block.Statements = append(block.Statements[:i], block.Statements[i+1:]...)
			return
		}
	}
}

// stayCondition extracts the stay-in-loop condition of a head test: one
// branch must leave the region, the other stays. The returned condition is
// true when the loop keeps running.
func stayCondition(cj *ir.ConditionalJump, exits func(uint64) bool) (cond.Condition, bool) {
	tt, tok := constTargetOf(cj.TrueTarget)
	ft, fok := constTargetOf(cj.FalseTarget)
	if !tok || !fok {
		return nil, false
	}
	trueExits := exits(tt)
	falseExits := exits(ft)
	switch {
	case trueExits && !falseExits:
		return cond.Simplify(cond.Negate(cond.FromExpr(cj.Condition))), true
	case falseExits && !trueExits:
		return cond.Simplify(cond.FromExpr(cj.Condition)), true
	}
	return nil, false
}

// doWhileCondition extracts the stay condition of a latch test: one branch
// must be the back edge to the head, the other must leave.
func doWhileCondition(cj *ir.ConditionalJump, headAddr uint64, exits func(uint64) bool) (cond.Condition, bool) {
	tt, tok := constTargetOf(cj.TrueTarget)
	ft, fok := constTargetOf(cj.FalseTarget)
	if !tok || !fok {
		return nil, false
	}
	switch {
	case tt == headAddr && exits(ft):
		return cond.Simplify(cond.FromExpr(cj.Condition)), true
	case ft == headAddr && exits(tt):
		return cond.Simplify(cond.Negate(cond.FromExpr(cj.Condition))), true
	}
	return nil, false
}

// rewriteConditionalJumpsToBreaks replaces every trailing jump out of the
// loop with a break node spliced in right after the jump's block. A
// conditional exit whose stay branch is the taken one gets its condition
// negated so the break fires on the exit branch.
func (s *Structurer) rewriteConditionalJumpsToBreaks(body structured.Node) error {
	var failure error
	walker := &structured.Walker{}
	walker.BlockFunc = func(b *ir.Block, ctx structured.WalkContext) {
		if failure != nil || ctx.Parent == nil {
			return
		}
		stmt, ok := b.LastStatement()
		if !ok {
			return
		}
		if !s.targetsLoopSuccessor(stmt) {
			return
		}
		breakNode, err := s.loopCreateBreakNode(stmt)
		if err != nil {
			failure = err
			return
		}
		b.RemoveLastStatement()
		structured.InsertNode(ctx.Parent, structured.InsertAfter, breakNode, ctx.Index, ctx.Label)
	}
	walker.Walk(body)
	return failure
}

func (s *Structurer) targetsLoopSuccessor(stmt ir.Statement) bool {
	switch stmt.(type) {
	case *ir.Jump, *ir.ConditionalJump:
	default:
		return false
	}
	for _, t := range ir.ExtractJumpTargets(stmt) {
		if s.region.IsSuccessorAddr(t) {
			return true
		}
	}
	return false
}

// loopCreateBreakNode builds the break replacing an out-of-loop jump. An
// unconditional jump becomes a plain break; a conditional jump becomes a
// conditional break guarded by the condition of the exiting branch. A jump
// claiming to exit while targeting no known successor means the region's
// successor bookkeeping is wrong, which is fatal for this region.
func (s *Structurer) loopCreateBreakNode(stmt ir.Statement) (structured.Node, error) {
	switch jump := stmt.(type) {
	case *ir.Jump:
		target, ok := constTargetOf(jump.Target)
		if !ok || !s.region.IsSuccessorAddr(target) {
			return nil, s.errorf("break rewriting at %#x: jump target is not a loop successor", jump.Addr)
		}
		return &structured.BreakNode{Address: jump.Addr, Target: target}, nil
	case *ir.ConditionalJump:
		tt, tok := constTargetOf(jump.TrueTarget)
		ft, fok := constTargetOf(jump.FalseTarget)
		trueExits := tok && s.region.IsSuccessorAddr(tt)
		falseExits := fok && s.region.IsSuccessorAddr(ft)
		switch {
		case trueExits && falseExits:
			// both branches leave the loop: the taken one wins
			return &structured.BreakNode{Address: jump.Addr, Target: tt}, nil
		case trueExits:
			return &structured.ConditionalBreakNode{
				Address:   jump.Addr,
				Condition: cond.Simplify(cond.FromExpr(jump.Condition)),
				Target:    tt,
			}, nil
		case falseExits:
			return &structured.ConditionalBreakNode{
				Address:   jump.Addr,
				Condition: cond.Simplify(cond.Negate(cond.FromExpr(jump.Condition))),
				Target:    ft,
			}, nil
		}
		return nil, s.errorf("break rewriting at %#x: neither branch targets a loop successor", jump.Addr)
	}
	return nil, s.errorf("break rewriting: statement at %#x is not a jump", stmt.InsAddr())
}

// rewriteJumpsToContinues replaces trailing jumps back to the continue
// address with continue nodes. A conditional back jump becomes a guarded
// continue; the fall-through branch needs no guard because the continue
// already diverted the other one.
func (s *Structurer) rewriteJumpsToContinues(body structured.Node, continueAddr uint64) {
	walker := &structured.Walker{}
	walker.BlockFunc = func(b *ir.Block, ctx structured.WalkContext) {
		if ctx.Parent == nil {
			return
		}
		stmt, ok := b.LastStatement()
		if !ok {
			return
		}
		switch jump := stmt.(type) {
		case *ir.Jump:
			if t, ok := constTargetOf(jump.Target); ok && t == continueAddr {
				b.RemoveLastStatement()
				node := &structured.ContinueNode{Address: jump.Addr, Target: continueAddr}
				structured.InsertNode(ctx.Parent, structured.InsertAfter, node, ctx.Index, ctx.Label)
			}
		case *ir.ConditionalJump:
			tt, tok := constTargetOf(jump.TrueTarget)
			ft, fok := constTargetOf(jump.FalseTarget)
			var guard cond.Condition
			switch {
			case tok && tt == continueAddr:
				guard = cond.Simplify(cond.FromExpr(jump.Condition))
			case fok && ft == continueAddr:
				guard = cond.Simplify(cond.Negate(cond.FromExpr(jump.Condition)))
			default:
				return
			}
			b.RemoveLastStatement()
			node := &structured.ConditionNode{
				Address:   jump.Addr,
				Condition: guard,
				TrueNode:  &structured.ContinueNode{Address: jump.Addr, Target: continueAddr},
			}
			structured.InsertNode(ctx.Parent, structured.InsertAfter, node, ctx.Index, ctx.Label)
		}
	}
	walker.Walk(body)
}

// removeTrailingContinues drops continue nodes sitting at the very end of the
// loop body, where falling off the end continues anyway.
func removeTrailingContinues(body structured.Node, continueAddr uint64) {
	for {
		switch node := body.(type) {
		case *structured.SequenceNode:
			if n := len(node.Nodes); n > 0 {
				if cn, ok := node.Nodes[n-1].(*structured.ContinueNode); ok && cn.Target == continueAddr {
					node.Nodes = node.Nodes[:n-1]
					continue
				}
				body = node.Nodes[n-1]
				continue
			}
			return
		case *structured.MultiNode:
			if n := len(node.Nodes); n > 0 {
				if cn, ok := node.Nodes[n-1].(*structured.ContinueNode); ok && cn.Target == continueAddr {
					node.Nodes = node.Nodes[:n-1]
					continue
				}
				body = node.Nodes[n-1]
				continue
			}
			return
		default:
			return
		}
	}
}

// checkNoLooseConditionalJumps verifies that break and continue rewriting
// consumed every conditional jump that survived acyclic structuring. One left
// over targets neither the loop body, a successor, nor the continue address,
// so no structured construct can represent it.
func (s *Structurer) checkNoLooseConditionalJumps(body structured.Node) error {
	var loose *ir.ConditionalJump
	walker := &structured.Walker{
		BlockFunc: func(b *ir.Block, ctx structured.WalkContext) {
			if loose != nil {
				return
			}
			for _, stmt := range b.Statements {
				if cj, ok := stmt.(*ir.ConditionalJump); ok {
					loose = cj
					return
				}
			}
		},
	}
	walker.Walk(body)
	if loose != nil {
		return s.errorf("conditional jump at %#x escapes the loop without a matching successor", loose.Addr)
	}
	return nil
}
