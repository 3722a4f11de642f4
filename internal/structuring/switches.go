package structuring

import (
	"sort"

	"decomp/internal/digraph"
	"decomp/internal/ir"
	"decomp/internal/region"
	"decomp/internal/structured"
)

// rewriteSwitches finds every region node carrying jump-table metadata and
// collapses it, together with its case nodes, into a switch-case construct
// before acyclic structuring sequences the graph. A table whose case nodes
// cannot all be found in the region is skipped; the indirect jump then
// survives as a residual goto rather than producing a half-built switch.
func (s *Structurer) rewriteSwitches(r *region.Region) error {
	for _, n := range r.Graph.Nodes() {
		if !r.Graph.HasNode(n) {
			// absorbed into an earlier switch this pass
			continue
		}
		jt := r.JumpTableFor(n)
		if jt == nil {
			continue
		}
		incomplete, ok := s.makeIncompleteSwitch(r, n, jt)
		if !ok {
			continue
		}
		s.finalizeSwitch(r, n, incomplete, jt)
	}
	return nil
}

// makeIncompleteSwitch strips the indirect jump off the switch head, parks a
// placeholder statement in its place, and collects the case nodes from the
// head's successors. Returns ok=false (with the head untouched) when the
// region does not contain every case target.
func (s *Structurer) makeIncompleteSwitch(
	r *region.Region,
	head structured.Node,
	jt *region.JumpTable,
) (*structured.IncompleteSwitchCaseNode, bool) {
	stmt, ok := structured.EndsWithJump(head)
	if !ok {
		return nil, false
	}
	if _, isPlain := stmt.(*ir.Jump); !isPlain {
		return nil, false
	}

	caseAddrs := uniqueCaseAddrs(jt)
	caseNodes := make(map[uint64]structured.Node, len(caseAddrs))
	for _, addr := range caseAddrs {
		node := r.NodeByAddr(addr)
		if node == nil || node == head {
			log.Infof("jump table at %#x: case target %#x not in region, leaving switch unstructured", jt.Addr, addr)
			return nil, false
		}
		caseNodes[addr] = node
	}

	structured.RemoveLastStatement(head)
	placeholder := &structured.IncompleteSwitchCaseHeadStatement{
		Addr:        stmt.InsAddr(),
		SwitchExpr:  jt.SwitchExpr,
		CaseAddrs:   copyCaseAddrs(jt.Cases),
		DefaultAddr: jt.DefaultAddr,
	}
	appendStatement(head, placeholder)

	incomplete := &structured.IncompleteSwitchCaseNode{
		Address: head.Addr(),
		Head:    head,
	}
	for _, addr := range caseAddrs {
		incomplete.Cases = append(incomplete.Cases, caseNodes[addr])
	}
	return incomplete, true
}

// finalizeSwitch turns the collected head and case nodes into a finished
// SwitchCaseNode and rewires the region graph: the head and all case nodes
// are replaced by one sequence node of head-then-switch, inheriting the
// head's in-edges and every edge out of the switch.
func (s *Structurer) finalizeSwitch(
	r *region.Region,
	head structured.Node,
	incomplete *structured.IncompleteSwitchCaseNode,
	jt *region.JumpTable,
) {
	removePlaceholder(incomplete.Head)

	caseAddrs := uniqueCaseAddrs(jt)
	caseSet := make(map[uint64]bool, len(caseAddrs))
	for _, addr := range caseAddrs {
		caseSet[addr] = true
	}

	var defaultNode structured.Node
	if jt.DefaultAddr != ir.NoAddr {
		defaultNode = r.NodeByAddr(jt.DefaultAddr)
	}

	endAddr := switchFindEndAddr(incomplete.Cases, defaultNode, caseSet, jt.DefaultAddr, r.NodeAddrs())

	cases := buildCases(jt, incomplete, r)
	for _, c := range cases {
		c.Body = ensureSequence(c.Body)
		appendSyntheticExit(c.Body.(*structured.SequenceNode), endAddr)
		switchHandleGotos(c.Body.(*structured.SequenceNode), endAddr)
	}
	if defaultNode != nil {
		defaultNode = ensureSequence(defaultNode)
		switchHandleGotos(defaultNode.(*structured.SequenceNode), endAddr)
	}

	cases = reorganizeCases(cases, caseBodyAddrs(jt))
	removeFallthroughJumps(cases, defaultNode, jt)

	switchNode := &structured.SwitchCaseNode{
		Address:       head.Addr(),
		SwitchExpr:    jt.SwitchExpr,
		Cases:         cases,
		DefaultNode:   defaultNode,
		SwitchEndAddr: endAddr,
	}
	merged := structured.NewSequence(head.Addr(), head, switchNode)

	absorbedList := append([]structured.Node{head}, incomplete.Cases...)
	if jt.DefaultAddr != ir.NoAddr {
		if orig := r.NodeByAddr(jt.DefaultAddr); orig != nil {
			absorbedList = append(absorbedList, orig)
		}
	}
	absorbed := make(map[structured.Node]bool, len(absorbedList))
	for _, n := range absorbedList {
		absorbed[n] = true
	}

	r.Graph.AddNode(merged)
	for _, p := range r.Graph.Predecessors(head) {
		if !absorbed[p] {
			r.Graph.AddEdge(p, merged)
		}
	}
	for _, inner := range absorbedList {
		for _, z := range r.Graph.Successors(inner) {
			if !absorbed[z] {
				r.Graph.AddEdge(merged, z)
			}
		}
	}
	for _, inner := range absorbedList {
		r.Graph.RemoveNode(inner)
	}
	if r.Head == head {
		r.Head = merged
	}
	log.Debugf("structured switch at %#x with %d cases, end %#x", head.Addr(), len(cases), endAddr)
}

// buildCases groups jump-table keys by target address, so keys sharing a body
// become one multi-value case. Cases come out keyed in ascending primary key.
func buildCases(jt *region.JumpTable, incomplete *structured.IncompleteSwitchCaseNode, r *region.Region) []*structured.SwitchCase {
	byAddr := make(map[uint64]*structured.SwitchCase)
	var ordered []*structured.SwitchCase

	keys := make([]int64, 0, len(jt.Cases))
	for k := range jt.Cases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	nodeByAddr := make(map[uint64]structured.Node, len(incomplete.Cases))
	for _, n := range incomplete.Cases {
		nodeByAddr[n.Addr()] = n
	}

	for _, k := range keys {
		addr := jt.Cases[k]
		if c, ok := byAddr[addr]; ok {
			c.Keys = append(c.Keys, k)
			continue
		}
		c := &structured.SwitchCase{Keys: []int64{k}, Body: nodeByAddr[addr]}
		byAddr[addr] = c
		ordered = append(ordered, c)
	}
	return ordered
}

// caseBodyAddrs maps each case's primary key to the address its body started
// at, for fallthrough detection after bodies have been wrapped and rewritten.
func caseBodyAddrs(jt *region.JumpTable) map[uint64]int64 {
	addrToKey := make(map[uint64]int64)
	keys := make([]int64, 0, len(jt.Cases))
	for k := range jt.Cases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if _, seen := addrToKey[jt.Cases[k]]; !seen {
			addrToKey[jt.Cases[k]] = k
		}
	}
	return addrToKey
}

// switchFindEndAddr elects the address control resumes at after the switch:
// the most common out-of-switch jump target across all case bodies. Ties
// prefer a target that is another node of the region over one outside it,
// then the lowest address. Case addresses and the default address never
// count; jumps there are fallthroughs, not exits. NoAddr when no case jumps
// out.
func switchFindEndAddr(
	caseNodes []structured.Node,
	defaultNode structured.Node,
	caseSet map[uint64]bool,
	defaultAddr uint64,
	nodeAddrs map[uint64]bool,
) uint64 {
	votes := make(map[uint64]int)
	tally := func(n structured.Node) {
		stmts, err := structured.LastStatements(n)
		if err != nil {
			return
		}
		for _, stmt := range stmts {
			for _, t := range ir.ExtractJumpTargets(stmt) {
				if caseSet[t] || t == defaultAddr {
					continue
				}
				votes[t]++
			}
		}
	}
	for _, n := range caseNodes {
		tally(n)
	}
	if defaultNode != nil {
		tally(defaultNode)
	}

	end := ir.NoAddr
	best := 0
	for addr, count := range votes {
		switch {
		case count > best:
			end = addr
			best = count
		case count == best && best > 0:
			if nodeAddrs[addr] && !nodeAddrs[end] {
				end = addr
			} else if nodeAddrs[addr] == nodeAddrs[end] && addr < end {
				end = addr
			}
		}
	}
	return end
}

// appendSyntheticExit gives a case body ending in a one-sided condition an
// explicit unconditional jump to the switch end, so every case exits
// explicitly instead of falling through by accident.
func appendSyntheticExit(body *structured.SequenceNode, endAddr uint64) {
	if endAddr == ir.NoAddr || len(body.Nodes) == 0 {
		return
	}
	tail, ok := body.Nodes[len(body.Nodes)-1].(*structured.ConditionNode)
	if !ok || (tail.TrueNode != nil && tail.FalseNode != nil) {
		return
	}
	body.AddNode(ir.NewBlock(tail.Address, 0, &ir.Jump{
		Addr:   tail.Address,
		Target: &ir.Const{Value: endAddr, Bits: 64},
	}))
}

// switchHandleGotos rewrites trailing jumps to the switch end into break
// nodes, unconditional and conditional alike. Jumps anywhere else stay put:
// fallthrough jumps are handled by case ordering and the rest are residual
// gotos.
func switchHandleGotos(body *structured.SequenceNode, endAddr uint64) {
	if endAddr == ir.NoAddr {
		return
	}
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
			if t, ok := constTargetOf(jump.Target); ok && t == endAddr {
				b.RemoveLastStatement()
				node := &structured.BreakNode{Address: jump.Addr, Target: endAddr}
				structured.InsertNode(ctx.Parent, structured.InsertAfter, node, ctx.Index, ctx.Label)
			}
		case *ir.ConditionalJump:
			breakNode, ok := conditionalBreakTo(jump, endAddr)
			if !ok {
				return
			}
			b.RemoveLastStatement()
			structured.InsertNode(ctx.Parent, structured.InsertAfter, breakNode, ctx.Index, ctx.Label)
		}
	}
	walker.Walk(body)
}

// reorganizeCases orders cases so every case falling through into another
// comes right before enough of the order for the fallthrough to work:
// fallthrough edges are topological constraints, and within them cases sort
// by ascending primary key. A fallthrough cycle cannot be laid out; the edge
// leaving the case with the smallest primary key is dropped (its jump then
// stays as a residual goto) until the constraints form a DAG.
func reorganizeCases(cases []*structured.SwitchCase, addrToKey map[uint64]int64) []*structured.SwitchCase {
	if len(cases) < 2 {
		return cases
	}

	byKey := make(map[int64]*structured.SwitchCase, len(cases))
	for _, c := range cases {
		byKey[c.PrimaryKey()] = c
	}

	g := digraph.New[*structured.SwitchCase]()
	sorted := append([]*structured.SwitchCase(nil), cases...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PrimaryKey() < sorted[j].PrimaryKey() })
	for _, c := range sorted {
		g.AddNode(c)
	}
	for _, c := range cases {
		target, ok := trailingJumpTarget(c.Body)
		if !ok {
			continue
		}
		key, isCase := addrToKey[target]
		if !isCase {
			continue
		}
		next := byKey[key]
		if next == nil || next == c {
			continue
		}
		if g.InDegree(next) > 0 {
			// two cases claiming the same fallthrough target is ambiguous;
			// the later one keeps its goto
			continue
		}
		g.AddEdge(c, next)
	}

	for {
		cycle, cyclic := g.FindCycle()
		if !cyclic {
			break
		}
		drop := cycle[0]
		for _, e := range cycle[1:] {
			if e.From.PrimaryKey() < drop.From.PrimaryKey() {
				drop = e
			}
		}
		g.RemoveEdge(drop.From, drop.To)
	}

	order, _ := g.TopologicalOrder()
	return order
}

// removeFallthroughJumps strips the trailing goto of every case that now sits
// immediately before its fallthrough target, including a last case falling
// into the default.
func removeFallthroughJumps(cases []*structured.SwitchCase, defaultNode structured.Node, jt *region.JumpTable) {
	addrToKey := caseBodyAddrs(jt)
	for i := 0; i < len(cases)-1; i++ {
		target, ok := trailingJumpTarget(cases[i].Body)
		if !ok {
			continue
		}
		key, isCase := addrToKey[target]
		if isCase && cases[i+1] == caseByPrimaryKey(cases, key) {
			structured.RemoveLastStatement(cases[i].Body)
		}
	}
	if defaultNode != nil && len(cases) > 0 {
		last := cases[len(cases)-1]
		if target, ok := trailingJumpTarget(last.Body); ok && target == jt.DefaultAddr {
			structured.RemoveLastStatement(last.Body)
		}
	}
}

func caseByPrimaryKey(cases []*structured.SwitchCase, key int64) *structured.SwitchCase {
	for _, c := range cases {
		if c.PrimaryKey() == key {
			return c
		}
	}
	return nil
}

func trailingJumpTarget(n structured.Node) (uint64, bool) {
	stmt, ok := structured.EndsWithJump(n)
	if !ok {
		return 0, false
	}
	jump, ok := stmt.(*ir.Jump)
	if !ok {
		return 0, false
	}
	return constTargetOf(jump.Target)
}

func uniqueCaseAddrs(jt *region.JumpTable) []uint64 {
	seen := make(map[uint64]bool, len(jt.Cases))
	var addrs []uint64
	for _, addr := range jt.Cases {
		if !seen[addr] {
			seen[addr] = true
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

func copyCaseAddrs(cases map[int64]uint64) map[int64]uint64 {
	out := make(map[int64]uint64, len(cases))
	for k, v := range cases {
		out[k] = v
	}
	return out
}

func appendStatement(n structured.Node, stmt ir.Statement) {
	switch node := n.(type) {
	case *ir.Block:
		node.Statements = append(node.Statements, stmt)
	case *structured.MultiNode:
		if len(node.Nodes) > 0 {
			appendStatement(node.Nodes[len(node.Nodes)-1], stmt)
		}
	case *structured.SequenceNode:
		if len(node.Nodes) > 0 {
			appendStatement(node.Nodes[len(node.Nodes)-1], stmt)
		}
	}
}

func removePlaceholder(n structured.Node) {
	if stmt, err := structured.LastStatement(n); err == nil {
		if _, ok := stmt.(*structured.IncompleteSwitchCaseHeadStatement); ok {
			structured.RemoveLastStatement(n)
		}
	}
}

func ensureSequence(n structured.Node) structured.Node {
	n = multiToSequence(n)
	if _, ok := n.(*structured.SequenceNode); ok {
		return n
	}
	return structured.NewSequence(n.Addr(), n)
}
