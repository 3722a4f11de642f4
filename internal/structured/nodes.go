// Package structured defines the node tree produced by control-flow
// structuring: sequences, conditions, loops, switch-cases and the
// break/continue markers that replace raw jump statements. Nodes are mutated
// in place by structuring passes and consumed read-only by the code
// generator.
package structured

import (
	"decomp/internal/cond"
	"decomp/internal/ir"
)

// NoAddr marks nodes without a concrete starting address.
const NoAddr = ir.NoAddr

// Node is a member of the closed structured-node variant set. *ir.Block is
// the leaf variant; everything else lives in this package. Parent-relative
// position is never stored on a node; the walker supplies it contextually.
type Node interface {
	Addr() uint64
	String() string
}

// LoopSort distinguishes the three loop shapes the structurer emits.
type LoopSort string

const (
	// LoopWhile tests the condition before each iteration.
	LoopWhile LoopSort = "while"
	// LoopDoWhile tests the condition after the body.
	LoopDoWhile LoopSort = "do-while"
	// LoopHeadControlled keeps the leading exit test physically inside the
	// body. This shape appears when entry-block duplication left the header
	// check in place; hoisting it would change which variables appear to
	// flow back around the loop.
	LoopHeadControlled LoopSort = "head-controlled"
)

// SequenceNode is straight-line succession of child nodes. Execution flows
// top to bottom unless a child transfers control itself.
type SequenceNode struct {
	Address uint64
	Nodes   []Node
}

// NewSequence builds a sequence; its address is the first child's unless set
// explicitly.
func NewSequence(addr uint64, nodes ...Node) *SequenceNode {
	return &SequenceNode{Address: addr, Nodes: nodes}
}

func (s *SequenceNode) Addr() uint64 { return s.Address }

// AddNode appends a child.
func (s *SequenceNode) AddNode(n Node) {
	s.Nodes = append(s.Nodes, n)
}

// RemoveNode removes a direct child by identity.
func (s *SequenceNode) RemoveNode(n Node) bool {
	for i, child := range s.Nodes {
		if child == n {
			s.Nodes = append(s.Nodes[:i], s.Nodes[i+1:]...)
			return true
		}
	}
	return false
}

// MultiNode is an ordered run of blocks merged into one CFG node during
// simplification. It never contains structured control flow, only further
// blocks and multi-nodes.
type MultiNode struct {
	Address uint64
	Idx     int
	Nodes   []Node
}

func (m *MultiNode) Addr() uint64 { return m.Address }

// ConditionNode is an if (with optional else).
type ConditionNode struct {
	Address   uint64
	Condition cond.Condition
	TrueNode  Node
	FalseNode Node
}

func (c *ConditionNode) Addr() uint64 { return c.Address }

// ConditionAndNode pairs one branch of a cascading condition with its guard.
type ConditionAndNode struct {
	Condition cond.Condition
	Node      Node
}

// CascadingConditionNode is an if/elif/elif/else ladder. Conditions are
// evaluated in list order; the first true branch is taken.
type CascadingConditionNode struct {
	Address           uint64
	ConditionAndNodes []ConditionAndNode
	ElseNode          Node
}

func (c *CascadingConditionNode) Addr() uint64 { return c.Address }

// LoopNode is a structured loop. Condition is the stay-in-loop condition; a
// trivially true condition with breaks in the body renders as an infinite
// loop. ContinueAddr is the address jumps-to-continue were rewritten against.
type LoopNode struct {
	Address      uint64
	Sort         LoopSort
	Condition    cond.Condition
	Body         Node
	ContinueAddr uint64
}

func (l *LoopNode) Addr() uint64 { return l.Address }

// SwitchCase is one case of a switch. Keys holds one value for a plain case
// and several for a multi-value case that shares a body.
type SwitchCase struct {
	Keys []int64
	Body Node
}

// PrimaryKey is the smallest key of the case, used for stable ordering
// decisions.
func (c *SwitchCase) PrimaryKey() int64 {
	key := c.Keys[0]
	for _, k := range c.Keys[1:] {
		if k < key {
			key = k
		}
	}
	return key
}

// SwitchCaseNode is a structured switch. Cases are ordered (reordering is a
// structuring concern); keys are unique across cases and at most one default
// exists. SwitchEndAddr marks where control resumes after the switch, or
// NoAddr when no case contains an out-of-switch goto.
type SwitchCaseNode struct {
	Address       uint64
	SwitchExpr    ir.Expr
	Cases         []*SwitchCase
	DefaultNode   Node
	SwitchEndAddr uint64
}

func (s *SwitchCaseNode) Addr() uint64 { return s.Address }

// CaseByKey returns the case containing key, or nil.
func (s *SwitchCaseNode) CaseByKey(key int64) *SwitchCase {
	for _, c := range s.Cases {
		for _, k := range c.Keys {
			if k == key {
				return c
			}
		}
	}
	return nil
}

// BreakNode replaces a loop- or switch-exit jump. Target is the address the
// original jump went to.
type BreakNode struct {
	Address uint64
	Target  uint64
}

func (b *BreakNode) Addr() uint64 { return b.Address }

// ConditionalBreakNode is `if (cond) break;`.
type ConditionalBreakNode struct {
	Address   uint64
	Condition cond.Condition
	Target    uint64
}

func (c *ConditionalBreakNode) Addr() uint64 { return c.Address }

// ContinueNode replaces a jump back to the loop's continue address.
type ContinueNode struct {
	Address uint64
	Target  uint64
}

func (c *ContinueNode) Addr() uint64 { return c.Address }

// IncompleteSwitchCaseNode marks a detected-but-unfinalized switch head with
// the case nodes collected so far. It only exists between structuring passes;
// one reaching the code generator is an internal error.
type IncompleteSwitchCaseNode struct {
	Address uint64
	Head    Node
	Cases   []Node
}

func (i *IncompleteSwitchCaseNode) Addr() uint64 { return i.Address }

// IncompleteSwitchCaseHeadStatement is a placeholder statement parked at the
// end of a switch head block while its cases are being collected. It
// implements ir.Statement so it can sit in a block's statement list.
type IncompleteSwitchCaseHeadStatement struct {
	Addr        uint64
	SwitchExpr  ir.Expr
	CaseAddrs   map[int64]uint64
	DefaultAddr uint64
}

func (s *IncompleteSwitchCaseHeadStatement) InsAddr() uint64 { return s.Addr }

func (s *IncompleteSwitchCaseHeadStatement) Copy() ir.Statement {
	caseAddrs := make(map[int64]uint64, len(s.CaseAddrs))
	for k, v := range s.CaseAddrs {
		caseAddrs[k] = v
	}
	clone := &IncompleteSwitchCaseHeadStatement{
		Addr:        s.Addr,
		CaseAddrs:   caseAddrs,
		DefaultAddr: s.DefaultAddr,
	}
	if s.SwitchExpr != nil {
		clone.SwitchExpr = s.SwitchExpr.Copy()
	}
	return clone
}

func (s *IncompleteSwitchCaseHeadStatement) String() string {
	return "<incomplete switch head>"
}
