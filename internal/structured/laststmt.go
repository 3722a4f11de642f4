package structured

import (
	"errors"

	"decomp/internal/ir"
)

// ErrEmptyBlock signals that a node currently has no executable statement to
// inspect. It means "no information", not failure: callers branch on it and
// carry on.
var ErrEmptyBlock = errors.New("structured: node has no statement to inspect")

// LastStatements returns the trailing raw statement of every terminating path
// through the node. Structural terminators (breaks, continues, loops,
// switches) have no raw statement and report ErrEmptyBlock, as do emptied
// blocks.
func LastStatements(n Node) ([]ir.Statement, error) {
	switch node := n.(type) {
	case *ir.Block:
		stmt, ok := node.LastStatement()
		if !ok {
			return nil, ErrEmptyBlock
		}
		return []ir.Statement{stmt}, nil
	case *MultiNode:
		return lastStatementsOf(node.Nodes)
	case *SequenceNode:
		return lastStatementsOf(node.Nodes)
	case *ConditionNode:
		var stmts []ir.Statement
		for _, branch := range []Node{node.TrueNode, node.FalseNode} {
			if branch == nil {
				continue
			}
			branchStmts, err := LastStatements(branch)
			if err != nil {
				continue
			}
			stmts = append(stmts, branchStmts...)
		}
		if len(stmts) == 0 {
			return nil, ErrEmptyBlock
		}
		return stmts, nil
	case *CascadingConditionNode:
		var stmts []ir.Statement
		for _, cn := range node.ConditionAndNodes {
			branchStmts, err := LastStatements(cn.Node)
			if err != nil {
				continue
			}
			stmts = append(stmts, branchStmts...)
		}
		if node.ElseNode != nil {
			if branchStmts, err := LastStatements(node.ElseNode); err == nil {
				stmts = append(stmts, branchStmts...)
			}
		}
		if len(stmts) == 0 {
			return nil, ErrEmptyBlock
		}
		return stmts, nil
	}
	return nil, ErrEmptyBlock
}

// lastStatementsOf scans an ordered child list from the end for the first
// node that still carries statements.
func lastStatementsOf(nodes []Node) ([]ir.Statement, error) {
	for i := len(nodes) - 1; i >= 0; i-- {
		stmts, err := LastStatements(nodes[i])
		if err == nil {
			return stmts, nil
		}
	}
	return nil, ErrEmptyBlock
}

// LastStatement returns the single trailing statement of a node, or
// ErrEmptyBlock when the node has none or terminates along several paths.
func LastStatement(n Node) (ir.Statement, error) {
	stmts, err := LastStatements(n)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, ErrEmptyBlock
	}
	return stmts[0], nil
}

// RemoveLastStatement strips and returns the trailing statement of the single
// terminating path through the node. ErrEmptyBlock when there is nothing to
// remove or the trailing statement is ambiguous.
func RemoveLastStatement(n Node) (ir.Statement, error) {
	switch node := n.(type) {
	case *ir.Block:
		stmt, ok := node.RemoveLastStatement()
		if !ok {
			return nil, ErrEmptyBlock
		}
		return stmt, nil
	case *MultiNode:
		return removeLastStatementOf(node.Nodes)
	case *SequenceNode:
		return removeLastStatementOf(node.Nodes)
	case *ConditionNode:
		// only unambiguous when exactly one branch exists
		if node.TrueNode != nil && node.FalseNode == nil {
			return RemoveLastStatement(node.TrueNode)
		}
		if node.FalseNode != nil && node.TrueNode == nil {
			return RemoveLastStatement(node.FalseNode)
		}
		return nil, ErrEmptyBlock
	}
	return nil, ErrEmptyBlock
}

func removeLastStatementOf(nodes []Node) (ir.Statement, error) {
	for i := len(nodes) - 1; i >= 0; i-- {
		stmt, err := RemoveLastStatement(nodes[i])
		if err == nil {
			return stmt, nil
		}
	}
	return nil, ErrEmptyBlock
}

// EndsWithJump reports whether the node's single trailing statement is an
// unconditional or conditional jump, along with that statement.
func EndsWithJump(n Node) (ir.Statement, bool) {
	stmt, err := LastStatement(n)
	if err != nil {
		return nil, false
	}
	switch stmt.(type) {
	case *ir.Jump, *ir.ConditionalJump:
		return stmt, true
	}
	return nil, false
}
