package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"decomp/internal/ir"
)

func jumpTo(addr, target uint64) *ir.Jump {
	return &ir.Jump{Addr: addr, Target: &ir.Const{Value: target, Bits: 64}}
}

func assignBlock(addr uint64) *ir.Block {
	return ir.NewBlock(addr, 0, &ir.Assign{
		Addr: addr,
		Dst:  &ir.Register{Name: "rax", Bits: 64},
		Src:  &ir.Const{Value: 1, Bits: 64},
	})
}

func TestLastStatementOfBlock(t *testing.T) {
	b := ir.NewBlock(0x1000, 0,
		&ir.Call{Addr: 0x1000, Target: "f"},
		jumpTo(0x1004, 0x2000),
	)

	stmt, err := LastStatement(b)
	assert.NoError(t, err)
	jump, ok := stmt.(*ir.Jump)
	assert.True(t, ok)
	assert.True(t, ir.IsJumpTarget(jump, 0x2000))
}

func TestLastStatementEmptyBlock(t *testing.T) {
	b := ir.NewBlock(0x1000, 0)
	_, err := LastStatement(b)
	assert.ErrorIs(t, err, ErrEmptyBlock)
}

func TestLastStatementSkipsEmptiedTail(t *testing.T) {
	seq := NewSequence(0x1000,
		ir.NewBlock(0x1000, 0, jumpTo(0x1000, 0x1100)),
		ir.NewBlock(0x1100, 0), // emptied by a pass, scan keeps going backwards
	)

	stmt, err := LastStatement(seq)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x1000), stmt.InsAddr())
}

func TestLastStatementsGathersBranches(t *testing.T) {
	cond := &ConditionNode{
		Address:   0x1000,
		TrueNode:  ir.NewBlock(0x1100, 0, jumpTo(0x1100, 0x2000)),
		FalseNode: ir.NewBlock(0x1200, 0, jumpTo(0x1200, 0x3000)),
	}

	stmts, err := LastStatements(cond)
	assert.NoError(t, err)
	assert.Len(t, stmts, 2, "both branches should contribute a trailing statement")

	_, err = LastStatement(cond)
	assert.ErrorIs(t, err, ErrEmptyBlock, "multiple terminating paths are ambiguous")
}

func TestLastStatementsStructuralTerminator(t *testing.T) {
	_, err := LastStatements(&BreakNode{Address: 0x1000, Target: 0x2000})
	assert.ErrorIs(t, err, ErrEmptyBlock, "a break has no raw trailing statement")
}

func TestRemoveLastStatement(t *testing.T) {
	b := ir.NewBlock(0x1000, 0,
		&ir.Call{Addr: 0x1000, Target: "f"},
		jumpTo(0x1004, 0x2000),
	)
	seq := NewSequence(0x1000, b)

	stmt, err := RemoveLastStatement(seq)
	assert.NoError(t, err)
	assert.IsType(t, &ir.Jump{}, stmt)
	assert.Len(t, b.Statements, 1, "only the jump should be removed")
}

func TestEndsWithJump(t *testing.T) {
	withJump := ir.NewBlock(0x1000, 0, jumpTo(0x1000, 0x2000))
	stmt, ok := EndsWithJump(withJump)
	assert.True(t, ok)
	assert.NotNil(t, stmt)

	withoutJump := assignBlock(0x1100)
	_, ok = EndsWithJump(withoutJump)
	assert.False(t, ok)
}
