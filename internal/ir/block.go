package ir

import (
	"fmt"
	"strings"
)

// Block is a basic block of lifted statements. A block may be emptied by a
// simplification pass (all of its statements absorbed into structure) but the
// object itself persists as a placeholder until its parent prunes it.
type Block struct {
	Address      uint64
	OriginalSize uint64
	Statements   []Statement
	// Idx distinguishes duplicated copies of the same block created by
	// earlier passes (node duplication keeps the original address).
	Idx int
}

// NewBlock creates a block at the given address.
func NewBlock(addr uint64, size uint64, stmts ...Statement) *Block {
	return &Block{Address: addr, OriginalSize: size, Statements: stmts}
}

// Addr returns the block's starting address.
func (b *Block) Addr() uint64 { return b.Address }

// LastStatement returns the final statement, or false when the block has been
// emptied.
func (b *Block) LastStatement() (Statement, bool) {
	if len(b.Statements) == 0 {
		return nil, false
	}
	return b.Statements[len(b.Statements)-1], true
}

// RemoveLastStatement drops and returns the final statement.
func (b *Block) RemoveLastStatement() (Statement, bool) {
	stmt, ok := b.LastStatement()
	if !ok {
		return nil, false
	}
	b.Statements = b.Statements[:len(b.Statements)-1]
	return stmt, true
}

// Copy deep-copies the block; the clone's statements are independently
// mutable.
func (b *Block) Copy() *Block {
	stmts := make([]Statement, len(b.Statements))
	for i, s := range b.Statements {
		stmts[i] = s.Copy()
	}
	return &Block{Address: b.Address, OriginalSize: b.OriginalSize, Statements: stmts, Idx: b.Idx}
}

// HasNonLabelStatements reports whether the block contains anything besides
// goto labels.
func (b *Block) HasNonLabelStatements() bool {
	for _, s := range b.Statements {
		if _, ok := s.(*Label); !ok {
			return true
		}
	}
	return false
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "block %#x {\n", b.Address)
	for _, s := range b.Statements {
		sb.WriteString("  " + s.String() + "\n")
	}
	sb.WriteString("}")
	return sb.String()
}
