package ir

import "fmt"

// NoAddr marks an unknown or synthetic address. Real code never lives at the
// top of the address space, so the sentinel is safe for lifted binaries.
const NoAddr = ^uint64(0)

// Expr is a lifted IR expression. The structurer only ever inspects
// expressions structurally; their evaluation semantics belong to the lifter.
type Expr interface {
	isExpr()
	// Likes reports structural equality, ignoring metadata such as the
	// source-address tags the lifter attaches. Two conditions lifted from
	// different blocks compare equal when they test the same thing.
	Likes(other Expr) bool
	Copy() Expr
	String() string
}

func (*Const) isExpr()    {}
func (*Register) isExpr() {}
func (*UnaryOp) isExpr()  {}
func (*BinaryOp) isExpr() {}

// Unary and binary operators understood by the structurer. Comparisons matter
// because branch conditions are almost always comparisons; everything else is
// carried through opaquely.
const (
	OpNot = "Not"
	OpNeg = "Neg"

	OpCmpEQ = "CmpEQ"
	OpCmpNE = "CmpNE"
	OpCmpLT = "CmpLT"
	OpCmpLE = "CmpLE"
	OpCmpGT = "CmpGT"
	OpCmpGE = "CmpGE"

	OpAdd = "Add"
	OpSub = "Sub"
	OpMul = "Mul"
	OpAnd = "And"
	OpOr  = "Or"
	OpXor = "Xor"
)

// Const is a constant value with a known bit width.
// Example: jump targets, case keys, immediates.
type Const struct {
	Value uint64
	Bits  int
	Tag   uint64 // source instruction address, ignored by Likes
}

func (c *Const) Likes(other Expr) bool {
	o, ok := other.(*Const)
	return ok && c.Value == o.Value && c.Bits == o.Bits
}

func (c *Const) Copy() Expr {
	clone := *c
	return &clone
}

func (c *Const) String() string {
	return fmt.Sprintf("%#x", c.Value)
}

// Register names a lifted machine register or virtual temporary.
// Example: "rax", "v12".
type Register struct {
	Name string
	Bits int
	Tag  uint64
}

func (r *Register) Likes(other Expr) bool {
	o, ok := other.(*Register)
	return ok && r.Name == o.Name
}

func (r *Register) Copy() Expr {
	clone := *r
	return &clone
}

func (r *Register) String() string {
	return r.Name
}

// UnaryOp applies Op to a single operand.
type UnaryOp struct {
	Op      string
	Operand Expr
	Tag     uint64
}

func (u *UnaryOp) Likes(other Expr) bool {
	o, ok := other.(*UnaryOp)
	return ok && u.Op == o.Op && u.Operand.Likes(o.Operand)
}

func (u *UnaryOp) Copy() Expr {
	return &UnaryOp{Op: u.Op, Operand: u.Operand.Copy(), Tag: u.Tag}
}

func (u *UnaryOp) String() string {
	if u.Op == OpNot {
		return fmt.Sprintf("!(%s)", u.Operand)
	}
	return fmt.Sprintf("%s(%s)", u.Op, u.Operand)
}

// BinaryOp applies Op to two operands.
type BinaryOp struct {
	Op    string
	Left  Expr
	Right Expr
	Tag   uint64
}

func (b *BinaryOp) Likes(other Expr) bool {
	o, ok := other.(*BinaryOp)
	return ok && b.Op == o.Op && b.Left.Likes(o.Left) && b.Right.Likes(o.Right)
}

func (b *BinaryOp) Copy() Expr {
	return &BinaryOp{Op: b.Op, Left: b.Left.Copy(), Right: b.Right.Copy(), Tag: b.Tag}
}

func (b *BinaryOp) String() string {
	op, ok := binaryOpSymbols[b.Op]
	if !ok {
		return fmt.Sprintf("%s(%s, %s)", b.Op, b.Left, b.Right)
	}
	return fmt.Sprintf("%s %s %s", b.Left, op, b.Right)
}

var binaryOpSymbols = map[string]string{
	OpCmpEQ: "==",
	OpCmpNE: "!=",
	OpCmpLT: "<",
	OpCmpLE: "<=",
	OpCmpGT: ">",
	OpCmpGE: ">=",
	OpAdd:   "+",
	OpSub:   "-",
	OpMul:   "*",
	OpAnd:   "&",
	OpOr:    "|",
	OpXor:   "^",
}

// Negate builds the logical negation of an expression, folding double
// negation so that Negate(Negate(e)) is structurally e.
func Negate(e Expr) Expr {
	if u, ok := e.(*UnaryOp); ok && u.Op == OpNot {
		return u.Operand
	}
	return &UnaryOp{Op: OpNot, Operand: e}
}
