// Package cond models the boolean conditions that guard structured control
// flow. Conditions form a small algebra over lifted IR expressions; the
// simplifier applies standard boolean laws deterministically so structurally
// identical inputs always produce identical outputs.
package cond

import (
	"strings"

	"decomp/internal/ir"
)

// Condition is a boolean expression over lifted IR sub-expressions.
type Condition interface {
	isCondition()
	// Likes reports structural equality, ignoring source-address metadata.
	Likes(other Condition) bool
	Copy() Condition
	String() string
}

func (*Bool) isCondition() {}
func (*Atom) isCondition() {}
func (*Not) isCondition()  {}
func (*And) isCondition()  {}
func (*Or) isCondition()   {}

// Bool is a boolean literal.
type Bool struct {
	Value bool
}

// True and False build boolean literals.
func True() *Bool  { return &Bool{Value: true} }
func False() *Bool { return &Bool{Value: false} }

func (b *Bool) Likes(other Condition) bool {
	o, ok := other.(*Bool)
	return ok && b.Value == o.Value
}

func (b *Bool) Copy() Condition {
	clone := *b
	return &clone
}

func (b *Bool) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// Atom wraps a lifted IR expression treated as an opaque boolean.
type Atom struct {
	Expr ir.Expr
}

func (a *Atom) Likes(other Condition) bool {
	o, ok := other.(*Atom)
	return ok && a.Expr.Likes(o.Expr)
}

func (a *Atom) Copy() Condition {
	return &Atom{Expr: a.Expr.Copy()}
}

func (a *Atom) String() string {
	return a.Expr.String()
}

// Not negates a condition.
type Not struct {
	Operand Condition
}

func (n *Not) Likes(other Condition) bool {
	o, ok := other.(*Not)
	return ok && n.Operand.Likes(o.Operand)
}

func (n *Not) Copy() Condition {
	return &Not{Operand: n.Operand.Copy()}
}

func (n *Not) String() string {
	return "!" + parenthesize(n.Operand)
}

// And is an n-ary conjunction evaluated left to right.
type And struct {
	Operands []Condition
}

func (a *And) Likes(other Condition) bool {
	o, ok := other.(*And)
	return ok && operandsLike(a.Operands, o.Operands)
}

func (a *And) Copy() Condition {
	return &And{Operands: copyOperands(a.Operands)}
}

func (a *And) String() string {
	return joinOperands(a.Operands, " && ")
}

// Or is an n-ary disjunction evaluated left to right.
type Or struct {
	Operands []Condition
}

func (o *Or) Likes(other Condition) bool {
	oo, ok := other.(*Or)
	return ok && operandsLike(o.Operands, oo.Operands)
}

func (o *Or) Copy() Condition {
	return &Or{Operands: copyOperands(o.Operands)}
}

func (o *Or) String() string {
	return joinOperands(o.Operands, " || ")
}

// NewAnd conjoins conditions. Single operands are returned unwrapped.
func NewAnd(operands ...Condition) Condition {
	if len(operands) == 1 {
		return operands[0]
	}
	return &And{Operands: operands}
}

// NewOr disjoins conditions. Single operands are returned unwrapped.
func NewOr(operands ...Condition) Condition {
	if len(operands) == 1 {
		return operands[0]
	}
	return &Or{Operands: operands}
}

// Negate builds the logical negation, folding double negation eagerly so
// Negate(Negate(c)) is structurally c.
func Negate(c Condition) Condition {
	if n, ok := c.(*Not); ok {
		return n.Operand
	}
	if b, ok := c.(*Bool); ok {
		return &Bool{Value: !b.Value}
	}
	return &Not{Operand: c}
}

// FromExpr converts a lifted boolean expression into a condition. Logical
// negations become Not nodes; everything else is an atom.
func FromExpr(e ir.Expr) Condition {
	if u, ok := e.(*ir.UnaryOp); ok && u.Op == ir.OpNot {
		return Negate(FromExpr(u.Operand))
	}
	return &Atom{Expr: e}
}

// IsTrue reports whether c is the literal true.
func IsTrue(c Condition) bool {
	b, ok := c.(*Bool)
	return ok && b.Value
}

// IsFalse reports whether c is the literal false.
func IsFalse(c Condition) bool {
	b, ok := c.(*Bool)
	return ok && !b.Value
}

func operandsLike(a, b []Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Likes(b[i]) {
			return false
		}
	}
	return true
}

func copyOperands(operands []Condition) []Condition {
	clones := make([]Condition, len(operands))
	for i, op := range operands {
		clones[i] = op.Copy()
	}
	return clones
}

func joinOperands(operands []Condition, sep string) string {
	parts := make([]string, len(operands))
	for i, op := range operands {
		parts[i] = parenthesize(op)
	}
	return strings.Join(parts, sep)
}

func parenthesize(c Condition) string {
	switch c.(type) {
	case *And, *Or:
		return "(" + c.String() + ")"
	}
	return c.String()
}
