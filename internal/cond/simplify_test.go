package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"decomp/internal/ir"
)

func atom(name string) Condition {
	return &Atom{Expr: &ir.Register{Name: name, Bits: 64}}
}

func cmp(op string, reg string, value uint64) Condition {
	return &Atom{Expr: &ir.BinaryOp{
		Op:    op,
		Left:  &ir.Register{Name: reg, Bits: 64},
		Right: &ir.Const{Value: value, Bits: 64},
	}}
}

func TestSimplifyComplementElimination(t *testing.T) {
	c := cmp(ir.OpCmpEQ, "rax", 0)

	// c || !c is always true
	result := Simplify(NewOr(c, Negate(c.Copy())))
	assert.True(t, IsTrue(result), "c || !c should fold to true, got %s", result)

	// c && !c is always false
	result = Simplify(NewAnd(c.Copy(), Negate(c.Copy())))
	assert.True(t, IsFalse(result), "c && !c should fold to false, got %s", result)
}

func TestSimplifyDoubleNegation(t *testing.T) {
	c := atom("rbx")
	result := Simplify(Negate(&Not{Operand: c}))
	assert.True(t, result.Likes(c), "!!c should fold back to c, got %s", result)
}

func TestSimplifyComparisonInversion(t *testing.T) {
	eq := cmp(ir.OpCmpEQ, "rax", 8)
	result := Simplify(&Not{Operand: eq})

	ne := cmp(ir.OpCmpNE, "rax", 8)
	assert.True(t, result.Likes(ne), "!(a == b) should become a != b, got %s", result)
}

func TestSimplifyLiteralFolding(t *testing.T) {
	c := atom("rcx")

	assert.True(t, Simplify(NewAnd(True(), c)).Likes(c), "true && c should be c")
	assert.True(t, IsFalse(Simplify(NewAnd(False(), c.Copy()))), "false && c should be false")
	assert.True(t, Simplify(NewOr(False(), c.Copy())).Likes(c), "false || c should be c")
	assert.True(t, IsTrue(Simplify(NewOr(True(), c.Copy()))), "true || c should be true")
}

func TestSimplifyDeduplication(t *testing.T) {
	c := cmp(ir.OpCmpLT, "rdx", 10)
	result := Simplify(NewAnd(c, c.Copy(), c.Copy()))
	assert.True(t, result.Likes(c), "c && c && c should be c, got %s", result)
}

func TestSimplifyAbsorption(t *testing.T) {
	a := atom("a")
	b := atom("b")

	// a || (a && b) == a
	result := Simplify(NewOr(a, NewAnd(a.Copy(), b)))
	assert.True(t, result.Likes(a), "a || (a && b) should absorb to a, got %s", result)
}

func TestSimplifyDeterministic(t *testing.T) {
	build := func() Condition {
		return NewOr(
			NewAnd(cmp(ir.OpCmpEQ, "rax", 0), cmp(ir.OpCmpLT, "rbx", 4)),
			NewAnd(cmp(ir.OpCmpEQ, "rax", 0), Negate(cmp(ir.OpCmpLT, "rbx", 4))),
		)
	}
	first := Simplify(build())
	second := Simplify(build())
	assert.Equal(t, first.String(), second.String(), "identical inputs must simplify identically")
}

func TestSimplifyIdempotent(t *testing.T) {
	input := NewOr(
		NewAnd(cmp(ir.OpCmpNE, "rax", 0), atom("flag")),
		Negate(atom("flag")),
	)
	once := Simplify(input)
	twice := Simplify(once.Copy())
	assert.True(t, once.Likes(twice), "simplify must be idempotent: %s vs %s", once, twice)
}

func TestNegateFolding(t *testing.T) {
	c := atom("x")
	assert.True(t, Negate(Negate(c)).Likes(c), "double negate should be identity")
	assert.True(t, IsFalse(Negate(True())), "!true should be false")
	assert.True(t, IsTrue(Negate(False())), "!false should be true")
}

func TestFromExprUnwrapsLogicalNot(t *testing.T) {
	inner := &ir.Register{Name: "rax", Bits: 64}
	c := FromExpr(&ir.UnaryOp{Op: ir.OpNot, Operand: inner})
	not, ok := c.(*Not)
	assert.True(t, ok, "lifted !e should become a Not condition, got %T", c)
	if ok {
		assert.True(t, not.Operand.Likes(&Atom{Expr: inner}))
	}
}
