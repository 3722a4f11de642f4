package cond

import "decomp/internal/ir"

// Simplify rewrites a condition into a simpler equivalent form. It is pure,
// deterministic, and idempotent: Simplify(Simplify(c)) yields a result
// structurally equal to Simplify(c). Laws applied: double negation,
// De Morgan (negations are pushed down to atoms), flattening of nested
// conjunctions/disjunctions, structural deduplication, complement
// elimination, absorption, and boolean-literal folding.
func Simplify(c Condition) Condition {
	for {
		next := simplifyOnce(c)
		if next.Likes(c) {
			return next
		}
		c = next
	}
}

func simplifyOnce(c Condition) Condition {
	switch n := c.(type) {
	case *Bool:
		return n
	case *Atom:
		return n
	case *Not:
		return simplifyNot(n)
	case *And:
		return simplifyNary(n.Operands, true)
	case *Or:
		return simplifyNary(n.Operands, false)
	}
	return c
}

func simplifyNot(n *Not) Condition {
	inner := simplifyOnce(n.Operand)
	switch i := inner.(type) {
	case *Bool:
		return &Bool{Value: !i.Value}
	case *Not:
		// double negation
		return i.Operand
	case *Atom:
		if inverted, ok := invertComparison(i.Expr); ok {
			return &Atom{Expr: inverted}
		}
		return &Not{Operand: i}
	case *And:
		// De Morgan: !(a && b) == !a || !b
		negated := make([]Condition, len(i.Operands))
		for idx, op := range i.Operands {
			negated[idx] = Negate(op)
		}
		return simplifyNary(negated, false)
	case *Or:
		// De Morgan: !(a || b) == !a && !b
		negated := make([]Condition, len(i.Operands))
		for idx, op := range i.Operands {
			negated[idx] = Negate(op)
		}
		return simplifyNary(negated, true)
	}
	return &Not{Operand: inner}
}

// simplifyNary normalizes a conjunction (conjunctive=true) or disjunction.
func simplifyNary(operands []Condition, conjunctive bool) Condition {
	// simplify and flatten nested nodes of the same kind
	var flat []Condition
	for _, op := range operands {
		simplified := simplifyOnce(op)
		if conjunctive {
			if inner, ok := simplified.(*And); ok {
				flat = append(flat, inner.Operands...)
				continue
			}
		} else {
			if inner, ok := simplified.(*Or); ok {
				flat = append(flat, inner.Operands...)
				continue
			}
		}
		flat = append(flat, simplified)
	}

	// literal folding: identity elements disappear, annihilators win
	kept := flat[:0]
	for _, op := range flat {
		if b, ok := op.(*Bool); ok {
			if b.Value == conjunctive {
				continue // identity: true in And, false in Or
			}
			return &Bool{Value: !conjunctive} // annihilator
		}
		kept = append(kept, op)
	}

	// structural deduplication, first occurrence wins
	var unique []Condition
	for _, op := range kept {
		duplicate := false
		for _, seen := range unique {
			if op.Likes(seen) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, op)
		}
	}

	// complement elimination: a && !a == false, a || !a == true
	for i, op := range unique {
		for j, other := range unique {
			if i != j && isComplement(op, other) {
				return &Bool{Value: !conjunctive}
			}
		}
	}

	// absorption: a && (a || b) == a, a || (a && b) == a
	var absorbed []Condition
	for _, op := range unique {
		dropped := false
		if inner := innerOperands(op, !conjunctive); inner != nil {
			for _, other := range unique {
				if other == op {
					continue
				}
				for _, io := range inner {
					if io.Likes(other) {
						dropped = true
						break
					}
				}
				if dropped {
					break
				}
			}
		}
		if !dropped {
			absorbed = append(absorbed, op)
		}
	}

	switch len(absorbed) {
	case 0:
		return &Bool{Value: conjunctive} // empty And is true, empty Or is false
	case 1:
		return absorbed[0]
	}
	if conjunctive {
		return &And{Operands: absorbed}
	}
	return &Or{Operands: absorbed}
}

// innerOperands unwraps op when it is an And (conjunctive=true) or Or.
func innerOperands(op Condition, conjunctive bool) []Condition {
	if conjunctive {
		if a, ok := op.(*And); ok {
			return a.Operands
		}
		return nil
	}
	if o, ok := op.(*Or); ok {
		return o.Operands
	}
	return nil
}

// isComplement reports whether a and b always disagree. Covers structural
// negation and comparison pairs whose operators invert each other, since
// negated comparisons are normalized into inverted atoms.
func isComplement(a, b Condition) bool {
	if Negate(a).Likes(b) || Negate(b).Likes(a) {
		return true
	}
	aa, okA := a.(*Atom)
	bb, okB := b.(*Atom)
	if okA && okB {
		if inverted, ok := invertComparison(aa.Expr); ok && inverted.Likes(bb.Expr) {
			return true
		}
	}
	return false
}

// invertComparison flips a comparison operator so that the negation of a
// comparison stays a single readable atom.
func invertComparison(e ir.Expr) (ir.Expr, bool) {
	b, ok := e.(*ir.BinaryOp)
	if !ok {
		return nil, false
	}
	inverse, ok := inverseComparisons[b.Op]
	if !ok {
		return nil, false
	}
	return &ir.BinaryOp{Op: inverse, Left: b.Left, Right: b.Right, Tag: b.Tag}, true
}

var inverseComparisons = map[string]string{
	ir.OpCmpEQ: ir.OpCmpNE,
	ir.OpCmpNE: ir.OpCmpEQ,
	ir.OpCmpLT: ir.OpCmpGE,
	ir.OpCmpGE: ir.OpCmpLT,
	ir.OpCmpGT: ir.OpCmpLE,
	ir.OpCmpLE: ir.OpCmpGT,
}
