package ir

import (
	"fmt"
	"strings"
)

// Statement is a lifted IR statement. The structurer cares about the two jump
// forms; everything else is carried through to the code generator untouched.
// The interface is deliberately open: structuring passes may park placeholder
// statements of their own inside blocks while a construct is being rebuilt.
type Statement interface {
	// InsAddr is the address of the machine instruction this statement was
	// lifted from.
	InsAddr() uint64
	Copy() Statement
	String() string
}

// Assign stores the value of Src into Dst.
// Example: "rax = rbx + 0x8".
type Assign struct {
	Addr uint64
	Dst  Expr
	Src  Expr
}

func (a *Assign) InsAddr() uint64 { return a.Addr }

func (a *Assign) Copy() Statement {
	return &Assign{Addr: a.Addr, Dst: a.Dst.Copy(), Src: a.Src.Copy()}
}

func (a *Assign) String() string {
	return fmt.Sprintf("%s = %s", a.Dst, a.Src)
}

// Call invokes a named target. Calls do not transfer control as far as the
// structurer is concerned; the lifter has already placed fake-return edges.
type Call struct {
	Addr   uint64
	Target string
	Args   []Expr
}

func (c *Call) InsAddr() uint64 { return c.Addr }

func (c *Call) Copy() Statement {
	args := make([]Expr, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.Copy()
	}
	return &Call{Addr: c.Addr, Target: c.Target, Args: args}
}

func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("call %s(%s)", c.Target, strings.Join(parts, ", "))
}

// Return leaves the current function, optionally with a value.
type Return struct {
	Addr  uint64
	Value Expr // nil for a bare return
}

func (r *Return) InsAddr() uint64 { return r.Addr }

func (r *Return) Copy() Statement {
	clone := &Return{Addr: r.Addr}
	if r.Value != nil {
		clone.Value = r.Value.Copy()
	}
	return clone
}

func (r *Return) String() string {
	if r.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", r.Value)
}

// Label marks a goto target kept for unstructurable jumps.
type Label struct {
	Addr uint64
	Name string
}

func (l *Label) InsAddr() uint64 { return l.Addr }

func (l *Label) Copy() Statement {
	clone := *l
	return &clone
}

func (l *Label) String() string {
	return l.Name + ":"
}

// Jump transfers control unconditionally. Target is usually a Const; an
// indirect jump has a non-constant target and relies on jump-table metadata
// recovered upstream.
type Jump struct {
	Addr   uint64
	Target Expr
}

func (j *Jump) InsAddr() uint64 { return j.Addr }

func (j *Jump) Copy() Statement {
	return &Jump{Addr: j.Addr, Target: j.Target.Copy()}
}

func (j *Jump) String() string {
	return fmt.Sprintf("goto %s", j.Target)
}

// ConditionalJump transfers control to TrueTarget when Condition holds and to
// FalseTarget otherwise. Either target may be nil after a simplification pass
// collapsed it into surrounding structure.
type ConditionalJump struct {
	Addr        uint64
	Condition   Expr
	TrueTarget  Expr
	FalseTarget Expr
}

func (c *ConditionalJump) InsAddr() uint64 { return c.Addr }

func (c *ConditionalJump) Copy() Statement {
	clone := &ConditionalJump{Addr: c.Addr, Condition: c.Condition.Copy()}
	if c.TrueTarget != nil {
		clone.TrueTarget = c.TrueTarget.Copy()
	}
	if c.FalseTarget != nil {
		clone.FalseTarget = c.FalseTarget.Copy()
	}
	return clone
}

func (c *ConditionalJump) String() string {
	switch {
	case c.TrueTarget != nil && c.FalseTarget != nil:
		return fmt.Sprintf("if %s goto %s else %s", c.Condition, c.TrueTarget, c.FalseTarget)
	case c.TrueTarget != nil:
		return fmt.Sprintf("if %s goto %s", c.Condition, c.TrueTarget)
	case c.FalseTarget != nil:
		return fmt.Sprintf("if %s else %s", c.Condition, c.FalseTarget)
	}
	return fmt.Sprintf("if %s", c.Condition)
}

// ConstTarget unwraps a constant jump-target expression.
func ConstTarget(e Expr) (uint64, bool) {
	c, ok := e.(*Const)
	if !ok {
		return 0, false
	}
	return c.Value, true
}

// ExtractJumpTargets collects the constant targets of a control-transfer
// statement. Non-constant (indirect) targets are skipped; callers needing
// them consult the jump-table metadata instead.
func ExtractJumpTargets(stmt Statement) []uint64 {
	var targets []uint64
	switch s := stmt.(type) {
	case *Jump:
		if t, ok := ConstTarget(s.Target); ok {
			targets = append(targets, t)
		}
	case *ConditionalJump:
		if s.TrueTarget != nil {
			if t, ok := ConstTarget(s.TrueTarget); ok {
				targets = append(targets, t)
			}
		}
		if s.FalseTarget != nil {
			if t, ok := ConstTarget(s.FalseTarget); ok {
				targets = append(targets, t)
			}
		}
	}
	return targets
}

// IsJumpTarget reports whether addr is one of the constant targets of stmt.
func IsJumpTarget(stmt Statement, addr uint64) bool {
	for _, t := range ExtractJumpTargets(stmt) {
		if t == addr {
			return true
		}
	}
	return false
}
