package structured

import (
	"fmt"
	"strings"
)

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func (s *SequenceNode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "seq @%#x {\n", s.Address)
	for _, n := range s.Nodes {
		b.WriteString(indent(n.String()) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

func (m *MultiNode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "multi @%#x {\n", m.Address)
	for _, n := range m.Nodes {
		b.WriteString(indent(n.String()) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

func (c *ConditionNode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "if (%s) {\n", c.Condition)
	if c.TrueNode != nil {
		b.WriteString(indent(c.TrueNode.String()) + "\n")
	}
	if c.FalseNode != nil {
		b.WriteString("} else {\n")
		b.WriteString(indent(c.FalseNode.String()) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

func (c *CascadingConditionNode) String() string {
	var b strings.Builder
	for i, cn := range c.ConditionAndNodes {
		if i == 0 {
			fmt.Fprintf(&b, "if (%s) {\n", cn.Condition)
		} else {
			fmt.Fprintf(&b, "} else if (%s) {\n", cn.Condition)
		}
		if cn.Node != nil {
			b.WriteString(indent(cn.Node.String()) + "\n")
		}
	}
	if c.ElseNode != nil {
		b.WriteString("} else {\n")
		b.WriteString(indent(c.ElseNode.String()) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

func (l *LoopNode) String() string {
	var b strings.Builder
	body := ""
	if l.Body != nil {
		body = indent(l.Body.String())
	}
	switch l.Sort {
	case LoopDoWhile:
		b.WriteString("do {\n")
		b.WriteString(body + "\n")
		fmt.Fprintf(&b, "} while (%s)", l.Condition)
	case LoopHeadControlled:
		fmt.Fprintf(&b, "for (; %s ;) {\n", l.Condition)
		b.WriteString(body + "\n")
		b.WriteString("}")
	default:
		fmt.Fprintf(&b, "while (%s) {\n", l.Condition)
		b.WriteString(body + "\n")
		b.WriteString("}")
	}
	return b.String()
}

func (s *SwitchCaseNode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "switch (%s) {\n", s.SwitchExpr)
	for _, c := range s.Cases {
		keys := make([]string, len(c.Keys))
		for i, k := range c.Keys {
			keys[i] = fmt.Sprintf("%d", k)
		}
		fmt.Fprintf(&b, "case %s:\n", strings.Join(keys, ", "))
		if c.Body != nil {
			b.WriteString(indent(c.Body.String()) + "\n")
		}
	}
	if s.DefaultNode != nil {
		b.WriteString("default:\n")
		b.WriteString(indent(s.DefaultNode.String()) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

func (b *BreakNode) String() string {
	return "break"
}

func (c *ConditionalBreakNode) String() string {
	return fmt.Sprintf("if (%s) break", c.Condition)
}

func (c *ContinueNode) String() string {
	return "continue"
}

func (i *IncompleteSwitchCaseNode) String() string {
	return fmt.Sprintf("<incomplete switch @%#x, %d cases>", i.Address, len(i.Cases))
}
