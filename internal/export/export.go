// Package export serializes structured-node trees for downstream tooling.
// The tree is flattened into a neutral DTO first so the wire formats stay
// stable when internal node types change.
package export

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"decomp/internal/ir"
	"decomp/internal/structured"
)

// Node is the serialized form of one structured node. Unused fields are
// omitted per kind.
type Node struct {
	Kind       string  `yaml:"kind" msgpack:"kind"`
	Addr       string  `yaml:"addr,omitempty" msgpack:"addr,omitempty"`
	Condition  string  `yaml:"condition,omitempty" msgpack:"condition,omitempty"`
	Statements []string `yaml:"statements,omitempty" msgpack:"statements,omitempty"`
	Children   []*Node `yaml:"children,omitempty" msgpack:"children,omitempty"`
	TrueNode   *Node   `yaml:"then,omitempty" msgpack:"then,omitempty"`
	FalseNode  *Node   `yaml:"else,omitempty" msgpack:"else,omitempty"`
	Body       *Node   `yaml:"body,omitempty" msgpack:"body,omitempty"`
	LoopSort   string  `yaml:"loopSort,omitempty" msgpack:"loopSort,omitempty"`
	SwitchExpr string  `yaml:"switchExpr,omitempty" msgpack:"switchExpr,omitempty"`
	Cases      []*Case `yaml:"cases,omitempty" msgpack:"cases,omitempty"`
	Default    *Node   `yaml:"default,omitempty" msgpack:"default,omitempty"`
	Target     string  `yaml:"target,omitempty" msgpack:"target,omitempty"`
}

// Case is the serialized form of one switch case.
type Case struct {
	Keys []int64 `yaml:"keys" msgpack:"keys"`
	Body *Node   `yaml:"body,omitempty" msgpack:"body,omitempty"`
}

// Convert flattens a structured node into its DTO.
func Convert(n structured.Node) *Node {
	if n == nil {
		return nil
	}
	switch node := n.(type) {
	case *ir.Block:
		dto := &Node{Kind: "block", Addr: formatAddr(node.Address)}
		for _, stmt := range node.Statements {
			dto.Statements = append(dto.Statements, stmt.String())
		}
		return dto
	case *structured.SequenceNode:
		dto := &Node{Kind: "sequence", Addr: formatAddr(node.Address)}
		for _, child := range node.Nodes {
			dto.Children = append(dto.Children, Convert(child))
		}
		return dto
	case *structured.MultiNode:
		dto := &Node{Kind: "multi", Addr: formatAddr(node.Address)}
		for _, child := range node.Nodes {
			dto.Children = append(dto.Children, Convert(child))
		}
		return dto
	case *structured.ConditionNode:
		return &Node{
			Kind:      "if",
			Addr:      formatAddr(node.Address),
			Condition: node.Condition.String(),
			TrueNode:  Convert(node.TrueNode),
			FalseNode: Convert(node.FalseNode),
		}
	case *structured.CascadingConditionNode:
		dto := &Node{Kind: "if-ladder", Addr: formatAddr(node.Address)}
		for _, arm := range node.ConditionAndNodes {
			dto.Children = append(dto.Children, &Node{
				Kind:      "arm",
				Condition: arm.Condition.String(),
				Body:      Convert(arm.Node),
			})
		}
		dto.Default = Convert(node.ElseNode)
		return dto
	case *structured.LoopNode:
		return &Node{
			Kind:      "loop",
			Addr:      formatAddr(node.Address),
			LoopSort:  string(node.Sort),
			Condition: node.Condition.String(),
			Body:      Convert(node.Body),
		}
	case *structured.SwitchCaseNode:
		dto := &Node{
			Kind:       "switch",
			Addr:       formatAddr(node.Address),
			SwitchExpr: node.SwitchExpr.String(),
			Default:    Convert(node.DefaultNode),
		}
		if node.SwitchEndAddr != ir.NoAddr {
			dto.Target = formatAddr(node.SwitchEndAddr)
		}
		for _, c := range node.Cases {
			dto.Cases = append(dto.Cases, &Case{Keys: c.Keys, Body: Convert(c.Body)})
		}
		return dto
	case *structured.BreakNode:
		return &Node{Kind: "break", Addr: formatAddr(node.Address), Target: formatAddr(node.Target)}
	case *structured.ConditionalBreakNode:
		return &Node{
			Kind:      "conditional-break",
			Addr:      formatAddr(node.Address),
			Condition: node.Condition.String(),
			Target:    formatAddr(node.Target),
		}
	case *structured.ContinueNode:
		return &Node{Kind: "continue", Addr: formatAddr(node.Address), Target: formatAddr(node.Target)}
	}
	return &Node{Kind: fmt.Sprintf("unknown(%T)", n)}
}

// MarshalYAML serializes a structured tree as YAML.
func MarshalYAML(n structured.Node) ([]byte, error) {
	return yaml.Marshal(Convert(n))
}

// MarshalMsgpack serializes a structured tree as msgpack.
func MarshalMsgpack(n structured.Node) ([]byte, error) {
	return msgpack.Marshal(Convert(n))
}

func formatAddr(addr uint64) string {
	if addr == ir.NoAddr {
		return ""
	}
	return fmt.Sprintf("%#x", addr)
}
