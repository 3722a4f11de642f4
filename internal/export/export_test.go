package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"decomp/internal/cond"
	"decomp/internal/ir"
	"decomp/internal/structured"
)

func sampleTree() structured.Node {
	guard := &cond.Atom{Expr: &ir.BinaryOp{
		Op:    ir.OpCmpEQ,
		Left:  &ir.Register{Name: "rax", Bits: 64},
		Right: &ir.Const{Value: 0, Bits: 64},
	}}
	body := ir.NewBlock(0x1010, 0, &ir.Call{Addr: 0x1010, Target: "work"})
	return structured.NewSequence(0x1000,
		ir.NewBlock(0x1000, 0, &ir.Assign{
			Addr: 0x1000,
			Dst:  &ir.Register{Name: "rax", Bits: 64},
			Src:  &ir.Const{Value: 1, Bits: 64},
		}),
		&structured.LoopNode{
			Address:   0x1010,
			Sort:      structured.LoopWhile,
			Condition: guard,
			Body: structured.NewSequence(0x1010,
				body,
				&structured.ConditionalBreakNode{Address: 0x1020, Condition: guard, Target: 0x2000},
			),
			ContinueAddr: 0x1010,
		},
	)
}

func TestConvertShapes(t *testing.T) {
	dto := Convert(sampleTree())
	require.NotNil(t, dto)
	assert.Equal(t, "sequence", dto.Kind)
	assert.Equal(t, "0x1000", dto.Addr)
	require.Len(t, dto.Children, 2)

	block := dto.Children[0]
	assert.Equal(t, "block", block.Kind)
	require.Len(t, block.Statements, 1)
	assert.Equal(t, "rax = 0x1", block.Statements[0])

	loop := dto.Children[1]
	assert.Equal(t, "loop", loop.Kind)
	assert.Equal(t, string(structured.LoopWhile), loop.LoopSort)
	assert.Equal(t, "rax == 0x0", loop.Condition)
	require.NotNil(t, loop.Body)
	require.Len(t, loop.Body.Children, 2)
	cbr := loop.Body.Children[1]
	assert.Equal(t, "conditional-break", cbr.Kind)
	assert.Equal(t, "0x2000", cbr.Target)
}

func TestConvertSwitch(t *testing.T) {
	sw := &structured.SwitchCaseNode{
		Address:    0x1000,
		SwitchExpr: &ir.Register{Name: "rdx", Bits: 64},
		Cases: []*structured.SwitchCase{
			{Keys: []int64{0, 2}, Body: ir.NewBlock(0x1100, 0)},
			{Keys: []int64{1}, Body: ir.NewBlock(0x1200, 0)},
		},
		DefaultNode:   ir.NewBlock(0x1300, 0),
		SwitchEndAddr: 0x2000,
	}

	dto := Convert(sw)
	assert.Equal(t, "switch", dto.Kind)
	assert.Equal(t, "rdx", dto.SwitchExpr)
	assert.Equal(t, "0x2000", dto.Target)
	require.Len(t, dto.Cases, 2)
	assert.Equal(t, []int64{0, 2}, dto.Cases[0].Keys)
	require.NotNil(t, dto.Default)
	assert.Equal(t, "block", dto.Default.Kind)
}

func TestConvertNilIsNil(t *testing.T) {
	assert.Nil(t, Convert(nil))
}

func TestMarshalYAMLRoundTrip(t *testing.T) {
	data, err := MarshalYAML(sampleTree())
	require.NoError(t, err)

	var back Node
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "sequence", back.Kind)
	require.Len(t, back.Children, 2)
	assert.Equal(t, "loop", back.Children[1].Kind)
}

func TestMarshalMsgpackRoundTrip(t *testing.T) {
	data, err := MarshalMsgpack(sampleTree())
	require.NoError(t, err)

	var back Node
	require.NoError(t, msgpack.Unmarshal(data, &back))
	assert.Equal(t, "sequence", back.Kind)
	require.Len(t, back.Children, 2)
	assert.Equal(t, "conditional-break", back.Children[1].Body.Children[1].Kind)
}
