package cfgtext

import (
	"fmt"
	"strconv"

	"decomp/internal/digraph"
	"decomp/internal/ir"
	"decomp/internal/region"
	"decomp/internal/structured"
)

// BuildRegions converts a parsed file into region values ready for
// structuring. Edges follow from three sources: the explicit edge and
// backedge declarations, the constant targets of each block's trailing jump,
// and the targets of declared jump tables.
func BuildRegions(file *File) ([]*region.Region, error) {
	regions := make([]*region.Region, 0, len(file.Regions))
	for _, decl := range file.Regions {
		r, err := buildRegion(decl)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func buildRegion(decl *RegionDecl) (*region.Region, error) {
	headAddr, err := parseAddr(decl.Head)
	if err != nil {
		return nil, err
	}

	blocks := make(map[uint64]*ir.Block)
	var blockOrder []*ir.Block
	for _, item := range decl.Items {
		if item.Block == nil {
			continue
		}
		block, err := buildBlock(item.Block)
		if err != nil {
			return nil, err
		}
		if _, dup := blocks[block.Address]; dup {
			return nil, fmt.Errorf("cfgtext: duplicate block %#x in region %#x", block.Address, headAddr)
		}
		blocks[block.Address] = block
		blockOrder = append(blockOrder, block)
	}

	head, ok := blocks[headAddr]
	if !ok {
		return nil, fmt.Errorf("cfgtext: region head %#x has no block", headAddr)
	}

	r := region.New(head)
	for _, b := range blockOrder {
		r.Graph.AddNode(b)
	}

	// implicit edges from trailing jumps
	for _, b := range blockOrder {
		stmt, ok := b.LastStatement()
		if !ok {
			continue
		}
		for _, t := range ir.ExtractJumpTargets(stmt) {
			if succ, inRegion := blocks[t]; inRegion {
				r.Graph.AddEdge(b, succ)
			}
		}
	}

	for _, item := range decl.Items {
		switch {
		case item.Successors != nil:
			for _, s := range item.Successors.Addrs {
				addr, err := parseAddr(s)
				if err != nil {
					return nil, err
				}
				r.SuccessorAddrs = append(r.SuccessorAddrs, addr)
			}
		case item.Edge != nil:
			from, to, err := edgeEndpoints(blocks, item.Edge.From, item.Edge.To, headAddr)
			if err != nil {
				return nil, err
			}
			r.Graph.AddEdge(from, to)
		case item.BackEdge != nil:
			from, to, err := edgeEndpoints(blocks, item.BackEdge.From, item.BackEdge.To, headAddr)
			if err != nil {
				return nil, err
			}
			r.Graph.AddEdge(from, to)
			r.BackEdges = append(r.BackEdges, digraph.Edge[structured.Node]{From: from, To: to})
		case item.Table != nil:
			jt, err := buildTable(item.Table)
			if err != nil {
				return nil, err
			}
			r.JumpTables[jt.Addr] = jt
			if headBlock, ok := blocks[jt.Addr]; ok {
				for _, target := range jt.Cases {
					if succ, inRegion := blocks[target]; inRegion {
						r.Graph.AddEdge(headBlock, succ)
					}
				}
				if jt.DefaultAddr != ir.NoAddr {
					if succ, inRegion := blocks[jt.DefaultAddr]; inRegion {
						r.Graph.AddEdge(headBlock, succ)
					}
				}
			}
		}
	}

	return r, nil
}

func edgeEndpoints(blocks map[uint64]*ir.Block, fromStr, toStr string, headAddr uint64) (*ir.Block, *ir.Block, error) {
	fromAddr, err := parseAddr(fromStr)
	if err != nil {
		return nil, nil, err
	}
	toAddr, err := parseAddr(toStr)
	if err != nil {
		return nil, nil, err
	}
	from, ok := blocks[fromAddr]
	if !ok {
		return nil, nil, fmt.Errorf("cfgtext: edge endpoint %#x has no block in region %#x", fromAddr, headAddr)
	}
	to, ok := blocks[toAddr]
	if !ok {
		return nil, nil, fmt.Errorf("cfgtext: edge endpoint %#x has no block in region %#x", toAddr, headAddr)
	}
	return from, to, nil
}

func buildBlock(decl *BlockDecl) (*ir.Block, error) {
	addr, err := parseAddr(decl.Addr)
	if err != nil {
		return nil, err
	}
	block := ir.NewBlock(addr, 0)
	for _, s := range decl.Stmts {
		stmt, err := buildStatement(s, addr)
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}

func buildStatement(decl *StmtDecl, blockAddr uint64) (ir.Statement, error) {
	switch {
	case decl.If != nil:
		cond, err := buildExpr(decl.If.Cond)
		if err != nil {
			return nil, err
		}
		tt, err := parseAddr(decl.If.TrueTarget)
		if err != nil {
			return nil, err
		}
		ft, err := parseAddr(decl.If.FalseTarget)
		if err != nil {
			return nil, err
		}
		return &ir.ConditionalJump{
			Addr:        blockAddr,
			Condition:   cond,
			TrueTarget:  &ir.Const{Value: tt, Bits: 64},
			FalseTarget: &ir.Const{Value: ft, Bits: 64},
		}, nil
	case decl.Goto != nil:
		return &ir.Jump{Addr: blockAddr, Target: buildOperand(decl.Goto.Target, 0)}, nil
	case decl.Call != nil:
		args := make([]ir.Expr, 0, len(decl.Call.Args))
		for _, a := range decl.Call.Args {
			arg, err := buildExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return &ir.Call{Addr: blockAddr, Target: decl.Call.Target, Args: args}, nil
	case decl.Ret != nil:
		ret := &ir.Return{Addr: blockAddr}
		if decl.Ret.Value != nil {
			value, err := buildExpr(decl.Ret.Value)
			if err != nil {
				return nil, err
			}
			ret.Value = value
		}
		return ret, nil
	case decl.Assign != nil:
		dst := buildOperand(decl.Assign.Dst, blockAddr)
		src, err := buildExpr(decl.Assign.Src)
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Addr: blockAddr, Dst: dst, Src: src}, nil
	}
	return nil, fmt.Errorf("cfgtext: empty statement in block %#x", blockAddr)
}

var binaryOps = map[string]string{
	"==": ir.OpCmpEQ,
	"!=": ir.OpCmpNE,
	"<":  ir.OpCmpLT,
	"<=": ir.OpCmpLE,
	">":  ir.OpCmpGT,
	">=": ir.OpCmpGE,
	"+":  ir.OpAdd,
	"-":  ir.OpSub,
	"*":  ir.OpMul,
	"&":  ir.OpAnd,
	"|":  ir.OpOr,
	"^":  ir.OpXor,
}

func buildExpr(decl *ExprNode) (ir.Expr, error) {
	expr := ir.Expr(buildOperand(decl.Left, 0))
	if decl.Op != "" {
		op, ok := binaryOps[decl.Op]
		if !ok {
			return nil, fmt.Errorf("cfgtext: unsupported operator %q", decl.Op)
		}
		expr = &ir.BinaryOp{Op: op, Left: expr, Right: buildOperand(decl.Right, 0)}
	}
	if decl.Not {
		expr = ir.Negate(expr)
	}
	return expr, nil
}

func buildOperand(decl *Operand, tag uint64) ir.Expr {
	if decl.Const != nil {
		value, err := strconv.ParseUint(*decl.Const, 0, 64)
		if err != nil {
			value = 0
		}
		return &ir.Const{Value: value, Bits: 64, Tag: tag}
	}
	return &ir.Register{Name: *decl.Reg, Bits: 64, Tag: tag}
}

func buildTable(decl *TableDecl) (*region.JumpTable, error) {
	addr, err := parseAddr(decl.Addr)
	if err != nil {
		return nil, err
	}
	switchExpr := buildOperand(decl.Expr, 0)
	jt := region.NewJumpTable(addr, switchExpr)
	for _, c := range decl.Cases {
		target, err := parseAddr(c.Target)
		if err != nil {
			return nil, err
		}
		for _, k := range c.Keys {
			key, err := parseKey(k)
			if err != nil {
				return nil, err
			}
			if _, dup := jt.Cases[key]; dup {
				return nil, fmt.Errorf("cfgtext: duplicate case key %d in table %#x", key, addr)
			}
			jt.Cases[key] = target
		}
	}
	if decl.Default != nil {
		defaultAddr, err := parseAddr(*decl.Default)
		if err != nil {
			return nil, err
		}
		jt.DefaultAddr = defaultAddr
	}
	return jt, nil
}

func parseAddr(s string) (uint64, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("cfgtext: bad address %q: %w", s, err)
	}
	return addr, nil
}

func parseKey(k *CaseKey) (int64, error) {
	value, err := strconv.ParseUint(k.Value, 0, 63)
	if err != nil {
		return 0, fmt.Errorf("cfgtext: bad case key %q: %w", k.Value, err)
	}
	key := int64(value)
	if k.Neg {
		key = -key
	}
	return key, nil
}
