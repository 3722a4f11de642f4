// Package structuring converts one region of a lifted control-flow graph at a
// time into a tree of structured nodes: sequences, conditions, loops,
// switch-cases and break/continue markers. The caller drives regions
// innermost first; a failure to structure one region is reported as a
// *StructuringError and must not stop the surrounding decompilation.
package structuring

import (
	"github.com/tliron/commonlog"

	"decomp/internal/ir"
	"decomp/internal/region"
	"decomp/internal/structured"
)

var log = commonlog.GetLogger("structuring")

// Structurer structures a single region. It owns no state beyond the region
// being processed; one structurer per region, one goroutine per structurer.
type Structurer struct {
	region *region.Region
}

// Structure converts a region into a structured-node tree. The result carries
// no unfinalized switch placeholders; their presence would be an internal
// error and is checked before returning.
func Structure(r *region.Region) (structured.Node, error) {
	s := &Structurer{region: r}
	return s.structure()
}

func (s *Structurer) structure() (structured.Node, error) {
	region.CondenseChains(s.region)

	var result structured.Node
	var err error
	if s.region.HasCycle() {
		result, err = s.structureCyclic()
	} else {
		result, err = s.structureAcyclic(s.region)
	}
	if err != nil {
		return nil, err
	}

	s.simplify(result)

	if err := s.checkNoPlaceholders(result); err != nil {
		return nil, err
	}
	return result, nil
}

// checkNoPlaceholders verifies that no unfinalized switch construct survived
// structuring; one reaching the code generator would render garbage. Both the
// node form and the head statement parked inside a block count.
func (s *Structurer) checkNoPlaceholders(root structured.Node) error {
	var leftoverAddr uint64
	found := false
	walker := &structured.Walker{
		IncompleteSwitchFunc: func(n *structured.IncompleteSwitchCaseNode, ctx structured.WalkContext) {
			if !found {
				found, leftoverAddr = true, n.Address
			}
		},
		BlockFunc: func(b *ir.Block, ctx structured.WalkContext) {
			if found {
				return
			}
			for _, stmt := range b.Statements {
				if head, ok := stmt.(*structured.IncompleteSwitchCaseHeadStatement); ok {
					found, leftoverAddr = true, head.Addr
					return
				}
			}
		},
	}
	walker.Walk(root)
	if found {
		return s.errorf("unfinalized switch-case at %#x survived structuring", leftoverAddr)
	}
	return nil
}
