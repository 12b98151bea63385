package compile

import (
	"fmt"
	"strings"

	"github.com/brightforge/rulequery/plan"
)

// VarInfo describes one register slot of a compiled Program: either a
// variable carried over from planning, or an anonymous register the
// compiler introduced to hold a subset/superset expansion's candidate.
type VarInfo struct {
	Name string
	Kind plan.VarKind
}

// Program is a compiled, directly-executable backtracking program: the
// variable planner's output turned into the opcode sequence the VM runs.
type Program struct {
	Ops       []Op
	Vars      []VarInfo
	TermCount int
}

// VariableCount returns the number of registers the program's frame needs,
// including anonymous expansion registers.
func (p *Program) VariableCount() int { return len(p.Vars) }

// VariableName returns the name of the variable bound to register id, or
// "" if id is out of range.
func (p *Program) VariableName(id uint8) string {
	if int(id) >= len(p.Vars) {
		return ""
	}
	return p.Vars[id].Name
}

// VariableIsEntity reports whether register id holds an Entity-kind
// variable (as opposed to a Table-kind subject variable).
func (p *Program) VariableIsEntity(id uint8) bool {
	if int(id) >= len(p.Vars) {
		return false
	}
	return p.Vars[id].Kind == plan.Entity
}

// FindVariable looks up a variable's register index by name, preferring
// the Entity-kind twin when both a Table and an Entity variable share a
// name, matching plan.Planned.FindVariable's convention.
func (p *Program) FindVariable(name string) (uint8, bool) {
	var tableHit uint8
	found := false
	for i, v := range p.Vars {
		if v.Name != name {
			continue
		}
		if v.Kind == plan.Entity {
			return uint8(i), true
		}
		tableHit, found = uint8(i), true
	}
	return tableHit, found
}

// String disassembles the program, one instruction per line:
// "idx: [P:pass, F:fail] mnemonic I:inreg O:outreg F:(pred[,obj])".
func (p *Program) String() string {
	var b strings.Builder
	for i, op := range p.Ops {
		fmt.Fprintf(&b, "%3d: [P:%d, F:%d] %-8s", i, op.OnPass, op.OnFail, op.Kind)
		if op.RIn != Sentinel {
			fmt.Fprintf(&b, " I:%d", op.RIn)
		}
		if op.ROut != Sentinel {
			fmt.Fprintf(&b, " O:%d", op.ROut)
		}
		switch op.Kind {
		case OpSelect, OpWith, OpSubSet, OpSuperSet:
			if op.Pair.RegMask == 0 && op.Pair.Obj == 0 {
				fmt.Fprintf(&b, " F:(%s)", op.Pair.Pred)
			} else {
				fmt.Fprintf(&b, " F:(%s,%s)", op.Pair.Pred, op.Pair.Obj)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
