package compile

import "github.com/brightforge/rulequery"

// OpKind is the instruction a single Op carries out.
type OpKind uint8

const (
	OpInput OpKind = iota
	OpSelect
	OpWith
	OpSubSet
	OpSuperSet
	OpEach
	OpStore
	OpSetJmp
	OpJump
	OpYield
)

func (k OpKind) String() string {
	switch k {
	case OpInput:
		return "input"
	case OpSelect:
		return "select"
	case OpWith:
		return "with"
	case OpSubSet:
		return "subset"
	case OpSuperSet:
		return "superset"
	case OpEach:
		return "each"
	case OpStore:
		return "store"
	case OpSetJmp:
		return "setjmp"
	case OpJump:
		return "jump"
	case OpYield:
		return "yield"
	default:
		return "?"
	}
}

// Sentinel is the register-index value meaning "no register", mirroring
// plan.Sentinel so the VM never has to import plan just for this constant.
const Sentinel uint8 = 0xFF

// Op is one instruction of a compiled program. The backtracking dispatcher
// (package vm) runs a handler per Kind and moves to OnPass or OnFail
// depending on whether it succeeded, except OpJump which always transfers
// to the label held by the OpSetJmp opcode named by OnPass.
type Op struct {
	Kind OpKind

	// Pair is the filter Select, With, SubSet and SuperSet match against,
	// after the variable slots it names are materialized from the current
	// register frame.
	Pair rulequery.Pair

	// Subject is a literal entity id consulted when RIn == Sentinel: the
	// term's literal subject (Select, With), or the inclusive-set idiom's
	// known root (Store, SubSet, SuperSet).
	Subject rulequery.Id

	// RIn and ROut are register indices; Sentinel means "none". Jump
	// repurposes OnPass (not these) to name the OpSetJmp it reads its
	// label from.
	RIn, ROut uint8

	// OnPass and OnFail are the next op index on success/failure. A
	// negative value terminates the program.
	OnPass, OnFail int
}
