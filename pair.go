package rulequery

// RegMask bits identify which slots of a Pair are variables rather than
// literals.
const (
	PredIsVar uint8 = 1 << iota
	ObjIsVar
)

// Slot describes one argument of a term after variable resolution: either a
// literal domain Id, or the register index of the variable bound to that
// slot. A term with a single argument has no object slot at all, which is
// represented by the zero-value literal Slot (Id 0) — PairOf(pred, 0)
// degenerates to the bare predicate id, matching a tag/component lookup
// rather than a pair lookup.
type Slot struct {
	IsVar bool
	Id    Id    // literal id, valid when !IsVar
	Var   uint8 // variable register index, valid when IsVar
}

// LiteralSlot builds a Slot holding a constant domain id.
func LiteralSlot(id Id) Slot { return Slot{Id: id} }

// VarSlot builds a Slot holding a variable's register index.
func VarSlot(idx uint8) Slot { return Slot{IsVar: true, Var: idx} }

// Pair is the compile-time encoding of a term's (predicate, object)
// portion. It is immutable once built by Encode.
type Pair struct {
	Pred, Obj  Id
	RegMask    uint8
	Transitive bool // predicate has the transitive property
	Final      bool // predicate has no subtypes
}

// Encode turns one term's predicate/object slots into a Pair. transitive
// and final are store metadata (HasRole lookups) for the predicate.
func Encode(pred, obj Slot, transitive, final bool) Pair {
	p := Pair{Transitive: transitive, Final: final}
	if pred.IsVar {
		p.Pred = Id(pred.Var)
		p.RegMask |= PredIsVar
	} else {
		p.Pred = pred.Id
	}
	if obj.IsVar {
		p.Obj = Id(obj.Var)
		p.RegMask |= ObjIsVar
	} else {
		p.Obj = obj.Id
	}
	return p
}

// PredVar returns the predicate slot's variable index and true, if the
// predicate slot is a variable.
func (p Pair) PredVar() (uint8, bool) {
	if p.RegMask&PredIsVar == 0 {
		return 0, false
	}
	return uint8(p.Pred), true
}

// ObjVar returns the object slot's variable index and true, if the object
// slot is a variable.
func (p Pair) ObjVar() (uint8, bool) {
	if p.RegMask&ObjIsVar == 0 {
		return 0, false
	}
	return uint8(p.Obj), true
}

// Filter is the run-time, variable-substituted form of a Pair: a concrete
// (pred, obj) id plus the masks needed to test candidate ids for a match,
// and a record of which halves still need to be reified from a match.
type Filter struct {
	Mask Id // pair(pred, obj) after substitution; unresolved (wildcard) slots remain Wildcard

	LoVar   bool // predicate slot resolved to Wildcard and must be reified from a match
	HiVar   bool // object slot resolved to Wildcard and must be reified from a match
	SameVar bool // LoVar && HiVar && both slots are the same variable

	ExprMask, ExprMatch Id // (id & ExprMask) == ExprMatch iff id matches this filter

	Transitive bool
	Final      bool

	// Column is a hint naming the first column of the matched table's type
	// known to satisfy Mask. -1 means "not yet known"; Materialize always
	// sets -1 and nothing in this module fills it in.
	Column int
}

// Materialize substitutes the variable slots of pair from reg (which maps a
// register index to its currently bound Id) and derives the match masks.
// reg must return Wildcard for any register that has not yet been written.
func Materialize(pair Pair, reg func(varIdx uint8) Id) Filter {
	pred, obj := pair.Pred, pair.Obj
	var loVar, hiVar bool

	predVarIdx, predIsVar := pair.PredVar()
	if predIsVar {
		pred = reg(predVarIdx)
		loVar = pred == Wildcard
	}

	objVarIdx, objIsVar := pair.ObjVar()
	if objIsVar {
		obj = reg(objVarIdx)
		hiVar = obj == Wildcard
	}

	sameVar := loVar && hiVar && predIsVar && objIsVar && predVarIdx == objVarIdx

	mask := PairOf(pred, obj)
	exprMask := Id(^uint64(0))
	if loVar {
		exprMask &^= loValueMask
	}
	if hiVar {
		exprMask &^= hiValueMask
	}
	exprMatch := mask & exprMask

	return Filter{
		Mask:       mask,
		LoVar:      loVar,
		HiVar:      hiVar,
		SameVar:    sameVar,
		ExprMask:   exprMask,
		ExprMatch:  exprMatch,
		Transitive: pair.Transitive,
		Final:      pair.Final,
		Column:     -1,
	}
}

// Matches reports whether id satisfies the filter.
func (f Filter) Matches(id Id) bool {
	return id&f.ExprMask == f.ExprMatch
}
