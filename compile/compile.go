// Package compile turns a planned expression (package plan) into an
// executable backtracking program (component D): a flat sequence of
// opcodes the VM (package vm) dispatches, each carrying the next-on-pass
// and next-on-fail instruction index.
package compile

import (
	"fmt"

	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/plan"
)

// MetaOracle is the slice of the store oracle the compiler itself
// consults: a literal predicate's role metadata, and whether a literal
// entity has a backing table at all. Any vm.Oracle satisfies this
// structurally, since it declares the same two methods.
type MetaOracle interface {
	HasRole(id rulequery.Id, role rulequery.Role) bool
	HasBackingTable(id rulequery.Id) bool
}

// Compile turns planned into a Program ready for the VM to run.
func Compile(planned *plan.Planned, meta MetaOracle) (*Program, error) {
	b := newBuilder(planned)

	// Prologue: Input falls through to the body on first entry; on redo
	// (the whole program exhausted) it terminates the search.
	b.emit(Op{Kind: OpInput})

	// Body, sweep 1: terms whose subject is a literal — narrow the search
	// first against what's already fully known.
	for _, rt := range planned.Terms {
		if rt.Subject.IsVar() {
			continue
		}
		if err := b.term(rt, meta); err != nil {
			return nil, err
		}
	}

	// Body, sweep 2: remaining terms, grouped by subject variable in
	// sorted order, so a variable's Select always precedes its Withs.
	for _, v := range planned.Vars {
		if v.Kind != plan.Table {
			continue
		}
		for _, rt := range planned.Terms {
			if !rt.Subject.IsVar() || rt.Subject.Var != v {
				continue
			}
			if err := b.term(rt, meta); err != nil {
				return nil, err
			}
		}
	}

	// Epilogue: every Entity variable whose Table twin is written but is
	// itself still unwritten is reified, and every Table variable gets an
	// Entity-kind twin (minting one if no term ever needed it) so a
	// Table-kind result — potentially many rows — is always readable from
	// the yielded frame as the concrete entity that row belongs to, one
	// yield per row.
	for _, v := range planned.Vars {
		switch v.Kind {
		case plan.Entity:
			b.ensureEntityWritten(v)
		case plan.Table:
			b.ensureEntityTwin(v)
		}
	}

	b.emit(Op{Kind: OpYield})

	return &Program{Ops: b.ops, Vars: b.vars, TermCount: len(planned.Terms)}, nil
}

type builder struct {
	ops     []Op
	vars    []VarInfo
	written []bool
}

func newBuilder(planned *plan.Planned) *builder {
	b := &builder{}
	for _, v := range planned.Vars {
		b.vars = append(b.vars, VarInfo{Name: v.Name, Kind: v.Kind})
	}
	b.written = make([]bool, len(b.vars))
	return b
}

// anon allocates a fresh compiler-internal register, used to hold a
// predicate-subset or object-subset expansion's walking candidate.
func (b *builder) anon(kind plan.VarKind) uint8 {
	id := uint8(len(b.vars))
	return b.addVar(fmt.Sprintf("$%d", id), kind)
}

func (b *builder) addVar(name string, kind plan.VarKind) uint8 {
	id := uint8(len(b.vars))
	b.vars = append(b.vars, VarInfo{Name: name, Kind: kind})
	b.written = append(b.written, false)
	return id
}

// findVar looks up a register by name and kind among the compiler's own
// bookkeeping (including registers it has minted since planning), without
// FindVariable's Entity-preferring convention.
func (b *builder) findVar(name string, kind plan.VarKind) (uint8, bool) {
	for i, info := range b.vars {
		if info.Name == name && info.Kind == kind {
			return uint8(i), true
		}
	}
	return 0, false
}

// ensureEntityTwin guarantees that Table variable v has a same-named
// Entity-kind register holding the current row, minting one if no term
// ever used v at entity granularity, and forwarding it with Each if it is
// not written yet.
func (b *builder) ensureEntityTwin(v *plan.Variable) {
	id, ok := b.findVar(v.Name, plan.Entity)
	if !ok {
		id = b.addVar(v.Name, plan.Entity)
	}
	if b.written[id] {
		return
	}
	b.emit(Op{Kind: OpEach, RIn: v.ID, ROut: id})
	b.written[id] = true
}

// emit appends op, assigning the default sequential-chain wiring: fall
// through to the next slot on success, retry the previous slot on
// failure. Callers needing different wiring (the inclusive-set idiom)
// overwrite it immediately after via at().
func (b *builder) emit(op Op) int {
	idx := len(b.ops)
	op.OnPass = idx + 1
	if idx > 0 {
		op.OnFail = idx - 1
	} else {
		op.OnFail = -1
	}
	b.ops = append(b.ops, op)
	return idx
}

func (b *builder) at(idx int) *Op { return &b.ops[idx] }

func (b *builder) slotWritten(s plan.Slot) bool {
	if !s.IsVar() {
		return true
	}
	return b.written[s.Var.ID]
}

// slotRoot returns the literal id and register to seed an inclusive-set
// idiom or a subset/superset expansion from, matching the RIn/Subject
// convention Select and With already use.
func (b *builder) slotRoot(s plan.Slot) (rulequery.Id, uint8) {
	if !s.IsVar() {
		return s.Literal, Sentinel
	}
	return 0, s.Var.ID
}

func toSlot(s plan.Slot) rulequery.Slot {
	if s.IsVar() {
		return rulequery.VarSlot(s.Var.ID)
	}
	return rulequery.LiteralSlot(s.Literal)
}

func termObjSlot(rt plan.ResolvedTerm) rulequery.Slot {
	if !rt.HasObject {
		return rulequery.Slot{}
	}
	return toSlot(rt.Object)
}

func predTraits(pred plan.Slot, meta MetaOracle) (transitive, final bool) {
	if pred.IsVar() {
		return false, true
	}
	return meta.HasRole(pred.Literal, rulequery.RoleTransitive), meta.HasRole(pred.Literal, rulequery.RoleFinal)
}

// term compiles one resolved term, picking the opcode shape its
// predicate's role metadata calls for.
func (b *builder) term(rt plan.ResolvedTerm, meta MetaOracle) error {
	transitive, final := predTraits(rt.Predicate, meta)

	switch {
	case rt.Predicate.IsVar():
		return b.emitLookup(rt, toSlot(rt.Predicate), termObjSlot(rt), transitive, final, meta)

	case !final:
		// Predicate-subset expansion: the predicate has subtypes, so walk
		// IsA down from it to find the subtype actually stored, binding
		// an anonymous Entity register used as the pair's predicate slot.
		anon := b.anon(plan.Entity)
		b.emit(Op{Kind: OpSubSet, Pair: rulequery.Encode(rulequery.LiteralSlot(rulequery.IsA), rulequery.VarSlot(anon), true, true), Subject: rt.Predicate.Literal, RIn: Sentinel, ROut: anon})
		return b.emitLookup(rt, rulequery.VarSlot(anon), termObjSlot(rt), transitive, final, meta)

	case !transitive:
		return b.emitLookup(rt, toSlot(rt.Predicate), termObjSlot(rt), transitive, final, meta)

	case !rt.HasObject:
		// A transitive, final, single-argument term has no object to
		// expand: a tag check against the predicate itself.
		return b.emitLookup(rt, toSlot(rt.Predicate), rulequery.Slot{}, transitive, final, meta)

	default:
		return b.transitiveTerm(rt, meta)
	}
}

// transitiveTerm handles a two-argument term over a transitive, final
// predicate: which opcode shape it needs depends on which of subject and
// object are already written.
func (b *builder) transitiveTerm(rt plan.ResolvedTerm, meta MetaOracle) error {
	predID := rt.Predicate.Literal
	subjWritten := b.slotWritten(rt.Subject)
	objWritten := b.slotWritten(rt.Object)

	switch {
	case subjWritten && objWritten:
		// Object-subset expansion: verify the relation holds by walking
		// descendants of the known object and checking the known
		// subject's direct edge against each.
		anon := b.anon(plan.Entity)
		rootLit, rootReg := b.slotRoot(rt.Object)
		b.emit(Op{Kind: OpSubSet, Pair: rulequery.Encode(rulequery.LiteralSlot(predID), rulequery.VarSlot(anon), true, true), Subject: rootLit, RIn: rootReg, ROut: anon})
		return b.emitLookup(rt, rulequery.LiteralSlot(predID), rulequery.VarSlot(anon), true, true, meta)

	case subjWritten && !objWritten:
		rootLit, rootReg := b.slotRoot(rt.Subject)
		b.idiomBlock(OpSuperSet, predID, rootLit, rootReg, rt.Object.Var.ID)
		b.written[rt.Object.Var.ID] = true
		return nil

	case !subjWritten && objWritten:
		rootLit, rootReg := b.slotRoot(rt.Object)
		b.idiomBlock(OpSubSet, predID, rootLit, rootReg, rt.Subject.Var.ID)
		b.written[rt.Subject.Var.ID] = true
		return nil

	default:
		// Both free: an ordinary Select binds the subject's table and
		// reifies the direct object; the object is then widened to its
		// full ancestor closure so a later term can still match any
		// valid supertype binding. The reflexive (subject-as-its-own
		// ancestor) case this omits for a free subject is a documented
		// limitation, not a bug: see the design notes.
		if err := b.emitLookup(rt, toSlot(rt.Predicate), toSlot(rt.Object), true, true, meta); err != nil {
			return err
		}
		b.emit(Op{Kind: OpSuperSet, Pair: rulequery.Encode(rulequery.LiteralSlot(predID), rulequery.VarSlot(rt.Object.Var.ID), true, true), RIn: rt.Object.Var.ID, ROut: rt.Object.Var.ID})
		return nil
	}
}

// idiomBlock emits the four-opcode inclusive-set sequence: SetJmp, Store,
// kind (SubSet or SuperSet), Jump. Store yields the root itself exactly
// once (the reflexive case); kind then walks past it — descendants for
// SubSet, ancestors for SuperSet — and Jump lets a downstream failure
// re-enter the walk for its next candidate instead of retrying Store.
func (b *builder) idiomBlock(kind OpKind, pred rulequery.Id, rootLiteral rulequery.Id, rootReg uint8, out uint8) {
	k := len(b.ops)

	b.emit(Op{Kind: OpSetJmp})
	b.emit(Op{Kind: OpStore, Subject: rootLiteral, RIn: rootReg, ROut: out})
	b.emit(Op{
		Kind:    kind,
		Pair:    rulequery.Encode(rulequery.LiteralSlot(pred), rulequery.VarSlot(out), true, true),
		Subject: rootLiteral,
		RIn:     rootReg,
		ROut:    out,
	})
	b.emit(Op{Kind: OpJump})

	b.at(k).OnFail = k + 2     // SetJmp's redo diverts straight to the walk op
	b.at(k + 1).OnPass = k + 4 // Store's single success skips the walk entirely
	b.at(k + 2).OnPass = k + 4 // a found ancestor/descendant continues past the block
	b.at(k + 2).OnFail = k - 1 // the walk's true exhaustion escapes the whole block
	b.at(k + 3).OnPass = k     // Jump: index of the SetJmp whose label it reads
}

// emitLookup emits the term's final Select or With, after promoting any
// predicate/object Entity variable whose Table twin is ready but which is
// itself still unwritten.
func (b *builder) emitLookup(rt plan.ResolvedTerm, predSlot, objSlot rulequery.Slot, transitive, final bool, meta MetaOracle) error {
	b.ensureSlotWritten(rt.Predicate)
	if rt.HasObject {
		b.ensureSlotWritten(rt.Object)
	}

	pair := rulequery.Encode(predSlot, objSlot, transitive, final)

	if !rt.Subject.IsVar() {
		if !meta.HasBackingTable(rt.Subject.Literal) {
			return fmt.Errorf("%w: %s", ErrNoBackingTable, rt.Subject.Literal)
		}
		b.emit(Op{Kind: OpWith, Pair: pair, Subject: rt.Subject.Literal, RIn: Sentinel, ROut: Sentinel})
		b.markWritten(rt)
		return nil
	}

	v := rt.Subject.Var
	if b.written[v.ID] {
		b.emit(Op{Kind: OpWith, Pair: pair, RIn: v.ID, ROut: Sentinel})
	} else {
		b.emit(Op{Kind: OpSelect, Pair: pair, RIn: Sentinel, ROut: v.ID})
		b.written[v.ID] = true
	}
	b.markWritten(rt)
	return nil
}

func (b *builder) markWritten(rt plan.ResolvedTerm) {
	if rt.Predicate.IsVar() {
		b.written[rt.Predicate.Var.ID] = true
	}
	if rt.HasObject && rt.Object.IsVar() {
		b.written[rt.Object.Var.ID] = true
	}
}

// ensureSlotWritten promotes a single slot's variable (see
// ensureEntityWritten) if the slot names one.
func (b *builder) ensureSlotWritten(s plan.Slot) {
	if !s.IsVar() {
		return
	}
	b.ensureEntityWritten(s.Var)
}

// ensureEntityWritten emits an Each opcode forwarding an Entity variable's
// Table twin into it, if the twin is written but the Entity variable
// itself is not. This is both the in-body promotion step (called before a
// term uses a variable at entity granularity) and the epilogue step
// (called once more per variable after the body, so a variable no term
// referenced at entity granularity is still available to read from the
// yielded frame).
func (b *builder) ensureEntityWritten(v *plan.Variable) {
	if v.Kind != plan.Entity || b.written[v.ID] {
		return
	}
	tableID, ok := b.tableTwin(v.Name)
	if !ok || !b.written[tableID] {
		return
	}
	b.emit(Op{Kind: OpEach, RIn: tableID, ROut: v.ID})
	b.written[v.ID] = true
}

func (b *builder) tableTwin(name string) (uint8, bool) {
	for i, info := range b.vars {
		if info.Name == name && info.Kind == plan.Table {
			return uint8(i), true
		}
	}
	return 0, false
}
