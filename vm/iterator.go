package vm

import (
	"time"

	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/compile"
	"github.com/brightforge/rulequery/trace"
)

// Iterator runs a compiled program's backtracking search against an
// Oracle, yielding one register frame per call to Next. Each op saves a
// copy of the registers when it is entered fresh and restores that copy
// before every redo, so a redo sees the same inputs its first entry did.
// Once an op has yielded a frame, nothing mutates again until the next
// call to Next, so the frame a caller reads after a successful Next stays
// stable.
type Iterator struct {
	prog   *compile.Program
	oracle Oracle

	regs    []Register
	frames  [][]Register // per op: the registers as they were on its last fresh entry
	started []bool
	state   []opState

	cursor        int
	cursorViaPass bool

	// Trace, if set, is invoked once per opcode dispatch with the result.
	// Nil by default: tracing costs a time.Now() per dispatch, so a caller
	// not using it pays nothing beyond the nil check.
	Trace trace.Handler
}

// Iter starts a fresh search over prog against oracle.
func Iter(prog *compile.Program, oracle Oracle) *Iterator {
	it := &Iterator{
		prog:    prog,
		oracle:  oracle,
		regs:    make([]Register, prog.VariableCount()),
		frames:  make([][]Register, len(prog.Ops)),
		started: make([]bool, len(prog.Ops)),
		state:   make([]opState, len(prog.Ops)),
	}
	for i := range it.regs {
		if prog.VariableIsEntity(uint8(i)) {
			it.regs[i].Entity = rulequery.Wildcard
		}
	}
	return it
}

// Next advances the search to its next solution, returning false once the
// program is exhausted. Each call resumes exactly where the last left
// off: backtracking from the previous Yield, or starting at the first op
// when called for the first time.
func (it *Iterator) Next() bool {
	idx, viaPass := it.cursor, it.cursorViaPass

	for idx >= 0 {
		op := &it.prog.Ops[idx]

		if op.Kind == compile.OpJump {
			// The walk op re-entered through Jump starts from the inputs
			// the whole block saw at its SetJmp.
			copy(it.regs, it.frames[op.OnPass])
			idx = it.prog.Ops[op.OnPass].OnFail
			viaPass = false
			continue
		}

		fresh := viaPass || !it.started[idx]
		it.started[idx] = true
		if fresh {
			it.frames[idx] = append(it.frames[idx][:0], it.regs...)
		} else {
			copy(it.regs, it.frames[idx])
		}

		var start time.Time
		if it.Trace != nil {
			start = time.Now()
		}
		ok := it.dispatch(idx, op, fresh)
		if it.Trace != nil {
			it.Trace(trace.Event{Step: idx, Op: op.Kind.String(), Fresh: fresh, Ok: ok, Latency: time.Since(start)})
		}

		if op.Kind == compile.OpYield && ok {
			it.cursor, it.cursorViaPass = idx, false
			return true
		}

		if ok {
			idx, viaPass = op.OnPass, true
		} else {
			idx, viaPass = op.OnFail, false
		}
	}

	it.cursor, it.cursorViaPass = idx, false
	return false
}

// Variable returns the current value of a named variable as a concrete
// entity id, and false if the program carries no such variable or it has
// not been bound yet in the current frame.
func (it *Iterator) Variable(name string) (rulequery.Id, bool) {
	id, ok := it.prog.FindVariable(name)
	if !ok {
		return 0, false
	}
	r := it.regs[id]
	if r.IsTable {
		ents := it.oracle.TableEntities(r.Table)
		if len(ents) == 0 {
			return 0, false
		}
		return ents[0], true
	}
	if r.Entity == rulequery.Wildcard {
		return 0, false
	}
	return r.Entity, true
}

// Close releases the iterator. The engine itself holds no external
// resources; this exists so a caller holding a store handle of its own
// can defer both uniformly.
func (it *Iterator) Close() {}
