package vm

import (
	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/compile"
)

// dispatch runs op's handler for the current entry, fresh reporting
// whether this is a new invocation (true) or a request for the next
// alternative (false, "redo").
func (it *Iterator) dispatch(idx int, op *compile.Op, fresh bool) bool {
	switch op.Kind {
	case compile.OpInput, compile.OpYield, compile.OpSetJmp:
		return fresh
	case compile.OpSelect:
		return it.runSelect(idx, op, fresh)
	case compile.OpWith:
		return it.runWith(idx, op, fresh)
	case compile.OpSubSet:
		return it.runSubSet(idx, op, fresh)
	case compile.OpSuperSet:
		return it.runSuperSet(idx, op, fresh)
	case compile.OpEach:
		return it.runEach(idx, op, fresh)
	case compile.OpStore:
		return it.runStore(idx, op, fresh)
	default:
		return false
	}
}

func (it *Iterator) resolveRoot(op *compile.Op) root {
	if op.RIn != compile.Sentinel {
		r := it.regs[op.RIn]
		if r.IsTable {
			return root{isTable: true, table: r.Table}
		}
		return root{entity: r.Entity}
	}
	return root{entity: op.Subject}
}

func (it *Iterator) writeOut(reg uint8, entity rulequery.Id) {
	if reg == compile.Sentinel {
		return
	}
	if it.prog.VariableIsEntity(reg) {
		it.regs[reg] = Register{Entity: entity}
		return
	}
	// An entity with no table yields the zero Table; a later With/Select
	// against it simply finds no matching column.
	table, _ := it.oracle.TableOf(entity)
	it.regs[reg] = Register{IsTable: true, Table: table, Entity: entity}
}

func (it *Iterator) materialize(op *compile.Op) rulequery.Filter {
	return rulequery.Materialize(op.Pair, func(idx uint8) rulequery.Id {
		return it.regs[idx].Entity
	})
}

func (it *Iterator) reify(op *compile.Op, f rulequery.Filter, comp rulequery.Id) {
	if f.LoVar {
		if v, ok := op.Pair.PredVar(); ok {
			it.regs[v] = Register{Entity: rulequery.Pred(comp)}
		}
	}
	if f.HiVar {
		if v, ok := op.Pair.ObjVar(); ok {
			it.regs[v] = Register{Entity: rulequery.Obj(comp)}
		}
	}
}

func matches(f rulequery.Filter, comp rulequery.Id) bool {
	if !f.Matches(comp) {
		return false
	}
	return !f.SameVar || rulequery.Pred(comp) == rulequery.Obj(comp)
}

// runSelect enumerates every table with a component matching the pair,
// binding the subject's Table register and reifying any wildcard
// predicate/object slot from the matched component.
func (it *Iterator) runSelect(idx int, op *compile.Op, fresh bool) bool {
	st := &it.state[idx]
	filter := it.materialize(op)
	if fresh {
		bucket := rulequery.Pred(filter.Mask)
		if filter.LoVar {
			bucket = rulequery.Wildcard
		}
		st.tables = it.oracle.TableSetFor(bucket)
		st.pos, st.col = 0, 0
	}
	for st.pos < len(st.tables) {
		table := st.tables[st.pos]
		typ := it.oracle.TableType(table)
		for ; st.col < len(typ); st.col++ {
			comp := typ[st.col]
			if !matches(filter, comp) {
				continue
			}
			it.reify(op, filter, comp)
			it.regs[op.ROut] = Register{IsTable: true, Table: table}
			st.col++
			return true
		}
		st.col = 0
		st.pos++
	}
	return false
}

// runWith checks a single known table for a component matching the pair,
// without binding any subject register.
func (it *Iterator) runWith(idx int, op *compile.Op, fresh bool) bool {
	st := &it.state[idx]
	filter := it.materialize(op)
	if fresh {
		table, ok := it.withTable(op)
		if !ok {
			return false
		}
		st.table, st.col = table, 0
	}
	typ := it.oracle.TableType(st.table)
	for ; st.col < len(typ); st.col++ {
		comp := typ[st.col]
		if !matches(filter, comp) {
			continue
		}
		it.reify(op, filter, comp)
		st.col++
		return true
	}
	return false
}

func (it *Iterator) withTable(op *compile.Op) (Table, bool) {
	if op.RIn != compile.Sentinel {
		return it.regs[op.RIn].Table, true
	}
	return it.oracle.TableOf(op.Subject)
}

// runSubSet walks pred's descendants from the known root, binding each in
// turn. The root is always entity-valued by construction of the compiler
// (an object slot, or a literal predicate id).
func (it *Iterator) runSubSet(idx int, op *compile.Op, fresh bool) bool {
	st := &it.state[idx]
	if fresh {
		st.items = descendants(it.oracle, op.Pair.Pred, it.resolveRoot(op).entity)
		st.pos = 0
	}
	if st.pos >= len(st.items) {
		return false
	}
	it.writeOut(op.ROut, st.items[st.pos])
	st.pos++
	return true
}

// runSuperSet walks pred's ancestors from the known root, which may be a
// bound table (a written subject variable).
func (it *Iterator) runSuperSet(idx int, op *compile.Op, fresh bool) bool {
	st := &it.state[idx]
	if fresh {
		st.items = ancestors(it.oracle, op.Pair.Pred, it.resolveRoot(op))
		st.pos = 0
	}
	if st.pos >= len(st.items) {
		return false
	}
	it.writeOut(op.ROut, st.items[st.pos])
	st.pos++
	return true
}

// runEach forwards each entity of a bound table into an Entity register,
// one per redo.
func (it *Iterator) runEach(idx int, op *compile.Op, fresh bool) bool {
	st := &it.state[idx]
	if fresh {
		st.items = it.oracle.TableEntities(it.regs[op.RIn].Table)
		st.pos = 0
	}
	if st.pos >= len(st.items) {
		return false
	}
	it.regs[op.ROut] = Register{Entity: st.items[st.pos]}
	st.pos++
	return true
}

// runStore yields the inclusive-set idiom's known root itself, exactly
// once per fresh entry.
func (it *Iterator) runStore(idx int, op *compile.Op, fresh bool) bool {
	if !fresh {
		return false
	}
	entity, ok := it.resolveRoot(op).asEntity(it.oracle)
	if !ok {
		return false
	}
	it.writeOut(op.ROut, entity)
	return true
}
