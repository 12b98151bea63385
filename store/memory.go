// Package store provides reference implementations of the store oracle
// (component A) the compiler and VM consume: an in-memory MemoryOracle for
// tests and small programs, a Badger-backed BadgerOracle for persisted
// state, and a Builder that seeds either one from plain names.
package store

import (
	"sort"

	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/vm"
)

// MemoryOracle is a map-backed vm.Oracle (and compile.MetaOracle, by
// structural satisfaction) good enough to drive the engine end to end
// without any external dependency. It is not safe for concurrent writes;
// Builder populates one up front and callers read it thereafter.
type MemoryOracle struct {
	tables   map[vm.Table][]rulequery.Id
	entities map[vm.Table][]rulequery.Id
	owner    map[rulequery.Id]vm.Table
	roles    map[rulequery.Id]map[rulequery.Role]bool
	nextTbl  vm.Table
}

func newMemoryOracle() *MemoryOracle {
	return &MemoryOracle{
		tables:   make(map[vm.Table][]rulequery.Id),
		entities: make(map[vm.Table][]rulequery.Id),
		owner:    make(map[rulequery.Id]vm.Table),
		roles:    make(map[rulequery.Id]map[rulequery.Role]bool),
	}
}

func (m *MemoryOracle) addTable(typ []rulequery.Id) vm.Table {
	m.nextTbl++
	t := m.nextTbl
	m.tables[t] = typ
	return t
}

func (m *MemoryOracle) addRow(t vm.Table, entity rulequery.Id) {
	m.entities[t] = append(m.entities[t], entity)
	m.owner[entity] = t
}

func (m *MemoryOracle) setRole(id rulequery.Id, role rulequery.Role) {
	if m.roles[id] == nil {
		m.roles[id] = make(map[rulequery.Role]bool)
	}
	m.roles[id][role] = true
}

func (m *MemoryOracle) RecordOf(entity rulequery.Id) (vm.Table, int, bool) {
	t, ok := m.owner[entity]
	if !ok {
		return 0, 0, false
	}
	for i, e := range m.entities[t] {
		if e == entity {
			return t, i, true
		}
	}
	return t, 0, true
}

func (m *MemoryOracle) TableOf(entity rulequery.Id) (vm.Table, bool) {
	t, ok := m.owner[entity]
	return t, ok
}

// TableSetFor returns every table carrying a component whose predicate half
// is pred, or every table at all when pred is Wildcard, in a stable order.
func (m *MemoryOracle) TableSetFor(pred rulequery.Id) []vm.Table {
	var out []vm.Table
	for t, typ := range m.tables {
		if pred == rulequery.Wildcard {
			out = append(out, t)
			continue
		}
		for _, comp := range typ {
			if rulequery.Pred(comp) == pred {
				out = append(out, t)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *MemoryOracle) TableType(t vm.Table) []rulequery.Id { return m.tables[t] }

func (m *MemoryOracle) TableEntities(t vm.Table) []rulequery.Id { return m.entities[t] }

func (m *MemoryOracle) TableRowCount(t vm.Table) int { return len(m.entities[t]) }

func (m *MemoryOracle) DirectSubjects(pred, object rulequery.Id) []rulequery.Id {
	var out []rulequery.Id
	for t, typ := range m.tables {
		for _, comp := range typ {
			if rulequery.Pred(comp) == pred && rulequery.Obj(comp) == object {
				out = append(out, m.entities[t]...)
				break
			}
		}
	}
	return out
}

func (m *MemoryOracle) HasRole(id rulequery.Id, role rulequery.Role) bool {
	return m.roles[id][role]
}

func (m *MemoryOracle) HasBackingTable(id rulequery.Id) bool {
	_, ok := m.owner[id]
	return ok
}
