package store

import (
	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/registry"
	"github.com/brightforge/rulequery/vm"
)

// Builder assembles a MemoryOracle from plain names, interning each one
// through a registry.Registry so the same name always resolves to the same
// id across a program's lifetime.
type Builder struct {
	reg *registry.Registry
	mo  *MemoryOracle
}

// NewBuilder starts a fresh builder over an empty MemoryOracle.
func NewBuilder() *Builder {
	return &Builder{reg: registry.New(), mo: newMemoryOracle()}
}

// ID interns name, returning its id.
func (b *Builder) ID(name string) rulequery.Id { return b.reg.ID(name) }

// MarkTransitive records that id's relation is transitive (IsA-like: walking
// one edge implies walking every edge reachable from it).
func (b *Builder) MarkTransitive(id rulequery.Id) { b.mo.setRole(id, rulequery.RoleTransitive) }

// MarkFinal records that id, used as a predicate, has no subtypes, so the
// compiler matches it directly instead of expanding it through IsA.
func (b *Builder) MarkFinal(id rulequery.Id) { b.mo.setRole(id, rulequery.RoleFinal) }

// Transitive interns name and marks it transitive in one step.
func (b *Builder) Transitive(name string) rulequery.Id {
	id := b.ID(name)
	b.MarkTransitive(id)
	return id
}

// Final interns name and marks it final in one step.
func (b *Builder) Final(name string) rulequery.Id {
	id := b.ID(name)
	b.MarkFinal(id)
	return id
}

// Pair interns pred and obj and returns the pair-encoded id for pred(obj),
// e.g. the component id for "IsA(Character)".
func (b *Builder) Pair(pred, obj string) rulequery.Id {
	return rulequery.PairOf(b.ID(pred), b.ID(obj))
}

// Table declares a table carrying the given components (plain ids, or
// pair ids built with Pair) and returns its handle.
func (b *Builder) Table(components ...rulequery.Id) vm.Table {
	return b.mo.addTable(components)
}

// Seed interns each of names and adds one row per name to table, returning
// the interned ids in the same order.
func (b *Builder) Seed(table vm.Table, names ...string) []rulequery.Id {
	ids := make([]rulequery.Id, len(names))
	for i, name := range names {
		id := b.ID(name)
		b.mo.addRow(table, id)
		ids[i] = id
	}
	return ids
}

// Build returns the assembled MemoryOracle. The builder may keep being used
// afterward; the returned oracle reflects every call made before and after,
// since both share the same underlying maps.
func (b *Builder) Build() *MemoryOracle { return b.mo }

// Registry exposes the underlying name registry, e.g. so a caller can look
// up a name's id after the fact without threading it through by hand.
func (b *Builder) Registry() *registry.Registry { return b.reg }
