// Package vm implements the backtracking dispatcher (component E): it
// runs a compiled program (package compile) against a store oracle
// (component A, the Oracle interface below) and streams every register
// frame that satisfies it.
package vm

import "github.com/brightforge/rulequery"

// Table is an opaque handle a store oracle hands back to identify one of
// its tables. Its only meaning is as an argument to a later Oracle call.
type Table uint32

// Oracle is the store's side of the contract (component A): everything
// the VM and the compiler need to know about how entities, tables and
// predicate metadata are laid out, without the VM ever reaching into
// storage internals directly. package store provides two reference
// implementations.
type Oracle interface {
	// RecordOf locates entity: the table holding it and its row within
	// that table.
	RecordOf(entity rulequery.Id) (table Table, row int, ok bool)

	// TableOf returns the table holding entity.
	TableOf(entity rulequery.Id) (table Table, ok bool)

	// TableSetFor returns every table with at least one component whose
	// predicate half is pred, or every table if pred is rulequery.Wildcard.
	TableSetFor(pred rulequery.Id) []Table

	// TableType returns a table's full type: every component/pair id its
	// rows carry.
	TableType(table Table) []rulequery.Id

	// TableEntities returns every entity belonging to table, in a stable
	// order.
	TableEntities(table Table) []rulequery.Id

	// TableRowCount returns the number of entities belonging to table.
	TableRowCount(table Table) int

	// DirectSubjects returns every entity e for which the store holds the
	// literal pair pred(e, object) — object's direct children in the
	// pred hierarchy.
	DirectSubjects(pred, object rulequery.Id) []rulequery.Id

	// HasRole reports whether id carries role in the store's metadata.
	HasRole(id rulequery.Id, role rulequery.Role) bool

	// HasBackingTable reports whether id names an entity with a table at
	// all, i.e. whether a term may use it as a literal subject.
	HasBackingTable(id rulequery.Id) bool
}
