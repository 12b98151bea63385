package vm

import "github.com/brightforge/rulequery"

// Register is one slot of a program's frame. A Table-kind variable's
// register holds a Table; an Entity-kind variable's register holds a
// concrete Id, rulequery.Wildcard until something writes it.
type Register struct {
	IsTable bool
	Table   Table
	Entity  rulequery.Id
}

// opState is the per-opcode backtracking bookkeeping an Iterator keeps
// alongside the register frame: a redoable op's candidate list and a
// cursor into it. Which fields apply depends on the opcode — Select and
// With walk columns of one or more tables, SubSet/SuperSet/Each walk a
// precomputed entity list.
type opState struct {
	tables []Table
	table  Table
	items  []rulequery.Id
	pos    int
	col    int
}
