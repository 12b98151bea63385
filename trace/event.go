// Package trace provides optional observability for a running program: a
// Handler callback the VM invokes once per opcode dispatch (mirroring the
// teacher stack's own annotation Handler/Event shape), plus a RenderFrame
// helper for printing a solution's bound variables as a table.
package trace

import "time"

// Event is one opcode dispatch the VM performed. A program resumed many
// times (one Next() per solution) emits many Events per call, one per
// opcode visited along the way, including redos of opcodes already seen.
type Event struct {
	Step    int           // index into the program's Ops
	Op      string        // opcode mnemonic, e.g. "select", "with"
	Fresh   bool          // true on first entry to Step, false on redo
	Ok      bool          // whether the opcode produced a result this call
	Latency time.Duration // wall time the dispatch itself took
}

// Handler processes trace events as they occur.
type Handler func(Event)
