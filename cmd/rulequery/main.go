// Command rulequery is a demo harness that embeds the core the way a host
// application would: it owns a reference store, parses a query, compiles
// and runs it, and prints the resulting bindings. It is scaffolding for
// development and manual verification, not part of the core itself.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/compile"
	"github.com/brightforge/rulequery/parse"
	"github.com/brightforge/rulequery/plan"
	"github.com/brightforge/rulequery/store"
	"github.com/brightforge/rulequery/trace"
	"github.com/brightforge/rulequery/vm"
)

const historyLimit = 8

func main() {
	var (
		dbPath     string
		queryStr   string
		traceFlag  bool
		framesFlag bool
	)
	flag.StringVar(&dbPath, "db", "", "Badger database path (defaults to an in-memory store seeded with demo data)")
	flag.StringVar(&queryStr, "query", "IsA(., Character)", "query expression to run")
	flag.BoolVar(&traceFlag, "trace", false, "print one line per opcode dispatch, colored pass/fail")
	flag.BoolVar(&framesFlag, "frames", false, "print a register-frame-over-time table after each solution")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs a single query against a demo rule/query store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -query 'Jedi(Yoda)'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -query 'IsA(., Character)' -trace -frames\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -db ./demo.badger -query 'Likes(., X)'\n", os.Args[0])
	}
	flag.Parse()

	reg, oracle, closeFn := openStore(dbPath)
	defer closeFn()

	prog := compileQuery(queryStr, reg, oracle)

	it := vm.Iter(prog, oracle)
	names := variableNames(prog)
	var history []trace.Step

	if traceFlag {
		it.Trace = trace.ColorHandler()
	}
	if framesFlag {
		base := it.Trace
		it.Trace = func(ev trace.Event) {
			if base != nil {
				base(ev)
			}
			history = appendStep(history, ev, it, names)
		}
	}

	count := 0
	for it.Next() {
		count++
		fmt.Printf("--- solution %d ---\n", count)
		for _, name := range names {
			if id, ok := it.Variable(name); ok {
				fmt.Printf("  %s = %s\n", name, resolveName(reg, id))
			}
		}
		if framesFlag {
			trace.RenderFrame(os.Stdout, names, history)
		}
	}
	fmt.Printf("%d solution(s)\n", count)
}

// openStore returns a store.Builder's registry and an Oracle to query: a
// Badger-backed one if dbPath is set, or a plain in-memory one otherwise;
// either is seeded fresh with the demo data on every run. The returned func closes
// whatever needs closing.
func openStore(dbPath string) (*storeRegistry, vm.Oracle, func()) {
	b := store.NewBuilder()
	seedDemoData(b)

	if dbPath == "" {
		return &storeRegistry{b}, b.Build(), func() {}
	}

	bo, err := store.OpenBadger(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := bo.Seed(b.Build()); err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}
	return &storeRegistry{b}, bo, func() {
		if err := bo.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}
}

// storeRegistry adapts a store.Builder to the name-resolution needs of
// this command: resolving literal names for the planner, and reverse
// lookups for display.
type storeRegistry struct {
	b *store.Builder
}

func (r *storeRegistry) ID(name string) rulequery.Id { return r.b.ID(name) }

func (r *storeRegistry) Name(id rulequery.Id) (string, bool) { return r.b.Registry().Name(id) }

func resolveName(r *storeRegistry, id rulequery.Id) string {
	if name, ok := r.Name(id); ok {
		return name
	}
	return id.String()
}

// seedDemoData builds a small Star Wars themed dataset exercising every
// term shape the core supports: plain tags, pair predicates, and a
// transitive IsA hierarchy.
func seedDemoData(b *store.Builder) {
	jedi := b.Final("Jedi")
	sith := b.Final("Sith")
	b.Seed(b.Table(jedi), "Yoda", "Luke")
	b.Seed(b.Table(sith), "Vader")

	b.Final("HomePlanet")
	b.Seed(b.Table(b.Pair("HomePlanet", "Dagobah")), "Yoda")
	b.Seed(b.Table(b.Pair("HomePlanet", "Tatooine")), "Luke")

	b.Final("Likes")
	b.Seed(b.Table(b.Pair("Likes", "Leia")), "Luke")
	b.Seed(b.Table(b.Pair("Likes", "Han")), "Leia")

	isA := b.ID("IsA")
	b.MarkTransitive(isA)
	b.MarkFinal(isA)
	character := b.ID("Character")
	b.Seed(b.Table(), "Character")
	b.Seed(b.Table(rulequery.PairOf(isA, character)), "Human")
}

func compileQuery(expr string, reg *storeRegistry, oracle vm.Oracle) *compile.Program {
	terms, err := parse.Parse(expr)
	if err != nil {
		log.Fatalf("parse error: %v", err)
	}
	planned, err := plan.Plan(terms, reg)
	if err != nil {
		log.Fatalf("plan error: %v", err)
	}
	prog, err := compile.Compile(planned, oracle.(compile.MetaOracle))
	if err != nil {
		log.Fatalf("compile error: %v", err)
	}
	return prog
}

func variableNames(prog *compile.Program) []string {
	seen := map[string]bool{}
	var names []string
	for i := 0; i < prog.VariableCount(); i++ {
		if !prog.VariableIsEntity(uint8(i)) {
			continue
		}
		name := prog.VariableName(uint8(i))
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func appendStep(history []trace.Step, ev trace.Event, it *vm.Iterator, names []string) []trace.Step {
	values := make(map[string]string, len(names))
	for _, name := range names {
		if id, ok := it.Variable(name); ok {
			values[name] = id.String()
		}
	}
	history = append(history, trace.Step{
		Label:  fmt.Sprintf("#%d %s", ev.Step, ev.Op),
		Values: values,
	})
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	return history
}
