// Package plan implements the variable planner (component C): it discovers
// the variables of a parsed expression, elects a root, computes dependency
// depth, detects unconstrained variables, and sorts variables into the
// order the program compiler (package compile) will emit them in.
package plan

import (
	"fmt"
	"sort"

	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/parse"
)

// VarKind is a variable's storage kind. Subject variables are Table-typed;
// predicate and object variables are Entity-typed.
type VarKind uint8

const (
	Unknown VarKind = iota
	Table
	Entity
)

func (k VarKind) String() string {
	switch k {
	case Table:
		return "Table"
	case Entity:
		return "Entity"
	default:
		return "Unknown"
	}
}

// unreached is the depth sentinel for a variable the root-DFS has not (yet)
// visited.
const unreached = -1

// maxVariables is the implementation limit of spec.md §7: register indices
// fit in one byte with 0xFF reserved as the sentinel "no register".
const maxVariables = 255

// Sentinel is the register-index value meaning "no register" (§3.4, §3.5).
const Sentinel uint8 = 0xFF

// Variable is a named slot in a term whose value the engine determines.
// The same Name may have both a Table and an Entity Variable — the Entity
// twin is created lazily, the first time the name is used in a predicate
// or object position.
type Variable struct {
	Name   string
	Kind   VarKind
	ID     uint8 // assigned once Plan sorts variables; Sentinel until then
	Occurs int
	Depth  int
	Marked bool // cycle-detection guard during depth computation
}

// thisName is the internal key used for the implicit/anonymous subject
// variable written "." in the expression grammar.
const thisName = "This"

// Slot is a resolved term argument: either a concrete literal id or a
// reference to one of Planned's Variables.
type Slot struct {
	Var     *Variable
	Literal rulequery.Id
}

// IsVar reports whether this slot names a variable rather than a literal.
func (s Slot) IsVar() bool { return s.Var != nil }

// ResolvedTerm is one term with every argument resolved to a Slot.
type ResolvedTerm struct {
	Predicate Slot
	Subject   Slot
	Object    Slot
	HasObject bool
	Source    int // index of this term in the original expression
}

// Resolver turns a literal name into a domain id; registry.Registry
// satisfies this.
type Resolver interface {
	ID(name string) rulequery.Id
}

// Planned is the variable planner's output: every term with its arguments
// resolved, the final sorted variable table, and the elected root (nil if
// the expression has no subject variables — a pure fact check).
type Planned struct {
	Terms []ResolvedTerm
	Vars  []*Variable
	Root  *Variable
}

// FindVariable looks up a variable by its public name (the implicit
// subject "." is exposed under the name "This"), preferring the Entity-kind twin if both exist,
// matching §6.2's variable_is_entity convention of favoring the form a
// caller is most likely to want to read.
func (p *Planned) FindVariable(name string) (*Variable, bool) {
	var tableHit *Variable
	for _, v := range p.Vars {
		if v.Name != name {
			continue
		}
		if v.Kind == Entity {
			return v, true
		}
		tableHit = v
	}
	if tableHit != nil {
		return tableHit, true
	}
	return nil, false
}

// key identifies a variable by name and kind, since the same name may have
// both a Table and an Entity variable.
type key struct {
	name string
	kind VarKind
}

type builder struct {
	byKey map[key]*Variable
	order []*Variable
}

func newBuilder() *builder {
	return &builder{byKey: make(map[key]*Variable)}
}

func (b *builder) get(name string, kind VarKind) *Variable {
	k := key{name, kind}
	if v, ok := b.byKey[k]; ok {
		return v
	}
	v := &Variable{Name: name, Kind: kind, ID: Sentinel, Depth: unreached}
	b.byKey[k] = v
	b.order = append(b.order, v)
	return v
}

func (b *builder) lookup(name string, kind VarKind) (*Variable, bool) {
	v, ok := b.byKey[key{name, kind}]
	return v, ok
}

// Plan runs the variable planner over terms, resolving literals through
// resolve and producing a Planned ready for the program compiler.
func Plan(terms []parse.Term, resolve Resolver) (*Planned, error) {
	b := newBuilder()

	// Step 1: scan subjects, building Table-kind variables; track This and
	// the max-occurrence subject variable.
	var thisVar *Variable
	var maxSubj *Variable
	for _, t := range terms {
		switch t.Subject.Kind {
		case parse.ArgThis:
			v := b.get(thisName, Table)
			v.Occurs++
			thisVar = v
		case parse.ArgVariable:
			v := b.get(t.Subject.Name, Table)
			v.Occurs++
			if maxSubj == nil || v.Occurs > maxSubj.Occurs {
				maxSubj = v
			}
		}
	}

	// Step 3: ensure predicate/object variables exist as Entity-kind.
	argVar := func(a parse.Arg) *Variable {
		switch a.Kind {
		case parse.ArgThis:
			return b.get(thisName, Entity)
		case parse.ArgVariable:
			return b.get(a.Name, Entity)
		default:
			return nil
		}
	}

	resolved := make([]ResolvedTerm, 0, len(terms))
	for i, t := range terms {
		rt := ResolvedTerm{HasObject: t.HasObject, Source: i}

		rt.Predicate = resolveSlot(t.Functor, argVar, resolve)
		rt.Subject = resolveSubjectSlot(t.Subject, b, resolve)
		if t.HasObject {
			rt.Object = resolveSlot(t.Object, argVar, resolve)
		}
		resolved = append(resolved, rt)
	}

	// Step 4: elect root.
	var root *Variable
	switch {
	case thisVar != nil:
		root = thisVar
	case maxSubj != nil:
		root = maxSubj
	}

	// Steps 5-6: compute depths via BFS over term co-occurrence, starting
	// at the root. A single worklist pass plays the role of both the
	// subject-DFS (step 5) and the predicate/object crawl (step 6): every
	// variable that shares a term with an already-reached variable is
	// reachable at depth+1, regardless of which slot it occupies, and a
	// variable's same-named Table/Entity twin is reached at its own depth,
	// since both stand for the same variable. This is
	// the worklist realization spec.md's design notes explicitly allow in
	// place of the two-pass description, and produces identical depths.
	if root != nil {
		root.Depth = 0
		queue := []*Variable{root}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			if v.Marked {
				continue
			}
			v.Marked = true
			twinKind := Entity
			if v.Kind == Entity {
				twinKind = Table
			}
			if twin, ok := b.lookup(v.Name, twinKind); ok && twin.Depth == unreached {
				twin.Depth = v.Depth
				queue = append([]*Variable{twin}, queue...)
			}
			for _, rt := range resolved {
				if !participates(rt, v) {
					continue
				}
				for _, other := range participants(rt) {
					if other == v || other.Depth != unreached {
						continue
					}
					other.Depth = v.Depth + 1
					queue = append(queue, other)
				}
			}
		}
	}

	// Step 7: any Table-kind (subject) variable still unreached is
	// unconstrained.
	for _, v := range b.order {
		if v.Kind == Table && v.Depth == unreached {
			return nil, fmt.Errorf("%w: %s", ErrUnconstrainedVariable, v.Name)
		}
	}

	if len(b.order) > maxVariables {
		return nil, fmt.Errorf("%w: %d variables, limit is %d", ErrTooManyVariables, len(b.order), maxVariables)
	}

	// Step 8: sort by (kind, depth ascending, occurs descending) and
	// assign final register indices.
	sorted := append([]*Variable(nil), b.order...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, bb := sorted[i], sorted[j]
		if a.Kind != bb.Kind {
			return a.Kind < bb.Kind
		}
		da, db := normalizedDepth(a), normalizedDepth(bb)
		if da != db {
			return da < db
		}
		return a.Occurs > bb.Occurs
	})
	for i, v := range sorted {
		v.ID = uint8(i)
	}

	return &Planned{Terms: resolved, Vars: sorted, Root: root}, nil
}

// normalizedDepth sorts unreached (Entity-only, never-a-subject) variables
// after every reached one, without disturbing the ascending order of
// reached depths.
func normalizedDepth(v *Variable) int {
	if v.Depth == unreached {
		return int(^uint(0) >> 1)
	}
	return v.Depth
}

func resolveSubjectSlot(a parse.Arg, b *builder, resolve Resolver) Slot {
	switch a.Kind {
	case parse.ArgThis:
		v, _ := b.lookup(thisName, Table)
		return Slot{Var: v}
	case parse.ArgVariable:
		v, _ := b.lookup(a.Name, Table)
		return Slot{Var: v}
	default:
		return Slot{Literal: resolve.ID(a.Name)}
	}
}

func resolveSlot(a parse.Arg, argVar func(parse.Arg) *Variable, resolve Resolver) Slot {
	if a.Kind == parse.ArgThis || a.Kind == parse.ArgVariable {
		return Slot{Var: argVar(a)}
	}
	return Slot{Literal: resolve.ID(a.Name)}
}

// participates reports whether v occupies some slot of rt.
func participates(rt ResolvedTerm, v *Variable) bool {
	for _, p := range participants(rt) {
		if p == v {
			return true
		}
	}
	return false
}

// participants returns every distinct variable occupying a slot of rt.
func participants(rt ResolvedTerm) []*Variable {
	var out []*Variable
	add := func(s Slot) {
		if s.Var != nil {
			out = append(out, s.Var)
		}
	}
	add(rt.Predicate)
	add(rt.Subject)
	if rt.HasObject {
		add(rt.Object)
	}
	return out
}
