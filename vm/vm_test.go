package vm

import (
	"sort"
	"testing"

	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/compile"
	"github.com/brightforge/rulequery/parse"
	"github.com/brightforge/rulequery/plan"
)

// fakeStore is a tiny in-memory Oracle good enough to drive the VM in
// tests, independent of the eventual store package's real backends.
type fakeStore struct {
	next     rulequery.Id
	ids      map[string]rulequery.Id
	tables   map[Table][]rulequery.Id // type: component/pair ids
	entities map[Table][]rulequery.Id
	owner    map[rulequery.Id]Table
	final    map[rulequery.Id]bool
	trans    map[rulequery.Id]bool
	nextTbl  Table
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ids:      make(map[string]rulequery.Id),
		tables:   make(map[Table][]rulequery.Id),
		entities: make(map[Table][]rulequery.Id),
		owner:    make(map[rulequery.Id]Table),
		final:    make(map[rulequery.Id]bool),
		trans:    make(map[rulequery.Id]bool),
	}
}

// ID mints a sequential id per distinct name, special-casing the builtin
// "IsA" relation to the reserved rulequery.IsA id so tests can set role
// metadata on it directly.
func (s *fakeStore) ID(name string) rulequery.Id {
	if id, ok := s.ids[name]; ok {
		return id
	}
	if name == "IsA" {
		s.ids[name] = rulequery.IsA
		return rulequery.IsA
	}
	s.next++
	s.ids[name] = s.next
	return s.next
}

// addTable creates a table with the given type (component/pair ids) and
// entities, all owned by that table.
func (s *fakeStore) addTable(typ []rulequery.Id, entities ...rulequery.Id) Table {
	s.nextTbl++
	t := s.nextTbl
	s.tables[t] = typ
	s.entities[t] = entities
	for _, e := range entities {
		s.owner[e] = t
	}
	return t
}

func (s *fakeStore) RecordOf(entity rulequery.Id) (Table, int, bool) {
	t, ok := s.owner[entity]
	if !ok {
		return 0, 0, false
	}
	for i, e := range s.entities[t] {
		if e == entity {
			return t, i, true
		}
	}
	return t, 0, true
}

func (s *fakeStore) TableOf(entity rulequery.Id) (Table, bool) {
	t, ok := s.owner[entity]
	return t, ok
}

func (s *fakeStore) TableSetFor(pred rulequery.Id) []Table {
	var out []Table
	for t, typ := range s.tables {
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

func (s *fakeStore) TableType(t Table) []rulequery.Id { return s.tables[t] }

func (s *fakeStore) TableEntities(t Table) []rulequery.Id { return s.entities[t] }

func (s *fakeStore) TableRowCount(t Table) int { return len(s.entities[t]) }

func (s *fakeStore) DirectSubjects(pred, object rulequery.Id) []rulequery.Id {
	var out []rulequery.Id
	for t, typ := range s.tables {
		for _, comp := range typ {
			if rulequery.Pred(comp) == pred && rulequery.Obj(comp) == object {
				out = append(out, s.entities[t]...)
				break
			}
		}
	}
	return out
}

func (s *fakeStore) HasRole(id rulequery.Id, role rulequery.Role) bool {
	switch role {
	case rulequery.RoleTransitive:
		return s.trans[id]
	case rulequery.RoleFinal:
		return s.final[id]
	default:
		return false
	}
}

func (s *fakeStore) HasBackingTable(id rulequery.Id) bool {
	_, ok := s.owner[id]
	return ok
}

func compileExpr(t *testing.T, expr string, s *fakeStore) *compile.Program {
	t.Helper()
	terms, err := parse.Parse(expr)
	if err != nil {
		t.Fatalf("parse(%q): %v", expr, err)
	}
	planned, err := plan.Plan(terms, s)
	if err != nil {
		t.Fatalf("plan(%q): %v", expr, err)
	}
	prog, err := compile.Compile(planned, s)
	if err != nil {
		t.Fatalf("compile(%q): %v", expr, err)
	}
	return prog
}

func TestFactCheckSucceedsOnce(t *testing.T) {
	s := newFakeStore()
	jedi := s.ID("Jedi")
	yoda := s.ID("Yoda")
	s.final[jedi] = true
	s.addTable([]rulequery.Id{jedi}, yoda)

	prog := compileExpr(t, "Jedi(Yoda)", s)
	it := Iter(prog, s)

	if !it.Next() {
		t.Fatal("expected a solution")
	}
	if it.Next() {
		t.Fatal("expected exactly one solution")
	}
}

func TestFactCheckFailsWhenAbsent(t *testing.T) {
	s := newFakeStore()
	jedi := s.ID("Jedi")
	sith := s.ID("Sith")
	s.final[jedi] = true
	s.final[sith] = true
	s.addTable([]rulequery.Id{jedi})           // empty Jedi table
	s.addTable([]rulequery.Id{sith}, s.ID("Vader")) // Vader has a backing table, just not the Jedi one

	prog := compileExpr(t, "Jedi(Vader)", s)
	it := Iter(prog, s)
	if it.Next() {
		t.Fatal("expected no solution")
	}
}

func TestSelectEnumeratesEveryMatchingEntity(t *testing.T) {
	s := newFakeStore()
	likes := s.ID("Likes")
	s.final[likes] = true
	luke := s.ID("Luke")
	leia := s.ID("Leia")
	han := s.ID("Han")
	s.addTable([]rulequery.Id{rulequery.PairOf(likes, leia)}, luke)
	s.addTable([]rulequery.Id{rulequery.PairOf(likes, luke)}, han)

	prog := compileExpr(t, "Likes(., X)", s)
	it := Iter(prog, s)

	got := map[rulequery.Id]rulequery.Id{}
	for it.Next() {
		this, ok := it.Variable("This")
		if !ok {
			t.Fatal("This not bound")
		}
		x, ok := it.Variable("X")
		if !ok {
			t.Fatal("X not bound")
		}
		got[this] = x
	}
	want := map[rulequery.Id]rulequery.Id{luke: leia, han: luke}
	if len(got) != len(want) {
		t.Fatalf("got %d solutions, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("This=%v: got X=%v, want %v", k, got[k], v)
		}
	}
}

func TestInclusiveSetIdiomIncludesRootAndDescendants(t *testing.T) {
	s := newFakeStore()
	isA := rulequery.IsA
	s.trans[isA] = true
	s.final[isA] = true
	character := s.ID("Character")
	human := s.ID("Human")
	luke := s.ID("Luke")

	s.addTable(nil, character)
	s.addTable([]rulequery.Id{rulequery.PairOf(isA, character)}, human)
	s.addTable([]rulequery.Id{rulequery.PairOf(isA, human)}, luke)

	prog := compileExpr(t, "IsA(., Character)", s)
	it := Iter(prog, s)

	var got []rulequery.Id
	for it.Next() {
		id, ok := it.Variable("This")
		if !ok {
			t.Fatal("This not bound")
		}
		got = append(got, id)
	}
	want := map[rulequery.Id]bool{character: true, human: true, luke: true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want one entry each of %v", got, want)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected binding %v", id)
		}
	}
}

func TestObjectSubsetExpansionAcceptsTrueDescendant(t *testing.T) {
	s := newFakeStore()
	isA := rulequery.IsA
	s.trans[isA] = true
	s.final[isA] = true
	thing := s.ID("Thing")
	vehicle := s.ID("Vehicle")
	xwing := s.ID("XWing")

	s.addTable(nil, thing)
	s.addTable([]rulequery.Id{rulequery.PairOf(isA, thing)}, vehicle)
	s.addTable([]rulequery.Id{rulequery.PairOf(isA, vehicle)}, xwing)

	prog := compileExpr(t, "IsA(XWing, Thing)", s)
	it := Iter(prog, s)
	if !it.Next() {
		t.Fatal("expected XWing to be accepted as a descendant of Thing")
	}
}

// TestSuperSetFreeSubjectOmitsReflexive pins a documented limitation of
// the both-free transitive case (see transitiveTerm's default branch in
// package compile): the object is widened to its ancestor closure after
// the direct edge is read, so a subject's immediate object is skipped in
// favor of that object's own ancestors, and a subject is never paired
// with itself.
func TestSuperSetFreeSubjectOmitsReflexive(t *testing.T) {
	s := newFakeStore()
	isA := rulequery.IsA
	s.trans[isA] = true
	s.final[isA] = true
	thing := s.ID("Thing")
	character := s.ID("Character")
	human := s.ID("Human")

	s.addTable(nil, thing)
	s.addTable([]rulequery.Id{rulequery.PairOf(isA, thing)}, character)
	s.addTable([]rulequery.Id{rulequery.PairOf(isA, character)}, human)

	prog := compileExpr(t, "IsA(X, Y)", s)
	it := Iter(prog, s)

	type pair struct{ x, y rulequery.Id }
	var got []pair
	for it.Next() {
		x, ok := it.Variable("X")
		if !ok {
			t.Fatal("X not bound")
		}
		y, ok := it.Variable("Y")
		if !ok {
			t.Fatal("Y not bound")
		}
		got = append(got, pair{x, y})
	}

	want := []pair{{human, thing}}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("got %v, want %v (human's direct edge to character is skipped in favor of character's own ancestor, and character alone never widens to anything)", got, want)
	}
	for _, p := range got {
		if p.x == p.y {
			t.Errorf("unexpected reflexive pair %v", p)
		}
	}
}

func TestObjectSubsetExpansionRejectsUnrelatedEntity(t *testing.T) {
	s := newFakeStore()
	isA := rulequery.IsA
	s.trans[isA] = true
	s.final[isA] = true
	thing := s.ID("Thing")
	droid := s.ID("Droid")
	xwing := s.ID("XWing")

	s.addTable(nil, thing)
	s.addTable([]rulequery.Id{rulequery.PairOf(isA, thing)}, droid)
	s.addTable(nil, xwing) // XWing has no IsA edge to Thing at all

	prog := compileExpr(t, "IsA(XWing, Thing)", s)
	it := Iter(prog, s)
	if it.Next() {
		t.Fatal("expected XWing, unrelated to Thing, to be rejected")
	}
}
