package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/compile"
	"github.com/brightforge/rulequery/parse"
	"github.com/brightforge/rulequery/plan"
	"github.com/brightforge/rulequery/vm"
)

// run compiles and executes expr end to end against oracle, failing the
// test immediately on any parse/plan/compile error.
func run(t *testing.T, oracle vm.Oracle, resolve plan.Resolver, expr string) *vm.Iterator {
	t.Helper()
	terms, err := parse.Parse(expr)
	require.NoError(t, err, "parse(%q)", expr)
	planned, err := plan.Plan(terms, resolve)
	require.NoError(t, err, "plan(%q)", expr)
	prog, err := compile.Compile(planned, oracle.(compile.MetaOracle))
	require.NoError(t, err, "compile(%q)", expr)
	return vm.Iter(prog, oracle)
}

// TestS1Jedi pins the simplest scenario: a single-argument fact check
// against a final, non-transitive tag.
func TestS1Jedi(t *testing.T) {
	b := NewBuilder()
	jedi := b.Final("Jedi")
	sith := b.Final("Sith")
	b.Seed(b.Table(jedi), "Yoda")
	b.Seed(b.Table(sith), "Vader")
	oracle := b.Build()

	it := run(t, oracle, b, "Jedi(Yoda)")
	assert.True(t, it.Next(), "Yoda should check out as a Jedi")
	assert.False(t, it.Next(), "a fact check should have exactly one solution")

	it = run(t, oracle, b, "Jedi(Vader)")
	assert.False(t, it.Next(), "Vader is a Sith, not a Jedi")
}

// TestS2HomePlanet pins a two-argument, non-transitive pair predicate:
// both a fact check and a Select enumeration over it.
func TestS2HomePlanet(t *testing.T) {
	b := NewBuilder()
	b.Final("HomePlanet")
	b.Seed(b.Table(b.Pair("HomePlanet", "Dagobah")), "Yoda")
	b.Seed(b.Table(b.Pair("HomePlanet", "Tatooine")), "Luke")
	oracle := b.Build()

	it := run(t, oracle, b, "HomePlanet(Yoda, Dagobah)")
	assert.True(t, it.Next(), "Yoda's home planet should be Dagobah")
	assert.False(t, it.Next())

	it = run(t, oracle, b, "HomePlanet(Yoda, Tatooine)")
	assert.False(t, it.Next(), "Yoda's home planet is not Tatooine")

	it = run(t, oracle, b, "HomePlanet(., X)")
	got := map[rulequery.Id]rulequery.Id{}
	for it.Next() {
		this, ok := it.Variable("This")
		require.True(t, ok)
		x, ok := it.Variable("X")
		require.True(t, ok)
		got[this] = x
	}
	want := map[rulequery.Id]rulequery.Id{
		b.ID("Yoda"): b.ID("Dagobah"),
		b.ID("Luke"): b.ID("Tatooine"),
	}
	assert.Equal(t, want, got)
}

// TestS3Likes pins Select enumeration over a pair predicate with several
// rows spread across several entities' tables, including a cycle.
func TestS3Likes(t *testing.T) {
	b := NewBuilder()
	b.Final("Likes")
	b.Seed(b.Table(b.Pair("Likes", "Leia")), "Luke")
	b.Seed(b.Table(b.Pair("Likes", "Han")), "Leia")
	b.Seed(b.Table(b.Pair("Likes", "Luke")), "Han")
	oracle := b.Build()

	it := run(t, oracle, b, "Likes(., X)")
	got := map[rulequery.Id]rulequery.Id{}
	for it.Next() {
		this, ok := it.Variable("This")
		require.True(t, ok)
		x, ok := it.Variable("X")
		require.True(t, ok)
		got[this] = x
	}
	want := map[rulequery.Id]rulequery.Id{
		b.ID("Luke"): b.ID("Leia"),
		b.ID("Leia"): b.ID("Han"),
		b.ID("Han"):  b.ID("Luke"),
	}
	assert.Equal(t, want, got)
}

// TestS4IsAChain pins the inclusive-set idiom: a free subject against a
// known object walks the root plus every descendant of it.
func TestS4IsAChain(t *testing.T) {
	b := NewBuilder()
	isA := b.ID("IsA")
	b.MarkTransitive(isA)
	b.MarkFinal(isA)
	character := b.ID("Character")
	b.Seed(b.Table(), "Character") // Character itself carries no components, just a row
	human := b.ID("Human")
	b.Seed(b.Table(rulequery.PairOf(isA, character)), "Human")
	b.Seed(b.Table(rulequery.PairOf(isA, human)), "Luke")
	oracle := b.Build()

	it := run(t, oracle, b, "IsA(., Character)")
	var got []rulequery.Id
	for it.Next() {
		this, ok := it.Variable("This")
		require.True(t, ok)
		got = append(got, this)
	}
	assert.ElementsMatch(t, []rulequery.Id{b.ID("Character"), b.ID("Human"), b.ID("Luke")}, got)
}

// TestS5IsASubset pins object-subset expansion: a known subject and a
// known object, verified by walking the object's descendants and matching
// the subject's own direct edge against each.
func TestS5IsASubset(t *testing.T) {
	b := NewBuilder()
	isA := b.ID("IsA")
	b.MarkTransitive(isA)
	b.MarkFinal(isA)
	thing := b.ID("Thing")
	b.Seed(b.Table(), "Thing")
	vehicle := b.ID("Vehicle")
	b.Seed(b.Table(rulequery.PairOf(isA, thing)), "Vehicle")
	b.Seed(b.Table(rulequery.PairOf(isA, vehicle)), "XWing")
	b.Seed(b.Table(), "Droid") // unrelated to the Thing/Vehicle lineage
	oracle := b.Build()

	it := run(t, oracle, b, "IsA(XWing, Thing)")
	assert.True(t, it.Next(), "an XWing is a kind of Thing, two IsA hops down")

	it = run(t, oracle, b, "IsA(Droid, Thing)")
	assert.False(t, it.Next(), "a Droid shares no IsA edge with Thing at all")
}

// TestS6SameVar pins the same-variable idiom "X(., X)": a variable
// occupying both the functor and object slots requires the matched
// component's predicate and object halves to agree.
func TestS6SameVar(t *testing.T) {
	b := NewBuilder()
	selfRef := b.ID("SelfRef")
	other := b.ID("Other")
	b.Seed(b.Table(rulequery.PairOf(selfRef, selfRef)), "Snake")
	b.Seed(b.Table(rulequery.PairOf(selfRef, other)), "Fox")
	oracle := b.Build()

	it := run(t, oracle, b, "X(., X)")
	var got []rulequery.Id
	for it.Next() {
		this, ok := it.Variable("This")
		require.True(t, ok)
		x, ok := it.Variable("X")
		require.True(t, ok)
		assert.Equal(t, selfRef, x, "the shared variable must bind to the component's own predicate/object id")
		got = append(got, this)
	}
	assert.Equal(t, []rulequery.Id{b.ID("Snake")}, got, "only the self-referential component should match, never Fox's ordinary one")
}
