package registry

import (
	"testing"

	"github.com/brightforge/rulequery"
)

func TestIDIsStableAndInterned(t *testing.T) {
	r := New()
	a := r.ID("Yoda")
	b := r.ID("Yoda")
	if a != b {
		t.Fatalf("expected stable id for repeated lookup, got %v and %v", a, b)
	}

	name, ok := r.Name(a)
	if !ok || name != "Yoda" {
		t.Fatalf("expected Name to resolve back to Yoda, got %q, %v", name, ok)
	}
}

func TestIDNeverCollidesWithSentinels(t *testing.T) {
	r := New()
	for _, name := range []string{"Yoda", "Luke", "Rey", "BB8", "Tatooine", "Dagobah", "IsA", "HomePlanet"} {
		id := r.ID(name)
		if id == rulequery.Wildcard || id == rulequery.This {
			t.Fatalf("id for %q collided with a reserved sentinel: %v", name, id)
		}
	}
}

func TestDistinctNamesGetDistinctIDs(t *testing.T) {
	r := New()
	a := r.ID("Luke")
	b := r.ID("Rey")
	if a == b {
		t.Fatalf("expected distinct ids, both got %v", a)
	}
}
