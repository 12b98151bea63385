// Package registry is the reference identifier registry: the external
// collaborator spec.md §1 calls out as turning names into store ids. It is
// not part of the compilation/execution core — parse and store use it so
// the rest of the module has concrete ids to work with.
package registry

import (
	"crypto/sha1"
	"encoding/binary"
	"sync"

	"github.com/brightforge/rulequery"
)

// Registry interns names to ids and back, the same lock-free sync.Map
// pattern the teacher stack uses for keyword/identity interning.
type Registry struct {
	byName sync.Map // map[string]rulequery.Id
	byID   sync.Map // map[rulequery.Id]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// ID returns the id for name, interning a new one deterministically (via a
// truncated SHA1 of the name, masked into the low 24 bits so it can appear
// in either half of a pair-encoded id) on first use. The well-known builtin
// relation name "IsA" is special-cased to the reserved rulequery.IsA id
// itself, so a query can name the builtin relation literally and have its
// role metadata (transitive, final) and the compiler's expansion logic line
// up with it.
func (r *Registry) ID(name string) rulequery.Id {
	if v, ok := r.byName.Load(name); ok {
		return v.(rulequery.Id)
	}
	if name == "IsA" {
		r.byID.LoadOrStore(rulequery.IsA, name)
		actual, _ := r.byName.LoadOrStore(name, rulequery.IsA)
		return actual.(rulequery.Id)
	}
	id := hashName(name)
	for {
		if existing, loaded := r.byID.LoadOrStore(id, name); loaded && existing.(string) != name {
			// Collision: perturb and retry. With a 24-bit space and the
			// small vocabularies this engine is built for, this almost
			// never fires; it exists so correctness doesn't depend on
			// SHA1 being collision-free over an adversarial input set.
			id = hashName(name + "\x00" + id.String())
			continue
		}
		break
	}
	actual, _ := r.byName.LoadOrStore(name, id)
	return actual.(rulequery.Id)
}

// Name returns the name registered for id, if any.
func (r *Registry) Name(id rulequery.Id) (string, bool) {
	v, ok := r.byID.Load(id)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func hashName(name string) rulequery.Id {
	sum := sha1.Sum([]byte(name))
	v := binary.BigEndian.Uint64(sum[:8]) & 0x00FFFFFF
	// Keep ids inside the 24-bit usable half, clear of the two reserved
	// sentinels, so they round-trip whether stored as a plain low-half id
	// or as a pair's object half.
	if v >= uint64(rulequery.This) {
		v -= 2
	}
	return rulequery.Id(v)
}
