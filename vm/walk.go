package vm

import "github.com/brightforge/rulequery"

// root names the known endpoint an inclusive-set idiom or a subset/
// superset expansion walks from: either a bound Entity, or a bound Table
// standing in for any of its rows (a transitive predicate's direct edge is
// carried by the table's type, so every row agrees on it).
type root struct {
	isTable bool
	table   Table
	entity  rulequery.Id
}

// directObject returns the single object root relates to via pred,
// reading it off the table's type rather than any one row.
func (r root) directObject(oc Oracle, pred rulequery.Id) (rulequery.Id, bool) {
	table := r.table
	if !r.isTable {
		t, ok := oc.TableOf(r.entity)
		if !ok {
			return 0, false
		}
		table = t
	}
	for _, comp := range oc.TableType(table) {
		if rulequery.Pred(comp) == pred {
			return rulequery.Obj(comp), true
		}
	}
	return 0, false
}

// asEntity returns a concrete entity standing in for root: itself if
// root is already an entity, or an arbitrary representative row if root
// is a table (every row shares the same ancestry, so any one will do for
// the reflexive "root itself" yield).
func (r root) asEntity(oc Oracle) (rulequery.Id, bool) {
	if !r.isTable {
		return r.entity, true
	}
	ents := oc.TableEntities(r.table)
	if len(ents) == 0 {
		return 0, false
	}
	return ents[0], true
}

// descendants returns every entity reachable from root by one or more
// DirectSubjects hops of pred, breadth-first, excluding root itself.
func descendants(oc Oracle, pred rulequery.Id, root rulequery.Id) []rulequery.Id {
	seen := map[rulequery.Id]bool{root: true}
	queue := []rulequery.Id{root}
	var out []rulequery.Id
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range oc.DirectSubjects(pred, cur) {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// ancestors returns every entity reachable from r by one or more
// directObject hops of pred, in order from nearest to farthest, excluding
// r itself. A type hierarchy has at most one direct parent per node, so
// this is a simple chain walk rather than a frontier search.
func ancestors(oc Oracle, pred rulequery.Id, r root) []rulequery.Id {
	seen := map[rulequery.Id]bool{}
	var out []rulequery.Id
	cur := r
	for {
		next, ok := cur.directObject(oc, pred)
		if !ok || seen[next] {
			return out
		}
		seen[next] = true
		out = append(out, next)
		cur = root{entity: next}
	}
}
