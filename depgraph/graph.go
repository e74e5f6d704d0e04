// Package depgraph implements the directed dependee/dependent adjacency
// described by spec.md §4.2 (component C2).
//
// It descends from the teacher's CellDependencyTree, which kept the same
// two-directions-of-one-relationship invariant but persisted it in a bbolt
// bucket with prefix-scanned composite keys so GetDependants could range
// over a B-tree in O(log n). This client holds one sheet's worth of
// ephemeral, server-authoritative state in memory, so the adjacency lives
// in plain maps; ReplaceDependees keeps SetDependsOn's "diff the old set
// against the new one, only touch what changed" shape.
package depgraph

import "github.com/berejant/collabsheet/contracts"

type nameSet map[contracts.CellName]struct{}

// Graph is a directed graph of dependee -> dependent edges. If cell B's
// formula references A, then A is a dependee of B and B is a dependent of
// A: AddDependency(A, B).
type Graph struct {
	// dependents[x] = set of cells whose formulas reference x.
	dependents map[contracts.CellName]nameSet
	// dependees[x] = set of cells that x's formula references.
	dependees map[contracts.CellName]nameSet
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		dependents: make(map[contracts.CellName]nameSet),
		dependees:  make(map[contracts.CellName]nameSet),
	}
}

// AddDependency records that dependent's formula references dependee.
func (g *Graph) AddDependency(dependee, dependent contracts.CellName) {
	if g.dependents[dependee] == nil {
		g.dependents[dependee] = make(nameSet)
	}
	g.dependents[dependee][dependent] = struct{}{}

	if g.dependees[dependent] == nil {
		g.dependees[dependent] = make(nameSet)
	}
	g.dependees[dependent][dependee] = struct{}{}
}

// RemoveDependency removes the dependee -> dependent edge, if present.
func (g *Graph) RemoveDependency(dependee, dependent contracts.CellName) {
	if set, ok := g.dependents[dependee]; ok {
		delete(set, dependent)
		if len(set) == 0 {
			delete(g.dependents, dependee)
		}
	}
	if set, ok := g.dependees[dependent]; ok {
		delete(set, dependee)
		if len(set) == 0 {
			delete(g.dependees, dependent)
		}
	}
}

// ReplaceDependees atomically drops all of dependent's current dependees
// and adds each of newDependees, touching only the symmetric difference.
func (g *Graph) ReplaceDependees(dependent contracts.CellName, newDependees []contracts.CellName) {
	wanted := make(nameSet, len(newDependees))
	for _, d := range newDependees {
		wanted[d] = struct{}{}
	}

	for existing := range g.dependees[dependent] {
		if _, keep := wanted[existing]; !keep {
			g.RemoveDependency(existing, dependent)
		}
	}

	for d := range wanted {
		if _, already := g.dependees[dependent][d]; !already {
			g.AddDependency(d, dependent)
		}
	}
}

// DependentsOf returns the cells whose formulas directly reference dependee.
func (g *Graph) DependentsOf(dependee contracts.CellName) []contracts.CellName {
	return keys(g.dependents[dependee])
}

// DependeesOf returns the cells that dependent's formula directly
// references.
func (g *Graph) DependeesOf(dependent contracts.CellName) []contracts.CellName {
	return keys(g.dependees[dependent])
}

func keys(set nameSet) []contracts.CellName {
	out := make([]contracts.CellName, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	return out
}
