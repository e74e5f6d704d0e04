package store

import (
	"fmt"

	"github.com/berejant/collabsheet/contracts"
)

// cellsToRecalculate performs the depth-first traversal from start
// following the dependency graph's "dependents" edges, described by
// spec.md §4.3: the sole cycle detector, and the sole producer of a valid
// topological evaluation order.
//
// This replaces the teacher's CellDependencyTree.fetchDependantsRecursive,
// which only guarded against infinite recursion (via an "already fetched"
// set) and neither certified a topological order nor positively detected a
// cycle. The classic fix — visit dependents recursively, and treat
// reaching start again as the cycle signal, since start's own edges are
// the only ones that just changed — is used here instead.
func (s *CellStore) cellsToRecalculate(start contracts.CellName) ([]contracts.CellName, error) {
	visited := make(map[contracts.CellName]bool)
	postorder := make([]contracts.CellName, 0, 8)

	var visit func(name contracts.CellName) error
	visit = func(name contracts.CellName) error {
		visited[name] = true
		for _, dependent := range s.graph.DependentsOf(name) {
			if dependent == start {
				return fmt.Errorf("%w: %s", contracts.ErrCircularDependency, start)
			}
			if !visited[dependent] {
				if err := visit(dependent); err != nil {
					return err
				}
			}
		}
		postorder = append(postorder, name)
		return nil
	}

	if err := visit(start); err != nil {
		return nil, err
	}

	order := make([]contracts.CellName, len(postorder))
	for i, name := range postorder {
		order[len(postorder)-1-i] = name
	}
	return order, nil
}
