package depgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/berejant/collabsheet/contracts"
	"github.com/berejant/collabsheet/depgraph"
)

func symmetric(t *testing.T, g *depgraph.Graph, all []contracts.CellName) {
	t.Helper()
	for _, x := range all {
		for _, d := range g.DependentsOf(x) {
			assert.Contains(t, g.DependeesOf(d), x, "%s should be a dependee of %s", x, d)
		}
	}
}

func TestAddRemoveDependency_symmetry(t *testing.T) {
	g := depgraph.New()
	g.AddDependency("A1", "B1")
	g.AddDependency("A1", "C1")

	assert.ElementsMatch(t, []contracts.CellName{"B1", "C1"}, g.DependentsOf("A1"))
	assert.ElementsMatch(t, []contracts.CellName{"A1"}, g.DependeesOf("B1"))

	g.RemoveDependency("A1", "B1")
	assert.ElementsMatch(t, []contracts.CellName{"C1"}, g.DependentsOf("A1"))
	assert.Empty(t, g.DependeesOf("B1"))

	symmetric(t, g, []contracts.CellName{"A1", "B1", "C1"})
}

func TestReplaceDependees_atomicDiff(t *testing.T) {
	g := depgraph.New()
	g.AddDependency("A1", "C1")
	g.AddDependency("B1", "C1")

	g.ReplaceDependees("C1", []contracts.CellName{"B1", "D1"})

	assert.ElementsMatch(t, []contracts.CellName{"B1", "D1"}, g.DependeesOf("C1"))
	assert.Empty(t, g.DependentsOf("A1"))
	assert.ElementsMatch(t, []contracts.CellName{"C1"}, g.DependentsOf("B1"))
	assert.ElementsMatch(t, []contracts.CellName{"C1"}, g.DependentsOf("D1"))

	symmetric(t, g, []contracts.CellName{"A1", "B1", "C1", "D1"})
}
