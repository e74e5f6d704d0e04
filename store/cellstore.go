// Package store implements the sparse CellName -> Cell map and its
// topological recomputation (spec.md §4.3/§4.4, components C3 and C4).
//
// It descends from the teacher's SheetRepository: SetContents keeps
// SheetRepository.SetCell's "evaluate tentatively, detect failure, only
// then commit" transaction shape, but replaces the bbolt View/Batch
// transactions with a single sync.Mutex-guarded map, since this client
// holds one ephemeral, server-authoritative sheet rather than a
// permanently persisted multi-sheet store.
package store

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/berejant/collabsheet/contracts"
	"github.com/berejant/collabsheet/depgraph"
	"github.com/berejant/collabsheet/formula"
)

// CellStore is the sparse, mutex-guarded CellName -> Cell map described by
// spec.md §3.
type CellStore struct {
	mu        sync.Mutex
	cells     map[contracts.CellName]contracts.Cell
	graph     *depgraph.Graph
	isValid   contracts.IsValidFunc
	normalize contracts.NormalizeFunc
	dirty     bool
}

// New returns an empty CellStore. isValid and normalize gate every cell
// name used as a formula variable, per spec.md §3.
func New(isValid contracts.IsValidFunc, normalize contracts.NormalizeFunc) *CellStore {
	return &CellStore{
		cells:     make(map[contracts.CellName]contracts.Cell),
		graph:     depgraph.New(),
		isValid:   isValid,
		normalize: normalize,
	}
}

// SetContents is the central mutator described by spec.md §4.3. name must
// already have passed the shape/isValid/normalize gate (contracts.ParseCellName).
// An empty contents string means "delete the cell". On any failure the
// store and its dependency graph are left exactly as they were.
func (s *CellStore) SetContents(name contracts.CellName, raw string) ([]contracts.CellName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw == "" {
		return s.setEmpty(name)
	}

	contents, err := s.parseContents(raw)
	if err != nil {
		return nil, err
	}

	var newDependees []contracts.CellName
	if contents.Kind == contracts.ContentsFormula {
		newDependees = contents.Formula.Variables()
	}

	oldDependees := s.graph.DependeesOf(name)
	s.graph.ReplaceDependees(name, newDependees)

	order, err := s.cellsToRecalculate(name)
	if err != nil {
		s.graph.ReplaceDependees(name, oldDependees)
		return nil, err
	}

	s.cells[name] = contracts.Cell{Contents: contents}
	s.dirty = true

	return s.recompute(name, order), nil
}

// ValidateContents runs SetContents' cycle/format pre-check for name/raw
// against the current graph without committing any mutation, win or lose.
// This backs spec.md §4.4's "applicability of content is pre-validated
// locally... before the request is sent" rule: a proposed CHANGE is
// rejected synchronously, before any network traffic, if it would be
// malformed or introduce a cycle.
func (s *CellStore) ValidateContents(name contracts.CellName, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw == "" {
		return nil
	}

	contents, err := s.parseContents(raw)
	if err != nil {
		return err
	}

	var newDependees []contracts.CellName
	if contents.Kind == contracts.ContentsFormula {
		newDependees = contents.Formula.Variables()
	}

	oldDependees := s.graph.DependeesOf(name)
	s.graph.ReplaceDependees(name, newDependees)
	_, err = s.cellsToRecalculate(name)
	s.graph.ReplaceDependees(name, oldDependees)

	return err
}

// setEmpty implements the empty-string ("delete") branch of SetContents.
// Called with s.mu already held.
func (s *CellStore) setEmpty(name contracts.CellName) ([]contracts.CellName, error) {
	if _, exists := s.cells[name]; !exists {
		// Empty-string idempotence: no-op on an already-empty cell.
		return nil, nil
	}

	oldDependees := s.graph.DependeesOf(name)
	s.graph.ReplaceDependees(name, nil)

	order, err := s.cellsToRecalculate(name)
	if err != nil {
		s.graph.ReplaceDependees(name, oldDependees)
		return nil, err
	}

	delete(s.cells, name)
	s.dirty = true

	return s.recompute(name, order), nil
}

// recompute walks order (produced by cellsToRecalculate, mutated first)
// recomputing each cell's value from already-updated dependee values, and
// returns the names whose value differs from its pre-call value, plus
// mutated itself — the "recompute completeness" invariant of spec.md §8.
// Called with s.mu already held.
func (s *CellStore) recompute(mutated contracts.CellName, order []contracts.CellName) []contracts.CellName {
	oldValues := make(map[contracts.CellName]contracts.CellValue, len(order))
	for _, name := range order {
		if cell, ok := s.cells[name]; ok {
			oldValues[name] = cell.Value
		} else {
			oldValues[name] = contracts.EmptyValue()
		}
	}

	lookup := func(ref contracts.CellName) (float64, bool) {
		cell, ok := s.cells[ref]
		if !ok || cell.Value.Kind != contracts.ValueNumber {
			return 0, false
		}
		return cell.Value.Number, true
	}

	changedSet := make(map[contracts.CellName]struct{}, len(order))
	changedSet[mutated] = struct{}{}

	for _, name := range order {
		cell, exists := s.cells[name]
		if !exists {
			continue
		}

		var newValue contracts.CellValue
		switch cell.Contents.Kind {
		case contracts.ContentsText:
			newValue = contracts.CellValue{Kind: contracts.ValueText, Text: cell.Contents.Text}
		case contracts.ContentsNumber:
			newValue = contracts.CellValue{Kind: contracts.ValueNumber, Number: cell.Contents.Number}
		case contracts.ContentsFormula:
			result, ferr := cell.Contents.Formula.Evaluate(lookup)
			if ferr != nil {
				newValue = contracts.CellValue{Kind: contracts.ValueFormulaError, FormulaError: ferr.Reason}
			} else {
				newValue = contracts.CellValue{Kind: contracts.ValueNumber, Number: result}
			}
		}

		cell.Value = newValue
		s.cells[name] = cell

		if !newValue.Equal(oldValues[name]) {
			changedSet[name] = struct{}{}
		}
	}

	changed := make([]contracts.CellName, 0, len(changedSet))
	for _, name := range order {
		if _, ok := changedSet[name]; ok {
			changed = append(changed, name)
		}
	}
	return changed
}

// parseContents dispatches raw text into the Text/Number/Formula tagged
// variant, per spec.md §3.
func (s *CellStore) parseContents(raw string) (contracts.CellContents, error) {
	if strings.HasPrefix(raw, "=") {
		f, err := formula.Parse(raw[1:], s.isValid, s.normalize)
		if err != nil {
			return contracts.CellContents{}, err
		}
		return contracts.CellContents{Kind: contracts.ContentsFormula, Formula: f}, nil
	}

	if n, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return contracts.CellContents{Kind: contracts.ContentsNumber, Number: n}, nil
	}

	return contracts.CellContents{Kind: contracts.ContentsText, Text: raw}, nil
}

// GetCellContents returns name's contents, or Text("") if name is empty.
func (s *CellStore) GetCellContents(name contracts.CellName) contracts.CellContents {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cell, ok := s.cells[name]; ok {
		return cell.Contents
	}
	return contracts.EmptyContents()
}

// GetCellValue returns name's value, or Text("") if name is empty.
func (s *CellStore) GetCellValue(name contracts.CellName) contracts.CellValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cell, ok := s.cells[name]; ok {
		return cell.Value
	}
	return contracts.EmptyValue()
}

// IsDirty reports whether any cell has been set or deleted since the store
// was created or since the last ClearDirty, the `changed` flag of
// spec.md §3. ValidateContents and a no-op empty-on-empty SetContents never
// set it, since neither commits a mutation.
func (s *CellStore) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// ClearDirty clears the dirty flag, called after a successful local save
// per spec.md §3's "cleared on local save".
func (s *CellStore) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// NamesOfAllNonemptyCells returns every name currently stored.
func (s *CellStore) NamesOfAllNonemptyCells() []contracts.CellName {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]contracts.CellName, 0, len(s.cells))
	for name := range s.cells {
		names = append(names, name)
	}
	return names
}
