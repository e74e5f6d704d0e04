package contracts

import (
	"fmt"
	"regexp"
)

// CellName is a normalized spreadsheet cell identifier. All CellStore and
// DependencyGraph keys use this normalized form.
type CellName string

// cellShape matches a letters-then-digits identifier, e.g. "A1" or "aa123".
var cellShape = regexp.MustCompile(`^[A-Za-z]+[0-9]+$`)

// IsValidFunc decides whether a shape-valid name is acceptable. It sees the
// name as written, before normalization.
// Callers supply their own (e.g. to bound row/column ranges); see
// canonical.DefaultIsValid for the engine's default.
type IsValidFunc func(name string) bool

// NormalizeFunc canonicalizes a shape-valid name, typically by upper-casing
// it. See canonical.DefaultNormalize for the engine's default.
type NormalizeFunc func(name string) string

// ParseCellName checks name against the cell-name shape, then isValid, then
// normalizes it. It is the single gate every cell name passes through
// before it may be used as a CellStore or DependencyGraph key.
func ParseCellName(name string, isValid IsValidFunc, normalize NormalizeFunc) (CellName, error) {
	if !cellShape.MatchString(name) {
		return "", fmt.Errorf("%w: %q does not match shape [A-Za-z]+[0-9]+", ErrInvalidName, name)
	}

	if !isValid(name) {
		return "", fmt.Errorf("%w: %q rejected by validity predicate", ErrInvalidName, name)
	}

	return CellName(normalize(name)), nil
}
