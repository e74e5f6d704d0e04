// Package formula parses and evaluates arithmetic expressions over
// cell-name variables (spec.md §4.1, component C1).
//
// It is grounded on the teacher's ExpressionExecutor: formulas are compiled
// with github.com/expr-lang/expr against a dynamic map[string]any
// environment with expr.AllowUndefinedVariables and expr.DisableAllBuiltins
// set, so every free identifier compiles to a constant map-key lookup
// rather than a resolved environment field. Scanning the compiled
// program's Constants for those key strings (ExpressionExecutor's
// ExtractDependingOnList trick) recovers the formula's variable set without
// a bespoke AST walk.
package formula

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/berejant/collabsheet/contracts"
)

// Formula is a parsed arithmetic expression over CellName variables.
type Formula struct {
	source    string
	program   *vm.Program
	variables []contracts.CellName
}

var compilerOptions = []expr.Option{
	expr.Env(map[string]any{}),
	expr.AllowUndefinedVariables(),
	expr.Optimize(false),
	expr.DisableAllBuiltins(),
}

var vmPool = sync.Pool{
	New: func() any { return new(vm.VM) },
}

// Parse lexes and compiles source (the formula text with any leading "="
// already stripped by the caller) against isValid/normalize, exactly the
// gate every cell name passes through per spec.md §3.
func Parse(source string, isValid contracts.IsValidFunc, normalize contracts.NormalizeFunc) (*Formula, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: empty formula", contracts.ErrFormulaFormat)
	}

	// Reject two operators in a row ("1++2", "A1*-2"); expr would otherwise
	// read the second one as a unary sign.
	var prev rune
	for _, c := range source {
		if unicode.IsSpace(c) {
			continue
		}
		if strings.ContainsRune("+-*/", c) && strings.ContainsRune("+-*/", prev) {
			return nil, fmt.Errorf("%w: %s: adjacent operators", contracts.ErrFormulaFormat, source)
		}
		prev = c
	}

	program, err := expr.Compile(source, compilerOptions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", contracts.ErrFormulaFormat, source, err)
	}

	seen := make(map[contracts.CellName]struct{})
	variables := make([]contracts.CellName, 0, len(program.Constants))

	for i, constant := range program.Constants {
		raw, ok := constant.(string)
		if !ok {
			continue
		}

		name, err := contracts.ParseCellName(raw, isValid, normalize)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %q: %s", contracts.ErrFormulaFormat, raw, err)
		}

		// Rewrite the constant to its normalized form so the VM looks the
		// variable up by the same key Evaluate's caller supplies.
		program.Constants[i] = string(name)

		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			variables = append(variables, name)
		}
	}

	return &Formula{source: source, program: program, variables: variables}, nil
}

// Source returns the original (un-prefixed) formula text.
func (f *Formula) Source() string {
	return f.source
}

// Variables returns the normalized, de-duplicated set of cell names this
// formula references.
func (f *Formula) Variables() []contracts.CellName {
	out := make([]contracts.CellName, len(f.variables))
	copy(out, f.variables)
	return out
}

// Evaluate computes the formula's value using lookup to resolve each
// variable. lookup returns (value, false) for a missing or non-numeric
// reference, which Evaluate reports as a FormulaError, per spec.md §4.1.
func (f *Formula) Evaluate(lookup func(contracts.CellName) (float64, bool)) (float64, *contracts.FormulaError) {
	vars := make(map[string]any, len(f.variables))
	for _, name := range f.variables {
		value, ok := lookup(name)
		if !ok {
			return 0, &contracts.FormulaError{Reason: fmt.Sprintf("%s: missing or non-numeric value", name)}
		}
		vars[string(name)] = value
	}

	v := vmPool.Get().(*vm.VM)
	out, err := v.Run(f.program, vars)
	vmPool.Put(v)
	if err != nil {
		return 0, &contracts.FormulaError{Reason: err.Error()}
	}

	result, err := toFloat64(out)
	if err != nil {
		return 0, &contracts.FormulaError{Reason: err.Error()}
	}

	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, &contracts.FormulaError{Reason: "division by zero"}
	}

	return result, nil
}

func toFloat64(out any) (float64, error) {
	switch v := out.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("formula did not evaluate to a number (got %T)", out)
	}
}
