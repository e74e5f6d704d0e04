package formula_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/berejant/collabsheet/canonical"
	"github.com/berejant/collabsheet/contracts"
	"github.com/berejant/collabsheet/formula"
)

func alwaysValid(string) bool { return true }

func parse(t *testing.T, source string) *formula.Formula {
	t.Helper()
	f, err := formula.Parse(source, alwaysValid, canonical.DefaultNormalize)
	assert.NoError(t, err)
	return f
}

func TestParse_rejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"1 +",
		"(1+2",
		"1++2",
		"1 2",
	}
	for _, source := range cases {
		_, err := formula.Parse(source, alwaysValid, canonical.DefaultNormalize)
		assert.ErrorIs(t, err, contracts.ErrFormulaFormat, "source %q", source)
	}
}

func TestParse_rejectsInvalidVariable(t *testing.T) {
	rejectAll := func(string) bool { return false }
	_, err := formula.Parse("A1+1", rejectAll, canonical.DefaultNormalize)
	assert.ErrorIs(t, err, contracts.ErrFormulaFormat)
}

func TestVariables_deduplicatedAndNormalized(t *testing.T) {
	f := parse(t, "a1 + A1 * b2")
	vars := f.Variables()
	assert.ElementsMatch(t, []contracts.CellName{"A1", "B2"}, vars)
}

func TestEvaluate_arithmetic(t *testing.T) {
	f := parse(t, "(A1 + A2) * 2 - A3 / A1")
	values := map[contracts.CellName]float64{"A1": 2, "A2": 3, "A3": 4}
	lookup := func(name contracts.CellName) (float64, bool) {
		v, ok := values[name]
		return v, ok
	}

	result, ferr := f.Evaluate(lookup)
	assert.Nil(t, ferr)
	assert.Equal(t, float64((2+3)*2)-4.0/2.0, result)
}

func TestEvaluate_missingVariable(t *testing.T) {
	f := parse(t, "A1+A2")
	lookup := func(contracts.CellName) (float64, bool) { return 0, false }

	_, ferr := f.Evaluate(lookup)
	assert.NotNil(t, ferr)
}

func TestEvaluate_divisionByZero(t *testing.T) {
	f := parse(t, "A1/A2")
	values := map[contracts.CellName]float64{"A1": 1, "A2": 0}
	lookup := func(name contracts.CellName) (float64, bool) {
		v, ok := values[name]
		return v, ok
	}

	_, ferr := f.Evaluate(lookup)
	assert.NotNil(t, ferr)
	assert.Equal(t, "division by zero", ferr.Reason)
}
