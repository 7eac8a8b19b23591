package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidInputErrorsWrapSentinel(t *testing.T) {
	for _, err := range []error{
		ErrTooFewChains,
		ErrUnequalChains,
		NewChainLengthError(1, 10, 20),
		NewMissingParamError("mu", 2),
		NewInvalidInputError("bad"),
	} {
		assert.True(t, IsInvalidInput(err), "%v should be invalid input", err)
		assert.False(t, IsConvergenceFailure(err))
	}
}

func TestConvergenceFailure(t *testing.T) {
	err := fmt.Errorf("geweke: %w", NewConvergenceFailure(2.0, "v", "a"))

	assert.True(t, IsConvergenceFailure(err))

	var cf *ConvergenceFailure
	assert.True(t, errors.As(err, &cf))
	assert.Equal(t, "v", cf.Param())
	assert.Contains(t, err.Error(), "a, v")
	assert.Contains(t, err.Error(), "|z| > 2.00")
	assert.Equal(t, DiagnosticGeweke, cf.Diagnostic)
}

func TestRHatFailureMessage(t *testing.T) {
	err := NewRHatFailure(1.1, "tau", "mu")

	assert.True(t, IsConvergenceFailure(err))
	assert.Equal(t, DiagnosticRHat, err.Diagnostic)
	assert.Contains(t, err.Error(), "mu, tau (R-hat >= 1.10)")
	assert.NotContains(t, err.Error(), "|z|")
}

func TestPatternCompileError(t *testing.T) {
	err := NewPatternCompileError("a(", errors.New("missing )"))
	assert.True(t, IsPatternCompileError(err))
	assert.Contains(t, err.Error(), `"a("`)
}
