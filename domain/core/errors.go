package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrInvalidInput   = errors.New("invalid input")
	ErrTooFewChains   = fmt.Errorf("%w: at least 2 chains are required", ErrInvalidInput)
	ErrUnequalChains  = fmt.Errorf("%w: chains must have equal length", ErrInvalidInput)
	ErrEmptyTrace     = fmt.Errorf("%w: trace is empty", ErrInvalidInput)
	ErrMissingParam   = fmt.Errorf("%w: parameter missing from model", ErrInvalidInput)
	ErrTraceTooShort  = fmt.Errorf("%w: trace too short", ErrInvalidInput)
	ErrZeroPosterior  = fmt.Errorf("%w: posterior density is zero at position", ErrInvalidInput)
	ErrInvalidOptions = fmt.Errorf("%w: invalid options", ErrInvalidInput)
	ErrNonFinite      = fmt.Errorf("%w: trace contains NaN or infinite samples", ErrInvalidInput)

	// Pattern errors
	ErrPatternCompile = errors.New("pattern compile failed")

	// Convergence errors
	ErrConvergence = errors.New("chain not properly converged")

	// Prior specification errors
	ErrAmbiguousPrior = errors.New("supply exactly one of prior trace or prior density")
)

// Convergence diagnostics a failure can come from
const (
	DiagnosticGeweke = "geweke"
	DiagnosticRHat   = "rhat"
)

// ConvergenceFailure reports the parameters that failed one convergence diagnostic.
type ConvergenceFailure struct {
	Diagnostic string
	Params     []string
	Threshold  float64
}

func (e *ConvergenceFailure) Error() string {
	names := append([]string(nil), e.Params...)
	sort.Strings(names)

	bound := fmt.Sprintf("|z| > %.2f", e.Threshold)
	if e.Diagnostic == DiagnosticRHat {
		bound = fmt.Sprintf("R-hat >= %.2f", e.Threshold)
	}
	return fmt.Sprintf("%v: %s (%s)", ErrConvergence, strings.Join(names, ", "), bound)
}

func (e *ConvergenceFailure) Unwrap() error {
	return ErrConvergence
}

// Param returns the first offending parameter.
func (e *ConvergenceFailure) Param() string {
	if len(e.Params) == 0 {
		return ""
	}
	return e.Params[0]
}

// Error constructors with context
func NewInvalidInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

func NewChainLengthError(chain, got, want int) error {
	return fmt.Errorf("%w: chain %d has %d samples, expected %d", ErrUnequalChains, chain, got, want)
}

func NewMissingParamError(param string, model int) error {
	return fmt.Errorf("%w: %s not found in model %d", ErrMissingParam, param, model)
}

func NewPatternCompileError(pattern string, err error) error {
	return fmt.Errorf("%w for %q: %v", ErrPatternCompile, pattern, err)
}

// NewConvergenceFailure reports parameters whose Geweke |z| exceeded threshold
func NewConvergenceFailure(threshold float64, params ...string) *ConvergenceFailure {
	return &ConvergenceFailure{Diagnostic: DiagnosticGeweke, Params: params, Threshold: threshold}
}

// NewRHatFailure reports parameters whose R-hat reached threshold
func NewRHatFailure(threshold float64, params ...string) *ConvergenceFailure {
	return &ConvergenceFailure{Diagnostic: DiagnosticRHat, Params: params, Threshold: threshold}
}

// Error checking helpers
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsConvergenceFailure(err error) bool {
	return errors.Is(err, ErrConvergence)
}

func IsPatternCompileError(err error) bool {
	return errors.Is(err, ErrPatternCompile)
}

func IsAmbiguousPrior(err error) bool {
	return errors.Is(err, ErrAmbiguousPrior)
}
