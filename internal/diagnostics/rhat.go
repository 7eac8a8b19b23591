package diagnostics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"gohbm/domain/core"
)

// NewChainSamples stacks the traces of one parameter into a [chain, iteration] matrix.
// All chains must have the same length; callers truncate beforehand.
func NewChainSamples(chains [][]float64) (*mat.Dense, error) {
	if len(chains) < 2 {
		return nil, core.ErrTooFewChains
	}

	n := len(chains[0])
	if n < 2 {
		return nil, core.NewInvalidInputError("chains need at least 2 samples")
	}

	data := make([]float64, 0, len(chains)*n)
	for i, c := range chains {
		if len(c) != n {
			return nil, core.NewChainLengthError(i, len(c), n)
		}
		if !finite(c) {
			return nil, fmt.Errorf("%w: chain %d", core.ErrNonFinite, i)
		}
		data = append(data, c...)
	}
	return mat.NewDense(len(chains), n, data), nil
}

// RHat computes the Gelman-Rubin potential scale reduction factor for one
// parameter. chains[i] is the trace of chain i.
//
// The raw ratio is returned; values near 1 (commonly below 1.1) indicate
// convergence, and the pass/fail decision belongs to the caller.
func RHat(chains [][]float64) (float64, error) {
	samples, err := NewChainSamples(chains)
	if err != nil {
		return 0, err
	}
	return RHatDense(samples)
}

// RHatDense computes R-hat from a [chain, iteration] matrix.
func RHatDense(samples *mat.Dense) (float64, error) {
	m, n := samples.Dims()
	if m < 2 {
		return 0, core.ErrTooFewChains
	}
	if n < 2 {
		return 0, core.NewInvalidInputError("chains need at least 2 samples")
	}

	means := make([]float64, m)
	variances := make([]float64, m)
	for i := 0; i < m; i++ {
		row := samples.RawRowView(i)
		means[i], variances[i] = stat.MeanVariance(row, nil)
	}

	nf := float64(n)
	between := nf * stat.Variance(means, nil)
	within := stat.Mean(variances, nil)
	if within == 0 {
		return 0, core.NewInvalidInputError("within-chain variance is zero")
	}

	pooled := ((nf-1)/nf)*within + between/nf
	return math.Sqrt(pooled / within), nil
}

// finite reports whether every sample is a real number
func finite(trace []float64) bool {
	for _, v := range trace {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
