package savagedickey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohbm/domain/core"
)

func uniform(n int, lower, upper float64) []float64 {
	out := make([]float64, n)
	step := (upper - lower) / float64(n)
	for i := range out {
		out[i] = lower + (float64(i)+0.5)*step
	}
	return out
}

func TestHistogram_UniformIsFlat(t *testing.T) {
	centers, density, err := Histogram(uniform(1000, 0, 1), 0, 1, 10)
	require.NoError(t, err)

	require.Len(t, centers, 10)
	assert.InDelta(t, 0.05, centers[0], 1e-12)
	for _, d := range density {
		assert.InDelta(t, 1.0, d, 1e-9)
	}
}

func TestRatio_PriorDensity(t *testing.T) {
	prior := 2.0
	opts := Options{Lower: 0, Upper: 1, Bins: 10, PriorDensity: &prior}

	r, err := Ratio(0.5, uniform(1000, 0, 1), opts)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, r, 1e-9)
}

func TestRatio_PriorTrace(t *testing.T) {
	opts := Options{Lower: 0, Upper: 1, Bins: 10, PriorTrace: uniform(1000, 0, 1)}

	// posterior concentrated on the lower half has twice the density there
	r, err := Ratio(0.25, uniform(1000, 0, 0.5), opts)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r, 1e-9)
}

func TestRatio_AmbiguousPrior(t *testing.T) {
	prior := 1.0

	_, err := Ratio(0, uniform(100, -0.3, 0.3), DefaultOptions())
	assert.True(t, core.IsAmbiguousPrior(err))

	opts := DefaultOptions()
	opts.PriorDensity = &prior
	opts.PriorTrace = uniform(100, -0.3, 0.3)
	_, err = Ratio(0, uniform(100, -0.3, 0.3), opts)
	assert.ErrorIs(t, err, core.ErrAmbiguousPrior)
}

func TestRatio_ZeroPosterior(t *testing.T) {
	prior := 1.0
	opts := Options{Lower: 0, Upper: 1, Bins: 10, PriorDensity: &prior}

	_, err := Ratio(0.9, uniform(1000, 0, 0.5), opts)
	assert.ErrorIs(t, err, core.ErrZeroPosterior)
}

func TestRatio_OutOfRange(t *testing.T) {
	prior := 1.0
	opts := Options{Lower: 0, Upper: 1, Bins: 10, PriorDensity: &prior}

	_, err := Ratio(2, uniform(1000, 0, 1), opts)
	assert.True(t, core.IsInvalidInput(err))
}
