// Package savagedickey estimates Bayes factors for point hypotheses with the
// Savage-Dickey density ratio (Wagenmakers et al., 2010).
package savagedickey

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gohbm/domain/core"
)

// Options configures the density estimate. Exactly one of PriorTrace and
// PriorDensity must be set.
type Options struct {
	Lower, Upper float64
	Bins         int
	PriorTrace   []float64
	PriorDensity *float64 // prior density at the tested position
}

// DefaultOptions histograms over (-0.3, 0.3) with 40 bins
func DefaultOptions() Options {
	return Options{Lower: -0.3, Upper: 0.3, Bins: 40}
}

// Ratio returns prior density / posterior density at pos.
func Ratio(pos float64, posterior []float64, opts Options) (float64, error) {
	if (opts.PriorTrace == nil) == (opts.PriorDensity == nil) {
		return 0, core.ErrAmbiguousPrior
	}
	if opts.Bins < 2 || opts.Upper <= opts.Lower {
		return 0, core.ErrInvalidOptions
	}
	if pos < opts.Lower || pos > opts.Upper {
		return 0, core.NewInvalidInputError("position outside histogram range")
	}

	var prior float64
	if opts.PriorDensity != nil {
		prior = *opts.PriorDensity
	} else {
		d, err := DensityAt(pos, opts.PriorTrace, opts.Lower, opts.Upper, opts.Bins)
		if err != nil {
			return 0, err
		}
		prior = d
	}

	post, err := DensityAt(pos, posterior, opts.Lower, opts.Upper, opts.Bins)
	if err != nil {
		return 0, err
	}
	if post == 0 {
		return 0, core.ErrZeroPosterior
	}
	return prior / post, nil
}

// DensityAt estimates the density of trace at pos from a normalized histogram
// over [lower, upper), interpolating linearly between bin centers.
func DensityAt(pos float64, trace []float64, lower, upper float64, bins int) (float64, error) {
	centers, density, err := Histogram(trace, lower, upper, bins)
	if err != nil {
		return 0, err
	}

	if pos <= centers[0] {
		return density[0], nil
	}
	last := len(centers) - 1
	if pos >= centers[last] {
		return density[last], nil
	}

	i := sort.SearchFloat64s(centers, pos)
	x0, x1 := centers[i-1], centers[i]
	frac := (pos - x0) / (x1 - x0)
	return density[i-1] + frac*(density[i]-density[i-1]), nil
}

// Histogram returns bin centers and densities normalized to integrate to 1
// over the samples falling inside [lower, upper).
func Histogram(trace []float64, lower, upper float64, bins int) (centers, density []float64, err error) {
	inRange := make([]float64, 0, len(trace))
	for _, x := range trace {
		if x >= lower && x < upper {
			inRange = append(inRange, x)
		}
	}
	if len(inRange) == 0 {
		return nil, nil, core.NewInvalidInputError("no samples inside histogram range")
	}
	sort.Float64s(inRange)

	dividers := floats.Span(make([]float64, bins+1), lower, upper)
	counts := stat.Histogram(nil, dividers, inRange, nil)

	width := (upper - lower) / float64(bins)
	centers = make([]float64, bins)
	density = make([]float64, bins)
	total := float64(len(inRange))
	for i := range counts {
		centers[i] = lower + (float64(i)+0.5)*width
		density[i] = counts[i] / (total * width)
	}
	return centers, density, nil
}
