// Package summary computes posterior summaries of node traces.
package summary

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"gohbm/domain/core"
	"gohbm/ports"
)

// QuantileLevels are the percentiles reported for every trace
var QuantileLevels = []float64{2.5, 25, 50, 75, 97.5}

// Options controls summary computation
type Options struct {
	Alpha   float64 // HPD interval covers 1-Alpha of the mass
	Batches int     // batches used for the Monte Carlo error
}

// DefaultOptions returns a 95% HPD interval and 100 batches
func DefaultOptions() Options {
	return Options{Alpha: 0.05, Batches: 100}
}

// Interval is a closed credible interval
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Stats summarizes one trace
type Stats struct {
	Mean      float64             `json:"mean"`
	StdDev    float64             `json:"standard_deviation"`
	HPD       Interval            `json:"hpd"`
	MCError   float64             `json:"mc_error"`
	Quantiles map[float64]float64 `json:"quantiles"`
}

// Quantile returns the value at percentile q, or NaN if it was not computed
func (s Stats) Quantile(q float64) float64 {
	v, ok := s.Quantiles[q]
	if !ok {
		return math.NaN()
	}
	return v
}

// GenStats summarizes every node of a model
func GenStats(source ports.TraceSource, opts Options) (map[string]Stats, error) {
	out := make(map[string]Stats)
	for _, n := range source.Nodes() {
		s, err := Summarize(n.Trace(), opts)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", n.Name(), err)
		}
		out[n.Name()] = s
	}
	return out, nil
}

// Summarize computes the statistics of a single trace
func Summarize(trace []float64, opts Options) (Stats, error) {
	if len(trace) == 0 {
		return Stats{}, core.ErrEmptyTrace
	}
	if opts.Alpha <= 0 || opts.Alpha >= 1 || opts.Batches < 1 {
		return Stats{}, core.ErrInvalidOptions
	}

	mean, err := stats.Mean(trace)
	if err != nil {
		return Stats{}, err
	}
	variance, err := stats.PopulationVariance(trace)
	if err != nil {
		return Stats{}, err
	}

	sorted := make([]float64, len(trace))
	copy(sorted, trace)
	sort.Float64s(sorted)

	hpd, err := HPD(sorted, opts.Alpha)
	if err != nil {
		return Stats{}, err
	}

	quantiles := make(map[float64]float64, len(QuantileLevels))
	for _, q := range QuantileLevels {
		quantiles[q] = QuantileAt(sorted, q/100)
	}

	return Stats{
		Mean:      mean,
		StdDev:    math.Sqrt(variance),
		HPD:       hpd,
		MCError:   BatchSD(trace, opts.Batches),
		Quantiles: quantiles,
	}, nil
}

// QuantileAt returns sorted[int(p*n)], clamped to the last sample.
func QuantileAt(sorted []float64, p float64) float64 {
	i := int(p * float64(len(sorted)))
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

// HPD returns the shortest interval of sorted containing 1-alpha of its values.
func HPD(sorted []float64, alpha float64) (Interval, error) {
	n := len(sorted)
	inc := int(math.Floor((1 - alpha) * float64(n)))
	count := n - inc
	if count <= 0 || inc < 0 {
		return Interval{}, core.NewInvalidInputError("too few samples for interval calculation")
	}

	best := 0
	for i := 1; i < count; i++ {
		if sorted[i+inc]-sorted[i] < sorted[best+inc]-sorted[best] {
			best = i
		}
	}
	return Interval{Lower: sorted[best], Upper: sorted[best+inc]}, nil
}

// BatchSD estimates the Monte Carlo standard error of the trace mean from the
// spread of consecutive batch means. Trailing samples that do not fill a batch
// are dropped.
func BatchSD(trace []float64, batches int) float64 {
	if batches > len(trace) {
		batches = len(trace)
	}
	if batches <= 1 {
		sd, _ := stats.StandardDeviationPopulation(trace)
		return sd / math.Sqrt(float64(len(trace)))
	}

	size := len(trace) / batches
	means := make(stats.Float64Data, batches)
	for b := 0; b < batches; b++ {
		means[b], _ = stats.Mean(trace[b*size : (b+1)*size])
	}
	sd, _ := means.StandardDeviationPopulation()
	return sd / math.Sqrt(float64(batches))
}

// GroupStats keeps the entries whose name does not end in a digit
func GroupStats(all map[string]Stats) map[string]Stats {
	out := make(map[string]Stats)
	for name, s := range all {
		if name == "" {
			continue
		}
		last := name[len(name)-1]
		if last >= '0' && last <= '9' {
			continue
		}
		out[name] = s
	}
	return out
}

// Names returns the keys of a stats map sorted
func Names(all map[string]Stats) []string {
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
