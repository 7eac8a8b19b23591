package diagnostics

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gohbm/domain/core"
	"gohbm/internal"
	"gohbm/internal/classify"
	"gohbm/ports"
)

// DefaultZThreshold is the |z| above which a chain is considered unconverged
const DefaultZThreshold = 2.0

// GewekeOptions controls the segments compared by Geweke.
type GewekeOptions struct {
	First     float64 // fraction of the remaining chain in the early segment
	Last      float64 // fraction of the remaining chain in the late segment
	Intervals int     // number of early-segment start positions
}

// DefaultGewekeOptions returns the conventional 10% / 50% split over 20 intervals
func DefaultGewekeOptions() GewekeOptions {
	return GewekeOptions{First: 0.1, Last: 0.5, Intervals: 20}
}

// ZScore is the Geweke statistic for an early segment starting at Start.
type ZScore struct {
	Start int
	Z     float64
}

// PValue is the two-sided normal p-value of the score.
func (z ZScore) PValue() float64 {
	return 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z.Z)))
}

// Geweke compares the mean of successive early segments of trace against the
// mean of its late segment, returning one z-score per start position.
func Geweke(trace []float64, opts GewekeOptions) ([]ZScore, error) {
	if opts.First <= 0 || opts.Last <= 0 || opts.First+opts.Last >= 1 {
		return nil, core.NewInvalidInputError("geweke segment fractions must be positive and sum below 1")
	}
	if opts.Intervals < 2 {
		return nil, core.NewInvalidInputError("geweke needs at least 2 intervals")
	}
	if !finite(trace) {
		return nil, core.ErrNonFinite
	}

	end := len(trace) - 1
	step := int((float64(end) / 2) / float64(opts.Intervals-1))
	if step < 1 {
		return nil, core.ErrTraceTooShort
	}

	scores := make([]ZScore, 0, opts.Intervals)
	for start := 0; start < end/2; start += step {
		remaining := float64(end - start)
		early := trace[start : start+int(opts.First*remaining)]
		late := trace[int(float64(end)-opts.Last*remaining):]

		z, err := segmentZ(early, late)
		if err != nil {
			return nil, err
		}
		scores = append(scores, ZScore{Start: start, Z: z})
	}
	return scores, nil
}

func segmentZ(early, late []float64) (float64, error) {
	m1, err := stats.Mean(early)
	if err != nil {
		return 0, core.ErrTraceTooShort
	}
	m2, err := stats.Mean(late)
	if err != nil {
		return 0, core.ErrTraceTooShort
	}
	v1, err := stats.PopulationVariance(early)
	if err != nil {
		return 0, core.ErrTraceTooShort
	}
	v2, err := stats.PopulationVariance(late)
	if err != nil {
		return 0, core.ErrTraceTooShort
	}

	diff := m1 - m2
	sd := math.Sqrt(v1 + v2)
	if sd == 0 {
		if diff == 0 {
			return 0, nil
		}
		return math.Copysign(math.Inf(1), diff), nil
	}
	return diff / sd, nil
}

// MaxAbsZ returns the largest |z| among scores, or NaN if any score is NaN.
func MaxAbsZ(scores []ZScore) float64 {
	largest := 0.0
	for _, s := range scores {
		if math.IsNaN(s.Z) {
			return math.NaN()
		}
		if a := math.Abs(s.Z); a > largest {
			largest = a
		}
	}
	return largest
}

// Policy decides how a Geweke check reports unconverged parameters.
type Policy int

const (
	// PolicyReport logs a warning and reports false
	PolicyReport Policy = iota
	// PolicyStrict returns a *core.ConvergenceFailure
	PolicyStrict
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "report"
}

// GewekeResult is the Geweke outcome for one parameter.
type GewekeResult struct {
	Param     string
	Scores    []ZScore
	MaxAbsZ   float64
	Converged bool
}

// GewekeChecker applies Geweke to every group-level parameter of a model.
type GewekeChecker struct {
	Threshold float64
	Options   GewekeOptions
	Logger    *internal.Logger
}

// NewGewekeChecker creates a checker with the default threshold and options
func NewGewekeChecker(logger *internal.Logger) *GewekeChecker {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &GewekeChecker{
		Threshold: DefaultZThreshold,
		Options:   DefaultGewekeOptions(),
		Logger:    logger,
	}
}

// Evaluate computes Geweke results for all group-level parameters, by name.
func (c *GewekeChecker) Evaluate(source ports.TraceSource) ([]GewekeResult, error) {
	group := classify.GroupNodes(source.Nodes())
	sort.Slice(group, func(i, j int) bool { return group[i].Name() < group[j].Name() })

	results := make([]GewekeResult, 0, len(group))
	for _, n := range group {
		scores, err := Geweke(n.Trace(), c.Options)
		if err != nil {
			return nil, err
		}
		maxZ := MaxAbsZ(scores)
		results = append(results, GewekeResult{
			Param:     n.Name(),
			Scores:    scores,
			MaxAbsZ:   maxZ,
			Converged: maxZ <= c.Threshold, // false for NaN
		})
	}
	return results, nil
}

// Check evaluates every group-level parameter. It returns true when all of them
// converged. Under PolicyStrict a failure lists every offending parameter.
func (c *GewekeChecker) Check(source ports.TraceSource, policy Policy) (bool, error) {
	results, err := c.Evaluate(source)
	if err != nil {
		return false, err
	}

	var failed []string
	for _, r := range results {
		if r.Converged {
			continue
		}
		failed = append(failed, r.Param)
		if policy == PolicyReport {
			c.Logger.Warn("Chain of %s not properly converged (max |z| = %.3f)", r.Param, r.MaxAbsZ)
		}
	}

	if len(failed) == 0 {
		return true, nil
	}
	if policy == PolicyStrict {
		return false, core.NewConvergenceFailure(c.Threshold, failed...)
	}
	return false, nil
}

// CheckFirst stops at the first unconverged parameter in name order.
func (c *GewekeChecker) CheckFirst(source ports.TraceSource, policy Policy) (bool, error) {
	group := classify.GroupNodes(source.Nodes())
	sort.Slice(group, func(i, j int) bool { return group[i].Name() < group[j].Name() })

	for _, n := range group {
		scores, err := Geweke(n.Trace(), c.Options)
		if err != nil {
			return false, err
		}
		maxZ := MaxAbsZ(scores)
		if maxZ <= c.Threshold {
			continue
		}
		if policy == PolicyStrict {
			return false, core.NewConvergenceFailure(c.Threshold, n.Name())
		}
		c.Logger.Warn("Chain of %s not properly converged (max |z| = %.3f)", n.Name(), maxZ)
		return false, nil
	}
	return true, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
