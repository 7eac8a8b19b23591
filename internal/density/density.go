// Package density prepares histogram series comparing each group-level
// parameter with its subject-level counterparts. Rendering is left to callers.
package density

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gohbm/domain/core"
	"gohbm/domain/node"
	"gohbm/internal"
	"gohbm/internal/classify"
	"gohbm/ports"
)

// DefaultBins is the number of histogram bins per panel
const DefaultBins = 50

// Series is one density curve evaluated at a panel's X positions
type Series struct {
	Label string    `json:"label"`
	Y     []float64 `json:"y"`
}

// Panel holds the group density and every subject density on a shared range
type Panel struct {
	Name     string    `json:"name"`
	X        []float64 `json:"x"`
	Group    Series    `json:"group"`
	Subjects []Series  `json:"subjects"`
}

// GroupDensities builds one panel per group node that has subject nodes.
// Group nodes without subjects are skipped.
func GroupDensities(source ports.TraceSource, bins int, logger *internal.Logger) ([]Panel, error) {
	if bins < 2 {
		return nil, core.ErrInvalidOptions
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	nodes := source.Nodes()
	group := classify.GroupNodes(nodes).ToMap().Sorted()

	var panels []Panel
	for _, g := range group {
		subjects, err := classify.SubjectsOfGroup(g.Name(), nodes)
		if err != nil {
			return nil, err
		}
		if len(subjects) == 0 {
			continue
		}

		logger.Debug("building density panel for %s (%d subjects)", g.Name(), len(subjects))
		panel, err := buildPanel(g, subjects, bins)
		if err != nil {
			return nil, fmt.Errorf("density panel %s: %w", g.Name(), err)
		}
		panels = append(panels, panel)
	}
	return panels, nil
}

func buildPanel(g *node.Node, subjects node.Nodes, bins int) (Panel, error) {
	if len(g.Trace()) == 0 {
		return Panel{}, core.ErrEmptyTrace
	}
	lo, hi := floats.Min(g.Trace()), floats.Max(g.Trace())
	for _, s := range subjects {
		if len(s.Trace()) == 0 {
			return Panel{}, core.ErrEmptyTrace
		}
		lo = min(lo, floats.Min(s.Trace()))
		hi = max(hi, floats.Max(s.Trace()))
	}
	if hi == lo {
		hi = lo + 1
	}

	panel := Panel{
		Name:  g.Name(),
		X:     floats.Span(make([]float64, bins), lo, hi),
		Group: Series{Label: "group", Y: normedHistogram(g.Trace(), lo, hi, bins)},
	}
	for _, s := range subjects {
		label, _ := node.TrailingDigits(s.Name())
		panel.Subjects = append(panel.Subjects, Series{
			Label: label,
			Y:     normedHistogram(s.Trace(), lo, hi, bins),
		})
	}
	return panel, nil
}

// normedHistogram bins trace over [lo, hi] with the upper edge inclusive and
// normalizes the counts to a density.
func normedHistogram(trace []float64, lo, hi float64, bins int) []float64 {
	sorted := make([]float64, len(trace))
	copy(sorted, trace)
	sort.Float64s(sorted)

	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	width := (hi - lo) / float64(bins)
	total := float64(len(sorted))
	for i := range counts {
		counts[i] /= total * width
	}
	return counts
}
