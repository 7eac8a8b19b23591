package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"gohbm/domain/node"
)

// ModelGeneratorConfig configures the synthetic hierarchical model generator
type ModelGeneratorConfig struct {
	Subjects      int      `json:"subjects"`
	Samples       int      `json:"samples"`
	GroupParams   []string `json:"group_params"`
	IncludeAux    bool     `json:"include_aux"` // add deviance and Metropolis bookkeeping nodes
	Autocorrelate float64  `json:"autocorrelate"`
	Seed          int64    `json:"seed"`
}

// DefaultModelConfig returns sensible defaults for model generation
func DefaultModelConfig() ModelGeneratorConfig {
	return ModelGeneratorConfig{
		Subjects:      4,
		Samples:       2000,
		GroupParams:   []string{"a", "v", "t"},
		IncludeAux:    true,
		Autocorrelate: 0.3,
		Seed:          42,
	}
}

// ModelGenerator produces traces shaped like a fitted hierarchical model
type ModelGenerator struct {
	config ModelGeneratorConfig
	rng    *rand.Rand
}

// NewModelGenerator creates a new model generator
func NewModelGenerator(config ModelGeneratorConfig) *ModelGenerator {
	return &ModelGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate returns group nodes followed by their subject nodes (<group><subject>)
// and, when configured, sampler bookkeeping nodes.
func (g *ModelGenerator) Generate() node.Nodes {
	var nodes node.Nodes
	for gi, name := range g.config.GroupParams {
		mu := float64(gi + 1)
		nodes = append(nodes, node.New(name, g.AR1(g.config.Samples, mu, 0.1)))
		for s := 1; s <= g.config.Subjects; s++ {
			subjMu := mu + 0.2*g.rng.NormFloat64()
			nodes = append(nodes, node.New(fmt.Sprintf("%s%d", name, s), g.AR1(g.config.Samples, subjMu, 0.3)))
		}
	}

	if g.config.IncludeAux {
		nodes = append(nodes,
			node.New("deviance", g.AR1(g.config.Samples, 1000, 5)),
			node.New("Metropolis_"+g.config.GroupParams[0]+"_adaptive_scale_factor", Constant(g.config.Samples, 1)),
		)
	}
	return nodes
}

// AR1 draws a stationary first-order autoregressive chain around mu
func (g *ModelGenerator) AR1(n int, mu, sigma float64) []float64 {
	phi := g.config.Autocorrelate
	out := make([]float64, n)
	x := mu
	for i := range out {
		x = mu + phi*(x-mu) + sigma*math.Sqrt(1-phi*phi)*g.rng.NormFloat64()
		out[i] = x
	}
	return out
}

// Normal draws n independent normal values
func (g *ModelGenerator) Normal(n int, mu, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mu + sigma*g.rng.NormFloat64()
	}
	return out
}

// Periodic returns a deterministic stationary oscillation around offset.
// Every window of period samples has mean exactly offset.
func Periodic(n int, offset, amplitude float64, period int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + amplitude*math.Sin(2*math.Pi*float64(i)/float64(period))
	}
	return out
}

// Trending returns a deterministic chain drifting linearly from 0 to slope with
// a small oscillation, so it never settles into a stationary distribution.
func Trending(n int, slope float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = slope*float64(i)/float64(n) + 0.01*math.Sin(float64(i))
	}
	return out
}

// Constant returns n copies of v
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Model wraps named traces as an ordered node sequence
func Model(traces map[string][]float64, order ...string) node.Nodes {
	nodes := make(node.Nodes, 0, len(order))
	for _, name := range order {
		nodes = append(nodes, node.New(name, traces[name]))
	}
	return nodes
}
