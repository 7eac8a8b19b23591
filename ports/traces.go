package ports

import (
	"context"

	"gohbm/domain/core"
	"gohbm/domain/node"
)

// TraceSource exposes the sampled parameter nodes of one fitted model (one chain).
// Implementations never draw new samples.
type TraceSource interface {
	Nodes() node.Nodes
}

// TraceRepository reads chains stored by an external sampler backend
type TraceRepository interface {
	// ListChains returns the chain numbers stored for a run, ascending
	ListChains(ctx context.Context, runID core.RunID) ([]int, error)

	// LoadChain returns every parameter trace of a single chain
	LoadChain(ctx context.Context, runID core.RunID, chain int) (TraceSource, error)
}

// TraceWriter stores chains for later diagnostics runs
type TraceWriter interface {
	// SaveChain inserts every parameter trace of a chain in one transaction
	SaveChain(ctx context.Context, runID core.RunID, chain int, src TraceSource) error
}
