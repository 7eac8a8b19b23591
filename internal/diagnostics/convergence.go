package diagnostics

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"gohbm/domain/core"
	"gohbm/domain/node"
	"gohbm/internal/classify"
	"gohbm/ports"
)

// DefaultWorkers bounds concurrent per-parameter computations
const DefaultWorkers = 4

// ChainConvergence computes R-hat for every group-level parameter across
// independently run models, one model per chain. The parameter set is taken
// from the first model; every other model must carry the same parameters.
func ChainConvergence(ctx context.Context, models []ports.TraceSource, workers int) (map[string]float64, error) {
	if len(models) < 2 {
		return nil, core.ErrTooFewChains
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	maps := make([]node.NodeMap, len(models))
	for i, m := range models {
		maps[i] = m.Nodes().ToMap()
	}
	params := classify.GroupNodeMap(maps[0]).Keys()

	traces := make(map[string][][]float64, len(params))
	for _, name := range params {
		chains := make([][]float64, len(maps))
		for i, m := range maps {
			n, ok := m[name]
			if !ok {
				return nil, core.NewMissingParamError(name, i)
			}
			chains[i] = n.Trace()
		}
		traces[name] = chains
	}

	var (
		mu     sync.Mutex
		result = make(map[string]float64, len(params))
		sem    = semaphore.NewWeighted(int64(workers))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range params {
		chains := traces[name]
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			r, err := RHat(chains)
			if err != nil {
				return err
			}

			mu.Lock()
			result[name] = r
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Unconverged returns the parameters whose R-hat is at or above threshold or NaN.
func Unconverged(rhat map[string]float64, threshold float64) []string {
	var out []string
	for _, name := range sortedKeys(rhat) {
		if r := rhat[name]; r >= threshold || math.IsNaN(r) {
			out = append(out, name)
		}
	}
	return out
}
