package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gohbm/domain/core"
	"gohbm/domain/node"
	"gohbm/internal/errors"
	"gohbm/ports"
)

// traceRow is one sampled value as stored by the sampler backend
type traceRow struct {
	Parameter string  `db:"parameter"`
	Iteration int     `db:"iteration"`
	Value     float64 `db:"value"`
}

// insertRow is the full key of one stored sample
type insertRow struct {
	RunID     string  `db:"run_id"`
	Chain     int     `db:"chain"`
	Parameter string  `db:"parameter"`
	Iteration int     `db:"iteration"`
	Value     float64 `db:"value"`
}

// insertBatch bounds the rows per INSERT to stay under bind parameter limits
const insertBatch = 5000

// TraceRepository reads and writes chains in a table with columns
// run_id, chain, parameter, iteration, value.
type TraceRepository struct {
	db    *sqlx.DB
	table string
}

// NewTraceRepository creates a trace repository over table
func NewTraceRepository(db *sqlx.DB, table string) *TraceRepository {
	return &TraceRepository{db: db, table: table}
}

var (
	_ ports.TraceRepository = (*TraceRepository)(nil)
	_ ports.TraceWriter     = (*TraceRepository)(nil)
)

// Open connects to the trace store
func Open(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to trace store", err)
	}
	return db, nil
}

// ListChains returns the chain numbers stored for a run
func (r *TraceRepository) ListChains(ctx context.Context, runID core.RunID) ([]int, error) {
	query := fmt.Sprintf(`SELECT DISTINCT chain FROM %s WHERE run_id = $1 ORDER BY chain`, r.table)

	var chains []int
	if err := r.db.SelectContext(ctx, &chains, query, runID.String()); err != nil {
		return nil, errors.DatabaseError("failed to list chains", err)
	}
	if len(chains) == 0 {
		return nil, errors.NotFound(fmt.Sprintf("run %s", runID))
	}
	return chains, nil
}

// LoadChain returns every parameter trace of one chain, ordered by parameter name
func (r *TraceRepository) LoadChain(ctx context.Context, runID core.RunID, chain int) (ports.TraceSource, error) {
	query := fmt.Sprintf(`SELECT parameter, iteration, value FROM %s
		WHERE run_id = $1 AND chain = $2
		ORDER BY parameter, iteration`, r.table)

	var rows []traceRow
	if err := r.db.SelectContext(ctx, &rows, query, runID.String(), chain); err != nil {
		return nil, errors.DatabaseError("failed to load chain", err)
	}
	if len(rows) == 0 {
		return nil, errors.NotFound(fmt.Sprintf("chain %d of run %s", chain, runID))
	}

	nodes, err := assembleChain(rows)
	if err != nil {
		return nil, errors.TraceFormat(fmt.Sprintf("%s chain %d", runID, chain), err)
	}
	return nodes, nil
}

// SaveChain inserts a chain in batches inside one transaction
func (r *TraceRepository) SaveChain(ctx context.Context, runID core.RunID, chain int, src ports.TraceSource) error {
	rows := chainRows(runID, chain, src.Nodes())
	if len(rows) == 0 {
		return errors.InvalidInput(fmt.Sprintf("chain %d has no samples", chain))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`INSERT INTO %s (run_id, chain, parameter, iteration, value)
		VALUES (:run_id, :chain, :parameter, :iteration, :value)`, r.table)
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to insert chain %d", chain), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit chain", err)
	}
	return nil
}

func chainRows(runID core.RunID, chain int, nodes node.Nodes) []insertRow {
	var rows []insertRow
	for _, n := range nodes {
		for i, v := range n.Trace() {
			rows = append(rows, insertRow{
				RunID:     runID.String(),
				Chain:     chain,
				Parameter: n.Name(),
				Iteration: i,
				Value:     v,
			})
		}
	}
	return rows
}

// LoadRun returns every chain of a run in chain order
func LoadRun(ctx context.Context, repo ports.TraceRepository, runID core.RunID) ([]ports.TraceSource, error) {
	chains, err := repo.ListChains(ctx, runID)
	if err != nil {
		return nil, err
	}

	out := make([]ports.TraceSource, 0, len(chains))
	for _, c := range chains {
		src, err := repo.LoadChain(ctx, runID, c)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// assembleChain groups rows sorted by (parameter, iteration) into nodes.
func assembleChain(rows []traceRow) (node.Nodes, error) {
	var (
		nodes   node.Nodes
		current string
		trace   []float64
		last    int
	)

	flush := func() {
		if current != "" {
			nodes = append(nodes, node.New(current, trace))
		}
	}

	for _, row := range rows {
		if row.Parameter != current {
			flush()
			current, trace, last = row.Parameter, nil, row.Iteration
			trace = append(trace, row.Value)
			continue
		}
		if row.Iteration <= last {
			return nil, fmt.Errorf("%s: iteration %d repeated or out of order", row.Parameter, row.Iteration)
		}
		last = row.Iteration
		trace = append(trace, row.Value)
	}
	flush()
	return nodes, nil
}
