package migration

import (
	"context"
	"fmt"

	"gohbm/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db sqlx.ExecerContext) error
	Version() string
}

// MigrationRunner creates the trace store schema
type MigrationRunner struct {
	version string
	table   string
}

// NewRunner creates a new migration runner for the given trace table
func NewRunner(table string) *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		table:   table,
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the DDL in execution order
func (r *MigrationRunner) Statements() []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id     UUID             NOT NULL,
			chain      INTEGER          NOT NULL,
			parameter  TEXT             NOT NULL,
			iteration  INTEGER          NOT NULL,
			value      DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, chain, parameter, iteration)
		)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_run_chain ON %s (run_id, chain)`, r.table, r.table),
	}
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db sqlx.ExecerContext) error {
	for i, stmt := range r.Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration step %d on %s failed", i+1, r.table)
		}
	}
	return nil
}
