package main

import (
	"context"
	"log"
	"os"

	"gohbm/adapters/postgres"
	"gohbm/adapters/tracefile"
	"gohbm/domain/core"
	"gohbm/internal"
	"gohbm/internal/config"
	"gohbm/internal/migration"

	"github.com/joho/godotenv"
)

// migrate creates the trace table and imports trace files as a new run.
// Every file contributes its chains in argument order.
func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <trace_file> [trace_file...]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.Database.Enabled() {
		log.Fatal("DATABASE_URL is required")
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner(cfg.Database.TraceTable)
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration %s failed: %v", runner.Version(), err)
	}

	repo := postgres.NewTraceRepository(db, cfg.Database.TraceTable)
	runID := core.NewRunID()

	chain := 0
	for _, file := range os.Args[1:] {
		chains, err := tracefile.NewReader(file, logger).ReadChains()
		if err != nil {
			log.Fatalf("Failed to read %s: %v", file, err)
		}
		for _, src := range chains {
			if err := repo.SaveChain(ctx, runID, chain, src); err != nil {
				log.Fatalf("Failed to store chain %d from %s: %v", chain, file, err)
			}
			log.Printf("Stored chain %d (%d parameters) from %s", chain, len(src.Nodes()), file)
			chain++
		}
	}

	log.Printf("Imported %d chains as run %s", chain, runID)
}
