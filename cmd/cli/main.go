package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gohbm/adapters/postgres"
	"gohbm/adapters/tracefile"
	"gohbm/app"
	"gohbm/domain/core"
	"gohbm/domain/node"
	"gohbm/internal"
	"gohbm/internal/classify"
	"gohbm/internal/config"
	"gohbm/internal/density"
	"gohbm/internal/diagnostics"
	"gohbm/internal/errors"
	"gohbm/internal/report"
	"gohbm/internal/savagedickey"
	"gohbm/internal/summary"
	"gohbm/ports"
)

type env struct {
	cfg    *config.Config
	logger *internal.Logger
}

func main() {
	_ = godotenv.Load()

	e := &env{}
	rootCmd := &cobra.Command{
		Use:   "gohbm",
		Short: "Summaries and convergence diagnostics for hierarchical MCMC traces",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newNodesCmd(e),
		newStatsCmd(e),
		newRHatCmd(e),
		newGewekeCmd(e),
		newReportCmd(e),
		newSavageDickeyCmd(e),
		newDensityCmd(e),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

// errorLine prefixes coded application errors with their code
func errorLine(err error) string {
	if errors.IsAppError(err) {
		return fmt.Sprintf("[%s] %v", errors.GetCode(err), err)
	}
	return err.Error()
}

// loadChains reads chains from trace files, or from the trace store when runID is set
func (e *env) loadChains(ctx context.Context, files []string, runID string) ([]ports.TraceSource, error) {
	if runID != "" {
		if !e.cfg.Database.Enabled() {
			return nil, fmt.Errorf("--run requires DATABASE_URL")
		}
		id, err := core.ParseRunID(runID)
		if err != nil {
			return nil, err
		}
		db, err := postgres.Open(ctx, e.cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return postgres.LoadRun(ctx, postgres.NewTraceRepository(db, e.cfg.Database.TraceTable), id)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("supply trace files or --run")
	}
	var chains []ports.TraceSource
	for _, f := range files {
		cs, err := tracefile.NewReader(f, e.logger).ReadChains()
		if err != nil {
			return nil, err
		}
		chains = append(chains, cs...)
	}
	return chains, nil
}

func (e *env) loadFirstChain(ctx context.Context, files []string, runID string) (ports.TraceSource, error) {
	chains, err := e.loadChains(ctx, files, runID)
	if err != nil {
		return nil, err
	}
	if len(chains) == 0 {
		return nil, errors.InternalError("trace source returned no chains")
	}
	return chains[0], nil
}

func newNodesCmd(e *env) *cobra.Command {
	var prefix, runID string
	var subject int
	var group, indices bool

	cmd := &cobra.Command{
		Use:   "nodes [trace-file]",
		Short: "List group-level or subject-level nodes of a model",
		Long: `List the nodes of the first chain of a model.

Without flags every subject node is listed. --group lists group-level nodes,
--subject N lists the nodes of subject N (-1 selects group level) and
--indices prints the subject indices present.

Example: gohbm nodes chains.xlsx --prefix "a(" --subject 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := e.loadFirstChain(cmd.Context(), args, runID)
			if err != nil {
				return err
			}
			nodes := src.Nodes()

			if indices {
				for _, idx := range classify.SubjectIndices(nodes) {
					fmt.Fprintln(cmd.OutOrStdout(), idx)
				}
				return nil
			}

			var selected node.Nodes
			switch {
			case group:
				selected = classify.GroupNodes(nodes)
			case cmd.Flags().Changed("subject"):
				selected, err = classify.SubjectNodes(nodes, classify.Subject(prefix, subject))
			default:
				selected, err = classify.SubjectNodes(nodes, classify.AllSubjects(prefix))
			}
			if err != nil {
				return err
			}
			for _, name := range selected.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Name prefix preceding the subject index")
	cmd.Flags().IntVar(&subject, "subject", classify.GroupLevelIndex, "Subject index (-1 for group level)")
	cmd.Flags().BoolVar(&group, "group", false, "List group-level nodes")
	cmd.Flags().BoolVar(&indices, "indices", false, "List subject indices")
	cmd.Flags().StringVar(&runID, "run", "", "Load traces of this run from the trace store")
	return cmd
}

func newStatsCmd(e *env) *cobra.Command {
	var group bool
	var xlsxOut, runID string

	cmd := &cobra.Command{
		Use:   "stats [trace-file]",
		Short: "Print posterior summaries of every node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := e.loadFirstChain(cmd.Context(), args, runID)
			if err != nil {
				return err
			}

			stats, err := summary.GenStats(src, summary.Options{Alpha: e.cfg.Summary.Alpha, Batches: e.cfg.Summary.Batches})
			if err != nil {
				return err
			}
			if group {
				stats = summary.GroupStats(stats)
			}
			if xlsxOut != "" {
				if err := tracefile.WriteStats(xlsxOut, stats); err != nil {
					return err
				}
				e.logger.Info("stats written to %s", xlsxOut)
			}
			return report.StatsTable(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().BoolVar(&group, "group", false, "Only group-level nodes")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "Also export the table to this XLSX file")
	cmd.Flags().StringVar(&runID, "run", "", "Load traces of this run from the trace store")
	return cmd
}

func newRHatCmd(e *env) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "rhat [trace-files...]",
		Short: "Gelman-Rubin R-hat of every group parameter across chains",
		Long: `Compute R-hat across chains. An XLSX workbook contributes one chain per
sheet; each CSV file contributes one chain.

Example: gohbm rhat chain0.csv chain1.csv chain2.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			chains, err := e.loadChains(cmd.Context(), args, runID)
			if err != nil {
				return err
			}
			rhat, err := diagnostics.ChainConvergence(cmd.Context(), chains, e.cfg.Diagnostics.Workers)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(rhat))
			for name := range rhat {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				flag := ""
				if rhat[name] >= e.cfg.Diagnostics.RHatThreshold {
					flag = "  (not converged)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %.4f%s\n", name, rhat[name], flag)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Load traces of this run from the trace store")
	return cmd
}

func newGewekeCmd(e *env) *cobra.Command {
	var strict, first bool
	var runID string

	cmd := &cobra.Command{
		Use:   "geweke [trace-file]",
		Short: "Geweke convergence check of every group parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := e.loadFirstChain(cmd.Context(), args, runID)
			if err != nil {
				return err
			}

			checker := diagnostics.NewGewekeChecker(e.logger)
			checker.Threshold = e.cfg.Diagnostics.GewekeZThreshold
			policy := diagnostics.PolicyReport
			if strict {
				policy = diagnostics.PolicyStrict
			}

			check := checker.Check
			if first {
				check = checker.CheckFirst
			}
			ok, err := check(src, policy)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converged: %t\n", ok)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail instead of warning on unconverged parameters")
	cmd.Flags().BoolVar(&first, "first", false, "Stop at the first unconverged parameter")
	cmd.Flags().StringVar(&runID, "run", "", "Load traces of this run from the trace store")
	return cmd
}

func newReportCmd(e *env) *cobra.Command {
	var strict bool
	var runID, htmlOut string

	cmd := &cobra.Command{
		Use:   "report [trace-files...]",
		Short: "Summaries, R-hat and Geweke for a set of chains as markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			chains, err := e.loadChains(cmd.Context(), args, runID)
			if err != nil {
				return err
			}

			req := app.DiagnosticsRequest{Chains: chains, Policy: diagnostics.PolicyReport}
			if strict {
				req.Policy = diagnostics.PolicyStrict
			}
			if runID != "" {
				req.RunID = core.RunID(runID)
			}

			rep, runErr := app.NewDiagnosticsService(*e.cfg, e.logger).Run(cmd.Context(), req)
			if rep == nil {
				return runErr
			}

			if htmlOut != "" {
				if err := os.WriteFile(htmlOut, rep.HTML(), 0o644); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), rep.Markdown())
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any parameter is unconverged")
	cmd.Flags().StringVar(&htmlOut, "html", "", "Write the report as HTML to this file")
	cmd.Flags().StringVar(&runID, "run", "", "Load traces of this run from the trace store")
	return cmd
}

func newSavageDickeyCmd(e *env) *cobra.Command {
	var param, priorFile, runID string
	var pos, priorDensity, lower, upper float64
	var bins int

	cmd := &cobra.Command{
		Use:   "savage-dickey [trace-file]",
		Short: "Savage-Dickey density ratio of a parameter at a position",
		Long: `Estimate the Bayes factor for param == pos. Supply the prior either as a
trace (--prior-file, same parameter name) or as its density at pos
(--prior-density).

Example: gohbm savage-dickey chains.xlsx --param mu_diff --pos 0 --prior-density 0.8`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := e.loadFirstChain(cmd.Context(), args, runID)
			if err != nil {
				return err
			}
			post, ok := src.Nodes().ToMap()[param]
			if !ok {
				return fmt.Errorf("parameter %s not found", param)
			}

			opts := savagedickey.Options{Lower: lower, Upper: upper, Bins: bins}
			if cmd.Flags().Changed("prior-density") {
				opts.PriorDensity = &priorDensity
			}
			if priorFile != "" {
				prior, err := tracefile.NewReader(priorFile, e.logger).ReadChain()
				if err != nil {
					return err
				}
				priorNode, ok := prior.Nodes().ToMap()[param]
				if !ok {
					return fmt.Errorf("parameter %s not found in prior traces", param)
				}
				opts.PriorTrace = priorNode.Trace()
			}

			ratio, err := savagedickey.Ratio(pos, post.Trace(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.6g\n", ratio)
			return nil
		},
	}

	defaults := savagedickey.DefaultOptions()
	cmd.Flags().StringVar(&param, "param", "", "Parameter to test")
	cmd.Flags().Float64Var(&pos, "pos", 0, "Position of the point hypothesis")
	cmd.Flags().StringVar(&priorFile, "prior-file", "", "Trace file sampled from the prior")
	cmd.Flags().Float64Var(&priorDensity, "prior-density", 0, "Prior density at pos")
	cmd.Flags().Float64Var(&lower, "lower", defaults.Lower, "Histogram lower bound")
	cmd.Flags().Float64Var(&upper, "upper", defaults.Upper, "Histogram upper bound")
	cmd.Flags().IntVar(&bins, "bins", defaults.Bins, "Histogram bins")
	cmd.Flags().StringVar(&runID, "run", "", "Load traces of this run from the trace store")
	_ = cmd.MarkFlagRequired("param")
	return cmd
}

func newDensityCmd(e *env) *cobra.Command {
	var bins int
	var runID string

	cmd := &cobra.Command{
		Use:   "density [trace-file]",
		Short: "Group vs subject histogram series as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := e.loadFirstChain(cmd.Context(), args, runID)
			if err != nil {
				return err
			}
			panels, err := density.GroupDensities(src, bins, e.logger)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(panels)
		},
	}

	cmd.Flags().IntVar(&bins, "bins", density.DefaultBins, "Histogram bins")
	cmd.Flags().StringVar(&runID, "run", "", "Load traces of this run from the trace store")
	return cmd
}
