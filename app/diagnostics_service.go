package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gohbm/domain/core"
	"gohbm/internal"
	"gohbm/internal/classify"
	"gohbm/internal/config"
	"gohbm/internal/diagnostics"
	"gohbm/internal/errors"
	"gohbm/internal/report"
	"gohbm/internal/summary"
	"gohbm/ports"
)

// DiagnosticsService summarizes a set of chains and checks their convergence
type DiagnosticsService struct {
	cfg    config.Config
	logger *internal.Logger
}

// DiagnosticsRequest defines the inputs of one diagnostics run
type DiagnosticsRequest struct {
	Chains []ports.TraceSource
	Policy diagnostics.Policy
	RunID  core.RunID // optional, will be generated if empty
}

// NewDiagnosticsService creates a diagnostics service
func NewDiagnosticsService(cfg config.Config, logger *internal.Logger) *DiagnosticsService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DiagnosticsService{cfg: cfg, logger: logger}
}

// Run computes group-level summaries of the first chain, R-hat across chains
// when there are at least two, and Geweke for every chain.
//
// Under PolicyStrict any unconverged parameter fails the run with a
// NOT_CONVERGED error; the report is still returned.
func (s *DiagnosticsService) Run(ctx context.Context, req DiagnosticsRequest) (*report.Report, error) {
	if len(req.Chains) == 0 {
		return nil, errors.InvalidInput("no chains supplied")
	}
	startTime := time.Now()

	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}

	if s.cfg.Diagnostics.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Diagnostics.Timeout)
		defer cancel()
	}

	rep := &report.Report{
		RunID:           runID,
		RHatThreshold:   s.cfg.Diagnostics.RHatThreshold,
		GewekeThreshold: s.cfg.Diagnostics.GewekeZThreshold,
	}

	for _, chain := range req.Chains {
		rep.ChainHashes = append(rep.ChainHashes, core.HashTraces(chain.Nodes().Traces()))
	}

	group := classify.GroupNodes(req.Chains[0].Nodes())
	stats, err := summary.GenStats(group, summary.Options{Alpha: s.cfg.Summary.Alpha, Batches: s.cfg.Summary.Batches})
	if err != nil {
		return nil, stepError("summary", err)
	}
	rep.Stats = stats

	var rhatFailures, gewekeFailures []string
	if len(req.Chains) >= 2 {
		rhat, err := diagnostics.ChainConvergence(ctx, req.Chains, s.cfg.Diagnostics.Workers)
		if err != nil {
			return nil, stepError("R-hat", err)
		}
		rep.RHat = rhat
		for _, name := range diagnostics.Unconverged(rhat, s.cfg.Diagnostics.RHatThreshold) {
			s.logger.Warn("R-hat of %s is %.4f (threshold %.2f)", name, rhat[name], s.cfg.Diagnostics.RHatThreshold)
			rhatFailures = append(rhatFailures, name)
		}
	} else {
		s.logger.Info("run %s has a single chain, skipping R-hat", runID)
	}

	checker := diagnostics.NewGewekeChecker(s.logger)
	checker.Threshold = s.cfg.Diagnostics.GewekeZThreshold
	for i, chain := range req.Chains {
		results, err := checker.Evaluate(chain)
		if err != nil {
			return nil, stepError(fmt.Sprintf("geweke on chain %d", i), err)
		}
		rep.Geweke = append(rep.Geweke, report.ChainGeweke{Chain: i, Results: results})
		for _, r := range results {
			if !r.Converged {
				s.logger.Warn("Chain %d of %s not properly converged (max |z| = %.3f)", i, r.Param, r.MaxAbsZ)
				gewekeFailures = append(gewekeFailures, r.Param)
			}
		}
	}

	s.logger.Info("diagnostics run %s finished in %dms (%d chains, %d group parameters)",
		runID, time.Since(startTime).Milliseconds(), len(req.Chains), len(group))

	if req.Policy != diagnostics.PolicyStrict {
		return rep, nil
	}

	var failures []error
	if len(rhatFailures) > 0 {
		failures = append(failures, core.NewRHatFailure(s.cfg.Diagnostics.RHatThreshold, rhatFailures...))
	}
	if len(gewekeFailures) > 0 {
		failures = append(failures, core.NewConvergenceFailure(s.cfg.Diagnostics.GewekeZThreshold, dedupe(gewekeFailures)...))
	}
	if len(failures) > 0 {
		return rep, errors.NotConverged(stderrors.Join(failures...))
	}
	return rep, nil
}

// stepError codes a failed step: bad traces are INVALID_INPUT, anything else INTERNAL_ERROR
func stepError(step string, err error) error {
	if core.IsInvalidInput(err) {
		return errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("%s failed: %w", step, err))
	}
	return errors.Wrap(err, step+" failed")
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
