package engine

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"anovadash/domain/core"
	"anovadash/domain/dataset"
	"anovadash/domain/stats"
	"anovadash/internal"
)

// Request names the columns of one analysis run
type Request struct {
	Target       string
	Factors      []string
	MultiFactor  bool
	Interactions bool
	Posthoc      stats.PosthocProcedure // empty keeps the engine policy
}

// Validate checks the request shape before any data is touched
func (r Request) Validate() error {
	if r.Target == "" {
		return core.NewValidationError("target", "is required")
	}
	if len(r.Factors) == 0 {
		return core.NewValidationError("factors", "at least one grouping variable is required")
	}
	seen := make(map[string]bool, len(r.Factors))
	for _, f := range r.Factors {
		if f == r.Target {
			return core.NewValidationError("factors", fmt.Sprintf("%q is also the target", f))
		}
		if seen[f] {
			return core.NewValidationError("factors", fmt.Sprintf("%q listed twice", f))
		}
		seen[f] = true
	}
	if r.Posthoc != "" {
		if _, err := stats.ParsePosthocProcedure(string(r.Posthoc)); err != nil {
			return err
		}
	}
	if r.Interactions && !r.MultiFactor {
		return core.NewValidationError("interactions", "only apply to the multi-factor model")
	}
	return nil
}

// Engine runs the assumption router over every grouping variable of a request
type Engine struct {
	policy  Policy
	workers int64
	logger  *internal.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithWorkers bounds the number of variables analyzed concurrently
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = int64(n)
		}
	}
}

// WithLogger replaces the default logger
func WithLogger(l *internal.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.With("Engine")
		}
	}
}

// NewEngine creates an engine with the given routing policy
func NewEngine(policy Policy, opts ...Option) *Engine {
	if policy.Alpha <= 0 || policy.Alpha >= 1 {
		policy.Alpha = stats.SignificanceLevel
	}
	if policy.Posthoc == "" {
		policy.Posthoc = stats.PosthocAuto
	}
	e := &Engine{
		policy:  policy,
		workers: int64(runtime.NumCPU()),
		logger:  internal.DefaultLogger.With("Engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the routing policy in use
func (e *Engine) Policy() Policy {
	return e.policy
}

// Analyze drops incomplete rows, then routes every grouping variable
// independently. Variable-scoped failures are recorded in Skipped; only
// request-level problems (unknown columns, non-numeric target, no rows)
// are returned as errors.
func (e *Engine) Analyze(ctx context.Context, table *dataset.Table, req Request) (*stats.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, core.NewValidationError("table", "is required")
	}

	columns := append([]string{req.Target}, req.Factors...)
	clean, dropped, err := table.DropIncomplete(columns...)
	if err != nil {
		return nil, err
	}
	if clean.NumRows() == 0 {
		return nil, fmt.Errorf("%w: no complete rows for %v", core.ErrInsufficientData, columns)
	}
	response, err := clean.Numeric(req.Target)
	if err != nil {
		return nil, err
	}

	policy := e.policy
	if req.Posthoc != "" {
		// Validate already rejected unknown spellings
		procedure, _ := stats.ParsePosthocProcedure(string(req.Posthoc))
		policy.Posthoc = procedure
	}

	target := core.VariableKey(req.Target)
	report := &stats.Report{
		RunID:       core.NewRunID(),
		CreatedAt:   core.Now(),
		Target:      target,
		Factors:     core.VariableKeys(req.Factors),
		Rows:        clean.NumRows(),
		RowsDropped: dropped,
	}
	e.logger.Info("run %s: %d rows (%d dropped), target %s, %d factors",
		report.RunID, report.Rows, dropped, target, len(req.Factors))

	type slot struct {
		analysis *stats.VariableAnalysis
		skipped  *stats.SkippedVariable
	}
	slots := make([]slot, len(req.Factors))

	sem := semaphore.NewWeighted(e.workers)
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range req.Factors {
		i, name := i, name
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			key := core.VariableKey(name)
			analysis, err := analyzeVariable(policy, clean, target, key, response)
			if err != nil {
				if !stats.IsVariableScoped(err) {
					return fmt.Errorf("analyze %s: %w", name, err)
				}
				skip := skipReason(key, err)
				e.logger.Warn("skipping %s: %s", name, skip.Reason)
				slots[i] = slot{skipped: &skip}
				return nil
			}
			e.logger.Debug("%s: %s p=%.4g, posthoc %s", name, analysis.ChosenTest, analysis.ChosenP, analysis.Posthoc.Procedure)
			slots[i] = slot{analysis: &analysis}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, s := range slots {
		switch {
		case s.analysis != nil:
			report.Variables = append(report.Variables, *s.analysis)
		case s.skipped != nil:
			report.Skipped = append(report.Skipped, *s.skipped)
		}
	}

	if len(req.Factors) > 1 {
		report.Limitations = append(report.Limitations, fmt.Sprintf(
			"Each of the %d grouping variables is tested on its own against %s; no multiple-comparison correction is applied across variables.",
			len(req.Factors), target))
	}

	if req.MultiFactor {
		mf, err := e.fitMultiFactor(clean, target, response, req)
		if err != nil {
			e.logger.Warn("multi-factor model: %v", err)
			report.MultiFactorError = err.Error()
		} else {
			report.MultiFactor = &mf
		}
	}

	e.logger.Info("run %s: %d analyzed, %d skipped", report.RunID, len(report.Variables), len(report.Skipped))
	return report, nil
}

func analyzeVariable(policy Policy, table *dataset.Table, target, key core.VariableKey, response []float64) (stats.VariableAnalysis, error) {
	labels, err := table.Categorical(string(key))
	if err != nil {
		return stats.VariableAnalysis{}, err
	}
	sample, err := stats.NewGroupedSample(key, response, labels)
	if err != nil {
		return stats.VariableAnalysis{}, err
	}
	return policy.Route(target, sample)
}

func (e *Engine) fitMultiFactor(table *dataset.Table, target core.VariableKey, response []float64, req Request) (stats.MultiFactorResult, error) {
	if len(req.Factors) < 2 {
		return stats.MultiFactorResult{}, core.NewValidationError("factors", "multi-factor ANOVA needs at least 2 grouping variables")
	}
	factors := make([]Factor, 0, len(req.Factors))
	for _, name := range req.Factors {
		labels, err := table.Categorical(name)
		if err != nil {
			return stats.MultiFactorResult{}, err
		}
		factors = append(factors, Factor{Name: core.VariableKey(name), Labels: labels})
	}
	return FitMultiFactor(target, response, factors, req.Interactions)
}
