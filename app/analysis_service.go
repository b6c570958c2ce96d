package app

import (
	"context"
	"fmt"
	"sync"

	"anovadash/adapters/excel"
	"anovadash/adapters/stats/engine"
	"anovadash/domain/core"
	"anovadash/domain/dataset"
	"anovadash/domain/stats"
	"anovadash/internal"
	"anovadash/internal/config"
	apperrors "anovadash/internal/errors"
	"anovadash/internal/profiling"
	"anovadash/internal/testkit"
	"anovadash/ports"
)

// AnalysisService loads the dataset once and serves analyses over it
type AnalysisService struct {
	source       ports.TableSource
	engine       *engine.Engine
	defaults     config.AnalysisConfig
	descriptions map[string]string
	logger       *internal.Logger

	mu    sync.Mutex
	table *dataset.Table
}

// GroupView is the descriptive view of one grouping variable
type GroupView struct {
	Target   core.VariableKey       `json:"target"`
	Variable core.VariableKey       `json:"variable"`
	Boxes    []profiling.BoxSummary `json:"boxes"`
	QQ       *profiling.QQPlot      `json:"qq,omitempty"`
}

// NewAnalysisService wires a table source to an engine
func NewAnalysisService(source ports.TableSource, eng *engine.Engine, defaults config.AnalysisConfig) *AnalysisService {
	return &AnalysisService{
		source:       source,
		engine:       eng,
		defaults:     defaults,
		descriptions: defaults.Descriptions,
		logger:       internal.DefaultLogger.With("AnalysisService"),
	}
}

// NewAnalysisServiceFromConfig reads DATA_FILE when set and falls back to
// the synthetic housing table otherwise
func NewAnalysisServiceFromConfig(cfg *config.Config) (*AnalysisService, error) {
	posthoc, err := stats.ParsePosthocProcedure(cfg.Analysis.Posthoc)
	if err != nil {
		return nil, apperrors.Wrap(err, "invalid post-hoc procedure")
	}
	eng := engine.NewEngine(
		engine.Policy{Alpha: cfg.Analysis.Alpha, Posthoc: posthoc},
		engine.WithWorkers(cfg.Analysis.Workers),
	)

	var source ports.TableSource
	if cfg.Data.File != "" {
		source = excel.NewDataReader(cfg.Data.File)
	} else {
		source = NewSyntheticSource(testkit.DefaultHousingConfig())
	}
	return NewAnalysisService(source, eng, cfg.Analysis), nil
}

// SourceName identifies where the data came from
func (s *AnalysisService) SourceName() string {
	return s.source.Name()
}

// Table returns the dataset, loading it on first use
func (s *AnalysisService) Table(ctx context.Context) (*dataset.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table != nil {
		return s.table, nil
	}

	table, err := s.source.Load(ctx)
	if err != nil {
		return nil, apperrors.DataSourceError(s.source.Name(), err)
	}
	s.logger.Info("loaded %s: %d rows, %d columns", s.source.Name(), table.NumRows(), len(table.Columns))
	s.table = table
	return table, nil
}

// DefaultRequest returns the configured target and factors
func (s *AnalysisService) DefaultRequest() engine.Request {
	return engine.Request{
		Target:       s.defaults.Target,
		Factors:      append([]string(nil), s.defaults.Factors...),
		MultiFactor:  s.defaults.MultiFactor && len(s.defaults.Factors) > 1,
		Interactions: s.defaults.Interactions && len(s.defaults.Factors) > 1,
	}
}

// Columns lists every column with its profile description
func (s *AnalysisService) Columns(ctx context.Context) ([]profiling.ColumnDescription, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return profiling.DescribeColumns(table, s.descriptions), nil
}

// Describe summarizes the numeric columns
func (s *AnalysisService) Describe(ctx context.Context) ([]profiling.ColumnSummary, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return profiling.DescribeTable(table)
}

// Analyze runs the engine; empty target or factors fall back to the defaults
func (s *AnalysisService) Analyze(ctx context.Context, req engine.Request) (*stats.Report, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	if req.Target == "" {
		req.Target = s.defaults.Target
	}
	if len(req.Factors) == 0 {
		req.Factors = append([]string(nil), s.defaults.Factors...)
	}
	return s.engine.Analyze(ctx, table, req)
}

// MultiFactor runs only the multi-factor model over the given factors
func (s *AnalysisService) MultiFactor(ctx context.Context, target string, factors []string, interactions bool) (*stats.MultiFactorResult, error) {
	report, err := s.Analyze(ctx, engine.Request{Target: target, Factors: factors, MultiFactor: true, Interactions: interactions})
	if err != nil {
		return nil, err
	}
	if report.MultiFactor == nil {
		return nil, apperrors.New(apperrors.CodeModelFit, report.MultiFactorError)
	}
	return report.MultiFactor, nil
}

// Groups returns box summaries and the Q-Q plot of group means for one factor
func (s *AnalysisService) Groups(ctx context.Context, target, factor string) (*GroupView, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	if target == "" {
		target = s.defaults.Target
	}
	clean, _, err := table.DropIncomplete(target, factor)
	if err != nil {
		return nil, err
	}
	response, err := clean.Numeric(target)
	if err != nil {
		return nil, err
	}
	labels, err := clean.Categorical(factor)
	if err != nil {
		return nil, err
	}
	sample, err := stats.NewGroupedSample(core.VariableKey(factor), response, labels)
	if err != nil {
		return nil, err
	}

	boxes, err := profiling.BoxSummaries(sample)
	if err != nil {
		return nil, fmt.Errorf("box summaries for %s: %w", factor, err)
	}
	view := &GroupView{Target: core.VariableKey(target), Variable: sample.Variable, Boxes: boxes}
	if qq, err := profiling.GroupMeansQQ(sample); err == nil {
		view.QQ = &qq
	} else {
		s.logger.Debug("no Q-Q plot for %s: %v", factor, err)
	}
	return view, nil
}

// SyntheticSource serves the seeded housing table
type SyntheticSource struct {
	config testkit.HousingGeneratorConfig
}

// NewSyntheticSource creates a source for generated data
func NewSyntheticSource(config testkit.HousingGeneratorConfig) *SyntheticSource {
	return &SyntheticSource{config: config}
}

// Name implements ports.TableSource
func (s *SyntheticSource) Name() string {
	return fmt.Sprintf("synthetic housing (seed %d)", s.config.Seed)
}

// Load implements ports.TableSource
func (s *SyntheticSource) Load(ctx context.Context) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return testkit.NewHousingGenerator(s.config).Table()
}
