package app

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"anovadash/adapters/stats/engine"
	"anovadash/domain/dataset"
	"anovadash/internal/config"
	apperrors "anovadash/internal/errors"
	"anovadash/internal/testkit"
)

// MockTableSource is a mock implementation of ports.TableSource
type MockTableSource struct {
	mock.Mock
}

func (m *MockTableSource) Name() string {
	return "mock"
}

func (m *MockTableSource) Load(ctx context.Context) (*dataset.Table, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataset.Table), args.Error(1)
}

func defaults() config.AnalysisConfig {
	return config.AnalysisConfig{
		Target:      config.DefaultTarget,
		Factors:     config.SplitList(config.DefaultFactors),
		Alpha:       0.05,
		Workers:     2,
		MultiFactor: true,
		Descriptions: map[string]string{
			"SalePrice": "Sale price in USD",
		},
	}
}

func syntheticService() *AnalysisService {
	return NewAnalysisService(
		NewSyntheticSource(testkit.DefaultHousingConfig()),
		engine.NewEngine(engine.DefaultPolicy(), engine.WithWorkers(2)),
		defaults(),
	)
}

func TestAnalysisService_DefaultAnalysis(t *testing.T) {
	svc := syntheticService()
	report, err := svc.Analyze(context.Background(), svc.DefaultRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, report.RowsDropped)
	assert.Equal(t, 2928, report.Rows)
	require.Len(t, report.Variables, 3)
	assert.Empty(t, report.Skipped)

	nbhd, ok := report.Variable("Neighborhood")
	require.True(t, ok)
	assert.Less(t, nbhd.ChosenP, 0.001)
	assert.Equal(t, 26, nbhd.Groups)
	assert.Len(t, nbhd.Posthoc.Comparisons, 325)

	require.NotNil(t, report.MultiFactor)
	require.Len(t, report.MultiFactor.Effects, 3)
	assert.Equal(t, "C(Neighborhood)", report.MultiFactor.Effects[0].Term)
	assert.Less(t, report.MultiFactor.Effects[0].PValue, 0.001)
}

func TestAnalysisService_SingletonCategorySkipped(t *testing.T) {
	svc := syntheticService()
	report, err := svc.Analyze(context.Background(), engine.Request{Factors: []string{"MS_SubClass", "House_Style"}})
	require.NoError(t, err)

	assert.True(t, report.IsSkipped("MS_SubClass"))
	assert.Equal(t, apperrors.CodeInsufficientGroupSize, report.Skipped[0].Code)
	_, ok := report.Variable("House_Style")
	assert.True(t, ok)
}

func TestAnalysisService_ColumnsAndDescribe(t *testing.T) {
	svc := syntheticService()

	cols, err := svc.Columns(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 7)
	assert.Equal(t, "SalePrice", cols[6].Name)
	assert.Equal(t, "Sale price in USD", cols[6].Description)

	rows, err := svc.Describe(context.Background())
	require.NoError(t, err)
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Column
	}
	assert.Contains(t, names, "SalePrice")
	assert.NotContains(t, names, "Neighborhood")
}

func TestAnalysisService_DefaultDescriptions(t *testing.T) {
	cfg := defaults()
	cfg.Descriptions = config.DefaultDescriptions()
	svc := NewAnalysisService(
		NewSyntheticSource(testkit.DefaultHousingConfig()),
		engine.NewEngine(engine.DefaultPolicy(), engine.WithWorkers(2)),
		cfg,
	)

	cols, err := svc.Columns(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 7)
	for _, c := range cols {
		assert.NotEmpty(t, c.Description, c.Name)
	}
	assert.Equal(t, "Neighborhood where the house is located", cols[3].Description)
	assert.Equal(t, "Final sale price of the house", cols[6].Description)
}

func TestAnalysisService_Groups(t *testing.T) {
	view, err := syntheticService().Groups(context.Background(), "", "House_Style")
	require.NoError(t, err)

	assert.Len(t, view.Boxes, 8)
	require.NotNil(t, view.QQ)
	assert.Len(t, view.QQ.Points, 8)
	for i := 1; i < len(view.QQ.Points); i++ {
		assert.GreaterOrEqual(t, view.QQ.Points[i].Observed, view.QQ.Points[i-1].Observed)
	}
}

func TestAnalysisService_MultiFactorError(t *testing.T) {
	_, err := syntheticService().MultiFactor(context.Background(), "SalePrice", []string{"MS_SubClass", "MS_SubClass"}, false)
	require.Error(t, err)
}

func TestAnalysisService_LoadsOnce(t *testing.T) {
	table, err := testkit.NewHousingGenerator(testkit.DefaultHousingConfig()).Table()
	require.NoError(t, err)

	source := new(MockTableSource)
	source.On("Load", mock.Anything).Return(table, nil).Once()

	svc := NewAnalysisService(source, engine.NewEngine(engine.DefaultPolicy()), defaults())
	_, err = svc.Columns(context.Background())
	require.NoError(t, err)
	_, err = svc.Describe(context.Background())
	require.NoError(t, err)

	source.AssertExpectations(t)
}

func TestAnalysisService_SourceError(t *testing.T) {
	source := new(MockTableSource)
	source.On("Load", mock.Anything).Return(nil, stderrors.New("disk on fire"))

	svc := NewAnalysisService(source, engine.NewEngine(engine.DefaultPolicy()), defaults())
	_, err := svc.Analyze(context.Background(), engine.Request{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDataSource, apperrors.GetCode(err))
}

func TestNewAnalysisServiceFromConfig(t *testing.T) {
	cfg := &config.Config{Analysis: defaults()}
	cfg.Analysis.Posthoc = "bogus"
	_, err := NewAnalysisServiceFromConfig(cfg)
	assert.Error(t, err)

	cfg.Analysis.Posthoc = "games_howell"
	svc, err := NewAnalysisServiceFromConfig(cfg)
	require.NoError(t, err)
	assert.Contains(t, svc.SourceName(), "synthetic")
}
