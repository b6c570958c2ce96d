package profiling

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anovadash/domain/core"
	"anovadash/domain/dataset"
	"anovadash/domain/stats"
)

func TestSummarize_IgnoresNaN(t *testing.T) {
	s, err := Summarize([]float64{1, 2, math.NaN(), 3, 4, 5})
	require.NoError(t, err)

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 5.0, s.Max)
	assert.LessOrEqual(t, s.Q25, s.Median)
	assert.GreaterOrEqual(t, s.Q75, s.Median)
	assert.InDelta(t, 0.0, s.Skewness, 1e-12)
	assert.Equal(t, 0, s.Outliers)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize([]float64{math.NaN()})
	assert.Error(t, err)
}

func TestSummarize_Single(t *testing.T) {
	s, err := Summarize([]float64{7})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, 7.0, s.Q25)
	assert.Equal(t, 7.0, s.Q75)
}

func TestSummarize_LinearQuartiles(t *testing.T) {
	tests := []struct {
		values   []float64
		q25, q75 float64
	}{
		{[]float64{1, 2, 3, 4}, 1.75, 3.25},
		{[]float64{4, 1, 3, 2}, 1.75, 3.25},
		{[]float64{1, 2, 3, 4, 5}, 2, 4},
		{[]float64{10, 20}, 12.5, 17.5},
		{[]float64{148, 154, 158, 160, 161, 162, 166, 170, 182, 195, 236}, 159, 176},
	}
	for _, tt := range tests {
		s, err := Summarize(tt.values)
		require.NoError(t, err)
		assert.InDelta(t, tt.q25, s.Q25, 1e-12, "%v", tt.values)
		assert.InDelta(t, tt.q75, s.Q75, 1e-12, "%v", tt.values)
	}
}

func TestBoxSummaries_SmallGroupQuartiles(t *testing.T) {
	boxes, err := BoxSummaries(stats.GroupedSample{
		Variable: "House_Style",
		Groups: []stats.Group{
			{Label: "2Story", Values: []float64{100, 200, 300, 400}},
			{Label: "1Story", Values: []float64{5, 7}},
		},
	})
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, "1Story", boxes[0].Group)
	assert.InDelta(t, 5.5, boxes[0].Q1, 1e-12)
	assert.InDelta(t, 6.5, boxes[0].Q3, 1e-12)
	assert.InDelta(t, 175.0, boxes[1].Q1, 1e-12)
	assert.InDelta(t, 325.0, boxes[1].Q3, 1e-12)
}

func TestSummarize_SkewAndOutliers(t *testing.T) {
	s, err := Summarize([]float64{1, 1, 2, 2, 2, 3, 3, 3, 4, 50})
	require.NoError(t, err)
	assert.Greater(t, s.Skewness, 1.0)
	assert.Equal(t, 1, s.Outliers)
}

func housingTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable("ames",
		[]string{"SalePrice", "Neighborhood", "Lot_Frontage"},
		[][]string{
			{"200000", "NAmes", "80"},
			{"180000", "NAmes", "NA"},
			{"350000", "NoRidge", "90"},
			{"330000", "NoRidge", "85"},
		})
	require.NoError(t, err)
	return table
}

func TestDescribeColumns(t *testing.T) {
	cols := DescribeColumns(housingTable(t), map[string]string{"SalePrice": "Sale price in USD"})
	require.Len(t, cols, 3)

	assert.Equal(t, "Sale price in USD", cols[0].Description)
	assert.Equal(t, dataset.KindNumeric, cols[0].Kind)
	assert.Equal(t, dataset.KindCategorical, cols[1].Kind)
	assert.Equal(t, 2, cols[1].Distinct)
	assert.Equal(t, "", cols[1].Description)
	assert.Equal(t, 1, cols[2].Missing)
}

func TestDescribeTable_NumericOnly(t *testing.T) {
	rows, err := DescribeTable(housingTable(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "SalePrice", rows[0].Column)
	assert.Equal(t, 4, rows[0].Count)
	assert.InDelta(t, 265000.0, rows[0].Mean, 1e-9)
	assert.Equal(t, "Lot_Frontage", rows[1].Column)
	assert.Equal(t, 3, rows[1].Count)
}

func TestBoxSummaries_SortedByGroup(t *testing.T) {
	sample := stats.NewGroupedSampleFromGroups("Neighborhood",
		stats.Group{Label: "NoRidge", Values: []float64{350, 330, 340}},
		stats.Group{Label: "NAmes", Values: []float64{200, 180}},
	)
	boxes, err := BoxSummaries(sample)
	require.NoError(t, err)
	require.Len(t, boxes, 2)

	assert.Equal(t, "NAmes", boxes[0].Group)
	assert.Equal(t, 2, boxes[0].N)
	assert.Equal(t, 340.0, boxes[1].Median)

	lo, hi := Range(boxes)
	assert.Equal(t, 180.0, lo)
	assert.Equal(t, 350.0, hi)
}

func TestFillibenPositions(t *testing.T) {
	pos := fillibenPositions(5)
	require.Len(t, pos, 5)
	assert.InDelta(t, 1-math.Pow(0.5, 0.2), pos[0], 1e-12)
	assert.InDelta(t, 0.5, pos[2], 1e-12)
	assert.InDelta(t, math.Pow(0.5, 0.2), pos[4], 1e-12)
	for i := 1; i < len(pos); i++ {
		assert.Greater(t, pos[i], pos[i-1])
	}
}

func TestGroupMeansQQ(t *testing.T) {
	sample := stats.NewGroupedSampleFromGroups("House_Style",
		stats.Group{Label: "2Story", Values: []float64{3, 5}},
		stats.Group{Label: "1Story", Values: []float64{0, 2}},
		stats.Group{Label: "SLvl", Values: []float64{6, 8}},
	)
	qq, err := GroupMeansQQ(sample)
	require.NoError(t, err)
	require.Len(t, qq.Points, 3)

	assert.Equal(t, "1Story", qq.Points[0].Group)
	assert.Equal(t, 1.0, qq.Points[0].Observed)
	assert.InDelta(t, 0.0, qq.Points[1].Theoretical, 1e-12)
	assert.InDelta(t, -qq.Points[2].Theoretical, qq.Points[0].Theoretical, 1e-12)
	assert.Greater(t, qq.Slope, 0.0)
	assert.InDelta(t, 4.0, qq.Intercept, 1e-9)
	assert.Greater(t, qq.R, 0.99)
}

func TestGroupMeansQQ_NeedsTwoGroups(t *testing.T) {
	_, err := GroupMeansQQ(stats.NewGroupedSampleFromGroups("x", stats.Group{Label: "a", Values: []float64{1}}))
	assert.True(t, errors.Is(err, core.ErrInsufficientData))
}
