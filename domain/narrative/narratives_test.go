package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anovadash/domain/stats"
)

func TestTier_FirstMatchWins(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.0, TierVerySignificant},
		{0.0009, TierVerySignificant},
		{0.001, TierSignificant},
		{0.049, TierSignificant},
		{0.05, TierNotSignificant},
		{0.8, TierNotSignificant},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tier(tt.p), "p=%v", tt.p)
	}
}

func TestTable_Evaluate(t *testing.T) {
	table := Table[int]{
		{Name: "big", When: func(n int) bool { return n > 10 }, Message: fixed[int]("big")},
		{Name: "positive", When: func(n int) bool { return n > 0 }, Message: fixed[int]("positive")},
	}

	name, msg, ok := table.Evaluate(20)
	assert.True(t, ok)
	assert.Equal(t, "big", name)
	assert.Equal(t, "big", msg)

	name, _, ok = table.Evaluate(5)
	assert.True(t, ok)
	assert.Equal(t, "positive", name)

	_, _, ok = table.Evaluate(-1)
	assert.False(t, ok)
}

func TestAssumptionChecks(t *testing.T) {
	name, msg, _ := NormalityCheck.Evaluate(Check{P: 0.2, Alpha: 0.05})
	assert.Equal(t, "normal", name)
	assert.Contains(t, msg, "0.2000")

	name, _, _ = NormalityCheck.Evaluate(Check{P: 0.01, Alpha: 0.05})
	assert.Equal(t, "non_normal", name)

	// the boundary passes, matching p >= alpha
	name, _, _ = HomoscedasticityCheck.Evaluate(Check{P: 0.05, Alpha: 0.05})
	assert.Equal(t, "homoscedastic", name)
}

func TestDescribeVariable_Fallback(t *testing.T) {
	v := stats.VariableAnalysis{
		Variable:    "Neighborhood",
		Target:      "SalePrice",
		ANOVA:       stats.ANOVAResult{PValue: 1e-9},
		Diagnostics: stats.DiagnosticResult{NormalityP: 1e-6, HomoscedasticityP: 1e-4},
		State:       stats.StateFallbackNonparametric,
		Decision:    stats.DecisionNonparametricKruskal,
		Kruskal:     &stats.KruskalResult{H: 40, PValue: 1e-8, DF: 2},
		Posthoc: stats.PosthocResult{
			Procedure: stats.PosthocGamesHowell,
			Comparisons: []stats.PosthocComparison{
				{GroupA: "NAmes", GroupB: "NoRidge", MeanDifference: 150000, AdjustedP: 0.0001},
				{GroupA: "NAmes", GroupB: "Sawyer", MeanDifference: -5000, AdjustedP: 0.7},
			},
		},
	}

	lines := DescribeVariable(v, 0.05)
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "very statistically significant")
	assert.Contains(t, lines[1], "do not")
	assert.Contains(t, lines[2], "heteroscedasticity")
	assert.Contains(t, lines[3], "Kruskal-Wallis")
	assert.Contains(t, lines[3], "differ significantly")
	assert.True(t, strings.HasPrefix(lines[4], "Games-Howell: 1 of 2 pairs"))
	assert.Contains(t, lines[4], "NAmes vs NoRidge")
}

func TestDecisionSummary_UsesAlpha(t *testing.T) {
	v := stats.VariableAnalysis{
		Variable: "House_Style",
		Target:   "SalePrice",
		Decision: stats.DecisionNonparametricKruskal,
		Kruskal:  &stats.KruskalResult{H: 7, PValue: 0.03, DF: 2},
	}

	name, msg, _ := DecisionSummary.Evaluate(Decision{Analysis: v, Alpha: 0.05})
	assert.Equal(t, "kruskal_significant", name)
	assert.Contains(t, msg, "p = 0.0300 < 0.05")

	name, msg, _ = DecisionSummary.Evaluate(Decision{Analysis: v, Alpha: 0.01})
	assert.Equal(t, "kruskal_not_significant", name)
	assert.Contains(t, msg, "p = 0.0300 ≥ 0.01")
	assert.Contains(t, msg, "no significant difference")

	lines := DescribeVariable(v, 0.01)
	require.Len(t, lines, 5)
	assert.Equal(t, msg, lines[3])

	v.Decision = stats.DecisionParametricANOVA
	v.Kruskal = nil
	_, msg, _ = DecisionSummary.Evaluate(Decision{Analysis: v, Alpha: 0.1})
	assert.Contains(t, msg, "alpha = 0.1")
}

func TestPosthocSummary_NoneSignificant(t *testing.T) {
	name, msg, _ := PosthocSummary.Evaluate(stats.PosthocResult{
		Procedure:   stats.PosthocTukeyHSD,
		Comparisons: []stats.PosthocComparison{{GroupA: "a", GroupB: "b", AdjustedP: 0.4}},
	})
	assert.Equal(t, "none_significant", name)
	assert.Equal(t, "Tukey HSD: none of the 1 pairs differ significantly.", msg)

	name, _, _ = PosthocSummary.Evaluate(stats.PosthocResult{Procedure: stats.PosthocTukeyHSD})
	assert.Equal(t, "no_pairs", name)
}

func TestDescribeMultiFactor(t *testing.T) {
	lines := DescribeMultiFactor(stats.MultiFactorResult{Effects: []stats.FactorEffect{
		{Term: "C(Neighborhood)", F: 50, PValue: 1e-12},
		{Term: "C(House_Style)", F: 2.5, PValue: 0.03},
		{Term: "C(Bsmt_Full_Bath)", F: 0.5, PValue: 0.6},
	}})
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "very significant")
	assert.Contains(t, lines[1], "**significant**")
	assert.Contains(t, lines[2], "not significant")
}
