package narrative

import (
	"fmt"
	"strings"

	"anovadash/domain/stats"
)

// ============================================================================
// RULE TABLES
// ============================================================================

// Rule pairs a predicate with the message it produces
type Rule[T any] struct {
	Name    string
	When    func(T) bool
	Message func(T) string
}

// Table is an ordered list of rules evaluated top to bottom; first match wins.
type Table[T any] []Rule[T]

// Evaluate returns the name and message of the first matching rule
func (t Table[T]) Evaluate(in T) (string, string, bool) {
	for _, rule := range t {
		if rule.When(in) {
			return rule.Name, rule.Message(in), true
		}
	}
	return "", "", false
}

func always[T any](T) bool { return true }

func fixed[T any](msg string) func(T) string {
	return func(T) string { return msg }
}

// Significance tier names
const (
	TierVerySignificant = "very significant"
	TierSignificant     = "significant"
	TierNotSignificant  = "not significant"
)

// tiers is the three-tier reporting convention shared by one-way and
// multi-factor results.
var tiers = Table[float64]{
	{Name: TierVerySignificant, When: func(p float64) bool { return p < 0.001 }, Message: fixed[float64](TierVerySignificant)},
	{Name: TierSignificant, When: func(p float64) bool { return p < 0.05 }, Message: fixed[float64](TierSignificant)},
	{Name: TierNotSignificant, When: always[float64], Message: fixed[float64](TierNotSignificant)},
}

// Tier classifies a p-value into the three reporting tiers
func Tier(p float64) string {
	name, _, _ := tiers.Evaluate(p)
	return name
}

// ANOVAConclusion words the one-way ANOVA result
var ANOVAConclusion = Table[float64]{
	{
		Name:    TierVerySignificant,
		When:    func(p float64) bool { return p < 0.001 },
		Message: fixed[float64]("**Conclusion**: there is a **very statistically significant difference** between the group means."),
	},
	{
		Name:    TierSignificant,
		When:    func(p float64) bool { return p < 0.05 },
		Message: fixed[float64]("**Conclusion**: there is a **statistically significant difference** between the group means."),
	},
	{
		Name:    TierNotSignificant,
		When:    always[float64],
		Message: fixed[float64]("**Conclusion**: **not enough statistical evidence** to say the group means differ."),
	},
}

// Check is an assumption test outcome judged against alpha
type Check struct {
	P     float64
	Alpha float64
}

func (c Check) passed() bool { return c.P >= c.Alpha }

// NormalityCheck words the Shapiro-Wilk result on the residuals
var NormalityCheck = Table[Check]{
	{
		Name: "normal",
		When: Check.passed,
		Message: func(c Check) string {
			return fmt.Sprintf("Residuals are consistent with a normal distribution (Shapiro-Wilk p = %.4f ≥ %.2f).", c.P, c.Alpha)
		},
	},
	{
		Name: "non_normal",
		When: always[Check],
		Message: func(c Check) string {
			return fmt.Sprintf("Residuals **do not** follow a normal distribution (Shapiro-Wilk p = %.4f < %.2f).", c.P, c.Alpha)
		},
	},
}

// HomoscedasticityCheck words the Breusch-Pagan result on the residuals
var HomoscedasticityCheck = Table[Check]{
	{
		Name: "homoscedastic",
		When: Check.passed,
		Message: func(c Check) string {
			return fmt.Sprintf("Residual variance is constant across groups (Breusch-Pagan p = %.4f ≥ %.2f).", c.P, c.Alpha)
		},
	},
	{
		Name: "heteroscedastic",
		When: always[Check],
		Message: func(c Check) string {
			return fmt.Sprintf("Residual variance is **not** constant, heteroscedasticity detected (Breusch-Pagan p = %.4f < %.2f).", c.P, c.Alpha)
		},
	},
}

// Decision is a variable analysis judged against the run's alpha
type Decision struct {
	Analysis stats.VariableAnalysis
	Alpha    float64
}

// DecisionSummary words the outcome of the test selector
var DecisionSummary = Table[Decision]{
	{
		Name: "parametric",
		When: func(d Decision) bool { return d.Analysis.Decision == stats.DecisionParametricANOVA },
		Message: func(d Decision) string {
			return fmt.Sprintf("Assumptions met at alpha = %.2g: the traditional ANOVA result is final (p = %.4f).", d.Alpha, d.Analysis.ANOVA.PValue)
		},
	},
	{
		Name: "kruskal_significant",
		When: func(d Decision) bool { return d.Analysis.Kruskal != nil && d.Analysis.Kruskal.PValue < d.Alpha },
		Message: func(d Decision) string {
			v := d.Analysis
			return fmt.Sprintf("ANOVA assumptions are violated, so the Kruskal-Wallis test was used: p = %.4f < %.2g, the groups of `%s` differ significantly in `%s`. ANOVA p = %.4f is kept for reference.",
				v.Kruskal.PValue, d.Alpha, v.Variable, v.Target, v.ANOVA.PValue)
		},
	},
	{
		Name: "kruskal_not_significant",
		When: func(d Decision) bool { return d.Analysis.Kruskal != nil },
		Message: func(d Decision) string {
			v := d.Analysis
			return fmt.Sprintf("ANOVA assumptions are violated, so the Kruskal-Wallis test was used: p = %.4f ≥ %.2g, no significant difference between the groups of `%s`. ANOVA p = %.4f is kept for reference.",
				v.Kruskal.PValue, d.Alpha, v.Variable, v.ANOVA.PValue)
		},
	},
}

// largestShown caps the pairs named in the post-hoc summary
const largestShown = 3

// PosthocSummary words the post-hoc comparisons
var PosthocSummary = Table[stats.PosthocResult]{
	{
		Name: "no_pairs",
		When: func(r stats.PosthocResult) bool { return len(r.Comparisons) == 0 },
		Message: func(r stats.PosthocResult) string {
			return fmt.Sprintf("%s: no pair of groups could be compared.", procedureName(r.Procedure))
		},
	},
	{
		Name: "none_significant",
		When: func(r stats.PosthocResult) bool { return len(r.SignificantPairs()) == 0 },
		Message: func(r stats.PosthocResult) string {
			return fmt.Sprintf("%s: none of the %d pairs differ significantly.", procedureName(r.Procedure), len(r.Comparisons))
		},
	},
	{
		Name: "significant_pairs",
		When: always[stats.PosthocResult],
		Message: func(r stats.PosthocResult) string {
			significant := stats.SortByMagnitude(r.SignificantPairs())
			shown := significant
			if len(shown) > largestShown {
				shown = shown[:largestShown]
			}
			parts := make([]string, len(shown))
			for i, c := range shown {
				parts[i] = fmt.Sprintf("%s vs %s (%+.2f, p = %.4f)", c.GroupA, c.GroupB, c.MeanDifference, c.AdjustedP)
			}
			return fmt.Sprintf("%s: %d of %d pairs differ significantly. Largest differences: %s.",
				procedureName(r.Procedure), len(significant), len(r.Comparisons), strings.Join(parts, "; "))
		},
	},
}

// FactorConclusion words one row of the multi-factor table
var FactorConclusion = Table[stats.FactorEffect]{
	{
		Name: TierVerySignificant,
		When: func(e stats.FactorEffect) bool { return e.PValue < 0.001 },
		Message: func(e stats.FactorEffect) string {
			return fmt.Sprintf("`%s` has a **very significant** effect (F = %.2f, p = %.4g).", e.Term, e.F, e.PValue)
		},
	},
	{
		Name: TierSignificant,
		When: func(e stats.FactorEffect) bool { return e.PValue < 0.05 },
		Message: func(e stats.FactorEffect) string {
			return fmt.Sprintf("`%s` has a **significant** effect (F = %.2f, p = %.4f).", e.Term, e.F, e.PValue)
		},
	},
	{
		Name: TierNotSignificant,
		When: always[stats.FactorEffect],
		Message: func(e stats.FactorEffect) string {
			return fmt.Sprintf("`%s` is **not significant** (F = %.2f, p = %.4f).", e.Term, e.F, e.PValue)
		},
	},
}

func procedureName(p stats.PosthocProcedure) string {
	switch p {
	case stats.PosthocTukeyHSD:
		return "Tukey HSD"
	case stats.PosthocGamesHowell:
		return "Games-Howell"
	}
	return string(p)
}

// ============================================================================
// COMPOSED NARRATIVES
// ============================================================================

// DescribeVariable returns the markdown sentences for one variable, in
// reporting order.
func DescribeVariable(v stats.VariableAnalysis, alpha float64) []string {
	var lines []string
	add := func(msg string, ok bool) {
		if ok {
			lines = append(lines, msg)
		}
	}

	_, msg, ok := ANOVAConclusion.Evaluate(v.ANOVA.PValue)
	add(msg, ok)
	_, msg, ok = NormalityCheck.Evaluate(Check{P: v.Diagnostics.NormalityP, Alpha: alpha})
	add(msg, ok)
	_, msg, ok = HomoscedasticityCheck.Evaluate(Check{P: v.Diagnostics.HomoscedasticityP, Alpha: alpha})
	add(msg, ok)
	_, msg, ok = DecisionSummary.Evaluate(Decision{Analysis: v, Alpha: alpha})
	add(msg, ok)
	_, msg, ok = PosthocSummary.Evaluate(v.Posthoc)
	add(msg, ok)
	return lines
}

// DescribeMultiFactor returns one sentence per model term
func DescribeMultiFactor(r stats.MultiFactorResult) []string {
	lines := make([]string, 0, len(r.Effects))
	for _, e := range r.Effects {
		if _, msg, ok := FactorConclusion.Evaluate(e); ok {
			lines = append(lines, msg)
		}
	}
	return lines
}

// ProcedureName returns the display name of a post-hoc procedure
func ProcedureName(p stats.PosthocProcedure) string {
	return procedureName(p)
}
