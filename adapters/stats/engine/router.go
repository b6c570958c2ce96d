package engine

import (
	"fmt"

	"anovadash/adapters/stats/procedures"
	"anovadash/domain/core"
	"anovadash/domain/narrative"
	"anovadash/domain/stats"
	apperrors "anovadash/internal/errors"
)

// MinGroupSize is the smallest group for which a variance can be estimated
const MinGroupSize = 2

// Policy holds the thresholds of the assumption router
type Policy struct {
	Alpha   float64                // assumption checks, OR-gated
	Posthoc stats.PosthocProcedure // auto picks from the diagnostics
}

// DefaultPolicy returns alpha = 0.05 with automatic post-hoc selection
func DefaultPolicy() Policy {
	return Policy{Alpha: stats.SignificanceLevel, Posthoc: stats.PosthocAuto}
}

// EvaluateDiagnostics fits the one-way group-mean model and checks its
// residuals for normality (Shapiro-Wilk) and constant variance
// (Breusch-Pagan). Both checks always run.
func EvaluateDiagnostics(sample stats.GroupedSample) (stats.DiagnosticResult, error) {
	if sample.K() < 2 {
		return stats.DiagnosticResult{}, &stats.ModelFitError{
			Variable: sample.Variable,
			Reason:   fmt.Sprintf("need at least 2 groups, got %d", sample.K()),
		}
	}
	for _, g := range sample.Groups {
		if g.Len() < MinGroupSize {
			return stats.DiagnosticResult{}, &stats.InsufficientGroupSizeError{
				Variable: sample.Variable,
				Group:    g.Label,
				Size:     g.Len(),
				Required: MinGroupSize,
			}
		}
	}

	model := procedures.FitGroupMeans(sample)
	allZero := true
	for _, e := range model.Residuals {
		if e != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return stats.DiagnosticResult{}, &stats.ModelFitError{
			Variable: sample.Variable,
			Reason:   "residuals are identically zero",
		}
	}

	shapiro, err := procedures.ShapiroWilk(model.Residuals)
	if err != nil {
		return stats.DiagnosticResult{}, &stats.ModelFitError{Variable: sample.Variable, Reason: "normality check", Cause: err}
	}
	bp, err := procedures.BreuschPaganGroups(model.Residuals, model.GroupOf, sample.K())
	if err != nil {
		return stats.DiagnosticResult{}, &stats.ModelFitError{Variable: sample.Variable, Reason: "homoscedasticity check", Cause: err}
	}

	return stats.DiagnosticResult{
		NormalityP:        shapiro.PValue,
		HomoscedasticityP: bp.PValue,
		ShapiroW:          shapiro.W,
		BreuschPaganLM:    bp.LM,
		BreuschPaganDF:    bp.DF,
		Residuals:         len(model.Residuals),
	}, nil
}

// SelectTest runs the two-state selector. It starts in CANDIDATE_PARAMETRIC
// and falls back when either assumption is rejected.
func SelectTest(d stats.DiagnosticResult, alpha float64) stats.SelectorState {
	state := stats.StateCandidateParametric
	if d.NormalityRejected(alpha) || d.HomoscedasticityRejected(alpha) {
		state = stats.StateFallbackNonparametric
	}
	return state
}

// SelectPosthoc picks the pairwise procedure. Games-Howell is used when
// homoscedasticity was rejected, Tukey HSD otherwise, unless forced.
func SelectPosthoc(d stats.DiagnosticResult, policy Policy) stats.PosthocProcedure {
	switch policy.Posthoc {
	case stats.PosthocTukeyHSD, stats.PosthocGamesHowell:
		return policy.Posthoc
	}
	if d.HomoscedasticityRejected(policy.Alpha) {
		return stats.PosthocGamesHowell
	}
	return stats.PosthocTukeyHSD
}

// RunPosthoc runs the chosen procedure on every unordered pair of groups.
// A Tukey HSD result carries one note per assumption the diagnostics rejected.
func RunPosthoc(sample stats.GroupedSample, procedure stats.PosthocProcedure, d stats.DiagnosticResult, alpha float64) stats.PosthocResult {
	var result stats.PosthocResult
	if procedure == stats.PosthocGamesHowell {
		result = procedures.GamesHowell(sample)
	} else {
		result = procedures.TukeyHSD(sample)
	}
	if result.Procedure == stats.PosthocTukeyHSD {
		if d.NormalityRejected(alpha) {
			result.Notes = append(result.Notes, "normality was rejected; Tukey HSD assumes approximately normal residuals")
		}
		if d.HomoscedasticityRejected(alpha) {
			result.Notes = append(result.Notes, "homoscedasticity was rejected; Tukey HSD assumes equal variances")
		}
	}
	return result
}

// Route runs the full assumption-driven pipeline for one grouping variable.
func (p Policy) Route(target core.VariableKey, sample stats.GroupedSample) (stats.VariableAnalysis, error) {
	diagnostics, err := EvaluateDiagnostics(sample)
	if err != nil {
		return stats.VariableAnalysis{}, err
	}

	anova, err := procedures.OneWayANOVA(sample)
	if err != nil {
		return stats.VariableAnalysis{}, &stats.ModelFitError{Variable: sample.Variable, Reason: "one-way ANOVA", Cause: err}
	}

	state := SelectTest(diagnostics, p.Alpha)
	analysis := stats.VariableAnalysis{
		Variable:    sample.Variable,
		Target:      target,
		Groups:      sample.K(),
		N:           sample.N(),
		ANOVA:       anova,
		Diagnostics: diagnostics,
		State:       state,
		Decision:    state.Decision(),
		ChosenTest:  stats.TestOneWayANOVA,
		ChosenP:     anova.PValue,
	}

	if state == stats.StateFallbackNonparametric {
		kruskal, err := procedures.KruskalWallis(sample)
		if err != nil {
			return stats.VariableAnalysis{}, &stats.ModelFitError{Variable: sample.Variable, Reason: "Kruskal-Wallis", Cause: err}
		}
		analysis.Kruskal = &kruskal
		analysis.ChosenTest = stats.TestKruskalWallis
		analysis.ChosenP = kruskal.PValue
	}

	analysis.Posthoc = RunPosthoc(sample, SelectPosthoc(diagnostics, p), diagnostics, p.Alpha)
	analysis.SignificantPairs = analysis.Posthoc.SignificantPairs()
	analysis.Narrative = narrative.DescribeVariable(analysis, p.Alpha)
	return analysis, nil
}

// skipReason converts a variable-scoped error into a report entry
func skipReason(variable core.VariableKey, err error) stats.SkippedVariable {
	return stats.SkippedVariable{Variable: variable, Code: apperrors.GetCode(err), Reason: err.Error()}
}
