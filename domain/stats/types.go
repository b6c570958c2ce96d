package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"anovadash/domain/core"
)

// SignificanceLevel is the fixed threshold used for assumption checks and
// post-hoc significance flags.
const SignificanceLevel = 0.05

// ============================================================================
// GROUPED SAMPLES
// ============================================================================

// Group holds the observations of a single category.
type Group struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// Len returns the number of observations in the group
func (g Group) Len() int {
	return len(g.Values)
}

// GroupedSample partitions a numeric response by category label.
// Groups keep the order in which their labels were first seen.
type GroupedSample struct {
	Variable core.VariableKey `json:"variable"`
	Groups   []Group          `json:"groups"`
}

// NewGroupedSample partitions response by grouping. Both slices must have the
// same length and contain no missing values.
func NewGroupedSample(variable core.VariableKey, response []float64, grouping []string) (GroupedSample, error) {
	if len(response) != len(grouping) {
		return GroupedSample{}, fmt.Errorf("%w: response has %d values, grouping has %d",
			core.ErrInvalidRequest, len(response), len(grouping))
	}
	if len(response) == 0 {
		return GroupedSample{}, fmt.Errorf("%w: no observations for %s", core.ErrInsufficientData, variable)
	}

	index := make(map[string]int)
	sample := GroupedSample{Variable: variable}
	for i, label := range grouping {
		if math.IsNaN(response[i]) {
			return GroupedSample{}, fmt.Errorf("%w: missing response at row %d", core.ErrInvalidRequest, i)
		}
		idx, ok := index[label]
		if !ok {
			idx = len(sample.Groups)
			index[label] = idx
			sample.Groups = append(sample.Groups, Group{Label: label})
		}
		sample.Groups[idx].Values = append(sample.Groups[idx].Values, response[i])
	}
	return sample, nil
}

// NewGroupedSampleFromGroups builds a sample from already partitioned groups.
func NewGroupedSampleFromGroups(variable core.VariableKey, groups ...Group) GroupedSample {
	return GroupedSample{Variable: variable, Groups: groups}
}

// K returns the number of groups
func (s GroupedSample) K() int {
	return len(s.Groups)
}

// N returns the total number of observations
func (s GroupedSample) N() int {
	n := 0
	for _, g := range s.Groups {
		n += g.Len()
	}
	return n
}

// Labels returns the group labels in sample order
func (s GroupedSample) Labels() []string {
	labels := make([]string, len(s.Groups))
	for i, g := range s.Groups {
		labels[i] = g.Label
	}
	return labels
}

// Smallest returns the group with the fewest observations.
func (s GroupedSample) Smallest() (Group, bool) {
	if len(s.Groups) == 0 {
		return Group{}, false
	}
	smallest := s.Groups[0]
	for _, g := range s.Groups[1:] {
		if g.Len() < smallest.Len() {
			smallest = g
		}
	}
	return smallest, true
}

// WithMinSize returns a copy without groups smaller than minSize, plus the
// labels that were dropped.
func (s GroupedSample) WithMinSize(minSize int) (GroupedSample, []string) {
	kept := GroupedSample{Variable: s.Variable}
	var dropped []string
	for _, g := range s.Groups {
		if g.Len() < minSize {
			dropped = append(dropped, g.Label)
			continue
		}
		kept.Groups = append(kept.Groups, g)
	}
	return kept, dropped
}

// Flatten returns all observations and the group index of each one.
func (s GroupedSample) Flatten() ([]float64, []int) {
	values := make([]float64, 0, s.N())
	index := make([]int, 0, s.N())
	for gi, g := range s.Groups {
		values = append(values, g.Values...)
		for range g.Values {
			index = append(index, gi)
		}
	}
	return values, index
}

// ============================================================================
// DIAGNOSTICS AND DECISIONS
// ============================================================================

// DiagnosticResult holds the assumption checks computed from the residuals of
// the one-way group-mean model.
type DiagnosticResult struct {
	NormalityP        float64 `json:"normality_p"`
	HomoscedasticityP float64 `json:"homoscedasticity_p"`
	ShapiroW          float64 `json:"shapiro_w"`
	BreuschPaganLM    float64 `json:"breusch_pagan_lm"`
	BreuschPaganDF    int     `json:"breusch_pagan_df"`
	Residuals         int     `json:"residuals"`
}

// NormalityRejected reports whether the residuals fail the normality check
func (d DiagnosticResult) NormalityRejected(alpha float64) bool {
	return d.NormalityP < alpha
}

// HomoscedasticityRejected reports whether the residual variance is non-constant
func (d DiagnosticResult) HomoscedasticityRejected(alpha float64) bool {
	return d.HomoscedasticityP < alpha
}

// TestDecision is the outcome of the test selector.
type TestDecision string

const (
	DecisionParametricANOVA      TestDecision = "PARAMETRIC_ANOVA"
	DecisionNonparametricKruskal TestDecision = "NONPARAMETRIC_KRUSKAL"
)

// SelectorState is a state of the two-state test selector.
type SelectorState string

const (
	StateCandidateParametric   SelectorState = "CANDIDATE_PARAMETRIC"
	StateFallbackNonparametric SelectorState = "FALLBACK_NONPARAMETRIC"
)

// Decision maps a terminal selector state to its test decision
func (s SelectorState) Decision() TestDecision {
	if s == StateFallbackNonparametric {
		return DecisionNonparametricKruskal
	}
	return DecisionParametricANOVA
}

// Test names reported as the chosen test
const (
	TestOneWayANOVA   = "one_way_anova"
	TestKruskalWallis = "kruskal_wallis"
)

// ANOVAResult is a one-way analysis of variance
type ANOVAResult struct {
	F         float64 `json:"f"`
	PValue    float64 `json:"p_value"`
	SSBetween float64 `json:"ss_between"`
	SSWithin  float64 `json:"ss_within"`
	DFBetween int     `json:"df_between"`
	DFWithin  int     `json:"df_within"`
}

// KruskalResult is a Kruskal-Wallis H test
type KruskalResult struct {
	H      float64 `json:"h"`
	PValue float64 `json:"p_value"`
	DF     int     `json:"df"`
}

// ShapiroResult is a Shapiro-Wilk normality test
type ShapiroResult struct {
	W      float64 `json:"w"`
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// BreuschPaganResult is a studentised Breusch-Pagan heteroscedasticity test
type BreuschPaganResult struct {
	LM     float64 `json:"lm"`
	PValue float64 `json:"p_value"`
	DF     int     `json:"df"`
}

// ============================================================================
// POST-HOC COMPARISONS
// ============================================================================

// PosthocProcedure names a pairwise comparison procedure
type PosthocProcedure string

const (
	PosthocAuto        PosthocProcedure = "auto"
	PosthocTukeyHSD    PosthocProcedure = "tukey_hsd"
	PosthocGamesHowell PosthocProcedure = "games_howell"
)

// ParsePosthocProcedure accepts the CLI/API spellings of a procedure
func ParsePosthocProcedure(s string) (PosthocProcedure, error) {
	switch s {
	case "", "auto":
		return PosthocAuto, nil
	case "tukey", "tukey_hsd", "tukey-hsd":
		return PosthocTukeyHSD, nil
	case "games-howell", "games_howell", "gameshowell":
		return PosthocGamesHowell, nil
	}
	return "", core.NewValidationError("posthoc", fmt.Sprintf("unknown procedure %q", s))
}

// PosthocComparison compares the means of one unordered pair of groups.
// Significance is derived from AdjustedP and cannot be set.
type PosthocComparison struct {
	GroupA         string  `json:"group_a"`
	GroupB         string  `json:"group_b"`
	MeanDifference float64 `json:"mean_difference"`
	StdError       float64 `json:"std_error"`
	Q              float64 `json:"q"`
	DF             float64 `json:"df"`
	AdjustedP      float64 `json:"adjusted_p"`
}

// Significant reports AdjustedP < SignificanceLevel
func (c PosthocComparison) Significant() bool {
	return c.AdjustedP < SignificanceLevel
}

// MarshalJSON adds the derived significance flag
func (c PosthocComparison) MarshalJSON() ([]byte, error) {
	type plain PosthocComparison
	return json.Marshal(struct {
		plain
		IsSignificant bool `json:"is_significant"`
	}{plain(c), c.Significant()})
}

// MarshalYAML adds the derived significance flag
func (c PosthocComparison) MarshalYAML() (interface{}, error) {
	return map[string]interface{}{
		"group_a":         c.GroupA,
		"group_b":         c.GroupB,
		"mean_difference": c.MeanDifference,
		"std_error":       c.StdError,
		"q":               c.Q,
		"df":              c.DF,
		"adjusted_p":      c.AdjustedP,
		"is_significant":  c.Significant(),
	}, nil
}

// PosthocResult is the full set of pairwise comparisons for one variable.
type PosthocResult struct {
	Procedure   PosthocProcedure    `json:"procedure"`
	Comparisons []PosthocComparison `json:"comparisons"`
	Omitted     []DegeneratePair    `json:"omitted,omitempty"`
	Notes       []string            `json:"notes,omitempty"`
}

// DegeneratePair records a pair left out of the comparisons
type DegeneratePair struct {
	GroupA string `json:"group_a"`
	GroupB string `json:"group_b"`
	Reason string `json:"reason"`
}

// Err returns the pair as a DegeneratePairError
func (p DegeneratePair) Err() error {
	return &DegeneratePairError{GroupA: p.GroupA, GroupB: p.GroupB, Reason: p.Reason}
}

// SignificantPairs returns only the comparisons flagged as significant
func (r PosthocResult) SignificantPairs() []PosthocComparison {
	var out []PosthocComparison
	for _, c := range r.Comparisons {
		if c.Significant() {
			out = append(out, c)
		}
	}
	return out
}

// SortByMagnitude returns a copy ordered by |MeanDifference| descending.
func SortByMagnitude(comparisons []PosthocComparison) []PosthocComparison {
	sorted := make([]PosthocComparison, len(comparisons))
	copy(sorted, comparisons)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].MeanDifference) > math.Abs(sorted[j].MeanDifference)
	})
	return sorted
}

// ============================================================================
// PER-VARIABLE AND MULTI-FACTOR OUTPUT
// ============================================================================

// VariableAnalysis is the router output for one grouping variable.
type VariableAnalysis struct {
	Variable    core.VariableKey `json:"variable"`
	Target      core.VariableKey `json:"target"`
	Groups      int              `json:"groups"`
	N           int              `json:"n"`
	ANOVA       ANOVAResult      `json:"anova"`
	Diagnostics DiagnosticResult `json:"diagnostics"`
	State       SelectorState    `json:"state"`
	Decision    TestDecision     `json:"decision"`
	ChosenTest  string           `json:"chosen_test"`
	ChosenP     float64          `json:"chosen_p"`
	Kruskal     *KruskalResult   `json:"kruskal,omitempty"`
	Posthoc     PosthocResult    `json:"posthoc"`
	Narrative   []string         `json:"narrative,omitempty"`

	// SignificantPairs repeats the comparisons flagged significant
	SignificantPairs []PosthocComparison `json:"significant_pairs" yaml:"significant_pairs"`
}

// ANOVAP returns the parametric p-value kept for reference
func (v VariableAnalysis) ANOVAP() float64 {
	return v.ANOVA.PValue
}

// SkippedVariable records a variable whose analysis failed
type SkippedVariable struct {
	Variable core.VariableKey `json:"variable"`
	Code     string           `json:"code"`
	Reason   string           `json:"reason"`
}

// FactorEffect is one row of a type-II ANOVA table
type FactorEffect struct {
	Term           string  `json:"term"`
	SumSq          float64 `json:"sum_sq"`
	DF             int     `json:"df"`
	F              float64 `json:"f"`
	PValue         float64 `json:"p_value"`
	Interpretation string  `json:"interpretation"`
}

// MultiFactorResult is the type-II decomposition of an additive model
type MultiFactorResult struct {
	Formula       string         `json:"formula"`
	N             int            `json:"n"`
	Effects       []FactorEffect `json:"effects"`
	ResidualSumSq float64        `json:"residual_sum_sq"`
	ResidualDF    int            `json:"residual_df"`
	Limitations   []string       `json:"limitations,omitempty"`
	Narrative     []string       `json:"narrative,omitempty"`
}

// Report is the output of one analysis run over several grouping variables.
type Report struct {
	RunID            core.RunID         `json:"run_id"`
	CreatedAt        core.Timestamp     `json:"created_at"`
	Target           core.VariableKey   `json:"target"`
	Factors          []core.VariableKey `json:"factors"`
	Rows             int                `json:"rows"`
	RowsDropped      int                `json:"rows_dropped"`
	Variables        []VariableAnalysis `json:"variables"`
	Skipped          []SkippedVariable  `json:"skipped,omitempty"`
	MultiFactor      *MultiFactorResult `json:"multi_factor,omitempty"`
	MultiFactorError string             `json:"multi_factor_error,omitempty"`
	Limitations      []string           `json:"limitations,omitempty"`
}

// Variable returns the analysis for a variable, if it was not skipped
func (r *Report) Variable(key core.VariableKey) (VariableAnalysis, bool) {
	for _, v := range r.Variables {
		if v.Variable == key {
			return v, true
		}
	}
	return VariableAnalysis{}, false
}

// IsSkipped reports whether the variable was skipped
func (r *Report) IsSkipped(key core.VariableKey) bool {
	for _, s := range r.Skipped {
		if s.Variable == key {
			return true
		}
	}
	return false
}
