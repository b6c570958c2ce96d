package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"anovadash/adapters/stats/procedures"
	"anovadash/domain/core"
	"anovadash/domain/narrative"
	"anovadash/domain/stats"
)

// rankTolerance is the relative singular value cutoff for rank detection
const rankTolerance = 1e-10

// NoAdjustmentNote is attached to every multi-factor result
const NoAdjustmentNote = "Each term's p-value is interpreted on its own; no multiple-comparison adjustment is applied across terms."

// Factor is one categorical predictor of the multi-factor model
type Factor struct {
	Name   core.VariableKey
	Labels []string
}

// modelTerm is a main effect or a pairwise interaction
type modelTerm struct {
	name    string
	factors []int
	columns []int
}

func (t modelTerm) contains(other modelTerm) bool {
	for _, f := range other.factors {
		found := false
		for _, g := range t.factors {
			if f == g {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// design builds the treatment-coded design matrix. The first sorted level of
// each factor is the reference.
type design struct {
	x     *mat.Dense
	terms []modelTerm
}

func buildDesign(factors []Factor, interactions bool) design {
	n := len(factors[0].Labels)

	type coded struct {
		levels []string
		index  []int
	}
	codes := make([]coded, len(factors))
	for i, f := range factors {
		set := make(map[string]bool)
		for _, l := range f.Labels {
			set[l] = true
		}
		levels := make([]string, 0, len(set))
		for l := range set {
			levels = append(levels, l)
		}
		sort.Strings(levels)
		pos := make(map[string]int, len(levels))
		for j, l := range levels {
			pos[l] = j
		}
		idx := make([]int, n)
		for r, l := range f.Labels {
			idx[r] = pos[l]
		}
		codes[i] = coded{levels: levels, index: idx}
	}

	var columns [][]float64
	intercept := make([]float64, n)
	for r := range intercept {
		intercept[r] = 1
	}
	columns = append(columns, intercept)

	var terms []modelTerm
	dummies := make([][][]float64, len(factors))
	for i, f := range factors {
		term := modelTerm{name: fmt.Sprintf("C(%s)", f.Name), factors: []int{i}}
		for level := 1; level < len(codes[i].levels); level++ {
			col := make([]float64, n)
			for r := 0; r < n; r++ {
				if codes[i].index[r] == level {
					col[r] = 1
				}
			}
			dummies[i] = append(dummies[i], col)
			term.columns = append(term.columns, len(columns))
			columns = append(columns, col)
		}
		terms = append(terms, term)
	}

	if interactions {
		for i := 0; i < len(factors); i++ {
			for j := i + 1; j < len(factors); j++ {
				term := modelTerm{
					name:    fmt.Sprintf("C(%s):C(%s)", factors[i].Name, factors[j].Name),
					factors: []int{i, j},
				}
				for _, a := range dummies[i] {
					for _, b := range dummies[j] {
						col := make([]float64, n)
						for r := 0; r < n; r++ {
							col[r] = a[r] * b[r]
						}
						term.columns = append(term.columns, len(columns))
						columns = append(columns, col)
					}
				}
				terms = append(terms, term)
			}
		}
	}

	x := mat.NewDense(n, len(columns), nil)
	for j, col := range columns {
		x.SetCol(j, col)
	}
	return design{x: x, terms: terms}
}

// leastSquares fits y on the selected columns and returns the residual sum
// of squares and the numerical rank of the sub-design.
func leastSquares(x *mat.Dense, y *mat.VecDense, cols []int) (float64, int, error) {
	n, _ := x.Dims()
	sub := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		sub.SetCol(j, mat.Col(nil, c, x))
	}

	var svd mat.SVD
	if ok := svd.Factorize(sub, mat.SVDThin); !ok {
		return 0, 0, fmt.Errorf("singular value decomposition did not converge")
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return 0, 0, fmt.Errorf("design matrix has rank zero")
	}

	var beta mat.VecDense
	svd.SolveVecTo(&beta, y, rank)

	var fitted mat.VecDense
	fitted.MulVec(sub, &beta)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		rss += r * r
	}
	return rss, rank, nil
}

// FitMultiFactor fits response ~ f1 + ... + fk (plus pairwise interactions
// when requested) and returns the type-II sum-of-squares table.
func FitMultiFactor(target core.VariableKey, response []float64, factors []Factor, interactions bool) (stats.MultiFactorResult, error) {
	if len(factors) < 2 {
		return stats.MultiFactorResult{}, core.NewValidationError("factors", "multi-factor ANOVA needs at least 2 grouping variables")
	}
	for _, f := range factors {
		if len(f.Labels) != len(response) {
			return stats.MultiFactorResult{}, core.NewValidationError(string(f.Name),
				fmt.Sprintf("has %d values, response has %d", len(f.Labels), len(response)))
		}
	}
	modelName := core.VariableKey(formulaFactors(factors, interactions))

	d := buildDesign(factors, interactions)
	n, p := d.x.Dims()
	y := mat.NewVecDense(n, append([]float64(nil), response...))

	all := make([]int, p)
	for j := range all {
		all[j] = j
	}
	rssFull, rank, err := leastSquares(d.x, y, all)
	if err != nil {
		return stats.MultiFactorResult{}, &stats.ModelFitError{Variable: modelName, Reason: "full model", Cause: err}
	}
	if rank < p {
		return stats.MultiFactorResult{}, &stats.ModelFitError{
			Variable: modelName,
			Reason:   fmt.Sprintf("design matrix is rank deficient (rank %d of %d columns)", rank, p),
		}
	}
	dfResid := n - p
	if dfResid <= 0 {
		return stats.MultiFactorResult{}, &stats.ModelFitError{
			Variable: modelName,
			Reason:   fmt.Sprintf("no residual degrees of freedom (%d observations, %d parameters)", n, p),
		}
	}
	msResid := rssFull / float64(dfResid)
	if msResid <= 0 {
		return stats.MultiFactorResult{}, &stats.ModelFitError{Variable: modelName, Reason: "the model fits exactly, residual variance is zero"}
	}

	result := stats.MultiFactorResult{
		Formula:       fmt.Sprintf("%s ~ %s", target, modelName),
		N:             n,
		ResidualSumSq: rssFull,
		ResidualDF:    dfResid,
		Limitations:   []string{NoAdjustmentNote},
	}

	for _, term := range d.terms {
		// type II: compare the models built from every term not containing
		// this one, with and without it
		base := []int{0}
		for _, other := range d.terms {
			if !other.contains(term) {
				base = append(base, other.columns...)
			}
		}
		with := append(append([]int(nil), base...), term.columns...)

		rssBase, _, err := leastSquares(d.x, y, base)
		if err != nil {
			return stats.MultiFactorResult{}, &stats.ModelFitError{Variable: modelName, Reason: term.name, Cause: err}
		}
		rssWith, _, err := leastSquares(d.x, y, with)
		if err != nil {
			return stats.MultiFactorResult{}, &stats.ModelFitError{Variable: modelName, Reason: term.name, Cause: err}
		}

		ss := math.Max(0, rssBase-rssWith)
		df := len(term.columns)
		effect := stats.FactorEffect{Term: term.name, SumSq: ss, DF: df, PValue: 1.0}
		if df > 0 {
			effect.F = ss / float64(df) / msResid
			effect.PValue = procedures.FTestPValue(effect.F, float64(df), float64(dfResid))
		}
		effect.Interpretation = narrative.Tier(effect.PValue)
		result.Effects = append(result.Effects, effect)
	}

	result.Narrative = narrative.DescribeMultiFactor(result)
	return result, nil
}

func formulaFactors(factors []Factor, interactions bool) string {
	parts := make([]string, 0, len(factors))
	for _, f := range factors {
		parts = append(parts, fmt.Sprintf("C(%s)", f.Name))
	}
	formula := strings.Join(parts, " + ")
	if interactions {
		for i := 0; i < len(factors); i++ {
			for j := i + 1; j < len(factors); j++ {
				formula += fmt.Sprintf(" + C(%s):C(%s)", factors[i].Name, factors[j].Name)
			}
		}
	}
	return formula
}
