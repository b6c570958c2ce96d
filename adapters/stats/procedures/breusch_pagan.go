package procedures

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"anovadash/domain/core"
	domainstats "anovadash/domain/stats"
)

// BreuschPaganGroups runs the studentised (Koenker) Breusch-Pagan test of
// squared residuals against the group indicators of a one-way model.
// With an intercept plus k-1 dummies the auxiliary regression's fitted values
// are the group means of e^2, so LM = n * R^2 with k-1 degrees of freedom.
func BreuschPaganGroups(residuals []float64, groupOf []int, k int) (domainstats.BreuschPaganResult, error) {
	n := len(residuals)
	if n != len(groupOf) {
		return domainstats.BreuschPaganResult{}, fmt.Errorf("%w: %d residuals but %d group indices",
			core.ErrInvalidRequest, n, len(groupOf))
	}
	if k < 2 || n <= k {
		return domainstats.BreuschPaganResult{}, fmt.Errorf("%w: Breusch-Pagan needs at least 2 groups and more observations than groups",
			core.ErrInsufficientData)
	}

	squared := make([]float64, n)
	for i, e := range residuals {
		squared[i] = e * e
	}
	grand := stat.Mean(squared, nil)

	sums := make([]float64, k)
	counts := make([]float64, k)
	for i, g := range groupOf {
		sums[g] += squared[i]
		counts[g]++
	}

	ssTotal, ssExplained := 0.0, 0.0
	for i, v := range squared {
		ssTotal += (v - grand) * (v - grand)
		if counts[groupOf[i]] > 0 {
			fitted := sums[groupOf[i]] / counts[groupOf[i]]
			ssExplained += (fitted - grand) * (fitted - grand)
		}
	}

	df := k - 1
	if ssTotal == 0 {
		return domainstats.BreuschPaganResult{LM: 0, PValue: 1.0, DF: df}, nil
	}
	lm := float64(n) * ssExplained / ssTotal
	return domainstats.BreuschPaganResult{
		LM:     lm,
		PValue: ChiSquarePValue(lm, float64(df)),
		DF:     df,
	}, nil
}
