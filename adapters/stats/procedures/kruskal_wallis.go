package procedures

import (
	"fmt"
	"sort"

	"anovadash/domain/core"
	domainstats "anovadash/domain/stats"
)

// Rank assigns average ranks (1-based) to values, returning the ranks and
// the tie correction term sum(t^3 - t) over tie groups.
func Rank(values []float64) ([]float64, float64) {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, n)
	ties := 0.0
	for i := 0; i < n; {
		j := i + 1
		for j < n && values[order[j]] == values[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // mean of ranks i+1..j
		for m := i; m < j; m++ {
			ranks[order[m]] = avg
		}
		if t := float64(j - i); t > 1 {
			ties += t*t*t - t
		}
		i = j
	}
	return ranks, ties
}

// KruskalWallis computes the tie-corrected H statistic and its chi-square p-value.
func KruskalWallis(sample domainstats.GroupedSample) (domainstats.KruskalResult, error) {
	k := sample.K()
	if k < 2 {
		return domainstats.KruskalResult{}, fmt.Errorf("%w: Kruskal-Wallis needs at least 2 groups, got %d", core.ErrInsufficientData, k)
	}
	for _, g := range sample.Groups {
		if g.Len() == 0 {
			return domainstats.KruskalResult{}, fmt.Errorf("%w: group %q is empty", core.ErrInsufficientData, g.Label)
		}
	}

	values, groupOf := sample.Flatten()
	ranks, ties := Rank(values)
	n := float64(len(values))

	rankSums := make([]float64, k)
	for i, r := range ranks {
		rankSums[groupOf[i]] += r
	}

	h := 0.0
	for i, g := range sample.Groups {
		h += rankSums[i] * rankSums[i] / float64(g.Len())
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	correction := 1 - ties/(n*n*n-n)
	df := k - 1
	if correction <= 0 {
		// every observation is tied
		return domainstats.KruskalResult{H: 0, PValue: 1.0, DF: df}, nil
	}
	h /= correction

	return domainstats.KruskalResult{
		H:      h,
		PValue: ChiSquarePValue(h, float64(df)),
		DF:     df,
	}, nil
}
