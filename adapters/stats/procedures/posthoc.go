package procedures

import (
	"math"

	"gonum.org/v1/gonum/stat"

	domainstats "anovadash/domain/stats"
)

type groupMoments struct {
	label    string
	n        float64
	mean     float64
	variance float64
}

func moments(sample domainstats.GroupedSample) []groupMoments {
	out := make([]groupMoments, sample.K())
	for i, g := range sample.Groups {
		m := groupMoments{label: g.Label, n: float64(g.Len())}
		switch {
		case g.Len() >= 2:
			m.mean, m.variance = stat.MeanVariance(g.Values, nil)
		case g.Len() == 1:
			m.mean = g.Values[0]
		}
		out[i] = m
	}
	return out
}

// forEachPair visits every unordered pair (i < j) of groups.
func forEachPair(k int, visit func(i, j int)) {
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			visit(i, j)
		}
	}
}

func omit(result *domainstats.PosthocResult, a, b, reason string) {
	pair := domainstats.DegeneratePair{GroupA: a, GroupB: b, Reason: reason}
	result.Omitted = append(result.Omitted, pair)
	result.Notes = append(result.Notes, pair.Err().Error())
}

// TukeyHSD runs the Tukey-Kramer honestly significant difference procedure
// using the pooled within-group variance. MeanDifference is mean(B) - mean(A).
func TukeyHSD(sample domainstats.GroupedSample) domainstats.PosthocResult {
	result := domainstats.PosthocResult{Procedure: domainstats.PosthocTukeyHSD}
	k := sample.K()
	groups := moments(sample)

	ssWithin, n := 0.0, 0.0
	for _, g := range sample.Groups {
		n += float64(g.Len())
		if g.Len() >= 2 {
			ssWithin += stat.Variance(g.Values, nil) * float64(g.Len()-1)
		}
	}
	dfWithin := n - float64(k)
	mse := math.NaN()
	if dfWithin > 0 {
		mse = ssWithin / dfWithin
	}

	forEachPair(k, func(i, j int) {
		a, b := groups[i], groups[j]
		switch {
		case a.n == 0 || b.n == 0:
			omit(&result, a.label, b.label, "empty group")
			return
		case math.IsNaN(mse):
			omit(&result, a.label, b.label, "no residual degrees of freedom for the pooled variance")
			return
		}

		se := math.Sqrt(mse * (1/a.n + 1/b.n))
		if se == 0 {
			omit(&result, a.label, b.label, "pooled variance is zero")
			return
		}
		diff := b.mean - a.mean
		q := math.Abs(diff) / (se / math.Sqrt2)
		result.Comparisons = append(result.Comparisons, domainstats.PosthocComparison{
			GroupA:         a.label,
			GroupB:         b.label,
			MeanDifference: diff,
			StdError:       se,
			Q:              q,
			DF:             dfWithin,
			AdjustedP:      TukeyPValue(q, k, dfWithin),
		})
	})
	return result
}

// GamesHowell runs the Games-Howell procedure: per-pair Welch standard errors
// and Welch-Satterthwaite degrees of freedom referred to the studentized range.
func GamesHowell(sample domainstats.GroupedSample) domainstats.PosthocResult {
	result := domainstats.PosthocResult{Procedure: domainstats.PosthocGamesHowell}
	k := sample.K()
	groups := moments(sample)

	forEachPair(k, func(i, j int) {
		a, b := groups[i], groups[j]
		if a.n < 2 || b.n < 2 {
			omit(&result, a.label, b.label, "a group has a single observation, its variance is undefined")
			return
		}

		va, vb := a.variance/a.n, b.variance/b.n
		se := math.Sqrt(va + vb)
		if se == 0 {
			omit(&result, a.label, b.label, "both groups have zero variance")
			return
		}
		df := (va + vb) * (va + vb) / (va*va/(a.n-1) + vb*vb/(b.n-1))
		diff := b.mean - a.mean
		q := math.Abs(diff) / se * math.Sqrt2
		result.Comparisons = append(result.Comparisons, domainstats.PosthocComparison{
			GroupA:         a.label,
			GroupB:         b.label,
			MeanDifference: diff,
			StdError:       se,
			Q:              q,
			DF:             df,
			AdjustedP:      TukeyPValue(q, k, df),
		})
	})
	return result
}
