package procedures

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"anovadash/domain/core"
	domainstats "anovadash/domain/stats"
)

// GroupMeanModel is the fitted one-way model y_ij = mu_i + e_ij.
type GroupMeanModel struct {
	Means     []float64
	Fitted    []float64
	Residuals []float64
	GroupOf   []int
}

// FitGroupMeans fits the one-way group-mean model and returns fitted values
// and residuals in the order of sample.Flatten.
func FitGroupMeans(sample domainstats.GroupedSample) GroupMeanModel {
	values, groupOf := sample.Flatten()
	model := GroupMeanModel{
		Means:     make([]float64, sample.K()),
		Fitted:    make([]float64, len(values)),
		Residuals: make([]float64, len(values)),
		GroupOf:   groupOf,
	}
	for i, g := range sample.Groups {
		if g.Len() > 0 {
			model.Means[i] = stat.Mean(g.Values, nil)
		}
	}
	for i, y := range values {
		model.Fitted[i] = model.Means[groupOf[i]]
		model.Residuals[i] = y - model.Fitted[i]
	}
	return model
}

// OneWayANOVA computes the F test for equality of group means.
func OneWayANOVA(sample domainstats.GroupedSample) (domainstats.ANOVAResult, error) {
	k := sample.K()
	n := sample.N()
	if k < 2 {
		return domainstats.ANOVAResult{}, fmt.Errorf("%w: one-way ANOVA needs at least 2 groups, got %d", core.ErrInsufficientData, k)
	}
	if n <= k {
		return domainstats.ANOVAResult{}, fmt.Errorf("%w: one-way ANOVA needs more observations (%d) than groups (%d)", core.ErrInsufficientData, n, k)
	}

	values, _ := sample.Flatten()
	grandMean := stat.Mean(values, nil)

	ssBetween, ssWithin := 0.0, 0.0
	for _, g := range sample.Groups {
		if g.Len() == 0 {
			continue
		}
		m := stat.Mean(g.Values, nil)
		ssBetween += float64(g.Len()) * (m - grandMean) * (m - grandMean)
		for _, v := range g.Values {
			ssWithin += (v - m) * (v - m)
		}
	}

	dfBetween := k - 1
	dfWithin := n - k
	msBetween := ssBetween / float64(dfBetween)
	msWithin := ssWithin / float64(dfWithin)

	var f float64
	switch {
	case msWithin > 0:
		f = msBetween / msWithin
	case msBetween > 0:
		f = math.Inf(1)
	default:
		f = 0
	}

	return domainstats.ANOVAResult{
		F:         f,
		PValue:    FTestPValue(f, float64(dfBetween), float64(dfWithin)),
		SSBetween: ssBetween,
		SSWithin:  ssWithin,
		DFBetween: dfBetween,
		DFWithin:  dfWithin,
	}, nil
}
