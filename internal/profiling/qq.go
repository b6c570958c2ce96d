package profiling

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"anovadash/domain/core"
	domainstats "anovadash/domain/stats"
)

// QQPoint pairs an ordered group mean with its theoretical normal quantile
type QQPoint struct {
	Group       string  `json:"group"`
	Theoretical float64 `json:"theoretical"`
	Observed    float64 `json:"observed"`
}

// QQPlot is a normal probability plot with its least-squares line
type QQPlot struct {
	Variable  core.VariableKey `json:"variable"`
	Points    []QQPoint        `json:"points"`
	Slope     float64          `json:"slope"`
	Intercept float64          `json:"intercept"`
	R         float64          `json:"r"`
}

// fillibenPositions returns Filliben's order statistic medians for n points
func fillibenPositions(n int) []float64 {
	pos := make([]float64, n)
	last := math.Pow(0.5, 1/float64(n))
	for i := range pos {
		pos[i] = (float64(i+1) - 0.3175) / (float64(n) + 0.365)
	}
	pos[n-1] = last
	pos[0] = 1 - last
	return pos
}

// GroupMeansQQ plots the sorted group means against normal quantiles
func GroupMeansQQ(sample domainstats.GroupedSample) (QQPlot, error) {
	if sample.K() < 2 {
		return QQPlot{}, fmt.Errorf("%w: Q-Q plot needs at least 2 groups, got %d", core.ErrInsufficientData, sample.K())
	}

	points := make([]QQPoint, 0, sample.K())
	for _, g := range sample.Groups {
		if g.Len() == 0 {
			continue
		}
		points = append(points, QQPoint{Group: g.Label, Observed: stat.Mean(g.Values, nil)})
	}
	if len(points) < 2 {
		return QQPlot{}, fmt.Errorf("%w: Q-Q plot needs at least 2 non-empty groups", core.ErrInsufficientData)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Observed < points[j].Observed })

	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range fillibenPositions(len(points)) {
		points[i].Theoretical = distuv.UnitNormal.Quantile(p)
		x[i] = points[i].Theoretical
		y[i] = points[i].Observed
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		r = 0
	}
	return QQPlot{Variable: sample.Variable, Points: points, Slope: slope, Intercept: intercept, R: r}, nil
}
