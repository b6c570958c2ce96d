package profiling

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Summary is the describe row of one numeric column or group
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	Outliers int     `json:"outliers"`
}

// Summarize computes descriptive statistics, ignoring NaN values
func Summarize(values []float64) (Summary, error) {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, err
	}

	// sample standard deviation, as pandas reports it
	stdDev := 0.0
	if len(data) > 1 {
		if stdDev, err = stats.StandardDeviationSample(data); err != nil {
			return Summary{}, err
		}
	}

	min, err := stats.Min(data)
	if err != nil {
		return Summary{}, err
	}

	max, err := stats.Max(data)
	if err != nil {
		return Summary{}, err
	}

	median, err := stats.Median(data)
	if err != nil {
		return Summary{}, err
	}

	q25, q75 := median, median
	if len(data) > 1 {
		q25, q75 = quartile(data, 25), quartile(data, 75)
	}

	return Summary{
		Count:    len(data),
		Mean:     mean,
		StdDev:   stdDev,
		Min:      min,
		Q25:      q25,
		Median:   median,
		Q75:      q75,
		Max:      max,
		Skewness: calculateSkewness(data, mean, stdDev),
		Kurtosis: calculateKurtosis(data, mean, stdDev),
		Outliers: detectOutliers(data, q25, q75),
	}, nil
}

// quartile interpolates linearly between the order statistics around
// position p(n-1), the method pandas describe uses
func quartile(data stats.Float64Data, percent float64) float64 {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	pos := percent / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	return sumCubedDeviations / n * math.Sqrt(n*(n-1)) / (n - 2)
}

// calculateKurtosis computes bias-corrected sample excess kurtosis
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumFourthDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumFourthDeviations += deviation * deviation * deviation * deviation
	}

	kurtosis := sumFourthDeviations / n
	return (kurtosis-3)*(n-1)/((n-2)*(n-3)) + 6/(n+1)
}

// detectOutliers counts values beyond the 1.5 IQR fences
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
