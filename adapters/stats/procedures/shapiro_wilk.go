package procedures

import (
	"fmt"
	"math"
	"sort"

	"anovadash/domain/core"
	domainstats "anovadash/domain/stats"
)

// Royston (1992, 1995) polynomial approximations for the Shapiro-Wilk
// coefficients and the null distribution of W.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.5440, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

const (
	shapiroMinN = 3
	shapiroMaxN = 5000
)

// poly evaluates c[0] + c[1]x + c[2]x^2 + ...
func poly(c []float64, x float64) float64 {
	result := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		result = result*x + c[i]
	}
	return result
}

// shapiroCoefficients returns the half-vector of Shapiro-Wilk weights a_1..a_{n/2}
// for the largest order statistics, all positive.
func shapiroCoefficients(n int) []float64 {
	half := n / 2
	a := make([]float64, half)
	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}

	an := float64(n)
	m := make([]float64, half)
	summ2 := 0.0
	for i := 0; i < half; i++ {
		m[i] = -NormalQuantile((float64(i+1) - 0.375) / (an + 0.25))
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(an)

	a1 := m[0]/ssumm2 + poly(swC1, rsn)
	first := 1
	var fac float64
	if n > 5 {
		first = 2
		a2 := m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := first; i < half; i++ {
		a[i] = m[i] / fac
	}
	return a
}

// ShapiroWilk tests the null hypothesis that x was drawn from a normal
// distribution. Samples above 5000 observations are accepted but the p-value
// approximation is only validated up to that size.
func ShapiroWilk(x []float64) (domainstats.ShapiroResult, error) {
	n := len(x)
	if n < shapiroMinN {
		return domainstats.ShapiroResult{}, fmt.Errorf("%w: Shapiro-Wilk needs at least %d observations, got %d",
			core.ErrInsufficientData, shapiroMinN, n)
	}

	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)

	rangeX := sorted[n-1] - sorted[0]
	if rangeX == 0 {
		return domainstats.ShapiroResult{}, fmt.Errorf("%w: Shapiro-Wilk undefined for identical values", core.ErrInsufficientData)
	}

	a := shapiroCoefficients(n)

	// W as the squared correlation between the ordered data and the
	// antisymmetric coefficient vector
	weights := make([]float64, n)
	for i, ai := range a {
		weights[i] = -ai
		weights[n-1-i] = ai
	}
	meanX := 0.0
	for _, v := range sorted {
		meanX += v / rangeX
	}
	meanX /= float64(n)

	sww, sxx, swx := 0.0, 0.0, 0.0
	for i, v := range sorted {
		xs := v/rangeX - meanX
		sww += weights[i] * weights[i]
		sxx += xs * xs
		swx += weights[i] * xs
	}
	w := swx * swx / (sww * sxx)
	if w > 1 {
		w = 1
	}

	return domainstats.ShapiroResult{W: w, PValue: shapiroPValue(w, n), N: n}, nil
}

// shapiroPValue follows Royston's normalising transformations of 1 - W.
func shapiroPValue(w float64, n int) float64 {
	if n == 3 {
		const pi6 = 6 / math.Pi
		stqr := math.Asin(math.Sqrt(0.75))
		return clampProbability(pi6 * (math.Asin(math.Sqrt(w)) - stqr))
	}
	if w >= 1 {
		return 1.0
	}

	an := float64(n)
	w1 := math.Log(1 - w)
	var m, s float64
	if n <= 11 {
		gamma := poly(swG, an)
		if w1 >= gamma {
			return 1e-99
		}
		w1 = -math.Log(gamma - w1)
		m = poly(swC3, an)
		s = math.Exp(poly(swC4, an))
	} else {
		xx := math.Log(an)
		m = poly(swC5, xx)
		s = math.Exp(poly(swC6, xx))
	}
	return clampProbability(NormalSurvival((w1 - m) / s))
}
