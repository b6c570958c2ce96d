package procedures

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

// FTestPValue returns the upper-tail probability of an F statistic
func FTestPValue(f float64, df1, df2 float64) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(f) {
		return 1.0
	}
	if math.IsInf(f, 1) {
		return 0
	}
	if f <= 0 {
		return 1.0
	}
	return clampProbability(distuv.F{D1: df1, D2: df2}.Survival(f))
}

// ChiSquarePValue returns the upper-tail probability of a chi-square statistic
func ChiSquarePValue(x float64, df float64) float64 {
	if df <= 0 || math.IsNaN(x) {
		return 1.0
	}
	if x <= 0 {
		return 1.0
	}
	return clampProbability(distuv.ChiSquared{K: df}.Survival(x))
}

// NormalQuantile is the inverse CDF of the standard normal
func NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// NormalSurvival is the upper tail of the standard normal
func NormalSurvival(z float64) float64 {
	return distuv.UnitNormal.Survival(z)
}

// ============================================================================
// STUDENTIZED RANGE
// ============================================================================

const (
	rangeInnerNodes = 160
	rangeOuterNodes = 128
	// above this many degrees of freedom the chi scale factor is treated as 1
	rangeAsymptoticDF = 25000
)

var (
	innerOnce    sync.Once
	innerX       []float64
	innerWeights []float64
)

// innerRule returns Gauss-Legendre nodes over [-8, 8] for the inner integral.
func innerRule() ([]float64, []float64) {
	innerOnce.Do(func() {
		innerX = make([]float64, rangeInnerNodes)
		innerWeights = make([]float64, rangeInnerNodes)
		quad.Legendre{}.FixedLocations(innerX, innerWeights, -8, 8)
	})
	return innerX, innerWeights
}

// rangeCDFInfinite is P(Q < w) for k means with known variance:
// k ∫ φ(z) [Φ(z) - Φ(z-w)]^(k-1) dz.
func rangeCDFInfinite(w float64, k int) float64 {
	if w <= 0 {
		return 0
	}
	xs, ws := innerRule()
	kf := float64(k)
	sum := 0.0
	for i, z := range xs {
		diff := distuv.UnitNormal.CDF(z) - distuv.UnitNormal.CDF(z-w)
		if diff <= 0 {
			continue
		}
		sum += ws[i] * distuv.UnitNormal.Prob(z) * math.Pow(diff, kf-1)
	}
	return clampProbability(kf * sum)
}

// PTukey is the CDF of the studentized range distribution for k means and
// df degrees of freedom of the variance estimate. df may be +Inf.
func PTukey(q float64, k int, df float64) float64 {
	if k < 2 || math.IsNaN(q) || math.IsNaN(df) || df <= 0 {
		return math.NaN()
	}
	if q <= 0 {
		return 0
	}
	if math.IsInf(q, 1) {
		return 1
	}
	if math.IsInf(df, 1) || df > rangeAsymptoticDF {
		return rangeCDFInfinite(q, k)
	}

	// integrate over the density of s = sqrt(chi2_df / df)
	spread := 10 / math.Sqrt(2*df)
	lo := math.Max(0, 1-spread)
	hi := 1 + spread
	if df < 8 {
		hi = math.Max(hi, 12)
	}

	xs := make([]float64, rangeOuterNodes)
	ws := make([]float64, rangeOuterNodes)
	quad.Legendre{}.FixedLocations(xs, ws, lo, hi)

	lg, _ := math.Lgamma(df / 2)
	logNorm := (df/2)*math.Log(df) - lg - (df/2-1)*math.Ln2
	sum := 0.0
	for i, s := range xs {
		if s <= 0 {
			continue
		}
		logDensity := logNorm + (df-1)*math.Log(s) - df*s*s/2
		sum += ws[i] * math.Exp(logDensity) * rangeCDFInfinite(q*s, k)
	}
	return clampProbability(sum)
}

// TukeyPValue is the upper tail of the studentized range distribution
func TukeyPValue(q float64, k int, df float64) float64 {
	p := PTukey(q, k, df)
	if math.IsNaN(p) {
		return 1.0
	}
	return clampProbability(1 - p)
}

func clampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1.0
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
