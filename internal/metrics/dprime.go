// Package metrics computes per-block signal-detection metrics from classified trials.
//
// Rates whose denominator is zero are NaN and stay NaN through every d-prime
// they feed; callers render them, they never replace them.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Rate returns k/n, NaN when n is zero.
func Rate(k, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return float64(k) / float64(n)
}

// AdjustResponseRate moves a rate of exactly 0 or 1 half a trial inward so its
// z-score stays finite. Other values, NaN included, pass through.
func AdjustResponseRate(r float64, n int) float64 {
	switch r {
	case 0:
		return 0.5 / float64(n)
	case 1:
		return 1 - 0.5/float64(n)
	default:
		return r
	}
}

// CalcDprime returns probit(r1) - probit(r2) after boundary correction of both rates.
func CalcDprime(r1, r2 float64, n1, n2 int) float64 {
	z1 := probit(AdjustResponseRate(r1, n1))
	z2 := probit(AdjustResponseRate(r2, n2))
	return z1 - z2
}

// probit is the standard normal inverse CDF. Values outside [0, 1], which a
// rate over zero trials can produce, map to NaN instead of panicking.
func probit(p float64) float64 {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN()
	}
	return distuv.UnitNormal.Quantile(p)
}
