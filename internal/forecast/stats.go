package forecast

import (
	"math"
	"sort"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// ratio divides a by b, returning 0 when b is 0 or the result is not finite.
func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if !finite(r) {
		return 0
	}
	return r
}

// pctChange is the relative change from prev to cur in percent. A rise from
// zero counts as +100%.
func pctChange(prev, cur float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return (cur - prev) / math.Abs(prev) * 100
}

// linearFit returns the OLS slope of ys against their index and the R² of
// the fit. R² is 0 when ys has no variance.
func linearFit(ys []float64) (slope, r2 float64) {
	n := float64(len(ys))
	if len(ys) < 2 {
		return 0, 0
	}
	xMean := (n - 1) / 2
	yMean := mean(ys)

	var sxy, sxx, syy float64
	for i, y := range ys {
		dx := float64(i) - xMean
		dy := y - yMean
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	slope = ratio(sxy, sxx)
	if syy == 0 || sxx == 0 {
		return slope, 0
	}
	r2 = clamp(sxy*sxy/(sxx*syy), 0, 1)
	return slope, r2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
