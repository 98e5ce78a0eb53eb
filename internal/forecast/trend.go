package forecast

import (
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// Trend analyzes yearly aggregates. Completed years drive the long-term
// trend and the regression; the in-progress year only feeds the
// short-term comparison. Fewer than TrendMinYears completed years yields
// an insufficient-data result that still carries short-term figures and
// cost stability.
func Trend(yearly []domain.YearlyAggregate, now time.Time, t Tuning) domain.TrendAnalysis {
	done := completedYears(yearly, now)
	costs := make([]float64, len(done))
	freqs := make([]float64, len(done))
	for i, y := range done {
		costs[i] = y.ClaimCost
		freqs[i] = float64(y.ClaimCount)
	}

	a := domain.TrendAnalysis{
		YearsAnalyzed: len(done),
		Confidence:    domain.ConfidenceLow,
		CostDirection: domain.TrendStable,
		FreqDirection: domain.TrendStable,
		CostStability: costStability(costs),
		AverageCost:   mean(costs),
	}
	shortTerm(&a, yearly, done, now)

	if len(done) < t.TrendMinYears {
		a.InsufficientData = true
		return a
	}

	recent := min(t.TrendRecentYears, len(done)-1)
	split := len(done) - recent
	a.CostTrendPct = round1(pctChange(mean(costs[:split]), mean(costs[split:])))
	a.FrequencyTrendPct = round1(pctChange(mean(freqs[:split]), mean(freqs[split:])))
	a.CostDirection = direction(a.CostTrendPct, t.TrendDeadbandPct)
	a.FreqDirection = direction(a.FrequencyTrendPct, t.TrendDeadbandPct)

	slope, r2 := linearFit(costs)
	a.SlopePerYear = round2(slope)
	a.Strength = round2(r2)
	switch {
	case a.Strength > t.TrendHighStrength:
		a.Confidence = domain.ConfidenceHigh
	case a.Strength > t.TrendModerateStrength:
		a.Confidence = domain.ConfidenceModerate
	}

	return a
}

// shortTerm compares the current year's monthly rate with the previous
// full year's. Both years must be present.
func shortTerm(a *domain.TrendAnalysis, yearly, done []domain.YearlyAggregate, now time.Time) {
	var current *domain.YearlyAggregate
	for i := range yearly {
		if yearly[i].Year == now.Year() {
			current = &yearly[i]
		}
	}
	if current == nil || len(done) == 0 || done[len(done)-1].Year != now.Year()-1 {
		return
	}
	prior := done[len(done)-1]
	months := float64(now.Month())

	priorCost := prior.ClaimCost / 12
	priorFreq := float64(prior.ClaimCount) / 12
	if priorCost == 0 && priorFreq == 0 {
		return
	}
	a.ShortTermAvailable = true
	a.ShortTermCostPct = round1(pctChange(priorCost, current.ClaimCost/months))
	a.ShortTermFrequencyPct = round1(pctChange(priorFreq, float64(current.ClaimCount)/months))
}

// costStability is 1 minus the coefficient of variation, clamped to [0,1].
func costStability(costs []float64) float64 {
	if len(costs) < 2 {
		return 1
	}
	m := mean(costs)
	if m == 0 {
		return 1
	}
	return round2(clamp(1-stddev(costs)/m, 0, 1))
}

func direction(pct, deadband float64) string {
	switch {
	case pct > deadband:
		return domain.TrendIncreasing
	case pct < -deadband:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}
