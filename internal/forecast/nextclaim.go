package forecast

import (
	"fmt"
	"math"
	"strings"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// PredictionInput bundles the analyses a ClaimPredictor combines.
type PredictionInput struct {
	Claims    []domain.ClaimRecord
	Baseline  domain.BaselineStats
	Seasonal  domain.SeasonalAnalysis
	Trend     domain.TrendAnalysis
	TimeSince domain.TimeSinceLastClaim
	Products  []domain.ProductRisk
}

// estimate is the running state of the adjustment chain.
type estimate struct {
	days       float64
	confidence domain.Confidence
	log        []domain.Adjustment
}

func (e *estimate) scale(kind string, multiplier float64, desc string) {
	e.days *= multiplier
	e.log = append(e.log, domain.Adjustment{
		Type:        kind,
		Description: desc,
		EffectPct:   round1((multiplier - 1) * 100),
		Confidence:  e.confidence,
	})
}

func (e *estimate) grade(kind string, c domain.Confidence, desc string) {
	e.confidence = c
	e.log = append(e.log, domain.Adjustment{
		Type:        kind,
		Description: desc,
		Confidence:  c,
	})
}

// precondition returns a non-nil insufficient result when in cannot be predicted.
func precondition(in PredictionInput, method string, t Tuning) *domain.NextClaimPrediction {
	reason := ""
	switch {
	case len(in.Claims) < t.MinClaimsForPrediction:
		reason = fmt.Sprintf("%d claims on record, %d required", len(in.Claims), t.MinClaimsForPrediction)
	case !in.Baseline.Sufficient || in.Baseline.MeanInterval <= 0:
		reason = "no positive interval between claims"
	default:
		return nil
	}
	return &domain.NextClaimPrediction{
		InsufficientData: true,
		Reason:           reason,
		Method:           method,
		Confidence:       domain.ConfidenceLow,
		Adjustments:      []domain.Adjustment{},
	}
}

func (e *estimate) result(method string, baseline float64) domain.NextClaimPrediction {
	return domain.NextClaimPrediction{
		Method:        method,
		DaysUntilNext: max(int(math.Round(e.days)), 0),
		BaselineDays:  round1(baseline),
		Confidence:    e.confidence,
		Adjustments:   e.log,
	}
}

func applySeasonal(e *estimate, s domain.SeasonalAnalysis, t Tuning) {
	if !s.Applicable || s.Direction == domain.SeasonalNormal {
		return
	}
	m := seasonalMultiplier(s.Factor, t.SeasonalMaxMultiplier)
	e.scale(domain.AdjustmentSeasonal, m, fmt.Sprintf("%s claim activity in %s (factor %.2f)",
		s.Direction, s.Season, s.Factor))
}

func applyTrend(e *estimate, tr domain.TrendAnalysis, t Tuning) {
	if tr.InsufficientData || tr.Strength < t.MinTrendStrength {
		return
	}
	step := t.TrendStepPct / 100
	switch tr.FreqDirection {
	case domain.TrendIncreasing:
		e.scale(domain.AdjustmentTrend, 1-step, fmt.Sprintf("claim frequency up %.1f%% (trend strength %.2f)",
			tr.FrequencyTrendPct, tr.Strength))
	case domain.TrendDecreasing:
		e.scale(domain.AdjustmentTrend, 1+step, fmt.Sprintf("claim frequency down %.1f%% (trend strength %.2f)",
			-tr.FrequencyTrendPct, tr.Strength))
	}

	switch {
	case tr.FrequencyTrendPct < -t.StrongTrendPct:
		e.grade(domain.AdjustmentTrend, e.confidence.Raise(1), "strong decreasing frequency trend")
	case tr.FrequencyTrendPct > t.StrongTrendPct:
		e.grade(domain.AdjustmentTrend, e.confidence.Lower(1), "strong increasing frequency trend")
	}
}

func applyProductRisk(e *estimate, products []domain.ProductRisk, t Tuning) {
	var hits []string
	for _, p := range products {
		if p.Development == domain.DevelopmentWorsening && p.RisingActivity {
			hits = append(hits, p.Exposure.Key())
		}
	}
	if len(hits) == 0 {
		return
	}
	e.scale(domain.AdjustmentProductRisk, t.ProductRiskMultiplier,
		"worsening development with rising activity on "+strings.Join(hits, ", "))
}

func applyOverdue(e *estimate, ts domain.TimeSinceLastClaim, t Tuning) {
	switch ts.Status {
	case domain.StatusOverdue:
		e.confidence = domain.ConfidenceHigh
		e.scale(domain.AdjustmentOverdue, t.OverdueMultiplier, fmt.Sprintf("%d days since last claim, %.1fx the mean interval",
			ts.DaysSince, ts.OverdueFactor))
	case domain.StatusApproaching:
		e.scale(domain.AdjustmentOverdue, t.ApproachingMultiplier, fmt.Sprintf("%d days since last claim, approaching the mean interval (%.1fx)",
			ts.DaysSince, ts.OverdueFactor))
	}
}

func applyVolatility(e *estimate, b domain.BaselineStats, t Tuning) {
	switch {
	case b.Stability > t.VeryVolatileStability:
		e.grade(domain.AdjustmentVolatility, e.confidence.Lower(2), fmt.Sprintf("very irregular claim intervals (stability %.2f)", b.Stability))
	case b.Stability > t.VolatileStability:
		e.grade(domain.AdjustmentVolatility, e.confidence.Lower(1), fmt.Sprintf("irregular claim intervals (stability %.2f)", b.Stability))
	case b.IntervalCount >= t.LargeDatasetIntervals && b.Stability < t.SteadyStability:
		e.grade(domain.AdjustmentVolatility, e.confidence.Raise(1), fmt.Sprintf("%d steady intervals (stability %.2f)", b.IntervalCount, b.Stability))
	}
}

func applyDataSufficiency(e *estimate, b domain.BaselineStats, t Tuning) {
	if b.IntervalCount < t.MinIntervalsForGrade {
		e.grade(domain.AdjustmentDataVolume, domain.ConfidenceLow,
			fmt.Sprintf("only %d intervals, at least %d needed for a graded estimate", b.IntervalCount, t.MinIntervalsForGrade))
	}
}
