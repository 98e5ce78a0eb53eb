package forecast

import (
	"github.com/opensource-finance/claimcast/internal/domain"
)

// ClaimPredictor estimates the days until a customer's next claim.
type ClaimPredictor interface {
	// Method returns the strategy name reported on the prediction.
	Method() string

	// Predict combines the analyses into a prediction.
	Predict(in PredictionInput) domain.NextClaimPrediction
}

// AdvancedPredictor applies the full adjustment chain: seasonal, trend,
// product risk, overdue, volatility and data sufficiency, in that order.
type AdvancedPredictor struct {
	Tuning Tuning
}

// Method implements ClaimPredictor.
func (p AdvancedPredictor) Method() string { return domain.MethodAdvanced }

// Predict implements ClaimPredictor.
func (p AdvancedPredictor) Predict(in PredictionInput) domain.NextClaimPrediction {
	if res := precondition(in, p.Method(), p.Tuning); res != nil {
		return *res
	}

	e := &estimate{
		days:       in.Baseline.MeanInterval,
		confidence: domain.ConfidenceModerate,
		log:        []domain.Adjustment{},
	}
	applySeasonal(e, in.Seasonal, p.Tuning)
	applyTrend(e, in.Trend, p.Tuning)
	applyProductRisk(e, in.Products, p.Tuning)
	applyOverdue(e, in.TimeSince, p.Tuning)
	applyVolatility(e, in.Baseline, p.Tuning)
	applyDataSufficiency(e, in.Baseline, p.Tuning)

	return e.result(p.Method(), in.Baseline.MeanInterval)
}

// SimplePredictor uses the baseline interval with only the overdue,
// volatility and data sufficiency steps. It needs no yearly history.
type SimplePredictor struct {
	Tuning Tuning
}

// Method implements ClaimPredictor.
func (p SimplePredictor) Method() string { return domain.MethodSimple }

// Predict implements ClaimPredictor.
func (p SimplePredictor) Predict(in PredictionInput) domain.NextClaimPrediction {
	if res := precondition(in, p.Method(), p.Tuning); res != nil {
		return *res
	}

	e := &estimate{
		days:       in.Baseline.MeanInterval,
		confidence: domain.ConfidenceModerate,
		log:        []domain.Adjustment{},
	}
	applyOverdue(e, in.TimeSince, p.Tuning)
	applyVolatility(e, in.Baseline, p.Tuning)
	applyDataSufficiency(e, in.Baseline, p.Tuning)

	return e.result(p.Method(), in.Baseline.MeanInterval)
}

// SelectPredictor returns the strategy for method. For "auto" (or an empty
// method) the advanced strategy is chosen when at least AdvancedMinYears
// completed years of aggregates exist, otherwise the simple one.
func SelectPredictor(method string, completedYears int, t Tuning) ClaimPredictor {
	switch method {
	case domain.MethodAdvanced:
		return AdvancedPredictor{Tuning: t}
	case domain.MethodSimple:
		return SimplePredictor{Tuning: t}
	}
	if completedYears >= t.AdvancedMinYears {
		return AdvancedPredictor{Tuning: t}
	}
	return SimplePredictor{Tuning: t}
}

// ValidMethod reports whether method names a known strategy.
func ValidMethod(method string) bool {
	switch method {
	case "", domain.MethodAuto, domain.MethodAdvanced, domain.MethodSimple:
		return true
	}
	return false
}
