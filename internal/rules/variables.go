package rules

import (
	"github.com/google/cel-go/cel"
	"github.com/opensource-finance/claimcast/internal/domain"
)

// celVariables declares every forecast output a renewal rule can read.
func celVariables() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Variable("forecast", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("risk_score", cel.IntType),
		cel.Variable("days_until_next", cel.IntType),
		cel.Variable("next_claim_confidence", cel.StringType),
		cel.Variable("insufficient_data", cel.BoolType),
		cel.Variable("overdue_factor", cel.DoubleType),
		cel.Variable("cost_trend_pct", cel.DoubleType),
		cel.Variable("frequency_trend_pct", cel.DoubleType),
		cel.Variable("trend_strength", cel.DoubleType),
		cel.Variable("cost_stability", cel.DoubleType),
		cel.Variable("high_risk_products", cel.IntType),
		cel.Variable("worsening_products", cel.IntType),
		cel.Variable("rising_products", cel.IntType),
		cel.Variable("realistic_cost", cel.DoubleType),
		cel.Variable("optimistic_cost", cel.DoubleType),
		cel.Variable("pessimistic_cost", cel.DoubleType),
		cel.Variable("annual_premium", cel.DoubleType),
		cel.Variable("projected_loss_ratio", cel.DoubleType),
		cel.Variable("max_premium_adjustment", cel.DoubleType),
		cel.Variable("claim_count", cel.IntType),
	}
}

// Activation flattens a forecast into CEL variables.
// days_until_next is -1 when the next-claim prediction has insufficient data.
func Activation(f *domain.Forecast) map[string]any {
	daysUntilNext := int64(f.NextClaim.DaysUntilNext)
	if f.NextClaim.InsufficientData {
		daysUntilNext = -1
	}

	premium := f.AnnualPremium()
	lossRatio := domain.LossRatioOf(f.Scenarios.Realistic.PredictedCost, premium)

	worsening := func(p domain.ProductRisk) bool { return p.Development == domain.DevelopmentWorsening }
	rising := func(p domain.ProductRisk) bool { return p.RisingActivity }

	products := make([]map[string]any, 0, len(f.Products))
	for _, p := range f.Products {
		products = append(products, map[string]any{
			"product":        p.Exposure.Key(),
			"risk_class":     p.RiskClass,
			"development":    p.Development,
			"loss_ratio":     p.Exposure.LossRatio,
			"claims":         int64(p.Exposure.ClaimCount),
			"premium_adjust": p.PremiumAdjustmentPct,
			"active":         p.Exposure.Active,
		})
	}

	vars := map[string]any{
		"risk_score":             int64(f.RiskScore.Score),
		"days_until_next":        daysUntilNext,
		"next_claim_confidence":  string(f.NextClaim.Confidence),
		"insufficient_data":      f.NextClaim.InsufficientData,
		"overdue_factor":         f.TimeSince.OverdueFactor,
		"cost_trend_pct":         f.Trend.CostTrendPct,
		"frequency_trend_pct":    f.Trend.FrequencyTrendPct,
		"trend_strength":         f.Trend.Strength,
		"cost_stability":         f.Trend.CostStability,
		"high_risk_products":     int64(f.CountProducts(domain.ProductRisk.IsHighRisk)),
		"worsening_products":     int64(f.CountProducts(worsening)),
		"rising_products":        int64(f.CountProducts(rising)),
		"realistic_cost":         f.Scenarios.Realistic.PredictedCost,
		"optimistic_cost":        f.Scenarios.Optimistic.PredictedCost,
		"pessimistic_cost":       f.Scenarios.Pessimistic.PredictedCost,
		"annual_premium":         premium,
		"projected_loss_ratio":   lossRatio,
		"max_premium_adjustment": f.MaxPremiumAdjustment(),
		"claim_count":            int64(f.Data.Claims),
	}

	vars["forecast"] = map[string]any{
		"customer_id":     f.CustomerID,
		"method":          f.NextClaim.Method,
		"time_status":     f.TimeSince.Status,
		"days_since":      int64(f.TimeSince.DaysSince),
		"cost_direction":  f.Trend.CostDirection,
		"seasonal_factor": f.Seasonal.Factor,
		"season":          f.Seasonal.Season,
		"completed_years": int64(f.Data.CompletedYears),
		"warnings":        int64(len(f.Warnings)),
		"risk_factors":    f.RiskScore.Factors,
		"products":        products,
		"scenario_years":  int64(f.Scenarios.YearsOfData),
		"baseline_days":   f.NextClaim.BaselineDays,
	}

	return vars
}
