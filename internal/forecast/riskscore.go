package forecast

import (
	"fmt"
	"sort"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// ScoreInput bundles the predictions the risk score aggregates.
type ScoreInput struct {
	NextClaim domain.NextClaimPrediction
	Scenarios domain.ScenarioAnalysis
	Products  []domain.ProductRisk
	Trend     domain.TrendAnalysis
}

// Score builds the 0-100 forward risk score from additive contributions.
// Factors are ranked by points; equal points keep their order of addition.
func Score(in ScoreInput, t Tuning) domain.RiskScore {
	var parts []domain.RiskContribution
	add := func(points int, format string, args ...any) {
		if points != 0 {
			parts = append(parts, domain.RiskContribution{Factor: fmt.Sprintf(format, args...), Points: points})
		}
	}

	// Proximity of the next claim
	if nc := in.NextClaim; !nc.InsufficientData {
		switch {
		case nc.DaysUntilNext <= t.NearDays:
			add(t.ScoreWithin30Days, "next claim expected within %d days (%d)", t.NearDays, nc.DaysUntilNext)
		case nc.DaysUntilNext <= t.SoonDays:
			add(t.ScoreWithin90Days, "next claim expected within %d days (%d)", t.SoonDays, nc.DaysUntilNext)
		case nc.DaysUntilNext <= t.LaterDays:
			add(t.ScoreWithin180Days, "next claim expected within %d days (%d)", t.LaterDays, nc.DaysUntilNext)
		default:
			add(t.ScoreBeyond180Days, "next claim expected in %d days", nc.DaysUntilNext)
		}
		if nc.Confidence == domain.ConfidenceHigh {
			add(-t.ScoreHighConfidence, "high confidence in the next-claim estimate")
		}
	}

	// Elevated products
	elevated, rising := 0, 0
	for _, p := range in.Products {
		if p.IsElevated() {
			elevated++
		}
		if p.RisingActivity {
			rising++
		}
	}
	add(elevated*t.ScorePerRiskyProduct, "%d high or moderate-high risk product(s)", elevated)

	// Cost trend
	if tr := in.Trend; !tr.InsufficientData {
		projection := ""
		if !in.Scenarios.InsufficientData {
			projection = fmt.Sprintf(", realistic cost %.0f", in.Scenarios.Realistic.PredictedCost)
		}
		switch {
		case tr.CostTrendPct > t.HeavyTrendPct:
			add(t.ScoreHeavyTrend, "claim cost trend %+.1f%%%s", tr.CostTrendPct, projection)
		case tr.CostTrendPct > t.LightTrendPct:
			add(t.ScoreLightTrend, "claim cost trend %+.1f%%%s", tr.CostTrendPct, projection)
		}
	}

	if in.Trend.CostStability < t.VolatileCostThreshold {
		add(t.ScoreLowStability, "volatile annual claim cost (stability %.2f)", in.Trend.CostStability)
	}

	add(rising*t.ScorePerRisingProduct, "%d product(s) with rising claim activity", rising)

	total := 0
	for _, p := range parts {
		total += p.Points
	}

	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Points > parts[j].Points })
	factors := make([]string, len(parts))
	for i, p := range parts {
		factors[i] = p.Factor
	}
	if parts == nil {
		parts = []domain.RiskContribution{}
	}

	return domain.RiskScore{
		Score:         clampInt(total, 0, 100),
		Factors:       factors,
		Contributions: parts,
	}
}
