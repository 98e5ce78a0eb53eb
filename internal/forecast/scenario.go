package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// z95 is the two-sided 95% normal quantile.
const z95 = 1.96

// ScenarioInput bundles what the scenario predictor reads.
type ScenarioInput struct {
	Yearly   []domain.YearlyAggregate
	Trend    domain.TrendAnalysis
	Products []domain.ProductRisk
	Seasonal domain.SeasonalAnalysis
	Now      time.Time
}

// Scenarios projects next year's claim cost as optimistic, realistic and
// pessimistic scenarios. The base is the mean of the most recent completed
// years; without any, the current year annualized.
func Scenarios(in ScenarioInput, t Tuning) domain.ScenarioAnalysis {
	costs := baseCosts(in.Yearly, in.Now, t.ScenarioWindowYears)
	if len(costs) == 0 {
		return insufficientScenarios(t)
	}

	base := mean(costs)
	n := len(costs)
	tr := in.Trend
	total := len(in.Products)
	high := 0
	riskReduction := 0.0
	unstable := 0
	for _, p := range in.Products {
		switch p.RiskClass {
		case domain.RiskHigh:
			high++
			riskReduction += t.HighRiskReduction
		case domain.RiskModerateHigh:
			riskReduction += t.ElevatedRiskReduction
		}
		if p.Development == domain.DevelopmentWorsening || p.RisingActivity {
			unstable++
		}
	}
	highShare := ratio(float64(high), float64(total))
	unstableShare := ratio(float64(unstable), float64(total))

	// Realistic
	realistic := base
	var why []string
	why = append(why, fmt.Sprintf("average annual claim cost %.0f over %d year(s)", base, n))
	if !tr.InsufficientData && tr.CostTrendPct != 0 {
		c := clamp(tr.CostTrendPct/100*tr.Strength, -t.TrendContributionCap, t.TrendContributionCap)
		realistic *= 1 + c
		why = append(why, fmt.Sprintf("cost trend %+.1f%% weighted by strength %.2f: %+.1f%%", tr.CostTrendPct, tr.Strength, c*100))
	}
	if highShare > 0 {
		c := math.Min(highShare*t.HighRiskShareWeight, t.HighRiskShareCap)
		realistic *= 1 + c
		why = append(why, fmt.Sprintf("%d of %d products high risk: +%.1f%%", high, total, c*100))
	}
	if tr.CostStability < t.StableCostThreshold {
		c := (t.StableCostThreshold - tr.CostStability) * t.VolatilityWeight
		realistic *= 1 + c
		why = append(why, fmt.Sprintf("cost stability %.2f below %.2f: +%.1f%%", tr.CostStability, t.StableCostThreshold, c*100))
	}
	if in.Seasonal.Applicable && in.Seasonal.Direction == domain.SeasonalElevated {
		why = append(why, fmt.Sprintf("%s is a high-claim season (factor %.2f)", in.Seasonal.Season, in.Seasonal.Factor))
	}

	res := domain.ScenarioAnalysis{
		BaseCost:    round2(base),
		YearsOfData: n,
		Confidence:  scenarioConfidence(tr, highShare, n, t),
	}
	res.Realistic = domain.Scenario{
		Name:           domain.ScenarioRealistic,
		PredictedCost:  round2(realistic),
		Justifications: why,
	}
	if n >= 2 {
		half := z95 * stddev(costs) / math.Sqrt(float64(n))
		res.Realistic.ConfidenceInterval = &domain.ConfidenceInterval{
			Lower: round2(math.Max(realistic-half, 0)),
			Upper: round2(realistic + half),
		}
	}

	// Optimistic
	improvement := riskReduction + t.RiskManagementAllowance + t.FavorableAllowance
	improvement = math.Min(improvement, t.MaxImprovement)
	optWhy := []string{}
	if riskReduction > 0 {
		optWhy = append(optWhy, fmt.Sprintf("risk reduction on elevated products: -%.1f%%", riskReduction*100))
	}
	optWhy = append(optWhy,
		fmt.Sprintf("improved risk management: -%.1f%%", t.RiskManagementAllowance*100),
		fmt.Sprintf("favorable external conditions: -%.1f%%", t.FavorableAllowance*100),
		fmt.Sprintf("total improvement %.1f%% (cap %.0f%%)", improvement*100, t.MaxImprovement*100))
	res.Optimistic = domain.Scenario{
		Name:           domain.ScenarioOptimistic,
		PredictedCost:  round2(realistic * (1 - improvement)),
		Justifications: optWhy,
	}

	// Pessimistic
	increase := unstableShare * t.UnstableShareWeight
	pesWhy := []string{}
	if unstable > 0 {
		pesWhy = append(pesWhy, fmt.Sprintf("%d of %d products worsening or rising: +%.1f%%", unstable, total, unstableShare*t.UnstableShareWeight*100))
	}
	if !tr.InsufficientData && tr.CostTrendPct > 0 {
		c := tr.CostTrendPct / 100 * tr.Strength * t.TrendRiskWeight
		increase += c
		pesWhy = append(pesWhy, fmt.Sprintf("continued cost trend: +%.1f%%", c*100))
	}
	switch {
	case tr.CostStability < t.VolatileCostThreshold:
		increase += t.VolatilityPenalty
		pesWhy = append(pesWhy, fmt.Sprintf("high cost volatility: +%.1f%%", t.VolatilityPenalty*100))
	case tr.CostStability < t.StableCostThreshold:
		increase += t.MildVolatilityPenalty
		pesWhy = append(pesWhy, fmt.Sprintf("moderate cost volatility: +%.1f%%", t.MildVolatilityPenalty*100))
	}
	increase += t.ExternalRiskBuffer
	increase = math.Min(increase, t.MaxRiskIncrease)
	pesWhy = append(pesWhy,
		fmt.Sprintf("external risk buffer: +%.1f%%", t.ExternalRiskBuffer*100),
		fmt.Sprintf("total increase %.1f%% (cap %.0f%%)", increase*100, t.MaxRiskIncrease*100))
	res.Pessimistic = domain.Scenario{
		Name:           domain.ScenarioPessimistic,
		PredictedCost:  round2(realistic * (1 + increase)),
		Justifications: pesWhy,
	}

	res.Optimistic.Probability, res.Realistic.Probability, res.Pessimistic.Probability = probabilities(tr, t)
	return res
}

// baseCosts returns the claim costs of the last window completed years, or
// the annualized current year when there are none.
func baseCosts(yearly []domain.YearlyAggregate, now time.Time, window int) []float64 {
	done := completedYears(yearly, now)
	if len(done) > window {
		done = done[len(done)-window:]
	}
	if len(done) > 0 {
		return claimCostsOf(done)
	}
	for _, y := range yearly {
		if y.Year == now.Year() {
			return []float64{y.ClaimCost * 12 / float64(now.Month())}
		}
	}
	return nil
}

func claimCostsOf(yearly []domain.YearlyAggregate) []float64 {
	costs := make([]float64, len(yearly))
	for i, y := range yearly {
		costs[i] = y.ClaimCost
	}
	return costs
}

func scenarioConfidence(tr domain.TrendAnalysis, highShare float64, years int, t Tuning) float64 {
	c := t.BaseConfidence
	if tr.Strength < t.TrendModerateStrength {
		c -= t.WeakTrendPenalty
	}
	if highShare > t.HighRiskSharePenaltyAt {
		c -= t.HighRiskSharePenalty
	}
	if years < t.FewYears {
		c -= t.FewYearsPenalty
	}
	if tr.CostStability < t.VolatileCostThreshold {
		c -= t.VolatileCostPenalty
	}
	return round2(clamp(c, t.MinConfidence, t.MaxConfidence))
}

// probabilities returns the optimistic, realistic and pessimistic weights.
// They shift with the cost trend and stability, not with the cost values.
func probabilities(tr domain.TrendAnalysis, t Tuning) (int, int, int) {
	opt, mid, pes := t.OptimisticProbability, t.RealisticProbability, t.PessimisticProbability
	if !tr.InsufficientData {
		shift := int(math.Round(t.ProbabilityShift * tr.Strength))
		switch tr.CostDirection {
		case domain.TrendIncreasing:
			pes += shift
			opt -= shift
		case domain.TrendDecreasing:
			opt += shift
			pes -= shift
		}
	}
	if tr.CostStability < t.VolatileCostThreshold {
		mid -= 2 * t.VolatileProbabilityShift
		opt += t.VolatileProbabilityShift
		pes += t.VolatileProbabilityShift
	}
	lo, hi := t.MinProbability, t.MaxProbability
	return clampInt(opt, lo, hi), clampInt(mid, lo, hi), clampInt(pes, lo, hi)
}

func insufficientScenarios(t Tuning) domain.ScenarioAnalysis {
	note := []string{"no annual claim cost history"}
	return domain.ScenarioAnalysis{
		InsufficientData: true,
		Confidence:       t.MinConfidence,
		Optimistic:       domain.Scenario{Name: domain.ScenarioOptimistic, Probability: t.OptimisticProbability, Justifications: note},
		Realistic:        domain.Scenario{Name: domain.ScenarioRealistic, Probability: t.RealisticProbability, Justifications: note},
		Pessimistic:      domain.Scenario{Name: domain.ScenarioPessimistic, Probability: t.PessimisticProbability, Justifications: note},
	}
}
