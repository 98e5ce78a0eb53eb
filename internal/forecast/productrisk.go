package forecast

import (
	"fmt"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// ClassifyProducts classifies every exposure against its own claims.
func ClassifyProducts(exposures []domain.ProductExposure, claims []domain.ClaimRecord, th domain.ThresholdConfig, now time.Time, t Tuning) []domain.ProductRisk {
	byKey := make(map[string][]domain.ClaimRecord)
	for _, c := range claims {
		byKey[c.ProductKey()] = append(byKey[c.ProductKey()], c)
	}

	out := make([]domain.ProductRisk, 0, len(exposures))
	for _, e := range exposures {
		out = append(out, ClassifyProduct(e, byKey[e.Key()], th, now, t))
	}
	return out
}

// ClassifyProduct assigns a risk class, a development label and a premium
// recommendation to one product. Claims must be sorted by date.
func ClassifyProduct(e domain.ProductExposure, claims []domain.ClaimRecord, th domain.ThresholdConfig, now time.Time, t Tuning) domain.ProductRisk {
	th = th.WithDefaults()
	p := domain.ProductRisk{
		Exposure:     e,
		AverageClaim: ratio(e.ClaimCost, float64(e.ClaimCount)),
	}

	p.RiskClass, p.Reasons = riskClass(e, p.AverageClaim, th)
	p.Development, p.DevelopmentPct = development(claims, t.DevelopmentThresholdPct)
	if p.Development != domain.DevelopmentStable {
		p.Reasons = append(p.Reasons, fmt.Sprintf("average claim cost %s %.0f%% between earlier and recent claims",
			changeVerb(p.DevelopmentPct), abs(p.DevelopmentPct)))
	}

	p.RecentClaims, p.PriorAnnualRate = activity(claims, now)
	p.RisingActivity = p.RecentClaims >= 2 && float64(p.RecentClaims) > p.PriorAnnualRate*t.ActivityIncreaseRatio
	if p.RisingActivity {
		p.Reasons = append(p.Reasons, fmt.Sprintf("%d claims in the last 12 months against %.1f per year before",
			p.RecentClaims, p.PriorAnnualRate))
	}

	p.PremiumAdjustmentPct = premiumAdjustment(p.RiskClass, p.Development, t)
	return p
}

func riskClass(e domain.ProductExposure, avgClaim float64, th domain.ThresholdConfig) (string, []string) {
	lr := e.LossRatio
	if e.EarnedPremium <= 0 {
		switch {
		case e.ClaimCount >= th.MinClaimsForHigh:
			return domain.RiskModerateHigh, []string{fmt.Sprintf("%d claims with no premium on record", e.ClaimCount)}
		case e.ClaimCount > 0:
			return domain.RiskModerate, []string{fmt.Sprintf("%d claims with no premium on record", e.ClaimCount)}
		}
		return domain.RiskLow, nil
	}

	lrReason := fmt.Sprintf("loss ratio %.1f%%", lr)
	switch {
	case lr >= th.LossRatioSevere:
		return domain.RiskHigh, []string{lrReason + fmt.Sprintf(" at or above %.0f%%", th.LossRatioSevere)}
	case lr >= th.LossRatioEscalation && e.ClaimCount >= th.MinClaimsForHigh:
		return domain.RiskHigh, []string{lrReason + fmt.Sprintf(" with %d claims", e.ClaimCount)}
	case lr >= th.LossRatioEscalation:
		return domain.RiskModerateHigh, []string{lrReason + fmt.Sprintf(" on only %d claims", e.ClaimCount)}
	case lr >= th.LossRatioElevated:
		return domain.RiskModerateHigh, []string{lrReason}
	case lr >= th.LossRatioModerate && avgClaim >= th.LargeClaimAmount:
		return domain.RiskModerateHigh, []string{lrReason + fmt.Sprintf(" with average claim %.0f", avgClaim)}
	case lr >= th.LossRatioModerate:
		return domain.RiskModerate, []string{lrReason}
	}
	return domain.RiskLow, nil
}

// development compares the average cost of the recent half of the claims
// with the earlier half.
func development(claims []domain.ClaimRecord, thresholdPct float64) (string, float64) {
	if len(claims) < 2 {
		return domain.DevelopmentStable, 0
	}
	half := len(claims) / 2
	earlier := claimCosts(claims[:half])
	recent := claimCosts(claims[half:])

	change := round1(pctChange(mean(earlier), mean(recent)))
	switch {
	case change > thresholdPct:
		return domain.DevelopmentWorsening, change
	case change < -thresholdPct:
		return domain.DevelopmentImproving, change
	}
	return domain.DevelopmentStable, change
}

// activity counts claims in the last year and the annual claim rate before it.
func activity(claims []domain.ClaimRecord, now time.Time) (int, float64) {
	cutoff := Day(now).AddDate(-1, 0, 0)
	recent, prior := 0, 0
	var first time.Time
	for _, c := range claims {
		if c.Date.After(cutoff) {
			recent++
			continue
		}
		if prior == 0 {
			first = c.Date
		}
		prior++
	}
	if prior == 0 {
		return recent, 0
	}
	years := max(cutoff.Sub(first).Hours()/24/daysPerYear, 1)
	return recent, round2(float64(prior) / years)
}

func premiumAdjustment(class, dev string, t Tuning) float64 {
	var adj float64
	switch class {
	case domain.RiskLow:
		adj = t.AdjustLow
	case domain.RiskModerate:
		adj = t.AdjustModerate
	case domain.RiskModerateHigh:
		adj = t.AdjustModerateHigh
	case domain.RiskHigh:
		adj = t.AdjustHigh
	}
	switch dev {
	case domain.DevelopmentImproving:
		adj += t.AdjustImproving
	case domain.DevelopmentWorsening:
		adj += t.AdjustWorsening
	}
	return clamp(adj, t.AdjustMin, t.AdjustMax)
}

func claimCosts(claims []domain.ClaimRecord) []float64 {
	costs := make([]float64, len(claims))
	for i, c := range claims {
		costs[i] = c.TotalCost
	}
	return costs
}

func changeVerb(pct float64) string {
	if pct < 0 {
		return "fell"
	}
	return "rose"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
