package rules

import "github.com/opensource-finance/claimcast/internal/domain"

func limit(v float64) *float64 { return &v }

// DefaultRules returns the starter renewal rule set. Tenants without
// stored rules and the offline CLI use it.
func DefaultRules() []*domain.RuleConfig {
	return []*domain.RuleConfig{
		{
			ID:          "loss-ratio",
			Name:        "Projected loss ratio",
			Description: "Realistic scenario cost against active annual premium",
			Version:     "1.0.0",
			Expression:  "projected_loss_ratio",
			Bands: []domain.RuleBand{
				{UpperLimit: limit(70), Outcome: domain.RuleOutcomeAccept, Reason: "loss ratio within target"},
				{LowerLimit: limit(70), UpperLimit: limit(150), Outcome: domain.RuleOutcomeAdjust, Reason: "loss ratio above target"},
				{LowerLimit: limit(150), Outcome: domain.RuleOutcomeDecline, Reason: "projected loss ratio is severe"},
			},
			Weight:  0.4,
			Enabled: true,
		},
		{
			ID:          "risk-score",
			Name:        "Forward risk score",
			Description: "Composite forward risk score",
			Version:     "1.0.0",
			Expression:  "risk_score",
			Bands: []domain.RuleBand{
				{UpperLimit: limit(40), Outcome: domain.RuleOutcomeAccept, Reason: "low forward risk"},
				{LowerLimit: limit(40), UpperLimit: limit(70), Outcome: domain.RuleOutcomeAdjust, Reason: "elevated forward risk"},
				{LowerLimit: limit(70), Outcome: domain.RuleOutcomeDecline, Reason: "high forward risk"},
			},
			Weight:  0.3,
			Enabled: true,
		},
		{
			ID:          "cost-trend",
			Name:        "Rising claim cost",
			Description: "Sustained increase of yearly claim cost",
			Version:     "1.0.0",
			Expression:  "cost_trend_pct > 20.0 && trend_strength >= 0.5",
			Bands: []domain.RuleBand{
				{LowerLimit: limit(1), Outcome: domain.RuleOutcomeAdjust, Reason: "claim cost rising steadily"},
			},
			Weight:  0.2,
			Enabled: true,
		},
		{
			ID:          "high-risk-products",
			Name:        "High-risk products",
			Description: "Number of products classified high risk",
			Version:     "1.0.0",
			Expression:  "high_risk_products",
			Bands: []domain.RuleBand{
				{LowerLimit: limit(1), Outcome: domain.RuleOutcomeAdjust, Reason: "high-risk products in portfolio"},
			},
			Weight:  0.1,
			Enabled: true,
		},
	}
}

// DefaultGuidelines returns the starter guideline set matching DefaultRules.
func DefaultGuidelines() []*domain.Guideline {
	return []*domain.Guideline{
		{
			ID:          "deteriorating-book",
			Name:        "Deteriorating book",
			Description: "Severe loss ratio backed by rising cost or high forward risk",
			Version:     "1.0.0",
			Rules: []domain.GuidelineRuleWeight{
				{RuleID: "loss-ratio", Weight: 0.5},
				{RuleID: "cost-trend", Weight: 0.3},
				{RuleID: "risk-score", Weight: 0.2},
			},
			DeclineThreshold: 0.6,
			Enabled:          true,
		},
	}
}
