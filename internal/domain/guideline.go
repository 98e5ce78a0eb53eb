package domain

import "time"

// Guideline is an underwriting guideline: a weighted group of renewal rules
// whose combined score declines the renewal once it reaches DeclineThreshold.
// Example: "Deteriorating motor book" combines LossRatio (0.5) + CostTrend (0.3) + Proximity (0.2)
type Guideline struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Rules contains the list of rules with their weights
	Rules []GuidelineRuleWeight `json:"rules"`

	// DeclineThreshold is the minimum score to trigger the guideline (0.0-1.0)
	DeclineThreshold float64 `json:"declineThreshold"`

	// Whether guideline is active
	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// GuidelineRuleWeight defines a rule and its weight within a guideline.
type GuidelineRuleWeight struct {
	RuleID string  `json:"ruleId"`
	Weight float64 `json:"weight"` // 0.0 to 1.0
}

// RuleContribution shows how a single rule contributed to a guideline score.
type RuleContribution struct {
	RuleID       string  `json:"ruleId"`
	RuleScore    float64 `json:"ruleScore"`    // Normalized rule score (0.0-1.0)
	Weight       float64 `json:"weight"`       // Weight in guideline
	Contribution float64 `json:"contribution"` // ruleScore * weight
}

// GuidelineResult is the aggregated result of rules for a guideline.
type GuidelineResult struct {
	GuidelineID   string             `json:"guidelineId"`
	GuidelineName string             `json:"guidelineName"`
	Score         float64            `json:"score"`
	Threshold     float64            `json:"threshold"`
	Triggered     bool               `json:"triggered"`
	Rules         []RuleResult       `json:"rules"`
	Contributions []RuleContribution `json:"contributions,omitempty"`
	ProcessMs     int64              `json:"processMs,omitempty"`
}
