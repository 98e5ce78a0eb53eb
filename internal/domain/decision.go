package domain

import "time"

// Renewal decision statuses.
const (
	DecisionAccept  = "ACCEPT"
	DecisionAdjust  = "ADJUST"
	DecisionDecline = "DECLINE"
)

// RenewalDecision is the underwriting outcome derived from a forecast.
type RenewalDecision struct {
	Status string  `json:"status"`
	Score  float64 `json:"score"` // weighted rule score, 0-1

	// PremiumAdjustmentPct is the recommended premium change; 0 unless Status is ADJUST
	PremiumAdjustmentPct float64 `json:"premiumAdjustmentPct"`

	Reasons          []string          `json:"reasons,omitempty"`
	RuleResults      []RuleResult      `json:"ruleResults"`
	GuidelineResults []GuidelineResult `json:"guidelineResults,omitempty"`
	DecidedAt        time.Time         `json:"decidedAt"`
}

// ForecastMetadata contains processing information.
type ForecastMetadata struct {
	TraceID             string `json:"traceId"`
	AnalyzeMs           int64  `json:"analyzeMs"`
	RulesMs             int64  `json:"rulesMs"`
	DecisionMs          int64  `json:"decisionMs"`
	TotalMs             int64  `json:"totalMs"`
	RulesEvaluated      int    `json:"rulesEvaluated"`
	GuidelinesEvaluated int    `json:"guidelinesEvaluated"`
	Cached              bool   `json:"cached"`
	EngineVersion       string `json:"engineVersion"`
}

// ForecastResponse is the compact API view of a forecast and its decision.
type ForecastResponse struct {
	ForecastID    string              `json:"forecastId"`
	CustomerID    string              `json:"customerId"`
	TenantID      string              `json:"tenantId"`
	AsOf          string              `json:"asOf"`
	Decision      string              `json:"decision"`
	PremiumAdjust float64             `json:"premiumAdjustmentPct"`
	RiskScore     RiskScore           `json:"riskScore"`
	NextClaim     NextClaimPrediction `json:"nextClaim"`
	Scenarios     ScenarioAnalysis    `json:"scenarios"`
	Reasons       []string            `json:"reasons,omitempty"`
	WarningCount  int                 `json:"warningCount"`
	Metadata      ForecastMetadata    `json:"metadata"`
}

// ToResponse converts a Forecast to an API response.
func (f *Forecast) ToResponse() *ForecastResponse {
	resp := &ForecastResponse{
		ForecastID:   f.ID,
		CustomerID:   f.CustomerID,
		TenantID:     f.TenantID,
		AsOf:         f.AsOf.Format(time.DateOnly),
		RiskScore:    f.RiskScore,
		NextClaim:    f.NextClaim,
		Scenarios:    f.Scenarios,
		WarningCount: len(f.Warnings),
		Metadata:     f.Metadata,
	}
	if f.Decision != nil {
		resp.Decision = f.Decision.Status
		resp.PremiumAdjust = f.Decision.PremiumAdjustmentPct
		resp.Reasons = f.Decision.Reasons
	}
	return resp
}
