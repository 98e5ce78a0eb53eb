package domain

import "time"

// DataSummary describes the normalized input a forecast was computed from.
type DataSummary struct {
	Claims          int  `json:"claims"`
	SkippedClaims   int  `json:"skippedClaims"`
	Years           int  `json:"years"`
	CompletedYears  int  `json:"completedYears"`
	ActivePolicies  int  `json:"activePolicies"`
	Products        int  `json:"products"`
	SynthesizedYear bool `json:"synthesizedYear"`
}

// Forecast is the complete forward-looking analysis for one customer.
type Forecast struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	CustomerID  string    `json:"customerId"`
	AsOf        time.Time `json:"asOf"`
	CreatedAt   time.Time `json:"createdAt"`
	Fingerprint string    `json:"fingerprint"`

	Data      DataSummary        `json:"data"`
	Baseline  BaselineStats      `json:"baseline"`
	Seasonal  SeasonalAnalysis   `json:"seasonal"`
	Trend     TrendAnalysis      `json:"trend"`
	TimeSince TimeSinceLastClaim `json:"timeSinceLastClaim"`
	Products  []ProductRisk      `json:"products"`

	NextClaim NextClaimPrediction `json:"nextClaim"`
	Scenarios ScenarioAnalysis    `json:"scenarios"`
	RiskScore RiskScore           `json:"riskScore"`

	Warnings []DataQualityWarning `json:"warnings,omitempty"`

	// Decision is set by the underwriting processor
	Decision *RenewalDecision `json:"decision,omitempty"`

	Metadata ForecastMetadata `json:"metadata"`
}

// AnnualPremium returns the summed annual premium of active products.
func (f *Forecast) AnnualPremium() float64 {
	var total float64
	for _, p := range f.Products {
		if p.Exposure.Active {
			total += p.Exposure.AnnualPremium
		}
	}
	return total
}

// MaxPremiumAdjustment returns the largest product premium recommendation.
func (f *Forecast) MaxPremiumAdjustment() float64 {
	var max float64
	for i, p := range f.Products {
		if i == 0 || p.PremiumAdjustmentPct > max {
			max = p.PremiumAdjustmentPct
		}
	}
	return max
}

// CountProducts returns the number of products matching pred.
func (f *Forecast) CountProducts(pred func(ProductRisk) bool) int {
	n := 0
	for _, p := range f.Products {
		if pred(p) {
			n++
		}
	}
	return n
}
