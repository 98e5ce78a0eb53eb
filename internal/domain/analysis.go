package domain

// BaselineStats summarizes the positive day gaps between consecutive claims.
type BaselineStats struct {
	Sufficient     bool    `json:"sufficient"`
	MeanInterval   float64 `json:"meanInterval"`
	MedianInterval float64 `json:"medianInterval"`
	StdDev         float64 `json:"stdDev"`
	Stability      float64 `json:"stability"` // stdDev / mean, 0 when mean is 0
	IntervalCount  int     `json:"intervalCount"`
}

// Season names.
const (
	SeasonWinter = "winter"
	SeasonSpring = "spring"
	SeasonSummer = "summer"
	SeasonAutumn = "autumn"
)

// Seasonal directions.
const (
	SeasonalElevated = "elevated"
	SeasonalReduced  = "reduced"
	SeasonalNormal   = "normal"
)

// SeasonalAnalysis is the claim density of the current month relative to a
// uniform monthly average.
type SeasonalAnalysis struct {
	Month         int     `json:"month"`
	Factor        float64 `json:"factor"`
	Season        string  `json:"season"`
	Direction     string  `json:"direction"`
	MonthClaims   int     `json:"monthClaims"`
	MonthlyAvg    float64 `json:"monthlyAverage"`
	MonthlyCounts [12]int `json:"monthlyCounts"`

	// Applicable is false when the history is too short for the factor to mean anything.
	Applicable bool `json:"applicable"`
}

// Trend directions.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// TrendAnalysis compares recent and earlier yearly aggregates.
type TrendAnalysis struct {
	InsufficientData bool `json:"insufficientData"`
	YearsAnalyzed    int  `json:"yearsAnalyzed"`

	CostTrendPct      float64 `json:"costTrendPct"`
	FrequencyTrendPct float64 `json:"frequencyTrendPct"`

	ShortTermAvailable    bool    `json:"shortTermAvailable"`
	ShortTermCostPct      float64 `json:"shortTermCostPct"`
	ShortTermFrequencyPct float64 `json:"shortTermFrequencyPct"`

	Strength      float64    `json:"strength"` // R² of cost vs. year index
	Confidence    Confidence `json:"confidence"`
	SlopePerYear  float64    `json:"slopePerYear"`
	CostDirection string     `json:"costDirection"`
	FreqDirection string     `json:"frequencyDirection"`
	CostStability float64    `json:"costStability"`
	AverageCost   float64    `json:"averageCost"`
}

// Time-since-last-claim statuses.
const (
	StatusOverdue     = "overdue"
	StatusApproaching = "approaching"
	StatusNormal      = "normal"
	StatusNoClaims    = "no-claims"
	StatusUnknown     = "unknown"
)

// TimeSinceLastClaim compares elapsed time to the historical interval.
type TimeSinceLastClaim struct {
	NoClaims        bool    `json:"noClaims"`
	DaysSince       int     `json:"daysSince"`
	AverageInterval float64 `json:"averageInterval"`
	OverdueFactor   float64 `json:"overdueFactor"`
	Status          string  `json:"status"`
}

// Risk classes.
const (
	RiskLow          = "low"
	RiskModerate     = "moderate"
	RiskModerateHigh = "moderate-high"
	RiskHigh         = "high"
)

// Development labels.
const (
	DevelopmentImproving = "improving"
	DevelopmentStable    = "stable"
	DevelopmentWorsening = "worsening"
)

// ProductRisk is the classification of one product exposure.
type ProductRisk struct {
	Exposure             ProductExposure `json:"exposure"`
	AverageClaim         float64         `json:"averageClaim"`
	RiskClass            string          `json:"riskClass"`
	Development          string          `json:"development"`
	DevelopmentPct       float64         `json:"developmentPct"`
	RecentClaims         int             `json:"recentClaims"`
	PriorAnnualRate      float64         `json:"priorAnnualRate"`
	RisingActivity       bool            `json:"risingActivity"`
	PremiumAdjustmentPct float64         `json:"premiumAdjustmentPct"`
	Reasons              []string        `json:"reasons,omitempty"`
}

// IsHighRisk reports whether the product is in the high class.
func (p ProductRisk) IsHighRisk() bool {
	return p.RiskClass == RiskHigh
}

// IsElevated reports whether the product is high or moderate-high.
func (p ProductRisk) IsElevated() bool {
	return p.RiskClass == RiskHigh || p.RiskClass == RiskModerateHigh
}
