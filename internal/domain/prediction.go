package domain

// Confidence is a qualitative reliability grade.
type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceHigh     Confidence = "high"
)

var confidenceOrder = []Confidence{ConfidenceLow, ConfidenceModerate, ConfidenceHigh}

func (c Confidence) rank() int {
	for i, v := range confidenceOrder {
		if v == c {
			return i
		}
	}
	return 0
}

// Raise returns the grade n steps higher, saturating at high.
func (c Confidence) Raise(n int) Confidence {
	r := c.rank() + n
	if r >= len(confidenceOrder) {
		r = len(confidenceOrder) - 1
	}
	if r < 0 {
		r = 0
	}
	return confidenceOrder[r]
}

// Lower returns the grade n steps lower, saturating at low.
func (c Confidence) Lower(n int) Confidence {
	return c.Raise(-n)
}

// Adjustment types recorded in the next-claim adjustment log.
const (
	AdjustmentSeasonal    = "seasonal"
	AdjustmentTrend       = "trend"
	AdjustmentProductRisk = "product-risk"
	AdjustmentOverdue     = "overdue"
	AdjustmentVolatility  = "volatility"
	AdjustmentDataVolume  = "data-sufficiency"
)

// Adjustment is one auditable step of the next-claim estimate.
// EffectPct is the relative change applied to the day estimate; 0 for
// steps that only change the confidence grade.
type Adjustment struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	EffectPct   float64    `json:"effectPct"`
	Confidence  Confidence `json:"confidence,omitempty"`
}

// Prediction methods.
const (
	MethodAdvanced = "advanced"
	MethodSimple   = "simple"
	MethodAuto     = "auto"
)

// NextClaimPrediction estimates when the next claim is likely.
// DaysUntilNext carries no meaning when InsufficientData is set.
type NextClaimPrediction struct {
	InsufficientData bool         `json:"insufficientData"`
	Reason           string       `json:"reason,omitempty"`
	Method           string       `json:"method"`
	DaysUntilNext    int          `json:"daysUntilNext"`
	BaselineDays     float64      `json:"baselineDays"`
	Confidence       Confidence   `json:"confidence"`
	Adjustments      []Adjustment `json:"adjustments"`
}

// Scenario names.
const (
	ScenarioOptimistic  = "optimistic"
	ScenarioRealistic   = "realistic"
	ScenarioPessimistic = "pessimistic"
)

// ConfidenceInterval is a two-sided interval around a prediction.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Scenario is one forward annual cost projection.
type Scenario struct {
	Name               string              `json:"name"`
	PredictedCost      float64             `json:"predictedCost"`
	Probability        int                 `json:"probability"`
	ConfidenceInterval *ConfidenceInterval `json:"confidenceInterval,omitempty"`
	Justifications     []string            `json:"justifications"`
}

// ScenarioAnalysis holds the three cost scenarios.
type ScenarioAnalysis struct {
	InsufficientData bool     `json:"insufficientData"`
	BaseCost         float64  `json:"baseCost"`
	YearsOfData      int      `json:"yearsOfData"`
	Confidence       float64  `json:"confidence"`
	Optimistic       Scenario `json:"optimistic"`
	Realistic        Scenario `json:"realistic"`
	Pessimistic      Scenario `json:"pessimistic"`
}

// RiskContribution is one additive term of the risk score.
type RiskContribution struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
}

// RiskScore is the forward risk score, 0–100.
type RiskScore struct {
	Score         int                `json:"score"`
	Factors       []string           `json:"factors"`
	Contributions []RiskContribution `json:"contributions"`
}

// Data quality warning codes.
const (
	WarnUnparseableDate   = "unparseable-date"
	WarnFutureDate        = "future-date"
	WarnInvalidAmount     = "invalid-amount"
	WarnNegativeAmount    = "negative-amount"
	WarnDuplicateYear     = "duplicate-year"
	WarnFutureYear        = "future-year"
	WarnInvalidYear       = "invalid-year"
	WarnZeroPremium       = "zero-premium"
	WarnDuplicateInterval = "duplicate-claim-date"
)

// DataQualityWarning reports an input record that was skipped or repaired.
type DataQualityWarning struct {
	Code    string `json:"code"`
	Record  string `json:"record"` // claim, yearly, policy, exposure
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}
