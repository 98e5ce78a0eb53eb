package domain

// ThresholdConfig holds the caller's underwriting thresholds.
// It is immutable for the duration of one forecast. Zero fields take defaults.
type ThresholdConfig struct {
	// LossRatioEscalation is the loss ratio (%) that escalates a product to high
	// risk once it also has MinClaimsForHigh claims.
	LossRatioEscalation float64 `json:"lossRatioEscalation" yaml:"lossRatioEscalation"`

	// LossRatioSevere classifies a product as high risk regardless of claim count.
	LossRatioSevere float64 `json:"lossRatioSevere" yaml:"lossRatioSevere"`

	// LossRatioElevated is the lower bound of the moderate-high class.
	LossRatioElevated float64 `json:"lossRatioElevated" yaml:"lossRatioElevated"`

	// LossRatioModerate is the lower bound of the moderate class.
	LossRatioModerate float64 `json:"lossRatioModerate" yaml:"lossRatioModerate"`

	MinClaimsForHigh int     `json:"minClaimsForHigh" yaml:"minClaimsForHigh"`
	LargeClaimAmount float64 `json:"largeClaimAmount" yaml:"largeClaimAmount"`
}

// DefaultThresholds returns the standard threshold set.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		LossRatioEscalation: 100,
		LossRatioSevere:     150,
		LossRatioElevated:   70,
		LossRatioModerate:   40,
		MinClaimsForHigh:    3,
		LargeClaimAmount:    100000,
	}
}

// WithDefaults returns a copy with every zero field replaced by its default.
func (t ThresholdConfig) WithDefaults() ThresholdConfig {
	d := DefaultThresholds()
	if t.LossRatioEscalation <= 0 {
		t.LossRatioEscalation = d.LossRatioEscalation
	}
	if t.LossRatioSevere <= 0 {
		t.LossRatioSevere = d.LossRatioSevere
	}
	if t.LossRatioElevated <= 0 {
		t.LossRatioElevated = d.LossRatioElevated
	}
	if t.LossRatioModerate <= 0 {
		t.LossRatioModerate = d.LossRatioModerate
	}
	if t.MinClaimsForHigh <= 0 {
		t.MinClaimsForHigh = d.MinClaimsForHigh
	}
	if t.LargeClaimAmount <= 0 {
		t.LargeClaimAmount = d.LargeClaimAmount
	}
	return t
}
