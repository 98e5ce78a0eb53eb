package domain

import "time"

// ClaimRecord is a normalized claim. Created once by the normalizer, never mutated.
type ClaimRecord struct {
	ID        string    `json:"id,omitempty"`
	Date      time.Time `json:"date"`
	TotalCost float64   `json:"totalCost"`
	ProductID string    `json:"productId,omitempty"`
	Product   string    `json:"product,omitempty"`
	Open      bool      `json:"open"`
	Reserve   *float64  `json:"reserve,omitempty"`
}

// ProductKey returns the key used to match this claim to a product exposure.
func (c ClaimRecord) ProductKey() string {
	return ProductKey(c.ProductID, c.Product)
}

// YearlyAggregate is one normalized calendar year.
// IsEstimated is only set on the synthesized current year.
type YearlyAggregate struct {
	Year           int     `json:"year"`
	Premium        float64 `json:"premium"`
	ClaimCost      float64 `json:"claimCost"`
	ClaimCount     int     `json:"claimCount"`
	OpenClaimCount int     `json:"openClaimCount"`
	ActiveProducts int     `json:"activeProducts"`
	LossRatio      float64 `json:"lossRatio"`
	IsEstimated    bool    `json:"isEstimated"`
}

// ActivePolicy is a normalized in-force coverage line.
type ActivePolicy struct {
	ID            string     `json:"id,omitempty"`
	ProductID     string     `json:"productId,omitempty"`
	Product       string     `json:"product,omitempty"`
	AnnualPremium float64    `json:"annualPremium"`
	StartDate     *time.Time `json:"startDate,omitempty"`
}

// ProductKey returns the key used to match claims to this policy.
func (p ActivePolicy) ProductKey() string {
	return ProductKey(p.ProductID, p.Product)
}

// ProductExposure is the premium and claim history of one product.
// LossRatio is 0 whenever EarnedPremium is 0.
type ProductExposure struct {
	ProductID     string  `json:"productId"`
	Product       string  `json:"product,omitempty"`
	AnnualPremium float64 `json:"annualPremium"`
	EarnedPremium float64 `json:"earnedPremium"`
	ClaimCount    int     `json:"claimCount"`
	ClaimCost     float64 `json:"claimCost"`
	LossRatio     float64 `json:"lossRatio"`
	Active        bool    `json:"active"`
}

// Key returns the product grouping key.
func (e ProductExposure) Key() string {
	return ProductKey(e.ProductID, e.Product)
}

// LossRatioOf returns cost / premium × 100, or 0 when premium is not positive.
func LossRatioOf(cost, premium float64) float64 {
	if premium <= 0 {
		return 0
	}
	return cost / premium * 100
}
