package domain

import "strings"

// CustomerProfile is the raw history supplied for one customer.
// It is read-only input: the forecast core never stores or mutates it.
type CustomerProfile struct {
	CustomerID string               `json:"customerId"`
	Name       string               `json:"name,omitempty"`
	Claims     []RawClaim           `json:"claims"`
	Yearly     []RawYearlyAggregate `json:"yearly,omitempty"`
	Policies   []RawPolicy          `json:"policies,omitempty"`

	// Exposures, when present, replace the exposures derived from policies.
	Exposures []ProductExposure `json:"exposures,omitempty"`
}

// RawClaim is a claim as delivered by the upstream data layer.
// Date may be a string in several layouts, unix milliseconds, or a time.Time.
type RawClaim struct {
	ID        string  `json:"id,omitempty"`
	Date      any     `json:"date"`
	TotalCost Amount  `json:"totalCost"`
	ProductID string  `json:"productId,omitempty"`
	Product   string  `json:"product,omitempty"`
	Open      *bool   `json:"open,omitempty"`
	Status    string  `json:"status,omitempty"`
	Reserve   *Amount `json:"reserve,omitempty"`
}

// RawYearlyAggregate is one calendar year of summarized figures.
type RawYearlyAggregate struct {
	Year           int      `json:"year"`
	Premium        Amount   `json:"premium"`
	ClaimCost      Amount   `json:"claimCost"`
	ClaimCount     int      `json:"claimCount"`
	OpenClaimCount int      `json:"openClaimCount,omitempty"`
	ActiveProducts int      `json:"activeProducts,omitempty"`
	LossRatio      *float64 `json:"lossRatio,omitempty"`
}

// RawPolicy is an in-force (or lapsed) coverage line.
type RawPolicy struct {
	ID            string `json:"id,omitempty"`
	ProductID     string `json:"productId,omitempty"`
	Product       string `json:"product,omitempty"`
	AnnualPremium Amount `json:"annualPremium"`
	Status        string `json:"status,omitempty"`
	StartDate     any    `json:"startDate,omitempty"`
	EndDate       any    `json:"endDate,omitempty"`
}

// ProductKey returns the grouping key for a product: its ID, or the
// lower-cased trimmed name when no ID is known.
func ProductKey(id, name string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return strings.ToLower(strings.TrimSpace(name))
}
