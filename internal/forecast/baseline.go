package forecast

import (
	"github.com/opensource-finance/claimcast/internal/domain"
)

// Intervals returns the strictly positive day gaps between consecutive
// claims. Claims must be sorted by date.
func Intervals(claims []domain.ClaimRecord) []float64 {
	if len(claims) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(claims)-1)
	for i := 1; i < len(claims); i++ {
		if d := DaysBetween(claims[i-1].Date, claims[i].Date); d > 0 {
			gaps = append(gaps, float64(d))
		}
	}
	return gaps
}

// Baseline computes interval statistics for sorted claims.
func Baseline(claims []domain.ClaimRecord) domain.BaselineStats {
	gaps := Intervals(claims)
	if len(gaps) == 0 {
		return domain.BaselineStats{}
	}

	m := mean(gaps)
	sd := stddev(gaps)
	return domain.BaselineStats{
		Sufficient:     true,
		MeanInterval:   m,
		MedianInterval: median(gaps),
		StdDev:         sd,
		Stability:      ratio(sd, m),
		IntervalCount:  len(gaps),
	}
}
