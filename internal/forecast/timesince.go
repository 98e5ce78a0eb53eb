package forecast

import (
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// TimeSince compares the days since the latest claim with the mean interval.
func TimeSince(claims []domain.ClaimRecord, baseline domain.BaselineStats, now time.Time, t Tuning) domain.TimeSinceLastClaim {
	if len(claims) == 0 {
		return domain.TimeSinceLastClaim{NoClaims: true, Status: domain.StatusNoClaims}
	}

	last := claims[len(claims)-1].Date
	res := domain.TimeSinceLastClaim{
		DaysSince:       max(DaysBetween(last, now), 0),
		AverageInterval: baseline.MeanInterval,
		Status:          domain.StatusUnknown,
	}
	if !baseline.Sufficient || baseline.MeanInterval <= 0 {
		return res
	}

	res.OverdueFactor = float64(res.DaysSince) / baseline.MeanInterval
	switch {
	case res.OverdueFactor > t.OverdueFactor:
		res.Status = domain.StatusOverdue
	case res.OverdueFactor > t.ApproachingFactor:
		res.Status = domain.StatusApproaching
	default:
		res.Status = domain.StatusNormal
	}
	return res
}
