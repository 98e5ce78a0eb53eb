package forecast

import (
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// MonthlyCounts tallies claims per calendar month, January first.
func MonthlyCounts(claims []domain.ClaimRecord) [12]int {
	var counts [12]int
	for _, c := range claims {
		counts[c.Date.Month()-1]++
	}
	return counts
}

// SeasonOf maps a month to its meteorological season.
func SeasonOf(month time.Month) string {
	switch month {
	case time.December, time.January, time.February:
		return domain.SeasonWinter
	case time.March, time.April, time.May:
		return domain.SeasonSpring
	case time.June, time.July, time.August:
		return domain.SeasonSummer
	default:
		return domain.SeasonAutumn
	}
}

// Seasonal compares the claim count of month with the uniform monthly
// average. The factor is 1.0 when there are no claims.
func Seasonal(claims []domain.ClaimRecord, month time.Month, t Tuning) domain.SeasonalAnalysis {
	counts := MonthlyCounts(claims)
	avg := float64(len(claims)) / 12

	a := domain.SeasonalAnalysis{
		Month:         int(month),
		Factor:        1,
		Season:        SeasonOf(month),
		Direction:     domain.SeasonalNormal,
		MonthClaims:   counts[month-1],
		MonthlyAvg:    avg,
		MonthlyCounts: counts,
	}
	if len(claims) == 0 {
		return a
	}

	a.Factor = ratio(float64(a.MonthClaims), avg)
	switch {
	case a.Factor > t.SeasonalElevatedFactor:
		a.Direction = domain.SeasonalElevated
	case a.Factor < t.SeasonalReducedFactor:
		a.Direction = domain.SeasonalReduced
	}

	span := DaysBetween(claims[0].Date, claims[len(claims)-1].Date)
	a.Applicable = span >= t.SeasonalMinSpanDays && len(claims) >= t.SeasonalMinClaims
	return a
}

// seasonalMultiplier converts a seasonal factor into a multiplier on the
// expected interval: more claims than usual shorten it. The multiplier is
// bounded to [1/max, max].
func seasonalMultiplier(factor, maxMultiplier float64) float64 {
	if factor <= 0 {
		return maxMultiplier
	}
	return clamp(1/factor, 1/maxMultiplier, maxMultiplier)
}
