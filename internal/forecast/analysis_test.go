package forecast

import (
	"testing"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimsOn(start time.Time, costs map[int]float64, offsets ...int) []domain.ClaimRecord {
	claims := make([]domain.ClaimRecord, len(offsets))
	for i, off := range offsets {
		cost, ok := costs[off]
		if !ok {
			cost = 1000
		}
		claims[i] = domain.ClaimRecord{Date: start.AddDate(0, 0, off), TotalCost: cost}
	}
	return claims
}

func yearsOf(first int, costs []float64, counts []int) []domain.YearlyAggregate {
	out := make([]domain.YearlyAggregate, len(costs))
	for i, c := range costs {
		out[i] = domain.YearlyAggregate{Year: first + i, ClaimCost: c, ClaimCount: counts[i], Premium: 100000}
	}
	return out
}

func TestBaseline(t *testing.T) {
	b := Baseline(claimsOn(ref, nil, 0, 30, 60, 90, 120))
	assert.True(t, b.Sufficient)
	assert.Equal(t, 4, b.IntervalCount)
	assert.InDelta(t, 30, b.MeanInterval, 1e-9)
	assert.InDelta(t, 30, b.MedianInterval, 1e-9)
	assert.InDelta(t, 0, b.StdDev, 1e-9)
	assert.InDelta(t, 0, b.Stability, 1e-9)

	b = Baseline(claimsOn(ref, nil, 0, 10, 10, 40))
	assert.Equal(t, []float64{10, 30}, Intervals(claimsOn(ref, nil, 0, 10, 10, 40)))
	assert.InDelta(t, 20, b.MeanInterval, 1e-9)
	assert.InDelta(t, 10, b.StdDev, 1e-9)
	assert.InDelta(t, 0.5, b.Stability, 1e-9)

	assert.False(t, Baseline(claimsOn(ref, nil, 0)).Sufficient)
	assert.False(t, Baseline(nil).Sufficient)
}

func TestSeasonal(t *testing.T) {
	tuning := DefaultTuning()

	t.Run("no claims", func(t *testing.T) {
		s := Seasonal(nil, time.March, tuning)
		assert.InDelta(t, 1, s.Factor, 1e-9)
		assert.Equal(t, domain.SeasonalNormal, s.Direction)
		assert.Equal(t, domain.SeasonSpring, s.Season)
		assert.False(t, s.Applicable)
	})

	t.Run("elevated winter", func(t *testing.T) {
		jan := time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC)
		// 4 January claims across three years plus 8 spread months
		claims := append(claimsOn(jan, nil, 0, 1, 365, 730),
			claimsOn(time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC), nil, 0, 30, 60, 90, 120, 150, 180, 210)...)
		sortClaims(claims)

		s := Seasonal(claims, time.January, tuning)
		assert.Equal(t, 4, s.MonthClaims)
		assert.InDelta(t, 1, s.MonthlyAvg, 1e-9)
		assert.InDelta(t, 4, s.Factor, 1e-9)
		assert.Equal(t, domain.SeasonalElevated, s.Direction)
		assert.Equal(t, domain.SeasonWinter, s.Season)
		assert.True(t, s.Applicable)
	})

	t.Run("short history is not applicable", func(t *testing.T) {
		s := Seasonal(claimsOn(ref, nil, 0, 5, 10, 15, 20, 25, 30), time.March, tuning)
		assert.Equal(t, domain.SeasonalElevated, s.Direction)
		assert.False(t, s.Applicable)
	})
}

func TestSeasonalMultiplierIsBounded(t *testing.T) {
	assert.InDelta(t, 1/1.5, seasonalMultiplier(4, 1.5), 1e-9)
	assert.InDelta(t, 0.8, seasonalMultiplier(1.25, 1.5), 1e-9)
	assert.InDelta(t, 1.5, seasonalMultiplier(0.1, 1.5), 1e-9)
	assert.InDelta(t, 1.5, seasonalMultiplier(0, 1.5), 1e-9)
}

func TestSeasonOf(t *testing.T) {
	assert.Equal(t, domain.SeasonWinter, SeasonOf(time.December))
	assert.Equal(t, domain.SeasonSpring, SeasonOf(time.May))
	assert.Equal(t, domain.SeasonSummer, SeasonOf(time.July))
	assert.Equal(t, domain.SeasonAutumn, SeasonOf(time.November))
}

func TestTrend(t *testing.T) {
	tuning := DefaultTuning()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("linear increase", func(t *testing.T) {
		yearly := yearsOf(2019, []float64{100000, 120000, 140000, 160000, 180000}, []int{2, 2, 3, 3, 4})
		tr := Trend(yearly, now, tuning)

		assert.False(t, tr.InsufficientData)
		assert.Equal(t, 5, tr.YearsAnalyzed)
		assert.InDelta(t, 41.7, tr.CostTrendPct, 1e-9)
		assert.InDelta(t, 50, tr.FrequencyTrendPct, 1e-9)
		assert.Equal(t, domain.TrendIncreasing, tr.CostDirection)
		assert.Equal(t, domain.TrendIncreasing, tr.FreqDirection)
		assert.InDelta(t, 1, tr.Strength, 1e-9)
		assert.InDelta(t, 20000, tr.SlopePerYear, 1e-9)
		assert.Equal(t, domain.ConfidenceHigh, tr.Confidence)
		assert.InDelta(t, 140000, tr.AverageCost, 1e-9)
	})

	t.Run("doubling costs", func(t *testing.T) {
		yearly := yearsOf(2020, []float64{100, 200, 400, 800}, []int{1, 1, 1, 1})
		tr := Trend(yearly, now, tuning)

		assert.GreaterOrEqual(t, tr.Strength, 0.8)
		assert.LessOrEqual(t, tr.Strength, 1.0)
		assert.Equal(t, domain.TrendStable, tr.FreqDirection)
	})

	t.Run("flat", func(t *testing.T) {
		yearly := yearsOf(2020, []float64{500, 500, 500}, []int{1, 1, 1})
		tr := Trend(yearly, now, tuning)

		assert.InDelta(t, 0, tr.CostTrendPct, 1e-9)
		assert.InDelta(t, 0, tr.Strength, 1e-9)
		assert.Equal(t, domain.TrendStable, tr.CostDirection)
		assert.Equal(t, domain.ConfidenceLow, tr.Confidence)
		assert.InDelta(t, 1, tr.CostStability, 1e-9)
	})

	t.Run("too few years", func(t *testing.T) {
		yearly := yearsOf(2022, []float64{100, 300}, []int{1, 3})
		yearly = append(yearly, domain.YearlyAggregate{Year: 2024, ClaimCost: 250, ClaimCount: 2, IsEstimated: true})
		tr := Trend(yearly, now, tuning)

		assert.True(t, tr.InsufficientData)
		assert.Equal(t, 2, tr.YearsAnalyzed)
		assert.InDelta(t, 0.5, tr.CostStability, 1e-9)
		assert.True(t, tr.ShortTermAvailable)
		// 300/12 = 25 per month before, 250/6 = 41.7 this year
		assert.InDelta(t, 66.7, tr.ShortTermCostPct, 1e-9)
		assert.InDelta(t, 33.3, tr.ShortTermFrequencyPct, 1e-9)
	})

	t.Run("in-progress year excluded from the long-term trend", func(t *testing.T) {
		yearly := yearsOf(2021, []float64{100, 100, 100, 900}, []int{1, 1, 1, 9})
		tr := Trend(yearly, now, tuning)

		assert.Equal(t, 3, tr.YearsAnalyzed)
		assert.InDelta(t, 0, tr.CostTrendPct, 1e-9)
	})
}

func TestTimeSince(t *testing.T) {
	tuning := DefaultTuning()
	claims := claimsOn(ref, nil, 0, 10, 20, 30)
	b := Baseline(claims)

	tests := []struct {
		days   int
		status string
	}{
		{30 + 10, domain.StatusNormal},
		{30 + 12, domain.StatusNormal},
		{30 + 13, domain.StatusApproaching},
		{30 + 15, domain.StatusApproaching},
		{30 + 16, domain.StatusOverdue},
	}
	for _, tt := range tests {
		ts := TimeSince(claims, b, ref.AddDate(0, 0, tt.days), tuning)
		assert.Equal(t, tt.status, ts.Status, "days=%d", tt.days)
		assert.Equal(t, tt.days-30, ts.DaysSince)
	}

	ts := TimeSince(nil, domain.BaselineStats{}, ref, tuning)
	assert.True(t, ts.NoClaims)
	assert.Equal(t, domain.StatusNoClaims, ts.Status)

	single := claimsOn(ref, nil, 0)
	ts = TimeSince(single, Baseline(single), ref.AddDate(0, 0, 9), tuning)
	assert.Equal(t, 9, ts.DaysSince)
	assert.Equal(t, domain.StatusUnknown, ts.Status)
}

func TestClassifyProduct(t *testing.T) {
	tuning := DefaultTuning()
	th := domain.ThresholdConfig{}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("high loss ratio with enough claims", func(t *testing.T) {
		claims := claimsOn(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), nil, 0, 200, 400)
		e := domain.ProductExposure{ProductID: "motor", EarnedPremium: 2500, ClaimCount: 3, ClaimCost: 3000, LossRatio: 120}
		p := ClassifyProduct(e, claims, th, now, tuning)

		assert.Equal(t, domain.RiskHigh, p.RiskClass)
		assert.True(t, p.IsHighRisk())
		assert.Equal(t, domain.DevelopmentStable, p.Development)
		assert.InDelta(t, 20, p.PremiumAdjustmentPct, 1e-9)
		assert.InDelta(t, 1000, p.AverageClaim, 1e-9)
		assert.NotEmpty(t, p.Reasons)
	})

	t.Run("low loss ratio", func(t *testing.T) {
		claims := claimsOn(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), map[int]float64{0: 200, 300: 200}, 0, 300)
		e := domain.ProductExposure{ProductID: "home", EarnedPremium: 2000, ClaimCount: 2, ClaimCost: 400, LossRatio: 20}
		p := ClassifyProduct(e, claims, th, now, tuning)

		assert.Equal(t, domain.RiskLow, p.RiskClass)
		assert.False(t, p.IsElevated())
		assert.InDelta(t, -5, p.PremiumAdjustmentPct, 1e-9)
		assert.False(t, p.RisingActivity)
	})

	t.Run("worsening with rising activity", func(t *testing.T) {
		start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
		costs := map[int]float64{0: 100, 400: 100, 1000: 300, 1050: 300}
		claims := claimsOn(start, costs, 0, 400, 1000, 1050) // last two within a year of now
		e := domain.ProductExposure{ProductID: "boat", EarnedPremium: 1000, ClaimCount: 4, ClaimCost: 800, LossRatio: 80}
		p := ClassifyProduct(e, claims, th, now, tuning)

		assert.Equal(t, domain.DevelopmentWorsening, p.Development)
		assert.InDelta(t, 200, p.DevelopmentPct, 1e-9)
		assert.Equal(t, 2, p.RecentClaims)
		assert.True(t, p.RisingActivity)
		assert.Equal(t, domain.RiskModerateHigh, p.RiskClass)
		assert.InDelta(t, 20, p.PremiumAdjustmentPct, 1e-9)
	})

	t.Run("claims without premium", func(t *testing.T) {
		claims := claimsOn(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), nil, 0, 50, 100)
		e := domain.ProductExposure{ProductID: "unknown", ClaimCount: 3, ClaimCost: 3000}
		p := ClassifyProduct(e, claims, th, now, tuning)
		assert.Equal(t, domain.RiskModerateHigh, p.RiskClass)
	})

	t.Run("adjustment is clamped", func(t *testing.T) {
		assert.InDelta(t, 30, premiumAdjustment(domain.RiskHigh, domain.DevelopmentWorsening, tuning), 1e-9)
		assert.InDelta(t, -10, premiumAdjustment(domain.RiskLow, domain.DevelopmentImproving, tuning), 1e-9)
	})
}

func TestBuildExposures(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	policies := []domain.ActivePolicy{
		{ProductID: "motor", AnnualPremium: 1000, StartDate: &start},
		{ProductID: "motor", AnnualPremium: 500},
		{Product: "Home Contents", AnnualPremium: 800},
	}
	claims := []domain.ClaimRecord{
		{Date: start, TotalCost: 1500, ProductID: "motor"},
		{Date: start, TotalCost: 400, Product: " home contents"},
		{Date: start, TotalCost: 999},
		{Date: start, TotalCost: 100, ProductID: "boat"},
	}
	yearly := []domain.YearlyAggregate{{Year: 2022}, {Year: 2023}}

	exposures := BuildExposures(policies, claims, yearly, now)
	require.Len(t, exposures, 3)

	boat, home, motor := exposures[0], exposures[1], exposures[2]
	assert.Equal(t, "boat", boat.Key())
	assert.False(t, boat.Active)
	assert.InDelta(t, 0, boat.LossRatio, 1e-9)

	assert.Equal(t, "home contents", home.Key())
	assert.True(t, home.Active)
	assert.Equal(t, 1, home.ClaimCount)
	assert.InDelta(t, 1600, home.EarnedPremium, 1e-9, "two aggregate years")
	assert.InDelta(t, 25, home.LossRatio, 1e-9)

	assert.InDelta(t, 1500, motor.AnnualPremium, 1e-9)
	assert.InDelta(t, 1500*730/daysPerYear, motor.EarnedPremium, 1e-6)
	assert.Equal(t, 1, motor.ClaimCount)
}

func TestMergeExposures(t *testing.T) {
	claims := []domain.ClaimRecord{
		{TotalCost: 300, ProductID: "motor"},
		{TotalCost: 200, ProductID: "motor"},
	}
	supplied := []domain.ProductExposure{
		{ProductID: "motor", AnnualPremium: 1000},
		{ProductID: "home", AnnualPremium: 500, EarnedPremium: 1000, ClaimCount: 1, ClaimCost: 900, LossRatio: 90},
		{},
	}

	merged := MergeExposures(supplied, claims)
	require.Len(t, merged, 2)
	assert.Equal(t, "home", merged[0].ProductID)
	assert.InDelta(t, 90, merged[0].LossRatio, 1e-9)
	assert.Equal(t, 2, merged[1].ClaimCount)
	assert.InDelta(t, 50, merged[1].LossRatio, 1e-9)
}

func sortClaims(claims []domain.ClaimRecord) {
	for i := 1; i < len(claims); i++ {
		for j := i; j > 0 && claims[j].Date.Before(claims[j-1].Date); j-- {
			claims[j], claims[j-1] = claims[j-1], claims[j]
		}
	}
}
