package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ref = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func rawClaimsAt(start time.Time, offsets ...int) []domain.RawClaim {
	claims := make([]domain.RawClaim, len(offsets))
	for i, off := range offsets {
		claims[i] = domain.RawClaim{
			ID:        "c" + string(rune('a'+i)),
			Date:      start.AddDate(0, 0, off).Format(time.DateOnly),
			TotalCost: domain.NewAmount(1000),
		}
	}
	return claims
}

func everyThirtyDays(n int) []int {
	offsets := make([]int, n)
	for i := range offsets {
		offsets[i] = 30 * i
	}
	return offsets
}

func analyze(t *testing.T, profile *domain.CustomerProfile, asOf time.Time, method string) *domain.Forecast {
	t.Helper()
	f, err := NewEngine(DefaultTuning()).Analyze(context.Background(), Request{
		TenantID: "tenant-1",
		Profile:  profile,
		AsOf:     asOf,
		Method:   method,
	})
	require.NoError(t, err)
	return f
}

func TestNextClaimInsufficientData(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		profile := &domain.CustomerProfile{CustomerID: "cust", Claims: rawClaimsAt(ref, everyThirtyDays(n)...)}
		for _, method := range []string{domain.MethodAdvanced, domain.MethodSimple, domain.MethodAuto} {
			f := analyze(t, profile, ref.AddDate(0, 3, 0), method)
			assert.True(t, f.NextClaim.InsufficientData, "claims=%d method=%s", n, method)
			assert.NotEmpty(t, f.NextClaim.Reason)
			assert.Equal(t, domain.ConfidenceLow, f.NextClaim.Confidence)
		}
	}
}

func TestNextClaimSameDayClaimsAreInsufficient(t *testing.T) {
	profile := &domain.CustomerProfile{Claims: rawClaimsAt(ref, 0, 0, 0)}
	f := analyze(t, profile, ref.AddDate(0, 1, 0), domain.MethodAdvanced)

	assert.True(t, f.NextClaim.InsufficientData)
	assert.False(t, f.Baseline.Sufficient)
	assert.Len(t, f.Warnings, 2)
	assert.Equal(t, domain.WarnDuplicateInterval, f.Warnings[0].Code)
}

func TestEvenlySpacedClaimsPredictBaseline(t *testing.T) {
	start := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	profile := &domain.CustomerProfile{CustomerID: "even", Claims: rawClaimsAt(start, everyThirtyDays(14)...)}
	asOf := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) // 30 days after the last claim

	for _, method := range []string{domain.MethodAdvanced, domain.MethodSimple} {
		f := analyze(t, profile, asOf, method)

		assert.InDelta(t, 30, f.Baseline.MeanInterval, 1e-9)
		assert.InDelta(t, 0, f.Baseline.StdDev, 1e-9)
		assert.InDelta(t, 0, f.Baseline.Stability, 1e-9)

		assert.True(t, f.Seasonal.Applicable)
		assert.Equal(t, domain.SeasonalNormal, f.Seasonal.Direction)
		assert.Equal(t, domain.StatusNormal, f.TimeSince.Status)

		assert.False(t, f.NextClaim.InsufficientData)
		assert.Equal(t, 30, f.NextClaim.DaysUntilNext, method)
		assert.Equal(t, domain.ConfidenceModerate, f.NextClaim.Confidence)
		assert.Empty(t, f.NextClaim.Adjustments)
	}
}

func TestOverdueThenDataSufficiencyPrecedence(t *testing.T) {
	profile := &domain.CustomerProfile{CustomerID: "overdue", Claims: rawClaimsAt(ref, 0, 10, 20, 30)}
	asOf := ref.AddDate(0, 0, 55)

	for _, method := range []string{domain.MethodAdvanced, domain.MethodSimple, domain.MethodAuto} {
		f := analyze(t, profile, asOf, method)

		assert.InDelta(t, 10, f.Baseline.MeanInterval, 1e-9)
		assert.Equal(t, 25, f.TimeSince.DaysSince)
		assert.InDelta(t, 2.5, f.TimeSince.OverdueFactor, 1e-9)
		assert.Equal(t, domain.StatusOverdue, f.TimeSince.Status)

		nc := f.NextClaim
		assert.Equal(t, 7, nc.DaysUntilNext, method)
		assert.Equal(t, domain.ConfidenceLow, nc.Confidence)
		require.Len(t, nc.Adjustments, 2)
		assert.Equal(t, domain.AdjustmentOverdue, nc.Adjustments[0].Type)
		assert.Equal(t, domain.ConfidenceHigh, nc.Adjustments[0].Confidence)
		assert.InDelta(t, -30, nc.Adjustments[0].EffectPct, 1e-9)
		assert.Equal(t, domain.AdjustmentDataVolume, nc.Adjustments[1].Type)
		assert.Equal(t, domain.ConfidenceLow, nc.Adjustments[1].Confidence)
	}
}

func TestAutoMethodSelection(t *testing.T) {
	claims := rawClaimsAt(time.Date(2019, 1, 10, 0, 0, 0, 0, time.UTC), everyThirtyDays(20)...)
	profile := &domain.CustomerProfile{Claims: claims}
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	f := analyze(t, profile, asOf, domain.MethodAuto)
	assert.Equal(t, domain.MethodSimple, f.NextClaim.Method)

	profile.Yearly = []domain.RawYearlyAggregate{
		{Year: 2021, Premium: domain.NewAmount(10000), ClaimCost: domain.NewAmount(4000), ClaimCount: 2},
		{Year: 2022, Premium: domain.NewAmount(10000), ClaimCost: domain.NewAmount(5000), ClaimCount: 2},
		{Year: 2023, Premium: domain.NewAmount(10000), ClaimCost: domain.NewAmount(6000), ClaimCount: 3},
	}
	f = analyze(t, profile, asOf, "")
	assert.Equal(t, domain.MethodAdvanced, f.NextClaim.Method)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	profile := richProfile()
	asOf := time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)

	a := analyze(t, profile, asOf, domain.MethodAuto)
	b := analyze(t, profile, asOf, domain.MethodAuto)
	assert.Equal(t, a, b)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	c := analyze(t, profile, asOf.AddDate(0, 0, 1), domain.MethodAuto)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestAnalyzeRichProfile(t *testing.T) {
	f := analyze(t, richProfile(), time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC), domain.MethodAuto)

	assert.Equal(t, domain.MethodAdvanced, f.NextClaim.Method)
	assert.False(t, f.Trend.InsufficientData)
	assert.Greater(t, f.Trend.CostTrendPct, 0.0)
	assert.False(t, f.Scenarios.InsufficientData)
	assert.GreaterOrEqual(t, f.Scenarios.Pessimistic.PredictedCost, f.Scenarios.Realistic.PredictedCost)
	assert.GreaterOrEqual(t, f.Scenarios.Realistic.PredictedCost, f.Scenarios.Optimistic.PredictedCost)
	assert.GreaterOrEqual(t, f.RiskScore.Score, 0)
	assert.LessOrEqual(t, f.RiskScore.Score, 100)
	assert.Equal(t, 2, f.Data.Products)
	assert.Equal(t, 1, f.Data.SkippedClaims)
	require.Len(t, f.Warnings, 1)
	assert.Equal(t, domain.WarnUnparseableDate, f.Warnings[0].Code)
}

func TestAnalyzeRejectsInvalidRequests(t *testing.T) {
	engine := NewEngine(Tuning{})
	ctx := context.Background()

	_, err := engine.Analyze(ctx, Request{AsOf: ref})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = engine.Analyze(ctx, Request{Profile: &domain.CustomerProfile{}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = engine.Analyze(ctx, Request{Profile: &domain.CustomerProfile{}, AsOf: ref, Method: "neural"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = engine.Analyze(cancelled, Request{Profile: &domain.CustomerProfile{}, AsOf: ref})
	assert.ErrorIs(t, err, context.Canceled)
}

// richProfile has five completed years with rising cost and two products.
func richProfile() *domain.CustomerProfile {
	var claims []domain.RawClaim
	start := time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24; i++ {
		product := "motor"
		if i%3 == 0 {
			product = "property"
		}
		claims = append(claims, domain.RawClaim{
			ID:        fmt.Sprintf("rc%02d", i),
			Date:      start.AddDate(0, 0, 70*i).Format(time.DateOnly),
			TotalCost: domain.NewAmount(float64(5000 + 400*i)),
			ProductID: product,
		})
	}
	claims = append(claims, domain.RawClaim{ID: "bad", Date: "not a date", TotalCost: domain.NewAmount(10)})

	return &domain.CustomerProfile{
		CustomerID: "rich",
		Claims:     claims,
		Yearly: []domain.RawYearlyAggregate{
			{Year: 2019, Premium: domain.NewAmount(40000), ClaimCost: domain.NewAmount(20000), ClaimCount: 4},
			{Year: 2020, Premium: domain.NewAmount(40000), ClaimCost: domain.NewAmount(26000), ClaimCount: 5},
			{Year: 2021, Premium: domain.NewAmount(42000), ClaimCost: domain.NewAmount(31000), ClaimCount: 5},
			{Year: 2022, Premium: domain.NewAmount(42000), ClaimCost: domain.NewAmount(38000), ClaimCount: 5},
			{Year: 2023, Premium: domain.NewAmount(45000), ClaimCost: domain.NewAmount(44000), ClaimCount: 6},
		},
		Policies: []domain.RawPolicy{
			{ID: "p1", ProductID: "motor", AnnualPremium: domain.AmountFromString("25 000,00"), StartDate: "2019-01-01"},
			{ID: "p2", ProductID: "property", AnnualPremium: domain.NewAmount(20000), StartDate: "01-01-2019"},
		},
	}
}
