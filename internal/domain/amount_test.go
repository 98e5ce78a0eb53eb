package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1250", "1250"},
		{"12 500,50", "12500.5"},
		{"1.250,00 kr", "1250"},
		{"1,250.00", "1250"},
		{"1,5", "1.5"},
		{"1,000,000", "1000000"},
		{"1.000.000", "1000000"},
		{"NOK 300", "300"},
		{"€ 99.95", "99.95"},
		{"-50", "-50"},
		{"1 000", "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "abc", "12#5", "1.2.3,4,5"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestAmountJSON(t *testing.T) {
	var rc RawClaim
	err := json.Unmarshal([]byte(`{"date":"2024-01-01","totalCost":"2 500,75","reserve":1000}`), &rc)
	require.NoError(t, err)

	v, ok := rc.TotalCost.Float()
	assert.True(t, ok)
	assert.InDelta(t, 2500.75, v, 1e-9)
	require.NotNil(t, rc.Reserve)
	r, _ := rc.Reserve.Float()
	assert.InDelta(t, 1000, r, 1e-9)

	err = json.Unmarshal([]byte(`{"totalCost":"unknown"}`), &rc)
	require.NoError(t, err, "unreadable amounts are flagged, not rejected")
	_, ok = rc.TotalCost.Float()
	assert.False(t, ok)
	assert.True(t, rc.TotalCost.Invalid)

	out, err := json.Marshal(NewAmount(12.5))
	require.NoError(t, err)
	assert.Equal(t, "12.5", string(out))
}

func TestThresholdDefaults(t *testing.T) {
	th := ThresholdConfig{LossRatioSevere: 200}.WithDefaults()
	assert.InDelta(t, 200, th.LossRatioSevere, 1e-9)
	assert.InDelta(t, 100, th.LossRatioEscalation, 1e-9)
	assert.Equal(t, 3, th.MinClaimsForHigh)
}
