//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Claimcast forecasting service.
//
// These tests exercise the COMPLETE pipeline against a running server:
//
//	Claim history → Baseline → Adjustments → Next claim + Scenarios → Rules → Renewal decision
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The server must run with its built-in rule set (no rules stored), e.g.:
//
//	go run ./cmd/claimcast serve
//
// | Rule ID            | Expression                         | Outcome bands              |
// |--------------------|------------------------------------|----------------------------|
// | loss-ratio         | projected_loss_ratio               | <70 accept, <150 adjust    |
// | risk-score         | risk_score                         | <40 accept, <70 adjust     |
// | cost-trend         | cost_trend_pct > 20 && strength    | true → adjust              |
// | high-risk-products | high_risk_products                 | >=1 → adjust               |
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/claimcast/internal/domain"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL  string
	TenantID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("CLAIMCAST_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		TenantID: "test-tenant",
	}
}

// ForecastRequest is the body of POST /forecast
type ForecastRequest struct {
	Profile *domain.CustomerProfile `json:"profile,omitempty"`
	AsOf    string                  `json:"asOf,omitempty"`
	Method  string                  `json:"method,omitempty"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func do(t *testing.T, config TestConfig, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequest(method, config.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if config.TenantID != "" {
		httpReq.Header.Set("X-Tenant-ID", config.TenantID)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp.StatusCode, respBody
}

func runForecast(t *testing.T, config TestConfig, req ForecastRequest) domain.ForecastResponse {
	t.Helper()

	status, body := do(t, config, http.MethodPost, "/forecast", req)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", status, string(body))
	}

	var result domain.ForecastResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(body))
	}
	return result
}

// claimsAt builds claims at day offsets from start, each costing cost.
func claimsAt(start time.Time, cost float64, offsets ...int) []domain.RawClaim {
	claims := make([]domain.RawClaim, len(offsets))
	for i, off := range offsets {
		claims[i] = domain.RawClaim{
			ID:        fmt.Sprintf("c%02d", i),
			Date:      start.AddDate(0, 0, off).Format(time.DateOnly),
			TotalCost: domain.NewAmount(cost),
			ProductID: "motor",
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

// uniqueCustomer keeps runs from colliding with stored history.
func uniqueCustomer(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

// ============================================================================
// SCENARIO 1: Too little history
// ============================================================================

func TestInsufficientHistory_NoPrediction(t *testing.T) {
	/*
	   SCENARIO: A customer with only two claims on record

	   EXPECTED BEHAVIOR:
	   - next claim: insufficient data, confidence low, no day estimate
	   - the forecast still carries a risk score and a decision
	*/
	config := getTestConfig()

	result := runForecast(t, config, ForecastRequest{
		Profile: &domain.CustomerProfile{
			CustomerID: uniqueCustomer("sparse"),
			Claims:     claimsAt(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 800, 0, 40),
		},
		AsOf: "2023-06-01",
	})

	if !result.NextClaim.InsufficientData {
		t.Errorf("Expected insufficient data, got %+v", result.NextClaim)
	}
	if result.NextClaim.Confidence != domain.ConfidenceLow {
		t.Errorf("Expected low confidence, got %s", result.NextClaim.Confidence)
	}
	if result.Decision == "" {
		t.Error("Expected a renewal decision even without a prediction")
	}

	t.Logf("✓ Sparse history handled: reason=%q decision=%s", result.NextClaim.Reason, result.Decision)
}

// ============================================================================
// SCENARIO 2: Perfectly regular claimant
// ============================================================================

func TestRegularClaimant_PredictsBaseline(t *testing.T) {
	/*
	   SCENARIO: 14 claims exactly 30 days apart, evaluated 30 days after the last

	   EXPECTED BEHAVIOR:
	   - baseline mean 30 days, no volatility
	   - seasonal pattern normal, not overdue, no adjustments
	   - next claim in 30 days with moderate confidence
	*/
	config := getTestConfig()

	for _, method := range []string{domain.MethodAdvanced, domain.MethodSimple} {
		result := runForecast(t, config, ForecastRequest{
			Profile: &domain.CustomerProfile{
				CustomerID: uniqueCustomer("regular"),
				Claims:     claimsAt(time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), 1000, everyThirtyDays(14)...),
			},
			AsOf:   "2024-03-10",
			Method: method,
		})

		if result.NextClaim.DaysUntilNext != 30 {
			t.Errorf("[%s] Expected 30 days until next claim, got %d", method, result.NextClaim.DaysUntilNext)
		}
		if result.NextClaim.Confidence != domain.ConfidenceModerate {
			t.Errorf("[%s] Expected moderate confidence, got %s", method, result.NextClaim.Confidence)
		}
		if len(result.NextClaim.Adjustments) != 0 {
			t.Errorf("[%s] Expected no adjustments, got %+v", method, result.NextClaim.Adjustments)
		}
	}

	t.Log("✓ Regular claimant predicted at baseline")
}

// ============================================================================
// SCENARIO 3: Overdue claimant with few intervals
// ============================================================================

func TestOverdueClaimant_ShortensPrediction(t *testing.T) {
	/*
	   SCENARIO: Claims on days 0, 10, 20, 30, evaluated on day 55

	   EXPECTED BEHAVIOR:
	   - 25 days since last claim against a 10 day mean → overdue (factor 2.5)
	   - prediction shortened by 30% → 7 days
	   - only 3 intervals → confidence forced to low
	*/
	config := getTestConfig()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	result := runForecast(t, config, ForecastRequest{
		Profile: &domain.CustomerProfile{
			CustomerID: uniqueCustomer("overdue"),
			Claims:     claimsAt(start, 1200, 0, 10, 20, 30),
		},
		AsOf: start.AddDate(0, 0, 55).Format(time.DateOnly),
	})

	if result.NextClaim.DaysUntilNext != 7 {
		t.Errorf("Expected 7 days until next claim, got %d", result.NextClaim.DaysUntilNext)
	}
	if result.NextClaim.Confidence != domain.ConfidenceLow {
		t.Errorf("Expected low confidence, got %s", result.NextClaim.Confidence)
	}

	t.Logf("✓ Overdue claimant: days=%d adjustments=%d", result.NextClaim.DaysUntilNext, len(result.NextClaim.Adjustments))
}

// ============================================================================
// SCENARIO 4: Loss-making book gets re-priced or declined
// ============================================================================

func TestLossMakingBook_NotAccepted(t *testing.T) {
	/*
	   SCENARIO: Claims costing far more than the annual premium

	   EXPECTED BEHAVIOR:
	   - projected loss ratio above target → loss-ratio rule adjusts or declines
	   - decision is ADJUST or DECLINE, never ACCEPT
	   - scenarios are ordered: pessimistic >= realistic >= optimistic
	*/
	config := getTestConfig()

	result := runForecast(t, config, ForecastRequest{
		Profile: &domain.CustomerProfile{
			CustomerID: uniqueCustomer("lossy"),
			Claims:     claimsAt(time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC), 9000, everyThirtyDays(24)...),
			Policies: []domain.RawPolicy{
				{ProductID: "motor", AnnualPremium: domain.NewAmount(20000), StartDate: "2021-01-01"},
			},
		},
		AsOf: "2024-01-15",
	})

	if result.Decision == domain.DecisionAccept {
		t.Errorf("Expected ADJUST or DECLINE for a loss-making book, got %s (reasons: %v)", result.Decision, result.Reasons)
	}
	if len(result.Reasons) == 0 {
		t.Error("Expected decision reasons")
	}

	t.Logf("✓ Loss-making book: decision=%s premium=%+.1f%% risk=%d",
		result.Decision, result.PremiumAdjust, result.RiskScore.Score)
}

// ============================================================================
// SCENARIO 5: Stored history round trip
// ============================================================================

func TestStoredHistory_ForecastAndHistory(t *testing.T) {
	/*
	   SCENARIO: Store a customer's history, forecast it by ID, list forecasts

	   EXPECTED BEHAVIOR:
	   - PUT /customers/{id}/history stores the claims
	   - POST /customers/{id}/forecast uses the stored history
	   - GET /customers/{id}/forecasts returns the stored forecast
	*/
	config := getTestConfig()
	customerID := uniqueCustomer("stored")

	profile := &domain.CustomerProfile{
		Claims: claimsAt(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 1500, everyThirtyDays(8)...),
	}
	status, body := do(t, config, http.MethodPut, "/customers/"+customerID+"/history", profile)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200 storing history, got %d: %s", status, string(body))
	}

	status, body = do(t, config, http.MethodPost, "/customers/"+customerID+"/forecast", map[string]string{"asOf": "2023-09-15"})
	if status != http.StatusOK {
		t.Fatalf("Expected status 200 forecasting stored customer, got %d: %s", status, string(body))
	}
	var result domain.ForecastResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if result.CustomerID != customerID {
		t.Errorf("Expected customer %s, got %s", customerID, result.CustomerID)
	}

	status, body = do(t, config, http.MethodGet, "/customers/"+customerID+"/forecasts", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200 listing forecasts, got %d: %s", status, string(body))
	}
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("Failed to unmarshal list: %v", err)
	}
	if list.Count < 1 {
		t.Errorf("Expected at least one stored forecast, got %d", list.Count)
	}

	t.Logf("✓ Stored history forecast: id=%s forecasts=%d", result.ForecastID, list.Count)
}

// ============================================================================
// SCENARIO 6: Validation errors
// ============================================================================

func TestMissingTenantHeader_Error(t *testing.T) {
	config := getTestConfig()
	config.TenantID = ""

	status, _ := do(t, config, http.MethodPost, "/forecast", ForecastRequest{
		Profile: &domain.CustomerProfile{CustomerID: "x"},
	})
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing tenant, got %d", status)
	}

	t.Logf("✓ Validation test passed: missing tenant → HTTP %d", status)
}

func TestInvalidRequests_Error(t *testing.T) {
	config := getTestConfig()

	tests := []struct {
		name string
		req  ForecastRequest
	}{
		{"missing profile", ForecastRequest{AsOf: "2024-01-01"}},
		{"bad asOf", ForecastRequest{Profile: &domain.CustomerProfile{CustomerID: "x"}, AsOf: "soon"}},
		{"unknown method", ForecastRequest{Profile: &domain.CustomerProfile{CustomerID: "x"}, Method: "oracle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, config, http.MethodPost, "/forecast", tt.req)
			if status != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", status, string(body))
			}
		})
	}
}

// ============================================================================
// SCENARIO 7: Response Metadata Verification
// ============================================================================

func TestResponseMetadata(t *testing.T) {
	config := getTestConfig()

	result := runForecast(t, config, ForecastRequest{
		Profile: &domain.CustomerProfile{
			CustomerID: uniqueCustomer("meta"),
			Claims:     claimsAt(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 700, everyThirtyDays(6)...),
		},
		AsOf: "2023-08-01",
	})

	if result.ForecastID == "" {
		t.Error("Missing forecastId")
	}
	switch result.Decision {
	case domain.DecisionAccept, domain.DecisionAdjust, domain.DecisionDecline:
	default:
		t.Errorf("Invalid decision: %s", result.Decision)
	}
	if result.RiskScore.Score < 0 || result.RiskScore.Score > 100 {
		t.Errorf("Risk score out of range: %d (expected 0-100)", result.RiskScore.Score)
	}
	if result.Metadata.TraceID == "" {
		t.Error("Missing metadata.traceId")
	}
	if result.Metadata.EngineVersion == "" {
		t.Error("Missing metadata.engineVersion")
	}
	if result.Metadata.TotalMs < 0 {
		t.Error("Invalid metadata.totalMs (negative)")
	}

	t.Logf("✓ Metadata complete: forecastId=%s, traceId=%s, totalMs=%d",
		result.ForecastID, result.Metadata.TraceID, result.Metadata.TotalMs)
}
