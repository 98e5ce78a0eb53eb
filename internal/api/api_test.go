package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opensource-finance/claimcast/internal/bus"
	"github.com/opensource-finance/claimcast/internal/cache"
	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/repository"
	"github.com/opensource-finance/claimcast/internal/rules"
	"github.com/opensource-finance/claimcast/internal/underwriting"
)

// createTestServer creates a server backed by in-memory storage with the
// built-in rule set loaded.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	repo, err := repository.New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	c, err := cache.New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	engine, err := rules.NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create rule engine: %v", err)
	}
	guidelines := rules.NewGuidelineEngine()

	pipeline, err := underwriting.NewPipeline(underwriting.PipelineConfig{
		Rules:      engine,
		Guidelines: guidelines,
		Repository: repo,
		Cache:      c,
		Bus:        eventBus,
		CacheTTL:   time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	server := NewServer(cfg, Dependencies{
		Repository:    repo,
		Cache:         c,
		Bus:           eventBus,
		Pipeline:      pipeline,
		Rules:         engine,
		Guidelines:    guidelines,
		Version:       "test-v1",
		DefaultMethod: "auto",
	})
	server.Handler().now = func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) }

	if _, _, err := server.Handler().LoadRuleSets(context.Background()); err != nil {
		t.Fatalf("failed to load rule sets: %v", err)
	}
	return server
}

func testProfile(customerID string) *domain.CustomerProfile {
	start := time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC)
	var claims []domain.RawClaim
	for i := 0; i < 8; i++ {
		claims = append(claims, domain.RawClaim{
			Date:      start.AddDate(0, 0, 60*i).Format(time.DateOnly),
			TotalCost: domain.NewAmount(float64(4000 + 500*i)),
			ProductID: "motor",
		})
	}
	return &domain.CustomerProfile{
		CustomerID: customerID,
		Claims:     claims,
		Policies: []domain.RawPolicy{
			{ProductID: "motor", AnnualPremium: domain.NewAmount(30000), StartDate: "2021-01-01"},
		},
	}
}

func doRequest(t *testing.T, server *Server, method, path, tenantID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response: %v (body: %s)", err, rr.Body.String())
	}
}

func TestForecastEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulForecast", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast", "tenant-001", ForecastRequest{
			Profile: testProfile("cust-001"),
			AsOf:    "2023-06-30",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp domain.ForecastResponse
		decodeBody(t, rr, &resp)

		if resp.ForecastID == "" {
			t.Error("expected forecastId to be set")
		}
		if resp.CustomerID != "cust-001" {
			t.Errorf("expected customerId cust-001, got %s", resp.CustomerID)
		}
		if resp.TenantID != "tenant-001" {
			t.Errorf("expected tenantId tenant-001, got %s", resp.TenantID)
		}
		if resp.AsOf != "2023-06-30" {
			t.Errorf("expected asOf 2023-06-30, got %s", resp.AsOf)
		}
		switch resp.Decision {
		case domain.DecisionAccept, domain.DecisionAdjust, domain.DecisionDecline:
		default:
			t.Errorf("unexpected decision %q", resp.Decision)
		}
		if resp.RiskScore.Score < 0 || resp.RiskScore.Score > 100 {
			t.Errorf("risk score out of range: %d", resp.RiskScore.Score)
		}
		if resp.Metadata.TraceID == "" {
			t.Error("expected traceId in metadata")
		}
		if resp.Metadata.RulesEvaluated != 4 {
			t.Errorf("expected 4 rules evaluated, got %d", resp.Metadata.RulesEvaluated)
		}
		if rr.Header().Get(TraceIDHeader) == "" {
			t.Error("expected X-Trace-ID header on response")
		}
	})

	t.Run("DefaultAsOf", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast", "tenant-001", ForecastRequest{
			Profile: testProfile("cust-002"),
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp domain.ForecastResponse
		decodeBody(t, rr, &resp)
		if resp.AsOf != "2024-01-15" {
			t.Errorf("expected asOf to default to today, got %s", resp.AsOf)
		}
	})

	t.Run("FullView", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast?view=full", "tenant-001", ForecastRequest{
			Profile: testProfile("cust-001"),
			AsOf:    "2023-06-30",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var f domain.Forecast
		decodeBody(t, rr, &f)
		if f.Decision == nil {
			t.Fatal("expected full decision in full view")
		}
		if len(f.Decision.RuleResults) != 4 {
			t.Errorf("expected 4 rule results, got %d", len(f.Decision.RuleResults))
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast", "", ForecastRequest{Profile: testProfile("cust-001")})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for missing tenant, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast", "tenant-001", "{invalid json}")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for invalid JSON, got %d", rr.Code)
		}
	})

	t.Run("MissingProfile", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast", "tenant-001", ForecastRequest{AsOf: "2023-06-30"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for missing profile, got %d", rr.Code)
		}
	})

	t.Run("InvalidAsOf", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast", "tenant-001", ForecastRequest{
			Profile: testProfile("cust-001"),
			AsOf:    "next tuesday",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for invalid asOf, got %d", rr.Code)
		}
	})

	t.Run("InvalidMethod", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast", "tenant-001", ForecastRequest{
			Profile: testProfile("cust-001"),
			Method:  "crystal-ball",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for invalid method, got %d: %s", rr.Code, rr.Body.String())
		}
	})
}

func TestForecastBatchEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("MixedResults", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast/batch", "tenant-001", BatchRequest{
			Requests: []ForecastRequest{
				{Profile: testProfile("cust-a"), AsOf: "2023-06-30"},
				{AsOf: "2023-06-30"},
				{Profile: testProfile("cust-b"), AsOf: "2023-06-30"},
			},
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			Results []BatchItem `json:"results"`
			Count   int         `json:"count"`
			Failed  int         `json:"failed"`
		}
		decodeBody(t, rr, &resp)

		if resp.Count != 3 || len(resp.Results) != 3 {
			t.Fatalf("expected 3 results, got count=%d len=%d", resp.Count, len(resp.Results))
		}
		if resp.Failed != 1 {
			t.Errorf("expected 1 failure, got %d", resp.Failed)
		}
		if resp.Results[1].Error == "" || resp.Results[1].Forecast != nil {
			t.Errorf("expected item 1 to fail, got %+v", resp.Results[1])
		}
		for _, i := range []int{0, 2} {
			item := resp.Results[i]
			if item.Index != i {
				t.Errorf("expected index %d, got %d", i, item.Index)
			}
			if item.Forecast == nil {
				t.Errorf("expected forecast for item %d, error: %s", i, item.Error)
			}
		}
		if resp.Results[2].Forecast != nil && resp.Results[2].Forecast.CustomerID != "cust-b" {
			t.Errorf("results out of order: %+v", resp.Results[2])
		}
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/forecast/batch", "tenant-001", BatchRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for empty batch, got %d", rr.Code)
		}
	})

	t.Run("TooLarge", func(t *testing.T) {
		reqs := make([]ForecastRequest, maxBatchSize+1)
		rr := doRequest(t, server, http.MethodPost, "/forecast/batch", "tenant-001", BatchRequest{Requests: reqs})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for oversized batch, got %d", rr.Code)
		}
	})
}

func TestCustomerEndpoints(t *testing.T) {
	server := createTestServer(t)
	tenant := "tenant-001"

	t.Run("UnknownCustomer", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/customers/nobody/history", tenant, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
		rr = doRequest(t, server, http.MethodPost, "/customers/nobody/forecast", tenant, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 forecasting unknown customer, got %d", rr.Code)
		}
	})

	t.Run("PutHistory", func(t *testing.T) {
		profile := testProfile("")
		rr := doRequest(t, server, http.MethodPut, "/customers/cust-001/history", tenant, profile)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp map[string]interface{}
		decodeBody(t, rr, &resp)
		if resp["customerId"] != "cust-001" {
			t.Errorf("expected customerId cust-001, got %v", resp["customerId"])
		}
		if resp["claims"] != float64(len(profile.Claims)) {
			t.Errorf("expected %d claims, got %v", len(profile.Claims), resp["claims"])
		}
	})

	t.Run("MismatchedCustomerID", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPut, "/customers/cust-001/history", tenant, testProfile("cust-999"))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for mismatched id, got %d", rr.Code)
		}
	})

	t.Run("GetHistory", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/customers/cust-001/history", tenant, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var profile domain.CustomerProfile
		decodeBody(t, rr, &profile)
		if profile.CustomerID != "cust-001" || len(profile.Claims) != 8 {
			t.Errorf("unexpected profile: id=%s claims=%d", profile.CustomerID, len(profile.Claims))
		}

		rr = doRequest(t, server, http.MethodGet, "/customers/cust-001/history", "tenant-002", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected tenant isolation, got status %d", rr.Code)
		}
	})

	var forecastID string
	t.Run("CustomerForecast", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/customers/cust-001/forecast", tenant, CustomerForecastRequest{AsOf: "2023-06-30"})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp domain.ForecastResponse
		decodeBody(t, rr, &resp)
		if resp.CustomerID != "cust-001" {
			t.Errorf("expected customerId cust-001, got %s", resp.CustomerID)
		}
		forecastID = resp.ForecastID
	})

	t.Run("EmptyBodyDefaultsAsOf", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/customers/cust-001/forecast", tenant, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp domain.ForecastResponse
		decodeBody(t, rr, &resp)
		if resp.AsOf != "2024-01-15" {
			t.Errorf("expected asOf 2024-01-15, got %s", resp.AsOf)
		}
	})

	t.Run("GetForecast", func(t *testing.T) {
		if forecastID == "" {
			t.Skip("no forecast stored")
		}
		rr := doRequest(t, server, http.MethodGet, "/forecasts/"+forecastID, tenant, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var f domain.Forecast
		decodeBody(t, rr, &f)
		if f.ID != forecastID {
			t.Errorf("expected forecast %s, got %s", forecastID, f.ID)
		}

		rr = doRequest(t, server, http.MethodGet, "/forecasts/does-not-exist", tenant, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("ListForecasts", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/customers/cust-001/forecasts?limit=10", tenant, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp struct {
			CustomerID string             `json:"customerId"`
			Forecasts  []*domain.Forecast `json:"forecasts"`
			Count      int                `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 2 || len(resp.Forecasts) != 2 {
			t.Errorf("expected 2 stored forecasts, got %d", resp.Count)
		}

		rr = doRequest(t, server, http.MethodGet, "/customers/cust-001/forecasts?limit=abc", tenant, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for bad limit, got %d", rr.Code)
		}
	})
}

func TestThresholdsEndpoint(t *testing.T) {
	server := createTestServer(t)
	tenant := "tenant-001"

	rr := doRequest(t, server, http.MethodGet, "/thresholds", tenant, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var th domain.ThresholdConfig
	decodeBody(t, rr, &th)
	if th != domain.DefaultThresholds() {
		t.Errorf("expected default thresholds, got %+v", th)
	}

	rr = doRequest(t, server, http.MethodPut, "/thresholds", tenant, domain.ThresholdConfig{LossRatioEscalation: 90})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &th)
	if th.LossRatioEscalation != 90 {
		t.Errorf("expected escalation 90, got %v", th.LossRatioEscalation)
	}
	if th.LossRatioSevere != domain.DefaultThresholds().LossRatioSevere {
		t.Errorf("expected unset fields to take defaults, got %+v", th)
	}

	rr = doRequest(t, server, http.MethodGet, "/thresholds", tenant, nil)
	decodeBody(t, rr, &th)
	if th.LossRatioEscalation != 90 {
		t.Errorf("expected stored escalation 90, got %v", th.LossRatioEscalation)
	}

	rr = doRequest(t, server, http.MethodPut, "/thresholds", tenant, domain.ThresholdConfig{LossRatioSevere: -1})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for negative threshold, got %d", rr.Code)
	}
}

func TestRulesEndpoints(t *testing.T) {
	server := createTestServer(t)
	tenant := "tenant-001"

	t.Run("ListRules", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/rules", tenant, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Rules []*domain.RuleConfig `json:"rules"`
			Count int                  `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != len(rules.DefaultRules()) {
			t.Errorf("expected %d default rules, got %d", len(rules.DefaultRules()), resp.Count)
		}
	})

	t.Run("GetRule", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/rules/loss-ratio", tenant, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
		rr = doRequest(t, server, http.MethodGet, "/rules/unknown", tenant, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("CreateInvalidRule", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/rules", tenant, CreateRuleRequest{
			ID:         "broken",
			Name:       "Broken",
			Expression: "claim_count >",
			Weight:     1,
			Enabled:    true,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for invalid expression, got %d", rr.Code)
		}

		rr = doRequest(t, server, http.MethodPost, "/rules", tenant, CreateRuleRequest{ID: "no-name"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for missing fields, got %d", rr.Code)
		}
	})

	t.Run("CreateAndReload", func(t *testing.T) {
		lower := 12.0
		rr := doRequest(t, server, http.MethodPost, "/rules", tenant, CreateRuleRequest{
			ID:         "frequent-claims",
			Name:       "Frequent claims",
			Expression: "claim_count",
			Bands:      []domain.RuleBand{{LowerLimit: &lower, Outcome: domain.RuleOutcomeAdjust, Reason: "frequent claimant"}},
			Weight:     1,
			Enabled:    true,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = doRequest(t, server, http.MethodPost, "/rules/reload", tenant, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp map[string]interface{}
		decodeBody(t, rr, &resp)
		if resp["source"] != "database" || resp["count"] != float64(1) {
			t.Errorf("expected 1 rule from database, got %v", resp)
		}
	})
}

func TestGuidelinesEndpoints(t *testing.T) {
	server := createTestServer(t)
	tenant := "tenant-001"

	t.Run("DefaultsLoaded", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/guidelines", tenant, nil)
		var resp struct {
			Count int `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != len(rules.DefaultGuidelines()) {
			t.Errorf("expected %d default guidelines, got %d", len(rules.DefaultGuidelines()), resp.Count)
		}
	})

	t.Run("UnknownRule", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/guidelines", tenant, GuidelineRequest{
			ID:               "bad",
			Name:             "Bad",
			Rules:            []domain.GuidelineRuleWeight{{RuleID: "missing", Weight: 1}},
			DeclineThreshold: 0.5,
			Enabled:          true,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for unknown rule, got %d", rr.Code)
		}
	})

	t.Run("InvalidThreshold", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/guidelines", tenant, GuidelineRequest{
			ID:               "bad-threshold",
			Name:             "Bad threshold",
			Rules:            []domain.GuidelineRuleWeight{{RuleID: "loss-ratio", Weight: 1}},
			DeclineThreshold: 1.5,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for threshold above 1, got %d", rr.Code)
		}
	})

	t.Run("CreateReloadDelete", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/guidelines", tenant, GuidelineRequest{
			ID:               "loss-heavy",
			Name:             "Loss heavy",
			Rules:            []domain.GuidelineRuleWeight{{RuleID: "loss-ratio", Weight: 0.7}, {RuleID: "risk-score", Weight: 0.3}},
			DeclineThreshold: 0.8,
			Enabled:          true,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = doRequest(t, server, http.MethodPost, "/guidelines/reload", tenant, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		rr = doRequest(t, server, http.MethodGet, "/guidelines/loss-heavy", tenant, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected loaded guideline, got status %d", rr.Code)
		}
		var g domain.Guideline
		decodeBody(t, rr, &g)
		if g.DeclineThreshold != 0.8 || len(g.Rules) != 2 {
			t.Errorf("unexpected guideline: %+v", g)
		}

		rr = doRequest(t, server, http.MethodDelete, "/guidelines/loss-heavy", tenant, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		rr = doRequest(t, server, http.MethodGet, "/guidelines/loss-heavy", tenant, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 after delete, got %d", rr.Code)
		}
		rr = doRequest(t, server, http.MethodDelete, "/guidelines/loss-heavy", tenant, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 deleting twice, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var resp map[string]interface{}
	decodeBody(t, rr, &resp)

	if resp["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %v", resp["status"])
	}
	if resp["version"] != "test-v1" {
		t.Errorf("expected version 'test-v1', got %v", resp["version"])
	}
	checks, ok := resp["checks"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected checks object, got %v", resp["checks"])
	}
	for _, name := range []string{"repository", "cache", "eventBus"} {
		if checks[name] != "ok" {
			t.Errorf("expected %s check ok, got %v", name, checks[name])
		}
	}

	rr = doRequest(t, server, http.MethodGet, "/ready", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	decodeBody(t, rr, &resp)
	if resp["ready"] != true || resp["rules"] != float64(4) {
		t.Errorf("unexpected ready response: %v", resp)
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("TenantMiddleware", func(t *testing.T) {
		handler := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := GetTenantID(r.Context())
			if tenantID != "test-tenant" {
				t.Errorf("expected tenant 'test-tenant', got %s", tenantID)
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "test-tenant")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", string(bytes.Repeat([]byte("t"), maxTenantIDLength+1)))
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for long tenant ID, got %d", rr.Code)
		}
	})

	t.Run("TracingMiddleware", func(t *testing.T) {
		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := GetTraceID(r.Context())
			if traceID == "" {
				t.Error("expected trace ID to be set")
			}
			if got := underwriting.TraceIDFromContext(r.Context()); got != traceID {
				t.Errorf("expected pipeline trace ID %s, got %s", traceID, got)
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header")
		}
	})

	t.Run("RecoverMiddleware", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500 after panic, got %d", rr.Code)
		}
	})

	t.Run("RateLimiter", func(t *testing.T) {
		limiter := NewRateLimiter(1, 1)
		handler := TenantMiddleware(limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))

		send := func(tenantID string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Tenant-ID", tenantID)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			return rr
		}

		if rr := send("tenant-a"); rr.Code != http.StatusOK {
			t.Errorf("expected first request to pass, got %d", rr.Code)
		}
		rr := send("tenant-a")
		if rr.Code != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", rr.Code)
		}
		if rr.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header")
		}
		if rr := send("tenant-b"); rr.Code != http.StatusOK {
			t.Errorf("expected other tenant to pass, got %d", rr.Code)
		}
	})
}
