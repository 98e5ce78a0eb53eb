package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/forecast"
	"github.com/opensource-finance/claimcast/internal/history"
	"github.com/opensource-finance/claimcast/internal/repository"
	"github.com/opensource-finance/claimcast/internal/rules"
	"github.com/opensource-finance/claimcast/internal/underwriting"
)

const (
	maxBatchSize        = 100
	defaultForecastList = 20
	maxForecastList     = 100
	maxBodyBytes        = 8 << 20
)

// Dependencies holds the services the handlers use. Repository, Cache and
// Bus are optional; Pipeline and Rules are required.
type Dependencies struct {
	Repository domain.Repository
	Cache      domain.Cache
	Bus        domain.EventBus

	Pipeline   *underwriting.Pipeline
	History    *history.Service
	Rules      *rules.Engine
	Guidelines *rules.GuidelineEngine

	Version       string
	DefaultMethod string
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	bus        domain.EventBus
	pipeline   *underwriting.Pipeline
	history    *history.Service
	engine     *rules.Engine
	guidelines *rules.GuidelineEngine

	version       string
	defaultMethod string
	now           func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	if deps.History == nil {
		deps.History = history.NewService(deps.Repository, deps.Cache)
	}
	if deps.Guidelines == nil {
		deps.Guidelines = rules.NewGuidelineEngine()
	}
	return &Handler{
		repo:          deps.Repository,
		cache:         deps.Cache,
		bus:           deps.Bus,
		pipeline:      deps.Pipeline,
		history:       deps.History,
		engine:        deps.Rules,
		guidelines:    deps.Guidelines,
		version:       deps.Version,
		defaultMethod: deps.DefaultMethod,
		now:           time.Now,
	}
}

// ForecastRequest is the request body for POST /forecast.
type ForecastRequest struct {
	Profile *domain.CustomerProfile `json:"profile"`

	// Thresholds override the tenant's stored thresholds for this request
	Thresholds *domain.ThresholdConfig `json:"thresholds,omitempty"`

	AsOf   string `json:"asOf,omitempty"`
	Method string `json:"method,omitempty"`
}

// CustomerForecastRequest is the optional body for POST /customers/{id}/forecast.
type CustomerForecastRequest struct {
	AsOf   string `json:"asOf,omitempty"`
	Method string `json:"method,omitempty"`
}

// BatchRequest is the request body for POST /forecast/batch.
type BatchRequest struct {
	Requests []ForecastRequest `json:"requests"`
}

// BatchItem is one entry of the batch response.
type BatchItem struct {
	Index      int                      `json:"index"`
	CustomerID string                   `json:"customerId,omitempty"`
	Forecast   *domain.ForecastResponse `json:"forecast,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// Forecast handles POST /forecast for an inline customer profile.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req ForecastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	fr, err := h.inlineRequest(r, tenantID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := h.pipeline.Run(ctx, fr)
	if err != nil {
		slog.Error("forecast failed", "tenant_id", tenantID, "error", err)
		writeError(w, err)
		return
	}

	h.writeForecast(w, r, f)
}

// ForecastBatch handles POST /forecast/batch.
func (h *Handler) ForecastBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(req.Requests) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "at least one request is required",
		})
		return
	}
	if len(req.Requests) > maxBatchSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "batch exceeds " + strconv.Itoa(maxBatchSize) + " requests",
		})
		return
	}

	items := make([]BatchItem, len(req.Requests))
	var runnable []forecast.Request
	var positions []int
	for i, item := range req.Requests {
		items[i].Index = i
		if item.Profile != nil {
			items[i].CustomerID = item.Profile.CustomerID
		}
		fr, err := h.inlineRequest(r, tenantID, item)
		if err != nil {
			items[i].Error = err.Error()
			continue
		}
		runnable = append(runnable, fr)
		positions = append(positions, i)
	}

	results, err := h.pipeline.RunBatch(ctx, runnable)
	if err != nil {
		slog.Error("batch forecast failed", "tenant_id", tenantID, "error", err)
		writeError(w, err)
		return
	}

	failed := 0
	for j, res := range results {
		item := &items[positions[j]]
		if res.Error != "" {
			item.Error = res.Error
			continue
		}
		item.Forecast = res.Forecast.ToResponse()
	}
	for _, item := range items {
		if item.Error != "" {
			failed++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": items,
		"count":   len(items),
		"failed":  failed,
	})
}

// CustomerForecast handles POST /customers/{id}/forecast for stored history.
func (h *Handler) CustomerForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	var req CustomerForecastRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	asOf, err := h.parseAsOf(req.AsOf)
	if err != nil {
		writeError(w, err)
		return
	}

	fr, err := h.history.Request(ctx, tenantID, customerID, asOf, h.method(req.Method))
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := h.pipeline.Run(ctx, fr)
	if err != nil {
		slog.Error("forecast failed", "tenant_id", tenantID, "customer_id", customerID, "error", err)
		writeError(w, err)
		return
	}

	h.writeForecast(w, r, f)
}

// PutHistory handles PUT /customers/{id}/history.
func (h *Handler) PutHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	var profile domain.CustomerProfile
	if err := decodeJSON(w, r, &profile); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if profile.CustomerID != "" && profile.CustomerID != customerID {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customerId does not match the path",
		})
		return
	}
	profile.CustomerID = customerID

	if err := h.history.SaveProfile(ctx, tenantID, &profile); err != nil {
		slog.Error("failed to save customer history", "customer_id", customerID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("customer history stored",
		"tenant_id", tenantID,
		"customer_id", customerID,
		"claims", len(profile.Claims),
		"policies", len(profile.Policies),
	)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customerId": customerID,
		"claims":     len(profile.Claims),
		"policies":   len(profile.Policies),
		"years":      len(profile.Yearly),
	})
}

// GetHistory handles GET /customers/{id}/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.history.Profile(ctx, GetTenantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetForecast retrieves a stored forecast by ID.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	forecastID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	f, err := h.repo.GetForecast(ctx, tenantID, forecastID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ListCustomerForecasts handles GET /customers/{id}/forecasts, newest first.
func (h *Handler) ListCustomerForecasts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := defaultForecastList
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = min(n, maxForecastList)
	}

	list, err := h.repo.ListForecasts(ctx, tenantID, customerID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	forecasts := make([]*domain.ForecastResponse, len(list))
	for i, f := range list {
		forecasts[i] = f.ToResponse()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customerId": customerID,
		"forecasts":  forecasts,
		"count":      len(forecasts),
	})
}

// GetThresholds handles GET /thresholds.
func (h *Handler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	th, err := h.history.Thresholds(ctx, GetTenantID(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, th)
}

// PutThresholds handles PUT /thresholds. Zero fields keep their defaults.
func (h *Handler) PutThresholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var th domain.ThresholdConfig
	if err := decodeJSON(w, r, &th); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if th.LossRatioEscalation < 0 || th.LossRatioSevere < 0 || th.LossRatioElevated < 0 ||
		th.LossRatioModerate < 0 || th.MinClaimsForHigh < 0 || th.LargeClaimAmount < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "thresholds must not be negative",
		})
		return
	}

	if err := h.history.SaveThresholds(ctx, tenantID, th); err != nil {
		slog.Error("failed to save thresholds", "tenant_id", tenantID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("thresholds updated", "tenant_id", tenantID)
	writeJSON(w, http.StatusOK, th.WithDefaults())
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := map[string]string{}

	if h.repo != nil {
		checks["repository"] = "ok"
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
			checks["repository"] = err.Error()
		}
	}
	if h.cache != nil {
		checks["cache"] = "ok"
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
			checks["cache"] = err.Error()
		}
	}
	if h.bus != nil {
		checks["eventBus"] = "ok"
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
			checks["eventBus"] = err.Error()
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ready":      true,
		"rules":      h.engine.RulesCount(),
		"guidelines": h.guidelines.GuidelineCount(),
	})
}

func (h *Handler) inlineRequest(r *http.Request, tenantID string, req ForecastRequest) (forecast.Request, error) {
	if req.Profile == nil {
		return forecast.Request{}, fmt.Errorf("%w: profile is required", repository.ErrInvalidInput)
	}
	asOf, err := h.parseAsOf(req.AsOf)
	if err != nil {
		return forecast.Request{}, err
	}

	var th domain.ThresholdConfig
	if req.Thresholds != nil {
		th = req.Thresholds.WithDefaults()
	} else if th, err = h.history.Thresholds(r.Context(), tenantID); err != nil {
		return forecast.Request{}, err
	}

	return forecast.Request{
		TenantID:   tenantID,
		Profile:    req.Profile,
		Thresholds: th,
		AsOf:       asOf,
		Method:     h.method(req.Method),
	}, nil
}

// parseAsOf reads the as-of date of a request. The server clock supplies
// it when absent.
func (h *Handler) parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return forecast.Day(h.now()), nil
	}
	t, ok := forecast.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: invalid asOf %q", repository.ErrInvalidInput, s)
	}
	return t, nil
}

func (h *Handler) method(m string) string {
	if m == "" {
		return h.defaultMethod
	}
	return m
}

// writeForecast writes the compact response, or the whole forecast
// with ?view=full.
func (h *Handler) writeForecast(w http.ResponseWriter, r *http.Request, f *domain.Forecast) {
	if r.URL.Query().Get("view") == "full" {
		writeJSON(w, http.StatusOK, f)
		return
	}
	writeJSON(w, http.StatusOK, f.ToResponse())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, forecast.ErrInvalidRequest),
		errors.Is(err, rules.ErrInvalidGuideline):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, history.ErrNoRepository):
		status, msg = http.StatusServiceUnavailable, "repository not available"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
