package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// ErrInvalidRequest is returned for requests the engine cannot analyze.
var ErrInvalidRequest = errors.New("invalid forecast request")

// Request is one forecast computation.
type Request struct {
	TenantID   string
	Profile    *domain.CustomerProfile
	Thresholds domain.ThresholdConfig
	AsOf       time.Time
	Method     string
}

// Analyzer produces a forecast for a request.
// Engine is the pure implementation; WithLogging and WithTracing decorate it.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*domain.Forecast, error)
}

// Engine composes the forecast pipeline.
type Engine struct {
	tuning Tuning
}

// NewEngine creates an engine. A zero Tuning selects DefaultTuning.
func NewEngine(t Tuning) *Engine {
	if t == (Tuning{}) {
		t = DefaultTuning()
	}
	return &Engine{tuning: t}
}

// Tuning returns the engine's policy constants.
func (e *Engine) Tuning() Tuning {
	return e.tuning
}

// Analyze runs the whole pipeline. It is deterministic: identical requests
// produce identical forecasts. ID and CreatedAt are left for the caller.
func (e *Engine) Analyze(ctx context.Context, req Request) (*domain.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Profile == nil {
		return nil, fmt.Errorf("%w: profile is required", ErrInvalidRequest)
	}
	if req.AsOf.IsZero() {
		return nil, fmt.Errorf("%w: as-of date is required", ErrInvalidRequest)
	}
	if !ValidMethod(req.Method) {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidRequest, req.Method)
	}

	t := e.tuning
	now := Day(req.AsOf)
	th := req.Thresholds.WithDefaults()

	norm := Normalize(req.Profile, now)

	var exposures []domain.ProductExposure
	if len(req.Profile.Exposures) > 0 {
		exposures = MergeExposures(req.Profile.Exposures, norm.Claims)
	} else {
		exposures = BuildExposures(norm.Policies, norm.Claims, norm.Yearly, now)
	}

	baseline := Baseline(norm.Claims)
	seasonal := Seasonal(norm.Claims, now.Month(), t)
	trend := Trend(norm.Yearly, now, t)
	since := TimeSince(norm.Claims, baseline, now, t)
	products := ClassifyProducts(exposures, norm.Claims, th, now, t)

	completed := len(norm.CompletedYears(now))
	predictor := SelectPredictor(req.Method, completed, t)
	next := predictor.Predict(PredictionInput{
		Claims:    norm.Claims,
		Baseline:  baseline,
		Seasonal:  seasonal,
		Trend:     trend,
		TimeSince: since,
		Products:  products,
	})

	scenarios := Scenarios(ScenarioInput{
		Yearly:   norm.Yearly,
		Trend:    trend,
		Products: products,
		Seasonal: seasonal,
		Now:      now,
	}, t)

	score := Score(ScoreInput{
		NextClaim: next,
		Scenarios: scenarios,
		Products:  products,
		Trend:     trend,
	}, t)

	fingerprint, err := Fingerprint(req)
	if err != nil {
		return nil, err
	}

	return &domain.Forecast{
		TenantID:    req.TenantID,
		CustomerID:  req.Profile.CustomerID,
		AsOf:        now,
		Fingerprint: fingerprint,
		Data: domain.DataSummary{
			Claims:          len(norm.Claims),
			SkippedClaims:   norm.SkippedClaims,
			Years:           len(norm.Yearly),
			CompletedYears:  completed,
			ActivePolicies:  len(norm.Policies),
			Products:        len(products),
			SynthesizedYear: norm.SynthesizedYear,
		},
		Baseline:  baseline,
		Seasonal:  seasonal,
		Trend:     trend,
		TimeSince: since,
		Products:  products,
		NextClaim: next,
		Scenarios: scenarios,
		RiskScore: score,
		Warnings:  norm.Warnings,
	}, nil
}

// Fingerprint identifies the inputs of a request. Two requests with the
// same fingerprint produce the same forecast.
func Fingerprint(req Request) (string, error) {
	payload := struct {
		Profile    *domain.CustomerProfile `json:"profile"`
		Thresholds domain.ThresholdConfig  `json:"thresholds"`
		AsOf       string                  `json:"asOf"`
		Method     string                  `json:"method"`
	}{
		Profile:    req.Profile,
		Thresholds: req.Thresholds.WithDefaults(),
		AsOf:       Day(req.AsOf).Format(time.DateOnly),
		Method:     req.Method,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
