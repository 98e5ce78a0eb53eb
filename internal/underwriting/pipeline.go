package underwriting

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/forecast"
	"github.com/opensource-finance/claimcast/internal/rules"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// EngineVersion is stamped on every forecast the pipeline produces.
const EngineVersion = "claimcast-1.0"

const defaultBatchConcurrency = 8

// PipelineConfig wires a Pipeline. Repository, Cache and Bus are optional.
type PipelineConfig struct {
	Analyzer   forecast.Analyzer
	Rules      *rules.Engine
	Guidelines *rules.GuidelineEngine
	Processor  *Processor

	Repository domain.Repository
	Cache      domain.Cache
	Bus        domain.EventBus

	CacheTTL         time.Duration
	BatchConcurrency int
	Logger           *slog.Logger
}

// Pipeline runs forecast requests end to end: cache lookup, analysis,
// rules, guidelines, decision, persistence and completion events.
type Pipeline struct {
	analyzer   forecast.Analyzer
	rules      *rules.Engine
	guidelines *rules.GuidelineEngine
	processor  *Processor

	repo  domain.Repository
	cache domain.Cache
	bus   domain.EventBus

	cacheTTL    time.Duration
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewPipeline creates a pipeline. A missing analyzer, rule engine or
// processor is replaced by a default one.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Analyzer == nil {
		cfg.Analyzer = forecast.NewEngine(forecast.Tuning{})
	}
	if cfg.Rules == nil {
		engine, err := rules.NewEngine(0)
		if err != nil {
			return nil, fmt.Errorf("failed to create rule engine: %w", err)
		}
		cfg.Rules = engine
	}
	if cfg.Processor == nil {
		cfg.Processor = NewProcessor(domain.UnderwritingConfig{}, domain.ModeScoring)
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Pipeline{
		analyzer:    cfg.Analyzer,
		rules:       cfg.Rules,
		guidelines:  cfg.Guidelines,
		processor:   cfg.Processor,
		repo:        cfg.Repository,
		cache:       cfg.Cache,
		bus:         cfg.Bus,
		cacheTTL:    cfg.CacheTTL,
		concurrency: cfg.BatchConcurrency,
		logger:      cfg.Logger,
		now:         time.Now,
	}, nil
}

// Run produces a decided forecast for one request. A cached forecast for
// the same inputs and rule set is returned with Metadata.Cached set and
// is neither saved nor published again.
func (p *Pipeline) Run(ctx context.Context, req forecast.Request) (*domain.Forecast, error) {
	start := p.now()
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.New().String()
	}

	fingerprint, err := forecast.Fingerprint(req)
	if err != nil {
		return nil, err
	}
	cacheKey := fingerprint + "." + p.decisionDigest()

	if f := p.cached(ctx, req.TenantID, cacheKey); f != nil {
		f.Metadata.Cached = true
		f.Metadata.TraceID = traceID
		f.Metadata.TotalMs = time.Since(start).Milliseconds()
		return f, nil
	}

	f, err := p.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	analyzeMs := time.Since(start).Milliseconds()

	f.ID = uuid.New().String()
	f.CreatedAt = p.now().UTC()
	f.Fingerprint = fingerprint

	rulesStart := time.Now()
	ruleResults, err := p.rules.EvaluateAll(ctx, req.TenantID, f)
	if err != nil {
		return nil, fmt.Errorf("rule evaluation failed: %w", err)
	}
	var guidelineResults []domain.GuidelineResult
	if p.guidelines != nil && p.guidelines.GuidelineCount() > 0 {
		guidelineResults = p.guidelines.Evaluate(ruleResults)
	}
	rulesMs := time.Since(rulesStart).Milliseconds()

	decisionStart := time.Now()
	f.Decision = p.processor.Process(ctx, &DecisionInput{
		Forecast:         f,
		RuleResults:      ruleResults,
		GuidelineResults: guidelineResults,
	})

	f.Metadata = domain.ForecastMetadata{
		TraceID:             traceID,
		AnalyzeMs:           analyzeMs,
		RulesMs:             rulesMs,
		DecisionMs:          time.Since(decisionStart).Milliseconds(),
		TotalMs:             time.Since(start).Milliseconds(),
		RulesEvaluated:      len(ruleResults),
		GuidelinesEvaluated: len(guidelineResults),
		EngineVersion:       EngineVersion,
	}

	if p.repo != nil {
		if err := p.repo.SaveForecast(ctx, req.TenantID, f); err != nil {
			p.logger.Error("failed to save forecast",
				"forecast_id", f.ID,
				"tenant_id", req.TenantID,
				"error", err,
			)
		}
	}
	if p.cache != nil && p.cacheTTL > 0 {
		if err := p.cache.SetForecast(ctx, req.TenantID, cacheKey, f, p.cacheTTL); err != nil {
			p.logger.Warn("failed to cache forecast", "forecast_id", f.ID, "error", err)
		}
	}
	p.publish(ctx, req.TenantID, f)

	return f, nil
}

func (p *Pipeline) cached(ctx context.Context, tenantID, key string) *domain.Forecast {
	if p.cache == nil || p.cacheTTL <= 0 {
		return nil
	}
	f, err := p.cache.GetForecast(ctx, tenantID, key)
	if err != nil {
		p.logger.Warn("forecast cache lookup failed", "tenant_id", tenantID, "error", err)
		return nil
	}
	return f
}

// decisionDigest identifies the loaded rules, guidelines and decision
// mode, so a rule reload never serves a decision made under old rules.
func (p *Pipeline) decisionDigest() string {
	payload := struct {
		Mode       domain.DecisionMode  `json:"mode"`
		Rules      []*domain.RuleConfig `json:"rules"`
		Guidelines []*domain.Guideline  `json:"guidelines,omitempty"`
	}{
		Mode:  p.processor.Mode,
		Rules: p.rules.GetLoadedRules(),
	}
	if p.guidelines != nil {
		payload.Guidelines = p.guidelines.GetLoadedGuidelines()
	}
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6])
}

func (p *Pipeline) publish(ctx context.Context, tenantID string, f *domain.Forecast) {
	if p.bus == nil {
		return
	}
	event := domain.ForecastCompleted{
		ForecastID: f.ID,
		CustomerID: f.CustomerID,
		RiskScore:  f.RiskScore.Score,
		TraceID:    f.Metadata.TraceID,
	}
	if f.Decision != nil {
		event.Decision = f.Decision.Status
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode forecast event", "forecast_id", f.ID, "error", err)
		return
	}

	topics := []string{domain.TopicForecastCompleted}
	if ShouldDecline(f.Decision) {
		topics = append(topics, domain.TopicRenewalDeclined)
	}
	for _, topic := range topics {
		if err := p.bus.Publish(ctx, tenantID, topic, payload); err != nil {
			p.logger.Warn("failed to publish forecast event",
				"topic", topic,
				"forecast_id", f.ID,
				"error", err,
			)
		}
	}
}

// BatchResult is the outcome of one request in a batch.
type BatchResult struct {
	Index      int              `json:"index"`
	CustomerID string           `json:"customerId"`
	Forecast   *domain.Forecast `json:"forecast,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// RunBatch runs independent requests in parallel, bounded by the batch
// concurrency. A failing request is reported in its result and does not
// stop the others; only cancellation of ctx fails the batch.
func (p *Pipeline) RunBatch(ctx context.Context, reqs []forecast.Request) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, req := range reqs {
		results[i].Index = i
		if req.Profile != nil {
			results[i].CustomerID = req.Profile.CustomerID
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := p.Run(gctx, req)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				results[i].Error = err.Error()
				return nil
			}
			results[i].Forecast = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type traceIDKey struct{}

// ContextWithTraceID attaches a trace ID for forecasts run under ctx.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns the trace ID attached to ctx, or the ID of
// the active span.
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey{}).(string); ok && v != "" {
		return v
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
