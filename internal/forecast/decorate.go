package forecast

import (
	"context"
	"log/slog"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type loggingAnalyzer struct {
	next   Analyzer
	logger *slog.Logger
}

// WithLogging logs a summary of every analysis and each data quality
// warning it produced. A nil logger uses slog.Default.
func WithLogging(next Analyzer, logger *slog.Logger) Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingAnalyzer{next: next, logger: logger}
}

func (a *loggingAnalyzer) Analyze(ctx context.Context, req Request) (*domain.Forecast, error) {
	start := time.Now()
	customerID := ""
	if req.Profile != nil {
		customerID = req.Profile.CustomerID
	}

	f, err := a.next.Analyze(ctx, req)
	if err != nil {
		a.logger.WarnContext(ctx, "forecast failed",
			"tenant_id", req.TenantID,
			"customer_id", customerID,
			"error", err,
		)
		return nil, err
	}

	for _, w := range f.Warnings {
		a.logger.WarnContext(ctx, "data quality",
			"tenant_id", req.TenantID,
			"customer_id", customerID,
			"code", w.Code,
			"record", w.Record,
			"index", w.Index,
			"message", w.Message,
		)
	}

	a.logger.DebugContext(ctx, "forecast computed",
		"tenant_id", req.TenantID,
		"customer_id", customerID,
		"as_of", f.AsOf.Format(time.DateOnly),
		"method", f.NextClaim.Method,
		"claims", f.Data.Claims,
		"risk_score", f.RiskScore.Score,
		"next_claim_days", f.NextClaim.DaysUntilNext,
		"confidence", f.NextClaim.Confidence,
		"insufficient_data", f.NextClaim.InsufficientData,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return f, nil
}

type tracingAnalyzer struct {
	next   Analyzer
	tracer trace.Tracer
}

// WithTracing records an OpenTelemetry span around every analysis.
func WithTracing(next Analyzer, tracer trace.Tracer) Analyzer {
	return &tracingAnalyzer{next: next, tracer: tracer}
}

func (a *tracingAnalyzer) Analyze(ctx context.Context, req Request) (*domain.Forecast, error) {
	ctx, span := a.tracer.Start(ctx, "forecast.Analyze",
		trace.WithAttributes(
			attribute.String("tenant.id", req.TenantID),
			attribute.String("forecast.method", req.Method),
		),
	)
	defer span.End()

	f, err := a.next.Analyze(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("customer.id", f.CustomerID),
		attribute.Int("forecast.claims", f.Data.Claims),
		attribute.Int("forecast.risk_score", f.RiskScore.Score),
		attribute.String("forecast.confidence", string(f.NextClaim.Confidence)),
		attribute.Int("forecast.warnings", len(f.Warnings)),
	)
	return f, nil
}
