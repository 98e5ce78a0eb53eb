// Package worker runs forecast requests asynchronously from the event bus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/history"
	"github.com/opensource-finance/claimcast/internal/underwriting"
)

// GlobalTenant is the subscription tenant used when no tenants are configured.
// Requests on it must name their tenant in the payload.
const GlobalTenant = "_global"

// Worker consumes forecast requests and runs them through the pipeline.
type Worker struct {
	bus      domain.EventBus
	history  *history.Service
	pipeline *underwriting.Pipeline
	now      func() time.Time

	mu            sync.Mutex
	subscriptions []domain.Subscription
	processed     atomic.Int64
	failed        atomic.Int64
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = global subscription)
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, hist *history.Service, pipeline *underwriting.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		history:  hist,
		pipeline: pipeline,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing requests for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		if err := w.subscribe(GlobalTenant); err != nil {
			return err
		}
		slog.Info("global worker started", "topic", domain.TopicForecastRequested)
		return nil
	}

	started := 0
	for _, tenantID := range cfg.TenantIDs {
		if err := w.subscribe(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
		started++
	}
	if started == 0 {
		return fmt.Errorf("no tenant worker could be started")
	}

	slog.Info("workers started",
		"tenant_count", started,
		"topic", domain.TopicForecastRequested,
	)
	return nil
}

func (w *Worker) subscribe(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicForecastRequested, func(ctx context.Context, msg *domain.Message) error {
		return w.processRequest(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()
	return nil
}

// processRequest forecasts one stored customer and replies when the
// message came from a request-reply call.
func (w *Worker) processRequest(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var req domain.ForecastRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		w.failed.Add(1)
		slog.Error("failed to parse forecast request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if req.TenantID != "" {
		tenantID = req.TenantID
	}
	if tenantID == GlobalTenant {
		w.failed.Add(1)
		return fmt.Errorf("forecast request %s has no tenant", msg.ID)
	}
	if req.CustomerID == "" {
		w.failed.Add(1)
		return fmt.Errorf("forecast request %s has no customerId", msg.ID)
	}

	asOf := w.now().UTC()
	if req.AsOf != "" {
		parsed, err := time.Parse(time.DateOnly, req.AsOf)
		if err != nil {
			w.failed.Add(1)
			return fmt.Errorf("invalid asOf %q: %w", req.AsOf, err)
		}
		asOf = parsed
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = msg.Metadata[domain.MetaTraceID]
	}
	if traceID == "" {
		traceID = msg.ID
	}
	ctx = underwriting.ContextWithTraceID(ctx, traceID)

	slog.Debug("processing forecast request",
		"customer_id", req.CustomerID,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	fr, err := w.history.Request(ctx, tenantID, req.CustomerID, asOf, req.Method)
	if err != nil {
		w.failed.Add(1)
		slog.Error("failed to load customer history",
			"customer_id", req.CustomerID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	f, err := w.pipeline.Run(ctx, fr)
	if err != nil {
		w.failed.Add(1)
		slog.Error("forecast failed",
			"customer_id", req.CustomerID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}
	w.processed.Add(1)

	if replyTo := msg.Metadata[domain.MetaReplyTo]; replyTo != "" {
		w.reply(ctx, tenantID, replyTo, f)
	}

	status := ""
	if f.Decision != nil {
		status = f.Decision.Status
	}
	slog.Info("forecast processed",
		"forecast_id", f.ID,
		"customer_id", req.CustomerID,
		"tenant_id", tenantID,
		"decision", status,
		"risk_score", f.RiskScore.Score,
		"cached", f.Metadata.Cached,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *Worker) reply(ctx context.Context, tenantID, replyTo string, f *domain.Forecast) {
	payload, err := json.Marshal(f.ToResponse())
	if err != nil {
		slog.Error("failed to encode forecast reply", "forecast_id", f.ID, "error", err)
		return
	}
	if err := w.bus.Publish(ctx, tenantID, replyTo, payload); err != nil {
		slog.Error("failed to send forecast reply",
			"forecast_id", f.ID,
			"reply_to", replyTo,
			"error", err,
		)
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	subs := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
