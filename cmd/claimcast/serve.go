package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/opensource-finance/claimcast/internal/api"
	"github.com/opensource-finance/claimcast/internal/bus"
	"github.com/opensource-finance/claimcast/internal/cache"
	"github.com/opensource-finance/claimcast/internal/config"
	"github.com/opensource-finance/claimcast/internal/forecast"
	"github.com/opensource-finance/claimcast/internal/history"
	"github.com/opensource-finance/claimcast/internal/repository"
	"github.com/opensource-finance/claimcast/internal/rules"
	"github.com/opensource-finance/claimcast/internal/underwriting"
	"github.com/opensource-finance/claimcast/internal/worker"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the async forecast worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(flags.configFile)
			if err != nil {
				return err
			}
			logger := newLogger(settings.Logging, os.Stdout)
			slog.SetDefault(logger)
			return serve(cmd.Context(), settings, logger)
		},
	}
}

func serve(ctx context.Context, settings *config.Settings, logger *slog.Logger) error {
	cfg := settings.Config

	slog.Info("starting claimcast",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"decision_mode", cfg.DecisionMode,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	engine, err := rules.NewEngine(100)
	if err != nil {
		return fmt.Errorf("failed to initialize rule engine: %w", err)
	}
	guidelines := rules.NewGuidelineEngine()

	hist := history.NewService(repo, cacheImpl)
	hist.Defaults = cfg.Thresholds

	analyzer := forecast.Analyzer(forecast.NewEngine(settings.Tuning))
	analyzer = forecast.WithLogging(analyzer, logger)
	if cfg.Tracing.Enabled {
		analyzer = forecast.WithTracing(analyzer, otel.Tracer(cfg.Tracing.ServiceName))
	}

	processor := underwriting.NewProcessor(cfg.Underwriting, cfg.DecisionMode)
	slog.Info("decision processor initialized",
		"mode", processor.Mode,
		"adjust_threshold", processor.AdjustThreshold,
	)

	pipeline, err := underwriting.NewPipeline(underwriting.PipelineConfig{
		Analyzer:         analyzer,
		Rules:            engine,
		Guidelines:       guidelines,
		Processor:        processor,
		Repository:       repo,
		Cache:            cacheImpl,
		Bus:              busImpl,
		CacheTTL:         cfg.Forecast.CacheTTL,
		BatchConcurrency: cfg.Forecast.BatchConcurrency,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	srv := api.NewServer(cfg.Server, api.Dependencies{
		Repository:    repo,
		Cache:         cacheImpl,
		Bus:           busImpl,
		Pipeline:      pipeline,
		History:       hist,
		Rules:         engine,
		Guidelines:    guidelines,
		Version:       Version,
		DefaultMethod: cfg.Forecast.Method,
	})

	ruleCount, guidelineCount, err := srv.Handler().LoadRuleSets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	slog.Info("rule engines initialized", "rules_count", ruleCount, "guidelines_count", guidelineCount)

	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		asyncWorker = worker.NewWorker(busImpl, hist, pipeline)
		if err := asyncWorker.Start(worker.Config{TenantIDs: cfg.Worker.Tenants}); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
		} else {
			slog.Info("async worker started", "tenant_count", len(cfg.Worker.Tenants))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("claimcast is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("claimcast shutdown complete")
	return nil
}
