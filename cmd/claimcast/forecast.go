package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/opensource-finance/claimcast/internal/config"
	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/forecast"
	"github.com/opensource-finance/claimcast/internal/rules"
	"github.com/opensource-finance/claimcast/internal/underwriting"
	"github.com/spf13/cobra"
)

type forecastFlags struct {
	asOf     string
	method   string
	tenantID string
	full     bool
}

func newForecastCmd(root *rootFlags) *cobra.Command {
	flags := &forecastFlags{}

	cmd := &cobra.Command{
		Use:   "forecast <profile.json>",
		Short: "Forecast one customer profile offline and print the result as JSON",
		Long: `forecast reads a customer profile (claims, policies and optional yearly
aggregates) from a JSON file, or from stdin when the file is "-", runs the
forecast and the built-in renewal rules, and prints the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(root.configFile)
			if err != nil {
				return err
			}
			// Logs go to stderr so stdout stays valid JSON
			logCfg := settings.Logging
			if logCfg.Level == "info" {
				logCfg.Level = "warn"
			}
			slog.SetDefault(newLogger(logCfg, cmd.ErrOrStderr()))

			profile, err := readProfile(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return runForecast(cmd, settings, profile, flags)
		},
	}

	cmd.Flags().StringVar(&flags.asOf, "as-of", "", "Evaluation date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&flags.method, "method", "", "Next-claim method: auto, advanced or simple")
	cmd.Flags().StringVar(&flags.tenantID, "tenant", "local", "Tenant ID recorded on the forecast")
	cmd.Flags().BoolVar(&flags.full, "full", false, "Print the whole forecast instead of the summary")
	return cmd
}

func readProfile(stdin io.Reader, path string) (*domain.CustomerProfile, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open profile: %w", err)
		}
		defer f.Close()
		r = f
	}

	var profile domain.CustomerProfile
	if err := json.NewDecoder(r).Decode(&profile); err != nil {
		return nil, fmt.Errorf("invalid profile JSON: %w", err)
	}
	return &profile, nil
}

func runForecast(cmd *cobra.Command, settings *config.Settings, profile *domain.CustomerProfile, flags *forecastFlags) error {
	asOf := forecast.Day(time.Now())
	if flags.asOf != "" {
		t, ok := forecast.ParseDate(flags.asOf)
		if !ok {
			return fmt.Errorf("invalid --as-of date %q", flags.asOf)
		}
		asOf = t
	}
	method := flags.method
	if method == "" {
		method = settings.Forecast.Method
	}

	engine, err := rules.NewEngine(0)
	if err != nil {
		return err
	}
	if err := engine.LoadRules(rules.DefaultRules()); err != nil {
		return err
	}
	guidelines := rules.NewGuidelineEngine()
	guidelines.LoadGuidelines(rules.DefaultGuidelines())

	pipeline, err := underwriting.NewPipeline(underwriting.PipelineConfig{
		Analyzer:   forecast.WithLogging(forecast.NewEngine(settings.Tuning), slog.Default()),
		Rules:      engine,
		Guidelines: guidelines,
		Processor:  underwriting.NewProcessor(settings.Underwriting, settings.DecisionMode),
	})
	if err != nil {
		return err
	}

	f, err := pipeline.Run(cmd.Context(), forecast.Request{
		TenantID:   flags.tenantID,
		Profile:    profile,
		Thresholds: settings.Thresholds,
		AsOf:       asOf,
		Method:     method,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if flags.full {
		return enc.Encode(f)
	}
	return enc.Encode(f.ToResponse())
}
