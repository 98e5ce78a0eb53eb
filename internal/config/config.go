// Package config loads the service configuration from a YAML file and
// CLAIMCAST_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/forecast"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CLAIMCAST_"

// Settings is the resolved configuration.
type Settings struct {
	*domain.Config
	Tuning forecast.Tuning
}

// fileLayout is the YAML document: service settings at the top level
// plus an optional tuning block.
type fileLayout struct {
	domain.Config `yaml:",inline"`
	Tuning        forecast.Tuning `yaml:"tuning"`
}

// Load builds the configuration: defaults for the tier, then the file at
// path (if any), then the separate tuning file, then environment
// overrides. The result is validated.
func Load(path string) (*Settings, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		data = b
	}

	s, err := parse(data, os.Getenv(EnvPrefix+"TIER"))
	if err != nil {
		return nil, err
	}

	applyEnv(s.Config, os.LookupEnv)

	if s.Forecast.TuningFile != "" {
		t, err := LoadTuning(s.Forecast.TuningFile, s.Tuning)
		if err != nil {
			return nil, err
		}
		s.Tuning = t
	}

	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// parse decodes a config document over the defaults of its tier. The
// tier argument, when set, wins over the tier in the document.
func parse(data []byte, tier string) (*Settings, error) {
	if tier == "" && len(data) > 0 {
		var peek struct {
			Tier string `yaml:"tier"`
		}
		if err := yaml.Unmarshal(data, &peek); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		tier = peek.Tier
	}

	base := domain.DefaultConfig()
	if domain.Tier(tier) == domain.TierPro {
		base = domain.ProConfig()
	}

	layout := fileLayout{Config: *base, Tuning: forecast.DefaultTuning()}
	if err := decodeOver(data, &layout); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if tier != "" {
		layout.Tier = domain.Tier(tier)
	}
	layout.Thresholds = layout.Thresholds.WithDefaults()

	cfg := layout.Config
	return &Settings{Config: &cfg, Tuning: layout.Tuning}, nil
}

// LoadTuning decodes a YAML tuning file over base, so keys absent from
// the file keep the value they have in base.
func LoadTuning(path string, base forecast.Tuning) (forecast.Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read tuning file %s: %w", path, err)
	}
	t := base
	if err := decodeOver(data, &t); err != nil {
		return base, fmt.Errorf("invalid tuning file %s: %w", path, err)
	}
	return t, nil
}

// decodeOver decodes data into v, leaving fields the document does not
// mention untouched. Unknown keys are rejected.
func decodeOver(data []byte, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides settings from CLAIMCAST_* variables.
func applyEnv(cfg *domain.Config, lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("HOST", &cfg.Server.Host)
	num("PORT", &cfg.Server.Port)
	if v, ok := lookup(EnvPrefix + "RATE_LIMIT"); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}

	if v, ok := lookup(EnvPrefix + "DECISION_MODE"); ok && v != "" {
		cfg.DecisionMode = domain.DecisionMode(v)
	}

	str("DB_DRIVER", &cfg.Repository.Driver)
	str("SQLITE_PATH", &cfg.Repository.SQLitePath)
	str("POSTGRES_URL", &cfg.Repository.PostgresURL)
	str("POSTGRES_HOST", &cfg.Repository.PostgresHost)
	num("POSTGRES_PORT", &cfg.Repository.PostgresPort)
	str("POSTGRES_USER", &cfg.Repository.PostgresUser)
	str("POSTGRES_PASSWORD", &cfg.Repository.PostgresPassword)
	str("POSTGRES_DB", &cfg.Repository.PostgresDB)

	str("CACHE_TYPE", &cfg.Cache.Type)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Cache.RedisPassword)

	str("BUS_TYPE", &cfg.EventBus.Type)
	str("NATS_URL", &cfg.EventBus.NATSUrl)
	str("NATS_TOKEN", &cfg.EventBus.NATSToken)
	str("NATS_QUEUE_GROUP", &cfg.EventBus.NATSQueueGroup)

	flag("ASYNC_WORKER", &cfg.Worker.Enabled)
	if v, ok := lookup(EnvPrefix + "TENANTS"); ok && v != "" {
		cfg.Worker.Tenants = splitList(v)
	}

	str("FORECAST_METHOD", &cfg.Forecast.Method)
	str("TUNING_FILE", &cfg.Forecast.TuningFile)
	if v, ok := lookup(EnvPrefix + "CACHE_TTL"); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Forecast.CacheTTL = d
		}
	}

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	var debug bool
	flag("DEBUG", &debug)
	if debug {
		cfg.Logging.Level = "debug"
	}
	flag("TRACING", &cfg.Tracing.Enabled)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the service cannot start with.
func Validate(s *Settings) error {
	cfg := s.Config
	switch cfg.Tier {
	case domain.TierCommunity, domain.TierPro:
	default:
		return fmt.Errorf("invalid tier %q", cfg.Tier)
	}
	switch cfg.DecisionMode {
	case domain.ModeScoring, domain.ModeGuideline:
	default:
		return fmt.Errorf("invalid decision mode %q", cfg.DecisionMode)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	if !forecast.ValidMethod(cfg.Forecast.Method) {
		return fmt.Errorf("invalid forecast method %q", cfg.Forecast.Method)
	}
	if cfg.Underwriting.AdjustThreshold < 0 || cfg.Underwriting.AdjustThreshold > 1 {
		return fmt.Errorf("adjust threshold must be in [0, 1], got %v", cfg.Underwriting.AdjustThreshold)
	}
	if cfg.Underwriting.AdjustRiskScore > cfg.Underwriting.DeclineRiskScore && cfg.Underwriting.DeclineRiskScore > 0 {
		return fmt.Errorf("adjust risk score %d exceeds decline risk score %d",
			cfg.Underwriting.AdjustRiskScore, cfg.Underwriting.DeclineRiskScore)
	}
	return nil
}
