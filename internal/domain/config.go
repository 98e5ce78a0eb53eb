package domain

import "time"

// Config holds the complete Claimcast configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" yaml:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier" yaml:"tier"`

	// DecisionMode determines how renewal decisions are reached
	// - "scoring": Rules → Weighted Score → Decision (fast, simple)
	// - "guideline": Rules → Underwriting Guidelines → Decision (auditable)
	DecisionMode DecisionMode `json:"decisionMode" yaml:"decisionMode"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" yaml:"repository"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" yaml:"eventBus"`
	Worker     WorkerConfig     `json:"worker" yaml:"worker"`

	// Forecasting and underwriting
	Forecast     ForecastConfig     `json:"forecast" yaml:"forecast"`
	Underwriting UnderwritingConfig `json:"underwriting" yaml:"underwriting"`
	Thresholds   ThresholdConfig    `json:"thresholds" yaml:"thresholds"`

	// Observability
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// DecisionMode determines the renewal decision strategy.
type DecisionMode string

const (
	// ModeScoring evaluates renewal rules and aggregates their scores directly.
	ModeScoring DecisionMode = "scoring"

	// ModeGuideline requires underwriting guidelines before a decline is issued.
	// Every decision is traceable to a named guideline.
	ModeGuideline DecisionMode = "guideline"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	ReadTimeout  int    `json:"readTimeout" yaml:"readTimeout"`   // seconds
	WriteTimeout int    `json:"writeTimeout" yaml:"writeTimeout"` // seconds

	// Per-tenant request rate limit; 0 disables limiting
	RateLimit float64 `json:"rateLimit" yaml:"rateLimit"` // requests per second
	RateBurst int     `json:"rateBurst" yaml:"rateBurst"`
}

// ForecastConfig holds forecast pipeline settings.
type ForecastConfig struct {
	// Method is the default next-claim strategy: advanced, simple or auto
	Method string `json:"method" yaml:"method"`

	// TuningFile optionally points to a YAML file with tuning overrides
	TuningFile string `json:"tuningFile" yaml:"tuningFile"`

	// CacheTTL is how long a forecast stays cached for an unchanged profile
	CacheTTL time.Duration `json:"cacheTTL" yaml:"cacheTTL"`

	// BatchConcurrency bounds parallel analyses in batch requests
	BatchConcurrency int `json:"batchConcurrency" yaml:"batchConcurrency"`
}

// UnderwritingConfig holds decision processor settings.
type UnderwritingConfig struct {
	// AdjustThreshold is the weighted rule score (0-1) that turns an accept into an adjust
	AdjustThreshold float64 `json:"adjustThreshold" yaml:"adjustThreshold"`

	// Risk-score fallback used when no renewal rules are loaded
	DeclineRiskScore int `json:"declineRiskScore" yaml:"declineRiskScore"`
	AdjustRiskScore  int `json:"adjustRiskScore" yaml:"adjustRiskScore"`
}

// WorkerConfig holds async forecast worker settings.
type WorkerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Tenants to subscribe for; empty subscribes to the global subject
	Tenants []string `json:"tenants" yaml:"tenants"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	ServiceName  string `json:"serviceName" yaml:"serviceName"`
	ExporterType string `json:"exporterType" yaml:"exporterType"` // stdout, otlp
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels + in-memory cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			RateLimit:    50,
			RateBurst:    100,
		},
		Tier:         TierCommunity,
		DecisionMode: ModeScoring,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./claimcast.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Forecast: ForecastConfig{
			Method:           "auto",
			CacheTTL:         time.Hour,
			BatchConcurrency: 8,
		},
		Underwriting: UnderwritingConfig{
			AdjustThreshold:  0.5,
			DeclineRiskScore: 70,
			AdjustRiskScore:  40,
		},
		Thresholds: DefaultThresholds(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "claimcast",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "claimcast",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
		NATSQueueGroup:    "claimcast-workers",
	}
	cfg.Worker.Enabled = true
	cfg.Tracing.Enabled = true
	return cfg
}
