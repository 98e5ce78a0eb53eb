// Package domain defines the core interfaces and types for Claimcast.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Customer history operations
	SaveProfile(ctx context.Context, tenantID string, profile *CustomerProfile) error
	GetProfile(ctx context.Context, tenantID string, customerID string) (*CustomerProfile, error)

	// Rule configuration operations
	SaveRuleConfig(ctx context.Context, tenantID string, rule *RuleConfig) error
	GetRuleConfig(ctx context.Context, tenantID string, ruleID string) (*RuleConfig, error)
	ListRuleConfigs(ctx context.Context, tenantID string) ([]*RuleConfig, error)

	// Forecast results
	SaveForecast(ctx context.Context, tenantID string, forecast *Forecast) error
	GetForecast(ctx context.Context, tenantID string, forecastID string) (*Forecast, error)
	ListForecasts(ctx context.Context, tenantID string, customerID string, limit int) ([]*Forecast, error)

	// Guideline configuration operations
	SaveGuideline(ctx context.Context, tenantID string, guideline *Guideline) error
	GetGuideline(ctx context.Context, tenantID string, guidelineID string) (*Guideline, error)
	ListGuidelines(ctx context.Context, tenantID string) ([]*Guideline, error)
	DeleteGuideline(ctx context.Context, tenantID string, guidelineID string) error

	// Tenant thresholds; GetThresholds fails with a not-found error when none are stored
	SaveThresholds(ctx context.Context, tenantID string, thresholds *ThresholdConfig) error
	GetThresholds(ctx context.Context, tenantID string) (*ThresholdConfig, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver" yaml:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath" yaml:"sqlitePath"`

	// PostgreSQL specific. PostgresURL, when set, replaces the discrete fields.
	PostgresURL      string `json:"-" yaml:"postgresUrl"`
	PostgresHost     string `json:"postgresHost" yaml:"postgresHost"`
	PostgresPort     int    `json:"postgresPort" yaml:"postgresPort"`
	PostgresUser     string `json:"postgresUser" yaml:"postgresUser"`
	PostgresPassword string `json:"-" yaml:"postgresPassword"`
	PostgresDB       string `json:"postgresDb" yaml:"postgresDb"`
	PostgresSSLMode  string `json:"postgresSslMode" yaml:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
}
