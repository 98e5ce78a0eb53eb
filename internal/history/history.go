// Package history loads stored customer claim history and tenant
// thresholds for forecasting.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/forecast"
	"github.com/opensource-finance/claimcast/internal/repository"
)

// thresholdsKey is the per-tenant cache key of the threshold configuration.
const thresholdsKey = "thresholds"

const defaultThresholdsTTL = 5 * time.Minute

// ErrNoRepository is returned when the service has no data source.
var ErrNoRepository = errors.New("no repository available")

// Service reads and writes customer history and tenant thresholds.
type Service struct {
	repo  domain.Repository
	cache domain.Cache

	// Defaults is served to tenants without stored thresholds
	Defaults domain.ThresholdConfig

	// ThresholdsTTL bounds how long cached thresholds are served
	ThresholdsTTL time.Duration
}

// NewService creates a new history service. The cache is optional.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:          repo,
		cache:         cache,
		Defaults:      domain.DefaultThresholds(),
		ThresholdsTTL: defaultThresholdsTTL,
	}
}

// Profile returns the stored history of a customer.
func (s *Service) Profile(ctx context.Context, tenantID, customerID string) (*domain.CustomerProfile, error) {
	if tenantID == "" || customerID == "" {
		return nil, fmt.Errorf("%w: tenantID and customerID are required", repository.ErrInvalidInput)
	}
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.GetProfile(ctx, tenantID, customerID)
}

// SaveProfile stores a customer's history, replacing any previous one.
func (s *Service) SaveProfile(ctx context.Context, tenantID string, profile *domain.CustomerProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile is required", repository.ErrInvalidInput)
	}
	if s.repo == nil {
		return ErrNoRepository
	}
	return s.repo.SaveProfile(ctx, tenantID, profile)
}

// Thresholds returns the tenant's thresholds with zero fields filled from
// defaults. Tenants that never stored thresholds get the defaults.
func (s *Service) Thresholds(ctx context.Context, tenantID string) (domain.ThresholdConfig, error) {
	if tenantID == "" {
		return domain.ThresholdConfig{}, fmt.Errorf("%w: tenantID is required", repository.ErrInvalidInput)
	}
	if th, ok := s.cachedThresholds(ctx, tenantID); ok {
		return th, nil
	}
	if s.repo == nil {
		return s.Defaults, nil
	}

	stored, err := s.repo.GetThresholds(ctx, tenantID)
	var th domain.ThresholdConfig
	switch {
	case err == nil:
		th = stored.WithDefaults()
	case errors.Is(err, repository.ErrNotFound):
		th = s.Defaults
	default:
		return domain.ThresholdConfig{}, fmt.Errorf("failed to load thresholds: %w", err)
	}

	s.cacheThresholds(ctx, tenantID, th)
	return th, nil
}

// SaveThresholds stores the tenant's thresholds and drops the cached copy.
func (s *Service) SaveThresholds(ctx context.Context, tenantID string, th domain.ThresholdConfig) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	if err := s.repo.SaveThresholds(ctx, tenantID, &th); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, tenantID, thresholdsKey); err != nil {
			slog.Warn("failed to invalidate cached thresholds", "tenant_id", tenantID, "error", err)
		}
	}
	return nil
}

// Request builds a forecast request for a stored customer.
func (s *Service) Request(ctx context.Context, tenantID, customerID string, asOf time.Time, method string) (forecast.Request, error) {
	profile, err := s.Profile(ctx, tenantID, customerID)
	if err != nil {
		return forecast.Request{}, err
	}
	th, err := s.Thresholds(ctx, tenantID)
	if err != nil {
		return forecast.Request{}, err
	}
	return forecast.Request{
		TenantID:   tenantID,
		Profile:    profile,
		Thresholds: th,
		AsOf:       asOf,
		Method:     method,
	}, nil
}

func (s *Service) cachedThresholds(ctx context.Context, tenantID string) (domain.ThresholdConfig, bool) {
	var th domain.ThresholdConfig
	if s.cache == nil {
		return th, false
	}
	data, err := s.cache.Get(ctx, tenantID, thresholdsKey)
	if err != nil || data == nil {
		return th, false
	}
	if err := json.Unmarshal(data, &th); err != nil {
		return th, false
	}
	return th, true
}

func (s *Service) cacheThresholds(ctx context.Context, tenantID string, th domain.ThresholdConfig) {
	if s.cache == nil || s.ThresholdsTTL <= 0 {
		return
	}
	data, err := json.Marshal(th)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, tenantID, thresholdsKey, data, s.ThresholdsTTL); err != nil {
		slog.Warn("failed to cache thresholds", "tenant_id", tenantID, "error", err)
	}
}
