package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

const defaultForecastLimit = 50

// SaveProfile stores or replaces a customer's claim history.
func (r *SQLRepository) SaveProfile(ctx context.Context, tenantID string, profile *domain.CustomerProfile) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if profile == nil || profile.CustomerID == "" {
		return fmt.Errorf("%w: customerId is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	query := `
		INSERT INTO customer_profiles (tenant_id, customer_id, name, claim_count, profile, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, customer_id) DO UPDATE SET
			name = excluded.name,
			claim_count = excluded.claim_count,
			profile = excluded.profile,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		tenantID, profile.CustomerID, profile.Name, len(profile.Claims),
		string(payload), time.Now().UTC(),
	)
	return err
}

// GetProfile retrieves a customer's stored claim history.
func (r *SQLRepository) GetProfile(ctx context.Context, tenantID string, customerID string) (*domain.CustomerProfile, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT profile
		FROM customer_profiles
		WHERE tenant_id = ? AND customer_id = ?
	`

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, customerID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var profile domain.CustomerProfile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile for %s: %w", customerID, err)
	}
	return &profile, nil
}

// SaveForecast stores a forecast result with tenant isolation.
func (r *SQLRepository) SaveForecast(ctx context.Context, tenantID string, f *domain.Forecast) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if f == nil || f.ID == "" {
		return fmt.Errorf("%w: forecast id is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode forecast: %w", err)
	}

	decision := ""
	if f.Decision != nil {
		decision = f.Decision.Status
	}

	query := `
		INSERT INTO forecasts (
			id, tenant_id, customer_id, as_of, fingerprint, risk_score, decision, created_at, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		f.ID, tenantID, f.CustomerID, f.AsOf.Format(time.DateOnly), f.Fingerprint,
		f.RiskScore.Score, decision, f.CreatedAt.UTC(), string(payload),
	)
	return err
}

// GetForecast retrieves a forecast by ID with tenant isolation.
func (r *SQLRepository) GetForecast(ctx context.Context, tenantID string, forecastID string) (*domain.Forecast, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT payload
		FROM forecasts
		WHERE tenant_id = ? AND id = ?
	`

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, forecastID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var f domain.Forecast
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return nil, fmt.Errorf("failed to parse forecast %s: %w", forecastID, err)
	}
	return &f, nil
}

// ListForecasts returns a customer's forecasts, newest first.
func (r *SQLRepository) ListForecasts(ctx context.Context, tenantID string, customerID string, limit int) ([]*domain.Forecast, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultForecastLimit
	}

	query := `
		SELECT payload
		FROM forecasts
		WHERE tenant_id = ? AND customer_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forecasts []*domain.Forecast
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var f domain.Forecast
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			return nil, fmt.Errorf("failed to parse forecast: %w", err)
		}
		forecasts = append(forecasts, &f)
	}

	return forecasts, rows.Err()
}

// SaveThresholds stores the tenant's underwriting thresholds.
func (r *SQLRepository) SaveThresholds(ctx context.Context, tenantID string, th *domain.ThresholdConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if th == nil {
		return fmt.Errorf("%w: thresholds are required", ErrInvalidInput)
	}

	payload, _ := json.Marshal(th)

	query := `
		INSERT INTO thresholds (tenant_id, config, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			config = excluded.config,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, string(payload), time.Now().UTC())
	return err
}

// GetThresholds retrieves the tenant's thresholds, or ErrNotFound.
func (r *SQLRepository) GetThresholds(ctx context.Context, tenantID string) (*domain.ThresholdConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT config FROM thresholds WHERE tenant_id = ?`), tenantID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var th domain.ThresholdConfig
	if err := json.Unmarshal([]byte(payload), &th); err != nil {
		return nil, fmt.Errorf("failed to parse thresholds: %w", err)
	}
	return &th, nil
}
