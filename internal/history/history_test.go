package history

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/claimcast/internal/cache"
	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/repository"
)

func TestHistoryService(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "history-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	lruCache := cache.NewLRUCache(100)
	defer lruCache.Close()

	svc := NewService(repo, lruCache)

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("MissingProfile", func(t *testing.T) {
		_, err := svc.Profile(ctx, tenantID, "cust-404")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveAndLoadProfile", func(t *testing.T) {
		profile := &domain.CustomerProfile{
			CustomerID: "cust-001",
			Claims: []domain.RawClaim{
				{ID: "c1", Date: "2024-01-10", TotalCost: domain.NewAmount(1200)},
			},
		}
		if err := svc.SaveProfile(ctx, tenantID, profile); err != nil {
			t.Fatalf("SaveProfile failed: %v", err)
		}

		got, err := svc.Profile(ctx, tenantID, "cust-001")
		if err != nil {
			t.Fatalf("Profile failed: %v", err)
		}
		if len(got.Claims) != 1 {
			t.Errorf("expected 1 claim, got %d", len(got.Claims))
		}
	})

	t.Run("DefaultThresholds", func(t *testing.T) {
		th, err := svc.Thresholds(ctx, "tenant-new")
		if err != nil {
			t.Fatalf("Thresholds failed: %v", err)
		}
		if th != domain.DefaultThresholds() {
			t.Errorf("expected defaults, got %+v", th)
		}
	})

	t.Run("StoredThresholdsFillDefaults", func(t *testing.T) {
		if err := svc.SaveThresholds(ctx, tenantID, domain.ThresholdConfig{LossRatioSevere: 180}); err != nil {
			t.Fatalf("SaveThresholds failed: %v", err)
		}
		th, err := svc.Thresholds(ctx, tenantID)
		if err != nil {
			t.Fatalf("Thresholds failed: %v", err)
		}
		if th.LossRatioSevere != 180 {
			t.Errorf("expected LossRatioSevere 180, got %.0f", th.LossRatioSevere)
		}
		if th.MinClaimsForHigh != domain.DefaultThresholds().MinClaimsForHigh {
			t.Errorf("expected default MinClaimsForHigh, got %d", th.MinClaimsForHigh)
		}
	})

	t.Run("SaveInvalidatesCache", func(t *testing.T) {
		if _, err := svc.Thresholds(ctx, tenantID); err != nil {
			t.Fatalf("Thresholds failed: %v", err)
		}
		if err := svc.SaveThresholds(ctx, tenantID, domain.ThresholdConfig{LossRatioSevere: 200}); err != nil {
			t.Fatalf("SaveThresholds failed: %v", err)
		}
		th, _ := svc.Thresholds(ctx, tenantID)
		if th.LossRatioSevere != 200 {
			t.Errorf("expected fresh thresholds after save, got %.0f", th.LossRatioSevere)
		}
	})

	t.Run("Request", func(t *testing.T) {
		asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		req, err := svc.Request(ctx, tenantID, "cust-001", asOf, domain.MethodSimple)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if req.Profile == nil || req.Profile.CustomerID != "cust-001" {
			t.Errorf("unexpected profile: %+v", req.Profile)
		}
		if req.Thresholds.LossRatioSevere != 200 || !req.AsOf.Equal(asOf) || req.Method != domain.MethodSimple {
			t.Errorf("unexpected request: %+v", req)
		}

		if _, err := svc.Request(ctx, tenantID, "cust-404", asOf, ""); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RequiresIDs", func(t *testing.T) {
		if _, err := svc.Profile(ctx, "", "cust-001"); !errors.Is(err, repository.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := svc.Thresholds(ctx, ""); !errors.Is(err, repository.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := svc.SaveProfile(ctx, tenantID, nil); !errors.Is(err, repository.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestNoRepository(t *testing.T) {
	svc := NewService(nil, nil)
	ctx := context.Background()

	if _, err := svc.Profile(ctx, "tenant-001", "cust-001"); !errors.Is(err, ErrNoRepository) {
		t.Errorf("expected ErrNoRepository, got %v", err)
	}
	th, err := svc.Thresholds(ctx, "tenant-001")
	if err != nil || th != domain.DefaultThresholds() {
		t.Errorf("expected defaults without repository, got %+v (err=%v)", th, err)
	}
}
