package forecast

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestWithLoggingReportsWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	analyzer := WithLogging(NewEngine(DefaultTuning()), logger)

	profile := &domain.CustomerProfile{
		CustomerID: "logged",
		Claims: []domain.RawClaim{
			{ID: "1", Date: "2024-01-01", TotalCost: domain.NewAmount(100)},
			{ID: "2", Date: "never", TotalCost: domain.NewAmount(100)},
		},
	}
	f, err := analyzer.Analyze(context.Background(), Request{TenantID: "t1", Profile: profile, AsOf: ref})
	require.NoError(t, err)
	require.Len(t, f.Warnings, 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"data quality"`)
	assert.Contains(t, lines[0], `"code":"unparseable-date"`)
	assert.Contains(t, lines[0], `"customer_id":"logged"`)
	assert.Contains(t, lines[1], `"msg":"forecast computed"`)
}

func TestWithLoggingPassesErrors(t *testing.T) {
	var buf bytes.Buffer
	analyzer := WithLogging(NewEngine(Tuning{}), slog.New(slog.NewTextHandler(&buf, nil)))

	_, err := analyzer.Analyze(context.Background(), Request{AsOf: ref})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, buf.String(), "forecast failed")
}

func TestWithTracing(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	analyzer := WithTracing(WithLogging(NewEngine(DefaultTuning()), nil), tracer)

	profile := &domain.CustomerProfile{Claims: rawClaimsAt(ref, 0, 20, 40)}
	f, err := analyzer.Analyze(context.Background(), Request{Profile: profile, AsOf: ref.AddDate(0, 2, 0)})
	require.NoError(t, err)
	assert.Equal(t, 3, f.Data.Claims)

	plain, err := NewEngine(DefaultTuning()).Analyze(context.Background(), Request{Profile: profile, AsOf: ref.AddDate(0, 2, 0)})
	require.NoError(t, err)
	assert.Equal(t, plain, f)

	_, err = analyzer.Analyze(context.Background(), Request{Profile: profile, AsOf: time.Time{}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
