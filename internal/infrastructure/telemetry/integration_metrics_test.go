package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/storeops/backend/internal/domain/shared"
)

func newTestMetrics(t *testing.T) (*IntegrationMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewIntegrationMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func findSum(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				return sum
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return metricdata.Sum[int64]{}
}

func TestIntegrationMetrics_ObserveProviderCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ObserveProviderCall(ctx, "shipping", "pargo", "GetQuote", 120*time.Millisecond, nil)
	m.ObserveProviderCall(ctx, "shipping", "pargo", "GetQuote", time.Second,
		shared.NewUpstreamError("pargo", "GetQuote", errors.New("503")))

	sum := findSum(t, reader, "integration_provider_calls_total")
	require.Len(t, sum.DataPoints, 2)

	var errPoint *metricdata.DataPoint[int64]
	for i := range sum.DataPoints {
		if v, ok := sum.DataPoints[i].Attributes.Value(AttrOutcome); ok && v.AsString() == OutcomeError {
			errPoint = &sum.DataPoints[i]
		}
	}
	require.NotNil(t, errPoint)
	kind, _ := errPoint.Attributes.Value(AttrErrorKind)
	assert.Equal(t, "UPSTREAM", kind.AsString())
	assert.Equal(t, int64(1), errPoint.Value)
}

func TestIntegrationMetrics_ObserveWebhook(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ObserveWebhook(ctx, "payfast", OutcomeRejected)
	m.ObserveWebhook(ctx, "payfast", OutcomeRejected)

	sum := findSum(t, reader, "integration_webhook_deliveries_total")
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	assert.Equal(t, attribute.NewSet(AttrProvider.String("payfast"), AttrOutcome.String(OutcomeRejected)), sum.DataPoints[0].Attributes)
}

func TestIntegrationMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *IntegrationMetrics
	assert.NotPanics(t, func() {
		m.ObserveWebhook(context.Background(), "x", OutcomeSuccess)
		m.ObserveConversion(context.Background(), nil)
		m.ObserveExpired(context.Background(), 3)
	})
}
