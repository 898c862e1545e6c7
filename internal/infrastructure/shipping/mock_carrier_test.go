package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/domain/shipping"
)

func TestMockCarrier_Pricing(t *testing.T) {
	m := NewMockCarrier()
	req := testQuoteRequest()
	req.WeightKg = 4

	q, err := m.GetQuote(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(q.Cost))
	assert.Equal(t, 3, q.EstimatedDays)

	req.ServiceType = shipping.ServiceOvernight
	q, err = m.GetQuote(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(240).Equal(q.Cost))
	assert.Equal(t, 1, q.EstimatedDays)
}

func TestMockCarrier_WaybillLifecycle(t *testing.T) {
	m := NewMockCarrier()
	wb, err := m.CreateWaybill(context.Background(), &shipping.WaybillRequest{
		Quote: *testQuoteRequest(), Reference: "SO-1", Recipient: shipping.Party{Name: "Sipho"},
	})
	require.NoError(t, err)
	assert.Equal(t, "MOCK000001", wb.WaybillNumber)

	_, err = m.Track(context.Background(), wb.WaybillNumber)
	require.NoError(t, err)
	require.NoError(t, m.Cancel(context.Background(), wb.WaybillNumber))

	_, err = m.Track(context.Background(), wb.WaybillNumber)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestMockCarrier_DelayHonoursContext(t *testing.T) {
	m := NewMockCarrier()
	m.Delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.GetQuote(ctx, testQuoteRequest())
	assert.True(t, shared.IsKind(err, shared.KindUpstream))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
