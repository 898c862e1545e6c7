package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/domain/shipping"
)

// =============================================================================
// Mock Carrier
// =============================================================================

type MockCarrier struct {
	mock.Mock
	name       string
	configured bool
	caps       shipping.Capabilities
}

func newMockCarrier(name string, caps shipping.Capabilities) *MockCarrier {
	return &MockCarrier{name: name, configured: true, caps: caps}
}

func (m *MockCarrier) Name() string                        { return m.name }
func (m *MockCarrier) DisplayName() string                 { return m.name }
func (m *MockCarrier) IsConfigured() bool                  { return m.configured }
func (m *MockCarrier) Capabilities() shipping.Capabilities { return m.caps }

func (m *MockCarrier) GetQuote(ctx context.Context, req *shipping.QuoteRequest) (*shipping.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Quote), args.Error(1)
}

func (m *MockCarrier) CreateWaybill(ctx context.Context, req *shipping.WaybillRequest) (*shipping.Waybill, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Waybill), args.Error(1)
}

func (m *MockCarrier) Track(ctx context.Context, waybillNumber string) (*shipping.TrackingInfo, error) {
	args := m.Called(ctx, waybillNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.TrackingInfo), args.Error(1)
}

func (m *MockCarrier) Cancel(ctx context.Context, waybillNumber string) error {
	args := m.Called(ctx, waybillNumber)
	return args.Error(0)
}

func (m *MockCarrier) SearchCollectionPoints(ctx context.Context, postalCode string) ([]shipping.CollectionPoint, error) {
	args := m.Called(ctx, postalCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.CollectionPoint), args.Error(1)
}

// =============================================================================
// Fixtures
// =============================================================================

var (
	allServices = []shipping.ServiceType{shipping.ServiceStandard, shipping.ServiceExpress, shipping.ServiceOvernight}

	heavyCaps   = shipping.Capabilities{MaxWeightKg: 70, ServiceTypes: allServices, HeavyFreight: true}
	pickupCaps  = shipping.Capabilities{MaxWeightKg: 20, ServiceTypes: []shipping.ServiceType{shipping.ServiceStandard}, CollectionPoints: true}
	courierCaps = shipping.Capabilities{MaxWeightKg: 30, ServiceTypes: allServices}
)

func quoteRequest(weight float64) *shipping.QuoteRequest {
	return &shipping.QuoteRequest{
		Origin:      shipping.Address{City: "Cape Town", Province: "Western Cape", PostalCode: "8001"},
		Destination: shipping.Address{City: "Durban", Province: "KwaZulu-Natal", PostalCode: "4001"},
		WeightKg:    weight,
	}
}

func quote(provider, cost string, days int) *shipping.Quote {
	return &shipping.Quote{
		Provider:      provider,
		ServiceType:   shipping.ServiceStandard,
		EstimatedDays: days,
		Cost:          decimal.RequireFromString(cost),
		Currency:      "ZAR",
	}
}

func newAggregator(opts []integration.RegistryOption, carriers ...shipping.Carrier) *Aggregator {
	reg := shipping.NewRegistry(opts...)
	for _, c := range carriers {
		reg.Register(c)
	}
	return NewAggregator(AggregatorConfig{Registry: reg, ProviderTimeout: 200 * time.Millisecond, MaxFanOut: 2})
}

// =============================================================================
// GetAllQuotes / GetBestQuote
// =============================================================================

func TestAggregator_GetAllQuotes_FiltersByCapabilities(t *testing.T) {
	heavy := newMockCarrier("heavy", heavyCaps)
	pickup := newMockCarrier("pickup", pickupCaps)
	heavy.On("GetQuote", mock.Anything, mock.Anything).Return(quote("heavy", "250.00", 3), nil)

	agg := newAggregator(nil, heavy, pickup)
	quotes, err := agg.GetAllQuotes(context.Background(), quoteRequest(25))

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "heavy", quotes[0].Provider)
	pickup.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestAggregator_GetAllQuotes_ServiceTypeFilter(t *testing.T) {
	heavy := newMockCarrier("heavy", heavyCaps)
	pickup := newMockCarrier("pickup", pickupCaps)
	heavy.On("GetQuote", mock.Anything, mock.Anything).Return(quote("heavy", "400.00", 1), nil)

	req := quoteRequest(2)
	req.ServiceType = shipping.ServiceOvernight
	quotes, err := newAggregator(nil, heavy, pickup).GetAllQuotes(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	pickup.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestAggregator_GetAllQuotes_DropsFailuresAndTimeouts(t *testing.T) {
	ok := newMockCarrier("ok", courierCaps)
	failing := newMockCarrier("failing", courierCaps)
	slow := newMockCarrier("slow", courierCaps)
	empty := newMockCarrier("empty", courierCaps)

	ok.On("GetQuote", mock.Anything, mock.Anything).Return(quote("ok", "99.00", 2), nil)
	failing.On("GetQuote", mock.Anything, mock.Anything).Return(nil, shared.NewUpstreamError("failing", "GetQuote", errors.New("503")))
	slow.On("GetQuote", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	empty.On("GetQuote", mock.Anything, mock.Anything).Return(nil, nil)

	quotes, err := newAggregator(nil, ok, failing, slow, empty).GetAllQuotes(context.Background(), quoteRequest(5))

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "ok", quotes[0].Provider)
}

func TestAggregator_GetAllQuotes_InvalidRequest(t *testing.T) {
	c := newMockCarrier("c", courierCaps)
	_, err := newAggregator(nil, c).GetAllQuotes(context.Background(), quoteRequest(-1))

	assert.True(t, shared.IsKind(err, shared.KindValidation))
	c.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestAggregator_GetAllQuotes_SkipsUnconfigured(t *testing.T) {
	c := newMockCarrier("c", courierCaps)
	c.configured = false

	quotes, err := newAggregator(nil, c).GetAllQuotes(context.Background(), quoteRequest(1))
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestAggregator_GetBestQuote(t *testing.T) {
	a := newMockCarrier("a", courierCaps)
	b := newMockCarrier("b", courierCaps)
	c := newMockCarrier("c", courierCaps)
	a.On("GetQuote", mock.Anything, mock.Anything).Return(quote("a", "120.00", 2), nil)
	b.On("GetQuote", mock.Anything, mock.Anything).Return(quote("b", "95.00", 4), nil)
	c.On("GetQuote", mock.Anything, mock.Anything).Return(quote("c", "95.00", 2), nil)
	agg := newAggregator(nil, a, b, c)

	cheapest, err := agg.GetBestQuote(context.Background(), quoteRequest(1), shipping.PreferCheapest)
	require.NoError(t, err)
	assert.Equal(t, "b", cheapest.Provider, "tie keeps the carrier registered first")

	fastest, err := agg.GetBestQuote(context.Background(), quoteRequest(1), shipping.PreferFastest)
	require.NoError(t, err)
	assert.Equal(t, "a", fastest.Provider)

	_, err = agg.GetBestQuote(context.Background(), quoteRequest(1), "slowest")
	assert.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestAggregator_GetBestQuote_NoneIsNotFound(t *testing.T) {
	a := newMockCarrier("a", courierCaps)
	a.On("GetQuote", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	_, err := newAggregator(nil, a).GetBestQuote(context.Background(), quoteRequest(1), shipping.PreferCheapest)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

// =============================================================================
// AutoCarrier / single-carrier operations
// =============================================================================

func TestAggregator_AutoCarrier(t *testing.T) {
	courier := newMockCarrier("courier", courierCaps)
	pickup := newMockCarrier("pickup", pickupCaps)
	heavy := newMockCarrier("heavy", heavyCaps)
	agg := newAggregator([]integration.RegistryOption{integration.WithDefault("courier")}, courier, pickup, heavy)

	tests := []struct {
		name string
		req  func() *shipping.QuoteRequest
		want string
	}{
		{"heavy parcel", func() *shipping.QuoteRequest { return quoteRequest(20.5) }, "heavy"},
		{"exactly the threshold is not heavy", func() *shipping.QuoteRequest { return quoteRequest(20) }, "courier"},
		{"collection point", func() *shipping.QuoteRequest {
			r := quoteRequest(2)
			r.CollectionPointID = "pup123"
			return r
		}, "pickup"},
		{"heavy wins over collection point", func() *shipping.QuoteRequest {
			r := quoteRequest(30)
			r.CollectionPointID = "pup123"
			return r
		}, "heavy"},
		{"default", func() *shipping.QuoteRequest { return quoteRequest(2) }, "courier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := agg.AutoCarrier(tt.req())
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name())
		})
	}
}

func TestAggregator_AutoCarrier_Fallbacks(t *testing.T) {
	t.Run("first configured when default is unconfigured", func(t *testing.T) {
		courier := newMockCarrier("courier", courierCaps)
		courier.configured = false
		pickup := newMockCarrier("pickup", pickupCaps)
		agg := newAggregator([]integration.RegistryOption{integration.WithDefault("courier")}, courier, pickup)

		c, err := agg.AutoCarrier(quoteRequest(50))
		require.NoError(t, err)
		assert.Equal(t, "pickup", c.Name())
	})

	t.Run("nothing configured", func(t *testing.T) {
		courier := newMockCarrier("courier", courierCaps)
		courier.configured = false
		_, err := newAggregator(nil, courier).AutoCarrier(quoteRequest(1))
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})
}

func TestAggregator_CreateWaybill(t *testing.T) {
	courier := newMockCarrier("courier", courierCaps)
	heavy := newMockCarrier("heavy", heavyCaps)
	heavy.On("CreateWaybill", mock.Anything, mock.Anything).Return(&shipping.Waybill{Provider: "heavy", WaybillNumber: "H1"}, nil)
	courier.On("CreateWaybill", mock.Anything, mock.Anything).Return(&shipping.Waybill{Provider: "courier", WaybillNumber: "C1"}, nil)
	agg := newAggregator(nil, courier, heavy)

	req := &shipping.WaybillRequest{Quote: *quoteRequest(40), Reference: "SO-1", Recipient: shipping.Party{Name: "Ayanda"}}

	wb, err := agg.CreateWaybill(context.Background(), "", req)
	require.NoError(t, err)
	assert.Equal(t, "H1", wb.WaybillNumber)

	wb, err = agg.CreateWaybill(context.Background(), "courier", req)
	require.NoError(t, err)
	assert.Equal(t, "C1", wb.WaybillNumber)

	_, err = agg.CreateWaybill(context.Background(), "nope", req)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestAggregator_SingleCarrierErrorsSurface(t *testing.T) {
	courier := newMockCarrier("courier", courierCaps)
	upstreamErr := shared.NewUpstreamError("courier", "Track", errors.New("502"))
	courier.On("Track", mock.Anything, "W1").Return(nil, upstreamErr)
	courier.On("Cancel", mock.Anything, "W1").Return(nil)
	agg := newAggregator(nil, courier)

	_, err := agg.Track(context.Background(), "courier", "W1")
	assert.ErrorIs(t, err, upstreamErr)
	assert.NoError(t, agg.Cancel(context.Background(), "courier", "W1"))

	courier.configured = false
	_, err = agg.SearchCollectionPoints(context.Background(), "courier", "8001")
	assert.True(t, shared.IsKind(err, shared.KindConfiguration))
}

func TestAggregator_Carriers(t *testing.T) {
	agg := newAggregator([]integration.RegistryOption{integration.WithDefault("pickup")},
		newMockCarrier("courier", courierCaps), newMockCarrier("pickup", pickupCaps))

	infos := agg.Carriers()
	require.Len(t, infos, 2)
	assert.Equal(t, "courier", infos[0].Name)
	assert.False(t, infos[0].Default)
	assert.True(t, infos[1].Default)
	assert.True(t, infos[1].Capabilities.CollectionPoints)
}
