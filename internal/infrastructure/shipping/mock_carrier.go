package shipping

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/domain/shipping"
)

// MockName is the registry key of the mock carrier
const MockName = "mock"

// MockCarrier is an in-memory carrier for development and tests. Cost is
// BaseCost + PerKg*weight, doubled for express and tripled for overnight.
type MockCarrier struct {
	ProviderName string
	Caps         shipping.Capabilities
	BaseCost     decimal.Decimal
	PerKg        decimal.Decimal
	Days         int
	// Delay simulates a slow upstream; it honours ctx cancellation
	Delay time.Duration
	// Err, when set, is returned by every call
	Err error

	mu       sync.Mutex
	waybills map[string]shipping.Waybill
	seq      int
}

// NewMockCarrier creates a mock carrier with generous capabilities
func NewMockCarrier() *MockCarrier {
	return &MockCarrier{
		ProviderName: MockName,
		Caps: shipping.Capabilities{
			MaxWeightKg:      100,
			ServiceTypes:     []shipping.ServiceType{shipping.ServiceStandard, shipping.ServiceExpress, shipping.ServiceOvernight},
			CollectionPoints: true,
		},
		BaseCost: decimal.NewFromInt(60),
		PerKg:    decimal.NewFromInt(5),
		Days:     3,
		waybills: make(map[string]shipping.Waybill),
	}
}

func (m *MockCarrier) Name() string                        { return m.ProviderName }
func (m *MockCarrier) DisplayName() string                 { return "Mock Carrier" }
func (m *MockCarrier) IsConfigured() bool                  { return true }
func (m *MockCarrier) Capabilities() shipping.Capabilities { return m.Caps }

func (m *MockCarrier) wait(ctx context.Context, op string) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return shared.NewUpstreamError(m.ProviderName, op, ctx.Err())
		}
	}
	return m.Err
}

// GetQuote prices the parcel from the configured rate card
func (m *MockCarrier) GetQuote(ctx context.Context, req *shipping.QuoteRequest) (*shipping.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := m.wait(ctx, "GetQuote"); err != nil {
		return nil, err
	}

	service := req.ServiceType
	if service == "" {
		service = shipping.ServiceStandard
	}
	cost := m.BaseCost.Add(m.PerKg.Mul(decimal.NewFromFloat(req.WeightKg)))
	days := m.Days
	switch service {
	case shipping.ServiceExpress:
		cost = cost.Mul(decimal.NewFromInt(2))
		days = max(1, days/2)
	case shipping.ServiceOvernight:
		cost = cost.Mul(decimal.NewFromInt(3))
		days = 1
	}

	q := &shipping.Quote{
		Provider:      m.ProviderName,
		ServiceType:   service,
		EstimatedDays: days,
		Cost:          cost.Round(2),
		Currency:      "ZAR",
	}
	if req.CollectionPointID != "" {
		q.CollectionPoint = &shipping.CollectionPoint{ID: req.CollectionPointID}
	}
	return q, nil
}

// CreateWaybill issues a sequential waybill number
func (m *MockCarrier) CreateWaybill(ctx context.Context, req *shipping.WaybillRequest) (*shipping.Waybill, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	q, err := m.GetQuote(ctx, &req.Quote)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	wb := shipping.Waybill{
		Provider:      m.ProviderName,
		WaybillNumber: fmt.Sprintf("MOCK%06d", m.seq),
		Cost:          q.Cost,
		Currency:      q.Currency,
		EstimatedDays: q.EstimatedDays,
	}
	m.waybills[wb.WaybillNumber] = wb
	return &wb, nil
}

// Track reports a booked waybill as in transit
func (m *MockCarrier) Track(ctx context.Context, waybillNumber string) (*shipping.TrackingInfo, error) {
	if err := m.wait(ctx, "Track"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	_, ok := m.waybills[waybillNumber]
	m.mu.Unlock()
	if !ok {
		return nil, shared.NewNotFoundError(fmt.Sprintf("mock: waybill %s not found", waybillNumber))
	}
	return &shipping.TrackingInfo{
		Provider:      m.ProviderName,
		WaybillNumber: waybillNumber,
		Status:        "in_transit",
	}, nil
}

// Cancel forgets a booked waybill
func (m *MockCarrier) Cancel(ctx context.Context, waybillNumber string) error {
	if err := m.wait(ctx, "Cancel"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.waybills[waybillNumber]; !ok {
		return shared.NewNotFoundError(fmt.Sprintf("mock: waybill %s not found", waybillNumber))
	}
	delete(m.waybills, waybillNumber)
	return nil
}

// SearchCollectionPoints returns two fixed points for any postal code
func (m *MockCarrier) SearchCollectionPoints(ctx context.Context, postalCode string) ([]shipping.CollectionPoint, error) {
	if strings.TrimSpace(postalCode) == "" {
		return nil, shared.NewValidationError("postal code is required")
	}
	if err := m.wait(ctx, "SearchCollectionPoints"); err != nil {
		return nil, err
	}
	near, far := 1.2, 4.8
	return []shipping.CollectionPoint{
		{ID: "MOCK-" + postalCode + "-1", Name: "Corner Pharmacy", Address: "1 Main Road", PostalCode: postalCode, DistanceKm: &near},
		{ID: "MOCK-" + postalCode + "-2", Name: "Fuel Stop", Address: "88 High Street", PostalCode: postalCode, DistanceKm: &far},
	}, nil
}

var _ shipping.Carrier = (*MockCarrier)(nil)
