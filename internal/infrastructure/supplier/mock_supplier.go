package supplier

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/domain/supplier"
)

// MockName is the registry key of the mock supplier
const MockName = "mock"

// MockSupplier serves stock from an in-memory catalogue
type MockSupplier struct {
	ProviderName string
	// Err, when set, is returned by every call
	Err error

	mu     sync.Mutex
	stock  map[string]supplier.StockLevel
	orders []supplier.PurchaseOrder
}

// NewMockSupplier creates a mock supplier with an empty catalogue
func NewMockSupplier() *MockSupplier {
	return &MockSupplier{ProviderName: MockName, stock: make(map[string]supplier.StockLevel)}
}

func (m *MockSupplier) Name() string        { return m.ProviderName }
func (m *MockSupplier) DisplayName() string { return "Mock Supplier" }
func (m *MockSupplier) IsConfigured() bool  { return true }

// SetStock adds or replaces a catalogue entry
func (m *MockSupplier) SetStock(sku string, available int, unitCost decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[sku] = supplier.StockLevel{
		Supplier:  m.ProviderName,
		SKU:       sku,
		Available: available,
		UnitCost:  unitCost,
		Currency:  "ZAR",
		LeadDays:  2,
	}
}

// CheckStock returns the catalogue entry for sku
func (m *MockSupplier) CheckStock(ctx context.Context, sku string) (*supplier.StockLevel, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stock[sku]
	if !ok {
		return nil, shared.NewNotFoundError(fmt.Sprintf("%s: SKU %s not stocked", m.ProviderName, sku))
	}
	return &s, nil
}

// PlaceOrder records the order and reserves its stock
func (m *MockSupplier) PlaceOrder(ctx context.Context, po *supplier.PurchaseOrder) (*supplier.PurchaseConfirmation, error) {
	if err := po.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: m.ProviderName, Op: "PlaceOrder", Message: "invalid purchase order", Err: err}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range po.Lines {
		s, ok := m.stock[l.SKU]
		if !ok || !s.CanFulfil(l.Quantity) {
			return nil, shared.NewUpstreamError(m.ProviderName, "PlaceOrder", fmt.Errorf("insufficient stock for %s", l.SKU))
		}
	}
	for _, l := range po.Lines {
		s := m.stock[l.SKU]
		s.Available -= l.Quantity
		m.stock[l.SKU] = s
	}
	m.orders = append(m.orders, *po)
	return &supplier.PurchaseConfirmation{
		Supplier:        m.ProviderName,
		SupplierOrderID: fmt.Sprintf("MOCK-PO-%d", len(m.orders)),
		Status:          "accepted",
	}, nil
}

var _ supplier.Supplier = (*MockSupplier)(nil)
