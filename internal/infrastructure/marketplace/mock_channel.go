package marketplace

import (
	"context"
	"fmt"
	"sync"

	"github.com/storeops/backend/internal/domain/marketplace"
	"github.com/storeops/backend/internal/domain/shared"
)

// MockName is the registry key of the mock channel
const MockName = "mock"

// MockChannel keeps listings and stock in memory
type MockChannel struct {
	ProviderName string
	// Err, when set, is returned by every call
	Err error

	mu       sync.Mutex
	listings map[string]marketplace.Listing
	stock    map[string]int
	orders   []marketplace.ChannelOrder
}

// NewMockChannel creates an empty mock channel
func NewMockChannel() *MockChannel {
	return &MockChannel{
		ProviderName: MockName,
		listings:     make(map[string]marketplace.Listing),
		stock:        make(map[string]int),
	}
}

func (m *MockChannel) Name() string        { return m.ProviderName }
func (m *MockChannel) DisplayName() string { return "Mock Marketplace" }
func (m *MockChannel) IsConfigured() bool  { return true }

// PushListing stores the listing keyed by SKU
func (m *MockChannel) PushListing(ctx context.Context, listing *marketplace.Listing) (*marketplace.ListingResult, error) {
	if err := listing.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: m.ProviderName, Op: "PushListing", Message: "invalid listing", Err: err}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[listing.SKU] = *listing
	m.stock[listing.SKU] = listing.Quantity
	return &marketplace.ListingResult{
		Channel: m.ProviderName,
		SKU:     listing.SKU,
		OfferID: fmt.Sprintf("%s-%s", m.ProviderName, listing.SKU),
		Status:  "active",
	}, nil
}

// UpdateInventory sets stock; unknown SKUs are reported as failed
func (m *MockChannel) UpdateInventory(ctx context.Context, updates []marketplace.InventoryUpdate) (*marketplace.SyncResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &marketplace.SyncResult{Channel: m.ProviderName}
	for _, u := range updates {
		if _, ok := m.listings[u.SKU]; !ok {
			result.Failed = append(result.Failed, u.SKU)
			continue
		}
		m.stock[u.SKU] = u.Quantity
		result.Updated++
	}
	result.Succeeded = len(result.Failed) == 0
	return result, nil
}

// PullOrders returns seeded orders placed inside the window
func (m *MockChannel) PullOrders(ctx context.Context, req *marketplace.OrderPullRequest) ([]marketplace.ChannelOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: m.ProviderName, Op: "PullOrders", Message: "invalid order window", Err: err}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []marketplace.ChannelOrder
	for _, o := range m.orders {
		if !o.PlacedAt.Before(req.Since) && o.PlacedAt.Before(req.Until) {
			out = append(out, o)
		}
	}
	return out, nil
}

// SeedOrder adds an order for PullOrders to return
func (m *MockChannel) SeedOrder(o marketplace.ChannelOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.Channel = m.ProviderName
	m.orders = append(m.orders, o)
}

// Stock returns the quantity last set for sku
func (m *MockChannel) Stock(sku string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.stock[sku]
	return q, ok
}

var _ marketplace.Channel = (*MockChannel)(nil)
