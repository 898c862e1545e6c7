// Package marketplace contains the sales-channel port for third-party
// marketplaces the store lists products on.
//
// Design Pattern: Ports & Adapters
//   - Channel (port) is defined here
//   - Adapters (takealot, mock) are in the infrastructure layer
package marketplace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/integration"
)

var (
	ErrListingInvalidSKU    = errors.New("marketplace: listing SKU is required")
	ErrListingInvalidTitle  = errors.New("marketplace: listing title is required")
	ErrListingInvalidPrice  = errors.New("marketplace: listing price must be positive")
	ErrInventoryInvalidSKU  = errors.New("marketplace: inventory SKU is required")
	ErrInventoryNegativeQty = errors.New("marketplace: inventory quantity must not be negative")
	ErrPullInvalidRange     = errors.New("marketplace: start time must be before end time")
)

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

// Listing is a product offer published on a channel
type Listing struct {
	// SKU is the store's stock keeping unit, used as the offer key
	SKU string
	// Title is the offer title shown to buyers
	Title string
	// Price is the selling price including tax
	Price decimal.Decimal
	// Quantity is the stock made available on the channel
	Quantity int
	// Barcode is the GTIN/EAN where the channel requires one
	Barcode string
}

// Validate validates the listing
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.SKU) == "" {
		return ErrListingInvalidSKU
	}
	if strings.TrimSpace(l.Title) == "" {
		return ErrListingInvalidTitle
	}
	if !l.Price.IsPositive() {
		return ErrListingInvalidPrice
	}
	return nil
}

// ListingResult is the channel's identifier for a published offer
type ListingResult struct {
	Channel string
	SKU     string
	OfferID string
	Status  string
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// InventoryUpdate sets the sellable quantity of one SKU
type InventoryUpdate struct {
	SKU      string
	Quantity int
}

// Validate validates the inventory update
func (u InventoryUpdate) Validate() error {
	if strings.TrimSpace(u.SKU) == "" {
		return ErrInventoryInvalidSKU
	}
	if u.Quantity < 0 {
		return ErrInventoryNegativeQty
	}
	return nil
}

// SyncResult reports how one channel handled a batch
type SyncResult struct {
	Channel   string   `json:"channel"`
	Updated   int      `json:"updated"`
	Failed    []string `json:"failed,omitempty"`
	Error     string   `json:"error,omitempty"`
	Succeeded bool     `json:"succeeded"`
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// OrderLine is one line of a marketplace order
type OrderLine struct {
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

// ChannelOrder is an order placed by a buyer on a channel
type ChannelOrder struct {
	Channel      string
	OrderID      string
	Status       string
	BuyerName    string
	Total        decimal.Decimal
	Currency     string
	Lines        []OrderLine
	PlacedAt     time.Time
	ShipToCity   string
	ShipToPostal string
}

// OrderPullRequest selects orders placed in a time window
type OrderPullRequest struct {
	Since time.Time
	Until time.Time
	Page  int
}

// Validate validates the pull request and applies defaults
func (r *OrderPullRequest) Validate() error {
	if r.Until.IsZero() {
		r.Until = time.Now()
	}
	if !r.Since.Before(r.Until) {
		return ErrPullInvalidRange
	}
	if r.Page < 1 {
		r.Page = 1
	}
	return nil
}

// ---------------------------------------------------------------------------
// Port
// ---------------------------------------------------------------------------

// Channel is the capability set every marketplace backend implements
type Channel interface {
	integration.Provider

	PushListing(ctx context.Context, listing *Listing) (*ListingResult, error)
	UpdateInventory(ctx context.Context, updates []InventoryUpdate) (*SyncResult, error)
	PullOrders(ctx context.Context, req *OrderPullRequest) ([]ChannelOrder, error)
}

// Registry is the marketplace-domain provider registry
type Registry = integration.Registry[Channel]

// NewRegistry creates an empty marketplace registry
func NewRegistry(opts ...integration.RegistryOption) *Registry {
	return integration.NewRegistry[Channel](integration.DomainMarketplace, opts...)
}
