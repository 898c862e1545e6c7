// Package supplier contains the port for upstream suppliers the store
// sources stock from, typically dropshipping wholesalers.
package supplier

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/integration"
)

var (
	ErrInvalidSKU      = errors.New("supplier: SKU is required")
	ErrInvalidQuantity = errors.New("supplier: quantity must be positive")
	ErrNoLines         = errors.New("supplier: purchase order has no lines")
)

// StockLevel is a supplier's availability and cost for one SKU
type StockLevel struct {
	Supplier  string
	SKU       string
	Available int
	UnitCost  decimal.Decimal
	Currency  string
	LeadDays  int
}

// CanFulfil reports whether the supplier holds at least qty units
func (s StockLevel) CanFulfil(qty int) bool {
	return s.Available >= qty
}

// PurchaseLine is one line of a purchase order
type PurchaseLine struct {
	SKU      string
	Quantity int
}

// PurchaseOrder asks a supplier to ship stock, optionally directly to a customer
type PurchaseOrder struct {
	Reference string
	Lines     []PurchaseLine
	ShipTo    string
}

// Validate validates the purchase order
func (p *PurchaseOrder) Validate() error {
	if len(p.Lines) == 0 {
		return ErrNoLines
	}
	for _, l := range p.Lines {
		if strings.TrimSpace(l.SKU) == "" {
			return ErrInvalidSKU
		}
		if l.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// PurchaseConfirmation is the supplier's acknowledgement of a purchase order
type PurchaseConfirmation struct {
	Supplier        string
	SupplierOrderID string
	Status          string
}

// Supplier is the capability set every supplier backend implements
type Supplier interface {
	integration.Provider

	CheckStock(ctx context.Context, sku string) (*StockLevel, error)
	PlaceOrder(ctx context.Context, po *PurchaseOrder) (*PurchaseConfirmation, error)
}

// Registry is the supplier-domain provider registry
type Registry = integration.Registry[Supplier]

// NewRegistry creates an empty supplier registry
func NewRegistry(opts ...integration.RegistryOption) *Registry {
	return integration.NewRegistry[Supplier](integration.DomainSupplier, opts...)
}
