package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/supplier"
)

// SourcingService checks supplier stock and places purchase orders
type SourcingService interface {
	FindStock(ctx context.Context, sku string, qty int) ([]supplier.StockLevel, error)
	PlaceOrder(ctx context.Context, supplierName string, po *supplier.PurchaseOrder) (*supplier.PurchaseConfirmation, error)
}

// SupplierHandler serves the drop-ship supplier endpoints
type SupplierHandler struct {
	BaseHandler
	sourcing SourcingService
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(sourcing SourcingService) *SupplierHandler {
	return &SupplierHandler{sourcing: sourcing}
}

// StockQuery is the quantity a buyer needs
type StockQuery struct {
	Quantity int `form:"quantity" binding:"omitempty,min=1"`
}

// StockLevelResponse is one supplier's stock for a SKU
type StockLevelResponse struct {
	Supplier  string          `json:"supplier"`
	SKU       string          `json:"sku"`
	Available int             `json:"available"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Currency  string          `json:"currency"`
	LeadDays  int             `json:"lead_days"`
}

// PurchaseLineRequest is one line of a purchase order
type PurchaseLineRequest struct {
	SKU      string `json:"sku" binding:"required,max=64"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// PurchaseOrderRequest places an order with one supplier
type PurchaseOrderRequest struct {
	Reference string                `json:"reference" binding:"required,max=64"`
	Lines     []PurchaseLineRequest `json:"lines" binding:"required,min=1,dive"`
	ShipTo    string                `json:"ship_to" binding:"max=500"`
}

// PurchaseConfirmationResponse is the supplier's acknowledgement
type PurchaseConfirmationResponse struct {
	Supplier        string `json:"supplier"`
	SupplierOrderID string `json:"supplier_order_id"`
	Status          string `json:"status"`
}

// Stock lists suppliers holding the SKU, cheapest first.
//
// GET /suppliers/stock/:sku?quantity=
func (h *SupplierHandler) Stock(c *gin.Context) {
	var q StockQuery
	if !bindQuery(c, &q) {
		return
	}
	if q.Quantity == 0 {
		q.Quantity = 1
	}
	levels, err := h.sourcing.FindStock(c.Request.Context(), c.Param("sku"), q.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]StockLevelResponse, len(levels))
	for i, l := range levels {
		out[i] = StockLevelResponse{
			Supplier:  l.Supplier,
			SKU:       l.SKU,
			Available: l.Available,
			UnitCost:  l.UnitCost,
			Currency:  l.Currency,
			LeadDays:  l.LeadDays,
		}
	}
	h.Success(c, out)
}

// PlaceOrder sends a purchase order to the named supplier.
//
// POST /suppliers/:supplier/orders
func (h *SupplierHandler) PlaceOrder(c *gin.Context) {
	var req PurchaseOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	po := &supplier.PurchaseOrder{
		Reference: req.Reference,
		Lines:     make([]supplier.PurchaseLine, len(req.Lines)),
		ShipTo:    req.ShipTo,
	}
	for i, l := range req.Lines {
		po.Lines[i] = supplier.PurchaseLine{SKU: l.SKU, Quantity: l.Quantity}
	}
	conf, err := h.sourcing.PlaceOrder(c.Request.Context(), c.Param("supplier"), po)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, PurchaseConfirmationResponse{
		Supplier:        conf.Supplier,
		SupplierOrderID: conf.SupplierOrderID,
		Status:          conf.Status,
	})
}
