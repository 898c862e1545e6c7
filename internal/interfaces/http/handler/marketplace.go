package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/marketplace"
	csvimport "github.com/storeops/backend/internal/infrastructure/import"
	"github.com/storeops/backend/internal/interfaces/http/dto"
	"github.com/storeops/backend/internal/interfaces/http/middleware"
)

// maxSheetRows bounds one uploaded stock sheet
const maxSheetRows = 5000

// MarketplaceService fans inventory and listings out to sales channels
type MarketplaceService interface {
	SyncInventory(ctx context.Context, updates []marketplace.InventoryUpdate) ([]marketplace.SyncResult, error)
	PullOrders(ctx context.Context, channel string, req *marketplace.OrderPullRequest) ([]marketplace.ChannelOrder, error)
	PushListing(ctx context.Context, channel string, listing *marketplace.Listing) (*marketplace.ListingResult, error)
}

// MarketplaceHandler serves the marketplace channel endpoints
type MarketplaceHandler struct {
	BaseHandler
	channels MarketplaceService
}

// NewMarketplaceHandler creates a new MarketplaceHandler
func NewMarketplaceHandler(channels MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{channels: channels}
}

// InventoryItem is one SKU's available stock
type InventoryItem struct {
	SKU      string `json:"sku" binding:"required,max=64"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

// SyncInventoryRequest pushes stock levels to every configured channel
type SyncInventoryRequest struct {
	Items []InventoryItem `json:"items" binding:"required,min=1,max=500,dive"`
}

// OrdersQuery selects channel orders by placement time (RFC 3339)
type OrdersQuery struct {
	Since time.Time `form:"since" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Until time.Time `form:"until" time_format:"2006-01-02T15:04:05Z07:00"`
	Page  int       `form:"page" binding:"omitempty,min=1"`
}

// ListingRequest creates or updates an offer on a channel
type ListingRequest struct {
	SKU      string          `json:"sku" binding:"required,max=64"`
	Title    string          `json:"title" binding:"required,max=255"`
	Price    decimal.Decimal `json:"price" binding:"required,dgt0"`
	Quantity int             `json:"quantity" binding:"min=0"`
	Barcode  string          `json:"barcode" binding:"max=32"`
}

// ChannelOrderLineResponse is one line of a channel order
type ChannelOrderLineResponse struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ChannelOrderResponse is an order placed on a marketplace
type ChannelOrderResponse struct {
	Channel      string                     `json:"channel"`
	OrderID      string                     `json:"order_id"`
	Status       string                     `json:"status"`
	BuyerName    string                     `json:"buyer_name,omitempty"`
	Total        decimal.Decimal            `json:"total"`
	Currency     string                     `json:"currency"`
	Lines        []ChannelOrderLineResponse `json:"lines"`
	PlacedAt     time.Time                  `json:"placed_at"`
	ShipToCity   string                     `json:"ship_to_city,omitempty"`
	ShipToPostal string                     `json:"ship_to_postal,omitempty"`
}

// ListingResponse is the channel's answer to a listing push
type ListingResponse struct {
	Channel string `json:"channel"`
	SKU     string `json:"sku"`
	OfferID string `json:"offer_id"`
	Status  string `json:"status"`
}

// SyncInventory pushes stock levels to all channels. Per-channel failures
// are reported in the body, not as an error status.
//
// POST /marketplace/inventory
func (h *MarketplaceHandler) SyncInventory(c *gin.Context) {
	var req SyncInventoryRequest
	if !bindJSON(c, &req) {
		return
	}
	updates := make([]marketplace.InventoryUpdate, len(req.Items))
	for i, item := range req.Items {
		updates[i] = marketplace.InventoryUpdate{SKU: item.SKU, Quantity: item.Quantity}
	}
	results, err := h.channels.SyncInventory(c.Request.Context(), updates)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if results == nil {
		results = []marketplace.SyncResult{}
	}
	h.Success(c, results)
}

// InventoryImportResponse reports an uploaded stock sheet and its sync
type InventoryImportResponse struct {
	Rows    int                      `json:"rows"`
	Results []marketplace.SyncResult `json:"results"`
}

// ImportInventory reads a stock sheet (sku and quantity columns) from a
// multipart "file" field or a text/csv body and pushes it to all channels.
// Nothing is pushed when any row is rejected.
//
// POST /marketplace/inventory/import
func (h *MarketplaceHandler) ImportInventory(c *gin.Context) {
	body, closeBody, ok := h.sheetReader(c)
	if !ok {
		return
	}
	defer closeBody()

	var opts []csvimport.ParserOption
	if d := c.Query("delimiter"); d != "" {
		if len(d) != 1 {
			h.BadRequest(c, "Delimiter must be a single character")
			return
		}
		opts = append(opts, csvimport.WithDelimiter(rune(d[0])))
	}

	sheet, err := csvimport.ParseInventory(body, maxSheetRows, opts...)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "Stock sheet too large")
			return
		}
		h.BadRequest(c, err.Error())
		return
	}
	if !sheet.Valid() {
		details := make([]dto.ValidationDetail, len(sheet.Errors))
		for i, e := range sheet.Errors {
			details[i] = dto.ValidationDetail{
				Field:   fmt.Sprintf("row %d %s", e.Row, e.Column),
				Message: e.Message,
				Tag:     e.Code,
				Value:   e.Value,
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			fmt.Sprintf("%d row(s) rejected", sheet.ErrorCount), middleware.GetRequestID(c), details,
		))
		return
	}

	results, err := h.channels.SyncInventory(c.Request.Context(), sheet.Updates)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if results == nil {
		results = []marketplace.SyncResult{}
	}
	h.Success(c, InventoryImportResponse{Rows: len(sheet.Updates), Results: results})
}

func (h *MarketplaceHandler) sheetReader(c *gin.Context) (io.Reader, func(), bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return c.Request.Body, func() {}, true
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing file field")
		return nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		h.BadRequest(c, "Unreadable file")
		return nil, nil, false
	}
	return f, func() { _ = f.Close() }, true
}

// Orders pulls orders from one channel.
//
// GET /marketplace/:channel/orders?since=&until=&page=
func (h *MarketplaceHandler) Orders(c *gin.Context) {
	var q OrdersQuery
	if !bindQuery(c, &q) {
		return
	}
	orders, err := h.channels.PullOrders(c.Request.Context(), c.Param("channel"), &marketplace.OrderPullRequest{
		Since: q.Since,
		Until: q.Until,
		Page:  q.Page,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]ChannelOrderResponse, len(orders))
	for i, o := range orders {
		lines := make([]ChannelOrderLineResponse, len(o.Lines))
		for j, l := range o.Lines {
			lines[j] = ChannelOrderLineResponse{SKU: l.SKU, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		}
		out[i] = ChannelOrderResponse{
			Channel:      o.Channel,
			OrderID:      o.OrderID,
			Status:       o.Status,
			BuyerName:    o.BuyerName,
			Total:        o.Total,
			Currency:     o.Currency,
			Lines:        lines,
			PlacedAt:     o.PlacedAt,
			ShipToCity:   o.ShipToCity,
			ShipToPostal: o.ShipToPostal,
		}
	}
	h.Success(c, out)
}

// PushListing creates or updates an offer on one channel.
//
// POST /marketplace/:channel/listings
func (h *MarketplaceHandler) PushListing(c *gin.Context) {
	var req ListingRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.channels.PushListing(c.Request.Context(), c.Param("channel"), &marketplace.Listing{
		SKU:      req.SKU,
		Title:    req.Title,
		Price:    req.Price,
		Quantity: req.Quantity,
		Barcode:  req.Barcode,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ListingResponse{
		Channel: result.Channel,
		SKU:     result.SKU,
		OfferID: result.OfferID,
		Status:  result.Status,
	})
}
