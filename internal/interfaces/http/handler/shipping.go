package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	shippingapp "github.com/storeops/backend/internal/application/shipping"
	"github.com/storeops/backend/internal/domain/shipping"
)

// ShippingService is the carrier aggregation used by the shipping endpoints
type ShippingService interface {
	GetAllQuotes(ctx context.Context, req *shipping.QuoteRequest) ([]shipping.Quote, error)
	GetBestQuote(ctx context.Context, req *shipping.QuoteRequest, pref shipping.Preference) (*shipping.Quote, error)
	CreateWaybill(ctx context.Context, carrierName string, req *shipping.WaybillRequest) (*shipping.Waybill, error)
	Track(ctx context.Context, carrierName, waybillNumber string) (*shipping.TrackingInfo, error)
	Cancel(ctx context.Context, carrierName, waybillNumber string) error
	SearchCollectionPoints(ctx context.Context, carrierName, postalCode string) ([]shipping.CollectionPoint, error)
	Carriers() []shippingapp.CarrierInfo
}

// ShippingHandler serves rate shopping, booking and tracking
type ShippingHandler struct {
	BaseHandler
	shipping ShippingService
}

// NewShippingHandler creates a new ShippingHandler
func NewShippingHandler(s ShippingService) *ShippingHandler {
	return &ShippingHandler{shipping: s}
}

// ==================== Request DTOs ====================

// ParcelRequest describes one parcel to rate or book
type ParcelRequest struct {
	Origin            shipping.Address     `json:"origin" binding:"required"`
	Destination       shipping.Address     `json:"destination" binding:"required"`
	WeightKg          float64              `json:"weight_kg" binding:"required,gt=0"`
	Dimensions        *shipping.Dimensions `json:"dimensions"`
	ServiceType       string               `json:"service_type" binding:"omitempty,oneof=standard express overnight"`
	CollectionPointID string               `json:"collection_point_id" binding:"max=64"`
}

func (r *ParcelRequest) toDomain() *shipping.QuoteRequest {
	return &shipping.QuoteRequest{
		Origin:            r.Origin,
		Destination:       r.Destination,
		WeightKg:          r.WeightKg,
		Dimensions:        r.Dimensions,
		ServiceType:       shipping.ServiceType(r.ServiceType),
		CollectionPointID: r.CollectionPointID,
	}
}

// PartyRequest is a sender or recipient on a waybill
type PartyRequest struct {
	Name    string           `json:"name" binding:"max=200"`
	Phone   string           `json:"phone" binding:"max=30"`
	Email   string           `json:"email" binding:"omitempty,email"`
	Street  string           `json:"street" binding:"max=200"`
	Address shipping.Address `json:"address"`
}

func (p PartyRequest) toDomain() shipping.Party {
	return shipping.Party{Name: p.Name, Phone: p.Phone, Email: p.Email, Street: p.Street, Address: p.Address}
}

// WaybillRequest books a collection. An empty carrier lets the
// aggregator choose one for the parcel.
type WaybillRequest struct {
	Carrier     string        `json:"carrier" binding:"max=50"`
	Parcel      ParcelRequest `json:"parcel" binding:"required"`
	Reference   string        `json:"reference" binding:"required,max=64"`
	Sender      PartyRequest  `json:"sender"`
	Recipient   PartyRequest  `json:"recipient" binding:"required"`
	Description string        `json:"description" binding:"max=500"`
}

// BestQuoteQuery selects the ranking for the best quote
type BestQuoteQuery struct {
	Preference string `form:"preference" binding:"omitempty,oneof=cheapest fastest"`
}

// ==================== Response DTOs ====================

// ShippingQuoteResponse is one carrier's rate
type ShippingQuoteResponse struct {
	Provider        string                    `json:"provider"`
	ServiceType     shipping.ServiceType      `json:"service_type"`
	EstimatedDays   int                       `json:"estimated_days"`
	Cost            decimal.Decimal           `json:"cost"`
	Currency        string                    `json:"currency"`
	CollectionPoint *shipping.CollectionPoint `json:"collection_point,omitempty"`
}

func toShippingQuoteResponse(q *shipping.Quote) ShippingQuoteResponse {
	return ShippingQuoteResponse{
		Provider:        q.Provider,
		ServiceType:     q.ServiceType,
		EstimatedDays:   q.EstimatedDays,
		Cost:            q.Cost,
		Currency:        q.Currency,
		CollectionPoint: q.CollectionPoint,
	}
}

// WaybillResponse is a booked shipment
type WaybillResponse struct {
	Provider       string          `json:"provider"`
	WaybillNumber  string          `json:"waybill_number"`
	TrackingURL    string          `json:"tracking_url,omitempty"`
	LabelURL       string          `json:"label_url,omitempty"`
	Cost           decimal.Decimal `json:"cost"`
	Currency       string          `json:"currency"`
	EstimatedDays  int             `json:"estimated_days"`
	CollectionDate *time.Time      `json:"collection_date,omitempty"`
}

// TrackingEventResponse is one scan on a shipment's journey
type TrackingEventResponse struct {
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// TrackingResponse is the current state of a shipment
type TrackingResponse struct {
	Provider      string                  `json:"provider"`
	WaybillNumber string                  `json:"waybill_number"`
	Status        string                  `json:"status"`
	Delivered     bool                    `json:"delivered"`
	Events        []TrackingEventResponse `json:"events"`
}

// ==================== Handlers ====================

// Quotes rates the parcel with every capable carrier, cheapest first.
//
// POST /shipping/quotes
func (h *ShippingHandler) Quotes(c *gin.Context) {
	var req ParcelRequest
	if !bindJSON(c, &req) {
		return
	}
	quotes, err := h.shipping.GetAllQuotes(c.Request.Context(), req.toDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]ShippingQuoteResponse, len(quotes))
	for i := range quotes {
		out[i] = toShippingQuoteResponse(&quotes[i])
	}
	h.Success(c, out)
}

// BestQuote returns the single best rate by preference (default cheapest).
//
// POST /shipping/quotes/best?preference=
func (h *ShippingHandler) BestQuote(c *gin.Context) {
	var q BestQuoteQuery
	if !bindQuery(c, &q) {
		return
	}
	pref := shipping.PreferCheapest
	if q.Preference != "" {
		pref = shipping.Preference(q.Preference)
	}

	var req ParcelRequest
	if !bindJSON(c, &req) {
		return
	}
	best, err := h.shipping.GetBestQuote(c.Request.Context(), req.toDomain(), pref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toShippingQuoteResponse(best))
}

// CreateWaybill books a collection with the named or automatically chosen carrier.
//
// POST /shipping/waybills
func (h *ShippingHandler) CreateWaybill(c *gin.Context) {
	var req WaybillRequest
	if !bindJSON(c, &req) {
		return
	}
	wb, err := h.shipping.CreateWaybill(c.Request.Context(), req.Carrier, &shipping.WaybillRequest{
		Quote:       *req.Parcel.toDomain(),
		Reference:   req.Reference,
		Sender:      req.Sender.toDomain(),
		Recipient:   req.Recipient.toDomain(),
		Description: req.Description,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, WaybillResponse{
		Provider:       wb.Provider,
		WaybillNumber:  wb.WaybillNumber,
		TrackingURL:    wb.TrackingURL,
		LabelURL:       wb.LabelURL,
		Cost:           wb.Cost,
		Currency:       wb.Currency,
		EstimatedDays:  wb.EstimatedDays,
		CollectionDate: wb.CollectionDate,
	})
}

// Track returns the shipment's scan history.
//
// GET /shipping/:carrier/tracking/:waybill
func (h *ShippingHandler) Track(c *gin.Context) {
	info, err := h.shipping.Track(c.Request.Context(), c.Param("carrier"), c.Param("waybill"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	events := make([]TrackingEventResponse, len(info.Events))
	for i, e := range info.Events {
		events[i] = TrackingEventResponse{
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
			OccurredAt:  e.OccurredAt,
		}
	}
	h.Success(c, TrackingResponse{
		Provider:      info.Provider,
		WaybillNumber: info.WaybillNumber,
		Status:        info.Status,
		Delivered:     info.Delivered,
		Events:        events,
	})
}

// CancelWaybill cancels a booked shipment.
//
// DELETE /shipping/:carrier/waybills/:waybill
func (h *ShippingHandler) CancelWaybill(c *gin.Context) {
	if err := h.shipping.Cancel(c.Request.Context(), c.Param("carrier"), c.Param("waybill")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CollectionPoints lists pickup points near a postal code.
//
// GET /shipping/:carrier/collection-points?postal_code=
func (h *ShippingHandler) CollectionPoints(c *gin.Context) {
	postalCode := c.Query("postal_code")
	if postalCode == "" {
		h.BadRequest(c, "postal_code is required")
		return
	}
	points, err := h.shipping.SearchCollectionPoints(c.Request.Context(), c.Param("carrier"), postalCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if points == nil {
		points = []shipping.CollectionPoint{}
	}
	h.Success(c, points)
}

// Carriers lists registered carriers with their capabilities.
//
// GET /shipping/carriers
func (h *ShippingHandler) Carriers(c *gin.Context) {
	h.Success(c, h.shipping.Carriers())
}
