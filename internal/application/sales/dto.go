package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/sales"
)

// ==================== Quote DTOs ====================

// CustomerInput identifies the customer a quote is for
type CustomerInput struct {
	ID      *uuid.UUID `json:"id"`
	Name    string     `json:"name" binding:"required,min=1,max=200"`
	Company string     `json:"company" binding:"max=200"`
	Email   string     `json:"email" binding:"omitempty,email"`
	Phone   string     `json:"phone" binding:"max=30"`
}

// QuoteItemInput represents a line in the create quote request
type QuoteItemInput struct {
	ProductID *uuid.UUID      `json:"product_id"`
	SKU       string          `json:"sku" binding:"max=64"`
	Name      string          `json:"name" binding:"required,min=1,max=200"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,dgt0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateQuoteRequest represents a request to create a DRAFT quote
type CreateQuoteRequest struct {
	Customer CustomerInput    `json:"customer" binding:"required"`
	Items    []QuoteItemInput `json:"items" binding:"required,min=1,dive"`
	TaxRate  decimal.Decimal  `json:"tax_rate"`
	Currency string           `json:"currency" binding:"omitempty,len=3"`
	Notes    string           `json:"notes" binding:"max=2000"`
	// ExpiresAt overrides ValidDays when set
	ExpiresAt *time.Time `json:"expires_at"`
	ValidDays int        `json:"valid_days" binding:"min=0,max=365"`
}

// RejectQuoteRequest represents a request to reject a quote
type RejectQuoteRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// QuoteListFilter represents filter options for the quote list
type QuoteListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=DRAFT SENT VIEWED ACCEPTED REJECTED EXPIRED"`
	Customer string `form:"customer"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// QuoteItemResponse represents a quote line in API responses
type QuoteItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// StatusHistoryResponse represents one audit entry
type StatusHistoryResponse struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID                 uuid.UUID               `json:"id"`
	QuoteNumber        string                  `json:"quote_number"`
	CustomerName       string                  `json:"customer_name"`
	CustomerCompany    string                  `json:"customer_company,omitempty"`
	CustomerEmail      string                  `json:"customer_email,omitempty"`
	Items              []QuoteItemResponse     `json:"items"`
	TaxRate            decimal.Decimal         `json:"tax_rate"`
	Subtotal           decimal.Decimal         `json:"subtotal"`
	TaxAmount          decimal.Decimal         `json:"tax_amount"`
	Total              decimal.Decimal         `json:"total"`
	Currency           string                  `json:"currency"`
	Status             string                  `json:"status"`
	Notes              string                  `json:"notes,omitempty"`
	ExpiresAt          *time.Time              `json:"expires_at,omitempty"`
	SentAt             *time.Time              `json:"sent_at,omitempty"`
	ViewedAt           *time.Time              `json:"viewed_at,omitempty"`
	AcceptedAt         *time.Time              `json:"accepted_at,omitempty"`
	RejectedAt         *time.Time              `json:"rejected_at,omitempty"`
	RejectionReason    string                  `json:"rejection_reason,omitempty"`
	ConvertedToOrderID *uuid.UUID              `json:"converted_to_order_id,omitempty"`
	History            []StatusHistoryResponse `json:"history"`
	Version            int                     `json:"version"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// ToQuoteResponse converts a domain quote to a response DTO
func ToQuoteResponse(q *sales.Quote) QuoteResponse {
	items := make([]QuoteItemResponse, len(q.Items))
	for i, it := range q.Items {
		items[i] = QuoteItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Amount:    it.Amount,
		}
	}
	history := make([]StatusHistoryResponse, len(q.History))
	for i, h := range q.History {
		history[i] = StatusHistoryResponse{
			Status:    h.Status.String(),
			Note:      h.Note,
			ChangedAt: h.ChangedAt,
		}
	}
	return QuoteResponse{
		ID:                 q.ID,
		QuoteNumber:        q.QuoteNumber,
		CustomerName:       q.Customer.Name,
		CustomerCompany:    q.Customer.Company,
		CustomerEmail:      q.Customer.Email,
		Items:              items,
		TaxRate:            q.TaxRate,
		Subtotal:           q.Subtotal,
		TaxAmount:          q.TaxAmount,
		Total:              q.Total,
		Currency:           q.Currency,
		Status:             q.Status.String(),
		Notes:              q.Notes,
		ExpiresAt:          q.ExpiresAt,
		SentAt:             q.SentAt,
		ViewedAt:           q.ViewedAt,
		AcceptedAt:         q.AcceptedAt,
		RejectedAt:         q.RejectedAt,
		RejectionReason:    q.RejectionReason,
		ConvertedToOrderID: q.ConvertedToOrderID,
		History:            history,
		Version:            q.Version,
		CreatedAt:          q.CreatedAt,
		UpdatedAt:          q.UpdatedAt,
	}
}

// ==================== Order DTOs ====================

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      string          `json:"order_number"`
	QuoteID          *uuid.UUID      `json:"quote_id,omitempty"`
	CustomerName     string          `json:"customer_name"`
	ItemCount        int             `json:"item_count"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	Note             string          `json:"note,omitempty"`
	PaymentProvider  string          `json:"payment_provider,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	CheckoutURL      string          `json:"checkout_url,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToOrderResponse converts a domain order to a response DTO
func ToOrderResponse(o *sales.Order) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		QuoteID:          o.QuoteID,
		CustomerName:     o.Customer.Name,
		ItemCount:        len(o.Items),
		Subtotal:         o.Subtotal,
		TaxAmount:        o.TaxAmount,
		Total:            o.Total,
		Currency:         o.Currency,
		Status:           o.Status.String(),
		Note:             o.Note,
		PaymentProvider:  o.PaymentProvider,
		PaymentReference: o.PaymentReference,
		CheckoutURL:      o.CheckoutURL,
		PaidAt:           o.PaidAt,
		CreatedAt:        o.CreatedAt,
	}
}

// ConversionResult is the order created from a quote and where to pay for it
type ConversionResult struct {
	Quote       QuoteResponse `json:"quote"`
	Order       OrderResponse `json:"order"`
	Provider    string        `json:"payment_provider"`
	CheckoutURL string        `json:"checkout_url"`
}

// ExpirySweepResult summarizes one expiry sweep
type ExpirySweepResult struct {
	Scanned     int       `json:"scanned"`
	Expired     int       `json:"expired"`
	Failed      int       `json:"failed"`
	FailedIDs   []string  `json:"failed_ids,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
