package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	salesapp "github.com/storeops/backend/internal/application/sales"
	"github.com/storeops/backend/internal/domain/shared"
)

// QuoteService is the quote lifecycle behind the quote endpoints
type QuoteService interface {
	CreateQuote(ctx context.Context, req salesapp.CreateQuoteRequest) (*salesapp.QuoteResponse, error)
	GetQuote(ctx context.Context, id uuid.UUID) (*salesapp.QuoteResponse, error)
	ListQuotes(ctx context.Context, filter salesapp.QuoteListFilter) (*shared.Paginated[salesapp.QuoteResponse], error)
	SendQuote(ctx context.Context, id uuid.UUID) (*salesapp.QuoteResponse, error)
	MarkViewed(ctx context.Context, id uuid.UUID) (*salesapp.QuoteResponse, error)
	AcceptQuote(ctx context.Context, id uuid.UUID) (*salesapp.QuoteResponse, error)
	RejectQuote(ctx context.Context, id uuid.UUID, reason string) (*salesapp.QuoteResponse, error)
	ExpireOverdueQuotes(ctx context.Context) (*salesapp.ExpirySweepResult, error)
	ConvertQuoteToOrder(ctx context.Context, id uuid.UUID) (*salesapp.ConversionResult, error)
	AcceptQuoteAndConvert(ctx context.Context, id uuid.UUID) (*salesapp.ConversionResult, error)
	GetOrderForQuote(ctx context.Context, quoteID uuid.UUID) (*salesapp.OrderResponse, error)
}

// QuoteHandler handles quote-related API endpoints
type QuoteHandler struct {
	BaseHandler
	quotes QuoteService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// Create creates a DRAFT quote.
//
// POST /quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	var req salesapp.CreateQuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	quote, err := h.quotes.CreateQuote(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, quote)
}

// List returns a page of quotes.
//
// GET /quotes
func (h *QuoteHandler) List(c *gin.Context) {
	var filter salesapp.QuoteListFilter
	if !bindQuery(c, &filter) {
		return
	}
	page, err := h.quotes.ListQuotes(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns one quote with its lines and history.
//
// GET /quotes/:id
func (h *QuoteHandler) Get(c *gin.Context) {
	h.withQuote(c, h.quotes.GetQuote)
}

// Send moves a DRAFT quote to SENT.
//
// POST /quotes/:id/send
func (h *QuoteHandler) Send(c *gin.Context) {
	h.withQuote(c, h.quotes.SendQuote)
}

// View records that the customer opened the quote.
//
// POST /quotes/:id/view
func (h *QuoteHandler) View(c *gin.Context) {
	h.withQuote(c, h.quotes.MarkViewed)
}

// Accept moves a SENT or VIEWED quote to ACCEPTED.
//
// POST /quotes/:id/accept
func (h *QuoteHandler) Accept(c *gin.Context) {
	h.withQuote(c, h.quotes.AcceptQuote)
}

// Reject moves a SENT or VIEWED quote to REJECTED with a reason.
//
// POST /quotes/:id/reject
func (h *QuoteHandler) Reject(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req salesapp.RejectQuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	quote, err := h.quotes.RejectQuote(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Convert turns an ACCEPTED quote into an order with a checkout session.
//
// POST /quotes/:id/convert
func (h *QuoteHandler) Convert(c *gin.Context) {
	h.withConversion(c, h.quotes.ConvertQuoteToOrder)
}

// AcceptAndConvert accepts the quote and converts it in one call.
//
// POST /quotes/:id/accept-and-convert
func (h *QuoteHandler) AcceptAndConvert(c *gin.Context) {
	h.withConversion(c, h.quotes.AcceptQuoteAndConvert)
}

// Order returns the order the quote was converted into.
//
// GET /quotes/:id/order
func (h *QuoteHandler) Order(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.quotes.GetOrderForQuote(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Expire runs the overdue-quote sweep on demand.
//
// POST /quotes/expire
func (h *QuoteHandler) Expire(c *gin.Context) {
	result, err := h.quotes.ExpireOverdueQuotes(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *QuoteHandler) withQuote(c *gin.Context, fn func(context.Context, uuid.UUID) (*salesapp.QuoteResponse, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	quote, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

func (h *QuoteHandler) withConversion(c *gin.Context, fn func(context.Context, uuid.UUID) (*salesapp.ConversionResult, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	result, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
