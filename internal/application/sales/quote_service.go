// Package sales runs the quote lifecycle and turns accepted quotes into
// payable orders.
package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/payment"
	"github.com/storeops/backend/internal/domain/sales"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
)

const (
	defaultQuoteValidity  = 30 * 24 * time.Hour
	defaultSweepBatchSize = 100
)

// QuoteServiceConfig holds configuration for the QuoteService
type QuoteServiceConfig struct {
	Quotes      sales.QuoteRepository
	Orders      sales.OrderRepository
	Conversions sales.ConversionStore
	Numbers     sales.NumberGenerator
	Payments    *payment.Registry
	// DefaultValidity applies when a quote names no expiry
	DefaultValidity time.Duration
	SweepBatchSize  int
	Metrics         *telemetry.IntegrationMetrics
	Logger          *zap.Logger
	Clock           func() time.Time
}

// QuoteService is the application service for quotes
type QuoteService struct {
	quotes      sales.QuoteRepository
	orders      sales.OrderRepository
	conversions sales.ConversionStore
	numbers     sales.NumberGenerator
	payments    *payment.Registry
	validity    time.Duration
	batchSize   int
	metrics     *telemetry.IntegrationMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validity := cfg.DefaultValidity
	if validity <= 0 {
		validity = defaultQuoteValidity
	}
	batch := cfg.SweepBatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &QuoteService{
		quotes:      cfg.Quotes,
		orders:      cfg.Orders,
		conversions: cfg.Conversions,
		numbers:     cfg.Numbers,
		payments:    cfg.Payments,
		validity:    validity,
		batchSize:   batch,
		metrics:     cfg.Metrics,
		logger:      logger,
		now:         clock,
	}
}

// CreateQuote creates a DRAFT quote
func (s *QuoteService) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*QuoteResponse, error) {
	now := s.now()

	items := make([]sales.QuoteItem, 0, len(req.Items))
	for _, in := range req.Items {
		item, err := sales.NewQuoteItem(in.ProductID, strings.TrimSpace(in.SKU), strings.TrimSpace(in.Name), in.Quantity, in.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("a quote needs at least one item")
	}

	expiresAt := req.ExpiresAt
	if expiresAt == nil {
		validity := s.validity
		if req.ValidDays > 0 {
			validity = time.Duration(req.ValidDays) * 24 * time.Hour
		}
		t := now.Add(validity)
		expiresAt = &t
	}

	number, err := s.numbers.NextQuoteNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate quote number: %w", err)
	}

	customer := sales.Customer{
		ID:      req.Customer.ID,
		Name:    strings.TrimSpace(req.Customer.Name),
		Company: strings.TrimSpace(req.Customer.Company),
		Email:   strings.TrimSpace(req.Customer.Email),
		Phone:   strings.TrimSpace(req.Customer.Phone),
	}
	q, err := sales.NewQuote(number, customer, items, req.TaxRate, req.Currency, expiresAt, now)
	if err != nil {
		return nil, err
	}
	q.Notes = req.Notes

	if err := s.quotes.Save(ctx, q); err != nil {
		return nil, err
	}
	s.logger.Info("Quote created",
		zap.String("quote_number", q.QuoteNumber),
		zap.String("total", q.Total.StringFixed(2)))

	resp := ToQuoteResponse(q)
	return &resp, nil
}

// GetQuote returns a quote with its history
func (s *QuoteService) GetQuote(ctx context.Context, id uuid.UUID) (*QuoteResponse, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// ListQuotes returns a page of quotes
func (s *QuoteService) ListQuotes(ctx context.Context, filter QuoteListFilter) (*shared.Paginated[QuoteResponse], error) {
	f := sales.QuoteFilter{
		Filter:   shared.DefaultFilter(),
		Customer: filter.Customer,
	}
	f.Search = filter.Search
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		status := sales.QuoteStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewValidationError(fmt.Sprintf("unknown quote status %q", filter.Status))
		}
		f.Status = &status
	}

	quotes, total, err := s.quotes.List(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		items[i] = ToQuoteResponse(&quotes[i])
	}
	page := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &page, nil
}

// SendQuote moves a DRAFT quote to SENT
func (s *QuoteService) SendQuote(ctx context.Context, id uuid.UUID) (*QuoteResponse, error) {
	return s.mutate(ctx, id, "Quote sent", func(q *sales.Quote, now time.Time) error {
		return q.Send(now)
	})
}

// MarkViewed records that the customer opened the quote
func (s *QuoteService) MarkViewed(ctx context.Context, id uuid.UUID) (*QuoteResponse, error) {
	return s.mutate(ctx, id, "Quote viewed", func(q *sales.Quote, now time.Time) error {
		return q.MarkViewed(now)
	})
}

// AcceptQuote records the customer's acceptance
func (s *QuoteService) AcceptQuote(ctx context.Context, id uuid.UUID) (*QuoteResponse, error) {
	return s.mutate(ctx, id, "Quote accepted", func(q *sales.Quote, now time.Time) error {
		return q.Accept(now)
	})
}

// RejectQuote records the customer's rejection
func (s *QuoteService) RejectQuote(ctx context.Context, id uuid.UUID, reason string) (*QuoteResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewValidationError("rejection reason is required")
	}
	return s.mutate(ctx, id, "Quote rejected", func(q *sales.Quote, now time.Time) error {
		return q.Reject(reason, now)
	})
}

func (s *QuoteService) mutate(ctx context.Context, id uuid.UUID, msg string, fn func(q *sales.Quote, now time.Time) error) (*QuoteResponse, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(q, s.now()); err != nil {
		return nil, err
	}
	if err := s.quotes.Save(ctx, q); err != nil {
		return nil, err
	}
	s.logger.Info(msg,
		zap.String("quote_number", q.QuoteNumber),
		zap.String("status", q.Status.String()))
	resp := ToQuoteResponse(q)
	return &resp, nil
}

// ExpireOverdueQuotes moves every overdue DRAFT/SENT/VIEWED quote to EXPIRED.
// A quote that fails to save is counted and skipped; the sweep goes on.
func (s *QuoteService) ExpireOverdueQuotes(ctx context.Context) (*ExpirySweepResult, error) {
	now := s.now()
	result := &ExpirySweepResult{ProcessedAt: now}
	failed := make(map[uuid.UUID]struct{})

	for {
		batch, err := s.quotes.FindExpirable(ctx, now, s.batchSize)
		if err != nil {
			s.logger.Error("Failed to find expirable quotes", zap.Error(err))
			return nil, err
		}
		result.Scanned += len(batch)

		expired := 0
		for i := range batch {
			q := &batch[i]
			if _, seen := failed[q.ID]; seen {
				continue
			}
			if !q.Expire(now) {
				continue
			}
			if err := s.quotes.Save(ctx, q); err != nil {
				s.logger.Error("Failed to expire quote",
					zap.String("quote_number", q.QuoteNumber),
					zap.Error(err))
				failed[q.ID] = struct{}{}
				result.Failed++
				result.FailedIDs = append(result.FailedIDs, q.ID.String())
				continue
			}
			expired++
		}
		result.Expired += expired

		// A short batch is the last one. Failed quotes stay expirable and
		// come back in later batches; a batch with no progress ends the sweep.
		if len(batch) < s.batchSize || expired == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	s.metrics.ObserveExpired(ctx, result.Expired)
	if result.Expired > 0 || result.Failed > 0 {
		s.logger.Info("Quote expiry sweep finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("expired", result.Expired),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

// ConvertQuoteToOrder creates the order for an ACCEPTED quote and opens a
// checkout with the default payment gateway.
//
// Nothing is persisted until the checkout exists. The order insert and the
// quote link then commit together; losing a race against another
// conversion yields a StateError and leaves the winner's order in place.
func (s *QuoteService) ConvertQuoteToOrder(ctx context.Context, id uuid.UUID) (result *ConversionResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "quote.convert", telemetry.WithAttribute("quote_id", id.String()))
	defer func() {
		s.metrics.ObserveConversion(ctx, err)
		telemetry.EndSpan(span, err)
	}()

	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.SpanAttrQuoteNumber, q.QuoteNumber))
	if err := q.CheckConvertible(); err != nil {
		return nil, err
	}

	gw, err := s.payments.Default()
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}
	now := s.now()
	order, err := sales.NewOrderFromQuote(q, number, now)
	if err != nil {
		return nil, err
	}

	session, err := gw.InitiatePayment(ctx, &payment.CheckoutRequest{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.Total,
		Currency:    order.Currency,
		Description: "Quote " + q.QuoteNumber,
		Customer: payment.Customer{
			Name:  q.Customer.Name,
			Email: q.Customer.Email,
			Phone: q.Customer.Phone,
		},
	})
	if err != nil {
		s.logger.Warn("Checkout could not be opened, quote left unconverted",
			zap.String("quote_number", q.QuoteNumber),
			zap.String("provider", gw.Name()),
			zap.Error(err))
		return nil, err
	}
	order.AttachCheckout(session.Provider, session.Reference, session.RedirectURL)

	if err := q.MarkConverted(order.ID, now); err != nil {
		return nil, err
	}
	if err := s.conversions.CommitConversion(ctx, q, order); err != nil {
		s.logger.Warn("Quote conversion not committed",
			zap.String("quote_number", q.QuoteNumber),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Quote converted to order",
		zap.String("quote_number", q.QuoteNumber),
		zap.String("order_number", order.OrderNumber),
		zap.String("provider", session.Provider))

	return &ConversionResult{
		Quote:       ToQuoteResponse(q),
		Order:       ToOrderResponse(order),
		Provider:    session.Provider,
		CheckoutURL: session.RedirectURL,
	}, nil
}

// AcceptQuoteAndConvert accepts the quote and converts it in one step.
// If the conversion fails the quote stays ACCEPTED and can be converted later.
func (s *QuoteService) AcceptQuoteAndConvert(ctx context.Context, id uuid.UUID) (*ConversionResult, error) {
	if _, err := s.AcceptQuote(ctx, id); err != nil {
		return nil, err
	}
	return s.ConvertQuoteToOrder(ctx, id)
}

// GetOrderForQuote returns the order a quote was converted into
func (s *QuoteService) GetOrderForQuote(ctx context.Context, quoteID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByQuoteID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}
