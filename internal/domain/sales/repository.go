package sales

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/backend/internal/domain/shared"
)

// QuoteFilter narrows a quote listing
type QuoteFilter struct {
	shared.Filter
	Status   *QuoteStatus
	Customer string
}

// QuoteRepository persists quotes with their items and status history.
// Save inserts history entries not yet stored and never rewrites existing ones.
type QuoteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)
	FindByNumber(ctx context.Context, number string) (*Quote, error)
	List(ctx context.Context, filter QuoteFilter) ([]Quote, int64, error)
	// FindExpirable returns DRAFT/SENT/VIEWED quotes whose expiry is before now
	FindExpirable(ctx context.Context, now time.Time, limit int) ([]Quote, error)
	Save(ctx context.Context, q *Quote) error
}

// OrderRepository persists orders
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	FindByQuoteID(ctx context.Context, quoteID uuid.UUID) (*Order, error)
	Save(ctx context.Context, o *Order) error
}

// ConversionStore commits a quote-to-order conversion as one unit: the order
// insert and the compare-and-swap on the quote's converted_to_order_id either
// both happen or neither does. A lost race yields a StateError.
type ConversionStore interface {
	CommitConversion(ctx context.Context, q *Quote, o *Order) error
}

// NumberGenerator issues human-facing document numbers
type NumberGenerator interface {
	NextQuoteNumber(ctx context.Context) (string, error)
	NextOrderNumber(ctx context.Context) (string, error)
}
