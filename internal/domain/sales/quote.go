// Package sales contains the B2B quote lifecycle and the order a quote is
// converted into.
package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/shared"
)

// DefaultCurrency is used when a quote does not name one
const DefaultCurrency = "ZAR"

// QuoteStatus represents the status of a quote. Values are persisted verbatim.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "DRAFT"
	QuoteStatusSent     QuoteStatus = "SENT"
	QuoteStatusViewed   QuoteStatus = "VIEWED"
	QuoteStatusAccepted QuoteStatus = "ACCEPTED"
	QuoteStatusRejected QuoteStatus = "REJECTED"
	QuoteStatusExpired  QuoteStatus = "EXPIRED"
)

// IsValid checks if the status is a valid QuoteStatus
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusViewed,
		QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired:
		return true
	}
	return false
}

// String returns the string representation of QuoteStatus
func (s QuoteStatus) String() string {
	return string(s)
}

// IsExpirable reports whether the expiry sweep may move this status to EXPIRED
func (s QuoteStatus) IsExpirable() bool {
	return s == QuoteStatusDraft || s == QuoteStatusSent || s == QuoteStatusViewed
}

// CanTransitionTo checks if the status can transition to the target status
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	switch s {
	case QuoteStatusDraft:
		return target == QuoteStatusSent || target == QuoteStatusRejected || target == QuoteStatusExpired
	case QuoteStatusSent:
		return target == QuoteStatusViewed || target == QuoteStatusAccepted ||
			target == QuoteStatusRejected || target == QuoteStatusExpired
	case QuoteStatusViewed:
		return target == QuoteStatusAccepted || target == QuoteStatusRejected || target == QuoteStatusExpired
	case QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired:
		return false // Terminal states
	}
	return false
}

// Customer identifies who a quote or order is for
type Customer struct {
	ID      *uuid.UUID
	Name    string
	Company string
	Email   string
	Phone   string
}

// QuoteItem represents a line item in a quote
type QuoteItem struct {
	ID        uuid.UUID
	ProductID *uuid.UUID
	SKU       string
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal // Quantity * UnitPrice
}

// NewQuoteItem creates a validated quote line
func NewQuoteItem(productID *uuid.UUID, sku, name string, quantity, unitPrice decimal.Decimal) (QuoteItem, error) {
	if strings.TrimSpace(name) == "" {
		return QuoteItem{}, shared.NewValidationError("item name is required")
	}
	if !quantity.IsPositive() {
		return QuoteItem{}, shared.NewValidationError(fmt.Sprintf("quantity for %q must be positive", name))
	}
	if unitPrice.IsNegative() {
		return QuoteItem{}, shared.NewValidationError(fmt.Sprintf("unit price for %q cannot be negative", name))
	}
	return QuoteItem{
		ID:        uuid.New(),
		ProductID: productID,
		SKU:       sku,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Amount:    quantity.Mul(unitPrice),
	}, nil
}

// StatusHistoryEntry is one immutable line of a quote's audit trail
type StatusHistoryEntry struct {
	ID        uuid.UUID
	QuoteID   uuid.UUID
	Status    QuoteStatus
	Note      string
	ChangedAt time.Time
}

// Quote is a priced offer to a business customer
type Quote struct {
	shared.BaseAggregateRoot
	QuoteNumber        string
	Customer           Customer
	Items              []QuoteItem
	TaxRate            decimal.Decimal // e.g. 0.15 for 15% VAT
	Subtotal           decimal.Decimal
	TaxAmount          decimal.Decimal
	Total              decimal.Decimal
	Currency           string
	Status             QuoteStatus
	Notes              string
	ExpiresAt          *time.Time
	SentAt             *time.Time
	ViewedAt           *time.Time
	AcceptedAt         *time.Time
	RejectedAt         *time.Time
	RejectionReason    string
	ConvertedToOrderID *uuid.UUID
	ConvertedAt        *time.Time
	// History is append-only and ordered by ChangedAt
	History []StatusHistoryEntry
}

// NewQuote creates a DRAFT quote with an initial history entry
func NewQuote(number string, customer Customer, items []QuoteItem, taxRate decimal.Decimal, currency string, expiresAt *time.Time, now time.Time) (*Quote, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("quote number is required")
	}
	if strings.TrimSpace(customer.Name) == "" {
		return nil, shared.NewValidationError("customer name is required")
	}
	if taxRate.IsNegative() {
		return nil, shared.NewValidationError("tax rate cannot be negative")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, shared.NewValidationError("expiry must be in the future")
	}

	root := shared.NewBaseAggregateRoot()
	root.CreatedAt = now
	root.UpdatedAt = now

	q := &Quote{
		BaseAggregateRoot: root,
		QuoteNumber:       number,
		Customer:          customer,
		Items:             items,
		TaxRate:           taxRate,
		Currency:          strings.ToUpper(currency),
		Status:            QuoteStatusDraft,
		ExpiresAt:         expiresAt,
	}
	q.recalculateTotals()
	q.appendHistory(QuoteStatusDraft, "Quote created", now)
	return q, nil
}

// ReplaceItems swaps the quote lines. Only drafts can be edited.
func (q *Quote) ReplaceItems(items []QuoteItem, now time.Time) error {
	if q.Status != QuoteStatusDraft {
		return shared.NewStateError(fmt.Sprintf("cannot edit quote in %s status", q.Status))
	}
	q.Items = items
	q.recalculateTotals()
	q.Touch(now)
	return nil
}

// Send marks the quote as sent to the customer
func (q *Quote) Send(now time.Time) error {
	if len(q.Items) == 0 {
		return shared.NewValidationError("cannot send a quote without items")
	}
	if q.IsOverdue(now) {
		return shared.NewStateError("cannot send an overdue quote")
	}
	if err := q.transition(QuoteStatusSent, "Quote sent to customer", now); err != nil {
		return err
	}
	q.SentAt = &now
	return nil
}

// MarkViewed records that the customer opened the quote. Repeat views are no-ops.
func (q *Quote) MarkViewed(now time.Time) error {
	if q.Status == QuoteStatusViewed {
		return nil
	}
	if err := q.transition(QuoteStatusViewed, "Quote viewed by customer", now); err != nil {
		return err
	}
	q.ViewedAt = &now
	return nil
}

// Accept records the customer's acceptance
func (q *Quote) Accept(now time.Time) error {
	if q.IsOverdue(now) {
		return shared.NewStateError(fmt.Sprintf("quote %s expired at %s", q.QuoteNumber, q.ExpiresAt.Format(time.RFC3339)))
	}
	if err := q.transition(QuoteStatusAccepted, "Quote accepted", now); err != nil {
		return err
	}
	q.AcceptedAt = &now
	return nil
}

// Reject records the customer's rejection
func (q *Quote) Reject(reason string, now time.Time) error {
	if err := q.transition(QuoteStatusRejected, reason, now); err != nil {
		return err
	}
	q.RejectedAt = &now
	q.RejectionReason = reason
	return nil
}

// Expire moves an overdue DRAFT/SENT/VIEWED quote to EXPIRED.
// Returns false without touching the quote when it is not eligible.
func (q *Quote) Expire(now time.Time) bool {
	if !q.Status.IsExpirable() || !q.IsOverdue(now) {
		return false
	}
	_ = q.transition(QuoteStatusExpired, "Expired automatically", now)
	return true
}

// IsOverdue reports whether the expiry timestamp has passed
func (q *Quote) IsOverdue(now time.Time) bool {
	return q.ExpiresAt != nil && q.ExpiresAt.Before(now)
}

// IsConverted reports whether an order was already created from this quote
func (q *Quote) IsConverted() bool {
	return q.ConvertedToOrderID != nil
}

// CheckConvertible returns a StateError unless the quote is ACCEPTED and unconverted
func (q *Quote) CheckConvertible() error {
	if q.Status != QuoteStatusAccepted {
		return shared.NewStateError(fmt.Sprintf("quote %s must be ACCEPTED to convert, current status is %s", q.QuoteNumber, q.Status))
	}
	if q.IsConverted() {
		return shared.NewStateError(fmt.Sprintf("quote %s was already converted to order %s", q.QuoteNumber, q.ConvertedToOrderID))
	}
	return nil
}

// MarkConverted links the quote to its order. It can only happen once.
func (q *Quote) MarkConverted(orderID uuid.UUID, now time.Time) error {
	if err := q.CheckConvertible(); err != nil {
		return err
	}
	q.ConvertedToOrderID = &orderID
	q.ConvertedAt = &now
	if q.AcceptedAt == nil {
		q.AcceptedAt = &now
	}
	q.Touch(now)
	return nil
}

// LastHistory returns the most recent audit entry
func (q *Quote) LastHistory() *StatusHistoryEntry {
	if len(q.History) == 0 {
		return nil
	}
	return &q.History[len(q.History)-1]
}

func (q *Quote) transition(target QuoteStatus, note string, now time.Time) error {
	if !q.Status.CanTransitionTo(target) {
		return shared.NewStateError(fmt.Sprintf("cannot move quote %s from %s to %s", q.QuoteNumber, q.Status, target))
	}
	q.Status = target
	q.appendHistory(target, note, now)
	q.Touch(now)
	return nil
}

func (q *Quote) appendHistory(status QuoteStatus, note string, now time.Time) {
	q.History = append(q.History, StatusHistoryEntry{
		ID:        uuid.New(),
		QuoteID:   q.ID,
		Status:    status,
		Note:      note,
		ChangedAt: now,
	})
}

func (q *Quote) recalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range q.Items {
		subtotal = subtotal.Add(item.Amount)
	}
	q.Subtotal = subtotal.Round(2)
	q.TaxAmount = subtotal.Mul(q.TaxRate).Round(2)
	q.Total = q.Subtotal.Add(q.TaxAmount)
}
