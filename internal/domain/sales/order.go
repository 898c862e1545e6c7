package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/shared"
)

// OrderStatus represents the payment status of an order created from a quote
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "PENDING"
	OrderStatusPaid          OrderStatus = "PAID"
	OrderStatusPaymentFailed OrderStatus = "PAYMENT_FAILED"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusPaymentFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusPaid || target == OrderStatusPaymentFailed || target == OrderStatusCancelled
	case OrderStatusPaymentFailed:
		// a customer may retry from the checkout page
		return target == OrderStatusPaid || target == OrderStatusCancelled
	case OrderStatusPaid, OrderStatusCancelled:
		return false
	}
	return false
}

// OrderItem is a line copied from the source quote
type OrderItem struct {
	ID        uuid.UUID
	ProductID *uuid.UUID
	SKU       string
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
}

// Order is created exactly once from an accepted quote
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber      string
	QuoteID          *uuid.UUID
	Customer         Customer
	Items            []OrderItem
	Subtotal         decimal.Decimal
	TaxAmount        decimal.Decimal
	Total            decimal.Decimal
	Currency         string
	Status           OrderStatus
	Note             string
	PaymentProvider  string
	PaymentReference string
	CheckoutURL      string
	PaidAmount       decimal.Decimal
	PaidAt           *time.Time
	CancelReason     string
}

// NewOrderFromQuote copies lines and totals of an accepted, unconverted quote
func NewOrderFromQuote(q *Quote, orderNumber string, now time.Time) (*Order, error) {
	if err := q.CheckConvertible(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewValidationError("order number is required")
	}
	if len(q.Items) == 0 {
		return nil, shared.NewValidationError("quote has no items")
	}

	root := shared.NewBaseAggregateRoot()
	root.CreatedAt = now
	root.UpdatedAt = now

	quoteID := q.ID
	items := make([]OrderItem, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, OrderItem{
			ID:        uuid.New(),
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Amount:    it.Amount,
		})
	}

	return &Order{
		BaseAggregateRoot: root,
		OrderNumber:       orderNumber,
		QuoteID:           &quoteID,
		Customer:          q.Customer,
		Items:             items,
		Subtotal:          q.Subtotal,
		TaxAmount:         q.TaxAmount,
		Total:             q.Total,
		Currency:          q.Currency,
		Status:            OrderStatusPending,
		Note:              fmt.Sprintf("Converted from quote %s", q.QuoteNumber),
		PaidAmount:        decimal.Zero,
	}, nil
}

// AttachCheckout records where the customer pays for this order
func (o *Order) AttachCheckout(provider, reference, url string) {
	o.PaymentProvider = provider
	o.PaymentReference = reference
	o.CheckoutURL = url
}

// MarkPaid records a verified successful payment
func (o *Order) MarkPaid(provider, reference string, amount decimal.Decimal, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusPaid) {
		return shared.NewStateError(fmt.Sprintf("cannot mark order %s paid in %s status", o.OrderNumber, o.Status))
	}
	if !amount.Equal(o.Total) {
		return shared.NewValidationError(fmt.Sprintf("paid amount %s does not match order total %s", amount.StringFixed(2), o.Total.StringFixed(2)))
	}
	o.Status = OrderStatusPaid
	o.PaymentProvider = provider
	o.PaymentReference = reference
	o.PaidAmount = amount
	o.PaidAt = &now
	o.Touch(now)
	return nil
}

// MarkPaymentFailed records a verified failed payment attempt
func (o *Order) MarkPaymentFailed(provider, reference string, now time.Time) error {
	if o.Status == OrderStatusPaymentFailed {
		return nil
	}
	if !o.Status.CanTransitionTo(OrderStatusPaymentFailed) {
		return shared.NewStateError(fmt.Sprintf("cannot mark order %s failed in %s status", o.OrderNumber, o.Status))
	}
	o.Status = OrderStatusPaymentFailed
	o.PaymentProvider = provider
	o.PaymentReference = reference
	o.Touch(now)
	return nil
}

// Cancel cancels an unpaid order
func (o *Order) Cancel(reason string, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewStateError(fmt.Sprintf("cannot cancel order %s in %s status", o.OrderNumber, o.Status))
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("cancel reason is required")
	}
	o.Status = OrderStatusCancelled
	o.CancelReason = reason
	o.Touch(now)
	return nil
}
