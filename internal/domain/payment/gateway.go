// Package payment contains the payment gateway port used for checkout
// redirects, inbound payment notifications and refunds.
package payment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Payment Gateway Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidOrderID     = errors.New("payment: invalid order ID")
	ErrInvalidOrderNumber = errors.New("payment: invalid order number")
	ErrInvalidAmount      = errors.New("payment: invalid payment amount")
	ErrInvalidCurrency    = errors.New("payment: invalid currency")
	ErrInvalidEmail       = errors.New("payment: customer email is required")
	ErrInvalidReference   = errors.New("payment: invalid payment reference")
	ErrRefundExceedsTotal = errors.New("refund: refund amount exceeds total payment")
)

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status is the normalized outcome of a payment reported by any gateway
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// IsValid returns true if the status is one of the normalized values
func (s Status) IsValid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusPending, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsFinal returns true if no further notification is expected
func (s Status) IsFinal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Checkout
// ---------------------------------------------------------------------------

// Customer carries the contact details a gateway pre-fills on its checkout page
type Customer struct {
	Name  string
	Email string
	Phone string
}

// FirstAndLastName splits Name on the first space
func (c Customer) FirstAndLastName() (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(c.Name), " ")
	return first, strings.TrimSpace(last)
}

// CheckoutRequest describes a payment to collect for an order
type CheckoutRequest struct {
	OrderID     uuid.UUID
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Description string
	Customer    Customer
}

// Validate validates the checkout request
func (r *CheckoutRequest) Validate() error {
	if r.OrderID == uuid.Nil {
		return ErrInvalidOrderID
	}
	if strings.TrimSpace(r.OrderNumber) == "" {
		return ErrInvalidOrderNumber
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(r.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if strings.TrimSpace(r.Customer.Email) == "" {
		return ErrInvalidEmail
	}
	return nil
}

// CheckoutSession is where the customer is sent to pay
type CheckoutSession struct {
	Provider    string
	RedirectURL string
	// Reference is the gateway's identifier for the session, if any
	Reference string
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// WebhookRequest is an inbound notification exactly as received
type WebhookRequest struct {
	Body       []byte
	Form       url.Values
	Header     http.Header
	RemoteAddr string
}

// WebhookResult is a verified notification mapped to the normalized shape
type WebhookResult struct {
	Success   bool
	Provider  string
	PaymentID string
	OrderID   string
	Status    Status
	Amount    decimal.Decimal
	Currency  string
	Raw       map[string]string
}

// DedupeKey identifies one delivery of one payment state
func (r *WebhookResult) DedupeKey() string {
	return "webhook:" + r.Provider + ":" + r.PaymentID + ":" + r.Status.String()
}

// ---------------------------------------------------------------------------
// Refunds
// ---------------------------------------------------------------------------

// RefundRequest asks a gateway to return (part of) a captured payment
type RefundRequest struct {
	PaymentID string
	Amount    decimal.Decimal
	Total     decimal.Decimal
	Reason    string
}

// Validate validates the refund request
func (r *RefundRequest) Validate() error {
	if strings.TrimSpace(r.PaymentID) == "" {
		return ErrInvalidReference
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.Total.IsPositive() && r.Amount.GreaterThan(r.Total) {
		return ErrRefundExceedsTotal
	}
	return nil
}

// RefundResult is the gateway's answer to a refund request
type RefundResult struct {
	RefundID string
	Status   Status
	Amount   decimal.Decimal
}

// ---------------------------------------------------------------------------
// Port
// ---------------------------------------------------------------------------

// Gateway is the capability set every payment backend implements
type Gateway interface {
	integration.Provider

	// InitiatePayment creates a checkout redirect for an order
	InitiatePayment(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)

	// ProcessWebhook verifies and maps an inbound notification.
	// A missing or mismatched signature yields a SignatureError.
	ProcessWebhook(ctx context.Context, req *WebhookRequest) (*WebhookResult, error)

	// Refund returns funds for a captured payment
	Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error)

	// VerifySignature checks the authenticity of an inbound notification only
	VerifySignature(req *WebhookRequest) error

	// Acknowledge renders the response body the gateway expects
	Acknowledge(success bool) (contentType string, body []byte)
}

// PayloadArchive keeps raw webhook deliveries for audit and replay.
// Archiving is best effort; callers never fail a delivery because of it.
type PayloadArchive interface {
	Archive(ctx context.Context, provider string, receivedAt time.Time, req *WebhookRequest) (key string, err error)
}

// Registry is the payment-domain provider registry
type Registry = integration.Registry[Gateway]

// NewRegistry creates an empty payment registry
func NewRegistry(opts ...integration.RegistryOption) *Registry {
	return integration.NewRegistry[Gateway](integration.DomainPayment, opts...)
}

// AsValidationError lifts a request validation failure into the taxonomy
func AsValidationError(err error) error {
	if err == nil {
		return nil
	}
	return &shared.IntegrationError{Kind: shared.KindValidation, Message: "invalid payment request", Err: err}
}
