package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/payment"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/config"
)

// StripeName is the registry key of the Stripe gateway
const StripeName = "stripe"

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// Checkout session event types handled by ProcessWebhook
const (
	stripeEventSessionCompleted      = "checkout.session.completed"
	stripeEventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	stripeEventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	stripeEventSessionExpired        = "checkout.session.expired"
)

// StripeAdapter implements payment.Gateway using Stripe Checkout
type StripeAdapter struct {
	config config.StripeConfig
	api    *client.API
	logger *zap.Logger
}

// StripeOption configures a StripeAdapter
type StripeOption func(*StripeAdapter)

// WithStripeBackends points the client at custom backends (tests, proxies)
func WithStripeBackends(backends *stripe.Backends) StripeOption {
	return func(a *StripeAdapter) {
		a.api = client.New(a.config.SecretKey, backends)
	}
}

// NewStripeAdapter creates a Stripe adapter
func NewStripeAdapter(cfg config.StripeConfig, logger *zap.Logger, opts ...StripeOption) *StripeAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &StripeAdapter{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.api == nil {
		a.api = client.New(cfg.SecretKey, nil)
	}
	return a
}

// Name returns the registry key
func (a *StripeAdapter) Name() string { return StripeName }

// DisplayName returns the human-facing name
func (a *StripeAdapter) DisplayName() string { return "Stripe" }

// IsConfigured reports whether API and webhook secrets are present
func (a *StripeAdapter) IsConfigured() bool { return a.config.IsConfigured() }

// InitiatePayment creates a hosted Checkout Session for the order total
func (a *StripeAdapter) InitiatePayment(ctx context.Context, req *payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	if !a.IsConfigured() {
		return nil, shared.NewConfigurationError(StripeName, "secret key or webhook secret is not configured")
	}
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(StripeName, err)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		CustomerEmail:     stripe.String(req.Customer.Email),
		SuccessURL:        stripe.String(a.config.SuccessURL),
		CancelURL:         stripe.String(a.config.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount.Shift(2).Round(0).IntPart()),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + req.OrderNumber),
					},
				},
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID.String())
	params.AddMetadata("order_number", req.OrderNumber)

	sess, err := a.api.CheckoutSessions.New(params)
	if err != nil {
		a.logger.Warn("Failed to create Stripe checkout session",
			zap.String("order_number", req.OrderNumber),
			zap.Error(err))
		return nil, shared.NewUpstreamError(StripeName, "InitiatePayment", err)
	}

	return &payment.CheckoutSession{
		Provider:    StripeName,
		RedirectURL: sess.URL,
		Reference:   sess.ID,
	}, nil
}

// VerifySignature checks the Stripe-Signature header against the raw body
func (a *StripeAdapter) VerifySignature(req *payment.WebhookRequest) error {
	_, err := a.constructEvent(req)
	return err
}

func (a *StripeAdapter) constructEvent(req *payment.WebhookRequest) (stripe.Event, error) {
	header := req.Header.Get(StripeSignatureHeader)
	if header == "" {
		return stripe.Event{}, shared.NewSignatureError(StripeName, "missing "+StripeSignatureHeader+" header")
	}
	event, err := webhook.ConstructEventWithOptions(req.Body, header, a.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, &shared.IntegrationError{Kind: shared.KindSignature, Provider: StripeName, Message: "invalid signature", Err: err}
	}
	return event, nil
}

// ProcessWebhook verifies a Checkout Session event and maps it
func (a *StripeAdapter) ProcessWebhook(ctx context.Context, req *payment.WebhookRequest) (*payment.WebhookResult, error) {
	if !a.IsConfigured() {
		return nil, shared.NewConfigurationError(StripeName, "webhook secret is not configured")
	}
	event, err := a.constructEvent(req)
	if err != nil {
		return nil, err
	}

	var status payment.Status
	switch event.Type {
	case stripeEventSessionCompleted:
		status = payment.StatusPending
	case stripeEventAsyncPaymentSucceeded:
		status = payment.StatusSuccess
	case stripeEventAsyncPaymentFailed:
		status = payment.StatusFailed
	case stripeEventSessionExpired:
		status = payment.StatusCancelled
	default:
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: StripeName, Op: "ProcessWebhook",
			Message: fmt.Sprintf("unsupported event type %q", event.Type)}
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: StripeName, Op: "ProcessWebhook", Message: "malformed checkout session", Err: err}
	}
	// A completed session is only final when the payment settled synchronously.
	if event.Type == stripeEventSessionCompleted && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = payment.StatusSuccess
	}

	paymentID := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		paymentID = sess.PaymentIntent.ID
	}

	return &payment.WebhookResult{
		Success:   status == payment.StatusSuccess,
		Provider:  StripeName,
		PaymentID: paymentID,
		OrderID:   sess.ClientReferenceID,
		Status:    status,
		Amount:    decimal.New(sess.AmountTotal, -2),
		Currency:  strings.ToUpper(string(sess.Currency)),
		Raw: map[string]string{
			"event_id":       event.ID,
			"event_type":     string(event.Type),
			"session_id":     sess.ID,
			"payment_status": string(sess.PaymentStatus),
		},
	}, nil
}

// Refund refunds a PaymentIntent
func (a *StripeAdapter) Refund(ctx context.Context, req *payment.RefundRequest) (*payment.RefundResult, error) {
	if !a.IsConfigured() {
		return nil, shared.NewConfigurationError(StripeName, "secret key is not configured")
	}
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(StripeName, err)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentID),
		Amount:        stripe.Int64(req.Amount.Shift(2).Round(0).IntPart()),
	}
	params.Context = ctx
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}

	r, err := a.api.Refunds.New(params)
	if err != nil {
		return nil, shared.NewUpstreamError(StripeName, "Refund", err)
	}

	status := payment.StatusPending
	switch r.Status {
	case stripe.RefundStatusSucceeded:
		status = payment.StatusSuccess
	case stripe.RefundStatusFailed:
		status = payment.StatusFailed
	case stripe.RefundStatusCanceled:
		status = payment.StatusCancelled
	}
	return &payment.RefundResult{
		RefundID: r.ID,
		Status:   status,
		Amount:   decimal.New(r.Amount, -2),
	}, nil
}

// Acknowledge renders the webhook response body Stripe expects
func (a *StripeAdapter) Acknowledge(success bool) (string, []byte) {
	if success {
		return "application/json", []byte(`{"received":true}`)
	}
	return "application/json", []byte(`{"received":false}`)
}

var _ payment.Gateway = (*StripeAdapter)(nil)
