package payment

import (
	"context"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/payment"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/signature"
)

// MockName is the registry key of the mock gateway
const MockName = "mock"

// MockGateway is an in-memory gateway for development and tests.
// Notifications are HMAC-SHA256 signed form posts with the fields
// order_id, payment_id, status, amount and currency.
type MockGateway struct {
	Secret  string
	BaseURL string

	mu       sync.Mutex
	sessions []payment.CheckoutRequest
	// FailNext makes the next InitiatePayment return an UpstreamError
	FailNext bool
	codec    *signature.Codec
}

// NewMockGateway creates a mock gateway signing with secret
func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{
		Secret:  secret,
		BaseURL: "https://pay.mock.local/checkout",
		codec:   signature.NewHMACSHA256Codec(),
	}
}

func (g *MockGateway) Name() string        { return MockName }
func (g *MockGateway) DisplayName() string { return "Mock Payments" }
func (g *MockGateway) IsConfigured() bool  { return true }

// InitiatePayment records the request and returns a fake redirect
func (g *MockGateway) InitiatePayment(ctx context.Context, req *payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(MockName, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailNext {
		g.FailNext = false
		return nil, shared.NewUpstreamError(MockName, "InitiatePayment", context.DeadlineExceeded)
	}
	g.sessions = append(g.sessions, *req)

	ref := uuid.NewString()
	q := url.Values{"order": {req.OrderNumber}, "ref": {ref}}
	return &payment.CheckoutSession{
		Provider:    MockName,
		RedirectURL: g.BaseURL + "?" + q.Encode(),
		Reference:   ref,
	}, nil
}

// Sessions returns the checkout requests seen so far
func (g *MockGateway) Sessions() []payment.CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payment.CheckoutRequest(nil), g.sessions...)
}

// SignNotification builds a signed notification form
func (g *MockGateway) SignNotification(orderID, paymentID string, status payment.Status, amount decimal.Decimal) url.Values {
	form := url.Values{
		"order_id":   {orderID},
		"payment_id": {paymentID},
		"status":     {status.String()},
		"amount":     {amount.StringFixed(2)},
		"currency":   {"ZAR"},
	}
	form.Set(signature.FieldName, g.codec.Sign(form, g.Secret))
	return form
}

// VerifySignature checks the HMAC signature
func (g *MockGateway) VerifySignature(req *payment.WebhookRequest) error {
	form, err := webhookForm(req)
	if err != nil {
		return shared.NewSignatureError(MockName, "unreadable notification body")
	}
	if err := g.codec.Verify(form, g.Secret); err != nil {
		return &shared.IntegrationError{Kind: shared.KindSignature, Provider: MockName, Message: "invalid signature", Err: err}
	}
	return nil
}

// ProcessWebhook verifies and maps a mock notification
func (g *MockGateway) ProcessWebhook(ctx context.Context, req *payment.WebhookRequest) (*payment.WebhookResult, error) {
	if err := g.VerifySignature(req); err != nil {
		return nil, err
	}
	form, _ := webhookForm(req)

	status := payment.Status(form.Get("status"))
	if !status.IsValid() {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: MockName, Op: "ProcessWebhook", Message: "unknown status"}
	}
	amount, err := decimal.NewFromString(form.Get("amount"))
	if err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: MockName, Op: "ProcessWebhook", Message: "invalid amount", Err: err}
	}

	return &payment.WebhookResult{
		Success:   status == payment.StatusSuccess,
		Provider:  MockName,
		PaymentID: form.Get("payment_id"),
		OrderID:   form.Get("order_id"),
		Status:    status,
		Amount:    amount,
		Currency:  form.Get("currency"),
	}, nil
}

// Refund always succeeds
func (g *MockGateway) Refund(ctx context.Context, req *payment.RefundRequest) (*payment.RefundResult, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(MockName, err)
	}
	return &payment.RefundResult{RefundID: uuid.NewString(), Status: payment.StatusSuccess, Amount: req.Amount}, nil
}

// Acknowledge renders a plain-text acknowledgement
func (g *MockGateway) Acknowledge(success bool) (string, []byte) {
	if success {
		return "text/plain", []byte("OK")
	}
	return "text/plain", []byte("FAIL")
}

var _ payment.Gateway = (*MockGateway)(nil)
