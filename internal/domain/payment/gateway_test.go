package payment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/storeops/backend/internal/domain/shared"
)

func validCheckout() *CheckoutRequest {
	return &CheckoutRequest{
		OrderID:     uuid.New(),
		OrderNumber: "SO-20261018-0001",
		Amount:      decimal.RequireFromString("150.00"),
		Currency:    "ZAR",
		Customer:    Customer{Name: "Thandi Nkosi", Email: "thandi@example.com"},
	}
}

func TestCheckoutRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *CheckoutRequest)
		wantErr error
	}{
		{"valid", func(r *CheckoutRequest) {}, nil},
		{"nil order", func(r *CheckoutRequest) { r.OrderID = uuid.Nil }, ErrInvalidOrderID},
		{"blank number", func(r *CheckoutRequest) { r.OrderNumber = " " }, ErrInvalidOrderNumber},
		{"zero amount", func(r *CheckoutRequest) { r.Amount = decimal.Zero }, ErrInvalidAmount},
		{"bad currency", func(r *CheckoutRequest) { r.Currency = "RAND" }, ErrInvalidCurrency},
		{"missing email", func(r *CheckoutRequest) { r.Customer.Email = "" }, ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCheckout()
			tt.mutate(req)
			err := req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRefundRequest_Validate(t *testing.T) {
	req := &RefundRequest{PaymentID: "pf-1", Amount: decimal.NewFromInt(200), Total: decimal.NewFromInt(150)}
	assert.ErrorIs(t, req.Validate(), ErrRefundExceedsTotal)

	req.Amount = decimal.NewFromInt(50)
	assert.NoError(t, req.Validate())
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusSuccess.IsFinal())
	assert.False(t, StatusPending.IsFinal())
	assert.False(t, Status("COMPLETE").IsValid())
}

func TestCustomer_FirstAndLastName(t *testing.T) {
	first, last := Customer{Name: "Thandi  van der Merwe"}.FirstAndLastName()
	assert.Equal(t, "Thandi", first)
	assert.Equal(t, "van der Merwe", last)
}

func TestWebhookResult_DedupeKey(t *testing.T) {
	r := &WebhookResult{Provider: "payfast", PaymentID: "1089250", Status: StatusSuccess}
	assert.Equal(t, "webhook:payfast:1089250:success", r.DedupeKey())
}

func TestAsValidationError(t *testing.T) {
	err := AsValidationError(ErrInvalidAmount)
	assert.True(t, shared.IsKind(err, shared.KindValidation))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.NoError(t, AsValidationError(nil))
}
