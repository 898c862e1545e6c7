package payment

import (
	"errors"

	"github.com/storeops/backend/internal/domain/payment"
)

const (
	payfastProcessURL        = "https://www.payfast.co.za/eng/process"
	payfastSandboxProcessURL = "https://sandbox.payfast.co.za/eng/process"
	payfastAPIURL            = "https://api.payfast.co.za"
	payfastAPIVersion        = "v1"
	payfastTimeLayout        = "2006-01-02T15:04:05-07:00"
	payfastCurrency          = "ZAR"
)

// ITN field names
const (
	pfMerchantID    = "merchant_id"
	pfMerchantKey   = "merchant_key"
	pfPaymentID     = "pf_payment_id"
	pfMPaymentID    = "m_payment_id"
	pfPaymentStatus = "payment_status"
	pfAmountGross   = "amount_gross"
	pfCustomStr1    = "custom_str1"
)

// PayFast payment_status values
const (
	pfStatusComplete  = "COMPLETE"
	pfStatusFailed    = "FAILED"
	pfStatusPending   = "PENDING"
	pfStatusCancelled = "CANCELLED"
)

var (
	ErrPayFastMissingMerchantID  = errors.New("payfast: missing merchant ID")
	ErrPayFastMissingMerchantKey = errors.New("payfast: missing merchant key")
	ErrPayFastMissingNotifyURL   = errors.New("payfast: missing notify URL")
	ErrPayFastCurrency           = errors.New("payfast: only ZAR is supported")
)

// payfastRefundRequest is the body of POST /refunds/{id}
type payfastRefundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type payfastRefundResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Response  bool   `json:"response"`
		RefundID  string `json:"refund_id"`
		Message   string `json:"message"`
		PaymentID string `json:"pf_payment_id"`
	} `json:"data"`
}

// mapPayFastStatus normalizes an ITN payment_status
func mapPayFastStatus(status string) payment.Status {
	switch status {
	case pfStatusComplete:
		return payment.StatusSuccess
	case pfStatusFailed:
		return payment.StatusFailed
	case pfStatusCancelled:
		return payment.StatusCancelled
	default:
		return payment.StatusPending
	}
}
