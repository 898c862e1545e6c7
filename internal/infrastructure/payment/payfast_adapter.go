package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/payment"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/signature"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// PayFastName is the registry key of the PayFast gateway
const PayFastName = "payfast"

// PayFastAdapter implements payment.Gateway for PayFast redirect checkout
// and Instant Transaction Notifications (ITN).
type PayFastAdapter struct {
	config config.PayFastConfig
	codec  *signature.Codec
	api    *upstream.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewPayFastAdapter creates a PayFast adapter. An unconfigured adapter is
// valid; it reports IsConfigured() == false and is skipped by the registry.
func NewPayFastAdapter(cfg config.PayFastConfig, api *upstream.Client, logger *zap.Logger) *PayFastAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayFastAdapter{
		config: cfg,
		codec:  signature.NewMD5Codec(),
		api:    api,
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the registry key
func (a *PayFastAdapter) Name() string { return PayFastName }

// DisplayName returns the human-facing name
func (a *PayFastAdapter) DisplayName() string { return "PayFast" }

// IsConfigured reports whether merchant credentials are present
func (a *PayFastAdapter) IsConfigured() bool { return a.config.IsConfigured() }

// Validate validates the adapter configuration
func (a *PayFastAdapter) Validate() error {
	if a.config.MerchantID == "" {
		return ErrPayFastMissingMerchantID
	}
	if a.config.MerchantKey == "" {
		return ErrPayFastMissingMerchantKey
	}
	if a.config.NotifyURL == "" {
		return ErrPayFastMissingNotifyURL
	}
	return nil
}

func (a *PayFastAdapter) processURL() string {
	if a.config.Sandbox {
		return payfastSandboxProcessURL
	}
	return payfastProcessURL
}

// InitiatePayment builds the signed redirect to the PayFast process page
func (a *PayFastAdapter) InitiatePayment(ctx context.Context, req *payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	if err := a.Validate(); err != nil {
		return nil, shared.NewConfigurationError(PayFastName, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(PayFastName, err)
	}
	if !strings.EqualFold(req.Currency, payfastCurrency) {
		return nil, invalidRequest(PayFastName, ErrPayFastCurrency)
	}

	firstName, lastName := req.Customer.FirstAndLastName()
	params := url.Values{}
	params.Set(pfMerchantID, a.config.MerchantID)
	params.Set(pfMerchantKey, a.config.MerchantKey)
	params.Set("return_url", a.config.ReturnURL)
	params.Set("cancel_url", a.config.CancelURL)
	params.Set("notify_url", a.config.NotifyURL)
	params.Set("name_first", firstName)
	params.Set("name_last", lastName)
	params.Set("email_address", req.Customer.Email)
	params.Set("cell_number", req.Customer.Phone)
	params.Set(pfMPaymentID, req.OrderID.String())
	params.Set("amount", req.Amount.StringFixed(2))
	params.Set("item_name", "Order "+req.OrderNumber)
	params.Set("item_description", req.Description)
	params.Set(pfCustomStr1, req.OrderNumber)

	// Empty values are not signed and must not be sent either.
	for k, v := range params {
		if len(v) == 0 || v[0] == "" {
			params.Del(k)
		}
	}
	params.Set(signature.FieldName, a.codec.Sign(params, a.config.Passphrase))

	a.logger.Debug("PayFast checkout prepared",
		zap.String("order_number", req.OrderNumber),
		zap.String("amount", req.Amount.StringFixed(2)),
	)

	return &payment.CheckoutSession{
		Provider:    PayFastName,
		RedirectURL: a.processURL() + "?" + params.Encode(),
		Reference:   req.OrderID.String(),
	}, nil
}

// VerifySignature checks the ITN signature and merchant ID
func (a *PayFastAdapter) VerifySignature(req *payment.WebhookRequest) error {
	form, err := webhookForm(req)
	if err != nil {
		return shared.NewSignatureError(PayFastName, "unreadable notification body")
	}
	if err := a.codec.Verify(form, a.config.Passphrase); err != nil {
		return &shared.IntegrationError{Kind: shared.KindSignature, Provider: PayFastName, Message: "invalid signature", Err: err}
	}
	if form.Get(pfMerchantID) != a.config.MerchantID {
		return shared.NewSignatureError(PayFastName, "merchant ID mismatch")
	}
	return nil
}

// ProcessWebhook verifies an ITN and maps it to the normalized result
func (a *PayFastAdapter) ProcessWebhook(ctx context.Context, req *payment.WebhookRequest) (*payment.WebhookResult, error) {
	if !a.IsConfigured() {
		return nil, shared.NewConfigurationError(PayFastName, "merchant credentials are not configured")
	}
	if err := a.VerifySignature(req); err != nil {
		return nil, err
	}

	form, _ := webhookForm(req)
	amount, err := decimal.NewFromString(form.Get(pfAmountGross))
	if err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: PayFastName, Op: "ProcessWebhook", Message: "invalid amount_gross", Err: err}
	}
	if form.Get(pfPaymentID) == "" {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: PayFastName, Op: "ProcessWebhook", Message: "missing pf_payment_id"}
	}

	status := mapPayFastStatus(form.Get(pfPaymentStatus))
	raw := make(map[string]string, len(form))
	for k := range form {
		raw[k] = form.Get(k)
	}

	return &payment.WebhookResult{
		Success:   status == payment.StatusSuccess,
		Provider:  PayFastName,
		PaymentID: form.Get(pfPaymentID),
		OrderID:   form.Get(pfMPaymentID),
		Status:    status,
		Amount:    amount,
		Currency:  payfastCurrency,
		Raw:       raw,
	}, nil
}

// Refund calls the PayFast refunds API. Amounts are sent in cents.
func (a *PayFastAdapter) Refund(ctx context.Context, req *payment.RefundRequest) (*payment.RefundResult, error) {
	if !a.IsConfigured() || a.api == nil {
		return nil, shared.NewConfigurationError(PayFastName, "refund API is not configured")
	}
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(PayFastName, err)
	}

	headers := a.apiHeaders()
	body := payfastRefundRequest{
		Amount: req.Amount.Shift(2).Round(0).IntPart(),
		Reason: req.Reason,
	}
	signed := url.Values{}
	for k, v := range headers {
		signed.Set(k, v)
	}
	signed.Set("amount", strconv.FormatInt(body.Amount, 10))
	signed.Set("reason", body.Reason)
	headers[signature.FieldName] = a.codec.Sign(signed, a.config.Passphrase)

	var resp payfastRefundResponse
	err := a.api.Do(ctx, upstream.Request{
		Op:      "Refund",
		Method:  http.MethodPost,
		Path:    "/refunds/" + url.PathEscape(req.PaymentID),
		Query:   a.testingQuery(),
		JSON:    body,
		Headers: headers,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Data.Response {
		return nil, shared.NewUpstreamError(PayFastName, "Refund", fmt.Errorf("refund rejected: %s", resp.Data.Message))
	}

	return &payment.RefundResult{
		RefundID: resp.Data.RefundID,
		Status:   payment.StatusSuccess,
		Amount:   req.Amount,
	}, nil
}

// Acknowledge renders the ITN response. PayFast only checks for HTTP 200.
func (a *PayFastAdapter) Acknowledge(success bool) (string, []byte) {
	if success {
		return "text/plain", []byte("OK")
	}
	return "text/plain", []byte("FAIL")
}

func (a *PayFastAdapter) apiHeaders() map[string]string {
	return map[string]string{
		"merchant-id": a.config.MerchantID,
		"version":     payfastAPIVersion,
		"timestamp":   a.now().Format(payfastTimeLayout),
	}
}

func (a *PayFastAdapter) testingQuery() url.Values {
	if a.config.Sandbox {
		return url.Values{"testing": {"true"}}
	}
	return nil
}

func invalidRequest(provider string, err error) error {
	return &shared.IntegrationError{Kind: shared.KindValidation, Provider: provider, Message: "invalid payment request", Err: err}
}

// webhookForm returns the parsed form, decoding the raw body when the
// transport layer did not parse it.
func webhookForm(req *payment.WebhookRequest) (url.Values, error) {
	if len(req.Form) > 0 {
		return req.Form, nil
	}
	return url.ParseQuery(string(req.Body))
}

var _ payment.Gateway = (*PayFastAdapter)(nil)
