package accounting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/storeops/backend/internal/domain/accounting"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// XeroName is the registry key of Xero
const XeroName = "xero"

// XeroAdapter implements accounting.Ledger against the Xero accounting API.
// Token exchange and refresh go through golang.org/x/oauth2; API calls
// carry the bearer token resolved by the credential manager.
type XeroAdapter struct {
	config     config.XeroConfig
	oauth      *oauth2.Config
	api        *upstream.Client
	httpClient *http.Client
	logger     *zap.Logger
}

// XeroOption configures a XeroAdapter
type XeroOption func(*XeroAdapter)

// WithXeroHTTPClient sets the client used for token endpoint calls
func WithXeroHTTPClient(hc *http.Client) XeroOption {
	return func(a *XeroAdapter) {
		a.httpClient = hc
	}
}

// NewXeroAdapter creates the adapter
func NewXeroAdapter(cfg config.XeroConfig, api *upstream.Client, logger *zap.Logger, opts ...XeroOption) *XeroAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &XeroAdapter{
		config: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		api:    api,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *XeroAdapter) Name() string        { return XeroName }
func (a *XeroAdapter) DisplayName() string { return "Xero" }
func (a *XeroAdapter) IsConfigured() bool  { return a.config.IsConfigured() }

func (a *XeroAdapter) ensureConfigured() error {
	if !a.IsConfigured() {
		return shared.NewConfigurationError(XeroName, "client ID or secret is not configured")
	}
	return nil
}

// tokenContext makes oauth2 use our HTTP client for token endpoint calls
func (a *XeroAdapter) tokenContext(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// AuthCodeURL returns the consent page URL carrying state
func (a *XeroAdapter) AuthCodeURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens
func (a *XeroAdapter) ExchangeCode(ctx context.Context, code string) (*accounting.TokenResponse, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewValidationError("authorization code is required")
	}
	tok, err := a.oauth.Exchange(a.tokenContext(ctx), code)
	if err != nil {
		return nil, tokenError("ExchangeCode", err)
	}
	return toTokenResponse(tok), nil
}

// RefreshToken obtains a new access token. Xero rotates refresh tokens,
// so the returned response carries the replacement.
func (a *XeroAdapter) RefreshToken(ctx context.Context, refreshToken string) (*accounting.TokenResponse, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, shared.NewValidationError("refresh token is required")
	}
	tok, err := a.oauth.TokenSource(a.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, tokenError("RefreshToken", err)
	}
	return toTokenResponse(tok), nil
}

func toTokenResponse(tok *oauth2.Token) *accounting.TokenResponse {
	scope, _ := tok.Extra("scope").(string)
	return &accounting.TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		Scope:        scope,
		Expiry:       tok.Expiry,
	}
}

func tokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return shared.NewUpstreamError(XeroName, op, &upstream.StatusError{
			StatusCode: re.Response.StatusCode,
			Body:       strings.TrimSpace(re.ErrorCode + " " + re.ErrorDescription),
		})
	}
	return shared.NewUpstreamError(XeroName, op, err)
}

func (a *XeroAdapter) apiHeaders(accessToken string) map[string]string {
	h := map[string]string{"Authorization": "Bearer " + accessToken}
	if a.config.TenantID != "" {
		h[xeroTenantHeader] = a.config.TenantID
	}
	return h
}

// PushInvoice creates an authorised sales invoice
func (a *XeroAdapter) PushInvoice(ctx context.Context, accessToken string, inv *accounting.Invoice) (*accounting.InvoiceResult, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: XeroName, Op: "PushInvoice", Message: "invalid invoice", Err: err}
	}

	var resp xeroInvoicesResponse
	if err := a.api.Do(ctx, upstream.Request{
		Op:      "PushInvoice",
		Method:  http.MethodPost,
		Path:    "/Invoices",
		JSON:    xeroInvoicesRequest{Invoices: []xeroInvoice{toXeroInvoice(inv, a.config.SalesAccount)}},
		Headers: a.apiHeaders(accessToken),
	}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Invoices) == 0 || resp.Invoices[0].InvoiceID == "" {
		return nil, shared.NewUpstreamError(XeroName, "PushInvoice", fmt.Errorf("response has no invoice"))
	}

	created := resp.Invoices[0]
	a.logger.Info("Invoice pushed to Xero",
		zap.String("reference", inv.Reference),
		zap.String("invoice_number", created.InvoiceNumber),
	)
	return &accounting.InvoiceResult{
		Backend:   XeroName,
		InvoiceID: created.InvoiceID,
		Number:    created.InvoiceNumber,
		Status:    created.Status,
	}, nil
}

// RecordPayment applies a payment to an invoice
func (a *XeroAdapter) RecordPayment(ctx context.Context, accessToken string, p *accounting.PaymentRecord) error {
	if err := a.ensureConfigured(); err != nil {
		return err
	}
	if strings.TrimSpace(p.InvoiceID) == "" || !p.Amount.IsPositive() {
		return shared.NewValidationError("payment needs an invoice ID and a positive amount")
	}
	return a.api.Do(ctx, upstream.Request{
		Op:     "RecordPayment",
		Method: http.MethodPut,
		Path:   "/Payments",
		JSON: xeroPaymentsRequest{Payments: []xeroPayment{{
			Invoice:   xeroInvoiceRef{InvoiceID: p.InvoiceID},
			Account:   xeroAccountRef{Code: a.config.PaymentAccount},
			Date:      xeroDate(p.PaidAt),
			Amount:    xeroNumber(p.Amount),
			Reference: p.Reference,
		}}},
		Headers: a.apiHeaders(accessToken),
	}, nil)
}

var _ accounting.Ledger = (*XeroAdapter)(nil)
