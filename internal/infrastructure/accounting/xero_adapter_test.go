package accounting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/internal/domain/accounting"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

func newXero(t *testing.T, handler http.HandlerFunc) *XeroAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.XeroConfig{
		ClientID:       "client-1",
		ClientSecret:   "secret-1",
		RedirectURL:    "https://shop.example.co.za/api/v1/integrations/accounting/xero/callback",
		TenantID:       "tenant-1",
		AuthURL:        srv.URL + "/authorize",
		TokenURL:       srv.URL + "/token",
		APIBaseURL:     srv.URL + "/api.xro/2.0",
		Scopes:         []string{"offline_access", "accounting.transactions"},
		SalesAccount:   "200",
		PaymentAccount: "090",
	}
	api, err := upstream.New(upstream.Config{Provider: XeroName, BaseURL: cfg.APIBaseURL})
	require.NoError(t, err)
	return NewXeroAdapter(cfg, api, nil, WithXeroHTTPClient(srv.Client()))
}

func TestXero_AuthCodeURL(t *testing.T) {
	a := newXero(t, func(w http.ResponseWriter, r *http.Request) {})

	u, err := url.Parse(a.AuthCodeURL("state-123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "offline_access accounting.transactions", q.Get("scope"))
}

func TestXero_ExchangeCode(t *testing.T) {
	a := newXero(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-1", user)
		assert.Equal(t, "secret-1", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "code-abc", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":1800,"scope":"offline_access accounting.transactions"}`))
	})

	before := time.Now()
	tok, err := a.ExchangeCode(context.Background(), "code-abc")
	require.NoError(t, err)

	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.Equal(t, "offline_access accounting.transactions", tok.Scope)
	assert.WithinDuration(t, before.Add(30*time.Minute), tok.ExpiresAt(time.Now()), 5*time.Second)
}

func TestXero_RefreshToken(t *testing.T) {
	t.Run("rotates refresh token", func(t *testing.T) {
		a := newXero(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","token_type":"Bearer","expires_in":1800}`))
		})

		tok, err := a.RefreshToken(context.Background(), "rt-1")
		require.NoError(t, err)
		assert.Equal(t, "at-2", tok.AccessToken)
		assert.Equal(t, "rt-2", tok.RefreshToken)
	})

	t.Run("invalid grant is upstream error", func(t *testing.T) {
		a := newXero(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		})

		_, err := a.RefreshToken(context.Background(), "rt-revoked")
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindUpstream))
		assert.Equal(t, http.StatusBadRequest, upstream.StatusCode(err))
	})
}

func TestXero_PushInvoice(t *testing.T) {
	var got xeroInvoicesRequest
	a := newXero(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api.xro/2.0/Invoices", r.URL.Path)
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, "tenant-1", r.Header.Get("Xero-Tenant-Id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"Invoices":[{"InvoiceID":"inv-uuid","InvoiceNumber":"INV-0042","Status":"AUTHORISED"}]}`))
	})

	res, err := a.PushInvoice(context.Background(), "at-1", &accounting.Invoice{
		Reference:   "SO-1001",
		ContactName: "Thandi Nkosi",
		IssueDate:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Currency:    "ZAR",
		Lines: []accounting.InvoiceLine{
			{Description: "Rooibos 500g", Quantity: decimal.NewFromInt(3), UnitAmount: decimal.RequireFromString("49.99")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-0042", res.Number)

	require.Len(t, got.Invoices, 1)
	inv := got.Invoices[0]
	assert.Equal(t, "ACCREC", inv.Type)
	assert.Equal(t, "2026-03-01", inv.Date)
	assert.Equal(t, "2026-03-01", inv.DueDate)
	assert.Equal(t, "200", inv.LineItems[0].AccountCode)
	assert.Equal(t, "49.99", inv.LineItems[0].UnitAmount.String())
}

func TestXero_PushInvoice_Invalid(t *testing.T) {
	a := newXero(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := a.PushInvoice(context.Background(), "at-1", &accounting.Invoice{ContactName: "X"})
	assert.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestXero_RecordPayment(t *testing.T) {
	a := newXero(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body xeroPaymentsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Payments, 1)
		assert.Equal(t, "inv-uuid", body.Payments[0].Invoice.InvoiceID)
		assert.Equal(t, "090", body.Payments[0].Account.Code)
		assert.Equal(t, "150", body.Payments[0].Amount.String())
		_, _ = w.Write([]byte(`{}`))
	})

	err := a.RecordPayment(context.Background(), "at-1", &accounting.PaymentRecord{
		InvoiceID: "inv-uuid",
		Amount:    decimal.NewFromInt(150),
		PaidAt:    time.Now(),
	})
	assert.NoError(t, err)
}

func TestXero_Unconfigured(t *testing.T) {
	a := NewXeroAdapter(config.XeroConfig{}, nil, nil)
	assert.False(t, a.IsConfigured())

	_, err := a.ExchangeCode(context.Background(), "code")
	assert.True(t, shared.IsKind(err, shared.KindConfiguration))
}

func TestMockLedger(t *testing.T) {
	m := NewMockLedger()

	tok, err := m.ExchangeCode(context.Background(), "any")
	require.NoError(t, err)

	_, err = m.PushInvoice(context.Background(), "bogus", &accounting.Invoice{
		ContactName: "A", Lines: []accounting.InvoiceLine{{Description: "x", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(1)}},
	})
	assert.True(t, shared.IsKind(err, shared.KindUpstream))

	res, err := m.PushInvoice(context.Background(), tok.AccessToken, &accounting.Invoice{
		ContactName: "A", Lines: []accounting.InvoiceLine{{Description: "x", Quantity: decimal.NewFromInt(1), UnitAmount: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", res.Number)

	m.FailRefresh = true
	_, err = m.RefreshToken(context.Background(), tok.RefreshToken)
	assert.True(t, shared.IsKind(err, shared.KindUpstream))
	assert.Equal(t, 1, m.Refreshes())
}
