package accounting

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/storeops/backend/internal/domain/accounting"
	"github.com/storeops/backend/internal/domain/shared"
)

// MockName is the registry key of the mock ledger
const MockName = "mock"

// MockLedger is an in-memory ledger with a fake authorization-code flow.
// Any code is accepted; tokens are numbered so refreshes are observable.
type MockLedger struct {
	TokenTTL time.Duration
	// FailRefresh makes every RefreshToken call fail with an UpstreamError
	FailRefresh bool

	mu       sync.Mutex
	seq      int
	valid    map[string]bool
	invoices []accounting.Invoice
	payments []accounting.PaymentRecord
	refreshN int
}

// NewMockLedger creates a mock ledger issuing 30 minute tokens
func NewMockLedger() *MockLedger {
	return &MockLedger{
		TokenTTL: 30 * time.Minute,
		valid:    make(map[string]bool),
	}
}

func (m *MockLedger) Name() string        { return MockName }
func (m *MockLedger) DisplayName() string { return "Mock Ledger" }
func (m *MockLedger) IsConfigured() bool  { return true }

// AuthCodeURL returns a fake consent URL
func (m *MockLedger) AuthCodeURL(state string) string {
	return "https://ledger.mock.local/authorize?" + url.Values{"state": {state}}.Encode()
}

func (m *MockLedger) issue() *accounting.TokenResponse {
	m.seq++
	access := fmt.Sprintf("mock-access-%d", m.seq)
	m.valid[access] = true
	return &accounting.TokenResponse{
		AccessToken:  access,
		RefreshToken: fmt.Sprintf("mock-refresh-%d", m.seq),
		TokenType:    "Bearer",
		ExpiresIn:    m.TokenTTL,
	}
}

// ExchangeCode accepts any non-empty code
func (m *MockLedger) ExchangeCode(ctx context.Context, code string) (*accounting.TokenResponse, error) {
	if code == "" {
		return nil, shared.NewValidationError("authorization code is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issue(), nil
}

// RefreshToken issues a new token pair
func (m *MockLedger) RefreshToken(ctx context.Context, refreshToken string) (*accounting.TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshN++
	if m.FailRefresh {
		return nil, shared.NewUpstreamError(MockName, "RefreshToken", fmt.Errorf("invalid_grant"))
	}
	return m.issue(), nil
}

// Refreshes returns how many refreshes were attempted
func (m *MockLedger) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshN
}

func (m *MockLedger) authorize(op, accessToken string) error {
	if !m.valid[accessToken] {
		return shared.NewUpstreamError(MockName, op, fmt.Errorf("unauthorized"))
	}
	return nil
}

// PushInvoice stores the invoice
func (m *MockLedger) PushInvoice(ctx context.Context, accessToken string, inv *accounting.Invoice) (*accounting.InvoiceResult, error) {
	if err := inv.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: MockName, Op: "PushInvoice", Message: "invalid invoice", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.authorize("PushInvoice", accessToken); err != nil {
		return nil, err
	}
	m.invoices = append(m.invoices, *inv)
	n := len(m.invoices)
	return &accounting.InvoiceResult{
		Backend:   MockName,
		InvoiceID: fmt.Sprintf("mock-inv-%d", n),
		Number:    fmt.Sprintf("INV-%04d", n),
		Status:    "AUTHORISED",
	}, nil
}

// RecordPayment stores the payment
func (m *MockLedger) RecordPayment(ctx context.Context, accessToken string, p *accounting.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.authorize("RecordPayment", accessToken); err != nil {
		return err
	}
	m.payments = append(m.payments, *p)
	return nil
}

// Invoices returns the invoices pushed so far
func (m *MockLedger) Invoices() []accounting.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]accounting.Invoice(nil), m.invoices...)
}

var _ accounting.Ledger = (*MockLedger)(nil)
