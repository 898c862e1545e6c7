package accounting

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/integration"
)

var (
	ErrInvoiceNoLines   = errors.New("accounting: invoice must have at least one line")
	ErrInvoiceNoContact = errors.New("accounting: invoice contact name is required")
)

// InvoiceLine is one billable line pushed to a ledger
type InvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitAmount  decimal.Decimal
	AccountCode string
	TaxType     string
}

// Invoice is a sales invoice pushed to an accounting backend
type Invoice struct {
	Reference    string
	ContactName  string
	ContactEmail string
	IssueDate    time.Time
	DueDate      time.Time
	Currency     string
	Lines        []InvoiceLine
}

// Validate validates the invoice
func (i *Invoice) Validate() error {
	if strings.TrimSpace(i.ContactName) == "" {
		return ErrInvoiceNoContact
	}
	if len(i.Lines) == 0 {
		return ErrInvoiceNoLines
	}
	return nil
}

// Total sums the invoice lines
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range i.Lines {
		total = total.Add(l.Quantity.Mul(l.UnitAmount))
	}
	return total
}

// InvoiceResult is the backend's identifier for a pushed invoice
type InvoiceResult struct {
	Backend   string
	InvoiceID string
	Number    string
	Status    string
}

// PaymentRecord applies a received payment against a ledger invoice
type PaymentRecord struct {
	InvoiceID string
	Amount    decimal.Decimal
	PaidAt    time.Time
	Reference string
}

// Ledger is the capability set every accounting backend implements.
// Every call takes the bearer token the CredentialManager resolved.
type Ledger interface {
	integration.Provider
	OAuthClient

	PushInvoice(ctx context.Context, accessToken string, inv *Invoice) (*InvoiceResult, error)
	RecordPayment(ctx context.Context, accessToken string, p *PaymentRecord) error
}

// Registry is the accounting-domain provider registry
type Registry = integration.Registry[Ledger]

// NewRegistry creates an empty accounting registry
func NewRegistry(opts ...integration.RegistryOption) *Registry {
	return integration.NewRegistry[Ledger](integration.DomainAccounting, opts...)
}
