package accounting

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/accounting"
)

const (
	xeroDateLayout       = "2006-01-02"
	xeroTenantHeader     = "xero-tenant-id"
	xeroInvoiceTypeSale  = "ACCREC"
	xeroStatusAuthorised = "AUTHORISED"
	xeroDefaultTaxType   = "OUTPUT"
)

type xeroContact struct {
	Name         string `json:"Name"`
	EmailAddress string `json:"EmailAddress,omitempty"`
}

type xeroLineItem struct {
	Description string      `json:"Description"`
	Quantity    json.Number `json:"Quantity"`
	UnitAmount  json.Number `json:"UnitAmount"`
	AccountCode string      `json:"AccountCode"`
	TaxType     string      `json:"TaxType,omitempty"`
}

type xeroInvoice struct {
	Type         string         `json:"Type"`
	Contact      xeroContact    `json:"Contact"`
	Date         string         `json:"Date"`
	DueDate      string         `json:"DueDate"`
	Reference    string         `json:"Reference,omitempty"`
	CurrencyCode string         `json:"CurrencyCode,omitempty"`
	Status       string         `json:"Status"`
	LineItems    []xeroLineItem `json:"LineItems"`
}

type xeroInvoicesRequest struct {
	Invoices []xeroInvoice `json:"Invoices"`
}

type xeroInvoiceRef struct {
	InvoiceID     string `json:"InvoiceID"`
	InvoiceNumber string `json:"InvoiceNumber,omitempty"`
	Status        string `json:"Status,omitempty"`
}

type xeroInvoicesResponse struct {
	Invoices []xeroInvoiceRef `json:"Invoices"`
}

type xeroAccountRef struct {
	Code string `json:"Code"`
}

type xeroPayment struct {
	Invoice   xeroInvoiceRef `json:"Invoice"`
	Account   xeroAccountRef `json:"Account"`
	Date      string         `json:"Date"`
	Amount    json.Number    `json:"Amount"`
	Reference string         `json:"Reference,omitempty"`
}

type xeroPaymentsRequest struct {
	Payments []xeroPayment `json:"Payments"`
}

func xeroNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func xeroDate(t time.Time) string {
	return t.Format(xeroDateLayout)
}

// toXeroInvoice maps an invoice, filling the sales account and tax type
// on lines that do not set them.
func toXeroInvoice(inv *accounting.Invoice, salesAccount string) xeroInvoice {
	issued := inv.IssueDate
	if issued.IsZero() {
		issued = time.Now()
	}
	due := inv.DueDate
	if due.IsZero() {
		due = issued
	}

	lines := make([]xeroLineItem, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		account := l.AccountCode
		if account == "" {
			account = salesAccount
		}
		tax := l.TaxType
		if tax == "" {
			tax = xeroDefaultTaxType
		}
		lines = append(lines, xeroLineItem{
			Description: l.Description,
			Quantity:    xeroNumber(l.Quantity),
			UnitAmount:  xeroNumber(l.UnitAmount),
			AccountCode: account,
			TaxType:     tax,
		})
	}

	return xeroInvoice{
		Type:         xeroInvoiceTypeSale,
		Contact:      xeroContact{Name: inv.ContactName, EmailAddress: inv.ContactEmail},
		Date:         xeroDate(issued),
		DueDate:      xeroDate(due),
		Reference:    inv.Reference,
		CurrencyCode: inv.Currency,
		Status:       xeroStatusAuthorised,
		LineItems:    lines,
	}
}
