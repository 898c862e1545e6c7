package accounting

import (
	"time"

	"github.com/storeops/backend/internal/domain/accounting"
)

// ConnectionStatus reports whether a backend holds a usable credential
type ConnectionStatus struct {
	Backend         string     `json:"backend"`
	Configured      bool       `json:"configured"`
	Connected       bool       `json:"connected"`
	CredentialID    string     `json:"credential_id,omitempty"`
	Scope           string     `json:"scope,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
	NeedsRefresh    bool       `json:"needs_refresh"`
}

// CredentialSummary is a credential without its token material
type CredentialSummary struct {
	ID                 string     `json:"id"`
	Backend            string     `json:"backend"`
	IsActive           bool       `json:"is_active"`
	ExpiresAt          time.Time  `json:"expires_at"`
	CreatedAt          time.Time  `json:"created_at"`
	LastRefreshedAt    *time.Time `json:"last_refreshed_at,omitempty"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
	DeactivationReason string     `json:"deactivation_reason,omitempty"`
}

func toCredentialSummary(c *accounting.OAuthCredential) CredentialSummary {
	return CredentialSummary{
		ID:                 c.ID.String(),
		Backend:            c.Backend,
		IsActive:           c.IsActive,
		ExpiresAt:          c.ExpiresAt,
		CreatedAt:          c.CreatedAt,
		LastRefreshedAt:    c.LastRefreshedAt,
		DeactivatedAt:      c.DeactivatedAt,
		DeactivationReason: string(c.DeactivationReason),
	}
}

// AuthorizationStart is where the administrator is sent to grant access
type AuthorizationStart struct {
	Backend      string    `json:"backend"`
	AuthorizeURL string    `json:"authorize_url"`
	State        string    `json:"state"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// InvoiceSyncResult is the outcome of pushing one order to a ledger
type InvoiceSyncResult struct {
	Backend     string `json:"backend"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	InvoiceID   string `json:"invoice_id"`
	Number      string `json:"number,omitempty"`
	Status      string `json:"status,omitempty"`
	Total       string `json:"total"`
}
