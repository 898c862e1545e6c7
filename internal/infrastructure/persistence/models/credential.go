package models

import (
	"time"

	"github.com/storeops/backend/internal/domain/accounting"
)

// OAuthCredentialModel is the persistence model for accounting OAuth grants.
// At most one row per backend has is_active = true; inactive rows are kept
// as the audit trail.
type OAuthCredentialModel struct {
	AggregateModel
	Backend            string     `gorm:"type:varchar(50);not null;index:idx_oauth_credentials_backend_active,priority:1"`
	AccessToken        string     `gorm:"type:text;not null"`
	RefreshToken       string     `gorm:"type:text"`
	TokenType          string     `gorm:"type:varchar(30)"`
	Scope              string     `gorm:"type:text"`
	ExpiresAt          time.Time  `gorm:"not null"`
	IsActive           bool       `gorm:"not null;index:idx_oauth_credentials_backend_active,priority:2"`
	DeactivatedAt      *time.Time
	DeactivationReason string `gorm:"type:varchar(30)"`
	LastRefreshedAt    *time.Time
}

// TableName returns the table name for GORM
func (OAuthCredentialModel) TableName() string {
	return "oauth_credentials"
}

// ToDomain converts the persistence model to a domain OAuthCredential
func (m *OAuthCredentialModel) ToDomain() *accounting.OAuthCredential {
	return &accounting.OAuthCredential{
		BaseAggregateRoot:  m.ToAggregateRoot(),
		Backend:            m.Backend,
		AccessToken:        m.AccessToken,
		RefreshToken:       m.RefreshToken,
		TokenType:          m.TokenType,
		Scope:              m.Scope,
		ExpiresAt:          m.ExpiresAt,
		IsActive:           m.IsActive,
		DeactivatedAt:      m.DeactivatedAt,
		DeactivationReason: accounting.DeactivationReason(m.DeactivationReason),
		LastRefreshedAt:    m.LastRefreshedAt,
	}
}

// FromDomain populates the persistence model from a domain OAuthCredential
func (m *OAuthCredentialModel) FromDomain(c *accounting.OAuthCredential) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Backend = c.Backend
	m.AccessToken = c.AccessToken
	m.RefreshToken = c.RefreshToken
	m.TokenType = c.TokenType
	m.Scope = c.Scope
	m.ExpiresAt = c.ExpiresAt
	m.IsActive = c.IsActive
	m.DeactivatedAt = c.DeactivatedAt
	m.DeactivationReason = string(c.DeactivationReason)
	m.LastRefreshedAt = c.LastRefreshedAt
}

// OAuthCredentialModelFromDomain creates a new persistence model from a domain OAuthCredential
func OAuthCredentialModelFromDomain(c *accounting.OAuthCredential) *OAuthCredentialModel {
	m := &OAuthCredentialModel{}
	m.FromDomain(c)
	return m
}
