// Package accounting contains the OAuth credential lifecycle and the ledger
// port for external accounting backends.
package accounting

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/backend/internal/domain/shared"
)

// DefaultRefreshSkew is how long before expiry a token is proactively renewed
const DefaultRefreshSkew = 5 * time.Minute

var (
	ErrNoActiveCredential  = shared.NewNotFoundError("accounting: no active credential")
	ErrMissingAccessToken  = errors.New("accounting: token response has no access token")
	ErrInvalidBackend      = errors.New("accounting: backend name is required")
	ErrCredentialNotActive = errors.New("accounting: credential is not active")
)

// DeactivationReason records why a credential stopped being usable
type DeactivationReason string

const (
	ReasonReplaced      DeactivationReason = "replaced"
	ReasonRefreshFailed DeactivationReason = "refresh_failed"
	ReasonDisconnected  DeactivationReason = "disconnected"
)

// TokenResponse is the result of an authorization-code exchange or refresh
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	// ExpiresIn is the lifetime reported by the provider
	ExpiresIn time.Duration
	// Expiry, when set, takes precedence over ExpiresIn
	Expiry time.Time
}

// Validate validates the token response
func (t *TokenResponse) Validate() error {
	if strings.TrimSpace(t.AccessToken) == "" {
		return ErrMissingAccessToken
	}
	return nil
}

// ExpiresAt resolves the absolute expiry relative to now
func (t *TokenResponse) ExpiresAt(now time.Time) time.Time {
	if !t.Expiry.IsZero() {
		return t.Expiry
	}
	return now.Add(t.ExpiresIn)
}

// OAuthCredential is a time-bounded grant for one accounting backend.
// Credentials are never deleted; deactivated rows are the audit trail.
type OAuthCredential struct {
	shared.BaseAggregateRoot
	Backend            string
	AccessToken        string
	RefreshToken       string
	TokenType          string
	Scope              string
	ExpiresAt          time.Time
	IsActive           bool
	DeactivatedAt      *time.Time
	DeactivationReason DeactivationReason
	LastRefreshedAt    *time.Time
}

// NewOAuthCredential creates an active credential from a token response
func NewOAuthCredential(backend string, token *TokenResponse, now time.Time) (*OAuthCredential, error) {
	if strings.TrimSpace(backend) == "" {
		return nil, ErrInvalidBackend
	}
	if err := token.Validate(); err != nil {
		return nil, err
	}
	root := shared.NewBaseAggregateRoot()
	root.CreatedAt = now
	root.UpdatedAt = now
	return &OAuthCredential{
		BaseAggregateRoot: root,
		Backend:           backend,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		TokenType:         token.TokenType,
		Scope:             token.Scope,
		ExpiresAt:         token.ExpiresAt(now),
		IsActive:          true,
	}, nil
}

// NeedsRefresh is true when now+skew has reached the expiry
func (c *OAuthCredential) NeedsRefresh(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(c.ExpiresAt)
}

// CanRefresh reports whether a refresh token is available
func (c *OAuthCredential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// ApplyRefresh replaces the token material on this credential.
// Providers that do not rotate refresh tokens leave the old one in place.
func (c *OAuthCredential) ApplyRefresh(token *TokenResponse, now time.Time) error {
	if !c.IsActive {
		return ErrCredentialNotActive
	}
	if err := token.Validate(); err != nil {
		return err
	}
	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	if token.TokenType != "" {
		c.TokenType = token.TokenType
	}
	if token.Scope != "" {
		c.Scope = token.Scope
	}
	c.ExpiresAt = token.ExpiresAt(now)
	c.LastRefreshedAt = &now
	c.Touch(now)
	return nil
}

// Deactivate marks the credential unusable. Idempotent.
func (c *OAuthCredential) Deactivate(reason DeactivationReason, now time.Time) {
	if !c.IsActive {
		return
	}
	c.IsActive = false
	c.DeactivatedAt = &now
	c.DeactivationReason = reason
	c.Touch(now)
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// CredentialRepository persists credentials.
//
// ReplaceActive must deactivate every active credential for the backend and
// insert the new one in a single transaction.
type CredentialRepository interface {
	FindActive(ctx context.Context, backend string) (*OAuthCredential, error)
	ReplaceActive(ctx context.Context, cred *OAuthCredential) error
	// SaveRefreshed updates token material if the row is still active at the
	// loaded version; otherwise returns shared.ErrConcurrencyConflict.
	SaveRefreshed(ctx context.Context, cred *OAuthCredential) error
	Deactivate(ctx context.Context, id uuid.UUID, reason DeactivationReason) error
	DeactivateAll(ctx context.Context, backend string, reason DeactivationReason) (int64, error)
	CountActive(ctx context.Context, backend string) (int64, error)
	History(ctx context.Context, backend string, limit int) ([]OAuthCredential, error)
}

// OAuthClient performs the provider side of the authorization-code flow
type OAuthClient interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// StateStore holds the one-time OAuth state issued by BeginAuthorization
type StateStore interface {
	Save(ctx context.Context, state, backend string, ttl time.Duration) error
	// Consume returns the backend bound to state and forgets it.
	// ok is false when the state is unknown or expired.
	Consume(ctx context.Context, state string) (backend string, ok bool, err error)
}

// RefreshLock serializes token refreshes for a backend across replicas
type RefreshLock interface {
	// Acquire returns a release func, or acquired=false if another holder owns the lock
	Acquire(ctx context.Context, backend string, ttl time.Duration) (release func(), acquired bool, err error)
}
