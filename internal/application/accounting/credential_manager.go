// Package accounting manages the OAuth grants of accounting backends and
// pushes sales documents to them.
package accounting

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/storeops/backend/internal/domain/accounting"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
)

const (
	defaultLockTTL      = 30 * time.Second
	lockPollInterval    = 250 * time.Millisecond
	defaultHistoryLimit = 20
)

// CredentialManagerConfig holds configuration for the CredentialManager
type CredentialManagerConfig struct {
	Repo     accounting.CredentialRepository
	Registry *accounting.Registry
	// RefreshLock serializes refreshes across replicas; nil relies on the
	// in-process singleflight only.
	RefreshLock accounting.RefreshLock
	RefreshSkew time.Duration
	LockTTL     time.Duration
	Metrics     *telemetry.IntegrationMetrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// CredentialManager hands out usable access tokens, renewing them shortly
// before expiry. A failed refresh deactivates the credential; the backend
// must be reconnected by an administrator.
type CredentialManager struct {
	repo     accounting.CredentialRepository
	registry *accounting.Registry
	lock     accounting.RefreshLock
	skew     time.Duration
	lockTTL  time.Duration
	metrics  *telemetry.IntegrationMetrics
	logger   *zap.Logger
	now      func() time.Time
	group    singleflight.Group
}

// NewCredentialManager creates a new CredentialManager
func NewCredentialManager(cfg CredentialManagerConfig) *CredentialManager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	skew := cfg.RefreshSkew
	if skew <= 0 {
		skew = accounting.DefaultRefreshSkew
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CredentialManager{
		repo:     cfg.Repo,
		registry: cfg.Registry,
		lock:     cfg.RefreshLock,
		skew:     skew,
		lockTTL:  lockTTL,
		metrics:  cfg.Metrics,
		logger:   logger,
		now:      clock,
	}
}

// GetActiveToken returns a credential whose access token is valid for at
// least the refresh skew, refreshing it first when necessary.
// Returns accounting.ErrNoActiveCredential when the backend is not connected
// or the refresh failed.
func (m *CredentialManager) GetActiveToken(ctx context.Context, backend string) (*accounting.OAuthCredential, error) {
	cred, err := m.findActive(ctx, backend)
	if err != nil {
		return nil, err
	}
	if !cred.NeedsRefresh(m.now(), m.skew) {
		return cred, nil
	}

	// Concurrent callers share one refresh. The refresh outlives a single
	// caller's cancellation but not the lock TTL.
	v, err, joined := m.group.Do(backend, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.lockTTL)
		defer cancel()
		return m.refresh(rctx, backend)
	})
	if err != nil {
		return nil, err
	}
	if joined {
		m.logger.Debug("Joined in-flight token refresh", zap.String("backend", backend))
	}
	return v.(*accounting.OAuthCredential), nil
}

func (m *CredentialManager) findActive(ctx context.Context, backend string) (*accounting.OAuthCredential, error) {
	cred, err := m.repo.FindActive(ctx, backend)
	if err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			return nil, accounting.ErrNoActiveCredential
		}
		return nil, err
	}
	if cred == nil || !cred.IsActive {
		return nil, accounting.ErrNoActiveCredential
	}
	return cred, nil
}

func (m *CredentialManager) refresh(ctx context.Context, backend string) (*accounting.OAuthCredential, error) {
	if m.lock != nil {
		release, acquired, err := m.lock.Acquire(ctx, backend, m.lockTTL)
		switch {
		case err != nil:
			// The lock store being down must not take token refresh with it.
			m.logger.Warn("Refresh lock unavailable, refreshing without it",
				zap.String("backend", backend),
				zap.Error(err))
		case !acquired:
			return m.awaitPeerRefresh(ctx, backend)
		default:
			defer release()
		}
	}

	// Another replica may have finished a refresh while we waited for the lock.
	cred, err := m.findActive(ctx, backend)
	if err != nil {
		return nil, err
	}
	if !cred.NeedsRefresh(m.now(), m.skew) {
		return cred, nil
	}

	ledger, err := m.registry.GetConfigured(backend)
	if err != nil {
		return nil, err
	}
	if !cred.CanRefresh() {
		return nil, m.fail(ctx, cred, errors.New("credential has no refresh token"))
	}

	token, err := ledger.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		return nil, m.fail(ctx, cred, err)
	}
	if err := cred.ApplyRefresh(token, m.now()); err != nil {
		return nil, m.fail(ctx, cred, err)
	}

	if err := m.repo.SaveRefreshed(ctx, cred); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// Someone replaced or refreshed the row underneath us; their
			// state wins.
			m.logger.Info("Credential changed during refresh, reloading", zap.String("backend", backend))
			return m.findActive(ctx, backend)
		}
		return nil, err
	}

	m.metrics.ObserveCredentialRefresh(ctx, backend, nil)
	m.logger.Info("OAuth credential refreshed",
		zap.String("backend", backend),
		zap.String("credential_id", cred.ID.String()),
		zap.Time("expires_at", cred.ExpiresAt))
	return cred, nil
}

// awaitPeerRefresh polls until the replica holding the lock has stored a
// fresh token, the credential disappears, or the lock TTL passes.
func (m *CredentialManager) awaitPeerRefresh(ctx context.Context, backend string) (*accounting.OAuthCredential, error) {
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, shared.NewUpstreamError(backend, "RefreshToken", ctx.Err())
		case <-ticker.C:
		}
		cred, err := m.findActive(ctx, backend)
		if err != nil {
			return nil, err
		}
		if !cred.NeedsRefresh(m.now(), m.skew) {
			return cred, nil
		}
	}
}

// fail deactivates cred after a refresh failure. The caller gets
// ErrNoActiveCredential; the refresh is not retried.
func (m *CredentialManager) fail(ctx context.Context, cred *accounting.OAuthCredential, cause error) error {
	m.metrics.ObserveCredentialRefresh(ctx, cred.Backend, cause)
	m.logger.Warn("OAuth token refresh failed, deactivating credential",
		zap.String("backend", cred.Backend),
		zap.String("credential_id", cred.ID.String()),
		zap.Error(cause))
	if err := m.repo.Deactivate(ctx, cred.ID, accounting.ReasonRefreshFailed); err != nil {
		m.logger.Error("Failed to deactivate credential",
			zap.String("credential_id", cred.ID.String()),
			zap.Error(err))
	}
	return accounting.ErrNoActiveCredential
}

// StoreNewToken records a freshly granted token as the backend's only
// active credential.
func (m *CredentialManager) StoreNewToken(ctx context.Context, backend string, token *accounting.TokenResponse) (*accounting.OAuthCredential, error) {
	if _, err := m.registry.Get(backend); err != nil {
		return nil, err
	}
	if token == nil {
		return nil, shared.NewValidationError("token response is required")
	}
	cred, err := accounting.NewOAuthCredential(backend, token, m.now())
	if err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: backend, Message: "invalid token response", Err: err}
	}
	if err := m.repo.ReplaceActive(ctx, cred); err != nil {
		return nil, err
	}
	m.logger.Info("OAuth credential stored",
		zap.String("backend", backend),
		zap.String("credential_id", cred.ID.String()),
		zap.Time("expires_at", cred.ExpiresAt))
	return cred, nil
}

// Disconnect deactivates every active credential of backend.
// Disconnecting an unconnected backend is not an error.
func (m *CredentialManager) Disconnect(ctx context.Context, backend string) (int64, error) {
	if _, err := m.registry.Get(backend); err != nil {
		return 0, err
	}
	n, err := m.repo.DeactivateAll(ctx, backend, accounting.ReasonDisconnected)
	if err != nil {
		return 0, err
	}
	m.logger.Info("Accounting backend disconnected",
		zap.String("backend", backend),
		zap.Int64("deactivated", n))
	return n, nil
}

// Status describes the backend's connection without refreshing anything
func (m *CredentialManager) Status(ctx context.Context, backend string) (*ConnectionStatus, error) {
	ledger, err := m.registry.Get(backend)
	if err != nil {
		return nil, err
	}
	status := &ConnectionStatus{
		Backend:    backend,
		Configured: ledger.IsConfigured(),
	}
	cred, err := m.findActive(ctx, backend)
	if errors.Is(err, accounting.ErrNoActiveCredential) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}
	expiresAt := cred.ExpiresAt
	status.Connected = true
	status.CredentialID = cred.ID.String()
	status.Scope = cred.Scope
	status.ExpiresAt = &expiresAt
	status.LastRefreshedAt = cred.LastRefreshedAt
	status.NeedsRefresh = cred.NeedsRefresh(m.now(), m.skew)
	return status, nil
}

// History lists the backend's credentials newest first, deactivated ones included
func (m *CredentialManager) History(ctx context.Context, backend string, limit int) ([]CredentialSummary, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	creds, err := m.repo.History(ctx, backend, limit)
	if err != nil {
		return nil, err
	}
	out := make([]CredentialSummary, 0, len(creds))
	for i := range creds {
		out = append(out, toCredentialSummary(&creds[i]))
	}
	return out, nil
}
