package accounting

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/accounting"
	"github.com/storeops/backend/internal/domain/shared"
)

const (
	defaultStateTTL = 10 * time.Minute
	stateBytes      = 32
)

// ConnectService runs the authorization-code flow that connects a backend
type ConnectService struct {
	registry    *accounting.Registry
	states      accounting.StateStore
	credentials *CredentialManager
	stateTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewConnectService creates a new ConnectService
func NewConnectService(
	registry *accounting.Registry,
	states accounting.StateStore,
	credentials *CredentialManager,
	stateTTL time.Duration,
	logger *zap.Logger,
) *ConnectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stateTTL <= 0 {
		stateTTL = defaultStateTTL
	}
	return &ConnectService{
		registry:    registry,
		states:      states,
		credentials: credentials,
		stateTTL:    stateTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// BeginAuthorization issues a one-time state bound to backend and returns the
// provider's authorization URL carrying it.
func (s *ConnectService) BeginAuthorization(ctx context.Context, backend string) (*AuthorizationStart, error) {
	ledger, err := s.registry.GetConfigured(backend)
	if err != nil {
		return nil, err
	}
	state, err := newState()
	if err != nil {
		return nil, fmt.Errorf("generate oauth state: %w", err)
	}
	if err := s.states.Save(ctx, state, backend, s.stateTTL); err != nil {
		return nil, fmt.Errorf("save oauth state: %w", err)
	}

	s.logger.Info("OAuth authorization started", zap.String("backend", backend))
	return &AuthorizationStart{
		Backend:      backend,
		AuthorizeURL: ledger.AuthCodeURL(state),
		State:        state,
		ExpiresAt:    s.now().Add(s.stateTTL),
	}, nil
}

// CompleteAuthorization consumes the state, exchanges the code and stores the
// resulting token as the backend's active credential. A state is accepted
// once; replaying a callback fails validation.
func (s *ConnectService) CompleteAuthorization(ctx context.Context, backend, code, state string) (*ConnectionStatus, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewValidationError("authorization code is required")
	}
	if strings.TrimSpace(state) == "" {
		return nil, shared.NewValidationError("state is required")
	}

	boundTo, ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	if !ok {
		s.logger.Warn("OAuth callback with unknown or expired state", zap.String("backend", backend))
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: backend, Op: "CompleteAuthorization", Message: "unknown or expired state"}
	}
	if boundTo != backend {
		s.logger.Warn("OAuth state issued for another backend",
			zap.String("backend", backend),
			zap.String("state_backend", boundTo))
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: backend, Op: "CompleteAuthorization", Message: "state was issued for another backend"}
	}

	ledger, err := s.registry.GetConfigured(backend)
	if err != nil {
		return nil, err
	}
	token, err := ledger.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Warn("OAuth code exchange failed", zap.String("backend", backend), zap.Error(err))
		return nil, err
	}
	if _, err := s.credentials.StoreNewToken(ctx, backend, token); err != nil {
		return nil, err
	}
	return s.credentials.Status(ctx, backend)
}

func newState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
