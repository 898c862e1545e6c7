package payment

import (
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/domain/payment"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// mockSecret signs mock notifications in development
const mockSecret = "mock-webhook-secret"

// NewRegistry registers every payment gateway. Unconfigured gateways are
// registered too so they show up in provider listings.
func NewRegistry(cfg *config.Config, logger *zap.Logger, metrics *telemetry.IntegrationMetrics) (*payment.Registry, error) {
	defaultName := cfg.Integration.DefaultPayment
	if defaultName == "" {
		defaultName = PayFastName
	}
	reg := payment.NewRegistry(integration.WithDefault(defaultName))

	api, err := upstream.New(upstream.Config{
		Provider:          PayFastName,
		Domain:            string(integration.DomainPayment),
		BaseURL:           payfastAPIURL,
		Timeout:           cfg.Integration.ProviderTimeout,
		RequestsPerMinute: cfg.Integration.RequestsPerMinute,
	}, upstream.WithLogger(logger), upstream.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	reg.Register(NewPayFastAdapter(cfg.PayFast, api, logger.Named(PayFastName)))
	reg.Register(NewStripeAdapter(cfg.Stripe, logger.Named(StripeName)))

	if cfg.Integration.MockProviders {
		reg.Register(NewMockGateway(mockSecret))
	}

	logger.Info("Payment gateways registered",
		zap.Strings("providers", reg.Names()),
		zap.Int("configured", len(reg.Configured())),
	)
	return reg, nil
}
