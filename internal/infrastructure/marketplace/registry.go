package marketplace

import (
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/domain/marketplace"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// NewRegistry registers every marketplace channel
func NewRegistry(cfg *config.Config, logger *zap.Logger, metrics *telemetry.IntegrationMetrics) (*marketplace.Registry, error) {
	reg := marketplace.NewRegistry(integration.WithDefault(cfg.Integration.DefaultMarketplace))

	api, err := upstream.New(upstream.Config{
		Provider:          TakealotName,
		Domain:            string(integration.DomainMarketplace),
		BaseURL:           cfg.Takealot.BaseURL,
		Timeout:           cfg.Integration.ProviderTimeout,
		RequestsPerMinute: cfg.Integration.RequestsPerMinute,
		Headers:           map[string]string{"Authorization": "Key " + cfg.Takealot.APIKey},
	}, upstream.WithLogger(logger), upstream.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	reg.Register(NewTakealotAdapter(cfg.Takealot, api, logger.Named(TakealotName)))

	if cfg.Integration.MockProviders {
		reg.Register(NewMockChannel())
	}

	logger.Info("Marketplace channels registered",
		zap.Strings("providers", reg.Names()),
		zap.Int("configured", len(reg.Configured())),
	)
	return reg, nil
}
