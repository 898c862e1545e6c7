package shipping

import (
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/domain/shipping"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// NewRegistry registers every carrier. Courier Guy is registered first so
// it wins "first configured" fallback when no default is set.
func NewRegistry(cfg *config.Config, logger *zap.Logger, metrics *telemetry.IntegrationMetrics) (*shipping.Registry, error) {
	reg := shipping.NewRegistry(integration.WithDefault(cfg.Integration.DefaultShipping))
	domain := string(integration.DomainShipping)

	cgAPI, err := upstream.New(upstream.Config{
		Provider:          CourierGuyName,
		Domain:            domain,
		BaseURL:           cfg.CourierGuy.BaseURL,
		Timeout:           cfg.Integration.ProviderTimeout,
		RequestsPerMinute: cfg.Integration.RequestsPerMinute,
		Headers:           map[string]string{"Authorization": "Bearer " + cfg.CourierGuy.APIKey},
	}, upstream.WithLogger(logger), upstream.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	reg.Register(NewCourierGuyAdapter(cfg.CourierGuy, cgAPI, logger.Named(CourierGuyName)))

	pargoAPI, err := upstream.New(upstream.Config{
		Provider:          PargoName,
		Domain:            domain,
		BaseURL:           cfg.Pargo.BaseURL,
		Timeout:           cfg.Integration.ProviderTimeout,
		RequestsPerMinute: cfg.Integration.RequestsPerMinute,
	}, upstream.WithLogger(logger), upstream.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	reg.Register(NewPargoAdapter(cfg.Pargo, pargoAPI, logger.Named(PargoName)))

	if cfg.Integration.MockProviders {
		reg.Register(NewMockCarrier())
	}

	logger.Info("Shipping carriers registered",
		zap.Strings("providers", reg.Names()),
		zap.Int("configured", len(reg.Configured())),
	)
	return reg, nil
}
