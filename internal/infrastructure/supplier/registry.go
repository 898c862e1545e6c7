package supplier

import (
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/domain/supplier"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// NewRegistry registers every supplier backend
func NewRegistry(cfg *config.Config, logger *zap.Logger, metrics *telemetry.IntegrationMetrics) (*supplier.Registry, error) {
	reg := supplier.NewRegistry(integration.WithDefault(cfg.Integration.DefaultSupplier))

	api, err := upstream.New(upstream.Config{
		Provider:          DropshipName,
		Domain:            string(integration.DomainSupplier),
		BaseURL:           cfg.Dropship.BaseURL,
		Timeout:           cfg.Integration.ProviderTimeout,
		RequestsPerMinute: cfg.Integration.RequestsPerMinute,
	}, upstream.WithLogger(logger), upstream.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	reg.Register(NewDropshipAdapter(cfg.Dropship, api, logger.Named(DropshipName)))

	if cfg.Integration.MockProviders {
		reg.Register(NewMockSupplier())
	}

	logger.Info("Suppliers registered",
		zap.Strings("providers", reg.Names()),
		zap.Int("configured", len(reg.Configured())),
	)
	return reg, nil
}
