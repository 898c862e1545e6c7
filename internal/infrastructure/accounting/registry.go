package accounting

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/accounting"
	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// NewRegistry registers every accounting backend
func NewRegistry(cfg *config.Config, logger *zap.Logger, metrics *telemetry.IntegrationMetrics) (*accounting.Registry, error) {
	reg := accounting.NewRegistry(integration.WithDefault(cfg.Integration.DefaultAccounting))

	api, err := upstream.New(upstream.Config{
		Provider:          XeroName,
		Domain:            string(integration.DomainAccounting),
		BaseURL:           cfg.Xero.APIBaseURL,
		Timeout:           cfg.Integration.ProviderTimeout,
		RequestsPerMinute: cfg.Integration.RequestsPerMinute,
	}, upstream.WithLogger(logger), upstream.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	reg.Register(NewXeroAdapter(cfg.Xero, api, logger.Named(XeroName),
		WithXeroHTTPClient(&http.Client{Timeout: cfg.Integration.ProviderTimeout})))

	if cfg.Integration.MockProviders {
		reg.Register(NewMockLedger())
	}

	logger.Info("Accounting backends registered",
		zap.Strings("providers", reg.Names()),
		zap.Int("configured", len(reg.Configured())),
	)
	return reg, nil
}
