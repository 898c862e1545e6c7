// Package shipping orchestrates the configured carriers: capability
// filtering, concurrent rating and carrier selection for bookings.
package shipping

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/domain/shipping"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
)

const (
	defaultProviderTimeout = 10 * time.Second
	defaultMaxFanOut       = 8
)

// AggregatorConfig holds configuration for the Aggregator
type AggregatorConfig struct {
	Registry        *shipping.Registry
	ProviderTimeout time.Duration
	MaxFanOut       int
	Metrics         *telemetry.IntegrationMetrics
	Logger          *zap.Logger
}

// Aggregator fans quote requests out to every eligible carrier and routes
// bookings to a single one.
type Aggregator struct {
	registry        *shipping.Registry
	providerTimeout time.Duration
	maxFanOut       int
	metrics         *telemetry.IntegrationMetrics
	logger          *zap.Logger
}

// NewAggregator creates a new Aggregator
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	fanOut := cfg.MaxFanOut
	if fanOut <= 0 {
		fanOut = defaultMaxFanOut
	}
	return &Aggregator{
		registry:        cfg.Registry,
		providerTimeout: timeout,
		maxFanOut:       fanOut,
		metrics:         cfg.Metrics,
		logger:          logger,
	}
}

// eligible returns configured carriers whose capabilities accept req,
// in registration order.
func (a *Aggregator) eligible(ctx context.Context, req *shipping.QuoteRequest) []shipping.Carrier {
	configured := a.registry.Configured()
	result := make([]shipping.Carrier, 0, len(configured))
	for _, c := range configured {
		if !c.Capabilities().Accepts(req) {
			a.metrics.ObserveFilteredCarrier(ctx, c.Name())
			a.logger.Debug("Carrier filtered out by capabilities",
				zap.String("carrier", c.Name()),
				zap.Float64("weight_kg", req.WeightKg),
				zap.String("service_type", req.ServiceType.String()),
			)
			continue
		}
		result = append(result, c)
	}
	return result
}

// GetAllQuotes rates req with every eligible carrier concurrently.
// Carrier failures and timeouts are dropped; the result keeps carrier
// registration order and may be empty.
func (a *Aggregator) GetAllQuotes(ctx context.Context, req *shipping.QuoteRequest) ([]shipping.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	carriers := a.eligible(ctx, req)
	slots := make([]*shipping.Quote, len(carriers))

	g := new(errgroup.Group)
	g.SetLimit(a.maxFanOut)
	for i, c := range carriers {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.providerTimeout)
			defer cancel()

			start := time.Now()
			q, err := c.GetQuote(callCtx, req)
			if err == nil && q == nil {
				err = shared.NewUpstreamError(c.Name(), "GetQuote", fmt.Errorf("carrier returned no quote"))
			}
			a.metrics.ObserveProviderCall(ctx, "shipping", c.Name(), "GetQuote", time.Since(start), err)
			if err != nil {
				a.logger.Debug("Carrier quote dropped",
					zap.String("carrier", c.Name()),
					zap.String("error_kind", shared.KindOf(err).String()),
					zap.Error(err),
				)
				return nil
			}
			slots[i] = q
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	quotes := make([]shipping.Quote, 0, len(slots))
	for _, q := range slots {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes, nil
}

// GetBestQuote returns the cheapest or fastest quote. Ties keep the
// carrier registered first.
func (a *Aggregator) GetBestQuote(ctx context.Context, req *shipping.QuoteRequest, pref shipping.Preference) (*shipping.Quote, error) {
	if pref == "" {
		pref = shipping.PreferCheapest
	}
	if !pref.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("unknown preference %q", pref))
	}
	quotes, err := a.GetAllQuotes(ctx, req)
	if err != nil {
		return nil, err
	}
	best := shipping.Best(quotes, pref)
	if best == nil {
		return nil, shared.NewNotFoundError("no carrier returned a quote")
	}
	return best, nil
}

// AutoCarrier picks the carrier for a booking when the caller names none:
// heavy parcels go to a heavy-freight carrier, requests naming a collection
// point go to a collection-point carrier, otherwise the registry default.
func (a *Aggregator) AutoCarrier(req *shipping.QuoteRequest) (shipping.Carrier, error) {
	configured := a.registry.Configured()

	if req.WeightKg > shipping.HeavyParcelThresholdKg {
		for _, c := range configured {
			if c.Capabilities().HeavyFreight {
				return c, nil
			}
		}
	}
	if req.CollectionPointID != "" {
		for _, c := range configured {
			if c.Capabilities().CollectionPoints {
				return c, nil
			}
		}
	}
	return a.registry.Default()
}

// carrier resolves an explicitly named carrier, requiring configuration
func (a *Aggregator) carrier(name string) (shipping.Carrier, error) {
	return a.registry.GetConfigured(name)
}

// CreateWaybill books with the named carrier, or with AutoCarrier when
// carrierName is empty.
func (a *Aggregator) CreateWaybill(ctx context.Context, carrierName string, req *shipping.WaybillRequest) (*shipping.Waybill, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		c   shipping.Carrier
		err error
	)
	if carrierName == "" {
		c, err = a.AutoCarrier(&req.Quote)
	} else {
		c, err = a.carrier(carrierName)
	}
	if err != nil {
		return nil, err
	}

	wb, err := c.CreateWaybill(ctx, req)
	if err != nil {
		a.logger.Warn("Waybill booking failed",
			zap.String("carrier", c.Name()),
			zap.String("reference", req.Reference),
			zap.Error(err),
		)
		return nil, err
	}
	a.logger.Info("Waybill booked",
		zap.String("carrier", c.Name()),
		zap.String("reference", req.Reference),
		zap.String("waybill", wb.WaybillNumber),
	)
	return wb, nil
}

// Track delegates to one carrier
func (a *Aggregator) Track(ctx context.Context, carrierName, waybillNumber string) (*shipping.TrackingInfo, error) {
	c, err := a.carrier(carrierName)
	if err != nil {
		return nil, err
	}
	return c.Track(ctx, waybillNumber)
}

// Cancel delegates to one carrier
func (a *Aggregator) Cancel(ctx context.Context, carrierName, waybillNumber string) error {
	c, err := a.carrier(carrierName)
	if err != nil {
		return err
	}
	return c.Cancel(ctx, waybillNumber)
}

// SearchCollectionPoints delegates to one carrier
func (a *Aggregator) SearchCollectionPoints(ctx context.Context, carrierName, postalCode string) ([]shipping.CollectionPoint, error) {
	c, err := a.carrier(carrierName)
	if err != nil {
		return nil, err
	}
	return c.SearchCollectionPoints(ctx, postalCode)
}

// Carriers summarises every registered carrier with its capabilities
func (a *Aggregator) Carriers() []CarrierInfo {
	all := a.registry.All()
	descs := a.registry.Descriptors()
	result := make([]CarrierInfo, 0, len(all))
	for i, c := range all {
		result = append(result, CarrierInfo{Descriptor: descs[i], Capabilities: c.Capabilities()})
	}
	return result
}
