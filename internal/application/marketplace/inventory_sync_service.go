// Package marketplace keeps the store's sales channels in step with local
// stock and pulls channel orders back in.
package marketplace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storeops/backend/internal/domain/marketplace"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
)

const (
	defaultChannelTimeout = 30 * time.Second
	maxUpdatesPerBatch    = 500
)

// InventorySyncServiceConfig holds configuration for the InventorySyncService
type InventorySyncServiceConfig struct {
	Registry       *marketplace.Registry
	ChannelTimeout time.Duration
	Metrics        *telemetry.IntegrationMetrics
	Logger         *zap.Logger
}

// InventorySyncService pushes stock levels to every configured channel
type InventorySyncService struct {
	registry *marketplace.Registry
	timeout  time.Duration
	metrics  *telemetry.IntegrationMetrics
	logger   *zap.Logger
}

// NewInventorySyncService creates a new InventorySyncService
func NewInventorySyncService(cfg InventorySyncServiceConfig) *InventorySyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.ChannelTimeout
	if timeout <= 0 {
		timeout = defaultChannelTimeout
	}
	return &InventorySyncService{
		registry: cfg.Registry,
		timeout:  timeout,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// SyncInventory sends updates to all configured channels concurrently.
// Every channel gets a result in registration order; a failing channel is
// reported in its own result and never aborts the others.
func (s *InventorySyncService) SyncInventory(ctx context.Context, updates []marketplace.InventoryUpdate) ([]marketplace.SyncResult, error) {
	if len(updates) == 0 {
		return nil, shared.NewValidationError("no inventory updates given")
	}
	if len(updates) > maxUpdatesPerBatch {
		return nil, shared.NewValidationError(fmt.Sprintf("at most %d updates per batch", maxUpdatesPerBatch))
	}
	for _, u := range updates {
		if err := u.Validate(); err != nil {
			return nil, &shared.IntegrationError{Kind: shared.KindValidation, Op: "SyncInventory", Message: err.Error(), Err: err}
		}
	}

	channels := s.registry.Configured()
	results := make([]marketplace.SyncResult, len(channels))

	g := new(errgroup.Group)
	for i, ch := range channels {
		g.Go(func() error {
			results[i] = s.syncChannel(ctx, ch, updates)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.Succeeded {
			failed++
		}
	}
	s.logger.Info("Inventory sync finished",
		zap.Int("updates", len(updates)),
		zap.Int("channels", len(results)),
		zap.Int("failed_channels", failed))
	return results, nil
}

func (s *InventorySyncService) syncChannel(ctx context.Context, ch marketplace.Channel, updates []marketplace.InventoryUpdate) marketplace.SyncResult {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res, err := ch.UpdateInventory(callCtx, updates)
	if err == nil && res == nil {
		err = shared.NewUpstreamError(ch.Name(), "UpdateInventory", fmt.Errorf("channel returned no result"))
	}
	s.metrics.ObserveProviderCall(ctx, "marketplace", ch.Name(), "UpdateInventory", time.Since(start), err)
	if err != nil {
		s.logger.Warn("Channel inventory sync failed",
			zap.String("channel", ch.Name()),
			zap.String("error_kind", shared.KindOf(err).String()),
			zap.Error(err))
		return marketplace.SyncResult{Channel: ch.Name(), Error: err.Error()}
	}

	out := *res
	out.Channel = ch.Name()
	out.Succeeded = len(out.Failed) == 0
	return out
}

// PullOrders fetches orders placed on one channel in the requested window
func (s *InventorySyncService) PullOrders(ctx context.Context, channel string, req *marketplace.OrderPullRequest) ([]marketplace.ChannelOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: channel, Op: "PullOrders", Message: err.Error(), Err: err}
	}
	ch, err := s.registry.GetConfigured(channel)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	orders, err := ch.PullOrders(callCtx, req)
	s.metrics.ObserveProviderCall(ctx, "marketplace", ch.Name(), "PullOrders", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// PushListing publishes or updates an offer on one channel
func (s *InventorySyncService) PushListing(ctx context.Context, channel string, listing *marketplace.Listing) (*marketplace.ListingResult, error) {
	if err := listing.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: channel, Op: "PushListing", Message: err.Error(), Err: err}
	}
	ch, err := s.registry.GetConfigured(channel)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res, err := ch.PushListing(callCtx, listing)
	s.metrics.ObserveProviderCall(ctx, "marketplace", ch.Name(), "PushListing", time.Since(start), err)
	return res, err
}
