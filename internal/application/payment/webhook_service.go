// Package payment ingests payment gateway notifications and applies them to
// orders exactly once.
package payment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/payment"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
)

// OrderPaymentUpdater applies a verified payment outcome to its order
type OrderPaymentUpdater interface {
	ApplyPayment(ctx context.Context, result *payment.WebhookResult) error
}

// WebhookOutcome is what the transport layer needs to answer the gateway
type WebhookOutcome struct {
	Result *payment.WebhookResult
	// Duplicate is true when this delivery was already applied
	Duplicate   bool
	Applied     bool
	ArchiveKey  string
	ContentType string
	Ack         []byte
}

// WebhookServiceConfig holds configuration for the WebhookService
type WebhookServiceConfig struct {
	Registry    *payment.Registry
	Idempotency shared.IdempotencyStore
	Updater     OrderPaymentUpdater
	// Archive is optional
	Archive   payment.PayloadArchive
	DedupeTTL time.Duration
	Metrics   *telemetry.IntegrationMetrics
	Logger    *zap.Logger
}

// WebhookService verifies, deduplicates and applies payment notifications
type WebhookService struct {
	registry    *payment.Registry
	idempotency shared.IdempotencyStore
	updater     OrderPaymentUpdater
	archive     payment.PayloadArchive
	dedupeTTL   time.Duration
	metrics     *telemetry.IntegrationMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.DedupeTTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyTTL
	}
	return &WebhookService{
		registry:    cfg.Registry,
		idempotency: cfg.Idempotency,
		updater:     cfg.Updater,
		archive:     cfg.Archive,
		dedupeTTL:   ttl,
		metrics:     cfg.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle runs one delivery through the pipeline.
//
// A nil outcome means the provider could not be resolved. Otherwise the
// outcome carries the acknowledgement to send, including when err is set:
// a rejected signature changes nothing and answers with the failure ack.
func (s *WebhookService) Handle(ctx context.Context, provider string, req *payment.WebhookRequest) (*WebhookOutcome, error) {
	gw, err := s.registry.GetConfigured(provider)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("provider", provider), zap.String("remote_addr", req.RemoteAddr))
	out := &WebhookOutcome{}

	if s.archive != nil {
		key, err := s.archive.Archive(ctx, provider, s.now(), req)
		if err != nil {
			log.Warn("Failed to archive webhook payload", zap.Error(err))
		}
		out.ArchiveKey = key
	}

	result, err := gw.ProcessWebhook(ctx, req)
	if err != nil {
		switch shared.KindOf(err) {
		case shared.KindSignature:
			log.Warn("Rejected webhook with invalid signature", zap.Error(err))
			s.metrics.ObserveWebhook(ctx, provider, telemetry.OutcomeRejected)
		case shared.KindValidation:
			log.Warn("Rejected malformed webhook", zap.Error(err))
			s.metrics.ObserveWebhook(ctx, provider, telemetry.OutcomeRejected)
		default:
			log.Error("Failed to process webhook", zap.Error(err))
			s.metrics.ObserveWebhook(ctx, provider, telemetry.OutcomeError)
		}
		return s.ack(gw, out, false), err
	}
	out.Result = result
	log = log.With(
		zap.String("payment_id", result.PaymentID),
		zap.String("order_id", result.OrderID),
		zap.String("status", result.Status.String()),
	)

	key := result.DedupeKey()
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.dedupeTTL)
	if err != nil {
		// Without the dedupe record a retry could apply twice; let the
		// gateway redeliver instead.
		log.Error("Failed to record webhook delivery", zap.Error(err))
		s.metrics.ObserveWebhook(ctx, provider, telemetry.OutcomeError)
		return s.ack(gw, out, false), err
	}
	if !fresh {
		log.Info("Duplicate webhook delivery ignored")
		s.metrics.ObserveWebhook(ctx, provider, telemetry.OutcomeDuplicate)
		out.Duplicate = true
		return s.ack(gw, out, true), nil
	}

	if result.Status != payment.StatusPending {
		if err := s.updater.ApplyPayment(ctx, result); err != nil {
			if retryable(err) {
				if rerr := s.idempotency.Release(ctx, key); rerr != nil {
					log.Error("Failed to release webhook delivery key", zap.Error(rerr))
				}
				log.Error("Failed to apply payment", zap.Error(err))
				s.metrics.ObserveWebhook(ctx, provider, telemetry.OutcomeError)
			} else {
				log.Warn("Payment rejected by order", zap.String("amount", result.Amount.StringFixed(2)), zap.Error(err))
				s.metrics.ObserveWebhook(ctx, provider, telemetry.OutcomeRejected)
			}
			return s.ack(gw, out, false), err
		}
		out.Applied = true
	}

	log.Info("Webhook processed", zap.Bool("applied", out.Applied))
	s.metrics.ObserveWebhook(ctx, provider, telemetry.OutcomeSuccess)
	return s.ack(gw, out, true), nil
}

func (s *WebhookService) ack(gw payment.Gateway, out *WebhookOutcome, success bool) *WebhookOutcome {
	out.ContentType, out.Ack = gw.Acknowledge(success)
	return out
}

// retryable reports whether a redelivery could succeed where this one failed
func retryable(err error) bool {
	switch shared.KindOf(err) {
	case shared.KindValidation, shared.KindState, shared.KindNotFound, shared.KindSignature:
		return false
	default:
		return true
	}
}
