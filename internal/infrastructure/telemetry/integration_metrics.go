package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/storeops/backend/internal/domain/shared"
)

// Outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
)

// IntegrationMetrics records provider calls, webhook deliveries, credential
// refreshes and quote conversions. A nil receiver records nothing.
type IntegrationMetrics struct {
	providerCalls     *Counter
	providerDuration  *Histogram
	webhookDeliveries *Counter
	credentialRefresh *Counter
	quoteConversions  *Counter
	quotesExpired     *Counter
	quotesFilteredOut *Counter
}

// NewIntegrationMetrics creates the integration instruments on meter.
func NewIntegrationMetrics(meter metric.Meter) (*IntegrationMetrics, error) {
	var (
		m   IntegrationMetrics
		err error
	)
	if m.providerCalls, err = NewCounter(meter, "integration_provider_calls_total",
		"Outbound calls to external providers", "{call}"); err != nil {
		return nil, err
	}
	if m.providerDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "integration_provider_call_duration_seconds",
		Description: "Latency of outbound provider calls",
		Unit:        "s",
		Boundaries:  UpstreamDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.webhookDeliveries, err = NewCounter(meter, "integration_webhook_deliveries_total",
		"Inbound payment notifications by outcome", "{delivery}"); err != nil {
		return nil, err
	}
	if m.credentialRefresh, err = NewCounter(meter, "integration_credential_refresh_total",
		"OAuth credential refresh attempts", "{refresh}"); err != nil {
		return nil, err
	}
	if m.quoteConversions, err = NewCounter(meter, "sales_quote_conversions_total",
		"Quote to order conversion attempts", "{conversion}"); err != nil {
		return nil, err
	}
	if m.quotesExpired, err = NewCounter(meter, "sales_quotes_expired_total",
		"Quotes moved to EXPIRED by the sweep", "{quote}"); err != nil {
		return nil, err
	}
	if m.quotesFilteredOut, err = NewCounter(meter, "shipping_carriers_filtered_total",
		"Carriers skipped by the capability filter", "{carrier}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// ObserveProviderCall records one outbound call.
func (m *IntegrationMetrics) ObserveProviderCall(ctx context.Context, domain, provider, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	kind := ""
	if err != nil {
		outcome = OutcomeError
		kind = shared.KindOf(err).String()
	}
	m.providerCalls.Inc(ctx,
		AttrDomain.String(domain),
		AttrProvider.String(provider),
		AttrOperation.String(op),
		AttrOutcome.String(outcome),
		AttrErrorKind.String(kind),
	)
	m.providerDuration.RecordDuration(ctx, d,
		AttrDomain.String(domain),
		AttrProvider.String(provider),
		AttrOperation.String(op),
	)
}

// ObserveWebhook records one inbound delivery.
func (m *IntegrationMetrics) ObserveWebhook(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.Inc(ctx, AttrProvider.String(provider), AttrOutcome.String(outcome))
}

// ObserveCredentialRefresh records one refresh attempt.
func (m *IntegrationMetrics) ObserveCredentialRefresh(ctx context.Context, backend string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.credentialRefresh.Inc(ctx, AttrProvider.String(backend), AttrOutcome.String(outcome))
}

// ObserveConversion records one conversion attempt.
func (m *IntegrationMetrics) ObserveConversion(ctx context.Context, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	kind := ""
	if err != nil {
		outcome = OutcomeError
		kind = shared.KindOf(err).String()
	}
	m.quoteConversions.Inc(ctx, AttrOutcome.String(outcome), AttrErrorKind.String(kind))
}

// ObserveExpired records quotes expired by one sweep.
func (m *IntegrationMetrics) ObserveExpired(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.quotesExpired.Add(ctx, int64(n))
}

// ObserveFilteredCarrier records a carrier skipped by the capability filter.
func (m *IntegrationMetrics) ObserveFilteredCarrier(ctx context.Context, carrier string) {
	if m == nil {
		return
	}
	m.quotesFilteredOut.Inc(ctx, AttrProvider.String(carrier))
}
