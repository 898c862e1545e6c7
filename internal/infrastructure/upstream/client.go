// Package upstream is the shared HTTP client vendor adapters use to call
// external APIs: per-provider rate limiting, bounded response bodies,
// JSON encoding and classification of failures as UpstreamError.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 1 << 20 // 1MB
)

// StatusError is a non-2xx response from a vendor
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Config configures a Client
type Config struct {
	// Provider names the vendor in errors, logs and metrics
	Provider string
	// Domain is the integration domain, e.g. "shipping"
	Domain  string
	BaseURL string
	Timeout time.Duration
	// RequestsPerMinute throttles outbound calls; zero disables throttling
	RequestsPerMinute int
	// Headers are added to every request
	Headers map[string]string
}

// Client is a small JSON-over-HTTP client for one vendor
type Client struct {
	cfg        Config
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *telemetry.IntegrationMetrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records every call on m
func WithMetrics(m *telemetry.IntegrationMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a vendor client
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base URL: %w", cfg.Provider, err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Provider returns the vendor name
func (c *Client) Provider() string {
	return c.cfg.Provider
}

// Request describes one call
type Request struct {
	// Op names the logical operation for errors and metrics, e.g. "GetQuote"
	Op     string
	Method string
	Path   string
	Query  url.Values
	// JSON is encoded as the request body when non-nil
	JSON any
	// Form is sent url-encoded when non-nil and JSON is nil
	Form    url.Values
	Headers map[string]string
}

// Do performs req and decodes a JSON response into out (if non-nil).
// Transport failures and non-2xx responses are returned as UpstreamError.
func (c *Client) Do(ctx context.Context, req Request, out any) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "upstream."+req.Op,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrDomain, c.cfg.Domain),
		telemetry.WithAttribute(telemetry.SpanAttrProvider, c.cfg.Provider),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()
	err = c.do(ctx, req, out)
	c.metrics.ObserveProviderCall(ctx, c.cfg.Domain, c.cfg.Provider, req.Op, time.Since(start), err)
	if err != nil {
		c.logger.Debug("Upstream call failed",
			zap.String("provider", c.cfg.Provider),
			zap.String("op", req.Op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return shared.NewUpstreamError(c.cfg.Provider, req.Op, fmt.Errorf("rate limiter: %w", err))
		}
	}

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return &shared.IntegrationError{Kind: shared.KindValidation, Provider: c.cfg.Provider, Op: req.Op, Message: "cannot build request", Err: err}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return shared.NewUpstreamError(c.cfg.Provider, req.Op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return shared.NewUpstreamError(c.cfg.Provider, req.Op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return shared.NewUpstreamError(c.cfg.Provider, req.Op, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), 512),
		})
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return shared.NewUpstreamError(c.cfg.Provider, req.Op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.JSON != nil:
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// StatusCode extracts the HTTP status from an upstream error, or 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
