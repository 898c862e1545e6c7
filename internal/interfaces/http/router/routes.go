package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/logger"
	"github.com/storeops/backend/internal/interfaces/http/handler"
	"github.com/storeops/backend/internal/interfaces/http/middleware"
)

// EngineConfig holds what the global middleware chain needs
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	HTTP           config.HTTPConfig
	TracerProvider trace.TracerProvider
	Meter          metric.Meter
}

// NewEngine creates the gin engine with the global middleware chain.
// Order matters: recovery wraps everything, the request ID exists before
// the span starts, and the access log sees the span's trace ID.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	var traceOpts []otelgin.Option
	if cfg.TracerProvider != nil {
		traceOpts = append(traceOpts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(cfg.ServiceName, traceOpts...),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		middleware.Secure(cfg.HTTP.HSTS),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		httpMetrics,
	)
	middleware.SetupValidator()
	return engine, nil
}

// Handlers groups the HTTP handlers the API serves
type Handlers struct {
	Webhooks     *handler.WebhookHandler
	Accounting   *handler.AccountingHandler
	Integrations *handler.IntegrationHandler
	Shipping     *handler.ShippingHandler
	Quotes       *handler.QuoteHandler
	Marketplace  *handler.MarketplaceHandler
	Suppliers    *handler.SupplierHandler
	Health       *handler.HealthHandler
}

// Mount registers every route. Gateway webhooks and the OAuth callback
// are public and throttled per client IP; everything else requires an
// admin bearer token.
func Mount(engine *gin.Engine, h Handlers, tokens middleware.TokenValidator, publicLimit *middleware.RateLimiter) *Router {
	engine.GET("/health", h.Health.Ready)
	engine.GET("/health/live", h.Health.Live)

	public := PublicRoutes(h).Use(publicLimit.Handler())
	admin := AdminRoutes(h).Use(middleware.JWTAuth(tokens))

	r := NewRouter(engine).Register(public, admin)
	r.Setup()
	return r
}

// PublicRoutes are reachable without a token
func PublicRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("public", "")
	g.POST("/webhooks/payments/:provider", h.Webhooks.HandlePayment)
	g.GET("/integrations/accounting/:backend/callback", h.Accounting.Callback)
	return g
}

// AdminRoutes require an authenticated administrator
func AdminRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("admin", "")

	integrations := g.Group("integrations", "/integrations")
	integrations.GET("", h.Integrations.Domains)
	integrations.GET("/:domain/providers", h.Integrations.Providers)

	accounting := integrations.Group("accounting", "/accounting/:backend")
	accounting.POST("/connect", h.Accounting.Connect)
	accounting.GET("/status", h.Accounting.Status)
	accounting.GET("/credentials", h.Accounting.Credentials)
	accounting.POST("/disconnect", h.Accounting.Disconnect)
	accounting.POST("/invoices/:order_id", h.Accounting.PushInvoice)

	shipping := g.Group("shipping", "/shipping")
	shipping.GET("/carriers", h.Shipping.Carriers)
	shipping.POST("/quotes", h.Shipping.Quotes)
	shipping.POST("/quotes/best", h.Shipping.BestQuote)
	shipping.POST("/waybills", h.Shipping.CreateWaybill)
	shipping.GET("/:carrier/tracking/:waybill", h.Shipping.Track)
	shipping.DELETE("/:carrier/waybills/:waybill", h.Shipping.CancelWaybill)
	shipping.GET("/:carrier/collection-points", h.Shipping.CollectionPoints)

	quotes := g.Group("quotes", "/quotes")
	quotes.POST("", h.Quotes.Create)
	quotes.GET("", h.Quotes.List)
	quotes.POST("/expire", h.Quotes.Expire)
	quotes.GET("/:id", h.Quotes.Get)
	quotes.POST("/:id/send", h.Quotes.Send)
	quotes.POST("/:id/view", h.Quotes.View)
	quotes.POST("/:id/accept", h.Quotes.Accept)
	quotes.POST("/:id/reject", h.Quotes.Reject)
	quotes.POST("/:id/convert", h.Quotes.Convert)
	quotes.POST("/:id/accept-and-convert", h.Quotes.AcceptAndConvert)
	quotes.GET("/:id/order", h.Quotes.Order)

	marketplace := g.Group("marketplace", "/marketplace")
	marketplace.POST("/inventory", h.Marketplace.SyncInventory)
	marketplace.POST("/inventory/import", h.Marketplace.ImportInventory)
	marketplace.GET("/:channel/orders", h.Marketplace.Orders)
	marketplace.POST("/:channel/listings", h.Marketplace.PushListing)

	suppliers := g.Group("suppliers", "/suppliers")
	suppliers.GET("/stock/:sku", h.Suppliers.Stock)
	suppliers.POST("/:supplier/orders", h.Suppliers.PlaceOrder)

	return g
}

// LogRoutes writes the mounted API surface at debug level
func LogRoutes(log *zap.Logger, r *Router) {
	n := 0
	for _, registrar := range r.registrars {
		g, ok := registrar.(*DomainGroup)
		if !ok {
			continue
		}
		for _, route := range g.Routes(r.BasePath()) {
			log.Debug("Route mounted",
				zap.String("group", route.Group),
				zap.String("method", route.Method),
				zap.String("path", route.Path))
			n++
		}
	}
	log.Info("API routes mounted", zap.Int("count", n), zap.String("base_path", r.BasePath()))
}
