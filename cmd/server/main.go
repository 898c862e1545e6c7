package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	accountingapp "github.com/storeops/backend/internal/application/accounting"
	marketplaceapp "github.com/storeops/backend/internal/application/marketplace"
	paymentapp "github.com/storeops/backend/internal/application/payment"
	salesapp "github.com/storeops/backend/internal/application/sales"
	shippingapp "github.com/storeops/backend/internal/application/shipping"
	supplierapp "github.com/storeops/backend/internal/application/supplier"
	accountinginfra "github.com/storeops/backend/internal/infrastructure/accounting"
	"github.com/storeops/backend/internal/infrastructure/auth"
	"github.com/storeops/backend/internal/infrastructure/cache"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/logger"
	marketplaceinfra "github.com/storeops/backend/internal/infrastructure/marketplace"
	"github.com/storeops/backend/internal/infrastructure/migration"
	"github.com/storeops/backend/internal/infrastructure/numbering"
	paymentinfra "github.com/storeops/backend/internal/infrastructure/payment"
	"github.com/storeops/backend/internal/infrastructure/persistence"
	"github.com/storeops/backend/internal/infrastructure/scheduler"
	shippinginfra "github.com/storeops/backend/internal/infrastructure/shipping"
	"github.com/storeops/backend/internal/infrastructure/storage"
	supplierinfra "github.com/storeops/backend/internal/infrastructure/supplier"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
	"github.com/storeops/backend/internal/interfaces/http/handler"
	"github.com/storeops/backend/internal/interfaces/http/middleware"
	"github.com/storeops/backend/internal/interfaces/http/router"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storeops integration backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry first so the database and HTTP layers pick up the global providers
	providers, err := telemetry.NewProviders(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	metrics, err := telemetry.NewIntegrationMetrics(providers.Meter("storeops.integrations"))
	if err != nil {
		log.Fatal("Failed to create integration metrics", zap.Error(err))
	}

	// Database
	gormLogger := logger.NewGormLogger(log.Named("gorm"), logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	if err := telemetry.RegisterGormTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := migrate(cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Coordination stores: webhook dedupe, OAuth state and refresh locks
	stores, err := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create coordination stores", zap.Error(err))
	}

	archive, err := storage.NewArchive(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to create webhook archive", zap.Error(err))
	}

	// Provider registries
	payments, err := paymentinfra.NewRegistry(cfg, log, metrics)
	if err != nil {
		log.Fatal("Failed to build payment registry", zap.Error(err))
	}
	carriers, err := shippinginfra.NewRegistry(cfg, log, metrics)
	if err != nil {
		log.Fatal("Failed to build shipping registry", zap.Error(err))
	}
	ledgers, err := accountinginfra.NewRegistry(cfg, log, metrics)
	if err != nil {
		log.Fatal("Failed to build accounting registry", zap.Error(err))
	}
	channels, err := marketplaceinfra.NewRegistry(cfg, log, metrics)
	if err != nil {
		log.Fatal("Failed to build marketplace registry", zap.Error(err))
	}
	suppliers, err := supplierinfra.NewRegistry(cfg, log, metrics)
	if err != nil {
		log.Fatal("Failed to build supplier registry", zap.Error(err))
	}

	// Repositories
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	credentialRepo := persistence.NewGormCredentialRepository(db.DB)

	numbers, err := numbering.NewSnowflakeGenerator(cfg.App.NodeID)
	if err != nil {
		log.Fatal("Failed to create document number generator", zap.Error(err))
	}

	// Application services
	quoteService := salesapp.NewQuoteService(salesapp.QuoteServiceConfig{
		Quotes:         quoteRepo,
		Orders:         orderRepo,
		Conversions:    orderRepo,
		Numbers:        numbers,
		Payments:       payments,
		SweepBatchSize: cfg.Scheduler.QuoteExpiryBatch,
		Metrics:        metrics,
		Logger:         log,
	})
	webhookService := paymentapp.NewWebhookService(paymentapp.WebhookServiceConfig{
		Registry:    payments,
		Idempotency: stores.Idempotency,
		Updater:     salesapp.NewOrderPaymentService(orderRepo, log),
		Archive:     archive,
		DedupeTTL:   cfg.Integration.WebhookDedupeTTL,
		Metrics:     metrics,
		Logger:      log,
	})
	credentialManager := accountingapp.NewCredentialManager(accountingapp.CredentialManagerConfig{
		Repo:        credentialRepo,
		Registry:    ledgers,
		RefreshLock: stores.RefreshLock,
		RefreshSkew: cfg.Integration.RefreshSkew,
		LockTTL:     cfg.Integration.RefreshLockTTL,
		Metrics:     metrics,
		Logger:      log,
	})
	connectService := accountingapp.NewConnectService(ledgers, stores.State, credentialManager, cfg.Integration.StateTTL, log)
	ledgerSync := accountingapp.NewLedgerSyncService(ledgers, credentialManager, orderRepo, log)
	aggregator := shippingapp.NewAggregator(shippingapp.AggregatorConfig{
		Registry:        carriers,
		ProviderTimeout: cfg.Integration.ProviderTimeout,
		MaxFanOut:       cfg.Integration.MaxFanOut,
		Metrics:         metrics,
		Logger:          log,
	})
	inventorySync := marketplaceapp.NewInventorySyncService(marketplaceapp.InventorySyncServiceConfig{
		Registry:       channels,
		ChannelTimeout: cfg.Integration.ProviderTimeout,
		Metrics:        metrics,
		Logger:         log,
	})
	sourcing := supplierapp.NewSourcingService(supplierapp.SourcingServiceConfig{
		Registry:        suppliers,
		SupplierTimeout: cfg.Integration.ProviderTimeout,
		Metrics:         metrics,
		Logger:          log,
	})

	// Background quote expiry
	var expiryJob *scheduler.QuoteExpiryJob
	if cfg.Scheduler.QuoteExpiryEnabled {
		jobCfg := scheduler.DefaultQuoteExpiryJobConfig()
		jobCfg.Interval = cfg.Scheduler.QuoteExpiryInterval
		jobCfg.Timeout = cfg.Scheduler.JobTimeout
		expiryJob, err = scheduler.NewQuoteExpiryJob(jobCfg, quoteService, log)
		if err != nil {
			log.Fatal("Failed to create quote expiry job", zap.Error(err))
		}
		if err := expiryJob.Start(ctx); err != nil {
			log.Fatal("Failed to start quote expiry job", zap.Error(err))
		}
	}

	// HTTP
	health := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"database": db.Ping,
		"redis":    stores.Ping,
	}).WithStats(func() (any, error) { return db.Stats() })

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		HTTP:           cfg.HTTP,
		TracerProvider: providers.TracerProvider(),
		Meter:          providers.Meter("storeops.http"),
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	r := router.Mount(engine, router.Handlers{
		Webhooks:     handler.NewWebhookHandler(webhookService),
		Accounting:   handler.NewAccountingHandler(connectService, credentialManager, ledgerSync),
		Integrations: handler.NewIntegrationHandler(payments, carriers, ledgers, channels, suppliers),
		Shipping:     handler.NewShippingHandler(aggregator),
		Quotes:       handler.NewQuoteHandler(quoteService),
		Marketplace:  handler.NewMarketplaceHandler(inventorySync),
		Suppliers:    handler.NewSupplierHandler(sourcing),
		Health:       health,
	}, auth.NewTokenValidator(cfg.JWT), middleware.NewRateLimiter(cfg.HTTP.PublicRequestsPerMinute))
	router.LogRoutes(log, r)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if expiryJob != nil {
		if err := expiryJob.Stop(shutdownCtx); err != nil {
			log.Warn("Quote expiry job did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := stores.Close(); err != nil {
		log.Warn("Failed to close coordination stores", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush telemetry", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrate applies the embedded schema over its own connection, since
// closing the migrator closes the handle it was given
func migrate(cfg config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer m.Close()
	return m.Up()
}
