package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Scheduler   SchedulerConfig
	Telemetry   TelemetryConfig
	Storage     StorageConfig
	Integration IntegrationConfig
	PayFast     PayFastConfig
	Stripe      StripeConfig
	CourierGuy  CourierGuyConfig
	Pargo       PargoConfig
	Xero        XeroConfig
	Takealot    TakealotConfig
	Dropship    DropshipConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// PublicURL is the externally reachable base URL, used to build
	// webhook notify and OAuth redirect URLs
	PublicURL string
	// NodeID distinguishes replicas in generated document numbers (0-1023)
	NodeID int64
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	// AutoMigrate applies the embedded schema at startup
	AutoMigrate bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds settings for validating admin API bearer tokens
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	// Leeway tolerates clock drift when checking exp/nbf
	Leeway time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// PublicRequestsPerMinute throttles each client IP on the unauthenticated
	// webhook and OAuth callback routes. A negative value disables the limit.
	PublicRequestsPerMinute int
	HSTS                    bool
}

// SchedulerConfig holds the in-process quote expiry job settings
type SchedulerConfig struct {
	QuoteExpiryEnabled  bool
	QuoteExpiryInterval time.Duration
	QuoteExpiryBatch    int
	JobTimeout          time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	ExportInterval    time.Duration
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// StorageConfig configures the S3-compatible webhook payload archive
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	Prefix       string
}

// IntegrationConfig holds settings shared by every provider domain
type IntegrationConfig struct {
	// ProviderTimeout bounds each outbound provider call
	ProviderTimeout time.Duration
	// MaxFanOut bounds concurrent provider calls within one aggregation
	MaxFanOut int
	// MockProviders registers the in-memory mock adapter in every domain
	MockProviders bool
	// RefreshSkew renews OAuth tokens this long before they expire
	RefreshSkew time.Duration
	// RefreshLockTTL bounds how long one replica may hold a refresh lock
	RefreshLockTTL time.Duration
	// StateTTL bounds how long an OAuth authorization may take
	StateTTL time.Duration
	// WebhookDedupeTTL bounds how long a webhook delivery key is remembered
	WebhookDedupeTTL time.Duration
	// RequestsPerMinute throttles outbound calls per provider
	RequestsPerMinute int

	DefaultPayment     string
	DefaultShipping    string
	DefaultAccounting  string
	DefaultMarketplace string
	DefaultSupplier    string
}

// PayFastConfig configures the PayFast redirect gateway
type PayFastConfig struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
}

// IsConfigured reports whether the merchant credentials are present
func (c PayFastConfig) IsConfigured() bool {
	return c.MerchantID != "" && c.MerchantKey != ""
}

// StripeConfig configures Stripe Checkout
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// IsConfigured reports whether Stripe can be called and its webhooks verified
func (c StripeConfig) IsConfigured() bool {
	return c.SecretKey != "" && c.WebhookSecret != ""
}

// CourierGuyConfig configures The Courier Guy door-to-door carrier
type CourierGuyConfig struct {
	BaseURL string
	APIKey  string
}

// IsConfigured reports whether the API key is present
func (c CourierGuyConfig) IsConfigured() bool {
	return c.APIKey != ""
}

// PargoConfig configures the Pargo collection-point carrier
type PargoConfig struct {
	BaseURL  string
	Username string
	Password string
}

// IsConfigured reports whether credentials are present
func (c PargoConfig) IsConfigured() bool {
	return c.Username != "" && c.Password != ""
}

// XeroConfig configures the Xero accounting backend
type XeroConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TenantID     string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
	Scopes       []string
	SalesAccount string

	// PaymentAccount is the bank account code payments are recorded against
	PaymentAccount string
}

// IsConfigured reports whether the OAuth client is present
func (c XeroConfig) IsConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// TakealotConfig configures the Takealot marketplace seller API
type TakealotConfig struct {
	BaseURL string
	APIKey  string
}

// IsConfigured reports whether the API key is present
func (c TakealotConfig) IsConfigured() bool {
	return c.APIKey != ""
}

// DropshipConfig configures the dropship supplier feed
type DropshipConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

// IsConfigured reports whether the API credentials are present
func (c DropshipConfig) IsConfigured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREOPS_ prefix (e.g., STOREOPS_PAYFAST_MERCHANT_ID)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STOREOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:      v.GetString("app.name"),
			Env:       v.GetString("app.env"),
			Port:      v.GetString("app.port"),
			PublicURL: v.GetString("app.public_url"),
			NodeID:    v.GetInt64("app.node_id"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			Issuer:   v.GetString("jwt.issuer"),
			Audience: v.GetString("jwt.audience"),
			Leeway:   v.GetDuration("jwt.leeway"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),

			PublicRequestsPerMinute: v.GetInt("http.public_requests_per_minute"),
			HSTS:                    v.GetBool("http.hsts"),
		},
		Scheduler: SchedulerConfig{
			QuoteExpiryEnabled:  v.GetBool("scheduler.quote_expiry_enabled"),
			QuoteExpiryInterval: v.GetDuration("scheduler.quote_expiry_interval"),
			QuoteExpiryBatch:    v.GetInt("scheduler.quote_expiry_batch"),
			JobTimeout:          v.GetDuration("scheduler.job_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			Prefix:       v.GetString("storage.prefix"),
		},
		Integration: IntegrationConfig{
			ProviderTimeout:    v.GetDuration("integration.provider_timeout"),
			MaxFanOut:          v.GetInt("integration.max_fan_out"),
			MockProviders:      v.GetBool("integration.mock_providers"),
			RefreshSkew:        v.GetDuration("integration.refresh_skew"),
			RefreshLockTTL:     v.GetDuration("integration.refresh_lock_ttl"),
			StateTTL:           v.GetDuration("integration.state_ttl"),
			WebhookDedupeTTL:   v.GetDuration("integration.webhook_dedupe_ttl"),
			RequestsPerMinute:  v.GetInt("integration.requests_per_minute"),
			DefaultPayment:     v.GetString("integration.default_payment"),
			DefaultShipping:    v.GetString("integration.default_shipping"),
			DefaultAccounting:  v.GetString("integration.default_accounting"),
			DefaultMarketplace: v.GetString("integration.default_marketplace"),
			DefaultSupplier:    v.GetString("integration.default_supplier"),
		},
		PayFast: PayFastConfig{
			MerchantID:  v.GetString("payfast.merchant_id"),
			MerchantKey: v.GetString("payfast.merchant_key"),
			Passphrase:  v.GetString("payfast.passphrase"),
			Sandbox:     v.GetBool("payfast.sandbox"),
			ReturnURL:   v.GetString("payfast.return_url"),
			CancelURL:   v.GetString("payfast.cancel_url"),
			NotifyURL:   v.GetString("payfast.notify_url"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("stripe.secret_key"),
			WebhookSecret: v.GetString("stripe.webhook_secret"),
			SuccessURL:    v.GetString("stripe.success_url"),
			CancelURL:     v.GetString("stripe.cancel_url"),
		},
		CourierGuy: CourierGuyConfig{
			BaseURL: v.GetString("courierguy.base_url"),
			APIKey:  v.GetString("courierguy.api_key"),
		},
		Pargo: PargoConfig{
			BaseURL:  v.GetString("pargo.base_url"),
			Username: v.GetString("pargo.username"),
			Password: v.GetString("pargo.password"),
		},
		Xero: XeroConfig{
			ClientID:       v.GetString("xero.client_id"),
			ClientSecret:   v.GetString("xero.client_secret"),
			RedirectURL:    v.GetString("xero.redirect_url"),
			TenantID:       v.GetString("xero.tenant_id"),
			AuthURL:        v.GetString("xero.auth_url"),
			TokenURL:       v.GetString("xero.token_url"),
			APIBaseURL:     v.GetString("xero.api_base_url"),
			Scopes:         v.GetStringSlice("xero.scopes"),
			SalesAccount:   v.GetString("xero.sales_account"),
			PaymentAccount: v.GetString("xero.payment_account"),
		},
		Takealot: TakealotConfig{
			BaseURL: v.GetString("takealot.base_url"),
			APIKey:  v.GetString("takealot.api_key"),
		},
		Dropship: DropshipConfig{
			BaseURL:   v.GetString("dropship.base_url"),
			APIKey:    v.GetString("dropship.api_key"),
			APISecret: v.GetString("dropship.api_secret"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storeops-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.PublicURL == "" {
		cfg.App.PublicURL = "http://localhost:" + cfg.App.Port
	}
	cfg.App.PublicURL = strings.TrimRight(cfg.App.PublicURL, "/")

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storeops"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "storeops-backend"
	}
	if cfg.JWT.Leeway == 0 {
		cfg.JWT.Leeway = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	if cfg.HTTP.PublicRequestsPerMinute == 0 {
		cfg.HTTP.PublicRequestsPerMinute = 600
	}
	// NOTE: CORS origins have no "*" fallback. An empty list allows no
	// cross-origin requests until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}

	if cfg.Scheduler.QuoteExpiryInterval == 0 {
		cfg.Scheduler.QuoteExpiryInterval = 15 * time.Minute
	}
	if cfg.Scheduler.QuoteExpiryBatch == 0 {
		cfg.Scheduler.QuoteExpiryBatch = 500
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 5 * time.Minute
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 30 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "webhooks"
	}

	applyIntegrationDefaults(cfg)
}

func applyIntegrationDefaults(cfg *Config) {
	in := &cfg.Integration
	if in.ProviderTimeout == 0 {
		in.ProviderTimeout = 10 * time.Second
	}
	if in.MaxFanOut == 0 {
		in.MaxFanOut = 8
	}
	if in.RefreshSkew == 0 {
		in.RefreshSkew = 5 * time.Minute
	}
	if in.RefreshLockTTL == 0 {
		in.RefreshLockTTL = 30 * time.Second
	}
	if in.StateTTL == 0 {
		in.StateTTL = 10 * time.Minute
	}
	if in.WebhookDedupeTTL == 0 {
		in.WebhookDedupeTTL = 72 * time.Hour
	}
	if in.RequestsPerMinute == 0 {
		in.RequestsPerMinute = 120
	}

	if cfg.PayFast.NotifyURL == "" {
		cfg.PayFast.NotifyURL = cfg.App.PublicURL + "/api/v1/webhooks/payments/payfast"
	}
	if cfg.Xero.RedirectURL == "" {
		cfg.Xero.RedirectURL = cfg.App.PublicURL + "/api/v1/integrations/accounting/xero/callback"
	}
	if cfg.Xero.AuthURL == "" {
		cfg.Xero.AuthURL = "https://login.xero.com/identity/connect/authorize"
	}
	if cfg.Xero.TokenURL == "" {
		cfg.Xero.TokenURL = "https://identity.xero.com/connect/token"
	}
	if cfg.Xero.APIBaseURL == "" {
		cfg.Xero.APIBaseURL = "https://api.xero.com/api.xro/2.0"
	}
	if len(cfg.Xero.Scopes) == 0 {
		cfg.Xero.Scopes = []string{"offline_access", "accounting.transactions", "accounting.contacts"}
	}
	if cfg.Xero.SalesAccount == "" {
		cfg.Xero.SalesAccount = "200"
	}
	if cfg.Xero.PaymentAccount == "" {
		cfg.Xero.PaymentAccount = "090"
	}
	if cfg.CourierGuy.BaseURL == "" {
		cfg.CourierGuy.BaseURL = "https://api.shiplogic.com/v2"
	}
	if cfg.Pargo.BaseURL == "" {
		cfg.Pargo.BaseURL = "https://api.pargo.co.za"
	}
	if cfg.Takealot.BaseURL == "" {
		cfg.Takealot.BaseURL = "https://seller-api.takealot.com/v2"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.NodeID < 0 || c.App.NodeID > 1023 {
		return fmt.Errorf("app.node_id must be between 0 and 1023")
	}
	if c.Integration.MaxFanOut < 1 {
		return fmt.Errorf("integration.max_fan_out must be at least 1")
	}
	if c.Integration.ProviderTimeout < 0 {
		return fmt.Errorf("integration.provider_timeout cannot be negative")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Integration.MockProviders {
			return fmt.Errorf("integration.mock_providers must be false in production")
		}
		if c.PayFast.Sandbox {
			return fmt.Errorf("payfast.sandbox must be false in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
