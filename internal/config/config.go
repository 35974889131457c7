package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Mail     MailConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
	Catalog  CatalogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string        `env:"SERVER_PORT" envDefault:"8080"`
	Env            string        `env:"SERVER_ENV" envDefault:"development"`
	PublicURL      string        `env:"PUBLIC_URL" envDefault:"http://localhost:3000"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	RateLimit      int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string `env:"DB_HOST" envDefault:"localhost"`
	Port      string `env:"DB_PORT" envDefault:"8000"`
	Namespace string `env:"DB_NAMESPACE" envDefault:"haven"`
	Database  string `env:"DB_DATABASE" envDefault:"main"`
	User      string `env:"DB_USER" envDefault:"root"`
	Password  string `env:"DB_PASSWORD" envDefault:"root"`
}

// RedisConfig holds the cache connection settings
type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

// JWTConfig holds JWT signing settings
type JWTConfig struct {
	PrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH" envDefault:"./keys/private.pem"`
	PublicKeyPath  string `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./keys/public.pem"`
	ExpirationMins int    `env:"JWT_EXPIRATION_MINS" envDefault:"15"`
	Issuer         string `env:"JWT_ISSUER" envDefault:"haven.forgo.software"`
}

// StorageConfig holds S3 object storage settings
type StorageConfig struct {
	Bucket        string        `env:"S3_BUCKET" envDefault:"haven-uploads"`
	Region        string        `env:"AWS_REGION" envDefault:"us-east-1"`
	Endpoint      string        `env:"S3_ENDPOINT"`
	PublicBaseURL string        `env:"S3_PUBLIC_BASE_URL"`
	AccessKey     string        `env:"AWS_ACCESS_KEY_ID"`
	SecretKey     string        `env:"AWS_SECRET_ACCESS_KEY"`
	PresignTTL    time.Duration `env:"S3_PRESIGN_TTL" envDefault:"15m"`
}

// MailConfig holds SES settings
type MailConfig struct {
	Enabled     bool   `env:"MAIL_ENABLED" envDefault:"false"`
	FromAddress string `env:"MAIL_FROM" envDefault:"Haven <no-reply@haven.community>"`
	Region      string `env:"SES_REGION" envDefault:"us-east-1"`
}

// PaymentsConfig holds payment processor settings
type PaymentsConfig struct {
	SecretKey              string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret          string `env:"STRIPE_WEBHOOK_SECRET"`
	Currency               string `env:"STORE_CURRENCY" envDefault:"usd"`
	OrganizerFeeCents      int64  `env:"ORGANIZER_APPLICATION_FEE_CENTS" envDefault:"2500"`
	CheckoutSuccessPath    string `env:"CHECKOUT_SUCCESS_PATH" envDefault:"/checkout/success"`
	CheckoutCancelPath     string `env:"CHECKOUT_CANCEL_PATH" envDefault:"/checkout/cancelled"`
	BillingPortalReturnURL string `env:"BILLING_PORTAL_RETURN_URL" envDefault:"http://localhost:3000/account"`
}

// JobsConfig holds background job intervals
type JobsConfig struct {
	SponsorFlushInterval  time.Duration `env:"JOB_SPONSOR_FLUSH_INTERVAL" envDefault:"1m"`
	SponsorExpiryInterval time.Duration `env:"JOB_SPONSOR_EXPIRY_INTERVAL" envDefault:"1h"`
	CheckoutCleanupEvery  time.Duration `env:"JOB_CHECKOUT_CLEANUP_INTERVAL" envDefault:"1h"`
	StaleCheckoutAfter    time.Duration `env:"JOB_STALE_CHECKOUT_AFTER" envDefault:"24h"`
}

// CatalogConfig points at the sponsor tier / product seed file
type CatalogConfig struct {
	Path string `env:"CATALOG_PATH" envDefault:"./catalog.yaml"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i, o := range cfg.Server.AllowedOrigins {
		cfg.Server.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	return cfg, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}

	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	if c.Redis.URL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}

	if c.IsProduction() {
		if c.JWT.PrivateKeyPath == "" {
			errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH is required in production"))
		}
		if c.Payments.SecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required in production"))
		}
		if c.Payments.WebhookSecret == "" {
			errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required in production"))
		}
	}
	if c.JWT.ExpirationMins <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINS must be positive"))
	}

	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required"))
	}
	if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
		errs = append(errs, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together"))
	}

	if c.Mail.Enabled && c.Mail.FromAddress == "" {
		errs = append(errs, errors.New("MAIL_FROM is required when MAIL_ENABLED is true"))
	}

	if len(c.Payments.Currency) != 3 {
		errs = append(errs, fmt.Errorf("STORE_CURRENCY must be a 3-letter code, got '%s'", c.Payments.Currency))
	}
	if c.Payments.OrganizerFeeCents < 0 {
		errs = append(errs, errors.New("ORGANIZER_APPLICATION_FEE_CENTS must not be negative"))
	}

	if c.Jobs.SponsorFlushInterval <= 0 || c.Jobs.SponsorExpiryInterval <= 0 || c.Jobs.CheckoutCleanupEvery <= 0 {
		errs = append(errs, errors.New("job intervals must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// CheckoutURLs returns the absolute success and cancel URLs for hosted checkout
func (c *Config) CheckoutURLs() (success, cancel string) {
	base := strings.TrimRight(c.Server.PublicURL, "/")
	return base + c.Payments.CheckoutSuccessPath + "?session_id={CHECKOUT_SESSION_ID}",
		base + c.Payments.CheckoutCancelPath
}
