package config

import (
	"fmt"
	"time"

	"paywall-service/internal/pkg/jwt"
	"paywall-service/internal/service/pricing"

	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	// Server
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8000"`
	Environment     string        `env:"APP_ENV" envDefault:"production"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Storage
	DatabaseURL   string   `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns    int32    `env:"DB_MAX_CONNS" envDefault:"10"`
	DBAutoMigrate bool     `env:"DB_AUTO_MIGRATE" envDefault:"false"`
	RedisAddrs    []string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass     string   `env:"REDIS_PASS"`
	RedisDB       int      `env:"REDIS_DB" envDefault:"0"`
	RedisCluster  bool     `env:"REDIS_CLUSTER" envDefault:"false"`
	RedisPoolSize int      `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// JWT
	JWT jwt.Config `envPrefix:"JWT_"`

	// Payments
	Razorpay RazorpayConfig `envPrefix:"RAZORPAY_"`
	Currency string         `env:"PAYMENT_CURRENCY" envDefault:"INR"`
	Pricing  pricing.Config `envPrefix:"PRICING_"`

	// Paywall
	PremiumRatingThreshold int           `env:"PREMIUM_RATING_THRESHOLD" envDefault:"6"`
	EntitlementCacheTTL    time.Duration `env:"ENTITLEMENT_CACHE_TTL" envDefault:"10m"`
	CheckoutRateLimit      int           `env:"CHECKOUT_RATE_LIMIT" envDefault:"10"`
	CheckoutRateWindow     time.Duration `env:"CHECKOUT_RATE_WINDOW" envDefault:"1m"`
}

type RazorpayConfig struct {
	KeyID         string `env:"KEY_ID,required,notEmpty"`
	KeySecret     string `env:"KEY_SECRET,required,notEmpty"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

// Load parses the environment into AppConfig.
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PremiumRatingThreshold < 0 {
		return AppConfig{}, fmt.Errorf("PREMIUM_RATING_THRESHOLD must not be negative")
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs outside production.
func (c AppConfig) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}
