// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"wallet-ledger/pkg/db" // Import db package for its Config struct
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	GatewayProviderHMAC   = "hmac"
	GatewayProviderStripe = "stripe"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort  string
	StoreDriver string
	LogLevel    string
	DB          db.Config
	Redis       RedisConfig
	Auth        AuthConfig
	Gateway     GatewayConfig
	Catalog     CatalogConfig
	// IdempotencyTTL is how long a replayable response is kept.
	IdempotencyTTL time.Duration
	Reconcile      ReconcileConfig
}

// RedisConfig configures the shared Redis client. An empty Addr disables the
// catalog cache and the idempotency middleware.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string
}

// GatewayConfig selects the payment proof verifier.
type GatewayConfig struct {
	Provider        string
	Secret          string
	StripeSecretKey string
}

// CatalogConfig controls line item snapshots.
type CatalogConfig struct {
	// Snapshot makes orders copy product fields from the catalog instead of
	// trusting the client.
	Snapshot bool
	CacheTTL time.Duration
}

// ReconcileConfig controls the partial-commit sweep.
type ReconcileConfig struct {
	Interval time.Duration
	After    time.Duration
}

// LoadConfig loads configuration from environment variables, seeded from a
// .env file when one exists.
// It returns an AppConfig instance or an error if any required variable is missing or invalid.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	p := &parser{}
	cfg := &AppConfig{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DB: db.Config{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            p.getInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "user"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "walletdb"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    p.getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       p.getInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Gateway: GatewayConfig{
			Provider:        getEnv("GATEWAY_PROVIDER", GatewayProviderHMAC),
			Secret:          getEnv("GATEWAY_SECRET", ""),
			StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		Catalog: CatalogConfig{
			Snapshot: p.getBool("CATALOG_SNAPSHOT", false),
			CacheTTL: p.getDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		},
		IdempotencyTTL: p.getDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		Reconcile: ReconcileConfig{
			Interval: p.getDuration("RECONCILE_INTERVAL", time.Minute),
			After:    p.getDuration("RECONCILE_AFTER", 2*time.Minute),
		},
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", c.StoreDriver, StoreDriverPostgres, StoreDriverMemory)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Gateway.Provider {
	case GatewayProviderHMAC:
		if c.Gateway.Secret == "" {
			return errors.New("GATEWAY_SECRET is required for the hmac gateway")
		}
	case GatewayProviderStripe:
		if c.Gateway.StripeSecretKey == "" {
			return errors.New("STRIPE_SECRET_KEY is required for the stripe gateway")
		}
	default:
		return fmt.Errorf("invalid GATEWAY_PROVIDER %q", c.Gateway.Provider)
	}
	if c.Reconcile.Interval <= 0 {
		return errors.New("RECONCILE_INTERVAL must be positive")
	}
	if c.Reconcile.After < 0 {
		return errors.New("RECONCILE_AFTER must not be negative")
	}
	return nil
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// parser keeps the first conversion error so LoadConfig can report it once.
type parser struct {
	err error
}

func (p *parser) getInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) getBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
