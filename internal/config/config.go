package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/LibraryGo/pkg/config"
	"github.com/utafrali/LibraryGo/pkg/database"
	"github.com/utafrali/LibraryGo/pkg/middleware"
)

// defaultJWTKey is accepted only in development.
const defaultJWTKey = "change-this-to-a-secure-secret"

// Config holds all configuration for the library service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL. DatabaseURL wins over the individual parts.
	DatabaseURL           string `env:"DATABASE_URL"`
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"library"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"library_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"library"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int    `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`

	// JWT
	JWTKey      string        `env:"JWT_KEY" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"library"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"library-clients"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"1h"`

	// Catalog
	CheckoutPeriod time.Duration `env:"CHECKOUT_PERIOD" envDefault:"120h"`
	FeaturedLimit  int           `env:"FEATURED_LIMIT" envDefault:"10"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// Rate limiting for /api/users
	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`
	// AuthTrustedProxies lists the CIDRs or addresses allowed to set
	// X-Forwarded-For. Empty means forwarding headers are ignored.
	AuthTrustedProxies []string `env:"AUTH_TRUSTED_PROXIES" envSeparator:","`

	// Redis token denylist
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Seed an empty catalog when serving.
	SeedOnStart bool `env:"SEED_ON_START" envDefault:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load library config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and, outside development, the JWT key.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive, got %s", c.JWTExpiry)
	}
	if c.CheckoutPeriod <= 0 {
		return fmt.Errorf("CHECKOUT_PERIOD must be positive, got %s", c.CheckoutPeriod)
	}
	if c.FeaturedLimit < 1 {
		return fmt.Errorf("FEATURED_LIMIT must be at least 1, got %d", c.FeaturedLimit)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1], got %g", c.OTELSampleRate)
	}
	if c.AuthRateLimitRPS <= 0 || c.AuthRateLimitBurst < 1 {
		return fmt.Errorf("auth rate limit must be positive, got %g rps burst %d", c.AuthRateLimitRPS, c.AuthRateLimitBurst)
	}
	if _, err := middleware.ParseTrustedProxies(c.AuthTrustedProxies); err != nil {
		return fmt.Errorf("AUTH_TRUSTED_PROXIES: %w", err)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must be set when KAFKA_ENABLED is true")
	}

	if c.Environment != "development" {
		if c.JWTKey == defaultJWTKey {
			return fmt.Errorf("JWT_KEY must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTKey) < 32 {
			return fmt.Errorf("JWT_KEY must be at least 32 characters long, got %d", len(c.JWTKey))
		}
	}

	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		URL:             c.DatabaseURL,
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
