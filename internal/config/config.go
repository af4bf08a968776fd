// Package config loads and validates the service configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/shoplite/catalog-search/pkg/config"
	"github.com/shoplite/catalog-search/pkg/database"
	"github.com/shoplite/catalog-search/pkg/validator"
)

// Config is the full service configuration.
type Config struct {
	Service  ServiceConfig
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Search   SearchConfig
	Tracing  TracingConfig
}

// ServiceConfig identifies the process.
type ServiceConfig struct {
	Name        string `env:"SERVICE_NAME" envDefault:"catalog-search" validate:"required"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8084" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// JWTSecret, when set, lets authenticated searches feed the per-user
	// recent-search list. Anonymous requests always work.
	JWTSecret string `env:"JWT_SECRET"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

// PostgresConfig holds the catalog database settings.
type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"storefront"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	DBName   string `env:"POSTGRES_DB" envDefault:"storefront"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
}

// RedisConfig holds the cache and analytics store settings.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// KafkaConfig holds the invalidation event consumer settings.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:"," validate:"min=1"`
	GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"catalog-search" validate:"required"`
}

// SearchConfig holds the search policy knobs.
type SearchConfig struct {
	ProductServiceURL string `env:"PRODUCT_SERVICE_URL" envDefault:"http://localhost:8081" validate:"url"`

	MinQueryLength      int `env:"MIN_QUERY_LENGTH" envDefault:"2" validate:"min=1"`
	SuggestionThreshold int `env:"SUGGESTION_THRESHOLD" envDefault:"3" validate:"min=0"`
	SuggestionLimit     int `env:"SUGGESTION_LIMIT" envDefault:"5" validate:"min=1"`
	DefaultPerPage      int `env:"DEFAULT_PER_PAGE" envDefault:"20" validate:"min=1,max=100"`
	BestSellerSales     int `env:"BESTSELLER_SALES" envDefault:"50" validate:"min=1"`

	LiveTTL       time.Duration `env:"CACHE_TTL_LIVE" envDefault:"1m"`
	PageTTL       time.Duration `env:"CACHE_TTL_PAGE" envDefault:"5m"`
	SuggestTTL    time.Duration `env:"CACHE_TTL_SUGGEST" envDefault:"1m"`
	CategoriesTTL time.Duration `env:"CACHE_TTL_CATEGORIES" envDefault:"10m"`
	RecentTTL     time.Duration `env:"ANALYTICS_RECENT_TTL" envDefault:"168h"`

	AnalyticsEnabled bool `env:"ANALYTICS_ENABLED" envDefault:"true"`
}

// TracingConfig holds the OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled      bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate   float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	return validator.Validate(c)
}

// PostgresPoolConfig maps the env settings onto the shared pool config.
func (c *Config) PostgresPoolConfig() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.Postgres.Host
	pg.Port = c.Postgres.Port
	pg.User = c.Postgres.User
	pg.Password = c.Postgres.Password
	pg.DBName = c.Postgres.DBName
	pg.SSLMode = c.Postgres.SSLMode
	return pg
}

// RedisClientConfig maps the env settings onto the shared client config.
func (c *Config) RedisClientConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.Redis.Host,
		Port:     c.Redis.Port,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}
