package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	pkgconfig "github.com/utafrali/EcommerceGo/storefront/pkg/config"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// Session store kinds.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds all configuration for the storefront client.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Remote API
	APIBaseURL     string `env:"STOREFRONT_API_BASE_URL" envDefault:"http://localhost:8000/api" validate:"required,url"`
	RequestTimeout int    `env:"STOREFRONT_REQUEST_TIMEOUT_SECONDS" envDefault:"15" validate:"gte=1"`

	// Session store
	Store          string `env:"STOREFRONT_STORE" envDefault:"file" validate:"oneof=file redis memory"`
	StorePath      string `env:"STOREFRONT_STORE_PATH"`
	StoreNamespace string `env:"STOREFRONT_STORE_NAMESPACE" envDefault:"default" validate:"required"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`

	// Circuit breaker
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60" validate:"gte=0"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30" validate:"gte=1"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5" validate:"gt=0,lte=1"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return finish(cfg)
}

// LoadFrom reads configuration from the given variables.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environ); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Store == StoreFile && cfg.StorePath == "" {
		path, err := DefaultStorePath()
		if err != nil {
			return nil, err
		}
		cfg.StorePath = path
	}
	return cfg, nil
}

// DefaultStorePath returns $HOME/.storefront/session.json.
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve session store path: %w", err)
	}
	return filepath.Join(home, ".storefront", "session.json"), nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("invalid storefront config: %w", err)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// HTTPClient returns the outbound client settings. Requests are attempted
// once and bounded by RequestTimeout.
func (c *Config) HTTPClient() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Name = "commerce-api"
	cfg.Timeout = time.Duration(c.RequestTimeout) * time.Second
	cfg.MaxRetries = 0
	return cfg
}

// CircuitBreaker returns the breaker settings.
func (c *Config) CircuitBreaker() httpclient.CircuitBreakerConfig {
	return httpclient.CircuitBreakerConfig{
		Name:         "commerce-api",
		MaxRequests:  c.CBMaxRequests,
		Interval:     time.Duration(c.CBInterval) * time.Second,
		Timeout:      time.Duration(c.CBTimeout) * time.Second,
		FailureRatio: c.CBFailureRatio,
		MinRequests:  c.CBMinRequests,
	}
}

// Tracing returns the tracer settings.
func (c *Config) Tracing() tracing.Config {
	cfg := tracing.DefaultConfig("storefront")
	cfg.Enabled = c.OTELEnabled
	cfg.OTLPEndpoint = c.OTELEndpoint
	cfg.SampleRate = c.OTELSampleRate
	cfg.Environment = c.Environment
	return cfg
}
