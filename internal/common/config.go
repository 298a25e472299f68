package common

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
	LLM       LLMConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `envconfig:"DB_URL"`
	MaxConns         int32         `envconfig:"DB_MAX_CONNS" default:"20"`
	MinConns         int32         `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxConnLifetime  time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	MaxConnIdleTime  time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"5m"`
	DialTimeout      time.Duration `envconfig:"DB_DIAL_TIMEOUT" default:"3s"`
	StatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"0"`
	MigrateOnStart   bool          `envconfig:"DB_MIGRATE_ON_START" default:"true"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
}

// WorkerConfig holds job worker configuration
type WorkerConfig struct {
	Concurrency  int           `envconfig:"WORKER_CONCURRENCY" default:"4"`
	StaleAfter   time.Duration `envconfig:"WORKER_STALE_AFTER" default:"10m"`
	AttemptLimit int           `envconfig:"WORKER_ATTEMPT_LIMIT" default:"3"`
	RunInterval  time.Duration `envconfig:"WORKER_RUN_INTERVAL" default:"30s"`
}

// RateLimitConfig bounds outbound provider calls per user and window.
type RateLimitConfig struct {
	ProviderLimit  int           `envconfig:"RATE_LIMIT_PROVIDER_CALLS" default:"30"`
	ProviderWindow time.Duration `envconfig:"RATE_LIMIT_PROVIDER_WINDOW" default:"1m"`
}

// LLMConfig holds provider-related configuration
type LLMConfig struct {
	BaseURL     string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Model       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	APIKey      string        `envconfig:"OPENAI_API_KEY"`
	Temperature float32       `envconfig:"OPENAI_TEMPERATURE" default:"0"`
	Timeout     time.Duration `envconfig:"OPENAI_TIMEOUT" default:"45s"`
}

// LoadConfig loads configuration from the environment, reading a local
// .env file first when present (env vars set in the shell still win).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Worker.Concurrency <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKER_CONCURRENCY must be positive", ErrInvalidInput)
	}
	if c.Worker.AttemptLimit <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKER_ATTEMPT_LIMIT must be positive", ErrInvalidInput)
	}
	return nil
}
