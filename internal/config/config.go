package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the service configuration.
type Config struct {
	// Server
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int32         `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Secret field, loaded from file, no envconfig tag
	DBPassword string

	// RabbitMQ
	RabbitMQURL  string `envconfig:"RABBITMQ_URL" required:"true"`
	DNATaskQueue string `envconfig:"DNA_TASK_QUEUE" default:"dna_extraction_tasks"`

	// Redis (slot leases)
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	SlotLeaseTTL  time.Duration `envconfig:"SLOT_LEASE_TTL" default:"2m"`

	// AI collaborator
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	AIModel       string        `envconfig:"AI_MODEL" default:"deepseek/deepseek-chat-v3-0324:free"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	AIMaxRetries  int           `envconfig:"AI_MAX_RETRIES" default:"3"`
	AIMaxCtxToken int           `envconfig:"AI_MAX_CONTEXT_TOKENS" default:"6000"`
	// Secret field, loaded from file, no envconfig tag
	AIAPIKey string

	// Admission pools (process-wide, shared across all stories)
	GenerationConcurrency  int `envconfig:"GENERATION_CONCURRENCY" default:"4"`
	PersistenceConcurrency int `envconfig:"PERSISTENCE_CONCURRENCY" default:"16"`
	ExtractionConcurrency  int `envconfig:"EXTRACTION_CONCURRENCY" default:"2"`

	// DNA worker
	WorkerPrefetch int `envconfig:"WORKER_PREFETCH" default:"4"`
	WorkerMaxRetry int `envconfig:"WORKER_MAX_RETRIES" default:"3"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads configuration from environment variables and secret files.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.AIAPIKey, loadErr = ReadSecret("ai_api_key")
	if loadErr != nil {
		return nil, loadErr
	}

	return &cfg, nil
}
