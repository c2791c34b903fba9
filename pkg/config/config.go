// Package config loads application configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Datastores. DatabaseURL configures the default alias; ExtraDatabases
	// maps additional aliases to their URLs, parsed from
	// CONDUIT_DATABASES="analytics=postgres://...;archive=file:archive.db".
	DatabaseURL    string
	ExtraDatabases map[string]string

	// Redis. Empty disables the shared idempotency store.
	RedisURL string

	// RabbitMQ. Empty selects the in-process event bus.
	RabbitMQURL string

	// Idempotency
	IdempotencyTTL time.Duration

	// Outbox relay
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxRetentionPeriod  time.Duration
	OutboxCleanupInterval  time.Duration
	OutboxProcessorEnabled bool
}

// Load loads configuration from environment variables. A missing .env file
// is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ExtraDatabases: parseDatabaseList(os.Getenv("CONDUIT_DATABASES")),
		RedisURL:       getEnv("REDIS_URL", ""),
		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),

		IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", 200*time.Millisecond),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxRetentionPeriod:  getDurationEnv("OUTBOX_RETENTION_PERIOD", 7*24*time.Hour),
		OutboxCleanupInterval:  getDurationEnv("OUTBOX_CLEANUP_INTERVAL", time.Hour),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// parseDatabaseList parses "alias=url;alias2=url2" into a map. Entries
// without an alias or URL are skipped.
func parseDatabaseList(raw string) map[string]string {
	out := make(map[string]string)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		alias, url, ok := strings.Cut(entry, "=")
		alias = strings.TrimSpace(alias)
		url = strings.TrimSpace(url)
		if !ok || alias == "" || url == "" {
			continue
		}
		out[alias] = url
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
