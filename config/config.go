package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds application configuration
type Config struct {
	// Provider credentials
	Token     string
	TokenKind string // "tushare" or "tudata"
	BaseURL   string

	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Sync configuration
	Sync SyncConfig
}

// SyncConfig holds tuning knobs for ingestion and reconciliation
type SyncConfig struct {
	// Minimum delay between successive provider calls inside a strategy loop
	CallInterval time.Duration

	// Transient errors are retried with these delays, in order
	RetryDelays []time.Duration

	// Entity chunk size for wide-partition-narrow-scope fetches
	ChunkSize int

	// Reconciliation thresholds
	MissingRateThreshold   float64 // above this, full overwrite
	AnomalousRateThreshold float64 // above this, full overwrite

	// Fraction of datasets in a batch that must succeed
	BatchSuccessRate float64

	// TTL for the cached expected-universe per trade date
	UniverseCacheTTL time.Duration
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Token:     os.Getenv("PROVIDER_TOKEN"),
		TokenKind: getEnvOrDefault("PROVIDER_TOKEN_KIND", "tushare"),
		BaseURL:   getEnvOrDefault("PROVIDER_BASE_URL", "https://api.tushare.pro"),

		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "marketsync"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "marketsync"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "marketsync123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		Sync: SyncConfig{
			CallInterval: time.Duration(getEnvInt("SYNC_CALL_INTERVAL_MS", 200)) * time.Millisecond,
			RetryDelays: []time.Duration{
				time.Duration(getEnvInt("SYNC_RETRY_DELAY_1_SEC", 1)) * time.Second,
				time.Duration(getEnvInt("SYNC_RETRY_DELAY_2_SEC", 3)) * time.Second,
				time.Duration(getEnvInt("SYNC_RETRY_DELAY_3_SEC", 5)) * time.Second,
			},
			ChunkSize:              getEnvInt("SYNC_CHUNK_SIZE", 50),
			MissingRateThreshold:   getEnvFloat("SYNC_MISSING_RATE_THRESHOLD", 0.20),
			AnomalousRateThreshold: getEnvFloat("SYNC_ANOMALOUS_RATE_THRESHOLD", 0.10),
			BatchSuccessRate:       getEnvFloat("SYNC_BATCH_SUCCESS_RATE", 0.80),
			UniverseCacheTTL:       time.Duration(getEnvInt("SYNC_UNIVERSE_CACHE_TTL_MIN", 60)) * time.Minute,
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
