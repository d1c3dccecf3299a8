// Package config provides configuration management for the copy-trading backend.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Quote     QuoteConfig
	JWT       JWTConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
	Uploads   UploadsConfig
	Referral  ReferralConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds trade-listing cache configuration
type CacheConfig struct {
	ListingTTL time.Duration
	LeaseTTL   time.Duration
}

// QuoteConfig holds quote provider configuration
type QuoteConfig struct {
	BaseURL         string
	APIKey          string
	BatchSize       int
	BatchDelay      time.Duration
	RequestTimeout  time.Duration
	RefreshSchedule string
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SMTPConfig holds outbound mail configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RateLimitConfig holds per-IP rate limits for the auth endpoints
type RateLimitConfig struct {
	AuthRPS   float64
	AuthBurst int
}

// UploadsConfig holds deposit receipt storage configuration
type UploadsConfig struct {
	Dir            string
	MaxReceiptSize int64
}

// ReferralConfig holds referral link construction configuration
type ReferralConfig struct {
	SignupBaseURL string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "copiqat"),
				User:           getEnv("POSTGRES_USER", "copiqat"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		Cache: CacheConfig{
			ListingTTL: getEnvAsDuration("CACHE_LISTING_TTL", 55*time.Second),
			LeaseTTL:   getEnvAsDuration("CACHE_LEASE_TTL", 60*time.Second),
		},
		Quote: QuoteConfig{
			BaseURL:         getEnv("QUOTE_BASE_URL", "https://api.twelvedata.com"),
			APIKey:          getEnv("QUOTE_API_KEY", ""),
			BatchSize:       getEnvAsInt("QUOTE_BATCH_SIZE", 50),
			BatchDelay:      getEnvAsDuration("QUOTE_BATCH_DELAY", 8*time.Second),
			RequestTimeout:  getEnvAsDuration("QUOTE_REQUEST_TIMEOUT", 15*time.Second),
			RefreshSchedule: getEnv("QUOTE_REFRESH_SCHEDULE", "@every 5m"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-me-in-production"),
			AccessTTL:  getEnvAsDuration("JWT_ACCESS_TTL", 1*time.Hour),
			RefreshTTL: getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@copiqat.trade"),
		},
		RateLimit: RateLimitConfig{
			AuthRPS:   getEnvAsFloat("RATE_LIMIT_AUTH_RPS", 1.0),
			AuthBurst: getEnvAsInt("RATE_LIMIT_AUTH_BURST", 5),
		},
		Uploads: UploadsConfig{
			Dir:            getEnv("UPLOADS_DIR", "uploads/receipts"),
			MaxReceiptSize: int64(getEnvAsInt("UPLOADS_MAX_RECEIPT_SIZE", 2*1024*1024)),
		},
		Referral: ReferralConfig{
			SignupBaseURL: getEnv("REFERRAL_SIGNUP_BASE_URL", "https://www.copiqat.trade"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// DatabaseURL builds a migrate-compatible Postgres URL
func (c *PostgresConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
