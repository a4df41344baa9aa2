package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// Logging
	LogLevel  string
	LogFormat string

	// Database (optional, in-memory store when empty)
	DatabaseURL         string
	DBMaxConnections    int
	DBConnectionTimeout time.Duration

	// Clerk Auth (optional, routes are open when empty)
	ClerkSecretKey string

	// S3 (optional, enables the presigned upload flow)
	S3Bucket    string
	S3Region    string
	AWSEndpoint string // For LocalStack in development

	// AMQP (optional, enables change events)
	AMQPURL      string
	AMQPExchange string

	// Uploads and display
	MaxUploadBytes int64
	CurrencySymbol string
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Port:                getEnvInt("PORT", 8080),
		Environment:         getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		AllowedOrigins:      getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DBMaxConnections:    getEnvInt("DB_MAX_CONNECTIONS", 25),
		DBConnectionTimeout: getEnvDuration("DB_CONNECTION_TIMEOUT", 30*time.Second),
		ClerkSecretKey:      getEnv("CLERK_SECRET_KEY", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Region:            getEnv("S3_REGION", "ap-south-1"),
		AWSEndpoint:         getEnv("AWS_ENDPOINT", ""),
		AMQPURL:             getEnv("AMQP_URL", ""),
		AMQPExchange:        getEnv("AMQP_EXCHANGE", "fintrack.transactions"),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		CurrencySymbol:      getEnv("CURRENCY_SYMBOL", "₹"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if c.DatabaseURL != "" && c.DBMaxConnections <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNECTIONS must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		errs = append(errs, fmt.Errorf("AMQP_EXCHANGE is required when AMQP_URL is set"))
	}
	if c.ClerkSecretKey == "" && c.IsProduction() {
		errs = append(errs, fmt.Errorf("CLERK_SECRET_KEY is required in production"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// StorageEnabled reports whether S3 settings are present
func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
