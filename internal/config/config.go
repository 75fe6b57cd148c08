package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage providers
const (
	ProviderSupabase = "supabase"
	ProviderS3       = "s3"
	ProviderAzure    = "azure"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Paths   PathConfig
	Redis   RedisConfig
	MongoDB MongoDBConfig
	JWT     JWTConfig
	OTEL    OTELConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	MaxUploadSizeMB int64
	AllowOrigins    string
}

// StorageConfig holds object storage configuration.
// Endpoint, Credential and Bucket are required for every provider.
type StorageConfig struct {
	Provider   string
	Endpoint   string // Supabase project URL, S3 endpoint or Azure service URL
	Credential string // Supabase key, S3 secret access key or Azure account key
	Bucket     string
	Timeout    time.Duration

	// PublicBaseURL is where public objects are served from. Defaults to Endpoint.
	PublicBaseURL string

	// S3 only
	Region      string
	AccessKeyID string

	// Azure only
	AccountName string
}

// PathConfig selects the storage path layout
type PathConfig struct {
	Strategy string // "date" or "flat"
	Prefix   string // flat strategy only
}

// RedisConfig holds Redis connection configuration. An empty Addr disables idempotency.
type RedisConfig struct {
	Addr           string
	Password       string
	IdempotencyTTL time.Duration
	StatusCacheTTL time.Duration // cached storage connection checks; 0 disables
}

// MongoDBConfig holds MongoDB connection configuration. An empty URI disables the upload ledger.
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds API authentication configuration. An empty Secret disables auth.
type JWTConfig struct {
	Secret string
}

// OTELConfig holds OpenTelemetry exporter configuration
type OTELConfig struct {
	Enabled        bool
	Endpoint       string
	PathPrefix     string
	Insecure       bool
	Username       string
	Password       string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level      string
	Path       string // optional rolling log file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads configuration from environment variables
// It attempts to load from .env file first, then falls back to system env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	endpoint := getEnv("STORAGE_ENDPOINT", getEnv("SUPABASE_URL", ""))

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			MaxUploadSizeMB: getEnvAsInt64("MAX_UPLOAD_SIZE_MB", 20),
			AllowOrigins:    getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Storage: StorageConfig{
			Provider:      strings.ToLower(getEnv("STORAGE_PROVIDER", ProviderSupabase)),
			Endpoint:      endpoint,
			Credential:    getEnv("STORAGE_CREDENTIAL", getEnv("SUPABASE_ANON_KEY", "")),
			Bucket:        getEnv("STORAGE_BUCKET", "obsidian-images"),
			Timeout:       getEnvAsDuration("STORAGE_TIMEOUT", 30*time.Second),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", endpoint),
			Region:        getEnv("S3_REGION", "us-east-1"),
			AccessKeyID:   getEnv("S3_ACCESS_KEY_ID", ""),
			AccountName:   getEnv("AZURE_ACCOUNT_NAME", ""),
		},
		Paths: PathConfig{
			Strategy: getEnv("PATH_STRATEGY", "date"),
			Prefix:   getEnv("PATH_PREFIX", ""),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL", 10*time.Minute),
			StatusCacheTTL: getEnvAsDuration("STATUS_CACHE_TTL", 30*time.Second),
		},
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", ""),
			Database: getEnv("MONGODB_DATABASE", "imgpaste"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		OTEL: OTELConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			PathPrefix:     getEnv("OTEL_EXPORTER_OTLP_PATH_PREFIX", ""),
			Insecure:       getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			Username:       getEnv("OTEL_EXPORTER_OTLP_USERNAME", ""),
			Password:       getEnv("OTEL_EXPORTER_OTLP_PASSWORD", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "imgpaste"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("APP_ENV", "development"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Path:       getEnv("LOG_PATH", ""),
			MaxSizeMB:  int(getEnvAsInt64("LOG_MAX_SIZE_MB", 100)),
			MaxBackups: int(getEnvAsInt64("LOG_MAX_BACKUPS", 3)),
			MaxAgeDays: int(getEnvAsInt64("LOG_MAX_AGE_DAYS", 7)),
			Compress:   getEnvAsBool("LOG_COMPRESS", false),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is consistent.
// Missing storage settings are not an error: the service starts unconfigured.
func (c *Config) Validate() error {
	switch c.Storage.Provider {
	case ProviderSupabase, ProviderS3, ProviderAzure:
	default:
		return fmt.Errorf("STORAGE_PROVIDER %q is not supported", c.Storage.Provider)
	}

	switch c.Paths.Strategy {
	case "date", "flat":
	default:
		return fmt.Errorf("PATH_STRATEGY %q is not supported", c.Paths.Strategy)
	}

	if c.Storage.Timeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must be positive")
	}

	if c.Storage.IsConfigured() {
		if c.Storage.Provider == ProviderS3 && c.Storage.AccessKeyID == "" {
			return fmt.Errorf("S3_ACCESS_KEY_ID is required for the s3 provider")
		}
		if c.Storage.Provider == ProviderAzure && c.Storage.AccountName == "" {
			return fmt.Errorf("AZURE_ACCOUNT_NAME is required for the azure provider")
		}
	}
	return nil
}

// IsConfigured reports whether endpoint, credential and bucket are all set
func (s StorageConfig) IsConfigured() bool {
	return s.Endpoint != "" && s.Credential != "" && s.Bucket != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
