package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Redis configuration
	RedisURL    string        `json:"redis_url" validate:"required"`
	RedisPrefix string        `json:"redis_prefix"`
	MarkerTTL   time.Duration `json:"marker_ttl"`
	RunClaimTTL time.Duration `json:"run_claim_ttl"`

	// Oracle configuration
	OracleAPIKey  string        `json:"oracle_api_key"`
	OracleModel   string        `json:"oracle_model" validate:"required"`
	OracleTimeout time.Duration `json:"oracle_timeout"`
	OracleRetries int           `json:"oracle_retries" validate:"min=0,max=2"`

	// Classifier configuration
	ClassifyBatchSize int `json:"classify_batch_size" validate:"min=1,max=30"`
	MaxConcurrency    int `json:"max_concurrency" validate:"min=1"`

	// Issue configuration
	SubjectMaxLength int           `json:"subject_max_length" validate:"min=20"`
	PersistRetries   int           `json:"persist_retries" validate:"min=1"`
	PersistBackoff   time.Duration `json:"persist_backoff"`

	// Storage
	StoragePath string `json:"storage_path" validate:"required"`

	// CloudFlare R2 issue archive (optional; disabled when endpoint is empty)
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Redis configuration
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "curator:"),
		MarkerTTL:   getEnvAsDuration("MARKER_TTL", 168*time.Hour),
		RunClaimTTL: getEnvAsDuration("RUN_CLAIM_TTL", 2*time.Hour),

		// Oracle configuration
		OracleAPIKey:  getEnv("ORACLE_API_KEY", ""),
		OracleModel:   getEnv("ORACLE_MODEL", "gemini-pro"),
		OracleTimeout: getEnvAsDuration("ORACLE_TIMEOUT", 60*time.Second),
		OracleRetries: getEnvAsInt("ORACLE_RETRIES", 2),

		// Classifier configuration
		ClassifyBatchSize: getEnvAsInt("CLASSIFY_BATCH_SIZE", 20),
		MaxConcurrency:    getEnvAsInt("MAX_CONCURRENCY", 5),

		// Issue configuration
		SubjectMaxLength: getEnvAsInt("SUBJECT_MAX_LENGTH", 78),
		PersistRetries:   getEnvAsInt("PERSIST_RETRIES", 3),
		PersistBackoff:   getEnvAsDuration("PERSIST_BACKOFF", 500*time.Millisecond),

		// Storage
		StoragePath: getEnv("STORAGE_PATH", "./data"),

		// CloudFlare R2 Configuration
		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "briefwire"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
