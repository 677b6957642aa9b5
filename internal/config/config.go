package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Storage  StorageConfig
	Payroll  PayrollConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
}

type StorageConfig struct {
	Type      string // local | gcs
	LocalPath string
	BaseURL   string
	GCSBucket string
	// GCSCredentialsFile is optional; application default credentials are used when empty.
	GCSCredentialsFile string
}

// PayrollConfig holds payroll processing defaults.
type PayrollConfig struct {
	TrendWindow      int
	DocumentWorkers  int
	BackfillInterval time.Duration
	BackfillBatch    int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll_ledger"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	config.Storage = StorageConfig{
		Type:               getEnv("STORAGE_TYPE", "local"),
		LocalPath:          getEnv("STORAGE_LOCAL_PATH", "./uploads"),
		BaseURL:            getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%d/files", appPort)),
		GCSBucket:          getEnv("STORAGE_GCS_BUCKET", ""),
		GCSCredentialsFile: getEnv("STORAGE_GCS_CREDENTIALS_FILE", ""),
	}

	// Payroll configuration
	window, err := strconv.Atoi(getEnv("PAYROLL_TREND_WINDOW", "12"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_TREND_WINDOW: %w", err)
	}
	workers, err := strconv.Atoi(getEnv("PAYROLL_DOCUMENT_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_DOCUMENT_WORKERS: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("PAYROLL_BACKFILL_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_BACKFILL_INTERVAL: %w", err)
	}
	batch, err := strconv.Atoi(getEnv("PAYROLL_BACKFILL_BATCH", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_BACKFILL_BATCH: %w", err)
	}

	config.Payroll = PayrollConfig{
		TrendWindow:      window,
		DocumentWorkers:  workers,
		BackfillInterval: interval,
		BackfillBatch:    batch,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME is invalid: %w", err)
	}

	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("STORAGE_LOCAL_PATH is required for local storage")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("STORAGE_GCS_BUCKET is required for gcs storage")
		}
	default:
		return fmt.Errorf("STORAGE_TYPE must be local or gcs, got %q", c.Storage.Type)
	}

	if c.Payroll.TrendWindow != 6 && c.Payroll.TrendWindow != 12 {
		return fmt.Errorf("PAYROLL_TREND_WINDOW must be 6 or 12")
	}
	if c.Payroll.DocumentWorkers < 1 {
		return fmt.Errorf("PAYROLL_DOCUMENT_WORKERS must be at least 1")
	}
	if c.Payroll.BackfillInterval <= 0 {
		return fmt.Errorf("PAYROLL_BACKFILL_INTERVAL must be positive")
	}
	if c.Payroll.BackfillBatch < 1 {
		return fmt.Errorf("PAYROLL_BACKFILL_BATCH must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
