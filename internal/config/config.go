package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Admin     AdminConfig
	Database  DatabaseConfig
	CRM       CRMConfig
	Sync      SyncConfig
}

// AdminConfig holds the seeded admin account used for the sync-control endpoints
type AdminConfig struct {
	Email    string
	Password string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// CRMConfig holds the external CRM connection settings.
// An empty URL disables CRM synchronization entirely.
type CRMConfig struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// SyncConfig holds the background sync worker settings
type SyncConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3210"),
		JWTSecret: getEnv("JWT_SECRET", "playhouse-dev-secret"),
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@localhost"),
			Password: getEnv("ADMIN_PASSWORD", "admin"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "playhouse"),
		},
		CRM: CRMConfig{
			URL:      os.Getenv("CRM_URL"),
			Database: getEnv("CRM_DATABASE", "crm"),
			Username: os.Getenv("CRM_USERNAME"),
			Password: os.Getenv("CRM_PASSWORD"),
			Timeout:  getDurationEnv("CRM_TIMEOUT", 15*time.Second),
		},
		Sync: SyncConfig{
			Interval:    getDurationEnv("SYNC_INTERVAL", 5*time.Minute),
			BatchSize:   getIntEnv("SYNC_BATCH_SIZE", 25),
			MaxAttempts: getIntEnv("SYNC_MAX_ATTEMPTS", 5),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

// getDurationEnv accepts either a Go duration string ("15s") or plain seconds ("15")
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	var seconds int
	if _, err := fmt.Sscanf(value, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
