// Package config provides configuration management for Lineage.
// It loads settings from environment variables with the LINEAGE_ prefix
// and provides sensible defaults for all configuration options.
//
// Owner settings (e.g., owner_name) are persisted through the storage
// layer's settings store. LoadConfigFromDB reads persisted values first and
// falls back to environment variables. SaveConfig writes owner settings back.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/lineagekit/lineage/internal/storage"
)

// Config holds all configuration settings for the Lineage application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Engine   EngineConfig
	Security SecurityConfig
	Features FeaturesConfig
	Owner    OwnerConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int     // Server port (default: 6464)
	Host           string  // Server host (default: 127.0.0.1)
	RateLimitRPS   float64 // Sustained requests per second per client (default: 20)
	RateLimitBurst int     // Burst allowance per client (default: 40)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for SQLite (default: ./data)
	PostgresDSN   string // PostgreSQL connection string when StorageEngine is postgres
}

// EngineConfig contains relationship inference settings.
type EngineConfig struct {
	MaxGenerations    int // Generation bound for ancestor walks (default: 4)
	SnapshotCacheSize int // Number of tree snapshots kept in memory (default: 16)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token, required in production mode
}

// FeaturesConfig contains feature flags.
type FeaturesConfig struct {
	EnableREST      bool // Enable REST API (default: true)
	EnableWebSocket bool // Enable websocket change notifications (default: true)
}

// OwnerConfig contains owner-specific settings that persist across restarts.
// These settings are stored in the settings table in the database.
type OwnerConfig struct {
	// OwnerName is the display name for the tree owner.
	// Env var: LINEAGE_OWNER_NAME
	// Database key: owner_name
	OwnerName string
}

// LoadConfig loads configuration from environment variables with sensible defaults.
// All environment variables use the LINEAGE_ prefix.
// Owner settings (OwnerConfig) are loaded from environment variables only.
// Use LoadConfigFromDB to also read persisted owner settings from the database.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromDB loads configuration from both environment variables and
// the settings store. The persisted value takes precedence over the
// environment variable for owner settings. Falls back to the environment
// variable when no entry has been stored.
//
// Returns an error if settings is nil.
func LoadConfigFromDB(ctx context.Context, settings storage.SettingsStore) (*Config, error) {
	if settings == nil {
		return nil, errors.New("config: settings store is required")
	}

	cfg := buildBaseConfig()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ownerName, err := settings.GetSetting(ctx, "owner_name")
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("config: failed to load owner_name: %w", err)
	}

	if ownerName != "" {
		// Persisted value overrides env var
		cfg.Owner.OwnerName = ownerName
	}

	return cfg, nil
}

// SaveConfig persists owner configuration settings through the settings
// store with upsert semantics, so owner settings survive application
// restarts regardless of which backend is configured.
//
// Returns an error if settings is nil.
func (c *Config) SaveConfig(ctx context.Context, settings storage.SettingsStore) error {
	if settings == nil {
		return errors.New("config: settings store is required")
	}

	if err := settings.SetSetting(ctx, "owner_name", c.Owner.OwnerName); err != nil {
		return fmt.Errorf("config: failed to save owner_name: %w", err)
	}

	return nil
}

// validate rejects configurations that would misbehave at runtime rather than
// letting them surface as confusing errors later.
func (c *Config) validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.StorageEngine)
	}
	if c.Storage.StorageEngine == "postgres" && c.Storage.PostgresDSN == "" {
		return errors.New("config: LINEAGE_POSTGRES_DSN is required for the postgres engine")
	}
	if c.Engine.MaxGenerations < 1 {
		return fmt.Errorf("config: max generations must be at least 1, got %d", c.Engine.MaxGenerations)
	}
	if c.Engine.SnapshotCacheSize < 1 {
		return fmt.Errorf("config: snapshot cache size must be at least 1, got %d", c.Engine.SnapshotCacheSize)
	}
	if c.Security.SecurityMode == "production" && c.Security.APIToken == "" {
		return errors.New("config: LINEAGE_API_TOKEN is required in production mode")
	}
	return nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults. This is the shared base for both LoadConfig and LoadConfigFromDB.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnvInt("LINEAGE_PORT", 6464),
			Host:           getEnv("LINEAGE_HOST", "127.0.0.1"),
			RateLimitRPS:   getEnvFloat("LINEAGE_RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvInt("LINEAGE_RATE_LIMIT_BURST", 40),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("LINEAGE_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("LINEAGE_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("LINEAGE_POSTGRES_DSN", ""),
		},
		Engine: EngineConfig{
			MaxGenerations:    getEnvInt("LINEAGE_MAX_GENERATIONS", 4),
			SnapshotCacheSize: getEnvInt("LINEAGE_SNAPSHOT_CACHE_SIZE", 16),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("LINEAGE_SECURITY_MODE", "development"),
			APIToken:     getEnv("LINEAGE_API_TOKEN", ""),
		},
		Features: FeaturesConfig{
			EnableREST:      getEnvBool("LINEAGE_ENABLE_REST", true),
			EnableWebSocket: getEnvBool("LINEAGE_ENABLE_WEBSOCKET", true),
		},
		Owner: OwnerConfig{
			OwnerName: getEnv("LINEAGE_OWNER_NAME", ""),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
// If the environment variable exists but cannot be parsed as a boolean,
// it returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
