package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mmenanno/inventory-browser/internal/constants"
)

// Config represents the application configuration
type Config struct {
	Port              int           `yaml:"port" json:"port" env:"PORT"`
	StoreBackend      string        `yaml:"store_backend" json:"store_backend" env:"STORE_BACKEND"`
	DataPath          string        `yaml:"data_path" json:"data_path" env:"DATA_PATH"`
	DatabasePath      string        `yaml:"database_path" json:"database_path" env:"DATABASE_PATH"`
	CORSAllowedOrigin string        `yaml:"cors_allowed_origin" json:"cors_allowed_origin" env:"CORS_ALLOWED_ORIGIN"`
	StatsCacheTTL     time.Duration `yaml:"stats_cache_ttl" json:"stats_cache_ttl" env:"STATS_CACHE_TTL"`
	WatchDataFile     bool          `yaml:"watch_data_file" json:"watch_data_file" env:"WATCH_DATA_FILE"`

	// Rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps" json:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" json:"rate_limit_burst" env:"RATE_LIMIT_BURST"`

	// Database connection pool settings (sqlite backend only)
	DBMaxOpenConns    int           `yaml:"db_max_open_conns" json:"db_max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `yaml:"db_max_idle_conns" json:"db_max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `yaml:"db_conn_max_lifetime" json:"db_conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
}

// EnvPrefix is prepended to every environment override
const EnvPrefix = "INVENTORY_"

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Port:              constants.DefaultPort,
		StoreBackend:      constants.BackendJSON,
		DataPath:          "data/items.json",
		DatabasePath:      "data/items.db",
		CORSAllowedOrigin: "http://localhost:3000",
		StatsCacheTTL:     constants.DefaultStatsCacheTTLSeconds * time.Second,
		WatchDataFile:     true,
		RateLimitRPS:      constants.DefaultRequestsPerSecond,
		RateLimitBurst:    constants.DefaultBurstSize,
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    2,
		DBConnMaxLifetime: 5 * time.Minute,
	}
}

// Load loads configuration from a YAML file, then applies INVENTORY_*
// environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults are used when the file doesn't exist
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	switch c.StoreBackend {
	case constants.BackendJSON:
		if c.DataPath == "" {
			return fmt.Errorf("data_path is required for the json backend")
		}
	case constants.BackendSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("database_path is required for the sqlite backend")
		}
		if c.DBMaxOpenConns < 1 {
			return fmt.Errorf("db_max_open_conns must be at least 1")
		}
		if c.DBMaxIdleConns < 0 {
			return fmt.Errorf("db_max_idle_conns cannot be negative")
		}
	default:
		return fmt.Errorf("store_backend must be %q or %q (got: %q)", constants.BackendJSON, constants.BackendSQLite, c.StoreBackend)
	}

	if c.StatsCacheTTL < 0 {
		return fmt.Errorf("stats_cache_ttl cannot be negative")
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps cannot be negative")
	}

	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("rate_limit_burst must be at least 1 when rate limiting is enabled")
	}

	// Validate CORS origin if provided
	if c.CORSAllowedOrigin != "" && c.CORSAllowedOrigin != "*" {
		// Basic validation: should start with http:// or https://
		if !strings.HasPrefix(c.CORSAllowedOrigin, "http://") && !strings.HasPrefix(c.CORSAllowedOrigin, "https://") {
			return fmt.Errorf("cors_allowed_origin must start with http:// or https:// (or be * for all origins)")
		}
	}

	if strings.Contains(c.DataPath, "\x00") || strings.Contains(c.DatabasePath, "\x00") {
		return fmt.Errorf("paths cannot contain null bytes")
	}

	return nil
}
