// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DataDir   string          `yaml:"data_dir"` // Base directory for cache.db (always absolute after Load)
	LogLevel  string          `yaml:"log_level"`
	Port      int             `yaml:"port"`
	DevMode   bool            `yaml:"dev_mode"`
	RedisAddr string          `yaml:"redis_addr"` // Empty = SQLite cache storage
	Market    MarketConfig    `yaml:"market"`
	Cache     CacheConfig     `yaml:"cache"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// MarketConfig holds upstream market-data provider settings
type MarketConfig struct {
	BaseURL         string        `yaml:"base_url"`
	CoinsPerPage    int           `yaml:"coins_per_page"`
	TotalPages      int           `yaml:"total_pages"`
	PaginationDelay time.Duration `yaml:"pagination_delay"` // Pause between page requests
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
}

// CacheConfig holds cache store settings
type CacheConfig struct {
	MarketTTL       time.Duration `yaml:"market_ttl"` // crypto_ namespace
	MockTTL         time.Duration `yaml:"mock_ttl"`   // stocks_ and steam_ namespaces
	CleanupSchedule string        `yaml:"cleanup_schedule"`
}

// DashboardConfig holds controller and refresh settings
type DashboardConfig struct {
	UpdateInterval time.Duration `yaml:"update_interval"`
	ChartDays      int           `yaml:"chart_days"`
	EnableCharts   bool          `yaml:"enable_charts"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"` // Pause between chart requests
	PreviewBaseURL string        `yaml:"preview_base_url"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		DataDir:  "./data",
		LogLevel: "info",
		Port:     8001,
		Market: MarketConfig{
			BaseURL:         "https://api.coingecko.com/api/v3",
			CoinsPerPage:    100,
			TotalPages:      1,
			PaginationDelay: 1500 * time.Millisecond,
			HTTPTimeout:     10 * time.Second,
		},
		Cache: CacheConfig{
			MarketTTL:       60 * time.Second,
			MockTTL:         10 * time.Minute,
			CleanupSchedule: "@every 10m",
		},
		Dashboard: DashboardConfig{
			UpdateInterval: 60 * time.Second,
			ChartDays:      30,
			EnableCharts:   false, // Charts cost one upstream call per visible asset
			RateLimitDelay: 3 * time.Second,
			PreviewBaseURL: "https://adiru3.github.io/Crypto-Tracker/preview.html",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and environment variables.
// Precedence (lowest to highest): defaults, MARKETBOARD_CONFIG file, environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("MARKETBOARD_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	cfg.DataDir = absDataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile overlays values from a YAML file onto the current config
func (c *Config) loadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnv overrides values with environment variables that are set
func (c *Config) applyEnv() {
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Port = getEnvAsInt("PORT", c.Port)
	c.DevMode = getEnvAsBool("DEV_MODE", c.DevMode)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)

	c.Market.BaseURL = getEnv("COINGECKO_BASE_URL", c.Market.BaseURL)
	c.Market.CoinsPerPage = getEnvAsInt("COINS_PER_PAGE", c.Market.CoinsPerPage)
	c.Market.TotalPages = getEnvAsInt("TOTAL_PAGES", c.Market.TotalPages)
	c.Market.PaginationDelay = getEnvAsDuration("PAGINATION_DELAY", c.Market.PaginationDelay)
	c.Market.HTTPTimeout = getEnvAsDuration("HTTP_TIMEOUT", c.Market.HTTPTimeout)

	c.Cache.MarketTTL = getEnvAsDuration("CACHE_TTL", c.Cache.MarketTTL)
	c.Cache.MockTTL = getEnvAsDuration("MOCK_CACHE_TTL", c.Cache.MockTTL)
	c.Cache.CleanupSchedule = getEnv("CACHE_CLEANUP_SCHEDULE", c.Cache.CleanupSchedule)

	c.Dashboard.UpdateInterval = getEnvAsDuration("UPDATE_INTERVAL", c.Dashboard.UpdateInterval)
	c.Dashboard.ChartDays = getEnvAsInt("CHART_DAYS", c.Dashboard.ChartDays)
	c.Dashboard.EnableCharts = getEnvAsBool("ENABLE_CHARTS", c.Dashboard.EnableCharts)
	c.Dashboard.RateLimitDelay = getEnvAsDuration("RATE_LIMIT_DELAY", c.Dashboard.RateLimitDelay)
	c.Dashboard.PreviewBaseURL = getEnv("PREVIEW_BASE_URL", c.Dashboard.PreviewBaseURL)
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Market.BaseURL == "" {
		return fmt.Errorf("market base URL is required")
	}
	if c.Market.CoinsPerPage <= 0 {
		return fmt.Errorf("coins per page must be positive, got %d", c.Market.CoinsPerPage)
	}
	if c.Market.TotalPages <= 0 {
		return fmt.Errorf("total pages must be positive, got %d", c.Market.TotalPages)
	}
	if c.Cache.MarketTTL <= 0 || c.Cache.MockTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Dashboard.UpdateInterval <= 0 {
		return fmt.Errorf("update interval must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("1.5s") or plain milliseconds ("1500")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
