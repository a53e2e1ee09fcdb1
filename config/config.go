package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Catalog    CatalogConfig
	Similarity SimilarityConfig
	Gemini     GeminiConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig selects the catalog store
type CatalogConfig struct {
	Type  string `mapstructure:"type"` // "memory", "csv" or "sqlite"
	Path  string `mapstructure:"path"`
	Table string `mapstructure:"table"`
}

// SimilarityConfig holds ranking defaults
type SimilarityConfig struct {
	TopN          int     `mapstructure:"top_n"`
	NearEqualTol  float64 `mapstructure:"near_equal_tol"`
	BatchSnapping bool    `mapstructure:"batch_snapping"`
	QuerySnapping bool    `mapstructure:"query_snapping"`
}

// GeminiConfig holds record fetcher configuration
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds fetched-record cache configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP  int `mapstructure:"per_ip"` // requests per minute per client IP
	Gemini int `mapstructure:"gemini"` // requests per minute to Gemini
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/motospec/")

	v.SetEnvPrefix("MOTOSPEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// GEMINI_API_KEY is the name the key usually has in .env files
	if config.Gemini.APIKey == "" {
		config.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory if present.
// Variables already set in the environment are not overridden.
func loadEnvFile() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	v.SetDefault("catalog.type", "csv")
	v.SetDefault("catalog.path", "Model.csv")
	v.SetDefault("catalog.table", "models")

	v.SetDefault("similarity.top_n", 5)
	v.SetDefault("similarity.near_equal_tol", 0.01)
	v.SetDefault("similarity.batch_snapping", false)
	v.SetDefault("similarity.query_snapping", true)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", "60s")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("ratelimit.per_ip", 120)
	v.SetDefault("ratelimit.gemini", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Catalog.Type {
	case "memory":
	case "csv", "sqlite":
		if config.Catalog.Path == "" {
			return fmt.Errorf("catalog path is required when catalog type is '%s'", config.Catalog.Type)
		}
	default:
		return fmt.Errorf("catalog type must be 'memory', 'csv' or 'sqlite', got: %s", config.Catalog.Type)
	}

	if config.Similarity.TopN < 1 {
		return fmt.Errorf("similarity top_n must be at least 1, got: %d", config.Similarity.TopN)
	}

	if config.Similarity.NearEqualTol <= 0 || config.Similarity.NearEqualTol >= 1 {
		return fmt.Errorf("similarity near_equal_tol must be in (0, 1), got: %g", config.Similarity.NearEqualTol)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	return nil
}
