// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
)

// Config holds the service configuration
type Config struct {
	Port     string
	DataDir  string
	LogLevel string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitPerMin         int
	SnapshotRateLimitPerMin int

	CacheTTL time.Duration

	IPHashSalt string

	CORSOrigins   []string
	EnableSwagger bool
	EnableAdmin   bool
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		DataDir:       getEnvOrDefault("DATA_DIR", "./data"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		IPHashSalt:    os.Getenv("IP_HASH_SALT"),
		CORSOrigins:   splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.RedisDB, err = getIntEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin, err = getIntEnv("RATE_LIMIT_PER_MIN", 60); err != nil {
		return nil, err
	}
	if cfg.SnapshotRateLimitPerMin, err = getIntEnv("SNAPSHOT_RATE_LIMIT_PER_MIN", 10); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDurationEnv("CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.EnableSwagger, err = getBoolEnv("ENABLE_SWAGGER", true); err != nil {
		return nil, err
	}
	if cfg.EnableAdmin, err = getBoolEnv("ENABLE_ADMIN", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return apperrors.NewConfigurationError(fmt.Sprintf("PORT must be 1-65535, got %q", c.Port), err)
	}
	if c.DataDir == "" {
		return apperrors.NewConfigurationError("DATA_DIR must not be empty", nil)
	}
	if c.RedisDB < 0 {
		return apperrors.NewConfigurationError("REDIS_DB must not be negative", nil)
	}
	if c.RateLimitPerMin < 0 || c.SnapshotRateLimitPerMin < 0 {
		return apperrors.NewConfigurationError("rate limits must not be negative", nil)
	}
	if c.CacheTTL <= 0 {
		return apperrors.NewConfigurationError("CACHE_TTL must be positive", nil)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.NewConfigurationError(fmt.Sprintf("%s must be an integer, got %q", key, raw), err)
	}
	return v, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.NewConfigurationError(fmt.Sprintf("%s must be a duration, got %q", key, raw), err)
	}
	return v, nil
}

func getBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, apperrors.NewConfigurationError(fmt.Sprintf("%s must be a boolean, got %q", key, raw), err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
