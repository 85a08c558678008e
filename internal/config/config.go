// Package config loads proxy configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all proxy configuration.
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Cache    CacheConfig
	CORS     CORSConfig
	Log      LogConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// UpstreamConfig configures the third-party event API. An empty Token is not
// a load error: the service reports it as a configuration error on first
// use, so health and metrics endpoints stay reachable.
type UpstreamConfig struct {
	BaseURL         string
	OrganizationID  string
	Token           string
	Timeout         time.Duration
	DefaultCurrency string
}

// CacheConfig configures the in-memory month cache.
type CacheConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// CORSConfig configures the CORS middleware for the web frontend.
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from the environment. A .env file is loaded
// first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:         getEnv("UPSTREAM_BASE_URL", "https://www.eventbriteapi.com/v3"),
			OrganizationID:  getEnv("UPSTREAM_ORG_ID", ""),
			Token:           getEnv("UPSTREAM_TOKEN", ""),
			Timeout:         getDurationEnv("UPSTREAM_TIMEOUT", 15*time.Second),
			DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),
		},
		Cache: CacheConfig{
			TTL:           getDurationEnv("CACHE_TTL", 5*time.Minute),
			SweepInterval: getDurationEnv("CACHE_SWEEP_INTERVAL", 10*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", nil),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getBoolEnv("LOG_PRETTY", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
