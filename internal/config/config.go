// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache). Disabled falls back to an in-process cache.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	CacheDisabled  bool

	// Cache lifetimes
	StatsTTL      time.Duration
	PostTotalsTTL time.Duration
	DashboardTTL  time.Duration
	PopularTTL    time.Duration
	RankingsTTL   time.Duration
	ListingTTL    time.Duration
	SearchTTL     time.Duration

	// HTTP behaviour
	RequestTimeout  time.Duration
	CORSOrigins     []string
	SearchRateLimit float64 // requests per second per client
	SearchRateBurst int

	// Background jobs
	ReconcileSchedule string
	ReconcileTimeout  time.Duration
}

// LoadDotEnv reads a .env file into the process environment when one exists.
// Variables that are already set are not overwritten.
func LoadDotEnv(path string) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load env file", "path", path, "error", err)
	}
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a value cannot be parsed.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "blogstats"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "blogstats"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
		CacheDisabled:  p.bool("CACHE_DISABLED", false),

		StatsTTL:      p.duration("CACHE_TTL_STATS", 15*time.Minute),
		PostTotalsTTL: p.duration("CACHE_TTL_POST_TOTALS", 30*time.Minute),
		DashboardTTL:  p.duration("CACHE_TTL_DASHBOARD", 15*time.Minute),
		PopularTTL:    p.duration("CACHE_TTL_POPULAR", time.Hour),
		RankingsTTL:   p.duration("CACHE_TTL_RANKINGS", 10*time.Minute),
		ListingTTL:    p.duration("CACHE_TTL_LISTINGS", 5*time.Minute),
		SearchTTL:     p.duration("CACHE_TTL_SEARCH", 5*time.Minute),

		RequestTimeout:  p.duration("REQUEST_TIMEOUT", 10*time.Second),
		CORSOrigins:     splitList(envOrDefault("CORS_ORIGINS", "*")),
		SearchRateLimit: p.float("SEARCH_RATE_LIMIT", 5),
		SearchRateBurst: p.int("SEARCH_RATE_BURST", 10),

		ReconcileSchedule: envOrDefault("RECONCILE_SCHEDULE", "0 3 * * *"),
		ReconcileTimeout:  p.duration("RECONCILE_TIMEOUT", 5*time.Minute),
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}
	if cfg.SearchRateLimit <= 0 || cfg.SearchRateBurst <= 0 {
		return nil, fmt.Errorf("SEARCH_RATE_LIMIT and SEARCH_RATE_BURST must be positive")
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err == nil && d < 0 {
		err = errors.New("must not be negative")
	}
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return d
}

func (p *parser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return f
}

func (p *parser) bool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return b
}
