package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config holds everything the server needs beyond DATABASE_URL, which
// internal/db reads on its own. Values come from an optional YAML file
// (CONFIG_FILE) with environment variables taking precedence.
type Config struct {
	Port           string   `yaml:"port"`
	Environment    string   `yaml:"environment"`
	LogLevel       string   `yaml:"log_level"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	Auth AuthConfig `yaml:"auth"`
	Feed FeedConfig `yaml:"feed"`
}

// AuthConfig configures bearer-token validation. Tokens are issued by an
// external identity provider; this service only verifies them.
type AuthConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// FeedConfig bounds how fast a single client may submit position reports.
type FeedConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// Load reads CONFIG_FILE (if set) and then applies environment overrides.
//
// Environment variables:
//   - PORT: HTTP listen port (default "5050")
//   - ENVIRONMENT: "development" or "production" (default "development")
//   - LOG_LEVEL: zap level name (default "info")
//   - ALLOWED_ORIGINS: comma-separated CORS allow-list
//   - AUTH_SECRET / AUTH_ISSUER / AUTH_AUDIENCE: bearer-token validation
//   - FEED_RATE_PER_SECOND / FEED_BURST: position-feed rate limit
func Load() (*Config, error) {
	cfg := &Config{
		Port:        "5050",
		Environment: "development",
		LogLevel:    "info",
		Feed: FeedConfig{
			RatePerSecond: 5,
			Burst:         10,
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("AUTH_AUDIENCE"); v != "" {
		cfg.Auth.Audience = v
	}
	if v := os.Getenv("FEED_RATE_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FEED_RATE_PER_SECOND %q: %w", v, err)
		}
		cfg.Feed.RatePerSecond = f
	}
	if v := os.Getenv("FEED_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FEED_BURST %q: %w", v, err)
		}
		cfg.Feed.Burst = n
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail at an awkward time.
func (c *Config) Validate() error {
	if c.Feed.RatePerSecond <= 0 {
		return fmt.Errorf("feed rate must be positive, got %v", c.Feed.RatePerSecond)
	}
	if c.Feed.Burst < 1 {
		return fmt.Errorf("feed burst must be at least 1, got %d", c.Feed.Burst)
	}
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
