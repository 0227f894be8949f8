// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment
// variables. It is constructed once at startup and passed by reference;
// business logic never reads the environment directly.
type Config struct {
	DBPath     string `env:"W3F_DB_PATH" envDefault:"./data/web3folio.db"`
	AuthSecret string `env:"W3F_AUTH_SECRET,required"`
	ServerHost string `env:"W3F_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"W3F_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"W3F_ENV" envDefault:"development"`
	LogLevel   string `env:"W3F_LOG_LEVEL" envDefault:"info"`

	// Session token configuration
	TokenLifetimeMinutes int `env:"W3F_TOKEN_LIFETIME_MINUTES" envDefault:"1440"`

	// Cache configuration
	RedisURL     string `env:"W3F_REDIS_URL"`                       // Optional Redis URL for distributed caching
	CachePrefix  string `env:"W3F_CACHE_PREFIX" envDefault:"w3f:"`  // Redis key prefix
	CacheTTL     int    `env:"W3F_CACHE_TTL" envDefault:"60"`       // Post list cache TTL in seconds
	CacheMaxSize int    `env:"W3F_CACHE_MAX_SIZE" envDefault:"1000"`

	// Event log retention, enforced by the background scheduler
	EventRetentionDays int `env:"W3F_EVENT_RETENTION_DAYS" envDefault:"90"`

	// Allowed CORS origins for the JSON API (comma-separated). Defaults to
	// the local Next.js dev server.
	CORSOrigins []string `env:"W3F_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Seeding configuration
	DoSeed bool `env:"W3F_DO_SEED" envDefault:"false"` // Enable development database seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// MinAuthSecretLength is the minimum required length for the token signing
// secret.
const MinAuthSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.AuthSecret) < MinAuthSecretLength {
		return nil, fmt.Errorf("W3F_AUTH_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinAuthSecretLength, len(cfg.AuthSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.AuthSecret == weak {
			return nil, fmt.Errorf("W3F_AUTH_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.AuthSecret) {
		slog.Warn("W3F_AUTH_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
