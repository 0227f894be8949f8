// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"

	"web3folio/internal/config"
)

// New creates a cache backend from the application configuration. Redis is
// used when a URL is configured, otherwise an in-process memory cache.
func New(cfg *config.Config) Cache {
	ttl := time.Duration(cfg.CacheTTL) * time.Second

	if cfg.UseRedisCache() {
		redisCache, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.CachePrefix, ttl)
		if err == nil {
			slog.Info("cache backend initialized", "backend", "redis")
			return redisCache
		}
		slog.Warn("redis cache unavailable, falling back to memory cache", "error", err)
	}

	slog.Info("cache backend initialized", "backend", "memory")
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      ttl,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
}
