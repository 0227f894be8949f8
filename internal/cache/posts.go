// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// postListPrefix namespaces post listing entries so creating a post can
// invalidate every cached page in one call.
const postListPrefix = "posts:list:"

// PostListCache fronts the published post listing with a byte cache. Values
// are the serialized JSON responses; the store stays the source of truth and
// cache failures degrade to a direct query.
type PostListCache struct {
	cache Cache
}

// NewPostListCache wraps a cache backend for post listings.
func NewPostListCache(c Cache) *PostListCache {
	return &PostListCache{cache: c}
}

// Key builds the cache key for one listing page. Every filter dimension is
// part of the key so differently filtered listings never share an entry;
// published is the raw query value ("", "true" or "false").
func (p *PostListCache) Key(published string, authorID, categoryID int64, tagSlug string, limit, offset int64) string {
	return fmt.Sprintf("%spub=%s:author=%d:cat=%d:tag=%s:limit=%d:offset=%d",
		postListPrefix, published, authorID, categoryID, tagSlug, limit, offset)
}

// Get returns the cached response body for a key, or nil on a miss.
func (p *PostListCache) Get(ctx context.Context, key string) []byte {
	body, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			slog.Warn("post list cache read failed", "error", err)
		}
		return nil
	}
	return body
}

// Set stores a response body under a key with the backend's default TTL.
func (p *PostListCache) Set(ctx context.Context, key string, body []byte) {
	if err := p.cache.Set(ctx, key, body, 0); err != nil {
		slog.Warn("post list cache write failed", "error", err)
	}
}

// Invalidate drops every cached listing page. Called after a post is created.
func (p *PostListCache) Invalidate(ctx context.Context) {
	if err := p.cache.DeleteByPrefix(ctx, postListPrefix); err != nil {
		slog.Warn("post list cache invalidation failed", "error", err)
	}
}
