// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get = %q, want %q", got, "value")
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	defer func() { _ = c.Close() }()

	_, err := c.Get(context.Background(), "absent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("x"), time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after expiry = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheDeleteByPrefix(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "posts:list:1", []byte("a"), 0)
	_ = c.Set(ctx, "posts:list:2", []byte("b"), 0)
	_ = c.Set(ctx, "other", []byte("c"), 0)

	if err := c.DeleteByPrefix(ctx, "posts:list:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	if _, err := c.Get(ctx, "posts:list:1"); !errors.Is(err, ErrCacheMiss) {
		t.Error("posts:list:1 should be gone")
	}
	if _, err := c.Get(ctx, "posts:list:2"); !errors.Is(err, ErrCacheMiss) {
		t.Error("posts:list:2 should be gone")
	}
	if _, err := c.Get(ctx, "other"); err != nil {
		t.Error("other should survive prefix deletion")
	}
}

func TestMemoryCacheGetReturnsCopy(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "key", []byte("value"), 0)

	got, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got[0] = 'X'

	again, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if string(again) != "value" {
		t.Errorf("cached value mutated: %q", again)
	}
}

func TestMemoryCacheClosed(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	_ = c.Close()

	if _, err := c.Get(context.Background(), "key"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get on closed cache = %v, want ErrCacheClosed", err)
	}
	if err := c.Set(context.Background(), "key", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set on closed cache = %v, want ErrCacheClosed", err)
	}
}

func TestMemoryCacheStats(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "key", []byte("value"), 0)
	_, _ = c.Get(ctx, "key")
	_, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Sets != 1 {
		t.Errorf("Sets = %d, want 1", stats.Sets)
	}
	if stats.Items != 1 {
		t.Errorf("Items = %d, want 1", stats.Items)
	}
}

func TestPostListCacheRoundTrip(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	plc := NewPostListCache(c)
	key := plc.Key("true", 0, 0, "defi", 10, 0)

	if other := plc.Key("", 0, 0, "defi", 10, 0); other == key {
		t.Error("expected the published dimension to produce a distinct key")
	}

	if got := plc.Get(ctx, key); got != nil {
		t.Errorf("Get before Set = %q, want nil", got)
	}

	plc.Set(ctx, key, []byte(`{"posts":[]}`))
	if got := plc.Get(ctx, key); string(got) != `{"posts":[]}` {
		t.Errorf("Get = %q", got)
	}

	plc.Invalidate(ctx)
	if got := plc.Get(ctx, key); got != nil {
		t.Errorf("Get after Invalidate = %q, want nil", got)
	}
}
