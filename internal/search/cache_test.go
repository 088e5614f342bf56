package search

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewInMemoryCache(2)
	cache.now = func() time.Time { return now }

	t.Run("Set and Get", func(t *testing.T) {
		if err := cache.Set(ctx, "a", "alpha", time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := cache.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != "alpha" {
			t.Errorf("expected alpha, got %s", got)
		}
	})

	t.Run("Cache Miss", func(t *testing.T) {
		if _, err := cache.Get(ctx, "missing"); err != ErrCacheMiss {
			t.Errorf("expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("TTL Expiration", func(t *testing.T) {
		if err := cache.Set(ctx, "ttl", "short", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		now = now.Add(2 * time.Minute)
		if _, err := cache.Get(ctx, "ttl"); err != ErrCacheExpired {
			t.Errorf("expected ErrCacheExpired, got %v", err)
		}
	})

	t.Run("Evicts oldest when full", func(t *testing.T) {
		c := NewInMemoryCache(2)
		clock := now
		c.now = func() time.Time { return clock }
		_ = c.Set(ctx, "first", "1", time.Hour)
		clock = clock.Add(time.Second)
		_ = c.Set(ctx, "second", "2", time.Hour)
		clock = clock.Add(time.Second)
		_ = c.Set(ctx, "third", "3", time.Hour)

		if c.Size() != 2 {
			t.Fatalf("expected size 2, got %d", c.Size())
		}
		if _, err := c.Get(ctx, "first"); err == nil {
			t.Error("expected oldest entry to be evicted")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, "del", "x", time.Hour)
		_ = cache.Delete(ctx, "del")
		if _, err := cache.Get(ctx, "del"); err == nil {
			t.Error("expected miss after delete")
		}
	})
}
