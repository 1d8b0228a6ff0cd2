// ABOUTME: Test helper that backs a cache.Store with an in-process miniredis.
// ABOUTME: Use NewCache(t) in tests that exercise the cache or the orchestrators.
package testutil

import (
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/intervex/intervex/internal/cache"
)

// NewCache starts a miniredis server and returns a cache.Store wired to it.
// Both are cleaned up via t.Cleanup. The miniredis handle is returned so
// tests can fast-forward TTLs or kill the backend to exercise degradation.
func NewCache(t *testing.T) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewWithClient(rdb, slog.Default())

	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}
