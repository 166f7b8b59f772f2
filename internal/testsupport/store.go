package testsupport

import (
	"context"
	"testing"

	"octocart/internal/cartcache"
	"octocart/internal/config"
	"octocart/internal/logging"
)

// MustOpenCache opens the cache configured in cfg and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *cartcache.Cache {
	t.Helper()

	cache, err := cartcache.Open(context.Background(), cfg.Cache.Path, logging.NewNop())
	if err != nil {
		t.Fatalf("cartcache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}
