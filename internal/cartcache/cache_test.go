package cartcache_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"octocart/internal/cartcache"
	"octocart/internal/logging"
	"octocart/internal/services"
)

func openCache(t *testing.T) *cartcache.Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "carts.db")
	cache, err := cartcache.Open(context.Background(), path, logging.NewNop())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestStoreAndLookupRoundTrip(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()
	body := bytes.Repeat([]byte(`{"program":": main loop again"}`), 64)
	decodedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := cache.Store(ctx, cartcache.Entry{
		Hash:      "ABCDEF",
		Path:      "/carts/game.gif",
		Declared:  uint32(len(body)),
		Frames:    3,
		Body:      body,
		DecodedAt: decodedAt,
	})
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	entry, ok, err := cache.Lookup(ctx, "abcdef")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !bytes.Equal(entry.Body, body) {
		t.Fatalf("unexpected body: got %d bytes want %d", len(entry.Body), len(body))
	}
	if entry.Declared != uint32(len(body)) || entry.Frames != 3 || entry.Size != len(body) {
		t.Fatalf("unexpected entry metadata: %+v", entry)
	}
	if entry.Path != "/carts/game.gif" {
		t.Fatalf("unexpected path: %q", entry.Path)
	}
	if !entry.DecodedAt.Equal(decodedAt) {
		t.Fatalf("unexpected decoded_at: got %v want %v", entry.DecodedAt, decodedAt)
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Entries != 1 || stats.BodyBytes != int64(len(body)) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.StoredBytes <= 0 || stats.StoredBytes >= stats.BodyBytes {
		t.Fatalf("expected compressed storage smaller than body, got %+v", stats)
	}
}

func TestLookupMiss(t *testing.T) {
	cache := openCache(t)
	_, ok, err := cache.Lookup(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}
	if _, ok, _ := cache.Lookup(context.Background(), "  "); ok {
		t.Fatal("expected miss for blank hash")
	}
}

func TestEmptyBodyIsCached(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()
	if err := cache.Store(ctx, cartcache.Entry{Hash: "empty", Frames: 1}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	entry, ok, err := cache.Lookup(ctx, "empty")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(entry.Body) != 0 {
		t.Fatalf("expected empty body, got %q", entry.Body)
	}
	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Entries != 1 || stats.StoredBytes == 0 {
		t.Fatalf("expected one stored frame for empty body, got %+v", stats)
	}
}

func TestStoreRejectsTruncated(t *testing.T) {
	cache := openCache(t)
	err := cache.Store(context.Background(), cartcache.Entry{Hash: "partial", Truncated: true, Body: []byte("{")})
	if !errors.Is(err, cartcache.ErrTruncatedEntry) {
		t.Fatalf("expected ErrTruncatedEntry, got %v", err)
	}
	if _, ok, _ := cache.Lookup(context.Background(), "partial"); ok {
		t.Fatal("truncated entry must not be stored")
	}
}

func TestStoreReplacesExisting(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()
	for _, body := range []string{"first", "second"} {
		if err := cache.Store(ctx, cartcache.Entry{Hash: "same", Body: []byte(body)}); err != nil {
			t.Fatalf("Store returned error: %v", err)
		}
	}
	entry, _, err := cache.Lookup(ctx, "same")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if string(entry.Body) != "second" {
		t.Fatalf("unexpected body: got %q want %q", entry.Body, "second")
	}
}

func TestListRemoveClear(t *testing.T) {
	cache := openCache(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, hash := range []string{"aaa", "bbb", "ccc"} {
		entry := cartcache.Entry{Hash: hash, Body: []byte(hash), DecodedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := cache.Store(ctx, entry); err != nil {
			t.Fatalf("Store returned error: %v", err)
		}
	}

	entries, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("unexpected entry count: %d", len(entries))
	}
	if entries[0].Hash != "ccc" || entries[2].Hash != "aaa" {
		t.Fatalf("expected newest first, got %q..%q", entries[0].Hash, entries[2].Hash)
	}
	if entries[0].Body != nil {
		t.Fatal("List must not load bodies")
	}

	removed, err := cache.Remove(ctx, "bbb")
	if err != nil || !removed {
		t.Fatalf("expected removal, got removed=%v err=%v", removed, err)
	}
	removed, err = cache.Remove(ctx, "bbb")
	if err != nil || removed {
		t.Fatalf("expected second removal to be a no-op, got removed=%v err=%v", removed, err)
	}

	cleared, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("unexpected cleared count: got %d want 2", cleared)
	}
	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Entries != 0 || stats.BodyBytes != 0 {
		t.Fatalf("expected empty cache, got %+v", stats)
	}
}

func TestReopenPreservesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carts.db")
	ctx := context.Background()
	cache, err := cartcache.Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := cache.Store(ctx, cartcache.Entry{Hash: "keep", Body: []byte("kept")}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := cartcache.Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	entry, ok, err := reopened.Lookup(ctx, "keep")
	if err != nil || !ok || string(entry.Body) != "kept" {
		t.Fatalf("expected persisted entry, got ok=%v err=%v body=%q", ok, err, entry.Body)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := cartcache.Open(context.Background(), " ", nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
