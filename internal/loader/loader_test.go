package loader_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"octocart/internal/loader"
	"octocart/internal/logging"
	"octocart/internal/services"
	"octocart/internal/stego"
	"octocart/internal/testsupport"
)

func writeCart(t *testing.T, body string, sizes ...int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.gif")
	testsupport.WriteGIF(t, path, testsupport.NewCart([]byte(body), sizes...))
	return path
}

func TestLoadFileParsesCart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cache := testsupport.MustOpenCache(t, cfg)
	l := loader.New(cfg, cache, logging.NewNop())
	path := writeCart(t, testsupport.MinimalCartJSON, 100, 400, 2000)

	result, err := l.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if result.Cart == nil {
		t.Fatal("expected parsed cart")
	}
	if result.Cart.Program != ": main\n  loop again" {
		t.Fatalf("unexpected program: %q", result.Cart.Program)
	}
	if result.Cart.Options.TickRate != 7 {
		t.Fatalf("unexpected tickrate: %d", result.Cart.Options.TickRate)
	}
	if result.Declared != uint32(len(testsupport.MinimalCartJSON)) {
		t.Fatalf("unexpected declared length: %d", result.Declared)
	}
	if result.Frames != 3 {
		t.Fatalf("unexpected frame count: got %d want 3", result.Frames)
	}
	if result.FromCache {
		t.Fatal("first load must not come from cache")
	}
	if result.Source != path {
		t.Fatalf("unexpected source: %q", result.Source)
	}
	if len(result.Hash) != 40 {
		t.Fatalf("expected sha1 hex hash, got %q", result.Hash)
	}
}

func TestSecondLoadHitsCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cache := testsupport.MustOpenCache(t, cfg)
	l := loader.New(cfg, cache, logging.NewNop())
	path := writeCart(t, testsupport.MinimalCartJSON)

	first, err := l.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := l.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if !second.FromCache {
		t.Fatal("expected cache hit on second load")
	}
	if second.Hash != first.Hash || !bytes.Equal(second.Body, first.Body) {
		t.Fatal("cached result differs from decoded result")
	}
	if second.Frames != first.Frames || second.Declared != first.Declared {
		t.Fatalf("cached metadata differs: %+v vs %+v", second, first)
	}

	entry, ok, err := cache.Lookup(context.Background(), first.Hash)
	if err != nil || !ok {
		t.Fatalf("expected cache entry, ok=%v err=%v", ok, err)
	}
	if entry.Path != path {
		t.Fatalf("unexpected cached path: %q", entry.Path)
	}
}

func TestCacheDisabledNeverStores(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheDisabled())
	cache := testsupport.MustOpenCache(t, cfg)
	l := loader.New(cfg, cache, nil)
	path := writeCart(t, testsupport.MinimalCartJSON)

	for i := 0; i < 2; i++ {
		result, err := l.LoadFile(context.Background(), path)
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if result.FromCache {
			t.Fatal("cache disabled; result must be decoded")
		}
	}
	stats, err := cache.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("expected empty cache, got %d entries", stats.Entries)
	}
}

func TestTruncatedBodyIsReturnedButNotCached(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutParse())
	cache := testsupport.MustOpenCache(t, cfg)
	l := loader.New(cfg, cache, logging.NewNop())

	container := testsupport.NewCart([]byte(`{"program":"x"}`))
	container.Frames[0].Pixels = container.Frames[0].Pixels[:20]
	path := filepath.Join(t.TempDir(), "short.gif")
	testsupport.WriteGIF(t, path, container)

	result, err := l.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if !result.Truncated {
		t.Fatal("expected truncated result")
	}
	if result.Text() != `{"prog` {
		t.Fatalf("unexpected partial body: %q", result.Text())
	}
	if result.Cart != nil {
		t.Fatal("parse disabled; cart must be nil")
	}
	if _, ok, _ := cache.Lookup(context.Background(), result.Hash); ok {
		t.Fatal("truncated body must not be cached")
	}
}

func TestStrictRejectsTruncated(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStrictDecode())
	l := loader.New(cfg, nil, logging.NewNop())

	container := testsupport.NewCart([]byte(`{"program":"x"}`))
	container.Frames[0].Pixels = container.Frames[0].Pixels[:20]
	data, err := testsupport.EncodeGIF(container)
	if err != nil {
		t.Fatalf("encode gif: %v", err)
	}

	_, err = l.LoadReader(context.Background(), bytes.NewReader(data))
	if !errors.Is(err, services.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestParseFailureIsPayloadError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheDisabled())
	l := loader.New(cfg, nil, logging.NewNop())
	path := writeCart(t, `{"program":": main"}`)

	_, err := l.LoadFile(context.Background(), path)
	if !errors.Is(err, services.ErrPayload) {
		t.Fatalf("expected ErrPayload, got %v", err)
	}
}

func TestLoadReaderRawBody(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutParse())
	l := loader.New(cfg, nil, logging.NewNop())
	data, err := testsupport.EncodeGIF(testsupport.NewCart([]byte(`{"a":10} `)))
	if err != nil {
		t.Fatalf("encode gif: %v", err)
	}

	result, err := l.LoadReader(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("LoadReader returned error: %v", err)
	}
	if result.Text() != `{"a":10} ` {
		t.Fatalf("unexpected body: %q", result.Text())
	}
	if result.Source != "" {
		t.Fatalf("reader loads have no source, got %q", result.Source)
	}
}

func TestLoadFileErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := loader.New(cfg, nil, logging.NewNop())

	_, err := l.LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.gif"))
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO for missing file, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}

	notGIF := filepath.Join(t.TempDir(), "cart.gif")
	testsupport.WriteFile(t, notGIF, []byte("definitely not a gif"))
	_, err = l.LoadFile(context.Background(), notGIF)
	if !errors.Is(err, services.ErrContainer) {
		t.Fatalf("expected ErrContainer, got %v", err)
	}

	if _, err := l.LoadReader(context.Background(), nil); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO for nil reader, got %v", err)
	}
}

func TestLoadFollowsFrameLocalPalette(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheDisabled(), testsupport.WithoutParse())
	l := loader.New(cfg, nil, logging.NewNop())

	global := testsupport.NybblePalette()
	local := testsupport.InvertedPalette()
	body := "frame1|frame2"
	first := testsupport.EncodeBytes(testsupport.Payload([]byte(body)), global)
	first = first[:stego.HeaderPixels+len("frame1|")*2]
	second := testsupport.EncodeBytes([]byte("frame2"), local)
	container := &stego.SliceContainer{Global: global, Frames: []stego.Frame{
		{Pixels: first},
		{Pixels: second, Palette: local},
	}}
	data, err := testsupport.EncodeGIF(container)
	if err != nil {
		t.Fatalf("encode gif: %v", err)
	}

	var hashes []string
	for i := 0; i < 2; i++ {
		result, err := l.LoadReader(context.Background(), bytes.NewReader(data))
		if err != nil {
			t.Fatalf("LoadReader returned error: %v", err)
		}
		if result.Text() != body {
			t.Fatalf("unexpected body: got %q want %q", result.Text(), body)
		}
		hashes = append(hashes, result.Hash)
	}
	if hashes[0] != hashes[1] {
		t.Fatalf("hash is not deterministic: %v", hashes)
	}
}
