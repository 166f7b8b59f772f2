package cartcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"octocart/internal/logging"
	"octocart/internal/services"
)

// Entry is one cached decode.
type Entry struct {
	Hash      string    `json:"hash"`
	Path      string    `json:"path,omitempty"`
	Declared  uint32    `json:"declared"`
	Frames    int       `json:"frames"`
	Truncated bool      `json:"truncated"`
	Size      int       `json:"size"`
	DecodedAt time.Time `json:"decoded_at"`
	// Body is only populated by Lookup.
	Body []byte `json:"-"`
}

// Stats summarizes cache contents.
type Stats struct {
	Path        string `json:"path"`
	Entries     int    `json:"entries"`
	BodyBytes   int64  `json:"body_bytes"`
	StoredBytes int64  `json:"stored_bytes"`
}

// ErrTruncatedEntry is returned by Store for partial bodies.
var ErrTruncatedEntry = errors.New("truncated bodies are not cached")

// Cache manages decoded cartridge persistence backed by SQLite.
type Cache struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// fixed width so decoded_at sorts lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Open initializes or connects to the cache database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Cache, error) {
	ctx = ensureContext(ctx)
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cartcache", "open", "cache path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrCache, "cartcache", "open", "create cache directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrCache, "cartcache", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrCache, "cartcache", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		// empty bodies still need a frame; body_zstd is NOT NULL
		zstd.WithZeroFrames(true))
	if err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrCache, "cartcache", "open", "create zstd encoder", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, services.Wrap(services.ErrCache, "cartcache", "open", "create zstd decoder", err)
	}

	cache := &Cache{
		db:     db,
		path:   path,
		logger: logging.NewComponentLogger(logger, "cartcache"),
		enc:    enc,
		dec:    dec,
	}
	if err := cache.initSchema(ctx); err != nil {
		_ = cache.Close()
		return nil, services.Wrap(services.ErrCache, "cartcache", "open", "initialize schema", err)
	}
	cache.logger.Debug("cache opened", logging.String("path", path))
	return cache, nil
}

// Path returns the database location.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Close releases the database and codec resources.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	if c.dec != nil {
		c.dec.Close()
	}
	var err error
	if c.enc != nil {
		err = c.enc.Close()
	}
	if c.db != nil {
		if closeErr := c.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// Lookup returns the entry for hash with its body decompressed.
func (c *Cache) Lookup(ctx context.Context, hash string) (Entry, bool, error) {
	ctx = ensureContext(ctx)
	hash = normalizeHash(hash)
	if hash == "" {
		return Entry{}, false, nil
	}

	row := c.db.QueryRowContext(ctx, `SELECT hash, path, declared, frames, truncated, body_size, decoded_at, body_zstd
FROM decoded_carts WHERE hash = ?`, hash)

	var (
		entry      Entry
		truncated  int
		decodedAt  string
		compressed []byte
	)
	err := row.Scan(&entry.Hash, &entry.Path, &entry.Declared, &entry.Frames, &truncated, &entry.Size, &decodedAt, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, services.Wrap(services.ErrCache, "cartcache", "lookup", "query entry", err)
	}
	entry.Truncated = truncated != 0
	entry.DecodedAt = parseTime(decodedAt)

	body, err := c.dec.DecodeAll(compressed, make([]byte, 0, entry.Size))
	if err != nil {
		return Entry{}, false, services.Wrap(services.ErrCache, "cartcache", "lookup", "decompress body "+hash, err)
	}
	if len(body) != entry.Size {
		return Entry{}, false, services.Wrap(services.ErrCache, "cartcache", "lookup",
			fmt.Sprintf("body size mismatch for %s: stored %d, decoded %d", hash, entry.Size, len(body)), nil)
	}
	entry.Body = body
	return entry, true, nil
}

// Store records a complete decode. Existing entries for the same hash are
// replaced. Truncated entries are rejected with ErrTruncatedEntry.
func (c *Cache) Store(ctx context.Context, entry Entry) error {
	ctx = ensureContext(ctx)
	entry.Hash = normalizeHash(entry.Hash)
	if entry.Hash == "" {
		return services.Wrap(services.ErrCache, "cartcache", "store", "entry hash is empty", nil)
	}
	if entry.Truncated {
		return ErrTruncatedEntry
	}
	if entry.DecodedAt.IsZero() {
		entry.DecodedAt = time.Now()
	}

	compressed := c.enc.EncodeAll(entry.Body, make([]byte, 0, len(entry.Body)/2+16))
	err := c.execWithRetry(ctx, `INSERT INTO decoded_carts (hash, path, declared, frames, truncated, body_size, body_zstd, decoded_at)
VALUES (?, ?, ?, ?, 0, ?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET
    path = excluded.path,
    declared = excluded.declared,
    frames = excluded.frames,
    truncated = excluded.truncated,
    body_size = excluded.body_size,
    body_zstd = excluded.body_zstd,
    decoded_at = excluded.decoded_at`,
		entry.Hash, entry.Path, entry.Declared, entry.Frames, len(entry.Body), compressed, formatTime(entry.DecodedAt))
	if err != nil {
		return services.Wrap(services.ErrCache, "cartcache", "store", "insert entry "+entry.Hash, err)
	}
	c.logger.Debug("cache entry stored",
		logging.String(logging.FieldHash, entry.Hash),
		logging.Int("body_bytes", len(entry.Body)),
		logging.Int("stored_bytes", len(compressed)))
	return nil
}

// List returns all entries, newest first, without bodies.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := c.db.QueryContext(ctx, `SELECT hash, path, declared, frames, truncated, body_size, decoded_at
FROM decoded_carts ORDER BY decoded_at DESC, hash`)
	if err != nil {
		return nil, services.Wrap(services.ErrCache, "cartcache", "list", "query entries", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			truncated int
			decodedAt string
		)
		if err := rows.Scan(&entry.Hash, &entry.Path, &entry.Declared, &entry.Frames, &truncated, &entry.Size, &decodedAt); err != nil {
			return nil, services.Wrap(services.ErrCache, "cartcache", "list", "scan entry", err)
		}
		entry.Truncated = truncated != 0
		entry.DecodedAt = parseTime(decodedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrCache, "cartcache", "list", "iterate entries", err)
	}
	return entries, nil
}

// Remove deletes the entry for hash and reports whether it existed.
func (c *Cache) Remove(ctx context.Context, hash string) (bool, error) {
	ctx = ensureContext(ctx)
	hash = normalizeHash(hash)
	if hash == "" {
		return false, nil
	}
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := c.db.ExecContext(ctx, "DELETE FROM decoded_carts WHERE hash = ?", hash)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, services.Wrap(services.ErrCache, "cartcache", "remove", "delete entry "+hash, err)
	}
	return affected > 0, nil
}

// Clear deletes every entry and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := c.db.ExecContext(ctx, "DELETE FROM decoded_carts")
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, services.Wrap(services.ErrCache, "cartcache", "clear", "delete entries", err)
	}
	c.logger.Info("cache cleared", logging.Int64("removed", affected))
	return affected, nil
}

// Stats reports entry counts and byte totals.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{Path: c.path}
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1), COALESCE(SUM(body_size), 0), COALESCE(SUM(LENGTH(body_zstd)), 0) FROM decoded_carts",
	).Scan(&stats.Entries, &stats.BodyBytes, &stats.StoredBytes)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrCache, "cartcache", "stats", "aggregate entries", err)
	}
	return stats, nil
}

func (c *Cache) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx, query, args...)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
