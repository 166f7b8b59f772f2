package loader

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"octocart/internal/cartcache"
	"octocart/internal/config"
	"octocart/internal/logging"
	"octocart/internal/octo"
	"octocart/internal/services"
	"octocart/internal/stego"
)

// Result is the outcome of loading one cartridge.
type Result struct {
	Source    string     `json:"source,omitempty"`
	Hash      string     `json:"hash"`
	Declared  uint32     `json:"declared"`
	Frames    int        `json:"frames"`
	Truncated bool       `json:"truncated"`
	FromCache bool       `json:"from_cache"`
	Body      []byte     `json:"-"`
	Cart      *octo.Cart `json:"cart,omitempty"`
}

// Text returns the body with non-ASCII bytes read as Latin-1.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	text, err := octo.Text(r.Body)
	if err != nil {
		return string(r.Body)
	}
	return text
}

// Loader coordinates hashing, caching, decoding and parsing.
type Loader struct {
	cfg    *config.Config
	cache  *cartcache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// New builds a loader. cache may be nil, which disables caching regardless
// of cfg.Cache.Enabled.
func New(cfg *config.Config, cache *cartcache.Cache, logger *slog.Logger) *Loader {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return &Loader{
		cfg:    cfg,
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "loader"),
		now:    time.Now,
	}
}

// LoadFile decodes the cartridge at path. The file is closed before return.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "loader", "open", path, err)
	}
	defer file.Close()

	ctx = services.WithSource(ensureContext(ctx), path)
	return l.load(ctx, file, path)
}

// LoadReader decodes a cartridge from r.
func (l *Loader) LoadReader(ctx context.Context, r io.Reader) (*Result, error) {
	if r == nil {
		return nil, services.Wrap(services.ErrIO, "loader", "read", "nil reader", nil)
	}
	return l.load(ensureContext(ctx), r, "")
}

func (l *Loader) load(ctx context.Context, r io.Reader, source string) (*Result, error) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithOperation(ctx, "load")
	logger := logging.WithContext(ctx, l.logger)
	start := l.now()

	hasher := sha1.New()
	data, err := io.ReadAll(io.TeeReader(r, hasher))
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "loader", "read", source, err)
	}
	hash := hex.EncodeToString(hasher.Sum(nil))
	logger = logger.With(logging.String(logging.FieldHash, hash))

	result, err := l.fromCache(ctx, logger, hash)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result, err = l.decode(ctx, logger, data, hash, source)
		if err != nil {
			logging.ErrorWithContext(logger, "cartridge decode failed", "decode_failed",
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(err)))
			return nil, err
		}
	}
	result.Source = source

	if l.cfg.Decode.Parse {
		cart, err := octo.Parse(result.Body)
		if err != nil {
			logging.ErrorWithContext(logger, "cartridge document invalid", "parse_failed",
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(err)))
			return nil, err
		}
		result.Cart = cart
	}

	logger.Info("cartridge loaded",
		logging.String(logging.FieldEventType, "load_complete"),
		logging.Int("body_bytes", len(result.Body)),
		logging.Int("frames", result.Frames),
		logging.Bool("from_cache", result.FromCache),
		logging.Duration("elapsed", l.now().Sub(start)))
	return result, nil
}

func (l *Loader) fromCache(ctx context.Context, logger *slog.Logger, hash string) (*Result, error) {
	if !l.cachingEnabled() {
		return nil, nil
	}
	entry, ok, err := l.cache.Lookup(ctx, hash)
	if err != nil {
		logging.WarnWithContext(logger, "cache lookup failed", "cache_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'decart cache clear' if this persists"),
			logging.String(logging.FieldImpact, "cartridge decoded from scratch"))
		return nil, nil
	}
	if !ok {
		logger.Debug("cache miss")
		return nil, nil
	}
	logger.Debug("cache hit", logging.String("cached_path", entry.Path))
	return &Result{
		Hash:      hash,
		Declared:  entry.Declared,
		Frames:    entry.Frames,
		Truncated: entry.Truncated,
		FromCache: true,
		Body:      entry.Body,
	}, nil
}

func (l *Loader) decode(ctx context.Context, logger *slog.Logger, data []byte, hash, source string) (*Result, error) {
	decoded, err := stego.DecodeGIF(bytes.NewReader(data), stego.DecodeOptions{Strict: l.cfg.Decode.Strict})
	if err != nil {
		return nil, err
	}
	result := &Result{
		Hash:      hash,
		Declared:  decoded.Declared,
		Frames:    decoded.Frames,
		Truncated: decoded.Truncated,
		Body:      decoded.Body,
	}

	if result.Truncated {
		logging.WarnWithContext(logger, "cartridge payload truncated", "decode_truncated",
			logging.Int64("declared_bytes", int64(result.Declared)),
			logging.Int("decoded_bytes", len(result.Body)),
			logging.String(logging.FieldErrorHint, "re-export the cartridge or decode with --strict to reject it"),
			logging.String(logging.FieldImpact, "program text is incomplete"))
		return result, nil
	}

	if l.cachingEnabled() {
		err := l.cache.Store(ctx, cartcache.Entry{
			Hash:      hash,
			Path:      source,
			Declared:  result.Declared,
			Frames:    result.Frames,
			Body:      result.Body,
			DecodedAt: l.now(),
		})
		if err != nil {
			logging.WarnWithContext(logger, "cache store failed", "cache_store_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next load decodes again"))
		}
	}
	return result, nil
}

func (l *Loader) cachingEnabled() bool {
	return l.cache != nil && l.cfg.Cache.Enabled
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrTruncated):
		return "the cartridge image holds fewer bytes than its header declares"
	case errors.Is(err, services.ErrPalette):
		return "the image palette does not match the pixel indices; the file may not be an Octocart"
	case errors.Is(err, services.ErrContainer):
		return "the file is not a readable GIF"
	case errors.Is(err, services.ErrPayload):
		return "the embedded document is not a valid cartridge; try 'decart decode' for the raw text"
	default:
		return fmt.Sprintf("check the input (%s)", services.Kind(err))
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
