package testsupport

import (
	"path/filepath"
	"testing"

	"octocart/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose writable paths live under a unique temp
// directory per test. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Cache.Path = filepath.Join(base, "cache", "carts.db")
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCacheDisabled turns the decode cache off.
func WithCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
	}
}

// WithStrictDecode enables strict truncation handling.
func WithStrictDecode() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decode.Strict = true
	}
}

// WithoutParse disables cartridge document parsing.
func WithoutParse() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decode.Parse = false
	}
}
