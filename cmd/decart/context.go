package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"octocart/internal/cartcache"
	"octocart/internal/config"
	"octocart/internal/loader"
	"octocart/internal/logging"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := strings.TrimSpace(c.flags.logFormat); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// logger builds the command logger. Callers must invoke the returned close
// function once the command is done logging.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, func() error, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	return logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cmd.ErrOrStderr(),
		LogFile: cfg.LogFile(),
	})
}

func (c *commandContext) openCache(cmd *cobra.Command, logger *slog.Logger) (*cartcache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return cartcache.Open(commandCtx(cmd), cfg.Cache.Path, logger)
}

type loadOptions struct {
	strict  bool
	noCache bool
	// parse forces document parsing and raw skips it; otherwise
	// decode.parse decides.
	parse bool
	raw   bool
}

// withLoader builds a loader for one command invocation and releases the
// cache afterwards.
func (c *commandContext) withLoader(cmd *cobra.Command, opts loadOptions, fn func(*loader.Loader) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := c.logger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	run := *cfg
	run.Decode.Strict = run.Decode.Strict || opts.strict
	switch {
	case opts.parse:
		run.Decode.Parse = true
	case opts.raw:
		run.Decode.Parse = false
	}
	if opts.noCache {
		run.Cache.Enabled = false
	}

	var cache *cartcache.Cache
	if run.Cache.Enabled {
		cache, err = c.openCache(cmd, logger)
		if err != nil {
			logging.WarnWithContext(logger, "decode cache unavailable", "cache_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run 'decart config validate' to inspect the cache path"),
				logging.String(logging.FieldImpact, "cartridges are decoded without caching"))
			cache = nil
		} else {
			defer cache.Close()
		}
	}
	return fn(loader.New(&run, cache, logger))
}

func (c *commandContext) load(cmd *cobra.Command, target string, opts loadOptions) (*loader.Result, error) {
	var result *loader.Result
	err := c.withLoader(cmd, opts, func(l *loader.Loader) error {
		var err error
		if target == "-" {
			result, err = l.LoadReader(commandCtx(cmd), cmd.InOrStdin())
		} else {
			result, err = l.LoadFile(commandCtx(cmd), target)
		}
		return err
	})
	return result, err
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
