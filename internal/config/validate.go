package config

import (
	"fmt"
	"slices"
	"strings"
)

var (
	logFormats     = []string{"console", "json"}
	logLevels      = []string{"debug", "info", "warn", "error"}
	optionsFormats = []string{"json", "toml", "octorc"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if !slices.Contains(optionsFormats, c.Output.OptionsFormat) {
		return fmt.Errorf("output.options_format must be one of %s, got %q", strings.Join(optionsFormats, ", "), c.Output.OptionsFormat)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %s, got %q", strings.Join(logFormats, ", "), c.Logging.Format)
	}
	if !slices.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %s, got %q", strings.Join(logLevels, ", "), c.Logging.Level)
	}
	if c.Logging.File && strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir must be set when logging.file is true")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return fmt.Errorf("cache.path must be set when cache.enabled is true")
	}
	return nil
}
