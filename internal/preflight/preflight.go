package preflight

import (
	"context"
	"os"

	"octocart/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if cfg.Cache.Enabled {
		results = append(results, CheckCreatableFile("Cache database", cfg.Cache.Path))
		if _, err := os.Stat(cfg.Cache.Path); err == nil {
			results = append(results, CheckCacheSchema(ctx, cfg.Cache.Path))
		}
	}

	if cfg.Logging.File {
		results = append(results, CheckCreatableDirectory("Log directory", cfg.Paths.LogDir))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
