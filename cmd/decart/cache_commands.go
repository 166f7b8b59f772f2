package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"octocart/internal/cartcache"
)

const shortHashLength = 12

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the decode cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

// withCache opens the configured cache for the duration of fn. It works even
// when caching is disabled so stale databases can still be inspected.
func (c *commandContext) withCache(cmd *cobra.Command, fn func(*cartcache.Cache) error) error {
	logger, closeLog, err := c.logger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()
	cache, err := c.openCache(cmd, logger)
	if err != nil {
		return err
	}
	defer cache.Close()
	return fn(cache)
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached cartridges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(cmd, func(cache *cartcache.Cache) error {
				entries, err := cache.List(commandCtx(cmd))
				if err != nil {
					return err
				}
				if jsonOutput {
					if entries == nil {
						entries = []cartcache.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						shortHash(entry.Hash),
						strconv.Itoa(entry.Frames),
						humanize.Bytes(uint64(entry.Size)),
						humanize.Time(entry.DecodedAt),
						entry.Path,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Hash", "Frames", "Size", "Decoded", "Path"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit entries as JSON")
	return cmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show decode cache totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(cmd, func(cache *cartcache.Cache) error {
				stats, err := cache.Stats(commandCtx(cmd))
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, stats.Path, colorize))
				fmt.Fprintln(out, renderStatusLine("Entries", statusInfo, strconv.Itoa(stats.Entries), colorize))
				fmt.Fprintln(out, renderStatusLine("Bodies", statusInfo, humanize.Bytes(uint64(stats.BodyBytes)), colorize))
				fmt.Fprintln(out, renderStatusLine("Stored", statusInfo, humanize.Bytes(uint64(stats.StoredBytes)), colorize))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit totals as JSON")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <hash>",
		Short: "Remove one cached cartridge",
		Long:  "Remove a cached cartridge by its full hash or an unambiguous prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(cmd, func(cache *cartcache.Cache) error {
				hash, err := resolveHash(cmd, cache, args[0])
				if err != nil {
					return err
				}
				removed, err := cache.Remove(commandCtx(cmd), hash)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no cache entry for %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", hash)
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached cartridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(cmd, func(cache *cartcache.Cache) error {
				removed, err := cache.Clear(commandCtx(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries\n", removed)
				return nil
			})
		},
	}
}

// resolveHash expands a hash prefix as shown by `cache list`.
func resolveHash(cmd *cobra.Command, cache *cartcache.Cache, value string) (string, error) {
	prefix := strings.ToLower(strings.TrimSpace(value))
	if prefix == "" {
		return "", fmt.Errorf("hash is required")
	}
	entries, err := cache.List(commandCtx(cmd))
	if err != nil {
		return "", err
	}
	var matches []string
	for _, entry := range entries {
		if entry.Hash == prefix {
			return prefix, nil
		}
		if strings.HasPrefix(entry.Hash, prefix) {
			matches = append(matches, entry.Hash)
		}
	}
	switch len(matches) {
	case 0:
		return prefix, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("hash prefix %q is ambiguous (%d matches)", value, len(matches))
	}
}

func shortHash(hash string) string {
	if len(hash) <= shortHashLength {
		return hash
	}
	return hash[:shortHashLength]
}
