package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"winnow/internal/tagcache"
)

type cacheEntryRow struct {
	Fingerprint string    `json:"fingerprint"`
	FileName    string    `json:"file_name"`
	Path        string    `json:"path"`
	Tags        []string  `json:"tags"`
	TaggedAt    time.Time `json:"tagged_at"`
	Tagger      string    `json:"tagger,omitempty"`
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the tag cache",
	}
	cmd.AddCommand(newCacheListCommand(ctx))
	cmd.AddCommand(newCacheClearCommand(ctx))
	cmd.AddCommand(newCachePathCommand(ctx))
	return cmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached tagging results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cache := tagcache.New(cfg.Paths.CachePath, ctx.quietLogger())
			entries := cache.Entries()

			if jsonOutput {
				rows := make([]cacheEntryRow, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, cacheEntryRow{
						Fingerprint: string(entry.Fingerprint),
						FileName:    entry.FileName,
						Path:        entry.Path,
						Tags:        entry.TranslatedTags,
						TaggedAt:    entry.TaggedAt,
						Tagger:      entry.Tagger,
					})
				}
				return writeJSON(cmd, rows)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty.")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Fingerprint.Short(),
					entry.FileName,
					joinTags(entry.TranslatedTags, 5),
					entry.TaggedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Fingerprint", "File", "Tags", "Tagged"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "%d cached records.\n", len(entries))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached record so images are re-tagged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cache := tagcache.New(cfg.Paths.CachePath, ctx.quietLogger())
			count := cache.Count()
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached records.\n", count)
			return nil
		},
	}
}

func newCachePathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Paths.CachePath)
			return nil
		},
	}
}
