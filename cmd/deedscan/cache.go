package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/deedscan/internal/cli"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the extraction result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.CacheStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to read cache stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Extraction cache"))
			fmt.Fprintf(out, "  Entries:  %d (%d expired)\n", stats.Entries, stats.Expired)
			fmt.Fprintf(out, "  Records:  %d\n", stats.Records)
			fmt.Fprintf(out, "  TTL:      %s\n", cfg.Cache.TTL)
			if stats.Oldest != nil {
				fmt.Fprintf(out, "  Oldest:   %s\n", stats.Oldest.Local().Format(time.DateTime))
			}
			if stats.Newest != nil {
				fmt.Fprintf(out, "  Newest:   %s\n", stats.Newest.Local().Format(time.DateTime))
			}
			if !cfg.Cache.Enabled {
				fmt.Fprintln(out, cli.WarningStyle.Render("  Caching is disabled (cache.enabled=false)"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached extraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.ClearCache(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Cleared %d cached results.", n)))
			return nil
		},
	})

	return cmd
}
