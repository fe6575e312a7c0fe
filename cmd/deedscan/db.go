package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/deedscan/internal/cli"
	"github.com/Veraticus/deedscan/internal/config"
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	cmd.AddCommand(backupCmd())
	return cmd
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [dest.db]",
		Short: "Write a consistent copy of the SQLite database",
		Long: `Copy the database with VACUUM INTO, verify the copy, and write a JSON
metadata file next to it. Without a destination the backup goes to
~/.local/share/deedscan/backups/deedscan-<timestamp>.db.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			dest := config.ExpandPath(fmt.Sprintf("~/.local/share/deedscan/backups/deedscan-%s.db",
				time.Now().Format("20060102-150405")))
			if len(args) == 1 {
				dest = config.ExpandPath(args[0])
			}

			info, err := store.Backup(ctx, dest)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Backup written to "+info.Path))
			fmt.Fprintf(out, "  Size:            %d bytes\n", info.Size)
			fmt.Fprintf(out, "  Schema version:  %d\n", info.SchemaVersion)
			tables := make([]string, 0, len(info.RowCounts))
			for t := range info.RowCounts {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			for _, t := range tables {
				fmt.Fprintf(out, "  %-16s %d rows\n", t+":", info.RowCounts[t])
			}
			return nil
		},
	}
}
