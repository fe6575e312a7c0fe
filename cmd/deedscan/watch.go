package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/deedscan/internal/cli"
	"github.com/Veraticus/deedscan/internal/ingest"
	"github.com/Veraticus/deedscan/internal/model"
)

func watchCmd() *cobra.Command {
	var (
		filter model.TransactionFilter
		noScan bool
		noSave bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Extract deeds as they appear in directories",
		Long: `Watch directories recursively and extract every PDF or text file that is
created or rewritten. Files already present are processed first unless
--skip-existing is given. Unchanged files are served from the result cache.`,
		Args: cobra.MinimumNArgs(1),
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

			logger := slog.Default()
			svc, reporter, err := buildService(cfg, store, logger)
			if err != nil {
				return err
			}
			defer reporter.Close()

			files, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
				Roots:       args,
				Debounce:    cfg.Watch.Debounce,
				InitialScan: cfg.Watch.InitialScan && !noScan,
			})
			if err != nil {
				return err
			}

			logger.Info("watching for documents", "dirs", args)
			out := cmd.OutOrStdout()
			for files != nil || errs != nil {
				select {
				case path, ok := <-files:
					if !ok {
						files = nil
						continue
					}
					result, err := svc.IngestFile(ctx, path, ingest.Options{Filter: filter, NoSave: noSave})
					if err != nil {
						logger.Error("extraction failed", "file", path, "error", err)
						fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", cli.ErrorStyle.Render(cli.ErrorIcon), filepath.Base(path), err)
						continue
					}
					printResult(out, filepath.Base(path), result)
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					logger.Warn("watch error", "error", err)
				}
			}

			logger.Info("watch stopped")
			return nil
		},
	}

	addFilterFlags(cmd, &filter)
	cmd.Flags().BoolVar(&noScan, "skip-existing", false, "ignore files already present")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "extract without saving to the database")
	return cmd
}
