package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Veraticus/deedscan/internal/cli"
	"github.com/Veraticus/deedscan/internal/ingest"
	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/progress"
	"github.com/Veraticus/deedscan/internal/tui"
	"github.com/Veraticus/deedscan/internal/tui/themes"
)

// Progress display modes.
const (
	progressBar  = "bar"
	progressTUI  = "tui"
	progressNone = "none"
)

func extractCmd() *cobra.Command {
	var (
		filter       model.TransactionFilter
		progressMode string
		theme        string
		noSave       bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file>...",
		Short: "Extract transactions from deed PDFs or text files",
		Long: `Extract every property transaction from each file, transliterate Tamil
names, and save the records. Filters limit which records are kept.`,
		Example: `  # Extract and save everything
  deedscan extract ec-2023.pdf

  # Only keep transactions for one survey number, without saving
  deedscan extract ec-2023.pdf --survey 329/1A --no-save

  # Full-screen progress
  deedscan extract --progress tui *.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch progressMode {
			case progressBar, progressTUI, progressNone:
			default:
				return fmt.Errorf("unknown progress mode %q (bar, tui, none)", progressMode)
			}

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

			out := cmd.OutOrStdout()
			var failed int
			for _, path := range args {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				opts := ingest.Options{
					SessionID: uuid.NewString(),
					Filter:    filter,
					NoSave:    noSave,
				}
				result, err := runIngest(ctx, cmd, svc, reporter, path, opts, progressMode, theme)
				if err != nil {
					failed++
					logger.Error("extraction failed", "file", path, "error", err)
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", cli.ErrorStyle.Render(cli.ErrorIcon), filepath.Base(path), err)
					continue
				}

				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(result); err != nil {
						return err
					}
					continue
				}
				printResult(out, filepath.Base(path), result)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	addFilterFlags(cmd, &filter)
	cmd.Flags().StringVar(&progressMode, "progress", progressBar, "progress display (bar, tui, none)")
	cmd.Flags().StringVar(&theme, "theme", "default", "tui theme (default, catppuccin-mocha)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "extract without saving to the database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, svc *ingest.Service, reporter *progress.Reporter,
	path string, opts ingest.Options, mode, theme string) (*ingest.Result, error) {
	name := filepath.Base(path)

	switch mode {
	case progressTUI:
		return tui.Run(ctx, tui.RunConfig{
			Source:    reporter,
			SessionID: opts.SessionID,
			Output:    cmd.ErrOrStderr(),
			Ingest: func(ctx context.Context, sessionID string) (*ingest.Result, error) {
				opts.SessionID = sessionID
				return svc.IngestFile(ctx, path, opts)
			},
		}, tui.WithTitle(name), tui.WithTheme(themes.GetTheme(theme)))
	case progressBar:
		opts.Sink = progress.NewBarSink(cmd.ErrOrStderr(), name)
	}

	return svc.IngestFile(ctx, path, opts)
}
