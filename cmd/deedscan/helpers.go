package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/deedscan/internal/cli"
	"github.com/Veraticus/deedscan/internal/config"
	"github.com/Veraticus/deedscan/internal/engine"
	"github.com/Veraticus/deedscan/internal/extract"
	"github.com/Veraticus/deedscan/internal/ingest"
	"github.com/Veraticus/deedscan/internal/llm"
	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/progress"
	"github.com/Veraticus/deedscan/internal/storage"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLStorage, error) {
	store, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// buildPipeline wires extractor, retrier, scheduler and chunker.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*engine.Pipeline, error) {
	var client llm.Client
	if cfg.HasLLM() {
		c, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
		client = c
	}

	extractor, err := extract.New(cfg.Extractor.Kind, client, logger)
	if err != nil {
		return nil, err
	}

	retrier := extract.NewRetrier(extractor, cfg.Extractor.MaxRetries, logger)
	scheduler := engine.NewScheduler(retrier, cfg.Batch, logger,
		engine.WithProgressRange(cfg.Progress.Lower, cfg.Progress.Upper))

	return engine.NewPipeline(scheduler, cfg.Chunk, logger), nil
}

// buildService returns an ingest service over store and the reporter it
// publishes progress to. The caller closes the reporter.
func buildService(cfg *config.Config, store *storage.SQLStorage, logger *slog.Logger) (*ingest.Service, *progress.Reporter, error) {
	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	reporter := progress.NewReporter(cfg.Progress.TTL, 0)
	opts := []ingest.ServiceOption{ingest.WithReporter(reporter)}
	if cfg.Cache.Enabled {
		opts = append(opts, ingest.WithCache(store))
	}

	source := ingest.NewSource(ingest.WithPDFToText(cfg.PDFToText))
	return ingest.NewService(source, pipeline, store, logger, opts...), reporter, nil
}

func addFilterFlags(cmd *cobra.Command, f *model.TransactionFilter) {
	cmd.Flags().StringVar(&f.BuyerName, "buyer", "", "buyer name contains")
	cmd.Flags().StringVar(&f.SellerName, "seller", "", "seller name contains")
	cmd.Flags().StringVar(&f.HouseNumber, "house", "", "exact house number")
	cmd.Flags().StringVar(&f.SurveyNumber, "survey", "", "exact survey number")
	cmd.Flags().StringVar(&f.DocumentNumber, "document", "", "exact document number")
}

func printTransactions(w io.Writer, txns []model.Transaction) error {
	if len(txns) == 0 {
		_, err := fmt.Fprintln(w, cli.SubtleStyle.Render("No transactions."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	// Styling inside cells would break tabwriter alignment.
	fmt.Fprintln(tw, "ID\tDOCUMENT\tSURVEY\tBUYER\tSELLER\tDATE\tVALUE\tFILE")
	for _, t := range txns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.DocumentNumber, t.SurveyNumber,
			orDash(t.BuyerName), orDash(t.SellerName),
			orDash(t.TransactionDate), orDash(t.TransactionValue), orDash(t.PDFFileName))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, cli.SubtleStyle.Render(fmt.Sprintf("%d transactions", len(txns))))
	return err
}

func printResult(w io.Writer, name string, r *ingest.Result) {
	status := cli.SuccessStyle.Render(cli.SuccessIcon)
	if r.TotalExtracted == 0 || r.TotalFiltered == 0 {
		status = cli.WarningStyle.Render(cli.WarningIcon)
	}
	fmt.Fprintf(w, "%s %s: %s\n", status, name, r.Message)
	fmt.Fprintf(w, "  pages %d, extracted %d, matched %d, saved %d, %s",
		r.TotalPages, r.TotalExtracted, r.TotalFiltered, r.TotalInserted, r.Duration.Round(time.Millisecond))
	if r.Cached {
		fmt.Fprint(w, cli.SubtleStyle.Render(" (cached)"))
	}
	fmt.Fprintln(w)

	if q := r.DataQuality; q != nil && q.Total > 0 {
		fmt.Fprintf(w, "  data quality: %s (%d%% complete)\n", q.Quality, q.Completeness)
		for _, warning := range q.Warnings {
			fmt.Fprintf(w, "  %s\n", cli.FormatWarning(warning))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
