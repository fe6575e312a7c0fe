package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/export"
	"github.com/Veraticus/deedscan/internal/model"
)

// Tab names.
const (
	TransactionsTab = export.SheetName
	SummaryTab      = "Summary"
)

// valueColumn is the index of the Value column in export.Columns.
const valueColumn = 9

// DefaultMaxRetryDelay caps the backoff between API attempts. Rate-limited
// calls wait the full cap.
const DefaultMaxRetryDelay = 30 * time.Second

// Writer exports transactions to a Google spreadsheet.
type Writer struct {
	service  *sheets.Service
	logger   *slog.Logger
	now      func() time.Time
	config   Config
	maxDelay time.Duration
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(srv, config, logger), nil
}

func newWriter(srv *sheets.Service, config Config, logger *slog.Logger) *Writer {
	return &Writer{
		service:  srv,
		config:   config,
		logger:   common.LoggerOrDefault(logger),
		now:      time.Now,
		maxDelay: DefaultMaxRetryDelay,
	}
}

// Write replaces the Transactions and Summary tabs with txns and returns
// the spreadsheet id.
func (w *Writer) Write(ctx context.Context, txns []model.Transaction) (string, error) {
	w.logger.Info("starting sheets export", "transactions", len(txns))

	var (
		spreadsheetID string
		tabs          map[string]int64
	)
	err := w.withRetry(ctx, func() error {
		var err error
		spreadsheetID, tabs, err = w.prepareSpreadsheet(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if err := w.withRetry(ctx, func() error { return w.clearTabs(ctx, spreadsheetID) }); err != nil {
		return "", fmt.Errorf("failed to clear sheet: %w", err)
	}

	rows := make([][]any, 0, len(txns)+1)
	rows = append(rows, export.Headers())
	for _, t := range txns {
		rows = append(rows, export.Row(t))
	}
	if err := w.withRetry(ctx, func() error { return w.writeData(ctx, spreadsheetID, TransactionsTab, rows) }); err != nil {
		return "", fmt.Errorf("failed to write transactions: %w", err)
	}

	summary := Summarize(txns)
	if err := w.withRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, SummaryTab, w.summaryValues(summary))
	}); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	if w.config.EnableFormatting {
		err := w.withRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, tabs, len(rows))
		})
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("sheets export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(rows),
		"districts", len(summary.ByDistrict))

	return spreadsheetID, nil
}

// withRetry runs op with exponential backoff starting at RetryDelay.
// Errors that classify marks permanent end the loop early.
func (w *Writer) withRetry(ctx context.Context, op func() error) error {
	return retry.Do(
		func() error { return classify(op()) },
		retry.Context(ctx),
		retry.Attempts(uint(max(w.config.RetryAttempts, 1))),
		retry.Delay(w.config.RetryDelay),
		retry.MaxDelay(w.maxDelay),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			if errors.Is(err, common.ErrRateLimit) {
				return w.maxDelay
			}
			return retry.BackOffDelay(n, err, config)
		}),
		retry.RetryIf(common.IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			w.logger.Warn("Sheets request failed, retrying",
				"attempt", n+1,
				"max_attempts", w.config.RetryAttempts,
				"error", err)
		}),
	)
}

// classify marks client errors other than 429 as permanent.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return &common.RetryableError{Err: err, Retryable: false}
	default:
		return err
	}
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// prepareSpreadsheet returns the target spreadsheet id and the sheet id of
// each tab, creating the spreadsheet or missing tabs as needed.
func (w *Writer) prepareSpreadsheet(ctx context.Context) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: TransactionsTab}},
				{Properties: &sheets.SheetProperties{Title: SummaryTab}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		// Later attempts and calls reuse it.
		w.config.SpreadsheetID = created.SpreadsheetId
		return created.SpreadsheetId, sheetIDs(created.Sheets), nil
	}

	id := w.config.SpreadsheetID
	existing, err := w.service.Spreadsheets.Get(id).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", id, err)
	}
	tabs := sheetIDs(existing.Sheets)

	var add []*sheets.Request
	for _, title := range []string{TransactionsTab, SummaryTab} {
		if _, ok := tabs[title]; !ok {
			add = append(add, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: title},
				},
			})
		}
	}
	if len(add) == 0 {
		return id, tabs, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: add,
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			tabs[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}
	return id, tabs, nil
}

func sheetIDs(list []*sheets.Sheet) map[string]int64 {
	out := make(map[string]int64, len(list))
	for _, s := range list {
		if s.Properties != nil {
			out[s.Properties.Title] = s.Properties.SheetId
		}
	}
	return out
}

func (w *Writer) clearTabs(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.BatchClear(spreadsheetID, &sheets.BatchClearValuesRequest{
		Ranges: []string{TransactionsTab + "!A:Z", SummaryTab + "!A:Z"},
	}).Context(ctx).Do()
	return err
}

func (w *Writer) summaryValues(s Summary) [][]any {
	values := make([][]any, 0, 8+len(s.ByDistrict))
	values = append(values,
		[]any{"Property Transactions", "Generated " + w.now().UTC().Format("2006-01-02 15:04 MST")},
		[]any{},
		[]any{"Total Transactions", s.Transactions},
		[]any{"With Value", s.Valued},
		[]any{"Total Value", s.TotalValue.String()},
		[]any{},
		[]any{"District", "Transactions", "With Value", "Total Value"},
	)
	for _, d := range s.ByDistrict {
		values = append(values, []any{d.District, d.Transactions, d.Valued, d.TotalValue.String()})
	}
	return values
}

// writeData writes values to tab starting at A1, BatchSize rows per call.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		rangeStr := fmt.Sprintf("%s!A%d", tab, i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{
			Values: values[i:end],
		}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at %s: %w", rangeStr, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", end-i)
	}

	return nil
}

func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, tabs map[string]int64, totalRows int) error {
	txnID := tabs[TransactionsTab]
	sumID := tabs[SummaryTab]
	bold := func(sheetID, row int64, size int64) *sheets.Request {
		return &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:       sheetID,
					StartRowIndex: row,
					EndRowIndex:   row + 1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true, FontSize: size},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		}
	}

	requests := []*sheets.Request{
		bold(txnID, 0, 10),
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          txnID,
					StartRowIndex:    1,
					EndRowIndex:      int64(max(totalRows, 2)),
					StartColumnIndex: valueColumn,
					EndColumnIndex:   valueColumn + 1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "NUMBER",
							Pattern: "#,##0",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    txnID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(len(export.Columns)),
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        txnID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		bold(sumID, 0, 14),
		bold(sumID, 6, 10),
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}
