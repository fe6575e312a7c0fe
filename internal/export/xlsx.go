// Package export renders stored transactions as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/model"
)

// SheetName is the worksheet transactions are written to.
const SheetName = "Transactions"

// Column describes one exported column.
type Column struct {
	Value func(model.Transaction) any
	Title string
	Width float64
}

// Columns is the export layout shared by every spreadsheet writer.
var Columns = []Column{
	{Title: "ID", Width: 8, Value: func(t model.Transaction) any { return t.ID }},
	{Title: "Document Number", Width: 18, Value: func(t model.Transaction) any { return t.DocumentNumber }},
	{Title: "Survey Number", Width: 16, Value: func(t model.Transaction) any { return t.SurveyNumber }},
	{Title: "Buyer", Width: 28, Value: func(t model.Transaction) any { return t.BuyerName }},
	{Title: "Buyer (Tamil)", Width: 28, Value: func(t model.Transaction) any { return t.BuyerNameNative }},
	{Title: "Seller", Width: 28, Value: func(t model.Transaction) any { return t.SellerName }},
	{Title: "Seller (Tamil)", Width: 28, Value: func(t model.Transaction) any { return t.SellerNameNative }},
	{Title: "House Number", Width: 14, Value: func(t model.Transaction) any { return t.HouseNumber }},
	{Title: "Date", Width: 12, Value: func(t model.Transaction) any { return t.TransactionDate }},
	{Title: "Value", Width: 16, Value: func(t model.Transaction) any { return t.TransactionValue }},
	{Title: "District", Width: 18, Value: func(t model.Transaction) any { return t.District }},
	{Title: "Village", Width: 18, Value: func(t model.Transaction) any { return t.Village }},
	{Title: "Additional Info", Width: 48, Value: func(t model.Transaction) any { return truncate(t.AdditionalInfo, 500) }},
	{Title: "Source File", Width: 30, Value: func(t model.Transaction) any { return t.PDFFileName }},
	{Title: "Extracted At", Width: 20, Value: func(t model.Transaction) any { return formatTime(t.ExtractedAt) }},
}

// Headers returns the column titles.
func Headers() []any {
	out := make([]any, len(Columns))
	for i, c := range Columns {
		out[i] = c.Title
	}
	return out
}

// Row returns the cell values of txn in column order.
func Row(txn model.Transaction) []any {
	out := make([]any, len(Columns))
	for i, c := range Columns {
		out[i] = c.Value(txn)
	}
	return out
}

// XLSXWriter writes transactions to an Excel workbook.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a workbook writer.
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	return &XLSXWriter{logger: common.LoggerOrDefault(logger)}
}

// Write renders transactions as a single-sheet workbook into w.
func (x *XLSXWriter) Write(w io.Writer, transactions []model.Transaction) error {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := Headers()
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, txn := range transactions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := Row(txn)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i, c := range Columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, c.Width); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if len(transactions) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(Columns), len(transactions)+1)
		if err := f.AutoFilter(SheetName, "A1:"+last, nil); err != nil {
			return fmt.Errorf("auto filter: %w", err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	x.logger.Info("Exported workbook",
		"rows", len(transactions),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
