package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/deedscan/internal/cli"
	"github.com/Veraticus/deedscan/internal/config"
	"github.com/Veraticus/deedscan/internal/export"
	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored transactions",
	}

	cmd.AddCommand(exportXLSXCmd())
	cmd.AddCommand(exportSheetsCmd())

	return cmd
}

func exportXLSXCmd() *cobra.Command {
	var filter model.TransactionFilter

	cmd := &cobra.Command{
		Use:     "xlsx <out.xlsx>",
		Short:   "Write transactions to an Excel workbook",
		Example: `  deedscan export xlsx deeds.xlsx --document 1234/2023`,
		Args:    cobra.ExactArgs(1),
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

			txns, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to load transactions: %w", err)
			}

			outPath := config.ExpandPath(args[0])
			if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			f, err := os.Create(outPath) // #nosec G304
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", outPath, err)
			}

			writeErr := export.NewXLSXWriter(slog.Default()).Write(f, txns)
			closeErr := f.Close()
			if writeErr != nil {
				_ = os.Remove(outPath)
				return fmt.Errorf("failed to write workbook: %w", writeErr)
			}
			if closeErr != nil {
				return closeErr
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Exported %d transactions to %s", len(txns), outPath)))
			return nil
		},
	}

	addFilterFlags(cmd, &filter)
	return cmd
}

func exportSheetsCmd() *cobra.Command {
	var filter model.TransactionFilter

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write transactions to a Google spreadsheet",
		Long: `Replace the Transactions and Summary tabs of the configured spreadsheet.
A new spreadsheet is created when sheets.spreadsheet_id is not set.

Authenticate with a service account (sheets.service_account_path) or run
'deedscan export sheets auth' once to store an OAuth token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sheetsCfg, err := config.LoadSheetsConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("google sheets is not configured: %w", err)
			}

			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			txns, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to load transactions: %w", err)
			}

			writer, err := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
			if err != nil {
				return err
			}
			id, err := writer.Write(ctx, txns)
			if err != nil {
				return fmt.Errorf("sheets export failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Exported %d transactions", len(txns))))
			fmt.Fprintf(cmd.OutOrStdout(), "https://docs.google.com/spreadsheets/d/%s\n", id)
			return nil
		},
	}

	addFilterFlags(cmd, &filter)
	cmd.AddCommand(sheetsAuthCmd())
	return cmd
}

func sheetsAuthCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Sheets access with OAuth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.GetViper()
			clientID := firstSet(v.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
			clientSecret := firstSet(v.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("sheets.client_id and sheets.client_secret are required")
			}

			tokenFile := config.SheetsTokenPath(v)
			_, err := sheets.AuthenticateOAuth2Interactive(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    tokenFile,
				CallbackAddr: addr,
			}, func(url string) {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle("Google Sheets authorization"))
				fmt.Fprintln(cmd.OutOrStdout(), "Open this URL in your browser:")
				fmt.Fprintln(cmd.OutOrStdout(), url)
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Authorized. Token saved to "+tokenFile))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "listen", sheets.DefaultCallbackAddr, "address for the OAuth callback")
	return cmd
}

func firstSet(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
