package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/deedscan/internal/cli"
	"github.com/Veraticus/deedscan/internal/model"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn", "tx"},
		Short:   "Query stored transactions",
	}

	cmd.AddCommand(listTransactionsCmd())
	cmd.AddCommand(searchTransactionsCmd())
	cmd.AddCommand(showTransactionCmd())
	cmd.AddCommand(clearTransactionsCmd())

	return cmd
}

func listTransactionsCmd() *cobra.Command {
	var filter model.TransactionFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Example: `  deedscan transactions list --buyer rajesh
  deedscan transactions list --survey 329/1A`,
		Args: cobra.NoArgs,
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

			txns, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}
			return printTransactions(cmd.OutOrStdout(), txns)
		},
	}

	addFilterFlags(cmd, &filter)
	return cmd
}

func searchTransactionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search names, numbers and source files",
		Args:  cobra.ExactArgs(1),
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

			txns, err := store.SearchTransactions(ctx, args[0])
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return printTransactions(cmd.OutOrStdout(), txns)
		},
	}
}

func showTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
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

			t, err := store.GetTransactionByID(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Transaction %d", t.ID)))
			for _, f := range []struct{ label, value string }{
				{"Document", t.DocumentNumber},
				{"Survey", t.SurveyNumber},
				{"Buyer", t.BuyerName},
				{"Buyer (Tamil)", t.BuyerNameNative},
				{"Seller", t.SellerName},
				{"Seller (Tamil)", t.SellerNameNative},
				{"House", t.HouseNumber},
				{"Date", t.TransactionDate},
				{"Value", t.TransactionValue},
				{"District", t.District},
				{"Village", t.Village},
				{"Info", t.AdditionalInfo},
				{"File", t.PDFFileName},
				{"Extracted", t.ExtractedAt.Format("2006-01-02 15:04:05")},
			} {
				fmt.Fprintf(out, "  %-15s %s\n", f.label+":", orDash(f.value))
			}
			return nil
		},
	}
}

func clearTransactionsCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored transaction",
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

			count, err := store.CountTransactions(ctx)
			if err != nil {
				return err
			}
			if count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No transactions to delete."))
				return nil
			}

			if !yes {
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout(),
					fmt.Sprintf("Delete %d transactions?", count))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			deleted, err := store.DeleteAllTransactions(ctx)
			if err != nil {
				return fmt.Errorf("failed to delete transactions: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %d transactions.", deleted)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
