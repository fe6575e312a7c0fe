package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/model"
)

const transactionColumns = `id, survey_number, document_number, buyer_name, buyer_name_native,
	seller_name, seller_name_native, house_number, transaction_date, transaction_value,
	district, village, additional_info, pdf_file_name, extracted_at, created_at`

// CreateTransactions inserts transactions in one database transaction and
// returns them with ID and CreatedAt set.
func (s *SQLStorage) CreateTransactions(ctx context.Context, transactions []model.Transaction) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateTransactions(transactions); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	saved, err := s.createTransactionsTx(ctx, tx, transactions)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return saved, nil
}

func (s *SQLStorage) createTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) ([]model.Transaction, error) {
	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
		INSERT INTO transactions (
			survey_number, document_number, buyer_name, buyer_name_native,
			seller_name, seller_name_native, house_number, transaction_date,
			transaction_value, district, village, additional_info,
			pdf_file_name, extracted_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := s.now()
	saved := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		txn.CreatedAt = now
		if txn.ExtractedAt.IsZero() {
			txn.ExtractedAt = now
		}

		err := stmt.QueryRowContext(ctx,
			strings.TrimSpace(txn.SurveyNumber),
			strings.TrimSpace(txn.DocumentNumber),
			txn.BuyerName,
			txn.BuyerNameNative,
			txn.SellerName,
			txn.SellerNameNative,
			txn.HouseNumber,
			txn.TransactionDate,
			txn.TransactionValue,
			txn.District,
			txn.Village,
			txn.AdditionalInfo,
			txn.PDFFileName,
			txn.ExtractedAt.UTC(),
			txn.CreatedAt,
		).Scan(&txn.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction %s: %w", txn.Key(), err)
		}
		saved = append(saved, txn)
	}
	return saved, nil
}

// GetTransactions returns transactions matching filter, newest first.
func (s *SQLStorage) GetTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		conditions []string
		args       []any
	)
	like := func(column, value string) {
		conditions = append(conditions, fmt.Sprintf(`%s %s ? ESCAPE '\'`, column, s.dialect.like))
		args = append(args, containsPattern(value))
	}
	exact := func(column, value string) {
		conditions = append(conditions, column+" = ?")
		args = append(args, value)
	}

	if filter.BuyerName != "" {
		like("buyer_name", filter.BuyerName)
	}
	if filter.SellerName != "" {
		like("seller_name", filter.SellerName)
	}
	if filter.HouseNumber != "" {
		exact("house_number", filter.HouseNumber)
	}
	if filter.SurveyNumber != "" {
		exact("survey_number", filter.SurveyNumber)
	}
	if filter.DocumentNumber != "" {
		exact("document_number", filter.DocumentNumber)
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	return s.queryTransactions(ctx, query, args...)
}

// SearchTransactions matches query as a substring of the name and number
// fields. An empty query returns everything.
func (s *SQLStorage) SearchTransactions(ctx context.Context, query string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return s.GetTransactions(ctx, model.TransactionFilter{})
	}

	columns := []string{"buyer_name", "seller_name", "house_number", "survey_number", "document_number"}
	conditions := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	pattern := containsPattern(strings.TrimSpace(query))
	for _, column := range columns {
		conditions = append(conditions, fmt.Sprintf(`%s %s ? ESCAPE '\'`, column, s.dialect.like))
		args = append(args, pattern)
	}

	return s.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE "+
			strings.Join(conditions, " OR ")+" ORDER BY created_at DESC, id DESC",
		args...)
}

// GetTransactionByID returns one transaction or common.ErrNotFound.
func (s *SQLStorage) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+transactionColumns+" FROM transactions WHERE id = ?"), id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return &txn, nil
}

// CountTransactions returns the number of stored transactions.
func (s *SQLStorage) CountTransactions(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// DeleteAllTransactions removes every transaction and returns how many went.
func (s *SQLStorage) DeleteAllTransactions(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM transactions")
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (model.Transaction, error) {
	var txn model.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.SurveyNumber,
		&txn.DocumentNumber,
		&txn.BuyerName,
		&txn.BuyerNameNative,
		&txn.SellerName,
		&txn.SellerNameNative,
		&txn.HouseNumber,
		&txn.TransactionDate,
		&txn.TransactionValue,
		&txn.District,
		&txn.Village,
		&txn.AdditionalInfo,
		&txn.PDFFileName,
		&txn.ExtractedAt,
		&txn.CreatedAt,
	)
	return txn, err
}
