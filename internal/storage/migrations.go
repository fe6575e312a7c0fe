package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Description string
	Statements  []string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				id {{serial}},
				survey_number TEXT NOT NULL,
				document_number TEXT NOT NULL,
				buyer_name TEXT NOT NULL DEFAULT '',
				buyer_name_native TEXT NOT NULL DEFAULT '',
				seller_name TEXT NOT NULL DEFAULT '',
				seller_name_native TEXT NOT NULL DEFAULT '',
				house_number TEXT NOT NULL DEFAULT '',
				transaction_date TEXT NOT NULL DEFAULT '',
				transaction_value TEXT NOT NULL DEFAULT '',
				district TEXT NOT NULL DEFAULT '',
				village TEXT NOT NULL DEFAULT '',
				additional_info TEXT NOT NULL DEFAULT '',
				pdf_file_name TEXT NOT NULL DEFAULT '',
				extracted_at {{timestamp}} NOT NULL,
				created_at {{timestamp}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_buyer ON transactions(buyer_name)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_seller ON transactions(seller_name)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_house ON transactions(house_number)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_survey ON transactions(survey_number)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_document ON transactions(document_number)`,
		},
	},
	{
		Version:     2,
		Description: "Add extraction result cache",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS extraction_cache (
				hash TEXT PRIMARY KEY,
				label TEXT NOT NULL DEFAULT '',
				records TEXT NOT NULL,
				record_count INTEGER NOT NULL DEFAULT 0,
				pages INTEGER NOT NULL DEFAULT 0,
				created_at {{timestamp}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_extraction_cache_created ON extraction_cache(created_at)`,
		},
	},
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.dialect.version(ctx, s.db)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}
		if err := s.apply(ctx, migration); err != nil {
			return err
		}
		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description,
			"driver", s.dialect.name)
	}

	finalVersion, err := s.dialect.version(ctx, s.db)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

func (s *SQLStorage) apply(ctx context.Context, migration Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range migration.Statements {
		if _, err := tx.ExecContext(ctx, s.dialect.ddl(stmt)); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
	}

	if err := s.dialect.setVersion(ctx, tx, migration.Version); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}
	return nil
}

// SchemaVersion reports the applied schema version.
func (s *SQLStorage) SchemaVersion(ctx context.Context) (int, error) {
	return s.dialect.version(ctx, s.db)
}

var _ queryable = (*sql.DB)(nil)
