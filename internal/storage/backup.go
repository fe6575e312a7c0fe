package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrBackupUnsupported is returned when the driver has no file to snapshot.
var ErrBackupUnsupported = errors.New("backup is only supported for sqlite databases")

// BackupInfo describes a database snapshot.
type BackupInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	Path          string         `json:"path"`
	Size          int64          `json:"size_bytes"`
	SchemaVersion int            `json:"schema_version"`
}

// Backup writes a consistent copy of the SQLite database to destPath and a
// metadata file next to it.
func (s *SQLStorage) Backup(ctx context.Context, destPath string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if s.dialect.name != DriverSQLite {
		return nil, ErrBackupUnsupported
	}

	destPath, err := filepath.Abs(destPath)
	if err != nil {
		return nil, fmt.Errorf("invalid destination path: %w", err)
	}
	if strings.ContainsAny(destPath, `'";`) {
		return nil, fmt.Errorf("invalid destination path: contains forbidden characters")
	}
	if _, err := os.Stat(destPath); err == nil {
		return nil, fmt.Errorf("destination %s already exists", destPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	// #nosec G201 - destPath is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	if err := verifyIntegrity(ctx, destPath); err != nil {
		_ = os.Remove(destPath)
		return nil, err
	}

	info := &BackupInfo{
		CreatedAt: s.now(),
		Path:      destPath,
	}
	if info.RowCounts, err = s.rowCounts(ctx); err != nil {
		return nil, err
	}
	if info.SchemaVersion, err = s.SchemaVersion(ctx); err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	if stat, err := os.Stat(destPath); err == nil {
		info.Size = stat.Size()
	}

	if err := saveMetadata(destPath+".json", info); err != nil {
		slog.Warn("Failed to write backup metadata", "path", destPath, "error", err)
	}

	slog.Info("Database backed up", "path", destPath, "size", info.Size)
	return info, nil
}

func (s *SQLStorage) rowCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 2)
	for _, table := range []string{"transactions", "extraction_cache"} {
		var count int
		// #nosec G202 - table names are constants
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}

func verifyIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func saveMetadata(path string, info *BackupInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
