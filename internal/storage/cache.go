package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/deedscan/internal/service"
)

// GetCachedResult looks up an extraction by content hash. Expired entries
// are deleted and reported as a miss.
func (s *SQLStorage) GetCachedResult(ctx context.Context, hash string) (*service.CachedResult, bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, false, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, false, err
	}

	var (
		result  service.CachedResult
		payload string
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT hash, label, records, pages, created_at
		FROM extraction_cache WHERE hash = ?
	`), hash).Scan(&result.Hash, &result.Label, &payload, &result.Pages, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if s.expired(result.CreatedAt) {
		if _, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM extraction_cache WHERE hash = ?`), hash); err != nil {
			slog.Warn("Failed to delete expired cache entry", "hash", hash, "error", err)
		}
		return nil, false, nil
	}

	if err := json.Unmarshal([]byte(payload), &result.Records); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached records: %w", err)
	}
	return &result, true, nil
}

// SetCachedResult stores or replaces the entry for result.Hash.
func (s *SQLStorage) SetCachedResult(ctx context.Context, result service.CachedResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(result.Hash, "hash"); err != nil {
		return err
	}

	payload, err := json.Marshal(result.Records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if result.Records == nil {
		payload = []byte("[]")
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO extraction_cache (hash, label, records, record_count, pages, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (hash) DO UPDATE SET
			label = excluded.label,
			records = excluded.records,
			record_count = excluded.record_count,
			pages = excluded.pages,
			created_at = excluded.created_at
	`), result.Hash, result.Label, string(payload), len(result.Records), result.Pages, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// CacheStats summarizes the cache table.
func (s *SQLStorage) CacheStats(ctx context.Context) (service.CacheStats, error) {
	var stats service.CacheStats
	if err := validateContext(ctx); err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT created_at, record_count FROM extraction_cache`)
	if err != nil {
		return stats, fmt.Errorf("failed to query cache: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			createdAt time.Time
			records   int
		)
		if err := rows.Scan(&createdAt, &records); err != nil {
			return stats, fmt.Errorf("failed to scan cache entry: %w", err)
		}

		stats.Entries++
		stats.Records += records
		if s.expired(createdAt) {
			stats.Expired++
		}
		if stats.Oldest == nil || createdAt.Before(*stats.Oldest) {
			stats.Oldest = &createdAt
		}
		if stats.Newest == nil || createdAt.After(*stats.Newest) {
			stats.Newest = &createdAt
		}
	}
	return stats, rows.Err()
}

// ClearCache removes every cache entry.
func (s *SQLStorage) ClearCache(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM extraction_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLStorage) expired(createdAt time.Time) bool {
	return s.now().Sub(createdAt) > s.cacheTTL
}
