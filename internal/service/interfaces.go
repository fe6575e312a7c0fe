// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/deedscan/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	CreateTransactions(ctx context.Context, transactions []model.Transaction) ([]model.Transaction, error)
	GetTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
	SearchTransactions(ctx context.Context, query string) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	CountTransactions(ctx context.Context) (int, error)
	DeleteAllTransactions(ctx context.Context) (int64, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// CacheStats describes the result cache.
type CacheStats struct {
	Oldest  *time.Time
	Newest  *time.Time
	Entries int
	Expired int
	Records int
}

// CachedResult is a cached extraction keyed by a document's content hash.
type CachedResult struct {
	CreatedAt time.Time
	Hash      string
	Label     string
	Records   []model.ExtractedRecord
	Pages     int
}

// ResultCache stores extraction results by content hash so identical
// documents skip extraction.
type ResultCache interface {
	GetCachedResult(ctx context.Context, hash string) (*CachedResult, bool, error)
	SetCachedResult(ctx context.Context, result CachedResult) error
	CacheStats(ctx context.Context) (CacheStats, error)
	ClearCache(ctx context.Context) (int64, error)
}

// Store is a Storage that also caches extraction results.
type Store interface {
	Storage
	ResultCache
}
