package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/service"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// DefaultCacheTTL is how long cached extraction results stay valid.
const DefaultCacheTTL = 24 * time.Hour

// Config selects and configures the database.
type Config struct {
	Driver   string
	Path     string // SQLite file
	DSN      string // PostgreSQL connection string
	CacheTTL time.Duration
}

// SQLStorage implements service.Store on SQLite or PostgreSQL.
type SQLStorage struct {
	db       *sql.DB
	dialect  dialect
	now      func() time.Time
	cacheTTL time.Duration
}

var _ service.Store = (*SQLStorage)(nil)

// Open connects to the database named by cfg.
func Open(cfg Config) (*SQLStorage, error) {
	var (
		s   *SQLStorage
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "sqlite", "":
		s, err = NewSQLiteStorage(cfg.Path)
	case DriverPostgres, "postgres", "postgresql":
		s, err = NewPostgresStorage(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", common.ErrInvalidConfig, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheTTL > 0 {
		s.cacheTTL = cfg.CacheTTL
	}
	return s, nil
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(DriverSQLite, dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return newSQLStorage(db, sqliteDialect)
}

// NewPostgresStorage creates a storage instance on a PostgreSQL server.
func NewPostgresStorage(dsn string) (*SQLStorage, error) {
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	db, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return newSQLStorage(db, postgresDialect)
}

func newSQLStorage(db *sql.DB, d dialect) (*SQLStorage, error) {
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStorage{
		db:       db,
		dialect:  d,
		cacheTTL: DefaultCacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// Driver returns the database driver name.
func (s *SQLStorage) Driver() string {
	return s.dialect.name
}
