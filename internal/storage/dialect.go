package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// dialect captures the SQL differences between SQLite and PostgreSQL.
type dialect struct {
	name        string
	like        string
	serialKey   string
	timestamp   string
	placeholder func(n int) string
	version     func(ctx context.Context, q queryable) (int, error)
	setVersion  func(ctx context.Context, tx *sql.Tx, v int) error
}

// queryable is satisfied by *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var sqliteDialect = dialect{
	name:        DriverSQLite,
	like:        "LIKE",
	serialKey:   "INTEGER PRIMARY KEY AUTOINCREMENT",
	timestamp:   "DATETIME",
	placeholder: func(int) string { return "?" },
	version: func(ctx context.Context, q queryable) (int, error) {
		var v int
		err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
		return v, err
	},
	setVersion: func(ctx context.Context, tx *sql.Tx, v int) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v))
		return err
	},
}

var postgresDialect = dialect{
	name:        DriverPostgres,
	like:        "ILIKE",
	serialKey:   "BIGSERIAL PRIMARY KEY",
	timestamp:   "TIMESTAMPTZ",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	version: func(ctx context.Context, q queryable) (int, error) {
		if _, err := q.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`); err != nil {
			return 0, err
		}
		var v int
		err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
		return v, err
	},
	setVersion: func(ctx context.Context, tx *sql.Tx, v int) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, v)
		return err
	},
}

// rebind rewrites ? placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if d.placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ddl fills the dialect-specific type tokens of a schema statement.
func (d dialect) ddl(stmt string) string {
	return strings.NewReplacer(
		"{{serial}}", d.serialKey,
		"{{timestamp}}", d.timestamp,
	).Replace(stmt)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
