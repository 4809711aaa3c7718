// Package db provides SQL storage for replydesk. SQLite (modernc) is the
// default; PostgreSQL is reached through pgx's database/sql driver.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps a database handle with its dialect.
type DB struct {
	*sql.DB
	driver string
	retry  RetryPolicy
}

// Config selects and locates the database.
type Config struct {
	Driver string
	// Path is the SQLite file, or ":memory:".
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
	// Retry governs RetryTransaction; zero values take the defaults.
	Retry RetryPolicy
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case "", DriverSQLite:
		db, err = openSQLite(ctx, cfg.Path)
	case DriverPostgres:
		db, err = openPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	db.retry = cfg.Retry.normalize()
	return db, nil
}

// OpenInMemory opens a private in-memory SQLite database.
func OpenInMemory(ctx context.Context) (*DB, error) {
	return openSQLite(ctx, ":memory:")
}

func openSQLite(ctx context.Context, path string) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Single writer; an in-memory database also lives on one connection.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}
	return &DB{DB: sqlDB, driver: DriverSQLite, retry: defaultRetryPolicy}, nil
}

func openPostgres(ctx context.Context, dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required for postgres driver")
	}
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{DB: sqlDB, driver: DriverPostgres, retry: defaultRetryPolicy}, nil
}

// Driver reports the dialect in use.
func (db *DB) Driver() string { return db.driver }

// Retryable reports whether err is a transient contention failure for the
// connected dialect: SQLITE_BUSY or SQLITE_LOCKED on SQLite, a serialization
// failure or deadlock on PostgreSQL.
func (db *DB) Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch db.driver {
	case DriverPostgres:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
		}
		return false
	default:
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() & 0xff {
			case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
				return true
			}
			return false
		}
		// Errors raised before reaching the driver, e.g. from a pool wrapper,
		// only carry the message.
		message := strings.ToLower(err.Error())
		return strings.Contains(message, "database is locked") || strings.Contains(message, "database is busy")
	}
}

// Rebind rewrites '?' placeholders for the connected dialect.
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Transaction runs fn inside a transaction, committing on success.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
