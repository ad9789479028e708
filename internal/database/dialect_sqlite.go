package database

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite using the cgo driver
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// DSN sets the pragmas on every pooled connection. A PRAGMA issued through
// db.Exec would only reach a single connection. _txlock=immediate makes
// BEGIN take the write lock so read-back inside an upsert transaction is
// serialized with other writers.
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	params := "_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_txlock=immediate"
	if strings.Contains(config.Path, "?") {
		return config.Path + "&" + params
	}
	return "file:" + config.Path + "?" + params
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// SQLite only has one writer; extra connections just queue on busy_timeout
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)
	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *SQLiteDialect) UpsertAttemptQuery() string {
	return onConflictUpsertAttempt
}

func (d *SQLiteDialect) ReplaceProgressQuery() string {
	return onConflictReplaceProgress
}

func (d *SQLiteDialect) UpsertUserQuery() string {
	return onConflictUpsertUser
}

func (d *SQLiteDialect) IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
