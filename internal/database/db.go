package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cipherquest/internal/config"
)

// DB wraps the database connection with dialect support
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Initialize creates and configures a SQLite database at dbPath
func Initialize(dbPath string) (*DB, error) {
	return Open(NewSQLiteDialect(), DialectConfig{Path: dbPath})
}

// InitializeWithConfig creates and configures the database connection based on config
func InitializeWithConfig(cfg *config.Config) (*DB, error) {
	dialect, dialectConfig, err := DialectFor(cfg.DatabaseType, cfg.DatabasePath, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return Open(dialect, dialectConfig)
}

// DialectFor maps a DB_TYPE value to its dialect and connection settings
func DialectFor(dbType, path, url string) (Dialect, DialectConfig, error) {
	switch strings.ToLower(dbType) {
	case "postgres", "postgresql":
		return NewPostgresDialect(), DialectConfig{URL: url}, nil
	case "mysql":
		return NewMySQLDialect(), DialectConfig{URL: url}, nil
	case "sqlite", "sqlite3", "":
		return NewSQLiteDialect(), DialectConfig{Path: path}, nil
	case "sqlite-purego", "modernc":
		return NewPureGoSQLiteDialect(), DialectConfig{Path: path}, nil
	default:
		return nil, DialectConfig{}, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// Open connects with the given dialect, verifies the connection and applies
// dialect-specific pool settings
func Open(dialect Dialect, dialectConfig DialectConfig) (*DB, error) {
	db, err := sql.Open(dialect.DriverName(), dialect.DSN(dialectConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply dialect-specific configuration
	if err := dialect.ConfigureConnection(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// QueryContext executes a query with automatic placeholder rewriting
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// QueryRowContext executes a query that returns a single row with automatic placeholder rewriting
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Dialect.RewriteQuery(query), args...)
}

// ExecContext executes a query that doesn't return rows with automatic placeholder rewriting
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Dialect.RewriteQuery(query), args...)
}
