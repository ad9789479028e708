package database

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// PureGoSQLiteDialect implements Dialect for SQLite using the cgo-free
// modernc.org/sqlite driver. Queries and migrations are shared with
// SQLiteDialect; only the driver and DSN syntax differ.
type PureGoSQLiteDialect struct {
	SQLiteDialect
}

// NewPureGoSQLiteDialect creates a new pure-Go SQLite dialect
func NewPureGoSQLiteDialect() *PureGoSQLiteDialect {
	return &PureGoSQLiteDialect{}
}

func (d *PureGoSQLiteDialect) Name() string {
	return "sqlite-purego"
}

func (d *PureGoSQLiteDialect) DriverName() string {
	return "sqlite"
}

func (d *PureGoSQLiteDialect) DSN(config DialectConfig) string {
	params := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"
	if strings.Contains(config.Path, "?") {
		return config.Path + "&" + params
	}
	return "file:" + config.Path + "?" + params
}

func (d *PureGoSQLiteDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)
	return nil
}

func (d *PureGoSQLiteDialect) IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY ||
		sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}
