package database

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// erDupEntry is MySQL's ER_DUP_ENTRY error number
const erDupEntry = 1062

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string {
	return "mysql"
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// DSN makes sure DATETIME columns scan into time.Time
func (d *MySQLDialect) DSN(config DialectConfig) string {
	if strings.Contains(config.URL, "parseTime=") {
		return config.URL
	}
	if strings.Contains(config.URL, "?") {
		return config.URL + "&parseTime=true"
	}
	return config.URL + "?parseTime=true"
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	// MySQL uses ? placeholders like SQLite, no rewrite needed
	return query
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	// Configure connection pool for MySQL
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	return nil
}

func (d *MySQLDialect) MigrationsSubdir() string {
	return "mysql"
}

func (d *MySQLDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
		);
	`
}

// UpsertAttemptQuery relies on MySQL evaluating SET assignments left to
// right: solved is read before anything else touches it.
func (d *MySQLDialect) UpsertAttemptQuery() string {
	return `
		INSERT INTO user_challenge_progress
			(user_id, challenge_id, solved, attempts, last_attempted_at, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			solved = (solved OR VALUES(solved)),
			attempts = attempts + 1,
			last_attempted_at = VALUES(last_attempted_at),
			updated_at = VALUES(updated_at)
	`
}

func (d *MySQLDialect) ReplaceProgressQuery() string {
	return `
		INSERT INTO user_challenge_progress
			(user_id, challenge_id, solved, attempts, last_attempted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			solved = VALUES(solved),
			attempts = VALUES(attempts),
			last_attempted_at = VALUES(last_attempted_at),
			updated_at = VALUES(updated_at)
	`
}

func (d *MySQLDialect) UpsertUserQuery() string {
	return "INSERT INTO users (id, username, created_at) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE username = VALUES(username)"
}

func (d *MySQLDialect) IsUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	return mysqlErr.Number == erDupEntry
}
