package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// Name identifies the dialect in logs and errors
	Name() string
	// DriverName returns the driver name for sql.Open
	DriverName() string
	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string
	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string
	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error
	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string
	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string
	// UpsertAttemptQuery returns an INSERT that records one attempt for a
	// (user_id, challenge_id) pair. Arguments, in order: user_id,
	// challenge_id, solved, last_attempted_at, created_at, updated_at.
	// On conflict the existing row gets attempts+1 and solved OR'ed in.
	UpsertAttemptQuery() string
	// ReplaceProgressQuery returns an INSERT that overwrites every column of
	// an existing progress row. Arguments, in order: user_id, challenge_id,
	// solved, attempts, last_attempted_at, created_at, updated_at.
	ReplaceProgressQuery() string
	// UpsertUserQuery returns an INSERT that creates a user or renames it.
	// Arguments: id, username, created_at.
	UpsertUserQuery() string
	// IsUniqueViolation reports whether err is a primary key or unique
	// constraint violation raised by this dialect's driver
	IsUniqueViolation(err error) bool
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string
	// For PostgreSQL/MySQL
	URL string
}

// placeholderRegexp matches ? placeholders not inside quotes
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// onConflictUpsertAttempt is shared by dialects that support
// INSERT ... ON CONFLICT (SQLite >= 3.24 and PostgreSQL).
const onConflictUpsertAttempt = `
	INSERT INTO user_challenge_progress
		(user_id, challenge_id, solved, attempts, last_attempted_at, created_at, updated_at)
	VALUES (?, ?, ?, 1, ?, ?, ?)
	ON CONFLICT (user_id, challenge_id) DO UPDATE SET
		attempts = user_challenge_progress.attempts + 1,
		solved = (user_challenge_progress.solved OR excluded.solved),
		last_attempted_at = excluded.last_attempted_at,
		updated_at = excluded.updated_at
`

const onConflictReplaceProgress = `
	INSERT INTO user_challenge_progress
		(user_id, challenge_id, solved, attempts, last_attempted_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, challenge_id) DO UPDATE SET
		solved = excluded.solved,
		attempts = excluded.attempts,
		last_attempted_at = excluded.last_attempted_at,
		updated_at = excluded.updated_at
`

const onConflictUpsertUser = `
	INSERT INTO users (id, username, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET username = excluded.username
`
