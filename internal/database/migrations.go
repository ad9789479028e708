package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
)

//go:embed migrations
var migrationFiles embed.FS

// RunMigrations executes the embedded SQL migrations for the active dialect
// that have not been recorded in the migrations table yet
func (db *DB) RunMigrations(ctx context.Context) error {
	// Create migrations table if it doesn't exist
	if _, err := db.ExecContext(ctx, db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	dir := path.Join("migrations", db.Dialect.MigrationsSubdir())
	files, err := fs.Glob(migrationFiles, path.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	// Sort files to ensure they run in order
	sort.Strings(files)

	for _, file := range files {
		filename := path.Base(file)

		hasRun, err := db.hasMigrationRun(ctx, filename)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if hasRun {
			continue
		}

		content, err := migrationFiles.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		if err := db.executeMigration(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO migrations (filename) VALUES (?)", filename); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		log.Printf("Migration completed: %s", filename)
	}

	return nil
}

// hasMigrationRun checks if a migration has already been executed
func (db *DB) hasMigrationRun(ctx context.Context, filename string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", filename).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// executeMigration runs the statements of a migration one at a time so that
// drivers without multi-statement support (mysql) behave like the others
func (db *DB) executeMigration(ctx context.Context, content string) error {
	for _, stmt := range splitStatements(content) {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements drops full-line comments and splits a migration on
// semicolons. Migrations must not contain semicolons in literals.
func splitStatements(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
