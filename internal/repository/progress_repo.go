package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cipherquest/internal/database"
	"cipherquest/internal/models"
)

// maxCreateRetries bounds how often a lost first-write race is replayed.
// The replay hits the ON CONFLICT branch, so one retry is normally enough.
const maxCreateRetries = 3

const progressColumns = `user_id, challenge_id, solved, attempts, last_attempted_at, created_at, updated_at`

// ProgressRepository persists progress records in the SQL database
type ProgressRepository struct {
	db      *database.DB
	timeout time.Duration
	now     func() time.Time
}

// NewProgressRepository creates a new progress repository. Every call runs
// under timeout; zero disables the implicit deadline.
func NewProgressRepository(db *database.DB, timeout time.Duration) *ProgressRepository {
	return &ProgressRepository{
		db:      db,
		timeout: timeout,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for attempt timestamps
func (r *ProgressRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *ProgressRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// UpsertAttempt records one attempt for (userID, challengeID). The row is
// created with attempts=1 when absent; otherwise attempts is incremented and
// solved is OR'ed with the stored value. The statement and the read-back run
// in one transaction so the returned record reflects this attempt.
func (r *ProgressRepository) UpsertAttempt(ctx context.Context, userID, challengeID string, solved bool) (*models.ProgressRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		record, err := r.upsertOnce(ctx, userID, challengeID, solved)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, ErrConflictOnCreate) {
			return nil, unavailable("failed to upsert attempt", err)
		}
		lastErr = err
	}
	return nil, unavailable("failed to upsert attempt", lastErr)
}

func (r *ProgressRepository) upsertOnce(ctx context.Context, userID, challengeID string, solved bool) (*models.ProgressRecord, error) {
	var record *models.ProgressRecord
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		now := r.now().UTC()
		_, err := tx.ExecContext(ctx, tx.GetDialect().UpsertAttemptQuery(),
			userID, challengeID, solved, now, now, now)
		if err != nil {
			if tx.GetDialect().IsUniqueViolation(err) {
				return ErrConflictOnCreate
			}
			return err
		}

		record, err = getProgress(ctx, tx, userID, challengeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Get retrieves the record for one (user, challenge) pair
func (r *ProgressRepository) Get(ctx context.Context, userID, challengeID string) (*models.ProgressRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	record, err := getProgress(ctx, r.db, userID, challengeID)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, unavailable("failed to get progress", err)
	}
	return record, nil
}

// ListByUser retrieves every record of a user ordered by challenge id
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + progressColumns + `
		FROM user_challenge_progress
		WHERE user_id = ?
		ORDER BY challenge_id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, unavailable("failed to list user progress", err)
	}
	defer rows.Close()

	records, err := scanProgressRows(rows)
	if err != nil {
		return nil, unavailable("failed to list user progress", err)
	}
	return records, nil
}

// ListAll retrieves every record in a single statement, giving the caller
// one consistent snapshot
func (r *ProgressRepository) ListAll(ctx context.Context) ([]models.ProgressRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + progressColumns + `
		FROM user_challenge_progress
		ORDER BY user_id, challenge_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("failed to list progress", err)
	}
	defer rows.Close()

	records, err := scanProgressRows(rows)
	if err != nil {
		return nil, unavailable("failed to list progress", err)
	}
	return records, nil
}

// Restore merges a record from a backup into the store. Attempts take the
// larger count, solved is OR'ed and the latest attempt time is kept.
func (r *ProgressRepository) Restore(ctx context.Context, incoming models.ProgressRecord) (*models.ProgressRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var merged models.ProgressRecord
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		existing, err := getProgress(ctx, tx, incoming.UserID, incoming.ChallengeID)
		switch {
		case errors.Is(err, ErrNotFound):
			merged = incoming
		case err != nil:
			return err
		default:
			merged = existing.Merge(incoming)
		}

		now := r.now().UTC()
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = now
		}
		if merged.UpdatedAt.IsZero() {
			merged.UpdatedAt = now
		}

		_, err = tx.ExecContext(ctx, tx.GetDialect().ReplaceProgressQuery(),
			merged.UserID,
			merged.ChallengeID,
			merged.Solved,
			merged.Attempts,
			nullTime(merged.LastAttemptedAt),
			merged.CreatedAt.UTC(),
			merged.UpdatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return nil, unavailable("failed to restore progress", err)
	}
	return &merged, nil
}

// getProgress reads one row through either the pool or a transaction
func getProgress(ctx context.Context, q database.DBTX, userID, challengeID string) (*models.ProgressRecord, error) {
	query := `SELECT ` + progressColumns + `
		FROM user_challenge_progress
		WHERE user_id = ? AND challenge_id = ?`

	record, err := scanProgress(q.QueryRowContext(ctx, query, userID, challengeID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*models.ProgressRecord, error) {
	record := &models.ProgressRecord{}
	var lastAttemptedAt sql.NullTime

	err := row.Scan(
		&record.UserID,
		&record.ChallengeID,
		&record.Solved,
		&record.Attempts,
		&lastAttemptedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastAttemptedAt.Valid {
		t := lastAttemptedAt.Time.UTC()
		record.LastAttemptedAt = &t
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()

	return record, nil
}

func scanProgressRows(rows *sql.Rows) ([]models.ProgressRecord, error) {
	records := []models.ProgressRecord{}
	for rows.Next() {
		record, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
