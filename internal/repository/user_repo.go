package repository

import (
	"context"
	"database/sql"
	"time"

	"cipherquest/internal/database"
	"cipherquest/internal/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db      *database.DB
	timeout time.Duration
	now     func() time.Time
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout, now: time.Now}
}

func (r *UserRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// UpsertUser creates a user or renames an existing one. The creation time
// of an existing user is kept.
func (r *UserRepository) UpsertUser(ctx context.Context, id, username string) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user *models.User
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.GetDialect().UpsertUserQuery(), id, username, r.now().UTC()); err != nil {
			return err
		}
		var err error
		user, err = getUser(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, unavailable("failed to upsert user", err)
	}
	return user, nil
}

// GetUser retrieves a user by id
func (r *UserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	user, err := getUser(ctx, r.db, id)
	if err == ErrNotFound {
		return nil, err
	}
	if err != nil {
		return nil, unavailable("failed to get user", err)
	}
	return user, nil
}

// ListUsers retrieves every user ordered by id
func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, username, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, unavailable("failed to list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
			return nil, unavailable("failed to scan user", err)
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to list users", err)
	}
	return users, nil
}

func getUser(ctx context.Context, q database.DBTX, id string) (*models.User, error) {
	user := &models.User{}
	err := q.QueryRowContext(ctx, `SELECT id, username, created_at FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}
