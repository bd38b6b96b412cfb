package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
)

// UserRepository persists [models.User] rows. Users are only ever created, never updated.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure creates the user with displayName and no picture if id is not yet stored.
// An existing user is left untouched. The boolean reports whether a row was created.
func (r *UserRepository) Ensure(ctx context.Context, id, displayName string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: empty user id", shared.ErrInvalidArgument)
	}

	query := `
		INSERT INTO users (id, display_name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, id, displayName, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("%w: failed to insert user: %w", shared.ErrStorageUnavailable, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to get affected rows: %w", shared.ErrStorageUnavailable, err)
	}

	return rows == 1, nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, display_name, profile_picture_uri, created_at FROM users WHERE id = ?`

	var (
		user    models.User
		picture sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.DisplayName, &picture, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query user: %w", shared.ErrStorageUnavailable, err)
	}

	user.PictureURI = picture.String
	return &user, nil
}
