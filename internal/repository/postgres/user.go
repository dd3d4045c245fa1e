package postgres

import (
	"context"
	"fmt"
	"time"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db DBTX
}

const userColumns = `id, display_name, couple_id, anniversary_at, push_token, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.DisplayName, &user.CoupleID, &user.AnniversaryAt, &user.PushToken, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, display_name, couple_id, anniversary_at, push_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.DisplayName, user.CoupleID, user.AnniversaryAt, user.PushToken, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// GetForUpdate retrieves a user and locks its row (FOR UPDATE)
func (r *UserRepository) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// ListByCouple retrieves the members of a couple
func (r *UserRepository) ListByCouple(ctx context.Context, coupleID string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE couple_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list couple members: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// SetCouple sets or clears the couple reference of a user
func (r *UserRepository) SetCouple(ctx context.Context, userID string, coupleID *string) error {
	return r.exec(ctx, `UPDATE users SET couple_id = $1 WHERE id = $2`, "set user couple", coupleID, userID)
}

// SetAnniversary sets the anniversary timestamp of a user
func (r *UserRepository) SetAnniversary(ctx context.Context, userID string, at time.Time) error {
	return r.exec(ctx, `UPDATE users SET anniversary_at = $1 WHERE id = $2`, "set anniversary", at, userID)
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	return r.exec(ctx, `UPDATE users SET push_token = $1 WHERE id = $2`, "update push token", pushToken, userID)
}

func (r *UserRepository) exec(ctx context.Context, query, op string, args ...any) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	return nil
}
