package postgres

import (
	"context"
	"fmt"
	"time"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"
)

// CoupleRepository handles database operations for couples
type CoupleRepository struct {
	db DBTX
}

const coupleColumns = `id, invite_code, status, created_at, activated_at`

// Create creates a new couple
func (r *CoupleRepository) Create(ctx context.Context, couple *models.Couple) error {
	query := `
		INSERT INTO couples (id, invite_code, status, created_at, activated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		couple.ID, couple.InviteCode, couple.Status, couple.CreatedAt, couple.ActivatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create couple: %w", err)
	}
	return nil
}

// GetByID retrieves a couple by ID
func (r *CoupleRepository) GetByID(ctx context.Context, id string) (*models.Couple, error) {
	return r.getOne(ctx, `SELECT `+coupleColumns+` FROM couples WHERE id = $1`, id)
}

// GetByInviteCode retrieves a couple by its invite code
func (r *CoupleRepository) GetByInviteCode(ctx context.Context, code string) (*models.Couple, error) {
	return r.getOne(ctx, `SELECT `+coupleColumns+` FROM couples WHERE invite_code = $1`, code)
}

func (r *CoupleRepository) getOne(ctx context.Context, query string, arg string) (*models.Couple, error) {
	var couple models.Couple
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&couple.ID, &couple.InviteCode, &couple.Status, &couple.CreatedAt, &couple.ActivatedAt,
	)
	if err != nil {
		return nil, notFound(err, "couple")
	}
	return &couple, nil
}

// Lock locks the couple row (FOR UPDATE) for the rest of the transaction
func (r *CoupleRepository) Lock(ctx context.Context, id string) error {
	var locked string
	err := r.db.QueryRow(ctx, `SELECT id FROM couples WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		return notFound(err, "couple")
	}
	return nil
}

// InviteCodeExists checks if an invite code is already taken
func (r *CoupleRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM couples WHERE invite_code = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check invite code existence: %w", err)
	}
	return exists, nil
}

// Activate marks a couple active and records the activation time
func (r *CoupleRepository) Activate(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE couples SET status = $1, activated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, models.CoupleStatusActive, at, id)
	if err != nil {
		return fmt.Errorf("failed to activate couple: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("couple: %w", repository.ErrNotFound)
	}
	return nil
}

// SetStatus updates the status of a couple
func (r *CoupleRepository) SetStatus(ctx context.Context, id string, status models.CoupleStatus) error {
	result, err := r.db.Exec(ctx, `UPDATE couples SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update couple status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("couple: %w", repository.ErrNotFound)
	}
	return nil
}

// Delete deletes a couple by ID
func (r *CoupleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM couples WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete couple: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("couple: %w", repository.ErrNotFound)
	}
	return nil
}
