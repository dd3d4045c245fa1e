package postgres

import (
	"context"
	"fmt"
	"time"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"
)

// SwipeRepository handles database operations for swipes
type SwipeRepository struct {
	db DBTX
}

// GetByUserAndProposal looks a swipe up by its composite key
func (r *SwipeRepository) GetByUserAndProposal(ctx context.Context, userID, proposalID string) (*models.Swipe, error) {
	query := `
		SELECT id, user_id, proposal_id, direction, created_at
		FROM swipes
		WHERE user_id = $1 AND proposal_id = $2
	`
	var swipe models.Swipe
	err := r.db.QueryRow(ctx, query, userID, proposalID).Scan(
		&swipe.ID, &swipe.UserID, &swipe.ProposalID, &swipe.Direction, &swipe.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "swipe")
	}
	return &swipe, nil
}

// Create inserts a new swipe
func (r *SwipeRepository) Create(ctx context.Context, swipe *models.Swipe) error {
	query := `
		INSERT INTO swipes (id, user_id, proposal_id, direction, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, swipe.ID, swipe.UserID, swipe.ProposalID, swipe.Direction, swipe.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create swipe: %w", err)
	}
	return nil
}

// UpdateDirection overwrites the direction of an existing swipe
func (r *SwipeRepository) UpdateDirection(ctx context.Context, id string, direction models.Direction, at time.Time) error {
	result, err := r.db.Exec(ctx, `UPDATE swipes SET direction = $1, created_at = $2 WHERE id = $3`, direction, at, id)
	if err != nil {
		return fmt.Errorf("failed to update swipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("swipe: %w", repository.ErrNotFound)
	}
	return nil
}
