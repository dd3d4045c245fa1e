package postgres

import (
	"context"
	"fmt"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"
)

// PlanRepository handles database operations for plans.
// candidate_slots is stored as jsonb.
type PlanRepository struct {
	db DBTX
}

const planColumns = `id, couple_id, title, proposal_ids, candidate_slots, final_date, final_time, meeting_place, status, created_by, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }) (*models.Plan, error) {
	var p models.Plan
	err := row.Scan(
		&p.ID, &p.CoupleID, &p.Title, &p.ProposalIDs, &p.CandidateSlots,
		&p.FinalDate, &p.FinalTime, &p.MeetingPlace, &p.Status, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new plan
func (r *PlanRepository) Create(ctx context.Context, p *models.Plan) error {
	query := `
		INSERT INTO plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.CoupleID, p.Title, p.ProposalIDs, p.CandidateSlots,
		p.FinalDate, p.FinalTime, p.MeetingPlace, p.Status, p.CreatedBy,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

// GetByID retrieves a plan by ID
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	p, err := scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "plan")
	}
	return p, nil
}

// ListByCouple retrieves the plans of a couple, newest first
func (r *PlanRepository) ListByCouple(ctx context.Context, coupleID string) ([]*models.Plan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM plans WHERE couple_id = $1 ORDER BY created_at DESC`, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}
	return plans, nil
}

// Update overwrites the mutable fields of a plan
func (r *PlanRepository) Update(ctx context.Context, p *models.Plan) error {
	query := `
		UPDATE plans
		SET title = $1, proposal_ids = $2, candidate_slots = $3, final_date = $4,
		    final_time = $5, meeting_place = $6, status = $7, updated_at = $8
		WHERE id = $9
	`
	result, err := r.db.Exec(ctx, query,
		p.Title, p.ProposalIDs, p.CandidateSlots, p.FinalDate,
		p.FinalTime, p.MeetingPlace, p.Status, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("plan: %w", repository.ErrNotFound)
	}
	return nil
}

// Delete deletes a plan by ID
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("plan: %w", repository.ErrNotFound)
	}
	return nil
}
