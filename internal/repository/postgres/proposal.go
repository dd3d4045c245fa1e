package postgres

import (
	"context"
	"fmt"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"

	"github.com/jackc/pgx/v5"
)

// ProposalRepository handles database operations for proposals
type ProposalRepository struct {
	db DBTX
}

const proposalColumns = `id, title, description, category, image_keys, location, url, price, created_by, couple_id, is_active, created_at`

func scanProposal(row interface{ Scan(...any) error }) (*models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Category, &p.ImageKeys, &p.Location, &p.URL,
		&p.Price, &p.CreatedBy, &p.CoupleID, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProposals(rows pgx.Rows) ([]*models.Proposal, error) {
	defer rows.Close()

	var proposals []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proposals: %w", err)
	}
	return proposals, nil
}

// Create creates a new proposal
func (r *ProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	query := `
		INSERT INTO proposals (` + proposalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.Category, p.ImageKeys, p.Location, p.URL,
		p.Price, p.CreatedBy, p.CoupleID, p.IsActive, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	return nil
}

// GetByID retrieves a proposal by ID
func (r *ProposalRepository) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	p, err := scanProposal(r.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "proposal")
	}
	return p, nil
}

// ListSwipeable retrieves active proposals the user has not swiped yet
func (r *ProposalRepository) ListSwipeable(ctx context.Context, userID string, coupleID *string, limit int) ([]*models.Proposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM proposals p
		WHERE p.is_active
		  AND (p.couple_id IS NULL OR p.couple_id = $2)
		  AND NOT EXISTS (
			SELECT 1 FROM swipes s WHERE s.user_id = $1 AND s.proposal_id = p.id
		  )
		ORDER BY p.created_at DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, userID, coupleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list swipeable proposals: %w", err)
	}
	return collectProposals(rows)
}

// ListByCouple retrieves every proposal authored within a couple
func (r *ProposalRepository) ListByCouple(ctx context.Context, coupleID string) ([]*models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE couple_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list couple proposals: %w", err)
	}
	return collectProposals(rows)
}

// Deactivate soft-deletes a proposal
func (r *ProposalRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `UPDATE proposals SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate proposal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("proposal: %w", repository.ErrNotFound)
	}
	return nil
}
