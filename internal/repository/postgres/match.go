package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"

	"github.com/jackc/pgx/v5"
)

// MatchRepository handles database operations for matches
type MatchRepository struct {
	db DBTX
}

const matchColumns = `id, couple_id, proposal_id, status, matched_at, scheduled_date, partner_selected_dates, notes`

func scanMatch(row interface{ Scan(...any) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID, &m.CoupleID, &m.ProposalID, &m.Status, &m.MatchedAt,
		&m.ScheduledDate, &m.PartnerSelectedDates, &m.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateIfAbsent inserts a match keyed by (couple_id, proposal_id) in a
// single statement; a concurrent insert for the same key loses and reads
// the winner back.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, bool, error) {
	query := `
		INSERT INTO matches (id, couple_id, proposal_id, status, matched_at, scheduled_date, partner_selected_dates, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (couple_id, proposal_id) DO NOTHING
		RETURNING ` + matchColumns
	created, err := scanMatch(r.db.QueryRow(ctx, query,
		match.ID, match.CoupleID, match.ProposalID, match.Status, match.MatchedAt,
		match.ScheduledDate, match.PartnerSelectedDates, match.Notes,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create match: %w", err)
	}

	existing, err := r.GetByCoupleAndProposal(ctx, match.CoupleID, match.ProposalID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves a match by ID
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "match")
	}
	return m, nil
}

// GetByCoupleAndProposal retrieves the match for a couple and proposal
func (r *MatchRepository) GetByCoupleAndProposal(ctx context.Context, coupleID, proposalID string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE couple_id = $1 AND proposal_id = $2`
	m, err := scanMatch(r.db.QueryRow(ctx, query, coupleID, proposalID))
	if err != nil {
		return nil, notFound(err, "match")
	}
	return m, nil
}

// ListByCouple retrieves the matches of a couple, newest first
func (r *MatchRepository) ListByCouple(ctx context.Context, coupleID string) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE couple_id = $1 ORDER BY matched_at DESC`
	rows, err := r.db.Query(ctx, query, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

// UpdateStatus sets the status and, when given, the scheduled date and notes
func (r *MatchRepository) UpdateStatus(ctx context.Context, id string, status models.MatchStatus, scheduledDate *time.Time, notes *string) error {
	query := `
		UPDATE matches
		SET status = $1,
		    scheduled_date = COALESCE($2, scheduled_date),
		    notes = COALESCE($3, notes)
		WHERE id = $4
	`
	result, err := r.db.Exec(ctx, query, status, scheduledDate, notes, id)
	if err != nil {
		return fmt.Errorf("failed to update match status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("match: %w", repository.ErrNotFound)
	}
	return nil
}

// SetPartnerDates replaces the candidate dates selected for a match
func (r *MatchRepository) SetPartnerDates(ctx context.Context, id string, dates []string) error {
	result, err := r.db.Exec(ctx, `UPDATE matches SET partner_selected_dates = $1 WHERE id = $2`, dates, id)
	if err != nil {
		return fmt.Errorf("failed to set partner dates: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("match: %w", repository.ErrNotFound)
	}
	return nil
}
