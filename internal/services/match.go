package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/planner"
	"pair-date-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// MatchService serves a couple's matches and their lifecycle
type MatchService struct {
	store  repository.Store
	images ImageResolver
}

// NewMatchService creates a new match service
func NewMatchService(store repository.Store, images ImageResolver) *MatchService {
	return &MatchService{store: store, images: images}
}

// UpdateMatchStatusRequest moves a match forward through its lifecycle
type UpdateMatchStatusRequest struct {
	Status        models.MatchStatus `json:"status" validate:"required,oneof=matched scheduled completed"`
	ScheduledDate *time.Time         `json:"scheduled_date,omitempty"`
	Notes         *string            `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ensureMember fails with ErrForbidden unless userID belongs to coupleID
func ensureMember(ctx context.Context, users repository.UserRepository, userID, coupleID string) error {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return wrapLookup(err, "user not found")
	}
	if user.CoupleID == nil || *user.CoupleID != coupleID {
		return fmt.Errorf("caller is not a member of couple %s: %w", coupleID, ErrForbidden)
	}
	return nil
}

// loadMatch fetches a match and checks the caller belongs to its couple
func loadMatch(ctx context.Context, store repository.Store, userID, matchID string) (*models.Match, error) {
	match, err := store.Matches().GetByID(ctx, matchID)
	if err != nil {
		return nil, wrapLookup(err, "match not found")
	}
	if err := ensureMember(ctx, store.Users(), userID, match.CoupleID); err != nil {
		return nil, err
	}
	return match, nil
}

// GetForCouple lists the couple's matches with their proposals and the
// partner's recorded direction. A missing partner swipe reads as right.
func (s *MatchService) GetForCouple(ctx context.Context, currentUserID, coupleID string) ([]models.MatchView, error) {
	if err := ensureMember(ctx, s.store.Users(), currentUserID, coupleID); err != nil {
		return nil, err
	}

	matches, err := s.store.Matches().ListByCouple(ctx, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	partner, err := partnerOf(ctx, s.store.Users(), coupleID, currentUserID)
	if err != nil {
		return nil, err
	}

	views := make([]models.MatchView, 0, len(matches))
	for _, m := range matches {
		view := models.MatchView{Match: *m, PartnerDirection: models.DirectionRight}

		proposal, err := s.store.Proposals().GetByID(ctx, m.ProposalID)
		switch {
		case err == nil:
			pv := resolveProposal(ctx, s.images, proposal)
			view.Proposal = &pv
		case errors.Is(err, repository.ErrNotFound):
			log.Warn().Str("match_id", m.ID).Str("proposal_id", m.ProposalID).Msg("Match references missing proposal")
		default:
			return nil, fmt.Errorf("failed to get proposal: %w", err)
		}

		if partner != nil {
			swipe, err := s.store.Swipes().GetByUserAndProposal(ctx, partner.ID, m.ProposalID)
			switch {
			case err == nil:
				view.PartnerDirection = swipe.Direction
			case errors.Is(err, repository.ErrNotFound):
			default:
				return nil, fmt.Errorf("failed to get partner swipe: %w", err)
			}
		}

		views = append(views, view)
	}
	return views, nil
}

// UpdateStatus advances a match. The same status may be set again to edit
// the scheduled date or notes; moving backwards is rejected.
func (s *MatchService) UpdateStatus(ctx context.Context, userID, matchID string, req UpdateMatchStatusRequest) (string, error) {
	if !req.Status.Valid() {
		return "", invalid(fmt.Sprintf("unknown match status %q", req.Status))
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		match, err := loadMatch(ctx, tx, userID, matchID)
		if err != nil {
			return err
		}
		if !match.Status.CanTransitionTo(req.Status) {
			return fmt.Errorf("%s -> %s: %w", match.Status, req.Status, ErrInvalidStatusTransition)
		}
		if err := tx.Matches().UpdateStatus(ctx, matchID, req.Status, req.ScheduledDate, req.Notes); err != nil {
			return wrapLookup(err, "failed to update match status")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("user_id", userID).Str("match_id", matchID).Str("status", string(req.Status)).Msg("Match status updated")
	return matchID, nil
}

// SetPartnerDates stores the caller's candidate dates on a match so the
// other member can compute the overlap.
func (s *MatchService) SetPartnerDates(ctx context.Context, userID, matchID string, dates []string) ([]string, error) {
	set, err := planner.NewDateSet(dates...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidInput)
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := loadMatch(ctx, tx, userID, matchID); err != nil {
			return err
		}
		if err := tx.Matches().SetPartnerDates(ctx, matchID, set.Dates()); err != nil {
			return wrapLookup(err, "failed to set partner dates")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set.Dates(), nil
}

// CommonDates intersects the caller's dates with those stored on the match
func (s *MatchService) CommonDates(ctx context.Context, userID, matchID string, dates []string) ([]string, error) {
	set, err := planner.NewDateSet(dates...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidInput)
	}
	match, err := loadMatch(ctx, s.store, userID, matchID)
	if err != nil {
		return nil, err
	}
	draft := planner.Draft{Selected: set, PartnerDates: match.PartnerSelectedDates}
	return draft.CommonDates(), nil
}

// GetStatsForCouple aggregates, per member, how many proposals they sent
// and received and how many of those matched. Completed matches and
// confirmed plans count as achieved dates.
func (s *MatchService) GetStatsForCouple(ctx context.Context, currentUserID, coupleID string) (*models.CoupleStats, error) {
	if err := ensureMember(ctx, s.store.Users(), currentUserID, coupleID); err != nil {
		return nil, err
	}

	members, err := s.store.Users().ListByCouple(ctx, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list couple members: %w", err)
	}
	proposals, err := s.store.Proposals().ListByCouple(ctx, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	matches, err := s.store.Matches().ListByCouple(ctx, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	plans, err := s.store.Plans().ListByCouple(ctx, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	matched := make(map[string]bool, len(matches))
	stats := &models.CoupleStats{CoupleID: coupleID, TotalMatches: len(matches)}
	for _, m := range matches {
		matched[m.ProposalID] = true
		if m.Status == models.MatchStatusCompleted {
			stats.CompletedMatches++
		}
	}
	for _, p := range plans {
		if p.Status == models.PlanStatusConfirmed {
			stats.ConfirmedPlans++
		}
	}
	stats.Achieved = stats.CompletedMatches + stats.ConfirmedPlans

	stats.Members = make([]models.MemberStats, 0, len(members))
	for _, member := range members {
		ms := models.MemberStats{UserID: member.ID}
		for _, p := range proposals {
			if p.CreatedBy == nil {
				continue
			}
			if *p.CreatedBy == member.ID {
				ms.Sent++
				if matched[p.ID] {
					ms.SentMatched++
				}
			} else {
				ms.Received++
				if matched[p.ID] {
					ms.ReceivedMatched++
				}
			}
		}
		ms.SentSuccessRate = successRate(ms.SentMatched, ms.Sent)
		ms.ReceivedSuccessRate = successRate(ms.ReceivedMatched, ms.Received)
		stats.Members = append(stats.Members, ms)
	}
	return stats, nil
}

func successRate(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total) * 100
}
