package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pair-date-backend/internal/metrics"
	"pair-date-backend/internal/models"
	"pair-date-backend/internal/push"
	"pair-date-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PushQueue accepts notifications for asynchronous delivery
type PushQueue interface {
	Enqueue(n push.Notification) bool
}

// SwipeService records swipes and materializes matches
type SwipeService struct {
	store   repository.Store
	push    PushQueue
	events  EventPublisher
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewSwipeService creates a new swipe service
func NewSwipeService(store repository.Store, pushQueue PushQueue, events EventPublisher, m *metrics.Metrics) *SwipeService {
	if events == nil {
		events = noopEvents{}
	}
	return &SwipeService{
		store:   store,
		push:    pushQueue,
		events:  events,
		metrics: m,
		now:     time.Now,
	}
}

// SwipeRequest is one decision on one proposal. CoupleID and PartnerID are
// optional hints; when set they must agree with the caller's couple.
type SwipeRequest struct {
	ProposalID string           `json:"proposal_id" validate:"required"`
	Direction  models.Direction `json:"direction" validate:"required,oneof=left right super_like"`
	CoupleID   *string          `json:"couple_id,omitempty"`
	PartnerID  *string          `json:"partner_id,omitempty"`
}

// SwipeResult reports whether the swipe completed a mutual match
type SwipeResult struct {
	Matched bool    `json:"matched"`
	MatchID *string `json:"match_id,omitempty"`
}

type matchNotice struct {
	match     *models.Match
	partnerID string
	pushToken *string
	title     string
}

// CreateAndCheckMatch upserts the caller's swipe and, for a positive
// decision, creates the couple's match once the partner has also swiped
// positively. The match insert is idempotent per (couple, proposal).
func (s *SwipeService) CreateAndCheckMatch(ctx context.Context, userID string, req SwipeRequest) (*SwipeResult, error) {
	if !req.Direction.Valid() {
		return nil, invalid(fmt.Sprintf("unknown direction %q", req.Direction))
	}

	result := &SwipeResult{}
	var notice *matchNotice
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		// Both partners' swipes serialize on the couple lock, so the later
		// one always sees the earlier one's committed swipe.
		user, err := lockMembership(ctx, tx, userID)
		if err != nil {
			return err
		}
		proposal, err := tx.Proposals().GetByID(ctx, req.ProposalID)
		if err != nil {
			return wrapLookup(err, "proposal not found")
		}
		if !proposal.IsActive {
			return fmt.Errorf("proposal is no longer available: %w", ErrNotFound)
		}
		if proposal.CoupleID != nil && (user.CoupleID == nil || *proposal.CoupleID != *user.CoupleID) {
			return fmt.Errorf("proposal belongs to another couple: %w", ErrForbidden)
		}
		if req.CoupleID != nil && (user.CoupleID == nil || *req.CoupleID != *user.CoupleID) {
			return fmt.Errorf("couple does not match caller: %w", ErrForbidden)
		}

		if err := s.upsertSwipe(ctx, tx.Swipes(), userID, req.ProposalID, req.Direction); err != nil {
			return err
		}

		if !req.Direction.Positive() || user.CoupleID == nil {
			return nil
		}
		coupleID := *user.CoupleID

		partner, err := partnerOf(ctx, tx.Users(), coupleID, userID)
		if err != nil {
			return err
		}
		if req.PartnerID != nil && (partner == nil || partner.ID != *req.PartnerID) {
			return fmt.Errorf("partner does not match caller's couple: %w", ErrForbidden)
		}
		if partner == nil {
			return nil
		}

		partnerSwipe, err := tx.Swipes().GetByUserAndProposal(ctx, partner.ID, req.ProposalID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get partner swipe: %w", err)
		}
		if !partnerSwipe.Direction.Positive() {
			return nil
		}

		match, created, err := tx.Matches().CreateIfAbsent(ctx, &models.Match{
			ID:                   uuid.New().String(),
			CoupleID:             coupleID,
			ProposalID:           req.ProposalID,
			Status:               models.MatchStatusMatched,
			MatchedAt:            s.now(),
			PartnerSelectedDates: []string{},
		})
		if err != nil {
			return fmt.Errorf("failed to create match: %w", err)
		}

		result.Matched = true
		result.MatchID = &match.ID
		if created {
			notice = &matchNotice{
				match:     match,
				partnerID: partner.ID,
				pushToken: partner.PushToken,
				title:     proposal.Title,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSwipe(string(req.Direction))
	if notice != nil {
		s.announceMatch(userID, notice)
	}
	return result, nil
}

// upsertSwipe overwrites a differing direction or inserts a new record
func (s *SwipeService) upsertSwipe(ctx context.Context, swipes repository.SwipeRepository, userID, proposalID string, direction models.Direction) error {
	existing, err := swipes.GetByUserAndProposal(ctx, userID, proposalID)
	switch {
	case err == nil:
		if existing.Direction == direction {
			return nil
		}
		if err := swipes.UpdateDirection(ctx, existing.ID, direction, s.now()); err != nil {
			return fmt.Errorf("failed to update swipe: %w", err)
		}
		return nil
	case errors.Is(err, repository.ErrNotFound):
		swipe := &models.Swipe{
			ID:         uuid.New().String(),
			UserID:     userID,
			ProposalID: proposalID,
			Direction:  direction,
			CreatedAt:  s.now(),
		}
		if err := swipes.Create(ctx, swipe); err != nil {
			return fmt.Errorf("failed to create swipe: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to get swipe: %w", err)
	}
}

// announceMatch runs after commit; failures here never reach the caller
func (s *SwipeService) announceMatch(userID string, n *matchNotice) {
	s.metrics.IncMatchCreated()
	log.Info().
		Str("user_id", userID).
		Str("couple_id", n.match.CoupleID).
		Str("match_id", n.match.ID).
		Msg("Match created")

	s.events.Publish(n.partnerID, WSMessage{Type: EventMatchCreated, Data: map[string]any{
		"match_id":    n.match.ID,
		"proposal_id": n.match.ProposalID,
	}})

	if n.pushToken == nil || *n.pushToken == "" {
		s.metrics.IncPush("skipped")
		return
	}
	if s.push == nil {
		return
	}
	s.push.Enqueue(push.Notification{
		Token: *n.pushToken,
		Title: "It's a match!",
		Body:  n.title,
		Data: map[string]any{
			"type":        EventMatchCreated,
			"match_id":    n.match.ID,
			"proposal_id": n.match.ProposalID,
		},
	})
}
