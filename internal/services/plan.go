package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/planner"
	"pair-date-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PlanService negotiates a couple's plans toward one confirmed date
type PlanService struct {
	store  repository.Store
	events EventPublisher
	now    func() time.Time
}

// NewPlanService creates a new plan service
func NewPlanService(store repository.Store, events EventPublisher) *PlanService {
	if events == nil {
		events = noopEvents{}
	}
	return &PlanService{store: store, events: events, now: time.Now}
}

// PlanRequest carries the editable fields of a plan
type PlanRequest struct {
	Title          string                 `json:"title" validate:"required,max=120"`
	ProposalIDs    []string               `json:"proposal_ids" validate:"required,min=1,dive,required"`
	CandidateSlots []models.CandidateSlot `json:"candidate_slots" validate:"dive"`
	FinalDate      *string                `json:"final_date,omitempty"`
	FinalTime      *string                `json:"final_time,omitempty"`
	MeetingPlace   *string                `json:"meeting_place,omitempty"`
	Status         models.PlanStatus      `json:"status,omitempty" validate:"omitempty,oneof=draft proposed"`
}

// ConfirmPlanRequest fixes the final date, time and optional place
type ConfirmPlanRequest struct {
	FinalDate    string  `json:"final_date"`
	FinalTime    string  `json:"final_time"`
	MeetingPlace *string `json:"meeting_place,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// buildDraft validates a request into negotiation state. Slots come back
// sorted by date with one entry per date; the last time given for a date wins.
func buildDraft(req PlanRequest) (*planner.Draft, []models.CandidateSlot, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, nil, invalid("title is required")
	}
	if len(req.ProposalIDs) == 0 {
		return nil, nil, invalid("at least one proposal is required")
	}
	if req.Status == models.PlanStatusConfirmed {
		return nil, nil, invalid("use confirm to confirm a plan")
	}

	draft := &planner.Draft{Title: title, ProposalIDs: append([]string{}, req.ProposalIDs...)}
	times := make(map[string]*string, len(req.CandidateSlots))
	for _, slot := range req.CandidateSlots {
		date, err := planner.ParseDate(slot.Date)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidInput)
		}
		if err := draft.Selected.Add(date); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidInput)
		}
		times[date] = slot.Time
	}
	if err := draft.SetFinal(deref(req.FinalDate), deref(req.FinalTime), deref(req.MeetingPlace)); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidInput)
	}

	slots := draft.Slots()
	for i := range slots {
		slots[i].Time = times[slots[i].Date]
	}
	return draft, slots, nil
}

// checkProposals ensures every referenced proposal is visible to coupleID
func checkProposals(ctx context.Context, proposals repository.ProposalRepository, coupleID string, ids []string) error {
	for _, id := range ids {
		p, err := proposals.GetByID(ctx, id)
		if err != nil {
			return wrapLookup(err, fmt.Sprintf("proposal %s not found", id))
		}
		if p.CoupleID != nil && *p.CoupleID != coupleID {
			return fmt.Errorf("proposal %s belongs to another couple: %w", id, ErrForbidden)
		}
	}
	return nil
}

// loadPlan fetches a plan and checks the caller belongs to its couple
func loadPlan(ctx context.Context, store repository.Store, userID, planID string) (*models.Plan, error) {
	plan, err := store.Plans().GetByID(ctx, planID)
	if err != nil {
		return nil, wrapLookup(err, "plan not found")
	}
	if err := ensureMember(ctx, store.Users(), userID, plan.CoupleID); err != nil {
		return nil, err
	}
	return plan, nil
}

// Create stores a new plan for coupleID and returns its ID
func (s *PlanService) Create(ctx context.Context, userID, coupleID string, req PlanRequest) (string, error) {
	draft, slots, err := buildDraft(req)
	if err != nil {
		return "", err
	}

	status := req.Status
	if status == "" {
		status = models.PlanStatusDraft
	}

	now := s.now()
	plan := &models.Plan{
		ID:             uuid.New().String(),
		CoupleID:       coupleID,
		Title:          draft.Title,
		ProposalIDs:    draft.ProposalIDs,
		CandidateSlots: slots,
		FinalDate:      draft.FinalDate,
		FinalTime:      draft.FinalTime,
		MeetingPlace:   draft.MeetingPlace,
		Status:         status,
		CreatedBy:      userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := ensureMember(ctx, tx.Users(), userID, coupleID); err != nil {
			return err
		}
		if err := checkProposals(ctx, tx.Proposals(), coupleID, plan.ProposalIDs); err != nil {
			return err
		}
		if err := tx.Plans().Create(ctx, plan); err != nil {
			return fmt.Errorf("failed to create plan: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("user_id", userID).Str("plan_id", plan.ID).Msg("Plan created")
	s.notifyPartner(ctx, plan, userID, "created")
	return plan.ID, nil
}

// Update replaces the editable fields of a plan and returns its ID
func (s *PlanService) Update(ctx context.Context, userID, planID string, req PlanRequest) (string, error) {
	draft, slots, err := buildDraft(req)
	if err != nil {
		return "", err
	}

	var plan *models.Plan
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		plan, err = loadPlan(ctx, tx, userID, planID)
		if err != nil {
			return err
		}
		if err := checkProposals(ctx, tx.Proposals(), plan.CoupleID, draft.ProposalIDs); err != nil {
			return err
		}

		plan.Title = draft.Title
		plan.ProposalIDs = draft.ProposalIDs
		plan.CandidateSlots = slots
		plan.FinalDate = draft.FinalDate
		plan.FinalTime = draft.FinalTime
		plan.MeetingPlace = draft.MeetingPlace
		if req.Status != "" {
			plan.Status = req.Status
		} else if plan.Status == models.PlanStatusConfirmed {
			plan.Status = models.PlanStatusProposed
		}
		plan.UpdatedAt = s.now()

		if err := tx.Plans().Update(ctx, plan); err != nil {
			return wrapLookup(err, "failed to update plan")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.notifyPartner(ctx, plan, userID, "updated")
	return plan.ID, nil
}

// Confirm sets the final date and time and marks the plan confirmed. Both
// must be present; the meeting place is optional.
func (s *PlanService) Confirm(ctx context.Context, userID, planID string, req ConfirmPlanRequest) (*models.Plan, error) {
	var plan *models.Plan
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		plan, err = loadPlan(ctx, tx, userID, planID)
		if err != nil {
			return err
		}

		draft, err := planner.DraftFromPlan(plan, nil)
		if err != nil {
			return fmt.Errorf("stored plan is invalid: %w", err)
		}
		if err := draft.SetFinal(req.FinalDate, req.FinalTime, deref(req.MeetingPlace)); err != nil {
			return fmt.Errorf("%s: %w", err.Error(), ErrInvalidInput)
		}
		if err := draft.Confirm(); err != nil {
			if errors.Is(err, planner.ErrMissingFinalDate) || errors.Is(err, planner.ErrMissingFinalTime) {
				return fmt.Errorf("%s: %w", err.Error(), ErrPlanNotConfirmable)
			}
			return err
		}

		plan.FinalDate = draft.FinalDate
		plan.FinalTime = draft.FinalTime
		plan.MeetingPlace = draft.MeetingPlace
		plan.Status = models.PlanStatusConfirmed
		plan.UpdatedAt = s.now()

		if err := tx.Plans().Update(ctx, plan); err != nil {
			return wrapLookup(err, "failed to confirm plan")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Str("plan_id", planID).Msg("Plan confirmed")
	s.notifyPartner(ctx, plan, userID, "confirmed")
	return plan, nil
}

// Get returns one plan of the caller's couple
func (s *PlanService) Get(ctx context.Context, userID, planID string) (*models.Plan, error) {
	return loadPlan(ctx, s.store, userID, planID)
}

// List returns the plans of coupleID, newest first
func (s *PlanService) List(ctx context.Context, userID, coupleID string) ([]*models.Plan, error) {
	if err := ensureMember(ctx, s.store.Users(), userID, coupleID); err != nil {
		return nil, err
	}
	plans, err := s.store.Plans().ListByCouple(ctx, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	if plans == nil {
		plans = []*models.Plan{}
	}
	return plans, nil
}

// Delete removes a plan
func (s *PlanService) Delete(ctx context.Context, userID, planID string) error {
	var plan *models.Plan
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		plan, err = loadPlan(ctx, tx, userID, planID)
		if err != nil {
			return err
		}
		if err := tx.Plans().Delete(ctx, planID); err != nil {
			return wrapLookup(err, "failed to delete plan")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyPartner(ctx, plan, userID, "deleted")
	return nil
}

func (s *PlanService) notifyPartner(ctx context.Context, plan *models.Plan, userID, action string) {
	partner, err := partnerOf(ctx, s.store.Users(), plan.CoupleID, userID)
	if err != nil {
		log.Error().Err(err).Str("plan_id", plan.ID).Msg("Failed to resolve partner for plan event")
		return
	}
	if partner == nil {
		return
	}
	s.events.Publish(partner.ID, WSMessage{Type: EventPlanUpdated, Data: map[string]any{
		"plan_id": plan.ID,
		"action":  action,
		"status":  plan.Status,
	}})
}
