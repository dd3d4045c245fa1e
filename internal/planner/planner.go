// Package planner holds the date negotiation state of a plan: each side's
// candidate dates, their overlap, and the final choice that gates
// confirmation.
package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pair-date-backend/internal/models"
)

// DateLayout is the calendar date format used for candidate dates
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrMissingFinalDate = errors.New("final date is required")
	ErrMissingFinalTime = errors.New("final time is required")
)

// ParseDate validates a YYYY-MM-DD string and returns it trimmed
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return s, nil
}

// DateSet is an ascending, duplicate-free list of calendar dates
type DateSet struct {
	dates []string
}

// NewDateSet builds a set from arbitrary input, sorting and deduplicating it
func NewDateSet(dates ...string) (DateSet, error) {
	var set DateSet
	for _, d := range dates {
		if err := set.Add(d); err != nil {
			return DateSet{}, err
		}
	}
	return set, nil
}

// Add inserts date at its sorted position; adding a present date is a no-op
func (s *DateSet) Add(date string) error {
	date, err := ParseDate(date)
	if err != nil {
		return err
	}
	i := sort.SearchStrings(s.dates, date)
	if i < len(s.dates) && s.dates[i] == date {
		return nil
	}
	s.dates = append(s.dates, "")
	copy(s.dates[i+1:], s.dates[i:])
	s.dates[i] = date
	return nil
}

// Dates returns a copy of the dates in ascending order
func (s DateSet) Dates() []string {
	return append([]string{}, s.dates...)
}

// Len returns the number of dates
func (s DateSet) Len() int {
	return len(s.dates)
}

// CommonDates intersects two date lists, keeping the order of user
func CommonDates(user, partner []string) []string {
	seen := make(map[string]struct{}, len(partner))
	for _, d := range partner {
		seen[d] = struct{}{}
	}
	common := []string{}
	for _, d := range user {
		if _, ok := seen[d]; ok {
			common = append(common, d)
		}
	}
	return common
}

// CanConfirm checks the confirmation precondition: a final date and a
// final time must both be present. The meeting place is optional.
func CanConfirm(finalDate, finalTime *string) error {
	if finalDate == nil || strings.TrimSpace(*finalDate) == "" {
		return ErrMissingFinalDate
	}
	if finalTime == nil || strings.TrimSpace(*finalTime) == "" {
		return ErrMissingFinalTime
	}
	return nil
}

// Draft is the working state of one plan negotiation. It is a plain value
// owned by its caller.
type Draft struct {
	Title        string
	ProposalIDs  []string
	Selected     DateSet
	PartnerDates []string
	FinalDate    *string
	FinalTime    *string
	MeetingPlace *string
}

// DraftFromPlan loads the negotiation state stored in plan
func DraftFromPlan(plan *models.Plan, partnerDates []string) (*Draft, error) {
	d := &Draft{
		Title:        plan.Title,
		ProposalIDs:  append([]string{}, plan.ProposalIDs...),
		PartnerDates: append([]string{}, partnerDates...),
		FinalDate:    plan.FinalDate,
		FinalTime:    plan.FinalTime,
		MeetingPlace: plan.MeetingPlace,
	}
	for _, slot := range plan.CandidateSlots {
		if err := d.Selected.Add(slot.Date); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// CommonDates is the overlap between the selected and the partner's dates
func (d *Draft) CommonDates() []string {
	return CommonDates(d.Selected.Dates(), d.PartnerDates)
}

// SetFinal records the chosen date, time and optional meeting place.
// Empty strings clear the corresponding field.
func (d *Draft) SetFinal(date, timeOfDay, place string) error {
	d.FinalDate = nil
	if date = strings.TrimSpace(date); date != "" {
		parsed, err := ParseDate(date)
		if err != nil {
			return err
		}
		d.FinalDate = &parsed
	}
	d.FinalTime = optional(timeOfDay)
	d.MeetingPlace = optional(place)
	return nil
}

// Confirm checks that the draft can be confirmed
func (d *Draft) Confirm() error {
	return CanConfirm(d.FinalDate, d.FinalTime)
}

// Slots returns the selected dates as candidate slots
func (d *Draft) Slots() []models.CandidateSlot {
	slots := make([]models.CandidateSlot, 0, d.Selected.Len())
	for _, date := range d.Selected.Dates() {
		slots = append(slots, models.CandidateSlot{Date: date})
	}
	return slots
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
