package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoupleStatus is the pairing lifecycle state
type CoupleStatus string

const (
	CoupleStatusPending CoupleStatus = "pending"
	CoupleStatusActive  CoupleStatus = "active"
)

// Direction is a swipe decision
type Direction string

const (
	DirectionLeft      Direction = "left"
	DirectionRight     Direction = "right"
	DirectionSuperLike Direction = "super_like"
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	switch d {
	case DirectionLeft, DirectionRight, DirectionSuperLike:
		return true
	}
	return false
}

// Positive reports whether d counts toward a mutual match
func (d Direction) Positive() bool {
	return d == DirectionRight || d == DirectionSuperLike
}

// MatchStatus is the lifecycle of a match
type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
)

var matchStatusRank = map[MatchStatus]int{
	MatchStatusMatched:   0,
	MatchStatusScheduled: 1,
	MatchStatusCompleted: 2,
}

// Valid reports whether s is a known match status
func (s MatchStatus) Valid() bool {
	_, ok := matchStatusRank[s]
	return ok
}

// CanTransitionTo allows staying in place or moving forward
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	from, ok := matchStatusRank[s]
	if !ok {
		return false
	}
	to, ok := matchStatusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// PlanStatus is the negotiation state of a plan
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusProposed  PlanStatus = "proposed"
	PlanStatusConfirmed PlanStatus = "confirmed"
)

// Valid reports whether s is a known plan status
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusProposed, PlanStatusConfirmed:
		return true
	}
	return false
}

// User represents a member of at most one couple
type User struct {
	ID            string     `json:"id"`
	DisplayName   string     `json:"display_name"`
	CoupleID      *string    `json:"couple_id,omitempty"`
	AnniversaryAt *time.Time `json:"anniversary_at,omitempty"`
	PushToken     *string    `json:"push_token,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Couple represents a pairing unit resolved by invite code
type Couple struct {
	ID          string       `json:"id"`
	InviteCode  string       `json:"invite_code"`
	Status      CoupleStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ActivatedAt *time.Time   `json:"activated_at,omitempty"`
}

// Proposal is a date idea: a global preset when CoupleID is nil
type Proposal struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	ImageKeys   []string         `json:"image_keys"`
	Location    *string          `json:"location,omitempty"`
	URL         *string          `json:"url,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	CreatedBy   *string          `json:"created_by,omitempty"`
	CoupleID    *string          `json:"couple_id,omitempty"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Swipe is one user's decision on one proposal
type Swipe struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ProposalID string    `json:"proposal_id"`
	Direction  Direction `json:"direction"`
	CreatedAt  time.Time `json:"created_at"`
}

// Match records mutual positive interest of a couple in a proposal
type Match struct {
	ID                   string      `json:"id"`
	CoupleID             string      `json:"couple_id"`
	ProposalID           string      `json:"proposal_id"`
	Status               MatchStatus `json:"status"`
	MatchedAt            time.Time   `json:"matched_at"`
	ScheduledDate        *time.Time  `json:"scheduled_date,omitempty"`
	PartnerSelectedDates []string    `json:"partner_selected_dates,omitempty"`
	Notes                *string     `json:"notes,omitempty"`
}

// CandidateSlot is one proposed day, optionally with a time of day
type CandidateSlot struct {
	Date string  `json:"date"`
	Time *string `json:"time,omitempty"`
}

// Plan aggregates proposals toward one confirmed date
type Plan struct {
	ID             string          `json:"id"`
	CoupleID       string          `json:"couple_id"`
	Title          string          `json:"title"`
	ProposalIDs    []string        `json:"proposal_ids"`
	CandidateSlots []CandidateSlot `json:"candidate_slots"`
	FinalDate      *string         `json:"final_date,omitempty"`
	FinalTime      *string         `json:"final_time,omitempty"`
	MeetingPlace   *string         `json:"meeting_place,omitempty"`
	Status         PlanStatus      `json:"status"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
