package repository

import (
	"context"
	"errors"
	"time"

	"pair-date-backend/internal/models"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = errors.New("not found")

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetForUpdate reads the user and, inside a transaction, locks the row
	// until commit.
	GetForUpdate(ctx context.Context, id string) (*models.User, error)
	ListByCouple(ctx context.Context, coupleID string) ([]*models.User, error)
	SetCouple(ctx context.Context, userID string, coupleID *string) error
	SetAnniversary(ctx context.Context, userID string, at time.Time) error
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
}

type CoupleRepository interface {
	Create(ctx context.Context, couple *models.Couple) error
	GetByID(ctx context.Context, id string) (*models.Couple, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Couple, error)
	// Lock takes the couple row lock until the transaction ends. Membership
	// changes and swipe reconciliation for a couple serialize on it.
	Lock(ctx context.Context, id string) error
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	Activate(ctx context.Context, id string, at time.Time) error
	SetStatus(ctx context.Context, id string, status models.CoupleStatus) error
	Delete(ctx context.Context, id string) error
}

type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
	// ListSwipeable returns active presets and the couple's own proposals
	// that userID has not swiped yet, newest first.
	ListSwipeable(ctx context.Context, userID string, coupleID *string, limit int) ([]*models.Proposal, error)
	ListByCouple(ctx context.Context, coupleID string) ([]*models.Proposal, error)
	Deactivate(ctx context.Context, id string) error
}

type SwipeRepository interface {
	GetByUserAndProposal(ctx context.Context, userID, proposalID string) (*models.Swipe, error)
	Create(ctx context.Context, swipe *models.Swipe) error
	UpdateDirection(ctx context.Context, id string, direction models.Direction, at time.Time) error
}

type MatchRepository interface {
	// CreateIfAbsent inserts match unless one already exists for
	// (CoupleID, ProposalID). It returns the stored match and whether it
	// was created by this call.
	CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, bool, error)
	GetByID(ctx context.Context, id string) (*models.Match, error)
	GetByCoupleAndProposal(ctx context.Context, coupleID, proposalID string) (*models.Match, error)
	ListByCouple(ctx context.Context, coupleID string) ([]*models.Match, error)
	UpdateStatus(ctx context.Context, id string, status models.MatchStatus, scheduledDate *time.Time, notes *string) error
	SetPartnerDates(ctx context.Context, id string, dates []string) error
}

type PlanRepository interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByID(ctx context.Context, id string) (*models.Plan, error)
	ListByCouple(ctx context.Context, coupleID string) ([]*models.Plan, error)
	Update(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, id string) error
}

// Store groups the repositories. WithTx runs fn against a transactional
// view; any error returned by fn rolls back every write made through it.
type Store interface {
	Users() UserRepository
	Couples() CoupleRepository
	Proposals() ProposalRepository
	Swipes() SwipeRepository
	Matches() MatchRepository
	Plans() PlanRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
