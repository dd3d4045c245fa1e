package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"pair-date-backend/internal/metrics"
	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const codeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// InviteCodePolicy bounds invite code generation: MaxAttempts tries at
// Length, then MaxAttempts tries at FallbackLength.
type InviteCodePolicy struct {
	Length         int
	FallbackLength int
	MaxAttempts    int
}

// DefaultInviteCodePolicy is 6 characters, falling back to 8, 10 tries each
var DefaultInviteCodePolicy = InviteCodePolicy{Length: 6, FallbackLength: 8, MaxAttempts: 10}

// CoupleService handles couple-related business logic
type CoupleService struct {
	store   repository.Store
	events  EventPublisher
	metrics *metrics.Metrics
	policy  InviteCodePolicy
	newCode func(length int) string
	now     func() time.Time
}

// NewCoupleService creates a new couple service
func NewCoupleService(store repository.Store, events EventPublisher, m *metrics.Metrics, policy InviteCodePolicy) *CoupleService {
	if policy.Length <= 0 {
		policy.Length = DefaultInviteCodePolicy.Length
	}
	if policy.FallbackLength <= policy.Length {
		policy.FallbackLength = policy.Length + 2
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultInviteCodePolicy.MaxAttempts
	}
	if events == nil {
		events = noopEvents{}
	}
	return &CoupleService{
		store:   store,
		events:  events,
		metrics: m,
		policy:  policy,
		newCode: generateCode,
		now:     time.Now,
	}
}

// CreateCoupleResponse is returned when a pairing identity is minted
type CreateCoupleResponse struct {
	CoupleID   string `json:"couple_id"`
	InviteCode string `json:"invite_code"`
}

// generateCode generates a random code of the given length
func generateCode(length int) string {
	code := make([]byte, length)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}

// NormalizeInviteCode trims and upper-cases a user-entered code
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// generateUniqueCode tries the primary length, then the fallback length
func (s *CoupleService) generateUniqueCode(ctx context.Context, couples repository.CoupleRepository) (string, error) {
	for _, length := range []int{s.policy.Length, s.policy.FallbackLength} {
		for i := 0; i < s.policy.MaxAttempts; i++ {
			code := s.newCode(length)
			exists, err := couples.InviteCodeExists(ctx, code)
			if err != nil {
				return "", fmt.Errorf("failed to check invite code existence: %w", err)
			}
			if !exists {
				return code, nil
			}
		}
		log.Warn().Int("length", length).Int("attempts", s.policy.MaxAttempts).Msg("Invite code space congested")
	}
	return "", fmt.Errorf("%w after %d attempts", ErrInviteCodeExhausted, 2*s.policy.MaxAttempts)
}

// Create mints a pending couple for userID and links the user to it
func (s *CoupleService) Create(ctx context.Context, userID string) (*CreateCoupleResponse, error) {
	var resp *CreateCoupleResponse
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err := lockMembership(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.CoupleID != nil {
			return fmt.Errorf("user already belongs to a couple: %w", ErrConflict)
		}

		code, err := s.generateUniqueCode(ctx, tx.Couples())
		if err != nil {
			return err
		}

		couple := &models.Couple{
			ID:         uuid.New().String(),
			InviteCode: code,
			Status:     models.CoupleStatusPending,
			CreatedAt:  s.now(),
		}
		if err := tx.Couples().Create(ctx, couple); err != nil {
			return fmt.Errorf("failed to create couple: %w", err)
		}
		if err := tx.Users().SetCouple(ctx, userID, &couple.ID); err != nil {
			return fmt.Errorf("failed to link user to couple: %w", err)
		}

		resp = &CreateCoupleResponse{CoupleID: couple.ID, InviteCode: couple.InviteCode}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCoupleEvent("created")
	log.Info().Str("user_id", userID).Str("couple_id", resp.CoupleID).Msg("Couple created")
	return resp, nil
}

// Join links userID to the couple owning inviteCode and activates it
func (s *CoupleService) Join(ctx context.Context, userID, inviteCode string) (string, error) {
	code := NormalizeInviteCode(inviteCode)
	if code == "" {
		return "", invalid("invite code is required")
	}

	var (
		coupleID string
		partners []string
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return wrapLookup(err, "user not found")
		}
		couple, err := tx.Couples().GetByInviteCode(ctx, code)
		if err != nil {
			return wrapLookup(err, "invalid invite code")
		}
		// couple row before user row, the same order every membership
		// change takes
		if err := tx.Couples().Lock(ctx, couple.ID); err != nil {
			return wrapLookup(err, "invalid invite code")
		}
		if user, err = tx.Users().GetForUpdate(ctx, userID); err != nil {
			return wrapLookup(err, "user not found")
		}
		coupleID = couple.ID
		if user.CoupleID != nil && *user.CoupleID != couple.ID {
			return fmt.Errorf("leave the current couple before joining another: %w", ErrConflict)
		}

		members, err := tx.Users().ListByCouple(ctx, couple.ID)
		if err != nil {
			return fmt.Errorf("failed to list couple members: %w", err)
		}
		var others []*models.User
		for _, m := range members {
			if m.ID != userID {
				others = append(others, m)
			}
		}
		if len(others) == 0 {
			return fmt.Errorf("cannot join your own couple: %w", ErrConflict)
		}
		if len(others) >= 2 {
			return fmt.Errorf("couple already has two members: %w", ErrConflict)
		}

		now := s.now()
		if err := tx.Users().SetCouple(ctx, userID, &couple.ID); err != nil {
			return fmt.Errorf("failed to link user to couple: %w", err)
		}
		// The joining member's anniversary is always reset; the existing
		// member keeps theirs if already set.
		if err := tx.Users().SetAnniversary(ctx, userID, now); err != nil {
			return fmt.Errorf("failed to set anniversary: %w", err)
		}
		if err := tx.Couples().Activate(ctx, couple.ID, now); err != nil {
			return fmt.Errorf("failed to activate couple: %w", err)
		}
		for _, other := range others {
			partners = append(partners, other.ID)
			if other.AnniversaryAt != nil {
				continue
			}
			if err := tx.Users().SetAnniversary(ctx, other.ID, now); err != nil {
				return fmt.Errorf("failed to set partner anniversary: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.metrics.IncCoupleEvent("activated")
	log.Info().Str("user_id", userID).Str("couple_id", coupleID).Msg("Couple activated")
	for _, partnerID := range partners {
		s.events.Publish(partnerID, WSMessage{Type: EventCoupleActivated, Data: map[string]any{
			"couple_id":  coupleID,
			"partner_id": userID,
		}})
	}
	return coupleID, nil
}

// GetByInviteCode resolves an invite code; a miss returns (nil, nil)
func (s *CoupleService) GetByInviteCode(ctx context.Context, inviteCode string) (*models.Couple, error) {
	couple, err := s.store.Couples().GetByInviteCode(ctx, NormalizeInviteCode(inviteCode))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get couple by invite code: %w", err)
	}
	return couple, nil
}

// GetByID resolves a couple by ID; a miss returns (nil, nil)
func (s *CoupleService) GetByID(ctx context.Context, coupleID string) (*models.Couple, error) {
	couple, err := s.store.Couples().GetByID(ctx, coupleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get couple: %w", err)
	}
	return couple, nil
}

// GetForUser returns the caller's couple together with its members
func (s *CoupleService) GetForUser(ctx context.Context, userID string) (*models.CoupleView, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, wrapLookup(err, "user not found")
	}
	if user.CoupleID == nil {
		return nil, ErrNotInCouple
	}
	couple, err := s.store.Couples().GetByID(ctx, *user.CoupleID)
	if err != nil {
		return nil, wrapLookup(err, "couple not found")
	}
	members, err := s.store.Users().ListByCouple(ctx, couple.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list couple members: %w", err)
	}

	view := &models.CoupleView{Couple: *couple, Members: make([]models.User, 0, len(members))}
	for _, m := range members {
		member := *m
		member.PushToken = nil
		view.Members = append(view.Members, member)
	}
	return view, nil
}

// InviteQR renders the caller's invite code as a PNG of the given size
func (s *CoupleService) InviteQR(ctx context.Context, userID string, size int) ([]byte, error) {
	_, coupleID, err := requireCouple(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}
	couple, err := s.store.Couples().GetByID(ctx, coupleID)
	if err != nil {
		return nil, wrapLookup(err, "couple not found")
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(couple.InviteCode, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invite qr: %w", err)
	}
	return png, nil
}

// Leave unlinks userID from its couple. The couple is deleted when nobody
// remains, otherwise it is demoted to pending.
func (s *CoupleService) Leave(ctx context.Context, userID string) error {
	var (
		coupleID  string
		remaining []string
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err := lockMembership(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.CoupleID == nil {
			return fmt.Errorf("user is not in a couple: %w", ErrNotFound)
		}
		coupleID = *user.CoupleID

		if err := tx.Users().SetCouple(ctx, userID, nil); err != nil {
			return fmt.Errorf("failed to unlink user: %w", err)
		}

		members, err := tx.Users().ListByCouple(ctx, coupleID)
		if err != nil {
			return fmt.Errorf("failed to list couple members: %w", err)
		}
		if len(members) == 0 {
			if err := tx.Couples().Delete(ctx, coupleID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("failed to delete couple: %w", err)
			}
			return nil
		}
		for _, m := range members {
			remaining = append(remaining, m.ID)
		}
		if err := tx.Couples().SetStatus(ctx, coupleID, models.CoupleStatusPending); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to demote couple: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(remaining) == 0 {
		s.metrics.IncCoupleEvent("deleted")
	} else {
		s.metrics.IncCoupleEvent("left")
	}
	log.Info().Str("user_id", userID).Str("couple_id", coupleID).Int("remaining", len(remaining)).Msg("User left couple")
	for _, partnerID := range remaining {
		s.events.Publish(partnerID, WSMessage{Type: EventPartnerLeft, Data: map[string]any{"couple_id": coupleID}})
	}
	return nil
}

// lockMembership reads userID under the couple lock and then the user row
// lock, so its couple membership cannot change until the transaction ends.
func lockMembership(ctx context.Context, tx repository.Store, userID string) (*models.User, error) {
	user, err := tx.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, wrapLookup(err, "user not found")
	}
	if user.CoupleID != nil {
		// a couple deleted meanwhile shows up as a cleared couple_id below
		if err := tx.Couples().Lock(ctx, *user.CoupleID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to lock couple: %w", err)
		}
	}
	locked, err := tx.Users().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, wrapLookup(err, "user not found")
	}
	if locked.CoupleID != nil && (user.CoupleID == nil || *locked.CoupleID != *user.CoupleID) {
		return nil, fmt.Errorf("couple membership changed concurrently: %w", ErrConflict)
	}
	return locked, nil
}

// partnerOf returns the other member of userID's couple, if any
func partnerOf(ctx context.Context, users repository.UserRepository, coupleID, userID string) (*models.User, error) {
	members, err := users.ListByCouple(ctx, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list couple members: %w", err)
	}
	for _, m := range members {
		if m.ID != userID {
			return m, nil
		}
	}
	return nil, nil
}

// requireCouple returns the couple ID of userID or ErrNotInCouple
func requireCouple(ctx context.Context, users repository.UserRepository, userID string) (*models.User, string, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", wrapLookup(err, "user not found")
	}
	if user.CoupleID == nil {
		return user, "", ErrNotInCouple
	}
	return user, *user.CoupleID, nil
}
