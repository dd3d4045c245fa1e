// Package memory is an in-process repository.Store used by tests and by
// the "memory" database driver for local runs. Transactions hold a single
// lock and restore a snapshot when fn fails.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"
)

type state struct {
	users     map[string]models.User
	couples   map[string]models.Couple
	proposals map[string]models.Proposal
	swipes    map[string]models.Swipe
	matches   map[string]models.Match
	plans     map[string]models.Plan
}

func newState() *state {
	return &state{
		users:     map[string]models.User{},
		couples:   map[string]models.Couple{},
		proposals: map[string]models.Proposal{},
		swipes:    map[string]models.Swipe{},
		matches:   map[string]models.Match{},
		plans:     map[string]models.Plan{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.couples {
		c.couples[k] = v
	}
	for k, v := range s.proposals {
		c.proposals[k] = v
	}
	for k, v := range s.swipes {
		c.swipes[k] = v
	}
	for k, v := range s.matches {
		c.matches[k] = v
	}
	for k, v := range s.plans {
		c.plans[k] = v
	}
	return c
}

type shared struct {
	mu sync.Mutex
	st *state
}

// Store implements repository.Store in memory
type Store struct {
	sh   *shared
	inTx bool
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{sh: &shared{st: newState()}}
}

func (s *Store) Users() repository.UserRepository         { return userRepo{s} }
func (s *Store) Couples() repository.CoupleRepository     { return coupleRepo{s} }
func (s *Store) Proposals() repository.ProposalRepository { return proposalRepo{s} }
func (s *Store) Swipes() repository.SwipeRepository       { return swipeRepo{s} }
func (s *Store) Matches() repository.MatchRepository      { return matchRepo{s} }
func (s *Store) Plans() repository.PlanRepository         { return planRepo{s} }

// WithTx serializes fn against every other store call
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	snapshot := s.sh.st.clone()
	if err := fn(&Store{sh: s.sh, inTx: true}); err != nil {
		s.sh.st = snapshot
		return err
	}
	return nil
}

// do runs fn under the store lock unless already inside a transaction
func (s *Store) do(fn func(st *state) error) error {
	if !s.inTx {
		s.sh.mu.Lock()
		defer s.sh.mu.Unlock()
	}
	return fn(s.sh.st)
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.users[user.ID]; ok {
			return fmt.Errorf("user %s already exists", user.ID)
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	var out *models.User
	err := r.s.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return notFound("user")
		}
		out = &u
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock: transactions already hold the store lock
func (r userRepo) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r userRepo) ListByCouple(_ context.Context, coupleID string) ([]*models.User, error) {
	var out []*models.User
	err := r.s.do(func(st *state) error {
		for _, u := range st.users {
			if u.CoupleID != nil && *u.CoupleID == coupleID {
				u := u
				out = append(out, &u)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r userRepo) update(id string, fn func(u *models.User)) error {
	return r.s.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return notFound("user")
		}
		fn(&u)
		st.users[id] = u
		return nil
	})
}

func (r userRepo) SetCouple(_ context.Context, userID string, coupleID *string) error {
	return r.update(userID, func(u *models.User) { u.CoupleID = coupleID })
}

func (r userRepo) SetAnniversary(_ context.Context, userID string, at time.Time) error {
	return r.update(userID, func(u *models.User) { u.AnniversaryAt = &at })
}

func (r userRepo) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	return r.update(userID, func(u *models.User) { u.PushToken = pushToken })
}

type coupleRepo struct{ s *Store }

func (r coupleRepo) Create(_ context.Context, couple *models.Couple) error {
	return r.s.do(func(st *state) error {
		for _, c := range st.couples {
			if c.InviteCode == couple.InviteCode {
				return fmt.Errorf("invite code %s already exists", couple.InviteCode)
			}
		}
		st.couples[couple.ID] = *couple
		return nil
	})
}

func (r coupleRepo) GetByID(_ context.Context, id string) (*models.Couple, error) {
	var out *models.Couple
	err := r.s.do(func(st *state) error {
		c, ok := st.couples[id]
		if !ok {
			return notFound("couple")
		}
		out = &c
		return nil
	})
	return out, err
}

func (r coupleRepo) GetByInviteCode(_ context.Context, code string) (*models.Couple, error) {
	var out *models.Couple
	err := r.s.do(func(st *state) error {
		for _, c := range st.couples {
			if c.InviteCode == code {
				c := c
				out = &c
				return nil
			}
		}
		return notFound("couple")
	})
	return out, err
}

func (r coupleRepo) Lock(ctx context.Context, id string) error {
	_, err := r.GetByID(ctx, id)
	return err
}

func (r coupleRepo) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByInviteCode(ctx, code)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r coupleRepo) update(id string, fn func(c *models.Couple)) error {
	return r.s.do(func(st *state) error {
		c, ok := st.couples[id]
		if !ok {
			return notFound("couple")
		}
		fn(&c)
		st.couples[id] = c
		return nil
	})
}

func (r coupleRepo) Activate(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(c *models.Couple) {
		c.Status = models.CoupleStatusActive
		c.ActivatedAt = &at
	})
}

func (r coupleRepo) SetStatus(_ context.Context, id string, status models.CoupleStatus) error {
	return r.update(id, func(c *models.Couple) { c.Status = status })
}

func (r coupleRepo) Delete(_ context.Context, id string) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.couples[id]; !ok {
			return notFound("couple")
		}
		delete(st.couples, id)
		return nil
	})
}

type proposalRepo struct{ s *Store }

func (r proposalRepo) Create(_ context.Context, p *models.Proposal) error {
	return r.s.do(func(st *state) error {
		cp := *p
		cp.ImageKeys = cloneStrings(p.ImageKeys)
		st.proposals[p.ID] = cp
		return nil
	})
}

func (r proposalRepo) GetByID(_ context.Context, id string) (*models.Proposal, error) {
	var out *models.Proposal
	err := r.s.do(func(st *state) error {
		p, ok := st.proposals[id]
		if !ok {
			return notFound("proposal")
		}
		p.ImageKeys = cloneStrings(p.ImageKeys)
		out = &p
		return nil
	})
	return out, err
}

func (r proposalRepo) ListSwipeable(_ context.Context, userID string, coupleID *string, limit int) ([]*models.Proposal, error) {
	var out []*models.Proposal
	err := r.s.do(func(st *state) error {
		swiped := map[string]bool{}
		for _, sw := range st.swipes {
			if sw.UserID == userID {
				swiped[sw.ProposalID] = true
			}
		}
		for _, p := range st.proposals {
			if !p.IsActive || swiped[p.ID] {
				continue
			}
			if p.CoupleID != nil && (coupleID == nil || *p.CoupleID != *coupleID) {
				continue
			}
			p := p
			out = append(out, &p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r proposalRepo) ListByCouple(_ context.Context, coupleID string) ([]*models.Proposal, error) {
	var out []*models.Proposal
	err := r.s.do(func(st *state) error {
		for _, p := range st.proposals {
			if p.CoupleID != nil && *p.CoupleID == coupleID {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r proposalRepo) Deactivate(_ context.Context, id string) error {
	return r.s.do(func(st *state) error {
		p, ok := st.proposals[id]
		if !ok {
			return notFound("proposal")
		}
		p.IsActive = false
		st.proposals[id] = p
		return nil
	})
}

type swipeRepo struct{ s *Store }

func (r swipeRepo) GetByUserAndProposal(_ context.Context, userID, proposalID string) (*models.Swipe, error) {
	var out *models.Swipe
	err := r.s.do(func(st *state) error {
		for _, sw := range st.swipes {
			if sw.UserID == userID && sw.ProposalID == proposalID {
				sw := sw
				out = &sw
				return nil
			}
		}
		return notFound("swipe")
	})
	return out, err
}

func (r swipeRepo) Create(_ context.Context, swipe *models.Swipe) error {
	return r.s.do(func(st *state) error {
		for _, sw := range st.swipes {
			if sw.UserID == swipe.UserID && sw.ProposalID == swipe.ProposalID {
				return fmt.Errorf("swipe for user %s on proposal %s already exists", swipe.UserID, swipe.ProposalID)
			}
		}
		st.swipes[swipe.ID] = *swipe
		return nil
	})
}

func (r swipeRepo) UpdateDirection(_ context.Context, id string, direction models.Direction, at time.Time) error {
	return r.s.do(func(st *state) error {
		sw, ok := st.swipes[id]
		if !ok {
			return notFound("swipe")
		}
		sw.Direction = direction
		sw.CreatedAt = at
		st.swipes[id] = sw
		return nil
	})
}

type matchRepo struct{ s *Store }

func (r matchRepo) CreateIfAbsent(_ context.Context, match *models.Match) (*models.Match, bool, error) {
	var (
		out     *models.Match
		created bool
	)
	err := r.s.do(func(st *state) error {
		for _, m := range st.matches {
			if m.CoupleID == match.CoupleID && m.ProposalID == match.ProposalID {
				m := m
				out = &m
				return nil
			}
		}
		cp := *match
		cp.PartnerSelectedDates = cloneStrings(match.PartnerSelectedDates)
		st.matches[match.ID] = cp
		out = &cp
		created = true
		return nil
	})
	return out, created, err
}

func (r matchRepo) GetByID(_ context.Context, id string) (*models.Match, error) {
	var out *models.Match
	err := r.s.do(func(st *state) error {
		m, ok := st.matches[id]
		if !ok {
			return notFound("match")
		}
		m.PartnerSelectedDates = cloneStrings(m.PartnerSelectedDates)
		out = &m
		return nil
	})
	return out, err
}

func (r matchRepo) GetByCoupleAndProposal(_ context.Context, coupleID, proposalID string) (*models.Match, error) {
	var out *models.Match
	err := r.s.do(func(st *state) error {
		for _, m := range st.matches {
			if m.CoupleID == coupleID && m.ProposalID == proposalID {
				m := m
				out = &m
				return nil
			}
		}
		return notFound("match")
	})
	return out, err
}

func (r matchRepo) ListByCouple(_ context.Context, coupleID string) ([]*models.Match, error) {
	var out []*models.Match
	err := r.s.do(func(st *state) error {
		for _, m := range st.matches {
			if m.CoupleID == coupleID {
				m := m
				m.PartnerSelectedDates = cloneStrings(m.PartnerSelectedDates)
				out = append(out, &m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].MatchedAt.After(out[j].MatchedAt) })
	return out, err
}

func (r matchRepo) UpdateStatus(_ context.Context, id string, status models.MatchStatus, scheduledDate *time.Time, notes *string) error {
	return r.s.do(func(st *state) error {
		m, ok := st.matches[id]
		if !ok {
			return notFound("match")
		}
		m.Status = status
		if scheduledDate != nil {
			m.ScheduledDate = scheduledDate
		}
		if notes != nil {
			m.Notes = notes
		}
		st.matches[id] = m
		return nil
	})
}

func (r matchRepo) SetPartnerDates(_ context.Context, id string, dates []string) error {
	return r.s.do(func(st *state) error {
		m, ok := st.matches[id]
		if !ok {
			return notFound("match")
		}
		m.PartnerSelectedDates = cloneStrings(dates)
		st.matches[id] = m
		return nil
	})
}

type planRepo struct{ s *Store }

func clonePlan(p models.Plan) models.Plan {
	p.ProposalIDs = cloneStrings(p.ProposalIDs)
	p.CandidateSlots = append([]models.CandidateSlot(nil), p.CandidateSlots...)
	return p
}

func (r planRepo) Create(_ context.Context, p *models.Plan) error {
	return r.s.do(func(st *state) error {
		st.plans[p.ID] = clonePlan(*p)
		return nil
	})
}

func (r planRepo) GetByID(_ context.Context, id string) (*models.Plan, error) {
	var out *models.Plan
	err := r.s.do(func(st *state) error {
		p, ok := st.plans[id]
		if !ok {
			return notFound("plan")
		}
		p = clonePlan(p)
		out = &p
		return nil
	})
	return out, err
}

func (r planRepo) ListByCouple(_ context.Context, coupleID string) ([]*models.Plan, error) {
	var out []*models.Plan
	err := r.s.do(func(st *state) error {
		for _, p := range st.plans {
			if p.CoupleID == coupleID {
				p := clonePlan(p)
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r planRepo) Update(_ context.Context, p *models.Plan) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.plans[p.ID]; !ok {
			return notFound("plan")
		}
		st.plans[p.ID] = clonePlan(*p)
		return nil
	})
}

func (r planRepo) Delete(_ context.Context, id string) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.plans[id]; !ok {
			return notFound("plan")
		}
		delete(st.plans, id)
		return nil
	})
}
