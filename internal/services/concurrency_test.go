package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"pair-date-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// together runs every fn at once and returns their errors in order
func together(fns ...func() error) []error {
	errs := make([]error, len(fns))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn func() error) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i, fn)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestSimultaneousPartnerSwipesMatchOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b, coupleID := e.couple(t)

	const rounds = 25
	for i := 0; i < rounds; i++ {
		p := e.preset(t, fmt.Sprintf("concert-%d", i))
		results := make([]*SwipeResult, 2)
		errs := together(
			func() (err error) {
				results[0], err = e.swipes.CreateAndCheckMatch(ctx, a.ID, SwipeRequest{ProposalID: p.ID, Direction: models.DirectionRight})
				return err
			},
			func() (err error) {
				results[1], err = e.swipes.CreateAndCheckMatch(ctx, b.ID, SwipeRequest{ProposalID: p.ID, Direction: models.DirectionRight})
				return err
			},
		)
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		// exactly one of the two calls observes the other's swipe
		assert.NotEqual(t, results[0].Matched, results[1].Matched, "round %d", i)
	}

	assert.Len(t, matchesFor(t, e, coupleID), rounds)
	assert.Len(t, e.events.ofType(EventMatchCreated), rounds)
}

func TestSimultaneousJoinsAdmitOneMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "Alice")
	b := e.user(t, "Bob")
	c := e.user(t, "Carol")

	created, err := e.couples.Create(ctx, a.ID)
	require.NoError(t, err)

	errs := together(
		func() error { _, err := e.couples.Join(ctx, b.ID, created.InviteCode); return err },
		func() error { _, err := e.couples.Join(ctx, c.ID, created.InviteCode); return err },
	)

	var joined int
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, joined)

	members, err := e.store.Users().ListByCouple(ctx, created.CoupleID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestSimultaneousCreatesLeaveNoOrphan(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "Alice")

	ids := make([]string, 2)
	create := func(i int) func() error {
		return func() error {
			resp, err := e.couples.Create(ctx, a.ID)
			if err == nil {
				ids[i] = resp.CoupleID
			}
			return err
		}
	}
	errs := together(create(0), create(1))

	var winner string
	for i, err := range errs {
		if err == nil {
			winner = ids[i]
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	require.NotEmpty(t, winner)

	for _, id := range ids {
		if id == "" || id == winner {
			continue
		}
		couple, err := e.couples.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, couple, "orphaned couple %s", id)
	}
	user, err := e.users.GetUser(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, user.CoupleID)
	assert.Equal(t, winner, *user.CoupleID)
}
