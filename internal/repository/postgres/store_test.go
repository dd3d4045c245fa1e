package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"pair-date-backend/internal/database"
	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"
	"pair-date-backend/internal/repository/postgres"
	"pair-date-backend/internal/services"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	store, _ := newTestDB(t)
	return store
}

// newTestDB connects to PAIRDATE_TEST_DSN, migrates and empties every
// table. Tests are skipped when the variable is unset.
func newTestDB(t *testing.T) (*postgres.Store, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("PAIRDATE_TEST_DSN")
	if dsn == "" {
		t.Skip("PAIRDATE_TEST_DSN not set")
	}
	ctx := context.Background()

	pool, err := database.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE plans, matches, swipes, proposals, users, couples CASCADE`)
	require.NoError(t, err)

	return postgres.NewStore(pool), pool
}

func createUser(t *testing.T, store repository.Store, id string) *models.User {
	t.Helper()
	u := &models.User{ID: id, DisplayName: id, CreatedAt: time.Now()}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func createProposal(t *testing.T, store repository.Store, p models.Proposal) *models.Proposal {
	t.Helper()
	if p.ImageKeys == nil {
		p.ImageKeys = []string{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	require.NoError(t, store.Proposals().Create(context.Background(), &p))
	return &p
}

func TestWithTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx repository.Store) error {
		createUser(t, tx, "ghost")
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Users().GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProposalRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	author := createUser(t, store, "author")
	price := decimal.RequireFromString("42.50")
	location := "Harbour"

	in := createProposal(t, store, models.Proposal{
		ID:        "p1",
		Title:     "Sunset sail",
		Category:  "outdoor",
		ImageKeys: []string{"proposals/a.jpg", "proposals/b.jpg"},
		Location:  &location,
		Price:     &price,
		CreatedBy: &author.ID,
		IsActive:  true,
	})

	out, err := store.Proposals().GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ImageKeys, out.ImageKeys)
	require.NotNil(t, out.Price)
	assert.True(t, price.Equal(*out.Price), out.Price.String())
	assert.Equal(t, location, *out.Location)
	assert.Nil(t, out.URL)
	assert.Nil(t, out.CoupleID)
}

func TestListSwipeableExcludesSwipedAndForeign(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1")
	mine, other := "c1", "c2"
	base := time.Now()

	createProposal(t, store, models.Proposal{ID: "preset", Title: "preset", IsActive: true, CreatedAt: base})
	createProposal(t, store, models.Proposal{ID: "own", Title: "own", CoupleID: &mine, IsActive: true, CreatedAt: base.Add(time.Second)})
	createProposal(t, store, models.Proposal{ID: "foreign", Title: "foreign", CoupleID: &other, IsActive: true, CreatedAt: base.Add(2 * time.Second)})
	createProposal(t, store, models.Proposal{ID: "inactive", Title: "inactive", CreatedAt: base.Add(3 * time.Second)})
	createProposal(t, store, models.Proposal{ID: "swiped", Title: "swiped", IsActive: true, CreatedAt: base.Add(4 * time.Second)})
	require.NoError(t, store.Swipes().Create(ctx, &models.Swipe{
		ID: "s1", UserID: "u1", ProposalID: "swiped", Direction: models.DirectionLeft, CreatedAt: base,
	}))

	got, err := store.Proposals().ListSwipeable(ctx, "u1", &mine, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"own", "preset"}, ids)
}

func TestMatchCreateIfAbsentReturnsExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createProposal(t, store, models.Proposal{ID: "p1", Title: "p1", IsActive: true})

	newMatch := func() *models.Match {
		return &models.Match{
			ID: uuid.New().String(), CoupleID: "c1", ProposalID: "p1",
			Status: models.MatchStatusMatched, MatchedAt: time.Now(), PartnerSelectedDates: []string{},
		}
	}

	first, created, err := store.Matches().CreateIfAbsent(ctx, newMatch())
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.Matches().CreateIfAbsent(ctx, newMatch())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestPlanSlotsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	evening := "19:30"
	now := time.Now()

	plan := &models.Plan{
		ID:          "plan-1",
		CoupleID:    "c1",
		Title:       "Weekend",
		ProposalIDs: []string{"p1", "p2"},
		CandidateSlots: []models.CandidateSlot{
			{Date: "2024-06-01"},
			{Date: "2024-06-03", Time: &evening},
		},
		Status:    models.PlanStatusDraft,
		CreatedBy: "u1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Plans().Create(ctx, plan))

	out, err := store.Plans().GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ProposalIDs, out.ProposalIDs)
	assert.Equal(t, plan.CandidateSlots, out.CandidateSlots)
	assert.WithinDuration(t, now, out.CreatedAt, time.Millisecond)
}

func TestLockMissingCouple(t *testing.T) {
	store := newTestStore(t)
	err := store.WithTx(context.Background(), func(tx repository.Store) error {
		return tx.Couples().Lock(context.Background(), "nope")
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

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
	store := newTestStore(t)
	ctx := context.Background()
	users := services.NewUserService(store, "pg-secret")
	couples := services.NewCoupleService(store, nil, nil, services.DefaultInviteCodePolicy)
	swipes := services.NewSwipeService(store, nil, nil, nil)

	a, err := users.CreateUser(ctx, "Alice")
	require.NoError(t, err)
	b, err := users.CreateUser(ctx, "Bob")
	require.NoError(t, err)
	created, err := couples.Create(ctx, a.User.ID)
	require.NoError(t, err)
	_, err = couples.Join(ctx, b.User.ID, created.InviteCode)
	require.NoError(t, err)

	const rounds = 20
	for i := 0; i < rounds; i++ {
		p := createProposal(t, store, models.Proposal{ID: fmt.Sprintf("p%d", i), Title: "concert", IsActive: true})
		results := make([]*services.SwipeResult, 2)
		swipeAs := func(slot int, userID string) func() error {
			return func() (err error) {
				results[slot], err = swipes.CreateAndCheckMatch(ctx, userID, services.SwipeRequest{
					ProposalID: p.ID, Direction: models.DirectionRight,
				})
				return err
			}
		}
		errs := together(swipeAs(0, a.User.ID), swipeAs(1, b.User.ID))
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.True(t, results[0].Matched || results[1].Matched, "round %d", i)
	}

	matches, err := store.Matches().ListByCouple(ctx, created.CoupleID)
	require.NoError(t, err)
	assert.Len(t, matches, rounds)
}

func TestSimultaneousJoinsAdmitOneMember(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := services.NewUserService(store, "pg-secret")
	couples := services.NewCoupleService(store, nil, nil, services.DefaultInviteCodePolicy)

	var ids []string
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		resp, err := users.CreateUser(ctx, name)
		require.NoError(t, err)
		ids = append(ids, resp.User.ID)
	}
	created, err := couples.Create(ctx, ids[0])
	require.NoError(t, err)

	errs := together(
		func() error { _, err := couples.Join(ctx, ids[1], created.InviteCode); return err },
		func() error { _, err := couples.Join(ctx, ids[2], created.InviteCode); return err },
	)
	var joined int
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		assert.ErrorIs(t, err, services.ErrConflict)
	}
	assert.Equal(t, 1, joined)

	members, err := store.Users().ListByCouple(ctx, created.CoupleID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestSimultaneousCreatesLinkOneCouple(t *testing.T) {
	store, pool := newTestDB(t)
	ctx := context.Background()
	users := services.NewUserService(store, "pg-secret")
	couples := services.NewCoupleService(store, nil, nil, services.DefaultInviteCodePolicy)

	resp, err := users.CreateUser(ctx, "Alice")
	require.NoError(t, err)

	create := func() error { _, err := couples.Create(ctx, resp.User.ID); return err }
	errs := together(create, create)
	assert.NotEqual(t, errs[0] == nil, errs[1] == nil, "exactly one create succeeds: %v", errs)
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, services.ErrConflict)
		}
	}

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM couples`).Scan(&count))
	assert.Equal(t, 1, count)
}
