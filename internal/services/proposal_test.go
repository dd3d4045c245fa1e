package services

import (
	"context"
	"testing"

	"pair-date-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueIDs(t *testing.T, e *env, userID string) []string {
	t.Helper()
	views, err := e.proposals.Queue(context.Background(), userID, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestCreateProposalSelfSwipes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b, coupleID := e.couple(t)

	price := decimal.RequireFromString("24.50")
	p, err := e.proposals.Create(ctx, a.ID, CreateProposalRequest{
		Title:     "  Ramen night ",
		Category:  "food",
		ImageKeys: []string{"k1.jpg"},
		Price:     &price,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ramen night", p.Title)
	require.NotNil(t, p.CoupleID)
	assert.Equal(t, coupleID, *p.CoupleID)
	assert.True(t, p.IsActive)

	own := swipesFor(t, e, a.ID, p.ID)
	require.Len(t, own, 1)
	assert.Equal(t, models.DirectionRight, own[0].Direction)

	assert.NotContains(t, queueIDs(t, e, a.ID), p.ID)
	assert.Contains(t, queueIDs(t, e, b.ID), p.ID)
}

func TestCreateProposalValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, _, _ := e.couple(t)
	loner := e.user(t, "loner")

	_, err := e.proposals.Create(ctx, a.ID, CreateProposalRequest{Title: " ", Category: "x", ImageKeys: []string{"k"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.proposals.Create(ctx, a.ID, CreateProposalRequest{Title: "t", Category: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	negative := decimal.NewFromInt(-1)
	_, err = e.proposals.Create(ctx, a.ID, CreateProposalRequest{Title: "t", Category: "x", ImageKeys: []string{"k"}, Price: &negative})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.proposals.Create(ctx, loner.ID, CreateProposalRequest{Title: "t", Category: "x", ImageKeys: []string{"k"}})
	assert.ErrorIs(t, err, ErrNotInCouple)
}

func TestQueueFiltersSwipedForeignAndInactive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b, _ := e.couple(t)
	x, _, _ := e.couple(t)

	preset := e.preset(t, "beach")
	swiped := e.preset(t, "opera")
	foreign := e.proposal(t, x.ID, "elsewhere")
	removed := e.proposal(t, b.ID, "removed")
	require.NoError(t, e.proposals.Deactivate(ctx, b.ID, removed.ID))

	swipe(t, e, a.ID, swiped.ID, models.DirectionLeft)

	ids := queueIDs(t, e, a.ID)
	assert.Contains(t, ids, preset.ID)
	assert.NotContains(t, ids, swiped.ID)
	assert.NotContains(t, ids, foreign.ID)
	assert.NotContains(t, ids, removed.ID)
}

func TestQueueResolvesImages(t *testing.T) {
	e := newEnv(t)
	a, _, _ := e.couple(t)
	e.preset(t, "stars")

	views, err := e.proposals.Queue(context.Background(), a.ID, 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].ImagesResolved)
	assert.Len(t, views[0].ImageURLs, 1)

	e.proposals.images = fakeImages{fail: true}
	views, err = e.proposals.Queue(context.Background(), a.ID, 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].ImagesResolved)
	assert.Nil(t, views[0].ImageURLs)
	assert.Equal(t, []string{"https://cdn.example/stars.jpg"}, views[0].ImageKeys)
}

func TestDeactivateOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b, _ := e.couple(t)
	p := e.proposal(t, a.ID, "picnic")
	preset := e.preset(t, "walk")

	assert.ErrorIs(t, e.proposals.Deactivate(ctx, b.ID, p.ID), ErrForbidden)
	assert.ErrorIs(t, e.proposals.Deactivate(ctx, a.ID, preset.ID), ErrForbidden)
	assert.ErrorIs(t, e.proposals.Deactivate(ctx, a.ID, "missing"), ErrNotFound)
	require.NoError(t, e.proposals.Deactivate(ctx, a.ID, p.ID))

	stored, err := e.store.Proposals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestUploadURL(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, _, coupleID := e.couple(t)

	target, err := e.proposals.UploadURL(ctx, a.ID, "image/jpeg")
	require.NoError(t, err)
	assert.Contains(t, target.Key, coupleID)

	_, err = e.proposals.UploadURL(ctx, a.ID, "text/plain")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
