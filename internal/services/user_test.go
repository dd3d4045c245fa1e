package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserIssuesToken(t *testing.T) {
	e := newEnv(t)
	resp, err := e.users.CreateUser(context.Background(), "  Mia ")
	require.NoError(t, err)
	assert.Equal(t, "Mia", resp.User.DisplayName)

	userID, err := e.users.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)

	other := NewUserService(e.store, "another-secret")
	_, err = other.ValidateJWT(resp.Token)
	assert.Error(t, err)
}

func TestSetPushToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "u")

	require.NoError(t, e.users.SetPushToken(ctx, u.ID, strPtr(" tok ")))
	got, err := e.users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PushToken)
	assert.Equal(t, "tok", *got.PushToken)

	require.NoError(t, e.users.SetPushToken(ctx, u.ID, strPtr("")))
	got, err = e.users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PushToken)

	assert.ErrorIs(t, e.users.SetPushToken(ctx, "missing", nil), ErrNotFound)
	_, err = e.users.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
