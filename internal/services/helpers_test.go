package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pair-date-backend/internal/models"
	"pair-date-backend/internal/push"
	"pair-date-backend/internal/repository/memory"
	"pair-date-backend/internal/storage"

	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	userID  string
	message WSMessage
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) Publish(userID string, message WSMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{userID: userID, message: message})
}

func (f *fakeEvents) ofType(typ string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.message.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fakePush struct {
	mu   sync.Mutex
	sent []push.Notification
}

func (f *fakePush) Enqueue(n push.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return true
}

func (f *fakePush) all() []push.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]push.Notification(nil), f.sent...)
}

type fakeImages struct {
	fail bool
}

func (f fakeImages) ResolveAll(_ context.Context, keys []string) ([]string, error) {
	if f.fail {
		return nil, errors.New("storage unavailable")
	}
	urls := make([]string, 0, len(keys))
	for _, k := range keys {
		urls = append(urls, "https://img.example/"+k)
	}
	return urls, nil
}

func (f fakeImages) UploadURL(_ context.Context, prefix, contentType string) (*storage.UploadTarget, error) {
	if contentType != "image/jpeg" {
		return nil, storage.ErrUnsupportedMimeType
	}
	return &storage.UploadTarget{UploadURL: "https://upload.example/" + prefix, Key: "proposals/" + prefix + "/x.jpg", ExpiresIn: 3600}, nil
}

type env struct {
	store     *memory.Store
	events    *fakeEvents
	push      *fakePush
	users     *UserService
	couples   *CoupleService
	proposals *ProposalService
	swipes    *SwipeService
	matches   *MatchService
	plans     *PlanService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	events := &fakeEvents{}
	pq := &fakePush{}
	return &env{
		store:     store,
		events:    events,
		push:      pq,
		users:     NewUserService(store, "test-secret"),
		couples:   NewCoupleService(store, events, nil, DefaultInviteCodePolicy),
		proposals: NewProposalService(store, fakeImages{}, nil),
		swipes:    NewSwipeService(store, pq, events, nil),
		matches:   NewMatchService(store, fakeImages{}),
		plans:     NewPlanService(store, events),
	}
}

func (e *env) user(t *testing.T, name string) *models.User {
	t.Helper()
	resp, err := e.users.CreateUser(context.Background(), name)
	require.NoError(t, err)
	// distinct creation times keep member ordering stable
	time.Sleep(time.Millisecond)
	return resp.User
}

// couple creates A and B, pairs them and returns (a, b, coupleID)
func (e *env) couple(t *testing.T) (*models.User, *models.User, string) {
	t.Helper()
	ctx := context.Background()
	a := e.user(t, "Alice")
	b := e.user(t, "Bob")
	created, err := e.couples.Create(ctx, a.ID)
	require.NoError(t, err)
	coupleID, err := e.couples.Join(ctx, b.ID, created.InviteCode)
	require.NoError(t, err)
	return a, b, coupleID
}

func (e *env) proposal(t *testing.T, userID, title string) *models.Proposal {
	t.Helper()
	p, err := e.proposals.Create(context.Background(), userID, CreateProposalRequest{
		Title:     title,
		Category:  "food",
		ImageKeys: []string{"proposals/" + title + ".jpg"},
	})
	require.NoError(t, err)
	return p
}

// preset inserts a global proposal directly into the store
func (e *env) preset(t *testing.T, title string) *models.Proposal {
	t.Helper()
	p := &models.Proposal{
		ID:        "preset-" + title,
		Title:     title,
		Category:  "outdoor",
		ImageKeys: []string{"https://cdn.example/" + title + ".jpg"},
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, e.store.Proposals().Create(context.Background(), p))
	return p
}

func strPtr(s string) *string { return &s }
