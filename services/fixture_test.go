package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"heartmatch/models"
	"heartmatch/repositories"
)

type sentEvent struct {
	UserID  string
	Event   string
	Payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, userID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{UserID: userID, Event: event, Payload: payload})
}

func (r *recordingNotifier) sentTo(userID, event string) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, e := range r.events {
		if e.UserID == userID && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx      context.Context
	store    *repositories.Store
	notifier *recordingNotifier
	tokens   *TokenService
	users    *UserService
	auth     *AuthService
	feed     *FeedService
	swipe    *SwipeService
	chat     *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	notifier := &recordingNotifier{}
	tokens := NewTokenService("test-secret", time.Hour)
	users := NewUserService(store.Users, nil)

	f := &fixture{
		ctx:      context.Background(),
		store:    store,
		notifier: notifier,
		tokens:   tokens,
		users:    users,
		auth:     NewAuthService(store.Users, tokens),
		feed:     NewFeedService(store.Users, store.Matches),
		swipe:    NewSwipeService(store, users, notifier),
		chat:     NewChatService(store, notifier),
	}

	// strictly increasing clock so message ordering is deterministic
	var mu sync.Mutex
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f.chat.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

// seed inserts a user directly, skipping password hashing.
func (f *fixture) seed(t *testing.T, name string, age int, g models.Gender, wants ...models.Gender) *models.User {
	t.Helper()
	now := time.Now()
	u := &models.User{
		Email:        name + "@example.com",
		Name:         name,
		Age:          age,
		Gender:       g,
		InterestedIn: wants,
		Preferences:  models.DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.store.Users.Create(f.ctx, u))
	return u
}

func (f *fixture) reload(t *testing.T, u *models.User) *models.User {
	t.Helper()
	got, err := f.store.Users.GetByID(f.ctx, u.ID)
	require.NoError(t, err)
	return got
}

// match makes a and b like each other and returns the match id.
func (f *fixture) match(t *testing.T, a, b *models.User) string {
	t.Helper()
	_, err := f.swipe.Like(f.ctx, a.ID.Hex(), b.ID.Hex())
	require.NoError(t, err)
	res, err := f.swipe.Like(f.ctx, b.ID.Hex(), a.ID.Hex())
	require.NoError(t, err)
	require.True(t, res.IsMatch)
	return res.MatchID.Hex()
}
