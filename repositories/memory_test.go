package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/models"
)

func TestMemoryUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	require.NoError(t, repo.Create(ctx, &models.User{Email: "a@example.com"}))
	err := repo.Create(ctx, &models.User{Email: "A@Example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryUserRepositoryAddDislikeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	u := &models.User{Email: "a@example.com"}
	require.NoError(t, repo.Create(ctx, u))
	target := primitive.NewObjectID()

	require.NoError(t, repo.AddDislike(ctx, u.ID, target))
	require.NoError(t, repo.AddDislike(ctx, u.ID, target))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{target}, got.Dislikes)

	assert.ErrorIs(t, repo.AddLike(ctx, primitive.NewObjectID(), target), ErrNotFound)
}

func TestMemoryUserRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	u := &models.User{Email: "a@example.com", Photos: []string{"x"}}
	require.NoError(t, repo.Create(ctx, u))

	got, _ := repo.GetByID(ctx, u.ID)
	got.Photos[0] = "mutated"

	again, _ := repo.GetByID(ctx, u.ID)
	assert.Equal(t, "x", again.Photos[0])
}

func TestMemoryMatchRepositoryUpsertActiveConverges(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMatchRepository()
	pair, _ := models.NewPair(primitive.NewObjectID(), primitive.NewObjectID())

	var wg sync.WaitGroup
	ids := make(chan primitive.ObjectID, 10)
	created := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, c, err := repo.UpsertActive(ctx, models.NewMatch(pair, time.Now()))
			if err == nil {
				ids <- m.ID
				created <- c
			}
		}()
	}
	wg.Wait()
	close(ids)
	close(created)

	var first primitive.ObjectID
	for id := range ids {
		if first.IsZero() {
			first = id
		}
		assert.Equal(t, first, id)
	}
	n := 0
	for c := range created {
		if c {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestMemoryMatchRepositoryDeactivate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMatchRepository()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	pair, _ := models.NewPair(a, b)
	m, _, err := repo.UpsertActive(ctx, models.NewMatch(pair, time.Now()))
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(ctx, m.ID))
	assert.ErrorIs(t, repo.Deactivate(ctx, m.ID), ErrNotFound)

	_, err = repo.GetActive(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.ListActiveForUser(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, list)

	// a new active match for the same pair is allowed after unmatch
	again, created, err := repo.UpsertActive(ctx, models.NewMatch(pair, time.Now()))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, m.ID, again.ID)
}

func TestMemoryMatchRepositoryUnreadCounters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMatchRepository()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	pair, _ := models.NewPair(a, b)
	m, _, _ := repo.UpsertActive(ctx, models.NewMatch(pair, time.Now()))

	at := time.Now().Add(time.Minute)
	require.NoError(t, repo.RecordMessage(ctx, m.ID, b, at))
	require.NoError(t, repo.RecordMessage(ctx, m.ID, b, at))

	got, _ := repo.GetActive(ctx, m.ID)
	assert.Equal(t, 2, got.UnreadFor(b))
	assert.Equal(t, 0, got.UnreadFor(a))
	assert.True(t, got.LastMessageAt.Equal(at))

	require.NoError(t, repo.ResetUnread(ctx, m.ID, b))
	got, _ = repo.GetActive(ctx, m.ID)
	assert.Equal(t, 0, got.UnreadFor(b))
}

func TestMemoryMessageRepositoryListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()
	matchID := primitive.NewObjectID()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &models.Message{
			MatchID:     matchID,
			SenderID:    a,
			RecipientID: b,
			Content:     string(rune('a' + i)),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Message{
		MatchID: matchID, SenderID: a, RecipientID: b, IsDeleted: true, CreatedAt: base.Add(time.Hour),
	}))

	page1, err := repo.ListByMatch(ctx, matchID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "e", page1[0].Content)
	assert.Equal(t, "d", page1[1].Content)

	page3, err := repo.ListByMatch(ctx, matchID, 4, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "a", page3[0].Content)

	n, err := repo.MarkRead(ctx, matchID, b, time.Now(), page1[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.MarkRead(ctx, matchID, a, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.MarkRead(ctx, matchID, b, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestMemoryPushSubscriptionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPushSubscriptionRepository()
	user := primitive.NewObjectID()

	require.NoError(t, repo.Upsert(ctx, &models.PushSubscription{UserID: user, Endpoint: "https://push/1"}))
	require.NoError(t, repo.Upsert(ctx, &models.PushSubscription{UserID: user, Endpoint: "https://push/2"}))

	sub, err := repo.GetByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "https://push/2", sub.Endpoint)

	require.NoError(t, repo.DeleteByUser(ctx, user))
	_, err = repo.GetByUser(ctx, user)
	assert.ErrorIs(t, err, ErrNotFound)
}
