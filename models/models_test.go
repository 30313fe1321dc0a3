package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewPairIsOrderIndependent(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	p1, err := NewPair(a, b)
	require.NoError(t, err)
	p2, err := NewPair(b, a)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, p1.Key(), p2.Key())
	assert.True(t, p1.Contains(a))
	assert.True(t, p1.Contains(b))
}

func TestNewPairRejectsSelf(t *testing.T) {
	a := primitive.NewObjectID()
	_, err := NewPair(a, a)
	assert.ErrorIs(t, err, ErrSelfPair)
}

func TestOtherParticipant(t *testing.T) {
	a, b, stranger := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	pair, err := NewPair(a, b)
	require.NoError(t, err)

	other, err := pair.OtherParticipant(a)
	require.NoError(t, err)
	assert.Equal(t, b, other)

	other, err = pair.OtherParticipant(b)
	require.NoError(t, err)
	assert.Equal(t, a, other)

	_, err = pair.OtherParticipant(stranger)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestNewMatch(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	pair, _ := NewPair(a, b)
	now := time.Now()

	m := NewMatch(pair, now)
	assert.True(t, m.IsActive)
	assert.Equal(t, pair.Key(), m.PairKey)
	assert.Equal(t, now, m.LastMessageAt)
	assert.Equal(t, 0, m.UnreadFor(a))
	assert.Equal(t, 0, m.UnreadFor(b))
}

func TestPublicProfileHidesPrivateFields(t *testing.T) {
	u := &User{
		ID:           primitive.NewObjectID(),
		Email:        "a@example.com",
		PasswordHash: "hash",
		Name:         "Ada",
		Likes:        []primitive.ObjectID{primitive.NewObjectID()},
	}
	p := u.PublicProfile()
	assert.Equal(t, "Ada", p.Name)
	assert.NotNil(t, p.Photos)
	assert.NotNil(t, p.Interests)
}

func TestPreferencesEffectiveAgeRange(t *testing.T) {
	lo, hi := Preferences{}.EffectiveAgeRange()
	assert.Equal(t, MinAge, lo)
	assert.Equal(t, MaxAge, hi)

	lo, hi = Preferences{AgeRange: AgeRange{Min: 25, Max: 30}}.EffectiveAgeRange()
	assert.Equal(t, 25, lo)
	assert.Equal(t, 30, hi)
}

func TestGeoPointValid(t *testing.T) {
	assert.True(t, NewGeoPoint(12.49, 41.9).Valid())
	assert.False(t, NewGeoPoint(200, 0).Valid())
	assert.False(t, NewGeoPoint(0, -91).Valid())
}
