package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/apperr"
	"heartmatch/models"
)

type mockProfileCache struct {
	mock.Mock
}

func (m *mockProfileCache) GetProfile(ctx context.Context, userID string) (*models.PublicProfile, bool) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*models.PublicProfile)
	return p, args.Bool(1)
}

func (m *mockProfileCache) SetProfile(ctx context.Context, p models.PublicProfile) {
	m.Called(ctx, p)
}

func (m *mockProfileCache) InvalidateProfile(ctx context.Context, userID string) {
	m.Called(ctx, userID)
}

func ptr[T any](v T) *T { return &v }

func TestUpdateProfileAllowList(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada", 24, models.GenderFemale, models.GenderMale)

	got, err := f.users.UpdateProfile(f.ctx, u.ID.Hex(), models.ProfileUpdate{
		Bio:       ptr("new bio"),
		Interests: &[]string{"hiking", "jazz"},
		Location:  models.NewGeoPoint(2.35, 48.85),
		Preferences: &models.Preferences{
			AgeRange: models.AgeRange{Min: 25},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "new bio", got.Bio)
	assert.Equal(t, []string{"hiking", "jazz"}, got.Interests)
	assert.Equal(t, "ada", got.Name)
	assert.Equal(t, 48.85, got.Location.Latitude())
	assert.Equal(t, models.AgeRange{Min: 25, Max: models.MaxAge}, got.Preferences.AgeRange)
	assert.Equal(t, float64(models.DefaultMaxDistanceKm), got.Preferences.MaxDistance)
}

func TestUpdateProfileValidation(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada", 24, models.GenderFemale, models.GenderMale)

	cases := map[string]models.ProfileUpdate{
		"long bio":       {Bio: ptr(strings.Repeat("x", 501))},
		"long interest":  {Interests: &[]string{strings.Repeat("x", 51)}},
		"underage":       {Age: ptr(17)},
		"bad location":   {Location: models.NewGeoPoint(181, 0)},
		"inverted range": {Preferences: &models.Preferences{AgeRange: models.AgeRange{Min: 40, Max: 30}}},
		"range too low":  {Preferences: &models.Preferences{AgeRange: models.AgeRange{Min: 16, Max: 30}}},
		"bad distance":   {Preferences: &models.Preferences{MaxDistance: -1}},
		"empty genders":  {InterestedIn: &[]models.Gender{}},
	}
	for name, upd := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.users.UpdateProfile(f.ctx, u.ID.Hex(), upd)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.UpdateProfile(f.ctx, primitive.NewObjectID().Hex(), models.ProfileUpdate{Bio: ptr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.users.UpdateProfile(f.ctx, "not-an-id", models.ProfileUpdate{})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestPublicProfileUsesCache(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada", 24, models.GenderFemale, models.GenderMale)
	cache := &mockProfileCache{}
	users := NewUserService(f.store.Users, cache)
	id := u.ID.Hex()

	cache.On("GetProfile", mock.Anything, id).Return(nil, false).Once()
	cache.On("SetProfile", mock.Anything, mock.MatchedBy(func(p models.PublicProfile) bool {
		return p.ID == u.ID
	})).Once()

	p, err := users.PublicProfile(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ada", p.Name)

	cached := &models.PublicProfile{ID: u.ID, Name: "cached"}
	cache.On("GetProfile", mock.Anything, id).Return(cached, true).Once()
	p, err = users.PublicProfile(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cached", p.Name)

	cache.On("InvalidateProfile", mock.Anything, id).Once()
	_, err = users.UpdateProfile(f.ctx, id, models.ProfileUpdate{Name: ptr("Ada L")})
	require.NoError(t, err)

	cache.AssertExpectations(t)
}

func TestPublicProfileNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.PublicProfile(f.ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetOnline(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada", 24, models.GenderFemale, models.GenderMale)

	require.NoError(t, f.users.SetOnline(f.ctx, u.ID.Hex(), true))
	got := f.reload(t, u)
	assert.True(t, got.IsOnline)
	assert.False(t, got.LastActive.IsZero())
}
