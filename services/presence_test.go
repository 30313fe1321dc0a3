package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartmatch/models"
)

func TestPresence(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, "a", 24, models.GenderFemale, models.GenderMale)
	b := f.seed(t, "b", 26, models.GenderMale, models.GenderFemale)
	c := f.seed(t, "c", 26, models.GenderMale, models.GenderFemale)
	matchID := f.match(t, a, b)
	p := NewPresence(f.users, f.store.Matches)

	assert.True(t, p.CanJoinMatch(f.ctx, a.ID.Hex(), matchID))
	assert.True(t, p.CanJoinMatch(f.ctx, b.ID.Hex(), matchID))
	assert.False(t, p.CanJoinMatch(f.ctx, c.ID.Hex(), matchID))
	assert.False(t, p.CanJoinMatch(f.ctx, a.ID.Hex(), "bogus"))

	p.SetOnline(f.ctx, a.ID.Hex(), true)
	assert.True(t, f.reload(t, a).IsOnline)
	p.SetOnline(f.ctx, a.ID.Hex(), false)
	assert.False(t, f.reload(t, a).IsOnline)

	require.NoError(t, f.swipe.Unmatch(f.ctx, a.ID.Hex(), matchID))
	assert.False(t, p.CanJoinMatch(f.ctx, a.ID.Hex(), matchID))
}
