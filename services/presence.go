package services

import (
	"context"

	"github.com/charmbracelet/log"

	"heartmatch/repositories"
)

// Presence answers the realtime layer's questions about match membership and
// records online state.
type Presence struct {
	users   *UserService
	matches repositories.MatchRepository
}

func NewPresence(users *UserService, matches repositories.MatchRepository) *Presence {
	return &Presence{users: users, matches: matches}
}

func (p *Presence) CanJoinMatch(ctx context.Context, userID, matchID string) bool {
	_, _, err := loadActiveMatch(ctx, p.matches, userID, matchID)
	return err == nil
}

func (p *Presence) SetOnline(ctx context.Context, userID string, online bool) {
	if err := p.users.SetOnline(ctx, userID, online); err != nil {
		log.Warn("failed to record presence", "user", userID, "online", online, "err", err)
	}
}
