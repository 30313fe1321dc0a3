package services

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/apperr"
	"heartmatch/models"
	"heartmatch/repositories"
)

type LikeResult struct {
	IsMatch        bool                `json:"isMatch"`
	MatchID        *primitive.ObjectID `json:"matchId,omitempty"`
	AlreadyMatched bool                `json:"-"`
}

type NewMatchEvent struct {
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

type UnmatchEvent struct {
	MatchID string `json:"matchId"`
}

// SwipeService records likes and passes and owns match lifecycle.
type SwipeService struct {
	users    repositories.UserRepository
	matches  repositories.MatchRepository
	tx       repositories.Transactor
	notifier Notifier
	profiles *UserService
	now      func() time.Time
}

func NewSwipeService(store *repositories.Store, profiles *UserService, notifier Notifier) *SwipeService {
	return &SwipeService{
		users:    store.Users,
		matches:  store.Matches,
		tx:       store.Tx,
		notifier: notifier,
		profiles: profiles,
		now:      time.Now,
	}
}

// Like records actor's like on target. The like is written before the
// reciprocal check so that two users liking each other at the same time both
// observe the other's like in at least one of the two calls; the match insert
// itself is an upsert on the pair, so both calls converge on a single match.
func (s *SwipeService) Like(ctx context.Context, actorID, targetID string) (*LikeResult, error) {
	actor, target, err := s.parsePair(actorID, targetID)
	if err != nil {
		return nil, err
	}
	if actor == target {
		return nil, apperr.InvalidArgument("Cannot like yourself")
	}
	pair, _ := models.NewPair(actor, target)

	if _, err := s.users.GetByID(ctx, target); err != nil {
		return nil, storeErr(err, "User not found")
	}

	existing, err := s.matches.FindActiveByPair(ctx, pair)
	if err == nil {
		return &LikeResult{IsMatch: true, MatchID: &existing.ID, AlreadyMatched: true}, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Internal("Server error", err)
	}

	if err := s.users.AddLike(ctx, actor, target); err != nil {
		return nil, storeErr(err, "User not found")
	}

	targetUser, err := s.users.GetByID(ctx, target)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	if !targetUser.HasLiked(actor) {
		log.Debug("like recorded", "actor", actorID, "target", targetID)
		return &LikeResult{IsMatch: false}, nil
	}

	match, created, err := s.createMatch(ctx, pair)
	if err != nil {
		return nil, err
	}
	if created {
		log.Info("match created", "match", match.ID.Hex(), "actor", actorID, "target", targetID)
		s.notifier.Notify(ctx, targetID, EventNewMatch, NewMatchEvent{
			MatchID: match.ID.Hex(),
			UserID:  actorID,
		})
	}
	return &LikeResult{IsMatch: true, MatchID: &match.ID, AlreadyMatched: !created}, nil
}

// createMatch upserts the active match for pair and makes the like symmetric
// on both profiles.
func (s *SwipeService) createMatch(ctx context.Context, pair models.Pair) (*models.Match, bool, error) {
	var (
		match   *models.Match
		created bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		match, created, err = s.matches.UpsertActive(ctx, models.NewMatch(pair, s.now()))
		if err != nil {
			return err
		}
		if err := s.users.AddLike(ctx, pair[0], pair[1]); err != nil {
			return err
		}
		return s.users.AddLike(ctx, pair[1], pair[0])
	})
	if err != nil {
		return nil, false, storeErr(err, "User not found")
	}
	return match, created, nil
}

// Pass records actor's pass on target. Passing never creates a match.
func (s *SwipeService) Pass(ctx context.Context, actorID, targetID string) error {
	actor, target, err := s.parsePair(actorID, targetID)
	if err != nil {
		return err
	}
	if actor == target {
		return apperr.InvalidArgument("Cannot pass yourself")
	}
	if _, err := s.users.GetByID(ctx, target); err != nil {
		return storeErr(err, "User not found")
	}
	if err := s.users.AddDislike(ctx, actor, target); err != nil {
		return storeErr(err, "User not found")
	}
	log.Debug("pass recorded", "actor", actorID, "target", targetID)
	return nil
}

func (s *SwipeService) parsePair(actorID, targetID string) (primitive.ObjectID, primitive.ObjectID, error) {
	if targetID == "" {
		return primitive.NilObjectID, primitive.NilObjectID, apperr.InvalidArgument("Target user ID is required")
	}
	actor, err := parseID(actorID, "Invalid user id")
	if err != nil {
		return actor, primitive.NilObjectID, err
	}
	target, err := parseID(targetID, "Invalid target user id")
	return actor, target, err
}

// ListMatches returns the requester's active matches, most recent activity first.
func (s *SwipeService) ListMatches(ctx context.Context, requesterID string) ([]models.MatchSummary, error) {
	me, err := parseID(requesterID, "Invalid user id")
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.ListActiveForUser(ctx, me)
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}

	out := make([]models.MatchSummary, 0, len(matches))
	for i := range matches {
		summary, err := s.summarize(ctx, &matches[i], me)
		if errors.Is(err, apperr.ErrNotFound) {
			// the other account no longer exists
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *SwipeService) GetMatch(ctx context.Context, requesterID, matchID string) (*models.MatchSummary, error) {
	me, match, err := s.activeMatchFor(ctx, requesterID, matchID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, match, me)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Unmatch deactivates the match and tells the other participant.
func (s *SwipeService) Unmatch(ctx context.Context, requesterID, matchID string) error {
	me, match, err := s.activeMatchFor(ctx, requesterID, matchID)
	if err != nil {
		return err
	}
	other, _ := match.Users.OtherParticipant(me)

	if err := s.matches.Deactivate(ctx, match.ID); err != nil {
		return storeErr(err, "Match not found")
	}
	log.Info("unmatched", "match", matchID, "by", requesterID)
	s.notifier.Notify(ctx, other.Hex(), EventUnmatch, UnmatchEvent{MatchID: matchID})
	return nil
}

// activeMatchFor loads an active match the requester participates in.
// Foreign and inactive matches are reported as NotFound alike.
func (s *SwipeService) activeMatchFor(ctx context.Context, requesterID, matchID string) (primitive.ObjectID, *models.Match, error) {
	return loadActiveMatch(ctx, s.matches, requesterID, matchID)
}

func (s *SwipeService) summarize(ctx context.Context, m *models.Match, me primitive.ObjectID) (models.MatchSummary, error) {
	other, err := m.Users.OtherParticipant(me)
	if err != nil {
		return models.MatchSummary{}, apperr.NotFound("Match not found")
	}
	profile, err := s.profiles.PublicProfile(ctx, other.Hex())
	if err != nil {
		return models.MatchSummary{}, err
	}
	return models.MatchSummary{
		MatchID:       m.ID,
		User:          profile,
		LastMessageAt: m.LastMessageAt,
		CreatedAt:     m.CreatedAt,
		UnreadCount:   m.UnreadFor(me),
	}, nil
}

func loadActiveMatch(ctx context.Context, matches repositories.MatchRepository, requesterID, matchID string) (primitive.ObjectID, *models.Match, error) {
	me, err := parseID(requesterID, "Invalid user id")
	if err != nil {
		return me, nil, err
	}
	id, err := parseID(matchID, "Invalid match id")
	if err != nil {
		return me, nil, err
	}
	m, err := matches.GetActive(ctx, id)
	if err != nil {
		return me, nil, storeErr(err, "Match not found")
	}
	if !m.Users.Contains(me) {
		return me, nil, apperr.NotFound("Match not found")
	}
	return me, m, nil
}
