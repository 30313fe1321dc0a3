package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/apperr"
	"heartmatch/models"
	"heartmatch/repositories"
)

// FeedQuery carries the optional geo parameters of a feed request.
type FeedQuery struct {
	Latitude    *float64
	Longitude   *float64
	MaxDistance *float64 // km
}

type FeedService struct {
	users   repositories.UserRepository
	matches repositories.MatchRepository
	limit   int
}

func NewFeedService(users repositories.UserRepository, matches repositories.MatchRepository) *FeedService {
	return &FeedService{users: users, matches: matches, limit: models.DefaultFeedLimit}
}

// PotentialMatches returns up to 20 profiles the requester has not decided on
// and is not matched with, mutually compatible by gender and within the
// requester's age range. With both coordinates set the result is restricted
// to the distance radius and ordered nearest first.
func (s *FeedService) PotentialMatches(ctx context.Context, requesterID string, fq FeedQuery) ([]models.PublicProfile, error) {
	id, err := parseID(requesterID, "Invalid user id")
	if err != nil {
		return nil, err
	}
	me, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}

	q, err := s.buildQuery(ctx, me, fq)
	if err != nil {
		return nil, err
	}
	candidates, err := s.users.FindCandidates(ctx, q)
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}

	out := make([]models.PublicProfile, 0, len(candidates))
	for i := range candidates {
		out = append(out, candidates[i].PublicProfile())
	}
	return out, nil
}

func (s *FeedService) buildQuery(ctx context.Context, me *models.User, fq FeedQuery) (repositories.CandidateQuery, error) {
	active, err := s.matches.ListActiveForUser(ctx, me.ID)
	if err != nil {
		return repositories.CandidateQuery{}, apperr.Internal("Server error", err)
	}

	exclude := []primitive.ObjectID{me.ID}
	for _, m := range active {
		if other, err := m.Users.OtherParticipant(me.ID); err == nil {
			exclude = append(exclude, other)
		}
	}
	exclude = append(exclude, me.Likes...)
	exclude = append(exclude, me.Dislikes...)

	minAge, maxAge := me.Preferences.EffectiveAgeRange()
	q := repositories.CandidateQuery{
		Exclude:      exclude,
		Genders:      me.InterestedIn,
		SeekerGender: me.Gender,
		MinAge:       minAge,
		MaxAge:       maxAge,
		Limit:        s.limit,
	}

	if fq.Latitude != nil && fq.Longitude != nil {
		near := models.NewGeoPoint(*fq.Longitude, *fq.Latitude)
		if !near.Valid() {
			return q, apperr.InvalidArgument("latitude/longitude out of range")
		}
		q.Near = near
		switch {
		case fq.MaxDistance != nil && *fq.MaxDistance > 0:
			q.MaxDistanceKm = *fq.MaxDistance
		case me.Preferences.MaxDistance > 0:
			q.MaxDistanceKm = me.Preferences.MaxDistance
		default:
			q.MaxDistanceKm = models.DefaultMaxDistanceKm
		}
	}
	return q, nil
}
