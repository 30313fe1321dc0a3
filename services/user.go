package services

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/apperr"
	"heartmatch/models"
	"heartmatch/repositories"
)

// ProfileCache stores public profiles between reads. Implementations must
// tolerate misses and failures; the repository stays the source of truth.
type ProfileCache interface {
	GetProfile(ctx context.Context, userID string) (*models.PublicProfile, bool)
	SetProfile(ctx context.Context, p models.PublicProfile)
	InvalidateProfile(ctx context.Context, userID string)
}

type UserService struct {
	users repositories.UserRepository
	cache ProfileCache
}

// NewUserService wires the user directory. cache may be nil.
func NewUserService(users repositories.UserRepository, cache ProfileCache) *UserService {
	return &UserService{users: users, cache: cache}
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	id, err := parseID(userID, "Invalid user id")
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	return u, nil
}

func (s *UserService) PublicProfile(ctx context.Context, userID string) (models.PublicProfile, error) {
	if s.cache != nil {
		if p, ok := s.cache.GetProfile(ctx, userID); ok {
			return *p, nil
		}
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return models.PublicProfile{}, err
	}
	p := u.PublicProfile()
	if s.cache != nil {
		s.cache.SetProfile(ctx, p)
	}
	return p, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	id, err := parseID(userID, "Invalid user id")
	if err != nil {
		return nil, err
	}
	if err := validateProfileUpdate(upd); err != nil {
		return nil, err
	}
	if upd.Empty() {
		return s.Get(ctx, userID)
	}

	u, err := s.users.UpdateProfile(ctx, id, upd)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	s.invalidate(ctx, userID)
	log.Debug("profile updated", "user", userID)
	return u, nil
}

func validateProfileUpdate(upd models.ProfileUpdate) error {
	if err := validateStruct(upd); err != nil {
		return err
	}
	if upd.Location != nil && !upd.Location.Valid() {
		return apperr.Validation("location coordinates are out of range")
	}
	if p := upd.Preferences; p != nil {
		lo, hi := p.EffectiveAgeRange()
		if lo > hi {
			return apperr.Validation("preferences.ageRange.min must not exceed max")
		}
		p.AgeRange = models.AgeRange{Min: lo, Max: hi}
		if p.MaxDistance == 0 {
			p.MaxDistance = models.DefaultMaxDistanceKm
		}
	}
	return nil
}

func (s *UserService) AddPhoto(ctx context.Context, userID, url string) (*models.User, error) {
	id, err := parseID(userID, "Invalid user id")
	if err != nil {
		return nil, err
	}
	u, err := s.users.AddPhoto(ctx, id, url)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	s.invalidate(ctx, userID)
	return u, nil
}

// SetOnline records presence reported by a realtime connection.
func (s *UserService) SetOnline(ctx context.Context, userID string, online bool) error {
	id, err := parseID(userID, "Invalid user id")
	if err != nil {
		return err
	}
	if err := s.users.SetOnline(ctx, id, online, time.Now()); err != nil {
		return storeErr(err, "User not found")
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *UserService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.InvalidateProfile(ctx, userID)
	}
}

func parseID(hex, msg string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.InvalidArgument(msg)
	}
	return id, nil
}
