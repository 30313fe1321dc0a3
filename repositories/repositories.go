// Package repositories holds the persistence contracts and their Mongo and
// in-memory implementations.
package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error)
	AddPhoto(ctx context.Context, id primitive.ObjectID, url string) (*models.User, error)
	AddLike(ctx context.Context, actor, target primitive.ObjectID) error
	AddDislike(ctx context.Context, actor, target primitive.ObjectID) error
	SetOnline(ctx context.Context, id primitive.ObjectID, online bool, at time.Time) error
	FindCandidates(ctx context.Context, q CandidateQuery) ([]models.User, error)
}

type MatchRepository interface {
	// UpsertActive returns the active match for m's pair, inserting m if none
	// exists. created reports whether m was the one inserted.
	UpsertActive(ctx context.Context, m *models.Match) (match *models.Match, created bool, err error)
	FindActiveByPair(ctx context.Context, pair models.Pair) (*models.Match, error)
	GetActive(ctx context.Context, id primitive.ObjectID) (*models.Match, error)
	ListActiveForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Match, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	RecordMessage(ctx context.Context, id, recipient primitive.ObjectID, at time.Time) error
	ResetUnread(ctx context.Context, id, userID primitive.ObjectID) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	// ListByMatch returns non-deleted messages newest first.
	ListByMatch(ctx context.Context, matchID primitive.ObjectID, skip, limit int) ([]models.Message, error)
	// MarkRead marks unread messages addressed to reader as read. When ids is
	// empty every unread message of the match is affected.
	MarkRead(ctx context.Context, matchID, reader primitive.ObjectID, at time.Time, ids ...primitive.ObjectID) (int64, error)
}

type PushSubscriptionRepository interface {
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// Transactor runs fn atomically when the backing store supports it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the repositories the services need.
type Store struct {
	Users    UserRepository
	Matches  MatchRepository
	Messages MessageRepository
	Pushes   PushSubscriptionRepository
	Tx       Transactor
}
