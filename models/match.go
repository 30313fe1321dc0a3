package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrSelfPair       = errors.New("a pair needs two distinct users")
	ErrNotParticipant = errors.New("user is not a participant of this match")
)

// Pair is an unordered pair of two distinct users, stored in ascending id order.
type Pair [2]primitive.ObjectID

func NewPair(a, b primitive.ObjectID) (Pair, error) {
	if a == b {
		return Pair{}, ErrSelfPair
	}
	if a.Hex() > b.Hex() {
		a, b = b, a
	}
	return Pair{a, b}, nil
}

// Key identifies the pair regardless of argument order.
func (p Pair) Key() string {
	return p[0].Hex() + ":" + p[1].Hex()
}

func (p Pair) Contains(id primitive.ObjectID) bool {
	return p[0] == id || p[1] == id
}

// OtherParticipant returns the member of the pair that is not self.
func (p Pair) OtherParticipant(self primitive.ObjectID) (primitive.ObjectID, error) {
	switch self {
	case p[0]:
		return p[1], nil
	case p[1]:
		return p[0], nil
	}
	return primitive.NilObjectID, ErrNotParticipant
}

type Match struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Users         Pair               `bson:"users" json:"users"`
	PairKey       string             `bson:"pairKey" json:"-"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	MatchedAt     time.Time          `bson:"matchedAt" json:"matchedAt"`
	LastMessageAt time.Time          `bson:"lastMessageAt" json:"lastMessageAt"`
	UnreadCount   map[string]int     `bson:"unreadCount" json:"unreadCount"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewMatch builds an active match for pair stamped at now.
func NewMatch(pair Pair, now time.Time) *Match {
	return &Match{
		ID:            primitive.NewObjectID(),
		Users:         pair,
		PairKey:       pair.Key(),
		IsActive:      true,
		MatchedAt:     now,
		LastMessageAt: now,
		UnreadCount:   map[string]int{pair[0].Hex(): 0, pair[1].Hex(): 0},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (m *Match) UnreadFor(userID primitive.ObjectID) int {
	return m.UnreadCount[userID.Hex()]
}

// MatchSummary is the match list/detail view for one participant.
type MatchSummary struct {
	MatchID       primitive.ObjectID `json:"matchId"`
	User          PublicProfile      `json:"user"`
	LastMessageAt time.Time          `json:"lastMessageAt"`
	CreatedAt     time.Time          `json:"createdAt"`
	UnreadCount   int                `json:"unreadCount"`
}
