package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

const (
	MinAge               = 18
	MaxAge               = 100
	DefaultMaxDistanceKm = 50
	MaxBioLength         = 500
	MaxInterestLength    = 50
	DefaultFeedLimit     = 20
)

// GeoPoint is a GeoJSON point; Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lng, lat float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p GeoPoint) Longitude() float64 { return p.Coordinates[0] }
func (p GeoPoint) Latitude() float64  { return p.Coordinates[1] }

func (p GeoPoint) Valid() bool {
	return p.Longitude() >= -180 && p.Longitude() <= 180 &&
		p.Latitude() >= -90 && p.Latitude() <= 90
}

type AgeRange struct {
	Min int `bson:"min" json:"min" validate:"omitempty,min=18,max=100"`
	Max int `bson:"max" json:"max" validate:"omitempty,min=18,max=100"`
}

type Preferences struct {
	AgeRange    AgeRange `bson:"ageRange" json:"ageRange"`
	MaxDistance float64  `bson:"maxDistance" json:"maxDistance" validate:"omitempty,gt=0"` // km
}

func DefaultPreferences() Preferences {
	return Preferences{
		AgeRange:    AgeRange{Min: MinAge, Max: MaxAge},
		MaxDistance: DefaultMaxDistanceKm,
	}
}

// EffectiveAgeRange falls back to the defaults for unset bounds.
func (p Preferences) EffectiveAgeRange() (int, int) {
	lo, hi := p.AgeRange.Min, p.AgeRange.Max
	if lo == 0 {
		lo = MinAge
	}
	if hi == 0 {
		hi = MaxAge
	}
	return lo, hi
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`

	Name         string    `bson:"name" json:"name"`
	Age          int       `bson:"age" json:"age"`
	Gender       Gender    `bson:"gender" json:"gender"`
	InterestedIn []Gender  `bson:"interestedIn" json:"interestedIn"`
	Bio          string    `bson:"bio" json:"bio"`
	Photos       []string  `bson:"photos" json:"photos"`
	Interests    []string  `bson:"interests" json:"interests"`
	Location     *GeoPoint `bson:"location,omitempty" json:"location,omitempty"`

	Preferences Preferences `bson:"preferences" json:"preferences"`

	Likes    []primitive.ObjectID `bson:"likes" json:"likes"`
	Dislikes []primitive.ObjectID `bson:"dislikes" json:"dislikes"`

	IsOnline   bool      `bson:"isOnline" json:"isOnline"`
	IsVerified bool      `bson:"isVerified" json:"isVerified"`
	LastActive time.Time `bson:"lastActive" json:"lastActive"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HasLiked(id primitive.ObjectID) bool    { return containsID(u.Likes, id) }
func (u *User) HasDisliked(id primitive.ObjectID) bool { return containsID(u.Dislikes, id) }

func (u *User) IsInterestedIn(g Gender) bool {
	for _, want := range u.InterestedIn {
		if want == g {
			return true
		}
	}
	return false
}

// PublicProfile is what other users see: no credentials, email or swipe history.
type PublicProfile struct {
	ID         primitive.ObjectID `json:"_id"`
	Name       string             `json:"name"`
	Age        int                `json:"age"`
	Gender     Gender             `json:"gender"`
	Bio        string             `json:"bio"`
	Interests  []string           `json:"interests"`
	Photos     []string           `json:"photos"`
	Location   *GeoPoint          `json:"location,omitempty"`
	IsOnline   bool               `json:"isOnline"`
	LastActive time.Time          `json:"lastActive"`
}

func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Name:       u.Name,
		Age:        u.Age,
		Gender:     u.Gender,
		Bio:        u.Bio,
		Interests:  nonNil(u.Interests),
		Photos:     nonNil(u.Photos),
		Location:   u.Location,
		IsOnline:   u.IsOnline,
		LastActive: u.LastActive,
	}
}

// OwnProfile is the authenticated user's view of themselves.
type OwnProfile struct {
	PublicProfile
	Email        string      `json:"email"`
	InterestedIn []Gender    `json:"interestedIn"`
	Preferences  Preferences `json:"preferences"`
	IsVerified   bool        `json:"isVerified"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func (u *User) OwnProfile() OwnProfile {
	interested := u.InterestedIn
	if interested == nil {
		interested = []Gender{}
	}
	return OwnProfile{
		PublicProfile: u.PublicProfile(),
		Email:         u.Email,
		InterestedIn:  interested,
		Preferences:   u.Preferences,
		IsVerified:    u.IsVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// SenderSummary is embedded in realtime message events.
type SenderSummary struct {
	ID     primitive.ObjectID `json:"_id"`
	Name   string             `json:"name"`
	Photos []string           `json:"photos"`
}

func (u *User) SenderSummary() SenderSummary {
	return SenderSummary{ID: u.ID, Name: u.Name, Photos: nonNil(u.Photos)}
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
