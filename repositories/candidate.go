package repositories

import (
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/models"
)

const earthRadiusKm = 6378.1

// CandidateQuery describes the swipe feed filter for one requester.
type CandidateQuery struct {
	Exclude []primitive.ObjectID
	// Genders the requester is interested in; empty means any.
	Genders []models.Gender
	// SeekerGender must appear in the candidate's interestedIn.
	SeekerGender  models.Gender
	MinAge        int
	MaxAge        int
	Near          *models.GeoPoint
	MaxDistanceKm float64
	Limit         int
}

// Accepts reports whether u passes every filter of q.
func (q CandidateQuery) Accepts(u *models.User) bool {
	for _, id := range q.Exclude {
		if u.ID == id {
			return false
		}
	}
	if len(q.Genders) > 0 && !genderIn(u.Gender, q.Genders) {
		return false
	}
	if !u.IsInterestedIn(q.SeekerGender) {
		return false
	}
	if u.Age < q.MinAge || u.Age > q.MaxAge {
		return false
	}
	if q.Near != nil {
		if u.Location == nil {
			return false
		}
		if DistanceKm(*q.Near, *u.Location) > q.MaxDistanceKm {
			return false
		}
	}
	return true
}

// Filter renders q as a Mongo find filter. With Near set the filter uses $near,
// which returns documents nearest first.
func (q CandidateQuery) Filter() bson.M {
	filter := bson.M{
		"interestedIn": q.SeekerGender,
		"age":          bson.M{"$gte": q.MinAge, "$lte": q.MaxAge},
	}
	if len(q.Exclude) > 0 {
		filter["_id"] = bson.M{"$nin": q.Exclude}
	}
	if len(q.Genders) > 0 {
		filter["gender"] = bson.M{"$in": q.Genders}
	}
	if q.Near != nil {
		filter["location"] = bson.M{
			"$near": bson.M{
				"$geometry":    bson.M{"type": "Point", "coordinates": bson.A{q.Near.Longitude(), q.Near.Latitude()}},
				"$maxDistance": q.MaxDistanceKm * 1000,
			},
		}
	}
	return filter
}

// Select applies q to an unfiltered user list, ordering by distance when Near is set.
func (q CandidateQuery) Select(users []models.User) []models.User {
	out := make([]models.User, 0)
	for i := range users {
		if q.Accepts(&users[i]) {
			out = append(out, users[i])
		}
	}
	if q.Near != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return DistanceKm(*q.Near, *out[i].Location) < DistanceKm(*q.Near, *out[j].Location)
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// DistanceKm is the great-circle distance between two points.
func DistanceKm(a, b models.GeoPoint) float64 {
	lat1 := a.Latitude() * math.Pi / 180
	lat2 := b.Latitude() * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Longitude() - a.Longitude()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func genderIn(g models.Gender, set []models.Gender) bool {
	for _, s := range set {
		if s == g {
			return true
		}
	}
	return false
}
