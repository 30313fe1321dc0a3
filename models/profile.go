package models

import "time"

// ProfileUpdate is the allow-list of profile fields a user may change.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name         *string      `json:"name" validate:"omitempty,min=1,max=100"`
	Age          *int         `json:"age" validate:"omitempty,min=18,max=100"`
	Bio          *string      `json:"bio" validate:"omitempty,max=500"`
	Interests    *[]string    `json:"interests" validate:"omitempty,dive,min=1,max=50"`
	Photos       *[]string    `json:"photos" validate:"omitempty,dive,url"`
	InterestedIn *[]Gender    `json:"interestedIn" validate:"omitempty,min=1,dive,oneof=male female other"`
	Location     *GeoPoint    `json:"location"`
	Preferences  *Preferences `json:"preferences"`
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Age == nil && p.Bio == nil && p.Interests == nil &&
		p.Photos == nil && p.InterestedIn == nil && p.Location == nil && p.Preferences == nil
}

// ApplyTo copies the set fields onto u.
func (p ProfileUpdate) ApplyTo(u *User, now time.Time) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Interests != nil {
		u.Interests = append([]string{}, *p.Interests...)
	}
	if p.Photos != nil {
		u.Photos = append([]string{}, *p.Photos...)
	}
	if p.InterestedIn != nil {
		u.InterestedIn = append([]Gender{}, *p.InterestedIn...)
	}
	if p.Location != nil {
		loc := NewGeoPoint(p.Location.Longitude(), p.Location.Latitude())
		u.Location = loc
	}
	if p.Preferences != nil {
		u.Preferences = *p.Preferences
	}
	u.UpdatedAt = now
}
