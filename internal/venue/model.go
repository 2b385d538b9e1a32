package venue

import "errors"

var (
	ErrNotFound       = errors.New("venue not found")
	ErrMalformedVenue = errors.New("malformed venue record")
)

type Type string

const (
	TypeLab         Type = "lab"
	TypeLectureHall Type = "lecture_hall"
	TypeSeminarRoom Type = "seminar_room"
)

// Venue is a room classes are held in.
type Venue struct {
	ID       string
	Name     string
	Capacity int
	Location string
	Type     Type
}

// Validate rejects records missing required fields.
func (v *Venue) Validate() error {
	if v.ID == "" || v.Name == "" {
		return ErrMalformedVenue
	}
	switch v.Type {
	case TypeLab, TypeLectureHall, TypeSeminarRoom:
		return nil
	}
	return ErrMalformedVenue
}

// Filter defines parameters for listing venues.
type Filter struct {
	Type Type
}
