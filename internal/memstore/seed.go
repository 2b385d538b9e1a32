package memstore

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nekogravitycat/timetable-backend/internal/booking"
	"github.com/nekogravitycat/timetable-backend/internal/course"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
	"github.com/nekogravitycat/timetable-backend/internal/user"
	"github.com/nekogravitycat/timetable-backend/internal/venue"
)

// Seed is the YAML document loaded into a fresh store.
type Seed struct {
	Users    []SeedUser    `yaml:"users"`
	Courses  []SeedCourse  `yaml:"courses"`
	Venues   []SeedVenue   `yaml:"venues"`
	Bookings []SeedBooking `yaml:"bookings"`
}

type SeedUser struct {
	ID       string   `yaml:"id"`
	Email    string   `yaml:"email"`
	FullName string   `yaml:"full_name"`
	Role     string   `yaml:"role"`
	Courses  []string `yaml:"enrolled_course_ids"`
}

type SeedCourse struct {
	ID          string `yaml:"id"`
	Code        string `yaml:"code"`
	Title       string `yaml:"title"`
	CreditUnits int    `yaml:"credit_units"`
	LecturerID  string `yaml:"lecturer_id"`
	Level       int    `yaml:"level"`
}

type SeedVenue struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
	Location string `yaml:"location"`
	Type     string `yaml:"type"`
}

// SeedBooking is an existing class placement. Seeds that double-book a venue or
// lecturer are rejected.
type SeedBooking struct {
	ID         string `yaml:"id"`
	CourseID   string `yaml:"course_id"`
	VenueID    string `yaml:"venue_id"`
	LecturerID string `yaml:"lecturer_id"`
	Day        string `yaml:"day_of_week"`
	StartTime  string `yaml:"start_time"`
	EndTime    string `yaml:"end_time"`
}

// LoadSeedFile reads a YAML seed file and applies it to s.
func (s *Store) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return s.LoadSeed(raw)
}

// LoadSeed applies a YAML seed document to s.
func (s *Store) LoadSeed(raw []byte) error {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("%w: %w", errSeedInvalid, err)
	}
	return s.Apply(seed)
}

// Apply stores every record of seed, stopping at the first invalid one.
func (s *Store) Apply(seed Seed) error {
	for _, u := range seed.Users {
		err := s.PutUser(&user.User{
			ID:                u.ID,
			Email:             u.Email,
			FullName:          u.FullName,
			Role:              user.Role(u.Role),
			EnrolledCourseIDs: u.Courses,
			CreatedAt:         s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("%w: user %q: %w", errSeedInvalid, u.ID, err)
		}
	}
	for _, c := range seed.Courses {
		err := s.PutCourse(&course.Course{
			ID:          c.ID,
			Code:        c.Code,
			Title:       c.Title,
			CreditUnits: c.CreditUnits,
			LecturerID:  c.LecturerID,
			Level:       c.Level,
		})
		if err != nil {
			return fmt.Errorf("%w: course %q: %w", errSeedInvalid, c.ID, err)
		}
	}
	for _, v := range seed.Venues {
		err := s.PutVenue(&venue.Venue{
			ID:       v.ID,
			Name:     v.Name,
			Capacity: v.Capacity,
			Location: v.Location,
			Type:     venue.Type(v.Type),
		})
		if err != nil {
			return fmt.Errorf("%w: venue %q: %w", errSeedInvalid, v.ID, err)
		}
	}
	for _, b := range seed.Bookings {
		day, err := timeslot.ParseWeekday(b.Day)
		if err != nil {
			return fmt.Errorf("%w: booking %q: %w", errSeedInvalid, b.ID, err)
		}
		interval, err := timeslot.ParseInterval(b.StartTime, b.EndTime)
		if err != nil {
			return fmt.Errorf("%w: booking %q: %w", errSeedInvalid, b.ID, err)
		}
		err = booking.NewConflictDetector(s.Bookings()).Check(context.Background(), booking.Candidate{
			DayOfWeek:        day,
			Interval:         interval,
			VenueID:          b.VenueID,
			LecturerID:       b.LecturerID,
			ExcludeBookingID: b.ID,
		})
		if err != nil {
			return fmt.Errorf("%w: booking %q: %w", errSeedInvalid, b.ID, err)
		}
		now := s.now().UTC()
		err = s.PutBooking(&booking.Booking{
			ID:         b.ID,
			CourseID:   b.CourseID,
			VenueID:    b.VenueID,
			LecturerID: b.LecturerID,
			DayOfWeek:  day,
			Interval:   interval,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("%w: booking %q: %w", errSeedInvalid, b.ID, err)
		}
	}
	return nil
}
