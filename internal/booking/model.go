package booking

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/nekogravitycat/timetable-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
	"github.com/nekogravitycat/timetable-backend/internal/user"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "booking not found")
	ErrCourseNotFound   = apperror.New(http.StatusNotFound, "course not found")
	ErrVenueNotFound    = apperror.New(http.StatusNotFound, "venue not found")
	ErrLecturerNotFound = apperror.New(http.StatusNotFound, "lecturer not found")
	ErrStudentNotFound  = apperror.New(http.StatusNotFound, "student not found")
	ErrRoleMismatch     = apperror.New(http.StatusUnprocessableEntity, "user is not a lecturer")
	ErrTimeConflict     = apperror.New(http.StatusConflict, "time slot already booked")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
	ErrBusy             = apperror.New(http.StatusServiceUnavailable, "timetable is busy, try again")
	ErrMalformedRecord  = apperror.New(http.StatusInternalServerError, "malformed booking record")

	ErrInvalidTimeRange = timeslot.ErrInvalidRange
	ErrInvalidDay       = timeslot.ErrInvalidDay
	ErrInvalidClock     = timeslot.ErrInvalidClock
)

// Booking is one recurring weekly class slot: a course taught by a lecturer in a venue.
type Booking struct {
	ID         string
	CourseID   string
	VenueID    string
	LecturerID string
	DayOfWeek  timeslot.Weekday
	Interval   timeslot.Interval
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate rejects records that do not satisfy the booking shape.
func (b *Booking) Validate() error {
	if b.CourseID == "" || b.VenueID == "" || b.LecturerID == "" {
		return fmt.Errorf("%w: missing reference", ErrMalformedRecord)
	}
	if !b.DayOfWeek.Valid() {
		return fmt.Errorf("%w: invalid day %d", ErrMalformedRecord, int(b.DayOfWeek))
	}
	if !b.Interval.Valid() {
		return fmt.Errorf("%w: invalid interval %s", ErrMalformedRecord, b.Interval)
	}
	return nil
}

// Clone returns a copy that can be mutated freely.
func (b *Booking) Clone() *Booking {
	c := *b
	return &c
}

// Compare orders bookings by day, start time, end time and finally id.
func Compare(a, b *Booking) int {
	return cmp.Or(
		cmp.Compare(a.DayOfWeek, b.DayOfWeek),
		cmp.Compare(a.Interval.Start, b.Interval.Start),
		cmp.Compare(a.Interval.End, b.Interval.End),
		cmp.Compare(a.ID, b.ID),
	)
}

// Filter selects bookings by equality on single fields. Zero values are ignored,
// except CourseIDIn: a non-nil empty slice matches nothing.
type Filter struct {
	LecturerID string
	VenueID    string
	CourseID   string
	CourseIDIn []string
	DayOfWeek  timeslot.Weekday
}

// Matches reports whether b satisfies the filter.
func (f Filter) Matches(b *Booking) bool {
	if f.LecturerID != "" && b.LecturerID != f.LecturerID {
		return false
	}
	if f.VenueID != "" && b.VenueID != f.VenueID {
		return false
	}
	if f.CourseID != "" && b.CourseID != f.CourseID {
		return false
	}
	if f.CourseIDIn != nil && !slices.Contains(f.CourseIDIn, b.CourseID) {
		return false
	}
	if f.DayOfWeek != 0 && b.DayOfWeek != f.DayOfWeek {
		return false
	}
	return true
}

// Narrow returns a filter matching only bookings that satisfy both f and g.
// Contradicting equality fields yield a filter that matches nothing.
func (f Filter) Narrow(g Filter) Filter {
	out := f
	out.CourseIDIn = slices.Clone(f.CourseIDIn)
	none := false

	narrowID := func(dst *string, v string) {
		if v == "" {
			return
		}
		if *dst != "" && *dst != v {
			none = true
		}
		*dst = v
	}
	narrowID(&out.LecturerID, g.LecturerID)
	narrowID(&out.VenueID, g.VenueID)
	narrowID(&out.CourseID, g.CourseID)

	if g.DayOfWeek != 0 {
		if out.DayOfWeek != 0 && out.DayOfWeek != g.DayOfWeek {
			none = true
		}
		out.DayOfWeek = g.DayOfWeek
	}

	switch {
	case g.CourseIDIn == nil:
	case out.CourseIDIn == nil:
		out.CourseIDIn = slices.Clone(g.CourseIDIn)
	default:
		kept := make([]string, 0, len(out.CourseIDIn))
		for _, id := range out.CourseIDIn {
			if slices.Contains(g.CourseIDIn, id) {
				kept = append(kept, id)
			}
		}
		out.CourseIDIn = kept
	}

	if none {
		out.CourseIDIn = []string{}
	}
	return out
}

// Actor is the user performing an operation, resolved by the caller.
type Actor struct {
	UserID string
	Role   user.Role
}

// ResourceType names the dimension on which double-booking is forbidden.
type ResourceType string

const (
	ResourceVenue    ResourceType = "venue"
	ResourceLecturer ResourceType = "lecturer"
)

// order gives venues precedence over lecturers when sorting lock keys.
func (t ResourceType) order() int {
	if t == ResourceVenue {
		return 0
	}
	return 1
}

// LockKey identifies the set of bookings a create or reschedule must hold exclusively.
type LockKey struct {
	Resource   ResourceType
	ResourceID string
	Day        timeslot.Weekday
}

func (k LockKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Resource, k.ResourceID, k.Day)
}

// SortLockKeys returns the distinct keys in the global acquisition order:
// venue keys first, then lecturer keys, each by resource id and day.
func SortLockKeys(keys []LockKey) []LockKey {
	out := slices.Clone(keys)
	slices.SortFunc(out, func(a, b LockKey) int {
		return cmp.Or(
			cmp.Compare(a.Resource.order(), b.Resource.order()),
			cmp.Compare(a.ResourceID, b.ResourceID),
			cmp.Compare(a.Day, b.Day),
		)
	})
	return slices.Compact(out)
}
