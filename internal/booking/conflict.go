package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
)

// Candidate is a proposed placement of a booking.
type Candidate struct {
	DayOfWeek  timeslot.Weekday
	Interval   timeslot.Interval
	VenueID    string
	LecturerID string

	// ExcludeBookingID is ignored when looking for clashes, so a rescheduled
	// booking never conflicts with its own prior state.
	ExcludeBookingID string
}

// LockKeys returns the slot keys a write of this candidate must hold.
func (c Candidate) LockKeys() []LockKey {
	var keys []LockKey
	if c.VenueID != "" {
		keys = append(keys, LockKey{Resource: ResourceVenue, ResourceID: c.VenueID, Day: c.DayOfWeek})
	}
	if c.LecturerID != "" {
		keys = append(keys, LockKey{Resource: ResourceLecturer, ResourceID: c.LecturerID, Day: c.DayOfWeek})
	}
	return SortLockKeys(keys)
}

// Conflict is an existing booking that overlaps a candidate on one resource.
type Conflict struct {
	Resource   ResourceType
	ResourceID string
	Booking    *Booking
	Overlap    timeslot.Interval
}

// ConflictError reports every clash found for a candidate.
// It matches ErrTimeConflict with errors.Is.
type ConflictError struct {
	DayOfWeek timeslot.Weekday
	Interval  timeslot.Interval
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s %s is booked %s by booking %s",
			c.Resource, c.ResourceID, c.Overlap, c.Booking.ID))
	}
	return fmt.Sprintf("%s on %s %s: %s",
		ErrTimeConflict.Message, e.DayOfWeek, e.Interval, strings.Join(parts, "; "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrTimeConflict
}

// Resources returns the distinct resource types involved, venue first.
func (e *ConflictError) Resources() []ResourceType {
	var out []ResourceType
	for _, t := range []ResourceType{ResourceVenue, ResourceLecturer} {
		for _, c := range e.Conflicts {
			if c.Resource == t {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// ConflictDetector finds overlapping bookings for a venue or lecturer on a given day.
// It only reads from its repository.
type ConflictDetector struct {
	repo Repository
}

func NewConflictDetector(repo Repository) *ConflictDetector {
	return &ConflictDetector{repo: repo}
}

// FindVenueConflicts returns every booking in venueID on day that overlaps interval.
func (d *ConflictDetector) FindVenueConflicts(ctx context.Context, day timeslot.Weekday, venueID string, interval timeslot.Interval, excludeBookingID string) ([]Conflict, error) {
	return d.find(ctx, ResourceVenue, venueID, Filter{DayOfWeek: day, VenueID: venueID}, interval, excludeBookingID)
}

// FindLecturerConflicts returns every booking taught by lecturerID on day that overlaps interval.
func (d *ConflictDetector) FindLecturerConflicts(ctx context.Context, day timeslot.Weekday, lecturerID string, interval timeslot.Interval, excludeBookingID string) ([]Conflict, error) {
	return d.find(ctx, ResourceLecturer, lecturerID, Filter{DayOfWeek: day, LecturerID: lecturerID}, interval, excludeBookingID)
}

// Find runs the venue and lecturer lookups for c. Empty resource ids are skipped.
func (d *ConflictDetector) Find(ctx context.Context, c Candidate) ([]Conflict, error) {
	var all []Conflict
	if c.VenueID != "" {
		found, err := d.FindVenueConflicts(ctx, c.DayOfWeek, c.VenueID, c.Interval, c.ExcludeBookingID)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	if c.LecturerID != "" {
		found, err := d.FindLecturerConflicts(ctx, c.DayOfWeek, c.LecturerID, c.Interval, c.ExcludeBookingID)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	return all, nil
}

// Check returns a *ConflictError when c clashes with any existing booking.
func (d *ConflictDetector) Check(ctx context.Context, c Candidate) error {
	conflicts, err := d.Find(ctx, c)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictError{DayOfWeek: c.DayOfWeek, Interval: c.Interval, Conflicts: conflicts}
	}
	return nil
}

func (d *ConflictDetector) find(ctx context.Context, resource ResourceType, resourceID string, filter Filter, interval timeslot.Interval, excludeBookingID string) ([]Conflict, error) {
	existing, err := d.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s bookings: %w", resource, err)
	}

	var conflicts []Conflict
	for _, b := range existing {
		if excludeBookingID != "" && b.ID == excludeBookingID {
			continue
		}
		overlap, ok := timeslot.Intersect(interval, b.Interval)
		if !ok {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Resource:   resource,
			ResourceID: resourceID,
			Booking:    b,
			Overlap:    overlap,
		})
	}
	return conflicts, nil
}
