package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/timetable-backend/internal/course"
	"github.com/nekogravitycat/timetable-backend/internal/events"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
	"github.com/nekogravitycat/timetable-backend/internal/user"
	"github.com/nekogravitycat/timetable-backend/internal/venue"
)

type CreateRequest struct {
	CourseID   string
	VenueID    string
	LecturerID string
	DayOfWeek  timeslot.Weekday
	StartTime  timeslot.Clock
	EndTime    timeslot.Clock
}

// RescheduleRequest moves a booking. Day, start and end are always given together;
// a nil or empty VenueID keeps the current venue.
type RescheduleRequest struct {
	DayOfWeek timeslot.Weekday
	StartTime timeslot.Clock
	EndTime   timeslot.Clock
	VenueID   *string
}

type Service interface {
	Create(ctx context.Context, actor Actor, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	Reschedule(ctx context.Context, actor Actor, id string, req RescheduleRequest) (*Booking, error)
	Delete(ctx context.Context, actor Actor, id string) error

	// CheckAvailability lists the clashes c would cause without writing anything.
	CheckAvailability(ctx context.Context, c Candidate) ([]Conflict, error)
}

type service struct {
	repo      Repository
	courses   course.Service
	venues    venue.Service
	users     user.Service
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(
	repo Repository,
	courses course.Service,
	venues venue.Service,
	users user.Service,
	publisher events.Publisher,
	logger *zap.Logger,
) Service {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:      repo,
		courses:   courses,
		venues:    venues,
		users:     users,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// canCreate: admins book anyone, lecturers only themselves, students nothing.
func canCreate(actor Actor, lecturerID string) bool {
	switch actor.Role {
	case user.RoleAdmin:
		return actor.UserID != ""
	case user.RoleLecturer:
		return actor.UserID != "" && actor.UserID == lecturerID
	}
	return false
}

// canManage: admins manage every booking, lecturers the ones they teach.
func canManage(actor Actor, b *Booking) bool {
	return canCreate(actor, b.LecturerID)
}

func (s *service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Booking, error) {
	// 1. Permission
	if !canCreate(actor, req.LecturerID) {
		return nil, ErrPermissionDenied
	}

	// 2. Referenced records
	if err := s.requireCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}
	if err := s.requireVenue(ctx, req.VenueID); err != nil {
		return nil, err
	}
	if err := s.requireLecturer(ctx, req.LecturerID); err != nil {
		return nil, err
	}

	// 3. Range
	if !req.DayOfWeek.Valid() {
		return nil, ErrInvalidDay
	}
	interval, err := timeslot.NewInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		CourseID:   req.CourseID,
		VenueID:    req.VenueID,
		LecturerID: req.LecturerID,
		DayOfWeek:  req.DayOfWeek,
		Interval:   interval,
	}
	candidate := Candidate{
		DayOfWeek:  b.DayOfWeek,
		Interval:   b.Interval,
		VenueID:    b.VenueID,
		LecturerID: b.LecturerID,
	}

	// 4. Conflicts and write, under the venue and lecturer slot locks
	err = s.repo.WithSlotLocks(ctx, candidate.LockKeys(), func(ctx context.Context, repo Repository) error {
		if err := NewConflictDetector(repo).Check(ctx, candidate); err != nil {
			return err
		}
		return repo.Create(ctx, b)
	})
	if err != nil {
		s.logRejected("create", candidate, err)
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("actor_id", actor.UserID),
		zap.Stringer("day", b.DayOfWeek),
		zap.Stringer("interval", b.Interval),
	)
	s.publish(ctx, events.BookingCreated, b, actor)
	return b, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Reschedule(ctx context.Context, actor Actor, id string, req RescheduleRequest) (*Booking, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canManage(actor, existing) {
		return nil, ErrPermissionDenied
	}

	venueID := existing.VenueID
	if req.VenueID != nil && *req.VenueID != "" && *req.VenueID != existing.VenueID {
		if err := s.requireVenue(ctx, *req.VenueID); err != nil {
			return nil, err
		}
		venueID = *req.VenueID
	}

	if !req.DayOfWeek.Valid() {
		return nil, ErrInvalidDay
	}
	interval, err := timeslot.NewInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	// The lecturer is never reassigned by a reschedule.
	candidate := Candidate{
		DayOfWeek:        req.DayOfWeek,
		Interval:         interval,
		VenueID:          venueID,
		LecturerID:       existing.LecturerID,
		ExcludeBookingID: existing.ID,
	}

	var updated *Booking
	err = s.repo.WithSlotLocks(ctx, candidate.LockKeys(), func(ctx context.Context, repo Repository) error {
		// Re-read under the lock: the booking may have been deleted meanwhile.
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := NewConflictDetector(repo).Check(ctx, candidate); err != nil {
			return err
		}

		current.DayOfWeek = candidate.DayOfWeek
		current.Interval = candidate.Interval
		current.VenueID = candidate.VenueID
		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		s.logRejected("reschedule", candidate, err)
		return nil, err
	}

	s.logger.Info("booking rescheduled",
		zap.String("booking_id", updated.ID),
		zap.String("actor_id", actor.UserID),
		zap.Stringer("day", updated.DayOfWeek),
		zap.Stringer("interval", updated.Interval),
	)
	s.publish(ctx, events.BookingRescheduled, updated, actor)
	return updated, nil
}

// Delete removes a booking. Removal can only free slots, so nothing is re-validated.
func (s *service) Delete(ctx context.Context, actor Actor, id string) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !canManage(actor, b) {
		return ErrPermissionDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("booking deleted",
		zap.String("booking_id", id),
		zap.String("actor_id", actor.UserID),
	)
	s.publish(ctx, events.BookingDeleted, b, actor)
	return nil
}

func (s *service) CheckAvailability(ctx context.Context, c Candidate) ([]Conflict, error) {
	if !c.DayOfWeek.Valid() {
		return nil, ErrInvalidDay
	}
	if !c.Interval.Valid() {
		return nil, ErrInvalidTimeRange
	}
	return NewConflictDetector(s.repo).Find(ctx, c)
}

func (s *service) requireCourse(ctx context.Context, id string) error {
	if id == "" {
		return ErrCourseNotFound
	}
	if _, err := s.courses.GetByID(ctx, id); err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("lookup course: %w", err)
	}
	return nil
}

func (s *service) requireVenue(ctx context.Context, id string) error {
	if id == "" {
		return ErrVenueNotFound
	}
	if _, err := s.venues.GetByID(ctx, id); err != nil {
		if errors.Is(err, venue.ErrNotFound) {
			return ErrVenueNotFound
		}
		return fmt.Errorf("lookup venue: %w", err)
	}
	return nil
}

func (s *service) requireLecturer(ctx context.Context, id string) error {
	if id == "" {
		return ErrLecturerNotFound
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrLecturerNotFound
		}
		return fmt.Errorf("lookup lecturer: %w", err)
	}
	if u.Role != user.RoleLecturer {
		return ErrRoleMismatch
	}
	return nil
}

func (s *service) logRejected(op string, c Candidate, err error) {
	var conflictErr *ConflictError
	switch {
	case errors.As(err, &conflictErr):
		s.logger.Info("booking rejected: conflict",
			zap.String("op", op),
			zap.Stringer("day", c.DayOfWeek),
			zap.Stringer("interval", c.Interval),
			zap.Int("conflicts", len(conflictErr.Conflicts)),
		)
	case errors.Is(err, ErrBusy):
		s.logger.Warn("booking rejected: slot lock busy", zap.String("op", op))
	case errors.Is(err, ErrNotFound):
	default:
		s.logger.Error("booking write failed", zap.String("op", op), zap.Error(err))
	}
}

// publish is best effort: the booking is already committed.
func (s *service) publish(ctx context.Context, key string, b *Booking, actor Actor) {
	evt := events.BookingEvent{
		Type:       key,
		BookingID:  b.ID,
		CourseID:   b.CourseID,
		VenueID:    b.VenueID,
		LecturerID: b.LecturerID,
		DayOfWeek:  b.DayOfWeek.String(),
		StartTime:  b.Interval.Start.String(),
		EndTime:    b.Interval.End.String(),
		ActorID:    actor.UserID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, key, evt); err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("event_type", key),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}
