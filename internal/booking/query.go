package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nekogravitycat/timetable-backend/internal/course"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
	"github.com/nekogravitycat/timetable-backend/internal/user"
	"github.com/nekogravitycat/timetable-backend/internal/venue"
)

// Details is a booking joined with the records it references.
// A reference that no longer resolves is left nil.
type Details struct {
	Booking  *Booking
	Course   *course.Course
	Venue    *venue.Venue
	Lecturer *user.User
}

// Summary describes the current day for the dashboard.
type Summary struct {
	DayOfWeek    timeslot.Weekday
	ClassesToday int
	VenuesInUse  int
}

// Query serves the read-only calendar views.
type Query interface {
	List(ctx context.Context, filter Filter) ([]*Details, error)

	// Search is List restricted to what actor may see.
	Search(ctx context.Context, actor Actor, filter Filter) ([]*Details, error)
	// Get returns one booking if actor may see it.
	Get(ctx context.Context, actor Actor, id string) (*Details, error)
	ForLecturer(ctx context.Context, lecturerID string) ([]*Details, error)
	ForStudent(ctx context.Context, studentID string) ([]*Details, error)

	// ForActor returns everything for admins, a lecturer's own classes,
	// or the classes of the courses a student is enrolled in.
	ForActor(ctx context.Context, actor Actor) ([]*Details, error)
	Today(ctx context.Context, actor Actor) ([]*Details, error)
	Summary(ctx context.Context, actor Actor) (*Summary, error)
}

// maxConcurrentLookups bounds the fan-out of join lookups per request.
const maxConcurrentLookups = 8

type query struct {
	repo    Repository
	courses course.Service
	venues  venue.Service
	users   user.Service
	now     func() time.Time
}

func NewQuery(repo Repository, courses course.Service, venues venue.Service, users user.Service) Query {
	return NewQueryWithClock(repo, courses, venues, users, time.Now)
}

// NewQueryWithClock is NewQuery with an explicit source for "today".
func NewQueryWithClock(repo Repository, courses course.Service, venues venue.Service, users user.Service, now func() time.Time) Query {
	return &query{
		repo:    repo,
		courses: courses,
		venues:  venues,
		users:   users,
		now:     now,
	}
}

func (q *query) List(ctx context.Context, filter Filter) ([]*Details, error) {
	bookings, err := q.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(bookings, Compare)
	return q.join(ctx, bookings)
}

func (q *query) Search(ctx context.Context, actor Actor, filter Filter) ([]*Details, error) {
	scope, err := q.actorFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	return q.List(ctx, scope.Narrow(filter))
}

func (q *query) Get(ctx context.Context, actor Actor, id string) (*Details, error) {
	scope, err := q.actorFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	b, err := q.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Matches(b) {
		return nil, ErrPermissionDenied
	}
	details, err := q.join(ctx, []*Booking{b})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

func (q *query) ForLecturer(ctx context.Context, lecturerID string) ([]*Details, error) {
	return q.List(ctx, Filter{LecturerID: lecturerID})
}

func (q *query) ForStudent(ctx context.Context, studentID string) ([]*Details, error) {
	filter, err := q.studentFilter(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return q.List(ctx, filter)
}

func (q *query) ForActor(ctx context.Context, actor Actor) ([]*Details, error) {
	filter, err := q.actorFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	return q.List(ctx, filter)
}

func (q *query) Today(ctx context.Context, actor Actor) ([]*Details, error) {
	filter, err := q.actorFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	filter.DayOfWeek = timeslot.WeekdayOf(q.now())
	return q.List(ctx, filter)
}

func (q *query) Summary(ctx context.Context, actor Actor) (*Summary, error) {
	filter, err := q.actorFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	filter.DayOfWeek = timeslot.WeekdayOf(q.now())

	bookings, err := q.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	venues := make(map[string]struct{})
	for _, b := range bookings {
		venues[b.VenueID] = struct{}{}
	}
	return &Summary{
		DayOfWeek:    filter.DayOfWeek,
		ClassesToday: len(bookings),
		VenuesInUse:  len(venues),
	}, nil
}

func (q *query) actorFilter(ctx context.Context, actor Actor) (Filter, error) {
	switch actor.Role {
	case user.RoleAdmin:
		return Filter{}, nil
	case user.RoleLecturer:
		return Filter{LecturerID: actor.UserID}, nil
	case user.RoleStudent:
		return q.studentFilter(ctx, actor.UserID)
	}
	return Filter{}, ErrPermissionDenied
}

func (q *query) studentFilter(ctx context.Context, studentID string) (Filter, error) {
	u, err := q.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Filter{}, ErrStudentNotFound
		}
		return Filter{}, fmt.Errorf("lookup student: %w", err)
	}
	// A non-nil empty set matches nothing.
	ids := make([]string, 0, len(u.EnrolledCourseIDs))
	ids = append(ids, u.EnrolledCourseIDs...)
	return Filter{CourseIDIn: ids}, nil
}

// join attaches course, venue and lecturer records, looking each id up once.
func (q *query) join(ctx context.Context, bookings []*Booking) ([]*Details, error) {
	var courseIDs, venueIDs, lecturerIDs []string
	for _, b := range bookings {
		courseIDs = append(courseIDs, b.CourseID)
		venueIDs = append(venueIDs, b.VenueID)
		lecturerIDs = append(lecturerIDs, b.LecturerID)
	}

	courses := newLookup(course.ErrNotFound, q.courses.GetByID)
	venues := newLookup(venue.ErrNotFound, q.venues.GetByID)
	lecturers := newLookup(user.ErrNotFound, q.users.GetByID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	courses.run(gctx, g, courseIDs)
	venues.run(gctx, g, venueIDs)
	lecturers.run(gctx, g, lecturerIDs)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*Details, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, &Details{
			Booking:  b,
			Course:   courses.get(b.CourseID),
			Venue:    venues.get(b.VenueID),
			Lecturer: lecturers.get(b.LecturerID),
		})
	}
	return out, nil
}

// lookup resolves ids concurrently, treating notFound as a missing record.
type lookup[T any] struct {
	notFound error
	fetch    func(ctx context.Context, id string) (*T, error)

	mu      sync.Mutex
	results map[string]*T
}

func newLookup[T any](notFound error, fetch func(ctx context.Context, id string) (*T, error)) *lookup[T] {
	return &lookup[T]{notFound: notFound, fetch: fetch, results: make(map[string]*T)}
}

func (l *lookup[T]) run(ctx context.Context, g *errgroup.Group, ids []string) {
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		g.Go(func() error {
			v, err := l.fetch(ctx, id)
			if errors.Is(err, l.notFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("lookup %s: %w", id, err)
			}
			l.mu.Lock()
			l.results[id] = v
			l.mu.Unlock()
			return nil
		})
	}
}

func (l *lookup[T]) get(id string) *T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.results[id]
}
