package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/timetable-backend/internal/booking"
	"github.com/nekogravitycat/timetable-backend/internal/course"
	"github.com/nekogravitycat/timetable-backend/internal/memstore"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
	"github.com/nekogravitycat/timetable-backend/internal/user"
	"github.com/nekogravitycat/timetable-backend/internal/venue"
)

var (
	admin    = booking.Actor{UserID: "admin-1", Role: user.RoleAdmin}
	lecAda   = booking.Actor{UserID: "lec-ada", Role: user.RoleLecturer}
	lecAlan  = booking.Actor{UserID: "lec-alan", Role: user.RoleLecturer}
	studSam  = booking.Actor{UserID: "stu-sam", Role: user.RoleStudent}
	studNone = booking.Actor{UserID: "stu-none", Role: user.RoleStudent}
)

// recordingPublisher captures published routing keys.
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fixture struct {
	store     *memstore.Store
	repo      booking.Repository
	svc       booking.Service
	courses   course.Service
	venues    venue.Service
	users     user.Service
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New(300 * time.Millisecond)
	require.NoError(t, store.Apply(memstore.Seed{
		Users: []memstore.SeedUser{
			{ID: "admin-1", Email: "admin@uni.edu", FullName: "Admin", Role: "admin"},
			{ID: "lec-ada", Email: "ada@uni.edu", FullName: "Ada Lovelace", Role: "lecturer"},
			{ID: "lec-alan", Email: "alan@uni.edu", FullName: "Alan Turing", Role: "lecturer"},
			{ID: "stu-sam", Email: "sam@uni.edu", FullName: "Sam Student", Role: "student", Courses: []string{"csc-201"}},
			{ID: "stu-none", Email: "none@uni.edu", FullName: "No Courses", Role: "student"},
		},
		Courses: []memstore.SeedCourse{
			{ID: "csc-201", Code: "CSC 201", Title: "Data Structures", CreditUnits: 3, LecturerID: "lec-ada", Level: 200},
			{ID: "csc-301", Code: "CSC 301", Title: "Algorithms", CreditUnits: 3, LecturerID: "lec-alan", Level: 300},
		},
		Venues: []memstore.SeedVenue{
			{ID: "lab-1", Name: "Lab 1", Capacity: 40, Type: "lab"},
			{ID: "hall-a", Name: "Hall A", Capacity: 200, Type: "lecture_hall"},
		},
	}))

	f := &fixture{
		store:     store,
		repo:      store.Bookings(),
		courses:   course.NewService(store.Courses()),
		venues:    venue.NewService(store.Venues()),
		users:     user.NewService(store.Users()),
		publisher: &recordingPublisher{},
	}
	f.svc = booking.NewService(f.repo, f.courses, f.venues, f.users, f.publisher, nil)
	return f
}

func clock(t *testing.T, s string) timeslot.Clock {
	t.Helper()
	c, err := timeslot.ParseClock(s)
	require.NoError(t, err)
	return c
}

func createReq(t *testing.T, courseID, venueID, lecturerID string, day timeslot.Weekday, start, end string) booking.CreateRequest {
	return booking.CreateRequest{
		CourseID:   courseID,
		VenueID:    venueID,
		LecturerID: lecturerID,
		DayOfWeek:  day,
		StartTime:  clock(t, start),
		EndTime:    clock(t, end),
	}
}

// slot names a placement for table tests.
type slot struct {
	course, venue, lecturer string
	day                     timeslot.Weekday
	start, end              string
}

func (s slot) req(t *testing.T) booking.CreateRequest {
	return createReq(t, s.course, s.venue, s.lecturer, s.day, s.start, s.end)
}

// mustCreate books as admin and fails the test on error.
func (f *fixture) mustCreate(t *testing.T, req booking.CreateRequest) *booking.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), admin, req)
	require.NoError(t, err)
	return b
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	all, err := f.repo.List(context.Background(), booking.Filter{})
	require.NoError(t, err)
	return len(all)
}
