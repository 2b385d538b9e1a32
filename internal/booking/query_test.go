package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/timetable-backend/internal/booking"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
	"github.com/nekogravitycat/timetable-backend/internal/user"
)

// 2026-10-19 is a Monday.
var monday = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func newQuery(f *fixture) booking.Query {
	return booking.NewQueryWithClock(f.repo, f.courses, f.venues, f.users, func() time.Time { return monday })
}

func seedWeek(t *testing.T, f *fixture) (ada1, ada2, alan *booking.Booking) {
	ada2 = f.mustCreate(t, createReq(t, "csc-201", "lab-1", "lec-ada", timeslot.Wednesday, "09:00", "11:00"))
	ada1 = f.mustCreate(t, createReq(t, "csc-201", "lab-1", "lec-ada", timeslot.Monday, "09:00", "11:00"))
	alan = f.mustCreate(t, createReq(t, "csc-301", "hall-a", "lec-alan", timeslot.Monday, "08:00", "10:00"))
	return
}

func ids(details []*booking.Details) []string {
	out := make([]string, 0, len(details))
	for _, d := range details {
		out = append(out, d.Booking.ID)
	}
	return out
}

func TestQuery_ForActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada1, ada2, alan := seedWeek(t, f)
	q := newQuery(f)

	t.Run("admin sees all ordered by day and start", func(t *testing.T) {
		got, err := q.ForActor(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, []string{alan.ID, ada1.ID, ada2.ID}, ids(got))
	})

	t.Run("lecturer sees own", func(t *testing.T) {
		got, err := q.ForActor(ctx, lecAda)
		require.NoError(t, err)
		assert.Equal(t, []string{ada1.ID, ada2.ID}, ids(got))
	})

	t.Run("student sees enrolled courses", func(t *testing.T) {
		got, err := q.ForActor(ctx, studSam)
		require.NoError(t, err)
		assert.Equal(t, []string{ada1.ID, ada2.ID}, ids(got))
	})

	t.Run("student without enrollments sees nothing", func(t *testing.T) {
		got, err := q.ForActor(ctx, studNone)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := q.ForStudent(ctx, "ghost")
		assert.ErrorIs(t, err, booking.ErrStudentNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := q.ForActor(ctx, booking.Actor{UserID: "x", Role: user.Role("guest")})
		assert.ErrorIs(t, err, booking.ErrPermissionDenied)
	})
}

func TestQuery_JoinsReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada1, _, _ := seedWeek(t, f)
	q := newQuery(f)

	got, err := q.List(ctx, booking.Filter{DayOfWeek: timeslot.Monday, VenueID: "lab-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	d := got[0]
	assert.Equal(t, ada1.ID, d.Booking.ID)
	require.NotNil(t, d.Course)
	assert.Equal(t, "CSC 201", d.Course.Code)
	require.NotNil(t, d.Venue)
	assert.Equal(t, "Lab 1", d.Venue.Name)
	require.NotNil(t, d.Lecturer)
	assert.Equal(t, "Ada Lovelace", d.Lecturer.FullName)
}

func TestQuery_DanglingReferenceLeftNil(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.PutBooking(&booking.Booking{
		CourseID:   "retired-course",
		VenueID:    "lab-1",
		LecturerID: "lec-ada",
		DayOfWeek:  timeslot.Friday,
		Interval:   timeslot.Interval{Start: clock(t, "09:00"), End: clock(t, "10:00")},
	}))

	got, err := newQuery(f).ForLecturer(ctx, "lec-ada")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Course)
	assert.NotNil(t, got[0].Venue)
}

func TestQuery_TodayAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada1, _, alan := seedWeek(t, f)
	q := newQuery(f)

	got, err := q.Today(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{alan.ID, ada1.ID}, ids(got))

	got, err = q.Today(ctx, lecAlan)
	require.NoError(t, err)
	assert.Equal(t, []string{alan.ID}, ids(got))

	summary, err := q.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, timeslot.Monday, summary.DayOfWeek)
	assert.Equal(t, 2, summary.ClassesToday)
	assert.Equal(t, 2, summary.VenuesInUse)

	summary, err = q.Summary(ctx, studSam)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ClassesToday)
	assert.Equal(t, 1, summary.VenuesInUse)
}
