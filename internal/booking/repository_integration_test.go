//go:build integration

package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nekogravitycat/timetable-backend/internal/booking"
	"github.com/nekogravitycat/timetable-backend/internal/course"
	"github.com/nekogravitycat/timetable-backend/internal/db"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
	"github.com/nekogravitycat/timetable-backend/internal/user"
	"github.com/nekogravitycat/timetable-backend/internal/venue"
)

const (
	pgAdminID = "00000000-0000-0000-0000-0000000000a1"
	pgAdaID   = "00000000-0000-0000-0000-0000000000b1"
	pgAlanID  = "00000000-0000-0000-0000-0000000000b2"
	pgCourse  = "00000000-0000-0000-0000-0000000000d1"
	pgLab     = "00000000-0000-0000-0000-0000000000e1"
)

// setupPostgres starts a PostgreSQL container and returns a pool with the schema applied.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "timetable",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/timetable?sslmode=disable", host, port.Port())

	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		pool, err = db.NewPool(ctx, dsn)
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")
	t.Cleanup(pool.Close)

	require.NoError(t, db.EnsureSchema(ctx, pool))

	_, err = pool.Exec(ctx, `
		INSERT INTO public.users (id, email, full_name, role) VALUES
			($1, 'admin@uni.edu', 'Admin', 'admin'),
			($2, 'ada@uni.edu', 'Ada Lovelace', 'lecturer'),
			($3, 'alan@uni.edu', 'Alan Turing', 'lecturer');
	`, pgAdminID, pgAdaID, pgAlanID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO public.courses (id, code, title, lecturer_id, level) VALUES ($1, 'CSC 201', 'Data Structures', $2, 200)`, pgCourse, pgAdaID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO public.venues (id, name, capacity, type) VALUES ($1, 'Lab 1', 40, 'lab')`, pgLab)
	require.NoError(t, err)

	return pool
}

func newPgService(pool *pgxpool.Pool, lockTimeout time.Duration) (booking.Repository, booking.Service) {
	repo := booking.NewPgxRepository(pool, lockTimeout)
	users := user.NewService(user.NewPgxRepository(pool))
	svc := booking.NewService(
		repo,
		course.NewService(course.NewPgxRepository(pool)),
		venue.NewService(venue.NewPgxRepository(pool)),
		users,
		nil,
		nil,
	)
	return repo, svc
}

func TestPgxRepository_Integration(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	repo, svc := newPgService(pool, 2*time.Second)
	admin := booking.Actor{UserID: pgAdminID, Role: user.RoleAdmin}

	start, _ := timeslot.ParseClock("09:00")
	end, _ := timeslot.ParseClock("11:00")

	t.Run("create, conflict, reschedule, delete", func(t *testing.T) {
		b, err := svc.Create(ctx, admin, booking.CreateRequest{
			CourseID: pgCourse, VenueID: pgLab, LecturerID: pgAdaID,
			DayOfWeek: timeslot.Monday, StartTime: start, EndTime: end,
		})
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "09:00-11:00", stored.Interval.String())

		_, err = svc.Create(ctx, admin, booking.CreateRequest{
			CourseID: pgCourse, VenueID: pgLab, LecturerID: pgAlanID,
			DayOfWeek: timeslot.Monday, StartTime: start + 60, EndTime: end + 60,
		})
		assert.ErrorIs(t, err, booking.ErrTimeConflict)

		moved, err := svc.Reschedule(ctx, admin, b.ID, booking.RescheduleRequest{
			DayOfWeek: timeslot.Monday, StartTime: start + 30, EndTime: end + 30,
		})
		require.NoError(t, err)
		assert.Equal(t, "09:30-11:30", moved.Interval.String())

		require.NoError(t, svc.Delete(ctx, admin, b.ID))
		_, err = repo.GetByID(ctx, b.ID)
		assert.ErrorIs(t, err, booking.ErrNotFound)
	})

	t.Run("non uuid ids are not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, booking.ErrNotFound)

		list, err := repo.List(ctx, booking.Filter{VenueID: "nope"})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("concurrent creates for one slot", func(t *testing.T) {
		const workers = 12
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				lecturer := pgAdaID
				if i%2 == 1 {
					lecturer = pgAlanID
				}
				_, err := svc.Create(ctx, admin, booking.CreateRequest{
					CourseID: pgCourse, VenueID: pgLab, LecturerID: lecturer,
					DayOfWeek: timeslot.Thursday, StartTime: start, EndTime: end,
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var ok int
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.True(t, errors.Is(err, booking.ErrTimeConflict) || errors.Is(err, booking.ErrBusy), err)
		}
		assert.Equal(t, 1, ok)

		list, err := repo.List(ctx, booking.Filter{DayOfWeek: timeslot.Thursday, VenueID: pgLab})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("lock timeout reports busy", func(t *testing.T) {
		_, quick := newPgService(pool, 100*time.Millisecond)
		key := booking.LockKey{Resource: booking.ResourceVenue, ResourceID: pgLab, Day: timeslot.Saturday}

		held := make(chan struct{})
		done := make(chan struct{})
		go func() {
			_ = repo.WithSlotLocks(ctx, []booking.LockKey{key}, func(context.Context, booking.Repository) error {
				close(held)
				<-done
				return nil
			})
		}()
		<-held
		defer close(done)

		_, err := quick.Create(ctx, admin, booking.CreateRequest{
			CourseID: pgCourse, VenueID: pgLab, LecturerID: pgAdaID,
			DayOfWeek: timeslot.Saturday, StartTime: start, EndTime: end,
		})
		assert.ErrorIs(t, err, booking.ErrBusy)
	})
}
