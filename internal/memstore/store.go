// Package memstore keeps the whole timetable in process memory. It backs the
// server when STORE_DRIVER=memory and the service tests.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nekogravitycat/timetable-backend/internal/booking"
	"github.com/nekogravitycat/timetable-backend/internal/course"
	"github.com/nekogravitycat/timetable-backend/internal/user"
	"github.com/nekogravitycat/timetable-backend/internal/venue"
)

// DefaultLockTimeout is used when New is given a non-positive timeout.
const DefaultLockTimeout = 3 * time.Second

// Store holds users, courses, venues and bookings. Records are copied on the
// way in and out, so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*user.User
	courses  map[string]*course.Course
	venues   map[string]*venue.Venue
	bookings map[string]*booking.Booking

	locksMu     sync.Mutex
	locks       map[string]*semaphore.Weighted
	lockTimeout time.Duration

	now func() time.Time
}

func New(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		users:       make(map[string]*user.User),
		courses:     make(map[string]*course.Course),
		venues:      make(map[string]*venue.Venue),
		bookings:    make(map[string]*booking.Booking),
		locks:       make(map[string]*semaphore.Weighted),
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

func (s *Store) Users() user.Repository       { return userRepo{s} }
func (s *Store) Courses() course.Repository   { return courseRepo{s} }
func (s *Store) Venues() venue.Repository     { return venueRepo{s} }
func (s *Store) Bookings() booking.Repository { return bookingRepo{s} }

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	c := *u
	c.EnrolledCourseIDs = slices.Clone(u.EnrolledCourseIDs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[c.ID] = &c
	return nil
}

// PutCourse inserts or replaces a course.
func (s *Store) PutCourse(c *course.Course) error {
	if err := c.Validate(); err != nil {
		return err
	}
	cp := *c
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[cp.ID] = &cp
	return nil
}

// PutVenue inserts or replaces a venue.
func (s *Store) PutVenue(v *venue.Venue) error {
	if err := v.Validate(); err != nil {
		return err
	}
	cp := *v
	s.mu.Lock()
	defer s.mu.Unlock()
	s.venues[cp.ID] = &cp
	return nil
}

// PutBooking stores b as is, bypassing conflict checks. Used to load existing timetables.
func (s *Store) PutBooking(b *booking.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	cp := b.Clone()
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[cp.ID] = cp
	b.ID = cp.ID
	return nil
}

// Slot locks

func (s *Store) semaphoreFor(key string) *semaphore.Weighted {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	sem, ok := s.locks[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.locks[key] = sem
	}
	return sem
}

// acquire takes every key in order, giving up after the lock timeout.
// The returned func releases whatever was taken.
func (s *Store) acquire(ctx context.Context, keys []booking.LockKey) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	held := make([]*semaphore.Weighted, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}

	for _, k := range keys {
		sem := s.semaphoreFor(k.String())
		if err := sem.Acquire(waitCtx, 1); err != nil {
			release()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, booking.ErrBusy
		}
		held = append(held, sem)
	}
	return release, nil
}

// Users

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return copyUser(u), nil
}

func (r userRepo) List(_ context.Context, filter user.UserFilter) ([]*user.User, int, error) {
	r.s.mu.RLock()
	var all []*user.User
	for _, u := range r.s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		all = append(all, copyUser(u))
	}
	r.s.mu.RUnlock()

	slices.SortFunc(all, func(a, b *user.User) int {
		return cmp.Or(cmp.Compare(a.FullName, b.FullName), cmp.Compare(a.ID, b.ID))
	})

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	total := len(all)
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	return all[start:end], total, nil
}

func copyUser(u *user.User) *user.User {
	c := *u
	c.EnrolledCourseIDs = slices.Clone(u.EnrolledCourseIDs)
	return &c
}

// Courses

type courseRepo struct{ s *Store }

func (r courseRepo) GetByID(_ context.Context, id string) (*course.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, course.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r courseRepo) List(_ context.Context, filter course.Filter) ([]*course.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*course.Course
	for _, c := range r.s.courses {
		if filter.LecturerID != "" && c.LecturerID != filter.LecturerID {
			continue
		}
		if filter.Level > 0 && c.Level != filter.Level {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *course.Course) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

// Venues

type venueRepo struct{ s *Store }

func (r venueRepo) GetByID(_ context.Context, id string) (*venue.Venue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.venues[id]
	if !ok {
		return nil, venue.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r venueRepo) List(_ context.Context, filter venue.Filter) ([]*venue.Venue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*venue.Venue
	for _, v := range r.s.venues {
		if filter.Type != "" && v.Type != filter.Type {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *venue.Venue) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// Bookings

type bookingRepo struct{ s *Store }

func (r bookingRepo) Create(_ context.Context, b *booking.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	now := r.s.now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.bookings[b.ID] = b.Clone()
	return nil
}

func (r bookingRepo) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return b.Clone(), nil
}

func (r bookingRepo) List(_ context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*booking.Booking
	for _, b := range r.s.bookings {
		if filter.Matches(b) {
			out = append(out, b.Clone())
		}
	}
	slices.SortFunc(out, booking.Compare)
	return out, nil
}

func (r bookingRepo) Update(_ context.Context, b *booking.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.bookings[b.ID]
	if !ok {
		return booking.ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = r.s.now().UTC()
	r.s.bookings[b.ID] = b.Clone()
	return nil
}

func (r bookingRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[id]; !ok {
		return booking.ErrNotFound
	}
	delete(r.s.bookings, id)
	return nil
}

// WithSlotLocks is not reentrant: fn must not lock the same keys again.
func (r bookingRepo) WithSlotLocks(ctx context.Context, keys []booking.LockKey, fn func(ctx context.Context, repo booking.Repository) error) error {
	release, err := r.s.acquire(ctx, booking.SortLockKeys(keys))
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, r)
}

var errSeedInvalid = errors.New("invalid seed file")
