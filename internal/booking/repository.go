package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/timetable-backend/internal/db"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
)

type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, error)
	Update(ctx context.Context, booking *Booking) error
	Delete(ctx context.Context, id string) error

	// WithSlotLocks runs fn while holding exclusive locks on every key, acquired in
	// SortLockKeys order and released when fn returns. Reads and writes made through
	// the repository passed to fn are atomic with respect to other holders of the
	// same keys. Returns ErrBusy when a lock cannot be acquired in time.
	WithSlotLocks(ctx context.Context, keys []LockKey, fn func(ctx context.Context, repo Repository) error) error
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxRepository struct {
	pool        *pgxpool.Pool // nil when bound to a transaction
	db          dbtx
	lockTimeout time.Duration
}

// NewPgxRepository creates a Postgres-backed Repository. lockTimeout bounds how long
// WithSlotLocks waits for a slot held by another request.
func NewPgxRepository(pool *pgxpool.Pool, lockTimeout time.Duration) Repository {
	return &pgxRepository{pool: pool, db: pool, lockTimeout: lockTimeout}
}

var bookingColumns = []string{
	"id", "course_id", "venue_id", "lecturer_id",
	"day_of_week", "start_time", "end_time", "created_at", "updated_at",
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("course_id", "venue_id", "lecturer_id", "day_of_week", "start_time", "end_time").
		Values(b.CourseID, b.VenueID, b.LecturerID,
			b.DayOfWeek.String(), b.Interval.Start.String(), b.Interval.End.String()).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(bookingColumns...).
		From("public.bookings")

	if filter.LecturerID != "" {
		query = query.Where(squirrel.Eq{"lecturer_id": filter.LecturerID})
	}
	if filter.VenueID != "" {
		query = query.Where(squirrel.Eq{"venue_id": filter.VenueID})
	}
	if filter.CourseID != "" {
		query = query.Where(squirrel.Eq{"course_id": filter.CourseID})
	}
	if filter.CourseIDIn != nil {
		// squirrel renders an empty slice as (1=0).
		query = query.Where(squirrel.Eq{"course_id": filter.CourseIDIn})
	}
	if filter.DayOfWeek != 0 {
		query = query.Where(squirrel.Eq{"day_of_week": filter.DayOfWeek.String()})
	}

	query = query.OrderBy("start_time ASC", "id ASC")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		// A filter id that is not a uuid matches nothing.
		if db.IsInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list bookings failed: %w", err)
	}

	return bookings, nil
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("venue_id", b.VenueID).
		Set("day_of_week", b.DayOfWeek.String()).
		Set("start_time", b.Interval.Start.String()).
		Set("end_time", b.Interval.End.String()).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete booking query failed: %w", err)
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if db.IsInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) WithSlotLocks(ctx context.Context, keys []LockKey, fn func(ctx context.Context, repo Repository) error) error {
	keys = SortLockKeys(keys)

	// Already inside a transaction: advisory locks are re-entrant per session.
	if r.pool == nil {
		if err := acquireSlotLocks(ctx, r.db, keys); err != nil {
			return err
		}
		return fn(ctx, r)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if r.lockTimeout > 0 {
			timeout := strconv.FormatInt(r.lockTimeout.Milliseconds(), 10) + "ms"
			if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout); err != nil {
				return fmt.Errorf("set lock timeout failed: %w", err)
			}
		}
		if err := acquireSlotLocks(ctx, tx, keys); err != nil {
			return err
		}
		return fn(ctx, &pgxRepository{db: tx, lockTimeout: r.lockTimeout})
	})
}

// acquireSlotLocks takes a transaction-scoped advisory lock per key, released on commit or rollback.
func acquireSlotLocks(ctx context.Context, conn dbtx, keys []LockKey) error {
	for _, k := range keys {
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", k.String()); err != nil {
			if db.IsLockNotAvailable(err) {
				return ErrBusy
			}
			return fmt.Errorf("acquire slot lock %s failed: %w", k, err)
		}
	}
	return nil
}

// scanBooking reads one row and validates it, rejecting malformed stored records.
func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var day, start, end string
	if err := row.Scan(
		&b.ID, &b.CourseID, &b.VenueID, &b.LecturerID,
		&day, &start, &end, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if b.DayOfWeek, err = timeslot.ParseWeekday(day); err != nil {
		return nil, fmt.Errorf("%w: booking %s day %q", ErrMalformedRecord, b.ID, day)
	}
	if b.Interval, err = timeslot.ParseInterval(start, end); err != nil {
		return nil, fmt.Errorf("%w: booking %s interval %s-%s", ErrMalformedRecord, b.ID, start, end)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
