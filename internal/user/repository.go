package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/timetable-backend/internal/db"
)

// Repository defines methods for reading user data from storage.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, int, error)
}

type pgxUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new Repository implementation using pgxpool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxUserRepository{
		pool: pool,
	}
}

// enrolledCoursesColumn aggregates the user's enrollments into a JSON array of course ids.
const enrolledCoursesColumn = `COALESCE(
	(
		SELECT json_agg(e.course_id ORDER BY e.course_id)
		FROM public.enrollments e
		WHERE e.user_id = u.id
	),
	'[]'::json
) AS enrolled_course_ids`

func (r *pgxUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"u.id", "u.email", "u.full_name", "u.role", "u.created_at", enrolledCoursesColumn,
	).
		From("public.users u").
		Where(squirrel.Eq{"u.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get user query failed: %w", err)
	}

	var u User
	var coursesJSON []byte
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Role,
		&u.CreatedAt,
		&coursesJSON,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetByID query failed: %w", err)
	}

	if err := decodeCourseIDs(&u, coursesJSON); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return &u, nil
}

func (r *pgxUserRepository) List(ctx context.Context, filter UserFilter) ([]*User, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"u.id", "u.email", "u.full_name", "u.role", "u.created_at", enrolledCoursesColumn,
		"count(*) OVER() AS total_count",
	).
		From("public.users u")

	if filter.Role != "" {
		query = query.Where(squirrel.Eq{"u.role": filter.Role})
	}

	query = query.OrderBy("u.full_name ASC")

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list users query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users failed: %w", err)
	}
	defer rows.Close()

	var users []*User
	var total int

	for rows.Next() {
		var u User
		var coursesJSON []byte

		if err := rows.Scan(
			&u.ID,
			&u.Email,
			&u.FullName,
			&u.Role,
			&u.CreatedAt,
			&coursesJSON,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan user failed: %w", err)
		}
		if err := decodeCourseIDs(&u, coursesJSON); err != nil {
			return nil, 0, err
		}
		if err := u.Validate(); err != nil {
			return nil, 0, fmt.Errorf("user %s: %w", u.ID, err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users failed: %w", err)
	}

	return users, total, nil
}

func decodeCourseIDs(u *User, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &u.EnrolledCourseIDs); err != nil {
		return fmt.Errorf("decode enrollments for user %s: %w", u.ID, err)
	}
	return nil
}
