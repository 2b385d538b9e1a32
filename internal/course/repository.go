package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/timetable-backend/internal/db"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Course, error)
	List(ctx context.Context, filter Filter) ([]*Course, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Course, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "code", "title", "credit_units", "COALESCE(lecturer_id::text, '')", "level").
		From("public.courses").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get course query failed: %w", err)
	}

	var c Course
	if err := r.pool.QueryRow(ctx, query, args...).
		Scan(&c.ID, &c.Code, &c.Title, &c.CreditUnits, &c.LecturerID, &c.Level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get course failed: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("course %s: %w", c.ID, err)
	}
	return &c, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Course, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select("id", "code", "title", "credit_units", "COALESCE(lecturer_id::text, '')", "level").
		From("public.courses")

	if filter.LecturerID != "" {
		query = query.Where(squirrel.Eq{"lecturer_id": filter.LecturerID})
	}
	if filter.Level > 0 {
		query = query.Where(squirrel.Eq{"level": filter.Level})
	}
	query = query.OrderBy("code ASC")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list courses query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list courses failed: %w", err)
	}
	defer rows.Close()

	var result []*Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Title, &c.CreditUnits, &c.LecturerID, &c.Level); err != nil {
			return nil, fmt.Errorf("scan course failed: %w", err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("course %s: %w", c.ID, err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		if db.IsInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list courses failed: %w", err)
	}
	return result, nil
}
