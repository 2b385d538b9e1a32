package venue

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
	GetByID(ctx context.Context, id string) (*Venue, error)
	List(ctx context.Context, filter Filter) ([]*Venue, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Venue, error) {
	const query = `
		SELECT id, name, capacity, location, type
		FROM public.venues
		WHERE id = $1
	`
	var v Venue
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&v.ID, &v.Name, &v.Capacity, &v.Location, &v.Type); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get venue failed: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("venue %s: %w", v.ID, err)
	}
	return &v, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Venue, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select("id", "name", "capacity", "location", "type").
		From("public.venues").
		OrderBy("name ASC")
	if filter.Type != "" {
		query = query.Where(squirrel.Eq{"type": filter.Type})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list venues query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list venues failed: %w", err)
	}
	defer rows.Close()

	var result []*Venue
	for rows.Next() {
		var v Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Capacity, &v.Location, &v.Type); err != nil {
			return nil, fmt.Errorf("scan venue failed: %w", err)
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("venue %s: %w", v.ID, err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list venues failed: %w", err)
	}
	return result, nil
}
