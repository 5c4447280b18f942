package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing tenant data.
// Tenant rows are inserted together with their owner agent by the agent repository.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
	UpdateName(ctx context.Context, id, name string) (*Tenant, error)
	MarkVerified(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "name", "is_verified", "created_at").
		From("public.tenants").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get tenant query failed: %w", err)
	}

	var t Tenant
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&t.ID, &t.Name, &t.IsVerified, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get tenant failed: %w", err)
	}
	return &t, nil
}

func (r *pgxRepository) UpdateName(ctx context.Context, id, name string) (*Tenant, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.tenants").
		Set("name", name).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING id, name, is_verified, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update tenant query failed: %w", err)
	}

	var t Tenant
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&t.ID, &t.Name, &t.IsVerified, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update tenant failed: %w", err)
	}
	return &t, nil
}

func (r *pgxRepository) MarkVerified(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.tenants").
		Set("is_verified", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build verify tenant query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("verify tenant failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
