package rentalcompany

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, rc *RentalCompany) error
	GetByID(ctx context.Context, tenantID, id string) (*RentalCompany, error)
	List(ctx context.Context, filter Filter) ([]*RentalCompany, int, error)
	Update(ctx context.Context, rc *RentalCompany) error
	Delete(ctx context.Context, tenantID, id string) error
}

var columns = []string{"id", "tenant_id", "name", "code", "phone", "website", "created_at", "updated_at"}

var sortColumns = map[string]string{
	"name":       "lower(name)",
	"code":       "code",
	"created_at": "created_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *pgxRepository) Create(ctx context.Context, rc *RentalCompany) error {
	query, args, err := psql().Insert("public.rental_companies").
		Columns("tenant_id", "name", "code", "phone", "website").
		Values(rc.TenantID, rc.Name, rc.Code, rc.Phone, rc.Website).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create rental company query failed: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&rc.ID, &rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameDuplicate
		}
		return fmt.Errorf("create rental company failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, tenantID, id string) (*RentalCompany, error) {
	query, args, err := psql().Select(columns...).
		From("public.rental_companies").
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get rental company query failed: %w", err)
	}

	var rc RentalCompany
	err = r.pool.QueryRow(ctx, query, args...).
		Scan(&rc.ID, &rc.TenantID, &rc.Name, &rc.Code, &rc.Phone, &rc.Website, &rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get rental company failed: %w", err)
	}
	return &rc, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*RentalCompany, int, error) {
	queryBuilder := psql().Select(append(columns[:len(columns):len(columns)], "count(*) OVER() AS total_count")...).
		From("public.rental_companies").
		Where(squirrel.Eq{"tenant_id": filter.TenantID})

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		queryBuilder = queryBuilder.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}

	// Sorting
	orderBy := "lower(name)"
	if col, ok := sortColumns[filter.SortBy]; ok {
		orderBy = col
	}
	orderDir := "ASC"
	if filter.SortOrder == "DESC" {
		orderDir = "DESC"
	}
	queryBuilder = queryBuilder.OrderBy(orderBy+" "+orderDir, "id")

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	queryBuilder = queryBuilder.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list rental companies query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list rental companies failed: %w", err)
	}
	defer rows.Close()

	var result []*RentalCompany
	var total int
	for rows.Next() {
		var rc RentalCompany
		if err := rows.Scan(
			&rc.ID, &rc.TenantID, &rc.Name, &rc.Code, &rc.Phone, &rc.Website, &rc.CreatedAt, &rc.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan rental company failed: %w", err)
		}
		result = append(result, &rc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rental companies failed: %w", err)
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, rc *RentalCompany) error {
	query, args, err := psql().Update("public.rental_companies").
		Set("name", rc.Name).
		Set("code", rc.Code).
		Set("phone", rc.Phone).
		Set("website", rc.Website).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": rc.ID, "tenant_id": rc.TenantID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update rental company query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rc.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case isUniqueViolation(err):
			return ErrNameDuplicate
		}
		return fmt.Errorf("update rental company failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, tenantID, id string) error {
	query, args, err := psql().Delete("public.rental_companies").
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete rental company query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete rental company failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
