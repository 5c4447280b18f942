package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing agents.
type Repository interface {
	// CreateWithTenant inserts a tenant and its owner agent in one statement.
	CreateWithTenant(ctx context.Context, tenantName string, a *Agent) error
	Create(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id string) (*Agent, error)
	GetByEmail(ctx context.Context, email string) (*Agent, error)
	List(ctx context.Context, filter Filter) ([]*Agent, int, error)
	SetActive(ctx context.Context, tenantID, id string, active bool) (*Agent, error)
	MarkEmailVerified(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string, t time.Time) error
}

var agentColumns = []string{
	"id", "tenant_id", "email", "password_hash", "name", "role",
	"is_active", "email_verified", "created_at", "last_login_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func scanAgent(row pgx.Row, extra ...any) (*Agent, error) {
	var a Agent
	dest := []any{
		&a.ID, &a.TenantID, &a.Email, &a.PasswordHash, &a.Name, &a.Role,
		&a.IsActive, &a.EmailVerified, &a.CreatedAt, &a.LastLoginAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *pgxRepository) CreateWithTenant(ctx context.Context, tenantName string, a *Agent) error {
	const query = `
		WITH t AS (
			INSERT INTO public.tenants (name) VALUES ($1)
			RETURNING id
		)
		INSERT INTO public.agents (tenant_id, email, password_hash, name, role, is_active, email_verified)
		SELECT t.id, $2, $3, $4, $5, $6, $7 FROM t
		RETURNING id, tenant_id, created_at`

	err := r.pool.QueryRow(ctx, query,
		tenantName, a.Email, a.PasswordHash, a.Name, a.Role, a.IsActive, a.EmailVerified,
	).Scan(&a.ID, &a.TenantID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailAlreadyUsed
		}
		return fmt.Errorf("create tenant owner failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Create(ctx context.Context, a *Agent) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.agents").
		Columns("tenant_id", "email", "password_hash", "name", "role", "is_active", "email_verified").
		Values(a.TenantID, a.Email, a.PasswordHash, a.Name, a.Role, a.IsActive, a.EmailVerified).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create agent query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrEmailAlreadyUsed
		}
		return fmt.Errorf("create agent failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) getBy(ctx context.Context, where squirrel.Eq) (*Agent, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(agentColumns...).
		From("public.agents").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get agent query failed: %w", err)
	}

	a, err := scanAgent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get agent failed: %w", err)
	}
	return a, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Agent, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r *pgxRepository) GetByEmail(ctx context.Context, email string) (*Agent, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Agent, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(agentColumns, "count(*) OVER() AS total_count")...).
		From("public.agents").
		Where(squirrel.Eq{"tenant_id": filter.TenantID})

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"email": pattern},
		})
	}
	if filter.Role != "" {
		query = query.Where(squirrel.Eq{"role": filter.Role})
	}
	if filter.IsActive != nil {
		query = query.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}

	orderDir := "ASC"
	if strings.EqualFold(filter.SortOrder, "DESC") {
		orderDir = "DESC"
	}
	query = query.OrderBy("created_at " + orderDir)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64((filter.Page - 1) * filter.PageSize))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list agents query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list agents failed: %w", err)
	}
	defer rows.Close()

	agents := []*Agent{}
	var total int
	for rows.Next() {
		a, err := scanAgent(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan agent failed: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate agents failed: %w", err)
	}
	return agents, total, nil
}

func (r *pgxRepository) SetActive(ctx context.Context, tenantID, id string, active bool) (*Agent, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.agents").
		Set("is_active", active).
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID}).
		Suffix("RETURNING " + strings.Join(agentColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build set agent active query failed: %w", err)
	}

	a, err := scanAgent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set agent active failed: %w", err)
	}
	return a, nil
}

func (r *pgxRepository) MarkEmailVerified(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.agents").
		Set("email_verified", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build verify agent query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("verify agent failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.agents").
		Set("last_login_at", t).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update last login failed: %w", err)
	}
	return nil
}
