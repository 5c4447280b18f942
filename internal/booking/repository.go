package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, tenantID, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)

	// ApplyChanges persists the staged updates and appends the timeline entry
	// in one statement, returning the stored row.
	ApplyChanges(ctx context.Context, tenantID, id string, cs ChangeSet) (*Booking, error)
	SoftDelete(ctx context.Context, tenantID, id string) error

	AddNote(ctx context.Context, tenantID, bookingID string, note Note) (*Booking, error)
	UpdateNote(ctx context.Context, tenantID, bookingID, noteID, text string, at time.Time) (*Booking, error)
	DeleteNote(ctx context.Context, tenantID, bookingID, noteID string) (*Booking, error)
}

var bookingColumns = []string{
	"id", "tenant_id",
	"full_name", "email", "phone_number", "date_of_birth",
	"rental_company", "confirmation_number", "vehicle_image",
	"total", "mco", "payable_at_pickup", "modification_fee",
	"pickup_date", "dropoff_date", "pickup_time", "dropoff_time", "pickup_location", "dropoff_location",
	"card_last4", "expiration", "billing_address",
	"status", "is_deleted", "timeline", "notes", "created_by", "created_at", "updated_at",
}

var returningBooking = "RETURNING " + strings.Join(bookingColumns, ", ")

// sortColumns whitelists the columns List may order by.
var sortColumns = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"pickup_date": "pickup_date",
	"full_name":   "full_name",
	"total":       "total",
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

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	var createdBy *string
	dest := []any{
		&b.ID, &b.TenantID,
		&b.FullName, &b.Email, &b.PhoneNumber, &b.DateOfBirth,
		&b.RentalCompany, &b.ConfirmationNumber, &b.VehicleImage,
		&b.Total, &b.MCO, &b.PayableAtPickup, &b.ModificationFee,
		&b.PickupDate, &b.DropoffDate, &b.PickupTime, &b.DropoffTime, &b.PickupLocation, &b.DropoffLocation,
		&b.CardLast4, &b.Expiration, &b.BillingAddress,
		&b.Status, &b.IsDeleted, &b.Timeline, &b.Notes, &createdBy, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if createdBy != nil {
		b.CreatedBy = *createdBy
	}
	return &b, nil
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	var createdBy any
	if b.CreatedBy != "" {
		createdBy = b.CreatedBy
	}

	query, args, err := psql().Insert("public.bookings").
		Columns(
			"tenant_id",
			"full_name", "email", "phone_number", "date_of_birth",
			"rental_company", "confirmation_number", "vehicle_image",
			"total", "mco", "payable_at_pickup", "modification_fee",
			"pickup_date", "dropoff_date", "pickup_time", "dropoff_time", "pickup_location", "dropoff_location",
			"card_last4", "expiration", "billing_address",
			"status", "timeline", "notes", "created_by",
		).
		Values(
			b.TenantID,
			b.FullName, b.Email, b.PhoneNumber, b.DateOfBirth,
			b.RentalCompany, b.ConfirmationNumber, b.VehicleImage,
			b.Total, b.MCO, b.PayableAtPickup, nonNil(b.ModificationFee),
			b.PickupDate, b.DropoffDate, b.PickupTime, b.DropoffTime, b.PickupLocation, b.DropoffLocation,
			b.CardLast4, b.Expiration, b.BillingAddress,
			b.Status, nonNil(b.Timeline), nonNil(b.Notes), createdBy,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, tenantID, id string) (*Booking, error) {
	query, args, err := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID, "is_deleted": false}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql().Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings").
		Where(squirrel.Eq{"tenant_id": filter.TenantID, "is_deleted": false})

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"full_name": pattern},
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"confirmation_number": pattern},
		})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	orderBy := "created_at"
	if col, ok := sortColumns[filter.SortBy]; ok {
		orderBy = col
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.SortOrder, "ASC") {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "id")

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
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	bookings := []*Booking{}
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) ApplyChanges(ctx context.Context, tenantID, id string, cs ChangeSet) (*Booking, error) {
	if cs.Empty() {
		return r.GetByID(ctx, tenantID, id)
	}

	update := psql().Update("public.bookings")
	for _, f := range Fields {
		if v, ok := cs.Updates[f.Name]; ok {
			update = update.Set(f.Column, v)
		}
	}
	query, args, err := update.
		Set("timeline", squirrel.Expr("timeline || ?::jsonb", []TimelineEntry{*cs.Entry})).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID, "is_deleted": false}).
		Suffix(returningBooking).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) SoftDelete(ctx context.Context, tenantID, id string) error {
	query, args, err := psql().Update("public.bookings").
		Set("is_deleted", true).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "tenant_id": tenantID, "is_deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete booking query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) AddNote(ctx context.Context, tenantID, bookingID string, note Note) (*Booking, error) {
	query, args, err := psql().Update("public.bookings").
		Set("notes", squirrel.Expr("notes || ?::jsonb", []Note{note})).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": bookingID, "tenant_id": tenantID, "is_deleted": false}).
		Suffix(returningBooking).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build add note query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("add note failed: %w", err)
	}
	return b, nil
}

// UpdateNote rewrites the matching note in place, keeping array order.
func (r *pgxRepository) UpdateNote(ctx context.Context, tenantID, bookingID, noteID, text string, at time.Time) (*Booking, error) {
	rewrite := squirrel.Expr(`(
		SELECT jsonb_agg(
			CASE WHEN n->>'id' = ?
				THEN n || jsonb_build_object('text', ?::text, 'updatedAt', ?::text)
				ELSE n
			END ORDER BY ord)
		FROM jsonb_array_elements(notes) WITH ORDINALITY AS e(n, ord)
	)`, noteID, text, at.UTC().Format(time.RFC3339Nano))

	return r.rewriteNotes(ctx, tenantID, bookingID, noteID, rewrite, "update note")
}

func (r *pgxRepository) DeleteNote(ctx context.Context, tenantID, bookingID, noteID string) (*Booking, error) {
	rewrite := squirrel.Expr(`COALESCE((
		SELECT jsonb_agg(n ORDER BY ord)
		FROM jsonb_array_elements(notes) WITH ORDINALITY AS e(n, ord)
		WHERE n->>'id' <> ?
	), '[]'::jsonb)`, noteID)

	return r.rewriteNotes(ctx, tenantID, bookingID, noteID, rewrite, "delete note")
}

func (r *pgxRepository) rewriteNotes(ctx context.Context, tenantID, bookingID, noteID string, rewrite squirrel.Sqlizer, op string) (*Booking, error) {
	query, args, err := psql().Update("public.bookings").
		Set("notes", rewrite).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": bookingID, "tenant_id": tenantID, "is_deleted": false}).
		Where(squirrel.Expr("notes @> jsonb_build_array(jsonb_build_object('id', ?::text))", noteID)).
		Suffix(returningBooking).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query failed: %w", op, err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}

	// Nothing matched: tell a missing booking apart from a missing note.
	if _, err := r.GetByID(ctx, tenantID, bookingID); err != nil {
		return nil, err
	}
	return nil, ErrNoteNotFound
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
