package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hygiapro/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"

	referenceConstraint = "bookings_reference_key"
	slotConstraint      = "bookings_slot_active_idx"
)

type BookingRepo interface {
	Create(ctx context.Context, in domain.NewBooking) (*domain.Booking, error)
	// UpdatePaymentStatus moves a pending booking to status. It reports false
	// when no row was changed: unknown reference or already settled differently.
	UpdatePaymentStatus(ctx context.Context, reference string, status domain.PaymentStatus) (bool, error)
	// SetPaymentSession records the processor session of a pending booking.
	// It reports false when the booking is unknown or already settled.
	SetPaymentSession(ctx context.Context, reference, sessionID string) (bool, error)
	FindByReference(ctx context.Context, reference string) (*domain.Booking, error)
	ListBookedTimes(ctx context.Context, date time.Time) ([]string, error)
	IsSlotTaken(ctx context.Context, date time.Time, slot string) (bool, error)
	List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
	CountStalePending(ctx context.Context, createdBefore time.Time) (int, error)
}

type BookingRepoImpl struct{ pool *pgxpool.Pool }

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepoImpl { return &BookingRepoImpl{pool: pool} }

const bookingCols = `id, reference,
customer_name, customer_email, customer_phone, customer_address, COALESCE(notes, ''),
booking_date, booking_time, services, total_amount::float8,
payment_status, booking_status, payment_provider, COALESCE(payment_session_id, ''),
created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b        domain.Booking
		date     time.Time
		services []byte
	)
	if err := row.Scan(
		&b.ID, &b.Reference,
		&b.CustomerName, &b.CustomerEmail, &b.CustomerPhone, &b.CustomerAddress, &b.Notes,
		&date, &b.BookingTime, &services, &b.TotalAmount,
		&b.PaymentStatus, &b.BookingStatus, &b.PaymentProvider, &b.PaymentSessionID,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.BookingDate = date.Format(domain.DateLayout)
	if err := json.Unmarshal(services, &b.Services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	return &b, nil
}

func (r *BookingRepoImpl) Create(ctx context.Context, in domain.NewBooking) (*domain.Booking, error) {
	const q = `INSERT INTO bookings (
    reference,
    customer_name, customer_email, customer_phone, customer_address, notes,
    booking_date, booking_time, services, total_amount,
    payment_status, booking_status, payment_provider
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'pending','confirmed',$11)
  RETURNING ` + bookingCols

	date, err := time.Parse(domain.DateLayout, in.BookingDate)
	if err != nil {
		return nil, domain.NewValidationError("booking_date", "must be a date in YYYY-MM-DD format")
	}
	services, err := json.Marshal(in.Services)
	if err != nil {
		return nil, fmt.Errorf("encode services: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, in.Reference,
		in.CustomerName, in.CustomerEmail, in.CustomerPhone, in.CustomerAddress, nullable(in.Notes),
		date, in.BookingTime, services, in.TotalAmount,
		string(in.Provider),
	))
	if err != nil {
		return nil, translate("insert booking", err)
	}
	return b, nil
}

func (r *BookingRepoImpl) UpdatePaymentStatus(ctx context.Context, reference string, status domain.PaymentStatus) (bool, error) {
	// Repeating the same status is a no-op success; any other transition
	// out of a settled state is refused.
	const q = `UPDATE bookings
  SET payment_status = $2, updated_at = now()
  WHERE reference = $1 AND (payment_status = 'pending' OR payment_status = $2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, reference, string(status))
	if err != nil {
		return false, translate("update payment status", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *BookingRepoImpl) SetPaymentSession(ctx context.Context, reference, sessionID string) (bool, error) {
	const q = `UPDATE bookings
  SET payment_session_id = $2, updated_at = now()
  WHERE reference = $1 AND payment_status = 'pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, reference, sessionID)
	if err != nil {
		return false, translate("set payment session", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *BookingRepoImpl) FindByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE reference=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("find booking", err)
	}
	return b, nil
}

func (r *BookingRepoImpl) ListBookedTimes(ctx context.Context, date time.Time) ([]string, error) {
	const q = `SELECT booking_time FROM bookings
  WHERE booking_date = $1 AND booking_status <> 'cancelled'
  ORDER BY booking_time`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, date)
	if err != nil {
		return nil, translate("list booked times", err)
	}
	times, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, translate("list booked times", err)
	}
	return times, nil
}

func (r *BookingRepoImpl) IsSlotTaken(ctx context.Context, date time.Time, slot string) (bool, error) {
	const q = `SELECT EXISTS (
    SELECT 1 FROM bookings
    WHERE booking_date = $1 AND booking_time = $2 AND booking_status <> 'cancelled'
  )`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var taken bool
	if err := r.pool.QueryRow(ctx, q, date, slot).Scan(&taken); err != nil {
		return false, translate("check slot", err)
	}
	return taken, nil
}

func (r *BookingRepoImpl) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if f.PaymentStatus != nil {
		args = append(args, string(*f.PaymentStatus))
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if f.Date != "" {
		d, err := time.Parse(domain.DateLayout, f.Date)
		if err != nil {
			return nil, domain.NewValidationError("date", "must be a date in YYYY-MM-DD format")
		}
		args = append(args, d)
		where = append(where, fmt.Sprintf("booking_date = $%d", len(args)))
	}

	q := `SELECT ` + bookingCols + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, translate("list bookings", err)
	}
	defer rows.Close()

	bs := make([]domain.Booking, 0, f.Limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, translate("list bookings", err)
		}
		bs = append(bs, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list bookings", err)
	}
	return bs, nil
}

func (r *BookingRepoImpl) CountStalePending(ctx context.Context, createdBefore time.Time) (int, error) {
	const q = `SELECT count(*) FROM bookings
  WHERE payment_status = 'pending' AND booking_status <> 'cancelled' AND created_at < $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	if err := r.pool.QueryRow(ctx, q, createdBefore).Scan(&n); err != nil {
		return 0, translate("count stale pending", err)
	}
	return n, nil
}

// translate maps driver errors onto the domain taxonomy. Raw driver text is
// kept in the chain for logs only.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case referenceConstraint:
			return fmt.Errorf("%s: %w", op, domain.ErrDuplicateReference)
		case slotConstraint:
			return fmt.Errorf("%s: %w", op, domain.ErrSlotTaken)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
