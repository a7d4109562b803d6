package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"localpro/internal/models"
)

const bookingColumns = `id, provider_id, customer_id, service_id, date(date), start_min, end_min,
	duration_min, status, payment_status, reason, hidden, created_at, confirmed_at, completed_at,
	updated_at, version`

// overlapCondition matches bookings holding capacity that intersect a
// half-open [start, end) range on a date. Bind order: provider, date, end, start.
const overlapCondition = `provider_id = ? AND date(date) = date(?)
	AND status NOT IN ('cancelled', 'rejected')
	AND start_min < ? AND ? < end_min`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var dateStr string
	var confirmedAt, completedAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.ProviderID, &b.CustomerID, &b.ServiceID, &dateStr, &b.Start, &b.End,
		&b.DurationMin, &b.Status, &b.PaymentStatus, &b.Reason, &b.Hidden, &b.CreatedAt,
		&confirmedAt, &completedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	if confirmedAt.Valid {
		b.ConfirmedAt = &confirmedAt.Time
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

// CreateBookingWithLock atomically re-checks slot capacity and inserts the
// booking within one transaction, so two concurrent requests cannot both
// observe remaining capacity and both insert. On ErrCapacityExhausted the
// returned slice holds the IDs of the bookings occupying the range.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking, maxBookings int) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	queryOverlap := `SELECT id FROM bookings WHERE ` + overlapCondition + ` ORDER BY id`
	rows, err := tx.QueryContext(ctx, queryOverlap,
		booking.ProviderID, booking.Date.Format(models.DateLayout), booking.End, booking.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	var occupying []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan overlap id: %w", err)
		}
		occupying = append(occupying, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate overlap ids: %w", err)
	}

	if len(occupying) >= maxBookings {
		return occupying, ErrCapacityExhausted
	}

	queryInsert := `INSERT INTO bookings (
			provider_id, customer_id, service_id, date, start_min, end_min, duration_min,
			status, payment_status, reason, hidden, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, 1)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, queryInsert,
		booking.ProviderID,
		booking.CustomerID,
		booking.ServiceID,
		booking.Date.Format(models.DateLayout),
		booking.Start,
		booking.End,
		booking.End-booking.Start,
		booking.Status,
		booking.PaymentStatus,
		booking.Reason,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.DurationMin = booking.End - booking.Start
	booking.Hidden = false
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return nil, tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// UpdateBookingStatusWithVersion performs an optimistic status update: the
// write succeeds only if the row still carries fromVersion, so two stale
// transitions cannot both go through. Confirmation and completion timestamps
// are stamped on the matching targets.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status, reason string, now time.Time) error {
	set := []string{"status = ?", "version = version + 1", "updated_at = ?"}
	args := []any{status, now}
	if reason != "" {
		set = append(set, "reason = ?")
		args = append(args, reason)
	}
	switch status {
	case models.StatusConfirmed:
		set = append(set, "confirmed_at = ?")
		args = append(args, now)
	case models.StatusCompleted:
		set = append(set, "completed_at = ?")
		args = append(args, now)
	}
	args = append(args, id, fromVersion)

	query := `UPDATE bookings SET ` + strings.Join(set, ", ") + ` WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// SetBookingHidden flips the provider-scoped visibility flag. Idempotent and
// independent of lifecycle state.
func (db *DB) SetBookingHidden(ctx context.Context, id int64, hidden bool) error {
	query := `UPDATE bookings SET hidden = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, hidden, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set booking hidden flag: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func filterWhere(f models.BookingFilter) (string, []any) {
	conds := []string{"provider_id = ?"}
	args := []any{f.ProviderID}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	switch f.Hidden {
	case models.HiddenOnly:
		conds = append(conds, "hidden = 1")
	case models.HiddenInclude:
		// no visibility condition
	default:
		conds = append(conds, "hidden = 0")
	}
	return strings.Join(conds, " AND "), args
}

func (db *DB) ListBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, error) {
	where, args := filterWhere(f)
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where +
		` ORDER BY date ASC, start_min ASC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) CountBookings(ctx context.Context, f models.BookingFilter) (int, error) {
	where, args := filterWhere(f)
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// CountOverlappingBookings counts capacity-holding bookings intersecting the
// range on the date.
func (db *DB) CountOverlappingBookings(ctx context.Context, providerID int64, date time.Time, tr models.TimeRange) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE ` + overlapCondition
	var count int
	err := db.QueryRowContext(ctx, query,
		providerID, date.Format(models.DateLayout), tr.End, tr.Start).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// GetOverlappingBookings returns capacity-holding bookings intersecting the
// range, used to surface which bookings conflict.
func (db *DB) GetOverlappingBookings(ctx context.Context, providerID int64, date time.Time, tr models.TimeRange) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + overlapCondition + ` ORDER BY start_min ASC`
	rows, err := db.QueryContext(ctx, query,
		providerID, date.Format(models.DateLayout), tr.End, tr.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get overlapping bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListOverdueBookings returns confirmed bookings dated strictly before today.
func (db *DB) ListOverdueBookings(ctx context.Context, providerID int64, today time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE provider_id = ? AND status = 'confirmed' AND date(date) < date(?)
		ORDER BY date ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, providerID, today.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListProvidersWithOverdue returns providers holding at least one overdue
// confirmed booking, for the periodic reconciliation trigger.
func (db *DB) ListProvidersWithOverdue(ctx context.Context, today time.Time) ([]int64, error) {
	query := `SELECT DISTINCT provider_id FROM bookings
		WHERE status = 'confirmed' AND date(date) < date(?) ORDER BY provider_id`
	rows, err := db.QueryContext(ctx, query, today.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list providers with overdue bookings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan provider id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetBookingsByDateRange returns a provider's bookings between start and end
// inclusive, for schedule export and sheet sync.
func (db *DB) GetBookingsByDateRange(ctx context.Context, providerID int64, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE provider_id = ? AND date(date) >= date(?) AND date(date) <= date(?)
		ORDER BY date ASC, start_min ASC`
	rows, err := db.QueryContext(ctx, query,
		providerID, start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
