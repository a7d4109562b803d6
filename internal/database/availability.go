package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"localpro/internal/models"
)

const slotColumns = `id, provider_id, day_of_week, start_min, end_min, max_bookings,
	break_start_min, break_end_min, active, created_at, updated_at`

func scanSlot(row rowScanner) (*models.AvailabilitySlot, error) {
	var s models.AvailabilitySlot
	var breakStart, breakEnd sql.NullInt64
	err := row.Scan(
		&s.ID, &s.ProviderID, &s.DayOfWeek, &s.Start, &s.End, &s.MaxBookings,
		&breakStart, &breakEnd, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if breakStart.Valid {
		v := int(breakStart.Int64)
		s.BreakStart = &v
	}
	if breakEnd.Valid {
		v := int(breakEnd.Int64)
		s.BreakEnd = &v
	}
	return &s, nil
}

func (db *DB) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	query := `INSERT INTO availability_slots (
			provider_id, day_of_week, start_min, end_min, max_bookings,
			break_start_min, break_end_min, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		slot.ProviderID, slot.DayOfWeek, slot.Start, slot.End, slot.MaxBookings,
		nullableInt(slot.BreakStart), nullableInt(slot.BreakEnd), slot.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	slot.ID = id
	slot.CreatedAt = now
	slot.UpdatedAt = now
	return nil
}

func (db *DB) GetSlot(ctx context.Context, id int64) (*models.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = ?`
	s, err := scanSlot(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return s, nil
}

func (db *DB) UpdateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	query := `UPDATE availability_slots SET day_of_week = ?, start_min = ?, end_min = ?,
		max_bookings = ?, break_start_min = ?, break_end_min = ?, active = ?, updated_at = ?
		WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		slot.DayOfWeek, slot.Start, slot.End, slot.MaxBookings,
		nullableInt(slot.BreakStart), nullableInt(slot.BreakEnd), slot.Active, time.Now(), slot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeactivateSlot(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE availability_slots SET active = 0, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate slot: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) ListSlots(ctx context.Context, providerID int64) ([]*models.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots
		WHERE provider_id = ? ORDER BY day_of_week ASC, start_min ASC`
	return db.querySlots(ctx, query, providerID)
}

// ListActiveSlotsForDay returns a provider's active slots for one weekday.
func (db *DB) ListActiveSlotsForDay(ctx context.Context, providerID int64, dayOfWeek int) ([]*models.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots
		WHERE provider_id = ? AND day_of_week = ? AND active = 1 ORDER BY start_min ASC`
	return db.querySlots(ctx, query, providerID, dayOfWeek)
}

func (db *DB) querySlots(ctx context.Context, query string, args ...any) ([]*models.AvailabilitySlot, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.AvailabilitySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func (db *DB) CreateException(ctx context.Context, exc *models.AvailabilityException) error {
	query := `INSERT INTO availability_exceptions (
			provider_id, start_date, end_date, reason, approved, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		exc.ProviderID,
		exc.StartDate.Format(models.DateLayout),
		exc.EndDate.Format(models.DateLayout),
		exc.Reason, exc.Approved, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create exception: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	exc.ID = id
	exc.CreatedAt = now
	exc.UpdatedAt = now
	return nil
}

func (db *DB) DeleteException(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete exception: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) ListExceptions(ctx context.Context, providerID int64) ([]*models.AvailabilityException, error) {
	query := `SELECT id, provider_id, date(start_date), date(end_date), reason, approved, created_at, updated_at
		FROM availability_exceptions WHERE provider_id = ? ORDER BY start_date ASC`
	rows, err := db.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}
	defer rows.Close()

	var excs []*models.AvailabilityException
	for rows.Next() {
		var e models.AvailabilityException
		var startStr, endStr string
		if err := rows.Scan(&e.ID, &e.ProviderID, &startStr, &endStr, &e.Reason, &e.Approved, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exception: %w", err)
		}
		if e.StartDate, err = time.Parse(models.DateLayout, startStr); err != nil {
			return nil, fmt.Errorf("failed to parse exception start date: %w", err)
		}
		if e.EndDate, err = time.Parse(models.DateLayout, endStr); err != nil {
			return nil, fmt.Errorf("failed to parse exception end date: %w", err)
		}
		excs = append(excs, &e)
	}
	return excs, rows.Err()
}

// HasExceptionCovering reports whether any exception range for the provider
// includes the date. A covering exception suppresses all slots outright.
func (db *DB) HasExceptionCovering(ctx context.Context, providerID int64, date time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM availability_exceptions
		WHERE provider_id = ? AND date(start_date) <= date(?) AND date(end_date) >= date(?)`
	dateStr := date.Format(models.DateLayout)
	var count int
	if err := db.QueryRowContext(ctx, query, providerID, dateStr, dateStr).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check exception coverage: %w", err)
	}
	return count > 0, nil
}

func (db *DB) CreateServiceArea(ctx context.Context, area *models.ServiceArea) error {
	query := `INSERT INTO service_areas (
			provider_id, name, center_lat, center_lng, radius_km, travel_fee, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		area.ProviderID, area.Name, area.CenterLat, area.CenterLng, area.RadiusKm, area.TravelFee, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create service area: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	area.ID = id
	area.CreatedAt = now
	area.UpdatedAt = now
	return nil
}

func (db *DB) DeleteServiceArea(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM service_areas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete service area: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) ListServiceAreas(ctx context.Context, providerID int64) ([]*models.ServiceArea, error) {
	query := `SELECT id, provider_id, name, center_lat, center_lng, radius_km, travel_fee, created_at, updated_at
		FROM service_areas WHERE provider_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service areas: %w", err)
	}
	defer rows.Close()

	var areas []*models.ServiceArea
	for rows.Next() {
		var a models.ServiceArea
		if err := rows.Scan(&a.ID, &a.ProviderID, &a.Name, &a.CenterLat, &a.CenterLng, &a.RadiusKm, &a.TravelFee, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service area: %w", err)
		}
		areas = append(areas, &a)
	}
	return areas, rows.Err()
}
