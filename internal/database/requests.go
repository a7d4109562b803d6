package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"localpro/internal/models"
)

const requestColumns = `id, provider_id, customer_id, service_id, date(date), start_min, end_min,
	note, quote_amount, status, created_at, updated_at, version`

func scanRequest(row rowScanner) (*models.BookingRequest, error) {
	var r models.BookingRequest
	var dateStr string
	err := row.Scan(
		&r.ID, &r.ProviderID, &r.CustomerID, &r.ServiceID, &dateStr, &r.Start, &r.End,
		&r.Note, &r.QuoteAmount, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse request date %s: %w", dateStr, err)
	}
	return &r, nil
}

func (db *DB) CreateRequest(ctx context.Context, req *models.BookingRequest) error {
	query := `INSERT INTO booking_requests (
			provider_id, customer_id, service_id, date, start_min, end_min, note,
			quote_amount, status, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		req.ProviderID, req.CustomerID, req.ServiceID,
		req.Date.Format(models.DateLayout), req.Start, req.End, req.Note,
		req.QuoteAmount, req.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	req.ID = id
	req.CreatedAt = now
	req.UpdatedAt = now
	req.Version = 1
	return nil
}

func (db *DB) GetRequest(ctx context.Context, id int64) (*models.BookingRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM booking_requests WHERE id = ?`
	r, err := scanRequest(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking request: %w", err)
	}
	return r, nil
}

// UpdateRequestWithVersion writes status and quote amount with an optimistic
// version check.
func (db *DB) UpdateRequestWithVersion(ctx context.Context, id, fromVersion int64, status string, quoteAmount float64) error {
	query := `UPDATE booking_requests SET status = ?, quote_amount = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, quoteAmount, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking request: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) ListRequests(ctx context.Context, providerID int64, status string) ([]*models.BookingRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM booking_requests WHERE provider_id = ?`
	args := []any{providerID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.BookingRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking request: %w", err)
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}
