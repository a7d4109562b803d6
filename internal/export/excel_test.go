package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"localpro/internal/database"
	"localpro/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestScheduleToExcel(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	// Monday slot with one booking in it.
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	slot := &models.AvailabilitySlot{ProviderID: 1, DayOfWeek: 1, Start: 540, End: 1020, MaxBookings: 2, Active: true}
	require.NoError(t, db.CreateSlot(ctx, slot))

	b := &models.Booking{
		ProviderID:    1,
		CustomerID:    2,
		ServiceID:     1,
		Date:          date,
		Start:         600,
		End:           660,
		Status:        models.StatusConfirmed,
		PaymentStatus: models.PaymentUnpaid,
	}
	_, err = db.CreateBookingWithLock(ctx, b, 2)
	require.NoError(t, err)

	exporter := NewExporter(db, filepath.Join(t.TempDir(), "exports"), &logger)
	path, err := exporter.ScheduleToExcel(ctx, 1, date, date.AddDate(0, 0, 2))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	title, err := f.GetCellValue(scheduleSheetName, "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "2026-09-14")
	assert.Contains(t, title, "2026-09-16")

	// The Monday column carries the booking; the slot row labels the window.
	label, err := f.GetCellValue(scheduleSheetName, "A3")
	require.NoError(t, err)
	assert.Contains(t, label, "09:00-17:00")

	cell, err := f.GetCellValue(scheduleSheetName, "B3")
	require.NoError(t, err)
	assert.Contains(t, cell, "10:00-11:00")
	assert.Contains(t, cell, "confirmed")
	assert.Contains(t, cell, "1/2")
}

func TestScheduleToExcel_InvertedRange(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	exporter := NewExporter(db, t.TempDir(), &logger)
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	_, err = exporter.ScheduleToExcel(context.Background(), 1, date, date.AddDate(0, 0, -1))
	assert.Error(t, err)
}
