package database

import (
	"context"
	"testing"
	"time"

	"localpro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSlotCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	slot := &models.AvailabilitySlot{
		ProviderID:  1,
		DayOfWeek:   1,
		Start:       540,
		End:         1020,
		MaxBookings: 3,
		BreakStart:  intPtr(720),
		BreakEnd:    intPtr(780),
		Active:      true,
	}
	require.NoError(t, db.CreateSlot(ctx, slot))
	assert.NotZero(t, slot.ID)

	got, err := db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slot.Start, got.Start)
	require.NotNil(t, got.BreakStart)
	assert.Equal(t, 720, *got.BreakStart)

	got.MaxBookings = 5
	got.BreakStart = nil
	got.BreakEnd = nil
	require.NoError(t, db.UpdateSlot(ctx, got))

	got, err = db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.MaxBookings)
	assert.Nil(t, got.BreakStart)

	require.NoError(t, db.DeactivateSlot(ctx, slot.ID))
	got, err = db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, db.DeactivateSlot(ctx, 9999), ErrNotFound)
}

func TestListActiveSlotsForDay(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	monday := &models.AvailabilitySlot{ProviderID: 1, DayOfWeek: 1, Start: 540, End: 720, MaxBookings: 1, Active: true}
	require.NoError(t, db.CreateSlot(ctx, monday))
	mondayLate := &models.AvailabilitySlot{ProviderID: 1, DayOfWeek: 1, Start: 780, End: 1020, MaxBookings: 1, Active: true}
	require.NoError(t, db.CreateSlot(ctx, mondayLate))
	tuesday := &models.AvailabilitySlot{ProviderID: 1, DayOfWeek: 2, Start: 540, End: 720, MaxBookings: 1, Active: true}
	require.NoError(t, db.CreateSlot(ctx, tuesday))
	inactive := &models.AvailabilitySlot{ProviderID: 1, DayOfWeek: 1, Start: 0, End: 120, MaxBookings: 1, Active: true}
	require.NoError(t, db.CreateSlot(ctx, inactive))
	require.NoError(t, db.DeactivateSlot(ctx, inactive.ID))

	slots, err := db.ListActiveSlotsForDay(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, monday.ID, slots[0].ID)
	assert.Equal(t, mondayLate.ID, slots[1].ID)
}

func TestExceptionCoverage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	exc := &models.AvailabilityException{
		ProviderID: 1,
		StartDate:  time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Reason:     models.ExceptionVacation,
		Approved:   true,
	}
	require.NoError(t, db.CreateException(ctx, exc))

	covered, err := db.HasExceptionCovering(ctx, 1, time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, covered)

	covered, err = db.HasExceptionCovering(ctx, 1, time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, covered, "end date inclusive")

	covered, err = db.HasExceptionCovering(ctx, 1, time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, covered)

	covered, err = db.HasExceptionCovering(ctx, 2, time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, covered, "other providers unaffected")

	list, err := db.ListExceptions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2026-09-10", list[0].StartDate.Format(models.DateLayout))

	require.NoError(t, db.DeleteException(ctx, exc.ID))
	assert.ErrorIs(t, db.DeleteException(ctx, exc.ID), ErrNotFound)
}

func TestServiceAreaCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	area := &models.ServiceArea{
		ProviderID: 1,
		Name:       "Downtown",
		CenterLat:  52.52,
		CenterLng:  13.405,
		RadiusKm:   10,
		TravelFee:  5.5,
	}
	require.NoError(t, db.CreateServiceArea(ctx, area))

	areas, err := db.ListServiceAreas(ctx, 1)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, "Downtown", areas[0].Name)
	assert.InDelta(t, 5.5, areas[0].TravelFee, 0.001)

	require.NoError(t, db.DeleteServiceArea(ctx, area.ID))
	assert.ErrorIs(t, db.DeleteServiceArea(ctx, area.ID), ErrNotFound)
}

func TestRequestLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	req := &models.BookingRequest{
		ProviderID: 1,
		CustomerID: 2,
		ServiceID:  3,
		Date:       time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		Start:      540,
		End:        600,
		Note:       "garden fence repair",
		Status:     models.RequestPending,
	}
	require.NoError(t, db.CreateRequest(ctx, req))
	assert.Equal(t, int64(1), req.Version)

	require.NoError(t, db.UpdateRequestWithVersion(ctx, req.ID, req.Version, models.RequestQuoted, 120))

	got, err := db.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestQuoted, got.Status)
	assert.InDelta(t, 120, got.QuoteAmount, 0.001)
	assert.Equal(t, int64(2), got.Version)

	// Stale version loses.
	err = db.UpdateRequestWithVersion(ctx, req.ID, req.Version, models.RequestDeclined, 120)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	quoted, err := db.ListRequests(ctx, 1, models.RequestQuoted)
	require.NoError(t, err)
	assert.Len(t, quoted, 1)
	declined, err := db.ListRequests(ctx, 1, models.RequestDeclined)
	require.NoError(t, err)
	assert.Empty(t, declined)
}
