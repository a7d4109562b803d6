package service

import (
	"context"
	"testing"

	"localpro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestResolveSlot(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	morning := e.seedSlot(t, 1, 1, 540, 720, 2)
	afternoon := e.seedSlot(t, 1, 1, 780, 1020, 2)

	slot, err := e.avail.ResolveSlot(ctx, 1, testMonday, models.TimeRange{Start: 600, End: 660})
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, morning.ID, slot.ID)

	slot, err = e.avail.ResolveSlot(ctx, 1, testMonday, models.TimeRange{Start: 840, End: 900})
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, afternoon.ID, slot.ID)

	// Spanning the gap between slots fits neither.
	slot, err = e.avail.ResolveSlot(ctx, 1, testMonday, models.TimeRange{Start: 700, End: 800})
	require.NoError(t, err)
	assert.Nil(t, slot)
}

func TestResolveSlot_OverlappingDefinitions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.seedSlot(t, 1, 1, 540, 1020, 2)
	e.seedSlot(t, 1, 1, 480, 720, 2)

	_, err := e.avail.ResolveSlot(ctx, 1, testMonday, models.TimeRange{Start: 600, End: 660})
	assert.ErrorIs(t, err, ErrOverlappingSlots)
}

func TestResolveSlot_BreakSplitsWindow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	slot := &models.AvailabilitySlot{
		ProviderID:  1,
		DayOfWeek:   1,
		Start:       540,
		End:         1020,
		MaxBookings: 2,
		BreakStart:  intPtr(720),
		BreakEnd:    intPtr(780),
	}
	require.NoError(t, e.avail.CreateSlot(ctx, slot))

	got, err := e.avail.ResolveSlot(ctx, 1, testMonday, models.TimeRange{Start: 660, End: 720})
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = e.avail.ResolveSlot(ctx, 1, testMonday, models.TimeRange{Start: 700, End: 800})
	require.NoError(t, err)
	assert.Nil(t, got, "ranges spanning the break do not fit")
}

func TestCapacity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.seedSlot(t, 1, 1, 540, 1020, 2)
	tr := models.TimeRange{Start: 540, End: 600}

	info, err := e.avail.Capacity(ctx, 1, testMonday, tr)
	require.NoError(t, err)
	assert.True(t, info.Available)
	assert.Equal(t, 2, info.Remaining)

	_, err = e.bookings.CreateBooking(ctx, bookingInput(1, 2, testMonday, 540, 600), testNow)
	require.NoError(t, err)

	info, err = e.avail.Capacity(ctx, 1, testMonday, tr)
	require.NoError(t, err)
	assert.True(t, info.Available)
	assert.Equal(t, 1, info.Remaining)

	_, err = e.bookings.CreateBooking(ctx, bookingInput(1, 3, testMonday, 540, 600), testNow)
	require.NoError(t, err)

	info, err = e.avail.Capacity(ctx, 1, testMonday, tr)
	require.NoError(t, err)
	assert.False(t, info.Available)
	assert.Equal(t, 0, info.Remaining)
}

func TestCapacity_ExceptionSuppressesSlots(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.seedSlot(t, 1, 1, 540, 1020, 5)

	exc := &models.AvailabilityException{
		ProviderID: 1,
		StartDate:  testMonday,
		EndDate:    testMonday,
		Reason:     models.ExceptionSickLeave,
	}
	require.NoError(t, e.avail.CreateException(ctx, exc))

	info, err := e.avail.Capacity(ctx, 1, testMonday, models.TimeRange{Start: 540, End: 600})
	require.NoError(t, err)
	assert.False(t, info.Available)
	assert.Equal(t, 0, info.Remaining)
}

func TestCapacity_LoweredBelowOccupancyClampsToZero(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	slot := e.seedSlot(t, 1, 1, 540, 1020, 2)

	_, err := e.bookings.CreateBooking(ctx, bookingInput(1, 2, testMonday, 540, 600), testNow)
	require.NoError(t, err)
	_, err = e.bookings.CreateBooking(ctx, bookingInput(1, 3, testMonday, 540, 600), testNow)
	require.NoError(t, err)

	slot.MaxBookings = 1
	require.NoError(t, e.avail.UpdateSlot(ctx, slot))

	info, err := e.avail.Capacity(ctx, 1, testMonday, models.TimeRange{Start: 540, End: 600})
	require.NoError(t, err)
	assert.False(t, info.Available)
	assert.Equal(t, 0, info.Remaining, "never reports negative capacity")
}

func TestCreateSlot_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	err := e.avail.CreateSlot(ctx, &models.AvailabilitySlot{DayOfWeek: 1, Start: 540, End: 1020, MaxBookings: 2})
	assert.Error(t, err, "provider required")

	err = e.avail.CreateSlot(ctx, &models.AvailabilitySlot{ProviderID: 1, DayOfWeek: 1, Start: 600, End: 540, MaxBookings: 2})
	assert.Error(t, err, "inverted window")
}

func TestDeactivateSlot_RemovesFutureCapacity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	slot := e.seedSlot(t, 1, 1, 540, 1020, 2)

	require.NoError(t, e.avail.DeactivateSlot(ctx, slot.ID))

	info, err := e.avail.Capacity(ctx, 1, testMonday, models.TimeRange{Start: 540, End: 600})
	require.NoError(t, err)
	assert.False(t, info.Available)
}
