package service

import (
	"context"
	"testing"

	"localpro/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteOverdue(t *testing.T) {
	e := newTestEnv(t)
	logger := zerolog.Nop()
	rec := NewReconciler(e.bookings, e.db, &logger)
	ctx := context.Background()
	e.seedSlot(t, 1, 1, 540, 1020, 5)
	provider := models.Actor{Role: models.RoleProvider, ID: 1}

	confirmed, err := e.bookings.CreateBooking(ctx, bookingInput(1, 2, testMonday, 540, 600), testNow)
	require.NoError(t, err)
	_, err = e.bookings.Transition(ctx, confirmed.ID, provider, models.StatusConfirmed, "", testNow)
	require.NoError(t, err)

	// Still pending; the sweep leaves it alone.
	pending, err := e.bookings.CreateBooking(ctx, bookingInput(1, 3, testMonday, 600, 660), testNow)
	require.NoError(t, err)

	later := testMonday.AddDate(0, 0, 2)
	result, err := rec.CompleteOverdue(ctx, 1, later)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Empty(t, result.SkippedIDs)

	got, err := e.db.GetBooking(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	got, err = e.db.GetBooking(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	// Re-running finds nothing left to do.
	result, err = rec.CompleteOverdue(ctx, 1, later)
	require.NoError(t, err)
	assert.Zero(t, result.Count)
}

func TestCompleteOverdue_SameDayNotSwept(t *testing.T) {
	e := newTestEnv(t)
	logger := zerolog.Nop()
	rec := NewReconciler(e.bookings, e.db, &logger)
	ctx := context.Background()
	e.seedSlot(t, 1, 1, 540, 1020, 5)

	b, err := e.bookings.CreateBooking(ctx, bookingInput(1, 2, testMonday, 540, 600), testNow)
	require.NoError(t, err)
	_, err = e.bookings.Transition(ctx, b.ID, models.Actor{Role: models.RoleProvider, ID: 1}, models.StatusConfirmed, "", testNow)
	require.NoError(t, err)

	result, err := rec.CompleteOverdue(ctx, 1, testMonday)
	require.NoError(t, err)
	assert.Zero(t, result.Count, "the booking's own day is not overdue")
}

func TestCompleteAllOverdue(t *testing.T) {
	e := newTestEnv(t)
	logger := zerolog.Nop()
	rec := NewReconciler(e.bookings, e.db, &logger)
	ctx := context.Background()
	e.seedSlot(t, 1, 1, 540, 1020, 5)
	e.seedSlot(t, 2, 1, 540, 1020, 5)

	for _, providerID := range []int64{1, 2} {
		b, err := e.bookings.CreateBooking(ctx, bookingInput(providerID, 9, testMonday, 540, 600), testNow)
		require.NoError(t, err)
		_, err = e.bookings.Transition(ctx, b.ID, models.Actor{Role: models.RoleProvider, ID: providerID}, models.StatusConfirmed, "", testNow)
		require.NoError(t, err)
	}

	total, err := rec.CompleteAllOverdue(ctx, testMonday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
