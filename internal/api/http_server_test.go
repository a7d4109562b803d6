package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"localpro/internal/config"
	"localpro/internal/database"
	"localpro/internal/export"
	"localpro/internal/models"
	"localpro/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccess struct {
	win models.AccessWindow
}

func (s *stubAccess) GetAccessWindow(context.Context, int64) (models.AccessWindow, error) {
	return s.win, nil
}

type apiEnv struct {
	srv     *HTTPServer
	db      *database.DB
	billing *stubAccess

	// bookDate is a week out so it clears the past-date check, with dateStr
	// and weekday derived from it.
	bookDate time.Time
	dateStr  string
	weekday  int
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	billing := &stubAccess{win: models.AccessWindow{HasPaidPlan: true}}
	avail := service.NewAvailabilityService(db, &logger)
	detector := service.NewConflictDetector(avail, db, &logger)
	bookings := service.NewBookingService(db, detector, billing, nil, nil, 180, 20, &logger)
	requests := service.NewRequestService(db, bookings, &logger)
	reconciler := service.NewReconciler(bookings, db, &logger)
	exporter := export.NewExporter(db, filepath.Join(t.TempDir(), "exports"), &logger)

	srv := NewHTTPServer(config.APIConfig{Port: 0}, avail, bookings, requests, reconciler, exporter, &logger)

	bookDate := models.DateOnly(time.Now().AddDate(0, 0, 7))
	return &apiEnv{
		srv:      srv,
		db:       db,
		billing:  billing,
		bookDate: bookDate,
		dateStr:  bookDate.Format(models.DateLayout),
		weekday:  int(bookDate.Weekday()),
	}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *apiEnv) createSlot(t *testing.T, providerID int64, maxBookings int) models.AvailabilitySlot {
	t.Helper()
	rec := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/providers/%d/slots", providerID), map[string]any{
		"day_of_week":  e.weekday,
		"start":        "09:00",
		"end":          "17:00",
		"max_bookings": maxBookings,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.AvailabilitySlot](t, rec)
}

func (e *apiEnv) createBooking(t *testing.T, providerID, customerID int64, start, end string) models.Booking {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"provider_id": providerID,
		"customer_id": customerID,
		"service_id":  1,
		"date":        e.dateStr,
		"start":       start,
		"end":         end,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Booking](t, rec)
}

func TestHTTP_SlotLifecycle(t *testing.T) {
	e := newAPIEnv(t)
	slot := e.createSlot(t, 1, 2)
	assert.True(t, slot.Active)

	rec := e.do(t, http.MethodGet, "/api/v1/providers/1/slots", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slots"`)

	rec = e.do(t, http.MethodPut, fmt.Sprintf("/api/v1/slots/%d", slot.ID), map[string]any{
		"day_of_week":  e.weekday,
		"start":        "10:00",
		"end":          "16:00",
		"max_bookings": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.AvailabilitySlot](t, rec)
	assert.Equal(t, 600, updated.Start)
	assert.Equal(t, 3, updated.MaxBookings)

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/slots/%d", slot.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/v1/slots/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_SlotValidationRejected(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/providers/1/slots", map[string]any{
		"day_of_week":  e.weekday,
		"start":        "17:00",
		"end":          "09:00",
		"max_bookings": 2,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/providers/1/slots", map[string]any{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestHTTP_Availability(t *testing.T) {
	e := newAPIEnv(t)
	e.createSlot(t, 1, 2)

	rec := e.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/providers/1/availability?date=%s&start=10:00&end=11:00", e.dateStr), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	info := decode[models.CapacityInfo](t, rec)
	assert.True(t, info.Available)
	assert.Equal(t, 2, info.Remaining)

	rec = e.do(t, http.MethodGet, "/api/v1/providers/1/availability?date=nope&start=10:00&end=11:00", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_BookingFlow(t *testing.T) {
	e := newAPIEnv(t)
	e.createSlot(t, 1, 1)

	booking := e.createBooking(t, 1, 2, "10:00", "11:00")
	assert.Equal(t, models.StatusPending, booking.Status)

	rec := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", booking.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[models.BookingView](t, rec)
	assert.True(t, view.CanAccess)

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/transition", booking.ID), map[string]any{
		"actor_role": "provider",
		"actor_id":   1,
		"target":     "confirmed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decode[models.Booking](t, rec)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	// A second overlapping booking conflicts and names the occupant.
	rec = e.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"provider_id": 1,
		"customer_id": 3,
		"service_id":  1,
		"date":        e.dateStr,
		"start":       "10:30",
		"end":         "11:30",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "time_conflict", body["code"])
	assert.NotEmpty(t, body["conflicting_ids"])
}

func TestHTTP_TransitionErrors(t *testing.T) {
	e := newAPIEnv(t)
	e.createSlot(t, 1, 2)
	booking := e.createBooking(t, 1, 2, "10:00", "11:00")
	path := fmt.Sprintf("/api/v1/bookings/%d/transition", booking.ID)

	rec := e.do(t, http.MethodPost, path, map[string]any{
		"actor_role": "provider", "actor_id": 99, "target": "confirmed",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, path, map[string]any{
		"actor_role": "provider", "actor_id": 1, "target": "completed",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "invalid_transition", body["code"])
	assert.Equal(t, "pending", body["from"])

	rec = e.do(t, http.MethodPost, path, map[string]any{
		"actor_role": "customer", "actor_id": 2, "target": "cancelled",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "cancel needs a reason")

	rec = e.do(t, http.MethodPost, "/api/v1/bookings/9999/transition", map[string]any{
		"actor_role": "provider", "actor_id": 1, "target": "confirmed",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_SlotUnavailableMapsToConflict(t *testing.T) {
	e := newAPIEnv(t)
	// No slots at all.
	rec := e.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"provider_id": 1,
		"customer_id": 2,
		"service_id":  1,
		"date":        e.dateStr,
		"start":       "10:00",
		"end":         "11:00",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "slot_unavailable", body["code"])
}

func TestHTTP_HideRestore(t *testing.T) {
	e := newAPIEnv(t)
	e.createSlot(t, 1, 2)
	booking := e.createBooking(t, 1, 2, "10:00", "11:00")

	rec := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/hide", booking.ID), map[string]any{"provider_id": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	hidden := decode[models.Booking](t, rec)
	assert.True(t, hidden.Hidden)

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/hide", booking.ID), map[string]any{"provider_id": 42})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/restore", booking.ID), map[string]any{"provider_id": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	restored := decode[models.Booking](t, rec)
	assert.False(t, restored.Hidden)
}

func TestHTTP_ListBookingsPaged(t *testing.T) {
	e := newAPIEnv(t)
	e.createSlot(t, 1, 10)
	for i := 0; i < 3; i++ {
		e.createBooking(t, 1, int64(i+2), fmt.Sprintf("%02d:00", 10+i), fmt.Sprintf("%02d:00", 11+i))
	}

	rec := e.do(t, http.MethodGet, "/api/v1/providers/1/bookings?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[service.BookingPage](t, rec)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
}

func TestHTTP_RequestFlow(t *testing.T) {
	e := newAPIEnv(t)
	e.createSlot(t, 1, 2)

	rec := e.do(t, http.MethodPost, "/api/v1/requests", map[string]any{
		"provider_id": 1,
		"customer_id": 2,
		"service_id":  1,
		"date":        e.dateStr,
		"start":       "10:00",
		"end":         "11:00",
		"note":        "quote please",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decode[models.BookingRequest](t, rec)
	assert.Equal(t, models.RequestPending, req.Status)

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/quote", req.ID), map[string]any{
		"provider_id": 1,
		"amount":      80,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quoted := decode[models.BookingRequest](t, rec)
	assert.Equal(t, models.RequestQuoted, quoted.Status)

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/accept", req.ID), map[string]any{
		"customer_id": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode[models.Booking](t, rec)
	assert.Equal(t, models.StatusQuoteSent, booking.Status)

	rec = e.do(t, http.MethodGet, "/api/v1/providers/1/requests?status=accepted", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accepted"`)
}

func TestHTTP_DeclineRequest(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/requests", map[string]any{
		"provider_id": 1,
		"customer_id": 2,
		"service_id":  1,
		"date":        e.dateStr,
		"start":       "10:00",
		"end":         "11:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	req := decode[models.BookingRequest](t, rec)

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/decline", req.ID), map[string]any{
		"actor_role": "provider",
		"actor_id":   1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	declined := decode[models.BookingRequest](t, rec)
	assert.Equal(t, models.RequestDeclined, declined.Status)
}

func TestHTTP_Reconcile(t *testing.T) {
	e := newAPIEnv(t)
	ctx := context.Background()

	yesterday := models.DateOnly(time.Now().AddDate(0, 0, -1))
	b := &models.Booking{
		ProviderID:    1,
		CustomerID:    2,
		ServiceID:     1,
		Date:          yesterday,
		Start:         540,
		End:           600,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentUnpaid,
	}
	_, err := e.db.CreateBookingWithLock(ctx, b, 5)
	require.NoError(t, err)
	require.NoError(t, e.db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.StatusConfirmed, "", time.Now()))

	rec := e.do(t, http.MethodPost, "/api/v1/providers/1/reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[service.ReconcileResult](t, rec)
	assert.Equal(t, 1, result.Count)

	got, err := e.db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestHTTP_Export(t *testing.T) {
	e := newAPIEnv(t)
	e.createSlot(t, 1, 2)
	e.createBooking(t, 1, 2, "10:00", "11:00")

	rec := e.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/providers/1/export?start=%s&end=%s", e.dateStr, e.dateStr), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]string](t, rec)
	_, err := os.Stat(body["file"])
	assert.NoError(t, err, "export file exists on disk")
}
