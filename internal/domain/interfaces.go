package domain

import (
	"context"
	"time"

	"localpro/internal/events"
	"localpro/internal/models"
)

// BookingStore is the persistence surface for bookings.
type BookingStore interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking, maxBookings int) ([]int64, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status, reason string, now time.Time) error
	SetBookingHidden(ctx context.Context, id int64, hidden bool) error
	ListBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, error)
	CountBookings(ctx context.Context, f models.BookingFilter) (int, error)
	CountOverlappingBookings(ctx context.Context, providerID int64, date time.Time, tr models.TimeRange) (int, error)
	GetOverlappingBookings(ctx context.Context, providerID int64, date time.Time, tr models.TimeRange) ([]*models.Booking, error)
	ListOverdueBookings(ctx context.Context, providerID int64, today time.Time) ([]*models.Booking, error)
	ListProvidersWithOverdue(ctx context.Context, today time.Time) ([]int64, error)
	GetBookingsByDateRange(ctx context.Context, providerID int64, start, end time.Time) ([]*models.Booking, error)
}

// AvailabilityStore is the persistence surface for slots, exceptions and
// service areas.
type AvailabilityStore interface {
	CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error
	GetSlot(ctx context.Context, id int64) (*models.AvailabilitySlot, error)
	UpdateSlot(ctx context.Context, slot *models.AvailabilitySlot) error
	DeactivateSlot(ctx context.Context, id int64) error
	ListSlots(ctx context.Context, providerID int64) ([]*models.AvailabilitySlot, error)
	ListActiveSlotsForDay(ctx context.Context, providerID int64, dayOfWeek int) ([]*models.AvailabilitySlot, error)
	CreateException(ctx context.Context, exc *models.AvailabilityException) error
	DeleteException(ctx context.Context, id int64) error
	ListExceptions(ctx context.Context, providerID int64) ([]*models.AvailabilityException, error)
	HasExceptionCovering(ctx context.Context, providerID int64, date time.Time) (bool, error)
	CreateServiceArea(ctx context.Context, area *models.ServiceArea) error
	DeleteServiceArea(ctx context.Context, id int64) error
	ListServiceAreas(ctx context.Context, providerID int64) ([]*models.ServiceArea, error)
}

// RequestStore is the persistence surface for the quote flow.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *models.BookingRequest) error
	GetRequest(ctx context.Context, id int64) (*models.BookingRequest, error)
	UpdateRequestWithVersion(ctx context.Context, id, fromVersion int64, status string, quoteAmount float64) error
	ListRequests(ctx context.Context, providerID int64, status string) ([]*models.BookingRequest, error)
}

// SyncQueueStore persists schedule sync tasks across restarts.
type SyncQueueStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error)
}

// Repository is the full persistence surface; *database.DB satisfies it.
type Repository interface {
	BookingStore
	AvailabilityStore
	RequestStore
	SyncQueueStore
}

// EventPublisher publishes domain events for the notification subsystem.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// EventQueue forwards published events to an external consumer.
type EventQueue interface {
	Enqueue(ctx context.Context, event events.Event) error
}

// AccessWindowSource reports a provider's current access window from the
// billing subsystem. Implementations must not cache results: subscription
// state can change between calls.
type AccessWindowSource interface {
	GetAccessWindow(ctx context.Context, providerID int64) (models.AccessWindow, error)
}

// SchedulePublisher pushes a provider's schedule to an external sheet.
type SchedulePublisher interface {
	PublishSchedule(ctx context.Context, providerID int64, start, end time.Time, bookings []*models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
}

// SyncWorker accepts schedule synchronization tasks.
type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking, status string) error
}
