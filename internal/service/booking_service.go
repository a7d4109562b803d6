package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"localpro/internal/database"
	"localpro/internal/domain"
	"localpro/internal/events"
	"localpro/internal/metrics"
	"localpro/internal/models"

	"github.com/rs/zerolog"
)

// BookingService owns the booking lifecycle: creation through the conflict
// detector, status transitions under the role and access rules, the
// visibility overlay and paginated list views.
type BookingService struct {
	repo     domain.Repository
	detector *ConflictDetector
	billing  domain.AccessWindowSource
	bus      domain.EventPublisher
	sync     domain.SyncWorker
	policy   AccessPolicy
	logger   *zerolog.Logger

	maxAdvanceDays int
	pageSize       int
}

func NewBookingService(
	repo domain.Repository,
	detector *ConflictDetector,
	billing domain.AccessWindowSource,
	bus domain.EventPublisher,
	sync domain.SyncWorker,
	maxAdvanceDays, pageSize int,
	logger *zerolog.Logger,
) *BookingService {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	return &BookingService{
		repo:           repo,
		detector:       detector,
		billing:        billing,
		bus:            bus,
		sync:           sync,
		logger:         logger,
		maxAdvanceDays: maxAdvanceDays,
		pageSize:       pageSize,
	}
}

// CreateBookingInput carries everything needed to place a booking.
type CreateBookingInput struct {
	ProviderID int64
	CustomerID int64
	ServiceID  int64
	Date       time.Time
	Range      models.TimeRange

	// FromQuote births the booking in quote_sent instead of pending, used
	// when an accepted request carries an agreed price.
	FromQuote bool
}

// CreateBooking runs the full admission path: date horizon, conflict
// detection, then the transactional capacity re-check on insert. The insert
// re-check closes the race where two requests both observe free capacity.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput, now time.Time) (*models.Booking, error) {
	if in.ProviderID == 0 || in.CustomerID == 0 {
		return nil, fmt.Errorf("booking provider and customer are required")
	}
	if !in.Range.Valid() {
		return nil, fmt.Errorf("time range %s is invalid", in.Range)
	}
	day := models.DateOnly(in.Date)
	today := models.DateOnly(now)
	if day.Before(today) {
		return nil, ErrPastDate
	}
	if day.After(today.AddDate(0, 0, s.maxAdvanceDays)) {
		return nil, ErrDateTooFar
	}

	slot, err := s.detector.CheckBooking(ctx, in.ProviderID, day, in.Range)
	if err != nil {
		return nil, err
	}

	status := models.StatusPending
	if in.FromQuote {
		status = models.StatusQuoteSent
	}
	booking := &models.Booking{
		ProviderID:    in.ProviderID,
		CustomerID:    in.CustomerID,
		ServiceID:     in.ServiceID,
		Date:          day,
		Start:         in.Range.Start,
		End:           in.Range.End,
		Status:        status,
		PaymentStatus: models.PaymentUnpaid,
	}

	occupying, err := s.repo.CreateBookingWithLock(ctx, booking, slot.MaxBookings)
	if errors.Is(err, database.ErrCapacityExhausted) {
		// Lost the race between the check and the insert.
		metrics.IncConflict("time_conflict")
		return nil, &TimeConflictError{ConflictingIDs: occupying}
	}
	if err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("provider_id", booking.ProviderID).
		Int64("customer_id", booking.CustomerID).
		Str("date", booking.Date.Format(models.DateLayout)).
		Str("range", booking.TimeRange().String()).
		Str("status", booking.Status).
		Msg("booking created")

	s.publish(events.EventBookingCreated, booking, models.Actor{Role: models.RoleCustomer, ID: booking.CustomerID})
	s.enqueueSync(ctx, "upsert_booking", booking)

	return booking, nil
}

// Transition moves a booking along the lifecycle on behalf of an actor.
// Checks run in order: party membership, the provider's access window, the
// transition table, the actor rule for the edge, the reason requirement, and
// finally the optimistic version check at the write.
func (s *BookingService) Transition(ctx context.Context, bookingID int64, actor models.Actor, target, reason string, now time.Time) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !booking.IsParty(actor) {
		return nil, &ForbiddenError{Reason: "actor is not a party to this booking"}
	}

	if actor.Role == models.RoleProvider {
		win, err := s.billing.GetAccessWindow(ctx, booking.ProviderID)
		if err != nil {
			return nil, fmt.Errorf("get access window: %w", err)
		}
		if !win.Allows(booking.Date) {
			return nil, &ForbiddenError{Reason: "booking is outside the provider's access window"}
		}
	}

	if !models.ValidStatus(target) || !models.CanTransition(booking.Status, target) {
		return nil, &InvalidTransitionError{From: booking.Status, To: target}
	}
	if !models.ActorMayTransition(actor.Role, booking.Status, target) {
		return nil, &ForbiddenError{
			Reason: fmt.Sprintf("%s may not move a booking from %s to %s", actor.Role, booking.Status, target),
		}
	}
	if models.ReasonRequired(actor.Role, target) && strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, target, reason, now); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	metrics.IncTransition(target)
	s.logger.Info().
		Int64("booking_id", updated.ID).
		Str("from", booking.Status).
		Str("to", target).
		Str("actor_role", actor.Role).
		Int64("actor_id", actor.ID).
		Msg("booking transitioned")

	if eventType := events.EventTypeForStatus(target); eventType != "" {
		s.publish(eventType, updated, actor)
	}
	s.enqueueSync(ctx, "update_status", updated)

	return updated, nil
}

// Hide flips the provider-scoped visibility flag on. Idempotent, provider
// only, and independent of lifecycle state: the booking keeps counting
// against capacity and keeps transitioning.
func (s *BookingService) Hide(ctx context.Context, bookingID, providerID int64) (*models.Booking, error) {
	return s.setHidden(ctx, bookingID, providerID, true)
}

// Restore flips the visibility flag off. Idempotent.
func (s *BookingService) Restore(ctx context.Context, bookingID, providerID int64) (*models.Booking, error) {
	return s.setHidden(ctx, bookingID, providerID, false)
}

func (s *BookingService) setHidden(ctx context.Context, bookingID, providerID int64, hidden bool) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ProviderID != providerID {
		return nil, &ForbiddenError{Reason: "only the booking's provider may change its visibility"}
	}
	if err := s.repo.SetBookingHidden(ctx, bookingID, hidden); err != nil {
		return nil, err
	}
	booking.Hidden = hidden
	return booking, nil
}

// ListOptions narrows and pages a booking list request.
type ListOptions struct {
	Status   string
	Hidden   models.HiddenFilter
	Page     int
	PageSize int
}

// BookingPage is one page of projected booking views.
type BookingPage struct {
	Items    []models.BookingView `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// ListBookings returns a provider's bookings projected through the access
// window, with conflict annotations on accessible entries. The window is
// fetched fresh for every call; a lapsed trial locks past-cutoff bookings on
// the very next list.
func (s *BookingService) ListBookings(ctx context.Context, providerID int64, opts ListOptions) (*BookingPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = s.pageSize
	}
	if opts.PageSize > models.MaxPageSize {
		opts.PageSize = models.MaxPageSize
	}

	win, err := s.billing.GetAccessWindow(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("get access window: %w", err)
	}

	filter := models.BookingFilter{
		ProviderID: providerID,
		Status:     opts.Status,
		Hidden:     opts.Hidden,
		Limit:      opts.PageSize,
		Offset:     (opts.Page - 1) * opts.PageSize,
	}

	bookings, err := s.repo.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountBookings(ctx, filter)
	if err != nil {
		return nil, err
	}

	accessible := make([]*models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if win.Allows(b.Date) {
			accessible = append(accessible, b)
		}
	}
	flags, err := s.detector.AnnotateConflicts(ctx, accessible)
	if err != nil {
		return nil, err
	}

	items := make([]models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		view := s.policy.Project(win, b)
		if view.CanAccess {
			view.HasConflict = flags[b.ID]
		}
		items = append(items, view)
	}

	return &BookingPage{Items: items, Total: total, Page: opts.Page, PageSize: opts.PageSize}, nil
}

// GetBooking returns a single booking projected through the provider's
// current access window.
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*models.BookingView, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	win, err := s.billing.GetAccessWindow(ctx, booking.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("get access window: %w", err)
	}
	view := s.policy.Project(win, booking)
	return &view, nil
}

// publish emits a lifecycle event. Notification delivery is best effort and
// never fails the booking operation.
func (s *BookingService) publish(eventType string, b *models.Booking, actor models.Actor) {
	if s.bus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:   b.ID,
		ProviderID:  b.ProviderID,
		CustomerID:  b.CustomerID,
		ServiceID:   b.ServiceID,
		Date:        b.Date,
		Start:       b.Start,
		End:         b.End,
		Status:      b.Status,
		Reason:      b.Reason,
		ChangedBy:   actor.Role,
		ChangedByID: actor.ID,
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).
			Msg("failed to publish booking event")
	}
}

// enqueueSync hands the booking to the schedule sync worker. Best effort.
func (s *BookingService) enqueueSync(ctx context.Context, taskType string, b *models.Booking) {
	if s.sync == nil {
		return
	}
	if err := s.sync.EnqueueTask(ctx, taskType, b, b.Status); err != nil {
		s.logger.Warn().Err(err).Str("task_type", taskType).Int64("booking_id", b.ID).
			Msg("failed to enqueue sync task")
	}
}
