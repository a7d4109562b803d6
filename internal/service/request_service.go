package service

import (
	"context"
	"fmt"
	"time"

	"localpro/internal/domain"
	"localpro/internal/models"

	"github.com/rs/zerolog"
)

// RequestService runs the pre-booking quote flow. Requests carry their own
// small state machine (pending, quoted, accepted, declined); acceptance
// produces a real booking born in quote_sent through the regular admission
// path.
type RequestService struct {
	repo     domain.Repository
	bookings *BookingService
	logger   *zerolog.Logger
}

func NewRequestService(repo domain.Repository, bookings *BookingService, logger *zerolog.Logger) *RequestService {
	return &RequestService{repo: repo, bookings: bookings, logger: logger}
}

// CreateRequest records a customer's request for a quote. The range is
// validated but not conflict-checked: capacity is only claimed when the
// quote is accepted.
func (s *RequestService) CreateRequest(ctx context.Context, req *models.BookingRequest) error {
	if req.ProviderID == 0 || req.CustomerID == 0 {
		return fmt.Errorf("request provider and customer are required")
	}
	if !req.TimeRange().Valid() {
		return fmt.Errorf("time range %s is invalid", req.TimeRange())
	}
	req.Date = models.DateOnly(req.Date)
	req.Status = models.RequestPending
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return err
	}
	s.logger.Info().
		Int64("request_id", req.ID).
		Int64("provider_id", req.ProviderID).
		Int64("customer_id", req.CustomerID).
		Msg("booking request created")
	return nil
}

// Quote attaches the provider's price to a pending request.
func (s *RequestService) Quote(ctx context.Context, requestID, providerID int64, amount float64) (*models.BookingRequest, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ProviderID != providerID {
		return nil, &ForbiddenError{Reason: "only the request's provider may quote it"}
	}
	if req.Status != models.RequestPending {
		return nil, &InvalidTransitionError{From: req.Status, To: models.RequestQuoted}
	}
	if amount <= 0 {
		return nil, fmt.Errorf("quote amount must be positive")
	}
	if err := s.repo.UpdateRequestWithVersion(ctx, req.ID, req.Version, models.RequestQuoted, amount); err != nil {
		return nil, err
	}
	return s.repo.GetRequest(ctx, req.ID)
}

// Accept takes the customer's acceptance of a quote and places the booking.
// The booking goes through full conflict detection; if the range was taken in
// the meantime the request stays quoted and the conflict surfaces to the
// customer.
func (s *RequestService) Accept(ctx context.Context, requestID, customerID int64, now time.Time) (*models.Booking, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != customerID {
		return nil, &ForbiddenError{Reason: "only the request's customer may accept it"}
	}
	if req.Status != models.RequestQuoted {
		return nil, &InvalidTransitionError{From: req.Status, To: models.RequestAccepted}
	}

	booking, err := s.bookings.CreateBooking(ctx, CreateBookingInput{
		ProviderID: req.ProviderID,
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
		Date:       req.Date,
		Range:      req.TimeRange(),
		FromQuote:  true,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRequestWithVersion(ctx, req.ID, req.Version, models.RequestAccepted, req.QuoteAmount); err != nil {
		// The booking exists; the stale request is logged for follow-up
		// rather than unwinding the booking.
		s.logger.Error().Err(err).Int64("request_id", req.ID).Int64("booking_id", booking.ID).
			Msg("booking placed but request acceptance failed to persist")
		return booking, err
	}

	s.logger.Info().
		Int64("request_id", req.ID).
		Int64("booking_id", booking.ID).
		Msg("quote accepted, booking placed")
	return booking, nil
}

// Decline closes a pending or quoted request. Providers and the customer may
// both decline.
func (s *RequestService) Decline(ctx context.Context, requestID int64, actor models.Actor) (*models.BookingRequest, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleProvider:
		if actor.ID != req.ProviderID {
			return nil, &ForbiddenError{Reason: "actor is not a party to this request"}
		}
	case models.RoleCustomer:
		if actor.ID != req.CustomerID {
			return nil, &ForbiddenError{Reason: "actor is not a party to this request"}
		}
	case models.RoleSystem:
	default:
		return nil, &ForbiddenError{Reason: "unknown actor role"}
	}
	if req.Status != models.RequestPending && req.Status != models.RequestQuoted {
		return nil, &InvalidTransitionError{From: req.Status, To: models.RequestDeclined}
	}
	if err := s.repo.UpdateRequestWithVersion(ctx, req.ID, req.Version, models.RequestDeclined, req.QuoteAmount); err != nil {
		return nil, err
	}
	return s.repo.GetRequest(ctx, req.ID)
}

// ListRequests returns a provider's requests, optionally narrowed by status.
func (s *RequestService) ListRequests(ctx context.Context, providerID int64, status string) ([]*models.BookingRequest, error) {
	return s.repo.ListRequests(ctx, providerID, status)
}
