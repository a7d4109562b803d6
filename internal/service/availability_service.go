package service

import (
	"context"
	"fmt"
	"time"

	"localpro/internal/domain"
	"localpro/internal/models"

	"github.com/rs/zerolog"
)

// AvailabilityService owns the weekly calendar, exception ledger and service
// areas, and answers capacity questions for a concrete date and time range.
type AvailabilityService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewAvailabilityService(repo domain.Repository, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{repo: repo, logger: logger}
}

// ResolveSlot finds the single active slot accommodating tr on the date's
// weekday. Returns nil when no slot fits. When more than one active slot
// could accommodate the range the configuration is ambiguous and the call
// fails with ErrOverlappingSlots rather than picking one.
func (s *AvailabilityService) ResolveSlot(ctx context.Context, providerID int64, date time.Time, tr models.TimeRange) (*models.AvailabilitySlot, error) {
	slots, err := s.repo.ListActiveSlotsForDay(ctx, providerID, int(date.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("list slots for day: %w", err)
	}

	var match *models.AvailabilitySlot
	for _, slot := range slots {
		if !slot.Accommodates(tr) {
			continue
		}
		if match != nil {
			s.logger.Warn().
				Int64("provider_id", providerID).
				Int64("slot_a", match.ID).
				Int64("slot_b", slot.ID).
				Msg("overlapping slot definitions accommodate the same range")
			return nil, ErrOverlappingSlots
		}
		match = slot
	}
	return match, nil
}

// Capacity answers whether tr is bookable on the date and how many more
// bookings fit. An approved exception covering the date suppresses all slots
// regardless of their capacity.
func (s *AvailabilityService) Capacity(ctx context.Context, providerID int64, date time.Time, tr models.TimeRange) (models.CapacityInfo, error) {
	if !tr.Valid() {
		return models.CapacityInfo{}, fmt.Errorf("time range %s is invalid", tr)
	}

	covered, err := s.repo.HasExceptionCovering(ctx, providerID, date)
	if err != nil {
		return models.CapacityInfo{}, fmt.Errorf("check exceptions: %w", err)
	}
	if covered {
		return models.CapacityInfo{Available: false, Remaining: 0}, nil
	}

	slot, err := s.ResolveSlot(ctx, providerID, date, tr)
	if err != nil {
		return models.CapacityInfo{}, err
	}
	if slot == nil {
		return models.CapacityInfo{Available: false, Remaining: 0}, nil
	}

	count, err := s.repo.CountOverlappingBookings(ctx, providerID, date, tr)
	if err != nil {
		return models.CapacityInfo{}, fmt.Errorf("count overlapping bookings: %w", err)
	}

	remaining := slot.MaxBookings - count
	if remaining < 0 {
		// Capacity edited downward after bookings existed.
		remaining = 0
	}
	return models.CapacityInfo{Available: remaining > 0, Remaining: remaining}, nil
}

// CreateSlot validates and stores a new weekly slot.
func (s *AvailabilityService) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	if slot.ProviderID == 0 {
		return fmt.Errorf("slot provider is required")
	}
	if err := slot.Validate(); err != nil {
		return err
	}
	slot.Active = true
	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return err
	}
	s.logger.Info().
		Int64("provider_id", slot.ProviderID).
		Int64("slot_id", slot.ID).
		Int("day_of_week", slot.DayOfWeek).
		Str("window", slot.Window().String()).
		Msg("availability slot created")
	return nil
}

// UpdateSlot validates and stores slot edits. Shrinking a window or lowering
// capacity never cancels existing bookings; they surface as conflicts in list
// views instead.
func (s *AvailabilityService) UpdateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	return s.repo.UpdateSlot(ctx, slot)
}

// DeactivateSlot retires a slot from future capacity checks. Bookings already
// placed in it are untouched.
func (s *AvailabilityService) DeactivateSlot(ctx context.Context, id int64) error {
	return s.repo.DeactivateSlot(ctx, id)
}

func (s *AvailabilityService) GetSlot(ctx context.Context, id int64) (*models.AvailabilitySlot, error) {
	return s.repo.GetSlot(ctx, id)
}

func (s *AvailabilityService) ListSlots(ctx context.Context, providerID int64) ([]*models.AvailabilitySlot, error) {
	return s.repo.ListSlots(ctx, providerID)
}

// CreateException records a date-ranged override. Exceptions are stored
// approved; a moderation step can be layered on later by flipping the flag.
func (s *AvailabilityService) CreateException(ctx context.Context, exc *models.AvailabilityException) error {
	if exc.ProviderID == 0 {
		return fmt.Errorf("exception provider is required")
	}
	if err := exc.Validate(); err != nil {
		return err
	}
	exc.Approved = true
	if err := s.repo.CreateException(ctx, exc); err != nil {
		return err
	}
	s.logger.Info().
		Int64("provider_id", exc.ProviderID).
		Str("reason", exc.Reason).
		Str("start", exc.StartDate.Format(models.DateLayout)).
		Str("end", exc.EndDate.Format(models.DateLayout)).
		Msg("availability exception created")
	return nil
}

func (s *AvailabilityService) DeleteException(ctx context.Context, id int64) error {
	return s.repo.DeleteException(ctx, id)
}

func (s *AvailabilityService) ListExceptions(ctx context.Context, providerID int64) ([]*models.AvailabilityException, error) {
	return s.repo.ListExceptions(ctx, providerID)
}

func (s *AvailabilityService) CreateServiceArea(ctx context.Context, area *models.ServiceArea) error {
	if area.ProviderID == 0 {
		return fmt.Errorf("service area provider is required")
	}
	if err := area.Validate(); err != nil {
		return err
	}
	return s.repo.CreateServiceArea(ctx, area)
}

func (s *AvailabilityService) DeleteServiceArea(ctx context.Context, id int64) error {
	return s.repo.DeleteServiceArea(ctx, id)
}

func (s *AvailabilityService) ListServiceAreas(ctx context.Context, providerID int64) ([]*models.ServiceArea, error) {
	return s.repo.ListServiceAreas(ctx, providerID)
}
