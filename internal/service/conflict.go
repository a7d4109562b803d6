package service

import (
	"context"
	"time"

	"localpro/internal/domain"
	"localpro/internal/metrics"
	"localpro/internal/models"

	"github.com/rs/zerolog"
)

// ConflictDetector decides whether a requested range can be booked, and
// annotates existing bookings that no longer fit their slot. It never mutates
// state.
type ConflictDetector struct {
	availability *AvailabilityService
	repo         domain.BookingStore
	logger       *zerolog.Logger
}

func NewConflictDetector(availability *AvailabilityService, repo domain.BookingStore, logger *zerolog.Logger) *ConflictDetector {
	return &ConflictDetector{availability: availability, repo: repo, logger: logger}
}

// CheckBooking verifies the range against the calendar, the exception ledger
// and current occupancy. On success it returns the slot whose capacity the
// booking will consume. Failures distinguish unavailability (no slot, a
// covering exception) from occupancy conflicts, which name the bookings in
// the way.
func (d *ConflictDetector) CheckBooking(ctx context.Context, providerID int64, date time.Time, tr models.TimeRange) (*models.AvailabilitySlot, error) {
	covered, err := d.availability.repo.HasExceptionCovering(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	if covered {
		metrics.IncConflict("slot_unavailable")
		return nil, ErrSlotUnavailable
	}

	slot, err := d.availability.ResolveSlot(ctx, providerID, date, tr)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		metrics.IncConflict("slot_unavailable")
		return nil, ErrSlotUnavailable
	}

	count, err := d.repo.CountOverlappingBookings(ctx, providerID, date, tr)
	if err != nil {
		return nil, err
	}
	if count >= slot.MaxBookings {
		overlapping, err := d.repo.GetOverlappingBookings(ctx, providerID, date, tr)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(overlapping))
		for _, b := range overlapping {
			ids = append(ids, b.ID)
		}
		metrics.IncConflict("time_conflict")
		d.logger.Debug().
			Int64("provider_id", providerID).
			Str("range", tr.String()).
			Ints64("conflicting_ids", ids).
			Msg("booking attempt conflicts with occupancy")
		return nil, &TimeConflictError{ConflictingIDs: ids}
	}

	return slot, nil
}

// AnnotateConflicts flags bookings that no longer fit their provider's
// calendar, typically after a slot was shrunk or its capacity lowered while
// bookings existed. Read-only: flagged bookings stay live until a party acts.
func (d *ConflictDetector) AnnotateConflicts(ctx context.Context, bookings []*models.Booking) (map[int64]bool, error) {
	flags := make(map[int64]bool, len(bookings))
	for _, b := range bookings {
		if !models.CountsAgainstCapacity(b.Status) {
			continue
		}

		slot, err := d.availability.ResolveSlot(ctx, b.ProviderID, b.Date, b.TimeRange())
		if err == ErrOverlappingSlots {
			// Ambiguous configuration; annotation cannot decide, skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		if slot == nil {
			flags[b.ID] = true
			continue
		}

		count, err := d.repo.CountOverlappingBookings(ctx, b.ProviderID, b.Date, b.TimeRange())
		if err != nil {
			return nil, err
		}
		if count > slot.MaxBookings {
			flags[b.ID] = true
		}
	}
	return flags, nil
}
