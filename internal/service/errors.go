package service

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotUnavailable means no capacity exists for the requested range:
	// no matching slot, a covering exception, or the slot is full without a
	// surfaceable overlap. An expected, recoverable outcome.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrPastDate rejects bookings dated before today.
	ErrPastDate = errors.New("booking date is in the past")

	// ErrDateTooFar rejects bookings beyond the advance horizon.
	ErrDateTooFar = errors.New("booking date is too far ahead")

	// ErrReasonRequired rejects party-triggered cancellations and rejections
	// without a reason.
	ErrReasonRequired = errors.New("a reason is required for this transition")

	// ErrOverlappingSlots surfaces a data-entry error: two active slots for
	// the same provider and weekday overlap. Never silently merged.
	ErrOverlappingSlots = errors.New("overlapping availability slots configured")
)

// TimeConflictError reports that the requested range overlaps existing
// bookings beyond what slot capacity allows, naming the bookings so the
// caller can explain the conflict.
type TimeConflictError struct {
	ConflictingIDs []int64
}

func (e *TimeConflictError) Error() string {
	return fmt.Sprintf("time conflict with bookings %v", e.ConflictingIDs)
}

// InvalidTransitionError reports a lifecycle edge not present in the
// transition table.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ForbiddenError reports that the actor is not a party to the booking or
// lacks the access window to act on it.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}
