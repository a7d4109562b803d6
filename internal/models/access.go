package models

import "time"

// AccessWindow is the date horizon within which a provider may manage
// bookings, derived from subscription state owned by the billing subsystem.
// It is recomputed on every access check and never persisted or cached,
// because subscription state can change between calls.
type AccessWindow struct {
	HasPaidPlan       bool      `json:"has_paid_plan"`
	TrialStartedAt    time.Time `json:"trial_started_at"`
	TrialDurationDays int       `json:"trial_duration_days"`
}

// Cutoff returns the last accessible booking date for a trial provider.
// Meaningless when HasPaidPlan is set.
func (w AccessWindow) Cutoff() time.Time {
	return DateOnly(w.TrialStartedAt).AddDate(0, 0, w.TrialDurationDays)
}

// Allows reports whether a booking on the given date falls inside the window.
func (w AccessWindow) Allows(bookingDate time.Time) bool {
	if w.HasPaidPlan {
		return true
	}
	return !DateOnly(bookingDate).After(w.Cutoff())
}

// BookingView is the caller-facing projection of a booking. When the access
// window denies a trial provider, the view is a redacted stub: identifier,
// date and the lock indicator only.
type BookingView struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	Locked    bool      `json:"locked"`
	CanAccess bool      `json:"can_access"`
	CanManage bool      `json:"can_manage"`

	// Populated only when CanAccess is true.
	Booking     *Booking `json:"booking,omitempty"`
	HasConflict bool     `json:"has_conflict,omitempty"`
}
