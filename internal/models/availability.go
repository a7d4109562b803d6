package models

import (
	"fmt"
	"time"
)

// Exception reasons.
const (
	ExceptionVacation    = "vacation"
	ExceptionSickLeave   = "sick_leave"
	ExceptionMaintenance = "maintenance"
	ExceptionOther       = "other"
)

// AvailabilitySlot is a recurring weekly availability window for a provider.
// Times are minutes from midnight; DayOfWeek follows time.Weekday (0=Sunday).
type AvailabilitySlot struct {
	ID          int64     `json:"id" yaml:"id"`
	ProviderID  int64     `json:"provider_id" yaml:"provider_id"`
	DayOfWeek   int       `json:"day_of_week" yaml:"day_of_week"`
	Start       int       `json:"start" yaml:"start"`
	End         int       `json:"end" yaml:"end"`
	MaxBookings int       `json:"max_bookings" yaml:"max_bookings"`
	BreakStart  *int      `json:"break_start,omitempty" yaml:"break_start,omitempty"`
	BreakEnd    *int      `json:"break_end,omitempty" yaml:"break_end,omitempty"`
	Active      bool      `json:"active" yaml:"active"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

func (s *AvailabilitySlot) Window() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

// BreakWindow returns the break range and whether one is configured.
func (s *AvailabilitySlot) BreakWindow() (TimeRange, bool) {
	if s.BreakStart == nil || s.BreakEnd == nil {
		return TimeRange{}, false
	}
	return TimeRange{Start: *s.BreakStart, End: *s.BreakEnd}, true
}

// BookableRanges splits the slot window around its break. A break carves the
// slot into two independently tracked sub-ranges; a booking can never span
// the break.
func (s *AvailabilitySlot) BookableRanges() []TimeRange {
	br, ok := s.BreakWindow()
	if !ok {
		return []TimeRange{s.Window()}
	}
	ranges := make([]TimeRange, 0, 2)
	if s.Start < br.Start {
		ranges = append(ranges, TimeRange{Start: s.Start, End: br.Start})
	}
	if br.End < s.End {
		ranges = append(ranges, TimeRange{Start: br.End, End: s.End})
	}
	return ranges
}

// Accommodates reports whether tr fits inside the slot without touching the
// break window.
func (s *AvailabilitySlot) Accommodates(tr TimeRange) bool {
	for _, r := range s.BookableRanges() {
		if r.Contains(tr) {
			return true
		}
	}
	return false
}

func (s *AvailabilitySlot) Validate() error {
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return fmt.Errorf("slot day_of_week %d out of range 0-6", s.DayOfWeek)
	}
	if !s.Window().Valid() {
		return fmt.Errorf("slot window %s is invalid", s.Window())
	}
	if s.MaxBookings < 1 {
		return fmt.Errorf("slot max_bookings must be at least 1, got %d", s.MaxBookings)
	}
	if (s.BreakStart == nil) != (s.BreakEnd == nil) {
		return fmt.Errorf("slot break window must set both start and end")
	}
	if br, ok := s.BreakWindow(); ok {
		if !br.Valid() {
			return fmt.Errorf("slot break window %s is invalid", br)
		}
		if !s.Window().Contains(br) {
			return fmt.Errorf("slot break window %s must lie within %s", br, s.Window())
		}
	}
	return nil
}

// AvailabilityException is a date-ranged override (inclusive on both ends)
// that fully suppresses all slots for the provider, overriding capacity.
type AvailabilityException struct {
	ID         int64     `json:"id"`
	ProviderID int64     `json:"provider_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Reason     string    `json:"reason"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (e *AvailabilityException) Validate() error {
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return fmt.Errorf("exception dates are required")
	}
	if e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("exception start date must not be after end date")
	}
	switch e.Reason {
	case ExceptionVacation, ExceptionSickLeave, ExceptionMaintenance, ExceptionOther:
	default:
		return fmt.Errorf("unknown exception reason %q", e.Reason)
	}
	return nil
}

// Covers reports whether the exception suppresses the given date.
func (e *AvailabilityException) Covers(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(e.StartDate)) && !d.After(DateOnly(e.EndDate))
}

// ServiceArea is a named geographic circle a provider serves. It shares the
// provider's availability lifecycle but takes no part in the time math.
type ServiceArea struct {
	ID         int64     `json:"id"`
	ProviderID int64     `json:"provider_id"`
	Name       string    `json:"name"`
	CenterLat  float64   `json:"center_lat"`
	CenterLng  float64   `json:"center_lng"`
	RadiusKm   float64   `json:"radius_km"`
	TravelFee  float64   `json:"travel_fee"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (a *ServiceArea) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("service area name is required")
	}
	if a.RadiusKm <= 0 {
		return fmt.Errorf("service area radius must be positive")
	}
	if a.CenterLat < -90 || a.CenterLat > 90 || a.CenterLng < -180 || a.CenterLng > 180 {
		return fmt.Errorf("service area center out of range")
	}
	return nil
}

// CapacityInfo is the answer to "is this time range bookable, and how many
// more bookings fit".
type CapacityInfo struct {
	Available bool `json:"available"`
	Remaining int  `json:"remaining"`
}

// DateOnly truncates a timestamp to its calendar date in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
