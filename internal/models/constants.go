package models

const (
	// DefaultPageSize for booking list queries.
	DefaultPageSize = 20

	// MaxPageSize caps a caller-supplied page size.
	MaxPageSize = 100

	// DefaultTrialDays applies when billing reports a trial without a duration.
	DefaultTrialDays = 14

	// DefaultMaxAdvanceDays limits how far ahead bookings may be created.
	DefaultMaxAdvanceDays = 180

	// WorkerQueueSize is the in-memory buffer of the sync worker.
	WorkerQueueSize = 256

	// DateLayout is the canonical wire/storage format for booking dates.
	DateLayout = "2006-01-02"
)

// BookingFilter narrows booking list queries. Hidden defaults to excluding
// hidden bookings when left empty.
type BookingFilter struct {
	ProviderID int64
	Status     string
	Hidden     HiddenFilter
	Limit      int
	Offset     int
}

// HiddenFilter selects how the visibility overlay applies to list queries.
type HiddenFilter string

const (
	// HiddenExclude is the default: only the provider's working list.
	HiddenExclude HiddenFilter = "visible"
	// HiddenOnly returns only hidden bookings.
	HiddenOnly HiddenFilter = "hidden"
	// HiddenInclude returns everything regardless of the flag.
	HiddenInclude HiddenFilter = "all"
)
