package models

import "time"

// Payment statuses carried on a booking. Payment processing itself is
// external; the core only stores the flag.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Booking is the central entity: a customer booking a provider for a service
// on a date and time range. Hidden is a provider-scoped visibility flag and
// is never implied by status.
type Booking struct {
	ID            int64      `json:"id"`
	ProviderID    int64      `json:"provider_id"`
	CustomerID    int64      `json:"customer_id"`
	ServiceID     int64      `json:"service_id"`
	Date          time.Time  `json:"date"`
	Start         int        `json:"start"`
	End           int        `json:"end"`
	DurationMin   int        `json:"duration_min"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	Reason        string     `json:"reason,omitempty"`
	Hidden        bool       `json:"hidden"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Version       int64      `json:"version"`
}

func (b *Booking) TimeRange() TimeRange {
	return TimeRange{Start: b.Start, End: b.End}
}

// Overdue reports whether the booking is confirmed and dated strictly before
// today as derived from now.
func (b *Booking) Overdue(now time.Time) bool {
	return b.Status == StatusConfirmed && DateOnly(b.Date).Before(DateOnly(now))
}

// IsParty reports whether the actor is one of the two parties on the booking.
// The system actor is a party to everything.
func (b *Booking) IsParty(actor Actor) bool {
	switch actor.Role {
	case RoleProvider:
		return actor.ID == b.ProviderID
	case RoleCustomer:
		return actor.ID == b.CustomerID
	case RoleSystem:
		return true
	}
	return false
}

// BookingRequest is the pre-booking quote negotiation entity. An accepted
// request may produce a Booking born in quote_sent; it does not share the
// booking state machine.
type BookingRequest struct {
	ID          int64     `json:"id"`
	ProviderID  int64     `json:"provider_id"`
	CustomerID  int64     `json:"customer_id"`
	ServiceID   int64     `json:"service_id"`
	Date        time.Time `json:"date"`
	Start       int       `json:"start"`
	End         int       `json:"end"`
	Note        string    `json:"note,omitempty"`
	QuoteAmount float64   `json:"quote_amount,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

func (r *BookingRequest) TimeRange() TimeRange {
	return TimeRange{Start: r.Start, End: r.End}
}
