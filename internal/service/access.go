package service

import (
	"localpro/internal/models"
)

// AccessPolicy projects bookings through a provider's access window. Trial
// providers see only bookings dated up to their cutoff; everything beyond is
// a redacted stub. Bookings are never deleted or mutated on expiry, so a
// later upgrade restores full access without data loss.
type AccessPolicy struct{}

// Project builds the caller-facing view of a booking under the window.
func (AccessPolicy) Project(win models.AccessWindow, b *models.Booking) models.BookingView {
	if !win.Allows(b.Date) {
		return models.BookingView{
			ID:     b.ID,
			Date:   models.DateOnly(b.Date),
			Locked: true,
		}
	}
	return models.BookingView{
		ID:        b.ID,
		Date:      models.DateOnly(b.Date),
		CanAccess: true,
		CanManage: true,
		Booking:   b,
	}
}
