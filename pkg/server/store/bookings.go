package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/halyard-advisory/halyard/pkg/model"
)

// BookingsStore manages consultation bookings
type BookingsStore interface {
	CreateBooking(b *model.Booking) error
	GetBooking(id uuid.UUID) (*model.Booking, error)
	AttachCheckoutSession(id uuid.UUID, sessionID string) error

	// ClaimPaidBooking moves a pending booking to paid and reports whether
	// this caller holds the claim. Only the holder may create the calendar
	// booking. A paid booking whose claim is older than staleAfter is
	// reclaimed; confirmed bookings are never claimed. Cancelled bookings
	// yield ErrInvalidState.
	ClaimPaidBooking(id uuid.UUID, staleAfter time.Duration) (*model.Booking, bool, error)

	// ReleaseClaim returns a paid booking to pending_payment.
	ReleaseClaim(id uuid.UUID) error

	// ConfirmBooking is idempotent: confirming a confirmed booking returns it
	// unchanged. Cancelled bookings yield ErrInvalidState.
	ConfirmBooking(id uuid.UUID, calendarEventID string) (*model.Booking, error)

	// CancelBooking cancels a pending booking. Cancelling twice is a no-op.
	CancelBooking(id uuid.UUID) (*model.Booking, error)

	FindByCheckoutSession(sessionID string) (*model.Booking, error)

	// BookedSlots returns bookings holding a slot that starts in [from, to).
	BookedSlots(from, to time.Time) ([]model.Booking, error)
}
