package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// Ensure BookingsStore implements store.BookingsStore
var _ store.BookingsStore = (*BookingsStore)(nil)

// BookingsStore implements store.BookingsStore using GORM
type BookingsStore struct {
	db *gorm.DB
}

// NewBookingsStore creates a new BookingsStore
func NewBookingsStore(db *gorm.DB) *BookingsStore {
	return &BookingsStore{db: db}
}

// CreateBooking inserts a booking awaiting payment
func (s *BookingsStore) CreateBooking(b *model.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Status = model.BookingPendingPayment
	return translateError(s.db.Create(b).Error)
}

// GetBooking returns a booking by id
func (s *BookingsStore) GetBooking(id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := s.db.Where("id = ?", id).First(&b).Error; err != nil {
		return nil, translateError(err)
	}
	return &b, nil
}

// AttachCheckoutSession links a payment session to the booking
func (s *BookingsStore) AttachCheckoutSession(id uuid.UUID, sessionID string) error {
	res := s.db.Model(&model.Booking{}).Where("id = ?", id).Update("checkout_session_id", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ClaimPaidBooking takes the row lock and moves the booking to paid. The
// returned flag is true only for the caller that made the move.
func (s *BookingsStore) ClaimPaidBooking(id uuid.UUID, staleAfter time.Duration) (*model.Booking, bool, error) {
	claimed := false
	b, err := s.transition(id, func(b *model.Booking) (bool, error) {
		switch b.Status {
		case model.BookingPendingPayment:
		case model.BookingPaid:
			if time.Since(b.UpdatedAt) < staleAfter {
				return false, nil
			}
		case model.BookingCancelled:
			return false, store.ErrInvalidState
		default:
			return false, nil
		}
		b.Status = model.BookingPaid
		claimed = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}
	return b, claimed, nil
}

// ReleaseClaim hands a paid booking back so a later delivery can retry
func (s *BookingsStore) ReleaseClaim(id uuid.UUID) error {
	res := s.db.Model(&model.Booking{}).
		Where("id = ? AND status = ?", id, model.BookingPaid).
		Update("status", model.BookingPendingPayment)
	return res.Error
}

// ConfirmBooking marks a paid booking confirmed
func (s *BookingsStore) ConfirmBooking(id uuid.UUID, calendarEventID string) (*model.Booking, error) {
	return s.transition(id, func(b *model.Booking) (bool, error) {
		switch b.Status {
		case model.BookingConfirmed:
			return false, nil
		case model.BookingCancelled:
			return false, store.ErrInvalidState
		}
		b.Status = model.BookingConfirmed
		b.CalendarEventID = calendarEventID
		return true, nil
	})
}

// CancelBooking cancels a booking that hasn't been paid
func (s *BookingsStore) CancelBooking(id uuid.UUID) (*model.Booking, error) {
	return s.transition(id, func(b *model.Booking) (bool, error) {
		switch b.Status {
		case model.BookingCancelled:
			return false, nil
		case model.BookingPaid, model.BookingConfirmed:
			return false, store.ErrInvalidState
		}
		b.Status = model.BookingCancelled
		return true, nil
	})
}

func (s *BookingsStore) transition(id uuid.UUID, apply func(b *model.Booking) (bool, error)) (*model.Booking, error) {
	var b model.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&b).Error; err != nil {
			return err
		}
		changed, err := apply(&b)
		if err != nil || !changed {
			return err
		}
		return tx.Save(&b).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &b, nil
}

// FindByCheckoutSession returns the booking paid through the given session
func (s *BookingsStore) FindByCheckoutSession(sessionID string) (*model.Booking, error) {
	if sessionID == "" {
		return nil, store.ErrNotFound
	}
	var b model.Booking
	if err := s.db.Where("checkout_session_id = ?", sessionID).First(&b).Error; err != nil {
		return nil, translateError(err)
	}
	return &b, nil
}

// BookedSlots returns bookings holding a slot that starts in [from, to)
func (s *BookingsStore) BookedSlots(from, to time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	err := s.db.
		Where("status IN ? AND slot_start >= ? AND slot_start < ?",
			[]string{model.BookingPendingPayment, model.BookingPaid, model.BookingConfirmed}, from, to).
		Order("slot_start").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
