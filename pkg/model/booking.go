package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookingPendingPayment = "pending_payment"
	BookingPaid           = "paid" // calendar booking in progress
	BookingConfirmed      = "confirmed"
	BookingCancelled      = "cancelled"
)

// Booking is a paid consultation slot
type Booking struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name              string    `gorm:"column:name" json:"name"`
	Email             string    `gorm:"column:email" json:"email"`
	Company           string    `gorm:"column:company" json:"company"`
	Notes             string    `gorm:"column:notes" json:"notes"`
	SlotStart         time.Time `gorm:"column:slot_start" json:"slot_start"`
	SlotEnd           time.Time `gorm:"column:slot_end" json:"slot_end"`
	Status            string    `gorm:"column:status" json:"status"`
	CheckoutSessionID string    `gorm:"column:checkout_session_id" json:"-"`
	CalendarEventID   string    `gorm:"column:calendar_event_id" json:"-"`
	AmountCents       int64     `gorm:"column:amount_cents" json:"amount_cents"`
	Currency          string    `gorm:"column:currency" json:"currency"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// HoldsSlot reports whether the booking blocks its slot for others
func (b *Booking) HoldsSlot() bool {
	return b.Status == BookingPendingPayment || b.Status == BookingPaid || b.Status == BookingConfirmed
}
