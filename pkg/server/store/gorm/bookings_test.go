package gorm

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

var bookingColumns = []string{"id", "name", "email", "status", "checkout_session_id", "calendar_event_id"}

func TestBookingsStore_ConfirmBooking(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewBookingsStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(id.String(), "Ada", "ada@example.com", model.BookingPendingPayment, "cs_1", ""))
	mock.ExpectExec(`UPDATE "bookings" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := s.ConfirmBooking(id, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, "evt_1", b.CalendarEventID)
}

func TestBookingsStore_ConfirmBooking_Idempotent(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewBookingsStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(id.String(), "Ada", "ada@example.com", model.BookingConfirmed, "cs_1", "evt_1"))
	mock.ExpectCommit()

	b, err := s.ConfirmBooking(id, "evt_2")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", b.CalendarEventID)
}

var claimColumns = []string{"id", "email", "status", "updated_at"}

func TestBookingsStore_ClaimPaidBooking(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		status    string
		updatedAt time.Time
		saves     bool
		won       bool
		want      string
	}{
		{"pending is claimed", model.BookingPendingPayment, time.Now(), true, true, model.BookingPaid},
		{"fresh claim is held by someone else", model.BookingPaid, time.Now(), false, false, model.BookingPaid},
		{"stale claim is taken over", model.BookingPaid, time.Now().Add(-time.Hour), true, true, model.BookingPaid},
		{"confirmed is never claimed", model.BookingConfirmed, time.Now(), false, false, model.BookingConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewBookingsStore(db)

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = \$1 .*FOR UPDATE`).
				WillReturnRows(sqlmock.NewRows(claimColumns).AddRow(id.String(), "ada@example.com", tt.status, tt.updatedAt))
			if tt.saves {
				mock.ExpectExec(`UPDATE "bookings" SET`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			}
			mock.ExpectCommit()

			b, won, err := s.ClaimPaidBooking(id, 5*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.won, won)
			assert.Equal(t, tt.want, b.Status)
		})
	}
}

func TestBookingsStore_ClaimPaidBooking_Cancelled(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewBookingsStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(claimColumns).AddRow(id.String(), "ada@example.com", model.BookingCancelled, time.Now()))
	mock.ExpectRollback()

	_, won, err := s.ClaimPaidBooking(id, 5*time.Minute)
	assert.ErrorIs(t, err, store.ErrInvalidState)
	assert.False(t, won)
}

func TestBookingsStore_ReleaseClaim(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewBookingsStore(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "bookings" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND status = \$4`).
		WithArgs(model.BookingPendingPayment, sqlmock.AnyArg(), id.String(), model.BookingPaid).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.ReleaseClaim(id))
}

func TestBookingsStore_CancelBooking_Paid(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewBookingsStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(id.String(), "Ada", "ada@example.com", model.BookingPaid, "cs_1", ""))
	mock.ExpectRollback()

	_, err := s.CancelBooking(id)
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestBookingsStore_CancelBooking_Confirmed(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewBookingsStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(id.String(), "Ada", "ada@example.com", model.BookingConfirmed, "cs_1", "evt_1"))
	mock.ExpectRollback()

	_, err := s.CancelBooking(id)
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestBookingsStore_FindByCheckoutSession_Empty(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewBookingsStore(db)

	_, err := s.FindByCheckoutSession("")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBookingsStore_BookedSlots(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewBookingsStore(db)
	from := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE status IN \(\$1,\$2,\$3\) AND slot_start >= \$4 AND slot_start < \$5 ORDER BY slot_start`).
		WithArgs(model.BookingPendingPayment, model.BookingPaid, model.BookingConfirmed, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slot_start", "status"}).
			AddRow(uuid.NewString(), from.Add(10*time.Hour), model.BookingConfirmed))

	bookings, err := s.BookedSlots(from, to)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, from.Add(10*time.Hour), bookings[0].SlotStart)
}
