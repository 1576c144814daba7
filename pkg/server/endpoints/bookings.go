package endpoints

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/audit"
	"github.com/halyard-advisory/halyard/pkg/calendar"
	"github.com/halyard-advisory/halyard/pkg/config"
	"github.com/halyard-advisory/halyard/pkg/email"
	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/payments"
	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/httputil"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

const (
	defaultAvailabilityWindow = 14 * 24 * time.Hour
	maxAvailabilityWindow     = 31 * 24 * time.Hour
	maxWebhookBytes           = 64 << 10
	providerTimeout           = 15 * time.Second
	// a paid claim older than this is treated as abandoned
	confirmClaimTTL = 5 * time.Minute
)

// errConfirmationInProgress means another delivery holds the booking claim
var errConfirmationInProgress = errors.New("booking confirmation in progress")

// AvailabilityResponse lists the free consultation slots in a window
type AvailabilityResponse struct {
	From            time.Time       `json:"from"`
	To              time.Time       `json:"to"`
	DurationMinutes int             `json:"duration_minutes"`
	PriceCents      int64           `json:"price_cents"`
	Currency        string          `json:"currency"`
	Slots           []calendar.Slot `json:"slots"`
}

// BookingRequest is a visitor's request to reserve a consultation
type BookingRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Notes     string `json:"notes"`
	SlotStart string `json:"slot_start"`
}

func (b BookingRequest) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&b.Email, validation.Required, is.EmailFormat, validation.Length(3, 254)),
		validation.Field(&b.Company, validation.Length(0, 160)),
		validation.Field(&b.Notes, validation.Length(0, 2000)),
		validation.Field(&b.SlotStart, validation.Required, validation.Date(time.RFC3339).Error("must be an RFC 3339 timestamp")),
	)
}

// BookingResponse points the visitor at the hosted checkout page
type BookingResponse struct {
	BookingID   uuid.UUID `json:"booking_id"`
	CheckoutURL string    `json:"checkout_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RegisterBookingsEndpoints registers availability, booking and the payment
// webhook
func RegisterBookingsEndpoints(s *server.Server) {
	s.Router.HandleFunc("/api/bookings/availability", handleAvailability(s.Config, s.BookingsStore, s.Calendar, s.Log)).Methods("GET")
	s.Router.Handle("/api/bookings", s.Limited(handleCreateBooking(s.Config, s.BookingsStore, s.Calendar, s.Payments, s.Log))).Methods("POST")
	s.Router.HandleFunc("/api/webhooks/stripe", handleStripeWebhook(s.BookingsStore, s.Calendar, s.Payments, s.Mailer, s.Log)).Methods("POST")
}

// parseInstant accepts an RFC 3339 timestamp or a YYYY-MM-DD date (UTC midnight)
func parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither an RFC 3339 timestamp nor a YYYY-MM-DD date", raw)
	}
	return t, nil
}

// freeSlots drops provider slots that have started or overlap a held booking
func freeSlots(slots []calendar.Slot, held []model.Booking, now time.Time) []calendar.Slot {
	free := make([]calendar.Slot, 0, len(slots))
	for _, slot := range slots {
		if !slot.Start.After(now) {
			continue
		}
		taken := false
		for _, b := range held {
			if slot.Start.Before(b.SlotEnd) && b.SlotStart.Before(slot.End) {
				taken = true
				break
			}
		}
		if !taken {
			free = append(free, slot)
		}
	}
	return free
}

func handleAvailability(cfg *config.Config, bookings store.BookingsStore, cal calendar.Provider, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cal == nil {
			respondWithError(w, http.StatusServiceUnavailable, "booking is not available")
			return
		}

		now := time.Now().UTC()
		from := now
		if raw := r.URL.Query().Get("from"); raw != "" {
			t, err := parseInstant(raw)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "from: "+err.Error())
				return
			}
			from = t.UTC()
		}
		to := from.Add(defaultAvailabilityWindow)
		if raw := r.URL.Query().Get("to"); raw != "" {
			t, err := parseInstant(raw)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "to: "+err.Error())
				return
			}
			to = t.UTC()
		}
		if !to.After(from) {
			respondWithError(w, http.StatusBadRequest, "to must be after from")
			return
		}
		if to.Sub(from) > maxAvailabilityWindow {
			respondWithError(w, http.StatusBadRequest, "availability window cannot exceed 31 days")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
		defer cancel()
		slots, err := cal.Availability(ctx, from, to)
		if err != nil {
			log.WithError(err).Error("calendar availability failed")
			respondWithError(w, http.StatusBadGateway, "calendar provider is unavailable")
			return
		}

		held, err := bookings.BookedSlots(from, to)
		if err != nil {
			respondStoreError(w, log, err, "booking")
			return
		}

		respondWithJSON(w, http.StatusOK, AvailabilityResponse{
			From:            from,
			To:              to,
			DurationMinutes: int(cfg.BookingDuration() / time.Minute),
			PriceCents:      cfg.BookingPriceCents,
			Currency:        cfg.BookingCurrency,
			Slots:           freeSlots(slots, held, now),
		})
	}
}

func handleCreateBooking(cfg *config.Config, bookings store.BookingsStore, cal calendar.Provider, checkout payments.Checkout, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cal == nil || checkout == nil {
			respondWithError(w, http.StatusServiceUnavailable, "booking is not available")
			return
		}

		var req BookingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		req.Company = strings.TrimSpace(req.Company)
		req.Notes = strings.TrimSpace(req.Notes)
		if err := req.Validate(); err != nil {
			httputil.RespondValidation(w, err)
			return
		}

		start, _ := time.Parse(time.RFC3339, req.SlotStart)
		start = start.UTC()
		now := time.Now().UTC()
		if !start.After(now) {
			httputil.RespondValidation(w, validation.Errors{"slot_start": errors.New("must be in the future")})
			return
		}
		end := start.Add(cfg.BookingDuration())

		ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
		defer cancel()

		slots, err := cal.Availability(ctx, start, end)
		if err != nil {
			log.WithError(err).Error("calendar availability failed")
			respondWithError(w, http.StatusBadGateway, "calendar provider is unavailable")
			return
		}
		held, err := bookings.BookedSlots(start.Add(-cfg.BookingDuration()), end)
		if err != nil {
			respondStoreError(w, log, err, "booking")
			return
		}
		available := false
		for _, slot := range freeSlots(slots, held, now) {
			if slot.Start.Equal(start) {
				available = true
				end = slot.End
				break
			}
		}
		if !available {
			respondWithError(w, http.StatusConflict, "the requested slot is no longer available")
			return
		}

		booking := &model.Booking{
			Name:        req.Name,
			Email:       req.Email,
			Company:     req.Company,
			Notes:       req.Notes,
			SlotStart:   start,
			SlotEnd:     end,
			AmountCents: cfg.BookingPriceCents,
			Currency:    cfg.BookingCurrency,
		}
		if err := bookings.CreateBooking(booking); err != nil {
			if errors.Is(err, store.ErrConflict) {
				respondWithError(w, http.StatusConflict, "the requested slot is no longer available")
				return
			}
			respondStoreError(w, log, err, "booking")
			return
		}

		session, err := checkout.CreateSession(ctx, payments.CheckoutRequest{
			BookingID:   booking.ID.String(),
			Email:       booking.Email,
			Description: "Consultation on " + start.Format("Mon 2 Jan 2006 15:04 MST"),
			AmountCents: booking.AmountCents,
			Currency:    booking.Currency,
		})
		if err != nil {
			log.WithError(err).WithField("booking_id", booking.ID).Error("checkout session failed")
			if _, cerr := bookings.CancelBooking(booking.ID); cerr != nil {
				log.WithError(cerr).WithField("booking_id", booking.ID).Error("failed to release slot")
			}
			respondWithError(w, http.StatusBadGateway, "payment provider is unavailable")
			return
		}
		if err := bookings.AttachCheckoutSession(booking.ID, session.ID); err != nil {
			respondStoreError(w, log, err, "booking")
			return
		}

		audit.Log(audit.BookingEvent{
			BookingID: booking.ID.String(),
			Email:     booking.Email,
			ClientIP:  clientIP(r),
			Operation: "created",
			SlotStart: booking.SlotStart,
		})

		w.Header().Set("Location", session.URL)
		respondWithJSON(w, http.StatusCreated, BookingResponse{
			BookingID:   booking.ID,
			CheckoutURL: session.URL,
			ExpiresAt:   session.ExpiresAt,
		})
	}
}

func handleStripeWebhook(bookings store.BookingsStore, cal calendar.Provider, checkout payments.Checkout, mailer email.Mailer, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checkout == nil {
			respondWithError(w, http.StatusServiceUnavailable, "payments are not configured")
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "unable to read webhook body")
			return
		}
		event, err := checkout.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			log.WithError(err).Warn("rejected payment webhook")
			respondWithError(w, http.StatusBadRequest, "invalid webhook signature")
			return
		}

		logger := log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"session_id": event.SessionID,
		})

		switch event.Type {
		case payments.EventCheckoutCompleted:
			if event.PaymentStatus != payments.PaymentStatusPaid {
				logger.WithField("payment_status", event.PaymentStatus).Info("checkout completed without payment")
				break
			}
			booking, err := bookingForEvent(bookings, event)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					logger.Warn("payment for unknown booking")
					break
				}
				respondStoreError(w, log, err, "booking")
				return
			}
			err = confirmPaidBooking(r.Context(), bookings, cal, mailer, logger, booking)
			if errors.Is(err, errConfirmationInProgress) {
				// Non-2xx makes Stripe deliver again once the holder is done
				logger.Info("booking confirmation already in progress")
				respondWithError(w, http.StatusConflict, err.Error())
				return
			}
			if err != nil {
				logger.WithError(err).Error("failed to confirm booking")
				respondWithError(w, http.StatusInternalServerError, "failed to confirm booking")
				return
			}

		case payments.EventCheckoutExpired:
			booking, err := bookingForEvent(bookings, event)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					break
				}
				respondStoreError(w, log, err, "booking")
				return
			}
			if _, err := bookings.CancelBooking(booking.ID); err != nil {
				if errors.Is(err, store.ErrInvalidState) {
					break
				}
				respondStoreError(w, log, err, "booking")
				return
			}
			logger.WithField("booking_id", booking.ID).Info("booking cancelled after checkout expired")
			audit.Log(audit.BookingEvent{
				BookingID: booking.ID.String(),
				Email:     booking.Email,
				Operation: "cancelled",
				SlotStart: booking.SlotStart,
			})

		default:
			logger.Debug("ignoring payment webhook")
		}

		respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

func bookingForEvent(bookings store.BookingsStore, event *payments.WebhookEvent) (*model.Booking, error) {
	booking, err := bookings.FindByCheckoutSession(event.SessionID)
	if err == nil || !errors.Is(err, store.ErrNotFound) || event.BookingID == "" {
		return booking, err
	}
	id, perr := uuid.Parse(event.BookingID)
	if perr != nil {
		return nil, store.ErrNotFound
	}
	return bookings.GetBooking(id)
}

// confirmPaidBooking is idempotent: only the delivery that claims the
// booking creates the calendar event, and a confirmed booking is left alone.
// If confirming fails after the calendar call the claim is kept, so a later
// delivery retries once it is stale, sending the same idempotency key.
func confirmPaidBooking(ctx context.Context, bookings store.BookingsStore, cal calendar.Provider, mailer email.Mailer, log logrus.FieldLogger, booking *model.Booking) error {
	log = log.WithField("booking_id", booking.ID)
	switch booking.Status {
	case model.BookingConfirmed:
		log.Debug("booking already confirmed")
		return nil
	case model.BookingCancelled:
		log.Warn("payment received for a cancelled booking; refund manually")
		return nil
	}
	if cal == nil {
		return errors.New("calendar provider is not configured")
	}

	claimed, won, err := bookings.ClaimPaidBooking(booking.ID, confirmClaimTTL)
	if errors.Is(err, store.ErrInvalidState) {
		log.Warn("payment received for a cancelled booking; refund manually")
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim booking: %w", err)
	}
	if !won {
		if claimed.Status == model.BookingConfirmed {
			log.Debug("booking already confirmed")
			return nil
		}
		return errConfirmationInProgress
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	eventID, err := cal.CreateBooking(ctx, calendar.BookingRequest{
		Start:     booking.SlotStart,
		End:       booking.SlotEnd,
		Name:      booking.Name,
		Email:     booking.Email,
		Notes:     booking.Notes,
		BookingID: booking.ID.String(),
	})
	if err != nil {
		if rerr := bookings.ReleaseClaim(booking.ID); rerr != nil {
			log.WithError(rerr).Error("failed to release booking claim")
		}
		return fmt.Errorf("create calendar booking: %w", err)
	}

	confirmed, err := bookings.ConfirmBooking(booking.ID, eventID)
	if err != nil {
		return fmt.Errorf("confirm booking: %w", err)
	}
	log.WithField("calendar_event_id", eventID).Info("booking confirmed")

	audit.Log(audit.BookingEvent{
		BookingID: confirmed.ID.String(),
		Email:     confirmed.Email,
		Operation: "confirmed",
		SlotStart: confirmed.SlotStart,
	})

	if mailer == nil {
		return nil
	}
	msg, err := email.BookingConfirmed(confirmed.Email, confirmed.Name, confirmed.SlotStart, confirmed.AmountCents, confirmed.Currency)
	if err != nil {
		log.WithError(err).Error("failed to render confirmation email")
		return nil
	}
	if err := mailer.Send(ctx, msg); err != nil {
		log.WithError(err).Error("failed to send confirmation email")
	}
	return nil
}
