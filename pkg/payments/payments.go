package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/tidwall/gjson"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	PaymentStatusPaid      = "paid"

	productName = "Consultation"
	// Stripe rejects expires_at less than 30 minutes after it creates the
	// session, measured on its clock
	sessionLifetime = 31 * time.Minute
)

var (
	// ErrInvalidSignature is returned when a webhook payload fails verification
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMissingWebhookSecret is returned when no signing secret is configured
	ErrMissingWebhookSecret = errors.New("stripe webhook secret is required")
)

// CheckoutRequest describes the consultation being paid for
type CheckoutRequest struct {
	BookingID   string
	Email       string
	Description string
	AmountCents int64
	Currency    string
}

// Session is a hosted checkout page
type Session struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// WebhookEvent is the subset of a payment event the booking flow needs
type WebhookEvent struct {
	ID            string
	Type          string
	SessionID     string
	BookingID     string
	PaymentStatus string
}

// Checkout creates payment sessions and verifies their webhooks
type Checkout interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// StripeCheckout implements Checkout with Stripe Checkout
type StripeCheckout struct {
	api           *client.API
	webhookSecret string
	siteURL       string
}

// NewStripeCheckout creates a Stripe-backed checkout. backends may be nil to
// use Stripe's default endpoints. Both keys are required: without a webhook
// secret any payload signed with an empty key would verify.
func NewStripeCheckout(secretKey, webhookSecret, siteURL string, backends *stripe.Backends) (*StripeCheckout, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if strings.TrimSpace(webhookSecret) == "" {
		return nil, ErrMissingWebhookSecret
	}
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeCheckout{
		api:           api,
		webhookSecret: webhookSecret,
		siteURL:       strings.TrimRight(siteURL, "/"),
	}, nil
}

// CreateSession starts a one-off payment for a booking
func (s *StripeCheckout) CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	expiresAt := time.Now().Add(sessionLifetime)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.siteURL + "/book/success?booking=" + req.BookingID),
		CancelURL:         stripe.String(s.siteURL + "/book/cancelled?booking=" + req.BookingID),
		CustomerEmail:     stripe.String(req.Email),
		ClientReferenceID: stripe.String(req.BookingID),
		ExpiresAt:         stripe.Int64(expiresAt.Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(productName),
						Description: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("booking_id", req.BookingID)
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL, ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC()}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// checkout session fields.
func (s *StripeCheckout) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	obj := gjson.ParseBytes(event.Data.Raw)
	if obj.Get("object").String() == "checkout.session" {
		out.SessionID = obj.Get("id").String()
		out.PaymentStatus = obj.Get("payment_status").String()
		out.BookingID = obj.Get("metadata.booking_id").String()
		if out.BookingID == "" {
			out.BookingID = obj.Get("client_reference_id").String()
		}
	}
	return out, nil
}
