package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

const whsec = "whsec_test"

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newCheckout(t *testing.T, backends *stripe.Backends) *StripeCheckout {
	t.Helper()
	c, err := NewStripeCheckout("sk_test_123", whsec, "https://halyard.example/", backends)
	require.NoError(t, err)
	return c
}

func TestNewStripeCheckout_RequiresSecrets(t *testing.T) {
	_, err := NewStripeCheckout("", whsec, "https://halyard.example", nil)
	assert.Error(t, err)

	_, err = NewStripeCheckout("sk_test_123", "", "https://halyard.example", nil)
	assert.ErrorIs(t, err, ErrMissingWebhookSecret)
}

func TestStripeCheckout_ParseWebhook_EmptySecretNeverVerifies(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","payment_status":"paid","metadata":{"booking_id":"b1"}}}}`)

	var zero StripeCheckout
	_, err := zero.ParseWebhook(payload, sign(payload, "", time.Now()))
	assert.ErrorIs(t, err, ErrMissingWebhookSecret)

	_, err = newCheckout(t, nil).ParseWebhook(payload, sign(payload, "", time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestStripeCheckout_CreateSession(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","expires_at":1740000000}`))
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	c := newCheckout(t, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	sess, err := c.CreateSession(context.Background(), CheckoutRequest{
		BookingID: "b-1", Email: "ada@example.com", Description: "60 minute consultation",
		AmountCents: 25000, Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "b-1", form.Get("metadata[booking_id]"))
	assert.Equal(t, "25000", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "usd", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "Consultation", form.Get("line_items[0][price_data][product_data][name]"))
	assert.Equal(t, "https://halyard.example/book/success?booking=b-1", form.Get("success_url"))

	// Stripe measures the 30 minute minimum from its own clock
	expiresAt, err := strconv.ParseInt(form.Get("expires_at"), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, expiresAt-time.Now().Unix(), int64(30*60))
}

func TestStripeCheckout_CreateSession_RejectsZeroAmount(t *testing.T) {
	c := newCheckout(t, nil)
	_, err := c.CreateSession(context.Background(), CheckoutRequest{BookingID: "b-1"})
	assert.Error(t, err)
}

func TestStripeCheckout_ParseWebhook(t *testing.T) {
	c := newCheckout(t, nil)
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"api_version": "2020-08-27",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"payment_status": "paid",
			"client_reference_id": "b-1",
			"metadata": {"booking_id": "b-1"}
		}}
	}`)

	event, err := c.ParseWebhook(payload, sign(payload, whsec, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, event.Type)
	assert.Equal(t, "cs_test_1", event.SessionID)
	assert.Equal(t, "b-1", event.BookingID)
	assert.Equal(t, PaymentStatusPaid, event.PaymentStatus)
}

func TestStripeCheckout_ParseWebhook_BadSignature(t *testing.T) {
	c := newCheckout(t, nil)
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := c.ParseWebhook(payload, sign(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = c.ParseWebhook(payload, sign(payload, whsec, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidSignature, "stale timestamps are rejected")
}
