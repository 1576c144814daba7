// Package payments wraps Stripe Checkout for paid consultations.
//
// A booking creates a one-item checkout session carrying the booking id in
// its metadata; the signed checkout.session.completed and
// checkout.session.expired webhooks drive the booking to confirmed or
// cancelled.
package payments
