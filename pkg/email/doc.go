// Package email sends transactional email.
//
// HTTPMailer talks to a Resend-compatible API; LogMailer only logs and is
// used when no API key is configured. Message builders render the HTML and
// plain-text bodies for report, booking and request notifications.
package email
