package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://api.resend.com"

// Message is a transactional email
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers transactional email
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPMailer sends email through a Resend-compatible HTTP API
type HTTPMailer struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewHTTPMailer creates a mailer for the given API
func NewHTTPMailer(baseURL, apiKey, from string) *HTTPMailer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPMailer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Send posts the message to the email API
func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("email recipient is required")
	}

	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := gjson.GetBytes(respBody, "message").String()
		if message == "" {
			message = strings.TrimSpace(string(respBody))
		}
		return fmt.Errorf("email API returned status %d: %s", resp.StatusCode, message)
	}
	return nil
}

// LogMailer logs messages instead of sending them
type LogMailer struct {
	logger logrus.FieldLogger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger logrus.FieldLogger) *LogMailer {
	return &LogMailer{logger: logger.WithField("component", "email")}
}

// Send logs the message
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("email not sent, no email API key configured")
	m.logger.Debug(msg.Text)
	return nil
}
