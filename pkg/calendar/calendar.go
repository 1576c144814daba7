package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://api.cal.com/v1"

// Slot is a bookable consultation window
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BookingRequest describes the attendee of a paid consultation
type BookingRequest struct {
	Start     time.Time
	End       time.Time
	Name      string
	Email     string
	Notes     string
	BookingID string
}

// Provider is the scheduling backend used by the booking flow
type Provider interface {
	Availability(ctx context.Context, from, to time.Time) ([]Slot, error)
	CreateBooking(ctx context.Context, req BookingRequest) (string, error)
}

// Client talks to a Cal.com-style scheduling API
type Client struct {
	baseURL     string
	apiKey      string
	eventTypeID string
	duration    time.Duration
	httpClient  *http.Client
}

// NewClient creates a scheduling client for one event type
func NewClient(baseURL, apiKey, eventTypeID string, duration time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		eventTypeID: eventTypeID,
		duration:    duration,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Availability returns free slots in [from, to), earliest first
func (c *Client) Availability(ctx context.Context, from, to time.Time) ([]Slot, error) {
	q := url.Values{}
	q.Set("eventTypeId", c.eventTypeID)
	q.Set("startTime", from.UTC().Format(time.RFC3339))
	q.Set("endTime", to.UTC().Format(time.RFC3339))

	body, err := c.do(ctx, http.MethodGet, "/slots?"+q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	var (
		slots    []Slot
		parseErr error
	)
	gjson.GetBytes(body, "slots").ForEach(func(_, day gjson.Result) bool {
		day.ForEach(func(_, entry gjson.Result) bool {
			start, err := time.Parse(time.RFC3339, entry.Get("time").String())
			if err != nil {
				parseErr = fmt.Errorf("invalid slot time %q: %w", entry.Get("time").String(), err)
				return false
			}
			start = start.UTC()
			if start.Before(from) || !start.Before(to) {
				return true
			}
			slots = append(slots, Slot{Start: start, End: start.Add(c.duration)})
			return true
		})
		return parseErr == nil
	})
	if parseErr != nil {
		return nil, parseErr
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, nil
}

// CreateBooking books the slot and returns the provider's booking id
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (string, error) {
	payload := map[string]interface{}{
		"eventTypeId": c.eventTypeID,
		"start":       req.Start.UTC().Format(time.RFC3339),
		"end":         req.End.UTC().Format(time.RFC3339),
		"timeZone":    "UTC",
		"language":    "en",
		"responses": map[string]string{
			"name":  req.Name,
			"email": req.Email,
			"notes": req.Notes,
		},
		"metadata": map[string]string{"booking_id": req.BookingID},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal booking: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/bookings", data, req.BookingID)
	if err != nil {
		return "", err
	}

	result := gjson.GetManyBytes(body, "uid", "id", "data.uid", "data.id")
	for _, r := range result {
		if r.Exists() && r.String() != "" {
			return r.String(), nil
		}
	}
	return "", fmt.Errorf("calendar booking response has no id")
}

// do sends a request. A non-empty idempotencyKey lets the provider drop a
// repeated create for the same booking.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, idempotencyKey string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "error").String()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("calendar API returned status %d: %s", resp.StatusCode, msg)
	}
	return body, nil
}
