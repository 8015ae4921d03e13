package fbconversion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned by a client that has no pixel id or access token.
var ErrNotConfigured = errors.New("fbconversion: client not configured")

const actionSourceWebsite = "website"

type Client struct {
	BaseURL       string
	APIVersion    string
	PixelID       string
	AccessToken   string
	TestEventCode string
	HTTPClient    *http.Client
}

type Event struct {
	EventName      string     `json:"event_name"`
	EventTime      int64      `json:"event_time"`
	EventID        string     `json:"event_id,omitempty"`
	EventSourceURL string     `json:"event_source_url,omitempty"`
	ActionSource   string     `json:"action_source"`
	UserData       UserData   `json:"user_data"`
	CustomData     CustomData `json:"custom_data"`
}

type UserData struct {
	ClientIPAddress string `json:"client_ip_address,omitempty"`
	ClientUserAgent string `json:"client_user_agent,omitempty"`
	FBP             string `json:"fbp,omitempty"`
	FBC             string `json:"fbc,omitempty"`
}

type CustomData struct {
	Currency string    `json:"currency"`
	Value    float64   `json:"value"`
	Contents []Content `json:"contents,omitempty"`
}

type Content struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type sendEventsRequest struct {
	Data          []Event `json:"data"`
	TestEventCode string  `json:"test_event_code,omitempty"`
}

type SendEventsResponse struct {
	EventsReceived int      `json:"events_received"`
	Messages       []string `json:"messages"`
	FBTraceID      string   `json:"fbtrace_id"`
}

// APIError is returned when the Graph API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fbconversion: unexpected status %d: %s", e.StatusCode, e.Body)
}

func NewClient(baseURL, apiVersion, pixelID, accessToken string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIVersion:  apiVersion,
		PixelID:     pixelID,
		AccessToken: accessToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether the client has the credentials needed to send events.
func (c *Client) Enabled() bool {
	return c != nil && c.PixelID != "" && c.AccessToken != ""
}

// SendEvents posts server events for the configured pixel.
func (c *Client) SendEvents(ctx context.Context, events ...Event) (*SendEventsResponse, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if len(events) == 0 {
		return &SendEventsResponse{}, nil
	}
	for i := range events {
		if events[i].ActionSource == "" {
			events[i].ActionSource = actionSourceWebsite
		}
	}

	jsonData, err := json.Marshal(sendEventsRequest{Data: events, TestEventCode: c.TestEventCode})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
		c.BaseURL, c.APIVersion, url.PathEscape(c.PixelID), url.QueryEscape(c.AccessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var response SendEventsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &response, nil
}

// SendEvent sends a single event.
func (c *Client) SendEvent(ctx context.Context, event Event) error {
	_, err := c.SendEvents(ctx, event)
	return err
}
