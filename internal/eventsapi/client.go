// Package eventsapi talks to the backend event-management API.
package eventsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/eventstatus/internal/event"
	"github.com/gyaneshwarpardhi/eventstatus/internal/metrics"
)

const (
	opListEvents  = "list_events"
	opDeleteEvent = "delete_event"

	// maxErrorBody caps how much of a failed response is kept for the error message.
	maxErrorBody = 64 << 10
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("events api: unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("events api: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client calls the events API. The base URL can be swapped while requests are
// in flight (config hot reload).
type Client struct {
	baseURL atomic.Pointer[string]
	http    *http.Client
}

// New creates a Client. A zero timeout leaves calls bounded only by their context.
func New(baseURL string, timeout time.Duration) *Client {
	c := &Client{http: &http.Client{Timeout: timeout}}
	c.SetBaseURL(baseURL)
	return c
}

// NewWithHTTPClient creates a Client around an existing *http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	c := &Client{http: hc}
	c.SetBaseURL(baseURL)
	return c
}

// SetBaseURL atomically replaces the API root.
func (c *Client) SetBaseURL(baseURL string) {
	u := strings.TrimRight(baseURL, "/")
	c.baseURL.Store(&u)
}

// BaseURL returns the current API root.
func (c *Client) BaseURL() string {
	return *c.baseURL.Load()
}

// ListEvents fetches one page of events. query is an already-encoded query string.
func (c *Client) ListEvents(ctx context.Context, query string) (*event.Page, error) {
	url := c.BaseURL() + "/api/getevents"
	if query != "" {
		url += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(opListEvents, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var page event.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode events page: %w", err)
	}
	return &page, nil
}

// DeleteEvent removes one event by id.
func (c *Client) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	url := c.BaseURL() + "/api/deleteevent/" + id.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	resp, err := c.do(opDeleteEvent, req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do sends req and records metrics. Non-2xx responses are drained into a
// *StatusError and the body closed.
func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "transport_error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		metrics.UpstreamRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
	return resp, nil
}
