package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"frameloop/internal/catalog"
)

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs an API client for the given bind address
// ("host:port" or a full URL).
func NewClient(address string) *Client {
	base := strings.TrimSpace(address)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// State fetches the full catalog state.
func (c *Client) State(ctx context.Context) (*StateResponse, error) {
	var state StateResponse
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Health fetches daemon and store diagnostics.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Add registers a file on the frame's filesystem.
func (c *Client) Add(ctx context.Context, path string) (*MediaView, error) {
	var view MediaView
	if err := c.do(ctx, http.MethodPost, "/api/media", AddRequest{Path: path}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Remove deletes a record and its loop entry.
func (c *Client) Remove(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodDelete, "/api/media/"+url.PathEscape(slug), nil, nil)
}

// Retry moves a failed record back to pending.
func (c *Client) Retry(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodPost, "/api/media/"+url.PathEscape(slug)+"/retry", nil, nil)
}

// SetActive points the display at a slug; empty clears it.
func (c *Client) SetActive(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodPut, "/api/active", ActiveRequest{Slug: slug}, nil)
}

// Advance moves the active pointer to the next loop entry.
func (c *Client) Advance(ctx context.Context) (string, error) {
	var resp AdvanceResponse
	if err := c.do(ctx, http.MethodPost, "/api/advance", nil, &resp); err != nil {
		return "", err
	}
	return resp.Active, nil
}

// Reorder replaces the loop order.
func (c *Client) Reorder(ctx context.Context, order []string) error {
	return c.do(ctx, http.MethodPut, "/api/loop", LoopRequest{Order: order}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("daemon address not configured")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorFromResponse maps HTTP statuses back to the catalog sentinel
// errors so CLI code can branch on errors.Is like in-process callers.
func errorFromResponse(resp *http.Response) error {
	message := http.StatusText(resp.StatusCode)
	var apiErr ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		message = apiErr.Error
	}

	var marker error
	switch resp.StatusCode {
	case http.StatusNotFound:
		marker = catalog.ErrNotFound
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		marker = catalog.ErrValidation
	case http.StatusConflict:
		marker = catalog.ErrConflict
	case http.StatusServiceUnavailable:
		marker = catalog.ErrUnavailable
	default:
		return fmt.Errorf("daemon error: %s", message)
	}
	return fmt.Errorf("%w: %s", marker, message)
}
