package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is an HTTP client for the backend meeting service API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend meeting service client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetVideoMeeting fetches the meeting configuration for an appointment
func (c *Client) GetVideoMeeting(ctx context.Context, appointmentID string) (*VideoMeeting, error) {
	path := fmt.Sprintf("/api/appointments/%s/video-meeting", url.PathEscape(appointmentID))
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var meeting VideoMeeting
	if err := json.NewDecoder(resp.Body).Decode(&meeting); err != nil {
		return nil, fmt.Errorf("decode video meeting: %w", err)
	}
	return &meeting, nil
}

// UpdateMeetingStatus records a meeting status transition for an appointment
func (c *Client) UpdateMeetingStatus(ctx context.Context, appointmentID string, status MeetingStatus, meta StatusMetadata) error {
	path := fmt.Sprintf("/api/appointments/%s/meeting-status", url.PathEscape(appointmentID))
	body, err := json.Marshal(statusUpdateRequest{Status: status, StatusMetadata: meta})
	if err != nil {
		return fmt.Errorf("encode status update: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPatch, path, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do performs an HTTP request and rejects non-2xx responses
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}

	return resp, nil
}
