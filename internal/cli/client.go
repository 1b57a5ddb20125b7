// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/coachsync/internal/models"
	"github.com/tomtom215/coachsync/internal/problems"
	syncpkg "github.com/tomtom215/coachsync/internal/sync"
)

// APIError is an error envelope returned by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Client talks to the coachsync REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

// do sends a request and decodes the envelope's data into out. out may be
// nil when the caller does not need the payload.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: unexpected response (%d): %w", method, path, resp.StatusCode, err)
	}
	if env.Status != "success" {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var out models.HealthResponse
	return &out, c.do(ctx, http.MethodGet, "/api/v1/health", nil, &out)
}

func (c *Client) Status(ctx context.Context) (*syncpkg.Status, error) {
	var out syncpkg.Status
	return &out, c.do(ctx, http.MethodGet, "/api/v1/sync/status", nil, &out)
}

// Sync runs a reconciliation. force also completes past sessions and
// pushes the result.
func (c *Client) Sync(ctx context.Context, force bool) (*models.SyncTriggerResponse, error) {
	path := "/api/v1/sync/run"
	if force {
		path = "/api/v1/sync/force"
	}
	var out models.SyncTriggerResponse
	return &out, c.do(ctx, http.MethodPost, path, nil, &out)
}

func (c *Client) Push(ctx context.Context) (*models.PushResponse, error) {
	var out models.PushResponse
	return &out, c.do(ctx, http.MethodPost, "/api/v1/sync/push", nil, &out)
}

// Problems returns the stored snapshot, or nil when there is none.
func (c *Client) Problems(ctx context.Context) (*problems.Snapshot, error) {
	var out *problems.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/sync/problems", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ClearProblems(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/sync/problems", nil, nil)
}

func (c *Client) MarkProblemsSeen(ctx context.Context) (bool, error) {
	var out map[string]bool
	err := c.do(ctx, http.MethodPost, "/api/v1/sync/problems/seen", nil, &out)
	return out["changed"], err
}

func (c *Client) EvictProblems(ctx context.Context, hours int) (bool, error) {
	var out map[string]bool
	path := "/api/v1/sync/problems/evict?hours=" + strconv.Itoa(hours)
	err := c.do(ctx, http.MethodPost, path, nil, &out)
	return out["evicted"], err
}

func (c *Client) StartPeriodic(ctx context.Context, minutes int) (*models.PeriodicResponse, error) {
	var out models.PeriodicResponse
	req := models.PeriodicRequest{IntervalMinutes: minutes}
	return &out, c.do(ctx, http.MethodPost, "/api/v1/sync/periodic/start", req, &out)
}

func (c *Client) StopPeriodic(ctx context.Context) (*models.PeriodicResponse, error) {
	var out models.PeriodicResponse
	return &out, c.do(ctx, http.MethodPost, "/api/v1/sync/periodic/stop", nil, &out)
}

// Sessions lists sessions between from and to. Empty bounds are omitted and
// the server applies its defaults.
func (c *Client) Sessions(ctx context.Context, from, to string) ([]models.Session, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	path := "/api/v1/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.Session
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
