// Package client calls the liftrest HTTP API. It backs the control CLI and
// the stdio MCP server when the tracker runs elsewhere on the tailnet.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/liftrest/internal/lifecycle"
	"github.com/claude/liftrest/internal/models"
	"github.com/claude/liftrest/internal/resttimer"
	"github.com/claude/liftrest/internal/workout"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %s returned %d: %s", e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to a liftrest server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client targeting baseURL. apiKey may be empty.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Path: path, StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("client: decode %s: %w", path, err)
		}
	}
	return nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Workout returns the active workout, or nil when none is open.
func (c *Client) Workout(ctx context.Context) (*models.WorkoutView, error) {
	var view models.WorkoutView
	if err := c.do(ctx, http.MethodGet, "/api/v1/workout", nil, &view); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &view, nil
}

// StartWorkout opens a new workout.
func (c *Client) StartWorkout(ctx context.Context, input workout.StartInput) (*models.WorkoutView, error) {
	var view models.WorkoutView
	if err := c.do(ctx, http.MethodPost, "/api/v1/workout", input, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateWorkout patches the active workout.
func (c *Client) UpdateWorkout(ctx context.Context, patch models.SessionPatch) (*models.WorkoutView, error) {
	var view models.WorkoutView
	if err := c.do(ctx, http.MethodPatch, "/api/v1/workout", patch, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// EndWorkout closes the active workout.
func (c *Client) EndWorkout(ctx context.Context) (*models.WorkoutSession, error) {
	var session models.WorkoutSession
	if err := c.do(ctx, http.MethodDelete, "/api/v1/workout", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CompleteSet marks a set done, starting its rest on the server.
func (c *Client) CompleteSet(ctx context.Context, exercise, set int) (*models.SetCompletion, error) {
	return c.setCompletion(ctx, exercise, set, "complete")
}

// UncompleteSet marks a set not done.
func (c *Client) UncompleteSet(ctx context.Context, exercise, set int) (*models.SetCompletion, error) {
	return c.setCompletion(ctx, exercise, set, "uncomplete")
}

func (c *Client) setCompletion(ctx context.Context, exercise, set int, action string) (*models.SetCompletion, error) {
	var res models.SetCompletion
	path := fmt.Sprintf("/api/v1/workout/exercises/%d/sets/%d/%s", exercise, set, action)
	if err := c.do(ctx, http.MethodPost, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RestTimer returns the rest timer state.
func (c *Client) RestTimer(ctx context.Context) (resttimer.State, error) {
	return c.timer(ctx, http.MethodGet, "/api/v1/timer", nil)
}

// StartRestTimer starts a countdown of seconds.
func (c *Client) StartRestTimer(ctx context.Context, seconds int) (resttimer.State, error) {
	return c.timer(ctx, http.MethodPost, "/api/v1/timer/start", map[string]int{"seconds": seconds})
}

// AdjustRestTimer adds delta seconds to the running countdown.
func (c *Client) AdjustRestTimer(ctx context.Context, delta int) (resttimer.State, error) {
	return c.timer(ctx, http.MethodPost, "/api/v1/timer/adjust", map[string]int{"delta": delta})
}

// SkipRestTimer abandons the countdown.
func (c *Client) SkipRestTimer(ctx context.Context) (resttimer.State, error) {
	return c.timer(ctx, http.MethodPost, "/api/v1/timer/skip", nil)
}

// ResetRestTimer returns the timer to idle.
func (c *Client) ResetRestTimer(ctx context.Context) (resttimer.State, error) {
	return c.timer(ctx, http.MethodPost, "/api/v1/timer/reset", nil)
}

func (c *Client) timer(ctx context.Context, method, path string, in any) (resttimer.State, error) {
	var st resttimer.State
	err := c.do(ctx, method, path, in, &st)
	return st, err
}

// PublishLifecycle reports a foreground/background transition.
func (c *Client) PublishLifecycle(ctx context.Context, state lifecycle.State) error {
	return c.do(ctx, http.MethodPost, "/api/v1/lifecycle", map[string]lifecycle.State{"state": state}, nil)
}
