package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// LogSink writes deliveries to the log.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Deliver(_ context.Context, d Delivery) error {
	s.Log.Info("notification",
		"id", d.ID,
		"kind", d.Notification.Kind,
		"title", d.Notification.Title,
		"late", d.FiredAt.Sub(d.DueAt).String(),
	)
	return nil
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, d Delivery) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WebhookSink POSTs deliveries as JSON, e.g. to a push gateway.
type WebhookSink struct {
	url        string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// NewWebhookSink creates a WebhookSink targeting url.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		attempts:   3,
		backoff:    time.Second,
	}
}

// Deliver retries up to three times with exponential backoff.
func (s *WebhookSink) Deliver(ctx context.Context, d Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling delivery: %w", err)
	}

	var lastErr error
	for attempt := range s.attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook: %w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(s.backoff * time.Duration(1<<uint(attempt-1))):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("webhook: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, body)
		if resp.StatusCode < 500 {
			break
		}
	}
	return fmt.Errorf("webhook delivery failed: %w", lastErr)
}
