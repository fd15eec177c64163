package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type chanSink chan Delivery

func (c chanSink) Deliver(_ context.Context, d Delivery) error {
	c <- d
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestLocalSchedulerFires verifies a scheduled notification is delivered
// once its delay elapses and is no longer pending afterwards.
func TestLocalSchedulerFires(t *testing.T) {
	sink := make(chanSink, 1)
	s := NewLocal(sink, LocalConfig{}, discardLogger())
	defer s.Stop()

	id, err := s.Schedule(context.Background(), RestComplete(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	select {
	case d := <-sink:
		if d.ID != id {
			t.Errorf("delivered id = %q, want %q", d.ID, id)
		}
		if d.Notification.Title != "Rest Complete" {
			t.Errorf("title = %q, want %q", d.Notification.Title, "Rest Complete")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification never delivered")
	}

	if got := s.Pending(); len(got) != 0 {
		t.Errorf("pending after fire = %v, want none", got)
	}
	if err := s.Cancel(context.Background(), id); err != nil {
		t.Errorf("Cancel after fire = %v, want nil", err)
	}
}

// TestLocalSchedulerCancel verifies a cancelled notification never fires
// and that cancelling twice is harmless.
func TestLocalSchedulerCancel(t *testing.T) {
	sink := make(chanSink, 1)
	s := NewLocal(sink, LocalConfig{}, discardLogger())
	defer s.Stop()

	id, err := s.Schedule(context.Background(), RestComplete(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if got := s.Pending(); len(got) != 1 || got[0] != id {
		t.Fatalf("pending = %v, want [%s]", got, id)
	}

	for range 2 {
		if err := s.Cancel(context.Background(), id); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
	}

	select {
	case d := <-sink:
		t.Fatalf("cancelled notification delivered: %+v", d)
	case <-time.After(60 * time.Millisecond):
	}
	if got := s.Pending(); len(got) != 0 {
		t.Errorf("pending = %v, want none", got)
	}
}

// TestLocalSchedulerDisabled verifies scheduling fails with
// ErrPermissionDenied when notifications are off.
func TestLocalSchedulerDisabled(t *testing.T) {
	s := NewLocal(make(chanSink, 1), LocalConfig{Disabled: true}, discardLogger())
	if _, err := s.Schedule(context.Background(), RestComplete(), time.Second); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Schedule error = %v, want ErrPermissionDenied", err)
	}
}

// TestWebhookSinkRetries verifies 5xx responses are retried and the
// delivery body carries the notification.
func TestWebhookSinkRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var d Delivery
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			t.Errorf("decode: %v", err)
		}
		if d.Notification.Kind != KindWorkoutOverdue {
			t.Errorf("kind = %q, want %q", d.Notification.Kind, KindWorkoutOverdue)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	sink := NewWebhookSink(ts.URL, time.Second)
	sink.backoff = time.Millisecond

	err := sink.Deliver(context.Background(), Delivery{ID: "n1", Notification: WorkoutOverdue("Push Day")})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

// TestWebhookSinkClientError verifies 4xx responses are not retried.
func TestWebhookSinkClientError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()

	sink := NewWebhookSink(ts.URL, time.Second)
	sink.backoff = time.Millisecond

	if err := sink.Deliver(context.Background(), Delivery{ID: "n1"}); err == nil {
		t.Fatal("expected error for 403")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

// TestMultiSinkJoinsErrors verifies one failing sink does not stop the others.
func TestMultiSinkJoinsErrors(t *testing.T) {
	ok := make(chanSink, 1)
	failing := sinkFunc(func(context.Context, Delivery) error { return errors.New("boom") })

	err := MultiSink{failing, ok}.Deliver(context.Background(), Delivery{ID: "n1"})
	if err == nil {
		t.Error("expected joined error")
	}
	select {
	case <-ok:
	default:
		t.Error("second sink not called")
	}
}

type sinkFunc func(context.Context, Delivery) error

func (f sinkFunc) Deliver(ctx context.Context, d Delivery) error { return f(ctx, d) }
