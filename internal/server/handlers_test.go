package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/liftrest/internal/clock"
	"github.com/claude/liftrest/internal/lifecycle"
	"github.com/claude/liftrest/internal/models"
	"github.com/claude/liftrest/internal/resttimer"
	"github.com/claude/liftrest/internal/storage"
	"github.com/claude/liftrest/internal/tracker"
	"github.com/claude/liftrest/internal/workout"
)

var epoch = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, apiKey string) (*Server, *clock.Manual) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewManual(epoch)
	kv := storage.NewMemoryStore()

	sessions := workout.NewStore(kv, nil, clk, workout.Config{TickInterval: time.Hour}, log)
	timer := resttimer.New(nil, clk, resttimer.Config{TickInterval: time.Hour}, log)
	t.Cleanup(sessions.Close)
	t.Cleanup(timer.Close)

	hub := lifecycle.NewHub()
	tr := tracker.New(sessions, timer, log)
	tr.Attach(hub)
	return New(tr, hub, apiKey, log), clk
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

const startBody = `{"name":"Push Day","exercises":[{"name":"Bench Press","restTime":90,"sets":[{"weight":"80","reps":"5"},{"weight":"","reps":""}]}]}`

// TestHealth verifies the liveness endpoint skips API key checks.
func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/workout", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("workout without key status = %d, want 401", rec.Code)
	}
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s, _ := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/v1/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	info := decode[UserInfo](t, rec)
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestWorkoutLifecycle walks a workout through start, patch, minimize and end.
func TestWorkoutLifecycle(t *testing.T) {
	s, clk := newTestServer(t, "")

	if rec := do(t, s, http.MethodGet, "/api/v1/workout", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET before start status = %d, want 404", rec.Code)
	}

	rec := do(t, s, http.MethodPost, "/api/v1/workout", startBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201: %s", rec.Code, rec.Body)
	}
	view := decode[models.WorkoutView](t, rec)
	if view.Session.Name != "Push Day" || len(view.Session.Exercises) != 1 {
		t.Errorf("started = %+v", view.Session)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/workout", `{}`); rec.Code != http.StatusConflict {
		t.Errorf("second POST status = %d, want 409", rec.Code)
	}

	rec = do(t, s, http.MethodPatch, "/api/v1/workout", `{"note":"heavy day"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d, want 200", rec.Code)
	}
	if got := decode[models.WorkoutView](t, rec).Session.Note; got != "heavy day" {
		t.Errorf("note = %q, want %q", got, "heavy day")
	}

	if rec := do(t, s, http.MethodPatch, "/api/v1/workout", `{"weightUnit":"stone"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad unit PATCH status = %d, want 422", rec.Code)
	}
	if rec := do(t, s, http.MethodPatch, "/api/v1/workout", `{"note":`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed PATCH status = %d, want 400", rec.Code)
	}

	clk.Advance(10 * time.Minute)
	rec = do(t, s, http.MethodPost, "/api/v1/workout/minimize", "")
	view = decode[models.WorkoutView](t, rec)
	if !view.Minimized || view.ElapsedSeconds != 600 {
		t.Errorf("minimized view = minimized %v, elapsed %d", view.Minimized, view.ElapsedSeconds)
	}
	rec = do(t, s, http.MethodPost, "/api/v1/workout/maximize", "")
	if decode[models.WorkoutView](t, rec).Minimized {
		t.Error("maximize left the view minimized")
	}

	if rec := do(t, s, http.MethodDelete, "/api/v1/workout", ""); rec.Code != http.StatusOK {
		t.Errorf("DELETE status = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/v1/workout", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", rec.Code)
	}
}

// TestCompleteSetEndpoint verifies completion starts the rest timer and
// incomplete sets are rejected.
func TestCompleteSetEndpoint(t *testing.T) {
	s, _ := newTestServer(t, "")
	if rec := do(t, s, http.MethodPost, "/api/v1/workout", startBody); rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d", rec.Code)
	}

	rec := do(t, s, http.MethodPost, "/api/v1/workout/exercises/0/sets/0/complete", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if res := decode[models.SetCompletion](t, rec); res.RestSeconds != 90 || !res.Entry.Completed {
		t.Errorf("completion = %+v", res)
	}

	st := decode[resttimer.State](t, do(t, s, http.MethodGet, "/api/v1/timer", ""))
	if st.Status != resttimer.StatusRunning || st.RemainingSeconds != 90 {
		t.Errorf("timer = %s/%d, want running/90", st.Status, st.RemainingSeconds)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/workout/exercises/0/sets/1/complete", http.StatusUnprocessableEntity},
		{"/api/v1/workout/exercises/0/sets/7/complete", http.StatusNotFound},
		{"/api/v1/workout/exercises/x/sets/0/complete", http.StatusBadRequest},
		{"/api/v1/workout/exercises/0/sets/0/uncomplete", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := do(t, s, http.MethodPost, tt.path, ""); rec.Code != tt.want {
			t.Errorf("POST %s status = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

// TestTimerEndpoints drives the timer through start, adjust, background,
// resume and skip.
func TestTimerEndpoints(t *testing.T) {
	s, clk := newTestServer(t, "")

	if rec := do(t, s, http.MethodPost, "/api/v1/timer/start", `{"seconds":0}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("start 0 status = %d, want 422", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/timer/adjust", `{"delta":15}`); rec.Code != http.StatusConflict {
		t.Errorf("adjust idle status = %d, want 409", rec.Code)
	}

	st := decode[resttimer.State](t, do(t, s, http.MethodPost, "/api/v1/timer/start", `{"seconds":90}`))
	if st.Status != resttimer.StatusRunning || st.EndTimestamp != epoch.Add(90*time.Second).UnixMilli() {
		t.Errorf("started = %+v", st)
	}

	st = decode[resttimer.State](t, do(t, s, http.MethodPost, "/api/v1/timer/adjust", `{"delta":15}`))
	if st.RemainingSeconds != 105 {
		t.Errorf("remaining after +15 = %d, want 105", st.RemainingSeconds)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/timer/picker", ""); rec.Code != http.StatusConflict {
		t.Errorf("picker while running status = %d, want 409", rec.Code)
	}

	do(t, s, http.MethodPost, "/api/v1/lifecycle", `{"state":"background"}`)
	clk.Advance(2 * time.Minute)
	rec := do(t, s, http.MethodPost, "/api/v1/lifecycle", `{"state":"active"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("lifecycle status = %d, want 200", rec.Code)
	}
	st = decode[resttimer.State](t, do(t, s, http.MethodGet, "/api/v1/timer", ""))
	if st.Status != resttimer.StatusCompleted || st.RemainingSeconds != 0 {
		t.Errorf("after resume = %s/%d, want completed/0", st.Status, st.RemainingSeconds)
	}

	st = decode[resttimer.State](t, do(t, s, http.MethodPost, "/api/v1/timer/skip", ""))
	if st.Status != resttimer.StatusPicker || st.RemainingSeconds != 105 {
		t.Errorf("after skip = %s/%d, want picker/105", st.Status, st.RemainingSeconds)
	}
	st = decode[resttimer.State](t, do(t, s, http.MethodPost, "/api/v1/timer/reset", ""))
	if st.Status != resttimer.StatusIdle {
		t.Errorf("after reset = %s, want idle", st.Status)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/lifecycle", `{"state":"asleep"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad lifecycle status = %d, want 422", rec.Code)
	}
}

// TestEntryEndpoints verifies the keypad buffer and starting from it.
func TestEntryEndpoints(t *testing.T) {
	s, _ := newTestServer(t, "")

	for _, d := range []string{"2", "1", "5"} {
		if rec := do(t, s, http.MethodPost, "/api/v1/timer/entry/digit", `{"digit":`+d+`}`); rec.Code != http.StatusOK {
			t.Fatalf("digit %s status = %d", d, rec.Code)
		}
	}
	entry := decode[tracker.Entry](t, do(t, s, http.MethodGet, "/api/v1/timer/entry", ""))
	if entry.Display != "02:15" || entry.Seconds != 135 {
		t.Errorf("entry = %+v, want 02:15/135", entry)
	}

	entry = decode[tracker.Entry](t, do(t, s, http.MethodPost, "/api/v1/timer/entry/backspace", ""))
	if entry.Digits != "0021" {
		t.Errorf("after backspace digits = %q, want 0021", entry.Digits)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/timer/entry/digit", `{"digit":10}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("digit 10 status = %d, want 422", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/timer/entry/digit", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing digit status = %d, want 400", rec.Code)
	}

	st := decode[resttimer.State](t, do(t, s, http.MethodPost, "/api/v1/timer/entry/start", ""))
	if st.Status != resttimer.StatusRunning || st.DurationSeconds != 21 {
		t.Errorf("started from entry = %s/%d, want running/21", st.Status, st.DurationSeconds)
	}

	entry = decode[tracker.Entry](t, do(t, s, http.MethodPost, "/api/v1/timer/entry/clear", ""))
	if entry.Digits != "0000" {
		t.Errorf("after clear digits = %q, want 0000", entry.Digits)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/timer/entry/start", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("start from 00:00 status = %d, want 422", rec.Code)
	}
}
