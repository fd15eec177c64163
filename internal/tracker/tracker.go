// Package tracker ties the active workout to the rest timer: completing a
// set starts its rest countdown, and app lifecycle transitions reach both.
package tracker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/claude/liftrest/internal/lifecycle"
	"github.com/claude/liftrest/internal/models"
	"github.com/claude/liftrest/internal/resttimer"
	"github.com/claude/liftrest/internal/workout"
)

// Entry is the custom duration being typed.
type Entry struct {
	Digits  string `json:"digits"`
	Display string `json:"display"`
	Seconds int    `json:"seconds"`
}

// Tracker is the single entry point the API and tools drive.
type Tracker struct {
	sessions *workout.Store
	timer    *resttimer.Engine
	log      *slog.Logger

	mu    sync.Mutex
	entry *resttimer.DurationEntry
}

// New creates a Tracker over an existing session store and rest engine.
func New(sessions *workout.Store, timer *resttimer.Engine, log *slog.Logger) *Tracker {
	return &Tracker{
		sessions: sessions,
		timer:    timer,
		log:      log,
		entry:    resttimer.NewDurationEntry(),
	}
}

// Sessions returns the underlying session store.
func (t *Tracker) Sessions() *workout.Store { return t.sessions }

// Timer returns the underlying rest engine.
func (t *Tracker) Timer() *resttimer.Engine { return t.timer }

// Workout returns the active workout, or nil when none is open.
func (t *Tracker) Workout(_ context.Context) (*models.WorkoutView, error) {
	view, ok := t.sessions.Snapshot()
	if !ok {
		return nil, nil
	}
	return &view, nil
}

// StartWorkout opens a new workout.
func (t *Tracker) StartWorkout(ctx context.Context, input workout.StartInput) (*models.WorkoutView, error) {
	if _, err := t.sessions.Start(ctx, input); err != nil {
		return nil, err
	}
	return t.Workout(ctx)
}

// UpdateWorkout patches the active workout. It returns nil when no workout
// is open.
func (t *Tracker) UpdateWorkout(ctx context.Context, patch models.SessionPatch) (*models.WorkoutView, error) {
	_, ok, err := t.sessions.Update(ctx, patch)
	if err != nil || !ok {
		return nil, err
	}
	return t.Workout(ctx)
}

// EndWorkout closes the active workout and clears the rest timer with it.
func (t *Tracker) EndWorkout(ctx context.Context) (*models.WorkoutSession, error) {
	ended, err := t.sessions.End(ctx)
	if err != nil {
		return nil, err
	}
	t.timer.Reset(ctx)
	t.mu.Lock()
	t.entry.Reset()
	t.mu.Unlock()
	return &ended, nil
}

// Minimize collapses the workout view.
func (t *Tracker) Minimize(ctx context.Context) (*models.WorkoutView, error) {
	if _, ok := t.sessions.Active(); !ok {
		return nil, workout.ErrNoSession
	}
	t.sessions.Minimize()
	return t.Workout(ctx)
}

// Maximize expands the workout view.
func (t *Tracker) Maximize(ctx context.Context) (*models.WorkoutView, error) {
	if _, ok := t.sessions.Active(); !ok {
		return nil, workout.ErrNoSession
	}
	t.sessions.Maximize()
	return t.Workout(ctx)
}

// CompleteSet marks a set done and starts its rest countdown. A set that
// was already complete does not restart the timer.
func (t *Tracker) CompleteSet(ctx context.Context, exercise, set int) (*models.SetCompletion, error) {
	entry, changed, err := t.sessions.SetCompleted(ctx, exercise, set, true)
	if err != nil {
		return nil, err
	}

	result := &models.SetCompletion{Exercise: exercise, Set: set, Entry: entry}
	if !changed {
		return result, nil
	}

	ex, err := t.sessions.Exercise(exercise)
	if err != nil {
		// Workout ended in between.
		return result, nil
	}
	rest := min(ex.RestSeconds(set), resttimer.MaxDurationSeconds)
	if rest <= 0 {
		return result, nil
	}
	if err := t.timer.Start(ctx, rest); err != nil {
		t.log.Warn("starting rest timer failed", "exercise", exercise, "set", set, "error", err)
		return result, nil
	}
	result.RestSeconds = rest
	return result, nil
}

// UncompleteSet marks a set not done. The rest timer is left alone.
func (t *Tracker) UncompleteSet(ctx context.Context, exercise, set int) (*models.SetCompletion, error) {
	entry, _, err := t.sessions.SetCompleted(ctx, exercise, set, false)
	if err != nil {
		return nil, err
	}
	return &models.SetCompletion{Exercise: exercise, Set: set, Entry: entry}, nil
}

// RestTimer returns the rest timer state.
func (t *Tracker) RestTimer(_ context.Context) (resttimer.State, error) {
	return t.timer.State(), nil
}

// StartRestTimer starts a countdown of seconds.
func (t *Tracker) StartRestTimer(ctx context.Context, seconds int) (resttimer.State, error) {
	if err := t.timer.Start(ctx, seconds); err != nil {
		return t.timer.State(), err
	}
	return t.timer.State(), nil
}

// AdjustRestTimer adds delta seconds to the running countdown.
func (t *Tracker) AdjustRestTimer(ctx context.Context, delta int) (resttimer.State, error) {
	if err := t.timer.Adjust(ctx, delta); err != nil {
		return t.timer.State(), err
	}
	return t.timer.State(), nil
}

// SkipRestTimer abandons the countdown and returns to the picker.
func (t *Tracker) SkipRestTimer(ctx context.Context) (resttimer.State, error) {
	t.timer.Skip(ctx)
	return t.timer.State(), nil
}

// ResetRestTimer returns the timer to idle.
func (t *Tracker) ResetRestTimer(ctx context.Context) (resttimer.State, error) {
	t.timer.Reset(ctx)
	return t.timer.State(), nil
}

// OpenPicker moves the timer to duration selection.
func (t *Tracker) OpenPicker(_ context.Context) (resttimer.State, error) {
	if err := t.timer.OpenPicker(); err != nil {
		return t.timer.State(), err
	}
	return t.timer.State(), nil
}

// Entry returns the custom duration buffer.
func (t *Tracker) Entry() Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entryLocked()
}

// PushDigit types one digit into the buffer.
func (t *Tracker) PushDigit(digit int) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.entry.PushDigit(digit); err != nil {
		return t.entryLocked(), err
	}
	return t.entryLocked(), nil
}

// Backspace removes the last typed digit.
func (t *Tracker) Backspace() Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry.Backspace()
	return t.entryLocked()
}

// ClearEntry zeroes the buffer.
func (t *Tracker) ClearEntry() Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry.Reset()
	return t.entryLocked()
}

// StartFromEntry starts a countdown of the typed duration. The buffer is
// cleared only when the timer accepts it.
func (t *Tracker) StartFromEntry(ctx context.Context) (resttimer.State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.timer.Start(ctx, t.entry.Seconds()); err != nil {
		return t.timer.State(), err
	}
	t.entry.Reset()
	return t.timer.State(), nil
}

// HandleLifecycle routes an app lifecycle transition to the rest timer
// and refreshes the workout clock on resume.
func (t *Tracker) HandleLifecycle(state lifecycle.State) {
	t.timer.HandleLifecycle(state)
	if state == lifecycle.StateActive {
		t.sessions.Refresh()
	}
}

// Attach subscribes the tracker to obs and returns the unsubscribe func.
func (t *Tracker) Attach(obs lifecycle.Observer) func() {
	return obs.Subscribe(t.HandleLifecycle)
}

func (t *Tracker) entryLocked() Entry {
	return Entry{
		Digits:  t.entry.Digits(),
		Display: t.entry.String(),
		Seconds: t.entry.Seconds(),
	}
}
