package resttimer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/claude/liftrest/internal/clock"
	"github.com/claude/liftrest/internal/lifecycle"
	"github.com/claude/liftrest/internal/notify"
	"github.com/claude/liftrest/internal/storage"
)

// Config contains runtime options for Engine.
type Config struct {
	TickInterval time.Duration
	// Store, when set, keeps the timer across process restarts under StateKey.
	Store    storage.KV
	StateKey string
}

// Engine is the rest countdown state machine. The countdown is derived from
// an absolute end time on every read, so ticks that are late, dropped or
// frozen while the process is suspended never skew it.
type Engine struct {
	mu       sync.Mutex
	config   Config
	clock    clock.Clock
	notifier notify.Scheduler
	writer   *storage.Writer
	log      *slog.Logger

	status         Status
	duration       int
	remaining      int
	endAt          time.Time
	notificationID notify.ID

	// generation identifies the live tick loop; a loop whose generation
	// no longer matches must not touch state.
	generation uint64
	stopCh     chan struct{}

	events []chan Event
	closed bool
}

// New creates an idle Engine.
func New(notifier notify.Scheduler, clk clock.Clock, config Config, log *slog.Logger) *Engine {
	if config.TickInterval <= 0 {
		config.TickInterval = 500 * time.Millisecond
	}
	if config.StateKey == "" {
		config.StateKey = "rest_timer"
	}
	if clk == nil {
		clk = clock.System{}
	}
	e := &Engine{
		config:   config,
		clock:    clk,
		notifier: notifier,
		log:      log,
		status:   StatusIdle,
	}
	if config.Store != nil {
		e.writer = storage.NewWriter(config.Store, log)
	}
	return e
}

// Subscribe registers a new observer channel. Slow observers miss events
// rather than block the engine.
func (e *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	e.mu.Lock()
	if e.closed {
		close(ch)
	} else {
		e.events = append(e.events, ch)
	}
	e.mu.Unlock()
	return ch
}

// State returns the current snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Start begins a countdown of durationSeconds, replacing any active one.
func (e *Engine) Start(ctx context.Context, durationSeconds int) error {
	if durationSeconds < MinDurationSeconds || durationSeconds > MaxDurationSeconds {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, durationSeconds)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLoopLocked()
	e.runLocked(ctx, durationSeconds, e.clock.Now())
	e.emitLocked(EventStateChange)
	return nil
}

// Tick recomputes the remaining time from the end timestamp. It is safe to
// call at any time and any number of times.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickLocked(context.Background())
}

// Adjust adds deltaSeconds (possibly negative) to the running countdown.
func (e *Engine) Adjust(ctx context.Context, deltaSeconds int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusRunning {
		return ErrNotRunning
	}

	now := e.clock.Now()
	deltaSeconds = clamp(deltaSeconds, -MaxDurationSeconds, MaxDurationSeconds)
	remaining := clamp(e.remainingAt(now)+deltaSeconds, 0, MaxDurationSeconds)
	if remaining == 0 {
		e.completeLocked(ctx)
		return nil
	}

	e.stopLoopLocked()
	e.runLocked(ctx, remaining, now)
	e.emitLocked(EventStateChange)
	return nil
}

// Skip abandons the countdown (or acknowledges a finished one) and returns
// to the picker.
func (e *Engine) Skip(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLoopLocked()
	e.cancelNotificationLocked(ctx)
	e.endAt = time.Time{}
	e.remaining = e.duration
	changed := e.status != StatusPicker
	e.status = StatusPicker
	e.persistLocked()
	if changed {
		e.emitLocked(EventStateChange)
	}
}

// Reset returns the timer to idle.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLoopLocked()
	e.cancelNotificationLocked(ctx)
	e.endAt = time.Time{}
	e.remaining = e.duration
	e.status = StatusIdle
	e.persistLocked()
	e.emitLocked(EventStateChange)
}

// OpenPicker moves an idle or completed timer to duration selection.
func (e *Engine) OpenPicker() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case StatusRunning:
		return ErrRunning
	case StatusPicker:
		return nil
	}
	e.status = StatusPicker
	e.remaining = e.duration
	e.persistLocked()
	e.emitLocked(EventStateChange)
	return nil
}

// OnForegroundResume reconciles the countdown after the process may have
// been suspended for any length of time.
func (e *Engine) OnForegroundResume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusRunning {
		return
	}
	remaining := e.remainingAt(e.clock.Now())
	if remaining <= 0 {
		e.completeLocked(context.Background())
		return
	}
	e.stopLoopLocked()
	e.remaining = remaining
	e.startLoopLocked()
	e.emitLocked(EventProgress)
}

// OnBackground stops the tick loop. The end timestamp is kept, so the
// countdown is still correct when the process resumes.
func (e *Engine) OnBackground() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLoopLocked()
}

// HandleLifecycle routes an app lifecycle transition.
func (e *Engine) HandleLifecycle(state lifecycle.State) {
	switch state {
	case lifecycle.StateActive:
		e.OnForegroundResume()
	case lifecycle.StateBackground:
		e.OnBackground()
	}
}

// Close stops the tick loop, flushes persisted state and closes observers.
// Pending notifications are left armed.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopLoopLocked()
	events := e.events
	e.events = nil
	e.mu.Unlock()

	if e.writer != nil {
		e.writer.Close()
	}
	for _, ch := range events {
		close(ch)
	}
}

// runLocked arms a countdown of seconds from now and starts one tick loop.
// The caller must have stopped any previous loop.
func (e *Engine) runLocked(ctx context.Context, seconds int, now time.Time) {
	e.duration = seconds
	e.remaining = seconds
	e.endAt = now.Add(time.Duration(seconds) * time.Second)
	e.status = StatusRunning
	e.rescheduleLocked(ctx, time.Duration(seconds)*time.Second)
	e.startLoopLocked()
	e.persistLocked()
}

func (e *Engine) tickLocked(ctx context.Context) {
	if e.status != StatusRunning {
		return
	}
	remaining := e.remainingAt(e.clock.Now())
	if remaining <= 0 {
		e.completeLocked(ctx)
		return
	}
	e.remaining = remaining
	e.emitLocked(EventProgress)
}

// completeLocked is the only path that raises EventCompleted.
func (e *Engine) completeLocked(ctx context.Context) {
	e.stopLoopLocked()
	e.endAt = time.Time{}
	e.cancelNotificationLocked(ctx)
	e.status = StatusCompleted
	e.remaining = 0
	e.persistLocked()
	e.emitLocked(EventCompleted)
}

func (e *Engine) remainingAt(now time.Time) int {
	return int(math.Round(e.endAt.Sub(now).Seconds()))
}

func (e *Engine) startLoopLocked() {
	if e.closed {
		return
	}
	e.generation++
	stop := make(chan struct{})
	e.stopCh = stop
	go e.run(e.generation, stop)
}

func (e *Engine) stopLoopLocked() {
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	e.generation++
}

func (e *Engine) run(generation uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(e.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.tickGeneration(generation)
		}
	}
}

func (e *Engine) tickGeneration(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if generation != e.generation {
		return
	}
	e.tickLocked(context.Background())
}

func (e *Engine) rescheduleLocked(ctx context.Context, delay time.Duration) {
	e.cancelNotificationLocked(ctx)
	if e.notifier == nil {
		return
	}
	id, err := e.notifier.Schedule(ctx, notify.RestComplete(), delay)
	if err != nil {
		e.log.Warn("scheduling rest notification failed", "error", err)
		return
	}
	e.notificationID = id
}

func (e *Engine) cancelNotificationLocked(ctx context.Context) {
	if e.notificationID == "" || e.notifier == nil {
		return
	}
	id := e.notificationID
	e.notificationID = ""
	if err := e.notifier.Cancel(ctx, id); err != nil {
		e.log.Warn("cancelling rest notification failed", "id", id, "error", err)
	}
}

func (e *Engine) stateLocked() State {
	state := State{
		Status:           e.status,
		DurationSeconds:  e.duration,
		RemainingSeconds: e.remaining,
		NotificationID:   e.notificationID,
	}
	if !e.endAt.IsZero() {
		state.EndTimestamp = e.endAt.UnixMilli()
	}
	return state
}

func (e *Engine) emitLocked(eventType EventType) {
	event := Event{Type: eventType, State: e.stateLocked(), At: e.clock.Now()}
	for _, ch := range e.events {
		select {
		case ch <- event:
		default:
		}
	}
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
