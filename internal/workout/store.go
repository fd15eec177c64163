package workout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/claude/liftrest/internal/clock"
	"github.com/claude/liftrest/internal/models"
	"github.com/claude/liftrest/internal/notify"
	"github.com/claude/liftrest/internal/storage"
	"github.com/google/uuid"
)

// Config contains runtime options for Store.
type Config struct {
	// Key is the persistence key for the active session.
	Key          string
	TickInterval time.Duration
	// OverdueAfter schedules a reminder this long after the start time.
	// Zero disables the reminder.
	OverdueAfter time.Duration
}

// StartInput describes a new workout.
type StartInput struct {
	Name       string            `json:"name"`
	Exercises  []models.Exercise `json:"exercises"`
	StartTime  time.Time         `json:"startTime"`
	WeightUnit models.WeightUnit `json:"weightUnit"`
}

// Tick is published on every elapsed-time refresh.
type Tick struct {
	SessionID string
	Elapsed   time.Duration
}

// Store owns the single in-progress workout. Every mutation is persisted
// in the background; persistence failures never undo the in-memory change.
type Store struct {
	mu       sync.Mutex
	config   Config
	kv       storage.KV
	writer   *storage.Writer
	notifier notify.Scheduler
	clock    clock.Clock
	log      *slog.Logger

	active    *models.WorkoutSession
	minimized bool
	elapsed   time.Duration
	overdueID notify.ID

	stopCh chan struct{}
	ticks  []chan Tick
	closed bool
}

// NewStore creates a Store with no active workout. Call Rehydrate to pick
// up a workout saved by a previous process.
func NewStore(kv storage.KV, notifier notify.Scheduler, clk clock.Clock, config Config, log *slog.Logger) *Store {
	if config.Key == "" {
		config.Key = "active_workout"
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Store{
		config:   config,
		kv:       kv,
		writer:   storage.NewWriter(kv, log),
		notifier: notifier,
		clock:    clk,
		log:      log,
	}
}

// Start opens a new workout. It fails if one is already open.
func (s *Store) Start(ctx context.Context, input StartInput) (models.WorkoutSession, error) {
	if input.WeightUnit == "" {
		input.WeightUnit = models.WeightUnitKg
	}
	if !input.WeightUnit.Valid() {
		return models.WorkoutSession{}, &models.ValidationError{Field: "weightUnit", Message: "weight unit must be kg or lbs"}
	}
	if err := (models.SessionPatch{Exercises: input.Exercises}).Validate(); err != nil {
		return models.WorkoutSession{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return models.WorkoutSession{}, ErrSessionActive
	}

	startTime := input.StartTime
	if startTime.IsZero() {
		startTime = s.clock.Now()
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = defaultName(startTime)
	}

	session := models.WorkoutSession{
		ID:         uuid.NewString(),
		Name:       name,
		StartTime:  startTime,
		Exercises:  models.WorkoutSession{Exercises: input.Exercises}.Clone().Exercises,
		WeightUnit: input.WeightUnit,
	}
	s.activateLocked(ctx, &session)
	s.persistLocked()

	s.log.Info("workout started", "id", session.ID, "name", session.Name)
	return session.Clone(), nil
}

// Update shallow-merges patch into the active workout. With no active
// workout it does nothing and reports false.
func (s *Store) Update(ctx context.Context, patch models.SessionPatch) (models.WorkoutSession, bool, error) {
	if err := patch.Validate(); err != nil {
		return models.WorkoutSession{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return models.WorkoutSession{}, false, nil
	}
	patch.Apply(s.active)
	if patch.StartTime != nil {
		s.elapsed = s.elapsedLocked()
		s.scheduleOverdueLocked(ctx)
	}
	s.persistLocked()
	return s.active.Clone(), true, nil
}

// SetCompleted marks a set done or not done and reports whether the flag
// changed. Completing a set without both weight and reps is a validation
// failure and changes nothing.
func (s *Store) SetCompleted(_ context.Context, exercise, set int, completed bool) (models.SetEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return models.SetEntry{}, false, ErrNoSession
	}
	if exercise < 0 || exercise >= len(s.active.Exercises) {
		return models.SetEntry{}, false, fmt.Errorf("%w: exercise %d", ErrSetNotFound, exercise)
	}
	ex := &s.active.Exercises[exercise]
	if set < 0 || set >= len(ex.Sets) {
		return models.SetEntry{}, false, fmt.Errorf("%w: exercise %d set %d", ErrSetNotFound, exercise, set)
	}

	entry := &ex.Sets[set]
	if completed {
		if err := entry.CanComplete(); err != nil {
			return *entry, false, err
		}
	}
	if entry.Completed == completed {
		return *entry, false, nil
	}
	entry.Completed = completed
	s.persistLocked()
	return *entry, true, nil
}

// Exercise returns a copy of the exercise at index i of the active workout.
func (s *Store) Exercise(i int) (models.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return models.Exercise{}, ErrNoSession
	}
	if i < 0 || i >= len(s.active.Exercises) {
		return models.Exercise{}, fmt.Errorf("%w: exercise %d", ErrSetNotFound, i)
	}
	return models.WorkoutSession{Exercises: s.active.Exercises[i : i+1]}.Clone().Exercises[0], nil
}

// Minimize collapses the workout view. Only the in-memory flag changes.
func (s *Store) Minimize() {
	s.mu.Lock()
	s.minimized = true
	s.mu.Unlock()
}

// Maximize expands the workout view.
func (s *Store) Maximize() {
	s.mu.Lock()
	s.minimized = false
	s.mu.Unlock()
}

// End closes the active workout, cancels its overdue reminder and clears
// persisted state. It returns the ended workout.
func (s *Store) End(ctx context.Context) (models.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return models.WorkoutSession{}, ErrNoSession
	}
	ended := s.active.Clone()

	s.stopLoopLocked()
	s.cancelOverdueLocked(ctx)
	s.active = nil
	s.minimized = false
	s.elapsed = 0
	s.writer.Remove(s.config.Key)

	s.log.Info("workout ended", "id", ended.ID, "duration", s.clock.Now().Sub(ended.StartTime).Round(time.Second).String())
	return ended, nil
}

// Rehydrate restores a workout saved by a previous process. Missing or
// malformed data means no active workout. A failing store read is returned
// so the caller can log it; the store is left with no active workout.
func (s *Store) Rehydrate(ctx context.Context) (bool, error) {
	raw, err := s.kv.Get(ctx, s.config.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("reading saved workout: %w", err)
	}

	var session models.WorkoutSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil || session.ID == "" || session.StartTime.IsZero() {
		s.log.Warn("discarding unreadable saved workout", "error", err)
		s.writer.Remove(s.config.Key)
		return false, nil
	}
	if !session.WeightUnit.Valid() {
		session.WeightUnit = models.WeightUnitKg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return true, nil
	}
	s.activateLocked(ctx, &session)
	s.log.Info("workout restored", "id", session.ID, "elapsed", s.elapsed.Round(time.Second).String())
	return true, nil
}

// Active returns a copy of the active workout.
func (s *Store) Active() (models.WorkoutSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return models.WorkoutSession{}, false
	}
	return s.active.Clone(), true
}

// Elapsed is always now minus the start time, never a sum of ticks.
func (s *Store) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0
	}
	return s.elapsedLocked()
}

// Snapshot returns the active workout as shown to clients.
func (s *Store) Snapshot() (models.WorkoutView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return models.WorkoutView{}, false
	}
	return models.WorkoutView{
		Session:        s.active.Clone(),
		ElapsedSeconds: int64(s.elapsedLocked() / time.Second),
		Minimized:      s.minimized,
	}, true
}

// Minimized reports the view flag.
func (s *Store) Minimized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minimized
}

// Refresh recomputes the elapsed time immediately, e.g. after the process
// comes back to the foreground.
func (s *Store) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
}

// Subscribe returns a channel of elapsed-time refreshes.
func (s *Store) Subscribe(buffer int) <-chan Tick {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Tick, buffer)
	s.mu.Lock()
	if s.closed {
		close(ch)
	} else {
		s.ticks = append(s.ticks, ch)
	}
	s.mu.Unlock()
	return ch
}

// Flush waits for queued persistence writes.
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// Close stops the elapsed loop and flushes pending writes. The active
// workout stays persisted for the next Rehydrate.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopLoopLocked()
	ticks := s.ticks
	s.ticks = nil
	s.mu.Unlock()

	s.writer.Close()
	for _, ch := range ticks {
		close(ch)
	}
}

func (s *Store) activateLocked(ctx context.Context, session *models.WorkoutSession) {
	s.active = session
	s.minimized = false
	s.elapsed = s.elapsedLocked()
	s.scheduleOverdueLocked(ctx)
	s.startLoopLocked()
}

func (s *Store) elapsedLocked() time.Duration {
	elapsed := s.clock.Now().Sub(s.active.StartTime)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (s *Store) refreshLocked() {
	if s.active == nil {
		return
	}
	s.elapsed = s.elapsedLocked()
	tick := Tick{SessionID: s.active.ID, Elapsed: s.elapsed}
	for _, ch := range s.ticks {
		select {
		case ch <- tick:
		default:
		}
	}
}

func (s *Store) persistLocked() {
	data, err := json.Marshal(s.active)
	if err != nil {
		s.log.Warn("encoding workout failed", "error", err)
		return
	}
	s.writer.Set(s.config.Key, string(data))
}

func (s *Store) scheduleOverdueLocked(ctx context.Context) {
	s.cancelOverdueLocked(ctx)
	if s.notifier == nil || s.config.OverdueAfter <= 0 {
		return
	}
	delay := s.active.StartTime.Add(s.config.OverdueAfter).Sub(s.clock.Now())
	if delay <= 0 {
		return
	}
	id, err := s.notifier.Schedule(ctx, notify.WorkoutOverdue(s.active.Name), delay)
	if err != nil {
		s.log.Warn("scheduling workout reminder failed", "error", err)
		return
	}
	s.overdueID = id
}

func (s *Store) cancelOverdueLocked(ctx context.Context) {
	if s.overdueID == "" || s.notifier == nil {
		return
	}
	id := s.overdueID
	s.overdueID = ""
	if err := s.notifier.Cancel(ctx, id); err != nil {
		s.log.Warn("cancelling workout reminder failed", "id", id, "error", err)
	}
}

func (s *Store) startLoopLocked() {
	s.stopLoopLocked()
	if s.closed {
		return
	}
	stop := make(chan struct{})
	s.stopCh = stop
	go s.run(stop)
}

func (s *Store) stopLoopLocked() {
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
}

func (s *Store) run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			select {
			case <-stop:
			default:
				s.refreshLocked()
			}
			s.mu.Unlock()
		}
	}
}

func defaultName(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Morning Workout"
	case h < 17:
		return "Afternoon Workout"
	default:
		return "Evening Workout"
	}
}
