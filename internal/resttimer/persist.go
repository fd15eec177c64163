package resttimer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/liftrest/internal/storage"
)

type persistedState struct {
	Status          Status `json:"status"`
	DurationSeconds int    `json:"durationSeconds"`
	EndTimestamp    int64  `json:"endTimestamp,omitempty"`
}

func (e *Engine) persistLocked() {
	if e.writer == nil {
		return
	}
	p := persistedState{Status: e.status, DurationSeconds: e.duration}
	if !e.endAt.IsZero() {
		p.EndTimestamp = e.endAt.UnixMilli()
	}
	data, err := json.Marshal(p)
	if err != nil {
		e.log.Warn("encoding rest timer state failed", "error", err)
		return
	}
	e.writer.Set(e.config.StateKey, string(data))
}

// Restore loads the timer saved by a previous process. A countdown that
// should still be running is re-armed from its end timestamp with a fresh
// notification; one that ran out while the process was gone completes.
// Missing or unreadable state leaves the engine idle.
func (e *Engine) Restore(ctx context.Context) error {
	if e.config.Store == nil {
		return nil
	}
	raw, err := e.config.Store.Get(ctx, e.config.StateKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("loading rest timer: %w", err)
	}

	var p persistedState
	if err := json.Unmarshal([]byte(raw), &p); err != nil || !p.valid() {
		e.log.Warn("discarding unreadable rest timer state", "error", err)
		e.writer.Remove(e.config.StateKey)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLoopLocked()
	e.duration = p.DurationSeconds
	if p.Status != StatusRunning {
		e.status = p.Status
		e.remaining = p.DurationSeconds
		if p.Status == StatusCompleted {
			e.remaining = 0
		}
		e.emitLocked(EventStateChange)
		return nil
	}

	e.status = StatusRunning
	e.endAt = time.UnixMilli(p.EndTimestamp)
	remaining := e.remainingAt(e.clock.Now())
	if remaining <= 0 {
		e.completeLocked(ctx)
		return nil
	}
	e.remaining = remaining
	e.rescheduleLocked(ctx, e.endAt.Sub(e.clock.Now()))
	e.startLoopLocked()
	e.emitLocked(EventStateChange)
	return nil
}

func (p persistedState) valid() bool {
	switch p.Status {
	case StatusIdle, StatusPicker, StatusCompleted:
	case StatusRunning:
		if p.EndTimestamp <= 0 {
			return false
		}
	default:
		return false
	}
	return p.DurationSeconds >= 0 && p.DurationSeconds <= MaxDurationSeconds
}
