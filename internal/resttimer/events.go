package resttimer

import (
	"time"

	"github.com/claude/liftrest/internal/notify"
)

// Status is the rest timer mode.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPicker    Status = "picker"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// State is a snapshot of the rest timer.
type State struct {
	Status           Status    `json:"status"`
	DurationSeconds  int       `json:"durationSeconds"`
	RemainingSeconds int       `json:"remainingSeconds"`
	EndTimestamp     int64     `json:"endTimestamp,omitempty"` // epoch milliseconds
	NotificationID   notify.ID `json:"notificationId,omitempty"`
}

// EventType defines the type of engine event.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventProgress    EventType = "progress"
	EventCompleted   EventType = "completed"
)

// Event is an engine update for observers.
type Event struct {
	Type  EventType
	State State
	At    time.Time
}
