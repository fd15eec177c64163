package notify

import (
	"context"
	"errors"
	"time"
)

// ErrPermissionDenied is returned by Schedule when local notifications are
// disabled for this device.
var ErrPermissionDenied = errors.New("notifications not permitted")

// Kind distinguishes the reminders the app raises.
type Kind string

const (
	KindRestComplete   Kind = "rest_complete"
	KindWorkoutOverdue Kind = "workout_overdue"
)

// ID is an opaque handle to a scheduled notification.
type ID string

// Notification is the payload shown to the user.
type Notification struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// RestComplete is the payload raised when a rest countdown reaches zero.
func RestComplete() Notification {
	return Notification{Kind: KindRestComplete, Title: "Rest Complete", Body: "Time for your next set."}
}

// WorkoutOverdue is the payload raised when a workout has been open too long.
func WorkoutOverdue(name string) Notification {
	body := "Your workout is still running. Finish it or keep going."
	if name != "" {
		body = name + " is still running. Finish it or keep going."
	}
	return Notification{Kind: KindWorkoutOverdue, Title: "Workout still in progress", Body: body}
}

// Scheduler schedules best-effort local notifications.
type Scheduler interface {
	Schedule(ctx context.Context, n Notification, delay time.Duration) (ID, error)
	// Cancel withdraws a pending notification. Cancelling an id that has
	// already fired or been cancelled is a no-op.
	Cancel(ctx context.Context, id ID) error
}

// Delivery is a notification that has come due.
type Delivery struct {
	ID           ID           `json:"id"`
	Notification Notification `json:"notification"`
	ScheduledAt  time.Time    `json:"scheduled_at"`
	DueAt        time.Time    `json:"due_at"`
	FiredAt      time.Time    `json:"fired_at"`
}

// Sink presents a due notification to the user.
type Sink interface {
	Deliver(ctx context.Context, d Delivery) error
}
