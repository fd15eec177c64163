package resttimer

import "errors"

const (
	MinDurationSeconds = 1
	MaxDurationSeconds = 5999
)

var (
	// ErrInvalidDuration rejects durations outside [1, 5999] seconds.
	ErrInvalidDuration = errors.New("rest duration must be between 1 and 5999 seconds")

	// ErrNotRunning rejects adjustments when no countdown is active.
	ErrNotRunning = errors.New("rest timer is not running")

	// ErrRunning rejects opening the picker over an active countdown.
	ErrRunning = errors.New("rest timer is running")

	// ErrInvalidDigit rejects keypad input other than 0-9.
	ErrInvalidDigit = errors.New("digit must be 0-9")
)
