package workout

import "errors"

var (
	// ErrSessionActive is returned by Start while another workout is open.
	ErrSessionActive = errors.New("a workout is already in progress")

	// ErrNoSession is returned by operations that need an open workout.
	ErrNoSession = errors.New("no workout in progress")

	// ErrSetNotFound is returned when an exercise or set index is out of range.
	ErrSetNotFound = errors.New("set not found")
)
