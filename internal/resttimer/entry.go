package resttimer

import (
	"fmt"
	"strconv"
)

// DurationEntry is a four digit MMSS buffer for typing a custom rest.
// Digits enter from the right like a microwave keypad.
type DurationEntry struct {
	digits [4]byte
}

// NewDurationEntry returns a buffer reading 00:00.
func NewDurationEntry() *DurationEntry {
	d := &DurationEntry{}
	d.Reset()
	return d
}

// PushDigit shifts the buffer left and appends digit.
func (d *DurationEntry) PushDigit(digit int) error {
	if digit < 0 || digit > 9 {
		return fmt.Errorf("%w: got %d", ErrInvalidDigit, digit)
	}
	copy(d.digits[:], d.digits[1:])
	d.digits[3] = byte('0' + digit)
	return nil
}

// Backspace drops the rightmost digit and shifts a zero in on the left.
func (d *DurationEntry) Backspace() {
	copy(d.digits[1:], d.digits[:3])
	d.digits[0] = '0'
}

// Reset clears the buffer to 0000.
func (d *DurationEntry) Reset() {
	d.digits = [4]byte{'0', '0', '0', '0'}
}

// Digits returns the raw MMSS buffer.
func (d *DurationEntry) Digits() string {
	return string(d.digits[:])
}

// Seconds converts MMSS to seconds, clamped to [0, 5999]. Seconds above 59
// are allowed and carry into minutes.
func (d *DurationEntry) Seconds() int {
	minutes, _ := strconv.Atoi(string(d.digits[:2]))
	seconds, _ := strconv.Atoi(string(d.digits[2:]))
	return clamp(minutes*60+seconds, 0, MaxDurationSeconds)
}

func (d *DurationEntry) String() string {
	return string(d.digits[:2]) + ":" + string(d.digits[2:])
}
