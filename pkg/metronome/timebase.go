package metronome

import "time"

// Timer is a pending single-shot callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// started or was stopped before.
	Stop() bool
}

// Timebase abstracts wall-clock time so the clock can be driven by a fake in
// tests.
type Timebase interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemTimebase is the wall clock.
type SystemTimebase struct{}

// Now returns time.Now().
func (SystemTimebase) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (SystemTimebase) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
