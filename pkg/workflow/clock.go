package workflow

import "time"

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the stop
	// happened before the timer fired.
	Stop() bool
}

// Clock abstracts time for every floor and watchdog in the core, so the
// timer-driven behavior is unit-testable without real waiting.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewRealClock returns the wall-clock implementation used outside tests.
func NewRealClock() Clock { return realClock{} }
