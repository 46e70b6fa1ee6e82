package scheduler

import "time"

// Timer is the stoppable handle of a deferred call.
type Timer interface {
	// Stop prevents the call from running.
	// It reports whether the call was still pending.
	Stop() bool
}

// Clock supplies the current time and deferred execution. The scheduler uses
// one clock for both scheduling and comparison so wall-clock adjustments at
// least stay self-consistent.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// realClock delegates to the time package.
type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
