// internal/handler/timer.go
package handler

import "time"

// Clock is the time source behind a Timer.
// time.Now carries a monotonic reading, which is all the engine needs.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Timer is a restartable stopwatch.
type Timer struct {
	clock Clock
	epoch time.Time
}

// NewTimer returns a started Timer. A nil clock means the system clock.
func NewTimer(c Clock) Timer {
	if c == nil {
		c = systemClock{}
	}
	t := Timer{clock: c}
	t.Start()
	return t
}

// Start captures the current time as the new epoch.
func (t *Timer) Start() {
	t.epoch = t.clock.Now()
}

// Elapsed returns the time since the last Start.
func (t *Timer) Elapsed() time.Duration {
	return t.clock.Now().Sub(t.epoch)
}

// ElapsedMillis returns the milliseconds since the last Start.
func (t *Timer) ElapsedMillis() float64 {
	return float64(t.Elapsed()) / float64(time.Millisecond)
}
