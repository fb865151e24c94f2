// internal/handler/timer_test.go
package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_ElapsedMillis(t *testing.T) {
	clock := newFakeClock()
	tm := NewTimer(clock)
	assert.Zero(t, tm.ElapsedMillis())

	clock.advance(1500 * time.Microsecond)
	assert.InDelta(t, 1.5, tm.ElapsedMillis(), 1e-9)
	assert.Equal(t, 1500*time.Microsecond, tm.Elapsed())

	tm.Start()
	clock.advance(250 * time.Millisecond)
	assert.InDelta(t, 250.0, tm.ElapsedMillis(), 1e-9)
}
