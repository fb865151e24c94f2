// internal/handler/corrupt_test.go
package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinCorrupter_Disabled(t *testing.T) {
	c := binCorrupter{}
	for i := 0; i < 50; i++ {
		b, changed := c.corrupt(5)
		assert.Equal(t, 5, b)
		assert.False(t, changed)
	}
	assert.Equal(t, 0, c.count)
}

func TestBinCorrupter_Schedule(t *testing.T) {
	c := binCorrupter{enabled: true}

	for call := 1; call <= 10; call++ {
		b, changed := c.corrupt(5)
		assert.Equal(t, 5, b, "call %d", call)
		assert.False(t, changed, "call %d", call)
	}

	b, changed := c.corrupt(5) // call 11
	assert.True(t, changed)
	assert.Equal(t, 16, b)
	assert.Equal(t, 15, c.next)

	for call := 12; call <= 14; call++ {
		b, _ := c.corrupt(5)
		assert.Equal(t, 5, b, "call %d", call)
	}

	b, changed = c.corrupt(5) // call 15 hits next
	assert.True(t, changed)
	assert.Equal(t, 20, b)
	assert.Equal(t, 22, c.count, "counter jumps by 7")

	b, changed = c.corrupt(5)
	assert.False(t, changed)
	assert.Equal(t, 5, b)
}

func TestBinCorrupter_Deterministic(t *testing.T) {
	run := func() []int {
		c := binCorrupter{enabled: true}
		var out []int
		for i := 0; i < 200; i++ {
			b, _ := c.corrupt(i % 37)
			out = append(out, b)
		}
		return out
	}
	assert.Equal(t, run(), run())
}
