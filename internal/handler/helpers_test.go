// internal/handler/helpers_test.go
package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ---- fake clock ----

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// ---- handler under test ----

type testHandler struct {
	*Handler
	clock *fakeClock
	logs  *observer.ObservedLogs
}

func newTestHandler(t *testing.T, setup Setup) *testHandler {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	clock := newFakeClock()

	h, err := New(setup, WithLogger(zap.New(core)), WithClock(clock))
	require.NoError(t, err)

	return &testHandler{Handler: h, clock: clock, logs: logs}
}

func setup(sites, devices int) Setup {
	return Setup{
		NumOfSites:         sites,
		NumOfDevicesToTest: devices,
		Pattern:            AllSitesWorking,
		ReprobeMode:        IgnoreReprobe,
	}
}

// startTest starts the handler and expects the first test start.
func (th *testHandler) startTest(t *testing.T) {
	t.Helper()
	th.Start()
	require.True(t, th.SendTestStartSignal(), "expected test start")
}

func (th *testHandler) populated() []int {
	var out []int
	for i := range th.sites {
		if th.sites[i].IsPopulated() {
			out = append(out, i)
		}
	}
	return out
}
