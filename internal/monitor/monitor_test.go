// internal/monitor/monitor_test.go
package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/tamzrod/handler-simulator/internal/status"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClient struct {
	regs     []uint16
	fail     bool
	lastAddr uint16
	lastQty  uint16
}

func (f *fakeClient) ReadRegisters(unitID uint8, addr, qty uint16) ([]uint16, error) {
	f.lastAddr, f.lastQty = addr, qty
	if f.fail {
		return nil, errors.New("read failed")
	}
	return f.regs, nil
}

func block(s status.Snapshot, model string) []uint16 {
	regs := status.Encode(s, status.DefaultSRQMask)
	copy(regs[status.SlotModelNameStart:], status.NameRegisters(model))
	return regs
}

func TestPollOnce_Success(t *testing.T) {
	want := status.Snapshot{Population: 0x3, Handler: status.HandlerWaiting, TestedDevices: 7, Ready: true}
	cli := &fakeClient{regs: block(want, "SIM-2")}

	m, err := New(Config{UnitID: 1, BaseSlot: 3, Interval: time.Second}, cli)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := m.PollOnce()
	if res.Err != nil {
		t.Fatalf("PollOnce err=%v", res.Err)
	}
	if res.Snapshot != want {
		t.Fatalf("snapshot mismatch: got=%+v want=%+v", res.Snapshot, want)
	}
	if res.Model != "SIM-2" {
		t.Fatalf("model mismatch: got=%q", res.Model)
	}
	if cli.lastAddr != 3*status.SlotsPerHandler || cli.lastQty != status.SlotsPerHandler {
		t.Fatalf("unexpected geometry addr=%d qty=%d", cli.lastAddr, cli.lastQty)
	}
}

func TestPollOnce_Failure(t *testing.T) {
	m, err := New(Config{Interval: time.Second}, &fakeClient{fail: true})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if res := m.PollOnce(); res.Err == nil {
		t.Fatalf("expected error")
	}
}

func TestPollOnce_ShortBlock(t *testing.T) {
	m, err := New(Config{Interval: time.Second}, &fakeClient{regs: make([]uint16, 4)})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if res := m.PollOnce(); res.Err == nil {
		t.Fatalf("expected error for short block")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Interval: time.Second}, nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := New(Config{}, &fakeClient{}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if _, err := New(Config{Interval: time.Second, BaseSlot: 3276}, &fakeClient{}); err == nil {
		t.Fatalf("expected error for base slot out of range")
	}
}

func TestRun_EmitsUntilCancelled(t *testing.T) {
	cli := &fakeClient{regs: block(status.Snapshot{}, "X")}
	m, err := New(Config{Interval: time.Millisecond}, cli)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Result)
	done := make(chan struct{})
	go func() {
		m.Run(ctx, out)
		close(done)
	}()

	select {
	case res := <-out:
		if res.Err != nil {
			t.Fatalf("unexpected err=%v", res.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
