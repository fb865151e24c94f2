// internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tamzrod/handler-simulator/internal/command"
	"github.com/tamzrod/handler-simulator/internal/status"
)

// ErrStopped is returned by Submit once Run has returned.
var ErrStopped = errors.New("runner: stopped")

// Config is the minimal runtime config the runner needs.
type Config struct {
	Interval  time.Duration
	AutoStart bool
}

// Runner is the only owner of the handler state.
// Everything that touches the interpreter or the handler runs on the
// goroutine executing Run.
type Runner struct {
	cfg Config
	in  *command.Interpreter
	log *zap.Logger

	requests chan request
	done     chan struct{}

	now   func() time.Time
	newID func() string

	lotID   string
	lots    int
	lotDone bool
	last    status.Snapshot
	primed  bool
}

// New creates a runner with immutable config.
func New(cfg Config, in *command.Interpreter, log *zap.Logger) (*Runner, error) {
	if in == nil {
		return nil, errors.New("runner: interpreter required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("runner: interval must be > 0")
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		cfg:      cfg,
		in:       in,
		log:      log,
		requests: make(chan request),
		done:     make(chan struct{}),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	r.lotID = r.newID()
	r.lots = in.Lots()
	return r, nil
}

// LotID returns the identifier of the current lot.
// Only valid before Run or from the Run goroutine.
func (r *Runner) LotID() string { return r.lotID }

// Submit hands one command line to the Run goroutine and waits for the reply.
func (r *Runner) Submit(ctx context.Context, line string) (Response, error) {
	req := request{line: line, reply: make(chan Response, 1)}

	select {
	case r.requests <- req:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-r.done:
		return Response{}, ErrStopped
	}

	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// PollOnce performs exactly one poll cycle.
// It must not run concurrently with Run.
func (r *Runner) PollOnce() []Event {
	var events []Event
	r.syncLot()

	h := r.in.Handler()
	if !r.in.Jammed() && h.SendTestStartSignal() {
		srq := r.in.SRQ(true)
		r.log.Debug("test start", zap.Uint8("srq", srq), zap.String("lot_id", r.lotID))
		events = append(events, Event{
			Kind:     EventSRQ,
			At:       r.now(),
			Snapshot: r.in.Snapshot(r.lotID),
			SRQMask:  r.in.SRQMask(),
			SRQ:      srq,
		})
	}

	return append(events, r.observe()...)
}

// syncLot issues a new lot ID once per lot command. The tested count alone
// cannot tell a reset apart from a reprobe handing a device back.
func (r *Runner) syncLot() {
	n := r.in.Lots()
	if n == r.lots {
		return
	}
	r.lots = n
	r.lotID = r.newID()
	r.lotDone = false
	r.log.Info("new lot", zap.String("lot_id", r.lotID))
}

// observe compares the current state with the last one emitted.
func (r *Runner) observe() []Event {
	var events []Event
	h := r.in.Handler()

	r.syncLot()
	snap := r.in.Snapshot(r.lotID)

	switch {
	case snap.LotComplete && !r.lotDone:
		r.lotDone = true
		r.log.Info("lot complete",
			zap.String("lot_id", r.lotID),
			zap.Int("tested", snap.TestedDevices))
		h.LogHandlerStatistics()
		events = append(events, Event{
			Kind:     EventLotDone,
			At:       r.now(),
			Snapshot: snap,
			SRQMask:  r.in.SRQMask(),
			Report:   h.Statistics(),
		})
	case !snap.LotComplete:
		r.lotDone = false
	}

	if !r.primed || snap != r.last {
		events = append(events, Event{
			Kind:     EventStatus,
			At:       r.now(),
			Snapshot: snap,
			SRQMask:  r.in.SRQMask(),
		})
	}
	r.last = snap
	r.primed = true

	return events
}
