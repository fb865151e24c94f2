// internal/runner/loop.go
package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run owns the handler until ctx is cancelled.
// Commands and poll ticks are served one at a time. No overlap.
func (r *Runner) Run(ctx context.Context, out chan<- Event) {
	defer close(r.done)

	if r.cfg.AutoStart {
		r.log.Info("auto start")
		r.in.Handler().Start()
	}
	if !r.emit(ctx, out, r.observe()) {
		return
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-r.requests:
			reply, ok, err := r.in.Execute(req.line)
			req.reply <- Response{Reply: reply, HasReply: ok, Err: err}
			if !r.emit(ctx, out, r.observe()) {
				return
			}

		case <-ticker.C:
			if !r.emit(ctx, out, r.PollOnce()) {
				return
			}
		}
	}
}

func (r *Runner) emit(ctx context.Context, out chan<- Event, events []Event) bool {
	for _, ev := range events {
		select {
		case out <- ev:
		case <-ctx.Done():
			r.log.Debug("event dropped on shutdown", zap.Stringer("kind", ev.Kind))
			return false
		}
	}
	return true
}
