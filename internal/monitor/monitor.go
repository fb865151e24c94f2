// internal/monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/handler-simulator/internal/status"
)

// Client abstracts the one Modbus read the monitor needs.
type Client interface {
	ReadRegisters(unitID uint8, addr, qty uint16) ([]uint16, error) // FC 3
}

// Config is the minimal runtime config the monitor needs.
type Config struct {
	UnitID   uint8
	BaseSlot uint16
	Interval time.Duration
}

// Monitor is a dumb, clock-driven reader of one status block.
type Monitor struct {
	cfg    Config
	client Client
}

// New creates a monitor with immutable config.
func New(cfg Config, client Client) (*Monitor, error) {
	if client == nil {
		return nil, errors.New("monitor: client required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("monitor: interval must be > 0")
	}
	if uint32(cfg.BaseSlot)*status.SlotsPerHandler+status.SlotsPerHandler > 1<<16 {
		return nil, fmt.Errorf("monitor: base slot %d out of range", cfg.BaseSlot)
	}
	return &Monitor{cfg: cfg, client: client}, nil
}

// PollOnce reads and decodes the block exactly once.
func (m *Monitor) PollOnce() Result {
	res := Result{At: time.Now()}

	regs, err := m.client.ReadRegisters(m.cfg.UnitID, m.cfg.BaseSlot*status.SlotsPerHandler, status.SlotsPerHandler)
	if err != nil {
		res.Err = fmt.Errorf("monitor: read: %w", err)
		return res
	}

	res.Snapshot, res.Model, res.Err = status.Decode(regs)
	return res
}

// Run starts the ticker loop and emits Results on out.
// No overlap. No retries.
func (m *Monitor) Run(ctx context.Context, out chan<- Result) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case out <- m.PollOnce():
			case <-ctx.Done():
				return
			}
		}
	}
}
