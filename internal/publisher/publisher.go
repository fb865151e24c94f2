// internal/publisher/publisher.go
package publisher

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tamzrod/handler-simulator/internal/runner"
	"github.com/tamzrod/handler-simulator/internal/status"
)

// endpointClient is the exact contract the publisher uses.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Plan locates the status block inside the status memory.
type Plan struct {
	Endpoint  string
	UnitID    uint8
	BaseSlot  uint16
	ModelName string
}

// StatusPublisher mirrors handler snapshots into status memory.
type StatusPublisher struct {
	plan Plan
	cli  endpointClient
	log  *zap.Logger

	needFull bool
	last     []uint16
	nameRegs []uint16
}

// New builds a publisher. The first Publish writes the full block.
func New(plan Plan, cli endpointClient, log *zap.Logger) (*StatusPublisher, error) {
	if cli == nil {
		return nil, fmt.Errorf("publisher: missing client for endpoint %s", plan.Endpoint)
	}
	if uint32(plan.BaseSlot)*status.SlotsPerHandler+status.SlotsPerHandler > 1<<16 {
		return nil, fmt.Errorf("publisher: base slot %d out of range", plan.BaseSlot)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StatusPublisher{
		plan:     plan,
		cli:      cli,
		log:      log,
		needFull: true, // full re-assert on first successful write
		nameRegs: status.NameRegisters(plan.ModelName),
	}, nil
}

// Publish delivers one snapshot.
// On any write failure, the next call re-asserts the full block.
func (p *StatusPublisher) Publish(s status.Snapshot, srqMask byte) error {
	live := status.Encode(s, srqMask)
	base := p.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if p.needFull {
		regs := p.fullBlockRegs(live)
		if err := p.cli.WriteRegisters(p.plan.UnitID, base, regs); err != nil {
			p.needFull = true
			return fmt.Errorf("publisher: full block write failed: %w", err)
		}
		p.needFull = false
		p.last = live
		return nil
	}

	// ------------------------------------------------------------
	// Incremental: changed live slots only
	// ------------------------------------------------------------
	var errs error
	for slot := 0; slot < status.SlotModelNameStart; slot++ {
		if p.last[slot] == live[slot] {
			continue
		}
		if err := p.cli.WriteRegisters(p.plan.UnitID, base+uint16(slot), []uint16{live[slot]}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("slot%d write failed: %w", slot, err))
			continue
		}
		p.last[slot] = live[slot]
	}

	if errs != nil {
		p.needFull = true
		return fmt.Errorf("publisher: %w", errs)
	}
	return nil
}

// Run publishes the snapshot of every event until in is closed or ctx ends.
func (p *StatusPublisher) Run(ctx context.Context, in <-chan runner.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if err := p.Publish(ev.Snapshot, ev.SRQMask); err != nil {
				p.log.Warn("status publish failed",
					zap.String("endpoint", p.plan.Endpoint),
					zap.Error(err))
			}
		}
	}
}

func (p *StatusPublisher) baseAddr() uint16 {
	// Each handler owns a fixed SlotsPerHandler block.
	return p.plan.BaseSlot * status.SlotsPerHandler
}

func (p *StatusPublisher) fullBlockRegs(live []uint16) []uint16 {
	regs := make([]uint16, status.SlotsPerHandler)
	copy(regs, live[:status.SlotModelNameStart])

	// Model name always lives at the end of the block
	copy(regs[status.SlotModelNameStart:], p.nameRegs)
	return regs
}
