// internal/publisher/builder.go
package publisher

import (
	"errors"
	"time"

	"go.uber.org/zap"

	cfg "github.com/tamzrod/handler-simulator/internal/config"
	pmodbus "github.com/tamzrod/handler-simulator/internal/publisher/modbus"
)

// ErrDisabled is returned by Build when no status memory is configured.
var ErrDisabled = errors.New("publisher: status memory disabled")

// Build connects the status memory endpoint and returns a publisher with
// its closer. Connection failure is fatal at startup.
func Build(sim cfg.SimulatorConfig, log *zap.Logger) (*StatusPublisher, func() error, error) {
	sm := sim.StatusMemory
	if sm == nil {
		return nil, nil, ErrDisabled
	}

	c, err := pmodbus.Dial(pmodbus.Config{
		Endpoint: sm.Endpoint,
		Timeout:  time.Duration(sm.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	p, err := New(Plan{
		Endpoint:  sm.Endpoint,
		UnitID:    sm.UnitID,
		BaseSlot:  sm.BaseSlot,
		ModelName: sim.Device.Model,
	}, c, log)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return p, c.Close, nil
}
