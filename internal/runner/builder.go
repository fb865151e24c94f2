// internal/runner/builder.go
package runner

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	cfg "github.com/tamzrod/handler-simulator/internal/config"
	"github.com/tamzrod/handler-simulator/internal/command"
	"github.com/tamzrod/handler-simulator/internal/handler"
)

// Build constructs the handler, its command interpreter and the runner
// from a validated and normalized configuration.
func Build(c *cfg.Config, log *zap.Logger) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sim := c.Simulator

	setup, err := Setup(sim.Handler)
	if err != nil {
		return nil, err
	}

	h, err := handler.New(setup, handler.WithLogger(log.Named("handler")))
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	if sim.Handler.RetestCategory != nil {
		h.SetRetestCategory(*sim.Handler.RetestCategory)
	}
	if sim.Handler.ReprobeCategory != nil {
		h.SetReprobeCategory(*sim.Handler.ReprobeCategory)
	}

	var mask byte
	if sim.Device.SRQMask != nil {
		mask = *sim.Device.SRQMask
	}
	in := command.New(h, command.Device{
		Model:           sim.Device.Model,
		SoftwareVersion: sim.Device.SoftwareVersion,
		SRQMask:         mask,
		QueryError:      sim.Device.QueryError,
		CommandReply:    sim.Device.CommandReply,
	}, log.Named("command"))

	return New(Config{
		Interval:  time.Duration(sim.Poll.IntervalMs) * time.Millisecond,
		AutoStart: sim.Device.AutoStart,
	}, in, log.Named("runner"))
}

// Setup translates the handler section into engine parameters.
func Setup(hc cfg.HandlerConfig) (handler.Setup, error) {
	pattern, err := handler.ParsePatternKind(hc.Pattern)
	if err != nil {
		return handler.Setup{}, fmt.Errorf("runner: %w", err)
	}
	mode, err := handler.ParseReprobeMode(hc.ReprobeMode)
	if err != nil {
		return handler.Setup{}, fmt.Errorf("runner: %w", err)
	}
	return handler.Setup{
		NumOfSites:         hc.Sites,
		SiteEnabledMask:    hc.SiteEnabledMask,
		AutoSetupDelay:     time.Duration(hc.AutoSetupDelayMs) * time.Millisecond,
		HandlingDelay:      time.Duration(hc.HandlingDelayMs) * time.Millisecond,
		NumOfDevicesToTest: hc.DevicesToTest,
		Pattern:            pattern,
		ReprobeMode:        mode,
		CorruptBinData:     hc.CorruptBinData,
		MaxVerifyCount:     hc.MaxVerifyCount,
	}, nil
}
