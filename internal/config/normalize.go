// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/handler-simulator/internal/handler"
	"github.com/tamzrod/handler-simulator/internal/status"
)

// Defaults applied by Normalize.
const (
	DefaultSites           = 1
	DefaultHandlingDelayMs = 1000
	DefaultModel           = "Generic Handler"
	DefaultSoftwareVersion = "1.00"
	DefaultListenAddress   = "127.0.0.1:5025"
	DefaultPollIntervalMs  = 10
	DefaultTimeoutMs       = 2000
)

// Default returns a configuration usable without a file.
func Default() *Config {
	cfg := seed()
	Normalize(cfg)
	return cfg
}

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	h := &cfg.Simulator.Handler
	if h.Sites == 0 {
		h.Sites = DefaultSites
	}
	if h.Pattern == "" {
		h.Pattern = handler.AllSitesWorking.String()
	}
	if h.ReprobeMode == "" {
		h.ReprobeMode = handler.IgnoreReprobe.String()
	}
	h.Pattern = strings.ToLower(strings.TrimSpace(h.Pattern))
	h.ReprobeMode = strings.ToLower(strings.TrimSpace(h.ReprobeMode))

	d := &cfg.Simulator.Device
	if d.Model == "" {
		d.Model = DefaultModel
	}
	if d.SoftwareVersion == "" {
		d.SoftwareVersion = DefaultSoftwareVersion
	}
	d.Terminator = strings.ToLower(d.Terminator)
	if d.Terminator == "" {
		d.Terminator = "lf"
	}
	if d.SRQMask == nil {
		m := status.DefaultSRQMask
		d.SRQMask = &m
	}

	if cfg.Simulator.Listen.Address == "" {
		cfg.Simulator.Listen.Address = DefaultListenAddress
	}
	if cfg.Simulator.Poll.IntervalMs == 0 {
		cfg.Simulator.Poll.IntervalMs = DefaultPollIntervalMs
	}

	if sm := cfg.Simulator.StatusMemory; sm != nil && sm.TimeoutMs == 0 {
		sm.TimeoutMs = DefaultTimeoutMs
	}
}

// EOC returns the end-of-command string for the configured terminator.
func (d DeviceConfig) EOC() string {
	if strings.EqualFold(d.Terminator, "crlf") {
		return "\r\n"
	}
	return "\n"
}
