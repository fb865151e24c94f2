// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/handler-simulator/internal/handler"
	"github.com/tamzrod/handler-simulator/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only. Zero values mean "use default".
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}

	// ------------------------------------------------------------
	// HANDLER ENGINE
	// ------------------------------------------------------------

	h := cfg.Simulator.Handler

	if h.Sites < 0 || h.Sites > handler.MaxSites {
		return fmt.Errorf("handler: sites must be between 1 and %d, got %d", handler.MaxSites, h.Sites)
	}
	if h.AutoSetupDelayMs < 0 {
		return fmt.Errorf("handler: auto_setup_delay_ms must not be negative, got %d", h.AutoSetupDelayMs)
	}
	if h.HandlingDelayMs < 0 {
		return fmt.Errorf("handler: handling_delay_ms must not be negative, got %d", h.HandlingDelayMs)
	}
	if h.DevicesToTest < handler.ContinuousTesting {
		return fmt.Errorf("handler: devices_to_test must be -1 (continuous) or >= 0, got %d", h.DevicesToTest)
	}
	if h.MaxVerifyCount < 0 {
		return fmt.Errorf("handler: max_verify_count must not be negative, got %d", h.MaxVerifyCount)
	}
	if h.Pattern != "" {
		if _, err := handler.ParsePatternKind(h.Pattern); err != nil {
			return err
		}
	}
	if h.ReprobeMode != "" {
		if _, err := handler.ParseReprobeMode(h.ReprobeMode); err != nil {
			return err
		}
	}
	retest, reprobe := handler.DefaultRetestCategory, handler.DefaultReprobeCategory
	if h.RetestCategory != nil {
		retest = *h.RetestCategory
	}
	if h.ReprobeCategory != nil {
		reprobe = *h.ReprobeCategory
	}
	if reprobe == handler.NotYetAssigned {
		// every empty site would read as awaiting reprobe
		return fmt.Errorf("handler: reprobe_category must not be %d (not yet assigned)", handler.NotYetAssigned)
	}
	if retest == reprobe {
		return fmt.Errorf("handler: retest_category and reprobe_category must differ, both are %d", retest)
	}

	sites := h.Sites
	if sites == 0 {
		sites = 1
	}
	if h.SiteEnabledMask != 0 && h.SiteEnabledMask != handler.AllSitesEnabled {
		if h.SiteEnabledMask < 0 {
			return fmt.Errorf("handler: site_enabled_mask must be -1, 0 or a positive mask, got %d", h.SiteEnabledMask)
		}
		existing := ^uint64(0) >> (handler.MaxSites - sites)
		if uint64(h.SiteEnabledMask)&existing == 0 {
			return fmt.Errorf("handler: site_enabled_mask 0x%x enables none of %d sites", h.SiteEnabledMask, sites)
		}
	}

	// ------------------------------------------------------------
	// DEVICE PERSONALITY
	// ------------------------------------------------------------

	d := cfg.Simulator.Device

	switch strings.ToLower(d.Terminator) {
	case "", "lf", "crlf":
	default:
		return fmt.Errorf("device: terminator must be lf or crlf, got %q", d.Terminator)
	}
	for i := 0; i < len(d.Model); i++ {
		if d.Model[i] > 0x7F {
			return fmt.Errorf("device: model must contain ASCII characters only")
		}
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Simulator.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll: interval_ms must not be negative, got %d", cfg.Simulator.Poll.IntervalMs)
	}

	// ------------------------------------------------------------
	// STATUS MEMORY (OPT-IN)
	// ------------------------------------------------------------

	if sm := cfg.Simulator.StatusMemory; sm != nil {
		if sm.Endpoint == "" {
			return fmt.Errorf("status_memory: endpoint is required when the section is present")
		}
		if sm.TimeoutMs < 0 {
			return fmt.Errorf("status_memory: timeout_ms must not be negative, got %d", sm.TimeoutMs)
		}
		if uint32(sm.BaseSlot)*status.SlotsPerHandler+status.SlotsPerHandler > 65536 {
			return fmt.Errorf("status_memory: base_slot %d exceeds the register space", sm.BaseSlot)
		}
	}

	return nil
}
