// internal/handler/reprobe.go
package handler

import (
	"fmt"
	"strings"
)

// ReprobeMode decides how sites holding a reprobe bin are repopulated.
type ReprobeMode int

const (
	// IgnoreReprobe populates from the pattern only.
	IgnoreReprobe ReprobeMode = iota
	// PerformReprobeSeparately serves pending reprobes before any new device.
	PerformReprobeSeparately
	// AddNewDevicesDuringReprobe serves reprobes alongside new devices.
	AddNewDevicesDuringReprobe
)

func (m ReprobeMode) String() string {
	switch m {
	case IgnoreReprobe:
		return "ignore"
	case PerformReprobeSeparately:
		return "separate"
	case AddNewDevicesDuringReprobe:
		return "add"
	default:
		return fmt.Sprintf("reprobe(%d)", int(m))
	}
}

// ParseReprobeMode accepts "ignore", "separate" and "add" (or the long names).
func ParseReprobeMode(s string) (ReprobeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore", "ignore_reprobe":
		return IgnoreReprobe, nil
	case "separate", "perform_reprobe_separately":
		return PerformReprobeSeparately, nil
	case "add", "add_new_devices_during_reprobe":
		return AddNewDevicesDuringReprobe, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownReprobeMode, s)
}

func (m ReprobeMode) valid() bool {
	return m >= IgnoreReprobe && m <= AddNewDevicesDuringReprobe
}
