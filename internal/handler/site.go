// internal/handler/site.go
package handler

import (
	"sort"

	"go.uber.org/zap"
)

// NotYetAssigned is returned by BinData when a site holds no verified bin.
const NotYetAssigned = -1

// SiteStatus is the occupancy state of one test site.
type SiteStatus int

const (
	SiteEmpty SiteStatus = iota
	SiteWaitingBinData
	SiteWaitingRelease
)

func (s SiteStatus) String() string {
	switch s {
	case SiteEmpty:
		return "empty"
	case SiteWaitingBinData:
		return "waiting bin data"
	case SiteWaitingRelease:
		return "waiting release"
	default:
		return "unknown"
	}
}

// Site is one test location able to hold a single device.
// Only the Handler mutates it.
type Site struct {
	log *zap.Logger

	status  SiteStatus
	bin     int   // current or previous bin, kept after release
	history []int // every bin the site was released with
	contact bool
}

func newSite(log *zap.Logger) Site {
	if log == nil {
		log = zap.NewNop()
	}
	return Site{
		log:     log,
		status:  SiteEmpty,
		bin:     NotYetAssigned,
		contact: true,
	}
}

// Status returns the occupancy state.
func (s *Site) Status() SiteStatus { return s.status }

// IsPopulated reports whether the site holds a device.
func (s *Site) IsPopulated() bool {
	return s.status == SiteWaitingBinData || s.status == SiteWaitingRelease
}

// SetPopulated loads (p=true) or clears the site.
func (s *Site) SetPopulated(p bool) {
	if p {
		s.status = SiteWaitingBinData
	} else {
		s.status = SiteEmpty
	}
}

// SendDeviceToBin assigns bin and releases the device in one step.
func (s *Site) SendDeviceToBin(bin int) {
	if s.status == SiteEmpty {
		s.log.Debug("bin data received for a site which is empty: ignored", zap.Int("bin", bin))
		return
	}
	s.bin = bin
	s.history = append(s.history, bin)
	s.status = SiteEmpty
}

// SetBinData assigns bin and holds the device until ReleaseDevice.
func (s *Site) SetBinData(bin int) {
	if s.status == SiteEmpty {
		s.log.Debug("set bin data received for a site which is empty: ignored", zap.Int("bin", bin))
		return
	}
	s.bin = bin
	s.status = SiteWaitingRelease
}

// BinData returns the held bin, or NotYetAssigned unless waiting for release.
func (s *Site) BinData() int {
	if s.status == SiteWaitingRelease {
		return s.bin
	}
	return NotYetAssigned
}

// PreviousBinData returns the last bin ever assigned to the site.
func (s *Site) PreviousBinData() int { return s.bin }

// ReleaseDevice releases a device holding verified bin data.
func (s *Site) ReleaseDevice() bool {
	switch s.status {
	case SiteWaitingRelease:
		s.history = append(s.history, s.bin)
		s.status = SiteEmpty
		return true
	case SiteWaitingBinData:
		s.log.Debug("release device received for a site which is still waiting bin data: ignored")
	default:
		s.log.Debug("release device received for a site which is empty: ignored")
	}
	return false
}

// ReadyForRelease is false only while the site waits for bin data.
func (s *Site) ReadyForRelease() bool {
	return s.status != SiteWaitingBinData
}

// SetContact stores the contact state and reports a not-contacting to
// contacting edge.
func (s *Site) SetContact(c bool) bool {
	edge := c && !s.contact
	if s.contact != c {
		if c {
			s.log.Debug("extend contact motors")
		} else {
			s.log.Debug("retract contact motors")
		}
	}
	s.contact = c
	return edge
}

// Contact returns the stored contact state.
func (s *Site) Contact() bool { return s.contact }

// History returns a copy of the released bins.
func (s *Site) History() []int {
	out := make([]int, len(s.history))
	copy(out, s.history)
	return out
}

// Statistics returns the bin histogram of the site.
// The history is sorted in place; its order carries no meaning.
func (s *Site) Statistics() map[int]int {
	sort.Ints(s.history)

	stats := make(map[int]int)
	for i := 0; i < len(s.history); {
		bin := s.history[i]
		n := 1
		for i+n < len(s.history) && s.history[i+n] == bin {
			n++
		}
		stats[bin] = n
		i += n
	}
	return stats
}
