// internal/handler/pattern.go
package handler

import (
	"fmt"
	"strings"
)

// PatternKind selects how sites are populated from cycle to cycle.
type PatternKind int

const (
	// AllSitesWorking populates every site on every cycle.
	AllSitesWorking PatternKind = iota
	// AllOneNotOneIsWorking cycles through all sites working, then each
	// site missing in turn, then each site alone in turn.
	AllOneNotOneIsWorking
)

func (k PatternKind) String() string {
	switch k {
	case AllSitesWorking:
		return "all"
	case AllOneNotOneIsWorking:
		return "one"
	default:
		return fmt.Sprintf("pattern(%d)", int(k))
	}
}

// ParsePatternKind accepts the command line spellings "all" and "one".
func ParsePatternKind(s string) (PatternKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "all_sites_working":
		return AllSitesWorking, nil
	case "one", "all_one_not_one_is_working":
		return AllOneNotOneIsWorking, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPattern, s)
}

type cyclePhase int

const (
	phaseAllWorking cyclePhase = iota
	phaseOneNotWorking
	phaseOneIsWorking
)

func (p cyclePhase) String() string {
	switch p {
	case phaseAllWorking:
		return "all working"
	case phaseOneNotWorking:
		return "one not working"
	default:
		return "one is working"
	}
}

// SitePattern answers whether a site is populated on the current cycle.
// The zero phase/counter state is the start of the cycle.
type SitePattern struct {
	kind     PatternKind
	numSites int
	phase    cyclePhase
	counter  int
}

func newSitePattern(kind PatternKind, numSites int) (SitePattern, error) {
	switch kind {
	case AllSitesWorking, AllOneNotOneIsWorking:
	default:
		return SitePattern{}, fmt.Errorf("%w: %v", ErrUnknownPattern, kind)
	}
	if numSites < 1 {
		return SitePattern{}, ErrInvalidSiteCount
	}
	return SitePattern{kind: kind, numSites: numSites}, nil
}

// Kind returns the pattern variant.
func (p *SitePattern) Kind() PatternKind { return p.kind }

// IsPopulated reports whether site s is wanted on this cycle.
func (p *SitePattern) IsPopulated(s int) bool {
	if p.kind == AllSitesWorking {
		return true
	}
	switch p.phase {
	case phaseOneNotWorking:
		return s != p.counter
	case phaseOneIsWorking:
		return s == p.counter
	default:
		return true
	}
}

// Advance moves to the next cycle.
func (p *SitePattern) Advance() {
	if p.kind == AllSitesWorking {
		return
	}
	p.counter++
	if p.counter == p.numSites {
		p.counter = 0
		switch p.phase {
		case phaseAllWorking:
			p.phase = phaseOneNotWorking
		case phaseOneNotWorking:
			p.phase = phaseOneIsWorking
		default:
			p.phase = phaseAllWorking
		}
	}
}

// cycleLength is the number of advances after which the pattern repeats.
func (p *SitePattern) cycleLength() int {
	if p.kind == AllSitesWorking {
		return 1
	}
	return 3 * p.numSites
}

func (p *SitePattern) String() string {
	if p.kind == AllSitesWorking {
		return "all sites working"
	}
	return fmt.Sprintf("%s c=%d", p.phase, p.counter)
}
