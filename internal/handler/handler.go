// internal/handler/handler.go
package handler

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Status is the handling state of the Handler.
type Status int

const (
	Stopped Status = iota
	HandlingDevices
	Waiting
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case HandlingDevices:
		return "handling devices"
	case Waiting:
		return "waiting"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

const (
	// ContinuousTesting as the device count means the lot never completes.
	ContinuousTesting = -1
	// AllSitesEnabled as the enabled mask enables every site. So does 0.
	AllSitesEnabled int64 = -1

	DefaultRetestCategory  = -1
	DefaultReprobeCategory = -2

	// MaxSites bounds the site count to the width of the population mask.
	MaxSites = 64
)

// Setup is the construction-time configuration of a Handler.
type Setup struct {
	NumOfSites         int
	SiteEnabledMask    int64
	AutoSetupDelay     time.Duration
	HandlingDelay      time.Duration
	NumOfDevicesToTest int
	Pattern            PatternKind
	ReprobeMode        ReprobeMode
	CorruptBinData     bool

	// MaxVerifyCount stops the handler after that many verified bin
	// confirmations. 0 disables.
	MaxVerifyCount int
}

type options struct {
	log   *zap.Logger
	clock Clock
}

// Option customises a Handler.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock sets the time source of the handling timer.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// Handler simulates the device handling of a test handler or prober.
// It is not safe for concurrent use; one goroutine must own it.
type Handler struct {
	log *zap.Logger

	sites   []Site
	pattern SitePattern
	status  Status
	running bool

	siteEnabledMask    uint64
	numOfTestedDevices int
	numOfDevicesToTest int
	retestCategory     int
	reprobeCategory    int
	reprobeMode        ReprobeMode
	corrupter          binCorrupter

	maxVerifyCount int
	verifyCount    int

	autoSetupDelay time.Duration
	handlingDelay  time.Duration
	autoSetupInit  bool
	timer          Timer
}

// New builds a Handler. Misconfiguration is refused here rather than
// discovered while running.
func New(setup Setup, opts ...Option) (*Handler, error) {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	if setup.NumOfSites < 1 || setup.NumOfSites > MaxSites {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSiteCount, setup.NumOfSites)
	}
	if setup.NumOfDevicesToTest < 0 && setup.NumOfDevicesToTest != ContinuousTesting {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDeviceCount, setup.NumOfDevicesToTest)
	}
	if setup.AutoSetupDelay < 0 || setup.HandlingDelay < 0 {
		return nil, ErrInvalidDelay
	}
	if !setup.ReprobeMode.valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownReprobeMode, setup.ReprobeMode)
	}
	pattern, err := newSitePattern(setup.Pattern, setup.NumOfSites)
	if err != nil {
		return nil, err
	}

	all := allSitesMask(setup.NumOfSites)
	mask := all
	if setup.SiteEnabledMask != AllSitesEnabled && setup.SiteEnabledMask != 0 {
		mask = uint64(setup.SiteEnabledMask) & all
		if mask == 0 {
			return nil, fmt.Errorf("%w: mask=0x%x sites=%d", ErrNoSiteEnabled, setup.SiteEnabledMask, setup.NumOfSites)
		}
	}

	h := &Handler{
		log:                o.log,
		sites:              make([]Site, setup.NumOfSites),
		pattern:            pattern,
		status:             Stopped,
		siteEnabledMask:    mask,
		numOfDevicesToTest: setup.NumOfDevicesToTest,
		retestCategory:     DefaultRetestCategory,
		reprobeCategory:    DefaultReprobeCategory,
		reprobeMode:        setup.ReprobeMode,
		corrupter:          binCorrupter{enabled: setup.CorruptBinData},
		maxVerifyCount:     setup.MaxVerifyCount,
		autoSetupDelay:     setup.AutoSetupDelay,
		handlingDelay:      setup.HandlingDelay,
		timer:              NewTimer(o.clock),
	}
	for i := range h.sites {
		h.sites[i] = newSite(o.log.With(zap.Int("site", i+1)))
	}

	h.log.Debug("handler created",
		zap.Int("sites", setup.NumOfSites),
		zap.String("enabled_mask", fmt.Sprintf("0x%x", mask)),
		zap.Duration("auto_setup_delay", setup.AutoSetupDelay),
		zap.Duration("handling_delay", setup.HandlingDelay),
		zap.Int("devices_to_test", setup.NumOfDevicesToTest),
		zap.Stringer("pattern", setup.Pattern),
		zap.Stringer("reprobe_mode", setup.ReprobeMode),
		zap.Int("max_verify_count", setup.MaxVerifyCount),
		zap.Bool("corrupt_bin_data", setup.CorruptBinData),
	)
	return h, nil
}

func allSitesMask(n int) uint64 {
	return ^uint64(0) >> (MaxSites - n)
}

// ---- queries ----

func (h *Handler) NumOfSites() int { return len(h.sites) }
func (h *Handler) Status() Status { return h.status }
func (h *Handler) IsStopped() bool { return !h.running }
func (h *Handler) TestedDevices() int { return h.numOfTestedDevices }
func (h *Handler) DevicesToTest() int { return h.numOfDevicesToTest }
func (h *Handler) Pattern() PatternKind { return h.pattern.Kind() }
func (h *Handler) Reprobe() ReprobeMode { return h.reprobeMode }
func (h *Handler) RetestCategory() int { return h.retestCategory }
func (h *Handler) ReprobeCategory() int { return h.reprobeCategory }
func (h *Handler) SitesEnabled() uint64 { return h.siteEnabledMask }
func (h *Handler) SetRetestCategory(c int) { h.retestCategory = c }
func (h *Handler) SetReprobeCategory(c int) { h.reprobeCategory = c }

// SitesDisabled returns the mask of existing sites that are disabled.
func (h *Handler) SitesDisabled() uint64 {
	return allSitesMask(len(h.sites)) &^ h.siteEnabledMask
}

// SiteEnabled reports whether site s (0-based) may be populated.
func (h *Handler) SiteEnabled(s int) bool {
	if s < 0 || s >= len(h.sites) {
		return false
	}
	return h.siteEnabledMask&(1<<uint(s)) != 0
}

// SiteStatus returns the occupancy of site s, or SiteEmpty for a bad index.
func (h *Handler) SiteStatus(s int) SiteStatus {
	if s < 0 || s >= len(h.sites) {
		return SiteEmpty
	}
	return h.sites[s].Status()
}

// SitePopulationAsLong returns a mask with bit i set when site i holds a device.
func (h *Handler) SitePopulationAsLong() uint64 {
	var pop uint64
	for i := range h.sites {
		if h.sites[i].IsPopulated() {
			pop |= 1 << uint(i)
		}
	}
	return pop
}

// SitePopulationAsInt is SitePopulationAsLong truncated to 32 sites.
func (h *Handler) SitePopulationAsInt() int {
	return int(uint32(h.SitePopulationAsLong()))
}

// AllSitesBinned reports whether no site holds a device.
func (h *Handler) AllSitesBinned() bool {
	for i := range h.sites {
		if h.sites[i].IsPopulated() {
			return false
		}
	}
	return true
}

// ReprobePending reports whether any site's last bin is the reprobe
// category. Disabled sites count as well.
func (h *Handler) ReprobePending() bool {
	for i := range h.sites {
		if h.sites[i].PreviousBinData() == h.reprobeCategory {
			return true
		}
	}
	return false
}

// AllTestsComplete reports the end of the lot. Never true when testing
// continuously.
func (h *Handler) AllTestsComplete() bool {
	if h.numOfDevicesToTest == ContinuousTesting {
		return false
	}
	return h.numOfTestedDevices >= h.numOfDevicesToTest &&
		h.AllSitesBinned() &&
		!h.ReprobePending()
}

// ReadyForRelease is true when no site still waits for bin data.
func (h *Handler) ReadyForRelease() bool {
	for i := range h.sites {
		if !h.sites[i].ReadyForRelease() {
			return false
		}
	}
	return true
}

// BinData returns the verified bin of site s, or NotYetAssigned.
func (h *Handler) BinData(s int) int {
	if !h.validSite(s) {
		return NotYetAssigned
	}
	b := h.sites[s].BinData()
	switch b {
	case NotYetAssigned:
		h.log.Debug("no bin data assigned", zap.Int("site", s+1))
	case h.reprobeCategory:
		h.log.Debug("reprobe assigned", zap.Int("site", s+1))
	default:
		h.log.Debug("bin data", zap.Int("site", s+1), zap.Int("bin", b))
	}
	return b
}

// ---- control ----

// Start restarts the handling timer and resumes handling.
func (h *Handler) Start() {
	h.timer.Start()
	if h.status == Stopped {
		h.status = HandlingDevices
	}
	h.running = true
	h.verifyCount = 0
	h.log.Info("handler started", zap.Stringer("status", h.status), zap.Int("tested", h.numOfTestedDevices))
}

// Stop halts handling on the next poll. The status is kept.
func (h *Handler) Stop() {
	h.running = false
	h.log.Info("handler stopped", zap.Stringer("status", h.status))
}

// Reset clears the tested device count for a new lot.
func (h *Handler) Reset() {
	h.log.Info("new lot loaded", zap.Int("previous_tested", h.numOfTestedDevices))
	h.numOfTestedDevices = 0
}

// BinDataVerified counts one verified bin confirmation and stops the
// handler once MaxVerifyCount is reached.
func (h *Handler) BinDataVerified() {
	h.verifyCount++
	h.log.Debug("bin data verified", zap.Int("count", h.verifyCount), zap.Int("max", h.maxVerifyCount))
	if h.maxVerifyCount > 0 && h.verifyCount == h.maxVerifyCount {
		h.log.Info("maximum verify count reached, stopping handler")
		h.Stop()
	}
}

// SendTestStartSignal is polled by the device loop. It returns true when a
// new set of devices has been loaded and testing may begin.
func (h *Handler) SendTestStartSignal() bool {
	if !h.autoSetupInit && h.autoSetupDelay > 0 {
		if h.timer.Elapsed() >= h.autoSetupDelay {
			h.log.Info("automatic setup delay elapsed",
				zap.Duration("delay", h.autoSetupDelay),
				zap.Float64("elapsed_ms", h.timer.ElapsedMillis()))
			h.Start()
			h.autoSetupInit = true
		}
	}

	switch h.status {
	case HandlingDevices:
		if !h.running || h.timer.Elapsed() < h.handlingDelay {
			return false
		}
		if h.populateSites() {
			h.status = Waiting
			return true
		}
		h.status = Stopped
		h.running = false
		h.log.Info("nothing left to handle, handler stopped", zap.Int("tested", h.numOfTestedDevices))
		return false
	default:
		return false
	}
}

// ---- binning ----

// SendDeviceToBin bins the device on site s and releases it.
func (h *Handler) SendDeviceToBin(s, bin int) {
	if !h.validSite(s) {
		return
	}
	h.logBin("send device to bin", s, bin)

	site := &h.sites[s]
	wasPopulated := site.IsPopulated()
	site.SendDeviceToBin(bin)
	if wasPopulated && h.AllSitesBinned() {
		h.handleDevices()
	}
}

// SetBinData assigns bin data to site s without releasing the device.
// The bin may be corrupted first when bin data corruption is enabled.
func (h *Handler) SetBinData(s, bin int) {
	if !h.validSite(s) {
		return
	}
	if b, changed := h.corrupter.corrupt(bin); changed {
		h.log.Debug("corrupt bin data", zap.Int("site", s+1), zap.Int("from", bin), zap.Int("to", b))
		bin = b
	}
	h.logBin("set bin data", s, bin)
	h.sites[s].SetBinData(bin)
}

// ReleaseDevice releases the device on site s after SetBinData.
func (h *Handler) ReleaseDevice(s int) bool {
	if !h.validSite(s) {
		return false
	}
	if !h.sites[s].ReleaseDevice() {
		return false
	}
	h.log.Debug("release device", zap.Int("site", s+1))
	if h.AllSitesBinned() {
		h.handleDevices()
	}
	return true
}

// SetContact moves the contact of site s. Bringing a site back into contact
// is a manual reprobe and bins the device to the reprobe category.
func (h *Handler) SetContact(s int, contacting bool) bool {
	if !h.validSite(s) {
		return false
	}
	h.log.Debug("set contact", zap.Int("site", s+1), zap.Bool("contact", contacting))
	edge := h.sites[s].SetContact(contacting)
	if edge && contacting {
		h.log.Debug("reprobe action detected", zap.Int("site", s+1))
		h.SendDeviceToBin(s, h.reprobeCategory)
	}
	return edge
}

// ---- internals ----

func (h *Handler) validSite(s int) bool {
	if s < 0 || s >= len(h.sites) {
		h.log.Debug("error on site number", zap.Int("site", s+1), zap.Int("sites", len(h.sites)))
		return false
	}
	return true
}

func (h *Handler) logBin(msg string, s, bin int) {
	kind := "bin"
	switch bin {
	case h.reprobeCategory:
		kind = "reprobe"
	case h.retestCategory:
		kind = "retest"
	}
	h.log.Debug(msg, zap.Int("site", s+1), zap.Int("bin", bin), zap.String("kind", kind))
}

func (h *Handler) wantMoreDevices() bool {
	return h.numOfDevicesToTest == ContinuousTesting || h.numOfTestedDevices < h.numOfDevicesToTest
}

// handleDevices runs once every site has been drained.
func (h *Handler) handleDevices() {
	h.timer.Start()
	if h.reprobeMode == PerformReprobeSeparately && h.ReprobePending() {
		h.log.Debug("no new pattern: reprobe pending and performed separately")
	} else {
		h.pattern.Advance()
		h.log.Debug("next site pattern", zap.Stringer("pattern", &h.pattern))
	}
	h.status = HandlingDevices
}

// populateSites loads devices, advancing the pattern past cycles that
// populate nothing. It returns false when no site could be populated.
func (h *Handler) populateSites() bool {
	h.populateOneSweep()

	idle := 0
	last := h.numOfTestedDevices
	for h.AllSitesBinned() && !h.AllTestsComplete() {
		if idle >= h.pattern.cycleLength() {
			h.log.Warn("site pattern populates no enabled site",
				zap.Int("tested", h.numOfTestedDevices),
				zap.Bool("reprobe_pending", h.ReprobePending()))
			break
		}
		h.pattern.Advance()
		h.populateOneSweep()

		if h.numOfTestedDevices != last {
			last = h.numOfTestedDevices
			idle = 0
		} else {
			idle++
		}
	}
	return !h.AllSitesBinned()
}

func (h *Handler) populateOneSweep() {
	pending := h.ReprobePending()

	for i := range h.sites {
		site := &h.sites[i]

		byPattern := h.pattern.IsPopulated(i) && h.SiteEnabled(i) && h.wantMoreDevices()
		byReprobe := site.PreviousBinData() == h.reprobeCategory

		var want bool
		switch h.reprobeMode {
		case PerformReprobeSeparately:
			if pending {
				want = byReprobe
			} else {
				want = byPattern
			}
		case AddNewDevicesDuringReprobe:
			want = byPattern || byReprobe
		default:
			want = byPattern
		}

		if site.IsPopulated() {
			h.log.Debug("cannot populate site since it is not empty", zap.Int("site", i+1))
			continue
		}

		if want && !byReprobe {
			h.numOfTestedDevices++
		}
		if !want && byReprobe && h.numOfTestedDevices > 0 {
			h.numOfTestedDevices--
		}
		site.SetPopulated(want)
	}
}
