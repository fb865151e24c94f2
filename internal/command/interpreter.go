// internal/command/interpreter.go
package command

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tamzrod/handler-simulator/internal/handler"
	"github.com/tamzrod/handler-simulator/internal/status"
)

// queryErrorPeriod is the reply interval of the query error injector.
const queryErrorPeriod = 7

// corruptReply replaces a reply picked by the query error injector.
const corruptReply = " "

// Device is the identity and behaviour of the simulated equipment.
type Device struct {
	Model           string
	SoftwareVersion string
	SRQMask         byte
	QueryError      bool // corrupt every 7th query reply
	CommandReply    bool // answer non-query commands with "OK"
}

// Reply is the answer to one command line.
type Reply struct {
	Text string
	// Raw replies are written with a bare "\n" instead of the configured
	// end-of-command string.
	Raw bool
}

type verb func(in *Interpreter, args []string) (string, error)

// Interpreter executes command lines against a Handler.
// It is not safe for concurrent use; the owner serialises calls.
type Interpreter struct {
	h   *handler.Handler
	log *zap.Logger
	dev Device

	srqMask byte
	jammed  bool
	queries int
	lots    int
	lastErr error

	verbs map[string]verb
}

// New returns an Interpreter for h.
func New(h *handler.Handler, dev Device, log *zap.Logger) *Interpreter {
	if log == nil {
		log = zap.NewNop()
	}
	in := &Interpreter{
		h:       h,
		log:     log,
		dev:     dev,
		srqMask: dev.SRQMask,
	}
	in.verbs = map[string]verb{
		"idn?":       (*Interpreter).identify,
		"error?":     (*Interpreter).errorQuery,
		"rft?":       (*Interpreter).readyForTest,
		"fullsites?": (*Interpreter).fullSites,
		"sites?":     (*Interpreter).enabledSites,
		"stat?":      (*Interpreter).statusQuery,
		"bin?":       (*Interpreter).binQuery,
		"srqmask?":   (*Interpreter).srqMaskQuery,
		"jam?":       (*Interpreter).jamQuery,

		"start":   (*Interpreter).start,
		"stop":    (*Interpreter).stop,
		"lot":     (*Interpreter).lot,
		"bin":     (*Interpreter).bin,
		"setbin":  (*Interpreter).setBin,
		"release": (*Interpreter).release,
		"echook":  (*Interpreter).echoOK,
		"echong":  (*Interpreter).echoNG,
		"reprobe": (*Interpreter).reprobe,
		"contact": (*Interpreter).contact,
		"retract": (*Interpreter).retract,
		"srqmask": (*Interpreter).setSRQMask,
		"jam":     (*Interpreter).jam,
	}
	return in
}

// Handler returns the driven handler.
func (in *Interpreter) Handler() *handler.Handler { return in.h }

// SRQMask returns the current service request mask.
func (in *Interpreter) SRQMask() byte { return in.srqMask }

// Jammed reports whether a jam has been simulated.
func (in *Interpreter) Jammed() bool { return in.jammed }

// Ready reports whether the handler accepts test starts.
func (in *Interpreter) Ready() bool { return !in.h.IsStopped() && !in.jammed }

// Execute runs one command line. The boolean is false when the command
// produces no reply. Errors are also remembered for the next "error?".
func (in *Interpreter) Execute(line string) (Reply, bool, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Reply{}, false, nil
	}

	in.log.Debug("received message", zap.String("message", line))

	name, args := fields[0], fields[1:]
	fn, ok := in.verbs[name]
	if !ok {
		return in.fail(fmt.Errorf("%w: %q", ErrNotUnderstood, line))
	}

	text, err := fn(in, args)
	if err != nil {
		return in.fail(fmt.Errorf("%s: %w", name, err))
	}

	if strings.HasSuffix(name, "?") {
		return in.replyToQuery(text), true, nil
	}
	if in.dev.CommandReply {
		return Reply{Text: "OK"}, true, nil
	}
	return Reply{}, false, nil
}

func (in *Interpreter) fail(err error) (Reply, bool, error) {
	in.lastErr = err
	in.log.Warn("command rejected", zap.Error(err))
	return Reply{}, false, err
}

func (in *Interpreter) replyToQuery(text string) Reply {
	in.queries++
	if in.dev.QueryError && in.queries%queryErrorPeriod == 0 {
		in.log.Debug("corrupt query reply", zap.String("reply", text), zap.Int("query", in.queries))
		return Reply{Text: corruptReply, Raw: true}
	}
	return Reply{Text: text}
}

// ---- queries ----

func (in *Interpreter) identify(args []string) (string, error) {
	return fmt.Sprintf("%s,%s", in.dev.Model, in.dev.SoftwareVersion), nil
}

func (in *Interpreter) errorQuery(args []string) (string, error) {
	if in.lastErr == nil {
		return "NONE", nil
	}
	msg := in.lastErr.Error()
	in.lastErr = nil
	return msg, nil
}

func (in *Interpreter) readyForTest(args []string) (string, error) {
	if in.Ready() {
		return "RFT 1", nil
	}
	return "RFT 0", nil
}

func (in *Interpreter) fullSites(args []string) (string, error) {
	pop := in.h.SitePopulationAsLong()
	in.log.Debug("site population", zap.String("population", fmt.Sprintf("0x%x", pop)))
	return fmt.Sprintf("FULLSITES %0*X", in.maskDigits(), pop), nil
}

func (in *Interpreter) enabledSites(args []string) (string, error) {
	return fmt.Sprintf("SITES %0*X", in.maskDigits(), in.h.SitesEnabled()), nil
}

func (in *Interpreter) maskDigits() int {
	if in.h.NumOfSites() > 32 {
		return 16
	}
	return 8
}

func (in *Interpreter) statusQuery(args []string) (string, error) {
	state := "stopped"
	switch in.h.Status() {
	case handler.HandlingDevices:
		state = "handling"
	case handler.Waiting:
		state = "waiting"
	}
	if in.jammed {
		state = "jammed"
	}
	return fmt.Sprintf("STAT %d %d %s", in.h.TestedDevices(), in.h.DevicesToTest(), state), nil
}

func (in *Interpreter) binQuery(args []string) (string, error) {
	s, err := siteArg(args, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BIN %d", in.h.BinData(s)), nil
}

func (in *Interpreter) srqMaskQuery(args []string) (string, error) {
	return fmt.Sprintf("SRQMASK %d", in.srqMask), nil
}

func (in *Interpreter) jamQuery(args []string) (string, error) {
	if in.jammed {
		return "JAM 1", nil
	}
	return "JAM 0", nil
}

// ---- commands ----

func (in *Interpreter) start(args []string) (string, error) {
	in.h.Start()
	return "", nil
}

func (in *Interpreter) stop(args []string) (string, error) {
	in.h.Stop()
	return "", nil
}

func (in *Interpreter) lot(args []string) (string, error) {
	in.h.Reset()
	in.lots++
	return "", nil
}

func (in *Interpreter) bin(args []string) (string, error) {
	s, c, err := siteAndCategory(args)
	if err != nil {
		return "", err
	}
	in.h.SendDeviceToBin(s, c)
	return "", nil
}

func (in *Interpreter) setBin(args []string) (string, error) {
	s, c, err := siteAndCategory(args)
	if err != nil {
		return "", err
	}
	in.h.SetBinData(s, c)
	return "", nil
}

func (in *Interpreter) release(args []string) (string, error) {
	s, err := siteArg(args, 1)
	if err != nil {
		return "", err
	}
	if !in.h.ReleaseDevice(s) {
		return "", fmt.Errorf("site %d has no verified bin data", s+1)
	}
	return "", nil
}

func (in *Interpreter) echoOK(args []string) (string, error) {
	for s := 0; s < in.h.NumOfSites(); s++ {
		in.h.ReleaseDevice(s)
	}
	return "", nil
}

func (in *Interpreter) echoNG(args []string) (string, error) {
	in.h.BinDataVerified()
	return "", nil
}

func (in *Interpreter) reprobe(args []string) (string, error) {
	s, err := siteArg(args, 1)
	if err != nil {
		return "", err
	}
	in.h.SendDeviceToBin(s, in.h.ReprobeCategory())
	return "", nil
}

func (in *Interpreter) contact(args []string) (string, error) {
	return "", in.setContacts(args, true)
}

func (in *Interpreter) retract(args []string) (string, error) {
	return "", in.setContacts(args, false)
}

func (in *Interpreter) setContacts(args []string, contacting bool) error {
	mask, err := maskArg(args)
	if err != nil {
		return err
	}
	for s := 0; s < in.h.NumOfSites(); s++ {
		if mask&(1<<uint(s)) != 0 {
			in.h.SetContact(s, contacting)
		}
	}
	return nil
}

func (in *Interpreter) setSRQMask(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: expected \"srqmask n\"", ErrBadArgument)
	}
	v, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadArgument, args[0])
	}
	in.srqMask = byte(v)
	in.log.Info("srq mask changed", zap.Uint8("mask", in.srqMask))
	return "", nil
}

func (in *Interpreter) jam(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: expected \"jam on|off\"", ErrBadArgument)
	}
	switch args[0] {
	case "on", "1":
		in.jammed = true
	case "off", "0":
		in.jammed = false
	default:
		return "", fmt.Errorf("%w: %q", ErrBadArgument, args[0])
	}
	in.log.Info("jam state changed", zap.Bool("jammed", in.jammed))
	return "", nil
}

// SRQ returns the service request byte for the current state.
func (in *Interpreter) SRQ(asserted bool) byte {
	return status.SRQByte(in.Snapshot(""), in.srqMask, asserted)
}

// Snapshot captures the externally visible state.
// Lots returns how many lot commands have reset the handler.
func (in *Interpreter) Lots() int { return in.lots }

func (in *Interpreter) Snapshot(lotID string) status.Snapshot {
	code := status.HandlerStopped
	switch in.h.Status() {
	case handler.HandlingDevices:
		code = status.HandlerHandling
	case handler.Waiting:
		code = status.HandlerWaiting
	}
	if in.jammed {
		code = status.HandlerJammed
	}
	return status.Snapshot{
		LotID:         lotID,
		Population:    in.h.SitePopulationAsLong(),
		Handler:       code,
		TestedDevices: in.h.TestedDevices(),
		Ready:         in.Ready(),
		Jammed:        in.jammed,
		LotComplete:   in.h.AllTestsComplete(),
	}
}

// ---- argument parsing ----

// siteArg parses a 1-based site number and returns it 0-based.
func siteArg(args []string, want int) (int, error) {
	if len(args) != want {
		return 0, fmt.Errorf("%w: expected %d argument(s), got %d", ErrBadArgument, want, len(args))
	}
	s, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: site %q", ErrBadArgument, args[0])
	}
	return s - 1, nil
}

func siteAndCategory(args []string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("%w: expected <site> <category>", ErrBadArgument)
	}
	s, err := siteArg(args[:1], 1)
	if err != nil {
		return 0, 0, err
	}
	c, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: category %q", ErrBadArgument, args[1])
	}
	return s, c, nil
}

func maskArg(args []string) (uint64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected <mask>", ErrBadArgument)
	}
	m, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: mask %q", ErrBadArgument, args[0])
	}
	return m, nil
}
