// internal/runner/types.go
package runner

import (
	"time"

	"github.com/tamzrod/handler-simulator/internal/command"
	"github.com/tamzrod/handler-simulator/internal/handler"
	"github.com/tamzrod/handler-simulator/internal/status"
)

// EventKind tells consumers what happened.
type EventKind int

const (
	// EventStatus carries a changed snapshot.
	EventStatus EventKind = iota
	// EventSRQ announces a test start. SRQ holds the service request byte.
	EventSRQ
	// EventLotDone is emitted once per completed lot. Report holds the yield.
	EventLotDone
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventSRQ:
		return "srq"
	case EventLotDone:
		return "lot_done"
	default:
		return "unknown"
	}
}

// Event is produced by the runner loop.
type Event struct {
	Kind     EventKind
	At       time.Time
	Snapshot status.Snapshot
	SRQMask  byte

	SRQ    byte           // EventSRQ
	Report handler.Report // EventLotDone
}

// Response is the outcome of one submitted command line.
type Response struct {
	Reply    command.Reply
	HasReply bool
	Err      error // rejected command; the runner keeps going
}

type request struct {
	line  string
	reply chan Response
}
