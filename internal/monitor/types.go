// internal/monitor/types.go
package monitor

import (
	"time"

	"github.com/tamzrod/handler-simulator/internal/status"
)

// Result is produced by one poll cycle.
type Result struct {
	At       time.Time
	Snapshot status.Snapshot
	Model    string
	Err      error // non-nil means the poll cycle failed
}
