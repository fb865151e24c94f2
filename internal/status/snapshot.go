// internal/status/snapshot.go
package status

// Snapshot represents exactly what the status consumers are allowed to see.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	LotID         string
	Population    uint64
	Handler       uint16
	TestedDevices int
	Ready         bool
	Jammed        bool
	LotComplete   bool
}
