// internal/command/errors.go
package command

import "errors"

var (
	// ErrNotUnderstood is returned for an unknown command verb.
	ErrNotUnderstood = errors.New("command: not understood")
	// ErrBadArgument is returned when a known command has malformed arguments.
	ErrBadArgument = errors.New("command: bad argument")
)
