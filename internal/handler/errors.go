// internal/handler/errors.go
package handler

import "errors"

// Construction errors. Runtime misuse is logged and ignored instead.
var (
	ErrInvalidSiteCount   = errors.New("handler: number of sites must be between 1 and 64")
	ErrNoSiteEnabled      = errors.New("handler: site enabled mask selects no site")
	ErrInvalidDeviceCount = errors.New("handler: number of devices to test must be positive or continuous")
	ErrInvalidDelay       = errors.New("handler: delays must not be negative")
	ErrUnknownPattern     = errors.New("handler: unknown site pattern")
	ErrUnknownReprobeMode = errors.New("handler: unknown reprobe mode")
)
