package button

import "errors"

var (
	ErrPinRequired    = errors.New("button: pin is required")
	ErrAlreadyRunning = errors.New("button: engine already registered")
	ErrNotRunning     = errors.New("button: engine not registered")
)
