package led

import "errors"

var (
	ErrPinRequired = errors.New("led: pin is required")
	ErrStopTimeout = errors.New("led: blink worker did not stop within 3s")
)
