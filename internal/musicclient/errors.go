package musicclient

import "errors"

var (
	ErrAddrRequired = errors.New("musicclient: address is required")
	ErrStopTimeout  = errors.New("musicclient: worker did not stop within 3s")
)
