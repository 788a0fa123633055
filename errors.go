package starnotary

import (
	"errors"
)

var (
	// ErrInvalidRequest is returned when an inbound payload is malformed or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)
