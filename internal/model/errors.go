package model

import "errors"

// Per-record failures. Sources drop records failing with these and keep going.
var (
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrMissingStart       = errors.New("event has no start")
)
