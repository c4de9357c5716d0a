package events

import "errors"

var (
	// ErrUnknownEvent is returned when a broker reports an event name
	// outside the lifecycle set.
	ErrUnknownEvent = errors.New("events: unknown event")

	// ErrInvalidEvent is returned when an event payload cannot be decoded.
	ErrInvalidEvent = errors.New("events: invalid event payload")
)
