package config

import "errors"

// Sentinel errors for configuration handling.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConfiguration is returned when a required configuration value is
	// missing at the time it is needed (no server configured, unknown environment).
	ErrConfiguration = errors.New("config: configuration error")

	// ErrUnknownKey is returned by Store.Get/Set for keys outside the schema.
	ErrUnknownKey = errors.New("config: unknown key")

	// ErrInvalidValue is returned by Store.Set when the value has the wrong type.
	ErrInvalidValue = errors.New("config: invalid value")
)
