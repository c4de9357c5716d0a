package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed is returned when the server cannot be reached at startup.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrUnhealthy is returned when the server answers a ping as not ready.
	ErrUnhealthy = errors.New("influxdb: server not healthy")

	// ErrNotConnected is returned after Close.
	ErrNotConnected = errors.New("influxdb: not connected")
)
