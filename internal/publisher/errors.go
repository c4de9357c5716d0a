package publisher

import (
	"errors"
	"fmt"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
)

// Domain-specific errors for publishing.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoServer is returned when no broker server is configured.
	// It also matches config.ErrConfiguration.
	ErrNoServer = fmt.Errorf("%w: no server specified, ensure the configuration was loaded properly", config.ErrConfiguration)

	// ErrInvalidServer is returned when the configured server is not a usable URL.
	// It also matches config.ErrConfiguration.
	ErrInvalidServer = fmt.Errorf("%w: invalid server URL", config.ErrConfiguration)

	// ErrTransport is returned when the request could not be delivered
	// (connection refused, DNS failure, TLS error, timeout).
	ErrTransport = errors.New("publisher: transport failure")

	// ErrUnexpectedStatus is returned in strict mode when the broker answers
	// with a non-2xx status.
	ErrUnexpectedStatus = errors.New("publisher: unexpected broker status")
)
