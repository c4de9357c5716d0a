package pubsub

import "errors"

// Sentinel errors for signing and verification.
var (
	// ErrMissingChannel is returned when a ticket is requested without a channel.
	ErrMissingChannel = errors.New("pubsub: channel is required to sign a subscription")

	// ErrMissingSecret is returned when no secret_token is configured.
	ErrMissingSecret = errors.New("pubsub: no secret_token configured")

	// ErrSignatureMismatch is returned when a presented signature is wrong.
	ErrSignatureMismatch = errors.New("Incorrect signature.") //nolint:staticcheck,revive // broker-facing message

	// ErrSignatureExpired is returned when a presented ticket is too old.
	ErrSignatureExpired = errors.New("Signature has expired.") //nolint:staticcheck,revive // broker-facing message

	// ErrTokenMismatch is returned when a publish carries the wrong secret token.
	ErrTokenMismatch = errors.New("Incorrect token.") //nolint:staticcheck,revive // broker-facing message
)
