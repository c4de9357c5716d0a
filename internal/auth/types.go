package auth

import (
	"errors"
	"regexp"
)

// subjectPattern defines the valid format for service names:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var subjectPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidSubject checks if a service name can be used as a token subject.
func IsValidSubject(subject string) bool {
	return subjectPattern.MatchString(subject)
}

// Role represents the kind of service holding a token.
type Role string

const (
	// RolePublisher is an application server. It signs subscription
	// tickets and publishes messages.
	RolePublisher Role = "publisher"

	// RoleBroker is the pub/sub broker. It forwards lifecycle events and
	// runs incoming messages through the extensions.
	RoleBroker Role = "broker"

	// RoleAdmin can do everything, including reading the audit trail.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RolePublisher, RoleBroker, RoleAdmin}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid   = errors.New("auth: invalid token")
	ErrTokenMissing   = errors.New("auth: missing bearer token")
	ErrInvalidSubject = errors.New("auth: invalid subject")
	ErrInvalidRole    = errors.New("auth: invalid role")
	ErrMissingSecret  = errors.New("auth: signing secret is empty")
	ErrForbidden      = errors.New("auth: insufficient permissions")
)
