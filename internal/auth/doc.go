// Package auth issues and validates the service tokens that guard the
// privatepub HTTP surface.
//
// Callers are services, not people: an application server that mints
// subscription tickets and publishes, a broker that forwards lifecycle
// events, or an operator reading the audit trail. Each token carries one
// role, and roles map to permissions through a static table.
//
// Tokens are HS256 JWTs validated by signature only; there is no
// revocation list.
package auth
