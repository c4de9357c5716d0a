// Package api implements the HTTP surface of privatepub.
//
// This package provides:
//   - Subscription ticket signing and verification for application servers
//   - Server-side publishing to the broker
//   - A WebSocket bridge the broker uses to report lifecycle events and to
//     run incoming messages through the authentication extension
//   - The audit trail and Prometheus metrics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit, JWT)
//
// # Security
//
// Every route except health, status and /metrics requires a service token
// (see package auth) in the Authorization header. Each route also checks
// the token's role against the permission it needs.
//
// # Graceful Degradation
//
// Audit, metrics and MQTT are optional. Without them the corresponding
// routes report that the feature is not configured and the rest of the
// server keeps working.
package api
