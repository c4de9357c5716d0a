// Package pubsub builds broker messages and signs subscription tickets.
//
// A message sent to the broker always has the shape
//
//	{"channel": "/chat", "data": {"channel": "/chat", "data": {...}}, "ext": {"private_pub_token": "..."}}
//
// where the inner payload carries either "eval" (a script the browser runs
// on arrival) or "data" (a value forwarded as-is), never both. Callers
// choose with the Script and Data constructors.
//
// A subscription ticket is handed to the browser, which presents it to the
// broker when subscribing:
//
//	{"server": "https://faye.example.com/faye", "channel": "/chat",
//	 "timestamp": 1760745600000, "signature": "<40 hex chars>"}
//
// The signature is SHA-1 over secret_token, channel and timestamp joined as
// strings in that order. Tickets optionally expire after
// signature_expiration seconds.
//
// Everything in this package is safe for concurrent use once the
// configuration it was built from is stable.
package pubsub
