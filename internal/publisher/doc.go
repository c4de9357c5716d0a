// Package publisher delivers messages to the broker's HTTP endpoint.
//
// Each publish is one synchronous form POST:
//
//	POST /faye HTTP/1.1
//	Content-Type: application/x-www-form-urlencoded
//
//	message=%7B%22channel%22%3A%22%2Fchat%22...
//
// TLS is used when the configured server URL is https. Connections are not
// pooled and nothing is retried: a publish is at-most-once. Transport
// failures are returned as ErrTransport; the broker's response is always
// handed back to the caller and only treated as an error when strict_status
// is enabled.
//
// Usage:
//
//	pub := publisher.New(cfg.PubSubConfig, logger)
//	resp, err := pub.PublishTo(ctx, "/chat", pubsub.Data(map[string]any{"text": "hi"}))
package publisher
