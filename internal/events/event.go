package events

import (
	"encoding/json"
	"fmt"
)

// Lifecycle event names.
const (
	EventHandshake   = "handshake"
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventPublish     = "publish"
	EventDisconnect  = "disconnect"
)

// Event is a lifecycle event as reported by the broker.
// ClientID is empty for publishes made by the server.
type Event struct {
	Name     string          `json:"name"`
	ClientID string          `json:"client_id,omitempty"`
	Channel  string          `json:"channel,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// ParseEvent decodes a JSON event.
func ParseEvent(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return ev, nil
}
