package pubsub

import (
	"encoding/json"
	"fmt"
)

// Payload is what a server publishes into a channel: either a script the
// browser evaluates on arrival, or a value it receives unchanged.
// Construct one with Script or Data.
type Payload interface {
	apply(d *MessageData)
}

// ScriptPayload is JavaScript source delivered as the message's "eval" field.
type ScriptPayload struct {
	Source string
}

// DataPayload is an arbitrary JSON-serialisable value delivered as the
// message's "data" field.
type DataPayload struct {
	Value any
}

// Script wraps JavaScript source for publishing.
func Script(source string) Payload {
	return ScriptPayload{Source: source}
}

// Data wraps a JSON-serialisable value for publishing.
func Data(value any) Payload {
	return DataPayload{Value: value}
}

func (p ScriptPayload) apply(d *MessageData) {
	d.Eval = p.Source
	d.script = true
}

func (p DataPayload) apply(d *MessageData) {
	d.Value = p.Value
}

// Message is the envelope posted to the broker.
type Message struct {
	Channel string      `json:"channel"`
	Data    MessageData `json:"data"`
	Ext     Ext         `json:"ext"`
}

// Ext carries the server-side authentication token checked by the broker
// before it accepts a publish.
type Ext struct {
	PrivatePubToken string `json:"private_pub_token"`
}

// MessageData is the inner payload. It echoes the channel and carries
// exactly one of Eval or Value.
type MessageData struct {
	Channel string
	Eval    string
	Value   any

	script bool
}

// IsScript reports whether the payload is an "eval" script.
func (d MessageData) IsScript() bool {
	return d.script
}

// MarshalJSON emits "eval" for scripts and "data" otherwise. "data" is
// written even when the value is nil.
func (d MessageData) MarshalJSON() ([]byte, error) {
	if d.script {
		return json.Marshal(struct {
			Channel string `json:"channel"`
			Eval    string `json:"eval"`
		}{d.Channel, d.Eval})
	}
	return json.Marshal(struct {
		Channel string `json:"channel"`
		Data    any    `json:"data"`
	}{d.Channel, d.Value})
}

// UnmarshalJSON restores a payload written by MarshalJSON.
func (d *MessageData) UnmarshalJSON(b []byte) error {
	var raw struct {
		Channel string          `json:"channel"`
		Eval    *string         `json:"eval"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*d = MessageData{Channel: raw.Channel}
	if raw.Eval != nil {
		d.Eval = *raw.Eval
		d.script = true
		return nil
	}
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, &d.Value); err != nil {
			return fmt.Errorf("decoding message data: %w", err)
		}
	}
	return nil
}

// BuildMessage returns the broker envelope for publishing payload to channel.
// It performs no validation; a nil payload is sent as "data": null.
func BuildMessage(channel string, payload Payload, secretToken string) *Message {
	msg := &Message{
		Channel: channel,
		Data:    MessageData{Channel: channel},
		Ext:     Ext{PrivatePubToken: secretToken},
	}
	if payload != nil {
		payload.apply(&msg.Data)
	}
	return msg
}

// Encode serialises the message as JSON.
func (m *Message) Encode() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding message for %s: %w", m.Channel, err)
	}
	return b, nil
}
