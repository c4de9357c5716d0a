package pubsub

import (
	"encoding/json"
	"fmt"
)

// Subscription fields with a fixed meaning; everything else lands in Extra.
const (
	fieldServer    = "server"
	fieldChannel   = "channel"
	fieldTimestamp = "timestamp"
	fieldSignature = "signature"
)

// SubscriptionOptions are the caller-supplied attributes merged into a ticket.
// Zero values fall back to the signer's defaults (configured server, now).
type SubscriptionOptions struct {
	Channel string
	Server  string

	// Timestamp in milliseconds. 0 is the "use now" sentinel, so a ticket
	// cannot be pinned to the epoch itself.
	Timestamp int64

	Extra map[string]any
}

// Subscription is a signed ticket handed to a browser client.
type Subscription struct {
	Server    string
	Channel   string
	Timestamp int64 // milliseconds since the Unix epoch
	Signature string

	// Extra holds any additional caller attributes, serialised alongside
	// the fixed fields.
	Extra map[string]any
}

// MarshalJSON flattens Extra next to the fixed fields.
func (s Subscription) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+4) //nolint:mnd // four fixed fields
	for k, v := range s.Extra {
		out[k] = v
	}
	out[fieldServer] = s.Server
	out[fieldChannel] = s.Channel
	out[fieldTimestamp] = s.Timestamp
	out[fieldSignature] = s.Signature
	return json.Marshal(out)
}

// UnmarshalJSON reads a flattened ticket back into its fields.
func (s *Subscription) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*s = Subscription{}
	for k, v := range raw {
		var target any
		switch k {
		case fieldServer:
			target = &s.Server
		case fieldChannel:
			target = &s.Channel
		case fieldTimestamp:
			target = &s.Timestamp
		case fieldSignature:
			target = &s.Signature
		default:
			var extra any
			if err := json.Unmarshal(v, &extra); err != nil {
				return fmt.Errorf("decoding subscription field %s: %w", k, err)
			}
			if s.Extra == nil {
				s.Extra = make(map[string]any)
			}
			s.Extra[k] = extra
			continue
		}
		if err := json.Unmarshal(v, target); err != nil {
			return fmt.Errorf("decoding subscription field %s: %w", k, err)
		}
	}
	return nil
}
