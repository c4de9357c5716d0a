package events

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bayeux channels the extensions care about.
const (
	ChannelMetaPrefix    = "/meta/"
	ChannelMetaSubscribe = "/meta/subscribe"
)

// Ext keys written by the browser client and the server publisher.
const (
	ExtSignature = "private_pub_signature"
	ExtTimestamp = "private_pub_timestamp"
	ExtToken     = "private_pub_token"
)

// BayeuxMessage is a message passing through the broker. Fields the
// extensions do not read are kept in Other and written back unchanged.
type BayeuxMessage struct {
	Channel      string
	ClientID     string
	Subscription string
	Data         json.RawMessage
	Ext          map[string]any
	Error        string

	Other map[string]json.RawMessage
}

// IsMeta reports whether the message is on a /meta/ channel.
func (m *BayeuxMessage) IsMeta() bool {
	return strings.HasPrefix(m.Channel, ChannelMetaPrefix)
}

// ExtString returns ext[key] as a string, or "" when absent.
func (m *BayeuxMessage) ExtString(key string) string {
	switch v := m.Ext[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ExtInt returns ext[key] as an integer. Clients send the ticket timestamp
// as a JSON number; numeric strings are accepted as well. Fractional
// numbers are rejected: the digest covers the decimal integer form, so a
// truncated value would be checked against a different string.
func (m *BayeuxMessage) ExtInt(key string) (int64, bool) {
	switch v := m.Ext[key].(type) {
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// MarshalJSON writes the known fields over the preserved ones.
func (m BayeuxMessage) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Other)+6) //nolint:mnd // known fields
	for k, v := range m.Other {
		out[k] = v
	}
	out["channel"] = m.Channel
	if m.ClientID != "" {
		out["clientId"] = m.ClientID
	}
	if m.Subscription != "" {
		out["subscription"] = m.Subscription
	}
	if m.Data != nil {
		out["data"] = m.Data
	}
	if m.Ext != nil {
		out["ext"] = m.Ext
	}
	if m.Error != "" {
		out["error"] = m.Error
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the known fields and keeps the rest in Other.
func (m *BayeuxMessage) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*m = BayeuxMessage{}
	for k, v := range raw {
		var target any
		switch k {
		case "channel":
			target = &m.Channel
		case "clientId":
			target = &m.ClientID
		case "subscription":
			target = &m.Subscription
		case "ext":
			target = &m.Ext
		case "error":
			target = &m.Error
		case "data":
			m.Data = v
			continue
		default:
			if m.Other == nil {
				m.Other = make(map[string]json.RawMessage)
			}
			m.Other[k] = v
			continue
		}
		if err := json.Unmarshal(v, target); err != nil {
			return fmt.Errorf("decoding bayeux field %s: %w", k, err)
		}
	}
	return nil
}
