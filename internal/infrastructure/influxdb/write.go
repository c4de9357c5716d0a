package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Default measurement names.
const (
	DefaultPublishMeasurement   = "privatepub_publish"
	DefaultTicketMeasurement    = "privatepub_ticket"
	DefaultLifecycleMeasurement = "privatepub_lifecycle"
)

// RecordPublish writes one point per publish attempt. The channel is
// stored as a field, not a tag, since per-user channels are unbounded.
//
//	privatepub_publish,outcome=ok channel="/chat",status=200i,duration_ms=12.5
func (c *Client) RecordPublish(channel string, statusCode int, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.write(c.measurements.Publish,
		map[string]string{"outcome": outcome},
		map[string]any{
			"channel":     channel,
			"status":      statusCode,
			"duration_ms": float64(duration.Microseconds()) / 1000, //nolint:mnd // µs → ms
		})
}

// RecordTicket writes one point per signed subscription ticket.
//
//	privatepub_ticket,action=issued count=1i
func (c *Client) RecordTicket() {
	c.write(c.measurements.Ticket,
		map[string]string{"action": "issued"},
		map[string]any{"count": 1})
}

// RecordVerification writes one point per ticket check. result is
// "valid", "invalid" or "expired".
//
//	privatepub_ticket,action=verified,result=expired count=1i
func (c *Client) RecordVerification(result string) {
	c.write(c.measurements.Ticket,
		map[string]string{"action": "verified", "result": result},
		map[string]any{"count": 1})
}

// RecordEvent writes one point per lifecycle event reported by the broker.
func (c *Client) RecordEvent(name, channel string) {
	fields := map[string]any{"count": 1}
	if channel != "" {
		fields["channel"] = channel
	}
	c.write(c.measurements.Lifecycle, map[string]string{"event": name}, fields)
}

func (c *Client) write(measurement string, tags map[string]string, fields map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.open {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
