package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/privatepub/internal/infrastructure/logging"
	"github.com/nerrad567/privatepub/internal/infrastructure/mqtt"
)

// MQTTPublisher is the part of mqtt.Client used by the relay.
type MQTTPublisher interface {
	PublishEvent(name string, payload []byte) error
}

// MQTTSubscriber is the part of mqtt.Client used to receive broker events.
type MQTTSubscriber interface {
	SubscribeBrokerEvents(handler mqtt.EventHandler) error
}

// relayedEvent is the payload written to {prefix}/events/{name}.
type relayedEvent struct {
	Event
	Timestamp time.Time `json:"timestamp"`
}

// MQTTRelay mirrors lifecycle events to MQTT. Publish failures are logged
// and never reach the broker.
type MQTTRelay struct {
	client MQTTPublisher
	logger *logging.Logger
	now    func() time.Time
}

// NewMQTTRelay creates a relay publishing through client.
func NewMQTTRelay(client MQTTPublisher, logger *logging.Logger) *MQTTRelay {
	if logger == nil {
		logger = logging.Discard()
	}
	return &MQTTRelay{client: client, logger: logger, now: time.Now}
}

func (r *MQTTRelay) OnHandshake(clientID string) {
	r.relay(Event{Name: EventHandshake, ClientID: clientID})
}

func (r *MQTTRelay) OnSubscribe(clientID, channel string) {
	r.relay(Event{Name: EventSubscribe, ClientID: clientID, Channel: channel})
}

func (r *MQTTRelay) OnUnsubscribe(clientID, channel string) {
	r.relay(Event{Name: EventUnsubscribe, ClientID: clientID, Channel: channel})
}

// OnPublish relays the event without the message body.
func (r *MQTTRelay) OnPublish(clientID, channel string, _ any) {
	r.relay(Event{Name: EventPublish, ClientID: clientID, Channel: channel})
}

func (r *MQTTRelay) OnDisconnect(clientID string) {
	r.relay(Event{Name: EventDisconnect, ClientID: clientID})
}

func (r *MQTTRelay) relay(ev Event) {
	payload, err := json.Marshal(relayedEvent{Event: ev, Timestamp: r.now().UTC()})
	if err != nil {
		r.logger.Error("encoding relayed event", "event", ev.Name, "error", err)
		return
	}
	if err := r.client.PublishEvent(ev.Name, payload); err != nil {
		r.logger.Warn("relaying event to MQTT failed", "event", ev.Name, "error", err)
	}
}

// BindBrokerEvents dispatches every event the broker reports on
// {prefix}/broker/events/{name} to adapter. The event name comes from the
// topic; the payload carries client_id, channel and data.
func BindBrokerEvents(sub MQTTSubscriber, adapter *Adapter) error {
	handler := func(name string, payload []byte) error {
		ev := Event{}
		if len(payload) > 0 {
			parsed, err := ParseEvent(payload)
			if err != nil {
				return err
			}
			ev = parsed
		}
		ev.Name = name
		return adapter.Dispatch(ev)
	}

	if err := sub.SubscribeBrokerEvents(handler); err != nil {
		return fmt.Errorf("binding broker events: %w", err)
	}
	return nil
}
