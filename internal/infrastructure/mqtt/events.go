package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxEventPayload bounds a mirrored event. Events carry identifiers only.
const maxEventPayload = 64 << 10

// EventHandler receives a lifecycle event reported by the broker. name is
// the last topic level. A returned error is logged.
type EventHandler func(name string, payload []byte) error

// PublishEvent mirrors a lifecycle event to {prefix}/events/{name} with the
// configured QoS. The message is not retained.
func (c *Client) PublishEvent(name string, payload []byte) error {
	if name == "" {
		return ErrInvalidEvent
	}
	if len(payload) > maxEventPayload {
		return fmt.Errorf("%w: %s payload is %d bytes", ErrPublishFailed, name, len(payload))
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(c.topics.event(name), c.qos, false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s timed out after %v", ErrPublishFailed, name, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, name, err)
	}
	return nil
}

// SubscribeBrokerEvents delivers every message on {prefix}/broker/events/+
// to handler. Only one handler is kept; a second call replaces the first.
func (c *Client) SubscribeBrokerEvents(handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(c.topics.allBrokerEvents(), c.qos, c.wrap(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	c.mu.Lock()
	c.brokerEvents = handler
	c.mu.Unlock()
	return nil
}

func (c *Client) wrap(handler EventHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.deliver(handler, msg.Topic(), msg.Payload())
	}
}

// deliver runs handler for one broker event, recovering from panics.
func (c *Client) deliver(handler EventHandler, topic string, payload []byte) {
	c.mu.RLock()
	logger := c.logger
	c.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("broker event handler panicked", "topic", topic, "panic", r)
		}
	}()

	if err := handler(eventName(topic), payload); err != nil && logger != nil {
		logger.Warn("broker event rejected", "topic", topic, "error", err)
	}
}
