package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
)

// Client is the MQTT side of the lifecycle event relay. It publishes
// mirrored events, receives events reported by the broker, and keeps a
// retained online/offline status for the service.
//
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	qos    byte
	id     string
	topics topics

	mu           sync.RWMutex
	connected    bool
	brokerEvents EventHandler
	onDisconnect func(err error)
	logger       Logger
}

// Logger is the subset of logging.Logger used for handler failures.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Connect dials the broker described by cfg and waits for the first
// connection. The broker-event subscription is restored after every
// reconnect.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, c.id)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously.
	c.setConnected(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig) (*Client, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQoS, cfg.QoS)
	}
	return &Client{
		qos:    byte(cfg.QoS),
		id:     cfg.Broker.ClientID,
		topics: newTopics(cfg.TopicPrefix),
	}, nil
}

func (c *Client) handleConnect() {
	c.setConnected(true)

	c.mu.RLock()
	handler := c.brokerEvents
	c.mu.RUnlock()
	if handler != nil {
		// A failure here is retried on the next reconnect.
		c.client.Subscribe(c.topics.allBrokerEvents(), c.qos, c.wrap(handler))
	}
	c.client.Publish(c.topics.systemStatus(), c.qos, true, buildOnlinePayload(c.id))
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)

	c.mu.RLock()
	callback := c.onDisconnect
	c.mu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Close publishes the offline status and disconnects. Closing an
// unconnected client is not an error.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(c.topics.systemStatus(), c.qos, true, buildOfflinePayload(c.id))
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)

	return nil
}

// HealthCheck reports ErrNotConnected when the connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// SetOnDisconnect sets a callback invoked when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets the logger used for broker-event handler failures.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}
