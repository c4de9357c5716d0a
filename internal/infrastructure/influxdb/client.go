package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Client records privatepub telemetry: one point per publish attempt, per
// issued or verified ticket, and per lifecycle event. Writes are batched
// and never block the caller.
type Client struct {
	client       influxdb2.Client
	writeAPI     api.WriteAPI
	measurements config.InfluxMeasurements

	mu      sync.RWMutex
	open    bool
	onError func(err error)
}

// Connect pings the server and opens a batching writer for the configured
// org and bucket. Empty measurement names fall back to the privatepub_*
// defaults.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client:       client,
		writeAPI:     client.WriteAPI(cfg.Org, cfg.Bucket),
		measurements: measurementsOrDefault(cfg.Measurements),
		open:         true,
	}
	go c.forwardErrors(c.writeAPI.Errors())

	return c, nil
}

func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds()))
}

func measurementsOrDefault(m config.InfluxMeasurements) config.InfluxMeasurements {
	if m.Publish == "" {
		m.Publish = DefaultPublishMeasurement
	}
	if m.Ticket == "" {
		m.Ticket = DefaultTicketMeasurement
	}
	if m.Lifecycle == "" {
		m.Lifecycle = DefaultLifecycleMeasurement
	}
	return m
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !healthy {
		return ErrUnhealthy
	}
	return nil
}

func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// SetOnError sets a callback for asynchronous write errors.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	c.onError = callback
	c.mu.Unlock()
}

// IsConnected reports whether the client is still accepting points.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Close writes any buffered points and closes the client. Points recorded
// afterwards are dropped. Repeated calls are no-ops.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()
	if !wasOpen {
		return nil
	}

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
