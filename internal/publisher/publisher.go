package publisher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
	"github.com/nerrad567/privatepub/internal/infrastructure/logging"
	"github.com/nerrad567/privatepub/internal/pubsub"
)

const (
	// formField is the form field carrying the JSON-encoded message.
	formField = "message"

	// maxResponseBody caps how much of the broker's reply is kept.
	maxResponseBody = 1 << 20 // 1MB

	// tlsMinVersion is the minimum TLS version for https servers.
	tlsMinVersion = tls.VersionTLS12
)

// Response is the broker's reply to a publish.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the broker answered with a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Result describes one publish attempt for observers.
type Result struct {
	Channel    string
	StatusCode int // 0 when no response was received
	Duration   time.Duration
	Err        error
}

// Observer receives a Result after every publish attempt.
// Observers must not block; they cannot change the outcome.
type Observer interface {
	ObservePublish(ctx context.Context, result Result)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, result Result)

// ObservePublish calls f.
func (f ObserverFunc) ObservePublish(ctx context.Context, result Result) {
	f(ctx, result)
}

// Recorder is implemented by telemetry sinks (Prometheus, InfluxDB).
type Recorder interface {
	RecordPublish(channel string, statusCode int, duration time.Duration, err error)
}

// RecorderObserver reports each Result to r.
func RecorderObserver(r Recorder) Observer {
	return ObserverFunc(func(_ context.Context, result Result) {
		r.RecordPublish(result.Channel, result.StatusCode, result.Duration, result.Err)
	})
}

// Publisher posts messages to the broker.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Publisher struct {
	cfg    config.PubSubConfig
	client *http.Client
	logger *logging.Logger

	observers []Observer
	obsMu     sync.RWMutex
}

// New creates a Publisher for the configured broker.
//
// The HTTP client does not pool connections (one connection per publish)
// and applies publish_timeout when it is non-zero. A nil logger discards output.
func New(cfg config.PubSubConfig, logger *logging.Logger) *Publisher {
	transport := cleanhttp.DefaultTransport()
	transport.TLSClientConfig = &tls.Config{MinVersion: tlsMinVersion}

	if logger == nil {
		logger = logging.Discard()
	}

	return &Publisher{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout(),
		},
		logger: logger,
	}
}

// AddObserver registers an observer for publish results.
func (p *Publisher) AddObserver(o Observer) {
	p.obsMu.Lock()
	p.observers = append(p.observers, o)
	p.obsMu.Unlock()
}

// Build returns the broker envelope for payload on channel, stamped with
// the configured secret token.
func (p *Publisher) Build(channel string, payload pubsub.Payload) *pubsub.Message {
	return pubsub.BuildMessage(channel, payload, p.cfg.SecretToken)
}

// PublishTo builds a message for channel and publishes it.
func (p *Publisher) PublishTo(ctx context.Context, channel string, payload pubsub.Payload) (*Response, error) {
	return p.PublishMessage(ctx, p.Build(channel, payload))
}

// PublishMessage sends msg to the broker and blocks until it answers.
//
// Returns:
//   - *Response: The broker's reply (nil if none was received)
//   - error: ErrNoServer/ErrInvalidServer, ErrTransport, or ErrUnexpectedStatus in strict mode
func (p *Publisher) PublishMessage(ctx context.Context, msg *pubsub.Message) (*Response, error) {
	start := time.Now()
	resp, err := p.send(ctx, msg)

	result := Result{Channel: msg.Channel, Duration: time.Since(start), Err: err}
	if resp != nil {
		result.StatusCode = resp.StatusCode
	}
	p.notify(ctx, result)

	if err != nil {
		p.logger.Warn("publish failed", "channel", msg.Channel, "error", err)
	} else {
		p.logger.Debug("message published",
			"channel", msg.Channel,
			"script", msg.Data.IsScript(),
			"status", result.StatusCode,
			"duration_ms", result.Duration.Milliseconds(),
		)
	}

	return resp, err
}

// send performs the HTTP exchange.
func (p *Publisher) send(ctx context.Context, msg *pubsub.Message) (*Response, error) {
	if p.cfg.Server == "" {
		return nil, ErrNoServer
	}

	endpoint, err := endpointURL(p.cfg.Server)
	if err != nil {
		return nil, err
	}

	body, err := msg.Encode()
	if err != nil {
		return nil, err
	}
	form := url.Values{formField: {string(body)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       data,
	}

	if p.cfg.StrictStatus && !resp.OK() {
		return resp, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return resp, nil
}

// notify hands result to every observer.
func (p *Publisher) notify(ctx context.Context, result Result) {
	p.obsMu.RLock()
	observers := p.observers
	p.obsMu.RUnlock()

	for _, o := range observers {
		o.ObservePublish(ctx, result)
	}
}

// endpointURL returns the POST target for server: scheme, host and path,
// with "/" when the path is empty. Query and fragment are dropped.
func endpointURL(server string) (string, error) {
	parsed, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidServer, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q is not http or https", ErrInvalidServer, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidServer, server)
	}

	target := url.URL{
		Scheme:  parsed.Scheme,
		User:    parsed.User,
		Host:    parsed.Host,
		Path:    parsed.Path,
		RawPath: parsed.RawPath,
	}
	if target.Path == "" {
		target.Path = "/"
		target.RawPath = ""
	}
	return target.String(), nil
}
