package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
	"github.com/nerrad567/privatepub/internal/pubsub"
)

// Default broker options.
const (
	DefaultMount   = "/faye"
	DefaultTimeout = 45 * time.Second
	DefaultPing    = 15 * time.Second
)

// Options are handed to the broker. Zero fields take the defaults.
//
// A nil Extensions slice means the default chain (an Authenticator over
// Signer); a non-nil empty slice disables extensions.
type Options struct {
	Mount      string
	Timeout    time.Duration
	Ping       time.Duration
	Extensions []Extension

	// Signer backs the default Authenticator.
	Signer *pubsub.Signer
}

// OptionsFromConfig converts the adapter section of the configuration.
func OptionsFromConfig(cfg config.AdapterConfig, signer *pubsub.Signer) Options {
	return Options{
		Mount:   cfg.Mount,
		Timeout: time.Duration(cfg.Timeout) * time.Second,
		Ping:    time.Duration(cfg.Ping) * time.Second,
		Signer:  signer,
	}
}

// withDefaults returns opts merged over the defaults; caller values win.
func (o Options) withDefaults() Options {
	if o.Mount == "" {
		o.Mount = DefaultMount
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Ping <= 0 {
		o.Ping = DefaultPing
	}
	if o.Extensions == nil && o.Signer != nil {
		o.Extensions = []Extension{NewAuthenticator(o.Signer)}
	}
	return o
}

// MarshalJSON reports the options the way the broker consumes them:
// durations in seconds and extensions by name.
func (o Options) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(o.Extensions))
	for _, ext := range o.Extensions {
		names = append(names, ext.Name())
	}
	return json.Marshal(struct {
		Mount      string   `json:"mount"`
		Timeout    int      `json:"timeout"`
		Ping       int      `json:"ping"`
		Extensions []string `json:"extensions"`
	}{
		Mount:      o.Mount,
		Timeout:    int(o.Timeout / time.Second),
		Ping:       int(o.Ping / time.Second),
		Extensions: names,
	})
}

// Adapter connects the broker to the hooks and extensions.
//
// Thread Safety:
//   - Safe for concurrent use once constructed.
type Adapter struct {
	hooks Hooks
	opts  Options
}

// NewAdapter creates an Adapter with opts merged over the defaults.
// A nil hooks ignores every event.
func NewAdapter(hooks Hooks, opts Options) *Adapter {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Adapter{hooks: hooks, opts: opts.withDefaults()}
}

// Options returns the merged broker options.
func (a *Adapter) Options() Options {
	return a.opts
}

// Dispatch routes ev to the matching hook.
//
// Returns:
//   - error: ErrUnknownEvent when ev.Name is not a lifecycle event
func (a *Adapter) Dispatch(ev Event) error {
	switch ev.Name {
	case EventHandshake:
		a.hooks.OnHandshake(ev.ClientID)
	case EventSubscribe:
		a.hooks.OnSubscribe(ev.ClientID, ev.Channel)
	case EventUnsubscribe:
		a.hooks.OnUnsubscribe(ev.ClientID, ev.Channel)
	case EventPublish:
		var data any
		if len(ev.Data) > 0 {
			data = ev.Data
		}
		a.hooks.OnPublish(ev.ClientID, ev.Channel, data)
	case EventDisconnect:
		a.hooks.OnDisconnect(ev.ClientID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Name)
	}
	return nil
}

// Incoming runs msg through the extensions in order. It stops at the
// first extension that fails; rejections set msg.Error and continue.
func (a *Adapter) Incoming(msg *BayeuxMessage) error {
	for _, ext := range a.opts.Extensions {
		if err := ext.Incoming(msg); err != nil {
			return fmt.Errorf("extension %s: %w", ext.Name(), err)
		}
	}
	return nil
}
