package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Symbolic keys understood by Store.Get and Store.Set.
const (
	KeyServer              = "server"
	KeySecretToken         = "secret_token"
	KeySignatureExpiration = "signature_expiration"
	KeyLogState            = "log_state"
	KeyPublishTimeout      = "publish_timeout"
	KeyStrictStatus        = "strict_status"
)

// Store holds the configuration as an explicit object rather than process-wide state.
//
// A Store is created once, loaded at startup, and its snapshot (Config) is
// handed to every component that needs it. Independent stores can be used
// side by side, which keeps tests isolated.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Loading is still expected to
//     happen once, before request handling starts.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{cfg: &Config{}}
}

// Reset replaces the configuration with a fresh, empty one.
// Previously returned snapshots are unaffected.
func (s *Store) Reset() {
	s.mu.Lock()
	s.cfg = &Config{}
	s.mu.Unlock()
}

// LoadFile reads path and merges the given environment into the store.
func (s *Store) LoadFile(path, environment string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	defer f.Close()

	return s.Load(f, path, environment)
}

// Load parses a YAML document keyed by environment name, selects environment
// and merges its keys into the store. Keys absent from the document keep
// their current values.
//
// Parameters:
//   - r: The YAML document
//   - source: Name used in error messages (usually the file path)
//   - environment: Top-level key to select
//
// Returns:
//   - error: ErrConfiguration if the environment is absent, or a parse error
func (s *Store) Load(r io.Reader, source, environment string) error {
	var doc map[string]yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %s: %w", source, err)
	}

	node, ok := doc[environment]
	if !ok || node.ShortTag() == "!!null" {
		return fmt.Errorf("%w: the %s environment does not exist in %s", ErrConfiguration, environment, source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.clone()
	if err := node.Decode(next); err != nil {
		return fmt.Errorf("parsing %s environment in %s: %w", environment, source, err)
	}
	s.cfg = next

	return nil
}

// Config returns a snapshot of the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg.clone()
}

// PubSub returns a snapshot of the publishing and signing keys.
func (s *Store) PubSub() PubSubConfig {
	return s.Config().PubSubConfig
}

// Get returns the value stored under a symbolic key.
// The boolean is false when the key is unset; signature_expiration is
// unset when no expiration policy is configured.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.cfg.PubSubConfig
	switch key {
	case KeyServer:
		return p.Server, p.Server != ""
	case KeySecretToken:
		return p.SecretToken, p.SecretToken != ""
	case KeySignatureExpiration:
		if p.SignatureExpiration == nil {
			return nil, false
		}
		return *p.SignatureExpiration, true
	case KeyLogState:
		return p.LogState, true
	case KeyPublishTimeout:
		return p.PublishTimeout, true
	case KeyStrictStatus:
		return p.StrictStatus, true
	default:
		return nil, false
	}
}

// Set stores a value under a symbolic key.
// signature_expiration accepts an int, or nil to remove the policy.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &s.cfg.PubSubConfig
	switch key {
	case KeyServer:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidValue, key)
		}
		p.Server = v
	case KeySecretToken:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidValue, key)
		}
		p.SecretToken = v
	case KeySignatureExpiration:
		if value == nil {
			p.SignatureExpiration = nil
			return nil
		}
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("%w: %s must be an int", ErrInvalidValue, key)
		}
		if !validExpiration(v) {
			return fmt.Errorf("%w: %s must be between 0 and %d", ErrInvalidValue, key, MaxSignatureExpiration)
		}
		p.SignatureExpiration = &v
	case KeyLogState:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s must be a bool", ErrInvalidValue, key)
		}
		p.LogState = v
	case KeyPublishTimeout:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("%w: %s must be an int", ErrInvalidValue, key)
		}
		p.PublishTimeout = v
	case KeyStrictStatus:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s must be a bool", ErrInvalidValue, key)
		}
		p.StrictStatus = v
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	return nil
}
