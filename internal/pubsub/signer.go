package pubsub

import (
	"crypto/sha1" //nolint:gosec // wire-compatible ticket digest, not a password hash
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
)

// Expiry is the three-valued result of an expiration check.
type Expiry int

// Expiry values. ExpiryNoPolicy means no signature_expiration is configured
// and callers must treat the ticket as never expiring.
const (
	ExpiryNoPolicy Expiry = iota
	ExpiryValid
	ExpiryExpired
)

// String returns the wire name of the expiry state.
func (e Expiry) String() string {
	switch e {
	case ExpiryValid:
		return "valid"
	case ExpiryExpired:
		return "expired"
	default:
		return "no_policy"
	}
}

// Expired reports whether the ticket must be rejected.
func (e Expiry) Expired() bool {
	return e == ExpiryExpired
}

// Signer issues and checks subscription tickets.
//
// Thread Safety:
//   - Safe for concurrent use. SetClock must be called before sharing.
type Signer struct {
	server     string
	secret     string
	expiration time.Duration
	hasPolicy  bool
	now        func() time.Time
}

// NewSigner creates a Signer from the publishing configuration.
func NewSigner(cfg config.PubSubConfig) *Signer {
	expiration, ok := cfg.Expiration()
	return &Signer{
		server:     cfg.Server,
		secret:     cfg.SecretToken,
		expiration: expiration,
		hasPolicy:  ok,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (s *Signer) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the current time from the signer's clock.
func (s *Signer) Now() time.Time {
	return s.now()
}

// Sign builds a ticket from opts and signs it.
//
// The configured server and the current time in milliseconds are used
// unless opts overrides them. The signature covers the final channel and
// timestamp.
//
// Returns:
//   - *Subscription: The signed ticket
//   - error: ErrMissingChannel or ErrMissingSecret
func (s *Signer) Sign(opts SubscriptionOptions) (*Subscription, error) {
	if opts.Channel == "" {
		return nil, ErrMissingChannel
	}
	if s.secret == "" {
		return nil, ErrMissingSecret
	}

	sub := &Subscription{
		Server:    s.server,
		Channel:   opts.Channel,
		Timestamp: s.now().UnixMilli(),
	}
	if opts.Server != "" {
		sub.Server = opts.Server
	}
	if opts.Timestamp != 0 {
		sub.Timestamp = opts.Timestamp
	}
	if len(opts.Extra) > 0 {
		sub.Extra = make(map[string]any, len(opts.Extra))
		for k, v := range opts.Extra {
			sub.Extra[k] = v
		}
	}

	sub.Signature = s.Signature(sub.Channel, sub.Timestamp)
	return sub, nil
}

// Signature returns hex(SHA1(secret + channel + timestamp)).
func (s *Signer) Signature(channel string, timestamp int64) string {
	sum := sha1.Sum([]byte(s.secret + channel + strconv.FormatInt(timestamp, 10))) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// IsExpired checks a ticket timestamp (milliseconds) against
// signature_expiration. A ticket is expired when it is older than the
// configured number of seconds.
func (s *Signer) IsExpired(timestamp int64) Expiry {
	if !s.hasPolicy {
		return ExpiryNoPolicy
	}
	cutoff := s.now().UnixMilli() - s.expiration.Milliseconds()
	if timestamp < cutoff {
		return ExpiryExpired
	}
	return ExpiryValid
}

// Verify checks a ticket presented by a client. The signature is checked
// first, then the expiry.
//
// Returns:
//   - error: nil, ErrMissingSecret, ErrSignatureMismatch or ErrSignatureExpired
func (s *Signer) Verify(channel string, timestamp int64, signature string) error {
	if s.secret == "" {
		return ErrMissingSecret
	}

	expected := s.Signature(channel, timestamp)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrSignatureMismatch
	}
	if s.IsExpired(timestamp).Expired() {
		return ErrSignatureExpired
	}
	return nil
}

// VerifyToken checks the secret token carried by a server-side publish.
func (s *Signer) VerifyToken(token string) error {
	if s.secret == "" {
		return ErrMissingSecret
	}
	if subtle.ConstantTimeCompare([]byte(s.secret), []byte(token)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}
