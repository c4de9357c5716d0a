package events

import (
	"errors"

	"github.com/nerrad567/privatepub/internal/pubsub"
)

// Extension inspects or rewrites messages passing through the broker.
// Rejections are reported by setting msg.Error; a returned error means
// the extension could not run at all.
type Extension interface {
	Name() string
	Incoming(msg *BayeuxMessage) error
}

// Authenticator guards the broker with the shared secret.
//
// Subscriptions must present a valid, unexpired ticket. Messages on
// non-meta channels must carry the secret token, which is removed before
// the message is delivered so clients never see it.
type Authenticator struct {
	signer *pubsub.Signer
}

// NewAuthenticator creates an Authenticator checking against signer.
func NewAuthenticator(signer *pubsub.Signer) *Authenticator {
	return &Authenticator{signer: signer}
}

// Name identifies the extension in the broker options.
func (a *Authenticator) Name() string {
	return "private_pub_authenticator"
}

// Incoming authenticates msg.
//
// Returns:
//   - error: pubsub.ErrMissingSecret when no secret_token is configured
func (a *Authenticator) Incoming(msg *BayeuxMessage) error {
	switch {
	case msg.Channel == ChannelMetaSubscribe:
		return a.authenticateSubscribe(msg)
	case !msg.IsMeta():
		return a.authenticatePublish(msg)
	}
	return nil
}

func (a *Authenticator) authenticateSubscribe(msg *BayeuxMessage) error {
	timestamp, _ := msg.ExtInt(ExtTimestamp)
	err := a.signer.Verify(msg.Subscription, timestamp, msg.ExtString(ExtSignature))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pubsub.ErrMissingSecret):
		return err
	default:
		msg.Error = err.Error()
		return nil
	}
}

func (a *Authenticator) authenticatePublish(msg *BayeuxMessage) error {
	err := a.signer.VerifyToken(msg.ExtString(ExtToken))
	switch {
	case err == nil:
		delete(msg.Ext, ExtToken)
		return nil
	case errors.Is(err, pubsub.ErrMissingSecret):
		return err
	default:
		msg.Error = err.Error()
		return nil
	}
}
