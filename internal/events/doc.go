// Package events is the lifecycle event sink for the external broker.
//
// The broker holds an Adapter and reports five events to it: handshake,
// subscribe, unsubscribe, publish and disconnect. The Adapter routes each
// to a Hooks implementation. StatusHooks prints the classic status lines
// through logging.StatusLogger, MQTTRelay mirrors events to MQTT, and
// Multi fans out to several hooks at once.
//
// The Adapter also carries the options handed to the broker (mount path,
// timeout, ping interval) and an ordered list of message extensions. The
// default extension is the Authenticator, which checks subscription
// tickets on /meta/subscribe and the secret token on server publishes.
//
// Events reach the Adapter through the HTTP bridge in internal/api or
// through MQTT (see BindBrokerEvents).
package events
