// Package mqtt connects privatepub to an MQTT broker.
//
// The connection carries lifecycle events in both directions: the event
// relay mirrors every handshake, subscribe, unsubscribe, publish and
// disconnect to {prefix}/events/{name}, and a broker that cannot call the
// HTTP bridge may report its events on {prefix}/broker/events/{name}.
//
// The client reconnects with backoff, re-subscribes to broker events after
// a reconnect, and keeps a retained status message with a Last Will so
// consumers can tell when the service goes away.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishEvent("subscribe", payload)
package mqtt
